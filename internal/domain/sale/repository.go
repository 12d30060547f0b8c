package sale

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
)

// Repository is the persistence contract the ledger requires: sale/payment
// reads, an atomic group write for sale creation and deletion, and in-tx
// primitives for the payment cascades. Implementations must serialize
// concurrent writers on the same sale; a losing writer gets ErrConflict.
type Repository interface {
	CreateSale(ctx context.Context, s *Sale, schedule []Payment) (*Sale, error)

	GetSaleByID(ctx context.Context, saleID int64) (*Sale, error)

	GetPaymentsBySaleID(ctx context.Context, saleID int64) ([]Payment, error)

	GetActiveSaleIDs(ctx context.Context) ([]int64, error)

	// DeleteSale removes the sale and all its payments and reverts the
	// vehicle to available, in one transaction. Returns the released
	// vehicle ID for event emission.
	DeleteSale(ctx context.Context, saleID int64) (int64, error)

	BeginTx(ctx context.Context) (pgx.Tx, error)

	CommitTx(ctx context.Context, tx pgx.Tx) error

	RollbackTx(ctx context.Context, tx pgx.Tx) error

	GetSaleForUpdate(ctx context.Context, tx pgx.Tx, saleID int64) (*Sale, error)

	GetPaymentForUpdate(ctx context.Context, tx pgx.Tx, saleID, paymentID int64) (*Payment, error)

	GetPendingPaymentsForUpdate(ctx context.Context, tx pgx.Tx, saleID int64) ([]Payment, error)

	UpdatePaymentInTx(ctx context.Context, tx pgx.Tx, p *Payment) error

	InsertPaymentInTx(ctx context.Context, tx pgx.Tx, p *Payment) (*Payment, error)

	DeletePaymentInTx(ctx context.Context, tx pgx.Tx, saleID, paymentID int64) error

	SumPaidAmountInTx(ctx context.Context, tx pgx.Tx, saleID int64) (Money, error)

	PendingExistsAtInTx(ctx context.Context, tx pgx.Tx, saleID int64, dueDate time.Time) (bool, error)

	UpdateSaleStatusInTx(ctx context.Context, tx pgx.Tx, saleID int64, status Status) error
}
