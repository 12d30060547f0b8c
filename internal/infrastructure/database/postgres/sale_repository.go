package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"bhph-engine/internal/domain/sale"
	"bhph-engine/internal/infrastructure/monitoring"
	"bhph-engine/internal/pkg/apperrors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pashagolub/pgxmock/v4"
)

type DBPool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Acquire(ctx context.Context) (*pgxpool.Conn, error)
	Close()
}

type SaleRepository struct {
	db     DBPool
	logger *slog.Logger
}

var _ DBPool = (*pgxpool.Pool)(nil)

var _ DBPool = (pgxmock.PgxPoolIface)(nil)

var _ sale.Repository = (*SaleRepository)(nil)

var errMsgFormat = "%w: %w"

const saleColumns = `id, vehicle_id, client_id, sale_price, down_payment, financed_amount, interest_rate, term_years, frequency, payment_amount, total_payments, start_date, first_payment_date, status, created_at, updated_at`

const paymentColumns = `id, sale_id, amount, due_date, status, paid_date, created_at, updated_at`

func NewSaleRepository(db DBPool, logger *slog.Logger) *SaleRepository {
	return &SaleRepository{db: db, logger: logger.With("component", "SaleRepository")}
}

func (r *SaleRepository) BeginTx(ctx context.Context) (pgx.Tx, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to begin transaction", "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return tx, nil
}

func (r *SaleRepository) CommitTx(ctx context.Context, tx pgx.Tx) error {
	err := tx.Commit(ctx)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to commit transaction", "error", err)
		return translateDBError(err, r.logger)
	}
	return nil
}

func (r *SaleRepository) RollbackTx(ctx context.Context, tx pgx.Tx) error {
	err := tx.Rollback(ctx)
	if err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		r.logger.ErrorContext(ctx, "Failed to rollback transaction", "error", err)
		return fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return nil
}

// CreateSale persists the sale, its full payment schedule and the vehicle's
// transition to sold as one transaction. A vehicle that is not available
// fails the whole group with ErrConflict.
func (r *SaleRepository) CreateSale(ctx context.Context, newSale *sale.Sale, schedule []sale.Payment) (*sale.Sale, error) {
	tx, err := r.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer r.RollbackTx(ctx, tx)

	saleSQL := `
        INSERT INTO sales (vehicle_id, client_id, sale_price, down_payment, financed_amount, interest_rate, term_years, frequency, payment_amount, total_payments, start_date, first_payment_date, status, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, NOW(), NOW())
        RETURNING ` + saleColumns

	var created sale.Sale
	err = tx.QueryRow(ctx, saleSQL,
		newSale.VehicleID, newSale.ClientID, newSale.SalePrice, newSale.DownPayment,
		newSale.FinancedAmount, newSale.InterestRate, newSale.TermYears, newSale.Frequency,
		newSale.PaymentAmount, newSale.TotalPayments, newSale.StartDate, newSale.FirstPaymentDate,
		newSale.Status,
	).Scan(
		&created.ID, &created.VehicleID, &created.ClientID, &created.SalePrice, &created.DownPayment,
		&created.FinancedAmount, &created.InterestRate, &created.TermYears, &created.Frequency,
		&created.PaymentAmount, &created.TotalPayments, &created.StartDate, &created.FirstPaymentDate,
		&created.Status, &created.CreatedAt, &created.UpdatedAt,
	)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to insert sale", "error", err)
		return nil, translateDBError(err, r.logger)
	}
	r.logger.InfoContext(ctx, "Sale created in DB", "sale_id", created.ID)

	if len(schedule) > 0 {
		paymentSQL := `
            INSERT INTO payments (sale_id, amount, due_date, status, created_at, updated_at)
            VALUES ($1, $2, $3, $4, NOW(), NOW())`

		batch := &pgx.Batch{}
		for _, p := range schedule {
			batch.Queue(paymentSQL, created.ID, p.Amount, p.DueDate, p.Status)
		}

		results := tx.SendBatch(ctx, batch)
		for i := 0; i < len(schedule); i++ {
			_, err = results.Exec()
			if err != nil {
				results.Close()
				r.logger.ErrorContext(ctx, "Failed executing schedule batch insert", "error", err, "entry_index", i, "sale_id", created.ID)
				return nil, fmt.Errorf("%w: failed inserting payment %d: %w", apperrors.ErrDatabase, i+1, err)
			}
		}
		if err = results.Close(); err != nil {
			r.logger.ErrorContext(ctx, "Failed closing schedule batch results", "error", err, "sale_id", created.ID)
			return nil, fmt.Errorf("%w: closing batch results failed: %w", apperrors.ErrDatabase, err)
		}
	}
	r.logger.InfoContext(ctx, "Payment schedule created in DB", "sale_id", created.ID, "num_payments", len(schedule))

	markVehicleSQL := `
        UPDATE vehicles
        SET status = 'SOLD', updated_at = NOW()
        WHERE id = $1 AND status = 'AVAILABLE'`

	cmdTag, err := tx.Exec(ctx, markVehicleSQL, created.VehicleID)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to mark vehicle as sold", slog.Any("error", err))
		return nil, translateDBError(err, r.logger)
	}
	if cmdTag.RowsAffected() == 0 {
		r.logger.Error("Vehicle not available for sale", slog.Int64("vehicleID", created.VehicleID))
		return nil, fmt.Errorf("%w: vehicle %d not found or not available", apperrors.ErrConflict, created.VehicleID)
	}

	if err := r.CommitTx(ctx, tx); err != nil {
		return nil, err
	}

	return &created, nil
}

func (r *SaleRepository) GetSaleByID(ctx context.Context, saleID int64) (*sale.Sale, error) {
	query := `SELECT ` + saleColumns + ` FROM sales WHERE id = $1`
	status := "success"
	startTime := time.Now()

	var s sale.Sale
	err := r.db.QueryRow(ctx, query, saleID).Scan(
		&s.ID, &s.VehicleID, &s.ClientID, &s.SalePrice, &s.DownPayment,
		&s.FinancedAmount, &s.InterestRate, &s.TermYears, &s.Frequency,
		&s.PaymentAmount, &s.TotalPayments, &s.StartDate, &s.FirstPaymentDate,
		&s.Status, &s.CreatedAt, &s.UpdatedAt,
	)

	if err != nil {
		status = "error"
	}
	monitoring.RecordDBQuery("GetSaleByID", status, time.Since(startTime))

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.WarnContext(ctx, "Sale not found", "sale_id", saleID)
			return nil, apperrors.ErrNotFound
		}
		r.logger.ErrorContext(ctx, "Failed to get sale by ID", "sale_id", saleID, "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return &s, nil
}

func (r *SaleRepository) GetPaymentsBySaleID(ctx context.Context, saleID int64) ([]sale.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE sale_id = $1 ORDER BY due_date ASC, id ASC`
	status := "success"
	startTime := time.Now()

	rows, err := r.db.Query(ctx, query, saleID)
	if err != nil {
		monitoring.RecordDBQuery("GetPaymentsBySaleID", "error", time.Since(startTime))
		r.logger.ErrorContext(ctx, "Failed to query payments", "sale_id", saleID, "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	defer rows.Close()

	payments := make([]sale.Payment, 0)
	for rows.Next() {
		var p sale.Payment
		err := rows.Scan(
			&p.ID, &p.SaleID, &p.Amount, &p.DueDate,
			&p.Status, &p.PaidDate, &p.CreatedAt, &p.UpdatedAt,
		)
		if err != nil {
			r.logger.ErrorContext(ctx, "Failed to scan payment row", "sale_id", saleID, "error", err)
			return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
		}
		payments = append(payments, p)
	}

	if err = rows.Err(); err != nil {
		status = "error"
	}
	monitoring.RecordDBQuery("GetPaymentsBySaleID", status, time.Since(startTime))

	if err != nil {
		r.logger.ErrorContext(ctx, "Error iterating payment rows", "sale_id", saleID, "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}

	return payments, nil
}

func (r *SaleRepository) GetActiveSaleIDs(ctx context.Context) ([]int64, error) {
	logCtx := r.logger.With(slog.String("operation", "GetActiveSaleIDs"))
	logCtx.DebugContext(ctx, "Attempting to get all active sale IDs")

	query := `SELECT id FROM sales WHERE status = $1 ORDER BY id`

	rows, err := r.db.Query(ctx, query, sale.StatusActive)
	if err != nil {
		logCtx.ErrorContext(ctx, "Failed to query active sale IDs", slog.Any("error", err))
		return nil, fmt.Errorf("%w: failed to query active sales: %w", apperrors.ErrDatabase, err)
	}
	defer rows.Close()

	saleIDs := make([]int64, 0)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			logCtx.ErrorContext(ctx, "Failed to scan active sale ID row", slog.Any("error", err))
			return nil, fmt.Errorf("%w: failed scanning active sale ID: %w", apperrors.ErrDatabase, err)
		}
		saleIDs = append(saleIDs, id)
	}

	if err = rows.Err(); err != nil {
		logCtx.ErrorContext(ctx, "Error iterating active sale ID rows", slog.Any("error", err))
		return nil, fmt.Errorf("%w: error iterating active sale IDs: %w", apperrors.ErrDatabase, err)
	}

	logCtx.DebugContext(ctx, "Finished getting active sale IDs", slog.Int("count", len(saleIDs)))
	return saleIDs, nil
}

// DeleteSale removes the sale with its whole ledger and returns the vehicle
// to the available pool, all in one transaction.
func (r *SaleRepository) DeleteSale(ctx context.Context, saleID int64) (int64, error) {
	tx, err := r.BeginTx(ctx)
	if err != nil {
		return 0, err
	}
	defer r.RollbackTx(ctx, tx)

	var vehicleID int64
	err = tx.QueryRow(ctx, `SELECT vehicle_id FROM sales WHERE id = $1 FOR UPDATE`, saleID).Scan(&vehicleID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.WarnContext(ctx, "Sale not found for deletion", "sale_id", saleID)
			return 0, apperrors.ErrNotFound
		}
		r.logger.ErrorContext(ctx, "Failed to lock sale for deletion", "sale_id", saleID, "error", err)
		return 0, translateDBError(err, r.logger)
	}

	if _, err = tx.Exec(ctx, `DELETE FROM payments WHERE sale_id = $1`, saleID); err != nil {
		r.logger.ErrorContext(ctx, "Failed to delete payments for sale", "sale_id", saleID, "error", err)
		return 0, translateDBError(err, r.logger)
	}

	if _, err = tx.Exec(ctx, `DELETE FROM sales WHERE id = $1`, saleID); err != nil {
		r.logger.ErrorContext(ctx, "Failed to delete sale", "sale_id", saleID, "error", err)
		return 0, translateDBError(err, r.logger)
	}

	releaseVehicleSQL := `
        UPDATE vehicles
        SET status = 'AVAILABLE', updated_at = NOW()
        WHERE id = $1 AND status = 'SOLD'`
	if _, err = tx.Exec(ctx, releaseVehicleSQL, vehicleID); err != nil {
		r.logger.ErrorContext(ctx, "Failed to release vehicle", "vehicle_id", vehicleID, "error", err)
		return 0, translateDBError(err, r.logger)
	}

	if err = r.CommitTx(ctx, tx); err != nil {
		return 0, err
	}

	r.logger.InfoContext(ctx, "Sale deleted from DB", "sale_id", saleID, "vehicle_id", vehicleID)
	return vehicleID, nil
}

func (r *SaleRepository) GetSaleForUpdate(ctx context.Context, tx pgx.Tx, saleID int64) (*sale.Sale, error) {
	query := `SELECT ` + saleColumns + ` FROM sales WHERE id = $1 FOR UPDATE`

	var s sale.Sale
	err := tx.QueryRow(ctx, query, saleID).Scan(
		&s.ID, &s.VehicleID, &s.ClientID, &s.SalePrice, &s.DownPayment,
		&s.FinancedAmount, &s.InterestRate, &s.TermYears, &s.Frequency,
		&s.PaymentAmount, &s.TotalPayments, &s.StartDate, &s.FirstPaymentDate,
		&s.Status, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.WarnContext(ctx, "Sale not found for update", "sale_id", saleID)
			return nil, apperrors.ErrNotFound
		}
		r.logger.ErrorContext(ctx, "Failed to lock sale row", "sale_id", saleID, "error", err)
		return nil, translateDBError(err, r.logger)
	}
	return &s, nil
}

func (r *SaleRepository) GetPaymentForUpdate(ctx context.Context, tx pgx.Tx, saleID, paymentID int64) (*sale.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1 AND sale_id = $2 FOR UPDATE`

	var p sale.Payment
	err := tx.QueryRow(ctx, query, paymentID, saleID).Scan(
		&p.ID, &p.SaleID, &p.Amount, &p.DueDate,
		&p.Status, &p.PaidDate, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.WarnContext(ctx, "Payment not found for update", "sale_id", saleID, "payment_id", paymentID)
			return nil, apperrors.ErrNotFound
		}
		r.logger.ErrorContext(ctx, "Failed to lock payment row", "sale_id", saleID, "payment_id", paymentID, "error", err)
		return nil, translateDBError(err, r.logger)
	}
	return &p, nil
}

func (r *SaleRepository) GetPendingPaymentsForUpdate(ctx context.Context, tx pgx.Tx, saleID int64) ([]sale.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE sale_id = $1 AND status = 'PENDING' ORDER BY due_date ASC, id ASC FOR UPDATE`

	rows, err := tx.Query(ctx, query, saleID)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to query pending payments for update", "sale_id", saleID, "error", err)
		return nil, translateDBError(err, r.logger)
	}
	defer rows.Close()

	payments := make([]sale.Payment, 0)
	for rows.Next() {
		var p sale.Payment
		err := rows.Scan(
			&p.ID, &p.SaleID, &p.Amount, &p.DueDate,
			&p.Status, &p.PaidDate, &p.CreatedAt, &p.UpdatedAt,
		)
		if err != nil {
			r.logger.ErrorContext(ctx, "Failed to scan pending payment row", "sale_id", saleID, "error", err)
			return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
		}
		payments = append(payments, p)
	}

	if err = rows.Err(); err != nil {
		r.logger.ErrorContext(ctx, "Error iterating pending payment rows", "sale_id", saleID, "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}

	return payments, nil
}

func (r *SaleRepository) UpdatePaymentInTx(ctx context.Context, tx pgx.Tx, p *sale.Payment) error {
	sql := `
        UPDATE payments
        SET amount = $1, due_date = $2, status = $3, paid_date = $4, updated_at = NOW()
        WHERE id = $5 AND sale_id = $6`

	cmdTag, err := tx.Exec(ctx, sql, p.Amount, p.DueDate, p.Status, p.PaidDate, p.ID, p.SaleID)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to update payment", "payment_id", p.ID, "sale_id", p.SaleID, "error", err)
		return translateDBError(err, r.logger)
	}
	if cmdTag.RowsAffected() != 1 {
		r.logger.ErrorContext(ctx, "Payment update affected zero rows", "payment_id", p.ID, "sale_id", p.SaleID)
		return fmt.Errorf("%w: payment update affected zero rows", apperrors.ErrDatabase)
	}
	return nil
}

func (r *SaleRepository) InsertPaymentInTx(ctx context.Context, tx pgx.Tx, p *sale.Payment) (*sale.Payment, error) {
	sql := `
        INSERT INTO payments (sale_id, amount, due_date, status, paid_date, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
        RETURNING ` + paymentColumns

	var inserted sale.Payment
	err := tx.QueryRow(ctx, sql, p.SaleID, p.Amount, p.DueDate, p.Status, p.PaidDate).Scan(
		&inserted.ID, &inserted.SaleID, &inserted.Amount, &inserted.DueDate,
		&inserted.Status, &inserted.PaidDate, &inserted.CreatedAt, &inserted.UpdatedAt,
	)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to insert payment", "sale_id", p.SaleID, "due_date", p.DueDate, "error", err)
		return nil, translateDBError(err, r.logger)
	}
	return &inserted, nil
}

func (r *SaleRepository) DeletePaymentInTx(ctx context.Context, tx pgx.Tx, saleID, paymentID int64) error {
	cmdTag, err := tx.Exec(ctx, `DELETE FROM payments WHERE id = $1 AND sale_id = $2`, paymentID, saleID)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to delete payment", "payment_id", paymentID, "sale_id", saleID, "error", err)
		return translateDBError(err, r.logger)
	}
	if cmdTag.RowsAffected() != 1 {
		r.logger.WarnContext(ctx, "Payment delete affected zero rows", "payment_id", paymentID, "sale_id", saleID)
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *SaleRepository) SumPaidAmountInTx(ctx context.Context, tx pgx.Tx, saleID int64) (sale.Money, error) {
	var total sale.Money
	query := `SELECT COALESCE(SUM(amount), 0.00) FROM payments WHERE sale_id = $1 AND status = 'PAID'`
	err := tx.QueryRow(ctx, query, saleID).Scan(&total)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to sum paid amounts", "sale_id", saleID, "error", err)
		return 0, translateDBError(err, r.logger)
	}
	return total, nil
}

func (r *SaleRepository) PendingExistsAtInTx(ctx context.Context, tx pgx.Tx, saleID int64, dueDate time.Time) (bool, error) {
	var count int
	query := `SELECT COUNT(*) FROM payments WHERE sale_id = $1 AND status = 'PENDING' AND due_date = $2`
	err := tx.QueryRow(ctx, query, saleID, dueDate).Scan(&count)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to check pending payment existence", "sale_id", saleID, "due_date", dueDate, "error", err)
		return false, translateDBError(err, r.logger)
	}
	return count > 0, nil
}

func (r *SaleRepository) UpdateSaleStatusInTx(ctx context.Context, tx pgx.Tx, saleID int64, status sale.Status) error {
	sql := `UPDATE sales SET status = $1, updated_at = NOW() WHERE id = $2`
	cmdTag, err := tx.Exec(ctx, sql, status, saleID)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to update sale status", "sale_id", saleID, "status", status, "error", err)
		return translateDBError(err, r.logger)
	}
	if cmdTag.RowsAffected() != 1 {
		r.logger.ErrorContext(ctx, "Sale status update affected zero rows", "sale_id", saleID, "status", status)
		return fmt.Errorf("%w: sale status update affected zero rows", apperrors.ErrDatabase)
	}
	r.logger.InfoContext(ctx, "Sale status updated in DB", "sale_id", saleID, "new_status", status)
	return nil
}

// translateDBError maps driver errors onto the application taxonomy.
// Serialization and deadlock failures surface as ErrConflict so callers can
// treat the losing writer as retryable.
func translateDBError(err error, contextLogger *slog.Logger) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			contextLogger.Warn("Database unique constraint violation", "detail", pgErr.Detail, "constraint", pgErr.ConstraintName)
			return fmt.Errorf("%w: %s", apperrors.ErrAlreadyExists, pgErr.ConstraintName)
		case "40001", "40P01":
			contextLogger.Warn("Transaction serialization failure", "code", pgErr.Code, "message", pgErr.Message)
			return fmt.Errorf("%w: %s", apperrors.ErrConflict, pgErr.Message)
		}

		contextLogger.Error("PostgreSQL specific error", "code", pgErr.Code, "message", pgErr.Message, "detail", pgErr.Detail)
		return fmt.Errorf("%w: db error code %s", apperrors.ErrDatabase, pgErr.Code)
	}

	contextLogger.Error("Generic database error", "error", err)
	return fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
}
