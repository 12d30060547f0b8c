package postgres

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"bhph-engine/internal/domain/sale"
	"bhph-engine/internal/pkg/apperrors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func newMockRepo(t *testing.T) (pgxmock.PgxPoolIface, *SaleRepository) {
	t.Helper()
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mockPool.Close)
	return mockPool, NewSaleRepository(mockPool, testLogger())
}

func saleRow(saleID int64) *pgxmock.Rows {
	now := time.Now()
	start := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	return pgxmock.NewRows([]string{
		"id", "vehicle_id", "client_id", "sale_price", "down_payment", "financed_amount",
		"interest_rate", "term_years", "frequency", "payment_amount", "total_payments",
		"start_date", "first_payment_date", "status", "created_at", "updated_at",
	}).AddRow(
		saleID, int64(10), int64(20), 12000.0, 1500.0, 10500.0,
		8.0, 2, "weekly", 109.62, 104,
		start, start.AddDate(0, 0, 7), "ACTIVE", now, now,
	)
}

func TestSaleRepository_GetSaleByID(t *testing.T) {
	ctx := context.Background()

	t.Run("returns the sale", func(t *testing.T) {
		mockPool, repo := newMockRepo(t)

		mockPool.ExpectQuery(`SELECT .+ FROM sales WHERE id = \$1`).
			WithArgs(int64(1)).
			WillReturnRows(saleRow(1))

		s, err := repo.GetSaleByID(ctx, 1)
		assert.NoError(t, err)
		assert.Equal(t, int64(1), s.ID)
		assert.Equal(t, 10500.0, s.FinancedAmount)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("missing sale maps to ErrNotFound", func(t *testing.T) {
		mockPool, repo := newMockRepo(t)

		mockPool.ExpectQuery(`SELECT .+ FROM sales WHERE id = \$1`).
			WithArgs(int64(99)).
			WillReturnError(pgx.ErrNoRows)

		_, err := repo.GetSaleByID(ctx, 99)
		assert.ErrorIs(t, err, apperrors.ErrNotFound)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})
}

func TestSaleRepository_GetPaymentsBySaleID(t *testing.T) {
	ctx := context.Background()
	mockPool, repo := newMockRepo(t)

	now := time.Now()
	due := time.Date(2024, time.January, 8, 0, 0, 0, 0, time.UTC)
	rows := pgxmock.NewRows([]string{
		"id", "sale_id", "amount", "due_date", "status", "paid_date", "created_at", "updated_at",
	}).
		AddRow(int64(1), int64(1), 109.62, due, "PAID", &now, now, now).
		AddRow(int64(2), int64(1), 109.62, due.AddDate(0, 0, 7), "PENDING", (*time.Time)(nil), now, now)

	mockPool.ExpectQuery(`SELECT .+ FROM payments WHERE sale_id = \$1 ORDER BY due_date ASC, id ASC`).
		WithArgs(int64(1)).
		WillReturnRows(rows)

	payments, err := repo.GetPaymentsBySaleID(ctx, 1)
	assert.NoError(t, err)
	assert.Len(t, payments, 2)
	assert.Equal(t, sale.PaymentStatusPaid, payments[0].Status)
	assert.Nil(t, payments[1].PaidDate)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestSaleRepository_DeleteSale(t *testing.T) {
	ctx := context.Background()

	t.Run("deletes ledger and releases vehicle in one transaction", func(t *testing.T) {
		mockPool, repo := newMockRepo(t)

		mockPool.ExpectBegin()
		mockPool.ExpectQuery(`SELECT vehicle_id FROM sales WHERE id = \$1 FOR UPDATE`).
			WithArgs(int64(1)).
			WillReturnRows(pgxmock.NewRows([]string{"vehicle_id"}).AddRow(int64(10)))
		mockPool.ExpectExec(`DELETE FROM payments WHERE sale_id = \$1`).
			WithArgs(int64(1)).
			WillReturnResult(pgxmock.NewResult("DELETE", 104))
		mockPool.ExpectExec(`DELETE FROM sales WHERE id = \$1`).
			WithArgs(int64(1)).
			WillReturnResult(pgxmock.NewResult("DELETE", 1))
		mockPool.ExpectExec(`UPDATE vehicles`).
			WithArgs(int64(10)).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))
		mockPool.ExpectCommit()
		mockPool.ExpectRollback()

		vehicleID, err := repo.DeleteSale(ctx, 1)
		assert.NoError(t, err)
		assert.Equal(t, int64(10), vehicleID)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("missing sale rolls back with ErrNotFound", func(t *testing.T) {
		mockPool, repo := newMockRepo(t)

		mockPool.ExpectBegin()
		mockPool.ExpectQuery(`SELECT vehicle_id FROM sales WHERE id = \$1 FOR UPDATE`).
			WithArgs(int64(99)).
			WillReturnError(pgx.ErrNoRows)
		mockPool.ExpectRollback()

		_, err := repo.DeleteSale(ctx, 99)
		assert.ErrorIs(t, err, apperrors.ErrNotFound)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})
}

func TestSaleRepository_InTxOperations(t *testing.T) {
	ctx := context.Background()

	t.Run("SumPaidAmountInTx", func(t *testing.T) {
		mockPool, repo := newMockRepo(t)

		mockPool.ExpectBegin()
		mockPool.ExpectQuery(`SELECT COALESCE\(SUM\(amount\), 0.00\) FROM payments`).
			WithArgs(int64(1)).
			WillReturnRows(pgxmock.NewRows([]string{"coalesce"}).AddRow(1500.0))

		tx, err := repo.BeginTx(ctx)
		require.NoError(t, err)

		total, err := repo.SumPaidAmountInTx(ctx, tx, 1)
		assert.NoError(t, err)
		assert.Equal(t, 1500.0, total)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("DeletePaymentInTx reports missing rows", func(t *testing.T) {
		mockPool, repo := newMockRepo(t)

		mockPool.ExpectBegin()
		mockPool.ExpectExec(`DELETE FROM payments WHERE id = \$1 AND sale_id = \$2`).
			WithArgs(int64(7), int64(1)).
			WillReturnResult(pgxmock.NewResult("DELETE", 0))

		tx, err := repo.BeginTx(ctx)
		require.NoError(t, err)

		err = repo.DeletePaymentInTx(ctx, tx, 1, 7)
		assert.ErrorIs(t, err, apperrors.ErrNotFound)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("PendingExistsAtInTx", func(t *testing.T) {
		mockPool, repo := newMockRepo(t)
		due := time.Date(2024, time.January, 29, 0, 0, 0, 0, time.UTC)

		mockPool.ExpectBegin()
		mockPool.ExpectQuery(`SELECT COUNT\(\*\) FROM payments`).
			WithArgs(int64(1), due).
			WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(1))

		tx, err := repo.BeginTx(ctx)
		require.NoError(t, err)

		exists, err := repo.PendingExistsAtInTx(ctx, tx, 1, due)
		assert.NoError(t, err)
		assert.True(t, exists)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})
}

func TestTranslateDBError(t *testing.T) {
	logger := testLogger()

	t.Run("unique violation maps to ErrAlreadyExists", func(t *testing.T) {
		err := translateDBError(&pgconn.PgError{Code: "23505", ConstraintName: "payments_sale_due_unique"}, logger)
		assert.ErrorIs(t, err, apperrors.ErrAlreadyExists)
	})

	t.Run("serialization failure maps to ErrConflict", func(t *testing.T) {
		err := translateDBError(&pgconn.PgError{Code: "40001"}, logger)
		assert.ErrorIs(t, err, apperrors.ErrConflict)
	})

	t.Run("deadlock maps to ErrConflict", func(t *testing.T) {
		err := translateDBError(&pgconn.PgError{Code: "40P01"}, logger)
		assert.ErrorIs(t, err, apperrors.ErrConflict)
	})

	t.Run("no rows maps to ErrNotFound", func(t *testing.T) {
		assert.ErrorIs(t, translateDBError(pgx.ErrNoRows, logger), apperrors.ErrNotFound)
	})

	t.Run("other errors map to ErrDatabase", func(t *testing.T) {
		err := translateDBError(&pgconn.PgError{Code: "23503"}, logger)
		assert.ErrorIs(t, err, apperrors.ErrDatabase)
	})

	t.Run("nil stays nil", func(t *testing.T) {
		assert.NoError(t, translateDBError(nil, logger))
	})
}
