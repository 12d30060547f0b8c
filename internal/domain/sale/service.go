package sale

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"bhph-engine/internal/domain/cadence"
	"bhph-engine/internal/domain/finance"
	"bhph-engine/internal/event"
	"bhph-engine/internal/infrastructure/monitoring"
	"bhph-engine/internal/pkg/apperrors"

	"github.com/jackc/pgx/v5"
)

// QuoteCache holds computed payoff quotes keyed by sale and total paid. The
// total paid amount is part of the key, so a stale quote can never be served
// after the ledger changes; Invalidate just trims dead entries eagerly.
type QuoteCache interface {
	GetQuote(ctx context.Context, saleID int64, totalPaid Money) (*finance.PayoffQuote, error)

	SetQuote(ctx context.Context, saleID int64, totalPaid Money, quote finance.PayoffQuote) error

	InvalidateQuotes(ctx context.Context, saleID int64) error
}

// PaymentReceipt is the result of confirming a payment.
type PaymentReceipt struct {
	UpdatedPayment *Payment
	NextPending    *Payment
	SaleCompleted  bool
}

// CascadeResult is the result of deleting a paid payment and repairing the
// schedule around it.
type CascadeResult struct {
	ReinstatedPayment          *Payment
	ResequencedPendingPayments []Payment
	SaleStatusReverted         bool
}

type LedgerService interface {
	CreateSale(ctx context.Context, vehicleID, clientID int64, terms finance.LoanTerms, startDate time.Time) (*Sale, error)

	GetSale(ctx context.Context, saleID int64) (*Sale, error)

	GetSchedule(ctx context.Context, saleID int64) ([]Payment, error)

	DeleteSale(ctx context.Context, saleID int64) error

	RecordPayment(ctx context.Context, saleID, paymentID int64, amount Money, paidDate time.Time, newDueDate *time.Time) (*PaymentReceipt, error)

	DeletePaidPayment(ctx context.Context, saleID, paymentID int64) (*CascadeResult, error)

	QuoteEarlyPayoff(ctx context.Context, saleID int64) (*finance.PayoffQuote, error)

	ClassifySchedule(ctx context.Context, saleID int64, asOf time.Time) (*Classification, error)
}

type ledgerServiceImpl struct {
	repo            Repository
	events          event.Publisher
	cache           QuoteCache
	gracePeriodDays int
	logger          *slog.Logger
}

// NewLedgerService wires the ledger core. events and cache may be nil; the
// service then skips publishing and quote caching.
func NewLedgerService(r Repository, events event.Publisher, cache QuoteCache, gracePeriodDays int, logger *slog.Logger) LedgerService {
	if gracePeriodDays < 0 {
		gracePeriodDays = cadence.DefaultGracePeriodDays
	}
	return &ledgerServiceImpl{
		repo:            r,
		events:          events,
		cache:           cache,
		gracePeriodDays: gracePeriodDays,
		logger:          logger.With("component", "LedgerService"),
	}
}

func (s *ledgerServiceImpl) CreateSale(ctx context.Context, vehicleID, clientID int64, terms finance.LoanTerms, startDate time.Time) (*Sale, error) {
	s.logger.Info("Creating new sale", "vehicleID", vehicleID, "clientID", clientID)

	newSale, err := NewSale(vehicleID, clientID, terms, startDate)
	if err != nil {
		s.logger.Error("Failed to build sale from terms", "error", err)
		return nil, err
	}

	schedule := newSale.GenerateSchedule()

	created, err := s.repo.CreateSale(ctx, newSale, schedule)
	if err != nil {
		if errors.Is(err, apperrors.ErrConflict) || errors.Is(err, apperrors.ErrAlreadyExists) {
			s.logger.Warn("Vehicle is not available for sale", "vehicleID", vehicleID, "error", err)
			return nil, err
		}
		s.logger.Error("Failed to save sale and schedule", "error", err)
		return nil, fmt.Errorf("%w: failed to save sale and schedule: %v", apperrors.ErrInternalServer, err)
	}

	s.logger.Info("Sale created successfully", "saleID", created.ID, "totalPayments", created.TotalPayments)
	return created, nil
}

func (s *ledgerServiceImpl) GetSale(ctx context.Context, saleID int64) (*Sale, error) {
	s.logger.Info("Getting sale details", "saleID", saleID)
	sl, err := s.repo.GetSaleByID(ctx, saleID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || errors.Is(err, apperrors.ErrNotFound) {
			s.logger.Warn("Sale not found", "saleID", saleID)
			return nil, fmt.Errorf("%w: sale with ID %d not found", apperrors.ErrNotFound, saleID)
		}
		s.logger.Error("Failed to get sale", "saleID", saleID, "error", err)
		return nil, fmt.Errorf("%w: failed to get sale %d: %v", apperrors.ErrInternalServer, saleID, err)
	}

	schedule, err := s.repo.GetPaymentsBySaleID(ctx, saleID)
	if err != nil {
		s.logger.Error("Failed to get sale schedule", "saleID", saleID, "error", err)
		return nil, fmt.Errorf("%w: failed to get schedule for sale %d: %v", apperrors.ErrInternalServer, saleID, err)
	}

	sl.Schedule = schedule
	return sl, nil
}

func (s *ledgerServiceImpl) GetSchedule(ctx context.Context, saleID int64) ([]Payment, error) {
	s.logger.Info("Getting sale schedule", "saleID", saleID)
	schedule, err := s.repo.GetPaymentsBySaleID(ctx, saleID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || errors.Is(err, apperrors.ErrNotFound) {
			s.logger.Warn("Sale not found", "saleID", saleID)
			return nil, fmt.Errorf("%w: sale with ID %d not found when getting schedule", apperrors.ErrNotFound, saleID)
		}
		return nil, fmt.Errorf("%w: failed to get schedule for sale %d: %v", apperrors.ErrInternalServer, saleID, err)
	}
	if len(schedule) == 0 {
		if _, checkErr := s.repo.GetSaleByID(ctx, saleID); errors.Is(checkErr, pgx.ErrNoRows) || errors.Is(checkErr, apperrors.ErrNotFound) {
			s.logger.Warn("Sale not found", "saleID", saleID)
			return nil, fmt.Errorf("%w: sale with ID %d not found when getting schedule", apperrors.ErrNotFound, saleID)
		}
	}
	return schedule, nil
}

func (s *ledgerServiceImpl) DeleteSale(ctx context.Context, saleID int64) error {
	s.logger.Info("Deleting sale", "saleID", saleID)
	vehicleID, err := s.repo.DeleteSale(ctx, saleID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || errors.Is(err, apperrors.ErrNotFound) {
			s.logger.Warn("Sale not found", "saleID", saleID)
			return fmt.Errorf("%w: sale with ID %d not found", apperrors.ErrNotFound, saleID)
		}
		s.logger.Error("Failed to delete sale", "saleID", saleID, "error", err)
		return fmt.Errorf("%w: failed to delete sale %d: %v", apperrors.ErrInternalServer, saleID, err)
	}

	s.invalidateQuotes(ctx, saleID)
	s.publishVehicleReleased(ctx, saleID, vehicleID)

	s.logger.Info("Sale deleted, vehicle released", "saleID", saleID, "vehicleID", vehicleID)
	return nil
}

// RecordPayment confirms a pending payment as paid. The due date may be
// edited in the same confirmation; the next pending slot is then advanced
// from the edited date. The whole transition, including implicit completion,
// happens in one transaction.
func (s *ledgerServiceImpl) RecordPayment(ctx context.Context, saleID, paymentID int64, amount Money, paidDate time.Time, newDueDate *time.Time) (receipt *PaymentReceipt, err error) {
	s.logger.Info("Recording payment", "saleID", saleID, "paymentID", paymentID, "amount", amount)

	if amount <= 0 {
		monitoring.RecordPayment("failure_amount")
		return nil, apperrors.NewValidationError("amount", "must be positive")
	}
	if paidDate.IsZero() {
		paidDate = time.Now()
	}

	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		s.logger.Error("Failed to begin transaction", "error", err)
		return nil, fmt.Errorf("%w: could not begin transaction: %v", apperrors.ErrInternalServer, err)
	}

	defer func() {
		if p := recover(); p != nil {
			s.logger.Error("Panic occurred during payment recording", "saleID", saleID, "error", p)
			_ = s.repo.RollbackTx(ctx, tx)
			panic(p)
		} else if err != nil {
			monitoring.RecordPayment(paymentFailureStatus(err))
			s.logger.Error("Rolling back payment transaction", "saleID", saleID, "error", err)
			_ = s.repo.RollbackTx(ctx, tx)
		}
	}()

	// Lock the sale row first so concurrent writers on the same sale
	// serialize here instead of deadlocking on payment rows.
	lockedSale, err := s.repo.GetSaleForUpdate(ctx, tx, saleID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("%w: sale with ID %d not found", apperrors.ErrNotFound, saleID)
		}
		return nil, fmt.Errorf("%w: could not lock sale %d: %v", apperrors.ErrInternalServer, saleID, err)
	}
	if lockedSale.Status != StatusActive {
		return nil, fmt.Errorf("%w: sale %d has status %s", apperrors.ErrSaleNotActive, saleID, lockedSale.Status)
	}

	payment, err := s.repo.GetPaymentForUpdate(ctx, tx, saleID, paymentID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("%w: payment %d not found for sale %d", apperrors.ErrNotFound, paymentID, saleID)
		}
		return nil, fmt.Errorf("%w: could not lock payment %d: %v", apperrors.ErrInternalServer, paymentID, err)
	}
	if payment.Status != PaymentStatusPending {
		return nil, fmt.Errorf("%w: payment %d has status %s", apperrors.ErrPaymentNotPending, paymentID, payment.Status)
	}

	if newDueDate != nil && !cadence.SameDay(*newDueDate, payment.DueDate) {
		taken, checkErr := s.repo.PendingExistsAtInTx(ctx, tx, saleID, *newDueDate)
		if checkErr != nil {
			err = fmt.Errorf("%w: could not check due date availability: %v", apperrors.ErrInternalServer, checkErr)
			return nil, err
		}
		if taken {
			return nil, fmt.Errorf("%w: a pending payment already exists on %s", apperrors.ErrAlreadyExists, newDueDate.Format("2006-01-02"))
		}
		payment.DueDate = *newDueDate
	}

	payment.Status = PaymentStatusPaid
	payment.Amount = amount
	payment.PaidDate = &paidDate
	payment.UpdatedAt = time.Now()

	if err = s.repo.UpdatePaymentInTx(ctx, tx, payment); err != nil {
		return nil, fmt.Errorf("%w: could not update payment %d: %v", apperrors.ErrInternalServer, paymentID, err)
	}

	totalPaid, err := s.repo.SumPaidAmountInTx(ctx, tx, saleID)
	if err != nil {
		return nil, fmt.Errorf("%w: could not sum paid amounts for sale %d: %v", apperrors.ErrInternalServer, saleID, err)
	}

	completed := totalPaid >= lockedSale.SalePrice
	if completed {
		if err = s.repo.UpdateSaleStatusInTx(ctx, tx, saleID, StatusCompleted); err != nil {
			return nil, fmt.Errorf("%w: could not mark sale %d completed: %v", apperrors.ErrInternalServer, saleID, err)
		}
	}

	var nextPending *Payment
	if !completed {
		nextDue := cadence.Advance(payment.DueDate, lockedSale.Frequency)
		exists, checkErr := s.repo.PendingExistsAtInTx(ctx, tx, saleID, nextDue)
		if checkErr != nil {
			err = fmt.Errorf("%w: could not check next slot availability: %v", apperrors.ErrInternalServer, checkErr)
			return nil, err
		}
		if !exists {
			nextPending, err = s.repo.InsertPaymentInTx(ctx, tx, &Payment{
				SaleID:  saleID,
				Amount:  lockedSale.PaymentAmount,
				DueDate: nextDue,
				Status:  PaymentStatusPending,
			})
			if err != nil {
				return nil, fmt.Errorf("%w: could not create next pending payment: %v", apperrors.ErrInternalServer, err)
			}
		}
	}

	if err = s.repo.CommitTx(ctx, tx); err != nil {
		return nil, fmt.Errorf("%w: could not commit transaction: %v", apperrors.ErrInternalServer, err)
	}

	monitoring.RecordPayment("success")
	s.invalidateQuotes(ctx, saleID)
	if completed {
		monitoring.RecordSaleCompleted()
		s.publishSaleCompleted(ctx, saleID, totalPaid)
	}

	s.logger.Info("Payment recorded successfully",
		"saleID", saleID, "paymentID", paymentID, "totalPaid", totalPaid, "saleCompleted", completed)
	return &PaymentReceipt{
		UpdatedPayment: payment,
		NextPending:    nextPending,
		SaleCompleted:  completed,
	}, nil
}

// DeletePaidPayment removes a paid record and repairs the ledger: a pending
// slot is reinstated at the deleted payment's due date and every later
// pending payment is re-sequenced from it by cadence advance, so the
// schedule keeps its spacing with no gaps or duplicate due dates. If the
// deletion drops the total paid below the sale price, a completed sale
// reverts to active.
func (s *ledgerServiceImpl) DeletePaidPayment(ctx context.Context, saleID, paymentID int64) (result *CascadeResult, err error) {
	s.logger.Info("Deleting paid payment", "saleID", saleID, "paymentID", paymentID)

	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		s.logger.Error("Failed to begin transaction", "error", err)
		return nil, fmt.Errorf("%w: could not begin transaction: %v", apperrors.ErrInternalServer, err)
	}

	defer func() {
		if p := recover(); p != nil {
			s.logger.Error("Panic occurred during payment cascade", "saleID", saleID, "error", p)
			_ = s.repo.RollbackTx(ctx, tx)
			panic(p)
		} else if err != nil {
			monitoring.RecordCascade("failure")
			s.logger.Error("Rolling back cascade transaction", "saleID", saleID, "error", err)
			_ = s.repo.RollbackTx(ctx, tx)
		}
	}()

	lockedSale, err := s.repo.GetSaleForUpdate(ctx, tx, saleID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("%w: sale with ID %d not found", apperrors.ErrNotFound, saleID)
		}
		return nil, fmt.Errorf("%w: could not lock sale %d: %v", apperrors.ErrInternalServer, saleID, err)
	}

	payment, err := s.repo.GetPaymentForUpdate(ctx, tx, saleID, paymentID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("%w: payment %d not found for sale %d", apperrors.ErrNotFound, paymentID, saleID)
		}
		return nil, fmt.Errorf("%w: could not lock payment %d: %v", apperrors.ErrInternalServer, paymentID, err)
	}
	if payment.Status != PaymentStatusPaid {
		return nil, fmt.Errorf("%w: payment %d has status %s", apperrors.ErrPaymentNotPaid, paymentID, payment.Status)
	}
	deletedDue := payment.DueDate

	if err = s.repo.DeletePaymentInTx(ctx, tx, saleID, paymentID); err != nil {
		return nil, fmt.Errorf("%w: could not delete payment %d: %v", apperrors.ErrInternalServer, paymentID, err)
	}

	newTotalPaid, err := s.repo.SumPaidAmountInTx(ctx, tx, saleID)
	if err != nil {
		return nil, fmt.Errorf("%w: could not sum paid amounts for sale %d: %v", apperrors.ErrInternalServer, saleID, err)
	}

	reverted := false
	if lockedSale.Status == StatusCompleted && newTotalPaid < lockedSale.SalePrice {
		if err = s.repo.UpdateSaleStatusInTx(ctx, tx, saleID, StatusActive); err != nil {
			return nil, fmt.Errorf("%w: could not revert sale %d to active: %v", apperrors.ErrInternalServer, saleID, err)
		}
		reverted = true
	}

	// Re-sequence before reinstating so the remaining pending payments can
	// be walked in their pre-deletion order.
	pending, err := s.repo.GetPendingPaymentsForUpdate(ctx, tx, saleID)
	if err != nil {
		return nil, fmt.Errorf("%w: could not load pending payments for sale %d: %v", apperrors.ErrInternalServer, saleID, err)
	}

	targets := make([]time.Time, len(pending))
	due := cadence.Advance(deletedDue, lockedSale.Frequency)
	for i := range pending {
		targets[i] = due
		due = cadence.Advance(due, lockedSale.Frequency)
	}

	// The pending due-date unique index is checked per statement, so moves
	// toward later dates are applied back to front, each landing on a slot
	// its successor has already vacated. Moves toward earlier dates then go
	// front to back for the same reason. Target dates are strictly
	// increasing, so neither pass can collide with a row the other still
	// has to move.
	now := time.Now()
	for i := len(pending) - 1; i >= 0; i-- {
		if cadence.SameDay(pending[i].DueDate, targets[i]) || !targets[i].After(pending[i].DueDate) {
			continue
		}
		pending[i].DueDate = targets[i]
		pending[i].UpdatedAt = now
		if err = s.repo.UpdatePaymentInTx(ctx, tx, &pending[i]); err != nil {
			err = resequenceError(pending[i].ID, err)
			return nil, err
		}
	}
	for i := range pending {
		if cadence.SameDay(pending[i].DueDate, targets[i]) {
			continue
		}
		pending[i].DueDate = targets[i]
		pending[i].UpdatedAt = now
		if err = s.repo.UpdatePaymentInTx(ctx, tx, &pending[i]); err != nil {
			err = resequenceError(pending[i].ID, err)
			return nil, err
		}
	}
	resequenced := append([]Payment(nil), pending...)

	reinstated, err := s.repo.InsertPaymentInTx(ctx, tx, &Payment{
		SaleID:  saleID,
		Amount:  lockedSale.PaymentAmount,
		DueDate: deletedDue,
		Status:  PaymentStatusPending,
	})
	if err != nil {
		if errors.Is(err, apperrors.ErrAlreadyExists) {
			err = fmt.Errorf("%w: pending slot already occupies the deleted due date %s", apperrors.ErrInconsistentLedger, deletedDue.Format("2006-01-02"))
			return nil, err
		}
		return nil, fmt.Errorf("%w: could not reinstate pending payment: %v", apperrors.ErrInternalServer, err)
	}

	if err = s.repo.CommitTx(ctx, tx); err != nil {
		return nil, fmt.Errorf("%w: could not commit transaction: %v", apperrors.ErrInternalServer, err)
	}

	monitoring.RecordCascade("success")
	s.invalidateQuotes(ctx, saleID)
	if reverted {
		s.publishSaleReverted(ctx, saleID, newTotalPaid)
	}

	s.logger.Info("Paid payment deleted and schedule repaired",
		"saleID", saleID, "paymentID", paymentID,
		"resequenced", len(resequenced), "saleStatusReverted", reverted)
	return &CascadeResult{
		ReinstatedPayment:          reinstated,
		ResequencedPendingPayments: resequenced,
		SaleStatusReverted:         reverted,
	}, nil
}

// QuoteEarlyPayoff reconstructs the current balance and quotes settling the
// sale now. Quotes are pure functions of the sale terms and total paid, so
// they are served from cache when the ledger has not moved.
func (s *ledgerServiceImpl) QuoteEarlyPayoff(ctx context.Context, saleID int64) (*finance.PayoffQuote, error) {
	s.logger.Info("Quoting early payoff", "saleID", saleID)

	sl, err := s.GetSale(ctx, saleID)
	if err != nil {
		return nil, err
	}

	totalPaid := TotalPaid(sl.Schedule)

	if s.cache != nil {
		cached, cacheErr := s.cache.GetQuote(ctx, saleID, totalPaid)
		if cacheErr != nil {
			s.logger.Warn("Quote cache lookup failed", "saleID", saleID, "error", cacheErr)
		} else if cached != nil {
			monitoring.RecordPayoffQuote("cache")
			return cached, nil
		}
	}

	balance := finance.RemainingBalance(sl.FinancedAmount, sl.InterestRate, sl.PaymentAmount, sl.Frequency, totalPaid)
	quote := finance.EarlyPayoff(balance.RemainingAmount, sl.FinancedAmount, sl.TotalInterest(), balance.RemainingPayments, sl.TotalPayments)

	if s.cache != nil {
		if cacheErr := s.cache.SetQuote(ctx, saleID, totalPaid, quote); cacheErr != nil {
			s.logger.Warn("Failed to cache payoff quote", "saleID", saleID, "error", cacheErr)
		}
	}

	monitoring.RecordPayoffQuote("computed")
	return &quote, nil
}

// ClassifySchedule returns the derived overdue/due-today/upcoming view of a
// sale's pending payments as of the supplied time.
func (s *ledgerServiceImpl) ClassifySchedule(ctx context.Context, saleID int64, asOf time.Time) (*Classification, error) {
	s.logger.Info("Classifying schedule", "saleID", saleID, "asOf", asOf)

	schedule, err := s.GetSchedule(ctx, saleID)
	if err != nil {
		return nil, err
	}
	if asOf.IsZero() {
		asOf = time.Now()
	}

	c := Classify(schedule, s.gracePeriodDays, asOf)
	return &c, nil
}

func (s *ledgerServiceImpl) invalidateQuotes(ctx context.Context, saleID int64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateQuotes(ctx, saleID); err != nil {
		s.logger.Warn("Failed to invalidate payoff quotes", "saleID", saleID, "error", err)
	}
}

func (s *ledgerServiceImpl) publishSaleCompleted(ctx context.Context, saleID int64, totalPaid Money) {
	if s.events == nil {
		return
	}
	evt := event.SaleCompletedEvent{SaleID: saleID, TotalPaid: totalPaid, Timestamp: time.Now()}
	if err := s.events.PublishSaleCompleted(ctx, evt); err != nil {
		s.logger.Warn("Failed to publish sale completed event", "saleID", saleID, "error", err)
	}
}

func (s *ledgerServiceImpl) publishSaleReverted(ctx context.Context, saleID int64, newTotalPaid Money) {
	if s.events == nil {
		return
	}
	evt := event.SaleRevertedEvent{SaleID: saleID, NewTotalPaid: newTotalPaid, Timestamp: time.Now()}
	if err := s.events.PublishSaleReverted(ctx, evt); err != nil {
		s.logger.Warn("Failed to publish sale reverted event", "saleID", saleID, "error", err)
	}
}

func (s *ledgerServiceImpl) publishVehicleReleased(ctx context.Context, saleID, vehicleID int64) {
	if s.events == nil {
		return
	}
	evt := event.VehicleReleasedEvent{SaleID: saleID, VehicleID: vehicleID, Timestamp: time.Now()}
	if err := s.events.PublishVehicleReleased(ctx, evt); err != nil {
		s.logger.Warn("Failed to publish vehicle released event", "saleID", saleID, "error", err)
	}
}

// resequenceError classifies a failed re-sequencing move. A duplicate due
// date here means the pending schedule itself is corrupt, since the move
// order rules out transient collisions.
func resequenceError(paymentID int64, err error) error {
	if errors.Is(err, apperrors.ErrAlreadyExists) {
		return fmt.Errorf("%w: re-sequencing payment %d hit an occupied due date", apperrors.ErrInconsistentLedger, paymentID)
	}
	return fmt.Errorf("%w: could not re-sequence payment %d: %v", apperrors.ErrInternalServer, paymentID, err)
}

func paymentFailureStatus(err error) string {
	switch {
	case errors.Is(err, apperrors.ErrPaymentNotPending):
		return "failure_not_pending"
	case errors.Is(err, apperrors.ErrSaleNotActive):
		return "failure_sale_not_active"
	case errors.Is(err, apperrors.ErrAlreadyExists):
		return "failure_duplicate_due_date"
	case errors.Is(err, apperrors.ErrNotFound):
		return "failure_not_found"
	case errors.Is(err, apperrors.ErrConflict):
		return "failure_conflict"
	default:
		return "failure_internal"
	}
}
