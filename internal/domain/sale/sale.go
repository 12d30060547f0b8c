// Package sale owns the financed-sale ledger: the Sale and Payment entities,
// schedule materialization, the derived due-date classification, and the
// LedgerService that drives every payment lifecycle transition.
package sale

import (
	"time"

	"bhph-engine/internal/domain/cadence"
	"bhph-engine/internal/domain/finance"
	"bhph-engine/internal/pkg/apperrors"
)

type Money = finance.Money

type Status string

const (
	StatusActive    Status = "ACTIVE"
	StatusCompleted Status = "COMPLETED"
	StatusDefaulted Status = "DEFAULTED"
	StatusCancelled Status = "CANCELLED"
)

type PaymentStatus string

// Overdue is intentionally absent: it is a derived view computed by Classify
// at read time, never a stored payment state.
const (
	PaymentStatusPending PaymentStatus = "PENDING"
	PaymentStatusPaid    PaymentStatus = "PAID"
)

// Sale is one financed transaction. Vehicle and client are opaque references
// owned by the surrounding CRUD layer; this core only moves the vehicle's
// status as part of its atomic writes.
type Sale struct {
	ID               int64
	VehicleID        int64
	ClientID         int64
	SalePrice        Money
	DownPayment      Money
	FinancedAmount   Money
	InterestRate     Money // annual, percent
	TermYears        int
	Frequency        cadence.Frequency
	PaymentAmount    Money
	TotalPayments    int
	StartDate        time.Time
	FirstPaymentDate time.Time
	Status           Status
	CreatedAt        time.Time
	UpdatedAt        time.Time
	Schedule         []Payment
}

// Payment is one scheduled or completed installment. PaidDate is set iff the
// payment is PAID.
type Payment struct {
	ID        int64
	SaleID    int64
	Amount    Money
	DueDate   time.Time
	Status    PaymentStatus
	PaidDate  *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewSale validates the loan terms and derives the financed amount, periodic
// payment, payment count and first due date. Status transitions after this
// point belong to the LedgerService (completion, reversion) or the external
// cancellation workflow.
func NewSale(vehicleID, clientID int64, terms finance.LoanTerms, startDate time.Time) (*Sale, error) {
	if startDate.IsZero() {
		return nil, apperrors.NewValidationError("startDate", "is required")
	}

	details, err := finance.CalculateLoan(terms)
	if err != nil {
		return nil, err
	}

	return &Sale{
		VehicleID:        vehicleID,
		ClientID:         clientID,
		SalePrice:        terms.VehiclePrice,
		DownPayment:      terms.DownPayment,
		FinancedAmount:   details.FinancedAmount,
		InterestRate:     terms.InterestRate,
		TermYears:        terms.TermYears,
		Frequency:        terms.Frequency,
		PaymentAmount:    details.PaymentAmount,
		TotalPayments:    details.TotalPayments,
		StartDate:        startDate,
		FirstPaymentDate: cadence.FirstPaymentDate(startDate, terms.Frequency),
		Status:           StatusActive,
	}, nil
}

// GenerateSchedule materializes the full pending schedule: TotalPayments
// entries, the first due one cadence interval after the start date, each
// subsequent one advanced from its predecessor. The caller persists it
// atomically alongside the sale and the vehicle's transition to sold.
func (s *Sale) GenerateSchedule() []Payment {
	schedule := make([]Payment, 0, s.TotalPayments)
	due := cadence.FirstPaymentDate(s.StartDate, s.Frequency)
	for i := 0; i < s.TotalPayments; i++ {
		schedule = append(schedule, Payment{
			SaleID:  s.ID,
			Amount:  s.PaymentAmount,
			DueDate: due,
			Status:  PaymentStatusPending,
		})
		due = cadence.Advance(due, s.Frequency)
	}
	return schedule
}

// TotalInterest is the interest carried by the full original schedule.
func (s *Sale) TotalInterest() Money {
	return s.PaymentAmount*float64(s.TotalPayments) - s.FinancedAmount
}

// TotalPaid sums the amounts of all paid payments.
func TotalPaid(payments []Payment) Money {
	var total Money
	for _, p := range payments {
		if p.Status == PaymentStatusPaid {
			total += p.Amount
		}
	}
	return total
}

// Classification buckets pending payments by urgency. The buckets partition
// the pending set: a payment past due but still inside the grace period
// counts as upcoming, not overdue.
type Classification struct {
	Overdue  []Payment
	DueToday []Payment
	Upcoming []Payment
}

// Classify derives the overdue/due-today/upcoming view of a schedule against
// the supplied clock. Paid payments are ignored. Nothing here is persisted.
func Classify(payments []Payment, gracePeriodDays int, now time.Time) Classification {
	var c Classification
	for _, p := range payments {
		if p.Status != PaymentStatusPending {
			continue
		}
		switch {
		case cadence.IsOverdue(p.DueDate, gracePeriodDays, now):
			c.Overdue = append(c.Overdue, p)
		case cadence.SameDay(p.DueDate, now):
			c.DueToday = append(c.DueToday, p)
		default:
			c.Upcoming = append(c.Upcoming, p)
		}
	}
	return c
}
