package sale

import (
	"testing"
	"time"

	"bhph-engine/internal/domain/cadence"
	"bhph-engine/internal/domain/finance"
	"bhph-engine/internal/pkg/apperrors"

	"github.com/stretchr/testify/assert"
)

func weeklyTerms() finance.LoanTerms {
	return finance.LoanTerms{
		VehiclePrice: 12000,
		DownPayment:  1500,
		InterestRate: 8,
		TermYears:    2,
		Frequency:    cadence.Weekly,
	}
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestNewSale(t *testing.T) {
	t.Run("derives financing fields from terms", func(t *testing.T) {
		start := date(2024, time.January, 1)
		s, err := NewSale(10, 20, weeklyTerms(), start)
		assert.NoError(t, err)

		assert.Equal(t, int64(10), s.VehicleID)
		assert.Equal(t, int64(20), s.ClientID)
		assert.Equal(t, 10500.0, s.FinancedAmount)
		assert.Equal(t, 104, s.TotalPayments)
		assert.Equal(t, StatusActive, s.Status)
		assert.Equal(t, date(2024, time.January, 8), s.FirstPaymentDate)
		assert.Greater(t, s.PaymentAmount, 0.0)
	})

	t.Run("rejects zero start date", func(t *testing.T) {
		_, err := NewSale(10, 20, weeklyTerms(), time.Time{})
		assert.ErrorIs(t, err, apperrors.ErrValidation)
	})

	t.Run("rejects invalid terms", func(t *testing.T) {
		terms := weeklyTerms()
		terms.TermYears = 0
		_, err := NewSale(10, 20, terms, date(2024, time.January, 1))
		assert.ErrorIs(t, err, apperrors.ErrValidation)
	})
}

func TestGenerateSchedule(t *testing.T) {
	start := date(2024, time.January, 1)
	s, err := NewSale(10, 20, weeklyTerms(), start)
	assert.NoError(t, err)
	s.ID = 5

	schedule := s.GenerateSchedule()

	assert.Len(t, schedule, s.TotalPayments)
	assert.Equal(t, date(2024, time.January, 8), schedule[0].DueDate)

	for i, p := range schedule {
		assert.Equal(t, int64(5), p.SaleID)
		assert.Equal(t, s.PaymentAmount, p.Amount)
		assert.Equal(t, PaymentStatusPending, p.Status)
		if i > 0 {
			assert.Equal(t, cadence.Advance(schedule[i-1].DueDate, cadence.Weekly), p.DueDate)
		}
	}
}

func TestTotalPaid(t *testing.T) {
	payments := []Payment{
		{Amount: 100, Status: PaymentStatusPaid},
		{Amount: 100, Status: PaymentStatusPending},
		{Amount: 250, Status: PaymentStatusPaid},
	}
	assert.Equal(t, 350.0, TotalPaid(payments))
	assert.Equal(t, 0.0, TotalPaid(nil))
}

func TestClassify(t *testing.T) {
	now := date(2024, time.June, 15)
	payments := []Payment{
		{ID: 1, DueDate: date(2024, time.June, 1), Status: PaymentStatusPaid},
		{ID: 2, DueDate: date(2024, time.June, 8), Status: PaymentStatusPending},
		{ID: 3, DueDate: date(2024, time.June, 13), Status: PaymentStatusPending},
		{ID: 4, DueDate: date(2024, time.June, 15), Status: PaymentStatusPending},
		{ID: 5, DueDate: date(2024, time.June, 22), Status: PaymentStatusPending},
	}

	c := Classify(payments, cadence.DefaultGracePeriodDays, now)

	// due June 8 is past its 3 day grace; June 13 is late but inside it
	assert.Len(t, c.Overdue, 1)
	assert.Equal(t, int64(2), c.Overdue[0].ID)

	assert.Len(t, c.DueToday, 1)
	assert.Equal(t, int64(4), c.DueToday[0].ID)

	assert.Len(t, c.Upcoming, 2)
	assert.Equal(t, int64(3), c.Upcoming[0].ID)
	assert.Equal(t, int64(5), c.Upcoming[1].ID)
}

func TestClassifyIgnoresPaid(t *testing.T) {
	now := date(2024, time.June, 15)
	paidLongAgo := []Payment{{DueDate: date(2024, time.January, 1), Status: PaymentStatusPaid}}

	c := Classify(paidLongAgo, cadence.DefaultGracePeriodDays, now)
	assert.Empty(t, c.Overdue)
	assert.Empty(t, c.DueToday)
	assert.Empty(t, c.Upcoming)
}
