package cadence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestPeriodsPerYear(t *testing.T) {
	assert.Equal(t, 52, PeriodsPerYear(Weekly))
	assert.Equal(t, 26, PeriodsPerYear(Biweekly))
	assert.Equal(t, 12, PeriodsPerYear(Monthly))
}

func TestAdvance(t *testing.T) {
	t.Run("weekly adds seven calendar days", func(t *testing.T) {
		assert.Equal(t, date(2024, time.January, 8), Advance(date(2024, time.January, 1), Weekly))
	})

	t.Run("biweekly adds fourteen calendar days", func(t *testing.T) {
		assert.Equal(t, date(2024, time.February, 5), Advance(date(2024, time.January, 22), Biweekly))
	})

	t.Run("monthly preserves day of month", func(t *testing.T) {
		assert.Equal(t, date(2024, time.February, 15), Advance(date(2024, time.January, 15), Monthly))
	})

	t.Run("monthly clamps to last day of shorter month", func(t *testing.T) {
		// naive AddDate would roll Jan 31 over to Mar 2
		assert.Equal(t, date(2024, time.February, 29), Advance(date(2024, time.January, 31), Monthly))
		assert.Equal(t, date(2023, time.February, 28), Advance(date(2023, time.January, 31), Monthly))
		assert.Equal(t, date(2024, time.April, 30), Advance(date(2024, time.March, 31), Monthly))
	})

	t.Run("monthly crosses year boundary", func(t *testing.T) {
		assert.Equal(t, date(2025, time.January, 31), Advance(date(2024, time.December, 31), Monthly))
	})
}

func TestFirstPaymentDate(t *testing.T) {
	assert.Equal(t, date(2024, time.January, 8), FirstPaymentDate(date(2024, time.January, 1), Weekly))
	assert.Equal(t, date(2024, time.February, 1), FirstPaymentDate(date(2024, time.January, 1), Monthly))
}

func TestIsOverdue(t *testing.T) {
	due := date(2024, time.March, 1)

	t.Run("within grace period is not overdue", func(t *testing.T) {
		assert.False(t, IsOverdue(due, DefaultGracePeriodDays, date(2024, time.March, 3)))
		assert.False(t, IsOverdue(due, DefaultGracePeriodDays, date(2024, time.March, 4)))
	})

	t.Run("past grace period is overdue", func(t *testing.T) {
		assert.True(t, IsOverdue(due, DefaultGracePeriodDays, date(2024, time.March, 5)))
	})

	t.Run("before due date is not overdue", func(t *testing.T) {
		assert.False(t, IsOverdue(due, DefaultGracePeriodDays, date(2024, time.February, 20)))
	})
}

func TestFrequencyValid(t *testing.T) {
	assert.True(t, Weekly.Valid())
	assert.True(t, Biweekly.Valid())
	assert.True(t, Monthly.Valid())
	assert.False(t, Frequency("quarterly").Valid())
	assert.False(t, Frequency("").Valid())
}
