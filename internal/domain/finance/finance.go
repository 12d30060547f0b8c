// Package finance holds the pure loan arithmetic: the annuity payment
// calculation, the balance reconstruction replay, and the early payoff quote.
// All functions are synchronous, deterministic and side-effect free.
package finance

import (
	"math"

	"bhph-engine/internal/domain/cadence"
	"bhph-engine/internal/pkg/apperrors"

	"github.com/shopspring/decimal"
)

type Money = float64

// LoanTerms are the caller-supplied inputs of a financed sale.
type LoanTerms struct {
	VehiclePrice Money
	DownPayment  Money
	InterestRate Money // annual rate, percent
	TermYears    int
	Frequency    cadence.Frequency
}

func (t LoanTerms) Validate() error {
	if t.VehiclePrice < 0 {
		return apperrors.NewValidationError("vehiclePrice", "must not be negative")
	}
	if t.DownPayment < 0 {
		return apperrors.NewValidationError("downPayment", "must not be negative")
	}
	if t.InterestRate < 0 || t.InterestRate > 100 {
		return apperrors.NewValidationError("interestRate", "must be between 0 and 100")
	}
	if t.TermYears <= 0 {
		return apperrors.NewValidationError("termYears", "must be positive")
	}
	if !t.Frequency.Valid() {
		return apperrors.NewValidationError("paymentFrequency", "must be weekly, biweekly or monthly")
	}
	return nil
}

// LoanDetails is the amortization result for a set of loan terms.
type LoanDetails struct {
	PaymentAmount  Money
	TotalPayments  int
	TotalInterest  Money
	FinancedAmount Money
}

// CalculateLoan computes the periodic payment from the financed amount using
// the standard annuity formula. A loan fully covered by the down payment
// yields a zero payment and zero interest rather than dividing by zero.
func CalculateLoan(terms LoanTerms) (LoanDetails, error) {
	if err := terms.Validate(); err != nil {
		return LoanDetails{}, err
	}

	financed := terms.VehiclePrice - terms.DownPayment
	perYear := cadence.PeriodsPerYear(terms.Frequency)
	n := perYear * terms.TermYears

	if financed <= 0 {
		return LoanDetails{TotalPayments: n, FinancedAmount: financed}, nil
	}

	rate := (terms.InterestRate / 100) / float64(perYear)

	var payment float64
	if rate == 0 {
		payment = financed / float64(n)
	} else {
		pow := math.Pow(1+rate, float64(n))
		payment = financed * rate * pow / (pow - 1)
	}

	return LoanDetails{
		PaymentAmount:  roundMoney(payment),
		TotalPayments:  n,
		TotalInterest:  roundMoney(payment*float64(n) - financed),
		FinancedAmount: financed,
	}, nil
}

// Balance is the reconstructed position of a loan after some amount has been
// applied against it.
type Balance struct {
	RemainingAmount   Money
	RemainingPayments int
}

// RemainingBalance replays the amortization period by period to derive the
// current principal from the original terms and the total amount paid so far.
// No persisted field tracks the balance; it is always reconstructed here so
// that edits to the payment history never need a reconciliation step.
//
// Each full payment consumed from totalPaid covers that period's interest
// first and retires principal with the remainder. A trailing partial payment
// is applied the same way, except that one too small to cover the period's
// interest leaves the principal untouched. The remaining payment count then
// comes from the inverse annuity formula, clamped to zero.
func RemainingBalance(financedAmount, annualRatePct, paymentAmount Money, freq cadence.Frequency, totalPaid Money) Balance {
	rate := (annualRatePct / 100) / float64(cadence.PeriodsPerYear(freq))

	remaining := financedAmount
	paid := totalPaid

	if paymentAmount > 0 {
		for paid >= paymentAmount && remaining > 0 {
			interestPortion := remaining * rate
			remaining -= paymentAmount - interestPortion
			paid -= paymentAmount
		}
		if paid > 0 && remaining > 0 {
			// A trailing partial smaller than one period's interest retires
			// no principal; it must never push the balance back up.
			interestPortion := remaining * rate
			if portion := paid - interestPortion; portion > 0 {
				remaining -= portion
			}
		}
	}

	count := 0
	if remaining > 0 && paymentAmount > 0 {
		switch {
		case rate == 0:
			count = int(math.Ceil(remaining / paymentAmount))
		case paymentAmount > remaining*rate:
			count = int(math.Ceil(
				math.Log(paymentAmount/(paymentAmount-remaining*rate)) / math.Log(1+rate),
			))
		default:
			// The payment does not cover one period's interest. Schedules
			// produced by CalculateLoan never get here; fall back to a flat
			// division so the function stays total.
			count = int(math.Ceil(remaining / paymentAmount))
		}
	}
	if count < 0 {
		count = 0
	}

	return Balance{
		RemainingAmount:   math.Max(0, roundMoney(remaining)),
		RemainingPayments: count,
	}
}

// PayoffQuote is the settlement offer for closing a loan early.
type PayoffQuote struct {
	PayoffAmount  Money `json:"payoffAmount"`
	TotalSavings  Money `json:"totalSavings"`
	InterestSaved Money `json:"interestSaved"`
}

// EarlyPayoff quotes settling the loan now: remaining principal plus the
// interest earned to date, with the unearned tail waived. Interest is split
// by remaining-term ratio, a linear approximation of the amortization curve
// rather than a recomputation of true remaining interest; intentional, keep
// in sync with the business side before changing it.
func EarlyPayoff(remainingPrincipal, financedAmount, totalInterest Money, remainingPayments, totalPayments int) PayoffQuote {
	if totalPayments <= 0 {
		return PayoffQuote{}
	}

	remainingTermRatio := float64(remainingPayments) / float64(totalPayments)
	remainingInterest := totalInterest * remainingTermRatio
	earnedInterest := totalInterest - remainingInterest

	payoffAmount := math.Round(remainingPrincipal + earnedInterest)

	fullSchedule := financedAmount + totalInterest
	withEarlyPayoff := (financedAmount - remainingPrincipal) + payoffAmount

	return PayoffQuote{
		PayoffAmount:  payoffAmount,
		TotalSavings:  math.Round(fullSchedule - withEarlyPayoff),
		InterestSaved: math.Round(remainingInterest),
	}
}

// roundMoney rounds to cents, half away from zero.
func roundMoney(v float64) float64 {
	f, _ := decimal.NewFromFloat(v).Round(2).Float64()
	return f
}
