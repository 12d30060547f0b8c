package dto

import (
	"fmt"
	"strconv"
	"time"

	"bhph-engine/internal/domain/cadence"
	"bhph-engine/internal/domain/finance"
	"bhph-engine/internal/domain/sale"

	"github.com/shopspring/decimal"
)

const dateLayout = time.DateOnly

type CreateSaleRequest struct {
	VehicleID        int64   `json:"vehicleId"`
	ClientID         int64   `json:"clientId"`
	VehiclePrice     float64 `json:"vehiclePrice"`
	DownPayment      float64 `json:"downPayment"`
	InterestRate     float64 `json:"interestRate"`
	TermYears        int     `json:"termYears"`
	PaymentFrequency string  `json:"paymentFrequency"`
	StartDate        string  `json:"startDate"`
}

func (r *CreateSaleRequest) Validate() error {
	if r.VehicleID <= 0 {
		return fmt.Errorf("vehicleId must be positive")
	}
	if r.ClientID <= 0 {
		return fmt.Errorf("clientId must be positive")
	}
	if r.VehiclePrice <= 0 {
		return fmt.Errorf("vehiclePrice must be greater than zero")
	}
	if !cadence.Frequency(r.PaymentFrequency).Valid() {
		return fmt.Errorf("paymentFrequency must be weekly, biweekly or monthly")
	}
	if _, err := time.Parse(dateLayout, r.StartDate); err != nil || r.StartDate == "" {
		return fmt.Errorf("invalid startDate format (use YYYY-MM-DD): %w", err)
	}
	return nil
}

func (r *CreateSaleRequest) Terms() finance.LoanTerms {
	return finance.LoanTerms{
		VehiclePrice: r.VehiclePrice,
		DownPayment:  r.DownPayment,
		InterestRate: r.InterestRate,
		TermYears:    r.TermYears,
		Frequency:    cadence.Frequency(r.PaymentFrequency),
	}
}

type RecordPaymentRequest struct {
	Amount     string `json:"amount"`
	PaidDate   string `json:"paidDate,omitempty"`
	NewDueDate string `json:"newDueDate,omitempty"`
}

func (r *RecordPaymentRequest) Validate() error {
	if _, err := decimal.NewFromString(r.Amount); err != nil || r.Amount == "" {
		return fmt.Errorf("invalid payment amount: %w", err)
	}
	if r.PaidDate != "" {
		if _, err := time.Parse(dateLayout, r.PaidDate); err != nil {
			return fmt.Errorf("invalid paidDate format (use YYYY-MM-DD): %w", err)
		}
	}
	if r.NewDueDate != "" {
		if _, err := time.Parse(dateLayout, r.NewDueDate); err != nil {
			return fmt.Errorf("invalid newDueDate format (use YYYY-MM-DD): %w", err)
		}
	}
	return nil
}

type SaleResponse struct {
	ID               string            `json:"id"`
	VehicleID        string            `json:"vehicleId"`
	ClientID         string            `json:"clientId"`
	SalePrice        string            `json:"salePrice"`
	DownPayment      string            `json:"downPayment"`
	FinancedAmount   string            `json:"financedAmount"`
	InterestRate     string            `json:"interestRate"`
	TermYears        int               `json:"termYears"`
	PaymentFrequency string            `json:"paymentFrequency"`
	PaymentAmount    string            `json:"paymentAmount"`
	TotalPayments    int               `json:"totalPayments"`
	StartDate        string            `json:"startDate"`
	FirstPaymentDate string            `json:"firstPaymentDate"`
	Status           string            `json:"status"`
	CreatedAt        time.Time         `json:"createdAt"`
	UpdatedAt        time.Time         `json:"updatedAt"`
	Schedule         []PaymentResponse `json:"schedule,omitempty"`
}

type PaymentResponse struct {
	ID       string     `json:"id"`
	SaleID   string     `json:"saleId"`
	Amount   string     `json:"amount"`
	DueDate  string     `json:"dueDate"`
	Status   string     `json:"status"`
	PaidDate *time.Time `json:"paidDate,omitempty"`
}

type PaymentReceiptResponse struct {
	UpdatedPayment PaymentResponse  `json:"updatedPayment"`
	NextPending    *PaymentResponse `json:"nextPendingPayment,omitempty"`
	SaleCompleted  bool             `json:"saleCompleted"`
}

type CascadeResponse struct {
	ReinstatedPayment          PaymentResponse   `json:"reinstatedPayment"`
	ResequencedPendingPayments []PaymentResponse `json:"resequencedPendingPayments"`
	SaleStatusReverted         bool              `json:"saleStatusReverted"`
}

type PayoffQuoteResponse struct {
	SaleID        string `json:"saleId"`
	PayoffAmount  string `json:"payoffAmount"`
	TotalSavings  string `json:"totalSavings"`
	InterestSaved string `json:"interestSaved"`
}

type ClassificationResponse struct {
	SaleID   string            `json:"saleId"`
	AsOf     string            `json:"asOf"`
	Overdue  []PaymentResponse `json:"overdue"`
	DueToday []PaymentResponse `json:"dueToday"`
	Upcoming []PaymentResponse `json:"upcoming"`
}

type ErrorDetail struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

type TokenRequest struct {
	Username string `json:"username"`
}

func formatMoney(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2)
}

func NewSaleResponse(s *sale.Sale, includeSchedule bool) SaleResponse {
	resp := SaleResponse{
		ID:               strconv.FormatInt(s.ID, 10),
		VehicleID:        strconv.FormatInt(s.VehicleID, 10),
		ClientID:         strconv.FormatInt(s.ClientID, 10),
		SalePrice:        formatMoney(s.SalePrice),
		DownPayment:      formatMoney(s.DownPayment),
		FinancedAmount:   formatMoney(s.FinancedAmount),
		InterestRate:     decimal.NewFromFloat(s.InterestRate).String(),
		TermYears:        s.TermYears,
		PaymentFrequency: string(s.Frequency),
		PaymentAmount:    formatMoney(s.PaymentAmount),
		TotalPayments:    s.TotalPayments,
		StartDate:        s.StartDate.Format(dateLayout),
		FirstPaymentDate: s.FirstPaymentDate.Format(dateLayout),
		Status:           string(s.Status),
		CreatedAt:        s.CreatedAt,
		UpdatedAt:        s.UpdatedAt,
	}

	if includeSchedule && s.Schedule != nil {
		resp.Schedule = NewPaymentResponses(s.Schedule)
	}

	return resp
}

func NewPaymentResponse(p *sale.Payment) PaymentResponse {
	return PaymentResponse{
		ID:       strconv.FormatInt(p.ID, 10),
		SaleID:   strconv.FormatInt(p.SaleID, 10),
		Amount:   formatMoney(p.Amount),
		DueDate:  p.DueDate.Format(dateLayout),
		Status:   string(p.Status),
		PaidDate: p.PaidDate,
	}
}

func NewPaymentResponses(payments []sale.Payment) []PaymentResponse {
	resp := make([]PaymentResponse, len(payments))
	for i := range payments {
		resp[i] = NewPaymentResponse(&payments[i])
	}
	return resp
}

func NewPaymentReceiptResponse(receipt *sale.PaymentReceipt) PaymentReceiptResponse {
	resp := PaymentReceiptResponse{
		UpdatedPayment: NewPaymentResponse(receipt.UpdatedPayment),
		SaleCompleted:  receipt.SaleCompleted,
	}
	if receipt.NextPending != nil {
		next := NewPaymentResponse(receipt.NextPending)
		resp.NextPending = &next
	}
	return resp
}

func NewCascadeResponse(result *sale.CascadeResult) CascadeResponse {
	return CascadeResponse{
		ReinstatedPayment:          NewPaymentResponse(result.ReinstatedPayment),
		ResequencedPendingPayments: NewPaymentResponses(result.ResequencedPendingPayments),
		SaleStatusReverted:         result.SaleStatusReverted,
	}
}

func NewPayoffQuoteResponse(saleID int64, quote *finance.PayoffQuote) PayoffQuoteResponse {
	return PayoffQuoteResponse{
		SaleID:        strconv.FormatInt(saleID, 10),
		PayoffAmount:  formatMoney(quote.PayoffAmount),
		TotalSavings:  formatMoney(quote.TotalSavings),
		InterestSaved: formatMoney(quote.InterestSaved),
	}
}

func NewClassificationResponse(saleID int64, asOf time.Time, c *sale.Classification) ClassificationResponse {
	return ClassificationResponse{
		SaleID:   strconv.FormatInt(saleID, 10),
		AsOf:     asOf.Format(dateLayout),
		Overdue:  NewPaymentResponses(c.Overdue),
		DueToday: NewPaymentResponses(c.DueToday),
		Upcoming: NewPaymentResponses(c.Upcoming),
	}
}
