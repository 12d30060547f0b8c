package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"bhph-engine/internal/api/handler/dto"
	"bhph-engine/internal/domain/cadence"
	"bhph-engine/internal/domain/finance"
	"bhph-engine/internal/domain/sale"
	"bhph-engine/internal/pkg/apperrors"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockLedgerService struct {
	mock.Mock
}

func (m *MockLedgerService) CreateSale(ctx context.Context, vehicleID, clientID int64, terms finance.LoanTerms, startDate time.Time) (*sale.Sale, error) {
	args := m.Called(ctx, vehicleID, clientID, terms, startDate)
	if s, ok := args.Get(0).(*sale.Sale); ok {
		return s, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockLedgerService) GetSale(ctx context.Context, saleID int64) (*sale.Sale, error) {
	args := m.Called(ctx, saleID)
	if s, ok := args.Get(0).(*sale.Sale); ok {
		return s, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockLedgerService) GetSchedule(ctx context.Context, saleID int64) ([]sale.Payment, error) {
	args := m.Called(ctx, saleID)
	if payments, ok := args.Get(0).([]sale.Payment); ok {
		return payments, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockLedgerService) DeleteSale(ctx context.Context, saleID int64) error {
	return m.Called(ctx, saleID).Error(0)
}

func (m *MockLedgerService) RecordPayment(ctx context.Context, saleID, paymentID int64, amount sale.Money, paidDate time.Time, newDueDate *time.Time) (*sale.PaymentReceipt, error) {
	args := m.Called(ctx, saleID, paymentID, amount, paidDate, newDueDate)
	if receipt, ok := args.Get(0).(*sale.PaymentReceipt); ok {
		return receipt, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockLedgerService) DeletePaidPayment(ctx context.Context, saleID, paymentID int64) (*sale.CascadeResult, error) {
	args := m.Called(ctx, saleID, paymentID)
	if result, ok := args.Get(0).(*sale.CascadeResult); ok {
		return result, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockLedgerService) QuoteEarlyPayoff(ctx context.Context, saleID int64) (*finance.PayoffQuote, error) {
	args := m.Called(ctx, saleID)
	if quote, ok := args.Get(0).(*finance.PayoffQuote); ok {
		return quote, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockLedgerService) ClassifySchedule(ctx context.Context, saleID int64, asOf time.Time) (*sale.Classification, error) {
	args := m.Called(ctx, saleID, asOf)
	if c, ok := args.Get(0).(*sale.Classification); ok {
		return c, args.Error(1)
	}
	return nil, args.Error(1)
}

func newTestSaleHandler() (*MockLedgerService, *SaleHandler) {
	mockService := new(MockLedgerService)
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	return mockService, NewSaleHandler(mockService, logger)
}

func newChiRequest(method, target string, body []byte, params map[string]string) *http.Request {
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, target, bytes.NewReader(body))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rctx := chi.NewRouteContext()
	for k, v := range params {
		rctx.URLParams.Add(k, v)
	}
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func TestSaleHandlerGetSale(t *testing.T) {
	t.Run("successfully retrieves sale details", func(t *testing.T) {
		mockService, handler := newTestSaleHandler()
		mockSale := &sale.Sale{
			ID:        42,
			VehicleID: 7,
			ClientID:  9,
			SalePrice: 12000,
			Frequency: cadence.Weekly,
			Status:    sale.StatusActive,
		}
		mockService.On("GetSale", mock.Anything, int64(42)).Return(mockSale, nil)

		req := newChiRequest(http.MethodGet, "/sales/42", nil, map[string]string{"saleID": "42"})
		rec := httptest.NewRecorder()
		handler.GetSale(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		var resp dto.SaleResponse
		assert.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, strconv.FormatInt(mockSale.ID, 10), resp.ID)
		assert.Equal(t, "12000.00", resp.SalePrice)
		assert.Empty(t, resp.Schedule)
		mockService.AssertExpectations(t)
	})

	t.Run("returns 404 when sale does not exist", func(t *testing.T) {
		mockService, handler := newTestSaleHandler()
		mockService.On("GetSale", mock.Anything, int64(99)).Return(nil, apperrors.ErrNotFound)

		req := newChiRequest(http.MethodGet, "/sales/99", nil, map[string]string{"saleID": "99"})
		rec := httptest.NewRecorder()
		handler.GetSale(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
		mockService.AssertExpectations(t)
	})

	t.Run("returns 400 for a non-numeric sale ID", func(t *testing.T) {
		_, handler := newTestSaleHandler()

		req := newChiRequest(http.MethodGet, "/sales/abc", nil, map[string]string{"saleID": "abc"})
		rec := httptest.NewRecorder()
		handler.GetSale(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestSaleHandlerCreateSale(t *testing.T) {
	t.Run("creates a sale and returns the schedule", func(t *testing.T) {
		mockService, handler := newTestSaleHandler()
		body, _ := json.Marshal(dto.CreateSaleRequest{
			VehicleID:        7,
			ClientID:         9,
			VehiclePrice:     12000,
			DownPayment:      1500,
			InterestRate:     8,
			TermYears:        2,
			PaymentFrequency: "weekly",
			StartDate:        "2024-01-01",
		})

		created := &sale.Sale{ID: 1, VehicleID: 7, ClientID: 9, SalePrice: 12000, Frequency: cadence.Weekly, Status: sale.StatusActive}
		mockService.On("CreateSale", mock.Anything, int64(7), int64(9), mock.AnythingOfType("finance.LoanTerms"), mock.AnythingOfType("time.Time")).
			Return(created, nil)

		req := newChiRequest(http.MethodPost, "/sales", body, nil)
		rec := httptest.NewRecorder()
		handler.CreateSale(rec, req)

		assert.Equal(t, http.StatusCreated, rec.Code)
		mockService.AssertExpectations(t)
	})

	t.Run("rejects an invalid payment frequency without calling the service", func(t *testing.T) {
		mockService, handler := newTestSaleHandler()
		body, _ := json.Marshal(dto.CreateSaleRequest{
			VehicleID:        7,
			ClientID:         9,
			VehiclePrice:     12000,
			PaymentFrequency: "daily",
			StartDate:        "2024-01-01",
		})

		req := newChiRequest(http.MethodPost, "/sales", body, nil)
		rec := httptest.NewRecorder()
		handler.CreateSale(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		mockService.AssertNotCalled(t, "CreateSale")
	})

	t.Run("surfaces a vehicle conflict as 409", func(t *testing.T) {
		mockService, handler := newTestSaleHandler()
		body, _ := json.Marshal(dto.CreateSaleRequest{
			VehicleID:        7,
			ClientID:         9,
			VehiclePrice:     12000,
			DownPayment:      1500,
			InterestRate:     8,
			TermYears:        2,
			PaymentFrequency: "weekly",
			StartDate:        "2024-01-01",
		})
		mockService.On("CreateSale", mock.Anything, int64(7), int64(9), mock.AnythingOfType("finance.LoanTerms"), mock.AnythingOfType("time.Time")).
			Return(nil, apperrors.ErrConflict)

		req := newChiRequest(http.MethodPost, "/sales", body, nil)
		rec := httptest.NewRecorder()
		handler.CreateSale(rec, req)

		assert.Equal(t, http.StatusConflict, rec.Code)
		mockService.AssertExpectations(t)
	})
}

func TestSaleHandlerRecordPayment(t *testing.T) {
	params := map[string]string{"saleID": "1", "paymentID": "11"}

	t.Run("records a payment and returns the receipt", func(t *testing.T) {
		mockService, handler := newTestSaleHandler()
		body, _ := json.Marshal(dto.RecordPaymentRequest{Amount: "109.62", PaidDate: "2024-01-08"})

		paid := time.Date(2024, time.January, 8, 0, 0, 0, 0, time.UTC)
		receipt := &sale.PaymentReceipt{
			UpdatedPayment: &sale.Payment{ID: 11, SaleID: 1, Amount: 109.62, DueDate: paid, Status: sale.PaymentStatusPaid, PaidDate: &paid},
			NextPending:    &sale.Payment{ID: 12, SaleID: 1, Amount: 109.62, DueDate: paid.AddDate(0, 0, 7), Status: sale.PaymentStatusPending},
		}
		mockService.On("RecordPayment", mock.Anything, int64(1), int64(11), 109.62, mock.AnythingOfType("time.Time"), (*time.Time)(nil)).
			Return(receipt, nil)

		req := newChiRequest(http.MethodPost, "/sales/1/payments/11", body, params)
		rec := httptest.NewRecorder()
		handler.RecordPayment(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		var resp dto.PaymentReceiptResponse
		assert.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, "11", resp.UpdatedPayment.ID)
		assert.NotNil(t, resp.NextPending)
		assert.False(t, resp.SaleCompleted)
		mockService.AssertExpectations(t)
	})

	t.Run("rejects a malformed amount", func(t *testing.T) {
		mockService, handler := newTestSaleHandler()
		body, _ := json.Marshal(dto.RecordPaymentRequest{Amount: "not-a-number"})

		req := newChiRequest(http.MethodPost, "/sales/1/payments/11", body, params)
		rec := httptest.NewRecorder()
		handler.RecordPayment(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		mockService.AssertNotCalled(t, "RecordPayment")
	})

	t.Run("maps a non-pending payment to 409", func(t *testing.T) {
		mockService, handler := newTestSaleHandler()
		body, _ := json.Marshal(dto.RecordPaymentRequest{Amount: "109.62"})
		mockService.On("RecordPayment", mock.Anything, int64(1), int64(11), 109.62, mock.AnythingOfType("time.Time"), (*time.Time)(nil)).
			Return(nil, apperrors.ErrPaymentNotPending)

		req := newChiRequest(http.MethodPost, "/sales/1/payments/11", body, params)
		rec := httptest.NewRecorder()
		handler.RecordPayment(rec, req)

		assert.Equal(t, http.StatusConflict, rec.Code)
		mockService.AssertExpectations(t)
	})
}

func TestSaleHandlerDeletePayment(t *testing.T) {
	params := map[string]string{"saleID": "1", "paymentID": "11"}

	t.Run("deletes a paid payment and returns the cascade result", func(t *testing.T) {
		mockService, handler := newTestSaleHandler()
		due := time.Date(2024, time.January, 22, 0, 0, 0, 0, time.UTC)
		result := &sale.CascadeResult{
			ReinstatedPayment: &sale.Payment{ID: 31, SaleID: 1, Amount: 109.62, DueDate: due, Status: sale.PaymentStatusPending},
			ResequencedPendingPayments: []sale.Payment{
				{ID: 21, SaleID: 1, DueDate: due.AddDate(0, 0, 7), Status: sale.PaymentStatusPending},
			},
		}
		mockService.On("DeletePaidPayment", mock.Anything, int64(1), int64(11)).Return(result, nil)

		req := newChiRequest(http.MethodDelete, "/sales/1/payments/11", nil, params)
		rec := httptest.NewRecorder()
		handler.DeletePayment(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		var resp dto.CascadeResponse
		assert.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, "31", resp.ReinstatedPayment.ID)
		assert.Len(t, resp.ResequencedPendingPayments, 1)
		mockService.AssertExpectations(t)
	})

	t.Run("maps a pending payment to 409", func(t *testing.T) {
		mockService, handler := newTestSaleHandler()
		mockService.On("DeletePaidPayment", mock.Anything, int64(1), int64(11)).Return(nil, apperrors.ErrPaymentNotPaid)

		req := newChiRequest(http.MethodDelete, "/sales/1/payments/11", nil, params)
		rec := httptest.NewRecorder()
		handler.DeletePayment(rec, req)

		assert.Equal(t, http.StatusConflict, rec.Code)
		mockService.AssertExpectations(t)
	})
}

func TestSaleHandlerGetDue(t *testing.T) {
	t.Run("classifies with an explicit asOf date", func(t *testing.T) {
		mockService, handler := newTestSaleHandler()
		asOf := time.Date(2024, time.June, 15, 0, 0, 0, 0, time.UTC)
		classification := &sale.Classification{
			Overdue:  []sale.Payment{{ID: 1, SaleID: 5, Status: sale.PaymentStatusPending}},
			DueToday: []sale.Payment{{ID: 2, SaleID: 5, Status: sale.PaymentStatusPending}},
		}
		mockService.On("ClassifySchedule", mock.Anything, int64(5), asOf).Return(classification, nil)

		req := newChiRequest(http.MethodGet, "/sales/5/due?asOf=2024-06-15", nil, map[string]string{"saleID": "5"})
		rec := httptest.NewRecorder()
		handler.GetDue(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		var resp dto.ClassificationResponse
		assert.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Len(t, resp.Overdue, 1)
		assert.Len(t, resp.DueToday, 1)
		assert.Empty(t, resp.Upcoming)
		mockService.AssertExpectations(t)
	})

	t.Run("rejects a malformed asOf date", func(t *testing.T) {
		mockService, handler := newTestSaleHandler()

		req := newChiRequest(http.MethodGet, "/sales/5/due?asOf=June-15", nil, map[string]string{"saleID": "5"})
		rec := httptest.NewRecorder()
		handler.GetDue(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		mockService.AssertNotCalled(t, "ClassifySchedule")
	})
}

func TestSaleHandlerQuotePayoff(t *testing.T) {
	mockService, handler := newTestSaleHandler()
	quote := &finance.PayoffQuote{PayoffAmount: 9950, TotalSavings: 612, InterestSaved: 612}
	mockService.On("QuoteEarlyPayoff", mock.Anything, int64(3)).Return(quote, nil)

	req := newChiRequest(http.MethodGet, "/sales/3/payoff", nil, map[string]string{"saleID": "3"})
	rec := httptest.NewRecorder()
	handler.QuotePayoff(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp dto.PayoffQuoteResponse
	assert.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "9950.00", resp.PayoffAmount)
	mockService.AssertExpectations(t)
}
