package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"bhph-engine/internal/api/handler/dto"
	"bhph-engine/internal/domain/sale"
	"bhph-engine/internal/pkg/apperrors"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

const dateLayout = time.DateOnly

type SaleHandler struct {
	service sale.LedgerService
	logger  *slog.Logger
}

func NewSaleHandler(s sale.LedgerService, l *slog.Logger) *SaleHandler {
	return &SaleHandler{
		service: s,
		logger:  l.With("component", "SaleHandler"),
	}
}

func decodeJSON(r *http.Request, v interface{}) error {
	if r.Body == nil {
		return fmt.Errorf("no request body")
	}
	defer r.Body.Close()
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(v)
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		slog.Default().Error("Failed to marshal JSON response", "error", err)
		http.Error(w, `{"error":{"message":"Internal server error"}}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(response)
}

func respondError(w http.ResponseWriter, err error) {
	status, message, field := http.StatusInternalServerError, "An unexpected error occurred.", ""
	var validationError *apperrors.ValidationError
	var appErr *apperrors.AppError

	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		status, message = http.StatusNotFound, "Resource not found."
	case errors.Is(err, apperrors.ErrInvalidArgument), errors.Is(err, apperrors.ErrValidation):
		status, message = http.StatusBadRequest, err.Error()
	case errors.Is(err, apperrors.ErrPaymentNotPending), errors.Is(err, apperrors.ErrPaymentNotPaid), errors.Is(err, apperrors.ErrSaleNotActive):
		status, message = http.StatusConflict, err.Error()
	case errors.Is(err, apperrors.ErrAlreadyExists), errors.Is(err, apperrors.ErrConflict):
		status, message = http.StatusConflict, err.Error()
	case errors.As(err, &validationError):
		status, message, field = http.StatusBadRequest, validationError.Message, validationError.Field
	case errors.As(err, &appErr):
		message = appErr.Error()
	default:
		slog.Default().Error("Unhandled internal error", "error", err)
	}

	resp := dto.ErrorResponse{
		Error: dto.ErrorDetail{
			Message: message,
			Field:   field,
		},
	}
	respondJSON(w, status, resp)
}

func getIDFromURL(r *http.Request, param string) (int64, error) {
	idStr := chi.URLParam(r, param)
	if idStr == "" {
		return 0, fmt.Errorf("%s not found in URL path", param)
	}
	return strconv.ParseInt(idStr, 10, 64)
}

// CreateSale finalizes a financed sale and materializes its payment schedule.
//
// @Summary Create a financed sale
// @Description Creates a sale from vehicle price, down payment, rate, term and cadence. The full pending payment schedule is generated and persisted atomically, together with the vehicle's transition to sold.
// @Tags Sales
// @Accept json
// @Produce json
// @Param request body dto.CreateSaleRequest true "Sale creation request payload"
// @Success 201 {object} dto.SaleResponse "Sale successfully created"
// @Failure 400 {object} dto.ErrorResponse "Invalid request payload or validation error"
// @Failure 409 {object} dto.ErrorResponse "Vehicle not available"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /sales [post]
// @Security BearerAuth
func (h *SaleHandler) CreateSale(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateSaleRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}
	if err := req.Validate(); err != nil {
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}

	startDate, _ := time.Parse(dateLayout, req.StartDate)

	created, err := h.service.CreateSale(r.Context(), req.VehicleID, req.ClientID, req.Terms(), startDate)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, dto.NewSaleResponse(created, true))
}

// GetSale retrieves the details of a specific sale.
//
// @Summary Retrieve sale details
// @Description Retrieves a sale by its ID. The payment schedule can be included with `include=schedule`.
// @Tags Sales
// @Produce json
// @Param saleID path int true "Sale ID"
// @Param include query string false "Optional parameter to include the payment schedule (use 'schedule')"
// @Success 200 {object} dto.SaleResponse "Sale details successfully retrieved"
// @Failure 400 {object} dto.ErrorResponse "Invalid sale ID"
// @Failure 404 {object} dto.ErrorResponse "Sale not found"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /sales/{saleID} [get]
// @Security BearerAuth
func (h *SaleHandler) GetSale(w http.ResponseWriter, r *http.Request) {
	saleID, err := getIDFromURL(r, "saleID")
	if err != nil {
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}

	s, err := h.service.GetSale(r.Context(), saleID)
	if err != nil {
		respondError(w, err)
		return
	}

	includeSchedule := r.URL.Query().Get("include") == "schedule"
	respondJSON(w, http.StatusOK, dto.NewSaleResponse(s, includeSchedule))
}

// DeleteSale removes a sale and its whole payment ledger.
//
// @Summary Delete a sale
// @Description Deletes the sale and all of its payments and returns the vehicle to the available pool, atomically.
// @Tags Sales
// @Produce json
// @Param saleID path int true "Sale ID"
// @Success 200 {object} map[string]string "Sale successfully deleted"
// @Failure 400 {object} dto.ErrorResponse "Invalid sale ID"
// @Failure 404 {object} dto.ErrorResponse "Sale not found"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /sales/{saleID} [delete]
// @Security BearerAuth
func (h *SaleHandler) DeleteSale(w http.ResponseWriter, r *http.Request) {
	saleID, err := getIDFromURL(r, "saleID")
	if err != nil {
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}

	if err := h.service.DeleteSale(r.Context(), saleID); err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"message": "Sale deleted"})
}

// GetSchedule retrieves the full payment schedule of a sale.
//
// @Summary Retrieve a sale's payment schedule
// @Description Retrieves all payments of a sale ordered by due date.
// @Tags Sales
// @Produce json
// @Param saleID path int true "Sale ID"
// @Success 200 {array} dto.PaymentResponse "Schedule successfully retrieved"
// @Failure 400 {object} dto.ErrorResponse "Invalid sale ID"
// @Failure 404 {object} dto.ErrorResponse "Sale not found"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /sales/{saleID}/schedule [get]
// @Security BearerAuth
func (h *SaleHandler) GetSchedule(w http.ResponseWriter, r *http.Request) {
	saleID, err := getIDFromURL(r, "saleID")
	if err != nil {
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}

	schedule, err := h.service.GetSchedule(r.Context(), saleID)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, dto.NewPaymentResponses(schedule))
}

// QuotePayoff quotes settling the sale early.
//
// @Summary Quote an early payoff
// @Description Reconstructs the current balance from the payment history and quotes the settlement amount with the waived interest.
// @Tags Sales
// @Produce json
// @Param saleID path int true "Sale ID"
// @Success 200 {object} dto.PayoffQuoteResponse "Quote successfully computed"
// @Failure 400 {object} dto.ErrorResponse "Invalid sale ID"
// @Failure 404 {object} dto.ErrorResponse "Sale not found"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /sales/{saleID}/payoff [get]
// @Security BearerAuth
func (h *SaleHandler) QuotePayoff(w http.ResponseWriter, r *http.Request) {
	saleID, err := getIDFromURL(r, "saleID")
	if err != nil {
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}

	quote, err := h.service.QuoteEarlyPayoff(r.Context(), saleID)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, dto.NewPayoffQuoteResponse(saleID, quote))
}

// GetDue classifies the pending payments of a sale.
//
// @Summary Classify pending payments
// @Description Returns the derived overdue, due-today and upcoming buckets of a sale's pending payments. Nothing is persisted; pass `asOf` (YYYY-MM-DD) to classify against a different day.
// @Tags Sales
// @Produce json
// @Param saleID path int true "Sale ID"
// @Param asOf query string false "Classification date (YYYY-MM-DD), defaults to today"
// @Success 200 {object} dto.ClassificationResponse "Classification successfully computed"
// @Failure 400 {object} dto.ErrorResponse "Invalid sale ID or asOf date"
// @Failure 404 {object} dto.ErrorResponse "Sale not found"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /sales/{saleID}/due [get]
// @Security BearerAuth
func (h *SaleHandler) GetDue(w http.ResponseWriter, r *http.Request) {
	saleID, err := getIDFromURL(r, "saleID")
	if err != nil {
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}

	asOf := time.Now()
	if asOfStr := r.URL.Query().Get("asOf"); asOfStr != "" {
		asOf, err = time.Parse(dateLayout, asOfStr)
		if err != nil {
			respondError(w, fmt.Errorf("%w: invalid asOf format (use YYYY-MM-DD)", apperrors.ErrInvalidArgument))
			return
		}
	}

	classification, err := h.service.ClassifySchedule(r.Context(), saleID, asOf)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, dto.NewClassificationResponse(saleID, asOf, classification))
}

// RecordPayment confirms a pending payment as paid.
//
// @Summary Record a payment
// @Description Marks a pending payment paid. The amount may differ from the scheduled amount, the due date may be edited in the same confirmation, and the next pending slot is created automatically unless the sale completes.
// @Tags Payments
// @Accept json
// @Produce json
// @Param saleID path int true "Sale ID"
// @Param paymentID path int true "Payment ID"
// @Param request body dto.RecordPaymentRequest true "Payment request payload"
// @Success 200 {object} dto.PaymentReceiptResponse "Payment successfully recorded"
// @Failure 400 {object} dto.ErrorResponse "Invalid request payload or validation error"
// @Failure 404 {object} dto.ErrorResponse "Sale or payment not found"
// @Failure 409 {object} dto.ErrorResponse "Payment not pending, sale not active or duplicate due date"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /sales/{saleID}/payments/{paymentID} [post]
// @Security BearerAuth
func (h *SaleHandler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	saleID, err := getIDFromURL(r, "saleID")
	if err != nil {
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}
	paymentID, err := getIDFromURL(r, "paymentID")
	if err != nil {
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}

	var req dto.RecordPaymentRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}
	if err := req.Validate(); err != nil {
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}

	amountDecimal, err := decimal.NewFromString(req.Amount)
	if err != nil {
		respondError(w, fmt.Errorf("%w: invalid numeric format for amount", apperrors.ErrInvalidArgument))
		return
	}
	amount, _ := amountDecimal.Float64()

	var paidDate time.Time
	if req.PaidDate != "" {
		paidDate, _ = time.Parse(dateLayout, req.PaidDate)
	}

	var newDueDate *time.Time
	if req.NewDueDate != "" {
		parsed, _ := time.Parse(dateLayout, req.NewDueDate)
		newDueDate = &parsed
	}

	receipt, err := h.service.RecordPayment(r.Context(), saleID, paymentID, amount, paidDate, newDueDate)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, dto.NewPaymentReceiptResponse(receipt))
}

// DeletePayment removes a paid payment and repairs the schedule.
//
// @Summary Delete a paid payment
// @Description Deletes a paid payment, reinstates a pending slot at the same due date, re-sequences later pending payments and reverts a completed sale to active if the total paid drops below the sale price. The whole cascade is atomic.
// @Tags Payments
// @Produce json
// @Param saleID path int true "Sale ID"
// @Param paymentID path int true "Payment ID"
// @Success 200 {object} dto.CascadeResponse "Payment successfully deleted and schedule repaired"
// @Failure 400 {object} dto.ErrorResponse "Invalid sale or payment ID"
// @Failure 404 {object} dto.ErrorResponse "Sale or payment not found"
// @Failure 409 {object} dto.ErrorResponse "Payment is not paid"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /sales/{saleID}/payments/{paymentID} [delete]
// @Security BearerAuth
func (h *SaleHandler) DeletePayment(w http.ResponseWriter, r *http.Request) {
	saleID, err := getIDFromURL(r, "saleID")
	if err != nil {
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}
	paymentID, err := getIDFromURL(r, "paymentID")
	if err != nil {
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}

	result, err := h.service.DeletePaidPayment(r.Context(), saleID, paymentID)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, dto.NewCascadeResponse(result))
}
