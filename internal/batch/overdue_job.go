package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"bhph-engine/internal/domain/sale"
	"bhph-engine/internal/event"
	"bhph-engine/internal/infrastructure/monitoring"
	"bhph-engine/internal/pkg/apperrors"
)

// OverdueScanJob walks every active sale and derives its overdue view.
// Overdue is never written back; the scan only updates gauges and notifies
// downstream consumers.
type OverdueScanJob struct {
	saleRepo sale.Repository
	ledger   sale.LedgerService
	events   event.Publisher
	logger   *slog.Logger
}

func NewOverdueScanJob(
	saleRepo sale.Repository,
	ledger sale.LedgerService,
	events event.Publisher,
	logger *slog.Logger,
) *OverdueScanJob {
	if saleRepo == nil || ledger == nil || logger == nil {
		panic("OverdueScanJob dependencies cannot be nil")
	}
	return &OverdueScanJob{
		saleRepo: saleRepo,
		ledger:   ledger,
		events:   events,
		logger:   logger.With("job", "OverdueScan"),
	}
}

func (j *OverdueScanJob) Run(ctx context.Context) error {
	startTime := time.Now()
	j.logger.InfoContext(ctx, "Starting overdue payment scan job.")

	activeSaleIDs, err := j.saleRepo.GetActiveSaleIDs(ctx)
	if err != nil {
		j.logger.ErrorContext(ctx, "Failed to get active sale IDs, aborting job.", slog.Any("error", err))
		return fmt.Errorf("cannot run job, failed to get active sales: %w", err)
	}
	j.logger.InfoContext(ctx, "Fetched active sale IDs.", slog.Int("count", len(activeSaleIDs)))

	if len(activeSaleIDs) == 0 {
		monitoring.RecordOverdueScan(0, 0)
		j.logger.InfoContext(ctx, "Overdue payment scan job finished.", slog.Duration("duration", time.Since(startTime)))
		return nil
	}

	now := time.Now()
	var wg sync.WaitGroup
	var processedCount, overdueSaleCount, overduePaymentCount, errorCount atomic.Int32

	for _, saleID := range activeSaleIDs {
		wg.Add(1)
		go func(currentSaleID int64) {
			defer wg.Done()

			logCtx := j.logger.With(slog.Int64("saleID", currentSaleID))

			classification, classifyErr := j.ledger.ClassifySchedule(ctx, currentSaleID, now)
			if classifyErr != nil {
				if errors.Is(classifyErr, apperrors.ErrNotFound) {
					logCtx.WarnContext(ctx, "Sale not found during overdue scan (deleted mid-run?)", slog.Any("error", classifyErr))
				} else {
					logCtx.ErrorContext(ctx, "Failed to classify sale schedule", slog.Any("error", classifyErr))
					errorCount.Add(1)
				}
				return
			}
			processedCount.Add(1)

			if len(classification.Overdue) == 0 {
				return
			}
			overdueSaleCount.Add(1)
			overduePaymentCount.Add(int32(len(classification.Overdue)))

			logCtx.InfoContext(ctx, "Sale has overdue payments.",
				slog.Int("overdue_count", len(classification.Overdue)),
				slog.Time("oldest_due", classification.Overdue[0].DueDate))

			if j.events != nil {
				evt := event.PaymentsOverdueEvent{
					SaleID:       currentSaleID,
					OverdueCount: len(classification.Overdue),
					OldestDue:    classification.Overdue[0].DueDate,
					Timestamp:    now,
				}
				if pubErr := j.events.PublishPaymentsOverdue(ctx, evt); pubErr != nil {
					logCtx.WarnContext(ctx, "Failed to publish payments overdue event", slog.Any("error", pubErr))
				}
			}
		}(saleID)
	}

	wg.Wait()
	monitoring.RecordOverdueScan(int(overdueSaleCount.Load()), int(overduePaymentCount.Load()))

	duration := time.Since(startTime)
	summaryLog := j.logger.With(
		slog.Duration("duration", duration),
		slog.Int("total_active_sales", len(activeSaleIDs)),
		slog.Int("sales_processed", int(processedCount.Load())),
		slog.Int("sales_with_overdue", int(overdueSaleCount.Load())),
		slog.Int("overdue_payments", int(overduePaymentCount.Load())),
		slog.Int("errors_encountered", int(errorCount.Load())),
	)
	if errorCount.Load() > 0 {
		summaryLog.WarnContext(ctx, "Overdue payment scan job finished with errors.")
		return fmt.Errorf("job completed with %d errors", errorCount.Load())
	}

	summaryLog.InfoContext(ctx, "Overdue payment scan job finished successfully.")
	return nil
}
