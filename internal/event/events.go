package event

import (
	"context"
	"time"
)

// Publisher fans ledger side effects out to the surrounding CRUD layer:
// vehicle availability, notifications, reporting. The ledger core never
// blocks on these; publish failures are logged and swallowed by callers.
type Publisher interface {
	PublishSaleCompleted(ctx context.Context, event SaleCompletedEvent) error

	PublishSaleReverted(ctx context.Context, event SaleRevertedEvent) error

	PublishVehicleReleased(ctx context.Context, event VehicleReleasedEvent) error

	PublishPaymentsOverdue(ctx context.Context, event PaymentsOverdueEvent) error
}

// SaleCompletedEvent fires when cumulative paid reaches the sale price.
type SaleCompletedEvent struct {
	SaleID    int64     `json:"saleId"`
	TotalPaid float64   `json:"totalPaid"`
	Timestamp time.Time `json:"timestamp"`
}

// SaleRevertedEvent fires when deleting a paid payment drops a completed
// sale back to active.
type SaleRevertedEvent struct {
	SaleID       int64     `json:"saleId"`
	NewTotalPaid float64   `json:"newTotalPaid"`
	Timestamp    time.Time `json:"timestamp"`
}

// VehicleReleasedEvent fires when a sale deletion returns its vehicle to the
// available pool. The inventory workflow consumes it.
type VehicleReleasedEvent struct {
	SaleID    int64     `json:"saleId"`
	VehicleID int64     `json:"vehicleId"`
	Timestamp time.Time `json:"timestamp"`
}

// PaymentsOverdueEvent is emitted by the overdue scan for each active sale
// with pending payments past their grace period.
type PaymentsOverdueEvent struct {
	SaleID       int64     `json:"saleId"`
	OverdueCount int       `json:"overdueCount"`
	OldestDue    time.Time `json:"oldestDue"`
	Timestamp    time.Time `json:"timestamp"`
}
