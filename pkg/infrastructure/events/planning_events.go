package events

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/planwerk/mrp/pkg/domain/entities"
)

// Event types emitted over the lifetime of a resolution run. Each run writes
// to its own stream keyed by the run identifier.
const (
	RunStartedEvent           = "run.started"
	RunFinishedEvent          = "run.finished"
	RunFinishedWithErrorEvent = "run.finished_with_error"

	LevelCompletedEvent = "run.level_completed"

	JobCreatedEvent           = "job.created"
	PurchaseOrderCreatedEvent = "purchase_order.created"

	PartialSupplyViolationEvent = "allocation.partial_supply_violation"
)

type RunStarted struct {
	RunID     string    `json:"run_id"`
	Cutoff    time.Time `json:"cutoff"`
	StartedAt time.Time `json:"started_at"`
}

type RunFinished struct {
	RunID                 string        `json:"run_id"`
	JobsCreated           int           `json:"jobs_created"`
	PurchaseOrdersCreated int           `json:"purchase_orders_created"`
	LevelsProcessed       int           `json:"levels_processed"`
	Warnings              []string      `json:"warnings,omitempty"`
	Elapsed               time.Duration `json:"elapsed"`
}

type RunFinishedWithError struct {
	RunID string `json:"run_id"`
	Error string `json:"error"`
}

type LevelCompleted struct {
	RunID       string `json:"run_id"`
	Level       int    `json:"level"`
	Inventories int    `json:"inventories"`
}

type JobCreated struct {
	RunID    string          `json:"run_id"`
	JobID    string          `json:"job_id"`
	ItemID   entities.ItemID `json:"item_id"`
	Quantity decimal.Decimal `json:"quantity"`
	NeedDate time.Time       `json:"need_date"`
}

type PurchaseOrderCreated struct {
	RunID       string          `json:"run_id"`
	OrderNumber string          `json:"order_number"`
	ItemID      entities.ItemID `json:"item_id"`
	Warehouse   string          `json:"warehouse"`
	Quantity    decimal.Decimal `json:"quantity"`
	NeedDate    time.Time       `json:"need_date"`
}

type PartialSupplyViolation struct {
	RunID          string          `json:"run_id"`
	Inventory      string          `json:"inventory"`
	Unmet          decimal.Decimal `json:"unmet"`
	NeedDate       time.Time       `json:"need_date"`
	PartialAllowed bool            `json:"partial_allowed"`
}
