package entities

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// AdjustmentReason tags a ledger entry with the business event that caused it.
// One variant exists per reason kind; extraction matches on the concrete type.
type AdjustmentReason interface {
	// Key identifies the underlying reason so that multiple adjustments for
	// the same reason can be folded when an item cannot batch.
	Key() string

	isAdjustmentReason()
}

// ActivityReason ties an adjustment to a production activity. Negative
// adjustments consume a material requirement, positive ones produce output.
type ActivityReason struct {
	JobID         string
	OperationID   string
	RequirementID string
}

func (r ActivityReason) Key() string {
	return fmt.Sprintf("activity|%s|%s|%s", r.JobID, r.OperationID, r.RequirementID)
}
func (ActivityReason) isAdjustmentReason() {}

// PurchaseOrderReason ties an adjustment to an inbound purchase order
type PurchaseOrderReason struct {
	OrderNumber string
}

func (r PurchaseOrderReason) Key() string { return "po|" + r.OrderNumber }
func (PurchaseOrderReason) isAdjustmentReason() {}

// SalesOrderReason ties an adjustment to an outbound sales order line
type SalesOrderReason struct {
	OrderNumber string
	Customer    string
}

func (r SalesOrderReason) Key() string { return "so|" + r.OrderNumber }
func (SalesOrderReason) isAdjustmentReason() {}

// TransferOrderReason ties an adjustment to a warehouse transfer
type TransferOrderReason struct {
	OrderNumber string
}

func (r TransferOrderReason) Key() string { return "to|" + r.OrderNumber }
func (TransferOrderReason) isAdjustmentReason() {}

// ForecastReason ties an adjustment to a forecast bucket
type ForecastReason struct {
	ForecastID string
}

func (r ForecastReason) Key() string { return "fc|" + r.ForecastID }
func (ForecastReason) isAdjustmentReason() {}

// SafetyStockReason marks the standing safety stock requirement
type SafetyStockReason struct{}

func (SafetyStockReason) Key() string { return "safety" }
func (SafetyStockReason) isAdjustmentReason() {}

// Adjustment is an immutable signed quantity change on an inventory ledger.
// Negative quantities are demand, positive quantities are supply.
type Adjustment struct {
	Quantity decimal.Decimal
	Date     time.Time
	Reason   AdjustmentReason
}

// NewAdjustment creates a validated Adjustment
func NewAdjustment(quantity decimal.Decimal, date time.Time, reason AdjustmentReason) (*Adjustment, error) {
	if quantity.IsZero() {
		return nil, fmt.Errorf("adjustment quantity cannot be zero")
	}
	if date.IsZero() {
		return nil, fmt.Errorf("adjustment date cannot be zero")
	}
	if reason == nil {
		return nil, fmt.Errorf("adjustment reason cannot be nil")
	}
	return &Adjustment{Quantity: quantity, Date: date, Reason: reason}, nil
}

// IsDemand reports whether the adjustment consumes stock
func (a Adjustment) IsDemand() bool { return a.Quantity.IsNegative() }

// IsSupply reports whether the adjustment produces stock
func (a Adjustment) IsSupply() bool { return a.Quantity.IsPositive() }
