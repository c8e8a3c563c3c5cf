package entities

import (
	"time"

	"github.com/shopspring/decimal"
)

// SupplyKind identifies the reason variant a supply was derived from
type SupplyKind int

const (
	ActivitySupply SupplyKind = iota
	PurchaseOrderSupply
)

func (k SupplyKind) String() string {
	switch k {
	case ActivitySupply:
		return "ActivitySupply"
	case PurchaseOrderSupply:
		return "PurchaseOrderSupply"
	default:
		return "Unknown"
	}
}

// Supply is a derived view of positive ledger adjustments: an activity or
// purchase order already scheduled to produce into this inventory.
type Supply struct {
	Kind          SupplyKind
	Quantity      decimal.Decimal
	AvailableDate time.Time
	Allocated     decimal.Decimal

	JobID       string
	OrderNumber string

	// LotCode pegs the supply to a specific lot; empty means provenance open
	LotCode string

	// NeedDate shifts to the consuming demand's date when this supply gains
	// its first consumer.
	NeedDate time.Time

	// Traceability bookkeeping accumulated from consuming demands
	ConsumerOrders    []string
	ConsumerCustomers []string
}

// Remaining returns the quantity not yet allocated to any demand
func (s *Supply) Remaining() decimal.Decimal {
	return s.Quantity.Sub(s.Allocated)
}

// HasConsumers reports whether any demand has already drawn on this supply
func (s *Supply) HasConsumers() bool {
	return s.Allocated.IsPositive()
}
