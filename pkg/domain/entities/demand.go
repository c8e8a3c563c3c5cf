package entities

import (
	"time"

	"github.com/shopspring/decimal"
)

// DemandKind identifies the reason variant a demand was derived from
type DemandKind int

const (
	ActivityDemand DemandKind = iota
	SalesOrderDemand
	TransferOrderDemand
	ForecastDemand
	SafetyStockDemand
)

func (k DemandKind) String() string {
	switch k {
	case ActivityDemand:
		return "ActivityDemand"
	case SalesOrderDemand:
		return "SalesOrderDemand"
	case TransferOrderDemand:
		return "TransferOrderDemand"
	case ForecastDemand:
		return "ForecastDemand"
	case SafetyStockDemand:
		return "SafetyStockDemand"
	default:
		return "Unknown"
	}
}

// Demand is a derived, typed view of negative ledger adjustments. It is not
// persisted; extraction rebuilds it every pass.
type Demand struct {
	Kind          DemandKind
	Quantity      decimal.Decimal // always positive
	NeedDate      time.Time
	LotControlled bool

	// AllowPartial permits a source to cover only part of the remaining
	// quantity. When false, a source must cover it fully or is skipped.
	AllowPartial bool

	// Requirement is set for activity demands; it carries eligibility and
	// policy overrides from the consuming operation.
	Requirement *MaterialRequirement

	// Operation is the manufacturing order owning Requirement, set when the
	// reason resolves back to its job. Requirements split off during lot
	// pegging are inserted here.
	Operation *ManufacturingOrder

	// SplitRequirements collects requirements split off during lot pegging
	// when the original disallows partial supply. They belong to the same
	// operation as Requirement.
	SplitRequirements []*MaterialRequirement

	// Traceability onto generated supply
	OrderNumber string
	Customer    string

	// ReasonKey is the folding identity of the source adjustments
	ReasonKey string

	// StagingKey orders demands ahead of the date sort when a custom staging
	// sequence is injected. Zero for all demands means pure date order.
	StagingKey int
}

// EligibleLots returns the demand's lot restriction, nil when unrestricted
func (d *Demand) EligibleLots() LotSet {
	if d.Requirement == nil {
		return nil
	}
	return d.Requirement.EligibleLots
}

// Policy resolves the allocation policy for this demand, preferring the
// requirement override over the inventory default.
func (d *Demand) Policy(inv *Inventory) AllocationPolicy {
	if d.Requirement != nil && d.Requirement.AllocationPolicy != PolicyNotSet {
		return d.Requirement.AllocationPolicy
	}
	return inv.AllocationPolicy
}
