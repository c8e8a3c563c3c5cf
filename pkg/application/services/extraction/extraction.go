// Package extraction turns raw inventory ledger adjustments into the typed
// demand and supply records the allocation engine consumes.
package extraction

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/planwerk/mrp/pkg/domain/entities"
)

// JobLookup resolves the job supplying a pegged lot code, nil error when
// found. Used by the protected-demand filter.
type JobLookup func(lotCode string) (*entities.Job, error)

// RequirementLookup resolves a material requirement referenced by an
// activity adjustment.
type RequirementLookup func(jobID, requirementID string) *entities.MaterialRequirement

// Extractor partitions an inventory's ledger into demand and supply
type Extractor struct {
	// SyntheticPrefix marks lot codes created by this engine
	SyntheticPrefix string

	// LookupJob and LookupRequirement connect ledger reasons back to their
	// owning objects. Either may be nil, disabling the dependent filters.
	LookupJob         JobLookup
	LookupJobByID     func(id string) *entities.Job
	LookupRequirement RequirementLookup

	// ConsumeForecast zeroes forecast quantity already covered by sales
	// orders before demands are returned.
	ConsumeForecast ForecastConsumer
}

// NewExtractor creates an extractor with the given provenance prefix
func NewExtractor(prefix string) *Extractor {
	return &Extractor{SyntheticPrefix: prefix}
}

// Extract derives demand and supply from the inventory ledger up to cutoff.
// Unrecognized reasons are dropped. For items that cannot batch, adjustments
// sharing one reason identity fold into a single demand carrying the summed
// quantity and the earliest date.
func (e *Extractor) Extract(inv *entities.Inventory, cutoff time.Time) ([]*entities.Demand, []*entities.Supply) {
	var demandAdjs, supplyAdjs []entities.Adjustment
	for _, adj := range inv.Adjustments() {
		if adj.Date.After(cutoff) {
			continue
		}
		switch {
		case adj.IsDemand():
			demandAdjs = append(demandAdjs, adj)
		case adj.IsSupply():
			supplyAdjs = append(supplyAdjs, adj)
		}
	}

	demandAdjs = e.filterProtected(demandAdjs)

	var demands []*entities.Demand
	if inv.Item.Batchable {
		for _, adj := range demandAdjs {
			if d := e.demandFrom(inv, adj, adj.Quantity.Neg(), adj.Date); d != nil {
				demands = append(demands, d)
			}
		}
	} else {
		demands = e.foldDemands(inv, demandAdjs)
	}

	var supplies []*entities.Supply
	for _, adj := range supplyAdjs {
		if s := e.supplyFrom(adj); s != nil {
			supplies = append(supplies, s)
		}
	}

	if e.ConsumeForecast != nil {
		demands = e.ConsumeForecast(demands)
	}
	return demands, supplies
}

// filterProtected drops demand lines pinned to a lot the preceding run never
// assigned, unless the supplying job is committed firmly enough that its
// pegging must be preserved.
func (e *Extractor) filterProtected(adjs []entities.Adjustment) []entities.Adjustment {
	if e.LookupJob == nil || e.LookupRequirement == nil {
		return adjs
	}
	kept := adjs[:0]
	for _, adj := range adjs {
		if e.isProtected(adj) {
			continue
		}
		kept = append(kept, adj)
	}
	return kept
}

func (e *Extractor) isProtected(adj entities.Adjustment) bool {
	reason, ok := adj.Reason.(entities.ActivityReason)
	if !ok {
		return false
	}
	req := e.LookupRequirement(reason.JobID, reason.RequirementID)
	if req == nil || len(req.EligibleLots) == 0 {
		return false
	}
	for code := range req.EligibleLots {
		if !entities.IsSyntheticCode(code, e.SyntheticPrefix) {
			continue
		}
		job, err := e.LookupJob(code)
		if err != nil || job == nil {
			// Pegged to a synthetic lot nothing supplies anymore: the
			// preceding run did not re-assign it. Stays excluded.
			return true
		}
		if !job.Policy.Preserved() {
			return true
		}
	}
	return false
}

// foldDemands groups same-reason adjustments into one demand with the summed
// quantity and the earliest date, avoiding several small non-batchable supply
// orders for what is logically one requirement.
func (e *Extractor) foldDemands(inv *entities.Inventory, adjs []entities.Adjustment) []*entities.Demand {
	type group struct {
		quantity decimal.Decimal
		earliest time.Time
		first    entities.Adjustment
	}
	groups := make(map[string]*group)
	var order []string
	for _, adj := range adjs {
		key := adj.Reason.Key()
		g, ok := groups[key]
		if !ok {
			g = &group{quantity: decimal.Zero, earliest: adj.Date, first: adj}
			groups[key] = g
			order = append(order, key)
		}
		g.quantity = g.quantity.Add(adj.Quantity.Neg())
		if adj.Date.Before(g.earliest) {
			g.earliest = adj.Date
		}
	}
	sort.Strings(order)

	var demands []*entities.Demand
	for _, key := range order {
		g := groups[key]
		if d := e.demandFrom(inv, g.first, g.quantity, g.earliest); d != nil {
			demands = append(demands, d)
		}
	}
	return demands
}

// demandFrom maps one adjustment (or folded group) to its demand variant.
// Returns nil for reasons that are not demand-shaped.
func (e *Extractor) demandFrom(inv *entities.Inventory, adj entities.Adjustment, quantity decimal.Decimal, needDate time.Time) *entities.Demand {
	if !quantity.IsPositive() {
		return nil
	}
	d := &entities.Demand{
		Quantity:      quantity,
		NeedDate:      needDate,
		LotControlled: inv.Item.LotControlled,
		AllowPartial:  true,
		ReasonKey:     adj.Reason.Key(),
	}
	switch reason := adj.Reason.(type) {
	case entities.ActivityReason:
		d.Kind = entities.ActivityDemand
		if e.LookupRequirement != nil {
			if req := e.LookupRequirement(reason.JobID, reason.RequirementID); req != nil {
				d.Requirement = req
				d.AllowPartial = req.AllowPartial
				if e.LookupJobByID != nil {
					if job := e.LookupJobByID(reason.JobID); job != nil {
						d.Operation = job.OperationOf(req.ID)
					}
				}
			}
		}
	case entities.SalesOrderReason:
		d.Kind = entities.SalesOrderDemand
		d.OrderNumber = reason.OrderNumber
		d.Customer = reason.Customer
	case entities.TransferOrderReason:
		d.Kind = entities.TransferOrderDemand
		d.OrderNumber = reason.OrderNumber
	case entities.ForecastReason:
		d.Kind = entities.ForecastDemand
	case entities.SafetyStockReason:
		d.Kind = entities.SafetyStockDemand
	default:
		return nil
	}
	return d
}

// supplyFrom maps one positive adjustment to its supply variant. Returns nil
// for reasons that do not represent scheduled supply.
func (e *Extractor) supplyFrom(adj entities.Adjustment) *entities.Supply {
	s := &entities.Supply{
		Quantity:      adj.Quantity,
		AvailableDate: adj.Date,
		NeedDate:      adj.Date,
	}
	switch reason := adj.Reason.(type) {
	case entities.ActivityReason:
		s.Kind = entities.ActivitySupply
		s.JobID = reason.JobID
		if e.LookupJobByID != nil && reason.JobID != "" {
			// Carry the producing job's pegging code for eligibility.
			if job := e.LookupJobByID(reason.JobID); job != nil {
				s.LotCode = job.LotCode
			}
		}
	case entities.PurchaseOrderReason:
		s.Kind = entities.PurchaseOrderSupply
		s.OrderNumber = reason.OrderNumber
	default:
		return nil
	}
	return s
}
