package entities

import (
	"time"

	"github.com/shopspring/decimal"
)

// DemandPart records one demand's share of a supply order
type DemandPart struct {
	Demand   *Demand
	Quantity decimal.Decimal
}

// SupplyOrder is a transient aggregation of demand parts awaiting
// materialization into exactly one job or one purchase order. It lives only
// for the duration of one inventory's resolution pass.
type SupplyOrder struct {
	Inventory *Inventory
	Parts     []DemandPart

	// NeedDate is the earliest date among the demand parts
	NeedDate time.Time

	Priority int

	// BatchOverflow marks orders created because a previous order had already
	// absorbed part of the same demand.
	BatchOverflow bool

	// maxQuantity bounds how much demand one order may absorb; zero means
	// unbounded. Taken from the item's batch quantity at creation.
	maxQuantity decimal.Decimal

	// excessTaken tracks surplus already redistributed to consumers
	excessTaken decimal.Decimal

	closed bool
}

// NewSupplyOrder creates an open supply order for one inventory
func NewSupplyOrder(inv *Inventory) *SupplyOrder {
	return &SupplyOrder{
		Inventory:   inv,
		maxQuantity: inv.Item.BatchQuantity,
	}
}

// Demanded returns the total quantity of all demand parts
func (o *SupplyOrder) Demanded() decimal.Decimal {
	total := decimal.Zero
	for _, p := range o.Parts {
		total = total.Add(p.Quantity)
	}
	return total
}

// Produced returns the quantity the materialized order will actually make:
// demand rounded up to the item's batch multiple.
func (o *SupplyOrder) Produced() decimal.Decimal {
	demanded := o.Demanded()
	if !o.maxQuantity.IsPositive() || demanded.IsZero() {
		return demanded
	}
	batches := demanded.Div(o.maxQuantity).Ceil()
	return batches.Mul(o.maxQuantity)
}

// Excess returns production beyond demand caused by batch rounding, less
// what redistribution has already handed back to consuming demands.
func (o *SupplyOrder) Excess() decimal.Decimal {
	return o.Produced().Sub(o.Demanded()).Sub(o.excessTaken)
}

// TakeExcess decrements the order's unallocated surplus as redistribution
// assigns it to a consuming demand.
func (o *SupplyOrder) TakeExcess(quantity decimal.Decimal) {
	o.excessTaken = o.excessTaken.Add(quantity)
}

// QuantityToAccept exposes how much further demand this order can absorb.
// Closed orders only give away their batch-rounding surplus; open orders can
// still grow up to the batch bound.
func (o *SupplyOrder) QuantityToAccept() decimal.Decimal {
	if o.closed {
		return o.Excess()
	}
	if o.maxQuantity.IsPositive() {
		room := o.maxQuantity.Sub(o.Demanded())
		if room.IsNegative() {
			return decimal.Zero
		}
		return room
	}
	return o.Excess()
}

// AddDemand absorbs as much of the needed quantity as the order's capacity
// allows, reducing needed in place. Returns the accepted quantity; zero means
// the order cannot help at all.
func (o *SupplyOrder) AddDemand(d *Demand, needed *decimal.Decimal) decimal.Decimal {
	if o.closed || !needed.IsPositive() {
		return decimal.Zero
	}
	accept := *needed
	if o.maxQuantity.IsPositive() {
		room := o.maxQuantity.Sub(o.Demanded())
		if !room.IsPositive() {
			return decimal.Zero
		}
		if accept.GreaterThan(room) {
			accept = room
		}
	}
	o.Parts = append(o.Parts, DemandPart{Demand: d, Quantity: accept})
	if o.NeedDate.IsZero() || d.NeedDate.Before(o.NeedDate) {
		o.NeedDate = d.NeedDate
	}
	*needed = needed.Sub(accept)
	return accept
}

// AcceptInto routes part of an existing demand into this order's surplus or
// remaining capacity, used by the batch remainder tiers.
func (o *SupplyOrder) AcceptInto(d *Demand, quantity decimal.Decimal) {
	o.Parts = append(o.Parts, DemandPart{Demand: d, Quantity: quantity})
	if o.NeedDate.IsZero() || d.NeedDate.Before(o.NeedDate) {
		o.NeedDate = d.NeedDate
	}
}

// CloseBatching marks the order closed; later demands may only draw on its
// batch-rounding surplus. Batches never span a change in demand date.
func (o *SupplyOrder) CloseBatching() { o.closed = true }

// Closed reports whether the batching window has been closed
func (o *SupplyOrder) Closed() bool { return o.closed }

// Empty reports whether the order has absorbed no demand
func (o *SupplyOrder) Empty() bool { return len(o.Parts) == 0 }

// FirstTrace returns order number and customer from the earliest demand part
// that carries them, for traceability onto the materialized job.
func (o *SupplyOrder) FirstTrace() (orderNumber, customer string) {
	for _, p := range o.Parts {
		if orderNumber == "" && p.Demand.OrderNumber != "" {
			orderNumber = p.Demand.OrderNumber
		}
		if customer == "" && p.Demand.Customer != "" {
			customer = p.Demand.Customer
		}
		if orderNumber != "" && customer != "" {
			break
		}
	}
	return orderNumber, customer
}

// LotControlled reports whether any contributing demand requires lot pegging
func (o *SupplyOrder) LotControlled() bool {
	for _, p := range o.Parts {
		if p.Demand.LotControlled {
			return true
		}
	}
	return false
}
