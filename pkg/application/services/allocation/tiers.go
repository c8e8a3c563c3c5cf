package allocation

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/planwerk/mrp/pkg/domain/entities"
)

// fromOnHand sources from lots (lot-controlled items) or from the pooled
// unallocated counter.
func (p *inventoryPass) fromOnHand(inv *entities.Inventory, d *entities.Demand, needed *decimal.Decimal) bool {
	if !needed.IsPositive() {
		return true
	}
	if !p.engine.eligibility.IsInventoryEligible(d, inv) {
		return false
	}
	if !inv.Item.LotControlled {
		available := inv.Unallocated
		if !available.IsPositive() {
			return false
		}
		if !d.AllowPartial && available.LessThan(*needed) {
			return false
		}
		take := decimal.Min(available, *needed)
		inv.Unallocated = inv.Unallocated.Sub(take)
		*needed = needed.Sub(take)
		return needed.IsZero()
	}

	candidates := p.eligibleLots(inv, d)
	p.sortLots(candidates, d.Policy(inv))
	for _, lot := range candidates {
		if !needed.IsPositive() {
			break
		}
		available := lot.Unallocated()
		if !available.IsPositive() {
			continue
		}
		if !d.AllowPartial && available.LessThan(*needed) {
			continue
		}
		take := decimal.Min(available, *needed)
		lot.Allocated = lot.Allocated.Add(take)
		*needed = needed.Sub(take)
	}
	return needed.IsZero()
}

// eligibleLots filters lots to those produced in time, unexpired, mature,
// within shelf life, and lot-code compatible with the demand.
func (p *inventoryPass) eligibleLots(inv *entities.Inventory, d *entities.Demand) []*entities.Lot {
	var out []*entities.Lot
	for _, lot := range inv.Lots {
		if !lot.UsableFor(inv.Item, d.NeedDate) {
			continue
		}
		if !p.engine.eligibility.IsLotEligible(d, lot) {
			continue
		}
		out = append(out, lot)
	}
	return out
}

// sortLots orders candidates per policy: by production date for the dated
// policies, by unallocated quantity for the default.
func (p *inventoryPass) sortLots(lots []*entities.Lot, policy entities.AllocationPolicy) {
	switch policy {
	case entities.OldestFirst:
		sort.SliceStable(lots, func(i, j int) bool {
			if !lots[i].ProductionDate.Equal(lots[j].ProductionDate) {
				return lots[i].ProductionDate.Before(lots[j].ProductionDate)
			}
			return lots[i].Unallocated().LessThan(lots[j].Unallocated())
		})
	case entities.NewestFirst:
		sort.SliceStable(lots, func(i, j int) bool {
			if !lots[i].ProductionDate.Equal(lots[j].ProductionDate) {
				return lots[i].ProductionDate.After(lots[j].ProductionDate)
			}
			return lots[i].Unallocated().LessThan(lots[j].Unallocated())
		})
	default:
		sort.SliceStable(lots, func(i, j int) bool {
			return lots[i].Unallocated().LessThan(lots[j].Unallocated())
		})
	}
}

// fromBatches sources from the remainders of supply orders created earlier in
// this pass. The closed tier only sees batch-rounding surplus; the open tier
// sees remaining batch capacity. Direction follows the policy: forward for
// newest-first, reverse otherwise.
func (p *inventoryPass) fromBatches(closed bool) tier {
	return func(inv *entities.Inventory, d *entities.Demand, needed *decimal.Decimal) bool {
		if !needed.IsPositive() {
			return true
		}
		forward := d.Policy(inv) == entities.NewestFirst
		for i := 0; i < len(p.orders); i++ {
			idx := i
			if !forward {
				idx = len(p.orders) - 1 - i
			}
			o := p.orders[idx]
			if o.Closed() != closed {
				continue
			}
			accept := o.QuantityToAccept()
			if !accept.IsPositive() {
				continue
			}
			if !d.AllowPartial && accept.LessThan(*needed) {
				continue
			}
			take := decimal.Min(accept, *needed)
			o.AcceptInto(d, take)
			*needed = needed.Sub(take)
			if !needed.IsPositive() {
				return true
			}
		}
		return needed.IsZero()
	}
}

// fromExistingOrders sources from supply already scheduled to arrive: jobs
// and purchase orders from earlier levels or earlier runs.
func (p *inventoryPass) fromExistingOrders(inv *entities.Inventory, d *entities.Demand, needed *decimal.Decimal) bool {
	if !needed.IsPositive() {
		return true
	}
	for _, s := range p.supplies {
		remaining := s.Remaining()
		if !remaining.IsPositive() {
			continue
		}
		if !p.engine.eligibility.IsSupplyEligible(d, s) {
			continue
		}
		if !p.supplyDateWorks(s, d) {
			continue
		}
		if !d.AllowPartial && remaining.LessThan(*needed) {
			continue
		}

		firstConsumer := !s.HasConsumers()
		take := decimal.Min(remaining, *needed)
		s.Allocated = s.Allocated.Add(take)
		*needed = needed.Sub(take)

		// Traceability onto the existing order.
		if d.OrderNumber != "" {
			s.ConsumerOrders = append(s.ConsumerOrders, d.OrderNumber)
		}
		if d.Customer != "" {
			s.ConsumerCustomers = append(s.ConsumerCustomers, d.Customer)
		}

		// The order's own need date follows its first consumer only; later
		// consumers must not drag an already-committed date around.
		if firstConsumer {
			reset := d.NeedDate
			if p.engine.hooks.ExistingOrderNeedDateReset != nil {
				if override := p.engine.hooks.ExistingOrderNeedDateReset(s, d.NeedDate); override != nil {
					reset = *override
				}
			}
			s.NeedDate = reset
		}

		if !needed.IsPositive() {
			return true
		}
	}
	return needed.IsZero()
}

// supplyDateWorks accepts supply available by the demand date, or later when
// the extension hook confirms the order can be pushed.
func (p *inventoryPass) supplyDateWorks(s *entities.Supply, d *entities.Demand) bool {
	if !s.AvailableDate.After(d.NeedDate) {
		return true
	}
	if p.engine.hooks.CanExistingSupplySatisfyDemand != nil {
		if answer := p.engine.hooks.CanExistingSupplySatisfyDemand(s, d.NeedDate); answer != nil {
			return *answer
		}
	}
	return false
}

// fromNewSupply repeatedly creates fresh supply orders until the demand is
// covered or an order comes back empty. Demand dated before the run start
// cannot be resolved by new supply.
func (p *inventoryPass) fromNewSupply(inv *entities.Inventory, d *entities.Demand, needed *decimal.Decimal) bool {
	if !needed.IsPositive() {
		return true
	}
	if d.NeedDate.Before(p.startDate) {
		return false
	}
	if inv.PlanningMode == entities.Ignore {
		return false
	}

	// Batch tiers may already have routed part of this demand elsewhere.
	absorbedBefore := false
	for _, o := range p.orders {
		for _, part := range o.Parts {
			if part.Demand == d {
				absorbedBefore = true
			}
		}
	}
	for needed.IsPositive() {
		order := entities.NewSupplyOrder(inv)
		accepted := order.AddDemand(d, needed)
		if accepted.IsZero() {
			// The order cannot absorb anything: the demand cannot be
			// satisfied at all. Recorded by the caller, not fatal.
			break
		}
		if absorbedBefore {
			order.BatchOverflow = true
		}
		absorbedBefore = true
		p.orders = append(p.orders, order)
	}
	return needed.IsZero()
}
