// Package allocation implements the per-inventory sourcing loop: each demand
// is satisfied from on-hand stock, batch remainders, existing orders, or new
// supply, in an order determined by the allocation policy.
package allocation

import (
	"sort"
	"time"

	"github.com/charmbracelet/log"
	"github.com/shopspring/decimal"

	"github.com/planwerk/mrp/pkg/application/dto"
	"github.com/planwerk/mrp/pkg/domain/entities"
	"github.com/planwerk/mrp/pkg/domain/services"
)

// Hooks are optional extension points consulted during sourcing. A nil func
// means "use the built-in default".
type Hooks struct {
	// CanExistingSupplySatisfyDemand decides whether an existing order's
	// available date may be pushed to satisfy a demand due earlier.
	CanExistingSupplySatisfyDemand func(supply *entities.Supply, needDate time.Time) *bool

	// ExistingOrderNeedDateReset overrides the need date a supply shifts to
	// when it gains its first consumer.
	ExistingOrderNeedDateReset func(supply *entities.Supply, needDate time.Time) *time.Time
}

// Engine runs the tiered sourcing algorithm for one inventory at a time.
// State inside a pass is mutated sequentially; an Engine must not be shared
// across concurrent passes.
type Engine struct {
	eligibility *services.Eligibility
	hooks       *Hooks
	logger      *log.Logger

	// StagingKey optionally orders demands ahead of the date sort
	StagingKey func(*entities.Demand) int
}

// NewEngine creates an allocation engine
func NewEngine(eligibility *services.Eligibility, hooks *Hooks, logger *log.Logger) *Engine {
	if hooks == nil {
		hooks = &Hooks{}
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Engine{eligibility: eligibility, hooks: hooks, logger: logger}
}

// Resolution is the outcome of one inventory's sourcing pass
type Resolution struct {
	// Orders holds every supply order created during the pass, closed and
	// ready for materialization.
	Orders []*entities.SupplyOrder

	// Violations records demand that no tier and no new order could cover
	Violations []dto.PartialSupplyViolation

	// Allocated is the total quantity drawn from all tiers
	Allocated decimal.Decimal
}

// tier reduces the remaining quantity in place and reports whether the
// demand is now fully satisfied.
type tier func(inv *entities.Inventory, d *entities.Demand, needed *decimal.Decimal) bool

// ResolveInventory processes all demands of one inventory in staging-key and
// date order, sourcing each through the policy's tier sequence. Open supply
// orders close whenever a new distinct demand date begins, so no materialized
// order mixes demand from two dates.
func (e *Engine) ResolveInventory(
	inv *entities.Inventory,
	demands []*entities.Demand,
	supplies []*entities.Supply,
	startDate time.Time,
) *Resolution {
	res := &Resolution{Allocated: decimal.Zero}

	sorted := make([]*entities.Demand, len(demands))
	copy(sorted, demands)
	sort.SliceStable(sorted, func(i, j int) bool {
		if e.StagingKey != nil {
			ki, kj := e.StagingKey(sorted[i]), e.StagingKey(sorted[j])
			if ki != kj {
				return ki < kj
			}
		}
		return sorted[i].NeedDate.Before(sorted[j].NeedDate)
	})

	pass := &inventoryPass{
		engine:    e,
		inventory: inv,
		supplies:  supplies,
		startDate: startDate,
		result:    res,
	}

	var currentDate time.Time
	for _, d := range sorted {
		if !currentDate.IsZero() && !d.NeedDate.Equal(currentDate) {
			pass.closeAllOpen()
		}
		currentDate = d.NeedDate
		pass.resolveDemand(d)
	}
	pass.closeAllOpen()

	res.Orders = pass.orders
	return res
}

// inventoryPass carries the mutable state of one inventory's resolution
type inventoryPass struct {
	engine    *Engine
	inventory *entities.Inventory
	supplies  []*entities.Supply
	startDate time.Time
	orders    []*entities.SupplyOrder
	result    *Resolution
}

func (p *inventoryPass) resolveDemand(d *entities.Demand) {
	needed := d.Quantity
	policy := d.Policy(p.inventory)

	for _, t := range p.tierSequence(policy) {
		if t(p.inventory, d, &needed) {
			break
		}
	}
	if needed.IsPositive() {
		p.result.Violations = append(p.result.Violations, dto.PartialSupplyViolation{
			Inventory:      p.inventory,
			Demand:         d,
			Unmet:          needed,
			PartialAllowed: d.AllowPartial,
		})
		p.engine.logger.Warn("demand cannot be satisfied",
			"inventory", p.inventory.Key(), "kind", d.Kind.String(), "unmet", needed.String())
	}
	p.result.Allocated = p.result.Allocated.Add(d.Quantity.Sub(needed))
}

// tierSequence returns the sourcing order for the policy. Newest-first
// consumes on-hand last so the freshest material is preferred first.
func (p *inventoryPass) tierSequence(policy entities.AllocationPolicy) []tier {
	switch policy {
	case entities.NewestFirst:
		return []tier{
			p.fromBatches(true),
			p.fromExistingOrders,
			p.fromBatches(false),
			p.fromNewSupply,
			p.fromOnHand,
		}
	default:
		return []tier{
			p.fromOnHand,
			p.fromBatches(true),
			p.fromExistingOrders,
			p.fromBatches(false),
			p.fromNewSupply,
		}
	}
}

func (p *inventoryPass) closeAllOpen() {
	for _, o := range p.orders {
		if !o.Closed() {
			o.CloseBatching()
		}
	}
}
