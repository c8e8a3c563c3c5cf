package allocation

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/planwerk/mrp/pkg/domain/entities"
	"github.com/planwerk/mrp/pkg/domain/services"
)

var runStart = time.Date(2026, time.May, 1, 0, 0, 0, 0, time.UTC)

func at(days int) time.Time { return runStart.AddDate(0, 0, days) }

func qty(n int64) decimal.Decimal { return decimal.NewFromInt(n) }

func newEngine() *Engine {
	return NewEngine(services.NewEligibility("MRP-"), nil, nil)
}

func makeInventory(t *testing.T, lotControlled bool) *entities.Inventory {
	t.Helper()
	item, err := entities.NewItem("GEAR", "Gear", "EA")
	require.NoError(t, err)
	item.LotControlled = lotControlled
	inv, err := entities.NewInventory(item, "MAIN")
	require.NoError(t, err)
	inv.PlanningMode = entities.GenerateJobs
	return inv
}

func demand(quantity int64, needDate time.Time) *entities.Demand {
	return &entities.Demand{
		Kind:         entities.ActivityDemand,
		Quantity:     qty(quantity),
		NeedDate:     needDate,
		AllowPartial: true,
	}
}

func TestResolve_OnHandThenNewSupply(t *testing.T) {
	// On-hand 10, one demand for 15 at T+1: the on-hand tier covers 10 and
	// the remaining 5 becomes one supply order at T+1.
	inv := makeInventory(t, false)
	inv.Unallocated = qty(10)

	res := newEngine().ResolveInventory(inv, []*entities.Demand{demand(15, at(1))}, nil, runStart)

	require.Empty(t, res.Violations)
	require.True(t, inv.Unallocated.IsZero())
	require.Len(t, res.Orders, 1)
	require.True(t, res.Orders[0].Demanded().Equal(qty(5)))
	require.True(t, res.Orders[0].NeedDate.Equal(at(1)))
	require.True(t, res.Orders[0].Closed())
}

func TestResolve_IneligibleInventorySkipsOnHand(t *testing.T) {
	// The inventory override vetoes on-hand sourcing: stock stays untouched
	// and the demand falls through to new supply.
	inv := makeInventory(t, false)
	inv.Unallocated = qty(10)

	no := false
	eligibility := services.NewEligibility("MRP-")
	eligibility.OverrideInventory = func(*entities.Demand, *entities.Inventory) *bool { return &no }
	engine := NewEngine(eligibility, nil, nil)

	res := engine.ResolveInventory(inv, []*entities.Demand{demand(5, at(1))}, nil, runStart)

	require.Empty(t, res.Violations)
	require.True(t, inv.Unallocated.Equal(qty(10)))
	require.Len(t, res.Orders, 1)
	require.True(t, res.Orders[0].Demanded().Equal(qty(5)))
}

func TestResolve_QuantityConservation(t *testing.T) {
	inv := makeInventory(t, false)
	inv.Unallocated = qty(7)
	inv.PlanningMode = entities.Ignore // no new supply possible

	demands := []*entities.Demand{demand(5, at(1)), demand(6, at(2))}
	res := newEngine().ResolveInventory(inv, demands, nil, runStart)

	unmet := decimal.Zero
	for _, v := range res.Violations {
		unmet = unmet.Add(v.Unmet)
	}
	total := qty(11)
	require.True(t, res.Allocated.Add(unmet).Equal(total),
		"allocated %s + unmet %s != %s", res.Allocated, unmet, total)
}

func TestResolve_ViolationsCarryPartialAllowed(t *testing.T) {
	inv := makeInventory(t, false)
	inv.Unallocated = qty(3)
	inv.PlanningMode = entities.Ignore // no new supply possible

	short := demand(5, at(1))
	strict := demand(5, at(2))
	strict.AllowPartial = false

	res := newEngine().ResolveInventory(inv, []*entities.Demand{short, strict}, nil, runStart)

	require.Len(t, res.Violations, 2)
	byDemand := map[*entities.Demand]bool{}
	for _, v := range res.Violations {
		byDemand[v.Demand] = v.PartialAllowed
	}
	require.True(t, byDemand[short])
	require.False(t, byDemand[strict])
}

func TestResolve_BatchWindowClosesOnNewDate(t *testing.T) {
	inv := makeInventory(t, false)

	demands := []*entities.Demand{demand(5, at(1)), demand(3, at(2))}
	res := newEngine().ResolveInventory(inv, demands, nil, runStart)

	require.Len(t, res.Orders, 2)
	for _, o := range res.Orders {
		dates := map[time.Time]bool{}
		for _, part := range o.Parts {
			dates[part.Demand.NeedDate] = true
		}
		require.Len(t, dates, 1, "an order must not mix demand dates")
	}
}

func TestResolve_SameDateDemandsShareBatchSurplus(t *testing.T) {
	// Batch size 10: demand of 6 rounds up to one batch, leaving surplus 4
	// which the second same-date demand draws from the open batch tier.
	inv := makeInventory(t, false)
	inv.Item.BatchQuantity = qty(10)

	demands := []*entities.Demand{demand(6, at(1)), demand(4, at(1))}
	res := newEngine().ResolveInventory(inv, demands, nil, runStart)

	require.Empty(t, res.Violations)
	require.Len(t, res.Orders, 1)
	require.True(t, res.Orders[0].Demanded().Equal(qty(10)))
	require.True(t, res.Orders[0].Produced().Equal(qty(10)))
}

func TestResolve_ClosedBatchSurplusServesLaterDate(t *testing.T) {
	inv := makeInventory(t, false)
	inv.Item.BatchQuantity = qty(10)

	// First date needs 6 (batch rounds to 10, surplus 4); later date needs 3
	// and must come out of the closed batch's surplus, not a new order.
	demands := []*entities.Demand{demand(6, at(1)), demand(3, at(2))}
	res := newEngine().ResolveInventory(inv, demands, nil, runStart)

	require.Empty(t, res.Violations)
	require.Len(t, res.Orders, 1)
	require.True(t, res.Orders[0].Demanded().Equal(qty(9)))
}

func TestResolve_EligibilityForcesNewSupply(t *testing.T) {
	// Demand pinned to LOTX; on-hand lot has no code and the eligible set is
	// non-empty and non-synthetic, so on-hand is skipped and new supply used.
	inv := makeInventory(t, true)
	lot, err := entities.NewLot("", qty(20), runStart.AddDate(0, 0, -30))
	require.NoError(t, err)
	inv.AddLot(lot)

	req, err := entities.NewMaterialRequirement("R1", "OP1", "GEAR", qty(5))
	require.NoError(t, err)
	req.EligibleLots.Add("LOTX")

	d := demand(5, at(1))
	d.Requirement = req
	d.LotControlled = true

	res := newEngine().ResolveInventory(inv, []*entities.Demand{d}, nil, runStart)

	require.True(t, lot.Allocated.IsZero())
	require.Len(t, res.Orders, 1)
	require.True(t, res.Orders[0].Demanded().Equal(qty(5)))
}

func TestResolve_NewestFirstConsumesOnHandLast(t *testing.T) {
	// 10 on hand and 10 of existing supply: newest-first prefers scheduled
	// supply and leaves the shelf stock alone.
	inv := makeInventory(t, false)
	inv.Unallocated = qty(10)
	inv.AllocationPolicy = entities.NewestFirst

	supply := &entities.Supply{
		Kind:          entities.ActivitySupply,
		Quantity:      qty(10),
		AvailableDate: runStart,
	}

	res := newEngine().ResolveInventory(inv, []*entities.Demand{demand(10, at(1))}, []*entities.Supply{supply}, runStart)

	require.Empty(t, res.Violations)
	require.True(t, inv.Unallocated.Equal(qty(10)))
	require.True(t, supply.Remaining().IsZero())
	require.Empty(t, res.Orders)
}

func TestResolve_OldestFirstLotOrder(t *testing.T) {
	inv := makeInventory(t, true)
	inv.AllocationPolicy = entities.OldestFirst

	older, err := entities.NewLot("L-OLD", qty(4), runStart.AddDate(0, 0, -60))
	require.NoError(t, err)
	newer, err := entities.NewLot("L-NEW", qty(4), runStart.AddDate(0, 0, -10))
	require.NoError(t, err)
	inv.AddLot(newer)
	inv.AddLot(older)

	d := demand(4, at(1))
	d.LotControlled = true
	newEngine().ResolveInventory(inv, []*entities.Demand{d}, nil, runStart)

	require.True(t, older.Allocated.Equal(qty(4)))
	require.True(t, newer.Allocated.IsZero())
}

func TestResolve_ShelfLifeFiltersLots(t *testing.T) {
	inv := makeInventory(t, true)
	inv.Item.MinShelfLifeDays = 30

	exp := at(10) // expires 10 days after start, demand needs 30 days of life
	expiring, err := entities.NewLot("L-EXP", qty(5), runStart.AddDate(0, 0, -5))
	require.NoError(t, err)
	expiring.Expiration = &exp
	inv.AddLot(expiring)

	d := demand(5, at(1))
	d.LotControlled = true
	res := newEngine().ResolveInventory(inv, []*entities.Demand{d}, nil, runStart)

	require.True(t, expiring.Allocated.IsZero())
	require.Len(t, res.Orders, 1)
}

func TestResolve_DisallowPartialSkipsShortSources(t *testing.T) {
	inv := makeInventory(t, false)
	inv.Unallocated = qty(3)

	d := demand(5, at(1))
	d.AllowPartial = false
	res := newEngine().ResolveInventory(inv, []*entities.Demand{d}, nil, runStart)

	// The short pool is skipped entirely; the whole 5 lands on a new order.
	require.True(t, inv.Unallocated.Equal(qty(3)))
	require.Len(t, res.Orders, 1)
	require.True(t, res.Orders[0].Demanded().Equal(qty(5)))
}

func TestResolve_DemandBeforeStartIsViolation(t *testing.T) {
	inv := makeInventory(t, false)

	d := demand(5, runStart.AddDate(0, 0, -1))
	res := newEngine().ResolveInventory(inv, []*entities.Demand{d}, nil, runStart)

	require.Empty(t, res.Orders)
	require.Len(t, res.Violations, 1)
	require.True(t, res.Violations[0].Unmet.Equal(qty(5)))
}

func TestResolve_ExistingSupplyNeedDateFollowsFirstConsumerOnly(t *testing.T) {
	inv := makeInventory(t, false)
	supply := &entities.Supply{Kind: entities.PurchaseOrderSupply, Quantity: qty(10), AvailableDate: runStart}

	d1 := demand(4, at(3))
	d2 := demand(4, at(5))
	newEngine().ResolveInventory(inv, []*entities.Demand{d1, d2}, []*entities.Supply{supply}, runStart)

	require.True(t, supply.NeedDate.Equal(at(3)))
}

func TestResolve_PushHookAllowsLateSupply(t *testing.T) {
	inv := makeInventory(t, false)
	inv.PlanningMode = entities.Ignore
	supply := &entities.Supply{Kind: entities.PurchaseOrderSupply, Quantity: qty(5), AvailableDate: at(10)}

	yes := true
	hooks := &Hooks{CanExistingSupplySatisfyDemand: func(*entities.Supply, time.Time) *bool { return &yes }}
	e := NewEngine(services.NewEligibility("MRP-"), hooks, nil)

	res := e.ResolveInventory(inv, []*entities.Demand{demand(5, at(1))}, []*entities.Supply{supply}, runStart)

	require.Empty(t, res.Violations)
	require.True(t, supply.Remaining().IsZero())
}

func TestResolve_Determinism(t *testing.T) {
	build := func() (*entities.Inventory, []*entities.Demand) {
		inv := makeInventory(t, false)
		inv.Unallocated = qty(8)
		inv.Item.BatchQuantity = qty(5)
		return inv, []*entities.Demand{demand(6, at(1)), demand(7, at(2)), demand(2, at(2))}
	}

	inv1, d1 := build()
	inv2, d2 := build()
	r1 := newEngine().ResolveInventory(inv1, d1, nil, runStart)
	r2 := newEngine().ResolveInventory(inv2, d2, nil, runStart)

	require.Equal(t, len(r1.Orders), len(r2.Orders))
	for i := range r1.Orders {
		require.True(t, r1.Orders[i].Demanded().Equal(r2.Orders[i].Demanded()))
		require.True(t, r1.Orders[i].NeedDate.Equal(r2.Orders[i].NeedDate))
	}
	require.True(t, r1.Allocated.Equal(r2.Allocated))
}

func TestResolve_StagingKeyOrdersAheadOfDate(t *testing.T) {
	inv := makeInventory(t, false)
	inv.Unallocated = qty(5)

	late := demand(5, at(5))
	late.StagingKey = 0
	early := demand(5, at(1))
	early.StagingKey = 1

	e := newEngine()
	e.StagingKey = func(d *entities.Demand) int { return d.StagingKey }
	e.ResolveInventory(inv, []*entities.Demand{early, late}, nil, runStart)

	// The staged-first demand drains the pool despite its later date.
	require.True(t, inv.Unallocated.IsZero())
}
