package extraction

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/planwerk/mrp/pkg/domain/entities"
)

func day(d int) time.Time {
	return time.Date(2026, time.April, d, 0, 0, 0, 0, time.UTC)
}

func newInventory(t *testing.T, batchable bool) *entities.Inventory {
	t.Helper()
	item, err := entities.NewItem("GEAR", "Gear", "EA")
	require.NoError(t, err)
	item.Batchable = batchable
	inv, err := entities.NewInventory(item, "MAIN")
	require.NoError(t, err)
	return inv
}

func adjust(t *testing.T, inv *entities.Inventory, qty int64, at time.Time, reason entities.AdjustmentReason) {
	t.Helper()
	adj, err := entities.NewAdjustment(decimal.NewFromInt(qty), at, reason)
	require.NoError(t, err)
	inv.AppendAdjustment(*adj)
}

func TestExtract_PartitionsDemandAndSupply(t *testing.T) {
	inv := newInventory(t, true)
	adjust(t, inv, -4, day(2), entities.SalesOrderReason{OrderNumber: "SO-1", Customer: "ACME"})
	adjust(t, inv, 10, day(1), entities.PurchaseOrderReason{OrderNumber: "PO-1"})

	demands, supplies := NewExtractor("MRP-").Extract(inv, day(30))

	require.Len(t, demands, 1)
	require.Equal(t, entities.SalesOrderDemand, demands[0].Kind)
	require.True(t, demands[0].Quantity.Equal(decimal.NewFromInt(4)))
	require.Equal(t, "ACME", demands[0].Customer)

	require.Len(t, supplies, 1)
	require.Equal(t, entities.PurchaseOrderSupply, supplies[0].Kind)
	require.True(t, supplies[0].Quantity.Equal(decimal.NewFromInt(10)))
}

func TestExtract_CutoffExcludesLaterAdjustments(t *testing.T) {
	inv := newInventory(t, true)
	adjust(t, inv, -4, day(2), entities.SalesOrderReason{OrderNumber: "SO-1"})
	adjust(t, inv, -6, day(20), entities.SalesOrderReason{OrderNumber: "SO-2"})

	demands, _ := NewExtractor("MRP-").Extract(inv, day(10))
	require.Len(t, demands, 1)
	require.Equal(t, "so|SO-1", demands[0].ReasonKey)
}

func TestExtract_NonBatchableFoldsSameReason(t *testing.T) {
	inv := newInventory(t, false)
	reason := entities.ActivityReason{JobID: "J1", OperationID: "OP1", RequirementID: "R1"}
	adjust(t, inv, -4, day(1), reason)
	adjust(t, inv, -6, day(3), reason)

	demands, _ := NewExtractor("MRP-").Extract(inv, day(30))

	// Two adjustments for one reason fold into quantity 10 at the earliest date.
	require.Len(t, demands, 1)
	require.True(t, demands[0].Quantity.Equal(decimal.NewFromInt(10)))
	require.True(t, demands[0].NeedDate.Equal(day(1)))
}

func TestExtract_BatchableKeepsAdjustmentsSeparate(t *testing.T) {
	inv := newInventory(t, true)
	reason := entities.ActivityReason{JobID: "J1", OperationID: "OP1", RequirementID: "R1"}
	adjust(t, inv, -4, day(1), reason)
	adjust(t, inv, -6, day(3), reason)

	demands, _ := NewExtractor("MRP-").Extract(inv, day(30))
	require.Len(t, demands, 2)
}

func TestExtract_UnknownReasonDropped(t *testing.T) {
	inv := newInventory(t, true)
	// Safety stock is demand-only; a positive safety adjustment maps to no
	// supply variant and must be dropped.
	adjust(t, inv, 5, day(1), entities.SafetyStockReason{})

	demands, supplies := NewExtractor("MRP-").Extract(inv, day(30))
	require.Empty(t, demands)
	require.Empty(t, supplies)
}

func TestExtract_ActivityDemandCarriesOperation(t *testing.T) {
	inv := newInventory(t, true)
	reason := entities.ActivityReason{JobID: "J1", OperationID: "OP1", RequirementID: "R1"}
	adjust(t, inv, -4, day(1), reason)

	req, err := entities.NewMaterialRequirement("R1", "OP1", "GEAR", decimal.NewFromInt(4))
	require.NoError(t, err)
	op := &entities.ManufacturingOrder{ID: "OP1", Quantity: decimal.NewFromInt(1),
		Requirements: []*entities.MaterialRequirement{req}}
	job := &entities.Job{ID: "J1", ProductItemID: "WIDGET",
		Orders: []*entities.ManufacturingOrder{op}}

	ex := NewExtractor("MRP-")
	ex.LookupRequirement = func(jobID, reqID string) *entities.MaterialRequirement { return req }
	ex.LookupJobByID = func(id string) *entities.Job { return job }

	demands, _ := ex.Extract(inv, day(30))
	require.Len(t, demands, 1)
	require.Same(t, req, demands[0].Requirement)
	require.Same(t, op, demands[0].Operation)
}

func TestExtract_ProtectedDemandExcluded(t *testing.T) {
	inv := newInventory(t, true)
	reason := entities.ActivityReason{JobID: "J1", OperationID: "OP1", RequirementID: "R1"}
	adjust(t, inv, -4, day(2), reason)

	req, err := entities.NewMaterialRequirement("R1", "OP1", "GEAR", decimal.NewFromInt(4))
	require.NoError(t, err)
	req.EligibleLots.Add("MRP-STALE")

	planned := &entities.Job{ID: "J-SUP", Policy: entities.Planned}

	ex := NewExtractor("MRP-")
	ex.LookupRequirement = func(jobID, reqID string) *entities.MaterialRequirement {
		return req
	}
	ex.LookupJob = func(code string) (*entities.Job, error) { return planned, nil }

	// Supplying job is only Planned: the pegging is not preserved, the line
	// stays excluded.
	demands, _ := ex.Extract(inv, day(30))
	require.Empty(t, demands)

	// A released supplying job keeps the line in play.
	planned.Policy = entities.Released
	demands, _ = ex.Extract(inv, day(30))
	require.Len(t, demands, 1)
}

func TestForecastConsumption_Backward(t *testing.T) {
	fc := &entities.Demand{Kind: entities.ForecastDemand, Quantity: decimal.NewFromInt(10), NeedDate: day(1)}
	so := &entities.Demand{Kind: entities.SalesOrderDemand, Quantity: decimal.NewFromInt(4), NeedDate: day(5)}

	out := NewForecastConsumer(entities.ForecastConsumeBackward)([]*entities.Demand{fc, so})

	require.Len(t, out, 2)
	require.True(t, fc.Quantity.Equal(decimal.NewFromInt(6)))
}

func TestForecastConsumption_FullyConsumedForecastRemoved(t *testing.T) {
	fc := &entities.Demand{Kind: entities.ForecastDemand, Quantity: decimal.NewFromInt(3), NeedDate: day(8)}
	so := &entities.Demand{Kind: entities.SalesOrderDemand, Quantity: decimal.NewFromInt(5), NeedDate: day(5)}

	out := NewForecastConsumer(entities.ForecastConsumeForward)([]*entities.Demand{fc, so})

	require.Len(t, out, 1)
	require.Equal(t, entities.SalesOrderDemand, out[0].Kind)
}
