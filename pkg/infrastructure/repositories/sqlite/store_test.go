package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/planwerk/mrp/pkg/domain/entities"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStore_MemoryDatabaseSharedAcrossConnections(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	// Hold one pooled connection so the second query is forced onto another.
	first, err := store.db.Conn(ctx)
	require.NoError(t, err)
	defer first.Close()

	second, err := store.db.Conn(ctx)
	require.NoError(t, err)
	defer second.Close()

	var count int
	require.NoError(t, second.QueryRowContext(ctx, `SELECT COUNT(*) FROM items`).Scan(&count))
	require.Zero(t, count)
}

func TestStore_ItemRoundTrip(t *testing.T) {
	store := openStore(t)

	item, err := entities.NewItem("GEAR", "Gear", "EA")
	require.NoError(t, err)
	item.Batchable = true
	item.BatchQuantity = decimal.NewFromInt(12)
	item.MinShelfLifeDays = 30
	require.NoError(t, store.LoadItems([]*entities.Item{item}))

	got, err := store.GetItem("GEAR")
	require.NoError(t, err)
	require.Equal(t, "Gear", got.Description)
	require.True(t, got.Batchable)
	require.True(t, got.BatchQuantity.Equal(decimal.NewFromInt(12)))
	require.Equal(t, 30, got.MinShelfLifeDays)

	_, err = store.GetItem("MISSING")
	require.Error(t, err)
}

func TestStore_InventoryRoundTrip(t *testing.T) {
	store := openStore(t)

	item, err := entities.NewItem("STEEL", "Steel bar", "KG")
	require.NoError(t, err)
	item.LotControlled = true
	require.NoError(t, store.LoadItems([]*entities.Item{item}))

	inv, err := entities.NewInventory(item, "MAIN")
	require.NoError(t, err)
	inv.PlanningMode = entities.GeneratePurchaseOrders
	inv.AllocationPolicy = entities.NewestFirst
	inv.PurchaseStorageArea = "DOCK-1"
	inv.NetChange = true

	produced := time.Date(2026, time.January, 10, 0, 0, 0, 0, time.UTC)
	lot, err := entities.NewLot("LOT-A", decimal.NewFromInt(25), produced)
	require.NoError(t, err)
	expiration := produced.AddDate(0, 8, 0)
	lot.Expiration = &expiration
	inv.AddLot(lot)

	inv.AppendAdjustment(entities.Adjustment{
		Quantity: decimal.NewFromInt(-10),
		Date:     time.Date(2026, time.June, 1, 0, 0, 0, 0, time.UTC),
		Reason:   entities.ActivityReason{JobID: "J1", OperationID: "MO1", RequirementID: "R1"},
	})
	inv.AppendAdjustment(entities.Adjustment{
		Quantity: decimal.NewFromInt(20),
		Date:     time.Date(2026, time.May, 15, 0, 0, 0, 0, time.UTC),
		Reason:   entities.PurchaseOrderReason{OrderNumber: "PO-7"},
	})

	require.NoError(t, store.LoadInventories([]*entities.Inventory{inv}))

	got, err := store.GetInventory("STEEL", "MAIN")
	require.NoError(t, err)
	require.Equal(t, entities.GeneratePurchaseOrders, got.PlanningMode)
	require.Equal(t, entities.NewestFirst, got.AllocationPolicy)
	require.Equal(t, "DOCK-1", got.PurchaseStorageArea)
	require.True(t, got.NetChange)
	require.True(t, got.Item.LotControlled)

	require.Len(t, got.Lots, 1)
	require.Equal(t, "LOT-A", got.Lots[0].Code)
	require.True(t, got.Lots[0].Quantity.Equal(decimal.NewFromInt(25)))
	require.NotNil(t, got.Lots[0].Expiration)
	require.True(t, got.Lots[0].Expiration.Equal(expiration))

	adjs := got.Adjustments()
	require.Len(t, adjs, 2)
	activity, ok := adjs[0].Reason.(entities.ActivityReason)
	require.True(t, ok)
	require.Equal(t, "R1", activity.RequirementID)
	po, ok := adjs[1].Reason.(entities.PurchaseOrderReason)
	require.True(t, ok)
	require.Equal(t, "PO-7", po.OrderNumber)
}

func TestStore_JobRoundTrip(t *testing.T) {
	store := openStore(t)

	job, err := entities.NewJob("T-GEAR", "GEAR", decimal.NewFromInt(1))
	require.NoError(t, err)
	job.Policy = entities.Firm
	job.LotCode = "MRP-AAAA"
	req, err := entities.NewMaterialRequirement("R1", "MO1", "STEEL", decimal.NewFromInt(2))
	require.NoError(t, err)
	req.EligibleLots = entities.NewLotSet("LOT-A")
	req.AllowPartial = false
	job.Orders = []*entities.ManufacturingOrder{
		{ID: "MO1", Quantity: decimal.NewFromInt(1), SuccessorID: "MO2",
			Requirements: []*entities.MaterialRequirement{req}},
		{ID: "MO2", Quantity: decimal.NewFromInt(1), ProductWarehouse: "MAIN"},
	}
	require.NoError(t, store.LoadJobs([]*entities.Job{job}))

	got, err := store.GetJob("T-GEAR")
	require.NoError(t, err)
	require.Equal(t, entities.Firm, got.Policy)
	require.Len(t, got.Orders, 2)
	require.Equal(t, "MO2", got.Orders[0].SuccessorID)
	require.Equal(t, "MAIN", got.Orders[1].ProductWarehouse)

	reqs := got.Requirements()
	require.Len(t, reqs, 1)
	require.False(t, reqs[0].AllowPartial)
	require.True(t, reqs[0].EligibleLots.Contains("LOT-A"))

	byCode, err := store.GetJobByLotCode("MRP-AAAA")
	require.NoError(t, err)
	require.Equal(t, "T-GEAR", byCode.ID)
}

func TestStore_AddJobAndPurchaseOrder(t *testing.T) {
	store := openStore(t)

	job, err := entities.NewJob("MRP-J0001", "GEAR", decimal.NewFromInt(5))
	require.NoError(t, err)
	job.Generated = true
	require.NoError(t, store.AddJob(job))

	po, err := entities.NewPurchaseOrder("MRP-PO0001", "STEEL", "MAIN", decimal.NewFromInt(100))
	require.NoError(t, err)
	po.Generated = true
	po.DemandLinks = []entities.DemandLink{{ReasonKey: "to|TO-1", Quantity: decimal.NewFromInt(100)}}
	require.NoError(t, store.AddPurchaseOrder(po))

	jobs, err := store.GetAllJobs()
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	require.True(t, jobs[0].Generated)

	orders, err := store.GetAllPurchaseOrders()
	require.NoError(t, err)
	require.Len(t, orders, 1)
	require.Len(t, orders[0].DemandLinks, 1)
	require.Equal(t, "to|TO-1", orders[0].DemandLinks[0].ReasonKey)
}

func TestStore_SalesOrderRoundTrip(t *testing.T) {
	store := openStore(t)

	due := time.Date(2026, time.July, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, store.LoadSalesOrders([]*entities.SalesOrder{{
		OrderNumber:  "SO-1",
		ItemID:       "GEAR",
		Warehouse:    "MAIN",
		Customer:     "ACME",
		Quantity:     decimal.NewFromInt(5),
		DueDate:      due,
		EligibleLots: entities.NewLotSet("LOT-B"),
	}}))

	orders, err := store.GetAllSalesOrders()
	require.NoError(t, err)
	require.Len(t, orders, 1)
	require.Equal(t, "ACME", orders[0].Customer)
	require.True(t, orders[0].DueDate.Equal(due))
	require.True(t, orders[0].EligibleLots.Contains("LOT-B"))
}
