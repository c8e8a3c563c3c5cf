package orchestration

import (
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/planwerk/mrp/pkg/domain/entities"
	"github.com/planwerk/mrp/pkg/infrastructure/repositories/memory"
)

func seedCleanupFixture(t *testing.T) (*memory.JobRepository, *memory.SalesOrderRepository, *memory.InventoryRepository, *memory.PurchaseOrderRepository) {
	t.Helper()

	jobs := memory.NewJobRepository()
	planned, err := entities.NewJob("J1", "GEAR", decimal.NewFromInt(5))
	require.NoError(t, err)
	planned.Generated = true
	planned.LotCode = "MRP-AAAA"
	req, err := entities.NewMaterialRequirement("R1", "OP", "STEEL", decimal.NewFromInt(2))
	require.NoError(t, err)
	req.EligibleLots = entities.NewLotSet("MRP-BBBB", "LOT-REAL")
	planned.Orders = []*entities.ManufacturingOrder{{ID: "MO1", Quantity: decimal.NewFromInt(5),
		Requirements: []*entities.MaterialRequirement{req}}}
	require.NoError(t, jobs.AddJob(planned))

	released, err := entities.NewJob("J2", "GEAR", decimal.NewFromInt(5))
	require.NoError(t, err)
	released.Generated = true
	released.Policy = entities.Released
	released.LotCode = "MRP-CCCC"
	require.NoError(t, jobs.AddJob(released))

	sales := memory.NewSalesOrderRepository()
	require.NoError(t, sales.LoadSalesOrders([]*entities.SalesOrder{{
		OrderNumber:  "SO-1",
		ItemID:       "GEAR",
		EligibleLots: entities.NewLotSet("MRP-DDDD"),
	}}))

	inventories := memory.NewInventoryRepository()
	item, err := entities.NewItem("GEAR", "Gear", "EA")
	require.NoError(t, err)
	item.LotControlled = true
	inv, err := entities.NewInventory(item, "MAIN")
	require.NoError(t, err)
	lot, err := entities.NewLot("MRP-EEEE", decimal.NewFromInt(4), time.Now())
	require.NoError(t, err)
	inv.AddLot(lot)
	require.NoError(t, inventories.LoadInventories([]*entities.Inventory{inv}))

	pos := memory.NewPurchaseOrderRepository()
	po, err := entities.NewPurchaseOrder("PO-1", "GEAR", "MAIN", decimal.NewFromInt(3))
	require.NoError(t, err)
	po.LotCode = "MRP-FFFF"
	require.NoError(t, pos.AddPurchaseOrder(po))

	return jobs, sales, inventories, pos
}

func collectCodes(t *testing.T, jobs *memory.JobRepository, sales *memory.SalesOrderRepository, inventories *memory.InventoryRepository, pos *memory.PurchaseOrderRepository) []string {
	t.Helper()
	var codes []string
	all, err := jobs.GetAllJobs()
	require.NoError(t, err)
	for _, j := range all {
		codes = append(codes, j.LotCode)
		for _, r := range j.Requirements() {
			for c := range r.EligibleLots {
				codes = append(codes, c)
			}
		}
	}
	sos, err := sales.GetAllSalesOrders()
	require.NoError(t, err)
	for _, so := range sos {
		for c := range so.EligibleLots {
			codes = append(codes, c)
		}
	}
	invs, err := inventories.GetAllInventories()
	require.NoError(t, err)
	for _, inv := range invs {
		for _, lot := range inv.Lots {
			codes = append(codes, lot.Code)
		}
	}
	orders, err := pos.GetAllPurchaseOrders()
	require.NoError(t, err)
	for _, po := range orders {
		codes = append(codes, po.LotCode)
	}
	sort.Strings(codes)
	return codes
}

func TestCleaner_RemovesSyntheticCodesEverywhere(t *testing.T) {
	jobs, sales, inventories, pos := seedCleanupFixture(t)
	cleaner := NewCleaner(jobs, sales, inventories, pos, "MRP")

	require.NoError(t, cleaner.Clean())

	codes := collectCodes(t, jobs, sales, inventories, pos)
	for _, stale := range []string{"MRP-AAAA", "MRP-BBBB", "MRP-DDDD", "MRP-EEEE", "MRP-FFFF"} {
		require.NotContains(t, codes, stale)
	}
	// The real lot code on the requirement must survive.
	require.Contains(t, codes, "LOT-REAL")
}

func TestCleaner_PreservedJobKeepsItsCode(t *testing.T) {
	jobs, sales, inventories, pos := seedCleanupFixture(t)
	cleaner := NewCleaner(jobs, sales, inventories, pos, "MRP")

	require.NoError(t, cleaner.Clean())

	released, err := jobs.GetJob("J2")
	require.NoError(t, err)
	require.Equal(t, "MRP-CCCC", released.LotCode)
}

func TestCleaner_Idempotent(t *testing.T) {
	jobs, sales, inventories, pos := seedCleanupFixture(t)
	cleaner := NewCleaner(jobs, sales, inventories, pos, "MRP")

	require.NoError(t, cleaner.Clean())
	after1 := collectCodes(t, jobs, sales, inventories, pos)
	require.NoError(t, cleaner.Clean())
	after2 := collectCodes(t, jobs, sales, inventories, pos)

	require.Equal(t, after1, after2)
}

type failingJobRepo struct {
	*memory.JobRepository
}

func (f *failingJobRepo) GetAllJobs() ([]*entities.Job, error) {
	return nil, errors.New("backing store down")
}

func TestCleaner_FailsTogether(t *testing.T) {
	jobs, sales, inventories, pos := seedCleanupFixture(t)
	cleaner := NewCleaner(&failingJobRepo{jobs}, sales, inventories, pos, "MRP")

	err := cleaner.Clean()
	require.Error(t, err)
	require.Contains(t, err.Error(), "jobs")

	// The other three collections were still cleaned.
	orders, err2 := pos.GetAllPurchaseOrders()
	require.NoError(t, err2)
	require.Empty(t, orders[0].LotCode)
	sos, err2 := sales.GetAllSalesOrders()
	require.NoError(t, err2)
	require.False(t, sos[0].EligibleLots.Contains("MRP-DDDD"))
}
