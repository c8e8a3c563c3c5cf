package services

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/planwerk/mrp/pkg/domain/entities"
	"github.com/planwerk/mrp/pkg/infrastructure/repositories/memory"
)

type levelerFixture struct {
	inventories *memory.InventoryRepository
	jobs        *memory.JobRepository
}

func newLevelerFixture() *levelerFixture {
	return &levelerFixture{
		inventories: memory.NewInventoryRepository(),
		jobs:        memory.NewJobRepository(),
	}
}

func (f *levelerFixture) addInventory(t *testing.T, itemID entities.ItemID, templateID string) *entities.Inventory {
	t.Helper()
	item, err := entities.NewItem(itemID, string(itemID), "EA")
	require.NoError(t, err)
	inv, err := entities.NewInventory(item, "MAIN")
	require.NoError(t, err)
	inv.TemplateJobID = templateID
	inv.PlanningMode = entities.GenerateJobs
	f.inventories.AddInventory(inv)
	return inv
}

func (f *levelerFixture) addTemplate(t *testing.T, id string, product entities.ItemID, materials ...entities.ItemID) *entities.Job {
	t.Helper()
	job, err := entities.NewJob(id, product, decimal.NewFromInt(1))
	require.NoError(t, err)
	mo := &entities.ManufacturingOrder{ID: id + "-MO1", Quantity: decimal.NewFromInt(1)}
	for _, m := range materials {
		req, err := entities.NewMaterialRequirement(id+"-"+string(m), mo.ID, m, decimal.NewFromInt(1))
		require.NoError(t, err)
		mo.Requirements = append(mo.Requirements, req)
	}
	job.Orders = []*entities.ManufacturingOrder{mo}
	require.NoError(t, f.jobs.AddJob(job))
	return job
}

func TestLeveler_CodesIncreaseDownTheBOM(t *testing.T) {
	f := newLevelerFixture()

	// GOOD is built from SUB, SUB from RAW.
	good := f.addInventory(t, "GOOD", "T-GOOD")
	sub := f.addInventory(t, "SUB", "T-SUB")
	raw := f.addInventory(t, "RAW", "")
	raw.PlanningMode = entities.GeneratePurchaseOrders
	f.addTemplate(t, "T-GOOD", "GOOD", "SUB")
	f.addTemplate(t, "T-SUB", "SUB", "RAW")

	result, err := NewLeveler(f.inventories, f.jobs).Run()
	require.NoError(t, err)

	require.Equal(t, 0, good.LowLevelCode)
	require.Equal(t, 1, sub.LowLevelCode)
	require.Equal(t, 2, raw.LowLevelCode)
	require.Equal(t, 2, result.MaxLevel)
	require.Empty(t, result.Unleveled)
}

func TestLeveler_SharedMaterialTakesDeepestLevel(t *testing.T) {
	f := newLevelerFixture()

	f.addInventory(t, "TOP", "T-TOP")
	f.addInventory(t, "MID", "T-MID")
	shared := f.addInventory(t, "SHARED", "")
	f.addTemplate(t, "T-TOP", "TOP", "MID", "SHARED")
	f.addTemplate(t, "T-MID", "MID", "SHARED")

	_, err := NewLeveler(f.inventories, f.jobs).Run()
	require.NoError(t, err)

	// SHARED sits at depth 1 under TOP but depth 2 under MID; max wins.
	require.Equal(t, 2, shared.LowLevelCode)
}

func TestLeveler_CycleAbortsWithChain(t *testing.T) {
	f := newLevelerFixture()

	f.addInventory(t, "A", "T-A")
	f.addInventory(t, "B", "T-B")
	f.addTemplate(t, "T-A", "A", "B")
	f.addTemplate(t, "T-B", "B", "A")

	_, err := NewLeveler(f.inventories, f.jobs).Run()
	require.Error(t, err)
	require.True(t, strings.Contains(err.Error(), "cycle"))
}

func TestLeveler_IsolatedInventoryStillPlanned(t *testing.T) {
	f := newLevelerFixture()

	f.addInventory(t, "GOOD", "T-GOOD")
	f.addInventory(t, "PART", "")
	orphan := f.addInventory(t, "ORPHAN", "")
	orphan.PlanningMode = entities.GeneratePurchaseOrders
	f.addTemplate(t, "T-GOOD", "GOOD", "PART")

	result, err := NewLeveler(f.inventories, f.jobs).Run()
	require.NoError(t, err)

	require.Len(t, result.Unleveled, 1)
	require.Equal(t, orphan, result.Unleveled[0])
	require.Equal(t, result.MaxLevel, orphan.LowLevelCode)
}

func TestLeveler_NetChangePropagatesToMaterials(t *testing.T) {
	f := newLevelerFixture()

	good := f.addInventory(t, "GOOD", "T-GOOD")
	good.NetChange = true
	sub := f.addInventory(t, "SUB", "T-SUB")
	raw := f.addInventory(t, "RAW", "")
	f.addTemplate(t, "T-GOOD", "GOOD", "SUB")
	f.addTemplate(t, "T-SUB", "SUB", "RAW")

	_, err := NewLeveler(f.inventories, f.jobs).Run()
	require.NoError(t, err)

	require.True(t, sub.NetChange)
	require.True(t, raw.NetChange)
}

func TestLeveler_MissingTemplateReported(t *testing.T) {
	f := newLevelerFixture()
	inv := f.addInventory(t, "GOOD", "")
	inv.PlanningMode = entities.GenerateJobs

	result, err := NewLeveler(f.inventories, f.jobs).Run()
	require.NoError(t, err)
	require.Len(t, result.MissingTemplates, 1)
}
