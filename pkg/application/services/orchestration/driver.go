// Package orchestration drives a complete resolution run: cleanup, leveling,
// then one extraction, allocation, and materialization pass per low-level
// code, with the scheduler re-invoked between levels.
package orchestration

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/planwerk/mrp/pkg/application/dto"
	"github.com/planwerk/mrp/pkg/application/services/allocation"
	"github.com/planwerk/mrp/pkg/application/services/extraction"
	"github.com/planwerk/mrp/pkg/application/services/materialization"
	"github.com/planwerk/mrp/pkg/domain/entities"
	"github.com/planwerk/mrp/pkg/domain/repositories"
	"github.com/planwerk/mrp/pkg/domain/services"
	"github.com/planwerk/mrp/pkg/infrastructure/events"
)

// Config carries the per-run settings of the driver
type Config struct {
	// RunID identifies the run's event stream; empty generates one.
	RunID string

	// Cutoff bounds the ledger horizon demands are extracted from
	Cutoff time.Time

	// StartDate is the earliest date new supply may be scheduled at
	StartDate time.Time

	// SyntheticPrefix marks lot codes created by this engine
	SyntheticPrefix string
}

// Deps are the collaborators a Driver resolves against
type Deps struct {
	Inventories    repositories.InventoryRepository
	Jobs           repositories.JobRepository
	PurchaseOrders repositories.PurchaseOrderRepository
	SalesOrders    repositories.SalesOrderRepository

	Extractor *extraction.Extractor
	Engine    *allocation.Engine
	Builder   *materialization.Builder

	Scheduler Scheduler
	Events    events.EventStore
	Logger    *log.Logger
}

// Driver runs the full resolution pass over a plant
type Driver struct {
	deps   Deps
	config Config
}

// NewDriver wires a driver from its collaborators. A nil scheduler, event
// store, or logger falls back to a no-op.
func NewDriver(deps Deps, config Config) *Driver {
	if deps.Scheduler == nil {
		deps.Scheduler = NopScheduler{}
	}
	if deps.Events == nil {
		deps.Events = events.NewInMemoryEventStore()
	}
	if deps.Logger == nil {
		deps.Logger = log.Default()
	}
	return &Driver{deps: deps, config: config}
}

// Run executes one complete resolution pass. Constraint relaxation on
// generated jobs is always undone before Run returns, whether the run
// completed, failed, or panicked.
func (d *Driver) Run(ctx context.Context) (result *dto.RunResult, err error) {
	runID := d.config.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	logger := d.deps.Logger.With("run", runID)

	result = &dto.RunResult{
		StartedAt: time.Now(),
		Warnings:  dto.NewWarnings(),
	}

	d.emit(runID, events.RunStartedEvent, events.RunStarted{
		RunID:     runID,
		Cutoff:    d.config.Cutoff,
		StartedAt: result.StartedAt,
	})
	defer func() {
		result.FinishedAt = time.Now()
		if err != nil {
			d.emit(runID, events.RunFinishedWithErrorEvent, events.RunFinishedWithError{
				RunID: runID,
				Error: err.Error(),
			})
			return
		}
		d.emit(runID, events.RunFinishedEvent, events.RunFinished{
			RunID:                 runID,
			JobsCreated:           result.JobsCreated,
			PurchaseOrdersCreated: result.PurchaseOrdersCreated,
			LevelsProcessed:       result.LevelsProcessed,
			Warnings:              result.Warnings.Messages(),
			Elapsed:               result.FinishedAt.Sub(result.StartedAt),
		})
	}()

	cleaner := NewCleaner(d.deps.Jobs, d.deps.SalesOrders, d.deps.Inventories,
		d.deps.PurchaseOrders, d.config.SyntheticPrefix)
	if err = cleaner.Clean(); err != nil {
		return result, err
	}

	snapshot := NewConstraintSnapshot()
	defer snapshot.Restore()
	if err = d.relaxExistingGeneratedJobs(snapshot); err != nil {
		return result, err
	}

	leveler := services.NewLeveler(d.deps.Inventories, d.deps.Jobs)
	leveling, err := leveler.Run()
	if err != nil {
		return result, fmt.Errorf("leveling failed: %w", err)
	}
	for _, inv := range leveling.Unleveled {
		result.Warnings.UnleveledInventories = append(result.Warnings.UnleveledInventories, inv)
		result.Warnings.Addf("inventory %s unreached by leveling, planned at level %d",
			inv.Key(), inv.LowLevelCode)
	}
	for _, inv := range leveling.MissingTemplates {
		result.Warnings.MissingTemplates = append(result.Warnings.MissingTemplates, inv)
		result.Warnings.Addf("inventory %s generates jobs but has no template", inv.Key())
	}

	levels, maxLevel, err := d.groupByLevel()
	if err != nil {
		return result, err
	}

	for level := 0; level <= maxLevel; level++ {
		if err = ctx.Err(); err != nil {
			return result, err
		}
		inventories := levels[level]
		if len(inventories) == 0 {
			continue
		}
		logger.Debug("resolving level", "level", level, "inventories", len(inventories))

		for _, inv := range inventories {
			if err = d.resolveInventory(runID, inv, snapshot, result); err != nil {
				return result, err
			}
		}
		result.LevelsProcessed++

		d.emit(runID, events.LevelCompletedEvent, events.LevelCompleted{
			RunID:       runID,
			Level:       level,
			Inventories: len(inventories),
		})

		// Barrier: the next level's ledger depends on what this level built.
		if err = d.deps.Scheduler.RunSimulation(ctx); err != nil {
			return result, fmt.Errorf("scheduler failed after level %d: %w", level, err)
		}
	}

	logger.Info(result.Summary())
	if !result.Warnings.Empty() {
		logger.Warn("run finished with warnings", "summary", result.Warnings.Summary())
	}
	return result, nil
}

// resolveInventory runs extraction, allocation, and materialization for one
// inventory.
func (d *Driver) resolveInventory(
	runID string,
	inv *entities.Inventory,
	snapshot *ConstraintSnapshot,
	result *dto.RunResult,
) error {
	if inv.PlanningMode == entities.Ignore {
		return nil
	}

	demands, supplies := d.deps.Extractor.Extract(inv, d.config.Cutoff)
	if len(demands) == 0 {
		return nil
	}

	resolution := d.deps.Engine.ResolveInventory(inv, demands, supplies, d.config.StartDate)

	for _, v := range resolution.Violations {
		result.Warnings.Violations = append(result.Warnings.Violations, v)
		d.emit(runID, events.PartialSupplyViolationEvent, events.PartialSupplyViolation{
			RunID:          runID,
			Inventory:      v.Inventory.Key(),
			Unmet:          v.Unmet,
			NeedDate:       v.Demand.NeedDate,
			PartialAllowed: v.PartialAllowed,
		})
	}

	for _, order := range resolution.Orders {
		if order.Empty() {
			continue
		}
		switch inv.PlanningMode {
		case entities.GenerateJobs:
			jobs, err := d.deps.Builder.MaterializeJobs(order, result.Warnings)
			if err != nil {
				return fmt.Errorf("materializing jobs for %s: %w", inv.Key(), err)
			}
			for _, job := range jobs {
				snapshot.RelaxJob(job)
				result.JobsCreated++
				d.emit(runID, events.JobCreatedEvent, events.JobCreated{
					RunID:    runID,
					JobID:    job.ID,
					ItemID:   job.ProductItemID,
					Quantity: job.Quantity,
					NeedDate: job.NeedDate,
				})
			}
		case entities.GeneratePurchaseOrders:
			po, err := d.deps.Builder.MaterializePurchaseOrder(order, result.Warnings)
			if err != nil {
				return fmt.Errorf("materializing purchase order for %s: %w", inv.Key(), err)
			}
			if po == nil {
				continue
			}
			result.PurchaseOrdersCreated++
			d.emit(runID, events.PurchaseOrderCreatedEvent, events.PurchaseOrderCreated{
				RunID:       runID,
				OrderNumber: po.OrderNumber,
				ItemID:      po.ItemID,
				Warehouse:   po.Warehouse,
				Quantity:    po.Quantity,
				NeedDate:    po.NeedDate,
			})
		}
	}
	return nil
}

// relaxExistingGeneratedJobs relaxes jobs left over from previous runs so
// they do not constrain this one.
func (d *Driver) relaxExistingGeneratedJobs(snapshot *ConstraintSnapshot) error {
	jobs, err := d.deps.Jobs.GetAllJobs()
	if err != nil {
		return err
	}
	for _, job := range jobs {
		snapshot.RelaxJob(job)
	}
	return nil
}

// groupByLevel buckets plannable inventories by low-level code. Inventories
// the leveler never coded go to the deepest bucket so they are still planned.
func (d *Driver) groupByLevel() (map[int][]*entities.Inventory, int, error) {
	inventories, err := d.deps.Inventories.GetAllInventories()
	if err != nil {
		return nil, 0, err
	}

	levels := make(map[int][]*entities.Inventory)
	maxLevel := 0
	for _, inv := range inventories {
		level := inv.LowLevelCode
		if level < 0 {
			level = 0
		}
		levels[level] = append(levels[level], inv)
		if level > maxLevel {
			maxLevel = level
		}
	}
	for _, bucket := range levels {
		sort.Slice(bucket, func(i, j int) bool { return bucket[i].Key() < bucket[j].Key() })
	}
	return levels, maxLevel, nil
}

func (d *Driver) emit(runID, eventType string, data interface{}) {
	if err := d.deps.Events.AppendEvent(runID, events.NewEvent(eventType, runID, data)); err != nil {
		d.deps.Logger.Error("failed to append event", "type", eventType, "err", err)
	}
}
