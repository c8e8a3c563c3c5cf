package cli

import (
	"errors"
	"fmt"
	"time"

	charmlog "github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/planwerk/mrp/pkg/application/services/allocation"
	"github.com/planwerk/mrp/pkg/application/services/extraction"
	"github.com/planwerk/mrp/pkg/application/services/materialization"
	"github.com/planwerk/mrp/pkg/application/services/orchestration"
	"github.com/planwerk/mrp/pkg/config"
	"github.com/planwerk/mrp/pkg/domain/entities"
	"github.com/planwerk/mrp/pkg/domain/repositories"
	"github.com/planwerk/mrp/pkg/domain/services"
	csvrepo "github.com/planwerk/mrp/pkg/infrastructure/repositories/csv"
	"github.com/planwerk/mrp/pkg/infrastructure/repositories/memory"
	"github.com/planwerk/mrp/pkg/infrastructure/repositories/sqlite"
)

type plantRepos struct {
	inventories    repositories.InventoryRepository
	jobs           repositories.JobRepository
	purchaseOrders repositories.PurchaseOrderRepository
	salesOrders    repositories.SalesOrderRepository
}

func newRunCommand(logger *charmlog.Logger) *cobra.Command {
	var (
		scenarioDir string
		dbPath      string
		configPath  string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one resolution pass over a scenario",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Default()
			if configPath != "" {
				var err error
				if cfg, err = config.Load(configPath); err != nil {
					return err
				}
			}

			repos, err := loadPlant(scenarioDir, dbPath, logger)
			if err != nil {
				return err
			}

			driver, err := buildDriver(repos, cfg, logger)
			if err != nil {
				return err
			}

			result, err := driver.Run(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), result.Summary())
			if !result.Warnings.Empty() {
				fmt.Fprintln(cmd.OutOrStdout(), "warnings:")
				fmt.Fprintln(cmd.OutOrStdout(), result.Warnings.Summary())
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&scenarioDir, "scenario", "", "directory with scenario CSV files")
	cmd.Flags().StringVar(&dbPath, "db", "", "path to a sqlite plant snapshot")
	cmd.Flags().StringVar(&configPath, "config", "", "path to a TOML run configuration")
	cmd.MarkFlagsMutuallyExclusive("scenario", "db")
	cmd.MarkFlagsOneRequired("scenario", "db")
	return cmd
}

// loadPlant assembles the repositories from either a CSV scenario directory
// or a sqlite snapshot.
func loadPlant(scenarioDir, dbPath string, logger *charmlog.Logger) (*plantRepos, error) {
	if dbPath != "" {
		store, err := sqlite.New(dbPath)
		if err != nil {
			return nil, err
		}
		defer store.Close()
		return hydratePlant(store)
	}

	scenario, err := csvrepo.NewLoader().LoadScenario(scenarioDir)
	if err != nil {
		var ve csvrepo.ValidationErrors
		if !errors.As(err, &ve) {
			return nil, err
		}
		// Rejected rows are reported but do not abort the run.
		for _, rowErr := range ve {
			logger.Warn("rejected scenario row", "err", rowErr)
		}
	}

	inventories := memory.NewInventoryRepository()
	if err := inventories.LoadInventories(scenario.Inventories); err != nil {
		return nil, err
	}
	jobs := memory.NewJobRepository()
	if err := jobs.LoadJobs(scenario.Jobs); err != nil {
		return nil, err
	}
	return &plantRepos{
		inventories:    inventories,
		jobs:           jobs,
		purchaseOrders: memory.NewPurchaseOrderRepository(),
		salesOrders:    memory.NewSalesOrderRepository(),
	}, nil
}

// hydratePlant copies a persisted snapshot into in-memory repositories. A
// resolution pass mutates entities across repeated repository reads, so the
// whole run must see one shared object graph; the store only supplies the
// initial state.
func hydratePlant(store *sqlite.Store) (*plantRepos, error) {
	snapshot, err := store.GetAllInventories()
	if err != nil {
		return nil, err
	}
	inventories := memory.NewInventoryRepository()
	if err := inventories.LoadInventories(snapshot); err != nil {
		return nil, err
	}

	allJobs, err := store.GetAllJobs()
	if err != nil {
		return nil, err
	}
	jobs := memory.NewJobRepository()
	if err := jobs.LoadJobs(allJobs); err != nil {
		return nil, err
	}

	allPOs, err := store.GetAllPurchaseOrders()
	if err != nil {
		return nil, err
	}
	purchaseOrders := memory.NewPurchaseOrderRepository()
	if err := purchaseOrders.LoadPurchaseOrders(allPOs); err != nil {
		return nil, err
	}

	allSales, err := store.GetAllSalesOrders()
	if err != nil {
		return nil, err
	}
	salesOrders := memory.NewSalesOrderRepository()
	if err := salesOrders.LoadSalesOrders(allSales); err != nil {
		return nil, err
	}

	return &plantRepos{
		inventories:    inventories,
		jobs:           jobs,
		purchaseOrders: purchaseOrders,
		salesOrders:    salesOrders,
	}, nil
}

func buildDriver(repos *plantRepos, cfg config.RunConfig, logger *charmlog.Logger) (*orchestration.Driver, error) {
	excessPolicy, err := cfg.ParsedExcessPolicy()
	if err != nil {
		return nil, err
	}
	forecastMode, err := cfg.ParsedForecastMode()
	if err != nil {
		return nil, err
	}

	extractor := extraction.NewExtractor(cfg.SyntheticPrefix)
	extractor.ConsumeForecast = extraction.NewForecastConsumer(forecastMode)
	extractor.LookupJob = repos.jobs.GetJobByLotCode
	extractor.LookupJobByID = func(id string) *entities.Job {
		job, err := repos.jobs.GetJob(id)
		if err != nil {
			return nil
		}
		return job
	}
	extractor.LookupRequirement = func(jobID, requirementID string) *entities.MaterialRequirement {
		job, err := repos.jobs.GetJob(jobID)
		if err != nil {
			return nil
		}
		for _, req := range job.Requirements() {
			if req.ID == requirementID {
				return req
			}
		}
		return nil
	}

	engine := allocation.NewEngine(services.NewEligibility(cfg.SyntheticPrefix), nil, logger)

	builder := materialization.NewBuilder(repos.jobs, repos.purchaseOrders, nil,
		materialization.Config{
			ExcessPolicy:              excessPolicy,
			LotPegging:                cfg.LotPegging,
			SyntheticPrefix:           cfg.SyntheticPrefix,
			MinOrderRoundingTolerance: cfg.Tolerance(),
		})

	start := cfg.Start(time.Now())
	return orchestration.NewDriver(orchestration.Deps{
		Inventories:    repos.inventories,
		Jobs:           repos.jobs,
		PurchaseOrders: repos.purchaseOrders,
		SalesOrders:    repos.salesOrders,
		Extractor:      extractor,
		Engine:         engine,
		Builder:        builder,
		Scheduler:      orchestration.NopScheduler{},
		Logger:         logger,
	}, orchestration.Config{
		Cutoff:          cfg.Cutoff(start),
		StartDate:       start,
		SyntheticPrefix: cfg.SyntheticPrefix,
	}), nil
}
