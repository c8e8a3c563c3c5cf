package orchestration

import (
	"errors"
	"fmt"
	"sync"

	"github.com/planwerk/mrp/pkg/domain/entities"
	"github.com/planwerk/mrp/pkg/domain/repositories"
)

// Cleaner removes the previous run's synthetic lot codes so a fresh run
// starts with an unconstrained eligibility picture. Codes on jobs kept under
// a preserved policy stay in place.
type Cleaner struct {
	jobs           repositories.JobRepository
	salesOrders    repositories.SalesOrderRepository
	inventories    repositories.InventoryRepository
	purchaseOrders repositories.PurchaseOrderRepository

	prefix string
}

// NewCleaner creates a cleaner for the given provenance prefix
func NewCleaner(
	jobs repositories.JobRepository,
	salesOrders repositories.SalesOrderRepository,
	inventories repositories.InventoryRepository,
	purchaseOrders repositories.PurchaseOrderRepository,
	prefix string,
) *Cleaner {
	return &Cleaner{
		jobs:           jobs,
		salesOrders:    salesOrders,
		inventories:    inventories,
		purchaseOrders: purchaseOrders,
		prefix:         prefix,
	}
}

// Clean clears stale synthetic codes across the four collections. The
// collections are disjoint, so the four passes run in parallel. Errors are
// collected and joined after all passes finish, never raised early, so a
// failing pass cannot leave the others half done.
func (c *Cleaner) Clean() error {
	var wg sync.WaitGroup
	errs := make([]error, 4)

	run := func(slot int, name string, f func() error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := f(); err != nil {
				errs[slot] = fmt.Errorf("cleanup of %s: %w", name, err)
			}
		}()
	}

	run(0, "jobs", c.cleanJobs)
	run(1, "sales orders", c.cleanSalesOrders)
	run(2, "inventories", c.cleanInventories)
	run(3, "purchase orders", c.cleanPurchaseOrders)

	wg.Wait()
	return errors.Join(errs...)
}

func (c *Cleaner) cleanJobs() error {
	jobs, err := c.jobs.GetAllJobs()
	if err != nil {
		return err
	}
	for _, job := range jobs {
		if !job.Policy.Preserved() && entities.IsSyntheticCode(job.LotCode, c.prefix) {
			job.LotCode = ""
		}
		for _, req := range job.Requirements() {
			req.EligibleLots.RemoveSynthetic(c.prefix)
		}
	}
	return nil
}

func (c *Cleaner) cleanSalesOrders() error {
	orders, err := c.salesOrders.GetAllSalesOrders()
	if err != nil {
		return err
	}
	for _, so := range orders {
		so.EligibleLots.RemoveSynthetic(c.prefix)
	}
	return nil
}

func (c *Cleaner) cleanInventories() error {
	inventories, err := c.inventories.GetAllInventories()
	if err != nil {
		return err
	}
	for _, inv := range inventories {
		inv.ResetAllocations()
		for _, lot := range inv.Lots {
			if entities.IsSyntheticCode(lot.Code, c.prefix) {
				lot.Code = ""
			}
		}
	}
	return nil
}

func (c *Cleaner) cleanPurchaseOrders() error {
	orders, err := c.purchaseOrders.GetAllPurchaseOrders()
	if err != nil {
		return err
	}
	for _, po := range orders {
		if entities.IsSyntheticCode(po.LotCode, c.prefix) {
			po.LotCode = ""
		}
	}
	return nil
}
