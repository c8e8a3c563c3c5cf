package repositories

import "github.com/planwerk/mrp/pkg/domain/entities"

// JobRepository provides access to template and generated jobs
type JobRepository interface {
	GetJob(id string) (*entities.Job, error)
	GetAllJobs() ([]*entities.Job, error)

	// GetJobByLotCode resolves the job whose output carries the given pegging
	// code, used by the protected-demand filter during extraction.
	GetJobByLotCode(code string) (*entities.Job, error)

	AddJob(job *entities.Job) error
	LoadJobs(jobs []*entities.Job) error
}

// PurchaseOrderRepository provides access to purchase orders
type PurchaseOrderRepository interface {
	GetAllPurchaseOrders() ([]*entities.PurchaseOrder, error)
	AddPurchaseOrder(po *entities.PurchaseOrder) error
	LoadPurchaseOrders(orders []*entities.PurchaseOrder) error
}

// SalesOrderRepository provides access to sales order lines
type SalesOrderRepository interface {
	GetAllSalesOrders() ([]*entities.SalesOrder, error)
	LoadSalesOrders(orders []*entities.SalesOrder) error
}
