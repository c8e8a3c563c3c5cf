package memory

import (
	"fmt"

	"github.com/planwerk/mrp/pkg/domain/entities"
	"github.com/planwerk/mrp/pkg/domain/repositories"
)

// JobRepository provides in-memory storage for template and generated jobs
type JobRepository struct {
	jobs map[string]*entities.Job
	seq  []string
}

// NewJobRepository creates a new in-memory job repository
func NewJobRepository() *JobRepository {
	return &JobRepository{jobs: make(map[string]*entities.Job)}
}

var _ repositories.JobRepository = (*JobRepository)(nil)

// LoadJobs loads jobs into the repository
func (r *JobRepository) LoadJobs(jobs []*entities.Job) error {
	for _, job := range jobs {
		if err := r.AddJob(job); err != nil {
			return err
		}
	}
	return nil
}

// AddJob adds a single job
func (r *JobRepository) AddJob(job *entities.Job) error {
	if _, exists := r.jobs[job.ID]; exists {
		return fmt.Errorf("job already exists: %s", job.ID)
	}
	r.jobs[job.ID] = job
	r.seq = append(r.seq, job.ID)
	return nil
}

// GetJob returns the job with the given id
func (r *JobRepository) GetJob(id string) (*entities.Job, error) {
	job, ok := r.jobs[id]
	if !ok {
		return nil, fmt.Errorf("job not found: %s", id)
	}
	return job, nil
}

// GetJobByLotCode resolves the job pegged to a lot code
func (r *JobRepository) GetJobByLotCode(code string) (*entities.Job, error) {
	for _, id := range r.seq {
		if r.jobs[id].LotCode == code {
			return r.jobs[id], nil
		}
	}
	return nil, fmt.Errorf("no job pegged to lot code %q", code)
}

// GetAllJobs returns all jobs in insertion order
func (r *JobRepository) GetAllJobs() ([]*entities.Job, error) {
	out := make([]*entities.Job, 0, len(r.seq))
	for _, id := range r.seq {
		out = append(out, r.jobs[id])
	}
	return out, nil
}

// PurchaseOrderRepository provides in-memory purchase order storage
type PurchaseOrderRepository struct {
	orders []*entities.PurchaseOrder
}

// NewPurchaseOrderRepository creates a new in-memory purchase order repository
func NewPurchaseOrderRepository() *PurchaseOrderRepository {
	return &PurchaseOrderRepository{}
}

var _ repositories.PurchaseOrderRepository = (*PurchaseOrderRepository)(nil)

// LoadPurchaseOrders loads purchase orders
func (r *PurchaseOrderRepository) LoadPurchaseOrders(orders []*entities.PurchaseOrder) error {
	r.orders = append(r.orders, orders...)
	return nil
}

// AddPurchaseOrder adds a single purchase order
func (r *PurchaseOrderRepository) AddPurchaseOrder(po *entities.PurchaseOrder) error {
	r.orders = append(r.orders, po)
	return nil
}

// GetAllPurchaseOrders returns all purchase orders
func (r *PurchaseOrderRepository) GetAllPurchaseOrders() ([]*entities.PurchaseOrder, error) {
	out := make([]*entities.PurchaseOrder, len(r.orders))
	copy(out, r.orders)
	return out, nil
}

// SalesOrderRepository provides in-memory sales order storage
type SalesOrderRepository struct {
	orders []*entities.SalesOrder
}

// NewSalesOrderRepository creates a new in-memory sales order repository
func NewSalesOrderRepository() *SalesOrderRepository {
	return &SalesOrderRepository{}
}

var _ repositories.SalesOrderRepository = (*SalesOrderRepository)(nil)

// LoadSalesOrders loads sales orders
func (r *SalesOrderRepository) LoadSalesOrders(orders []*entities.SalesOrder) error {
	r.orders = append(r.orders, orders...)
	return nil
}

// GetAllSalesOrders returns all sales orders
func (r *SalesOrderRepository) GetAllSalesOrders() ([]*entities.SalesOrder, error) {
	out := make([]*entities.SalesOrder, len(r.orders))
	copy(out, r.orders)
	return out, nil
}
