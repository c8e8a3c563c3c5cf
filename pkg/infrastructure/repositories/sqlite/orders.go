package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/planwerk/mrp/pkg/domain/entities"
)

// GetJob returns one job with its manufacturing orders and requirements
func (s *Store) GetJob(id string) (*entities.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	jobs, err := s.queryJobs(`WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	if len(jobs) == 0 {
		return nil, fmt.Errorf("job %s not found", id)
	}
	return jobs[0], nil
}

// GetAllJobs returns every job
func (s *Store) GetAllJobs() ([]*entities.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.queryJobs(``)
}

// GetJobByLotCode returns the job pegged to the given synthetic code
func (s *Store) GetJobByLotCode(code string) (*entities.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	jobs, err := s.queryJobs(`WHERE lot_code = ?`, code)
	if err != nil {
		return nil, err
	}
	if len(jobs) == 0 {
		return nil, fmt.Errorf("no job pegged to lot code %s", code)
	}
	return jobs[0], nil
}

// AddJob inserts one job
func (s *Store) AddJob(job *entities.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := insertJob(tx, job); err != nil {
		return err
	}
	return tx.Commit()
}

// LoadJobs replaces all jobs
func (s *Store) LoadJobs(jobs []*entities.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, table := range []string{"material_requirements", "manufacturing_orders", "jobs"} {
		if _, err := tx.Exec(`DELETE FROM ` + table); err != nil {
			return err
		}
	}
	for _, job := range jobs {
		if err := insertJob(tx, job); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func insertJob(tx *sql.Tx, job *entities.Job) error {
	_, err := tx.Exec(`INSERT INTO jobs (id, product_item_id, quantity,
		need_date, priority, customer, order_number, lot_code, policy, generated)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		job.ID, string(job.ProductItemID), job.Quantity.String(),
		encodeTime(job.NeedDate), job.Priority, job.Customer, job.OrderNumber,
		job.LotCode, int(job.Policy), job.Generated)
	if err != nil {
		return fmt.Errorf("failed to insert job %s: %w", job.ID, err)
	}
	for i, mo := range job.Orders {
		_, err := tx.Exec(`INSERT INTO manufacturing_orders (id, job_id,
			position, quantity, successor_id, product_warehouse)
			VALUES (?, ?, ?, ?, ?, ?)`,
			mo.ID, job.ID, i, mo.Quantity.String(), mo.SuccessorID, mo.ProductWarehouse)
		if err != nil {
			return fmt.Errorf("failed to insert order %s: %w", mo.ID, err)
		}
		for j, req := range mo.Requirements {
			lots, err := encodeLotSet(req.EligibleLots)
			if err != nil {
				return err
			}
			_, err = tx.Exec(`INSERT INTO material_requirements (id, mo_id,
				position, operation_id, item_id, warehouse, storage_area,
				required_qty, constraint_type, allocation_policy, allow_partial,
				eligible_lots) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				req.ID, mo.ID, j, req.OperationID, string(req.ItemID),
				req.Warehouse, req.StorageArea, req.RequiredQuantity.String(),
				int(req.ConstraintType), int(req.AllocationPolicy),
				req.AllowPartial, lots)
			if err != nil {
				return fmt.Errorf("failed to insert requirement %s: %w", req.ID, err)
			}
		}
	}
	return nil
}

func (s *Store) queryJobs(where string, args ...interface{}) ([]*entities.Job, error) {
	rows, err := s.db.Query(`SELECT id, product_item_id, quantity, need_date,
		priority, customer, order_number, lot_code, policy, generated
		FROM jobs `+where+` ORDER BY id`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []*entities.Job
	for rows.Next() {
		var job entities.Job
		var quantity string
		var needDate sql.NullString
		var policy int
		if err := rows.Scan(&job.ID, &job.ProductItemID, &quantity, &needDate,
			&job.Priority, &job.Customer, &job.OrderNumber, &job.LotCode,
			&policy, &job.Generated); err != nil {
			return nil, err
		}
		job.Policy = entities.JobPolicy(policy)
		if job.Quantity, err = decodeDecimal(quantity); err != nil {
			return nil, err
		}
		if job.NeedDate, err = decodeTime(needDate); err != nil {
			return nil, err
		}
		jobs = append(jobs, &job)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, job := range jobs {
		if err := s.attachOrders(job); err != nil {
			return nil, err
		}
	}
	return jobs, nil
}

func (s *Store) attachOrders(job *entities.Job) error {
	rows, err := s.db.Query(`SELECT id, quantity, successor_id, product_warehouse
		FROM manufacturing_orders WHERE job_id = ? ORDER BY position`, job.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var mo entities.ManufacturingOrder
		var quantity string
		if err := rows.Scan(&mo.ID, &quantity, &mo.SuccessorID, &mo.ProductWarehouse); err != nil {
			return err
		}
		if mo.Quantity, err = decodeDecimal(quantity); err != nil {
			return err
		}
		job.Orders = append(job.Orders, &mo)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for _, mo := range job.Orders {
		if err := s.attachRequirements(mo); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) attachRequirements(mo *entities.ManufacturingOrder) error {
	rows, err := s.db.Query(`SELECT id, operation_id, item_id, warehouse,
		storage_area, required_qty, constraint_type, allocation_policy,
		allow_partial, eligible_lots FROM material_requirements
		WHERE mo_id = ? ORDER BY position`, mo.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var req entities.MaterialRequirement
		var quantity, lots string
		var constraint, policy int
		if err := rows.Scan(&req.ID, &req.OperationID, &req.ItemID,
			&req.Warehouse, &req.StorageArea, &quantity, &constraint, &policy,
			&req.AllowPartial, &lots); err != nil {
			return err
		}
		req.ConstraintType = entities.ConstraintType(constraint)
		req.AllocationPolicy = entities.AllocationPolicy(policy)
		if req.RequiredQuantity, err = decodeDecimal(quantity); err != nil {
			return err
		}
		if req.EligibleLots, err = decodeLotSet(lots); err != nil {
			return err
		}
		mo.Requirements = append(mo.Requirements, &req)
	}
	return rows.Err()
}

// GetAllPurchaseOrders returns every purchase order
func (s *Store) GetAllPurchaseOrders() ([]*entities.PurchaseOrder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`SELECT order_number, item_id, warehouse, quantity,
		need_date, receipt_date, storage_area, lot_code, generated, demand_links
		FROM purchase_orders ORDER BY order_number`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []*entities.PurchaseOrder
	for rows.Next() {
		var po entities.PurchaseOrder
		var quantity, links string
		var needDate, receiptDate sql.NullString
		if err := rows.Scan(&po.OrderNumber, &po.ItemID, &po.Warehouse,
			&quantity, &needDate, &receiptDate, &po.StorageArea, &po.LotCode,
			&po.Generated, &links); err != nil {
			return nil, err
		}
		if po.Quantity, err = decodeDecimal(quantity); err != nil {
			return nil, err
		}
		if po.NeedDate, err = decodeTime(needDate); err != nil {
			return nil, err
		}
		if po.ReceiptDate, err = decodeTime(receiptDate); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(links), &po.DemandLinks); err != nil {
			return nil, fmt.Errorf("failed to decode demand links of %s: %w", po.OrderNumber, err)
		}
		orders = append(orders, &po)
	}
	return orders, rows.Err()
}

// AddPurchaseOrder inserts one purchase order
func (s *Store) AddPurchaseOrder(po *entities.PurchaseOrder) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	links, err := json.Marshal(po.DemandLinks)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`INSERT INTO purchase_orders (order_number, item_id,
		warehouse, quantity, need_date, receipt_date, storage_area, lot_code,
		generated, demand_links) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		po.OrderNumber, string(po.ItemID), po.Warehouse, po.Quantity.String(),
		encodeTime(po.NeedDate), encodeTime(po.ReceiptDate), po.StorageArea,
		po.LotCode, po.Generated, string(links))
	if err != nil {
		return fmt.Errorf("failed to insert purchase order %s: %w", po.OrderNumber, err)
	}
	return nil
}

// LoadPurchaseOrders replaces all purchase orders
func (s *Store) LoadPurchaseOrders(orders []*entities.PurchaseOrder) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM purchase_orders`); err != nil {
		return err
	}
	for _, po := range orders {
		links, err := json.Marshal(po.DemandLinks)
		if err != nil {
			return err
		}
		_, err = tx.Exec(`INSERT INTO purchase_orders (order_number, item_id,
			warehouse, quantity, need_date, receipt_date, storage_area, lot_code,
			generated, demand_links) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			po.OrderNumber, string(po.ItemID), po.Warehouse, po.Quantity.String(),
			encodeTime(po.NeedDate), encodeTime(po.ReceiptDate), po.StorageArea,
			po.LotCode, po.Generated, string(links))
		if err != nil {
			return fmt.Errorf("failed to insert purchase order %s: %w", po.OrderNumber, err)
		}
	}
	return tx.Commit()
}

// GetAllSalesOrders returns every sales order
func (s *Store) GetAllSalesOrders() ([]*entities.SalesOrder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`SELECT order_number, item_id, warehouse, customer,
		quantity, due_date, eligible_lots FROM sales_orders ORDER BY order_number`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []*entities.SalesOrder
	for rows.Next() {
		var so entities.SalesOrder
		var quantity, lots string
		var dueDate sql.NullString
		if err := rows.Scan(&so.OrderNumber, &so.ItemID, &so.Warehouse,
			&so.Customer, &quantity, &dueDate, &lots); err != nil {
			return nil, err
		}
		if so.Quantity, err = decodeDecimal(quantity); err != nil {
			return nil, err
		}
		if so.DueDate, err = decodeTime(dueDate); err != nil {
			return nil, err
		}
		if so.EligibleLots, err = decodeLotSet(lots); err != nil {
			return nil, err
		}
		orders = append(orders, &so)
	}
	return orders, rows.Err()
}

// LoadSalesOrders replaces all sales orders
func (s *Store) LoadSalesOrders(orders []*entities.SalesOrder) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM sales_orders`); err != nil {
		return err
	}
	for _, so := range orders {
		lots, err := encodeLotSet(so.EligibleLots)
		if err != nil {
			return err
		}
		_, err = tx.Exec(`INSERT INTO sales_orders (order_number, item_id,
			warehouse, customer, quantity, due_date, eligible_lots)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			so.OrderNumber, string(so.ItemID), so.Warehouse, so.Customer,
			so.Quantity.String(), encodeTime(so.DueDate), lots)
		if err != nil {
			return fmt.Errorf("failed to insert sales order %s: %w", so.OrderNumber, err)
		}
	}
	return tx.Commit()
}
