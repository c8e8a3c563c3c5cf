package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/planwerk/mrp/pkg/domain/entities"
)

// GetItem returns one item definition by id
func (s *Store) GetItem(itemID entities.ItemID) (*entities.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getItem(itemID)
}

func (s *Store) getItem(itemID entities.ItemID) (*entities.Item, error) {
	row := s.db.QueryRow(`SELECT id, description, unit_of_measure, batchable,
		lot_controlled, auto_split_qty, batch_qty, min_order_qty, min_age_days,
		min_shelf_life_days FROM items WHERE id = ?`, string(itemID))
	item, err := scanItem(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("item %s not found", itemID)
	}
	return item, err
}

// GetAllItems returns every item definition
func (s *Store) GetAllItems() ([]*entities.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`SELECT id, description, unit_of_measure, batchable,
		lot_controlled, auto_split_qty, batch_qty, min_order_qty, min_age_days,
		min_shelf_life_days FROM items ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*entities.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// LoadItems replaces all item definitions
func (s *Store) LoadItems(items []*entities.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM items`); err != nil {
		return err
	}
	for _, item := range items {
		_, err := tx.Exec(`INSERT INTO items (id, description, unit_of_measure,
			batchable, lot_controlled, auto_split_qty, batch_qty, min_order_qty,
			min_age_days, min_shelf_life_days) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			string(item.ID), item.Description, item.UnitOfMeasure,
			item.Batchable, item.LotControlled,
			item.AutoSplitQuantity.String(), item.BatchQuantity.String(),
			item.MinOrderQuantity.String(), item.MinAgeDays, item.MinShelfLifeDays)
		if err != nil {
			return fmt.Errorf("failed to insert item %s: %w", item.ID, err)
		}
	}
	return tx.Commit()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanItem(row rowScanner) (*entities.Item, error) {
	var item entities.Item
	var autoSplit, batch, minOrder string
	err := row.Scan(&item.ID, &item.Description, &item.UnitOfMeasure,
		&item.Batchable, &item.LotControlled, &autoSplit, &batch, &minOrder,
		&item.MinAgeDays, &item.MinShelfLifeDays)
	if err != nil {
		return nil, err
	}
	if item.AutoSplitQuantity, err = decodeDecimal(autoSplit); err != nil {
		return nil, err
	}
	if item.BatchQuantity, err = decodeDecimal(batch); err != nil {
		return nil, err
	}
	if item.MinOrderQuantity, err = decodeDecimal(minOrder); err != nil {
		return nil, err
	}
	return &item, nil
}

// GetInventory returns one stock location with its lots and ledger
func (s *Store) GetInventory(itemID entities.ItemID, warehouse string) (*entities.Inventory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	inventories, err := s.queryInventories(`WHERE item_id = ? AND warehouse = ?`,
		string(itemID), warehouse)
	if err != nil {
		return nil, err
	}
	if len(inventories) == 0 {
		return nil, fmt.Errorf("inventory %s@%s not found", itemID, warehouse)
	}
	return inventories[0], nil
}

// GetInventoriesForItem returns every stock location of one item
func (s *Store) GetInventoriesForItem(itemID entities.ItemID) ([]*entities.Inventory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.queryInventories(`WHERE item_id = ?`, string(itemID))
}

// GetAllInventories returns every stock location
func (s *Store) GetAllInventories() ([]*entities.Inventory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.queryInventories(``)
}

func (s *Store) queryInventories(where string, args ...interface{}) ([]*entities.Inventory, error) {
	rows, err := s.db.Query(`SELECT item_id, warehouse, planning_mode,
		allocation_policy, template_job_id, purchase_storage_area, unallocated,
		net_change FROM inventories `+where+` ORDER BY item_id, warehouse`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var inventories []*entities.Inventory
	for rows.Next() {
		var itemID, warehouse, templateJobID, storageArea, unallocated string
		var mode, policy int
		var netChange bool
		if err := rows.Scan(&itemID, &warehouse, &mode, &policy, &templateJobID,
			&storageArea, &unallocated, &netChange); err != nil {
			return nil, err
		}
		item, err := s.getItem(entities.ItemID(itemID))
		if err != nil {
			return nil, err
		}
		inv, err := entities.NewInventory(item, warehouse)
		if err != nil {
			return nil, err
		}
		inv.PlanningMode = entities.PlanningMode(mode)
		inv.AllocationPolicy = entities.AllocationPolicy(policy)
		inv.TemplateJobID = templateJobID
		inv.PurchaseStorageArea = storageArea
		inv.NetChange = netChange
		if inv.Unallocated, err = decodeDecimal(unallocated); err != nil {
			return nil, err
		}
		if err := s.attachLots(inv); err != nil {
			return nil, err
		}
		if err := s.attachAdjustments(inv); err != nil {
			return nil, err
		}
		inventories = append(inventories, inv)
	}
	return inventories, rows.Err()
}

func (s *Store) attachLots(inv *entities.Inventory) error {
	rows, err := s.db.Query(`SELECT code, quantity, allocated, production_date,
		expiration FROM lots WHERE item_id = ? AND warehouse = ? ORDER BY id`,
		string(inv.Item.ID), inv.Warehouse)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var code, quantity, allocated string
		var produced, expiration sql.NullString
		if err := rows.Scan(&code, &quantity, &allocated, &produced, &expiration); err != nil {
			return err
		}
		lot := &entities.Lot{Code: code}
		if lot.Quantity, err = decodeDecimal(quantity); err != nil {
			return err
		}
		if lot.Allocated, err = decodeDecimal(allocated); err != nil {
			return err
		}
		if lot.ProductionDate, err = decodeTime(produced); err != nil {
			return err
		}
		exp, err := decodeTime(expiration)
		if err != nil {
			return err
		}
		if !exp.IsZero() {
			lot.Expiration = &exp
		}
		inv.AddLot(lot)
	}
	return rows.Err()
}

func (s *Store) attachAdjustments(inv *entities.Inventory) error {
	rows, err := s.db.Query(`SELECT quantity, date, reason_type, reason_json
		FROM adjustments WHERE item_id = ? AND warehouse = ? ORDER BY id`,
		string(inv.Item.ID), inv.Warehouse)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var quantity, reasonType, reasonJSON string
		var date sql.NullString
		if err := rows.Scan(&quantity, &date, &reasonType, &reasonJSON); err != nil {
			return err
		}
		var adj entities.Adjustment
		if adj.Quantity, err = decodeDecimal(quantity); err != nil {
			return err
		}
		if adj.Date, err = decodeTime(date); err != nil {
			return err
		}
		if adj.Reason, err = decodeReason(reasonType, reasonJSON); err != nil {
			return err
		}
		inv.AppendAdjustment(adj)
	}
	return rows.Err()
}

// LoadInventories replaces all stock locations, their lots, and their ledgers
func (s *Store) LoadInventories(inventories []*entities.Inventory) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, table := range []string{"inventories", "lots", "adjustments"} {
		if _, err := tx.Exec(`DELETE FROM ` + table); err != nil {
			return err
		}
	}

	for _, inv := range inventories {
		_, err := tx.Exec(`INSERT INTO inventories (item_id, warehouse,
			planning_mode, allocation_policy, template_job_id,
			purchase_storage_area, unallocated, net_change)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			string(inv.Item.ID), inv.Warehouse, int(inv.PlanningMode),
			int(inv.AllocationPolicy), inv.TemplateJobID,
			inv.PurchaseStorageArea, inv.Unallocated.String(), inv.NetChange)
		if err != nil {
			return fmt.Errorf("failed to insert inventory %s: %w", inv.Key(), err)
		}
		for _, lot := range inv.Lots {
			var expiration interface{}
			if lot.Expiration != nil {
				expiration = encodeTime(*lot.Expiration)
			}
			_, err := tx.Exec(`INSERT INTO lots (item_id, warehouse, code,
				quantity, allocated, production_date, expiration)
				VALUES (?, ?, ?, ?, ?, ?, ?)`,
				string(inv.Item.ID), inv.Warehouse, lot.Code,
				lot.Quantity.String(), lot.Allocated.String(),
				encodeTime(lot.ProductionDate), expiration)
			if err != nil {
				return fmt.Errorf("failed to insert lot for %s: %w", inv.Key(), err)
			}
		}
		for _, adj := range inv.Adjustments() {
			reasonType, reasonJSON, err := encodeReason(adj.Reason)
			if err != nil {
				return err
			}
			_, err = tx.Exec(`INSERT INTO adjustments (item_id, warehouse,
				quantity, date, reason_type, reason_json) VALUES (?, ?, ?, ?, ?, ?)`,
				string(inv.Item.ID), inv.Warehouse, adj.Quantity.String(),
				encodeTime(adj.Date), reasonType, reasonJSON)
			if err != nil {
				return fmt.Errorf("failed to insert adjustment for %s: %w", inv.Key(), err)
			}
		}
	}
	return tx.Commit()
}

// encodeReason flattens a reason variant into its type tag and JSON payload
func encodeReason(reason entities.AdjustmentReason) (string, string, error) {
	var tag string
	switch reason.(type) {
	case entities.ActivityReason:
		tag = "activity"
	case entities.PurchaseOrderReason:
		tag = "purchase_order"
	case entities.SalesOrderReason:
		tag = "sales_order"
	case entities.TransferOrderReason:
		tag = "transfer_order"
	case entities.ForecastReason:
		tag = "forecast"
	case entities.SafetyStockReason:
		tag = "safety_stock"
	default:
		return "", "", fmt.Errorf("unknown adjustment reason %T", reason)
	}
	raw, err := json.Marshal(reason)
	if err != nil {
		return "", "", err
	}
	return tag, string(raw), nil
}

func decodeReason(tag, raw string) (entities.AdjustmentReason, error) {
	data := []byte(raw)
	switch tag {
	case "activity":
		var r entities.ActivityReason
		return r, json.Unmarshal(data, &r)
	case "purchase_order":
		var r entities.PurchaseOrderReason
		return r, json.Unmarshal(data, &r)
	case "sales_order":
		var r entities.SalesOrderReason
		return r, json.Unmarshal(data, &r)
	case "transfer_order":
		var r entities.TransferOrderReason
		return r, json.Unmarshal(data, &r)
	case "forecast":
		var r entities.ForecastReason
		return r, json.Unmarshal(data, &r)
	case "safety_stock":
		return entities.SafetyStockReason{}, nil
	default:
		return nil, fmt.Errorf("unknown reason type %q", tag)
	}
}
