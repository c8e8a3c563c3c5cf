package memory

import (
	"fmt"

	"github.com/planwerk/mrp/pkg/domain/entities"
	"github.com/planwerk/mrp/pkg/domain/repositories"
)

// InventoryRepository provides in-memory inventory storage
type InventoryRepository struct {
	inventories []*entities.Inventory
}

// NewInventoryRepository creates a new in-memory inventory repository
func NewInventoryRepository() *InventoryRepository {
	return &InventoryRepository{}
}

// Verify interface compliance
var _ repositories.InventoryRepository = (*InventoryRepository)(nil)

// LoadInventories loads inventories into the repository
func (r *InventoryRepository) LoadInventories(inventories []*entities.Inventory) error {
	r.inventories = append(r.inventories, inventories...)
	return nil
}

// AddInventory adds a single inventory
func (r *InventoryRepository) AddInventory(inv *entities.Inventory) {
	r.inventories = append(r.inventories, inv)
}

// GetInventory returns the inventory at (item, warehouse)
func (r *InventoryRepository) GetInventory(itemID entities.ItemID, warehouse string) (*entities.Inventory, error) {
	for _, inv := range r.inventories {
		if inv.Item.ID == itemID && inv.Warehouse == warehouse {
			return inv, nil
		}
	}
	return nil, fmt.Errorf("inventory not found: %s at %s", itemID, warehouse)
}

// GetInventoriesForItem returns every stock location of an item
func (r *InventoryRepository) GetInventoriesForItem(itemID entities.ItemID) ([]*entities.Inventory, error) {
	var out []*entities.Inventory
	for _, inv := range r.inventories {
		if inv.Item.ID == itemID {
			out = append(out, inv)
		}
	}
	return out, nil
}

// GetAllInventories returns all inventories
func (r *InventoryRepository) GetAllInventories() ([]*entities.Inventory, error) {
	out := make([]*entities.Inventory, len(r.inventories))
	copy(out, r.inventories)
	return out, nil
}

// ItemRepository provides in-memory item master storage
type ItemRepository struct {
	items map[entities.ItemID]*entities.Item
}

// NewItemRepository creates a new in-memory item repository
func NewItemRepository() *ItemRepository {
	return &ItemRepository{items: make(map[entities.ItemID]*entities.Item)}
}

var _ repositories.ItemRepository = (*ItemRepository)(nil)

// LoadItems loads item master data
func (r *ItemRepository) LoadItems(items []*entities.Item) error {
	for _, item := range items {
		r.items[item.ID] = item
	}
	return nil
}

// GetItem returns the item with the given id
func (r *ItemRepository) GetItem(itemID entities.ItemID) (*entities.Item, error) {
	item, ok := r.items[itemID]
	if !ok {
		return nil, fmt.Errorf("item not found: %s", itemID)
	}
	return item, nil
}

// GetAllItems returns all items
func (r *ItemRepository) GetAllItems() ([]*entities.Item, error) {
	out := make([]*entities.Item, 0, len(r.items))
	for _, item := range r.items {
		out = append(out, item)
	}
	return out, nil
}
