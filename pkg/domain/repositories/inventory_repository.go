package repositories

import "github.com/planwerk/mrp/pkg/domain/entities"

// InventoryRepository provides access to inventory data
type InventoryRepository interface {
	GetInventory(itemID entities.ItemID, warehouse string) (*entities.Inventory, error)

	// GetInventoriesForItem returns every stock location of the item; the
	// leveler uses it when a requirement does not pin a warehouse.
	GetInventoriesForItem(itemID entities.ItemID) ([]*entities.Inventory, error)

	GetAllInventories() ([]*entities.Inventory, error)
	LoadInventories(inventories []*entities.Inventory) error
}

// ItemRepository provides access to item master data
type ItemRepository interface {
	GetItem(itemID entities.ItemID) (*entities.Item, error)
	GetAllItems() ([]*entities.Item, error)
	LoadItems(items []*entities.Item) error
}
