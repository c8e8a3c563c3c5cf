package entities

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ItemID identifies an item across warehouses
type ItemID string

// Item holds item master data shared by all inventories of the item
type Item struct {
	ID            ItemID
	Description   string
	UnitOfMeasure string

	// Batchable permits multiple supply orders for one underlying reason.
	// Non-batchable items fold same-reason demand into a single requirement.
	Batchable     bool
	LotControlled bool

	// AutoSplitQuantity bounds the size of each manufacturing order copied
	// from the template during materialization. Zero means no splitting.
	AutoSplitQuantity decimal.Decimal

	// BatchQuantity rounds new supply up to a multiple; the surplus is exposed
	// to later demands as a batch remainder. Zero means exact quantities.
	BatchQuantity decimal.Decimal

	MinOrderQuantity decimal.Decimal

	// Lot eligibility constraints for on-hand sourcing
	MinAgeDays       int
	MinShelfLifeDays int
}

// NewItem creates a validated Item
func NewItem(id ItemID, description, uom string) (*Item, error) {
	if id == "" {
		return nil, fmt.Errorf("item id cannot be empty")
	}
	if description == "" {
		return nil, fmt.Errorf("item description cannot be empty")
	}
	if uom == "" {
		return nil, fmt.Errorf("unit of measure cannot be empty")
	}
	return &Item{ID: id, Description: description, UnitOfMeasure: uom}, nil
}
