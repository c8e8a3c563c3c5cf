package entities

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// MaterialRequirement belongs to an operation and specifies the material an
// activity consumes. Its constraint type is relaxed to non-constraining for
// newly generated jobs while a resolution run is in flight and restored
// afterwards, so the scheduler is never destabilized mid-run.
type MaterialRequirement struct {
	ID          string
	OperationID string
	ItemID      ItemID

	// Warehouse pins sourcing to one inventory; empty means any warehouse
	Warehouse   string
	StorageArea string

	RequiredQuantity decimal.Decimal
	ConstraintType   ConstraintType

	EligibleLots LotSet

	// AllocationPolicy overrides the inventory policy when not PolicyNotSet
	AllocationPolicy AllocationPolicy

	AllowPartial bool
}

// NewMaterialRequirement creates a validated MaterialRequirement
func NewMaterialRequirement(id, operationID string, itemID ItemID, quantity decimal.Decimal) (*MaterialRequirement, error) {
	if id == "" {
		return nil, fmt.Errorf("material requirement id cannot be empty")
	}
	if operationID == "" {
		return nil, fmt.Errorf("material requirement operation id cannot be empty")
	}
	if itemID == "" {
		return nil, fmt.Errorf("material requirement item id cannot be empty")
	}
	if !quantity.IsPositive() {
		return nil, fmt.Errorf("material requirement quantity must be positive, got %s", quantity)
	}
	return &MaterialRequirement{
		ID:               id,
		OperationID:      operationID,
		ItemID:           itemID,
		RequiredQuantity: quantity,
		ConstraintType:   Constraining,
		EligibleLots:     NewLotSet(),
		AllowPartial:     true,
	}, nil
}

// Clone returns a deep copy, used when templates are copied into jobs
func (r *MaterialRequirement) Clone() *MaterialRequirement {
	c := *r
	c.EligibleLots = make(LotSet, len(r.EligibleLots))
	for code := range r.EligibleLots {
		c.EligibleLots[code] = struct{}{}
	}
	return &c
}
