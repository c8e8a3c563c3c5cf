package entities

import (
	"fmt"
	"sync"

	"github.com/shopspring/decimal"
)

// Inventory is an (item, warehouse) stock location. It exclusively owns its
// lot collection and its append-only adjustment ledger.
type Inventory struct {
	Item      *Item
	Warehouse string

	// LowLevelCode is the distance from a finished good in the BOM graph,
	// recomputed by the leveler on every run. LevelUnset until then.
	LowLevelCode int

	PlanningMode     PlanningMode
	AllocationPolicy AllocationPolicy

	// NetChange marks the inventory for reprocessing in a net-change run.
	// The leveler propagates it from parents to materials.
	NetChange bool

	// TemplateJobID references the job copied when demand materializes here
	TemplateJobID string

	// PurchaseStorageArea receives goods for generated purchase orders
	PurchaseStorageArea string

	Lots []*Lot

	// Unallocated is the pooled on-hand counter for items without lot control
	Unallocated decimal.Decimal

	// Notes accumulates planner-facing warnings from the run
	Notes []string

	adjustments []Adjustment

	// Derived activity-requirement view of the ledger. Reporting code may
	// query it while the run is appending adjustments, so check-else-compute
	// is guarded.
	cacheMu          sync.Mutex
	requirementCache []Adjustment
}

// LevelUnset is the sentinel low-level code before the leveler has run
const LevelUnset = -1

// NewInventory creates a validated Inventory
func NewInventory(item *Item, warehouse string) (*Inventory, error) {
	if item == nil {
		return nil, fmt.Errorf("inventory item cannot be nil")
	}
	if warehouse == "" {
		return nil, fmt.Errorf("inventory warehouse cannot be empty")
	}
	return &Inventory{
		Item:         item,
		Warehouse:    warehouse,
		LowLevelCode: LevelUnset,
	}, nil
}

// Key returns the (item, warehouse) identity of the inventory
func (inv *Inventory) Key() string {
	return string(inv.Item.ID) + "@" + inv.Warehouse
}

// AppendAdjustment appends a ledger event and invalidates derived views.
// The ledger is append-only; corrections are new adjustments.
func (inv *Inventory) AppendAdjustment(adj Adjustment) {
	inv.cacheMu.Lock()
	inv.adjustments = append(inv.adjustments, adj)
	inv.requirementCache = nil
	inv.cacheMu.Unlock()
}

// Adjustments returns a copy of the ledger; callers never see the raw slice
func (inv *Inventory) Adjustments() []Adjustment {
	inv.cacheMu.Lock()
	defer inv.cacheMu.Unlock()
	out := make([]Adjustment, len(inv.adjustments))
	copy(out, inv.adjustments)
	return out
}

// RequirementAdjustments returns the cached activity-reason subset of the
// ledger, computing it on first access after a write.
func (inv *Inventory) RequirementAdjustments() []Adjustment {
	inv.cacheMu.Lock()
	defer inv.cacheMu.Unlock()
	if inv.requirementCache == nil {
		cache := make([]Adjustment, 0)
		for _, adj := range inv.adjustments {
			if _, ok := adj.Reason.(ActivityReason); ok {
				cache = append(cache, adj)
			}
		}
		inv.requirementCache = cache
	}
	out := make([]Adjustment, len(inv.requirementCache))
	copy(out, inv.requirementCache)
	return out
}

// AddLot appends a lot to the inventory
func (inv *Inventory) AddLot(lot *Lot) {
	inv.Lots = append(inv.Lots, lot)
}

// OnHand returns total unallocated quantity. For lot-controlled items it is
// derived from lots, otherwise it is the pooled counter.
func (inv *Inventory) OnHand() decimal.Decimal {
	if !inv.Item.LotControlled {
		return inv.Unallocated
	}
	total := decimal.Zero
	for _, lot := range inv.Lots {
		total = total.Add(lot.Unallocated())
	}
	return total
}

// AddNote records a planner-facing warning on the inventory
func (inv *Inventory) AddNote(format string, args ...interface{}) {
	inv.Notes = append(inv.Notes, fmt.Sprintf(format, args...))
}

// ResetAllocations clears lot allocations before a fresh resolution pass
func (inv *Inventory) ResetAllocations() {
	for _, lot := range inv.Lots {
		lot.Allocated = decimal.Zero
	}
}
