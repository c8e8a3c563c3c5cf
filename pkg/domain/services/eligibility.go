package services

import "github.com/planwerk/mrp/pkg/domain/entities"

// EligibilityOverride lets integrations decide eligibility ahead of the
// built-in rules. A nil return means "no opinion, use the defaults".
type EligibilityOverride func(demand *entities.Demand, lotCode string) *bool

// InventoryOverride lets integrations exclude a whole inventory as a sourcing
// location for a demand. A nil return means "no opinion, use the defaults".
type InventoryOverride func(demand *entities.Demand, inv *entities.Inventory) *bool

// Eligibility decides whether a given supply may satisfy a given demand based
// on lot codes. SyntheticPrefix marks codes created by this engine.
type Eligibility struct {
	Override          EligibilityOverride
	OverrideInventory InventoryOverride
	SyntheticPrefix   string
}

// NewEligibility creates the rule set with the given provenance prefix
func NewEligibility(prefix string) *Eligibility {
	return &Eligibility{SyntheticPrefix: prefix}
}

// unconstrained reports whether the demand pins no foreign lots. A set
// holding nothing but this run's own synthetic codes constrains nothing.
func (e *Eligibility) unconstrained(demand *entities.Demand) bool {
	eligible := demand.EligibleLots()
	return len(eligible) == 0 || eligible.OnlySynthetic(e.SyntheticPrefix)
}

// IsInventoryEligible decides whether an inventory may serve as an on-hand
// source for the demand. Without an override every inventory is eligible;
// lot-level rules still apply to its stock.
func (e *Eligibility) IsInventoryEligible(demand *entities.Demand, inv *entities.Inventory) bool {
	if e.OverrideInventory != nil {
		if answer := e.OverrideInventory(demand, inv); answer != nil {
			return *answer
		}
	}
	return true
}

// IsSupplyEligible decides whether a scheduled supply (job or purchase order)
// may satisfy the demand. A supply that was never lot-pegged is always
// eligible: its provenance is still open and pegging can bind it later.
func (e *Eligibility) IsSupplyEligible(demand *entities.Demand, supply *entities.Supply) bool {
	if e.Override != nil {
		if answer := e.Override(demand, supply.LotCode); answer != nil {
			return *answer
		}
	}
	if supply.LotCode == "" {
		return true
	}
	if e.unconstrained(demand) {
		return true
	}
	return demand.EligibleLots().Contains(supply.LotCode)
}

// IsLotEligible decides whether an on-hand lot may satisfy the demand. An
// uncoded lot is shelved stock of unknown provenance: it only serves
// unconstrained demand.
func (e *Eligibility) IsLotEligible(demand *entities.Demand, lot *entities.Lot) bool {
	if e.Override != nil {
		if answer := e.Override(demand, lot.Code); answer != nil {
			return *answer
		}
	}
	if e.unconstrained(demand) {
		return true
	}
	if lot.Code == "" {
		return false
	}
	return demand.EligibleLots().Contains(lot.Code)
}
