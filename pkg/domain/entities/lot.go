package entities

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Lot is a quantity of an item with a production date and optional expiration.
// Its code is used for pegging; codes created by the resolution engine carry a
// provenance prefix so the next run can clean them up safely.
type Lot struct {
	Code           string
	Quantity       decimal.Decimal
	Allocated      decimal.Decimal
	ProductionDate time.Time
	Expiration     *time.Time
}

// NewLot creates a validated Lot
func NewLot(code string, quantity decimal.Decimal, productionDate time.Time) (*Lot, error) {
	if quantity.IsNegative() {
		return nil, fmt.Errorf("lot quantity cannot be negative, got %s", quantity)
	}
	if productionDate.IsZero() {
		return nil, fmt.Errorf("lot production date cannot be zero")
	}
	return &Lot{Code: code, Quantity: quantity, ProductionDate: productionDate}, nil
}

// Unallocated returns the quantity still available for sourcing
func (l *Lot) Unallocated() decimal.Decimal {
	return l.Quantity.Sub(l.Allocated)
}

// ExpiredAt reports whether the lot is past its expiration at the given time
func (l *Lot) ExpiredAt(at time.Time) bool {
	return l.Expiration != nil && !l.Expiration.After(at)
}

// UsableFor checks the shelf-life and age constraints of an item against a
// demand date. Eligibility by lot code is a separate concern.
func (l *Lot) UsableFor(item *Item, needDate time.Time) bool {
	if l.ProductionDate.After(needDate) {
		return false
	}
	if l.ExpiredAt(needDate) {
		return false
	}
	if item.MinAgeDays > 0 {
		matured := l.ProductionDate.AddDate(0, 0, item.MinAgeDays)
		if matured.After(needDate) {
			return false
		}
	}
	if item.MinShelfLifeDays > 0 && l.Expiration != nil {
		remaining := l.Expiration.Sub(needDate)
		if remaining < time.Duration(item.MinShelfLifeDays)*24*time.Hour {
			return false
		}
	}
	return true
}

// IsSyntheticCode reports whether the lot code was generated by a resolution run
// using the given provenance prefix.
func IsSyntheticCode(code, prefix string) bool {
	return prefix != "" && strings.HasPrefix(code, prefix)
}

// LotSet is a set of lot codes, used for demand eligibility
type LotSet map[string]struct{}

// NewLotSet builds a set from the given codes
func NewLotSet(codes ...string) LotSet {
	s := make(LotSet, len(codes))
	for _, c := range codes {
		s[c] = struct{}{}
	}
	return s
}

// Add inserts a code into the set
func (s LotSet) Add(code string) { s[code] = struct{}{} }

// Contains reports membership
func (s LotSet) Contains(code string) bool {
	_, ok := s[code]
	return ok
}

// RemoveSynthetic deletes all codes carrying the provenance prefix and
// reports how many were removed.
func (s LotSet) RemoveSynthetic(prefix string) int {
	removed := 0
	for code := range s {
		if IsSyntheticCode(code, prefix) {
			delete(s, code)
			removed++
		}
	}
	return removed
}

// OnlySynthetic reports whether the set is non-empty and every code carries
// the provenance prefix. Such a set constrains nothing: the codes are this
// run's own work.
func (s LotSet) OnlySynthetic(prefix string) bool {
	if len(s) == 0 {
		return false
	}
	for code := range s {
		if !IsSyntheticCode(code, prefix) {
			return false
		}
	}
	return true
}
