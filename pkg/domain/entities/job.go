package entities

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ManufacturingOrder is one production leg of a job. Splitting duplicates
// these per the item's auto-split quantity during materialization.
type ManufacturingOrder struct {
	ID       string
	Quantity decimal.Decimal

	// SuccessorID links to the manufacturing order consuming this one's
	// output within the same job. Rewired when templates are split.
	SuccessorID string

	Requirements []*MaterialRequirement

	// ProductWarehouse receives the output of this order
	ProductWarehouse string
}

// Clone returns a deep copy with the given id suffix applied to the order and
// its successor link.
func (mo *ManufacturingOrder) Clone(suffix string) *ManufacturingOrder {
	c := &ManufacturingOrder{
		ID:               mo.ID + suffix,
		Quantity:         mo.Quantity,
		ProductWarehouse: mo.ProductWarehouse,
	}
	if mo.SuccessorID != "" {
		c.SuccessorID = mo.SuccessorID + suffix
	}
	c.Requirements = make([]*MaterialRequirement, len(mo.Requirements))
	for i, req := range mo.Requirements {
		c.Requirements[i] = req.Clone()
	}
	return c
}

// Job is a production job: a template that demand materializes into copies
// of, or a generated copy bound to specific demand.
type Job struct {
	ID            string
	ProductItemID ItemID

	Quantity decimal.Decimal
	NeedDate time.Time
	Priority int

	Customer    string
	OrderNumber string

	// LotCode is the job's external identifier once lot pegging assigns a
	// synthetic code to its output.
	LotCode string

	Policy JobPolicy

	Orders []*ManufacturingOrder

	// Generated marks jobs created by the resolution engine this run
	Generated bool
}

// NewJob creates a validated Job
func NewJob(id string, productItemID ItemID, quantity decimal.Decimal) (*Job, error) {
	if id == "" {
		return nil, fmt.Errorf("job id cannot be empty")
	}
	if productItemID == "" {
		return nil, fmt.Errorf("job product item cannot be empty")
	}
	if quantity.IsNegative() {
		return nil, fmt.Errorf("job quantity cannot be negative, got %s", quantity)
	}
	return &Job{ID: id, ProductItemID: productItemID, Quantity: quantity, Policy: Planned}, nil
}

// Requirements returns all material requirements across the job's orders
func (j *Job) Requirements() []*MaterialRequirement {
	var reqs []*MaterialRequirement
	for _, mo := range j.Orders {
		reqs = append(reqs, mo.Requirements...)
	}
	return reqs
}

// OperationOf returns the manufacturing order holding the given requirement,
// nil when no order carries it.
func (j *Job) OperationOf(requirementID string) *ManufacturingOrder {
	for _, mo := range j.Orders {
		for _, req := range mo.Requirements {
			if req.ID == requirementID {
				return mo
			}
		}
	}
	return nil
}

// Clone deep-copies the job under a new id, cloning manufacturing orders and
// rewiring intra-job successor links onto the copies.
func (j *Job) Clone(newID string) *Job {
	suffix := "/" + newID
	c := &Job{
		ID:            newID,
		ProductItemID: j.ProductItemID,
		Quantity:      j.Quantity,
		NeedDate:      j.NeedDate,
		Priority:      j.Priority,
		Customer:      j.Customer,
		OrderNumber:   j.OrderNumber,
		Policy:        j.Policy,
	}
	c.Orders = make([]*ManufacturingOrder, len(j.Orders))
	for i, mo := range j.Orders {
		c.Orders[i] = mo.Clone(suffix)
	}
	return c
}
