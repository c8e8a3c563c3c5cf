package entities

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// DemandLink records which demand a generated purchase order covers, kept for
// later realignment of PO dates against moved demand.
type DemandLink struct {
	ReasonKey string
	Quantity  decimal.Decimal
	NeedDate  time.Time
}

// PurchaseOrder is an inbound order for purchased material
type PurchaseOrder struct {
	OrderNumber string
	ItemID      ItemID
	Warehouse   string

	Quantity    decimal.Decimal
	NeedDate    time.Time
	ReceiptDate time.Time

	StorageArea string

	// LotCode carries the synthetic pegging code when lot pegging is active
	LotCode string

	DemandLinks []DemandLink

	// Generated marks orders created by the resolution engine this run
	Generated bool
}

// NewPurchaseOrder creates a validated PurchaseOrder
func NewPurchaseOrder(orderNumber string, itemID ItemID, warehouse string, quantity decimal.Decimal) (*PurchaseOrder, error) {
	if orderNumber == "" {
		return nil, fmt.Errorf("purchase order number cannot be empty")
	}
	if itemID == "" {
		return nil, fmt.Errorf("purchase order item cannot be empty")
	}
	if warehouse == "" {
		return nil, fmt.Errorf("purchase order warehouse cannot be empty")
	}
	if !quantity.IsPositive() {
		return nil, fmt.Errorf("purchase order quantity must be positive, got %s", quantity)
	}
	return &PurchaseOrder{
		OrderNumber: orderNumber,
		ItemID:      itemID,
		Warehouse:   warehouse,
		Quantity:    quantity,
	}, nil
}

// SalesOrder is an outbound customer order line. The engine only reads it for
// forecast consumption and synthetic-code cleanup.
type SalesOrder struct {
	OrderNumber string
	ItemID      ItemID
	Warehouse   string
	Customer    string

	Quantity decimal.Decimal
	DueDate  time.Time

	EligibleLots LotSet
}
