package materialization

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/planwerk/mrp/pkg/application/dto"
	"github.com/planwerk/mrp/pkg/domain/entities"
)

// MaterializePurchaseOrder turns one closed supply order into a purchase
// order, enforcing the item's minimum order quantity within the configured
// rounding tolerance.
func (b *Builder) MaterializePurchaseOrder(order *entities.SupplyOrder, warnings *dto.Warnings) (*entities.PurchaseOrder, error) {
	inv := order.Inventory
	quantity := order.Demanded()
	if !quantity.IsPositive() {
		return nil, nil
	}

	moq := inv.Item.MinOrderQuantity
	if moq.IsPositive() && quantity.LessThan(moq) {
		if roundsWithin(quantity, moq, b.config.MinOrderRoundingTolerance) {
			quantity = moq
		} else {
			msg := fmt.Sprintf("purchase order for %s below minimum order quantity: %s < %s",
				inv.Key(), quantity, moq)
			warnings.MinOrderShortfalls = append(warnings.MinOrderShortfalls, msg)
			warnings.Addf("%s", msg)
			inv.AddNote("minimum order quantity shortfall: %s < %s", quantity, moq)
		}
	}

	b.poSeq++
	po, err := entities.NewPurchaseOrder(
		fmt.Sprintf("%s-PO%04d", b.config.SyntheticPrefix, b.poSeq),
		inv.Item.ID, inv.Warehouse, quantity)
	if err != nil {
		return nil, fmt.Errorf("failed to create purchase order: %w", err)
	}
	po.NeedDate = order.NeedDate
	po.ReceiptDate = order.NeedDate
	po.Generated = true

	if inv.PurchaseStorageArea == "" {
		warnings.MissingStorageAreas = append(warnings.MissingStorageAreas, inv)
		warnings.Addf("inventory %s has no purchase supply storage area", inv.Key())
		inv.AddNote("missing purchase supply storage area")
	} else {
		po.StorageArea = inv.PurchaseStorageArea
	}

	// Demand linkage for later PO-date realignment.
	var pegDate *time.Time
	if b.hooks.PegAllocationNeedDate != nil {
		pegDate = b.hooks.PegAllocationNeedDate(order)
	}
	for _, part := range order.Parts {
		linkDate := part.Demand.NeedDate
		if pegDate != nil {
			linkDate = *pegDate
		}
		po.DemandLinks = append(po.DemandLinks, entities.DemandLink{
			ReasonKey: part.Demand.ReasonKey,
			Quantity:  part.Quantity,
			NeedDate:  linkDate,
		})
	}

	if b.hooks.CustomizePurchaseOrder != nil {
		b.hooks.CustomizePurchaseOrder(po, order)
	}
	if err := b.orders.AddPurchaseOrder(po); err != nil {
		return nil, fmt.Errorf("failed to add generated purchase order: %w", err)
	}
	b.pegLots(order, nil, po)
	return po, nil
}

// roundsWithin reports whether growing quantity to the minimum stays inside
// the tolerance, expressed as a fraction of the demanded quantity.
func roundsWithin(quantity, moq, tolerance decimal.Decimal) bool {
	return moq.Sub(quantity).LessThanOrEqual(quantity.Mul(tolerance))
}
