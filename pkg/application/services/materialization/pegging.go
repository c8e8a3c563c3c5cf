package materialization

import (
	"strings"

	"github.com/google/uuid"

	"github.com/planwerk/mrp/pkg/domain/entities"
)

// newSyntheticCode generates a prefixed lot code. The prefix marks provenance
// so the next run can clear stale codes safely.
func (b *Builder) newSyntheticCode() string {
	short := strings.SplitN(uuid.NewString(), "-", 2)[0]
	return b.config.SyntheticPrefix + "-" + strings.ToUpper(short)
}

// pegLots binds the materialized supply to its contributing demands. The
// generated order's external identifier becomes a synthetic lot code, written
// onto the producing output and into each consuming requirement's eligible
// set. Requirements that disallow partial supply are split in place on their
// operation so the pegged fraction is protected separately from the unpegged
// remainder and the operation's total required quantity is unchanged.
func (b *Builder) pegLots(order *entities.SupplyOrder, jobs []*entities.Job, po *entities.PurchaseOrder) {
	if !b.config.LotPegging && !order.LotControlled() {
		return
	}

	code := b.newSyntheticCode()
	for _, job := range jobs {
		job.LotCode = code
	}
	if po != nil {
		po.LotCode = code
	}

	for _, part := range order.Parts {
		req := part.Demand.Requirement
		if req == nil {
			continue
		}
		if !req.AllowPartial && part.Quantity.LessThan(req.RequiredQuantity) && part.Demand.Operation != nil {
			// Split off the already-pegged fraction as a new requirement on
			// the owning operation; the remainder keeps the original
			// requirement's constraints without this code.
			pegged := req.Clone()
			pegged.ID = req.ID + "#" + code
			pegged.RequiredQuantity = part.Quantity
			pegged.EligibleLots.Add(code)

			req.RequiredQuantity = req.RequiredQuantity.Sub(part.Quantity)
			part.Demand.Operation.Requirements = append(part.Demand.Operation.Requirements, pegged)
			part.Demand.SplitRequirements = append(part.Demand.SplitRequirements, pegged)
			continue
		}
		req.EligibleLots.Add(code)
	}
}
