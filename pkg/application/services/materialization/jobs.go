// Package materialization turns closed supply orders into jobs or purchase
// orders: quantity splitting, attribute rollup, excess redistribution, and
// lot pegging.
package materialization

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/planwerk/mrp/pkg/application/dto"
	"github.com/planwerk/mrp/pkg/domain/entities"
	"github.com/planwerk/mrp/pkg/domain/repositories"
)

// Hooks are optional customization points invoked on every generated order.
// Nil funcs are skipped.
type Hooks struct {
	CustomizeJob           func(job *entities.Job, order *entities.SupplyOrder)
	CustomizePurchaseOrder func(po *entities.PurchaseOrder, order *entities.SupplyOrder)

	// PegAllocationNeedDate overrides the need date recorded on a generated
	// purchase order's demand links.
	PegAllocationNeedDate func(order *entities.SupplyOrder) *time.Time
}

// Config controls materialization behavior
type Config struct {
	// ExcessPolicy selects how production beyond demand is redistributed
	ExcessPolicy entities.ExcessPolicy

	// LotPegging forces synthetic lot codes on every generated order even
	// when no contributing demand is lot-controlled.
	LotPegging bool

	// SyntheticPrefix marks generated lot codes for cleanup on the next run
	SyntheticPrefix string

	// MinOrderRoundingTolerance is the fraction of demanded quantity a
	// purchase order may grow by to reach the minimum order quantity.
	MinOrderRoundingTolerance decimal.Decimal
}

// Builder materializes supply orders for one run
type Builder struct {
	jobs   repositories.JobRepository
	orders repositories.PurchaseOrderRepository
	hooks  *Hooks
	config Config

	jobSeq int
	poSeq  int
}

// NewBuilder creates a materialization builder
func NewBuilder(jobs repositories.JobRepository, orders repositories.PurchaseOrderRepository, hooks *Hooks, config Config) *Builder {
	if hooks == nil {
		hooks = &Hooks{}
	}
	return &Builder{jobs: jobs, orders: orders, hooks: hooks, config: config}
}

// MaterializeJobs turns one closed supply order into jobs copied from the
// inventory's template: one job per auto-split chunk, with successor links
// rewired onto each copy and product warehouses reassigned.
func (b *Builder) MaterializeJobs(order *entities.SupplyOrder, warnings *dto.Warnings) ([]*entities.Job, error) {
	inv := order.Inventory
	if inv.TemplateJobID == "" {
		warnings.MissingTemplates = append(warnings.MissingTemplates, inv)
		warnings.Addf("inventory %s has no template job, demand left unresolved", inv.Key())
		inv.AddNote("missing template job")
		return nil, nil
	}
	template, err := b.jobs.GetJob(inv.TemplateJobID)
	if err != nil {
		return nil, fmt.Errorf("failed to load template %s: %w", inv.TemplateJobID, err)
	}
	if template.ProductItemID == "" {
		warnings.TemplatesWithoutProduct = append(warnings.TemplatesWithoutProduct, template.ID)
		warnings.Addf("template %s has no product, demand left unresolved", template.ID)
		inv.AddNote("template %s has no product", template.ID)
		return nil, nil
	}

	total := order.Produced()
	chunks := splitQuantity(total, inv.Item.AutoSplitQuantity)

	orderNumber, customer := order.FirstTrace()
	jobs := make([]*entities.Job, 0, len(chunks))
	for _, chunk := range chunks {
		b.jobSeq++
		job := template.Clone(fmt.Sprintf("%s-J%04d", b.config.SyntheticPrefix, b.jobSeq))
		job.Quantity = chunk
		job.NeedDate = order.NeedDate
		job.Priority = order.Priority
		job.Customer = customer
		job.OrderNumber = orderNumber
		job.Generated = true
		job.Policy = entities.Planned

		// Output lands in the demanding inventory's warehouse.
		for _, mo := range job.Orders {
			mo.ProductWarehouse = inv.Warehouse
			mo.Quantity = chunk
		}
		b.rollUpRequirements(job, chunk, template)

		if b.hooks.CustomizeJob != nil {
			b.hooks.CustomizeJob(job, order)
		}
		if err := b.jobs.AddJob(job); err != nil {
			return nil, fmt.Errorf("failed to add generated job: %w", err)
		}
		jobs = append(jobs, job)
	}

	b.redistributeExcess(order)
	b.pegLots(order, jobs, nil)
	return jobs, nil
}

// rollUpRequirements scales the copied requirements to the job's share of
// the template quantity.
func (b *Builder) rollUpRequirements(job *entities.Job, chunk decimal.Decimal, template *entities.Job) {
	base := template.Quantity
	if !base.IsPositive() {
		base = decimal.NewFromInt(1)
	}
	factor := chunk.Div(base)
	for _, req := range job.Requirements() {
		req.RequiredQuantity = req.RequiredQuantity.Mul(factor)
	}
}

// splitQuantity cuts a total into chunks bounded by the auto-split quantity.
// A zero bound keeps one chunk.
func splitQuantity(total, bound decimal.Decimal) []decimal.Decimal {
	if !bound.IsPositive() || !total.GreaterThan(bound) {
		return []decimal.Decimal{total}
	}
	var chunks []decimal.Decimal
	remaining := total
	for remaining.GreaterThan(bound) {
		chunks = append(chunks, bound)
		remaining = remaining.Sub(bound)
	}
	if remaining.IsPositive() {
		chunks = append(chunks, remaining)
	}
	return chunks
}

// redistributeExcess pushes production beyond demand back onto contributing
// demands, never discarding material. The consuming requirement's quantity
// grows by the share it receives.
func (b *Builder) redistributeExcess(order *entities.SupplyOrder) {
	excess := order.Excess()
	if !excess.IsPositive() || len(order.Parts) == 0 {
		return
	}

	receivers := make([]*entities.MaterialRequirement, 0, len(order.Parts))
	weights := make([]decimal.Decimal, 0, len(order.Parts))
	for _, part := range order.Parts {
		if part.Demand.Requirement == nil {
			continue
		}
		receivers = append(receivers, part.Demand.Requirement)
		weights = append(weights, part.Quantity)
	}
	if len(receivers) == 0 {
		return // excess stays as unallocated stock on the order's output
	}

	shares := make([]decimal.Decimal, len(receivers))
	switch b.config.ExcessPolicy {
	case entities.ExcessSplitEqual:
		per := excess.Div(decimal.NewFromInt(int64(len(receivers))))
		distributed := decimal.Zero
		for i := range shares {
			if i == len(shares)-1 {
				shares[i] = excess.Sub(distributed)
			} else {
				shares[i] = per
				distributed = distributed.Add(per)
			}
		}
	case entities.ExcessSplitProportional:
		total := decimal.Zero
		for _, w := range weights {
			total = total.Add(w)
		}
		distributed := decimal.Zero
		for i, w := range weights {
			if i == len(shares)-1 {
				shares[i] = excess.Sub(distributed)
			} else {
				shares[i] = excess.Mul(w).Div(total)
				distributed = distributed.Add(shares[i])
			}
		}
	default: // ExcessToLastJob
		shares[len(shares)-1] = excess
	}

	for i, req := range receivers {
		if shares[i].IsPositive() {
			req.RequiredQuantity = req.RequiredQuantity.Add(shares[i])
			order.TakeExcess(shares[i])
		}
	}
}
