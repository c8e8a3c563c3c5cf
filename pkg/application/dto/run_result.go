package dto

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/planwerk/mrp/pkg/domain/entities"
)

// PartialSupplyViolation records demand that could not be satisfied even by
// creating new supply. PartialAllowed separates demand that tolerates the
// shortfall from demand whose no-partial constraint was actually violated;
// both are recorded so allocated plus unmet always accounts for the full
// demanded quantity.
type PartialSupplyViolation struct {
	Inventory      *entities.Inventory
	Demand         *entities.Demand
	Unmet          decimal.Decimal
	PartialAllowed bool
}

// Warnings accumulates non-fatal policy findings surfaced to the planner.
// Tasks from the cleanup phase may report concurrently.
type Warnings struct {
	mu       sync.Mutex
	messages []string

	MissingTemplates     []*entities.Inventory
	TemplatesWithoutProduct []string
	MissingStorageAreas  []*entities.Inventory
	UnleveledInventories []*entities.Inventory
	MinOrderShortfalls   []string
	Violations           []PartialSupplyViolation
}

// NewWarnings creates an empty warnings report
func NewWarnings() *Warnings {
	return &Warnings{}
}

// Addf appends a formatted planner-facing message
func (w *Warnings) Addf(format string, args ...interface{}) {
	w.mu.Lock()
	w.messages = append(w.messages, fmt.Sprintf(format, args...))
	w.mu.Unlock()
}

// Messages returns all accumulated messages
func (w *Warnings) Messages() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]string, len(w.messages))
	copy(out, w.messages)
	return out
}

// Empty reports whether nothing was warned about
func (w *Warnings) Empty() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.messages) == 0 && len(w.Violations) == 0
}

// Summary renders the consolidated end-of-run message
func (w *Warnings) Summary() string {
	msgs := w.Messages()
	if len(msgs) == 0 && len(w.Violations) == 0 {
		return "no warnings"
	}
	var b strings.Builder
	for _, m := range msgs {
		fmt.Fprintf(&b, "  - %s\n", m)
	}
	for _, v := range w.Violations {
		label := "partial supply violation"
		if v.PartialAllowed {
			label = "demand left short"
		}
		fmt.Fprintf(&b, "  - %s: %s short %s at %s\n",
			label, v.Inventory.Key(), v.Unmet, v.Demand.NeedDate.Format("2006-01-02"))
	}
	return strings.TrimRight(b.String(), "\n")
}

// RunResult is the outcome of one complete resolution run
type RunResult struct {
	JobsCreated           int
	PurchaseOrdersCreated int
	LevelsProcessed       int
	StartedAt             time.Time
	FinishedAt            time.Time
	Warnings              *Warnings
}

// Summary returns a one-line human readable result
func (r *RunResult) Summary() string {
	return fmt.Sprintf("resolved %d levels: %d jobs, %d purchase orders created (%s)",
		r.LevelsProcessed, r.JobsCreated, r.PurchaseOrdersCreated,
		r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond))
}
