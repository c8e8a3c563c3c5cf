package orchestration

import "context"

// Scheduler re-plans all operations against current constraints. Supply
// materialized at level N changes the ledger level N+1 reads, so the driver
// invokes it as a blocking barrier between levels and once more at the end.
type Scheduler interface {
	RunSimulation(ctx context.Context) error
}

// NopScheduler is a Scheduler that does nothing, for plants driven without a
// simulation and for tests.
type NopScheduler struct{}

var _ Scheduler = NopScheduler{}

func (NopScheduler) RunSimulation(context.Context) error { return nil }
