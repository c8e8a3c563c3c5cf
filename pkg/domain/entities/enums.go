package entities

// PlanningMode controls how unmet demand on an inventory is resolved
type PlanningMode int

const (
	Ignore PlanningMode = iota
	GenerateJobs
	GeneratePurchaseOrders
)

func (m PlanningMode) String() string {
	switch m {
	case Ignore:
		return "Ignore"
	case GenerateJobs:
		return "GenerateJobs"
	case GeneratePurchaseOrders:
		return "GeneratePurchaseOrders"
	default:
		return "Unknown"
	}
}

// AllocationPolicy selects the sourcing tier order and lot preference
type AllocationPolicy int

const (
	PolicyNotSet AllocationPolicy = iota
	OldestFirst
	NewestFirst
)

func (p AllocationPolicy) String() string {
	switch p {
	case PolicyNotSet:
		return "NotSet"
	case OldestFirst:
		return "OldestFirst"
	case NewestFirst:
		return "NewestFirst"
	default:
		return "Unknown"
	}
}

// ExcessPolicy controls redistribution of quantity produced beyond demand
type ExcessPolicy int

const (
	ExcessToLastJob ExcessPolicy = iota
	ExcessSplitEqual
	ExcessSplitProportional
)

func (p ExcessPolicy) String() string {
	switch p {
	case ExcessToLastJob:
		return "ToLastJob"
	case ExcessSplitEqual:
		return "SplitEqual"
	case ExcessSplitProportional:
		return "SplitProportional"
	default:
		return "Unknown"
	}
}

// ConstraintType marks how strongly a material requirement constrains scheduling
type ConstraintType int

const (
	NonConstraining ConstraintType = iota
	Constraining
	ConstrainedByEligibleLots
)

func (c ConstraintType) String() string {
	switch c {
	case NonConstraining:
		return "NonConstraining"
	case Constraining:
		return "Constraining"
	case ConstrainedByEligibleLots:
		return "ConstrainedByEligibleLots"
	default:
		return "Unknown"
	}
}

// JobPolicy describes how firmly a job is committed to the schedule
type JobPolicy int

const (
	Planned JobPolicy = iota
	Anchored
	Firm
	Released
)

// Preserved reports whether lot pegging created in an earlier run must survive
// the next resolution pass for jobs under this policy.
func (p JobPolicy) Preserved() bool {
	return p == Anchored || p == Firm || p == Released
}

func (p JobPolicy) String() string {
	switch p {
	case Planned:
		return "Planned"
	case Anchored:
		return "Anchored"
	case Firm:
		return "Firm"
	case Released:
		return "Released"
	default:
		return "Unknown"
	}
}

// ForecastConsumptionMode selects how sales orders consume forecast demand
// before extraction.
type ForecastConsumptionMode int

const (
	ForecastConsumeNone ForecastConsumptionMode = iota
	ForecastConsumeBackward
	ForecastConsumeForward
)

func (m ForecastConsumptionMode) String() string {
	switch m {
	case ForecastConsumeNone:
		return "None"
	case ForecastConsumeBackward:
		return "Backward"
	case ForecastConsumeForward:
		return "Forward"
	default:
		return "Unknown"
	}
}
