package services

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/planwerk/mrp/pkg/domain/entities"
)

func demandWithLots(codes ...string) *entities.Demand {
	req := &entities.MaterialRequirement{EligibleLots: entities.NewLotSet(codes...)}
	return &entities.Demand{Kind: entities.ActivityDemand, Requirement: req}
}

func TestEligibility_UncodedLotSkippedForConstrainedDemand(t *testing.T) {
	e := NewEligibility("MRP-")
	demand := demandWithLots("LOTX")

	require.False(t, e.IsLotEligible(demand, &entities.Lot{Code: ""}))
	require.True(t, e.IsLotEligible(demand, &entities.Lot{Code: "LOTX"}))
	require.False(t, e.IsLotEligible(demand, &entities.Lot{Code: "LOTY"}))
}

func TestEligibility_UnpeggedSupplyAlwaysEligible(t *testing.T) {
	e := NewEligibility("MRP-")
	demand := demandWithLots("LOTX")

	require.True(t, e.IsSupplyEligible(demand, &entities.Supply{LotCode: ""}))
	require.True(t, e.IsSupplyEligible(demand, &entities.Supply{LotCode: "LOTX"}))
	require.False(t, e.IsSupplyEligible(demand, &entities.Supply{LotCode: "LOTY"}))
}

func TestEligibility_SyntheticOnlySetIsUnconstrained(t *testing.T) {
	e := NewEligibility("MRP-")
	demand := demandWithLots("MRP-0001", "MRP-0002")

	require.True(t, e.IsLotEligible(demand, &entities.Lot{Code: ""}))
	require.True(t, e.IsLotEligible(demand, &entities.Lot{Code: "ANY"}))
}

func TestEligibility_OverrideWins(t *testing.T) {
	no := false
	e := NewEligibility("MRP-")
	e.Override = func(*entities.Demand, string) *bool { return &no }

	demand := &entities.Demand{}
	require.False(t, e.IsLotEligible(demand, &entities.Lot{Code: ""}))
	require.False(t, e.IsSupplyEligible(demand, &entities.Supply{}))
}
