package scan

import (
	"context"
	"testing"

	"github.com/parthdesai/CrossArb/internal/alloc"
)

func TestRun(t *testing.T) {
	in := fixtureInputs()

	result := Run(context.Background(), in, Options{Alloc: alloc.Config{TotalCapital: 300}})

	if result.RunID == "" {
		t.Error("RunID is empty")
	}
	if result.FinishedAt.Before(result.StartedAt) {
		t.Error("FinishedAt precedes StartedAt")
	}
	if len(result.Comparisons) != 3 {
		t.Fatalf("comparisons = %d, want 3", len(result.Comparisons))
	}

	for _, comp := range result.Comparisons {
		for _, opp := range comp.Opportunities {
			if opp.Refined == nil {
				t.Errorf("%s opportunity missing refinement", comp.Name)
			}
			if opp.Review != nil {
				t.Errorf("%s opportunity reviewed with no reviewer configured", comp.Name)
			}
		}
	}

	plan := result.Plan
	if len(plan.Allocations) != 3 {
		t.Fatalf("allocations = %d, want 3", len(plan.Allocations))
	}
	if !near(plan.TotalDeployedUSD+plan.TotalUnallocatedUSD, 300) {
		t.Errorf("deployed %v + unallocated %v != capital 300",
			plan.TotalDeployedUSD, plan.TotalUnallocatedUSD)
	}
	if got := len(plan.Allocated()); got != 3 {
		t.Errorf("allocated = %d, want all 3", got)
	}
}

func TestRunEmptyInputs(t *testing.T) {
	result := Run(context.Background(), Inputs{}, Options{Alloc: alloc.Config{TotalCapital: 100}})

	if len(result.Comparisons) != 3 {
		t.Fatalf("comparisons = %d, want 3", len(result.Comparisons))
	}
	if got := len(AllOpportunities(result.Comparisons)); got != 0 {
		t.Errorf("opportunities = %d, want 0", got)
	}
	if result.Plan.TotalUnallocatedUSD != 100 {
		t.Errorf("TotalUnallocatedUSD = %v, want the full 100", result.Plan.TotalUnallocatedUSD)
	}
}
