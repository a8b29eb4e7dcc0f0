package arb

import (
	"math"
	"testing"

	"github.com/parthdesai/CrossArb/internal/collectors"
	"github.com/parthdesai/CrossArb/internal/matcher"
)

func pairWith(yesA, noA, yesB, noB float64) matcher.MatchedPair {
	return matcher.MatchedPair{
		LegA: collectors.MarketQuote{Venue: collectors.VenuePolymarket, MarketKey: "0xaaa", YesPrice: yesA, NoPrice: noA},
		LegB: collectors.MarketQuote{Venue: collectors.VenuePredictFun, MarketKey: "0xaaa", YesPrice: yesB, NoPrice: noB},
	}
}

func near(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestEvaluateProfitable(t *testing.T) {
	res := Evaluate(pairWith(0.40, 0.55, 0.50, 0.45))

	if !res.Exists() {
		t.Fatal("Exists() = false, want true")
	}
	best := res.Best
	if best.Direction != DirectionYesANoB {
		t.Errorf("Best.Direction = %s, want %s", best.Direction, DirectionYesANoB)
	}
	if !near(best.Cost, 0.85) {
		t.Errorf("Best.Cost = %v, want 0.85", best.Cost)
	}
	if !near(best.Profit, 0.15) {
		t.Errorf("Best.Profit = %v, want 0.15", best.Profit)
	}
	if !near(best.ROIPercent, 0.15/0.85*100) {
		t.Errorf("Best.ROIPercent = %v, want %v", best.ROIPercent, 0.15/0.85*100)
	}

	other := res.Strategies[DirectionNoAYesB]
	if other == nil {
		t.Fatal("losing strategy missing from Strategies")
	}
	if !near(other.Cost, 1.05) {
		t.Errorf("losing strategy cost = %v, want 1.05", other.Cost)
	}
	if other.Profit >= 0 {
		t.Errorf("losing strategy profit = %v, want negative", other.Profit)
	}
}

func TestEvaluateFlipsDirection(t *testing.T) {
	// Legs swapped relative to the profitable case; the opposite direction
	// must carry the same economics.
	res := Evaluate(pairWith(0.50, 0.45, 0.40, 0.55))

	if res.Best == nil {
		t.Fatal("Best = nil, want NO-A/YES-B strategy")
	}
	if res.Best.Direction != DirectionNoAYesB {
		t.Errorf("Best.Direction = %s, want %s", res.Best.Direction, DirectionNoAYesB)
	}
	if !near(res.Best.Cost, 0.85) {
		t.Errorf("Best.Cost = %v, want 0.85", res.Best.Cost)
	}
}

func TestEvaluateNoArbitrage(t *testing.T) {
	// Both sums at or above 1: a zero-profit strategy is not an opportunity.
	res := Evaluate(pairWith(0.60, 0.45, 0.55, 0.50))

	if res.Exists() {
		t.Fatalf("Exists() = true for costs 1.10 and 1.00, want false")
	}
	if len(res.Strategies) != 2 {
		t.Errorf("len(Strategies) = %d, want 2", len(res.Strategies))
	}
}

func TestEvaluateTieKeepsYesANoB(t *testing.T) {
	res := Evaluate(pairWith(0.40, 0.40, 0.40, 0.40))

	if res.Best == nil {
		t.Fatal("Best = nil, want a strategy")
	}
	if res.Best.Direction != DirectionYesANoB {
		t.Errorf("tie broke to %s, want %s", res.Best.Direction, DirectionYesANoB)
	}
}

func TestEvaluateDegeneratePrices(t *testing.T) {
	// Zero cost can only come from malformed input; that strategy must not
	// exist at all rather than divide by zero.
	res := Evaluate(pairWith(0, 0.55, 0.50, 0))

	if _, ok := res.Strategies[DirectionYesANoB]; ok {
		t.Error("zero-cost strategy present, want dropped")
	}
	if _, ok := res.Strategies[DirectionNoAYesB]; !ok {
		t.Error("well-formed strategy missing")
	}
	if res.Exists() {
		t.Error("Exists() = true, want false")
	}
}

func TestLegPrices(t *testing.T) {
	pair := pairWith(0.40, 0.55, 0.50, 0.45)

	tests := []struct {
		dir            Direction
		priceA, priceB float64
	}{
		{DirectionYesANoB, 0.40, 0.45},
		{DirectionNoAYesB, 0.55, 0.50},
	}
	for _, tt := range tests {
		t.Run(string(tt.dir), func(t *testing.T) {
			priceA, priceB := LegPrices(pair, tt.dir)
			if priceA != tt.priceA || priceB != tt.priceB {
				t.Errorf("LegPrices = (%v, %v), want (%v, %v)", priceA, priceB, tt.priceA, tt.priceB)
			}
		})
	}
}

func TestLegOutcomes(t *testing.T) {
	tests := []struct {
		dir                Direction
		outcomeA, outcomeB string
	}{
		{DirectionYesANoB, "yes", "no"},
		{DirectionNoAYesB, "no", "yes"},
	}
	for _, tt := range tests {
		t.Run(string(tt.dir), func(t *testing.T) {
			outcomeA, outcomeB := LegOutcomes(tt.dir)
			if outcomeA != tt.outcomeA || outcomeB != tt.outcomeB {
				t.Errorf("LegOutcomes = (%s, %s), want (%s, %s)", outcomeA, outcomeB, tt.outcomeA, tt.outcomeB)
			}
		})
	}
}
