package scan

import (
	"math"
	"testing"

	"github.com/parthdesai/CrossArb/internal/collectors"
)

func near(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func fixtureQuote(venue collectors.Venue, key, slug, title string, yes, no float64) collectors.MarketQuote {
	return collectors.MarketQuote{
		Venue:        venue,
		MarketKey:    key,
		CategorySlug: slug,
		Title:        title,
		Question:     title,
		YesPrice:     yes,
		NoPrice:      no,
	}
}

// fixtureInputs holds one market listed on all three venues plus an unmatched
// Polymarket market, priced so every comparison yields exactly one
// profitable pair.
func fixtureInputs() Inputs {
	return Inputs{
		Polymarket: []collectors.MarketQuote{
			fixtureQuote(collectors.VenuePolymarket, "0xaaa", "metamask-fdv", "$1B-$3B", 0.40, 0.60),
			fixtureQuote(collectors.VenuePolymarket, "0xbbb", "other-slug", "Other", 0.50, 0.52),
		},
		PredictFun: []collectors.MarketQuote{
			fixtureQuote(collectors.VenuePredictFun, "0xaaa", "", "$1B-$3B", 0.50, 0.45),
		},
		Opinion: []collectors.MarketQuote{
			fixtureQuote(collectors.VenueOpinion, "0xopi1", "metamask-fdv", "$1B-$3B", 0.42, 0.55),
		},
	}
}

func TestBuildComparisons(t *testing.T) {
	in := fixtureInputs()
	comps := BuildComparisons(in.Polymarket, in.PredictFun, in.Opinion, nil)

	if len(comps) != 3 {
		t.Fatalf("len(comps) = %d, want 3", len(comps))
	}

	want := []struct {
		name   string
		venueA collectors.Venue
		venueB collectors.Venue
		cost   float64
	}{
		{ComparisonPolyPredict, collectors.VenuePolymarket, collectors.VenuePredictFun, 0.85},
		{ComparisonPolyOpinion, collectors.VenuePolymarket, collectors.VenueOpinion, 0.95},
		{ComparisonOpinionPredict, collectors.VenueOpinion, collectors.VenuePredictFun, 0.87},
	}
	for i, w := range want {
		comp := comps[i]
		if comp.Name != w.name {
			t.Errorf("comps[%d].Name = %s, want %s", i, comp.Name, w.name)
		}
		if comp.VenueA != w.venueA || comp.VenueB != w.venueB {
			t.Errorf("%s venues = %s/%s, want %s/%s", w.name, comp.VenueA, comp.VenueB, w.venueA, w.venueB)
		}
		if comp.Pairs != 1 {
			t.Errorf("%s Pairs = %d, want 1", w.name, comp.Pairs)
		}
		if len(comp.Opportunities) != 1 {
			t.Fatalf("%s opportunities = %d, want 1", w.name, len(comp.Opportunities))
		}
		best := comp.Opportunities[0].Result.Best
		if best == nil {
			t.Fatalf("%s has no best strategy", w.name)
		}
		if !near(best.Cost, w.cost) {
			t.Errorf("%s best cost = %v, want %v", w.name, best.Cost, w.cost)
		}
	}
}

func TestBuildComparisonsCrossVenueLegs(t *testing.T) {
	in := fixtureInputs()
	comps := BuildComparisons(in.Polymarket, in.PredictFun, in.Opinion, nil)
	if len(comps) != 3 || len(comps[2].Opportunities) != 1 {
		t.Fatal("fixture did not produce the opinion vs predict.fun pair")
	}

	// The third pass joins through the shared Polymarket leg but must carry
	// the opinion and predict.fun quotes, not the Polymarket one.
	pair := comps[2].Opportunities[0].Pair
	if pair.LegA.Venue != collectors.VenueOpinion || pair.LegA.MarketKey != "0xopi1" {
		t.Errorf("LegA = %s %s, want opinion 0xopi1", pair.LegA.Venue, pair.LegA.MarketKey)
	}
	if pair.LegB.Venue != collectors.VenuePredictFun || pair.LegB.MarketKey != "0xaaa" {
		t.Errorf("LegB = %s %s, want predictfun 0xaaa", pair.LegB.Venue, pair.LegB.MarketKey)
	}
}

func TestAllOpportunities(t *testing.T) {
	in := fixtureInputs()
	comps := BuildComparisons(in.Polymarket, in.PredictFun, in.Opinion, nil)

	opps := AllOpportunities(comps)
	if len(opps) != 3 {
		t.Fatalf("len(opps) = %d, want 3", len(opps))
	}
	wantCosts := []float64{0.85, 0.95, 0.87}
	for i, w := range wantCosts {
		if !near(opps[i].Result.Best.Cost, w) {
			t.Errorf("opps[%d] cost = %v, want %v", i, opps[i].Result.Best.Cost, w)
		}
	}
}

func TestBuildComparisonsEmptyInputs(t *testing.T) {
	comps := BuildComparisons(nil, nil, nil, nil)

	if len(comps) != 3 {
		t.Fatalf("len(comps) = %d, want 3", len(comps))
	}
	for _, comp := range comps {
		if comp.Pairs != 0 || len(comp.Opportunities) != 0 {
			t.Errorf("%s = %d pairs, %d opportunities, want none", comp.Name, comp.Pairs, len(comp.Opportunities))
		}
	}
}
