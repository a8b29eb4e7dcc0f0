package scan

import (
	"github.com/parthdesai/CrossArb/internal/arb"
	"github.com/parthdesai/CrossArb/internal/collectors"
	"github.com/parthdesai/CrossArb/internal/logging"
	"github.com/parthdesai/CrossArb/internal/matcher"
)

const (
	ComparisonPolyPredict    = "polymarket_vs_predictfun"
	ComparisonPolyOpinion    = "polymarket_vs_opinion"
	ComparisonOpinionPredict = "opinion_vs_predictfun"
)

// Comparison is one venue-versus-venue pass: the matched pair count and the
// profitable opportunities sorted by flat ROI.
type Comparison struct {
	Name          string            `json:"name"`
	VenueA        collectors.Venue  `json:"venue_a"`
	VenueB        collectors.Venue  `json:"venue_b"`
	Pairs         int               `json:"pairs"`
	Opportunities []arb.Opportunity `json:"opportunities"`
}

// BuildComparisons runs the three comparison passes. Polymarket joins
// predict.fun on conditionId and opinion.trade on slug plus title; the
// opinion versus predict.fun pass goes through the shared Polymarket leg
// because those two venues have no key in common. A nil audit logger
// disables the pair audit log.
func BuildComparisons(poly, predict, opinion []collectors.MarketQuote, audit *matcher.Logger) []Comparison {
	polyPredict := matcher.Match(poly, predict, matcher.JoinExactKey)
	polyOpinion := matcher.Match(poly, opinion, matcher.JoinSlugTitle)
	opinionPredict := matcher.Intersect(polyOpinion, polyPredict)

	return []Comparison{
		newComparison(ComparisonPolyPredict, collectors.VenuePolymarket, collectors.VenuePredictFun, polyPredict, audit),
		newComparison(ComparisonPolyOpinion, collectors.VenuePolymarket, collectors.VenueOpinion, polyOpinion, audit),
		newComparison(ComparisonOpinionPredict, collectors.VenueOpinion, collectors.VenuePredictFun, opinionPredict, audit),
	}
}

func newComparison(name string, venueA, venueB collectors.Venue, pairs []matcher.MatchedPair, audit *matcher.Logger) Comparison {
	audit.LogPairs(name, pairs)
	opps := arb.EvaluatePairs(pairs)
	arb.SortByROI(opps)
	logging.Infof("[scan] %s: %d pairs, %d opportunities", name, len(pairs), len(opps))
	return Comparison{
		Name:          name,
		VenueA:        venueA,
		VenueB:        venueB,
		Pairs:         len(pairs),
		Opportunities: opps,
	}
}

// AllOpportunities flattens the comparisons in order, keeping each one's
// ROI-descending sort, for the shared allocation pass.
func AllOpportunities(comps []Comparison) []arb.Opportunity {
	var out []arb.Opportunity
	for _, comp := range comps {
		out = append(out, comp.Opportunities...)
	}
	return out
}
