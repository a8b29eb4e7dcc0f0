package arb

import (
	"sort"

	"github.com/parthdesai/CrossArb/internal/matcher"
)

// Opportunity couples a matched pair with a profitable evaluation. Refined
// and Review are attached by the bounded top-K passes and stay nil otherwise;
// ranking and allocation work either way.
type Opportunity struct {
	Pair    matcher.MatchedPair `json:"pair"`
	Result  Result              `json:"result"`
	Refined *RefinedROI         `json:"refined,omitempty"`
	Review  *ReviewNote         `json:"review,omitempty"`
}

// ReviewNote is an advisory verdict on whether both legs resolve identically.
// It never creates or removes matches and never affects allocation.
type ReviewNote struct {
	Equivalent bool   `json:"equivalent"`
	Reason     string `json:"reason,omitempty"`
}

// EvaluatePairs evaluates every pair and keeps the profitable ones in input
// order.
func EvaluatePairs(pairs []matcher.MatchedPair) []Opportunity {
	var opps []Opportunity
	for _, pair := range pairs {
		res := Evaluate(pair)
		if !res.Exists() {
			continue
		}
		opps = append(opps, Opportunity{Pair: pair, Result: res})
	}
	return opps
}

// SortByROI orders opportunities by best flat ROI, highest first. Stable, so
// equal-ROI opportunities keep their discovery order.
func SortByROI(opps []Opportunity) {
	sort.SliceStable(opps, func(i, j int) bool {
		return opps[i].Result.Best.ROIPercent > opps[j].Result.Best.ROIPercent
	})
}
