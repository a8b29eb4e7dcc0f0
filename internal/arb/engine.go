package arb

import (
	"github.com/parthdesai/CrossArb/internal/matcher"
)

// Direction names the two complementary ways to leg into a matched pair.
type Direction string

const (
	DirectionYesANoB Direction = "BUY_YES_A_BUY_NO_B"
	DirectionNoAYesB Direction = "BUY_NO_A_BUY_YES_B"
)

// Strategy describes one two-leg combination and its flat-price economics.
// Cost and Profit are per $1 of eventual payout; ROIPercent is
// profit/cost x 100.
type Strategy struct {
	Direction  Direction `json:"direction"`
	Cost       float64   `json:"cost"`
	Profit     float64   `json:"profit"`
	ROIPercent float64   `json:"roi_percent"`
}

// Result is the evaluator output for one matched pair. Strategies holds every
// direction with a well-formed cost; Best is the more profitable direction
// with profit > 0, or nil when neither is profitable. Best != nil is the sole
// definition of "arbitrage exists".
type Result struct {
	Strategies map[Direction]*Strategy `json:"strategies"`
	Best       *Strategy               `json:"best,omitempty"`
}

// Exists reports whether the pair carries a guaranteed profit.
func (r Result) Exists() bool {
	return r.Best != nil
}

// Evaluate computes both arbitrage strategies for a matched pair. A strategy
// whose cost is <= 0 can only come from malformed input and is treated as
// nonexistent rather than divided by zero. An exact profit tie keeps the
// YES-A/NO-B strategy. Pure and safe to call concurrently across pairs.
func Evaluate(pair matcher.MatchedPair) Result {
	res := Result{Strategies: make(map[Direction]*Strategy, 2)}

	s1 := buildStrategy(DirectionYesANoB, pair.LegA.YesPrice+pair.LegB.NoPrice)
	if s1 != nil {
		res.Strategies[s1.Direction] = s1
	}
	s2 := buildStrategy(DirectionNoAYesB, pair.LegA.NoPrice+pair.LegB.YesPrice)
	if s2 != nil {
		res.Strategies[s2.Direction] = s2
	}

	switch {
	case s1 != nil && s1.Profit > 0 && (s2 == nil || s1.Profit >= s2.Profit):
		res.Best = s1
	case s2 != nil && s2.Profit > 0:
		res.Best = s2
	}
	return res
}

func buildStrategy(dir Direction, cost float64) *Strategy {
	if cost <= 0 {
		return nil
	}
	profit := 1 - cost
	return &Strategy{
		Direction:  dir,
		Cost:       cost,
		Profit:     profit,
		ROIPercent: profit / cost * 100,
	}
}

// LegPrices returns the bought-outcome price of each leg under a direction.
func LegPrices(pair matcher.MatchedPair, dir Direction) (priceA, priceB float64) {
	if dir == DirectionNoAYesB {
		return pair.LegA.NoPrice, pair.LegB.YesPrice
	}
	return pair.LegA.YesPrice, pair.LegB.NoPrice
}

// LegOutcomes returns which outcome each leg buys under a direction.
func LegOutcomes(dir Direction) (outcomeA, outcomeB string) {
	if dir == DirectionNoAYesB {
		return "no", "yes"
	}
	return "yes", "no"
}
