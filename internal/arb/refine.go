package arb

import (
	"sort"

	"github.com/parthdesai/CrossArb/internal/collectors"
)

// DefaultTopK bounds how many opportunities per comparison get the depth
// pass; book retrieval is the rate-limited, latency-bearing call.
const DefaultTopK = 5

// RefinedROI carries depth-aware ROI at the best and second-best executable
// ask levels: an optimistic small-size figure and a more conservative one. A
// figure is nil only when its cost came out non-positive.
type RefinedROI struct {
	Ask1ROIPercent *float64 `json:"ask1_roi_percent,omitempty"`
	Ask2ROIPercent *float64 `json:"ask2_roi_percent,omitempty"`
}

// Refine recomputes the best strategy's ROI using order-book ask prices in
// place of flat prices. Each leg independently falls back to its flat price
// when the book, side, or level is absent, so a partial book still yields a
// usable figure. Returns nil when the opportunity has no best strategy.
func Refine(opp Opportunity, depthA, depthB *collectors.MarketDepth) *RefinedROI {
	best := opp.Result.Best
	if best == nil {
		return nil
	}

	flatA, flatB := LegPrices(opp.Pair, best.Direction)
	outcomeA, outcomeB := LegOutcomes(best.Direction)
	asksA := sortedAsks(depthA, outcomeA)
	asksB := sortedAsks(depthB, outcomeB)

	refined := &RefinedROI{}
	if roi, ok := levelROI(flatA, flatB, asksA, asksB, 0); ok {
		refined.Ask1ROIPercent = &roi
	}
	if roi, ok := levelROI(flatA, flatB, asksA, asksB, 1); ok {
		refined.Ask2ROIPercent = &roi
	}
	return refined
}

func levelROI(flatA, flatB float64, asksA, asksB []collectors.BookLevel, level int) (float64, bool) {
	priceA := flatA
	if level < len(asksA) {
		priceA = asksA[level].Price
	}
	priceB := flatB
	if level < len(asksB) {
		priceB = asksB[level].Price
	}

	cost := priceA + priceB
	if cost <= 0 {
		return 0, false
	}
	return (1 - cost) / cost * 100, true
}

// SortBook returns a copy of the book with bids descending and asks
// ascending, the order level extraction assumes. Venues return levels in
// arbitrary order and the input is never mutated.
func SortBook(book *collectors.OrderBook) *collectors.OrderBook {
	if book == nil {
		return nil
	}
	out := &collectors.OrderBook{
		Bids: make([]collectors.BookLevel, len(book.Bids)),
		Asks: make([]collectors.BookLevel, len(book.Asks)),
	}
	copy(out.Bids, book.Bids)
	copy(out.Asks, book.Asks)
	sort.Slice(out.Bids, func(i, j int) bool { return out.Bids[i].Price > out.Bids[j].Price })
	sort.Slice(out.Asks, func(i, j int) bool { return out.Asks[i].Price < out.Asks[j].Price })
	return out
}

func sortedAsks(depth *collectors.MarketDepth, outcome string) []collectors.BookLevel {
	if depth == nil {
		return nil
	}
	book := depth.Yes
	if outcome == "no" {
		book = depth.No
	}
	if book == nil {
		return nil
	}
	return SortBook(book).Asks
}
