package scan

import (
	"context"

	"github.com/parthdesai/CrossArb/internal/arb"
	"github.com/parthdesai/CrossArb/internal/collectors"
	"github.com/parthdesai/CrossArb/internal/logging"
)

// BookFetcher retrieves order books by token ID at refine time. Venues whose
// quotes already carry depth do not need one.
type BookFetcher interface {
	FetchBooks(ctx context.Context, tokenIDs []string) (map[string]collectors.OrderBook, error)
}

// RefineTop recomputes depth-aware ROI for the comparison's top k
// opportunities in place. Opportunities are already sorted by flat ROI, so
// the top k are the first k. Missing books degrade to the flat price per leg
// inside the refinement itself.
func RefineTop(ctx context.Context, comp *Comparison, fetchers map[collectors.Venue]BookFetcher, k int) {
	if comp == nil || len(comp.Opportunities) == 0 {
		return
	}
	if k <= 0 {
		k = arb.DefaultTopK
	}
	if k > len(comp.Opportunities) {
		k = len(comp.Opportunities)
	}

	for i := 0; i < k; i++ {
		opp := &comp.Opportunities[i]
		depthA := legDepth(ctx, opp.Pair.LegA, fetchers)
		depthB := legDepth(ctx, opp.Pair.LegB, fetchers)
		opp.Refined = arb.Refine(*opp, depthA, depthB)
	}
}

// legDepth resolves a leg's order books: depth attached at collect time wins,
// otherwise the venue's fetcher is asked for the leg's tokens.
func legDepth(ctx context.Context, leg collectors.MarketQuote, fetchers map[collectors.Venue]BookFetcher) *collectors.MarketDepth {
	if leg.Depth != nil {
		return leg.Depth
	}

	fetcher, ok := fetchers[leg.Venue]
	if !ok || fetcher == nil {
		return nil
	}

	var tokenIDs []string
	if leg.YesTokenID != "" {
		tokenIDs = append(tokenIDs, leg.YesTokenID)
	}
	if leg.NoTokenID != "" {
		tokenIDs = append(tokenIDs, leg.NoTokenID)
	}
	if len(tokenIDs) == 0 {
		return nil
	}

	books, err := fetcher.FetchBooks(ctx, tokenIDs)
	if err != nil {
		logging.Warnf("[scan] books for %s %s: %v", leg.Venue, leg.MarketKey, err)
		return nil
	}

	depth := &collectors.MarketDepth{}
	if book, ok := books[leg.YesTokenID]; ok {
		yes := book
		depth.Yes = &yes
	}
	if book, ok := books[leg.NoTokenID]; ok {
		no := book
		depth.No = &no
	}
	if depth.Yes == nil && depth.No == nil {
		return nil
	}
	return depth
}
