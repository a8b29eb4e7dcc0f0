package scan

import (
	"context"

	"github.com/parthdesai/CrossArb/internal/arb"
	"github.com/parthdesai/CrossArb/internal/logging"
	"github.com/parthdesai/CrossArb/internal/review"
)

// ReviewTop annotates the comparison's top k opportunities with
// resolution-equivalence verdicts. Reviews are advisory: a failed or
// disabled review leaves the opportunity untouched and never drops it.
func ReviewTop(ctx context.Context, comp *Comparison, reviewer *review.Service, k int) {
	if comp == nil || !reviewer.Enabled() {
		return
	}
	if k <= 0 {
		return
	}
	if k > len(comp.Opportunities) {
		k = len(comp.Opportunities)
	}

	for i := 0; i < k; i++ {
		opp := &comp.Opportunities[i]
		verdict, err := reviewer.Review(ctx, opp.Pair)
		if err != nil {
			logging.Warnf("[scan] review %s: %v", opp.Pair.ShortID(), err)
			continue
		}
		if verdict == nil {
			continue
		}
		opp.Review = &arb.ReviewNote{
			Equivalent: verdict.Equivalent,
			Reason:     verdict.Reason,
		}
	}
}
