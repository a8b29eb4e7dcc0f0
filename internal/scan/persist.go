package scan

import (
	"context"
	"time"

	"github.com/parthdesai/CrossArb/internal/cache"
	"github.com/parthdesai/CrossArb/internal/logging"
	sqlstore "github.com/parthdesai/CrossArb/internal/storage/sqlite"
)

// Persist writes the run's opportunities, allocations, and aggregates to
// SQLite. Failures are logged; a persistence error never kills a run.
func Persist(ctx context.Context, store *sqlstore.Store, result RunResult) {
	if store == nil {
		return
	}
	for _, comp := range result.Comparisons {
		if err := store.InsertOpportunities(ctx, result.RunID, comp.Name, comp.Opportunities); err != nil {
			logging.Errorf("[scan] persist %s: %v", comp.Name, err)
		}
	}
	if err := store.InsertAllocations(ctx, result.RunID, result.Plan); err != nil {
		logging.Errorf("[scan] persist allocations: %v", err)
	}
	if err := store.InsertRun(ctx, result.RunID, result.StartedAt, result.FinishedAt, result.Plan); err != nil {
		logging.Errorf("[scan] persist run: %v", err)
	}
}

// RecordOpportunities refreshes the per-pair best record, logging pairs not
// seen with this direction before so repeat scans stay quiet.
func RecordOpportunities(ctx context.Context, opps cache.OpportunityCache, result RunResult) {
	if opps == nil {
		return
	}
	for _, comp := range result.Comparisons {
		for _, opp := range comp.Opportunities {
			best := opp.Result.Best
			if best == nil {
				continue
			}
			pairID := opp.Pair.ID()
			prev, found, err := opps.Get(ctx, pairID)
			if err != nil {
				logging.Warnf("[scan] opportunity cache get: %v", err)
			}
			if found && prev.Direction == string(best.Direction) {
				logging.Debugf("[scan] repeat opportunity %s (%.2f%% -> %.2f%%)",
					opp.Pair.ShortID(), prev.ROIPercent, best.ROIPercent)
			} else {
				logging.Infof("[scan] new opportunity %s dir=%s roi=%.2f%%",
					opp.Pair.ShortID(), best.Direction, best.ROIPercent)
			}
			record := cache.OpportunityRecord{
				Direction:  string(best.Direction),
				Cost:       best.Cost,
				Profit:     best.Profit,
				ROIPercent: best.ROIPercent,
				RunID:      result.RunID,
				UpdatedAt:  time.Now().UTC(),
			}
			if err := opps.Set(ctx, pairID, record); err != nil {
				logging.Warnf("[scan] opportunity cache set: %v", err)
			}
		}
	}
}
