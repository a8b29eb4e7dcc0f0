package sqlite

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/parthdesai/CrossArb/internal/alloc"
	"github.com/parthdesai/CrossArb/internal/arb"
)

// InsertRun stores one scan run's allocation aggregates.
func (s *Store) InsertRun(ctx context.Context, runID string, startedAt, finishedAt time.Time, plan alloc.Plan) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlite store not initialized")
	}
	warningsJSON, err := json.Marshal(plan.Warnings)
	if err != nil {
		return fmt.Errorf("marshal warnings: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
INSERT INTO runs (
	run_id, started_at, finished_at, policy,
	total_capital_usd, total_deployed_usd, total_unallocated_usd,
	total_expected_profit_usd, overall_roi_percent, warnings_json
) VALUES (?,?,?,?,?,?,?,?,?,?)`,
		runID,
		formatTime(startedAt),
		formatTime(finishedAt),
		string(plan.Policy),
		plan.TotalCapitalUSD,
		plan.TotalDeployedUSD,
		plan.TotalUnallocatedUSD,
		plan.TotalExpectedProfitUSD,
		plan.OverallROIPercent,
		string(warningsJSON),
	)
	return err
}

// InsertOpportunities stores every profitable opportunity one comparison
// produced, including refinement and review annotations when present.
func (s *Store) InsertOpportunities(ctx context.Context, runID, comparison string, opps []arb.Opportunity) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlite store not initialized")
	}
	if len(opps) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO opportunities (
	run_id, pair_id, comparison, venue_a, venue_b,
	market_key_a, market_key_b, title, question,
	direction, cost, profit, roi_percent,
	ask1_roi_percent, ask2_roi_percent,
	review_equivalent, review_reason,
	pair_json, created_at
) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	now := time.Now().UTC().Format(time.RFC3339Nano)
	for _, opp := range opps {
		best := opp.Result.Best
		if best == nil {
			continue
		}

		var ask1, ask2 *float64
		if opp.Refined != nil {
			ask1 = opp.Refined.Ask1ROIPercent
			ask2 = opp.Refined.Ask2ROIPercent
		}
		var reviewEquivalent *bool
		var reviewReason *string
		if opp.Review != nil {
			reviewEquivalent = &opp.Review.Equivalent
			reviewReason = &opp.Review.Reason
		}
		pairJSON, err := json.Marshal(opp)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("marshal opportunity %s: %w", opp.Pair.ShortID(), err)
		}

		if _, err := stmt.ExecContext(
			ctx,
			runID,
			opp.Pair.ID(),
			comparison,
			string(opp.Pair.LegA.Venue),
			string(opp.Pair.LegB.Venue),
			opp.Pair.LegA.MarketKey,
			opp.Pair.LegB.MarketKey,
			opp.Pair.LegA.Title,
			opp.Pair.LegA.Question,
			string(best.Direction),
			best.Cost,
			best.Profit,
			best.ROIPercent,
			ask1,
			ask2,
			reviewEquivalent,
			reviewReason,
			string(pairJSON),
			now,
		); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// InsertAllocations stores the allocator's terminal state per opportunity.
func (s *Store) InsertAllocations(ctx context.Context, runID string, plan alloc.Plan) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlite store not initialized")
	}
	if len(plan.Allocations) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO allocations (
	run_id, pair_id, status, reason,
	proposed_usd, allocated_usd, bet_leg_a_usd, bet_leg_b_usd,
	price_leg_a, price_leg_b, expected_profit_usd, roi_percent,
	created_at
) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	now := time.Now().UTC().Format(time.RFC3339Nano)
	for _, a := range plan.Allocations {
		if _, err := stmt.ExecContext(
			ctx,
			runID,
			a.Opportunity.Pair.ID(),
			string(a.Status),
			a.Reason,
			a.ProposedUSD,
			a.AllocatedUSD,
			a.BetLegAUSD,
			a.BetLegBUSD,
			a.PriceLegA,
			a.PriceLegB,
			a.ExpectedProfitUSD,
			a.ROIPercent,
			now,
		); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}
