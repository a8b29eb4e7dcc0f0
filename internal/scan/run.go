package scan

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/parthdesai/CrossArb/internal/alloc"
	"github.com/parthdesai/CrossArb/internal/collectors"
	"github.com/parthdesai/CrossArb/internal/logging"
	"github.com/parthdesai/CrossArb/internal/matcher"
	"github.com/parthdesai/CrossArb/internal/review"
)

// Inputs are the quote sets for one run, fetched live or read from the
// streaming quote book.
type Inputs struct {
	Polymarket []collectors.MarketQuote
	PredictFun []collectors.MarketQuote
	Opinion    []collectors.MarketQuote
}

// Options tune one run. A zero RefineTopK falls back to the package default;
// zero values elsewhere disable review, book fetching, and the audit log.
type Options struct {
	Fetchers   map[collectors.Venue]BookFetcher
	Reviewer   *review.Service
	MatchLog   *matcher.Logger
	RefineTopK int
	ReviewTopK int
	Alloc      alloc.Config
}

// RunResult is everything one run produced.
type RunResult struct {
	RunID       string       `json:"run_id"`
	StartedAt   time.Time    `json:"started_at"`
	FinishedAt  time.Time    `json:"finished_at"`
	Comparisons []Comparison `json:"comparisons"`
	Plan        alloc.Plan   `json:"plan"`
}

// Run executes one full pass: match, evaluate, refine, review, allocate.
func Run(ctx context.Context, inputs Inputs, opts Options) RunResult {
	result := RunResult{
		RunID:     uuid.NewString(),
		StartedAt: time.Now().UTC(),
	}

	result.Comparisons = BuildComparisons(inputs.Polymarket, inputs.PredictFun, inputs.Opinion, opts.MatchLog)
	for i := range result.Comparisons {
		RefineTop(ctx, &result.Comparisons[i], opts.Fetchers, opts.RefineTopK)
		ReviewTop(ctx, &result.Comparisons[i], opts.Reviewer, opts.ReviewTopK)
	}

	opps := AllOpportunities(result.Comparisons)
	result.Plan = alloc.Allocate(opps, opts.Alloc)
	result.FinishedAt = time.Now().UTC()

	logging.Infof("[scan] run %s: %d opportunities, %.2f/%.2f USD deployed",
		result.RunID, len(opps), result.Plan.TotalDeployedUSD, result.Plan.TotalCapitalUSD)
	return result
}
