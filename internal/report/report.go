package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/parthdesai/CrossArb/internal/alloc"
	"github.com/parthdesai/CrossArb/internal/arb"
	"github.com/parthdesai/CrossArb/internal/matcher"
	"github.com/parthdesai/CrossArb/internal/scan"
)

// Paths points at the files one run produced.
type Paths struct {
	CSV  string
	JSON string
}

// WriteFiles writes the run's CSV and JSON reports under dir, named by run
// start time and short run ID.
func WriteFiles(result scan.RunResult, dir string) (Paths, error) {
	if dir == "" {
		dir = "results"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Paths{}, fmt.Errorf("ensure results dir: %w", err)
	}

	stem := fmt.Sprintf("scan_%s_%s", result.StartedAt.UTC().Format("20060102_150405"), shortRunID(result.RunID))
	paths := Paths{
		CSV:  filepath.Join(dir, stem+".csv"),
		JSON: filepath.Join(dir, stem+".json"),
	}

	csvFile, err := os.Create(paths.CSV)
	if err != nil {
		return Paths{}, fmt.Errorf("create csv: %w", err)
	}
	defer csvFile.Close()
	if err := WriteCSV(csvFile, result); err != nil {
		return Paths{}, fmt.Errorf("write csv: %w", err)
	}

	jsonFile, err := os.Create(paths.JSON)
	if err != nil {
		return Paths{}, fmt.Errorf("create json: %w", err)
	}
	defer jsonFile.Close()
	if err := WriteJSON(jsonFile, result); err != nil {
		return Paths{}, fmt.Errorf("write json: %w", err)
	}

	return paths, nil
}

var csvHeader = []string{
	"rank", "comparison", "venue_a", "venue_b",
	"market_key", "title", "question", "strategy",
	"roi_percent", "profit_usd", "total_cost_usd",
	"venue_a_yes", "venue_a_no", "venue_b_yes", "venue_b_no",
	"ask1_roi_percent", "ask2_roi_percent",
	"review_equivalent", "review_reason",
	"action_venue_a", "action_venue_b", "slug",
}

// WriteCSV writes every comparison's opportunities, ranked by flat ROI
// within its comparison.
func WriteCSV(w io.Writer, result scan.RunResult) error {
	csvw := csv.NewWriter(w)
	if err := csvw.Write(csvHeader); err != nil {
		return err
	}
	for _, comp := range result.Comparisons {
		for rank, opp := range comp.Opportunities {
			if opp.Result.Best == nil {
				continue
			}
			if err := csvw.Write(buildRow(rank+1, comp, opp)); err != nil {
				return err
			}
		}
	}
	csvw.Flush()
	return csvw.Error()
}

// WriteJSON writes the full run result, allocations included.
func WriteJSON(w io.Writer, result scan.RunResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

func buildRow(rank int, comp scan.Comparison, opp arb.Opportunity) []string {
	best := opp.Result.Best
	pair := opp.Pair
	outcomeA, outcomeB := arb.LegOutcomes(best.Direction)
	priceA, priceB := arb.LegPrices(pair, best.Direction)

	title := pair.LegA.Title
	if title == "" {
		title = pair.LegB.Title
	}
	question := pair.LegA.Question
	if question == "" {
		question = pair.LegB.Question
	}

	reviewEquivalent, reviewReason := "", ""
	if opp.Review != nil {
		reviewEquivalent = fmt.Sprintf("%t", opp.Review.Equivalent)
		reviewReason = opp.Review.Reason
	}

	return []string{
		fmt.Sprintf("%d", rank),
		comp.Name,
		pair.LegA.Venue.DisplayName(),
		pair.LegB.Venue.DisplayName(),
		pair.LegA.MarketKey,
		title,
		question,
		strategyLabel(pair, best.Direction),
		fmt.Sprintf("%.2f", best.ROIPercent),
		fmt.Sprintf("%.3f", best.Profit),
		fmt.Sprintf("%.3f", best.Cost),
		fmt.Sprintf("%.3f", pair.LegA.YesPrice),
		fmt.Sprintf("%.3f", pair.LegA.NoPrice),
		fmt.Sprintf("%.3f", pair.LegB.YesPrice),
		fmt.Sprintf("%.3f", pair.LegB.NoPrice),
		refinedCell(opp.Refined, true),
		refinedCell(opp.Refined, false),
		reviewEquivalent,
		reviewReason,
		action(outcomeA, priceA),
		action(outcomeB, priceB),
		pair.LegA.CategorySlug,
	}
}

func strategyLabel(pair matcher.MatchedPair, dir arb.Direction) string {
	outcomeA, outcomeB := arb.LegOutcomes(dir)
	return fmt.Sprintf("%s on %s, %s on %s",
		strings.ToUpper(outcomeA), pair.LegA.Venue.DisplayName(),
		strings.ToUpper(outcomeB), pair.LegB.Venue.DisplayName())
}

func action(outcome string, price float64) string {
	shares := 0.0
	if price > 0 {
		shares = 1 / price
	}
	return fmt.Sprintf("Buy %.2f shares of %s @ $%.3f", shares, strings.ToUpper(outcome), price)
}

func refinedCell(refined *arb.RefinedROI, first bool) string {
	if refined == nil {
		return ""
	}
	val := refined.Ask1ROIPercent
	if !first {
		val = refined.Ask2ROIPercent
	}
	if val == nil {
		return ""
	}
	return fmt.Sprintf("%.2f", *val)
}

// Summary renders the end-of-run text block.
func Summary(result scan.RunResult, paths Paths) string {
	var b strings.Builder
	line := strings.Repeat("=", 50)

	fmt.Fprintf(&b, "%s\nANALYSIS COMPLETE\n%s\n", line, line)
	fmt.Fprintf(&b, "Run: %s\n", result.RunID)

	for _, comp := range result.Comparisons {
		fmt.Fprintf(&b, "\n%s: %d pairs, %d opportunities\n", comp.Name, comp.Pairs, len(comp.Opportunities))
		if best := bestROI(comp); best != nil {
			fmt.Fprintf(&b, "  Best ROI: %.2f%%\n", *best)
		}
	}

	plan := result.Plan
	fmt.Fprintf(&b, "\nCapital (%s): deployed $%.2f of $%.2f, expected profit $%.2f (ROI %.2f%%)\n",
		plan.Policy, plan.TotalDeployedUSD, plan.TotalCapitalUSD, plan.TotalExpectedProfitUSD, plan.OverallROIPercent)
	for _, a := range plan.Allocations {
		if a.Status == alloc.StatusAllocated {
			fmt.Fprintf(&b, "  - %s: $%.2f (legs $%.2f / $%.2f, expect $%.2f)\n",
				a.Opportunity.Pair.ShortID(), a.AllocatedUSD, a.BetLegAUSD, a.BetLegBUSD, a.ExpectedProfitUSD)
		} else {
			fmt.Fprintf(&b, "  - %s: rejected (%s)\n", a.Opportunity.Pair.ShortID(), a.Reason)
		}
	}
	for _, warning := range plan.Warnings {
		fmt.Fprintf(&b, "  ! %s\n", warning)
	}

	if paths.CSV != "" || paths.JSON != "" {
		fmt.Fprintf(&b, "\nReport saved:\n")
		if paths.CSV != "" {
			fmt.Fprintf(&b, "  - CSV:  %s\n", paths.CSV)
		}
		if paths.JSON != "" {
			fmt.Fprintf(&b, "  - JSON: %s\n", paths.JSON)
		}
	}
	return b.String()
}

func bestROI(comp scan.Comparison) *float64 {
	var best *float64
	for _, opp := range comp.Opportunities {
		if opp.Result.Best == nil {
			continue
		}
		roi := opp.Result.Best.ROIPercent
		if best == nil || roi > *best {
			val := roi
			best = &val
		}
	}
	return best
}

func shortRunID(runID string) string {
	if len(runID) <= 8 {
		return runID
	}
	return runID[:8]
}
