package report

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/parthdesai/CrossArb/internal/alloc"
	"github.com/parthdesai/CrossArb/internal/arb"
	"github.com/parthdesai/CrossArb/internal/collectors"
	"github.com/parthdesai/CrossArb/internal/matcher"
	"github.com/parthdesai/CrossArb/internal/scan"
)

func sampleOpportunity() arb.Opportunity {
	pair := matcher.MatchedPair{
		LegA: collectors.MarketQuote{
			Venue:        collectors.VenuePolymarket,
			MarketKey:    "0xaaa",
			CategorySlug: "metamask-fdv",
			Title:        "$1B-$3B",
			Question:     "MetaMask FDV?",
			YesPrice:     0.40,
			NoPrice:      0.60,
		},
		LegB: collectors.MarketQuote{
			Venue:     collectors.VenuePredictFun,
			MarketKey: "0xaaa",
			YesPrice:  0.50,
			NoPrice:   0.45,
		},
	}
	return arb.Opportunity{Pair: pair, Result: arb.Evaluate(pair)}
}

func sampleResult(capital float64) scan.RunResult {
	opp := sampleOpportunity()
	started := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	return scan.RunResult{
		RunID:      "0123456789abcdef",
		StartedAt:  started,
		FinishedAt: started.Add(3 * time.Second),
		Comparisons: []scan.Comparison{{
			Name:          scan.ComparisonPolyPredict,
			VenueA:        collectors.VenuePolymarket,
			VenueB:        collectors.VenuePredictFun,
			Pairs:         1,
			Opportunities: []arb.Opportunity{opp},
		}},
		Plan: alloc.Allocate([]arb.Opportunity{opp}, alloc.Config{TotalCapital: capital}),
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, sampleResult(100)); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}

	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("parse csv: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want header plus one", len(rows))
	}
	if rows[0][0] != "rank" || rows[0][len(rows[0])-1] != "slug" {
		t.Errorf("header = %v", rows[0])
	}

	want := []string{
		"1", "polymarket_vs_predictfun", "Polymarket", "predict.fun",
		"0xaaa", "$1B-$3B", "MetaMask FDV?", "YES on Polymarket, NO on predict.fun",
		"17.65", "0.150", "0.850",
		"0.400", "0.600", "0.500", "0.450",
		"", "", "", "",
		"Buy 2.50 shares of YES @ $0.400", "Buy 2.22 shares of NO @ $0.450",
		"metamask-fdv",
	}
	row := rows[1]
	if len(row) != len(want) {
		t.Fatalf("columns = %d, want %d", len(row), len(want))
	}
	for i := range want {
		if row[i] != want[i] {
			t.Errorf("column %s = %q, want %q", rows[0][i], row[i], want[i])
		}
	}
}

func TestWriteCSVOptionalCells(t *testing.T) {
	result := sampleResult(100)
	ask1 := 16.0
	result.Comparisons[0].Opportunities[0].Refined = &arb.RefinedROI{Ask1ROIPercent: &ask1}
	result.Comparisons[0].Opportunities[0].Review = &arb.ReviewNote{Equivalent: true, Reason: "same resolution source"}

	// A pair with no profitable strategy never becomes a row.
	dead := sampleOpportunity()
	dead.Pair.LegA.YesPrice, dead.Pair.LegB.NoPrice = 0.60, 0.55
	dead.Result = arb.Evaluate(dead.Pair)
	result.Comparisons[0].Opportunities = append(result.Comparisons[0].Opportunities, dead)

	var buf bytes.Buffer
	if err := WriteCSV(&buf, result); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("parse csv: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want the dead pair skipped", len(rows))
	}

	row := rows[1]
	if row[15] != "16.00" || row[16] != "" {
		t.Errorf("refined cells = %q, %q, want 16.00 and empty", row[15], row[16])
	}
	if row[17] != "true" || row[18] != "same resolution source" {
		t.Errorf("review cells = %q, %q", row[17], row[18])
	}
}

func TestSummary(t *testing.T) {
	result := sampleResult(100)
	out := Summary(result, Paths{CSV: "results/scan_x.csv", JSON: "results/scan_x.json"})

	for _, want := range []string{
		"ANALYSIS COMPLETE",
		"Run: 0123456789abcdef",
		"polymarket_vs_predictfun: 1 pairs, 1 opportunities",
		"Best ROI: 17.65%",
		"Capital (equal): deployed $100.00 of $100.00, expected profit $17.65 (ROI 17.65%)",
		"legs $47.06 / $52.94",
		"CSV:  results/scan_x.csv",
		"JSON: results/scan_x.json",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q\n%s", want, out)
		}
	}
}

func TestSummaryWarnings(t *testing.T) {
	// Capital 10 splits below the per-leg minimum, so nothing deploys.
	result := sampleResult(10)
	out := Summary(result, Paths{})

	if !strings.Contains(out, "rejected (leg bet below minimum") {
		t.Errorf("summary missing the rejection line\n%s", out)
	}
	if !strings.Contains(out, "! no opportunities received capital") {
		t.Errorf("summary missing the warning lines\n%s", out)
	}
	if strings.Contains(out, "Report saved") {
		t.Error("summary mentions saved files with no paths")
	}
}

func TestWriteFiles(t *testing.T) {
	dir := t.TempDir()
	result := sampleResult(100)

	paths, err := WriteFiles(result, dir)
	if err != nil {
		t.Fatalf("WriteFiles: %v", err)
	}

	if got := filepath.Base(paths.CSV); got != "scan_20250601_120000_01234567.csv" {
		t.Errorf("csv name = %s", got)
	}
	if got := filepath.Base(paths.JSON); got != "scan_20250601_120000_01234567.json" {
		t.Errorf("json name = %s", got)
	}

	raw, err := os.ReadFile(paths.JSON)
	if err != nil {
		t.Fatalf("read json: %v", err)
	}
	var decoded scan.RunResult
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("decode json: %v", err)
	}
	if decoded.RunID != result.RunID {
		t.Errorf("decoded RunID = %s, want %s", decoded.RunID, result.RunID)
	}
	if len(decoded.Comparisons) != 1 || decoded.Plan.TotalCapitalUSD != 100 {
		t.Errorf("decoded run lost content: %+v", decoded)
	}

	csvRaw, err := os.ReadFile(paths.CSV)
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	rows, err := csv.NewReader(bytes.NewReader(csvRaw)).ReadAll()
	if err != nil || len(rows) != 2 {
		t.Errorf("csv rows = %d (err %v), want 2", len(rows), err)
	}
}
