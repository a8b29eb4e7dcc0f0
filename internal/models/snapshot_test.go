package models

import (
	"testing"
	"time"

	"github.com/parthdesai/CrossArb/internal/collectors"
)

func TestNewSnapshot(t *testing.T) {
	capturedAt := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	quote := collectors.MarketQuote{
		Venue:        collectors.VenuePolymarket,
		MarketKey:    "0xaaa",
		CategorySlug: "metamask-fdv",
		Title:        "$1B-$3B",
		YesPrice:     0.40,
		NoPrice:      0.60,
		YesTokenID:   "tok-yes",
		NoTokenID:    "tok-no",
		Depth: &collectors.MarketDepth{
			Yes: &collectors.OrderBook{Asks: []collectors.BookLevel{{Price: 0.42, SizeUSD: 21}}},
		},
	}

	snap := NewSnapshot(quote, capturedAt)

	if snap.Venue != collectors.VenuePolymarket {
		t.Errorf("Venue = %q, want %q", snap.Venue, collectors.VenuePolymarket)
	}
	if !snap.CapturedAt.Equal(capturedAt) {
		t.Errorf("CapturedAt = %v, want %v", snap.CapturedAt, capturedAt)
	}
	if snap.Quote.Depth != nil {
		t.Error("Quote.Depth survived the snapshot, want it stripped")
	}
	if snap.Quote.MarketKey != "0xaaa" || snap.Quote.YesPrice != 0.40 || snap.Quote.YesTokenID != "tok-yes" {
		t.Errorf("Quote = %+v, want the original fields preserved", snap.Quote)
	}

	// The input quote keeps its depth; only the published copy drops it.
	if quote.Depth == nil {
		t.Error("NewSnapshot mutated the caller's quote")
	}
}
