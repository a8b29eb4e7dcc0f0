package scan

import (
	"testing"
	"time"

	"github.com/parthdesai/CrossArb/internal/collectors"
	"github.com/parthdesai/CrossArb/internal/models"
)

func snap(venue collectors.Venue, key string, yes float64) *models.QuoteSnapshot {
	q := collectors.MarketQuote{Venue: venue, MarketKey: key, YesPrice: yes, NoPrice: 1 - yes}
	s := models.NewSnapshot(q, time.Now().UTC())
	return &s
}

func TestQuoteBookUpdate(t *testing.T) {
	book := NewQuoteBook()

	book.Update(nil)
	book.Update(snap(collectors.VenuePolymarket, "", 0.40))
	if book.Size() != 0 {
		t.Fatalf("Size = %d after degenerate updates, want 0", book.Size())
	}

	book.Update(snap(collectors.VenuePolymarket, "0xaaa", 0.40))
	book.Update(snap(collectors.VenuePolymarket, "0xaaa", 0.45))
	if book.Size() != 1 {
		t.Fatalf("Size = %d, want 1", book.Size())
	}
	quotes := book.Quotes(collectors.VenuePolymarket)
	if len(quotes) != 1 {
		t.Fatalf("len(quotes) = %d, want 1", len(quotes))
	}
	if !near(quotes[0].YesPrice, 0.45) {
		t.Errorf("YesPrice = %v, want the later update 0.45", quotes[0].YesPrice)
	}
}

func TestQuoteBookUpdateVenueFallback(t *testing.T) {
	book := NewQuoteBook()

	s := snap(collectors.VenueOpinion, "0xbbb", 0.30)
	s.Venue = ""
	book.Update(s)

	quotes := book.Quotes(collectors.VenueOpinion)
	if len(quotes) != 1 || quotes[0].MarketKey != "0xbbb" {
		t.Errorf("Quotes(opinion) = %+v, want the quote filed under its own venue", quotes)
	}
}

func TestQuoteBookSeed(t *testing.T) {
	book := NewQuoteBook()
	book.Seed(collectors.VenuePredictFun, []collectors.MarketQuote{
		{Venue: collectors.VenuePredictFun, MarketKey: "0xbbb", YesPrice: 0.50, NoPrice: 0.50},
		{Venue: collectors.VenuePredictFun, MarketKey: "", YesPrice: 0.50, NoPrice: 0.50},
		{Venue: collectors.VenuePredictFun, MarketKey: "0xaaa", YesPrice: 0.40, NoPrice: 0.60},
	})

	quotes := book.Quotes(collectors.VenuePredictFun)
	if len(quotes) != 2 {
		t.Fatalf("len(quotes) = %d, want 2", len(quotes))
	}
	if quotes[0].MarketKey != "0xaaa" || quotes[1].MarketKey != "0xbbb" {
		t.Errorf("keys = %s, %s, want sorted 0xaaa, 0xbbb", quotes[0].MarketKey, quotes[1].MarketKey)
	}
}

func TestQuoteBookSize(t *testing.T) {
	book := NewQuoteBook()
	book.Update(snap(collectors.VenuePolymarket, "0xaaa", 0.40))
	book.Update(snap(collectors.VenuePredictFun, "0xaaa", 0.45))
	book.Update(snap(collectors.VenueOpinion, "0xccc", 0.30))

	if book.Size() != 3 {
		t.Errorf("Size = %d, want 3", book.Size())
	}
	if got := len(book.Quotes(collectors.VenuePredictFun)); got != 1 {
		t.Errorf("Quotes(predictfun) = %d quotes, want 1", got)
	}
}
