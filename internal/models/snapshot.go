package models

import (
	"time"

	"github.com/parthdesai/CrossArb/internal/collectors"
)

// QuoteSnapshot is the payload placed on the venue quote topics.
type QuoteSnapshot struct {
	Venue      collectors.Venue       `json:"venue"`
	Quote      collectors.MarketQuote `json:"quote"`
	CapturedAt time.Time              `json:"captured_at"`
}

// NewSnapshot strips depth before publishing; books are large and consumers
// refetch them at refine time anyway.
func NewSnapshot(quote collectors.MarketQuote, capturedAt time.Time) QuoteSnapshot {
	clone := quote
	clone.Depth = nil
	return QuoteSnapshot{
		Venue:      quote.Venue,
		Quote:      clone,
		CapturedAt: capturedAt,
	}
}
