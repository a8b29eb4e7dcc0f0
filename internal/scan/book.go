package scan

import (
	"sort"
	"sync"

	"github.com/parthdesai/CrossArb/internal/collectors"
	"github.com/parthdesai/CrossArb/internal/models"
)

// QuoteBook holds the latest quote per venue and market for the streaming
// engine. Snapshot consumers write, the scan ticker reads.
type QuoteBook struct {
	mu      sync.RWMutex
	byVenue map[collectors.Venue]map[string]collectors.MarketQuote
}

func NewQuoteBook() *QuoteBook {
	return &QuoteBook{
		byVenue: make(map[collectors.Venue]map[string]collectors.MarketQuote),
	}
}

// Update replaces the stored quote for the snapshot's market.
func (b *QuoteBook) Update(snapshot *models.QuoteSnapshot) {
	if snapshot == nil || snapshot.Quote.MarketKey == "" {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	venue := snapshot.Venue
	if venue == "" {
		venue = snapshot.Quote.Venue
	}
	quotes, ok := b.byVenue[venue]
	if !ok {
		quotes = make(map[string]collectors.MarketQuote)
		b.byVenue[venue] = quotes
	}
	quotes[snapshot.Quote.MarketKey] = snapshot.Quote
}

// Seed bulk-loads quotes for a venue, used to warm the book from storage
// before live snapshots arrive.
func (b *QuoteBook) Seed(venue collectors.Venue, quotes []collectors.MarketQuote) {
	b.mu.Lock()
	defer b.mu.Unlock()

	stored, ok := b.byVenue[venue]
	if !ok {
		stored = make(map[string]collectors.MarketQuote)
		b.byVenue[venue] = stored
	}
	for _, q := range quotes {
		if q.MarketKey == "" {
			continue
		}
		stored[q.MarketKey] = q
	}
}

// Quotes returns the venue's quotes sorted by market key so repeated scans
// see a stable order.
func (b *QuoteBook) Quotes(venue collectors.Venue) []collectors.MarketQuote {
	b.mu.RLock()
	defer b.mu.RUnlock()

	stored := b.byVenue[venue]
	out := make([]collectors.MarketQuote, 0, len(stored))
	for _, q := range stored {
		out = append(out, q)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MarketKey < out[j].MarketKey })
	return out
}

// Size reports the total quote count across venues.
func (b *QuoteBook) Size() int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	total := 0
	for _, quotes := range b.byVenue {
		total += len(quotes)
	}
	return total
}
