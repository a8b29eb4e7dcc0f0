package collectors

import "context"

// Venue identifies the platform a market quote belongs to.
type Venue string

const (
	VenuePolymarket Venue = "polymarket"
	VenuePredictFun Venue = "predictfun"
	VenueOpinion    Venue = "opinion"
)

// DisplayName returns the venue's human-facing name for reports.
func (v Venue) DisplayName() string {
	switch v {
	case VenuePolymarket:
		return "Polymarket"
	case VenuePredictFun:
		return "predict.fun"
	case VenueOpinion:
		return "opinion.trade"
	default:
		return string(v)
	}
}

// Collector is implemented by venue-specific clients. Fetch returns a complete
// normalized snapshot of the venue's configured markets; a failed venue yields
// an error and no partial data.
type Collector interface {
	Name() string
	Fetch(ctx context.Context) ([]MarketQuote, error)
}

// BookLevel is one price level of an outcome-token order book. SizeUSD is the
// level's notional in quote currency (price x contracts).
type BookLevel struct {
	Price   float64 `json:"price"`
	SizeUSD float64 `json:"size_usd"`
}

// OrderBook holds two-sided depth for one outcome token. Levels are kept in
// whatever order the venue returned them; consumers sort before extracting.
type OrderBook struct {
	Bids []BookLevel `json:"bids,omitempty"`
	Asks []BookLevel `json:"asks,omitempty"`
}

// MarketDepth couples the YES and NO books of one market.
type MarketDepth struct {
	Yes *OrderBook `json:"yes,omitempty"`
	No  *OrderBook `json:"no,omitempty"`
}

// MarketQuote is one binary market's state on one venue.
//
// MarketKey is the venue's exact matching identifier; all three venues expose
// the Polymarket conditionId, which makes it the shared exact-join key.
// CategorySlug and Title form the composite key for venues matched by
// slug+title instead.
type MarketQuote struct {
	Venue        Venue        `json:"venue"`
	MarketKey    string       `json:"market_key"`
	CategorySlug string       `json:"category_slug,omitempty"`
	Title        string       `json:"title,omitempty"`
	Question     string       `json:"question,omitempty"`
	YesPrice     float64      `json:"yes_price"`
	NoPrice      float64      `json:"no_price"`
	Closed       bool         `json:"closed"`
	YesTokenID   string       `json:"yes_token_id,omitempty"`
	NoTokenID    string       `json:"no_token_id,omitempty"`
	Depth        *MarketDepth `json:"depth,omitempty"`
}

// SlugTitleKey builds the composite join key for title-keyed venues.
func (q MarketQuote) SlugTitleKey() string {
	return q.CategorySlug + "||" + q.Title
}

// Usable reports whether the quote can enter matching: open with both prices
// present. A zero price means the venue had no quote for that outcome; such
// markets are dropped rather than defaulted.
func (q MarketQuote) Usable() bool {
	return !q.Closed && q.YesPrice > 0 && q.NoPrice > 0
}
