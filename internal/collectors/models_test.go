package collectors

import "testing"

func TestDisplayName(t *testing.T) {
	tests := []struct {
		venue Venue
		want  string
	}{
		{VenuePolymarket, "Polymarket"},
		{VenuePredictFun, "predict.fun"},
		{VenueOpinion, "opinion.trade"},
		{Venue("kalshi"), "kalshi"},
	}

	for _, tt := range tests {
		if got := tt.venue.DisplayName(); got != tt.want {
			t.Errorf("DisplayName(%q) = %q, want %q", tt.venue, got, tt.want)
		}
	}
}

func TestUsable(t *testing.T) {
	tests := []struct {
		name  string
		quote MarketQuote
		want  bool
	}{
		{name: "open with both prices", quote: MarketQuote{YesPrice: 0.4, NoPrice: 0.6}, want: true},
		{name: "closed", quote: MarketQuote{YesPrice: 0.4, NoPrice: 0.6, Closed: true}, want: false},
		{name: "missing yes price", quote: MarketQuote{NoPrice: 0.6}, want: false},
		{name: "missing no price", quote: MarketQuote{YesPrice: 0.4}, want: false},
		{name: "negative price", quote: MarketQuote{YesPrice: -0.1, NoPrice: 0.6}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.quote.Usable(); got != tt.want {
				t.Errorf("Usable() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSlugTitleKey(t *testing.T) {
	q := MarketQuote{CategorySlug: "metamask-fdv", Title: "$1B-$3B"}
	if got, want := q.SlugTitleKey(), "metamask-fdv||$1B-$3B"; got != want {
		t.Errorf("SlugTitleKey() = %q, want %q", got, want)
	}

	untitled := MarketQuote{CategorySlug: "metamask-fdv"}
	if got, want := untitled.SlugTitleKey(), "metamask-fdv||"; got != want {
		t.Errorf("SlugTitleKey() = %q, want %q", got, want)
	}
}
