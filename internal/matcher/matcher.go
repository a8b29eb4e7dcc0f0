package matcher

import (
	"sort"

	"github.com/parthdesai/CrossArb/internal/collectors"
	"github.com/parthdesai/CrossArb/internal/hashutil"
)

// JoinMode selects the key scheme used to pair quotes across two venues.
type JoinMode int

const (
	// JoinExactKey joins on the venue-native exact identifier.
	JoinExactKey JoinMode = iota
	// JoinSlugTitle joins on the composite category_slug||title key. Exact
	// string equality only; formatting drift between venues is a documented
	// limitation, not something the matcher papers over.
	JoinSlugTitle
)

// MatchedPair is one logical market quoted on two venues. Immutable after
// creation; the evaluator consumes it as a value.
type MatchedPair struct {
	LegA collectors.MarketQuote `json:"leg_a"`
	LegB collectors.MarketQuote `json:"leg_b"`
}

// ID returns an order-independent identifier for the pair.
func (p MatchedPair) ID() string {
	parts := []string{
		string(p.LegA.Venue) + ":" + p.LegA.MarketKey,
		string(p.LegB.Venue) + ":" + p.LegB.MarketKey,
	}
	sort.Strings(parts)
	return hashutil.HashStrings(parts...)
}

// ShortID is the truncated pair ID used in logs and reports.
func (p MatchedPair) ShortID() string {
	return p.ID()[:12]
}

// Match inner-joins two venues' quote lists under the given mode and returns
// one pair per joined market, LegA taken from quotesA. Closed quotes and
// quotes with a missing price never enter the join; unmatched markets are
// dropped silently. The hash index is built on the smaller side, so the join
// is O(len(a)+len(b)).
func Match(quotesA, quotesB []collectors.MarketQuote, mode JoinMode) []MatchedPair {
	a := usable(quotesA)
	b := usable(quotesB)
	if len(a) == 0 || len(b) == 0 {
		return nil
	}

	var pairs []MatchedPair
	if len(a) <= len(b) {
		idx := buildIndex(a, mode)
		for _, qb := range b {
			key := joinKey(qb, mode)
			if key == "" {
				continue
			}
			if qa, ok := idx[key]; ok {
				pairs = append(pairs, MatchedPair{LegA: qa, LegB: qb})
			}
		}
	} else {
		idx := buildIndex(b, mode)
		for _, qa := range a {
			key := joinKey(qa, mode)
			if key == "" {
				continue
			}
			if qb, ok := idx[key]; ok {
				pairs = append(pairs, MatchedPair{LegA: qa, LegB: qb})
			}
		}
	}
	return pairs
}

// Intersect produces the transitive B<->C pairing from two joins that share
// the same intermediary venue as LegA. The result pairs ab's LegB with ac's
// LegB whenever both matched the same intermediary market, keyed by the
// intermediary's MarketKey. B and C are never joined directly; they may share
// no key scheme at all.
func Intersect(ab, ac []MatchedPair) []MatchedPair {
	if len(ab) == 0 || len(ac) == 0 {
		return nil
	}

	byKey := make(map[string]collectors.MarketQuote, len(ac))
	for _, p := range ac {
		if p.LegA.MarketKey == "" {
			continue
		}
		if _, ok := byKey[p.LegA.MarketKey]; !ok {
			byKey[p.LegA.MarketKey] = p.LegB
		}
	}

	var pairs []MatchedPair
	for _, p := range ab {
		if legC, ok := byKey[p.LegA.MarketKey]; ok {
			pairs = append(pairs, MatchedPair{LegA: p.LegB, LegB: legC})
		}
	}
	return pairs
}

func usable(quotes []collectors.MarketQuote) []collectors.MarketQuote {
	out := make([]collectors.MarketQuote, 0, len(quotes))
	for _, q := range quotes {
		if q.Usable() {
			out = append(out, q)
		}
	}
	return out
}

// buildIndex keeps the first quote seen per key; duplicate keys on the
// indexed side are venue data glitches and must not multiply pairs.
func buildIndex(quotes []collectors.MarketQuote, mode JoinMode) map[string]collectors.MarketQuote {
	idx := make(map[string]collectors.MarketQuote, len(quotes))
	for _, q := range quotes {
		key := joinKey(q, mode)
		if key == "" {
			continue
		}
		if _, ok := idx[key]; !ok {
			idx[key] = q
		}
	}
	return idx
}

func joinKey(q collectors.MarketQuote, mode JoinMode) string {
	switch mode {
	case JoinSlugTitle:
		if q.Title == "" {
			return ""
		}
		return q.SlugTitleKey()
	default:
		return q.MarketKey
	}
}
