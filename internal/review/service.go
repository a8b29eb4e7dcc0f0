package review

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/parthdesai/CrossArb/internal/cache"
	"github.com/parthdesai/CrossArb/internal/hashutil"
	"github.com/parthdesai/CrossArb/internal/llm"
	"github.com/parthdesai/CrossArb/internal/logging"
	"github.com/parthdesai/CrossArb/internal/matcher"
)

// Verdict is an advisory opinion on whether two matched markets resolve on
// the same real-world event. It never creates or removes matches.
type Verdict struct {
	Equivalent bool   `json:"equivalent"`
	Reason     string `json:"reason"`
}

// Service reviews matched pairs through an LLM, caching verdicts per pair
// and question wording.
type Service struct {
	llm      *llm.Client
	verdicts cache.VerdictCache
}

// NewService builds a reviewer. A nil verdict cache disables caching only;
// a nil LLM client disables the service entirely.
func NewService(client *llm.Client, verdicts cache.VerdictCache) *Service {
	return &Service{llm: client, verdicts: verdicts}
}

// Enabled reports whether reviews will actually run.
func (s *Service) Enabled() bool {
	return s != nil && s.llm != nil
}

// Review returns a verdict for the pair, consulting the cache first. A
// disabled service returns (nil, nil).
func (s *Service) Review(ctx context.Context, pair matcher.MatchedPair) (*Verdict, error) {
	if !s.Enabled() {
		return nil, nil
	}

	key := s.cacheKey(pair)
	if s.verdicts != nil {
		if record, found, err := s.verdicts.Get(ctx, key); err != nil {
			logging.Warnf("[review] verdict cache get: %v", err)
		} else if found {
			return &Verdict{Equivalent: record.Equivalent, Reason: record.Reason}, nil
		}
	}

	userPrompt, err := buildUserPrompt(pair)
	if err != nil {
		return nil, fmt.Errorf("review prompt: %w", err)
	}

	raw, err := s.llm.Complete(ctx, systemPrompt, userPrompt)
	if err != nil {
		return nil, fmt.Errorf("review completion: %w", err)
	}

	verdict, err := parseVerdict(raw)
	if err != nil {
		return nil, fmt.Errorf("review parse: %w", err)
	}

	if s.verdicts != nil {
		record := cache.VerdictRecord{
			Equivalent: verdict.Equivalent,
			Reason:     verdict.Reason,
			UpdatedAt:  time.Now().UTC(),
		}
		if err := s.verdicts.Set(ctx, key, record); err != nil {
			logging.Warnf("[review] verdict cache set: %v", err)
		}
	}
	return verdict, nil
}

// cacheKey mixes the pair identity with a digest of both question texts so a
// reworded market is reviewed again.
func (s *Service) cacheKey(pair matcher.MatchedPair) string {
	return pair.ShortID() + ":" + hashutil.Short(pair.LegA.Question, pair.LegB.Question)
}

func buildUserPrompt(pair matcher.MatchedPair) (string, error) {
	payload := reviewPayload{
		MarketA: marketPayload{
			Venue:    pair.LegA.Venue.DisplayName(),
			Slug:     pair.LegA.CategorySlug,
			Title:    pair.LegA.Title,
			Question: pair.LegA.Question,
		},
		MarketB: marketPayload{
			Venue:    pair.LegB.Venue.DisplayName(),
			Slug:     pair.LegB.CategorySlug,
			Title:    pair.LegB.Title,
			Question: pair.LegB.Question,
		},
	}
	raw, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

type reviewPayload struct {
	MarketA marketPayload `json:"market_a"`
	MarketB marketPayload `json:"market_b"`
}

type marketPayload struct {
	Venue    string `json:"venue"`
	Slug     string `json:"slug"`
	Title    string `json:"title"`
	Question string `json:"question"`
}
