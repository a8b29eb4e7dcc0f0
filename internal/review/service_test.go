package review

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/parthdesai/CrossArb/internal/cache"
	"github.com/parthdesai/CrossArb/internal/llm"
)

type fakeVerdictCache struct {
	records map[string]cache.VerdictRecord
	gets    int
	sets    int
}

func newFakeVerdictCache() *fakeVerdictCache {
	return &fakeVerdictCache{records: make(map[string]cache.VerdictRecord)}
}

func (c *fakeVerdictCache) Get(ctx context.Context, key string) (*cache.VerdictRecord, bool, error) {
	c.gets++
	record, ok := c.records[key]
	if !ok {
		return nil, false, nil
	}
	out := record
	return &out, true, nil
}

func (c *fakeVerdictCache) Set(ctx context.Context, key string, record cache.VerdictRecord) error {
	c.sets++
	c.records[key] = record
	return nil
}

func (c *fakeVerdictCache) Close() error { return nil }

// newVerdictServer serves an OpenAI-style chat completion whose assistant
// message is the given content.
func newVerdictServer(t *testing.T, content string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			t.Errorf("unexpected path %s", r.URL.Path)
			http.NotFound(w, r)
			return
		}
		var req openai.ChatCompletionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode completion request: %v", err)
		}
		if len(req.Messages) != 2 {
			t.Errorf("len(Messages) = %d, want 2", len(req.Messages))
		} else {
			if req.Messages[0].Role != openai.ChatMessageRoleSystem {
				t.Errorf("Messages[0].Role = %q, want %q", req.Messages[0].Role, openai.ChatMessageRoleSystem)
			}
			if !strings.Contains(req.Messages[1].Content, `"market_a"`) {
				t.Errorf("user prompt is missing the market payload:\n%s", req.Messages[1].Content)
			}
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"id":"chatcmpl-test","object":"chat.completion","created":1,"model":"gpt-4o-mini","choices":[{"index":0,"message":{"role":"assistant","content":%s},"finish_reason":"stop"}]}`,
			strconv.Quote(content))
	}))
}

func TestServiceDisabled(t *testing.T) {
	var s *Service
	if s.Enabled() {
		t.Error("nil service Enabled() = true, want false")
	}
	verdict, err := s.Review(context.Background(), reviewPair())
	if verdict != nil || err != nil {
		t.Errorf("nil service Review() = (%+v, %v), want (nil, nil)", verdict, err)
	}

	s = NewService(nil, newFakeVerdictCache())
	if s.Enabled() {
		t.Error("service without an LLM Enabled() = true, want false")
	}
	verdict, err = s.Review(context.Background(), reviewPair())
	if verdict != nil || err != nil {
		t.Errorf("disabled Review() = (%+v, %v), want (nil, nil)", verdict, err)
	}
}

func TestCacheKey(t *testing.T) {
	s := NewService(nil, nil)
	pair := reviewPair()

	key := s.cacheKey(pair)
	if !strings.HasPrefix(key, pair.ShortID()+":") {
		t.Errorf("cacheKey = %q, want prefix %q", key, pair.ShortID()+":")
	}
	if want := len(pair.ShortID()) + 1 + 12; len(key) != want {
		t.Errorf("len(cacheKey) = %d, want %d", len(key), want)
	}
	if s.cacheKey(pair) != key {
		t.Error("cacheKey is not deterministic")
	}

	reworded := pair
	reworded.LegB.Question = "MetaMask FDV between $1B and $3B at listing?"
	if s.cacheKey(reworded) == key {
		t.Error("rewording a question did not change the cache key")
	}
}

func TestReviewCacheHit(t *testing.T) {
	client, err := llm.New(llm.Config{APIKey: "test-key"})
	if err != nil {
		t.Fatalf("llm.New() error = %v", err)
	}
	verdicts := newFakeVerdictCache()
	s := NewService(client, verdicts)
	pair := reviewPair()

	verdicts.records[s.cacheKey(pair)] = cache.VerdictRecord{
		Equivalent: true,
		Reason:     "same resolution source",
		UpdatedAt:  time.Now().UTC(),
	}

	verdict, err := s.Review(context.Background(), pair)
	if err != nil {
		t.Fatalf("Review() error = %v", err)
	}
	if verdict == nil || !verdict.Equivalent || verdict.Reason != "same resolution source" {
		t.Errorf("Review() = %+v, want the cached verdict", verdict)
	}
	if verdicts.gets != 1 || verdicts.sets != 0 {
		t.Errorf("cache calls = %d gets / %d sets, want 1 get and no sets", verdicts.gets, verdicts.sets)
	}
}

func TestReviewCompletesAndCaches(t *testing.T) {
	server := newVerdictServer(t, "```json\n{\"equivalent\": false, \"reason\": \"deadlines differ by a quarter\"}\n```")
	defer server.Close()

	client, err := llm.New(llm.Config{APIKey: "test-key", BaseURL: server.URL, Timeout: 5 * time.Second})
	if err != nil {
		t.Fatalf("llm.New() error = %v", err)
	}
	verdicts := newFakeVerdictCache()
	s := NewService(client, verdicts)
	pair := reviewPair()

	verdict, err := s.Review(context.Background(), pair)
	if err != nil {
		t.Fatalf("Review() error = %v", err)
	}
	if verdict.Equivalent {
		t.Error("Equivalent = true, want false")
	}
	if verdict.Reason != "deadlines differ by a quarter" {
		t.Errorf("Reason = %q, want %q", verdict.Reason, "deadlines differ by a quarter")
	}

	record, ok := verdicts.records[s.cacheKey(pair)]
	if !ok {
		t.Fatal("verdict was not cached")
	}
	if record.Equivalent || record.Reason != verdict.Reason {
		t.Errorf("cached record = %+v, want the parsed verdict", record)
	}
	if record.UpdatedAt.IsZero() {
		t.Error("cached record UpdatedAt is zero")
	}
	if verdicts.sets != 1 {
		t.Errorf("cache sets = %d, want 1", verdicts.sets)
	}
}

func TestReviewParseFailure(t *testing.T) {
	server := newVerdictServer(t, "I cannot answer that.")
	defer server.Close()

	client, err := llm.New(llm.Config{APIKey: "test-key", BaseURL: server.URL, Timeout: 5 * time.Second})
	if err != nil {
		t.Fatalf("llm.New() error = %v", err)
	}
	verdicts := newFakeVerdictCache()
	s := NewService(client, verdicts)

	verdict, err := s.Review(context.Background(), reviewPair())
	if err == nil {
		t.Fatalf("Review() = %+v, want error", verdict)
	}
	if !strings.Contains(err.Error(), "review parse") {
		t.Errorf("error = %q, want it to mention %q", err, "review parse")
	}
	if verdicts.sets != 0 {
		t.Errorf("cache sets = %d, want 0 after a parse failure", verdicts.sets)
	}
}
