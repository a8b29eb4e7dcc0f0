package predictfun

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"sync"
	"time"

	"github.com/parthdesai/CrossArb/internal/collectors"
	"github.com/parthdesai/CrossArb/internal/logging"
)

const defaultBaseURL = "https://api.predict.fun/v1"

// categorySlugAliases maps Polymarket event slugs to the predict.fun category
// slug when the venues disagree on naming.
var categorySlugAliases = map[string]string{
	"will-base-launch-a-token-in-2025-341": "will-base-launch-a-token-in-2026",
}

// Client fetches predict.fun categories and per-market order books. Markets
// carry the Polymarket conditionIds they mirror, which become the quote keys.
type Client struct {
	baseURL     string
	apiKey      string
	slugs       []string
	concurrency int
	delay       time.Duration
	httpClient  *http.Client
}

// Config controls optional overrides for the client. Slugs holds Polymarket
// event slugs; aliases are resolved internally.
type Config struct {
	BaseURL     string
	APIKey      string
	Slugs       []string
	Concurrency int
	Delay       time.Duration
	Timeout     time.Duration
}

// NewClient builds a predict.fun client with sane defaults.
func NewClient(cfg Config) *Client {
	base := cfg.BaseURL
	if base == "" {
		base = defaultBaseURL
	}
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 10
	}
	delay := cfg.Delay
	if delay == 0 {
		delay = 100 * time.Millisecond
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 20 * time.Second
	}
	return &Client{
		baseURL:     base,
		apiKey:      cfg.APIKey,
		slugs:       cfg.Slugs,
		concurrency: concurrency,
		delay:       delay,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

func (c *Client) Name() string {
	return "predictfun"
}

// Fetch walks the configured categories and prices every market from its
// order book. Markets without a Polymarket conditionId or a two-sided book
// are dropped.
func (c *Client) Fetch(ctx context.Context) ([]collectors.MarketQuote, error) {
	if len(c.slugs) == 0 {
		return nil, fmt.Errorf("predictfun: no category slugs configured")
	}

	var (
		quotes   []collectors.MarketQuote
		firstErr error
	)
	for _, slug := range c.slugs {
		category, err := c.fetchCategory(ctx, slug)
		if err != nil {
			logging.Warnf("[predictfun] category %s: %v", slug, err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		quotes = append(quotes, c.priceMarkets(ctx, category.Data.Markets)...)
	}

	if err := ctx.Err(); err != nil {
		return quotes, err
	}
	if len(quotes) == 0 && firstErr != nil {
		return nil, fmt.Errorf("predictfun categories: %w", firstErr)
	}
	logging.Infof("[predictfun] %d quotes from %d categories", len(quotes), len(c.slugs))
	return quotes, nil
}

// priceMarkets fetches order books for a category's markets with a bounded
// worker pool and converts each into a quote.
func (c *Client) priceMarkets(ctx context.Context, markets []pfMarket) []collectors.MarketQuote {
	var (
		quotes []collectors.MarketQuote
		mu     sync.Mutex
		wg     sync.WaitGroup
		sem    = make(chan struct{}, c.concurrency)
	)
	for _, m := range markets {
		if len(m.PolymarketConditionIds) == 0 {
			continue
		}
		wg.Add(1)
		go func(m pfMarket) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			select {
			case <-ctx.Done():
				return
			case <-time.After(c.delay):
			}

			book, err := c.fetchOrderbook(ctx, m.ID)
			if err != nil {
				logging.Warnf("[predictfun] orderbook for market %d: %v", m.ID, err)
				return
			}
			q, ok := buildQuote(m, book)
			if !ok {
				return
			}
			mu.Lock()
			quotes = append(quotes, q)
			mu.Unlock()
		}(m)
	}
	wg.Wait()
	return quotes
}

func (c *Client) fetchCategory(ctx context.Context, slug string) (*categoryResponse, error) {
	if alias, ok := categorySlugAliases[slug]; ok {
		slug = alias
	}
	var resp categoryResponse
	if err := c.do(ctx, fmt.Sprintf("%s/categories/%s", c.baseURL, slug), &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, fmt.Errorf("category %s: success=false", slug)
	}
	return &resp, nil
}

func (c *Client) fetchOrderbook(ctx context.Context, marketID int64) (*orderbookData, error) {
	var resp orderbookResponse
	if err := c.do(ctx, fmt.Sprintf("%s/markets/%d/orderbook", c.baseURL, marketID), &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, fmt.Errorf("orderbook %d: success=false", marketID)
	}
	return &resp.Data, nil
}

func (c *Client) do(ctx context.Context, rawURL string, dst any) error {
	var attempt int
	for {
		attempt++
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		if c.apiKey != "" {
			req.Header.Set("x-api-key", c.apiKey)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if shouldRetry(attempt, 0) {
				sleep(attempt)
				continue
			}
			return err
		}

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			defer resp.Body.Close()
			return json.NewDecoder(resp.Body).Decode(dst)
		}

		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		resp.Body.Close()

		if shouldRetry(attempt, resp.StatusCode) {
			sleep(attempt)
			continue
		}
		return fmt.Errorf("predict.fun API %s: %s", resp.Status, string(body))
	}
}

// buildQuote prices a market off its book. The venue quotes a single YES
// book: buying YES lifts the best ask, buying NO fills against the best YES
// bid at the complement price.
func buildQuote(m pfMarket, book *orderbookData) (collectors.MarketQuote, bool) {
	if len(book.Asks) == 0 || len(book.Bids) == 0 {
		return collectors.MarketQuote{}, false
	}
	if len(book.Asks[0]) < 1 || len(book.Bids[0]) < 1 {
		return collectors.MarketQuote{}, false
	}

	yesBuy := book.Asks[0][0]
	noBuy := round4(1 - book.Bids[0][0])

	yes := &collectors.OrderBook{
		Bids: convertLevels(book.Bids),
		Asks: convertLevels(book.Asks),
	}

	return collectors.MarketQuote{
		Venue:        collectors.VenuePredictFun,
		MarketKey:    m.PolymarketConditionIds[0],
		CategorySlug: m.CategorySlug,
		Title:        m.Title,
		Question:     m.Question,
		YesPrice:     yesBuy,
		NoPrice:      noBuy,
		Depth: &collectors.MarketDepth{
			Yes: yes,
			No:  complementBook(yes),
		},
	}, true
}

// complementBook derives the NO book from the YES book: a resting YES bid at
// p fills a NO buy at 1-p, so sides swap and prices complement.
func complementBook(yes *collectors.OrderBook) *collectors.OrderBook {
	return &collectors.OrderBook{
		Bids: complementLevels(yes.Asks),
		Asks: complementLevels(yes.Bids),
	}
}

func convertLevels(levels [][]float64) []collectors.BookLevel {
	var out []collectors.BookLevel
	for _, lvl := range levels {
		if len(lvl) < 2 {
			continue
		}
		out = append(out, collectors.BookLevel{Price: lvl[0], SizeUSD: lvl[0] * lvl[1]})
	}
	return out
}

func complementLevels(levels []collectors.BookLevel) []collectors.BookLevel {
	var out []collectors.BookLevel
	for _, lvl := range levels {
		price := round4(1 - lvl.Price)
		out = append(out, collectors.BookLevel{Price: price, SizeUSD: lvl.SizeUSD})
	}
	return out
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}

func shouldRetry(attempt int, status int) bool {
	if attempt >= 5 {
		return false
	}
	if status == 0 {
		return true
	}
	if status == http.StatusTooManyRequests || status >= 500 {
		return true
	}
	return false
}

func sleep(attempt int) {
	backoff := time.Duration(1<<uint(attempt-1)) * time.Second
	if backoff > 30*time.Second {
		backoff = 30 * time.Second
	}
	time.Sleep(backoff)
}

type categoryResponse struct {
	Success bool         `json:"success"`
	Data    categoryData `json:"data"`
}

type categoryData struct {
	Title   string     `json:"title"`
	Markets []pfMarket `json:"markets"`
}

type pfMarket struct {
	ID                     int64    `json:"id"`
	Title                  string   `json:"title"`
	Question               string   `json:"question"`
	CategorySlug           string   `json:"categorySlug"`
	PolymarketConditionIds []string `json:"polymarketConditionIds"`
}

type orderbookResponse struct {
	Success bool          `json:"success"`
	Data    orderbookData `json:"data"`
}

type orderbookData struct {
	Bids              [][]float64 `json:"bids"`
	Asks              [][]float64 `json:"asks"`
	UpdateTimestampMs int64       `json:"updateTimestampMs"`
}
