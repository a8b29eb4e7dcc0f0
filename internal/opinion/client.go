package opinion

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/parthdesai/CrossArb/internal/collectors"
	"github.com/parthdesai/CrossArb/internal/logging"
)

const defaultBaseURL = "https://openapi.opinion.trade/openapi"

// statusTradable is the childMarket status for an open, tradable market.
const statusTradable = 2

// Client fetches opinion.trade categorical markets and token prices. Quotes
// are keyed by conditionId and carry the Polymarket slug they were configured
// under, which drives the slug and title join.
type Client struct {
	baseURL          string
	apiKey           string
	markets          map[string]int64
	concurrency      int
	tokenConcurrency int
	delay            time.Duration
	httpClient       *http.Client
}

// Config controls optional overrides for the client. Markets maps Polymarket
// event slugs to opinion.trade categorical market IDs; entries with ID 0 have
// no opinion.trade listing and are skipped.
type Config struct {
	BaseURL          string
	APIKey           string
	Markets          map[string]int64
	Concurrency      int
	TokenConcurrency int
	Delay            time.Duration
	Timeout          time.Duration
}

// NewClient builds an opinion.trade client with sane defaults.
func NewClient(cfg Config) *Client {
	base := cfg.BaseURL
	if base == "" {
		base = defaultBaseURL
	}
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 10
	}
	tokenConcurrency := cfg.TokenConcurrency
	if tokenConcurrency <= 0 {
		tokenConcurrency = 20
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
		baseURL:          base,
		apiKey:           cfg.APIKey,
		markets:          cfg.Markets,
		concurrency:      concurrency,
		tokenConcurrency: tokenConcurrency,
		delay:            delay,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

func (c *Client) Name() string {
	return "opinion"
}

// Fetch lists the tradable children of every configured categorical market,
// then prices their YES and NO tokens in a second pass. Children missing
// either price are dropped.
func (c *Client) Fetch(ctx context.Context) ([]collectors.MarketQuote, error) {
	if len(c.markets) == 0 {
		return nil, fmt.Errorf("opinion: no markets configured")
	}

	listings, err := c.listChildren(ctx)
	if err != nil {
		return nil, err
	}
	if len(listings) == 0 {
		return nil, nil
	}

	prices := c.fetchTokenPrices(ctx, listings)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var quotes []collectors.MarketQuote
	for _, l := range listings {
		yesPrice, okYes := prices[l.yesTokenID]
		noPrice, okNo := prices[l.noTokenID]
		if !okYes || !okNo {
			logging.Warnf("[opinion] missing token prices for %s", l.title)
			continue
		}
		quotes = append(quotes, collectors.MarketQuote{
			Venue:        collectors.VenueOpinion,
			MarketKey:    l.conditionID,
			CategorySlug: l.slug,
			Title:        l.title,
			Question:     l.title,
			YesPrice:     yesPrice,
			NoPrice:      noPrice,
			YesTokenID:   l.yesTokenID,
			NoTokenID:    l.noTokenID,
		})
	}

	logging.Infof("[opinion] %d quotes from %d tradable children", len(quotes), len(listings))
	return quotes, nil
}

// childListing is one tradable child market awaiting token prices.
type childListing struct {
	slug        string
	marketID    int64
	title       string
	conditionID string
	yesTokenID  string
	noTokenID   string
}

func (c *Client) listChildren(ctx context.Context) ([]childListing, error) {
	var (
		listings []childListing
		firstErr error
		mu       sync.Mutex
		wg       sync.WaitGroup
		sem      = make(chan struct{}, c.concurrency)
	)
	for slug, marketID := range c.markets {
		if marketID == 0 {
			continue
		}
		wg.Add(1)
		go func(slug string, marketID int64) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			data, err := c.fetchCategorical(ctx, marketID)
			if err != nil {
				logging.Warnf("[opinion] market %d (%s): %v", marketID, slug, err)
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
				return
			}

			mu.Lock()
			for _, child := range data.ChildMarkets {
				l, ok := normalizeChild(slug, child)
				if !ok {
					continue
				}
				listings = append(listings, l)
			}
			mu.Unlock()
		}(slug, marketID)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(listings) == 0 && firstErr != nil {
		return nil, fmt.Errorf("opinion markets: %w", firstErr)
	}
	return listings, nil
}

// fetchTokenPrices prices both tokens of every listing with a bounded pool.
// Failed tokens are logged and omitted.
func (c *Client) fetchTokenPrices(ctx context.Context, listings []childListing) map[string]float64 {
	tokenIDs := make([]string, 0, 2*len(listings))
	for _, l := range listings {
		tokenIDs = append(tokenIDs, l.yesTokenID, l.noTokenID)
	}

	var (
		prices = make(map[string]float64)
		mu     sync.Mutex
		wg     sync.WaitGroup
		sem    = make(chan struct{}, c.tokenConcurrency)
	)
	for _, tokenID := range tokenIDs {
		wg.Add(1)
		go func(tokenID string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			select {
			case <-ctx.Done():
				return
			case <-time.After(c.delay):
			}

			price, err := c.fetchTokenPrice(ctx, tokenID)
			if err != nil {
				logging.Warnf("[opinion] token %.16s: %v", tokenID, err)
				return
			}
			mu.Lock()
			prices[tokenID] = price
			mu.Unlock()
		}(tokenID)
	}
	wg.Wait()
	return prices
}

func (c *Client) fetchCategorical(ctx context.Context, marketID int64) (*categoricalData, error) {
	var resp categoricalResponse
	u := fmt.Sprintf("%s/market/categorical/%d", c.baseURL, marketID)
	if err := c.do(ctx, u, &resp); err != nil {
		return nil, err
	}
	return &resp.Result.Data, nil
}

func (c *Client) fetchTokenPrice(ctx context.Context, tokenID string) (float64, error) {
	u, err := url.Parse(c.baseURL + "/token/latest-price")
	if err != nil {
		return 0, err
	}
	q := u.Query()
	q.Set("token_id", tokenID)
	u.RawQuery = q.Encode()

	var resp priceResponse
	if err := c.do(ctx, u.String(), &resp); err != nil {
		return 0, err
	}
	return parsePrice(resp.Result.Price)
}

func (c *Client) do(ctx context.Context, rawURL string, dst any) error {
	var attempt int
	for {
		attempt++
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return err
		}
		req.Header.Set("Accept", "*/*")
		if c.apiKey != "" {
			req.Header.Set("apikey", c.apiKey)
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
		return fmt.Errorf("opinion API %s: %s", resp.Status, string(body))
	}
}

// normalizeChild keeps tradable children with a conditionId and both token
// IDs. Condition IDs are normalized to the 0x prefix Polymarket uses.
func normalizeChild(slug string, child childMarket) (childListing, bool) {
	if child.Status != statusTradable {
		return childListing{}, false
	}
	if child.ConditionID == "" {
		return childListing{}, false
	}
	if child.YesTokenID == "" || child.NoTokenID == "" {
		return childListing{}, false
	}

	conditionID := child.ConditionID
	if !strings.HasPrefix(conditionID, "0x") {
		conditionID = "0x" + conditionID
	}
	return childListing{
		slug:        slug,
		marketID:    child.MarketID,
		title:       child.MarketTitle,
		conditionID: conditionID,
		yesTokenID:  child.YesTokenID,
		noTokenID:   child.NoTokenID,
	}, true
}

// parsePrice tolerates both numeric and string-encoded prices.
func parsePrice(raw json.RawMessage) (float64, error) {
	if len(raw) == 0 {
		return 0, fmt.Errorf("missing price")
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return 0, err
	}
	switch p := v.(type) {
	case float64:
		return p, nil
	case string:
		return strconv.ParseFloat(p, 64)
	default:
		return 0, fmt.Errorf("unexpected price type %T", v)
	}
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

type categoricalResponse struct {
	Result categoricalResult `json:"result"`
}

type categoricalResult struct {
	Data categoricalData `json:"data"`
}

type categoricalData struct {
	MarketTitle  string        `json:"marketTitle"`
	ChildMarkets []childMarket `json:"childMarkets"`
}

type childMarket struct {
	MarketID    int64  `json:"marketId"`
	MarketTitle string `json:"marketTitle"`
	Status      int    `json:"status"`
	StatusEnum  string `json:"statusEnum"`
	ConditionID string `json:"conditionId"`
	YesTokenID  string `json:"yesTokenId"`
	NoTokenID   string `json:"noTokenId"`
}

type priceResponse struct {
	Result priceResult `json:"result"`
}

type priceResult struct {
	Price json.RawMessage `json:"price"`
}
