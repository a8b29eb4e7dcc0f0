package polymarket

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/parthdesai/CrossArb/internal/collectors"
	"github.com/parthdesai/CrossArb/internal/logging"
)

const (
	defaultEventsURL = "https://gamma-api.polymarket.com/events"
	defaultBooksURL  = "https://clob.polymarket.com/books"
)

// Client fetches Polymarket Gamma events and CLOB order books.
type Client struct {
	eventsURL   string
	booksURL    string
	slugs       []string
	concurrency int
	delay       time.Duration
	httpClient  *http.Client
}

// Config controls optional overrides for the client. Slugs is the set of
// event slugs to track and must not be empty.
type Config struct {
	EventsURL   string
	BooksURL    string
	Slugs       []string
	Concurrency int
	Delay       time.Duration
	Timeout     time.Duration
}

// NewClient builds a Polymarket client with sane defaults.
func NewClient(cfg Config) *Client {
	events := cfg.EventsURL
	if events == "" {
		events = defaultEventsURL
	}
	books := cfg.BooksURL
	if books == "" {
		books = defaultBooksURL
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
		eventsURL:   events,
		booksURL:    books,
		slugs:       cfg.Slugs,
		concurrency: concurrency,
		delay:       delay,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

func (c *Client) Name() string {
	return "polymarket"
}

// Fetch retrieves every tracked event in one Gamma call and flattens its open
// markets into quotes keyed by conditionId.
func (c *Client) Fetch(ctx context.Context) ([]collectors.MarketQuote, error) {
	if len(c.slugs) == 0 {
		return nil, fmt.Errorf("polymarket: no event slugs configured")
	}

	events, err := c.listEvents(ctx)
	if err != nil {
		return nil, fmt.Errorf("polymarket list events: %w", err)
	}

	var quotes []collectors.MarketQuote
	for _, ev := range events {
		if ev.Closed {
			continue
		}
		for _, m := range ev.Markets {
			q, ok := normalizeMarket(ev.Slug, m)
			if !ok {
				continue
			}
			quotes = append(quotes, q)
		}
	}

	logging.Infof("[polymarket] %d quotes from %d events", len(quotes), len(events))
	return quotes, nil
}

// FetchBooks retrieves CLOB order books for the given token IDs with a
// bounded worker pool. Tokens that fail are logged and omitted so callers can
// fall back to flat quote prices per leg.
func (c *Client) FetchBooks(ctx context.Context, tokenIDs []string) (map[string]collectors.OrderBook, error) {
	books := make(map[string]collectors.OrderBook)
	if len(tokenIDs) == 0 {
		return books, nil
	}

	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		sem = make(chan struct{}, c.concurrency)
	)
	for _, tokenID := range tokenIDs {
		if tokenID == "" {
			continue
		}
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

			book, err := c.fetchBook(ctx, tokenID)
			if err != nil {
				logging.Warnf("[polymarket] book for token %.16s: %v", tokenID, err)
				return
			}
			mu.Lock()
			books[tokenID] = book
			mu.Unlock()
		}(tokenID)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return books, err
	}
	return books, nil
}

func (c *Client) listEvents(ctx context.Context) ([]gammaEvent, error) {
	u, err := url.Parse(c.eventsURL)
	if err != nil {
		return nil, err
	}
	q := u.Query()
	for _, slug := range c.slugs {
		q.Add("slug", slug)
	}
	u.RawQuery = q.Encode()

	var events []gammaEvent
	if err := c.do(ctx, http.MethodGet, u.String(), nil, &events); err != nil {
		return nil, err
	}
	return events, nil
}

func (c *Client) fetchBook(ctx context.Context, tokenID string) (collectors.OrderBook, error) {
	payload := []bookRequest{{TokenID: tokenID}}

	var resp []clobBook
	if err := c.do(ctx, http.MethodPost, c.booksURL, payload, &resp); err != nil {
		return collectors.OrderBook{}, err
	}
	if len(resp) == 0 {
		return collectors.OrderBook{}, fmt.Errorf("empty books response")
	}
	return convertBook(resp[0]), nil
}

// do issues the request with retries on transient failures, rebuilding the
// request each attempt so POST bodies can be resent.
func (c *Client) do(ctx context.Context, method, rawURL string, payload, dst any) error {
	var body []byte
	if payload != nil {
		var err error
		if body, err = json.Marshal(payload); err != nil {
			return err
		}
	}

	var attempt int
	for {
		attempt++
		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
		if err != nil {
			return err
		}
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
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

		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		resp.Body.Close()

		if shouldRetry(attempt, resp.StatusCode) {
			sleep(attempt)
			continue
		}
		return fmt.Errorf("polymarket API %s: %s", resp.Status, string(errBody))
	}
}

// normalizeMarket flattens one Gamma market into a quote. Outcomes arrive as
// [Yes, No], so the first price is the YES price.
func normalizeMarket(eventSlug string, m gammaMarket) (collectors.MarketQuote, bool) {
	if m.Closed || !m.Active {
		return collectors.MarketQuote{}, false
	}
	if m.ConditionID == "" {
		return collectors.MarketQuote{}, false
	}

	prices := parsePrices(m.OutcomePrices)
	if len(prices) < 2 {
		return collectors.MarketQuote{}, false
	}

	q := collectors.MarketQuote{
		Venue:        collectors.VenuePolymarket,
		MarketKey:    m.ConditionID,
		CategorySlug: eventSlug,
		Title:        m.GroupItemTitle,
		Question:     m.Question,
		YesPrice:     prices[0],
		NoPrice:      prices[1],
		Closed:       m.Closed,
	}
	if tokens := parseStringArray(m.ClobTokenIds); len(tokens) >= 2 {
		q.YesTokenID = tokens[0]
		q.NoTokenID = tokens[1]
	}
	return q, true
}

// parseStringArray decodes Gamma's JSON-in-a-string array fields.
func parseStringArray(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil
	}
	return out
}

func parsePrices(raw string) []float64 {
	parts := parseStringArray(raw)
	if parts == nil {
		return nil
	}
	out := make([]float64, 0, len(parts))
	for _, p := range parts {
		out = append(out, parseDecimal(p))
	}
	return out
}

func parseDecimal(val string) float64 {
	f, _ := strconv.ParseFloat(val, 64)
	return f
}

func convertBook(b clobBook) collectors.OrderBook {
	out := collectors.OrderBook{}
	for _, lvl := range b.Bids {
		price := parseDecimal(lvl.Price)
		size := parseDecimal(lvl.Size)
		out.Bids = append(out.Bids, collectors.BookLevel{Price: price, SizeUSD: price * size})
	}
	for _, lvl := range b.Asks {
		price := parseDecimal(lvl.Price)
		size := parseDecimal(lvl.Size)
		out.Asks = append(out.Asks, collectors.BookLevel{Price: price, SizeUSD: price * size})
	}
	return out
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

type gammaEvent struct {
	ID      string        `json:"id"`
	Slug    string        `json:"slug"`
	Title   string        `json:"title"`
	Closed  bool          `json:"closed"`
	Markets []gammaMarket `json:"markets"`
}

type gammaMarket struct {
	ID             string `json:"id"`
	Question       string `json:"question"`
	GroupItemTitle string `json:"groupItemTitle"`
	Slug           string `json:"slug"`
	ConditionID    string `json:"conditionId"`
	Outcomes       string `json:"outcomes"`
	OutcomePrices  string `json:"outcomePrices"`
	ClobTokenIds   string `json:"clobTokenIds"`
	Active         bool   `json:"active"`
	Closed         bool   `json:"closed"`
}

type bookRequest struct {
	TokenID string `json:"token_id"`
}

type clobBook struct {
	AssetID string      `json:"asset_id"`
	Bids    []clobLevel `json:"bids"`
	Asks    []clobLevel `json:"asks"`
}

type clobLevel struct {
	Price string `json:"price"`
	Size  string `json:"size"`
}
