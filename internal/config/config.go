package config

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/parthdesai/CrossArb/internal/alloc"
)

// defaultMarkets maps tracked Polymarket event slugs to opinion.trade
// categorical market IDs. A zero ID means the event has no opinion.trade
// listing and participates in the predict.fun comparison only.
var defaultMarkets = map[string]int64{
	"metamask-fdv-above-one-day-after-launch":     189,
	"edgex-fdv-above-one-day-after-launch":        98,
	"opensea-fdv-above-one-day-after-launch":      173,
	"will-metamask-launch-a-token-in-2025":        118,
	"megaeth-market-cap-fdv-one-day-after-launch": 67,
	"opinion-fdv-above-one-day-after-launch":      0,
	"based-fdv-above-one-day-after-launch":        97,
	"will-base-launch-a-token-in-2025-341":        119,
	"infinex-fdv-above-one-day-after-launch":      184,
	"rainbow-fdv-above-one-day-after-launch-676":  244,
	"backpack-fdv-above-one-day-after-launch":     95,
	"gensyn-fdv-above-one-day-after-launch":       194,
	"usdai-fdv-above-one-day-after-launch":        183,
	"standx-fdv-above-one-day-after-launch":       96,
}

// Config carries everything the scanner, engine, and collectors read from
// the environment.
type Config struct {
	PolymarketEventsURL string
	PolymarketBooksURL  string
	PredictFunBaseURL   string
	PredictFunAPIKey    string
	OpinionBaseURL      string
	OpinionAPIKey       string

	// Markets maps Polymarket event slugs to opinion.trade market IDs.
	Markets map[string]int64

	FetchConcurrency      int
	TokenFetchConcurrency int
	FetchDelay            time.Duration

	TotalCapitalUSD  float64
	AllocationPolicy alloc.Policy
	PlatformMinBet   float64
	KellyCap         float64
	RefineTopK       int
	ReviewTopK       int

	OpenAIAPIKey  string
	OpenAIBaseURL string
	OpenAIModel   string

	SQLitePath    string
	ResultsDir    string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisTTL      time.Duration

	ScanInterval time.Duration

	// MatchLogMode is quiet, summary, or verbose.
	MatchLogMode string
}

// Load reads the environment, optionally seeded from a .env file, and
// resolves the tracked market set.
func Load() (*Config, error) {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := &Config{
		PolymarketEventsURL: envString("POLYMARKET_EVENTS_URL", ""),
		PolymarketBooksURL:  envString("POLYMARKET_BOOKS_URL", ""),
		PredictFunBaseURL:   envString("PREDICT_FUN_BASE_URL", ""),
		PredictFunAPIKey:    envString("PREDICT_FUN_API_KEY", ""),
		OpinionBaseURL:      envString("OPINION_BASE_URL", ""),
		OpinionAPIKey:       envString("OPINION_API_KEY", ""),

		FetchConcurrency:      envInt("FETCH_CONCURRENCY", 10),
		TokenFetchConcurrency: envInt("TOKEN_FETCH_CONCURRENCY", 20),
		FetchDelay:            time.Duration(envInt("FETCH_DELAY_MS", 100)) * time.Millisecond,

		TotalCapitalUSD:  envFloat("TOTAL_CAPITAL_USD", 1000),
		AllocationPolicy: alloc.ParsePolicy(envString("ALLOCATION_POLICY", string(alloc.PolicyEqual))),
		PlatformMinBet:   envFloat("PLATFORM_MIN_BET", alloc.DefaultMinBet),
		KellyCap:         envFloat("KELLY_CAP", alloc.DefaultKellyCap),
		RefineTopK:       envInt("REFINE_TOP_K", 5),
		ReviewTopK:       envInt("REVIEW_TOP_K", 3),

		OpenAIAPIKey:  envString("OPENAI_API_KEY", ""),
		OpenAIBaseURL: envString("OPENAI_BASE_URL", ""),
		OpenAIModel:   envString("OPENAI_MODEL", ""),

		SQLitePath:    envString("SQLITE_PATH", ""),
		ResultsDir:    envString("RESULTS_DIR", "results"),
		RedisAddr:     envString("REDIS_ADDR", ""),
		RedisPassword: envString("REDIS_PASSWORD", ""),
		RedisDB:       envInt("REDIS_DB", 0),
		RedisTTL:      time.Duration(envInt("REDIS_TTL_HOURS", 240)) * time.Hour,

		ScanInterval: time.Duration(envInt("SCAN_INTERVAL_SECONDS", 60)) * time.Second,

		MatchLogMode: envString("MATCH_LOG_MODE", "quiet"),
	}

	markets, err := loadMarkets(envString("MARKETS_FILE", ""))
	if err != nil {
		return nil, err
	}
	cfg.Markets = markets

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the engine cannot run with.
func (c *Config) Validate() error {
	if c.TotalCapitalUSD <= 0 {
		return fmt.Errorf("config: TOTAL_CAPITAL_USD must be positive, got %v", c.TotalCapitalUSD)
	}
	if c.PlatformMinBet < 0 {
		return fmt.Errorf("config: PLATFORM_MIN_BET must not be negative, got %v", c.PlatformMinBet)
	}
	if c.KellyCap <= 0 || c.KellyCap > 1 {
		return fmt.Errorf("config: KELLY_CAP must be in (0, 1], got %v", c.KellyCap)
	}
	if c.RefineTopK < 0 || c.ReviewTopK < 0 {
		return fmt.Errorf("config: top-K values must not be negative")
	}
	if len(c.Markets) == 0 {
		return fmt.Errorf("config: no markets configured")
	}
	return nil
}

// Slugs returns the tracked Polymarket event slugs in sorted order.
func (c *Config) Slugs() []string {
	slugs := make([]string, 0, len(c.Markets))
	for slug := range c.Markets {
		slugs = append(slugs, slug)
	}
	sort.Strings(slugs)
	return slugs
}

// loadMarkets reads a slug-to-ID JSON object from path, falling back to the
// built-in set when no file is configured.
func loadMarkets(path string) (map[string]int64, error) {
	if path == "" {
		markets := make(map[string]int64, len(defaultMarkets))
		for slug, id := range defaultMarkets {
			markets[slug] = id
		}
		return markets, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read markets file: %w", err)
	}
	var markets map[string]int64
	if err := json.Unmarshal(raw, &markets); err != nil {
		return nil, fmt.Errorf("config: parse markets file %s: %w", path, err)
	}
	return markets, nil
}

func envString(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseFloat(val, 64); err == nil {
			return parsed
		}
	}
	return fallback
}
