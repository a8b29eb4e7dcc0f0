package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"time"

	"github.com/parthdesai/CrossArb/internal/alloc"
	"github.com/parthdesai/CrossArb/internal/cache"
	"github.com/parthdesai/CrossArb/internal/collectors"
	"github.com/parthdesai/CrossArb/internal/config"
	"github.com/parthdesai/CrossArb/internal/kafka"
	"github.com/parthdesai/CrossArb/internal/llm"
	"github.com/parthdesai/CrossArb/internal/logging"
	"github.com/parthdesai/CrossArb/internal/matcher"
	"github.com/parthdesai/CrossArb/internal/models"
	"github.com/parthdesai/CrossArb/internal/polymarket"
	"github.com/parthdesai/CrossArb/internal/report"
	"github.com/parthdesai/CrossArb/internal/review"
	"github.com/parthdesai/CrossArb/internal/scan"
	sqlstore "github.com/parthdesai/CrossArb/internal/storage/sqlite"
	"github.com/parthdesai/CrossArb/internal/workers"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	logging.InitFromEnv()

	cfg, err := config.Load()
	if err != nil {
		logging.Fatalf("[arb-engine] config: %v", err)
	}

	brokers := kafka.Brokers()
	topics := map[collectors.Venue]string{
		collectors.VenuePolymarket: kafka.TopicFromEnv("POLYMARKET_KAFKA_TOPIC", kafka.DefaultPolyTopic),
		collectors.VenuePredictFun: kafka.TopicFromEnv("PREDICTFUN_KAFKA_TOPIC", kafka.DefaultPredictFunTopic),
		collectors.VenueOpinion:    kafka.TopicFromEnv("OPINION_KAFKA_TOPIC", kafka.DefaultOpinionTopic),
	}
	group := envString("ARB_ENGINE_GROUP", "arb-engine")
	workerCount := envInt("ARB_ENGINE_WORKERS", 1)

	waitCtx, cancel := context.WithTimeout(ctx, 45*time.Second)
	if err := kafka.WaitForBroker(waitCtx, brokers); err != nil {
		logging.Fatalf("[arb-engine] wait for broker: %v", err)
	}
	cancel()

	for _, topic := range topics {
		ensureCtx, cancelEnsure := context.WithTimeout(ctx, 30*time.Second)
		if err := kafka.EnsureTopic(ensureCtx, brokers, topic); err != nil {
			logging.Errorf("[arb-engine] ensure topic %s warning: %v", topic, err)
		}
		cancelEnsure()
	}

	store, err := sqlstore.Open(cfg.SQLitePath)
	if err != nil {
		logging.Fatalf("[arb-engine] open sqlite: %v", err)
	}
	defer store.Close()
	if err := store.CreateTables(ctx); err != nil {
		logging.Fatalf("[arb-engine] create tables: %v", err)
	}

	book := scan.NewQuoteBook()
	seedBook(ctx, store, book)

	reviewer, cleanup := buildReviewer(cfg)
	defer cleanup()
	oppCache := buildOpportunityCache(cfg)
	if oppCache != nil {
		defer oppCache.Close()
	}

	handler := func(_ context.Context, snapshot *models.QuoteSnapshot) error {
		book.Update(snapshot)
		return nil
	}

	var wg sync.WaitGroup
	for _, topic := range topics {
		wg.Add(1)
		go func(topic string) {
			defer wg.Done()
			workers.Run(ctx, brokers, topic, group, workerCount, handler)
		}(topic)
	}

	logging.Infof("[arb-engine] consuming %d topics with group %s (%d workers, scan every %s)",
		len(topics), group, workerCount, cfg.ScanInterval)
	runScans(ctx, cfg, book, store, reviewer, oppCache)
	wg.Wait()
}

// seedBook warms the in-memory book from the last persisted quotes so the
// first scan does not have to wait for every collector to publish.
func seedBook(ctx context.Context, store *sqlstore.Store, book *scan.QuoteBook) {
	for _, venue := range []collectors.Venue{collectors.VenuePolymarket, collectors.VenuePredictFun, collectors.VenueOpinion} {
		quotes, err := store.ListQuotes(ctx, venue)
		if err != nil {
			logging.Warnf("[arb-engine] seed %s quotes: %v", venue, err)
			continue
		}
		book.Seed(venue, quotes)
	}
	logging.Infof("[arb-engine] warmed book with %d quotes", book.Size())
}

func runScans(ctx context.Context, cfg *config.Config, book *scan.QuoteBook, store *sqlstore.Store, reviewer *review.Service, oppCache cache.OpportunityCache) {
	ticker := time.NewTicker(cfg.ScanInterval)
	defer ticker.Stop()

	// Streamed snapshots carry flat prices only, so depth refinement refetches
	// live Polymarket books at scan time.
	opts := scan.Options{
		Fetchers: map[collectors.Venue]scan.BookFetcher{
			collectors.VenuePolymarket: polymarket.NewClient(polymarket.Config{
				EventsURL:   cfg.PolymarketEventsURL,
				BooksURL:    cfg.PolymarketBooksURL,
				Slugs:       cfg.Slugs(),
				Concurrency: cfg.FetchConcurrency,
				Delay:       cfg.FetchDelay,
			}),
		},
		Reviewer:   reviewer,
		MatchLog:   matcher.NewLogger(matcher.ParseLogMode(cfg.MatchLogMode)),
		RefineTopK: cfg.RefineTopK,
		ReviewTopK: cfg.ReviewTopK,
		Alloc: alloc.Config{
			TotalCapital: cfg.TotalCapitalUSD,
			Policy:       cfg.AllocationPolicy,
			MinBet:       cfg.PlatformMinBet,
			KellyCap:     cfg.KellyCap,
		},
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if book.Size() == 0 {
			logging.Debugf("[arb-engine] book empty, skipping scan")
			continue
		}
		inputs := scan.Inputs{
			Polymarket: book.Quotes(collectors.VenuePolymarket),
			PredictFun: book.Quotes(collectors.VenuePredictFun),
			Opinion:    book.Quotes(collectors.VenueOpinion),
		}
		result := scan.Run(ctx, inputs, opts)
		scan.Persist(ctx, store, result)
		scan.RecordOpportunities(ctx, oppCache, result)

		if len(scan.AllOpportunities(result.Comparisons)) == 0 {
			continue
		}
		paths, err := report.WriteFiles(result, cfg.ResultsDir)
		if err != nil {
			logging.Errorf("[arb-engine] write report: %v", err)
			continue
		}
		logging.Infof("[arb-engine] report saved: %s", paths.CSV)
	}
}

func buildReviewer(cfg *config.Config) (*review.Service, func()) {
	if cfg.OpenAIAPIKey == "" {
		logging.Infof("[arb-engine] review disabled (no OPENAI_API_KEY)")
		return nil, func() {}
	}
	client, err := llm.New(llm.Config{
		APIKey:  cfg.OpenAIAPIKey,
		BaseURL: cfg.OpenAIBaseURL,
		Model:   cfg.OpenAIModel,
	})
	if err != nil {
		logging.Errorf("[arb-engine] llm client: %v", err)
		return nil, func() {}
	}

	var verdicts cache.VerdictCache
	if cfg.RedisAddr != "" {
		vc, err := cache.NewRedisVerdictCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.RedisTTL, "")
		if err != nil {
			logging.Errorf("[arb-engine] verdict cache: %v", err)
		} else {
			verdicts = vc
		}
	}
	cleanup := func() {
		if verdicts != nil {
			verdicts.Close()
		}
	}
	return review.NewService(client, verdicts), cleanup
}

func buildOpportunityCache(cfg *config.Config) cache.OpportunityCache {
	if cfg.RedisAddr == "" {
		return nil
	}
	opps, err := cache.NewRedisOpportunityCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.RedisTTL, "")
	if err != nil {
		logging.Errorf("[arb-engine] opportunity cache: %v", err)
		return nil
	}
	return opps
}

func envInt(key string, def int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return def
}

func envString(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}
