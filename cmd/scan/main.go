package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"time"

	"github.com/parthdesai/CrossArb/internal/alloc"
	"github.com/parthdesai/CrossArb/internal/cache"
	"github.com/parthdesai/CrossArb/internal/collectors"
	"github.com/parthdesai/CrossArb/internal/config"
	"github.com/parthdesai/CrossArb/internal/llm"
	"github.com/parthdesai/CrossArb/internal/logging"
	"github.com/parthdesai/CrossArb/internal/matcher"
	"github.com/parthdesai/CrossArb/internal/opinion"
	"github.com/parthdesai/CrossArb/internal/polymarket"
	"github.com/parthdesai/CrossArb/internal/predictfun"
	"github.com/parthdesai/CrossArb/internal/report"
	"github.com/parthdesai/CrossArb/internal/review"
	"github.com/parthdesai/CrossArb/internal/scan"
	sqlstore "github.com/parthdesai/CrossArb/internal/storage/sqlite"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	logging.InitFromEnv()

	cfg, err := config.Load()
	if err != nil {
		logging.Fatalf("[scan] config: %v", err)
	}

	polyClient := polymarket.NewClient(polymarket.Config{
		EventsURL:   cfg.PolymarketEventsURL,
		BooksURL:    cfg.PolymarketBooksURL,
		Slugs:       cfg.Slugs(),
		Concurrency: cfg.FetchConcurrency,
		Delay:       cfg.FetchDelay,
	})
	predictClient := predictfun.NewClient(predictfun.Config{
		BaseURL:     cfg.PredictFunBaseURL,
		APIKey:      cfg.PredictFunAPIKey,
		Slugs:       cfg.Slugs(),
		Concurrency: cfg.FetchConcurrency,
		Delay:       cfg.FetchDelay,
	})
	opinionClient := opinion.NewClient(opinion.Config{
		BaseURL:          cfg.OpinionBaseURL,
		APIKey:           cfg.OpinionAPIKey,
		Markets:          cfg.Markets,
		Concurrency:      cfg.FetchConcurrency,
		TokenConcurrency: cfg.TokenFetchConcurrency,
		Delay:            cfg.FetchDelay,
	})

	store, err := sqlstore.Open(cfg.SQLitePath)
	if err != nil {
		logging.Fatalf("[scan] open sqlite: %v", err)
	}
	defer store.Close()
	if err := store.CreateTables(ctx); err != nil {
		logging.Fatalf("[scan] create tables: %v", err)
	}

	inputs := fetchAll(ctx, polyClient, predictClient, opinionClient)
	captured := time.Now().UTC()
	for _, quotes := range [][]collectors.MarketQuote{inputs.Polymarket, inputs.PredictFun, inputs.Opinion} {
		if err := store.UpsertQuotes(ctx, quotes, captured); err != nil {
			logging.Errorf("[scan] upsert quotes: %v", err)
		}
	}

	reviewer, cleanup := buildReviewer(cfg)
	defer cleanup()

	oppCache := buildOpportunityCache(cfg)
	if oppCache != nil {
		defer oppCache.Close()
	}

	result := scan.Run(ctx, inputs, scan.Options{
		Fetchers:   map[collectors.Venue]scan.BookFetcher{collectors.VenuePolymarket: polyClient},
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
	})

	scan.Persist(ctx, store, result)
	scan.RecordOpportunities(ctx, oppCache, result)

	paths, err := report.WriteFiles(result, cfg.ResultsDir)
	if err != nil {
		logging.Errorf("[scan] write report: %v", err)
	}
	fmt.Print(report.Summary(result, paths))
}

// fetchAll pulls the three venues concurrently. Polymarket is the matching
// backbone, so its failure aborts the run; the other venues degrade to an
// empty quote set.
func fetchAll(ctx context.Context, poly, predict, opinion collectors.Collector) scan.Inputs {
	var (
		inputs                          scan.Inputs
		errPoly, errPredict, errOpinion error
		wg                              sync.WaitGroup
	)
	wg.Add(3)
	go func() { defer wg.Done(); inputs.Polymarket, errPoly = poly.Fetch(ctx) }()
	go func() { defer wg.Done(); inputs.PredictFun, errPredict = predict.Fetch(ctx) }()
	go func() { defer wg.Done(); inputs.Opinion, errOpinion = opinion.Fetch(ctx) }()
	wg.Wait()

	if errPoly != nil {
		logging.Fatalf("[scan] polymarket fetch: %v", errPoly)
	}
	if errPredict != nil {
		logging.Errorf("[scan] predictfun fetch: %v", errPredict)
	}
	if errOpinion != nil {
		logging.Errorf("[scan] opinion fetch: %v", errOpinion)
	}
	return inputs
}

func buildReviewer(cfg *config.Config) (*review.Service, func()) {
	if cfg.OpenAIAPIKey == "" {
		logging.Infof("[scan] review disabled (no OPENAI_API_KEY)")
		return nil, func() {}
	}
	client, err := llm.New(llm.Config{
		APIKey:  cfg.OpenAIAPIKey,
		BaseURL: cfg.OpenAIBaseURL,
		Model:   cfg.OpenAIModel,
	})
	if err != nil {
		logging.Errorf("[scan] llm client: %v", err)
		return nil, func() {}
	}

	var verdicts cache.VerdictCache
	if cfg.RedisAddr != "" {
		vc, err := cache.NewRedisVerdictCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.RedisTTL, "")
		if err != nil {
			logging.Errorf("[scan] verdict cache: %v", err)
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
		logging.Errorf("[scan] opportunity cache: %v", err)
		return nil
	}
	return opps
}
