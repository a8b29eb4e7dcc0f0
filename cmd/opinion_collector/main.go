package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/parthdesai/CrossArb/internal/collectors"
	"github.com/parthdesai/CrossArb/internal/config"
	kafkautil "github.com/parthdesai/CrossArb/internal/kafka"
	"github.com/parthdesai/CrossArb/internal/opinion"
	"github.com/parthdesai/CrossArb/internal/queue"
	sqlstore "github.com/parthdesai/CrossArb/internal/storage/sqlite"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	store, err := sqlstore.Open(cfg.SQLitePath)
	if err != nil {
		log.Fatalf("open sqlite: %v", err)
	}
	defer store.Close()
	if err := store.CreateTables(ctx); err != nil {
		log.Fatalf("create tables: %v", err)
	}

	writer := setupWriter(ctx, "OPINION_KAFKA_TOPIC", kafkautil.DefaultOpinionTopic)
	defer func() {
		if writer != nil {
			writer.Close()
		}
	}()

	collector := opinion.NewClient(opinion.Config{
		BaseURL:          cfg.OpinionBaseURL,
		APIKey:           cfg.OpinionAPIKey,
		Markets:          cfg.Markets,
		Concurrency:      cfg.FetchConcurrency,
		TokenConcurrency: cfg.TokenFetchConcurrency,
		Delay:            cfg.FetchDelay,
	})
	interval := time.Duration(envInt("COLLECT_INTERVAL_SECONDS", 30)) * time.Second

	collectors.RunLoop(ctx, collector, interval, func(ctx context.Context, quotes []collectors.MarketQuote) error {
		log.Printf("[opinion] fetched %d quotes", len(quotes))
		if err := store.UpsertQuotes(ctx, quotes, time.Now().UTC()); err != nil {
			return err
		}
		if err := queue.PublishQuotes(ctx, writer, quotes); err != nil {
			log.Printf("[opinion] publish error: %v", err)
		}
		return nil
	})
}

func setupWriter(ctx context.Context, envKey, fallbackTopic string) *kafkago.Writer {
	brokers := kafkautil.Brokers()
	topic := kafkautil.TopicFromEnv(envKey, fallbackTopic)
	waitCtx, cancel := context.WithTimeout(ctx, 45*time.Second)
	defer cancel()
	if err := kafkautil.WaitForBroker(waitCtx, brokers); err != nil {
		log.Printf("[opinion] kafka unavailable: %v", err)
		return nil
	}
	ensureCtx, cancelEnsure := context.WithTimeout(ctx, 30*time.Second)
	if err := kafkautil.EnsureTopic(ensureCtx, brokers, topic); err != nil {
		log.Printf("[opinion] ensure topic warning: %v", err)
	}
	cancelEnsure()
	return kafkautil.NewWriter(brokers, topic)
}

func envInt(key string, def int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return def
}
