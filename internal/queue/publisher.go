package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/parthdesai/CrossArb/internal/collectors"
	"github.com/parthdesai/CrossArb/internal/models"
)

// PublishQuotes writes one snapshot message per quote. A nil writer is a
// no-op so collectors degrade gracefully when Kafka is down.
func PublishQuotes(ctx context.Context, writer *kafka.Writer, quotes []collectors.MarketQuote) error {
	if writer == nil || len(quotes) == 0 {
		return nil
	}

	captured := time.Now().UTC()
	msgs := make([]kafka.Message, 0, len(quotes))

	for _, q := range quotes {
		if q.MarketKey == "" {
			continue
		}
		snapshot := models.NewSnapshot(q, captured)
		payload, err := json.Marshal(snapshot)
		if err != nil {
			return fmt.Errorf("marshal snapshot %s: %w", q.MarketKey, err)
		}
		key := fmt.Sprintf("%s-%s-%d", q.Venue, q.MarketKey, snapshot.CapturedAt.UnixNano())
		msgs = append(msgs, kafka.Message{Key: []byte(key), Value: payload})
	}

	if len(msgs) == 0 {
		return nil
	}
	return writer.WriteMessages(ctx, msgs...)
}
