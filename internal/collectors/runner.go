package collectors

import (
	"context"
	"time"

	"github.com/parthdesai/CrossArb/internal/logging"
)

// RunLoop repeatedly fetches a venue snapshot and hands it to handleFn,
// sleeping interval between rounds. Per-request rate limiting and backoff are
// handled inside the collector's HTTP client; the interval only spaces out
// whole snapshot rounds.
func RunLoop(ctx context.Context, collector Collector, interval time.Duration, handleFn func(context.Context, []MarketQuote) error) {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		quotes, err := collector.Fetch(ctx)
		if err != nil {
			logging.Errorf("[%s] fetch failed: %v", collector.Name(), err)
		} else if handleFn != nil && len(quotes) > 0 {
			if err := handleFn(ctx, quotes); err != nil {
				logging.Errorf("[%s] handler error: %v", collector.Name(), err)
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(interval):
		}
	}
}
