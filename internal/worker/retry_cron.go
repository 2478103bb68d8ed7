package worker

// retry_cron.go
// Background goroutine that periodically re-attempts fiscal authorizations
// stuck in estado='pendiente' with a next_retry_at in the past. The retry
// function itself skips the tick while the circuit breaker is open.

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

const retryTickInterval = 30 * time.Second

// ReintentarFunc re-attempts due authorizations and reports how many it
// processed.
type ReintentarFunc func(ctx context.Context) (int, error)

// StartRetryCron ticks every interval (30s when zero) until ctx is done.
func StartRetryCron(ctx context.Context, interval time.Duration, reintentar ReintentarFunc) {
	if interval <= 0 {
		interval = retryTickInterval
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		log.Info().Msg("retry_cron: started")

		for {
			select {
			case <-ctx.Done():
				log.Info().Msg("retry_cron: shutting down")
				return
			case <-ticker.C:
				runRetryTick(ctx, reintentar)
			}
		}
	}()
}

func runRetryTick(ctx context.Context, reintentar ReintentarFunc) {
	n, err := reintentar(ctx)
	if err != nil {
		log.Error().Err(err).Msg("retry_cron: failed to process pending retries")
		return
	}
	if n > 0 {
		log.Info().Int("count", n).Msg("retry_cron: processed pending comprobantes")
	}
}
