package worker

// sweep_cron.go
// Background goroutine that periodically sweeps the catalog for products at
// or below their low-stock threshold and feeds them to the stock-check queue.
// Sales enqueue targeted checks themselves; the sweep catches what they miss
// (manual DB edits, alerts deduped away while stock kept falling, products
// restocked below threshold).

import (
	"context"
	"time"

	"shopledger/internal/infra"
	"shopledger/internal/repository"

	"github.com/rs/zerolog/log"
)

const sweepBatchSize = 100

// SweepConfig holds the dependencies for the sweep goroutine.
type SweepConfig struct {
	ProductRepo repository.ProductRepository
	Dispatcher  *Dispatcher
	CB          *infra.CircuitBreaker
	Interval    time.Duration
}

// StartLowStockSweep launches the periodic sweep. It respects the context for
// graceful shutdown.
func StartLowStockSweep(ctx context.Context, cfg SweepConfig) {
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Minute
	}
	go func() {
		ticker := time.NewTicker(cfg.Interval)
		defer ticker.Stop()

		log.Info().Dur("interval", cfg.Interval).Msg("low_stock_sweep: started")

		for {
			select {
			case <-ctx.Done():
				log.Info().Msg("low_stock_sweep: shutting down")
				return
			case <-ticker.C:
				sweep(ctx, cfg)
			}
		}
	}()
}

func sweep(ctx context.Context, cfg SweepConfig) {
	// If the mail breaker is open there is no point queueing alerts — they
	// would fast-fail and churn the DLQ.
	if cfg.CB != nil && cfg.CB.State() == infra.CBOpen {
		log.Debug().Msg("low_stock_sweep: circuit breaker is open, skipping tick")
		return
	}

	products, err := cfg.ProductRepo.ListBelowThreshold(ctx, sweepBatchSize)
	if err != nil {
		log.Error().Err(err).Msg("low_stock_sweep: query failed")
		return
	}
	if len(products) == 0 {
		return
	}

	ids := make([]string, 0, len(products))
	for i := range products {
		ids = append(ids, products[i].ID.String())
	}
	if err := cfg.Dispatcher.EnqueueStockCheck(ctx, ids); err != nil {
		log.Error().Err(err).Msg("low_stock_sweep: enqueue failed")
		return
	}
	log.Info().Int("count", len(ids)).Msg("low_stock_sweep: products queued for alert check")
}
