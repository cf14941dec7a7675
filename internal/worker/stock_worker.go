package worker

// stock_worker.go
// Processes stock-check jobs from QueueStockCheck: re-evaluates products
// against their low-stock thresholds and emails an alert for each product
// that crossed one. A Redis SETNX guard deduplicates alerts per product per
// day, so a product that oscillates around its threshold does not spam the
// inbox.

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"shopledger/internal/model"
	"shopledger/internal/repository"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const alertDedupeTTL = 24 * time.Hour

// StockCheckWorker evaluates products and enqueues alert emails.
type StockCheckWorker struct {
	productRepo repository.ProductRepository
	rdb         *redis.Client
	dispatcher  *Dispatcher
	alertEmail  string
}

func NewStockCheckWorker(
	productRepo repository.ProductRepository,
	rdb *redis.Client,
	dispatcher *Dispatcher,
	alertEmail string,
) *StockCheckWorker {
	return &StockCheckWorker{
		productRepo: productRepo,
		rdb:         rdb,
		dispatcher:  dispatcher,
		alertEmail:  alertEmail,
	}
}

func (w *StockCheckWorker) Process(ctx context.Context, raw json.RawMessage) error {
	var payload StockCheckPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		log.Error().Err(err).Msg("stock_worker: invalid payload")
		return nil // malformed payloads never succeed on retry
	}

	var alerts []*model.Product
	for _, idStr := range payload.ProductIDs {
		id, err := uuid.Parse(idStr)
		if err != nil {
			continue
		}
		p, err := w.productRepo.FindByID(ctx, id)
		if err != nil {
			log.Warn().Str("product_id", idStr).Err(err).Msg("stock_worker: product fetch failed")
			continue
		}
		if !p.IsActive || p.Quantity.GreaterThan(p.LowStockThreshold) {
			continue
		}
		if w.alreadyAlerted(ctx, id) {
			continue
		}
		alerts = append(alerts, p)
	}

	if len(alerts) == 0 || w.alertEmail == "" {
		return nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d product(s) at or below their low-stock threshold:\n\n", len(alerts))
	for _, p := range alerts {
		fmt.Fprintf(&b, "  - %s: %s %s left (threshold %s)\n",
			p.Name, p.Quantity, p.Unit, p.LowStockThreshold)
	}

	job := EmailJobPayload{
		ToEmail: w.alertEmail,
		Subject: fmt.Sprintf("Low stock alert — %d product(s)", len(alerts)),
		Body:    b.String(),
	}
	if err := w.dispatcher.EnqueueEmail(ctx, job); err != nil {
		return fmt.Errorf("stock_worker: enqueue alert email: %w", err)
	}
	return nil
}

// alreadyAlerted claims the per-product daily alert slot. SETNX means the
// first worker to see the product wins; everyone else skips.
func (w *StockCheckWorker) alreadyAlerted(ctx context.Context, id uuid.UUID) bool {
	if w.rdb == nil {
		return false
	}
	key := "alert:lowstock:" + id.String()
	ok, err := w.rdb.SetNX(ctx, key, time.Now().UTC().Format(time.RFC3339), alertDedupeTTL).Result()
	if err != nil {
		log.Warn().Err(err).Msg("stock_worker: alert dedupe unavailable")
		return false
	}
	return !ok
}
