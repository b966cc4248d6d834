package stockwatch

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	kafkax "github.com/retailops/checkout-api/internal/kafka"
	"github.com/retailops/checkout-api/internal/redisx"
	"github.com/retailops/checkout-api/internal/shop"
)

// Watcher keeps the Redis low-stock set in sync with stock-changed events,
// so the catalog can answer low-stock listings without scanning products.
type Watcher struct {
	Redis     *redis.Client
	Threshold int
	Log       *zap.Logger
}

// HandleStockChanged is wired as the consumer handler.
func (w *Watcher) HandleStockChanged(ctx context.Context, m kafkago.Message) error {
	var env shop.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		return err
	}
	if env.EventType != shop.EventStockChanged {
		return nil
	}

	// dedup by event id
	dkey := fmt.Sprintf(redisx.KeyDedup, "stockwatch", env.EventID)
	exists, _ := redisx.Exists(ctx, w.Redis, dkey)
	if exists {
		return nil
	}

	p, err := kafkax.UnwrapPayload[shop.StockChangedPayload](env.Payload)
	if err != nil {
		return err
	}

	if p.Stock <= w.Threshold {
		w.Log.Info("product entered low stock",
			zap.String("product_id", p.ProductID), zap.Int("stock", p.Stock))
		err = w.Redis.SAdd(ctx, redisx.KeyLowStock, p.ProductID).Err()
	} else {
		err = w.Redis.SRem(ctx, redisx.KeyLowStock, p.ProductID).Err()
	}
	if err != nil {
		// not marked processed; the redelivery retries the update
		return err
	}
	_ = w.Redis.Set(ctx, dkey, "1", redisx.TTLDedup).Err()
	return nil
}
