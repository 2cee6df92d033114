// Package stockwatch consumes order.created events and flags products whose
// committed stock fell to or below the low-stock threshold.
package stockwatch

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	kafkago "github.com/segmentio/kafka-go"

	kafkax "github.com/hartanto/go-cafe-orders/internal/kafka"
	"github.com/hartanto/go-cafe-orders/internal/orders"
	"github.com/hartanto/go-cafe-orders/internal/redisx"
)

var logger = zerolog.New(os.Stdout).With().Timestamp().Str("component", "stockwatch").Logger()

// StockReader reports which of the given products are at or below threshold.
type StockReader interface {
	LowStockProducts(ctx context.Context, productIDs []string, threshold int) ([]orders.Product, error)
}

type Publisher interface {
	Publish(key, value []byte, headers ...kafkago.Header)
}

type Service struct {
	Reader      StockReader
	Redis       *redis.Client // optional: event dedup + low-stock flags
	Producer    Publisher     // optional: stock.low events
	Threshold   int
	ServiceName string
}

// HandleOrderCreated is the consumer handler for the order.created topic.
func (s *Service) HandleOrderCreated(ctx context.Context, m kafkago.Message) error {
	var env orders.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		return err
	}
	if env.EventType != orders.EventOrderCreated {
		return nil
	}

	if s.Redis != nil {
		dkey := fmt.Sprintf(redisx.KeyDedup, "stockwatch", env.EventID)
		if exists, _ := redisx.Exists(ctx, s.Redis, dkey); exists {
			return nil
		}
		_ = s.Redis.Set(ctx, dkey, "1", redisx.TTLDedup).Err()
	}

	p, err := kafkax.UnwrapPayload[orders.OrderCreatedPayload](env.Payload)
	if err != nil {
		return err
	}
	ids := make([]string, 0, len(p.Items))
	for _, it := range p.Items {
		ids = append(ids, it.ProductID)
	}

	low, err := s.Reader.LowStockProducts(ctx, ids, s.Threshold)
	if err != nil {
		return err
	}
	for _, prod := range low {
		logger.Warn().
			Str("product_id", prod.ID).
			Str("name", prod.Name).
			Int("remaining", prod.StockQuantity).
			Msg("low stock")

		if s.Redis != nil {
			key := fmt.Sprintf(redisx.KeyLowStock, prod.ID)
			_ = s.Redis.Set(ctx, key, prod.StockQuantity, redisx.TTLLowStock).Err()
		}
		s.publishLow(prod, env.CorrelationID, env.TraceID)
	}
	return nil
}

func (s *Service) publishLow(p orders.Product, orderID, trace string) {
	if s.Producer == nil {
		return
	}
	ev := orders.Envelope{
		EventID:       uuid.NewString(),
		EventType:     orders.EventStockLow,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      s.ServiceName,
		TraceID:       trace,
		CorrelationID: orderID,
		Payload: kafkax.MustMarshal(orders.StockLowPayload{
			ProductID: p.ID,
			Name:      p.Name,
			Remaining: p.StockQuantity,
			Threshold: s.Threshold,
		}),
	}
	s.Producer.Publish(orders.PartitionKey(orderID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(orders.EventStockLow)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}
