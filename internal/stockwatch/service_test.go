package stockwatch_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/hartanto/go-cafe-orders/internal/orders"
	"github.com/hartanto/go-cafe-orders/internal/stockwatch"
)

type fakeReader struct {
	low    []orders.Product
	gotIDs []string
	gotThr int
}

func (f *fakeReader) LowStockProducts(ctx context.Context, ids []string, threshold int) ([]orders.Product, error) {
	f.gotIDs = ids
	f.gotThr = threshold
	return f.low, nil
}

type fakePublisher struct {
	msgs [][]byte
}

func (f *fakePublisher) Publish(key, value []byte, headers ...kafkago.Header) {
	f.msgs = append(f.msgs, value)
}

func orderCreatedMessage(t *testing.T, items []orders.OrderCreatedItem) kafkago.Message {
	t.Helper()
	payload, err := json.Marshal(orders.OrderCreatedPayload{
		OrderID:       "ord-1",
		InvoiceNumber: "MBC-20260901-ABC234",
		Items:         items,
		TotalAmount:   "27.7950",
	})
	require.NoError(t, err)
	env, err := json.Marshal(orders.Envelope{
		EventID:       "evt-1",
		EventType:     orders.EventOrderCreated,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      "cafe-api",
		CorrelationID: "ord-1",
		Payload:       payload,
	})
	require.NoError(t, err)
	return kafkago.Message{Value: env}
}

func TestHandleOrderCreated_PublishesStockLow(t *testing.T) {
	reader := &fakeReader{low: []orders.Product{{
		ID: "p-bun", Name: "Coffee Bun",
		Price: decimal.RequireFromString("5.50"), StockQuantity: 2,
	}}}
	pub := &fakePublisher{}
	svc := &stockwatch.Service{
		Reader:      reader,
		Producer:    pub,
		Threshold:   10,
		ServiceName: "stockwatch-test",
	}

	msg := orderCreatedMessage(t, []orders.OrderCreatedItem{
		{ProductID: "p-americano", Quantity: 2, UnitPrice: "10.00"},
		{ProductID: "p-bun", Quantity: 1, UnitPrice: "5.50"},
	})
	require.NoError(t, svc.HandleOrderCreated(context.Background(), msg))

	assert.Equal(t, []string{"p-americano", "p-bun"}, reader.gotIDs)
	assert.Equal(t, 10, reader.gotThr)

	require.Len(t, pub.msgs, 1)
	var env orders.Envelope
	require.NoError(t, json.Unmarshal(pub.msgs[0], &env))
	assert.Equal(t, orders.EventStockLow, env.EventType)
	assert.Equal(t, "ord-1", env.CorrelationID)

	var p orders.StockLowPayload
	require.NoError(t, json.Unmarshal(env.Payload, &p))
	assert.Equal(t, "p-bun", p.ProductID)
	assert.Equal(t, 2, p.Remaining)
	assert.Equal(t, 10, p.Threshold)
}

func TestHandleOrderCreated_NothingLow(t *testing.T) {
	reader := &fakeReader{}
	pub := &fakePublisher{}
	svc := &stockwatch.Service{Reader: reader, Producer: pub, Threshold: 10}

	msg := orderCreatedMessage(t, []orders.OrderCreatedItem{
		{ProductID: "p-americano", Quantity: 1, UnitPrice: "10.00"},
	})
	require.NoError(t, svc.HandleOrderCreated(context.Background(), msg))
	assert.Empty(t, pub.msgs)
}

func TestHandleOrderCreated_IgnoresOtherEvents(t *testing.T) {
	reader := &fakeReader{}
	svc := &stockwatch.Service{Reader: reader, Threshold: 10}

	env, err := json.Marshal(orders.Envelope{
		EventID:   "evt-2",
		EventType: orders.EventStockLow,
		Payload:   json.RawMessage(`{}`),
	})
	require.NoError(t, err)

	require.NoError(t, svc.HandleOrderCreated(context.Background(), kafkago.Message{Value: env}))
	assert.Nil(t, reader.gotIDs, "reader must not be queried for foreign events")
}

func TestHandleOrderCreated_BadEnvelope(t *testing.T) {
	svc := &stockwatch.Service{Reader: &fakeReader{}, Threshold: 10}
	err := svc.HandleOrderCreated(context.Background(), kafkago.Message{Value: []byte("{nope")})
	require.Error(t, err)
}
