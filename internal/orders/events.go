package orders

import (
	"encoding/json"
	"time"
)

const (
	EventOrderCreated = "OrderCreated"
	EventStockLow     = "StockLow"
)

// Envelope wraps every event on the bus. Partition key is the order id so
// one order's events keep their relative order.
type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Payload       json.RawMessage `json:"payload"`
}

type OrderCreatedItem struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
	UnitPrice string `json:"unit_price"`
}

type OrderCreatedPayload struct {
	OrderID       string             `json:"order_id"`
	InvoiceNumber string             `json:"invoice_number"`
	LocationID    string             `json:"location_id,omitempty"`
	Items         []OrderCreatedItem `json:"items"`
	TotalAmount   string             `json:"total_amount"`
}

type StockLowPayload struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Remaining int    `json:"remaining"`
	Threshold int    `json:"threshold"`
}
