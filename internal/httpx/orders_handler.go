package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"

	kafkax "github.com/hartanto/go-cafe-orders/internal/kafka"
	"github.com/hartanto/go-cafe-orders/internal/orders"
	"github.com/hartanto/go-cafe-orders/internal/redisx"
)

var logger = zerolog.New(os.Stdout).With().Timestamp().Str("component", "httpx").Logger()

// Publisher is the slice of the kafka producer the handlers need.
type Publisher interface {
	Publish(key, value []byte, headers ...kafkago.Header)
}

// OrderReader is the committed read surface behind the lookup endpoints.
type OrderReader interface {
	GetOrder(ctx context.Context, id string) (*orders.Order, error)
	GetOrderByInvoice(ctx context.Context, invoice string) (*orders.Order, error)
	ListOrders(ctx context.Context, f orders.OrderFilter) ([]orders.Order, error)
}

type OrdersHandler struct {
	Orders   *orders.Service
	Reads    OrderReader
	Redis    *redis.Client // optional: order lookup cache
	Producer Publisher     // optional: order.created events
	Service  string
}

type CreateOrderReq struct {
	CustomerName  string             `json:"customer_name"`
	CustomerEmail string             `json:"customer_email"`
	CustomerPhone string             `json:"customer_phone,omitempty"`
	Items         []orders.ItemInput `json:"items"`
	LocationID    string             `json:"location_id,omitempty"`
	Notes         string             `json:"notes,omitempty"`
	PDPAConsent   bool               `json:"pdpa_consent"`
}

type OrderSummary struct {
	OrderID       string          `json:"order_id"`
	InvoiceNumber string          `json:"invoice_number"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	TaxAmount     decimal.Decimal `json:"tax_amount"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	Status        orders.Status   `json:"status"`
	CreatedAt     string          `json:"created_at"`
}

type apiResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
	Errors  any    `json:"errors,omitempty"`
}

func (h *OrdersHandler) Register(r *chi.Mux) {
	r.Post("/v1/orders", h.createOrder)
	r.Get("/v1/orders/invoice/{invoiceNumber}", h.getOrderByInvoice)
	r.Get("/v1/orders/{id}", h.getOrder)
	r.Get("/v1/admin/orders", h.listOrders)
}

func (h *OrdersHandler) createOrder(w http.ResponseWriter, r *http.Request) {
	var req CreateOrderReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, apiResponse{Success: false, Message: "invalid json"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	o, err := h.Orders.PlaceOrder(ctx, orders.PlaceOrderInput{
		CustomerName:  req.CustomerName,
		CustomerEmail: req.CustomerEmail,
		CustomerPhone: req.CustomerPhone,
		Items:         req.Items,
		LocationID:    req.LocationID,
		Notes:         req.Notes,
		PDPAConsent:   req.PDPAConsent,
		ClientIP:      clientIP(r),
		UserAgent:     r.UserAgent(),
	})
	if err != nil {
		var vErr *orders.ValidationError
		var rErr *orders.ReservationError
		switch {
		case errors.As(err, &vErr):
			writeJSON(w, http.StatusUnprocessableEntity, apiResponse{Success: false, Message: vErr.Msg})
		case errors.As(err, &rErr):
			writeJSON(w, http.StatusUnprocessableEntity, apiResponse{
				Success: false,
				Message: "Some items are no longer available",
				Errors:  rErr.Items,
			})
		case errors.Is(err, orders.ErrLockTimeout):
			writeJSON(w, http.StatusServiceUnavailable, apiResponse{Success: false, Message: "Inventory is busy, please retry"})
		default:
			logger.Error().Err(err).Msg("order creation failed")
			writeJSON(w, http.StatusInternalServerError, apiResponse{Success: false, Message: "Failed to create order. Please try again."})
		}
		return
	}

	logger.Info().
		Str("order_id", o.ID).
		Str("invoice_number", o.InvoiceNumber).
		Str("total", o.TotalAmount.String()).
		Msg("order created")

	h.cacheOrder(ctx, o)
	h.publishCreated(r, o)

	writeJSON(w, http.StatusCreated, apiResponse{
		Success: true,
		Message: "Order created successfully",
		Data:    summarize(o),
	})
}

func summarize(o *orders.Order) OrderSummary {
	return OrderSummary{
		OrderID:       o.ID,
		InvoiceNumber: o.InvoiceNumber,
		Subtotal:      o.Subtotal,
		TaxAmount:     o.TaxAmount,
		TotalAmount:   o.TotalAmount,
		Status:        o.Status,
		CreatedAt:     o.CreatedAt.Format(time.RFC3339),
	}
}

func (h *OrdersHandler) cacheOrder(ctx context.Context, o *orders.Order) {
	if h.Redis == nil {
		return
	}
	key := fmt.Sprintf(redisx.KeyOrder, o.ID)
	_ = h.Redis.Set(ctx, key, kafkax.MustMarshal(o), redisx.TTLOrderCache).Err()
}

func (h *OrdersHandler) publishCreated(r *http.Request, o *orders.Order) {
	if h.Producer == nil {
		return
	}
	items := make([]orders.OrderCreatedItem, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, orders.OrderCreatedItem{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice.String(),
		})
	}
	ev := orders.Envelope{
		EventID:       uuid.NewString(),
		EventType:     orders.EventOrderCreated,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      h.Service,
		TraceID:       middleware.GetReqID(r.Context()),
		CorrelationID: o.ID,
		Payload: kafkax.MustMarshal(orders.OrderCreatedPayload{
			OrderID:       o.ID,
			InvoiceNumber: o.InvoiceNumber,
			LocationID:    o.LocationID,
			Items:         items,
			TotalAmount:   o.TotalAmount.String(),
		}),
	}
	h.Producer.Publish(orders.PartitionKey(o.ID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(orders.EventOrderCreated)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}

func (h *OrdersHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	if h.Redis != nil {
		key := fmt.Sprintf(redisx.KeyOrder, id)
		if s, err := h.Redis.Get(ctx, key).Result(); err == nil && s != "" {
			writeJSON(w, http.StatusOK, apiResponse{Success: true, Data: json.RawMessage(s)})
			return
		}
	}

	o, err := h.Reads.GetOrder(ctx, id)
	if err != nil {
		h.writeLookupError(w, err)
		return
	}
	h.cacheOrder(ctx, o)
	writeJSON(w, http.StatusOK, apiResponse{Success: true, Data: o})
}

func (h *OrdersHandler) getOrderByInvoice(w http.ResponseWriter, r *http.Request) {
	invoice := chi.URLParam(r, "invoiceNumber")

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	o, err := h.Reads.GetOrderByInvoice(ctx, invoice)
	if err != nil {
		h.writeLookupError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, apiResponse{Success: true, Data: o})
}

func (h *OrdersHandler) writeLookupError(w http.ResponseWriter, err error) {
	if errors.Is(err, orders.ErrOrderNotFound) {
		writeJSON(w, http.StatusNotFound, apiResponse{Success: false, Message: "Order not found"})
		return
	}
	logger.Error().Err(err).Msg("order lookup failed")
	writeJSON(w, http.StatusInternalServerError, apiResponse{Success: false, Message: "lookup failed"})
}

func (h *OrdersHandler) listOrders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var f orders.OrderFilter

	if s := q.Get("status"); s != "" {
		st := orders.Status(s)
		if !st.Valid() {
			writeJSON(w, http.StatusBadRequest, apiResponse{Success: false, Message: "unknown status"})
			return
		}
		f.Status = st
	}
	var err error
	if f.DateFrom, err = parseDate(q.Get("date_from")); err != nil {
		writeJSON(w, http.StatusBadRequest, apiResponse{Success: false, Message: "invalid date_from"})
		return
	}
	if f.DateTo, err = parseDate(q.Get("date_to")); err != nil {
		writeJSON(w, http.StatusBadRequest, apiResponse{Success: false, Message: "invalid date_to"})
		return
	}
	f.Limit = intParam(q.Get("per_page"), 20)
	if page := intParam(q.Get("page"), 1); page > 1 {
		f.Offset = (page - 1) * f.Limit
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	list, err := h.Reads.ListOrders(ctx, f)
	if err != nil {
		logger.Error().Err(err).Msg("order listing failed")
		writeJSON(w, http.StatusInternalServerError, apiResponse{Success: false, Message: "listing failed"})
		return
	}
	writeJSON(w, http.StatusOK, apiResponse{Success: true, Data: list})
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}

func intParam(s string, def int) int {
	if s == "" {
		return def
	}
	var n int
	if _, err := fmt.Sscanf(s, "%d", &n); err != nil || n < 1 {
		return def
	}
	return n
}

func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
