package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// invoiceAttempts bounds the regenerate-and-retry loop on invoice number
// collisions.
const invoiceAttempts = 5

type PlaceOrderInput struct {
	CustomerName  string
	CustomerEmail string
	CustomerPhone string
	Items         []ItemInput
	LocationID    string
	Notes         string
	PDPAConsent   bool
	ClientIP      string
	UserAgent     string
}

// Service is the order aggregate builder: it owns the single transaction
// spanning consent, inventory reservation, pricing and persistence. It never
// emits a half-created order.
type Service struct {
	Store         Store
	InvoicePrefix string
	ConsentSecret string
	Now           func() time.Time // defaults to time.Now
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

func validatePlaceOrder(in PlaceOrderInput) error {
	if strings.TrimSpace(in.CustomerName) == "" {
		return &ValidationError{Msg: "customer_name is required"}
	}
	if !strings.Contains(in.CustomerEmail, "@") {
		return &ValidationError{Msg: "customer_email is invalid"}
	}
	if len(in.Items) == 0 {
		return &ValidationError{Msg: "items must not be empty"}
	}
	for _, it := range in.Items {
		if it.ProductID == "" {
			return &ValidationError{Msg: "items[].product_id is required"}
		}
		if it.Quantity < 1 {
			return &ValidationError{Msg: fmt.Sprintf("quantity for product %s must be at least 1", it.ProductID)}
		}
	}
	return nil
}

// PlaceOrder validates the request, then runs one transaction that records
// consent (if given), reserves inventory for every line item, computes the
// tax breakdown from the summed line subtotals and persists the order with
// its items. Any failure past validation rolls the whole transaction back:
// no stock change, no order, no consent row.
func (s *Service) PlaceOrder(ctx context.Context, in PlaceOrderInput) (*Order, error) {
	if err := validatePlaceOrder(in); err != nil {
		return nil, err
	}

	var placed *Order
	err := s.Store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		now := s.now()

		var consentID string
		if in.PDPAConsent {
			c := NewConsentRecord(in.CustomerEmail, ConsentOrderProcessing,
				OrderConsentWording, in.ClientIP, in.UserAgent, s.ConsentSecret, now)
			if err := tx.InsertConsent(ctx, c); err != nil {
				return fmt.Errorf("record consent: %w", err)
			}
			consentID = c.ID
		}

		reserved, itemErrs, err := Reserve(ctx, tx, in.Items)
		if err != nil {
			return err
		}
		if len(itemErrs) > 0 {
			return &ReservationError{Items: itemErrs}
		}

		items := make([]OrderItem, 0, len(reserved))
		subtotal := decimal.Zero
		for _, r := range reserved {
			line := ItemSubtotal(r.UnitPrice, r.Quantity)
			subtotal = subtotal.Add(line)
			items = append(items, OrderItem{
				ID:          uuid.NewString(),
				ProductID:   r.ProductID,
				ProductName: r.ProductName,
				Quantity:    r.Quantity,
				UnitPrice:   r.UnitPrice,
				Subtotal:    line,
			})
		}
		bd := CalculateBreakdown(subtotal)

		o := &Order{
			ID:            uuid.NewString(),
			CustomerName:  in.CustomerName,
			CustomerEmail: in.CustomerEmail,
			CustomerPhone: in.CustomerPhone,
			Subtotal:      bd.Subtotal,
			TaxAmount:     bd.TaxAmount,
			TotalAmount:   bd.TotalAmount,
			Status:        StatusPending,
			LocationID:    in.LocationID,
			ConsentID:     consentID,
			Notes:         in.Notes,
			CreatedAt:     now,
		}

		insertErr := ErrInvoiceTaken
		for attempt := 0; attempt < invoiceAttempts && errors.Is(insertErr, ErrInvoiceTaken); attempt++ {
			o.InvoiceNumber = GenerateInvoiceNumber(s.InvoicePrefix, now)
			insertErr = tx.InsertOrder(ctx, o)
		}
		if insertErr != nil {
			return fmt.Errorf("persist order: %w", insertErr)
		}

		for i := range items {
			items[i].OrderID = o.ID
		}
		if err := tx.InsertOrderItems(ctx, items); err != nil {
			return fmt.Errorf("persist order items: %w", err)
		}

		o.Items = items
		placed = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return placed, nil
}

// ReleaseStock re-credits stock from a cancelled order's reservation in its
// own transaction. Not idempotent; see Release.
func (s *Service) ReleaseStock(ctx context.Context, items []ItemInput) error {
	return s.Store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		return Release(ctx, tx, items)
	})
}
