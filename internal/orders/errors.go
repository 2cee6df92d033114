package orders

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrProductNotFound = errors.New("product not found")
	ErrOrderNotFound   = errors.New("order not found")
	ErrInvoiceTaken    = errors.New("invoice number already taken")
	// ErrLockTimeout surfaces a bounded lock wait that expired; the request
	// can be retried by the caller.
	ErrLockTimeout = errors.New("lock wait timeout")
)

type ItemErrorReason string

const (
	ReasonNotFound          ItemErrorReason = "product_not_found"
	ReasonUnavailable       ItemErrorReason = "product_unavailable"
	ReasonInsufficientStock ItemErrorReason = "insufficient_stock"
)

// ItemError is one line item's reservation failure.
type ItemError struct {
	ProductID string          `json:"product_id"`
	Reason    ItemErrorReason `json:"reason"`
	Required  int             `json:"required,omitempty"`
	Available int             `json:"available,omitempty"`
}

func (e ItemError) Error() string {
	return fmt.Sprintf("product %s: %s", e.ProductID, e.Reason)
}

// ReservationError aggregates every failing line item of a rejected order.
// The whole batch is rolled back when any item fails.
type ReservationError struct {
	Items []ItemError
}

func (e *ReservationError) Error() string {
	msgs := make([]string, 0, len(e.Items))
	for _, it := range e.Items {
		msgs = append(msgs, it.Error())
	}
	return "reservation failed: " + strings.Join(msgs, "; ")
}

// ValidationError rejects a malformed request before any side effect.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }
