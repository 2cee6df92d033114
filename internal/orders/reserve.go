package orders

import (
	"context"
	"errors"
	"sort"

	"github.com/shopspring/decimal"
)

// Reservation is stock held for one line item, with the product fields
// snapshotted under the row lock.
type Reservation struct {
	ProductID      string
	ProductName    string
	UnitPrice      decimal.Decimal
	Quantity       int
	RemainingStock int
}

// Reserve locks every requested product row and decrements its stock inside
// the caller's transaction. Rows are locked in ascending product id order;
// every concurrent transaction uses the same order, so overlapping
// multi-item orders cannot deadlock.
//
// The batch is all-or-nothing: all failing items are collected and returned
// as itemErrs, and the caller must abort the transaction so that no
// decrement survives, including ones that individually succeeded.
func Reserve(ctx context.Context, tx Tx, items []ItemInput) (reserved []Reservation, itemErrs []ItemError, err error) {
	sorted := make([]ItemInput, len(items))
	copy(sorted, items)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ProductID < sorted[j].ProductID })

	for _, it := range sorted {
		p, err := tx.LockProduct(ctx, it.ProductID)
		if errors.Is(err, ErrProductNotFound) {
			itemErrs = append(itemErrs, ItemError{
				ProductID: it.ProductID, Reason: ReasonNotFound, Required: it.Quantity,
			})
			continue
		}
		if err != nil {
			return nil, nil, err
		}
		if !p.IsAvailable {
			itemErrs = append(itemErrs, ItemError{
				ProductID: it.ProductID, Reason: ReasonUnavailable, Required: it.Quantity,
			})
			continue
		}
		if p.StockQuantity < it.Quantity {
			itemErrs = append(itemErrs, ItemError{
				ProductID: it.ProductID, Reason: ReasonInsufficientStock,
				Required: it.Quantity, Available: p.StockQuantity,
			})
			continue
		}

		if err := tx.AdjustStock(ctx, it.ProductID, -it.Quantity); err != nil {
			return nil, nil, err
		}
		reserved = append(reserved, Reservation{
			ProductID:      p.ID,
			ProductName:    p.Name,
			UnitPrice:      p.Price,
			Quantity:       it.Quantity,
			RemainingStock: p.StockQuantity - it.Quantity,
		})
	}

	if len(itemErrs) > 0 {
		return nil, itemErrs, nil
	}
	return reserved, nil, nil
}

// Release re-credits stock from a prior reservation. It performs no
// availability checks and is not idempotent: releasing the same reservation
// twice credits the stock twice. Callers gate on order state.
func Release(ctx context.Context, tx Tx, items []ItemInput) error {
	sorted := make([]ItemInput, len(items))
	copy(sorted, items)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ProductID < sorted[j].ProductID })

	for _, it := range sorted {
		if err := tx.AdjustStock(ctx, it.ProductID, it.Quantity); err != nil {
			return err
		}
	}
	return nil
}
