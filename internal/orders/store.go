package orders

import "context"

// Store opens the single transaction an order placement runs in. The
// transaction commits only if fn returns nil; any error rolls back every
// write, including stock decrements.
type Store interface {
	InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// Tx is the write surface available inside a placement transaction.
type Tx interface {
	// LockProduct acquires an exclusive lock on the product row, held until
	// the transaction ends. Returns ErrProductNotFound for unknown or
	// soft-deleted products and ErrLockTimeout when the bounded wait expires.
	LockProduct(ctx context.Context, productID string) (*Product, error)

	// AdjustStock adds delta to the product's stock, taking the row lock if
	// not already held.
	AdjustStock(ctx context.Context, productID string, delta int) error

	// InsertConsent persists c. If a record with the same anonymized
	// identifier already exists it is reused: c.ID is rewritten to the
	// existing record's id and no row is mutated.
	InsertConsent(ctx context.Context, c *ConsentRecord) error

	// InsertOrder persists o, returning ErrInvoiceTaken when the invoice
	// number collides so the caller can regenerate and retry.
	InsertOrder(ctx context.Context, o *Order) error

	InsertOrderItems(ctx context.Context, items []OrderItem) error
}
