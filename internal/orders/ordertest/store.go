// Package ordertest provides an in-memory orders.Store for tests. Row locks
// are per-product mutexes held for the transaction's lifetime, and writes
// are journaled until commit, mirroring the rollback semantics of the real
// store.
package ordertest

import (
	"context"
	"sort"
	"sync"

	"github.com/hartanto/go-cafe-orders/internal/orders"
)

type Store struct {
	mu        sync.Mutex
	products  map[string]orders.Product
	locks     map[string]*sync.Mutex
	orders    map[string]*orders.Order
	byInvoice map[string]string
	consents  map[string]orders.ConsentRecord // keyed by anonymized identifier

	// InsertOrderErr makes every InsertOrder fail, for rollback tests.
	InsertOrderErr error
	// InvoiceConflicts makes the next N InsertOrder calls report a taken
	// invoice number, for retry-loop tests.
	InvoiceConflicts int
}

func New() *Store {
	return &Store{
		products:  make(map[string]orders.Product),
		locks:     make(map[string]*sync.Mutex),
		orders:    make(map[string]*orders.Order),
		byInvoice: make(map[string]string),
		consents:  make(map[string]orders.ConsentRecord),
	}
}

func (s *Store) AddProduct(p orders.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[p.ID] = p
	if _, ok := s.locks[p.ID]; !ok {
		s.locks[p.ID] = &sync.Mutex{}
	}
}

// StockOf reports the committed stock level.
func (s *Store) StockOf(productID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.products[productID].StockQuantity
}

func (s *Store) ConsentCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.consents)
}

func (s *Store) OrderCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.orders)
}

func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context, tx orders.Tx) error) error {
	tx := &memTx{
		s:          s,
		heldIDs:    make(map[string]bool),
		stockDelta: make(map[string]int),
		byInvoice:  make(map[string]bool),
	}
	defer tx.unlock()
	if err := fn(ctx, tx); err != nil {
		return err
	}
	tx.commit()
	return nil
}

type memTx struct {
	s          *Store
	held       []*sync.Mutex
	heldIDs    map[string]bool
	stockDelta map[string]int
	orders     []*orders.Order
	items      []orders.OrderItem
	consents   []orders.ConsentRecord
	byInvoice  map[string]bool
}

// lockRow takes the per-product mutex (once per transaction) and returns the
// committed row with this transaction's pending delta applied.
func (t *memTx) lockRow(productID string) (orders.Product, error) {
	t.s.mu.Lock()
	p, ok := t.s.products[productID]
	l := t.s.locks[productID]
	t.s.mu.Unlock()
	if !ok {
		return orders.Product{}, orders.ErrProductNotFound
	}

	if !t.heldIDs[productID] {
		l.Lock()
		t.held = append(t.held, l)
		t.heldIDs[productID] = true
		// re-read: stock may have moved while we waited on the lock
		t.s.mu.Lock()
		p = t.s.products[productID]
		t.s.mu.Unlock()
	}
	p.StockQuantity += t.stockDelta[productID]
	return p, nil
}

func (t *memTx) LockProduct(ctx context.Context, productID string) (*orders.Product, error) {
	p, err := t.lockRow(productID)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (t *memTx) AdjustStock(ctx context.Context, productID string, delta int) error {
	if _, err := t.lockRow(productID); err != nil {
		return err
	}
	t.stockDelta[productID] += delta
	return nil
}

func (t *memTx) InsertConsent(ctx context.Context, c *orders.ConsentRecord) error {
	t.s.mu.Lock()
	existing, ok := t.s.consents[c.AnonymizedIdentifier]
	t.s.mu.Unlock()
	if ok {
		c.ID = existing.ID
		return nil
	}
	for _, pending := range t.consents {
		if pending.AnonymizedIdentifier == c.AnonymizedIdentifier {
			c.ID = pending.ID
			return nil
		}
	}
	t.consents = append(t.consents, *c)
	return nil
}

func (t *memTx) InsertOrder(ctx context.Context, o *orders.Order) error {
	if t.s.InsertOrderErr != nil {
		return t.s.InsertOrderErr
	}
	t.s.mu.Lock()
	if t.s.InvoiceConflicts > 0 {
		t.s.InvoiceConflicts--
		t.s.mu.Unlock()
		return orders.ErrInvoiceTaken
	}
	_, taken := t.s.byInvoice[o.InvoiceNumber]
	t.s.mu.Unlock()
	if taken || t.byInvoice[o.InvoiceNumber] {
		return orders.ErrInvoiceTaken
	}

	cp := *o
	t.orders = append(t.orders, &cp)
	t.byInvoice[o.InvoiceNumber] = true
	return nil
}

func (t *memTx) InsertOrderItems(ctx context.Context, items []orders.OrderItem) error {
	t.items = append(t.items, items...)
	return nil
}

func (t *memTx) commit() {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	for id, delta := range t.stockDelta {
		p := t.s.products[id]
		p.StockQuantity += delta
		t.s.products[id] = p
	}
	for _, c := range t.consents {
		t.s.consents[c.AnonymizedIdentifier] = c
	}
	for _, o := range t.orders {
		t.s.orders[o.ID] = o
		t.s.byInvoice[o.InvoiceNumber] = o.ID
	}
	for _, it := range t.items {
		o := t.s.orders[it.OrderID]
		if o != nil {
			o.Items = append(o.Items, it)
		}
	}
}

func (t *memTx) unlock() {
	for i := len(t.held) - 1; i >= 0; i-- {
		t.held[i].Unlock()
	}
	t.held = nil
}

// ---- committed read surface, mirroring the postgres store ----

func (s *Store) GetOrder(ctx context.Context, id string) (*orders.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return nil, orders.ErrOrderNotFound
	}
	cp := *o
	return &cp, nil
}

func (s *Store) GetOrderByInvoice(ctx context.Context, invoice string) (*orders.Order, error) {
	s.mu.Lock()
	id, ok := s.byInvoice[invoice]
	s.mu.Unlock()
	if !ok {
		return nil, orders.ErrOrderNotFound
	}
	return s.GetOrder(ctx, id)
}

func (s *Store) ListOrders(ctx context.Context, f orders.OrderFilter) ([]orders.Order, error) {
	s.mu.Lock()
	out := make([]orders.Order, 0, len(s.orders))
	for _, o := range s.orders {
		if f.Status != "" && o.Status != f.Status {
			continue
		}
		if !f.DateFrom.IsZero() && o.CreatedAt.Before(f.DateFrom) {
			continue
		}
		if !f.DateTo.IsZero() && o.CreatedAt.After(f.DateTo) {
			continue
		}
		out = append(out, *o)
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if f.Offset > 0 {
		if f.Offset >= len(out) {
			return nil, nil
		}
		out = out[f.Offset:]
	}
	if f.Limit > 0 && f.Limit < len(out) {
		out = out[:f.Limit]
	}
	return out, nil
}
