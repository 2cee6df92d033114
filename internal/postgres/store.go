package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hartanto/go-cafe-orders/internal/orders"
)

const (
	codeUniqueViolation  = "23505"
	codeLockNotAvailable = "55P03"
)

// Store implements orders.Store on pgx plus the read-side queries. Row locks
// wait at most LockTimeout before the transaction fails with
// orders.ErrLockTimeout instead of queuing indefinitely on a hot product.
type Store struct {
	DB          *pgxpool.Pool
	LockTimeout time.Duration
}

func NewStore(db *pgxpool.Pool, lockTimeout time.Duration) *Store {
	return &Store{DB: db, LockTimeout: lockTimeout}
}

func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context, tx orders.Tx) error) error {
	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if s.LockTimeout > 0 {
		stmt := fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", s.LockTimeout.Milliseconds())
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return err
		}
	}

	if err := fn(ctx, &storeTx{tx: tx}); err != nil {
		return mapPgError(err)
	}
	return tx.Commit(ctx)
}

func mapPgError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == codeLockNotAvailable {
		return fmt.Errorf("%w: %s", orders.ErrLockTimeout, pgErr.Message)
	}
	return err
}

type storeTx struct {
	tx pgx.Tx
}

func (t *storeTx) LockProduct(ctx context.Context, productID string) (*orders.Product, error) {
	var p orders.Product
	err := t.tx.QueryRow(ctx, `
		SELECT id, name, price, stock_quantity, is_available
		FROM products
		WHERE id = $1 AND deleted_at IS NULL
		FOR UPDATE`, productID).
		Scan(&p.ID, &p.Name, &p.Price, &p.StockQuantity, &p.IsAvailable)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, orders.ErrProductNotFound
	}
	if err != nil {
		return nil, mapPgError(err)
	}
	return &p, nil
}

func (t *storeTx) AdjustStock(ctx context.Context, productID string, delta int) error {
	ct, err := t.tx.Exec(ctx, `
		UPDATE products SET stock_quantity = stock_quantity + $2, updated_at = now()
		WHERE id = $1 AND deleted_at IS NULL`, productID, delta)
	if err != nil {
		return mapPgError(err)
	}
	if ct.RowsAffected() != 1 {
		return orders.ErrProductNotFound
	}
	return nil
}

// InsertConsent reuses an existing record for the same anonymized identifier
// instead of duplicating it; the audit log stays append-only.
func (t *storeTx) InsertConsent(ctx context.Context, c *orders.ConsentRecord) error {
	var id string
	err := t.tx.QueryRow(ctx, `
		INSERT INTO pdpa_consents (id, consent_type, anonymized_identifier, wording_hash, ip_address, user_agent, consented_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (anonymized_identifier) DO NOTHING
		RETURNING id`,
		c.ID, c.ConsentType, c.AnonymizedIdentifier, c.WordingHash, c.IPAddress, c.UserAgent, c.ConsentedAt).
		Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		err = t.tx.QueryRow(ctx,
			`SELECT id FROM pdpa_consents WHERE anonymized_identifier = $1`,
			c.AnonymizedIdentifier).Scan(&id)
	}
	if err != nil {
		return err
	}
	c.ID = id
	return nil
}

// InsertOrder runs inside a savepoint so an invoice-number collision can be
// retried without poisoning the outer transaction.
func (t *storeTx) InsertOrder(ctx context.Context, o *orders.Order) error {
	sp, err := t.tx.Begin(ctx)
	if err != nil {
		return err
	}
	_, err = sp.Exec(ctx, `
		INSERT INTO orders (id, invoice_number, customer_name, customer_email, customer_phone,
			subtotal, tax_amount, total_amount, status, location_id, pdpa_consent_id, notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		o.ID, o.InvoiceNumber, o.CustomerName, o.CustomerEmail, nullIfEmpty(o.CustomerPhone),
		o.Subtotal, o.TaxAmount, o.TotalAmount, o.Status,
		nullIfEmpty(o.LocationID), nullIfEmpty(o.ConsentID), nullIfEmpty(o.Notes), o.CreatedAt)
	if err != nil {
		_ = sp.Rollback(ctx)
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == codeUniqueViolation && pgErr.ConstraintName == "orders_invoice_number_key" {
			return orders.ErrInvoiceTaken
		}
		return err
	}
	return sp.Commit(ctx)
}

func (t *storeTx) InsertOrderItems(ctx context.Context, items []orders.OrderItem) error {
	for _, it := range items {
		_, err := t.tx.Exec(ctx, `
			INSERT INTO order_items (id, order_id, product_id, product_name, quantity, unit_price, subtotal)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			it.ID, it.OrderID, it.ProductID, it.ProductName, it.Quantity, it.UnitPrice, it.Subtotal)
		if err != nil {
			return err
		}
	}
	return nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// ---- read side ----

const orderColumns = `id, invoice_number, customer_name, customer_email, customer_phone,
	subtotal, tax_amount, total_amount, status, location_id, pdpa_consent_id, notes, created_at`

func scanOrder(row pgx.Row) (*orders.Order, error) {
	var o orders.Order
	var phone, locID, consentID, notes *string
	err := row.Scan(&o.ID, &o.InvoiceNumber, &o.CustomerName, &o.CustomerEmail, &phone,
		&o.Subtotal, &o.TaxAmount, &o.TotalAmount, &o.Status, &locID, &consentID, &notes, &o.CreatedAt)
	if err != nil {
		return nil, err
	}
	o.CustomerPhone = deref(phone)
	o.LocationID = deref(locID)
	o.ConsentID = deref(consentID)
	o.Notes = deref(notes)
	return &o, nil
}

func (s *Store) GetOrder(ctx context.Context, id string) (*orders.Order, error) {
	o, err := scanOrder(s.DB.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, orders.ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	if o.Items, err = s.orderItems(ctx, o.ID); err != nil {
		return nil, err
	}
	return o, nil
}

func (s *Store) GetOrderByInvoice(ctx context.Context, invoice string) (*orders.Order, error) {
	o, err := scanOrder(s.DB.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE invoice_number = $1`, invoice))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, orders.ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	if o.Items, err = s.orderItems(ctx, o.ID); err != nil {
		return nil, err
	}
	return o, nil
}

func (s *Store) orderItems(ctx context.Context, orderID string) ([]orders.OrderItem, error) {
	rows, err := s.DB.Query(ctx, `
		SELECT id, order_id, product_id, product_name, quantity, unit_price, subtotal
		FROM order_items WHERE order_id = $1`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []orders.OrderItem
	for rows.Next() {
		var it orders.OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.ProductName, &it.Quantity, &it.UnitPrice, &it.Subtotal); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (s *Store) ListOrders(ctx context.Context, f orders.OrderFilter) ([]orders.Order, error) {
	q := `SELECT ` + orderColumns + ` FROM orders`
	var args []any
	sep := " WHERE"
	if f.Status != "" {
		args = append(args, string(f.Status))
		q += fmt.Sprintf("%s status = $%d", sep, len(args))
		sep = " AND"
	}
	if !f.DateFrom.IsZero() {
		args = append(args, f.DateFrom)
		q += fmt.Sprintf("%s created_at >= $%d", sep, len(args))
		sep = " AND"
	}
	if !f.DateTo.IsZero() {
		args = append(args, f.DateTo)
		q += fmt.Sprintf("%s created_at <= $%d", sep, len(args))
	}
	q += " ORDER BY created_at DESC"
	limit := f.Limit
	if limit <= 0 {
		limit = 20
	}
	args = append(args, limit)
	q += fmt.Sprintf(" LIMIT $%d", len(args))
	if f.Offset > 0 {
		args = append(args, f.Offset)
		q += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := s.DB.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []orders.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *o)
	}
	return out, rows.Err()
}

const productColumns = `id, name, description, category, image_url, price, stock_quantity, is_available, created_at, updated_at`

func (s *Store) ListProducts(ctx context.Context, category string) ([]orders.Product, error) {
	q := `SELECT ` + productColumns + ` FROM products WHERE is_available AND deleted_at IS NULL`
	var args []any
	if category != "" {
		args = append(args, category)
		q += fmt.Sprintf(" AND category = $%d", len(args))
	}
	q += " ORDER BY category, name"

	rows, err := s.DB.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []orders.Product
	for rows.Next() {
		var p orders.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.Category, &p.ImageURL,
			&p.Price, &p.StockQuantity, &p.IsAvailable, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) GetProduct(ctx context.Context, id string) (*orders.Product, error) {
	var p orders.Product
	err := s.DB.QueryRow(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = $1 AND is_available AND deleted_at IS NULL`, id).
		Scan(&p.ID, &p.Name, &p.Description, &p.Category, &p.ImageURL,
			&p.Price, &p.StockQuantity, &p.IsAvailable, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, orders.ErrProductNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Store) ListLocations(ctx context.Context) ([]orders.Location, error) {
	rows, err := s.DB.Query(ctx,
		`SELECT id, name, address, is_active FROM locations WHERE is_active ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []orders.Location
	for rows.Next() {
		var l orders.Location
		if err := rows.Scan(&l.ID, &l.Name, &l.Address, &l.IsActive); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (s *Store) GetLocation(ctx context.Context, id string) (*orders.Location, error) {
	var l orders.Location
	err := s.DB.QueryRow(ctx,
		`SELECT id, name, address, is_active FROM locations WHERE id = $1`, id).
		Scan(&l.ID, &l.Name, &l.Address, &l.IsActive)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errors.New("location not found")
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// LowStockProducts returns, among the given ids, the products at or below
// threshold. Used by the stock watcher after an order commits.
func (s *Store) LowStockProducts(ctx context.Context, productIDs []string, threshold int) ([]orders.Product, error) {
	if len(productIDs) == 0 {
		return nil, nil
	}
	rows, err := s.DB.Query(ctx, `
		SELECT id, name, stock_quantity
		FROM products
		WHERE id = ANY($1) AND deleted_at IS NULL AND stock_quantity <= $2`,
		productIDs, threshold)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []orders.Product
	for rows.Next() {
		var p orders.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.StockQuantity); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
