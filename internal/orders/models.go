package orders

import (
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Description   string          `json:"description,omitempty"`
	Category      string          `json:"category,omitempty"`
	ImageURL      string          `json:"image_url,omitempty"`
	Price         decimal.Decimal `json:"price"`
	StockQuantity int             `json:"stock_quantity"`
	IsAvailable   bool            `json:"is_available"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

type Location struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Address  string `json:"address"`
	IsActive bool   `json:"is_active"`
}

type Order struct {
	ID            string          `json:"id"`
	InvoiceNumber string          `json:"invoice_number"`
	CustomerName  string          `json:"customer_name"`
	CustomerEmail string          `json:"customer_email"`
	CustomerPhone string          `json:"customer_phone,omitempty"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	TaxAmount     decimal.Decimal `json:"tax_amount"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	Status        Status          `json:"status"`
	LocationID    string          `json:"location_id,omitempty"`
	ConsentID     string          `json:"pdpa_consent_id,omitempty"`
	Notes         string          `json:"notes,omitempty"`
	Items         []OrderItem     `json:"items,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

// OrderItem snapshots product name and unit price at order time; later edits
// to the product never touch these fields.
type OrderItem struct {
	ID          string          `json:"id"`
	OrderID     string          `json:"order_id"`
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

// ConsentRecord is an append-only audit entry proving consent was given,
// without storing the subject identifier in the clear.
type ConsentRecord struct {
	ID                   string      `json:"id"`
	ConsentType          ConsentType `json:"consent_type"`
	AnonymizedIdentifier string      `json:"anonymized_identifier"`
	WordingHash          string      `json:"wording_hash"`
	IPAddress            string      `json:"ip_address,omitempty"`
	UserAgent            string      `json:"user_agent,omitempty"`
	ConsentedAt          time.Time   `json:"consented_at"`
}

// ItemInput is one requested line item on an inbound order.
type ItemInput struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// OrderFilter narrows admin order listings.
type OrderFilter struct {
	Status   Status
	DateFrom time.Time
	DateTo   time.Time
	Limit    int
	Offset   int
}
