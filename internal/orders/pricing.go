package orders

import "github.com/shopspring/decimal"

// GSTRate is the Singapore GST rate (9%). Prices are tax-inclusive, so the
// tax component is recovered by grossing up and subtracting.
var GSTRate = decimal.New(9, -2)

// moneyScale is the fixed-point scale for all monetary amounts.
const moneyScale = 4

var one = decimal.NewFromInt(1)

type Breakdown struct {
	Subtotal    decimal.Decimal
	TaxAmount   decimal.Decimal
	TotalAmount decimal.Decimal
}

// CalculateBreakdown decomposes a tax-inclusive subtotal:
//
//	total = subtotal * (1 + rate)
//	tax   = total - subtotal
//
// All results round half-up to 4 decimal places. Because the subtotal is
// already at scale 4, total == subtotal + tax holds exactly after rounding.
func CalculateBreakdown(subtotal decimal.Decimal) Breakdown {
	total := subtotal.Mul(one.Add(GSTRate))
	tax := total.Sub(subtotal)
	return Breakdown{
		Subtotal:    subtotal.Round(moneyScale),
		TaxAmount:   tax.Round(moneyScale),
		TotalAmount: total.Round(moneyScale),
	}
}

// ItemSubtotal prices one line item, rounded half-up to 4 decimal places.
// The order subtotal is the sum of these rounded line subtotals, never a
// fresh recomputation.
func ItemSubtotal(unitPrice decimal.Decimal, quantity int) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromInt(int64(quantity))).Round(moneyScale)
}
