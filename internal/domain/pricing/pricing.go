// Package pricing computes cart totals. Every surface that shows or charges
// a price (cart view, coupon validation, order commit) goes through
// Calculate so displayed and charged totals cannot drift.
package pricing

import "github.com/shopspring/decimal"

var (
	hundred = decimal.NewFromInt(100)

	// FreeShippingThreshold is the items subtotal above which shipping is free.
	FreeShippingThreshold = decimal.NewFromInt(200)
	// FlatShippingFee is charged when the subtotal does not exceed the threshold.
	FlatShippingFee = decimal.NewFromInt(5)
)

// Line is a single cart line: the catalog price, the catalog discount
// percentage, and the picked quantity.
type Line struct {
	BookID          int64
	Price           decimal.Decimal
	DiscountPercent decimal.Decimal
	Quantity        int
}

// PricedLine is a Line with its computed unit and line totals.
type PricedLine struct {
	Line
	FinalPrice decimal.Decimal
	LineTotal  decimal.Decimal
}

// Quote is the full price breakdown for a cart.
type Quote struct {
	Lines         []PricedLine
	ItemsSubtotal decimal.Decimal
	ShippingFee   decimal.Decimal
	GrandTotal    decimal.Decimal
	TotalItems    int
}

// Calculate prices the given lines. Per line the catalog discount is applied
// and rounded to 2 decimal places before multiplying by the quantity.
// Shipping is free above FreeShippingThreshold, otherwise FlatShippingFee.
func Calculate(lines []Line) Quote {
	q := Quote{
		Lines:         make([]PricedLine, len(lines)),
		ItemsSubtotal: decimal.Zero,
	}

	for i, l := range lines {
		final := l.Price.Mul(decimal.NewFromInt(1).Sub(l.DiscountPercent.Div(hundred))).Round(2)
		lineTotal := final.Mul(decimal.NewFromInt(int64(l.Quantity)))

		q.Lines[i] = PricedLine{
			Line:       l,
			FinalPrice: final,
			LineTotal:  lineTotal,
		}
		q.ItemsSubtotal = q.ItemsSubtotal.Add(lineTotal)
		q.TotalItems += l.Quantity
	}

	q.ItemsSubtotal = q.ItemsSubtotal.Round(2)

	if q.ItemsSubtotal.GreaterThan(FreeShippingThreshold) {
		q.ShippingFee = decimal.Zero
	} else {
		q.ShippingFee = FlatShippingFee
	}

	q.GrandTotal = q.ItemsSubtotal.Add(q.ShippingFee).Round(2)
	return q
}
