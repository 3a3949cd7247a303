package order

import (
	"github.com/shopspring/decimal"

	"github.com/xenking/choco-orders/internal/domain/loyalty"
	"github.com/xenking/choco-orders/internal/domain/offer"
)

// maxItemPrice is the largest price an order_items row can hold.
var maxItemPrice = decimal.RequireFromString("99999999.99")

// wholeCents reports whether d fits the two decimal places of stored amounts.
func wholeCents(d decimal.Decimal) bool {
	return d.Equal(d.Round(2))
}

// Quote is the authoritative pricing of a cart. Total always equals
// Subtotal - Discount + Shipping.
type Quote struct {
	Subtotal     decimal.Decimal
	Discount     decimal.Decimal
	Shipping     decimal.Decimal
	Total        decimal.Decimal
	PointsCost   int64
	PointsEarned int64
}

// Price computes the quote for items with an optional frozen offer.
// Points are earned only when the order has an owner. Prices and shipping
// are expected in whole cents.
func Price(items []Item, o *offer.Offer, shipping decimal.Decimal, hasUser bool) Quote {
	subtotal := decimal.Zero
	for _, it := range items {
		subtotal = subtotal.Add(it.Price.Mul(decimal.NewFromInt(int64(it.Qty))))
	}

	q := Quote{
		Subtotal: subtotal,
		Discount: decimal.Zero,
		Shipping: shipping,
	}
	if o != nil {
		q.Discount = o.Discount(subtotal)
		q.PointsCost = o.PointsCost
	}
	q.Total = subtotal.Sub(q.Discount).Add(shipping)
	if hasUser {
		q.PointsEarned = loyalty.Earned(q.Total)
	}
	return q
}
