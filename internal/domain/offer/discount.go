package offer

import (
	"fmt"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Discount returns the amount the offer takes off subtotal, rounded to
// 2 decimal places and never more than subtotal itself.
func (o Offer) Discount(subtotal decimal.Decimal) decimal.Decimal {
	if !subtotal.IsPositive() || !o.Value.IsPositive() {
		return decimal.Zero
	}

	var amount decimal.Decimal
	switch o.Kind {
	case KindPercent:
		amount = subtotal.Mul(o.Value).Div(hundred)
	case KindFixed:
		amount = o.Value
	default:
		return decimal.Zero
	}

	return decimal.Min(amount, subtotal).Round(2)
}

// Label renders the human readable discount label stored with an order,
// e.g. "SWEET10 (10%)" or "FREESHIP (50 off)".
func (o Offer) Label() string {
	switch o.Kind {
	case KindPercent:
		return fmt.Sprintf("%s (%s%%)", o.Code, o.Value.String())
	case KindFixed:
		return fmt.Sprintf("%s (%s off)", o.Code, o.Value.StringFixedBank(2))
	default:
		return o.Code
	}
}
