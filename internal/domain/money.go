package domain

import "github.com/shopspring/decimal"

// Precision of stored amounts.
const (
	MoneyPlaces    = 2
	QuantityPlaces = 3
)

// RoundMoney rounds half away from zero to cents.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyPlaces)
}

// RoundQuantity rounds a chargeable quantity to three places.
func RoundQuantity(d decimal.Decimal) decimal.Decimal {
	return d.Round(QuantityPlaces)
}

// SumLines totals the line items of the given type. An empty type sums all lines.
func SumLines(items []LineItem, typ LineItemType) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		if typ == "" || item.Type == typ {
			total = total.Add(item.TotalPrice)
		}
	}

	return total
}
