package cart

import "github.com/shopspring/decimal"

func subtotal(items []LineItem) decimal.Decimal {
	sum := decimal.Zero
	for _, item := range items {
		sum = sum.Add(item.LineTotal())
	}
	return sum
}

// calculateTotals derives total quantity and the payable amount. The amount never drops below
// zero even when a frozen discount outlives the lines it was computed from.
func calculateTotals(items []LineItem, discount decimal.Decimal) (int, decimal.Decimal) {
	quantity := 0
	for _, item := range items {
		quantity += item.Quantity
	}
	amount := subtotal(items).Sub(discount)
	if amount.IsNegative() {
		amount = decimal.Zero
	}
	return quantity, amount
}

func (s *State) recalculate() {
	s.TotalQuantity, s.TotalAmount = calculateTotals(s.Items, s.Discount)
}
