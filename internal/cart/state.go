package cart

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// LineItem is one product/variant entry in the cart with a price snapshot taken at add time.
type LineItem struct {
	ProductID         string          `json:"product_id"`
	Variant           Variant         `json:"variant"`
	Name              string          `json:"name"`
	Slug              string          `json:"slug"`
	ImageURL          string          `json:"image_url"`
	UnitPrice         decimal.Decimal `json:"unit_price"`
	OriginalUnitPrice decimal.Decimal `json:"original_unit_price"`
	Quantity          int             `json:"quantity"`
	StockLimit        int             `json:"stock_limit"`
}

// LineTotal is unit price times quantity.
func (li LineItem) LineTotal() decimal.Decimal {
	return li.UnitPrice.Mul(decimal.NewFromInt(int64(li.Quantity)))
}

// matches compares variants the way AddItem folds them: trimmed and case-insensitive.
func (li LineItem) matches(productID string, variant Variant) bool {
	return li.ProductID == productID &&
		sameOption(li.Variant.Color, variant.Color) &&
		sameOption(li.Variant.Size, variant.Size)
}

func sameOption(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

func newLineItem(product Product, variant Variant, quantity int) LineItem {
	return LineItem{
		ProductID:         product.ID,
		Variant:           variant,
		Name:              product.Name,
		Slug:              product.Slug,
		ImageURL:          product.PrimaryImage(),
		UnitPrice:         product.UnitPrice(),
		OriginalUnitPrice: product.Price,
		Quantity:          quantity,
		StockLimit:        product.Stock,
	}
}

// State is the full cart: ordered items, the frozen coupon discount and derived totals.
type State struct {
	Items         []LineItem      `json:"items"`
	Discount      decimal.Decimal `json:"discount"`
	CouponCode    string          `json:"coupon_code,omitempty"`
	TotalQuantity int             `json:"total_quantity"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
}

// Subtotal is the pre-discount sum of all lines.
func (s State) Subtotal() decimal.Decimal {
	return subtotal(s.Items)
}

// HasCoupon reports whether a coupon discount is active.
func (s State) HasCoupon() bool {
	return s.CouponCode != ""
}

// Equal compares two states field by field, treating decimals by value.
func (s State) Equal(other State) bool {
	if len(s.Items) != len(other.Items) {
		return false
	}
	for i := range s.Items {
		a, b := s.Items[i], other.Items[i]
		if a.ProductID != b.ProductID || a.Variant != b.Variant || a.Name != b.Name ||
			a.Slug != b.Slug || a.ImageURL != b.ImageURL || a.Quantity != b.Quantity ||
			a.StockLimit != b.StockLimit || !a.UnitPrice.Equal(b.UnitPrice) ||
			!a.OriginalUnitPrice.Equal(b.OriginalUnitPrice) {
			return false
		}
	}
	return s.Discount.Equal(other.Discount) &&
		s.CouponCode == other.CouponCode &&
		s.TotalQuantity == other.TotalQuantity &&
		s.TotalAmount.Equal(other.TotalAmount)
}

func (s State) clone() State {
	out := s
	out.Items = make([]LineItem, len(s.Items))
	copy(out.Items, s.Items)
	return out
}

func (s State) indexOf(productID string, variant Variant) int {
	for i, item := range s.Items {
		if item.matches(productID, variant) {
			return i
		}
	}
	return -1
}

func emptyState() State {
	return State{
		Items:       []LineItem{},
		Discount:    decimal.Zero,
		TotalAmount: decimal.Zero,
	}
}

// Snapshot is the immutable copy handed to checkout.
type Snapshot struct {
	Items         []LineItem      `json:"items"`
	TotalQuantity int             `json:"total_quantity"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	Discount      decimal.Decimal `json:"discount"`
	CouponCode    string          `json:"coupon_code,omitempty"`
	TakenAt       time.Time       `json:"taken_at"`
}

// IsEmpty reports whether the snapshot carries no items.
func (s Snapshot) IsEmpty() bool {
	return len(s.Items) == 0
}

func snapshotOf(s State, at time.Time) Snapshot {
	c := s.clone()
	return Snapshot{
		Items:         c.Items,
		TotalQuantity: c.TotalQuantity,
		TotalAmount:   c.TotalAmount,
		Subtotal:      c.Subtotal(),
		Discount:      c.Discount,
		CouponCode:    c.CouponCode,
		TakenAt:       at,
	}
}
