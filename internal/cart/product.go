package cart

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Product is the read-only descriptor handed over by the catalog.
type Product struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Slug          string          `json:"slug"`
	Images        []string        `json:"images"`
	Price         decimal.Decimal `json:"price"`
	DiscountPrice decimal.Decimal `json:"discount_price"`
	Stock         int             `json:"stock"`
	Colors        []string        `json:"colors"`
	Sizes         []string        `json:"sizes"`
}

// Variant is the color/size selection that, with the product id, identifies a line.
type Variant struct {
	Color string `json:"color"`
	Size  string `json:"size"`
}

// UnitPrice is the per-unit price charged for the product: the discounted price when set.
func (p Product) UnitPrice() decimal.Decimal {
	if p.DiscountPrice.IsPositive() {
		return p.DiscountPrice
	}
	return p.Price
}

// PrimaryImage returns the first image reference, if any.
func (p Product) PrimaryImage() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0]
}

// Offers reports whether the product can be bought in the given variant.
// Products without declared colors or sizes accept any value for that dimension.
func (p Product) Offers(v Variant) bool {
	return offered(p.Colors, v.Color) && offered(p.Sizes, v.Size)
}

// Canonical spells the variant the way the product lists its options, so "pink" and "Pink"
// resolve to the same line.
func (p Product) Canonical(v Variant) Variant {
	return Variant{Color: canonical(p.Colors, v.Color), Size: canonical(p.Sizes, v.Size)}
}

func canonical(options []string, value string) string {
	value = strings.TrimSpace(value)
	for _, option := range options {
		if strings.EqualFold(option, value) {
			return option
		}
	}
	return value
}

func offered(options []string, value string) bool {
	if len(options) == 0 {
		return true
	}
	for _, option := range options {
		if strings.EqualFold(option, value) {
			return true
		}
	}
	return false
}
