package cart

import (
	"strings"

	"github.com/shopspring/decimal"
)

// CouponWomen10 takes 10% off the subtotal.
const CouponWomen10 = "WOMEN10"

// CouponPolicy is a closed table of coupon codes and their discount rates.
type CouponPolicy struct {
	rates map[string]decimal.Decimal
}

// DefaultCouponPolicy returns the storefront's static coupon table.
func DefaultCouponPolicy() *CouponPolicy {
	return NewCouponPolicy(map[string]decimal.Decimal{
		CouponWomen10: decimal.NewFromFloat(0.10),
	})
}

// NewCouponPolicy builds a policy from code → rate pairs. Codes are normalized and rates
// outside (0, 1] are ignored.
func NewCouponPolicy(rates map[string]decimal.Decimal) *CouponPolicy {
	clean := make(map[string]decimal.Decimal, len(rates))
	for code, rate := range rates {
		normalized := NormalizeCouponCode(code)
		if normalized == "" || !rate.IsPositive() || rate.GreaterThan(decimal.NewFromInt(1)) {
			continue
		}
		clean[normalized] = rate
	}
	return &CouponPolicy{rates: clean}
}

// NormalizeCouponCode trims and upper-cases a user-entered code.
func NormalizeCouponCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Lookup resolves a code to its rate. The returned code is normalized.
func (p *CouponPolicy) Lookup(code string) (string, decimal.Decimal, bool) {
	normalized := NormalizeCouponCode(code)
	if p == nil || normalized == "" {
		return normalized, decimal.Zero, false
	}
	rate, ok := p.rates[normalized]
	return normalized, rate, ok
}

// DiscountFor computes the absolute discount a rate yields on the given subtotal.
func DiscountFor(subtotal, rate decimal.Decimal) decimal.Decimal {
	if !subtotal.IsPositive() {
		return decimal.Zero
	}
	return subtotal.Mul(rate)
}
