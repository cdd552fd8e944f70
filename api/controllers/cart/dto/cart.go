package cartdto

import (
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-cart/internal/cart"
)

// Cart is the cart view returned by every cart endpoint.
type Cart struct {
	SessionID     string          `json:"session_id"`
	Items         []CartItem      `json:"items"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	Discount      decimal.Decimal `json:"discount"`
	CouponCode    string          `json:"coupon_code,omitempty"`
	TotalQuantity int             `json:"total_quantity"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
}

// CartItem is one line of the cart view.
type CartItem struct {
	ProductID         string          `json:"product_id"`
	Color             string          `json:"color"`
	Size              string          `json:"size"`
	Name              string          `json:"name"`
	Slug              string          `json:"slug"`
	ImageURL          string          `json:"image_url"`
	UnitPrice         decimal.Decimal `json:"unit_price"`
	OriginalUnitPrice decimal.Decimal `json:"original_unit_price"`
	Quantity          int             `json:"quantity"`
	StockLimit        int             `json:"stock_limit"`
	LineTotal         decimal.Decimal `json:"line_total"`
}

// Mutation pairs an operation outcome with the cart it left behind.
type Mutation struct {
	Result cart.Result `json:"result"`
	Cart   Cart        `json:"cart"`
}

// NewCart maps engine state onto the API view.
func NewCart(sessionID string, state cart.State) Cart {
	items := make([]CartItem, 0, len(state.Items))
	for _, item := range state.Items {
		items = append(items, CartItem{
			ProductID:         item.ProductID,
			Color:             item.Variant.Color,
			Size:              item.Variant.Size,
			Name:              item.Name,
			Slug:              item.Slug,
			ImageURL:          item.ImageURL,
			UnitPrice:         item.UnitPrice,
			OriginalUnitPrice: item.OriginalUnitPrice,
			Quantity:          item.Quantity,
			StockLimit:        item.StockLimit,
			LineTotal:         item.LineTotal(),
		})
	}
	return Cart{
		SessionID:     sessionID,
		Items:         items,
		Subtotal:      state.Subtotal(),
		Discount:      state.Discount,
		CouponCode:    state.CouponCode,
		TotalQuantity: state.TotalQuantity,
		TotalAmount:   state.TotalAmount,
	}
}
