package cartdto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-cart/pkg/db/models"
)

// Order is a placed order as returned by checkout and order lookups.
type Order struct {
	OrderID       string          `json:"order_id"`
	Customer      OrderCustomer   `json:"customer"`
	Shipping      models.Address  `json:"shipping"`
	Billing       models.Address  `json:"billing"`
	Items         []OrderItem     `json:"items"`
	CouponCode    string          `json:"coupon_code,omitempty"`
	TotalQuantity int             `json:"total_quantity"`
	Discount      decimal.Decimal `json:"discount"`
	Total         decimal.Decimal `json:"total"`
	PlacedAt      time.Time       `json:"placed_at"`
}

// OrderCustomer is the contact captured at checkout.
type OrderCustomer struct {
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone"`
}

// OrderItem is one purchased line.
type OrderItem struct {
	ProductID         string          `json:"product_id"`
	Name              string          `json:"name"`
	Slug              string          `json:"slug"`
	ImageURL          string          `json:"image_url"`
	Color             string          `json:"color"`
	Size              string          `json:"size"`
	Quantity          int             `json:"quantity"`
	UnitPrice         decimal.Decimal `json:"unit_price"`
	OriginalUnitPrice decimal.Decimal `json:"original_unit_price"`
}

// NewOrder maps the persisted order onto the API view.
func NewOrder(order *models.Order) Order {
	items := make([]OrderItem, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, OrderItem{
			ProductID:         item.ProductID,
			Name:              item.Name,
			Slug:              item.Slug,
			ImageURL:          item.ImageURL,
			Color:             item.Color,
			Size:              item.Size,
			Quantity:          item.Quantity,
			UnitPrice:         item.UnitPrice,
			OriginalUnitPrice: item.OriginalUnitPrice,
		})
	}
	return Order{
		OrderID: order.OrderNumber,
		Customer: OrderCustomer{
			Name:  order.CustomerName,
			Email: order.CustomerEmail,
			Phone: order.CustomerPhone,
		},
		Shipping:      order.Shipping,
		Billing:       order.Billing,
		Items:         items,
		CouponCode:    order.CouponCode,
		TotalQuantity: order.TotalQuantity,
		Discount:      order.Discount,
		Total:         order.TotalAmount,
		PlacedAt:      order.PlacedAt,
	}
}

// OrderPage is one page of order history.
type OrderPage struct {
	Orders     []Order `json:"orders"`
	NextCursor string  `json:"next_cursor,omitempty"`
}

// NewOrderPage maps a page of orders.
func NewOrderPage(orders []models.Order, nextCursor string) OrderPage {
	out := make([]Order, 0, len(orders))
	for i := range orders {
		out = append(out, NewOrder(&orders[i]))
	}
	return OrderPage{Orders: out, NextCursor: nextCursor}
}
