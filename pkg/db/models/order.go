package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order captures a finalized cart snapshot handed off at checkout.
type Order struct {
	ID            string          `gorm:"column:id;primaryKey"`
	OrderNumber   string          `gorm:"column:order_number;not null;uniqueIndex"`
	SessionID     string          `gorm:"column:session_id;not null;index"`
	CustomerName  string          `gorm:"column:customer_name;not null"`
	CustomerEmail string          `gorm:"column:customer_email"`
	CustomerPhone string          `gorm:"column:customer_phone;not null"`
	Shipping      Address         `gorm:"column:shipping;serializer:json;not null"`
	Billing       Address         `gorm:"column:billing;serializer:json;not null"`
	CouponCode    string          `gorm:"column:coupon_code"`
	TotalQuantity int             `gorm:"column:total_quantity;not null"`
	Discount      decimal.Decimal `gorm:"column:discount;type:numeric;not null"`
	TotalAmount   decimal.Decimal `gorm:"column:total_amount;type:numeric;not null"`
	Items         []OrderItem     `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	PlacedAt      time.Time       `gorm:"column:placed_at;not null"`
	CreatedAt     time.Time       `gorm:"column:created_at;autoCreateTime"`
}

func (Order) TableName() string {
	return "orders"
}

// OrderItem is one line of an order, copied from the cart snapshot.
type OrderItem struct {
	ID                uint            `gorm:"column:id;primaryKey;autoIncrement"`
	OrderID           string          `gorm:"column:order_id;not null;index"`
	Position          int             `gorm:"column:position;not null"`
	ProductID         string          `gorm:"column:product_id;not null"`
	Name              string          `gorm:"column:name;not null"`
	Slug              string          `gorm:"column:slug"`
	ImageURL          string          `gorm:"column:image_url"`
	Color             string          `gorm:"column:color"`
	Size              string          `gorm:"column:size"`
	Quantity          int             `gorm:"column:quantity;not null"`
	UnitPrice         decimal.Decimal `gorm:"column:unit_price;type:numeric;not null"`
	OriginalUnitPrice decimal.Decimal `gorm:"column:original_unit_price;type:numeric;not null"`
}

func (OrderItem) TableName() string {
	return "order_items"
}

// Address is the shipping or billing destination stored as json.
type Address struct {
	Name    string `json:"name"`
	Line    string `json:"line"`
	State   string `json:"state"`
	PinCode string `json:"pin_code"`
	Country string `json:"country"`
}
