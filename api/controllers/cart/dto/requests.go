package cartdto

// AddItemRequest adds a catalog product to the cart. ProductID accepts an id or a slug and an
// omitted quantity means one.
type AddItemRequest struct {
	ProductID string `json:"product_id" validate:"required,max=128"`
	Color     string `json:"color" validate:"max=64"`
	Size      string `json:"size" validate:"max=64"`
	Quantity  *int   `json:"quantity,omitempty"`
}

// SetQuantityRequest replaces the quantity of an existing line.
type SetQuantityRequest struct {
	Color    string `json:"color" validate:"max=64"`
	Size     string `json:"size" validate:"max=64"`
	Quantity int    `json:"quantity"`
}

// ApplyCouponRequest carries the coupon code as typed by the shopper.
type ApplyCouponRequest struct {
	Code string `json:"code" validate:"required,max=64"`
}

// CheckoutRequest is the checkout form. Field rules are enforced by the checkout service.
type CheckoutRequest struct {
	Customer Customer `json:"customer"`
	Shipping Address  `json:"shipping"`
	Billing  *Address `json:"billing,omitempty"`
}

// Customer is the contact block of the checkout form.
type Customer struct {
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// Address is a shipping or billing address on the checkout form.
type Address struct {
	Name    string `json:"name"`
	Line    string `json:"line"`
	State   string `json:"state"`
	PinCode string `json:"pin_code"`
	Country string `json:"country"`
}
