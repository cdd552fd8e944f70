package cart

// Status is the outcome class of a cart operation.
type Status string

const (
	StatusApplied  Status = "applied"
	StatusRejected Status = "rejected"
	StatusNoOp     Status = "noop"
)

// Reason explains a rejection, a no-op, or an adjustment made while applying.
type Reason string

const (
	ReasonNone            Reason = ""
	ReasonInvalidProduct  Reason = "invalid_product"
	ReasonInvalidVariant  Reason = "invalid_variant"
	ReasonInvalidQuantity Reason = "invalid_quantity"
	ReasonOutOfStock      Reason = "out_of_stock"
	ReasonStockLimit      Reason = "stock_limit"
	ReasonQuantityClamped Reason = "quantity_clamped"
	ReasonItemNotFound    Reason = "item_not_found"
	ReasonUnknownCoupon   Reason = "unknown_coupon"
	ReasonNoCoupon        Reason = "no_coupon"
)

// Result reports what an operation did. Operations never fail with an error for
// predictable misuse; callers that care branch on the result instead.
type Result struct {
	Status Status `json:"status"`
	Reason Reason `json:"reason,omitempty"`
}

// OK reports whether the cart changed.
func (r Result) OK() bool {
	return r.Status == StatusApplied
}

// Rejected reports whether the operation was refused.
func (r Result) Rejected() bool {
	return r.Status == StatusRejected
}

func applied(reason Reason) Result {
	return Result{Status: StatusApplied, Reason: reason}
}

func rejected(reason Reason) Result {
	return Result{Status: StatusRejected, Reason: reason}
}

func noop(reason Reason) Result {
	return Result{Status: StatusNoOp, Reason: reason}
}
