package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrNotFound is returned by a Storage when nothing has been saved under the key.
var ErrNotFound = errors.New("cart state not found")

// Storage is the durable key-value port the engine persists through.
type Storage interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, payload []byte) error
}

// EncodeState serializes a cart record.
func EncodeState(state State) ([]byte, error) {
	payload, err := json.Marshal(state)
	if err != nil {
		return nil, fmt.Errorf("encode cart state: %w", err)
	}
	return payload, nil
}

// DecodeState parses a stored cart record and restores its invariants: lines with
// unusable data are dropped, duplicate keys are merged into the first occurrence,
// quantities are clamped to stock and totals are recomputed.
func DecodeState(payload []byte) (State, error) {
	if len(payload) == 0 {
		return State{}, errors.New("decode cart state: empty payload")
	}
	var raw State
	if err := json.Unmarshal(payload, &raw); err != nil {
		return State{}, fmt.Errorf("decode cart state: %w", err)
	}

	state := emptyState()
	for _, item := range raw.Items {
		if item.ProductID == "" || item.StockLimit < 1 || item.Quantity < 1 || item.UnitPrice.IsNegative() {
			continue
		}
		if idx := state.indexOf(item.ProductID, item.Variant); idx >= 0 {
			state.Items[idx].Quantity = clampQuantity(state.Items[idx].Quantity+item.Quantity, state.Items[idx].StockLimit)
			continue
		}
		item.Quantity = clampQuantity(item.Quantity, item.StockLimit)
		state.Items = append(state.Items, item)
	}
	if !raw.Discount.IsNegative() {
		state.Discount = raw.Discount
	}
	state.CouponCode = NormalizeCouponCode(raw.CouponCode)
	state.recalculate()
	return state, nil
}

func clampQuantity(quantity, limit int) int {
	if quantity > limit {
		return limit
	}
	return quantity
}
