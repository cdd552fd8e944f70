package cart

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine(t *testing.T, storage Storage) *Engine {
	t.Helper()
	engine, err := NewEngine(context.Background(), EngineParams{
		SessionID: "sess-1",
		Key:       "cart:sess-1",
		Storage:   storage,
		Clock:     testClock,
	})
	require.NoError(t, err)
	return engine
}

func assertAggregates(t *testing.T, s State) {
	t.Helper()
	qty := 0
	for _, item := range s.Items {
		qty += item.Quantity
		assert.GreaterOrEqual(t, item.Quantity, 1)
		assert.LessOrEqual(t, item.Quantity, item.StockLimit)
	}
	assert.Equal(t, qty, s.TotalQuantity)
	want := s.Subtotal().Sub(s.Discount)
	if want.IsNegative() {
		want = dec("0")
	}
	assert.True(t, want.Equal(s.TotalAmount), "total amount %s, want %s", s.TotalAmount, want)
}

func TestNewEngineRequiresCollaborators(t *testing.T) {
	t.Parallel()

	if _, err := NewEngine(context.Background(), EngineParams{Key: "cart"}); err == nil {
		t.Fatal("expected error without storage")
	}
	if _, err := NewEngine(context.Background(), EngineParams{Storage: newStubStorage()}); err == nil {
		t.Fatal("expected error without key")
	}
}

func TestEngineScenario(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	engine := newTestEngine(t, newStubStorage())
	p1 := testProduct("p1", "500", 5)

	require.Equal(t, applied(ReasonNone), engine.AddItem(ctx, p1, redM, 2))
	state := engine.State()
	require.Len(t, state.Items, 1)
	assert.Equal(t, 2, state.Items[0].Quantity)
	assert.True(t, dec("1000").Equal(state.TotalAmount))

	require.True(t, engine.AddItem(ctx, p1, redM, 1).OK())
	state = engine.State()
	require.Len(t, state.Items, 1)
	assert.Equal(t, 3, state.Items[0].Quantity)
	assert.True(t, dec("1500").Equal(state.TotalAmount))

	res := engine.SetQuantity(ctx, "p1", redM, 10)
	assert.Equal(t, rejected(ReasonInvalidQuantity), res)
	assert.Equal(t, 3, engine.State().Items[0].Quantity)

	require.True(t, engine.ApplyCoupon(ctx, "WOMEN10").OK())
	state = engine.State()
	assert.True(t, dec("150").Equal(state.Discount), "discount %s", state.Discount)
	assert.True(t, dec("1350").Equal(state.TotalAmount), "total %s", state.TotalAmount)
	assertAggregates(t, state)
}

func TestAddItemKeepsOneLinePerVariant(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	engine := newTestEngine(t, newStubStorage())
	p1 := testProduct("p1", "10", 100)
	p2 := testProduct("p2", "20", 100)
	blueS := Variant{Color: "blue", Size: "S"}

	sequence := []struct {
		product Product
		variant Variant
		qty     int
	}{
		{p1, redM, 1}, {p1, blueS, 2}, {p2, redM, 1}, {p1, redM, 3}, {p2, redM, 4}, {p1, blueS, 1},
	}
	for _, step := range sequence {
		require.True(t, engine.AddItem(ctx, step.product, step.variant, step.qty).OK())
		assertAggregates(t, engine.State())
	}

	state := engine.State()
	require.Len(t, state.Items, 3)
	seen := map[string]bool{}
	for _, item := range state.Items {
		key := fmt.Sprintf("%s|%s|%s", item.ProductID, item.Variant.Color, item.Variant.Size)
		assert.False(t, seen[key], "duplicate line %s", key)
		seen[key] = true
	}
	assert.Equal(t, "p1", state.Items[0].ProductID)
	assert.Equal(t, 4, state.Items[0].Quantity)
	assert.Equal(t, 3, state.Items[1].Quantity)
	assert.Equal(t, 5, state.Items[2].Quantity)
	assert.Equal(t, 12, state.TotalQuantity)
	assert.True(t, dec("170").Equal(state.TotalAmount))
}

func TestAddItemClampsToStockLimit(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	storage := newStubStorage()
	engine := newTestEngine(t, storage)
	p1 := testProduct("p1", "10", 3)

	assert.Equal(t, applied(ReasonNone), engine.AddItem(ctx, p1, redM, 2))
	assert.Equal(t, applied(ReasonQuantityClamped), engine.AddItem(ctx, p1, redM, 2))
	assert.Equal(t, 3, engine.State().Items[0].Quantity)

	saves := storage.saveCount()
	assert.Equal(t, rejected(ReasonStockLimit), engine.AddItem(ctx, p1, redM, 1))
	assert.Equal(t, saves, storage.saveCount(), "rejected add must not persist")

	p2 := testProduct("p2", "10", 2)
	assert.Equal(t, applied(ReasonQuantityClamped), engine.AddItem(ctx, p2, redM, 9))
	assert.Equal(t, 2, engine.State().Items[1].Quantity)
}

func TestAddItemRejectsInvalidInput(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		product Product
		variant Variant
		qty     int
		reason  Reason
	}{
		{"missing id", testProduct("", "10", 5), redM, 1, ReasonInvalidProduct},
		{"negative price", testProduct("p1", "-1", 5), redM, 1, ReasonInvalidProduct},
		{"zero quantity", testProduct("p1", "10", 5), redM, 0, ReasonInvalidQuantity},
		{"negative quantity", testProduct("p1", "10", 5), redM, -2, ReasonInvalidQuantity},
		{"out of stock", testProduct("p1", "10", 0), redM, 1, ReasonOutOfStock},
		{"unknown color", testProduct("p1", "10", 5), Variant{Color: "green", Size: "M"}, 1, ReasonInvalidVariant},
		{"unknown size", testProduct("p1", "10", 5), Variant{Color: "red", Size: "XXL"}, 1, ReasonInvalidVariant},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			storage := newStubStorage()
			engine := newTestEngine(t, storage)
			events := 0
			engine.OnItemAdded(func(context.Context, ItemAdded) { events++ })

			res := engine.AddItem(context.Background(), tc.product, tc.variant, tc.qty)
			if res != rejected(tc.reason) {
				t.Fatalf("expected rejected(%s), got %+v", tc.reason, res)
			}
			if len(engine.State().Items) != 0 {
				t.Fatalf("expected empty cart")
			}
			if storage.saveCount() != 0 || events != 0 {
				t.Fatalf("rejected add persisted or emitted: saves=%d events=%d", storage.saveCount(), events)
			}
		})
	}
}

func TestAddItemUsesDiscountPriceSnapshot(t *testing.T) {
	t.Parallel()

	engine := newTestEngine(t, newStubStorage())
	p := testProduct("p1", "100", 5)
	p.DiscountPrice = dec("80")
	p.Colors, p.Sizes = nil, nil

	require.True(t, engine.AddItem(context.Background(), p, Variant{Color: "any"}, 2).OK())
	item := engine.State().Items[0]
	assert.True(t, dec("80").Equal(item.UnitPrice))
	assert.True(t, dec("100").Equal(item.OriginalUnitPrice))
	assert.Equal(t, "/img/p1.jpg", item.ImageURL)

	p.DiscountPrice = dec("50")
	require.True(t, engine.AddItem(context.Background(), p, Variant{Color: "any"}, 1).OK())
	assert.True(t, dec("240").Equal(engine.State().TotalAmount), "price snapshot must not change")
}

func TestRemoveItem(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	storage := newStubStorage()
	engine := newTestEngine(t, storage)
	require.True(t, engine.AddItem(ctx, testProduct("p1", "10", 5), redM, 1).OK())
	require.True(t, engine.AddItem(ctx, testProduct("p2", "5", 5), redM, 2).OK())

	before := engine.State()
	saves := storage.saveCount()
	assert.Equal(t, noop(ReasonItemNotFound), engine.RemoveItem(ctx, "p1", Variant{Color: "blue", Size: "M"}))
	assert.True(t, before.Equal(engine.State()))
	assert.Equal(t, saves, storage.saveCount())

	assert.True(t, engine.RemoveItem(ctx, "p1", redM).OK())
	state := engine.State()
	require.Len(t, state.Items, 1)
	assert.Equal(t, "p2", state.Items[0].ProductID)
	assertAggregates(t, state)
}

func TestSetQuantityBounds(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	engine := newTestEngine(t, newStubStorage())
	require.True(t, engine.AddItem(ctx, testProduct("p1", "10", 4), redM, 2).OK())

	for _, qty := range []int{0, -1, 5} {
		assert.Equal(t, rejected(ReasonInvalidQuantity), engine.SetQuantity(ctx, "p1", redM, qty))
		assert.Equal(t, 2, engine.State().Items[0].Quantity)
	}
	assert.Equal(t, noop(ReasonItemNotFound), engine.SetQuantity(ctx, "nope", redM, 1))
	assert.Equal(t, noop(ReasonNone), engine.SetQuantity(ctx, "p1", redM, 2))

	assert.True(t, engine.SetQuantity(ctx, "p1", redM, 4).OK())
	state := engine.State()
	assert.Equal(t, 4, state.Items[0].Quantity)
	assertAggregates(t, state)
}

func TestCouponRoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	engine := newTestEngine(t, newStubStorage())
	require.True(t, engine.AddItem(ctx, testProduct("p1", "250", 10), redM, 4).OK())

	require.True(t, engine.ApplyCoupon(ctx, "  women10 ").OK())
	state := engine.State()
	assert.Equal(t, CouponWomen10, state.CouponCode)
	assert.True(t, dec("100").Equal(state.Discount))
	assert.True(t, dec("900").Equal(state.TotalAmount))

	require.True(t, engine.RemoveCoupon(ctx).OK())
	state = engine.State()
	assert.True(t, state.Discount.IsZero())
	assert.Empty(t, state.CouponCode)
	assert.True(t, dec("1000").Equal(state.TotalAmount))

	assert.Equal(t, noop(ReasonNoCoupon), engine.RemoveCoupon(ctx))
}

func TestUnknownCouponKeepsActiveDiscount(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	engine := newTestEngine(t, newStubStorage())
	require.True(t, engine.AddItem(ctx, testProduct("p1", "100", 10), redM, 1).OK())
	require.True(t, engine.ApplyCoupon(ctx, "WOMEN10").OK())

	assert.Equal(t, rejected(ReasonUnknownCoupon), engine.ApplyCoupon(ctx, "SPRING50"))
	assert.Equal(t, rejected(ReasonUnknownCoupon), engine.ApplyCoupon(ctx, "   "))
	state := engine.State()
	assert.Equal(t, CouponWomen10, state.CouponCode)
	assert.True(t, dec("10").Equal(state.Discount))
}

func TestDiscountStaysFrozenAfterMutations(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	engine := newTestEngine(t, newStubStorage())
	require.True(t, engine.AddItem(ctx, testProduct("p1", "100", 10), redM, 1).OK())
	require.True(t, engine.ApplyCoupon(ctx, "WOMEN10").OK())

	require.True(t, engine.AddItem(ctx, testProduct("p1", "100", 10), redM, 4).OK())
	state := engine.State()
	assert.True(t, dec("10").Equal(state.Discount))
	assert.True(t, dec("490").Equal(state.TotalAmount))

	require.True(t, engine.RemoveItem(ctx, "p1", redM).OK())
	state = engine.State()
	assert.True(t, dec("10").Equal(state.Discount))
	assert.True(t, state.TotalAmount.IsZero(), "total must not go negative, got %s", state.TotalAmount)
	assertAggregates(t, state)
}

func TestClearResetsEverything(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	storage := newStubStorage()
	engine := newTestEngine(t, storage)
	require.True(t, engine.AddItem(ctx, testProduct("p1", "100", 10), redM, 3).OK())
	require.True(t, engine.ApplyCoupon(ctx, "WOMEN10").OK())

	require.True(t, engine.Clear(ctx).OK())
	assert.True(t, emptyState().Equal(engine.State()))

	reloaded := newTestEngine(t, storage)
	assert.True(t, emptyState().Equal(reloaded.State()))
}

func TestEnginePersistsAndReloads(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	storage := newStubStorage()
	engine := newTestEngine(t, storage)
	require.True(t, engine.AddItem(ctx, testProduct("p1", "19.99", 10), redM, 3).OK())
	require.True(t, engine.AddItem(ctx, testProduct("p2", "5.5", 10), Variant{Color: "blue", Size: "L"}, 1).OK())
	require.True(t, engine.ApplyCoupon(ctx, "WOMEN10").OK())

	reloaded := newTestEngine(t, storage)
	want := engine.State()
	got := reloaded.State()
	assert.True(t, want.Equal(got), "want %+v\ngot %+v", want, got)
}

func TestEngineLoadFallsBackToEmpty(t *testing.T) {
	t.Parallel()

	corrupt := newStubStorage()
	corrupt.data["cart:sess-1"] = []byte("{not json")
	if got := newTestEngine(t, corrupt).State(); !emptyState().Equal(got) {
		t.Fatalf("expected empty state from corrupt payload, got %+v", got)
	}

	failing := newStubStorage()
	failing.loadErr = errStorageDown
	if got := newTestEngine(t, failing).State(); !emptyState().Equal(got) {
		t.Fatalf("expected empty state on load error, got %+v", got)
	}
}

func TestSaveFailureKeepsInMemoryState(t *testing.T) {
	t.Parallel()

	storage := newStubStorage()
	storage.saveErr = errStorageDown
	metrics := &stubRecorder{}
	engine, err := NewEngine(context.Background(), EngineParams{
		Key:     "cart:x",
		Storage: storage,
		Metrics: metrics,
	})
	require.NoError(t, err)

	res := engine.AddItem(context.Background(), testProduct("p1", "10", 5), redM, 2)
	assert.True(t, res.OK())
	assert.Equal(t, 2, engine.State().TotalQuantity)
	assert.Equal(t, 1, metrics.persistFails)
	require.NotEmpty(t, metrics.ops)
	assert.Equal(t, recordedOp{op: "add_item", outcome: "applied"}, metrics.ops[len(metrics.ops)-1])
}

func TestSaveIgnoresCallerCancellation(t *testing.T) {
	t.Parallel()

	storage := newStubStorage()
	engine := newTestEngine(t, storage)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.True(t, engine.AddItem(ctx, testProduct("p1", "10", 5), redM, 1).OK())
	reloaded := newTestEngine(t, storage)
	assert.Equal(t, 1, reloaded.State().TotalQuantity)
}

func TestItemAddedEvents(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	engine := newTestEngine(t, newStubStorage())

	var got []ItemAdded
	unsubscribe := engine.OnItemAdded(func(_ context.Context, evt ItemAdded) {
		got = append(got, evt)
	})
	engine.OnItemAdded(func(context.Context, ItemAdded) { panic("boom") })

	require.True(t, engine.AddItem(ctx, testProduct("p1", "10", 5), redM, 1).OK())
	require.True(t, engine.AddItem(ctx, testProduct("p1", "10", 5), redM, 3).OK())
	require.Len(t, got, 2)

	assert.True(t, got[0].Show)
	assert.Equal(t, "1 item added to cart", got[0].Message)
	assert.Equal(t, "sess-1", got[0].SessionID)
	assert.Equal(t, "Product p1", got[0].ProductName)
	assert.Equal(t, "/img/p1.jpg", got[0].ProductImage)
	assert.Equal(t, fixedNow, got[0].OccurredAt)
	assert.Equal(t, "3 items added to cart", got[1].Message)
	assert.Equal(t, 4, got[1].LineQuantity)

	unsubscribe()
	unsubscribe()
	require.True(t, engine.SetQuantity(ctx, "p1", redM, 2).OK())
	require.True(t, engine.AddItem(ctx, testProduct("p1", "10", 5), redM, 1).OK())
	assert.Len(t, got, 2)
}

func TestCheckout(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	storage := newStubStorage()
	engine := newTestEngine(t, storage)

	_, err := engine.Checkout(ctx, func(context.Context, Snapshot) error { return nil })
	require.ErrorIs(t, err, ErrEmptyCart)

	require.True(t, engine.AddItem(ctx, testProduct("p1", "100", 5), redM, 2).OK())
	require.True(t, engine.ApplyCoupon(ctx, "WOMEN10").OK())

	submitErr := errors.New("order store down")
	_, err = engine.Checkout(ctx, func(context.Context, Snapshot) error { return submitErr })
	require.ErrorIs(t, err, submitErr)
	assert.Equal(t, 2, engine.State().TotalQuantity, "failed checkout must keep the cart")

	var handed Snapshot
	snap, err := engine.Checkout(ctx, func(_ context.Context, s Snapshot) error {
		handed = s
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, handed.TakenAt, snap.TakenAt)
	assert.Equal(t, 2, snap.TotalQuantity)
	assert.True(t, dec("200").Equal(snap.Subtotal))
	assert.True(t, dec("20").Equal(snap.Discount))
	assert.True(t, dec("180").Equal(snap.TotalAmount))
	assert.Equal(t, CouponWomen10, snap.CouponCode)

	assert.True(t, emptyState().Equal(engine.State()))
	assert.True(t, emptyState().Equal(newTestEngine(t, storage).State()))
}

func TestSnapshotIsIsolated(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	engine := newTestEngine(t, newStubStorage())
	require.True(t, engine.AddItem(ctx, testProduct("p1", "10", 5), redM, 1).OK())

	snap := engine.Snapshot()
	snap.Items[0].Quantity = 99
	assert.Equal(t, 1, engine.State().Items[0].Quantity)
	assert.Equal(t, fixedNow, snap.TakenAt)
}

func TestConcurrentAddsAreSerialized(t *testing.T) {
	t.Parallel()

	engine := newTestEngine(t, newStubStorage())
	product := testProduct("p1", "1", 1000)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			engine.AddItem(context.Background(), product, redM, 2)
		}()
	}
	wg.Wait()

	state := engine.State()
	require.Len(t, state.Items, 1)
	assert.Equal(t, 100, state.TotalQuantity)
	assert.True(t, dec("100").Equal(state.TotalAmount))
}

func TestAddItemFoldsVariantSpelling(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	engine := newTestEngine(t, newStubStorage())
	p1 := testProduct("p1", "10", 10)

	require.True(t, engine.AddItem(ctx, p1, Variant{Color: "RED", Size: " m "}, 1).OK())
	require.True(t, engine.AddItem(ctx, p1, redM, 2).OK())

	state := engine.State()
	require.Len(t, state.Items, 1)
	assert.Equal(t, redM, state.Items[0].Variant)
	assert.Equal(t, 3, state.Items[0].Quantity)
}

func TestFoldedVariantReachesLine(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	engine := newTestEngine(t, newStubStorage())
	p1 := testProduct("p1", "10", 10)
	shouted := Variant{Color: "RED", Size: "m"}

	require.True(t, engine.AddItem(ctx, p1, shouted, 1).OK())
	assert.Equal(t, applied(ReasonNone), engine.SetQuantity(ctx, "p1", shouted, 4))
	assert.Equal(t, 4, engine.State().Items[0].Quantity)

	assert.Equal(t, applied(ReasonNone), engine.RemoveItem(ctx, "p1", Variant{Color: " Red ", Size: "M"}))
	assert.Empty(t, engine.State().Items)
	assert.Equal(t, noop(ReasonItemNotFound), engine.RemoveItem(ctx, "p1", shouted))
}
