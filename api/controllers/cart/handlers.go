package cart

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	cartdto "github.com/angelmondragon/storefront-cart/api/controllers/cart/dto"
	"github.com/angelmondragon/storefront-cart/api/middleware"
	"github.com/angelmondragon/storefront-cart/api/responses"
	"github.com/angelmondragon/storefront-cart/api/validators"
	cartsvc "github.com/angelmondragon/storefront-cart/internal/cart"
	"github.com/angelmondragon/storefront-cart/internal/catalog"
	"github.com/angelmondragon/storefront-cart/internal/notifications"
	pkgerrors "github.com/angelmondragon/storefront-cart/pkg/errors"
	"github.com/angelmondragon/storefront-cart/pkg/logger"
)

// Carts resolves the engine that owns a session's cart.
type Carts interface {
	Engine(ctx context.Context, sessionID string) (*cartsvc.Engine, error)
}

// Products looks up catalog products by id or slug.
type Products interface {
	Product(ref string) (cartsvc.Product, error)
}

// Notices exposes the per-session "added to cart" toast.
type Notices interface {
	Get(sessionID string) notifications.Toast
	Hide(sessionID string)
}

const maxCouponLength = 64

// Fetch returns the session's cart.
func Fetch(carts Carts, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		engine, err := engineFor(r, carts)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, cartdto.NewCart(engine.SessionID(), engine.State()))
	}
}

// AddItem adds a catalog product variant to the cart.
func AddItem(carts Carts, products Products, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if products == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog unavailable"))
			return
		}
		engine, err := engineFor(r, carts)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload cartdto.AddItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := products.Product(payload.ProductID)
		if errors.Is(err, catalog.ErrProductNotFound) {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "product not found"))
			return
		}
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "catalog lookup"))
			return
		}

		quantity := 1
		if payload.Quantity != nil {
			quantity = *payload.Quantity
		}
		variant := cartsvc.Variant{Color: payload.Color, Size: payload.Size}
		res := engine.AddItem(r.Context(), product, variant, quantity)
		writeMutation(w, r, logg, engine, res)
	}
}

// SetQuantity replaces the quantity of the line identified by the route product id and the
// variant in the body.
func SetQuantity(carts Carts, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		engine, err := engineFor(r, carts)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		productID, err := productIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload cartdto.SetQuantityRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		res := engine.SetQuantity(r.Context(), productID, variantOf(payload.Color, payload.Size), payload.Quantity)
		writeMutation(w, r, logg, engine, res)
	}
}

// RemoveItem drops a line. The variant comes from the color and size query parameters.
func RemoveItem(carts Carts, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		engine, err := engineFor(r, carts)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		productID, err := productIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		q := r.URL.Query()
		res := engine.RemoveItem(r.Context(), productID, variantOf(q.Get("color"), q.Get("size")))
		writeMutation(w, r, logg, engine, res)
	}
}

// ApplyCoupon applies a discount code.
func ApplyCoupon(carts Carts, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		engine, err := engineFor(r, carts)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload cartdto.ApplyCouponRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		res := engine.ApplyCoupon(r.Context(), validators.SanitizeString(payload.Code, maxCouponLength))
		writeMutation(w, r, logg, engine, res)
	}
}

// RemoveCoupon drops the active discount.
func RemoveCoupon(carts Carts, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		engine, err := engineFor(r, carts)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		writeMutation(w, r, logg, engine, engine.RemoveCoupon(r.Context()))
	}
}

// Clear empties the cart.
func Clear(carts Carts, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		engine, err := engineFor(r, carts)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		writeMutation(w, r, logg, engine, engine.Clear(r.Context()))
	}
}

// Notification returns the session's current "added to cart" toast.
func Notification(notices Notices, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID, err := sessionFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if notices == nil {
			responses.WriteSuccess(w, notifications.Toast{})
			return
		}
		responses.WriteSuccess(w, notices.Get(sessionID))
	}
}

// DismissNotification hides the toast before its timer does.
func DismissNotification(notices Notices, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID, err := sessionFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if notices != nil {
			notices.Hide(sessionID)
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func writeMutation(w http.ResponseWriter, r *http.Request, logg *logger.Logger, engine *cartsvc.Engine, res cartsvc.Result) {
	if res.Rejected() {
		err := pkgerrors.New(pkgerrors.CodeRejected, string(res.Reason)).
			WithDetails(map[string]any{"status": res.Status, "reason": res.Reason})
		responses.WriteError(r.Context(), logg, w, err)
		return
	}
	responses.WriteSuccess(w, cartdto.Mutation{
		Result: res,
		Cart:   cartdto.NewCart(engine.SessionID(), engine.State()),
	})
}

func sessionFrom(r *http.Request) (string, error) {
	sessionID := middleware.SessionIDFromContext(r.Context())
	if sessionID == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "cart session missing")
	}
	return sessionID, nil
}

func engineFor(r *http.Request, carts Carts) (*cartsvc.Engine, error) {
	if carts == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "cart registry unavailable")
	}
	sessionID, err := sessionFrom(r)
	if err != nil {
		return nil, err
	}
	engine, err := carts.Engine(r.Context(), sessionID)
	if errors.Is(err, cartsvc.ErrSessionRequired) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "cart session missing")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	return engine, nil
}

func productIDParam(r *http.Request) (string, error) {
	productID := strings.TrimSpace(chi.URLParam(r, "productID"))
	if productID == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	return productID, nil
}

func variantOf(color, size string) cartsvc.Variant {
	return cartsvc.Variant{Color: strings.TrimSpace(color), Size: strings.TrimSpace(size)}
}
