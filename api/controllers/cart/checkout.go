package cart

import (
	"net/http"

	cartdto "github.com/angelmondragon/storefront-cart/api/controllers/cart/dto"
	"github.com/angelmondragon/storefront-cart/api/responses"
	"github.com/angelmondragon/storefront-cart/api/validators"
	"github.com/angelmondragon/storefront-cart/internal/checkout"
	pkgerrors "github.com/angelmondragon/storefront-cart/pkg/errors"
	"github.com/angelmondragon/storefront-cart/pkg/logger"
)

// Checkout places an order from the session's cart and empties it.
func Checkout(carts Carts, svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeDependency, "checkout unavailable"))
			return
		}
		engine, err := engineFor(r, carts)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload cartdto.CheckoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Execute(r.Context(), engine, toCheckoutInput(payload))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, cartdto.NewOrder(order))
	}
}

func toCheckoutInput(payload cartdto.CheckoutRequest) checkout.Input {
	input := checkout.Input{
		Customer: checkout.Customer{
			Email: payload.Customer.Email,
			Phone: payload.Customer.Phone,
		},
		Shipping: toAddress(payload.Shipping),
	}
	if payload.Billing != nil {
		billing := toAddress(*payload.Billing)
		input.Billing = &billing
	}
	return input
}

func toAddress(a cartdto.Address) checkout.Address {
	return checkout.Address{
		Name:    a.Name,
		Line:    a.Line,
		State:   a.State,
		PinCode: a.PinCode,
		Country: a.Country,
	}
}
