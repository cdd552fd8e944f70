package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/storefront-cart/internal/cart"
	"github.com/angelmondragon/storefront-cart/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-cart/pkg/errors"
	"github.com/angelmondragon/storefront-cart/pkg/logger"
	"github.com/angelmondragon/storefront-cart/pkg/pagination"
	"github.com/google/uuid"
)

type cartCheckout interface {
	SessionID() string
	Checkout(ctx context.Context, submit cart.SubmitFunc) (cart.Snapshot, error)
}

// Service turns a cart into a placed order.
type Service interface {
	Execute(ctx context.Context, engine cartCheckout, input Input) (*models.Order, error)
	Order(ctx context.Context, orderNumber string) (*models.Order, error)
	History(ctx context.Context, sessionID string, params pagination.Params) (*OrderPage, error)
}

type service struct {
	repo  Repository
	logg  *logger.Logger
	newID func() uuid.UUID
}

// NewService wires checkout dependencies.
func NewService(repo Repository, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("order repository required")
	}
	return &service{repo: repo, logg: logg, newID: uuid.New}, nil
}

// Execute validates the form, persists the order built from the cart snapshot and then lets
// the engine clear the cart. A failed insert leaves the cart untouched.
func (s *service) Execute(ctx context.Context, engine cartCheckout, input Input) (*models.Order, error) {
	if engine == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "cart unavailable")
	}
	input = input.normalize()
	if err := input.Validate(); err != nil {
		return nil, err
	}

	var order *models.Order
	_, err := engine.Checkout(ctx, func(ctx context.Context, snap cart.Snapshot) error {
		order = s.buildOrder(engine.SessionID(), input, snap)
		return s.repo.Create(ctx, order)
	})
	if errors.Is(err, cart.ErrEmptyCart) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}
	if err != nil {
		return nil, err
	}

	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"order_number": order.OrderNumber,
			"session_id":   order.SessionID,
			"total_amount": order.TotalAmount.String(),
		})
		s.logg.Info(logCtx, "checkout.order_placed")
	}
	return order, nil
}

func (s *service) Order(ctx context.Context, orderNumber string) (*models.Order, error) {
	orderNumber = strings.TrimSpace(orderNumber)
	if orderNumber == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order number required")
	}
	return s.repo.FindByNumber(ctx, orderNumber)
}

func (s *service) History(ctx context.Context, sessionID string, params pagination.Params) (*OrderPage, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session id required")
	}
	return s.repo.ListBySession(ctx, sessionID, params)
}

func (s *service) buildOrder(sessionID string, input Input, snap cart.Snapshot) *models.Order {
	id := s.newID()
	order := &models.Order{
		ID:            id.String(),
		OrderNumber:   orderNumber(snap.TakenAt, id),
		SessionID:     sessionID,
		CustomerName:  input.Shipping.Name,
		CustomerEmail: input.Customer.Email,
		CustomerPhone: input.Customer.Phone,
		Shipping:      input.Shipping.model(),
		Billing:       input.Billing.model(),
		CouponCode:    snap.CouponCode,
		TotalQuantity: snap.TotalQuantity,
		Discount:      snap.Discount,
		TotalAmount:   snap.TotalAmount,
		PlacedAt:      snap.TakenAt.UTC(),
		Items:         make([]models.OrderItem, 0, len(snap.Items)),
	}
	for i, item := range snap.Items {
		order.Items = append(order.Items, models.OrderItem{
			OrderID:           order.ID,
			Position:          i,
			ProductID:         item.ProductID,
			Name:              item.Name,
			Slug:              item.Slug,
			ImageURL:          item.ImageURL,
			Color:             item.Variant.Color,
			Size:              item.Variant.Size,
			Quantity:          item.Quantity,
			UnitPrice:         item.UnitPrice,
			OriginalUnitPrice: item.OriginalUnitPrice,
		})
	}
	return order
}

// orderNumber is ORD-<unix millis>-<first id block>, readable and unique per id.
func orderNumber(at time.Time, id uuid.UUID) string {
	return fmt.Sprintf("ORD-%d-%s", at.UnixMilli(), strings.ToUpper(strings.SplitN(id.String(), "-", 2)[0]))
}
