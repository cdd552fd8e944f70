package checkout

import (
	"context"

	"github.com/angelmondragon/storefront-cart/internal/repo"
	"github.com/angelmondragon/storefront-cart/pkg/db"
	"github.com/angelmondragon/storefront-cart/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-cart/pkg/errors"
	"github.com/angelmondragon/storefront-cart/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository persists placed orders.
type Repository interface {
	Create(ctx context.Context, order *models.Order) error
	FindByNumber(ctx context.Context, orderNumber string) (*models.Order, error)
	ListBySession(ctx context.Context, sessionID string, params pagination.Params) (*OrderPage, error)
}

// OrderPage is one page of a session's order history, newest first.
type OrderPage struct {
	Orders     []models.Order
	NextCursor string
}

type repository struct {
	repo.Base
}

// NewRepository builds an order repository over gorm.
func NewRepository(conn *gorm.DB) (Repository, error) {
	base := repo.NewBase(conn)
	if err := base.Ready(); err != nil {
		return nil, err
	}
	return &repository{Base: base}, nil
}

// Create inserts the order with its items in one transaction.
func (r *repository) Create(ctx context.Context, order *models.Order) error {
	if order == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order required")
	}
	err := r.Tx(ctx, func(tx *gorm.DB) error {
		return tx.Create(order).Error
	})
	if db.IsDuplicate(err) {
		return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "order already exists")
	}
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist order")
	}
	return nil
}

func (r *repository) FindByNumber(ctx context.Context, orderNumber string) (*models.Order, error) {
	var order models.Order
	err := r.DB(ctx).
		Preload("Items", orderedItems).
		Where("order_number = ?", orderNumber).
		First(&order).Error
	if db.IsNotFound(err) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return &order, nil
}

// ListBySession pages through a session's orders keyed on (placed_at, id) descending.
func (r *repository) ListBySession(ctx context.Context, sessionID string, params pagination.Params) (*OrderPage, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	limit := pagination.NormalizeLimit(params.Limit)

	q := r.DB(ctx).
		Preload("Items", orderedItems).
		Where("session_id = ?", sessionID)
	if cursor != nil {
		q = q.Where("(placed_at < ? OR (placed_at = ? AND id < ?))", cursor.At, cursor.At, cursor.ID.String())
	}

	var orders []models.Order
	err = q.Order("placed_at DESC").
		Order("id DESC").
		Limit(pagination.LimitWithBuffer(limit)).
		Find(&orders).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}

	page := &OrderPage{Orders: orders}
	if len(orders) > limit {
		page.Orders = orders[:limit]
		last := page.Orders[limit-1]
		id, err := uuid.Parse(last.ID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "order id is not a uuid")
		}
		page.NextCursor = pagination.EncodeCursor(pagination.Cursor{At: last.PlacedAt, ID: id})
	}
	return page, nil
}

func orderedItems(tx *gorm.DB) *gorm.DB {
	return tx.Order("position ASC")
}
