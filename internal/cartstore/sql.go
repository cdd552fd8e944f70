package cartstore

import (
	"context"
	"fmt"

	"github.com/angelmondragon/storefront-cart/internal/cart"
	"github.com/angelmondragon/storefront-cart/internal/repo"
	"github.com/angelmondragon/storefront-cart/pkg/db"
	"github.com/angelmondragon/storefront-cart/pkg/db/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SQL persists cart records in the cart_states table.
type SQL struct {
	repo.Base
}

// NewSQL binds the store to a gorm connection.
func NewSQL(conn *gorm.DB) (*SQL, error) {
	base := repo.NewBase(conn)
	if err := base.Ready(); err != nil {
		return nil, err
	}
	return &SQL{Base: base}, nil
}

func (s *SQL) Load(ctx context.Context, key string) ([]byte, error) {
	var row models.CartState
	err := s.DB(ctx).Where("state_key = ?", key).First(&row).Error
	if db.IsNotFound(err) {
		return nil, cart.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load cart %s: %w", key, err)
	}
	return row.Payload, nil
}

// Save upserts the record so a key only ever has one row.
func (s *SQL) Save(ctx context.Context, key string, payload []byte) error {
	row := models.CartState{Key: key, Payload: payload}
	err := s.DB(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "state_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"payload", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("save cart %s: %w", key, err)
	}
	return nil
}
