package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

// ErrNoConnection is returned by constructors handed a nil connection.
var ErrNoConnection = errors.New("gorm db required")

// Base is embedded by the gorm-backed stores (orders, cart state).
type Base struct {
	db *gorm.DB
}

// NewBase wraps conn. Use Ready to reject a nil connection.
func NewBase(db *gorm.DB) Base {
	return Base{db: db}
}

// Ready reports ErrNoConnection when the base was built without a connection.
func (b Base) Ready() error {
	if b.db == nil {
		return ErrNoConnection
	}
	return nil
}

// DB returns the connection bound to ctx.
func (b Base) DB(ctx context.Context) *gorm.DB {
	if ctx == nil {
		return b.db
	}
	return b.db.WithContext(ctx)
}

// Tx runs fn in a transaction bound to ctx.
func (b Base) Tx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return b.DB(ctx).Transaction(fn)
}

// Ping checks the underlying sql pool.
func (b Base) Ping(ctx context.Context) error {
	if err := b.Ready(); err != nil {
		return err
	}
	sqlDB, err := b.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
