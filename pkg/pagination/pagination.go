package pagination

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const cursorSep = "|"

// Order history page sizes.
const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// Params is one page request: how many orders, and where the previous page stopped.
type Params struct {
	Limit  int
	Cursor string
}

// Cursor is the placed_at and id of the last order shown. The next page starts strictly
// after it in newest-first order, so orders placed in the same instant are not skipped.
type Cursor struct {
	At time.Time
	ID uuid.UUID
}

func NormalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

// LimitWithBuffer is the row count to fetch: one extra row tells whether a next page exists.
func LimitWithBuffer(limit int) int {
	return NormalizeLimit(limit) + 1
}

// EncodeCursor renders the cursor for the next_cursor field. Clients treat it as opaque.
func EncodeCursor(cursor Cursor) string {
	payload := cursor.At.UTC().Format(time.RFC3339Nano) + cursorSep + cursor.ID.String()
	return base64.RawURLEncoding.EncodeToString([]byte(payload))
}

// ParseCursor reads a ?cursor= value. No cursor means the newest orders and yields nil.
func ParseCursor(value string) (*Cursor, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}

	raw, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil {
		return nil, fmt.Errorf("order cursor is not base64url: %w", err)
	}
	placedAt, orderID, found := strings.Cut(string(raw), cursorSep)
	if !found {
		return nil, errors.New("order cursor is missing its id")
	}

	at, err := time.Parse(time.RFC3339Nano, placedAt)
	if err != nil {
		return nil, fmt.Errorf("order cursor timestamp: %w", err)
	}
	id, err := uuid.Parse(orderID)
	if err != nil {
		return nil, fmt.Errorf("order cursor id: %w", err)
	}
	return &Cursor{At: at, ID: id}, nil
}
