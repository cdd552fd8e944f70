package catalog

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/angelmondragon/storefront-cart/internal/cart"
)

//go:embed data/products.json
var defaultProducts []byte

// ErrProductNotFound is returned when no product matches the id or slug.
var ErrProductNotFound = errors.New("product not found")

// Entry is a catalog record: the product the cart consumes plus listing metadata.
type Entry struct {
	cart.Product
	Category string `json:"category"`
	Featured bool   `json:"featured"`
}

// Catalog is a read-only product lookup.
type Catalog struct {
	entries []Entry
	byID    map[string]int
	bySlug  map[string]int
}

// Load reads the catalog from path, or the built-in data when path is empty.
func Load(path string) (*Catalog, error) {
	payload := defaultProducts
	if strings.TrimSpace(path) != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading catalog %s: %w", path, err)
		}
		payload = raw
	}
	return Parse(payload)
}

// Parse builds a catalog from a JSON array of entries. Ids and slugs must be unique.
func Parse(payload []byte) (*Catalog, error) {
	var entries []Entry
	if err := json.Unmarshal(payload, &entries); err != nil {
		return nil, fmt.Errorf("decoding catalog: %w", err)
	}
	c := &Catalog{
		entries: make([]Entry, 0, len(entries)),
		byID:    make(map[string]int, len(entries)),
		bySlug:  make(map[string]int, len(entries)),
	}
	for i, entry := range entries {
		entry.ID = strings.TrimSpace(entry.ID)
		if entry.ID == "" {
			return nil, fmt.Errorf("catalog entry %d: id required", i)
		}
		if entry.Price.IsNegative() || entry.DiscountPrice.IsNegative() || entry.Stock < 0 {
			return nil, fmt.Errorf("catalog entry %s: negative price or stock", entry.ID)
		}
		if _, dup := c.byID[entry.ID]; dup {
			return nil, fmt.Errorf("catalog entry %s: duplicate id", entry.ID)
		}
		idx := len(c.entries)
		c.byID[entry.ID] = idx
		if entry.Slug != "" {
			if _, dup := c.bySlug[entry.Slug]; dup {
				return nil, fmt.Errorf("catalog entry %s: duplicate slug %q", entry.ID, entry.Slug)
			}
			c.bySlug[entry.Slug] = idx
		}
		c.entries = append(c.entries, entry)
	}
	return c, nil
}

// Product resolves a product by id, falling back to slug.
func (c *Catalog) Product(ref string) (cart.Product, error) {
	ref = strings.TrimSpace(ref)
	if idx, ok := c.byID[ref]; ok {
		return c.entries[idx].Product, nil
	}
	if idx, ok := c.bySlug[ref]; ok {
		return c.entries[idx].Product, nil
	}
	return cart.Product{}, ErrProductNotFound
}

// List returns all entries in catalog order.
func (c *Catalog) List() []Entry {
	out := make([]Entry, len(c.entries))
	copy(out, c.entries)
	return out
}

// Featured returns the entries flagged for the storefront landing page.
func (c *Catalog) Featured() []Entry {
	out := []Entry{}
	for _, entry := range c.entries {
		if entry.Featured {
			out = append(out, entry)
		}
	}
	return out
}
