// Package catalog reads the material/price catalog that feeds the ledger.
package catalog

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Item is one priced entry of a catalog snapshot.
type Item struct {
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// Group bundles variants under a product name when the source knows about products.
type Group struct {
	Product  string   `json:"product"`
	Category string   `json:"category,omitempty"`
	Variants []string `json:"variants"`
}

// Snapshot is an immutable view of the catalog at fetch time.
type Snapshot struct {
	prices       map[string]decimal.Decimal
	names        []string
	groups       []Group
	defaultPrice decimal.Decimal
}

// NewSnapshot builds a snapshot from items in source order. Blank names are
// ignored; a repeated name keeps its first position and its last price.
func NewSnapshot(items []Item, groups ...Group) Snapshot {
	s := Snapshot{
		prices:       make(map[string]decimal.Decimal, len(items)),
		names:        make([]string, 0, len(items)),
		defaultPrice: decimal.Zero,
	}
	for _, item := range items {
		name := strings.TrimSpace(item.Name)
		if name == "" {
			continue
		}
		if _, seen := s.prices[name]; !seen {
			s.names = append(s.names, name)
		}
		s.prices[name] = item.UnitPrice
	}
	if len(groups) > 0 {
		s.groups = append([]Group(nil), groups...)
	}
	return s
}

// Lookup returns the unit price for name.
func (s Snapshot) Lookup(name string) (decimal.Decimal, bool) {
	price, ok := s.prices[strings.TrimSpace(name)]
	return price, ok
}

// Items returns the priced items in source order.
func (s Snapshot) Items() []Item {
	items := make([]Item, 0, len(s.names))
	for _, name := range s.names {
		items = append(items, Item{Name: name, UnitPrice: s.prices[name]})
	}
	return items
}

// Groups returns product groupings, if the source provided any.
func (s Snapshot) Groups() []Group {
	return append([]Group(nil), s.groups...)
}

// DefaultPrice is the price the catalog declares for unknown items.
func (s Snapshot) DefaultPrice() decimal.Decimal {
	return s.defaultPrice
}

// Len reports the number of distinct items.
func (s Snapshot) Len() int {
	return len(s.names)
}
