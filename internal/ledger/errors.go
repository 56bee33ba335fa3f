package ledger

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// InvalidInputError reports an append whose inputs break a row invariant.
type InvalidInputError struct {
	Field  string
	Reason string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// CatalogMissError reports an item name that is absent from the catalog snapshot.
// DefaultPrice is the price the catalog declares for unknown items.
type CatalogMissError struct {
	ItemName     string
	DefaultPrice decimal.Decimal
}

func (e *CatalogMissError) Error() string {
	return fmt.Sprintf("item %q is not in the catalog", e.ItemName)
}
