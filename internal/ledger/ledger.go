// Package ledger holds the session-scoped line-item table and its derived totals.
package ledger

import (
	"strings"
	"time"

	"github.com/deliotti/tucosto-backend/pkg/enums"
	"github.com/shopspring/decimal"
)

// LineItem is one validated row of the ledger. Values are fixed at construction.
type LineItem struct {
	ItemName  string          `json:"item_name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Subtotal  decimal.Decimal `json:"subtotal"`
	AddedAt   time.Time       `json:"added_at"`
}

// Ledger is an ordered, append-only collection of line items owned by one session.
// It performs no locking; callers must not share an instance between goroutines.
type Ledger struct {
	rows []LineItem
	now  func() time.Time
}

// New returns an empty ledger.
func New() *Ledger {
	return &Ledger{now: time.Now}
}

// Restore rebuilds a ledger from previously stored rows. Every row goes through
// the same validation as Append and its subtotal is recomputed.
func Restore(rows []LineItem) (*Ledger, error) {
	l := New()
	restored := make([]LineItem, 0, len(rows))
	for _, row := range rows {
		item, err := newLineItem(row.ItemName, row.Quantity, row.UnitPrice, row.AddedAt)
		if err != nil {
			return nil, err
		}
		restored = append(restored, item)
	}
	l.rows = restored
	return l, nil
}

// Append validates the inputs, appends a new row at the end and returns it.
// On error the ledger is left untouched.
func (l *Ledger) Append(itemName string, quantity int, unitPrice decimal.Decimal) (LineItem, error) {
	item, err := newLineItem(itemName, quantity, unitPrice, l.clock())
	if err != nil {
		return LineItem{}, err
	}
	l.rows = append(l.rows, item)
	return item, nil
}

// Total returns the sum of all current subtotals.
func (l *Ledger) Total() decimal.Decimal {
	total := decimal.Zero
	for _, row := range l.rows {
		total = total.Add(row.Subtotal)
	}
	return total
}

// Rows returns a copy of the rows in insertion order.
func (l *Ledger) Rows() []LineItem {
	out := make([]LineItem, len(l.rows))
	copy(out, l.rows)
	return out
}

// Len reports the number of rows.
func (l *Ledger) Len() int {
	return len(l.rows)
}

// Clear drops every row. Clearing an empty ledger is a no-op.
func (l *Ledger) Clear() {
	l.rows = nil
}

// State reports whether the ledger currently holds rows.
func (l *Ledger) State() enums.LedgerState {
	if len(l.rows) == 0 {
		return enums.LedgerStateEmpty
	}
	return enums.LedgerStateNonEmpty
}

func (l *Ledger) clock() time.Time {
	if l.now == nil {
		return time.Now().UTC()
	}
	return l.now().UTC()
}

func newLineItem(itemName string, quantity int, unitPrice decimal.Decimal, addedAt time.Time) (LineItem, error) {
	name := strings.TrimSpace(itemName)
	if name == "" {
		return LineItem{}, &InvalidInputError{Field: "item_name", Reason: "must not be empty"}
	}
	if quantity < 1 {
		return LineItem{}, &InvalidInputError{Field: "quantity", Reason: "must be at least 1"}
	}
	if unitPrice.IsNegative() {
		return LineItem{}, &InvalidInputError{Field: "unit_price", Reason: "must not be negative"}
	}
	return LineItem{
		ItemName:  name,
		Quantity:  quantity,
		UnitPrice: unitPrice,
		Subtotal:  unitPrice.Mul(decimal.NewFromInt(int64(quantity))),
		AddedAt:   addedAt,
	}, nil
}
