package catalog

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

const (
	DefaultItemColumn  = "Materiales"
	DefaultPriceColumn = "Costo"
)

// RecordReader returns the rows of a sheet keyed by the header row.
type RecordReader interface {
	Records(ctx context.Context, spreadsheetID, sheetName string) ([]map[string]any, error)
}

// SheetsSource reads the catalog from a spreadsheet with an item column and a price column.
type SheetsSource struct {
	reader      RecordReader
	itemColumn  string
	priceColumn string
}

// SheetsSourceParams configures a SheetsSource.
type SheetsSourceParams struct {
	Reader      RecordReader
	ItemColumn  string
	PriceColumn string
}

// NewSheetsSource wires a spreadsheet-backed catalog source.
func NewSheetsSource(params SheetsSourceParams) (*SheetsSource, error) {
	if params.Reader == nil {
		return nil, fmt.Errorf("sheet reader required")
	}
	item := strings.TrimSpace(params.ItemColumn)
	if item == "" {
		item = DefaultItemColumn
	}
	price := strings.TrimSpace(params.PriceColumn)
	if price == "" {
		price = DefaultPriceColumn
	}
	return &SheetsSource{reader: params.Reader, itemColumn: item, priceColumn: price}, nil
}

// Fetch implements Source.
func (s *SheetsSource) Fetch(ctx context.Context, catalogID, sheetName string) (Snapshot, error) {
	records, err := s.reader.Records(ctx, catalogID, sheetName)
	if err != nil {
		return Snapshot{}, &FetchError{CatalogID: catalogID, SheetName: sheetName, Err: err}
	}
	if len(records) == 0 {
		return NewSnapshot(nil), nil
	}

	if missing := missingColumns(records[0], s.itemColumn, s.priceColumn); len(missing) > 0 {
		return Snapshot{}, &FetchError{
			CatalogID: catalogID,
			SheetName: sheetName,
			Reason:    fmt.Sprintf("missing columns %s", strings.Join(missing, ", ")),
		}
	}

	items := make([]Item, 0, len(records))
	for i, record := range records {
		name := strings.TrimSpace(fmt.Sprint(valueOrEmpty(record[s.itemColumn])))
		if name == "" {
			continue
		}
		price, err := ParsePrice(record[s.priceColumn])
		if err != nil {
			return Snapshot{}, &FetchError{
				CatalogID: catalogID,
				SheetName: sheetName,
				Reason:    fmt.Sprintf("row %d (%s)", i+2, name),
				Err:       err,
			}
		}
		items = append(items, Item{Name: name, UnitPrice: price})
	}
	return NewSnapshot(items), nil
}

func missingColumns(record map[string]any, columns ...string) []string {
	var missing []string
	for _, column := range columns {
		if _, ok := record[column]; !ok {
			missing = append(missing, column)
		}
	}
	return missing
}

func valueOrEmpty(v any) any {
	if v == nil {
		return ""
	}
	return v
}

// ParsePrice converts a spreadsheet cell into a non-negative price. Numeric
// cells are used as-is; text cells accept currency symbols and either "." or
// "," as decimal separator. Blank cells are zero.
func ParsePrice(raw any) (decimal.Decimal, error) {
	var price decimal.Decimal
	switch v := raw.(type) {
	case nil:
		return decimal.Zero, nil
	case float64:
		price = decimal.NewFromFloat(v)
	case int:
		price = decimal.NewFromInt(int64(v))
	case int64:
		price = decimal.NewFromInt(v)
	case decimal.Decimal:
		price = v
	case string:
		parsed, err := parsePriceText(v)
		if err != nil {
			return decimal.Zero, err
		}
		price = parsed
	default:
		return parsePriceText(fmt.Sprint(v))
	}
	if price.IsNegative() {
		return decimal.Zero, fmt.Errorf("negative price %s", price)
	}
	return price, nil
}

var currencyMarkers = []string{"US$", "USD", "ARS", "$"}

func parsePriceText(raw string) (decimal.Decimal, error) {
	cleaned := strings.ToUpper(strings.TrimSpace(raw))
	if cleaned == "" {
		return decimal.Zero, nil
	}
	for _, marker := range currencyMarkers {
		if strings.HasPrefix(cleaned, marker) {
			cleaned = strings.TrimPrefix(cleaned, marker)
			break
		}
		if strings.HasSuffix(cleaned, marker) {
			cleaned = strings.TrimSuffix(cleaned, marker)
			break
		}
	}
	cleaned = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, cleaned)
	if cleaned == "" || strings.IndexFunc(cleaned, isNotPriceRune) >= 0 {
		return decimal.Zero, fmt.Errorf("invalid price %q", raw)
	}

	lastDot := strings.LastIndex(cleaned, ".")
	lastComma := strings.LastIndex(cleaned, ",")
	switch {
	case lastDot >= 0 && lastComma >= 0:
		if lastComma > lastDot {
			cleaned = strings.ReplaceAll(cleaned, ".", "")
			cleaned = strings.Replace(cleaned, ",", ".", 1)
		} else {
			cleaned = strings.ReplaceAll(cleaned, ",", "")
		}
	case lastComma >= 0:
		if strings.Count(cleaned, ",") > 1 {
			cleaned = strings.ReplaceAll(cleaned, ",", "")
		} else {
			cleaned = strings.Replace(cleaned, ",", ".", 1)
		}
	case strings.Count(cleaned, ".") > 1:
		cleaned = strings.ReplaceAll(cleaned, ".", "")
	}

	price, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid price %q", raw)
	}
	if price.IsNegative() {
		return decimal.Zero, fmt.Errorf("negative price %s", price)
	}
	return price, nil
}

// isNotPriceRune reports runes that cannot appear in a price once currency
// markers and whitespace are gone. Exponents and units are rejected.
func isNotPriceRune(r rune) bool {
	return !(r >= '0' && r <= '9') && r != '.' && r != ',' && r != '-'
}
