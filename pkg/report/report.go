package report

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-pdf/fpdf"
	"github.com/shopspring/decimal"
)

const DefaultTitle = "Reporte de Puntos - TuCosto App"

// Page geometry in centimetres, measured from the top edge of an A4 page.
const (
	marginLeft   = 2.0
	titleY       = 2.7
	headerY      = 4.7
	pageTopY     = 2.7
	pageBottomY  = 27.7
	lineHeight   = 0.6
	totalSpacing = 0.5
)

var (
	columnX     = [4]float64{2, 8, 12, 16}
	columnNames = [4]string{"Material", "Cantidad", "Costo Unit.", "Costo Total"}
)

// Row is one ledger line as printed in the report.
type Row struct {
	ItemName  string
	Quantity  int
	UnitPrice decimal.Decimal
	Subtotal  decimal.Decimal
}

// Renderer turns ledger rows into a paginated PDF document.
type Renderer struct {
	defaultTitle string
}

func NewRenderer(defaultTitle string) *Renderer {
	title := strings.TrimSpace(defaultTitle)
	if title == "" {
		title = DefaultTitle
	}
	return &Renderer{defaultTitle: title}
}

// Render writes the rows and their grand total to a PDF and returns its bytes.
func (r *Renderer) Render(rows []Row, title string) ([]byte, error) {
	doc := r.build(rows, title)
	if err := doc.Error(); err != nil {
		return nil, fmt.Errorf("rendering report: %w", err)
	}

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, fmt.Errorf("writing report: %w", err)
	}
	return buf.Bytes(), nil
}

func (r *Renderer) build(rows []Row, title string) *fpdf.Fpdf {
	if strings.TrimSpace(title) == "" {
		title = r.defaultTitle
	}

	doc := fpdf.New("P", "cm", "A4", "")
	doc.SetAutoPageBreak(false, 0)
	doc.SetTitle(title, true)
	tr := doc.UnicodeTranslatorFromDescriptor("")

	doc.AddPage()
	doc.SetFont("Helvetica", "B", 16)
	doc.Text(marginLeft, titleY, tr(title))

	doc.SetFont("Helvetica", "", 10)
	y := headerY
	for i, name := range columnNames {
		doc.Text(columnX[i], y, name)
	}
	y += lineHeight

	total := decimal.Zero
	for _, row := range rows {
		doc.Text(columnX[0], y, tr(row.ItemName))
		doc.Text(columnX[1], y, strconv.Itoa(row.Quantity))
		doc.Text(columnX[2], y, row.UnitPrice.StringFixed(2))
		doc.Text(columnX[3], y, row.Subtotal.StringFixed(2))
		total = total.Add(row.Subtotal)

		y += lineHeight
		if y > pageBottomY {
			doc.AddPage()
			doc.SetFont("Helvetica", "", 10)
			y = pageTopY
		}
	}

	doc.SetFont("Helvetica", "B", 12)
	doc.Text(marginLeft, y+totalSpacing, fmt.Sprintf("Total general: $%s", total.StringFixed(2)))
	return doc
}
