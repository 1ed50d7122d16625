// Package pdf renders issued quotes as A4 PDF documents with gofpdf.
package pdf

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/shopspring/decimal"

	"github.com/jsamuelsen/freight-quote-service/internal/domain"
	"github.com/jsamuelsen/freight-quote-service/internal/ports"
)

// ContentType is the media type of rendered documents.
const ContentType = "application/pdf"

const (
	fontFamily = "Helvetica"
	dateLayout = "2006-01-02"
	timeLayout = "2006-01-02 15:04 MST"
)

// line item table column widths in mm; they add up to the 180mm text width
var columns = []struct {
	title string
	width float64
	align string
}{
	{"#", 10, "C"},
	{"Code", 28, "L"},
	{"Description", 72, "L"},
	{"Qty", 18, "R"},
	{"Unit price", 26, "R"},
	{"Total", 26, "R"},
}

// Config customises the document header.
type Config struct {
	Issuer string
	// Compress deflates page streams. Disable it to inspect output in tests.
	Compress bool
	Clock    ports.Clock
}

// Renderer implements ports.DocumentRenderer.
type Renderer struct {
	issuer   string
	compress bool
	clock    ports.Clock
}

var _ ports.DocumentRenderer = (*Renderer)(nil)

// NewRenderer creates a renderer.
func NewRenderer(cfg Config) *Renderer {
	r := &Renderer{issuer: cfg.Issuer, compress: cfg.Compress, clock: cfg.Clock}

	if r.issuer == "" {
		r.issuer = "Freight Quotation Service"
	}

	if r.clock == nil {
		r.clock = ports.SystemClock{}
	}

	return r
}

// Render draws the quote. The context is only checked before work starts;
// rendering itself is CPU-bound and short.
func (r *Renderer) Render(ctx context.Context, q *domain.Quote) (*ports.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	doc := gofpdf.New("P", "mm", "A4", "")
	doc.SetCompression(r.compress)
	doc.SetTitle("Freight quotation "+q.ID, true)
	doc.SetAuthor(r.issuer, true)
	doc.SetCreationDate(r.clock.Now())
	doc.SetMargins(15, 15, 15)
	doc.AddPage()

	tr := doc.UnicodeTranslatorFromDescriptor("")

	r.header(doc, tr, q)
	r.summary(doc, tr, q)
	r.lineItems(doc, tr, q)
	r.totals(doc, q)
	r.footer(doc, tr, q)

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, fmt.Errorf("rendering pdf for quote %s: %w", q.ID, err)
	}

	return &ports.Document{
		Filename:    q.ID + ".pdf",
		ContentType: ContentType,
		Content:     buf.Bytes(),
	}, nil
}

func (r *Renderer) header(doc *gofpdf.Fpdf, tr func(string) string, q *domain.Quote) {
	doc.SetFont(fontFamily, "B", 18)
	doc.CellFormat(0, 10, "Freight Quotation", "", 1, "L", false, 0, "")

	doc.SetFont(fontFamily, "", 10)
	doc.CellFormat(0, 5, tr(r.issuer), "", 1, "L", false, 0, "")
	doc.Ln(4)

	doc.SetFont(fontFamily, "B", 11)
	doc.CellFormat(90, 6, "Quote "+q.ID, "", 0, "L", false, 0, "")
	doc.CellFormat(90, 6, "Status: "+string(q.Status), "", 1, "R", false, 0, "")

	doc.SetFont(fontFamily, "", 10)
	doc.CellFormat(90, 5, tr("Customer: "+q.CustomerID), "", 0, "L", false, 0, "")
	doc.CellFormat(90, 5, "Created: "+q.CreatedAt.UTC().Format(dateLayout), "", 1, "R", false, 0, "")
	doc.Ln(4)
}

func (r *Renderer) summary(doc *gofpdf.Fpdf, tr func(string) string, q *domain.Quote) {
	rows := [][2]string{
		{"Lane", q.Origin + " -> " + q.Destination},
		{"Mode / service", string(q.Mode) + " / " + string(q.Service)},
	}

	switch {
	case len(q.Shipment.Containers) > 0:
		parts := make([]string, 0, len(q.Shipment.Containers))
		for _, c := range q.Shipment.Containers {
			parts = append(parts, fmt.Sprintf("%d x %s", c.Count, c.Type))
		}

		rows = append(rows, [2]string{"Containers", strings.Join(parts, ", ")})
	default:
		rows = append(rows,
			[2]string{"Weight", q.Shipment.WeightKg.String() + " kg"},
			[2]string{"Volume", q.Shipment.VolumeM3.String() + " m3"},
		)
	}

	if len(q.Shipment.Accessorials) > 0 {
		rows = append(rows, [2]string{"Accessorials", strings.Join(q.Shipment.Accessorials, ", ")})
	}

	for _, row := range rows {
		doc.SetFont(fontFamily, "B", 10)
		doc.CellFormat(40, 6, row[0], "", 0, "L", false, 0, "")
		doc.SetFont(fontFamily, "", 10)
		doc.CellFormat(140, 6, tr(row[1]), "", 1, "L", false, 0, "")
	}

	doc.Ln(4)
}

func (r *Renderer) lineItems(doc *gofpdf.Fpdf, tr func(string) string, q *domain.Quote) {
	doc.SetFont(fontFamily, "B", 10)
	doc.SetFillColor(230, 230, 230)

	for _, col := range columns {
		doc.CellFormat(col.width, 7, col.title, "1", 0, col.align, true, 0, "")
	}

	doc.Ln(-1)
	doc.SetFont(fontFamily, "", 9)

	for _, item := range q.LineItems {
		cells := []string{
			fmt.Sprintf("%d", item.Sequence),
			item.Code,
			tr(truncate(item.Description, 48)),
			item.Quantity.String(),
			money(item.UnitPrice),
			money(item.TotalPrice),
		}

		for i, col := range columns {
			doc.CellFormat(col.width, 6, cells[i], "1", 0, col.align, false, 0, "")
		}

		doc.Ln(-1)
	}

	doc.Ln(2)
}

func (r *Renderer) totals(doc *gofpdf.Fpdf, q *domain.Quote) {
	label := func(text string, value string, bold bool) {
		style := ""
		if bold {
			style = "B"
		}

		doc.SetFont(fontFamily, style, 10)
		doc.CellFormat(128, 6, "", "", 0, "L", false, 0, "")
		doc.CellFormat(26, 6, text, "", 0, "R", false, 0, "")
		doc.CellFormat(26, 6, value, "", 1, "R", false, 0, "")
	}

	label("Base", money(q.BaseAmount), false)
	label("Surcharges", money(q.TotalAmount.Sub(q.BaseAmount)), false)
	label("Total "+q.Currency, money(q.TotalAmount), true)

	if q.SourceCurrency != "" {
		doc.SetFont(fontFamily, "I", 8)
		doc.CellFormat(0, 5, fmt.Sprintf("Converted from %s at %s", q.SourceCurrency, q.ExchangeRate.String()),
			"", 1, "R", false, 0, "")
	}

	doc.Ln(6)
}

func (r *Renderer) footer(doc *gofpdf.Fpdf, tr func(string) string, q *domain.Quote) {
	doc.SetFont(fontFamily, "", 9)

	if q.ValidUntil != nil {
		doc.CellFormat(0, 5, "Valid until "+q.ValidUntil.UTC().Format(timeLayout), "", 1, "L", false, 0, "")
	}

	doc.CellFormat(0, 5, tr("Generated "+r.clock.Now().UTC().Format(time.RFC3339)), "", 1, "L", false, 0, "")
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}

	return string(r[:n-3]) + "..."
}
