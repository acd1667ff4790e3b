// Package report renders reconciliation reports as PDF.
package report

import (
	"context"
	"fmt"
	"sort"

	maroto "github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"retailhub/internal/domain/reconcile"
)

var (
	colorPrimary = &props.Color{Red: 0, Green: 70, Blue: 127}
	colorGray    = &props.Color{Red: 100, Green: 100, Blue: 100}
	colorAlert   = &props.Color{Red: 170, Green: 30, Blue: 30}
)

// PDFRenderer lays a reconcile.Report out on A4 pages.
type PDFRenderer struct {
	printer *message.Printer
}

// NewPDFRenderer formats numbers for locale (a BCP 47 tag).
// An unparsable tag falls back to English.
func NewPDFRenderer(locale string) *PDFRenderer {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.English
	}
	return &PDFRenderer{printer: message.NewPrinter(tag)}
}

// Render returns the PDF bytes of r.
func (p *PDFRenderer) Render(_ context.Context, r *reconcile.Report) ([]byte, error) {
	cfg := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithLeftMargin(10).WithRightMargin(10).
		WithTopMargin(10).WithBottomMargin(10).
		WithDefaultFont(&props.Font{Family: "helvetica", Size: 9}).
		WithTitle("Reconciliation report", true).
		Build()

	m := maroto.New(cfg)
	m.AddRows(p.headerRow(r))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.5}))
	m.AddRows(p.summaryRows(r)...)
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))

	if r.Consistent() {
		m.AddRows(row.New(10).Add(col.New(12).Add(
			text.New("No discrepancies found.", props.Text{Style: fontstyle.Bold, Top: 3}),
		)))
	} else {
		m.AddRows(tableHeaderRow())
		m.AddRows(tableRows(r.Discrepancies)...)
	}

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("generate reconciliation pdf: %w", err)
	}
	return doc.GetBytes(), nil
}

func (p *PDFRenderer) headerRow(r *reconcile.Report) core.Row {
	return row.New(18).Add(
		col.New(7).Add(
			text.New("Reconciliation report", props.Text{
				Style: fontstyle.Bold, Size: 13, Color: colorPrimary, Top: 1,
			}),
			text.New(r.Subject, props.Text{Size: 9, Top: 9, Color: colorGray}),
		),
		col.New(5).Add(
			text.New("Store "+r.StoreID, props.Text{
				Style: fontstyle.Bold, Size: 10, Align: align.Right, Top: 1,
			}),
			text.New(r.GeneratedAt.UTC().Format("2006-01-02 15:04:05 UTC"), props.Text{
				Size: 8, Align: align.Right, Top: 9, Color: colorGray,
			}),
		),
	)
}

func (p *PDFRenderer) summaryRows(r *reconcile.Report) []core.Row {
	rows := []core.Row{
		summaryRow("Records checked", p.printer.Sprintf("%d", r.Checked)),
		summaryRow("Discrepancies", p.printer.Sprintf("%d", len(r.Discrepancies))),
	}

	counts := r.CountByKind()
	kinds := make([]string, 0, len(counts))
	for k := range counts {
		kinds = append(kinds, string(k))
	}
	sort.Strings(kinds)
	for _, k := range kinds {
		rows = append(rows, summaryRow("  "+k, p.printer.Sprintf("%d", counts[reconcile.Kind(k)])))
	}
	return rows
}

func summaryRow(label, value string) core.Row {
	return row.New(6).Add(
		col.New(6).Add(text.New(label, props.Text{Size: 9, Top: 1})),
		col.New(6).Add(text.New(value, props.Text{Size: 9, Top: 1, Align: align.Right, Style: fontstyle.Bold})),
	)
}

func tableHeaderRow() core.Row {
	h := func(label string, size int, a align.Type) core.Col {
		return col.New(size).Add(text.New(label, props.Text{
			Style: fontstyle.Bold, Size: 8, Align: a, Color: colorPrimary, Top: 2,
		}))
	}
	return row.New(8).Add(
		h("Key", 3, align.Left),
		h("Kind", 2, align.Left),
		h("Field", 2, align.Left),
		h("Expected", 2, align.Right),
		h("Actual", 2, align.Right),
		h("Fix", 1, align.Center),
	)
}

func tableRows(discrepancies []reconcile.Discrepancy) []core.Row {
	rows := make([]core.Row, 0, len(discrepancies))
	for _, d := range discrepancies {
		fix := "yes"
		color := colorGray
		if !d.Repairable {
			fix = "no"
			color = colorAlert
		}
		rows = append(rows, row.New(7).Add(
			col.New(3).Add(text.New(d.Key, props.Text{Size: 8, Top: 1})),
			col.New(2).Add(text.New(string(d.Kind), props.Text{Size: 8, Top: 1})),
			col.New(2).Add(text.New(d.Field, props.Text{Size: 8, Top: 1})),
			col.New(2).Add(text.New(d.Expected, props.Text{Size: 8, Top: 1, Align: align.Right})),
			col.New(2).Add(text.New(d.Actual, props.Text{Size: 8, Top: 1, Align: align.Right})),
			col.New(1).Add(text.New(fix, props.Text{Size: 8, Top: 1, Align: align.Center, Color: color})),
		))
	}
	return rows
}
