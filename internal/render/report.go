package render

import (
	"bytes"
	"context"
	"fmt"

	"github.com/go-pdf/fpdf"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"prime-quiz-bot/internal/domain"
)

var (
	reportHeader  = []string{"Rank", "Full name", "Percent", "Correct"}
	reportWidths  = []float64{60, 260, 100, 100}
	reportRowH    = 35.0
	reportHeading = mustHex("#1f4e79")
)

// ReportRenderer lays out ranked results as an A4 PDF table.
type ReportRenderer struct{}

func NewReportRenderer() *ReportRenderer {
	return &ReportRenderer{}
}

func (ReportRenderer) RenderReport(_ context.Context, summary domain.HistorySummary, ranked []domain.RankedEntry) (domain.Document, error) {
	pdf := fpdf.New("P", "pt", "A4", "")
	pdf.SetMargins(36, 36, 36)
	pdf.SetAutoPageBreak(true, 36)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	title := cases.Title(language.Und)

	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 30, tr(fmt.Sprintf("Test %s results", summary.Code)), "", 1, "C", false, 0, "")
	pdf.Ln(10)

	pdf.SetDrawColor(0, 0, 0)
	pdf.SetLineWidth(1)
	pdf.SetFont("Helvetica", "B", 12)
	pdf.SetFillColor(int(reportHeading.R), int(reportHeading.G), int(reportHeading.B))
	pdf.SetTextColor(255, 255, 255)
	for i, h := range reportHeader {
		pdf.CellFormat(reportWidths[i], reportRowH, h, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 12)
	for _, e := range ranked {
		tier := mustHex(e.Tier.Color())
		cells := []string{
			fmt.Sprintf("%d", e.Rank),
			tr(title.String(e.FullName)),
			fmt.Sprintf("%d%%", e.Percent),
			e.Score(),
		}
		for i, text := range cells {
			if i == 2 {
				pdf.SetTextColor(int(tier.R), int(tier.G), int(tier.B))
			} else {
				pdf.SetTextColor(0, 0, 0)
			}
			pdf.CellFormat(reportWidths[i], reportRowH, text, "1", 0, "C", false, 0, "")
		}
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return domain.Document{}, fmt.Errorf("%w: build report: %v", domain.ErrRender, err)
	}
	return domain.Document{
		Filename: fmt.Sprintf("results_%s.pdf", summary.Code),
		Data:     buf.Bytes(),
	}, nil
}
