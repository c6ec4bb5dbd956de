package report

import (
	"bytes"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jung-kurt/gofpdf"
)

const (
	pdfMargin       = 15.0 // mm, A4 portrait
	pdfContentWidth = 210.0 - 2*pdfMargin
	pdfBottomY      = 297.0 - 2*pdfMargin
	pdfLineHeight   = 6.0

	lowScoreThreshold = 50.0
)

// WritePDF renders the report to a PDF file: header, period summary, the
// trend chart, and the per-day score table
func (r *Report) WritePDF(path string) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(pdfMargin, pdfMargin, pdfMargin)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(pdfContentWidth, 10, r.Title, "", 1, "C", false, 0, "")

	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(pdfContentWidth, pdfLineHeight, fmt.Sprintf("%s to %s", r.From, r.To), "", 1, "C", false, 0, "")

	generated := "Generated " + time.Now().Format("2 Jan 2006 15:04")
	if !r.LastEntry.IsZero() {
		generated += ", last entry " + humanize.Time(r.LastEntry)
	}
	pdf.CellFormat(pdfContentWidth, pdfLineHeight, generated, "", 1, "C", false, 0, "")
	pdf.Ln(4)

	if r.Summary.Days == 0 {
		pdf.CellFormat(pdfContentWidth, pdfLineHeight, "No scores recorded in this range.", "", 1, "L", false, 0, "")
		return pdf.OutputFileAndClose(path)
	}

	r.writeSummarySection(pdf)
	r.writeChartSection(pdf)
	r.writeDailyTable(pdf)

	return pdf.OutputFileAndClose(path)
}

func (r *Report) writeSummarySection(pdf *gofpdf.Fpdf) {
	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(pdfContentWidth, 8, fmt.Sprintf("Period Summary (%d scored days)", r.Summary.Days), "", 1, "L", false, 0, "")

	rows := []struct {
		label string
		value *float64
		unit  string
	}{
		{"Sleep", r.Summary.Averages.Sleep, ""},
		{"Activity", r.Summary.Averages.Activity, ""},
		{"Stress", r.Summary.Averages.Stress, ""},
		{"Energy Credit", r.Summary.Averages.EnergyCredit, ""},
		{"Energy Delta", r.Summary.Averages.EnergyDelta, " kcal"},
	}

	pdf.SetFont("Arial", "", 10)
	for _, row := range rows {
		if row.value == nil {
			continue
		}
		pdf.CellFormat(50, pdfLineHeight, row.label, "", 0, "L", false, 0, "")
		pdf.CellFormat(40, pdfLineHeight, fmt.Sprintf("avg %.1f%s", *row.value, row.unit), "", 1, "L", false, 0, "")
	}

	if r.Summary.BestDay != nil {
		pdf.CellFormat(pdfContentWidth, pdfLineHeight,
			fmt.Sprintf("Best day: %s (%.1f)", r.Summary.BestDay.Date, r.Summary.BestDay.Score), "", 1, "L", false, 0, "")
	}
	if r.Summary.WorstDay != nil {
		pdf.CellFormat(pdfContentWidth, pdfLineHeight,
			fmt.Sprintf("Worst day: %s (%.1f)", r.Summary.WorstDay.Date, r.Summary.WorstDay.Score), "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)
}

func (r *Report) writeChartSection(pdf *gofpdf.Fpdf) {
	png, err := r.RenderChartPNG()
	if err != nil {
		pdf.SetFont("Arial", "", 10)
		pdf.CellFormat(pdfContentWidth, pdfLineHeight, "Trend chart not available.", "", 1, "L", false, 0, "")
		pdf.Ln(2)
		return
	}

	pdf.RegisterImageReader("trend", "PNG", bytes.NewReader(png))

	imgWidth := pdfContentWidth
	imgHeight := imgWidth / 2 // chart is rendered 800x400

	if pdf.GetY()+imgHeight > pdfBottomY {
		pdf.AddPage()
	}
	pdf.Image("trend", pdfMargin, pdf.GetY(), imgWidth, imgHeight, false, "PNG", 0, "")
	pdf.SetY(pdf.GetY() + imgHeight + 4)
}

func (r *Report) writeDailyTable(pdf *gofpdf.Fpdf) {
	headers := []string{"Date", "Sleep", "Activity", "Stress", "Credit", "Delta"}
	widths := []float64{35, 29, 29, 29, 29, 29}

	writeHeader := func() {
		pdf.SetFont("Arial", "B", 9)
		pdf.SetFillColor(200, 200, 200)
		pdf.SetTextColor(0, 0, 0)
		for i, header := range headers {
			pdf.CellFormat(widths[i], pdfLineHeight, header, "1", 0, "C", true, 0, "")
		}
		pdf.Ln(-1)
	}

	if pdf.GetY()+pdfLineHeight*3 > pdfBottomY {
		pdf.AddPage()
	}
	writeHeader()

	for _, score := range r.Scores {
		if pdf.GetY()+pdfLineHeight > pdfBottomY {
			pdf.AddPage()
			writeHeader()
		}

		pdf.SetFont("Arial", "", 9)
		pdf.SetTextColor(50, 50, 50)
		pdf.CellFormat(widths[0], pdfLineHeight, score.Date, "1", 0, "C", false, 0, "")

		cells := []*float64{score.SleepScore, score.ActivityScore, score.StressScore, score.EnergyCredit}
		for i, value := range cells {
			if value != nil && *value < lowScoreThreshold {
				pdf.SetFont("Arial", "B", 9)
				pdf.SetTextColor(200, 0, 0)
			} else {
				pdf.SetFont("Arial", "", 9)
				pdf.SetTextColor(50, 50, 50)
			}
			pdf.CellFormat(widths[i+1], pdfLineHeight, formatScore(value), "1", 0, "C", false, 0, "")
		}

		pdf.SetFont("Arial", "", 9)
		pdf.SetTextColor(50, 50, 50)
		pdf.CellFormat(widths[5], pdfLineHeight, formatDelta(score.EnergyDelta), "1", 0, "C", false, 0, "")
		pdf.Ln(-1)
	}

	pdf.SetTextColor(0, 0, 0)
}

func formatScore(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.1f", *v)
}

func formatDelta(v *float64) string {
	if v == nil {
		return "-"
	}
	return humanize.CommafWithDigits(*v, 0)
}
