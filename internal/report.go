package internal

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// BuildSentimentReportPDF renders a one-page report with a title and a table
// of scored phrases (phrase, label, score).
func BuildSentimentReportPDF(items []ScoredPhrase) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	pageW, _ := pdf.GetPageSize()
	left, top, right, _ := pdf.GetMargins()
	usableW := pageW - left - right

	pdf.SetFont("Arial", "B", 18)
	pdf.SetXY(left, top)
	pdf.CellFormat(usableW, 10, "Sentiment Report", "", 1, "C", false, 0, "")

	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(usableW, 6, "Generated "+time.Now().UTC().Format(time.RFC3339), "", 1, "C", false, 0, "")

	y := top + 22

	// Table header
	pdf.SetFont("Arial", "B", 11)
	headers := []string{"Phrase", "Label", "Score"}
	widths := []float64{usableW * 0.65, usableW * 0.2, usableW * 0.15}
	x := left
	for i, h := range headers {
		pdf.Rect(x, y-5, widths[i], 8, "D")
		pdf.Text(x+2, y, h)
		x += widths[i]
	}

	// Rows
	pdf.SetFont("Arial", "", 10)
	y += 10
	for _, it := range items {
		x = left
		cells := []string{
			it.Phrase,
			it.Label,
			fmt.Sprintf("%.3f", it.Score),
		}
		rowH := 8.0
		for i, c := range cells {
			pdf.Rect(x, y-5, widths[i], rowH, "D")
			pdf.SetXY(x+2, y-3)
			pdf.MultiCell(widths[i]-4, 5, c, "", "L", false)
			x += widths[i]
		}
		y += rowH + 2
	}

	var out bytes.Buffer
	if err := pdf.Output(&out); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}
