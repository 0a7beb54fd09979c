package main

import (
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

const (
	pdfPageWidth  = 210 // A4 width in mm
	pdfMargin     = 10
	pdfLineHeight = 5.0
	pdfFontSize   = 9
	pdfTabWidth   = 4
)

// pdfGlyphs replaces tree connectors the core PDF fonts cannot draw.
var pdfGlyphs = strings.NewReplacer(
	"├── ", "|-- ",
	"└── ", "`-- ",
	"│   ", "|   ",
	"\t", strings.Repeat(" ", pdfTabWidth),
)

// generatePDF writes the structure and every non-excluded file as a monospaced PDF.
func generatePDF(data *ProcessedFiles, summary Summary, outputPath string) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(pdfMargin, pdfMargin, pdfMargin)
	pdf.SetAutoPageBreak(true, pdfMargin)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	width := float64(pdfPageWidth - 2*pdfMargin)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", pdfFontSize+3)
	pdf.MultiCell(width, pdfLineHeight+2, tr(data.RootName), "", "L", false)
	pdf.Ln(pdfLineHeight / 2)

	pdf.SetFont("Courier", "", pdfFontSize)
	pdf.MultiCell(width, pdfLineHeight, tr(pdfGlyphs.Replace(data.Structure)), "", "L", false)

	for _, fc := range data.Contents {
		if fc.Excluded {
			continue
		}
		pdf.AddPage()
		pdf.SetFont("Helvetica", "B", pdfFontSize+1)
		pdf.MultiCell(width, pdfLineHeight, tr("File: "+fc.Path), "", "L", false)
		pdf.Line(pdfMargin, pdf.GetY(), pdfPageWidth-pdfMargin, pdf.GetY())
		pdf.Ln(pdfLineHeight / 2)

		pdf.SetFont("Courier", "", pdfFontSize)
		pdf.MultiCell(width, pdfLineHeight, tr(pdfGlyphs.Replace(fc.Content)), "", "L", false)
	}

	pdf.Ln(pdfLineHeight)
	pdf.SetFont("Helvetica", "B", pdfFontSize+1)
	pdf.MultiCell(width, pdfLineHeight, "Summary", "", "L", false)
	pdf.SetFont("Helvetica", "", pdfFontSize)
	pdf.MultiCell(width, pdfLineHeight, summaryText(summary), "", "L", false)

	if err := pdf.OutputFileAndClose(outputPath); err != nil {
		return fmt.Errorf("failed to save PDF to %s: %w", outputPath, err)
	}
	return nil
}
