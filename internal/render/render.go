// Package render turns a structured protocol document into a paginated
// PDF. When no Cyrillic-capable font is available, or the PDF backend
// fails for any reason, it degrades to a plain-text file with the same
// base name; only that file's I/O errors are fatal.
package render

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/protokollabs/protokol/internal/document"
	"go.uber.org/zap"
)

// Format tells the caller what kind of file Render actually produced.
type Format string

const (
	FormatPDF  Format = "pdf"
	FormatText Format = "txt"
)

const (
	fontFamily = "liberation"

	bodySize   = 12.0
	lineHeight = 10.0
	blockGap   = 5.0
)

// Renderer lays out protocol documents. The clock pins PDF metadata
// dates so identical input produces identical bytes.
type Renderer struct {
	fontsDir string
	now      func() time.Time
	log      *zap.Logger

	locateFonts func(dirs ...string) (FontPair, error)
}

func NewRenderer(fontsDir string, logger *zap.Logger) *Renderer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Renderer{
		fontsDir:    fontsDir,
		now:         time.Now,
		log:         logger,
		locateFonts: LocateFonts,
	}
}

// SetClock replaces the metadata clock.
func (r *Renderer) SetClock(now func() time.Time) {
	if now != nil {
		r.now = now
	}
}

// Render writes doc to destPath, which carries the .pdf extension. On
// degradation the returned path swaps the extension for .txt and the
// file holds the document's canonical text verbatim.
func (r *Renderer) Render(doc *document.Document, destPath string) (string, Format, error) {
	fonts, err := r.locateFonts(r.fontsDir)
	if err != nil {
		r.log.Warn("cyrillic fonts not found; writing plain text", zap.Error(err))
		return r.renderText(doc, destPath)
	}

	if err := r.renderPDF(doc, destPath, fonts); err != nil {
		r.log.Warn("pdf rendering failed; writing plain text",
			zap.String("path", destPath), zap.Error(err))
		return r.renderText(doc, destPath)
	}

	r.log.Info("protocol rendered", zap.String("path", destPath))
	return destPath, FormatPDF, nil
}

func (r *Renderer) renderPDF(doc *document.Document, path string, fonts FontPair) error {
	pdf := fpdf.New("P", "mm", "A4", "")

	now := r.now()
	pdf.SetCreationDate(now)
	pdf.SetModificationDate(now)

	pdf.AddUTF8Font(fontFamily, "", fonts.Regular)
	pdf.AddUTF8Font(fontFamily, "B", fonts.Bold)
	if pdf.Err() {
		return fmt.Errorf("register fonts: %w", pdf.Error())
	}

	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont(fontFamily, "", 8)
		pdf.CellFormat(0, 10, fmt.Sprintf("Страница %d", pdf.PageNo()), "", 0, "C", false, 0, "")
	})

	pdf.SetAutoPageBreak(true, 20)
	pdf.AddPage()
	pdf.SetFont(fontFamily, "", bodySize)

	for i, node := range doc.Nodes {
		if i > 0 && !document.AdjacentListItems(doc.Nodes[i-1], node) {
			pdf.Ln(blockGap)
		}
		renderNode(pdf, node)
	}

	if pdf.Err() {
		return pdf.Error()
	}
	return pdf.OutputFileAndClose(path)
}

func renderNode(pdf *fpdf.Fpdf, node document.Node) {
	switch n := node.(type) {
	case document.Heading:
		size, after := 16.0, blockGap
		switch n.Level {
		case 2:
			size, after = 14, 3
		case 3:
			size, after = 13, 0
		}
		pdf.SetFont(fontFamily, "B", size)
		pdf.CellFormat(0, lineHeight, n.Text, "", 1, "", false, 0, "")
		if after > 0 {
			pdf.Ln(after)
		}
		pdf.SetFont(fontFamily, "", bodySize)
	case document.Bullet:
		pdf.CellFormat(10, lineHeight, "•", "", 0, "", false, 0, "")
		pdf.CellFormat(0, lineHeight, n.Text, "", 1, "", false, 0, "")
	case document.Numbered:
		pdf.CellFormat(0, lineHeight, fmt.Sprintf("%d. %s", n.N, n.Text), "", 1, "", false, 0, "")
	case document.Paragraph:
		pdf.MultiCell(0, lineHeight, n.Text, "", "", false)
	}
}

func (r *Renderer) renderText(doc *document.Document, destPath string) (string, Format, error) {
	txtPath := strings.TrimSuffix(destPath, filepath.Ext(destPath)) + ".txt"
	if err := os.WriteFile(txtPath, []byte(doc.Text()), 0o644); err != nil {
		return "", "", fmt.Errorf("write protocol text: %w", err)
	}
	r.log.Info("protocol saved as plain text", zap.String("path", txtPath))
	return txtPath, FormatText, nil
}
