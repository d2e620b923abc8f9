package export

import (
	"bytes"
	"fmt"
	"log/slog"

	"github.com/go-pdf/fpdf"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
)

// PDFRenderer renders report markdown to PDF by walking the goldmark AST and
// emitting fpdf drawing calls.
type PDFRenderer struct {
	logger *slog.Logger
}

var _ DocumentRenderer = (*PDFRenderer)(nil)

// NewPDFRenderer creates a PDF renderer.
func NewPDFRenderer(logger *slog.Logger) *PDFRenderer {
	return &PDFRenderer{logger: logger}
}

// Render implements DocumentRenderer.
func (p *PDFRenderer) Render(markdown, title string) ([]byte, error) {
	doc := fpdf.New("P", "mm", "A4", "")
	doc.SetTitle(title, true)
	doc.SetMargins(12, 12, 12)
	doc.SetAutoPageBreak(true, 12)
	doc.AddPage()
	doc.SetFont("Arial", "", 10)

	md := goldmark.New(goldmark.WithExtensions(extension.Table))
	source := []byte(markdown)
	tree := md.Parser().Parse(text.NewReader(source))

	w := &pdfWriter{doc: doc, source: source}
	if err := ast.Walk(tree, w.walk); err != nil {
		return nil, fmt.Errorf("failed to render PDF content: %w", err)
	}

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to write PDF output: %w", err)
	}

	p.logger.Debug("rendered PDF document",
		slog.String("title", title),
		slog.Int("bytes", buf.Len()))
	return buf.Bytes(), nil
}

type pdfWriter struct {
	doc    *fpdf.Fpdf
	source []byte

	bold      bool
	italic    bool
	listDepth int
}

func (w *pdfWriter) resetFont() {
	style := ""
	if w.bold {
		style += "B"
	}
	if w.italic {
		style += "I"
	}
	w.doc.SetFont("Arial", style, 10)
}

func (w *pdfWriter) walk(n ast.Node, entering bool) (ast.WalkStatus, error) {
	switch node := n.(type) {
	case *ast.Heading:
		if entering {
			w.doc.Ln(5)
			size := 14.0 - float64(node.Level)
			if size < 10 {
				size = 10
			}
			w.doc.SetFont("Arial", "B", size)
		} else {
			w.doc.Ln(6)
			w.resetFont()
		}
	case *ast.Paragraph:
		if !entering {
			w.doc.Ln(6)
		}
	case *ast.Text:
		if entering {
			w.doc.Write(5, string(node.Text(w.source)))
		}
	case *ast.Emphasis:
		if node.Level == 2 {
			w.bold = entering
		} else {
			w.italic = entering
		}
		w.resetFont()
	case *ast.List:
		if entering {
			w.listDepth++
		} else {
			w.listDepth--
			if w.listDepth == 0 {
				w.doc.Ln(2)
			}
		}
	case *ast.ListItem:
		if entering {
			w.doc.Ln(5)
			w.doc.SetX(12 + float64(w.listDepth)*5)
			w.doc.Write(5, "- ")
		}
	case *ast.ThematicBreak:
		if entering {
			w.doc.Ln(3)
			w.doc.Line(12, w.doc.GetY(), 198, w.doc.GetY())
			w.doc.Ln(3)
		}
	case *extast.Table:
		if entering {
			w.renderTable(node)
			return ast.WalkSkipChildren, nil
		}
	}
	return ast.WalkContinue, nil
}

func (w *pdfWriter) renderTable(table *extast.Table) {
	// TableHeader and TableRow nodes both hold cells directly.
	var rows [][]string
	for row := table.FirstChild(); row != nil; row = row.NextSibling() {
		switch row.(type) {
		case *extast.TableHeader, *extast.TableRow:
			rows = append(rows, w.tableRow(row))
		}
	}
	if len(rows) == 0 || len(rows[0]) == 0 {
		return
	}

	cols := len(rows[0])
	colWidth := 186.0 / float64(cols)
	w.doc.Ln(2)

	for i, row := range rows {
		if i == 0 {
			w.doc.SetFont("Arial", "B", 8)
			w.doc.SetFillColor(235, 235, 235)
		} else {
			w.doc.SetFont("Arial", "", 8)
			w.doc.SetFillColor(255, 255, 255)
		}
		startX, startY := w.doc.GetX(), w.doc.GetY()
		if startY+6 > 285 {
			w.doc.AddPage()
			startX, startY = w.doc.GetX(), w.doc.GetY()
		}
		for j := 0; j < cols; j++ {
			cell := ""
			if j < len(row) {
				cell = row[j]
			}
			x := startX + float64(j)*colWidth
			w.doc.Rect(x, startY, colWidth, 6, "FD")
			w.doc.SetXY(x+1, startY+1)
			w.doc.CellFormat(colWidth-2, 4, cell, "", 0, "L", false, 0, "")
		}
		w.doc.SetXY(startX, startY+6)
	}

	w.doc.Ln(3)
	w.resetFont()
}

func (w *pdfWriter) tableRow(row ast.Node) []string {
	var cells []string
	for cell := row.FirstChild(); cell != nil; cell = cell.NextSibling() {
		if _, ok := cell.(*extast.TableCell); ok {
			cells = append(cells, string(cell.Text(w.source)))
		}
	}
	return cells
}
