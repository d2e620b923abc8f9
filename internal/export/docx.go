package export

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"log/slog"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
)

// DOCXRenderer renders report markdown to a minimal OOXML wordprocessing
// document. No library in our stack emits DOCX, so the package is assembled
// directly: a DOCX file is a zip with a fixed part layout, and the document
// body only needs paragraphs, runs, and tables for report content.
type DOCXRenderer struct {
	logger *slog.Logger
}

var _ DocumentRenderer = (*DOCXRenderer)(nil)

// NewDOCXRenderer creates a DOCX renderer.
func NewDOCXRenderer(logger *slog.Logger) *DOCXRenderer {
	return &DOCXRenderer{logger: logger}
}

const docxContentTypes = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>
<Default Extension="xml" ContentType="application/xml"/>
<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>
</Types>`

const docxRootRels = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>
</Relationships>`

// Render implements DocumentRenderer.
func (d *DOCXRenderer) Render(markdown, title string) ([]byte, error) {
	body, err := markdownToWordBody(markdown)
	if err != nil {
		return nil, fmt.Errorf("failed to build document body: %w", err)
	}

	document := `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
<w:body>` + body + `</w:body>
</w:document>`

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	parts := []struct {
		name    string
		content string
	}{
		{"[Content_Types].xml", docxContentTypes},
		{"_rels/.rels", docxRootRels},
		{"word/document.xml", document},
	}
	for _, part := range parts {
		f, err := zw.Create(part.name)
		if err != nil {
			return nil, fmt.Errorf("failed to create zip part %s: %w", part.name, err)
		}
		if _, err := f.Write([]byte(part.content)); err != nil {
			return nil, fmt.Errorf("failed to write zip part %s: %w", part.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize DOCX package: %w", err)
	}

	d.logger.Debug("rendered DOCX document",
		slog.String("title", title),
		slog.Int("bytes", buf.Len()))
	return buf.Bytes(), nil
}

// markdownToWordBody flattens the markdown AST into WordprocessingML
// paragraphs and tables.
func markdownToWordBody(markdown string) (string, error) {
	md := goldmark.New(goldmark.WithExtensions(extension.Table))
	source := []byte(markdown)
	tree := md.Parser().Parse(text.NewReader(source))

	var b strings.Builder
	err := ast.Walk(tree, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.Heading:
			writeWordParagraph(&b, string(node.Text(source)), fmt.Sprintf("Heading%d", node.Level), false)
			return ast.WalkSkipChildren, nil
		case *ast.Paragraph:
			if _, inItem := node.Parent().(*ast.ListItem); inItem {
				writeWordParagraph(&b, "- "+string(node.Text(source)), "", false)
			} else {
				writeWordParagraph(&b, string(node.Text(source)), "", false)
			}
			return ast.WalkSkipChildren, nil
		case *extast.Table:
			writeWordTable(&b, node, source)
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		return "", err
	}
	return b.String(), nil
}

func writeWordParagraph(b *strings.Builder, content, style string, bold bool) {
	b.WriteString("<w:p>")
	if style != "" {
		fmt.Fprintf(b, `<w:pPr><w:pStyle w:val="%s"/></w:pPr>`, style)
	}
	b.WriteString("<w:r>")
	if bold {
		b.WriteString("<w:rPr><w:b/></w:rPr>")
	}
	fmt.Fprintf(b, `<w:t xml:space="preserve">%s</w:t>`, xmlEscape(content))
	b.WriteString("</w:r></w:p>")
}

func writeWordTable(b *strings.Builder, table *extast.Table, source []byte) {
	b.WriteString(`<w:tbl><w:tblPr><w:tblBorders>` +
		`<w:top w:val="single"/><w:bottom w:val="single"/>` +
		`<w:left w:val="single"/><w:right w:val="single"/>` +
		`<w:insideH w:val="single"/><w:insideV w:val="single"/>` +
		`</w:tblBorders></w:tblPr>`)

	writeRow := func(row ast.Node, header bool) {
		b.WriteString("<w:tr>")
		for cell := row.FirstChild(); cell != nil; cell = cell.NextSibling() {
			if _, ok := cell.(*extast.TableCell); !ok {
				continue
			}
			b.WriteString("<w:tc>")
			writeWordParagraph(b, string(cell.Text(source)), "", header)
			b.WriteString("</w:tc>")
		}
		b.WriteString("</w:tr>")
	}

	for row := table.FirstChild(); row != nil; row = row.NextSibling() {
		switch row.(type) {
		case *extast.TableHeader:
			writeRow(row, true)
		case *extast.TableRow:
			writeRow(row, false)
		}
	}
	b.WriteString("</w:tbl>")
}

func xmlEscape(s string) string {
	var buf bytes.Buffer
	// EscapeText only fails on writer errors, which bytes.Buffer never returns.
	_ = xml.EscapeText(&buf, []byte(s))
	return buf.String()
}
