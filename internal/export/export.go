// Package export renders report markdown into downloadable documents and
// decides where the resulting files live on disk.
package export

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/nutrilog/nutrilog-api/internal/domain"
)

// DocumentRenderer converts report markdown into the bytes of a document.
type DocumentRenderer interface {
	// Render converts markdown to document bytes. The title ends up in
	// document metadata where the format supports it.
	Render(markdown, title string) ([]byte, error)
}

// FileName returns the on-disk name for a finished export, namespaced by the
// job ID so concurrent exports of the same report never collide.
func FileName(dir string, jobID int64, reportName string, format domain.ExportFormat) string {
	return filepath.Join(dir, fmt.Sprintf("%d_%s.%s", jobID, sanitizeName(reportName), format))
}

// sanitizeName keeps report names safe as file name components.
func sanitizeName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "report"
	}
	replacer := strings.NewReplacer(
		"/", "-",
		"\\", "-",
		":", "-",
		"*", "-",
		"?", "-",
		"\"", "-",
		"<", "-",
		">", "-",
		"|", "-",
		" ", "_",
	)
	return replacer.Replace(name)
}

// CombineReports stitches several ready reports into one markdown document
// for a date-range export, oldest first.
func CombineReports(reports []*domain.Report) string {
	var b strings.Builder
	for i, r := range reports {
		if r.Markdown == nil {
			continue
		}
		if i > 0 {
			b.WriteString("\n\n---\n\n")
		}
		b.WriteString("# ")
		b.WriteString(r.Name)
		b.WriteString("\n\n")
		b.WriteString(*r.Markdown)
	}
	return b.String()
}
