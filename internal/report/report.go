// Package report renders the run summary newsletter and mails it with the
// run's log file attached.
package report

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
)

//go:embed templates/newsletter.html
var templates embed.FS

var newsletter = template.Must(template.ParseFS(templates, "templates/newsletter.html"))

// Data is the template input
type Data struct {
	NumSymbols    int
	NumFiles      int
	Succeeded     int
	Failed        int
	FailedSymbols []string
	QuoteDate     string
	RunID         string
}

// Render produces the HTML body of the report
func Render(data Data) (string, error) {
	var buf bytes.Buffer
	if err := newsletter.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render report: %w", err)
	}
	return buf.String(), nil
}
