// Package export turns a titled summary into a downloadable document
package export

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/jung-kurt/gofpdf"
)

// ErrEmptySummary is returned when there is nothing to export
var ErrEmptySummary = errors.New("no summary content to export")

// Format is a document type
type Format string

const (
	PDF      Format = "pdf"
	HTML     Format = "html"
	Markdown Format = "md"
)

// Formats lists the supported document types, default first
var Formats = []Format{PDF, HTML, Markdown}

// ParseFormat accepts a format name; empty means PDF
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "pdf":
		return PDF, nil
	case "html", "htm":
		return HTML, nil
	case "md", "markdown":
		return Markdown, nil
	}
	return "", fmt.Errorf("unknown export format %q (use pdf, html or md)", s)
}

// ContentType is the MIME type served for f
func (f Format) ContentType() string {
	switch f {
	case HTML:
		return "text/html; charset=utf-8"
	case Markdown:
		return "text/markdown; charset=utf-8"
	default:
		return "application/pdf"
	}
}

// Document is what gets exported
type Document struct {
	Title   string
	Summary string
	Date    time.Time
}

func (d Document) title() string {
	if t := strings.TrimSpace(d.Title); t != "" {
		return t
	}
	return "Video Summary"
}

func (d Document) footer() string {
	date := d.Date
	if date.IsZero() {
		date = time.Now()
	}
	return "Generated by AI Video Summarizer on " + date.Format("1/2/2006")
}

// FileName is the name the document is saved under
func (d Document) FileName(f Format) string {
	return FileName(d.title(), f)
}

// Write renders doc in format f to w
func Write(w io.Writer, doc Document, f Format) error {
	if strings.TrimSpace(doc.Summary) == "" {
		return ErrEmptySummary
	}
	switch f {
	case PDF:
		return writePDF(w, doc)
	case HTML:
		return writeHTML(w, doc)
	case Markdown:
		return writeMarkdown(w, doc)
	}
	return fmt.Errorf("unknown export format %q", f)
}

// SaveFile writes doc into dir and returns the file path
func SaveFile(dir string, doc Document, f Format) (string, error) {
	var buf bytes.Buffer
	if err := Write(&buf, doc, f); err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("failed to create export directory: %w", err)
	}
	path := filepath.Join(dir, doc.FileName(f))
	if err := os.WriteFile(path, buf.Bytes(), 0o600); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	return path, nil
}

var documentTmpl = template.Must(template.New("doc").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { font-family: Arial, sans-serif; padding: 20px; max-width: 800px; margin: 0 auto; }
h1 { color: #4361ee; font-size: 24px; margin-bottom: 20px; }
.summary { line-height: 1.6; font-size: 14px; }
.footer { margin-top: 30px; color: #6c757d; font-size: 12px; }
</style>
</head>
<body>
<h1>{{.Title}}</h1>
<div class="summary">{{.Body}}</div>
<p class="footer">{{.Footer}}</p>
</body>
</html>
`))

func writeHTML(w io.Writer, doc Document) error {
	return documentTmpl.Execute(w, struct {
		Title  string
		Body   template.HTML
		Footer string
	}{
		Title: doc.title(),
		// goldmark escapes raw HTML in the summary
		Body:   template.HTML(FormatSummaryHTML(doc.Summary)),
		Footer: doc.footer(),
	})
}

func writeMarkdown(w io.Writer, doc Document) error {
	var page bytes.Buffer
	if err := writeHTML(&page, doc); err != nil {
		return err
	}
	md, err := htmltomarkdown.ConvertString(page.String())
	if err != nil {
		return fmt.Errorf("failed to convert to markdown: %w", err)
	}
	_, err = io.WriteString(w, strings.TrimSpace(md)+"\n")
	return err
}

const (
	pdfMargin = 15.0
	mmPerPt   = 25.4 / 72
)

func writePDF(w io.Writer, doc Document) error {
	body, err := PlainText(FormatSummaryHTML(doc.Summary))
	if err != nil {
		return err
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(pdfMargin, pdfMargin, pdfMargin)
	pdf.SetAutoPageBreak(true, pdfMargin)
	pdf.SetTitle(doc.title(), true)
	pdf.SetCreator("vidsum", true)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFont("Helvetica", "B", 24)
	pdf.SetTextColor(0x43, 0x61, 0xee)
	pdf.MultiCell(0, 24*mmPerPt*1.3, tr(doc.title()), "", "L", false)
	pdf.Ln(20 * mmPerPt)

	pdf.SetFont("Helvetica", "", 14)
	pdf.SetTextColor(0x21, 0x25, 0x29)
	pdf.MultiCell(0, 14*mmPerPt*1.6, tr(body), "", "L", false)
	pdf.Ln(30 * mmPerPt)

	pdf.SetFont("Helvetica", "", 12)
	pdf.SetTextColor(0x6c, 0x75, 0x7d)
	pdf.MultiCell(0, 12*mmPerPt*1.4, tr(doc.footer()), "", "L", false)

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("failed to render PDF: %w", err)
	}
	return nil
}
