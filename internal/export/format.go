package export

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	gmhtml "github.com/yuin/goldmark/renderer/html"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// NoSummary is shown in place of an empty summary
const NoSummary = "No summary available."

var (
	markdown = goldmark.New(
		goldmark.WithExtensions(extension.Strikethrough),
		goldmark.WithRendererOptions(gmhtml.WithHardWraps()),
	)

	slugRE = regexp.MustCompile(`[^a-zA-Z0-9]`)
)

// FormatSummaryHTML renders summary markdown as an HTML fragment. Raw HTML in
// the input is escaped.
func FormatSummaryHTML(md string) string {
	if strings.TrimSpace(md) == "" {
		return NoSummary
	}
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(md), &buf); err != nil {
		return html.EscapeString(md)
	}
	return strings.TrimSpace(buf.String())
}

// Slug turns a title into a file name stem
func Slug(title string) string {
	return strings.ToLower(slugRE.ReplaceAllString(title, "_"))
}

// FileName is the export file name for title in format f
func FileName(title string, f Format) string {
	return fmt.Sprintf("%s_summary.%s", Slug(title), f)
}

// PlainText extracts readable text from an HTML fragment, keeping one line
// per block and a bullet per list item
func PlainText(fragment string) (string, error) {
	nodes, err := html.ParseFragment(strings.NewReader(fragment), &html.Node{
		Type:     html.ElementNode,
		Data:     "body",
		DataAtom: atom.Body,
	})
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}

	var b strings.Builder
	for _, n := range nodes {
		writeText(&b, n)
	}
	return cleanLines(b.String()), nil
}

func writeText(b *strings.Builder, n *html.Node) {
	switch n.Type {
	case html.TextNode:
		b.WriteString(n.Data)
		return
	case html.ElementNode:
		switch n.Data {
		case "script", "style":
			return
		case "br":
			b.WriteString("\n")
			return
		case "li":
			b.WriteString("\n• ")
		case "p", "div", "h1", "h2", "h3", "h4", "h5", "h6", "ul", "ol", "blockquote", "pre":
			b.WriteString("\n")
		}
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		writeText(b, c)
	}

	if n.Type == html.ElementNode && isBlock(n.Data) {
		b.WriteString("\n")
	}
}

func isBlock(tag string) bool {
	switch tag {
	case "p", "div", "h1", "h2", "h3", "h4", "h5", "h6", "ul", "ol", "blockquote", "pre":
		return true
	}
	return false
}

// cleanLines collapses whitespace inside each line and drops blank lines
func cleanLines(text string) string {
	var out []string
	bullet := false
	for _, line := range strings.Split(text, "\n") {
		line = strings.Join(strings.Fields(line), " ")
		switch {
		case line == "":
			continue
		case line == "•":
			// loose list items wrap their text in <p>
			bullet = true
			continue
		case bullet:
			line = "• " + line
			bullet = false
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}

// Preview shortens text to at most maxWords words
func Preview(text string, maxWords int) string {
	words := strings.Fields(text)
	if len(words) <= maxWords {
		return strings.Join(words, " ")
	}
	return strings.Join(words[:maxWords], " ") + "..."
}
