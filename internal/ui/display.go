package ui

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/fatih/color"
	"golang.org/x/term"

	"vidsum/internal/api"
	"vidsum/internal/export"
	"vidsum/internal/history"
	"vidsum/internal/summarizer"
)

const (
	defaultWidth  = 80
	previewWords  = 40
	accentColor   = "#4361ee"
	mutedColor    = "#6c757d"
	dateLayoutOut = "1/2/2006"
	cardActions   = "copy · export · delete"
)

var (
	infoColor    = color.New(color.FgCyan)
	warningColor = color.New(color.FgYellow)
	errorColor   = color.New(color.FgRed)
	successColor = color.New(color.FgGreen)
	dimColor     = color.New(color.FgHiBlack)
	titleColor   = color.New(color.Bold, color.FgCyan)
)

// Display renders notices, videos, summaries and history in the terminal
type Display struct {
	out      io.Writer
	width    int
	renderer *glamour.TermRenderer
}

// NewDisplay creates a display writing to stdout
func NewDisplay() *Display {
	return NewDisplayTo(os.Stdout, terminalWidth())
}

// NewDisplayTo creates a display writing to w, wrapping at width
func NewDisplayTo(w io.Writer, width int) *Display {
	if width <= 20 {
		width = defaultWidth
	}

	style := glamour.WithAutoStyle()
	if color.NoColor {
		style = glamour.WithStandardStyle("notty")
	}
	renderer, _ := glamour.NewTermRenderer(
		style,
		glamour.WithWordWrap(width-10),
	)

	return &Display{
		out:      w,
		width:    width,
		renderer: renderer,
	}
}

// ClearScreen clears the terminal
func (d *Display) ClearScreen() {
	fmt.Fprint(d.out, "\033[2J\033[H")
}

// PrintWelcome displays the shell banner
func (d *Display) PrintWelcome(apiURL string) {
	banner := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color(accentColor)).
		Border(lipgloss.DoubleBorder()).
		BorderForeground(lipgloss.Color(accentColor)).
		Padding(0, 4).
		Render("vidsum - AI Video Summarizer")
	fmt.Fprintln(d.out, banner)
	dimColor.Fprintf(d.out, "Backend: %s\n", apiURL)
	dimColor.Fprintln(d.out, "Paste a YouTube link, or use /summarize [text|bullet|detailed] [audio] | /history | /copy | /export | /delete | /clear | /exit")
	fmt.Fprintln(d.out)
}

// PrintSeparator prints a visual separator
func (d *Display) PrintSeparator() {
	dimColor.Fprintln(d.out, strings.Repeat("─", min(d.width, 80)))
}

// PrintInfo displays info message
func (d *Display) PrintInfo(msg string) {
	infoColor.Fprintf(d.out, "ℹ %s\n", msg)
}

// PrintWarning displays warning message
func (d *Display) PrintWarning(msg string) {
	warningColor.Fprintf(d.out, "⚠ %s\n", msg)
}

// PrintError displays error message
func (d *Display) PrintError(msg string) {
	errorColor.Fprintf(d.out, "✗ %s\n", msg)
}

// PrintSuccess displays success message
func (d *Display) PrintSuccess(msg string) {
	successColor.Fprintf(d.out, "✓ %s\n", msg)
}

// PrintGoodbye displays goodbye message
func (d *Display) PrintGoodbye() {
	titleColor.Fprintln(d.out, "\nThank you for using vidsum!")
}

// PrintVideo shows the metadata of a fetched video
func (d *Display) PrintVideo(v summarizer.Video) {
	fmt.Fprintln(d.out)
	titleColor.Fprintln(d.out, v.Title)
	if v.Info.Author != "" {
		fmt.Fprintf(d.out, "By %s\n", v.Info.Author)
	}
	meta := []string{FormatNumber(v.Info.Views) + " views"}
	if v.Info.PublishDate != "" {
		meta = append(meta, v.Info.PublishDate)
	}
	dimColor.Fprintln(d.out, strings.Join(meta, " · "))
	dimColor.Fprintln(d.out, v.URL)

	words := len(strings.Fields(v.Transcript))
	source := v.Source
	if source == "" {
		source = "unknown source"
	}
	dimColor.Fprintf(d.out, "Transcript: %d words (%s)\n", words, source)
}

// PrintSummary renders a summary as markdown
func (d *Display) PrintSummary(title string, s summarizer.Summary) {
	fmt.Fprintln(d.out)
	header := "Summary"
	if s.Format != "" && s.Format != api.FormatText {
		header += " (" + s.Format + ")"
	}
	if title != "" {
		header += " · " + title
	}
	titleColor.Fprintln(d.out, header)
	fmt.Fprintln(d.out, d.markdown(s.Text))
	if s.AudioURL != "" {
		dimColor.Fprintf(d.out, "Audio: %s\n", s.AudioURL)
	}
}

func (d *Display) markdown(text string) string {
	if strings.TrimSpace(text) == "" {
		return export.NoSummary
	}
	if d.renderer == nil {
		return text
	}
	rendered, err := d.renderer.Render(text)
	if err != nil {
		return text
	}
	return strings.TrimRight(rendered, "\n")
}

// RenderHistory draws one card per entry. It satisfies history.Renderer.
func (d *Display) RenderHistory(list history.List) {
	fmt.Fprintln(d.out)
	titleColor.Fprintln(d.out, "History")
	if len(list) == 0 {
		dimColor.Fprintln(d.out, "No history yet. Summaries you generate will appear here.")
		return
	}
	for i, entry := range list {
		fmt.Fprintln(d.out, d.card(i+1, entry))
	}
}

func (d *Display) card(n int, e history.Entry) string {
	cardStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(accentColor)).
		Padding(0, 1).
		Width(min(d.width, 100) - 2)
	heading := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(accentColor))
	muted := lipgloss.NewStyle().Foreground(lipgloss.Color(mutedColor))
	tag := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#ffffff")).
		Background(lipgloss.Color(accentColor)).
		Padding(0, 1)

	meta := muted.Render(FormatDate(e.Date)) + " " + tag.Render(e.FormatLabel())

	summary := history.NoSummaryLabel
	if e.HasSummary() {
		text, err := export.PlainText(export.FormatSummaryHTML(e.Summary))
		if err != nil {
			// fall back to the raw markdown
			text = e.Summary
		}
		summary = export.Preview(text, previewWords)
	}

	body := lipgloss.JoinVertical(lipgloss.Left,
		heading.Render(fmt.Sprintf("%d. %s", n, e.Title)),
		meta,
		"",
		summary,
		"",
		muted.Render(e.URL),
		muted.Render("thumbnail: "+e.Thumbnail),
		muted.Render(cardActions),
	)
	return cardStyle.Render(body)
}

// FormatDate renders a stored date the way history cards show it
func FormatDate(date string) string {
	t := history.Entry{Date: date}.Time()
	if t.IsZero() {
		return date
	}
	return t.Local().Format(dateLayoutOut)
}

// FormatNumber abbreviates view counts: 1.2M, 3.4K, or plain digits
func FormatNumber(n int64) string {
	switch {
	case n == 0:
		return "0"
	case n >= 1_000_000:
		return strconv.FormatFloat(float64(n)/1_000_000, 'f', 1, 64) + "M"
	case n >= 1_000:
		return strconv.FormatFloat(float64(n)/1_000, 'f', 1, 64) + "K"
	default:
		return strconv.FormatInt(n, 10)
	}
}

// FormatDuration renders elapsed time for status lines
func FormatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}

func terminalWidth() int {
	fd := int(os.Stdout.Fd())
	if !term.IsTerminal(fd) {
		return defaultWidth
	}
	w, _, err := term.GetSize(fd)
	if err != nil || w <= 0 {
		return defaultWidth
	}
	return w
}
