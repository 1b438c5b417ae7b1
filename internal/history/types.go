package history

import (
	"time"
)

// MaxEntries is the number of entries kept in the history list
const MaxEntries = 10

// DefaultKey is the storage slot holding the serialized list
const DefaultKey = "videoHistory"

// List is the ordered history, most recent first
type List []Entry

// Entry represents one recorded video fetch or summary
type Entry struct {
	URL       string `json:"url"`
	Title     string `json:"title"`
	Thumbnail string `json:"thumbnail"`
	Summary   string `json:"summary,omitempty"`
	Format    string `json:"format,omitempty"` // "text", "bullet" or "detailed"
	Date      string `json:"date"`             // RFC 3339
}

// Time parses Date. Unparseable dates yield the zero time.
func (e Entry) Time() time.Time {
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, time.DateOnly} {
		if t, err := time.Parse(layout, e.Date); err == nil {
			return t
		}
	}
	return time.Time{}
}

// HasSummary reports whether a summary was generated for the entry
func (e Entry) HasSummary() bool {
	return e.Summary != ""
}

// Card labels for entries without a format or a summary
const (
	DefaultFormatLabel = "Standard"
	NoSummaryLabel     = "No summary available"
)

// FormatLabel is the format tag shown on a card
func (e Entry) FormatLabel() string {
	if e.Format == "" {
		return DefaultFormatLabel
	}
	return e.Format
}
