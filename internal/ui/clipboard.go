package ui

import (
	"errors"
	"strings"

	"github.com/atotto/clipboard"
)

// ErrClipboardUnavailable is returned when no system clipboard tool exists
var ErrClipboardUnavailable = errors.New("clipboard is not available on this system")

// ErrNothingToCopy is returned for an empty text
var ErrNothingToCopy = errors.New("nothing to copy")

var writeClipboard = clipboard.WriteAll

// CopyToClipboard places text on the system clipboard
func CopyToClipboard(text string) error {
	if strings.TrimSpace(text) == "" {
		return ErrNothingToCopy
	}
	if clipboard.Unsupported {
		return ErrClipboardUnavailable
	}
	return writeClipboard(text)
}
