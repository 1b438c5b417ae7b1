package summarizer

import (
	"errors"

	"vidsum/internal/api"
)

// InputError is a user-input problem caught before any network call
type InputError struct {
	Message string
}

func (e *InputError) Error() string { return e.Message }

func inputError(msg string) error { return &InputError{Message: msg} }

// Kind classifies a failed action
type Kind int

const (
	KindUnexpected Kind = iota // transport or malformed response
	KindInput                  // rejected before any request
	KindBackend                // backend reported an error
)

// Classify reports the kind of err
func Classify(err error) Kind {
	var inErr *InputError
	if errors.As(err, &inErr) {
		return KindInput
	}
	var apiErr *api.Error
	if errors.As(err, &apiErr) {
		return KindBackend
	}
	return KindUnexpected
}

// FetchMessage is the notice shown when FetchVideo fails
func FetchMessage(err error) string {
	switch Classify(err) {
	case KindInput, KindBackend:
		return err.Error()
	default:
		return "Error fetching video details. Please try again."
	}
}

// SummaryMessage is the notice shown when Summarize fails
func SummaryMessage(err error) string {
	var apiErr *api.Error
	switch {
	case Classify(err) == KindInput:
		return err.Error()
	case errors.As(err, &apiErr) && apiErr.Status >= 200 && apiErr.Status < 300:
		// {error} body on a success status is shown as is
		return apiErr.Message
	default:
		msg := err.Error()
		if msg == "" {
			msg = "Unknown error"
		}
		return "Failed to generate summary: " + msg
	}
}
