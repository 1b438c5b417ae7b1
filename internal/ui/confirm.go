package ui

import (
	"io"

	"github.com/manifoldco/promptui"
)

// PromptConfirmer asks a yes/no question on the terminal. It satisfies
// history.Confirmer.
type PromptConfirmer struct {
	// Stdin and Stdout default to the process streams when nil
	Stdin  io.ReadCloser
	Stdout io.WriteCloser
}

// Confirm returns true only when the user answers yes
func (p PromptConfirmer) Confirm(prompt string) bool {
	q := promptui.Prompt{
		Label:     prompt,
		IsConfirm: true,
		Stdin:     p.Stdin,
		Stdout:    p.Stdout,
	}
	_, err := q.Run()
	return err == nil
}
