package terminal

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"golang.org/x/term"
)

const clearLine = "\033[2K"

var spinnerChars = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// Spinner shows an in-progress label while a request runs
type Spinner struct {
	out      io.Writer
	interval time.Duration

	mu     sync.Mutex
	active bool
	done   chan struct{}
	wg     sync.WaitGroup
}

// NewSpinner creates a spinner writing to w
func NewSpinner(w io.Writer) *Spinner {
	return &Spinner{out: w, interval: 80 * time.Millisecond}
}

// Start shows the spinner with msg, replacing any running one
func (s *Spinner) Start(msg string) {
	s.Stop()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = true
	s.done = make(chan struct{})
	s.wg.Add(1)

	go func(done <-chan struct{}) {
		defer s.wg.Done()
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for i := 0; ; i = (i + 1) % len(spinnerChars) {
			fmt.Fprintf(s.out, "\r\033[36m%s %s\033[0m", spinnerChars[i], msg)
			select {
			case <-done:
				fmt.Fprintf(s.out, "\r%s\r", clearLine)
				return
			case <-ticker.C:
			}
		}
	}(s.done)
}

// Stop clears the spinner line. Calling it when idle is a no-op.
func (s *Spinner) Stop() {
	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return
	}
	s.active = false
	close(s.done)
	s.mu.Unlock()
	s.wg.Wait()
}

// Active reports whether the spinner is running
func (s *Spinner) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// IsTerminal checks if stdout is a terminal
func IsTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}
