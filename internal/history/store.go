package history

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"vidsum/internal/kv"
)

// DeletePrompt is shown before an entry is removed
const DeletePrompt = "Are you sure you want to delete this summary from your history?"

// Renderer displays the history list after every change
type Renderer interface {
	RenderHistory(list List)
}

// Confirmer asks the user to approve a destructive action
type Confirmer interface {
	Confirm(prompt string) bool
}

// ConfirmFunc adapts a plain function to Confirmer
type ConfirmFunc func(prompt string) bool

// Confirm calls f
func (f ConfirmFunc) Confirm(prompt string) bool { return f(prompt) }

// AlwaysConfirm approves every prompt
var AlwaysConfirm = ConfirmFunc(func(string) bool { return true })

// NopRenderer discards renders
type NopRenderer struct{}

// RenderHistory does nothing
func (NopRenderer) RenderHistory(List) {}

// Recorder is notified about every persisted mutation
type Recorder interface {
	HistoryWrite(op string)
}

// Store keeps a bounded, URL-deduplicated history in a single storage slot
type Store struct {
	storage  kv.Storage
	key      string
	renderer Renderer
	recorder Recorder
	logger   *slog.Logger
	now      func() time.Time

	// mu serializes read-modify-write cycles
	mu sync.Mutex
}

// Option configures a Store
type Option func(*Store)

// WithKey overrides the storage slot name
func WithKey(key string) Option {
	return func(s *Store) {
		if key != "" {
			s.key = key
		}
	}
}

// WithRenderer sets the renderer invoked after Save and Delete
func WithRenderer(r Renderer) Option {
	return func(s *Store) {
		if r != nil {
			s.renderer = r
		}
	}
}

// WithRecorder sets the mutation recorder
func WithRecorder(r Recorder) Option {
	return func(s *Store) { s.recorder = r }
}

// WithLogger sets the logger
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock overrides the time source used for empty dates
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// NewStore creates a history store on top of storage
func NewStore(storage kv.Storage, opts ...Option) *Store {
	s := &Store{
		storage:  storage,
		key:      DefaultKey,
		renderer: NopRenderer{},
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetRenderer swaps the renderer. Used when the display is built after the store.
func (s *Store) SetRenderer(r Renderer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r == nil {
		r = NopRenderer{}
	}
	s.renderer = r
}

// Save inserts entry at the front, replacing any entry with the same URL,
// and keeps at most MaxEntries.
func (s *Store) Save(ctx context.Context, entry Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.Date == "" {
		entry.Date = s.now().UTC().Format(time.RFC3339Nano)
	}

	list := s.read(ctx)
	list = slices.DeleteFunc(list, func(e Entry) bool { return e.URL == entry.URL })
	list = slices.Insert(list, 0, entry)
	if len(list) > MaxEntries {
		list = list[:MaxEntries]
	}

	if err := s.write(ctx, list); err != nil {
		return err
	}
	s.record("save")
	s.renderer.RenderHistory(sortByDate(list))
	return nil
}

// Load returns the stored entries ordered by date descending.
// Missing or malformed state yields an empty list.
func (s *Store) Load(ctx context.Context) List {
	s.mu.Lock()
	defer s.mu.Unlock()
	return sortByDate(s.read(ctx))
}

// Find returns the entry stored under url
func (s *Store) Find(ctx context.Context, url string) (Entry, bool) {
	for _, e := range s.Load(ctx) {
		if e.URL == url {
			return e, true
		}
	}
	return Entry{}, false
}

// Delete removes the entry for url after confirmation. It reports whether
// an entry was removed; a declined prompt or unknown url changes nothing.
func (s *Store) Delete(ctx context.Context, url string, confirmer Confirmer) (bool, error) {
	if confirmer == nil || !confirmer.Confirm(DeletePrompt) {
		return false, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.read(ctx)
	before := len(list)
	list = slices.DeleteFunc(list, func(e Entry) bool { return e.URL == url })
	if len(list) == before {
		return false, nil
	}

	if err := s.write(ctx, list); err != nil {
		return false, err
	}
	s.record("delete")
	s.renderer.RenderHistory(sortByDate(list))
	return true, nil
}

// Render loads the list and hands it to the renderer
func (s *Store) Render(ctx context.Context) {
	list := s.Load(ctx)
	s.mu.Lock()
	r := s.renderer
	s.mu.Unlock()
	r.RenderHistory(list)
}

// read loads the raw stored order (must be called with lock held)
func (s *Store) read(ctx context.Context) List {
	raw, found, err := s.storage.Get(ctx, s.key)
	if err != nil {
		s.logger.Warn("history: read failed, using empty list", slog.String("key", s.key), slog.Any("error", err))
		return List{}
	}
	if !found {
		return List{}
	}
	return Parse(raw)
}

// write persists list (must be called with lock held)
func (s *Store) write(ctx context.Context, list List) error {
	data, err := json.Marshal(list)
	if err != nil {
		return fmt.Errorf("failed to marshal history: %w", err)
	}
	if err := s.storage.Set(ctx, s.key, string(data)); err != nil {
		return fmt.Errorf("failed to write history: %w", err)
	}
	return nil
}

func (s *Store) record(op string) {
	if s.recorder != nil {
		s.recorder.HistoryWrite(op)
	}
}

// Parse decodes a serialized list. Anything other than a JSON array of
// entries decodes to an empty list.
func Parse(raw string) List {
	if raw == "" {
		return List{}
	}
	var list List
	if err := json.Unmarshal([]byte(raw), &list); err != nil || list == nil {
		return List{}
	}
	return list
}

// sortByDate returns a copy ordered by date descending; equal dates keep stored order
func sortByDate(list List) List {
	out := slices.Clone(list)
	if out == nil {
		out = List{}
	}
	slices.SortStableFunc(out, func(a, b Entry) int {
		return b.Time().Compare(a.Time())
	})
	return out
}
