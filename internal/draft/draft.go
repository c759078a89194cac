// Package draft keeps short-lived local buffers of in-progress edits,
// debounced so a caller can save on every keystroke-equivalent change.
// Only the last save inside the quiet window is persisted; intermediate
// contents are superseded, not queued. Drafts are pure client-local state
// and are never transmitted by the sync engine.
package draft

import (
	"log/slog"
	"sync"
	"time"

	"github.com/scribesync/scribe/internal/clock"
	"github.com/scribesync/scribe/internal/models"
	"github.com/scribesync/scribe/internal/store"
)

const defaultQuiet = 2 * time.Second

// Saver debounces draft writes per scope on top of the durable store.
type Saver struct {
	st    *store.Store
	clk   clock.Clock
	quiet time.Duration

	mu      sync.Mutex
	pending map[models.ScopeKey]*pendingSave
	closed  bool
}

type pendingSave struct {
	content string
	timer   clock.Timer
}

// NewSaver creates a Saver with the given quiet window. A non-positive
// quiet falls back to the default.
func NewSaver(st *store.Store, clk clock.Clock, quiet time.Duration) *Saver {
	if quiet <= 0 {
		quiet = defaultQuiet
	}
	return &Saver{
		st:      st,
		clk:     clk,
		quiet:   quiet,
		pending: make(map[models.ScopeKey]*pendingSave),
	}
}

// Save records content for a scope and (re)starts its quiet window. The
// write happens only once the window elapses without another Save for the
// same scope. Persistence failures are logged, never raised: the user
// still has the content in the live editor.
func (s *Saver) Save(scope models.ScopeKey, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	if p, ok := s.pending[scope]; ok {
		p.content = content
		p.timer.Stop()
		p.timer = s.clk.AfterFunc(s.quiet, func() { s.flushScope(scope) })
		return
	}

	p := &pendingSave{content: content}
	p.timer = s.clk.AfterFunc(s.quiet, func() { s.flushScope(scope) })
	s.pending[scope] = p
}

// Load returns the persisted draft for a scope, or nil when none exists.
// Pending unflushed content is not visible; the store is the source of
// truth for restore-after-crash.
func (s *Saver) Load(scope models.ScopeKey) (*models.Draft, error) {
	return s.st.GetDraft(scope)
}

// Clear drops both any pending save and the persisted draft for a scope.
// Called after a confirmed save or an explicit discard; idempotent.
func (s *Saver) Clear(scope models.ScopeKey) error {
	s.mu.Lock()
	if p, ok := s.pending[scope]; ok {
		p.timer.Stop()
		delete(s.pending, scope)
	}
	s.mu.Unlock()
	return s.st.DeleteDraft(scope)
}

// Flush persists all pending saves immediately, bypassing their windows.
func (s *Saver) Flush() {
	s.mu.Lock()
	scopes := make([]models.ScopeKey, 0, len(s.pending))
	for scope, p := range s.pending {
		p.timer.Stop()
		scopes = append(scopes, scope)
	}
	s.mu.Unlock()
	for _, scope := range scopes {
		s.flushScope(scope)
	}
}

// Close flushes pending saves and stops accepting new ones.
func (s *Saver) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()
	s.Flush()
}

// flushScope writes the latest content for one scope, if still pending.
func (s *Saver) flushScope(scope models.ScopeKey) {
	s.mu.Lock()
	p, ok := s.pending[scope]
	if !ok {
		s.mu.Unlock()
		return
	}
	delete(s.pending, scope)
	content := p.content
	now := s.clk.Now()
	s.mu.Unlock()

	if err := s.st.PutDraft(scope, content, now); err != nil {
		slog.Warn("draft save failed", "scope", scope.String(), "err", err)
	}
}
