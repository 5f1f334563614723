// Package searcher answers single-term lookups against the loaded index.
//
// The engine starts Unbuilt and becomes Ready exactly once, when Load hands it
// a built index. There is no way back: the index is never replaced or torn
// down while the process runs, so lookups need no locking.
package searcher

import (
	"log/slog"
	"sync/atomic"

	"github.com/Adithya-Monish-Kumar-K/pagesearch/internal/indexer/index"
	apperrors "github.com/Adithya-Monish-Kumar-K/pagesearch/pkg/errors"
)

type State int

const (
	StateUnbuilt State = iota
	StateReady
)

func (s State) String() string {
	switch s {
	case StateUnbuilt:
		return "unbuilt"
	case StateReady:
		return "ready"
	default:
		return "unknown"
	}
}

type Engine struct {
	idx    atomic.Pointer[index.Index]
	logger *slog.Logger
}

func New() *Engine {
	return &Engine{
		logger: slog.Default().With("component", "search-engine"),
	}
}

// NewReady returns an engine already loaded with idx.
func NewReady(idx *index.Index) *Engine {
	e := New()
	e.idx.Store(idx)
	return e
}

// Load moves the engine from Unbuilt to Ready. It fails with
// ErrAlreadyLoaded on every call after the first successful one.
func (e *Engine) Load(idx *index.Index) error {
	if idx == nil {
		return apperrors.New(apperrors.ErrInvalidInput, "nil index")
	}
	if !e.idx.CompareAndSwap(nil, idx) {
		return apperrors.ErrAlreadyLoaded
	}
	stats := idx.Stats()
	e.logger.Info("index loaded, engine ready",
		"terms", stats.Terms,
		"documents", stats.Documents,
		"pages", stats.Pages,
		"fingerprint", idx.Fingerprint(),
	)
	return nil
}

func (e *Engine) State() State {
	if e.idx.Load() == nil {
		return StateUnbuilt
	}
	return StateReady
}

// Search returns the records for word, most occurrences first. The word is
// matched exactly; callers lower-case it. An absent word yields an empty,
// non-nil slice.
func (e *Engine) Search(word string) ([]index.LocationRecord, error) {
	idx := e.idx.Load()
	if idx == nil {
		return nil, apperrors.ErrNotReady
	}
	return idx.Lookup(word), nil
}

// Fingerprint returns the loaded index fingerprint, or "" while Unbuilt.
func (e *Engine) Fingerprint() string {
	if idx := e.idx.Load(); idx != nil {
		return idx.Fingerprint()
	}
	return ""
}

// Stats reports index statistics; ok is false while Unbuilt.
func (e *Engine) Stats() (stats index.Stats, ok bool) {
	if idx := e.idx.Load(); idx != nil {
		return idx.Stats(), true
	}
	return index.Stats{}, false
}
