package recognition

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
)

// Source loads a complete reference set from persistent storage.
type Source interface {
	Load(ctx context.Context) (*ReferenceSet, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context) (*ReferenceSet, error)

func (f SourceFunc) Load(ctx context.Context) (*ReferenceSet, error) { return f(ctx) }

// Registry publishes the reference set currently used for classification.
// Reloads build a new set and swap the pointer; a set already handed to a
// caller stays valid and unchanged for as long as the caller holds it.
type Registry struct {
	source  Source
	current atomic.Pointer[ReferenceSet]
	// serializes reloads; readers never take it
	reloadMu sync.Mutex
}

// NewRegistry returns a registry with no reference set loaded. source may be
// nil when sets are only installed with Swap.
func NewRegistry(source Source) *Registry {
	return &Registry{source: source}
}

// Current returns the active set, or nil if none has been loaded.
func (r *Registry) Current() *ReferenceSet { return r.current.Load() }

// Swap installs set and returns the previous one.
func (r *Registry) Swap(set *ReferenceSet) *ReferenceSet { return r.current.Swap(set) }

// Reload loads a fresh set from the source and installs it. On failure the
// previous set stays active.
func (r *Registry) Reload(ctx context.Context) (*ReferenceSet, error) {
	if r.source == nil {
		return nil, fmt.Errorf("reload reference set: no source configured")
	}
	r.reloadMu.Lock()
	defer r.reloadMu.Unlock()

	set, err := r.source.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("reload reference set: %w", err)
	}
	prev := r.current.Swap(set)
	slog.Info("reference set loaded",
		"identities", set.Len(),
		"dimension", set.Dim(),
		"previous_identities", prev.Len(),
	)
	return set, nil
}

// Classify validates query and classifies it against the current set. The
// set is read once, so a concurrent reload cannot split validation and
// classification across two different sets.
func (r *Registry) Classify(query []float64) (Result, error) {
	set := r.Current()
	if err := set.CheckQuery(query); err != nil {
		return Result{}, err
	}
	return Classify(set, query), nil
}
