// Package registry maps operator kinds to the Go handlers that implement
// them. One registry is built per application instance; the executor
// consults it when a node of a given kind needs to run.
package registry

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/vk/flowsnapgo/internal/tap"
)

// OpFunc implements one operator kind. It receives the node's parameters
// and the output of each upstream node in input order, and returns the
// node's own output records. Handlers must treat inputs as read-only;
// record slices may be shared between nodes.
type OpFunc func(ctx context.Context, p Params, inputs ...[]tap.Record) ([]tap.Record, error)

// Module is the interface operator bundles implement to be registered.
type Module interface {
	Register(r *Registry)
}

// Registry holds the operator handlers for a single application instance.
type Registry struct {
	mu  sync.RWMutex
	ops map[string]OpFunc
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{ops: make(map[string]OpFunc)}
}

// Register binds kind to fn, replacing any previous handler for the kind.
func (r *Registry) Register(kind string, fn OpFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ops[kind] = fn
}

// Lookup returns the handler registered for kind.
func (r *Registry) Lookup(kind string) (OpFunc, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.ops[kind]
	if !ok {
		return nil, fmt.Errorf("unknown operator kind %q", kind)
	}
	return fn, nil
}

// Kinds returns every registered kind, sorted.
func (r *Registry) Kinds() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	kinds := make([]string, 0, len(r.ops))
	for k := range r.ops {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}
