// Package flow holds the session's computation graph: immutable operator
// nodes, the registry binding logical sources to physical taps, and the
// Flow container that owns both. One Flow is "active" per session at any
// time; snapshots build a second, disposable Flow that shares the same node
// objects but never the container itself.
package flow

import (
	"fmt"
	"sort"
	"sync"

	"github.com/vk/flowsnapgo/internal/tap"
)

// SourceBinding maps a logical source id to the physical tap it reads and
// the node at which its records enter the graph.
type SourceBinding struct {
	ID    string
	Tap   tap.Tap
	Entry *Node
}

// SinkBinding maps a sink name to the physical tap it writes and the node
// whose output it captures.
type SinkBinding struct {
	ID   string
	Tap  tap.Tap
	Node *Node
}

// Flow is the mutable container for one pipeline graph. All operations are
// concurrency-safe; the node objects themselves are immutable and may be
// shared with other containers.
type Flow struct {
	mu      sync.RWMutex
	nodes   map[*Node]struct{}
	sources map[string]SourceBinding
	sinks   map[string]SinkBinding
}

// New creates an empty Flow.
func New() *Flow {
	return &Flow{
		nodes:   make(map[*Node]struct{}),
		sources: make(map[string]SourceBinding),
		sinks:   make(map[string]SinkBinding),
	}
}

// AddNode registers a node and, transitively, all of its producers. Adding
// a node twice is a no-op, so diamond-shaped graphs register cleanly.
func (f *Flow) AddNode(n *Node) error {
	if n == nil {
		return fmt.Errorf("cannot add nil node")
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	stack := []*Node{n}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if _, ok := f.nodes[cur]; ok {
			continue
		}
		f.nodes[cur] = struct{}{}
		stack = append(stack, cur.upstream...)
	}
	return nil
}

// BindSource registers a logical source: records read from t enter the
// graph at entry. The entry node must already be a member of the flow.
func (f *Flow) BindSource(id string, t tap.Tap, entry *Node) error {
	if t == nil {
		return fmt.Errorf("source %q: nil tap", id)
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.nodes[entry]; !ok {
		return fmt.Errorf("source %q: entry node %s is not part of this flow", id, entry)
	}
	f.sources[id] = SourceBinding{ID: id, Tap: t, Entry: entry}
	return nil
}

// BindSink registers a sink capturing n's output into t. The node must
// already be a member of the flow.
func (f *Flow) BindSink(id string, t tap.Tap, n *Node) error {
	if t == nil {
		return fmt.Errorf("sink %q: nil tap", id)
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.nodes[n]; !ok {
		return fmt.Errorf("sink %q: node %s is not part of this flow", id, n)
	}
	f.sinks[id] = SinkBinding{ID: id, Tap: t, Node: n}
	return nil
}

// Contains reports whether n is a member of the flow.
func (f *Flow) Contains(n *Node) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	_, ok := f.nodes[n]
	return ok
}

// Len returns the number of member nodes.
func (f *Flow) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.nodes)
}

// Nodes returns every member node in unspecified order.
func (f *Flow) Nodes() []*Node {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]*Node, 0, len(f.nodes))
	for n := range f.nodes {
		out = append(out, n)
	}
	return out
}

// Source returns the binding registered under id.
func (f *Flow) Source(id string) (SourceBinding, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	b, ok := f.sources[id]
	return b, ok
}

// Sink returns the binding registered under id.
func (f *Flow) Sink(id string) (SinkBinding, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	b, ok := f.sinks[id]
	return b, ok
}

// Sources returns all source bindings ordered by id.
func (f *Flow) Sources() []SourceBinding {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]SourceBinding, 0, len(f.sources))
	for _, b := range f.sources {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Sinks returns all sink bindings ordered by id.
func (f *Flow) Sinks() []SinkBinding {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]SinkBinding, 0, len(f.sinks))
	for _, b := range f.sinks {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// SourcesFor returns the bindings whose entry point is n, ordered by id.
// The same node may legitimately carry several logical source ids.
func (f *Flow) SourcesFor(n *Node) []SourceBinding {
	f.mu.RLock()
	defer f.mu.RUnlock()
	var out []SourceBinding
	for _, b := range f.sources {
		if b.Entry == n {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
