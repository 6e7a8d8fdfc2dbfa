// Package lineage implements the upstream reachability walk over a flow:
// given a terminal node, which ancestors and which registered sources feed
// it. The walk is a pure read; it never mutates the flow.
package lineage

import (
	"fmt"
	"sort"

	"github.com/vk/flowsnapgo/internal/flow"
)

// UnknownNodeError reports a terminal node that is not a member of the
// flow it was resolved against.
type UnknownNodeError struct {
	Node *flow.Node
}

func (e *UnknownNodeError) Error() string {
	return fmt.Sprintf("node %s is not part of the active flow", e.Node)
}

// Reachable walks upstream from terminal and returns every ancestor
// (terminal included) plus the subset of heads: reachable nodes with no
// producers of their own.
//
// Each node is visited at most once, so the walk terminates in linear time
// even under heavy fan-in. An explicit work stack keeps pathological graph
// depth from overflowing the goroutine stack.
func Reachable(terminal *flow.Node, f *flow.Flow) (visited map[*flow.Node]struct{}, heads []*flow.Node, err error) {
	if terminal == nil || !f.Contains(terminal) {
		return nil, nil, &UnknownNodeError{Node: terminal}
	}

	visited = make(map[*flow.Node]struct{})
	stack := []*flow.Node{terminal}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if _, seen := visited[n]; seen {
			continue
		}
		visited[n] = struct{}{}
		if n.IsHead() {
			heads = append(heads, n)
			continue
		}
		stack = append(stack, n.Upstream()...)
	}
	return visited, heads, nil
}

// ResolveSources returns the ids of every registered source whose entry
// node is one of heads, ordered for determinism. A head with no registry
// entry is not an error; it may be a literal in-memory construction. A node
// registered under several ids contributes each id.
func ResolveSources(heads []*flow.Node, f *flow.Flow) []string {
	var ids []string
	for _, h := range heads {
		for _, b := range f.SourcesFor(h) {
			ids = append(ids, b.ID)
		}
	}
	sort.Strings(ids)
	return ids
}
