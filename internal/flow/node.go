package flow

import (
	"fmt"

	"github.com/zclconf/go-cty/cty"
)

// Node is one stage of a pipeline: an immutable description of an operator
// and pointers to the nodes that produce its input.
//
// Nodes have reference identity. Two nodes built from identical arguments
// are distinct stages; the engine never compares nodes structurally. Because
// a node cannot be mutated after construction, the same *Node may be shared
// between a session's persistent flow and a disposable snapshot flow.
type Node struct {
	kind     string
	name     string
	params   cty.Value
	upstream []*Node
}

// NewNode constructs an operator node. kind selects the registered operator
// handler, name is an optional human-readable label, params is the
// operator's opaque argument value, and upstream lists the producing nodes
// in input order.
func NewNode(kind, name string, params cty.Value, upstream ...*Node) *Node {
	n := &Node{
		kind:   kind,
		name:   name,
		params: params,
	}
	if len(upstream) > 0 {
		n.upstream = make([]*Node, len(upstream))
		copy(n.upstream, upstream)
	}
	return n
}

// Kind returns the operator kind the node was constructed with.
func (n *Node) Kind() string { return n.kind }

// Name returns the node's human-readable label, possibly empty.
func (n *Node) Name() string { return n.name }

// Params returns the operator's argument value. Params is opaque to the
// lineage engine; only operator handlers interpret it.
func (n *Node) Params() cty.Value { return n.params }

// Upstream returns the node's producers in input order. The returned slice
// is a copy; callers cannot alter the node through it.
func (n *Node) Upstream() []*Node {
	if len(n.upstream) == 0 {
		return nil
	}
	out := make([]*Node, len(n.upstream))
	copy(out, n.upstream)
	return out
}

// IsHead reports whether the node has no producers.
func (n *Node) IsHead() bool { return len(n.upstream) == 0 }

// String identifies the node in logs and error messages.
func (n *Node) String() string {
	if n.name != "" {
		return fmt.Sprintf("%s.%s", n.kind, n.name)
	}
	return fmt.Sprintf("%s@%p", n.kind, n)
}
