// Package session owns the one piece of cross-call mutable state in the
// engine: the active flow slot. Interactive construction extends the active
// flow through the session; Snapshot temporarily swaps in a disposable flow,
// runs it, and restores the original on every exit path.
package session

import (
	"context"
	"os"
	"sync"

	"github.com/zclconf/go-cty/cty"

	"github.com/vk/flowsnapgo/internal/executor"
	"github.com/vk/flowsnapgo/internal/flow"
	"github.com/vk/flowsnapgo/internal/tap"
)

// defaultCollectLimit bounds MaterializeAndList's eager read-back.
const defaultCollectLimit = 100_000

// Options configures a session.
type Options struct {
	// StagingRoot is the directory temporary snapshot sinks are created
	// under. Defaults to the OS temp directory.
	StagingRoot string
	// CollectLimit caps how many records MaterializeAndList will hold in
	// memory. Zero means the default limit.
	CollectLimit int
}

// Session is one interactive pipeline-construction session. All methods are
// safe for concurrent use; the session lock serializes snapshot spans
// against graph extension, so a concurrent caller either observes the
// pre-snapshot flow or blocks until restoration.
type Session struct {
	mu           sync.Mutex
	active       *flow.Flow
	exec         executor.Executor
	staging      string
	collectLimit int
}

// New creates a session with an empty active flow.
func New(exec executor.Executor, opts Options) *Session {
	staging := opts.StagingRoot
	if staging == "" {
		staging = os.TempDir()
	}
	limit := opts.CollectLimit
	if limit <= 0 {
		limit = defaultCollectLimit
	}
	return &Session{
		active:       flow.New(),
		exec:         exec,
		staging:      staging,
		collectLimit: limit,
	}
}

// Active returns the session's current active flow.
func (s *Session) Active() *flow.Flow {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// NewNode constructs an operator node and registers it (with its lineage)
// into the active flow.
func (s *Session) NewNode(kind, name string, params cty.Value, upstream ...*flow.Node) (*flow.Node, error) {
	n := flow.NewNode(kind, name, params, upstream...)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.active.AddNode(n); err != nil {
		return nil, err
	}
	return n, nil
}

// BindSource creates a head node for a physical tap and registers it as a
// logical source in the active flow. The returned node is the source's
// entry point for further pipeline construction.
func (s *Session) BindSource(id string, t tap.Tap) (*flow.Node, error) {
	entry := flow.NewNode("source", id, cty.NilVal)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.active.AddNode(entry); err != nil {
		return nil, err
	}
	if err := s.active.BindSource(id, t, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// BindSink registers a sink capturing n's output in the active flow.
func (s *Session) BindSink(id string, t tap.Tap, n *flow.Node) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active.BindSink(id, t, n)
}

// Run executes the active flow in place, writing every registered sink.
// Unlike Snapshot it performs no swap; the active flow is handed to the
// executor directly.
func (s *Session) Run(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exec.Execute(ctx, s.active)
}
