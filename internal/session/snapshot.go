package session

import (
	"context"

	"github.com/zclconf/go-cty/cty"

	"github.com/vk/flowsnapgo/internal/ctxlog"
	"github.com/vk/flowsnapgo/internal/flow"
	"github.com/vk/flowsnapgo/internal/lineage"
	"github.com/vk/flowsnapgo/internal/subflow"
	"github.com/vk/flowsnapgo/internal/tap"
)

// Source is the handle a successful snapshot returns: the materialized
// records at a temporary sink, readable as a new pipeline source.
type Source struct {
	// SinkID is the unique id the snapshot sink was bound under.
	SinkID string
	// Tap reads the materialized records. The data persists until the
	// caller or an external janitor removes it.
	Tap tap.Tap
}

// AddTo registers the materialized data as a logical source in f and
// returns the new entry node, ready for further chaining.
func (src *Source) AddTo(f *flow.Flow, id string) (*flow.Node, error) {
	entry := flow.NewNode("source", id, cty.NilVal)
	if err := f.AddNode(entry); err != nil {
		return nil, err
	}
	if err := f.BindSource(id, src.Tap, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// Snapshot materializes terminal's output in isolation: it extracts the
// terminal's lineage from the active flow, assembles a disposable flow with
// one temporary sink, swaps it in as active, executes it, and restores the
// original flow before returning, whether execution succeeded or not.
//
// Failure modes: *lineage.UnknownNodeError when terminal is not in the
// active flow, *subflow.InvalidTerminalError for structurally unusable
// terminals, and *ExecutionError wrapping any executor failure. In every
// case the active flow is already restored when the error reaches the
// caller.
func (s *Session) Snapshot(ctx context.Context, terminal *flow.Node) (*Source, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked(ctx, terminal)
}

func (s *Session) snapshotLocked(ctx context.Context, terminal *flow.Node) (*Source, error) {
	logger := ctxlog.FromContext(ctx)
	orig := s.active

	visited, heads, err := lineage.Reachable(terminal, orig)
	if err != nil {
		return nil, err
	}
	sourceIDs := lineage.ResolveSources(heads, orig)
	logger.Debug("Lineage resolved.", "terminal", terminal.String(), "nodes", len(visited), "heads", len(heads), "sources", sourceIDs)

	sub, sinkID, err := subflow.Build(terminal, visited, sourceIDs, orig, s.staging)
	if err != nil {
		return nil, err
	}
	sink, _ := sub.Sink(sinkID)
	logger.Debug("Sub-flow built.", "sink", sinkID, "location", sink.Tap.Location())

	// Swap in the disposable flow for the duration of execution. The defer
	// is the guaranteed-release half of the swap: the original flow comes
	// back on success, failure, cancellation, or panic.
	s.active = sub
	execErr := func() error {
		defer func() { s.active = orig }()
		return s.exec.Execute(ctx, sub)
	}()
	if execErr != nil {
		logger.Warn("Snapshot execution failed; active flow restored.", "terminal", terminal.String(), "error", execErr)
		return nil, &ExecutionError{SinkID: sinkID, Err: execErr}
	}

	logger.Info("Snapshot materialized.", "terminal", terminal.String(), "sink", sinkID, "location", sink.Tap.Location())
	return &Source{SinkID: sinkID, Tap: sink.Tap}, nil
}

// MaterializeAndList snapshots terminal and eagerly reads every record of
// the result into memory, for small-result interactive inspection. Results
// larger than the session's collect limit fail with *ResultTooLargeError;
// prefer Snapshot for large outputs.
func (s *Session) MaterializeAndList(ctx context.Context, terminal *flow.Node) ([]tap.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	src, err := s.snapshotLocked(ctx, terminal)
	if err != nil {
		return nil, err
	}
	recs, err := src.Tap.ReadAll(ctx)
	if err != nil {
		return nil, err
	}
	if len(recs) > s.collectLimit {
		return nil, &ResultTooLargeError{Count: len(recs), Limit: s.collectLimit}
	}
	return recs, nil
}
