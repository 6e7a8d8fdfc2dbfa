// Package localexecutor provides the in-process reference implementation of
// the executor contract. It schedules a flow's nodes over a worker pool,
// feeds source taps into head nodes, runs operator handlers, and writes
// every sink tap.
package localexecutor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/vk/flowsnapgo/internal/ctxlog"
	"github.com/vk/flowsnapgo/internal/executor"
	"github.com/vk/flowsnapgo/internal/flow"
	"github.com/vk/flowsnapgo/internal/lineage"
	"github.com/vk/flowsnapgo/internal/registry"
	"github.com/vk/flowsnapgo/internal/tap"
)

// node execution states.
const (
	statePending int32 = iota
	stateRunning
	stateDone
	stateFailed
)

// runNode carries the mutable per-run state for one flow node. Flow nodes
// are immutable and shared between containers, so counters, outputs, and
// errors live here instead.
type runNode struct {
	node       *flow.Node
	deps       []*runNode
	dependents []*runNode

	depCount atomic.Int32
	state    atomic.Int32
	err      error
	output   []tap.Record
	skipOnce sync.Once
}

// Executor runs flows in-process against a registry of operator handlers.
type Executor struct {
	registry   *registry.Registry
	numWorkers int
}

// New creates a local executor with the given worker count. Counts below
// one are clamped to one.
func New(reg *registry.Registry, workers int) *Executor {
	if workers < 1 {
		workers = 1
	}
	return &Executor{registry: reg, numWorkers: workers}
}

var _ executor.Executor = (*Executor)(nil)

// Execute runs every node reachable from f's sinks, then writes each sink
// tap. It blocks until all work finishes or fails, and never mutates f or
// its nodes.
func (e *Executor) Execute(ctx context.Context, f *flow.Flow) error {
	logger := ctxlog.FromContext(ctx)

	sinks := f.Sinks()
	if len(sinks) == 0 {
		logger.Debug("Flow has no sinks, nothing to execute.")
		return nil
	}

	runNodes, err := e.plan(f, sinks)
	if err != nil {
		return err
	}
	logger.Debug("Execution plan ready.", "nodes", len(runNodes), "sinks", len(sinks))

	if err := e.runPool(ctx, f, runNodes); err != nil {
		return err
	}

	byNode := make(map[*flow.Node]*runNode, len(runNodes))
	for _, rn := range runNodes {
		byNode[rn.node] = rn
	}
	for _, b := range sinks {
		rn := byNode[b.Node]
		logger.Debug("Writing sink.", "sink", b.ID, "records", len(rn.output), "location", b.Tap.Location())
		if err := b.Tap.WriteAll(ctx, rn.output); err != nil {
			return fmt.Errorf("writing sink %q: %w", b.ID, err)
		}
	}
	return nil
}

// plan builds the run-state graph for every node reachable from the sinks.
func (e *Executor) plan(f *flow.Flow, sinks []flow.SinkBinding) ([]*runNode, error) {
	needed := make(map[*flow.Node]struct{})
	for _, b := range sinks {
		visited, _, err := lineage.Reachable(b.Node, f)
		if err != nil {
			return nil, fmt.Errorf("planning sink %q: %w", b.ID, err)
		}
		for n := range visited {
			needed[n] = struct{}{}
		}
	}

	byNode := make(map[*flow.Node]*runNode, len(needed))
	runNodes := make([]*runNode, 0, len(needed))
	for n := range needed {
		rn := &runNode{node: n}
		byNode[n] = rn
		runNodes = append(runNodes, rn)
	}
	for _, rn := range runNodes {
		seen := make(map[*runNode]struct{})
		for _, up := range rn.node.Upstream() {
			dep := byNode[up]
			if _, dup := seen[dep]; dup {
				continue
			}
			seen[dep] = struct{}{}
			rn.deps = append(rn.deps, dep)
			dep.dependents = append(dep.dependents, rn)
		}
		rn.depCount.Store(int32(len(rn.deps)))
	}
	return runNodes, nil
}

// runPool executes the planned nodes over the worker pool and aggregates
// any failures into a single error.
func (e *Executor) runPool(ctx context.Context, f *flow.Flow, runNodes []*runNode) error {
	logger := ctxlog.FromContext(ctx)

	readyChan := make(chan *runNode, len(runNodes))
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	rootCount := 0
	for _, rn := range runNodes {
		if rn.depCount.Load() == 0 {
			readyChan <- rn
			rootCount++
		}
	}
	logger.Debug("Found root nodes.", "count", rootCount)

	var wg sync.WaitGroup
	wg.Add(len(runNodes))
	for i := 0; i < e.numWorkers; i++ {
		go e.worker(runCtx, f, readyChan, cancel, &wg, i)
	}
	wg.Wait()
	close(readyChan)

	var failed []string
	var rootCause error
	for _, rn := range runNodes {
		if rn.state.Load() != stateFailed {
			continue
		}
		logger.Error("Node failed execution.", "node", rn.node.String(), "error", rn.err)
		// Skip markers are symptoms; report the originating failure.
		if rn.err != nil && !strings.HasPrefix(rn.err.Error(), "skipped") && !errors.Is(rn.err, context.Canceled) {
			failed = append(failed, rn.node.String())
			if rootCause == nil {
				rootCause = rn.err
			}
		}
	}
	if rootCause != nil {
		return fmt.Errorf("execution failed for %s: %w", strings.Join(failed, ", "), rootCause)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return nil
}

// worker is the processing loop for one pool worker.
func (e *Executor) worker(ctx context.Context, f *flow.Flow, readyChan chan *runNode, cancel context.CancelFunc, wg *sync.WaitGroup, workerID int) {
	logger := ctxlog.FromContext(ctx)

	for rn := range readyChan {
		workerLogger := logger.With("workerID", workerID, "node", rn.node.String())

		if ctx.Err() != nil {
			rn.skipOnce.Do(func() {
				workerLogger.Warn("Context canceled, skipping node execution.")
				rn.state.Store(stateFailed)
				rn.err = ctx.Err()
				wg.Done()
				e.skipDependents(ctx, rn, wg)
			})
			continue
		}

		rn.state.Store(stateRunning)
		out, err := e.executeNode(ctx, f, rn)
		if err != nil {
			workerLogger.Error("Node execution failed.", "error", err)
			rn.state.Store(stateFailed)
			rn.err = err
			cancel()
			e.skipDependents(ctx, rn, wg)
			wg.Done()
			continue
		}

		rn.output = out
		rn.state.Store(stateDone)
		workerLogger.Debug("Node execution succeeded.", "records", len(out))

		for _, dependent := range rn.dependents {
			if dependent.depCount.Add(-1) == 0 {
				readyChan <- dependent
			}
		}
		wg.Done()
	}
}

// skipDependents marks all downstream nodes as failed exactly once.
func (e *Executor) skipDependents(ctx context.Context, rn *runNode, wg *sync.WaitGroup) {
	logger := ctxlog.FromContext(ctx)
	for _, dependent := range rn.dependents {
		dependent.skipOnce.Do(func() {
			logger.Warn("Skipping dependent node due to upstream failure.", "node", dependent.node.String(), "dependency", rn.node.String())
			dependent.state.Store(stateFailed)
			dependent.err = fmt.Errorf("skipped due to upstream failure of %s", rn.node.String())
			wg.Done()
			e.skipDependents(ctx, dependent, wg)
		})
	}
}

// executeNode produces one node's output: bound head nodes read their
// source tap, everything else runs its registered operator handler over the
// upstream outputs.
func (e *Executor) executeNode(ctx context.Context, f *flow.Flow, rn *runNode) ([]tap.Record, error) {
	n := rn.node

	if n.IsHead() {
		if bindings := f.SourcesFor(n); len(bindings) > 0 {
			// Several ids may share the entry node; they are required to
			// name the same physical location, so the first suffices.
			recs, err := bindings[0].Tap.ReadAll(ctx)
			if err != nil {
				return nil, fmt.Errorf("reading source %q: %w", bindings[0].ID, err)
			}
			return recs, nil
		}
	}

	fn, err := e.registry.Lookup(n.Kind())
	if err != nil {
		return nil, fmt.Errorf("node %s: %w", n.String(), err)
	}

	byNode := make(map[*flow.Node][]tap.Record, len(rn.deps))
	for _, dep := range rn.deps {
		byNode[dep.node] = dep.output
	}
	upstream := n.Upstream()
	inputs := make([][]tap.Record, len(upstream))
	for i, up := range upstream {
		inputs[i] = byNode[up]
	}

	out, err := fn(ctx, registry.NewParams(n.Params()), inputs...)
	if err != nil {
		return nil, fmt.Errorf("node %s: %w", n.String(), err)
	}
	return out, nil
}
