package app

import (
	"context"
	"fmt"

	"github.com/vk/flowsnapgo/internal/config"
	"github.com/vk/flowsnapgo/internal/ctxlog"
	"github.com/vk/flowsnapgo/internal/flow"
	"github.com/vk/flowsnapgo/internal/session"
	"github.com/vk/flowsnapgo/internal/tap"
)

// assemble replays a pipeline model into a session, statement by statement:
// sources become bound head nodes, ops become operator nodes wired to their
// named inputs, sinks bind op outputs to output taps. It returns the
// name-to-node index used to address nodes from the CLI.
func assemble(ctx context.Context, sess *session.Session, p *config.Pipeline) (map[string]*flow.Node, error) {
	logger := ctxlog.FromContext(ctx)
	byName := make(map[string]*flow.Node)

	for _, src := range p.Sources {
		if _, exists := byName[src.ID]; exists {
			return nil, fmt.Errorf("duplicate pipeline name %q", src.ID)
		}
		t, err := tapFor(src.Path, src.Format)
		if err != nil {
			return nil, fmt.Errorf("source %q: %w", src.ID, err)
		}
		entry, err := sess.BindSource(src.ID, t)
		if err != nil {
			return nil, err
		}
		byName[src.ID] = entry
		logger.Debug("Bound source.", "id", src.ID, "location", t.Location())
	}

	for _, op := range p.Ops {
		if _, exists := byName[op.Name]; exists {
			return nil, fmt.Errorf("duplicate pipeline name %q", op.Name)
		}
		upstream := make([]*flow.Node, len(op.Inputs))
		for i, in := range op.Inputs {
			n, ok := byName[in]
			if !ok {
				return nil, fmt.Errorf("op %q references unknown input %q", op.Name, in)
			}
			upstream[i] = n
		}
		n, err := sess.NewNode(op.Kind, op.Name, op.Params, upstream...)
		if err != nil {
			return nil, err
		}
		byName[op.Name] = n
		logger.Debug("Added op.", "kind", op.Kind, "name", op.Name, "inputs", op.Inputs)
	}

	for _, sink := range p.Sinks {
		n, ok := byName[sink.Node]
		if !ok {
			return nil, fmt.Errorf("sink %q references unknown node %q", sink.ID, sink.Node)
		}
		if err := sess.BindSink(sink.ID, tap.ForPath(sink.Path), n); err != nil {
			return nil, err
		}
		logger.Debug("Bound sink.", "id", sink.ID, "node", sink.Node, "path", sink.Path)
	}

	return byName, nil
}

// tapFor selects a tap from an explicit format, falling back to the path's
// extension.
func tapFor(path, format string) (tap.Tap, error) {
	switch format {
	case "":
		return tap.ForPath(path), nil
	case "csv":
		return tap.CSV(path), nil
	case "jsonl":
		return tap.JSONLines(path), nil
	default:
		return nil, fmt.Errorf("unsupported source format %q", format)
	}
}
