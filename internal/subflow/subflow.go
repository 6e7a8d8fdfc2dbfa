// Package subflow assembles the disposable flow a snapshot runs against:
// the terminal's lineage, the same physical source taps, and one fresh
// temporary sink.
package subflow

import (
	"fmt"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/vk/flowsnapgo/internal/flow"
	"github.com/vk/flowsnapgo/internal/tap"
)

// InvalidTerminalError reports a terminal whose lineage is structurally
// unusable as a sub-flow.
type InvalidTerminalError struct {
	Reason string
}

func (e *InvalidTerminalError) Error() string {
	return fmt.Sprintf("invalid snapshot terminal: %s", e.Reason)
}

// Build creates a fresh flow containing exactly the visited node set,
// rebinds the resolved sources from orig (same tap values, not copies), and
// attaches one uniquely named temporary sink to terminal under stagingRoot.
//
// Nodes are shared by reference between orig and the sub-flow; this is safe
// because nodes are immutable. Build never mutates orig.
func Build(terminal *flow.Node, visited map[*flow.Node]struct{}, sourceIDs []string, orig *flow.Flow, stagingRoot string) (*flow.Flow, string, error) {
	if terminal == nil {
		return nil, "", &InvalidTerminalError{Reason: "terminal is nil"}
	}
	if len(visited) == 0 {
		return nil, "", &InvalidTerminalError{Reason: "terminal has no lineage"}
	}
	if _, ok := visited[terminal]; !ok {
		return nil, "", &InvalidTerminalError{Reason: "terminal is missing from its own lineage"}
	}

	sub := flow.New()
	for n := range visited {
		if err := sub.AddNode(n); err != nil {
			return nil, "", err
		}
	}

	for _, id := range sourceIDs {
		b, ok := orig.Source(id)
		if !ok {
			return nil, "", fmt.Errorf("resolved source %q is not registered in the original flow", id)
		}
		if err := sub.BindSource(b.ID, b.Tap, b.Entry); err != nil {
			return nil, "", fmt.Errorf("rebinding source %q: %w", id, err)
		}
	}

	sinkID := "snapshot-" + uuid.NewString()
	sinkTap := tap.JSONLines(filepath.Join(stagingRoot, sinkID+".jsonl"))
	if err := sub.BindSink(sinkID, sinkTap, terminal); err != nil {
		return nil, "", fmt.Errorf("binding temporary sink: %w", err)
	}
	return sub, sinkID, nil
}
