// Package executor defines the contract the snapshot coordinator consumes.
// It abstracts away whether a flow runs in-process or on a remote engine.
package executor

import (
	"context"

	"github.com/vk/flowsnapgo/internal/flow"
)

// Executor compiles and runs one flow to completion. Execute is synchronous:
// it blocks until every sink has been written or a failure occurred, and it
// respects cancellation of ctx. Internal parallelism is the executor's own
// concern; callers observe a single success-or-failure outcome.
type Executor interface {
	Execute(ctx context.Context, f *flow.Flow) error
}
