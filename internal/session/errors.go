package session

import (
	"fmt"

	"github.com/dustin/go-humanize"
)

// ExecutionError reports that the executor step of a snapshot failed. By
// the time this error reaches the caller the original active flow has
// already been restored.
type ExecutionError struct {
	// SinkID identifies the temporary sink the failed run was writing.
	SinkID string
	// Err is the underlying executor failure.
	Err error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("snapshot execution failed (sink %s): %v", e.SinkID, e.Err)
}

func (e *ExecutionError) Unwrap() error { return e.Err }

// ResultTooLargeError reports that a snapshot succeeded but its result set
// exceeded the session's in-memory collect limit. The computation itself
// did not fail; callers wanting the data should use Snapshot and read the
// returned tap incrementally.
type ResultTooLargeError struct {
	Count int
	Limit int
}

func (e *ResultTooLargeError) Error() string {
	return fmt.Sprintf("snapshot result has %s records, above the %s-record collect limit",
		humanize.Comma(int64(e.Count)), humanize.Comma(int64(e.Limit)))
}
