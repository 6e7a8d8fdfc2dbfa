// Package tap defines the physical descriptors that connect a flow to the
// outside world. A Tap names one concrete location (a file today; the
// interface leaves room for remote stores) and knows how to read and write
// the records stored there.
//
// Records are cty object values. Keeping rows in the cty type system means
// operator arguments written as HCL expressions can evaluate directly
// against record fields, and snapshot files round-trip without a separate
// schema registry.
package tap

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/zclconf/go-cty/cty"
)

// Record is a single row flowing through the pipeline. It must be an
// object-typed cty.Value; field names are the record's columns.
type Record = cty.Value

// Tap is a physical source or sink location. The same Tap value may be
// bound into several flows at once; implementations must not carry
// per-flow state.
type Tap interface {
	// Location returns the physical address of the tap, unique per tap.
	Location() string
	// ReadAll reads every record stored at the tap's location.
	ReadAll(ctx context.Context) ([]Record, error)
	// WriteAll replaces the tap's contents with the given records.
	WriteAll(ctx context.Context, recs []Record) error
}

// ForPath selects a tap implementation from the path's extension.
// Unrecognised extensions default to JSON Lines.
func ForPath(path string) Tap {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return CSV(path)
	default:
		return JSONLines(path)
	}
}

// Fields returns the record's column names in lexical order. Deterministic
// ordering keeps sink output and log lines stable across runs.
func Fields(rec Record) []string {
	if !rec.Type().IsObjectType() {
		return nil
	}
	attrs := rec.Type().AttributeTypes()
	names := make([]string, 0, len(attrs))
	for name := range attrs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// validate rejects records that are not concrete object values before they
// reach a codec.
func validate(rec Record) error {
	if rec.IsNull() || !rec.IsKnown() {
		return fmt.Errorf("record must be a known, non-null value")
	}
	if !rec.Type().IsObjectType() {
		return fmt.Errorf("record must be an object value, got %s", rec.Type().FriendlyName())
	}
	return nil
}
