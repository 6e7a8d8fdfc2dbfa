// Package hcl implements the config.Loader interface for HCL pipeline
// files. It parses `source`, `op`, and `sink` blocks and translates them
// into the format-agnostic config model.
package hcl

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/vk/flowsnapgo/internal/config"
	"github.com/vk/flowsnapgo/internal/ctxlog"
	"github.com/vk/flowsnapgo/internal/fsutil"
	"github.com/vk/flowsnapgo/internal/schema"
)

// Loader loads pipeline definitions from .hcl files.
type Loader struct{}

// NewLoader creates a new HCL loader.
func NewLoader() *Loader {
	return &Loader{}
}

var _ config.Loader = (*Loader)(nil)

// Load parses every .hcl file under the given paths, in path order, and
// merges their blocks into a single pipeline model. Declaration order is
// preserved within and across files.
func (l *Loader) Load(ctx context.Context, paths ...string) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)

	var files []string
	for _, p := range paths {
		found, err := fsutil.CollectFiles(p, ".hcl")
		if err != nil {
			return nil, fmt.Errorf("collecting pipeline files from %s: %w", p, err)
		}
		files = append(files, found...)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no .hcl pipeline files found in %v", paths)
	}
	logger.Debug("Parsing pipeline files.", "count", len(files))

	parser := hclparse.NewParser()
	pipeline := &config.Pipeline{}
	for _, file := range files {
		f, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, fmt.Errorf("parsing %s: %s", file, diags.Error())
		}

		var raw schema.PipelineConfig
		if diags := gohcl.DecodeBody(f.Body, nil, &raw); diags.HasErrors() {
			return nil, fmt.Errorf("decoding %s: %s", file, diags.Error())
		}

		for _, s := range raw.Sources {
			pipeline.Sources = append(pipeline.Sources, translateSource(s))
		}
		for _, o := range raw.Ops {
			op, err := translateOp(o)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", file, err)
			}
			pipeline.Ops = append(pipeline.Ops, op)
		}
		for _, s := range raw.Sinks {
			pipeline.Sinks = append(pipeline.Sinks, translateSink(s))
		}
	}

	logger.Debug("Pipeline model loaded.",
		"sources", len(pipeline.Sources), "ops", len(pipeline.Ops), "sinks", len(pipeline.Sinks))
	return &config.Model{Pipeline: pipeline}, nil
}
