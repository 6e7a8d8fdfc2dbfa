// Package schema declares the HCL block structures of a pipeline file as
// they appear on disk. The loader decodes into these and translates them
// into the format-agnostic config model.
package schema

import (
	"github.com/hashicorp/hcl/v2"
)

// Source represents a `source` block: a named physical input.
//
//	source "people" {
//	  path = "testdata/people.csv"
//	}
type Source struct {
	ID     string `hcl:"id,label"`
	Path   string `hcl:"path"`
	Format string `hcl:"format,optional"`
}

// Op represents an `op` block: one operator stage. Inputs name the sources
// or ops feeding it; every other attribute is the operator's parameter set.
//
//	op "filter" "adults" {
//	  inputs = ["people"]
//	  where  = "age >= 18"
//	}
type Op struct {
	Kind   string   `hcl:"kind,label"`
	Name   string   `hcl:"name,label"`
	Inputs []string `hcl:"inputs,optional"`
	Params hcl.Body `hcl:",remain"`
}

// Sink represents a `sink` block: a named physical output capturing one
// op's records.
type Sink struct {
	ID   string `hcl:"id,label"`
	Node string `hcl:"node"`
	Path string `hcl:"path"`
}

// PipelineConfig is the top-level structure of a pipeline file.
type PipelineConfig struct {
	Sources []*Source `hcl:"source,block"`
	Ops     []*Op     `hcl:"op,block"`
	Sinks   []*Sink   `hcl:"sink,block"`
	Body    hcl.Body  `hcl:",remain"`
}
