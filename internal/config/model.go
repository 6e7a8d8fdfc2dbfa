package config

import (
	"github.com/zclconf/go-cty/cty"
)

// Model is the unified, format-agnostic representation of a loaded
// pipeline definition.
type Model struct {
	Pipeline *Pipeline
}

// Pipeline lists the declared sources, operator stages, and sinks in
// declaration order. Ops may only reference earlier sources and ops, which
// mirrors how an interactive session builds a graph statement by statement.
type Pipeline struct {
	Sources []*Source
	Ops     []*Op
	Sinks   []*Sink
}

// Source is the format-agnostic representation of a `source` block.
type Source struct {
	ID     string
	Path   string
	Format string
}

// Op is the format-agnostic representation of an `op` block. Params holds
// the operator's evaluated argument object; its meaning is private to the
// operator handler.
type Op struct {
	Kind   string
	Name   string
	Inputs []string
	Params cty.Value
}

// Sink is the format-agnostic representation of a `sink` block.
type Sink struct {
	ID   string
	Node string
	Path string
}
