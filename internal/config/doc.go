// Package config defines the format-agnostic pipeline definition model and
// the Loader interface format-specific loaders implement. Keeping the model
// free of HCL types lets the assembly and execution layers stay ignorant of
// the configuration syntax.
package config
