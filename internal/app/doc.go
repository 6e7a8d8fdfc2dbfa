// Package app contains the core application logic: loading a pipeline
// definition, assembling it into a session, and driving a run or a
// snapshot. It is decoupled from any specific entrypoint like a CLI.
package app
