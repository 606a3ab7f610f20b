// Package cli constructs the contentaudit command-line interface. It wires the
// Cobra command hierarchy to the configuration loader, structured logging, and
// the versioning engine, and renders operation results as text, YAML, or JSON.
package cli
