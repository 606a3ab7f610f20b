// Package analysis defines the port through which pending working tree changes are handed
// to an external change analyzer. The analyzer itself lives outside this module.
package analysis

import (
	"context"
	"errors"
)

const analyzerMissingMessageConstant = "change analyzer not configured"

// ErrAnalyzerNotConfigured indicates no analyzer was supplied to the service.
var ErrAnalyzerNotConfigured = errors.New(analyzerMissingMessageConstant)

// Input is the pending change set presented to an Analyzer.
type Input struct {
	Diff         string   `json:"diff" yaml:"diff"`
	ChangedPaths []string `json:"changed_paths" yaml:"changed_paths"`
}

// IsEmpty reports whether there is nothing to analyze.
func (input Input) IsEmpty() bool {
	return len(input.Diff) == 0 && len(input.ChangedPaths) == 0
}

// Suggestion is returned to callers unchanged.
type Suggestion struct {
	Summary     string            `json:"summary" yaml:"summary"`
	Message     string            `json:"message,omitempty" yaml:"message,omitempty"`
	Annotations map[string]string `json:"annotations,omitempty" yaml:"annotations,omitempty"`
}

// Analyzer proposes a description for pending changes.
type Analyzer interface {
	Suggest(executionContext context.Context, input Input) (Suggestion, error)
}

// AnalyzerFunc adapts a function to Analyzer.
type AnalyzerFunc func(executionContext context.Context, input Input) (Suggestion, error)

// Suggest calls function.
func (function AnalyzerFunc) Suggest(executionContext context.Context, input Input) (Suggestion, error) {
	return function(executionContext, input)
}
