package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/temirov/contentaudit/internal/execshell"
)

const (
	commandMissingMessageConstant  = "analyzer command must be provided"
	executorMissingMessageConstant = "analyzer executor not configured"
	encodeInputErrorTemplate       = "unable to encode analyzer input: %w"
	decodeOutputErrorTemplate      = "unable to decode analyzer output: %w"
	runErrorTemplate               = "analyzer command failed: %w"
	emptySummaryMessageConstant    = "analyzer returned no summary"
	defaultCommandTimeoutConstant  = 60 * time.Second
	suggestionLogMessageConstant   = "received change suggestion"
	changedPathCountFieldConstant  = "changed_path_count"
	summaryFieldConstant           = "summary"
)

// ErrAnalyzerCommandRequired indicates CommandAnalyzer was configured without an executable.
var ErrAnalyzerCommandRequired = errors.New(commandMissingMessageConstant)

// ErrAnalyzerExecutorNotConfigured indicates CommandAnalyzer was built without an executor.
var ErrAnalyzerExecutorNotConfigured = errors.New(executorMissingMessageConstant)

// ErrEmptySuggestion indicates the analyzer answered without a summary.
var ErrEmptySuggestion = errors.New(emptySummaryMessageConstant)

// CommandExecutor runs an external program.
type CommandExecutor interface {
	Execute(executionContext context.Context, command execshell.ShellCommand) (execshell.ExecutionResult, error)
}

// CommandAnalyzerDependencies enumerates collaborators required by CommandAnalyzer.
type CommandAnalyzerDependencies struct {
	Executor CommandExecutor
	Logger   *zap.Logger
}

// CommandAnalyzerConfiguration names the external program and its time budget.
type CommandAnalyzerConfiguration struct {
	Command          []string
	WorkingDirectory string
	Timeout          time.Duration
}

// CommandAnalyzer delegates analysis to an external program. The program receives Input as
// JSON on standard input and answers with a Suggestion document in YAML or JSON.
type CommandAnalyzer struct {
	executor         CommandExecutor
	logger           *zap.Logger
	executable       string
	arguments        []string
	workingDirectory string
	timeout          time.Duration
}

// NewCommandAnalyzer validates dependencies and constructs a CommandAnalyzer.
func NewCommandAnalyzer(dependencies CommandAnalyzerDependencies, configuration CommandAnalyzerConfiguration) (*CommandAnalyzer, error) {
	if dependencies.Executor == nil {
		return nil, ErrAnalyzerExecutorNotConfigured
	}
	command := make([]string, 0, len(configuration.Command))
	for _, part := range configuration.Command {
		if trimmed := strings.TrimSpace(part); len(trimmed) > 0 {
			command = append(command, trimmed)
		}
	}
	if len(command) == 0 {
		return nil, ErrAnalyzerCommandRequired
	}
	logger := dependencies.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := configuration.Timeout
	if timeout <= 0 {
		timeout = defaultCommandTimeoutConstant
	}
	return &CommandAnalyzer{
		executor:         dependencies.Executor,
		logger:           logger,
		executable:       command[0],
		arguments:        command[1:],
		workingDirectory: configuration.WorkingDirectory,
		timeout:          timeout,
	}, nil
}

// Suggest runs the external program once per call.
func (analyzer *CommandAnalyzer) Suggest(executionContext context.Context, input Input) (Suggestion, error) {
	encodedInput, encodeError := json.Marshal(input)
	if encodeError != nil {
		return Suggestion{}, fmt.Errorf(encodeInputErrorTemplate, encodeError)
	}

	boundedContext, cancel := context.WithTimeout(executionContext, analyzer.timeout)
	defer cancel()

	result, runError := analyzer.executor.Execute(boundedContext, execshell.ShellCommand{
		Name: execshell.CommandName(analyzer.executable),
		Details: execshell.CommandDetails{
			Arguments:        analyzer.arguments,
			WorkingDirectory: analyzer.workingDirectory,
			StandardInput:    encodedInput,
		},
	})
	if runError != nil {
		return Suggestion{}, fmt.Errorf(runErrorTemplate, runError)
	}

	var suggestion Suggestion
	if decodeError := yaml.Unmarshal([]byte(result.StandardOutput), &suggestion); decodeError != nil {
		return Suggestion{}, fmt.Errorf(decodeOutputErrorTemplate, decodeError)
	}
	suggestion.Summary = strings.TrimSpace(suggestion.Summary)
	if len(suggestion.Summary) == 0 {
		return Suggestion{}, ErrEmptySuggestion
	}

	analyzer.logger.Debug(suggestionLogMessageConstant,
		zap.Int(changedPathCountFieldConstant, len(input.ChangedPaths)),
		zap.String(summaryFieldConstant, suggestion.Summary),
	)
	return suggestion, nil
}
