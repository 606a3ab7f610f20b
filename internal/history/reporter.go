// Package history reports recent commits of the content repository.
package history

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/temirov/contentaudit/internal/gate"
	"github.com/temirov/contentaudit/internal/gitrepo"
	"github.com/temirov/contentaudit/internal/vcserrors"
)

// MaximumLimit bounds every history request.
const MaximumLimit = 50

const (
	logReaderMissingMessageConstant = "history log reader not configured"
	observerMissingMessageConstant  = "history observer not configured"
	operationNameConstant           = "get history"
	readLogMessageConstant          = "read commit history"
	requestedLimitFieldConstant     = "requested_limit"
	effectiveLimitFieldConstant     = "effective_limit"
	commitCountFieldConstant        = "commit_count"
)

// ErrLogReaderNotConfigured indicates the reporter was built without a log reader.
var ErrLogReaderNotConfigured = errors.New(logReaderMissingMessageConstant)

// ErrObserverNotConfigured indicates the reporter was built without a revert barrier.
var ErrObserverNotConfigured = errors.New(observerMissingMessageConstant)

// LogReader reads commits newest first.
type LogReader interface {
	Log(executionContext context.Context, limit int) ([]gitrepo.Commit, error)
}

// Observer runs read-only work outside the mutation gate.
type Observer interface {
	Observe(executionContext context.Context, operationName string, operation gate.Operation) error
}

// ReporterDependencies enumerates collaborators required by the Reporter.
type ReporterDependencies struct {
	LogReader LogReader
	Observer  Observer
	Logger    *zap.Logger
}

// ReporterConfiguration tunes history requests.
type ReporterConfiguration struct {
	DefaultLimit int
}

// Reporter serves bounded history queries.
type Reporter struct {
	logReader    LogReader
	observer     Observer
	logger       *zap.Logger
	defaultLimit int
}

// NewReporter validates dependencies and constructs a Reporter.
func NewReporter(dependencies ReporterDependencies, configuration ReporterConfiguration) (*Reporter, error) {
	if dependencies.LogReader == nil {
		return nil, ErrLogReaderNotConfigured
	}
	if dependencies.Observer == nil {
		return nil, ErrObserverNotConfigured
	}
	logger := dependencies.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reporter{
		logReader:    dependencies.LogReader,
		observer:     dependencies.Observer,
		logger:       logger,
		defaultLimit: EffectiveLimit(configuration.DefaultLimit, MaximumLimit),
	}, nil
}

// EffectiveLimit resolves a requested limit: non-positive values use fallback and
// everything is capped at MaximumLimit.
func EffectiveLimit(requested int, fallback int) int {
	limit := requested
	if limit <= 0 {
		limit = fallback
	}
	if limit <= 0 || limit > MaximumLimit {
		return MaximumLimit
	}
	return limit
}

// GetHistory returns at most limit commits, newest first. Each call reads the repository afresh.
func (reporter *Reporter) GetHistory(executionContext context.Context, limit int) ([]gitrepo.Commit, error) {
	effectiveLimit := EffectiveLimit(limit, reporter.defaultLimit)
	var commits []gitrepo.Commit
	observeError := reporter.observer.Observe(executionContext, operationNameConstant, func(operationContext context.Context) error {
		var logError error
		commits, logError = reporter.logReader.Log(operationContext, effectiveLimit)
		return logError
	})
	if observeError != nil {
		return nil, gitrepo.ToOperationError(vcserrors.OperationGetHistory, observeError)
	}
	reporter.logger.Debug(readLogMessageConstant,
		zap.Int(requestedLimitFieldConstant, limit),
		zap.Int(effectiveLimitFieldConstant, effectiveLimit),
		zap.Int(commitCountFieldConstant, len(commits)),
	)
	return commits, nil
}
