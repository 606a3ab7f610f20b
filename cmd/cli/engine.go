package cli

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/temirov/contentaudit/internal/analysis"
	"github.com/temirov/contentaudit/internal/branches"
	"github.com/temirov/contentaudit/internal/changes"
	"github.com/temirov/contentaudit/internal/connectivity"
	"github.com/temirov/contentaudit/internal/gitrepo"
	"github.com/temirov/contentaudit/internal/revert"
	"github.com/temirov/contentaudit/internal/vcserrors"
	"github.com/temirov/contentaudit/internal/versioning"
)

// EngineService exposes the caller-facing versioning operations used by the CLI.
type EngineService interface {
	RecordChange(executionContext context.Context, descriptor changes.Descriptor) (changes.Result, error)
	CommitAllChanges(executionContext context.Context, message string, actor string) (changes.Result, error)
	RevertCommit(executionContext context.Context, hash string, actor string) (revert.Result, error)
	GetHistory(executionContext context.Context, limit int) ([]gitrepo.Commit, error)
	ListBranches(executionContext context.Context) ([]gitrepo.Branch, error)
	SwitchCheckout(executionContext context.Context, actor branches.Actor, name string) (branches.SwitchResult, error)
	TestConnection(executionContext context.Context) (connectivity.Result, error)
	Status(executionContext context.Context) (versioning.StatusReport, error)
	SuggestChange(executionContext context.Context) (analysis.Suggestion, error)
}

// ServiceFactory constructs the engine for a resolved configuration.
type ServiceFactory func(executionContext context.Context, logger *zap.Logger, configuration versioning.Configuration) (EngineService, error)

// NewVersioningService is the ServiceFactory backed by the git command line.
func NewVersioningService(executionContext context.Context, logger *zap.Logger, configuration versioning.Configuration) (EngineService, error) {
	service, serviceError := versioning.NewService(executionContext, versioning.ServiceDependencies{Logger: logger}, configuration)
	if serviceError != nil {
		return nil, serviceError
	}
	return service, nil
}

// DescribeError renders err for a person at the terminal. Operation failures use their
// administrator message; everything else falls back to the error text.
func DescribeError(err error) string {
	if err == nil {
		return ""
	}
	var operationError vcserrors.OperationError
	if errors.As(err, &operationError) {
		return operationError.Message()
	}
	return err.Error()
}
