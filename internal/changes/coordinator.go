// Package changes turns content mutations into commits on the shared working tree.
//
// Coordinator stages, commits and pushes inside the mutation gate. A push failure never
// rolls the commit back; it is reported as PushFailed carrying the local commit hash.
package changes

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/temirov/contentaudit/internal/credentials"
	"github.com/temirov/contentaudit/internal/gate"
	"github.com/temirov/contentaudit/internal/gitrepo"
	"github.com/temirov/contentaudit/internal/vcserrors"
)

const (
	repositoryMissingMessageConstant    = "repository gateway not configured"
	authenticatorMissingMessageConstant = "remote authenticator not configured"
	gateMissingMessageConstant          = "mutation gate not configured"
	branchMissingMessageConstant        = "target branch must be provided"

	noChangesLogMessageConstant    = "no working tree changes to record"
	committedLogMessageConstant    = "recorded change"
	commitFailedLogMessageConstant = "failed to commit change"
	pushFailedLogMessageConstant   = "change committed locally but push failed"
	statusFailedLogMessageConstant = "failed to read working tree status"
	otherBranchLogMessageConstant  = "pushing checked-out branch instead of the configured branch"

	operationFieldConstant    = "operation"
	commitHashFieldConstant   = "commit_hash"
	branchFieldConstant       = "branch"
	pushedBranchFieldConstant = "pushed_branch"
	changedPathsFieldConstant = "changed_paths"
	gitDetailFieldConstant    = "git_detail"
	errorCodeFieldConstant    = "error_code"
)

// ErrRepositoryNotConfigured indicates the coordinator was built without a repository gateway.
var ErrRepositoryNotConfigured = errors.New(repositoryMissingMessageConstant)

// ErrAuthenticatorNotConfigured indicates the coordinator was built without an authenticator.
var ErrAuthenticatorNotConfigured = errors.New(authenticatorMissingMessageConstant)

// ErrGateNotConfigured indicates the coordinator was built without a mutation gate.
var ErrGateNotConfigured = errors.New(gateMissingMessageConstant)

// ErrBranchRequired indicates the target branch was empty.
var ErrBranchRequired = errors.New(branchMissingMessageConstant)

// Repository is the subset of the gateway the coordinator drives.
type Repository interface {
	Status(executionContext context.Context, pathspec ...string) (gitrepo.WorkingTreeStatus, error)
	AddAll(executionContext context.Context, pathspec ...string) error
	Commit(executionContext context.Context, message string, pathspec ...string) (string, error)
	Push(executionContext context.Context, endpoint gitrepo.RemoteEndpoint, branch string) error
	CurrentBranch(executionContext context.Context) (string, error)
}

// RemoteAuthenticator builds the push target for each commit.
type RemoteAuthenticator interface {
	BuildAuthenticatedRemote(executionContext context.Context) (*credentials.AuthenticatedRemote, error)
}

// MutationGate serializes working tree mutations.
type MutationGate interface {
	Run(executionContext context.Context, operationName string, operation gate.Operation) error
}

// CoordinatorDependencies enumerates collaborators required by the Coordinator.
type CoordinatorDependencies struct {
	Repository    Repository
	Authenticator RemoteAuthenticator
	Gate          MutationGate
	Logger        *zap.Logger
}

// CoordinatorConfiguration names the default branch. Commits made on another checked-out
// branch are pushed to that branch and logged.
type CoordinatorConfiguration struct {
	Branch string
}

// Result reports what a record operation did.
type Result struct {
	Committed    bool     `json:"committed" yaml:"committed"`
	Pushed       bool     `json:"pushed" yaml:"pushed"`
	CommitHash   string   `json:"commit_hash,omitempty" yaml:"commit_hash,omitempty"`
	Branch       string   `json:"branch,omitempty" yaml:"branch,omitempty"`
	Message      string   `json:"message,omitempty" yaml:"message,omitempty"`
	ChangedPaths []string `json:"changed_paths,omitempty" yaml:"changed_paths,omitempty"`
}

// Coordinator records content mutations as commits and pushes them.
type Coordinator struct {
	repository    Repository
	authenticator RemoteAuthenticator
	gate          MutationGate
	logger        *zap.Logger
	branch        string
}

// NewCoordinator validates dependencies and constructs a Coordinator.
func NewCoordinator(dependencies CoordinatorDependencies, configuration CoordinatorConfiguration) (*Coordinator, error) {
	if dependencies.Repository == nil {
		return nil, ErrRepositoryNotConfigured
	}
	if dependencies.Authenticator == nil {
		return nil, ErrAuthenticatorNotConfigured
	}
	if dependencies.Gate == nil {
		return nil, ErrGateNotConfigured
	}
	branch := strings.TrimSpace(configuration.Branch)
	if len(branch) == 0 {
		return nil, ErrBranchRequired
	}
	logger := dependencies.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Coordinator{
		repository:    dependencies.Repository,
		authenticator: dependencies.Authenticator,
		gate:          dependencies.Gate,
		logger:        logger,
		branch:        branch,
	}, nil
}

// RecordChange commits pending changes with a message synthesized from descriptor and pushes it.
// The caller must have finished writing its content before calling. When descriptor.Paths is
// empty every pending change in the working tree is included.
func (coordinator *Coordinator) RecordChange(executionContext context.Context, descriptor Descriptor) (Result, error) {
	message, formatError := FormatMessage(descriptor)
	if formatError != nil {
		return Result{}, vcserrors.New(vcserrors.OperationRecordChange, vcserrors.CodeInvalidArgument, formatError)
	}
	return coordinator.commitAndPush(executionContext, vcserrors.OperationRecordChange, message, descriptor.Paths)
}

// CommitAllChanges commits every pending change with a caller-supplied message and pushes it.
func (coordinator *Coordinator) CommitAllChanges(executionContext context.Context, message string, actor string) (Result, error) {
	formattedMessage, formatError := FormatSourceMessage(message, actor)
	if formatError != nil {
		return Result{}, vcserrors.New(vcserrors.OperationCommitAllChanges, vcserrors.CodeInvalidArgument, formatError)
	}
	return coordinator.commitAndPush(executionContext, vcserrors.OperationCommitAllChanges, formattedMessage, nil)
}

func (coordinator *Coordinator) commitAndPush(executionContext context.Context, operation vcserrors.OperationName, message string, pathspec []string) (Result, error) {
	var result Result
	gateError := coordinator.gate.Run(executionContext, string(operation), func(operationContext context.Context) error {
		var stepError error
		result, stepError = coordinator.commitAndPushLocked(operationContext, operation, message, pathspec)
		return stepError
	})
	if gateError != nil {
		var operationError vcserrors.OperationError
		if errors.As(gateError, &operationError) {
			return result, operationError
		}
		return result, vcserrors.New(operation, vcserrors.CodeProcessFailure, gateError)
	}
	return result, nil
}

func (coordinator *Coordinator) commitAndPushLocked(executionContext context.Context, operation vcserrors.OperationName, message string, pathspec []string) (Result, error) {
	fields := []zap.Field{zap.String(operationFieldConstant, string(operation)), zap.String(branchFieldConstant, coordinator.branch)}

	status, statusError := coordinator.repository.Status(executionContext, pathspec...)
	if statusError != nil {
		operationError := gitrepo.ToOperationError(operation, statusError)
		coordinator.logFailure(statusFailedLogMessageConstant, fields, operationError, statusError)
		return Result{}, operationError
	}
	if status.IsClean() {
		coordinator.logger.Info(noChangesLogMessageConstant, fields...)
		return Result{Message: message}, nil
	}
	fields = append(fields, zap.Strings(changedPathsFieldConstant, status.Paths()))

	if addError := coordinator.repository.AddAll(executionContext, pathspec...); addError != nil {
		operationError := vcserrors.New(operation, vcserrors.CodeCommitFailed, addError)
		coordinator.logFailure(commitFailedLogMessageConstant, fields, operationError, addError)
		return Result{}, operationError
	}

	commitHash, commitError := coordinator.repository.Commit(executionContext, message, pathspec...)
	if commitError != nil {
		if gitrepo.IsKind(commitError, gitrepo.KindDirtyOrMissingChanges) {
			coordinator.logger.Info(noChangesLogMessageConstant, fields...)
			return Result{Message: message}, nil
		}
		operationError := vcserrors.New(operation, vcserrors.CodeCommitFailed, commitError)
		coordinator.logFailure(commitFailedLogMessageConstant, fields, operationError, commitError)
		return Result{}, operationError
	}

	result := Result{Committed: true, CommitHash: commitHash, Message: message, ChangedPaths: status.Paths()}
	fields = append(fields, zap.String(commitHashFieldConstant, commitHash))

	pushedBranch, pushError := coordinator.push(executionContext, fields)
	result.Branch = pushedBranch
	if pushError != nil {
		operationError := vcserrors.OperationError{Operation: operation, Code: vcserrors.CodePushFailed, CommitHash: commitHash, Cause: pushError}
		coordinator.logFailure(pushFailedLogMessageConstant, fields, operationError, pushError)
		return result, operationError
	}

	result.Pushed = true
	coordinator.logger.Info(committedLogMessageConstant, fields...)
	return result, nil
}

// push publishes the checked-out branch under its own name, which is where the commit landed.
func (coordinator *Coordinator) push(executionContext context.Context, fields []zap.Field) (string, error) {
	branch, branchError := coordinator.repository.CurrentBranch(executionContext)
	if branchError != nil {
		return "", branchError
	}
	if branch != coordinator.branch {
		coordinator.logger.Info(otherBranchLogMessageConstant, append(fields, zap.String(pushedBranchFieldConstant, branch))...)
	}
	remote, buildError := coordinator.authenticator.BuildAuthenticatedRemote(executionContext)
	if buildError != nil {
		return branch, buildError
	}
	defer remote.Clear()
	return branch, coordinator.repository.Push(executionContext, remote, branch)
}

func (coordinator *Coordinator) logFailure(message string, fields []zap.Field, operationError vcserrors.OperationError, cause error) {
	coordinator.logger.Warn(message, append(fields,
		zap.String(errorCodeFieldConstant, string(operationError.Code)),
		zap.String(gitDetailFieldConstant, gitrepo.DetailOf(cause)),
	)...)
}
