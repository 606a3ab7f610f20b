// Package revert undoes earlier content commits without rewriting history.
//
// Controller drives one Attempt at a time through an explicit state machine:
//
//	Idle -> Applying -> PushingAfterRevert -> Done
//	                 \                    \-> Failed (PushFailed, revert commit kept)
//	                  \-> Aborting -> Failed (RevertConflict, working tree restored)
//
// Each phase is handled by its own method returning the next phase, and the whole
// attempt runs inside the exclusive section of the mutation gate.
package revert

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/temirov/contentaudit/internal/credentials"
	"github.com/temirov/contentaudit/internal/gate"
	"github.com/temirov/contentaudit/internal/gitrepo"
	"github.com/temirov/contentaudit/internal/vcserrors"
)

// Phase is the position of an Attempt in the revert state machine.
type Phase string

// Revert phases.
const (
	PhaseIdle               Phase = "idle"
	PhaseApplying           Phase = "applying"
	PhasePushingAfterRevert Phase = "pushing_after_revert"
	PhaseAborting           Phase = "aborting"
	PhaseDone               Phase = "done"
	PhaseFailed             Phase = "failed"
)

const (
	repositoryMissingMessageConstant    = "repository gateway not configured"
	authenticatorMissingMessageConstant = "remote authenticator not configured"
	gateMissingMessageConstant          = "mutation gate not configured"
	branchMissingMessageConstant        = "target branch must be provided"
	actorFieldNameConstant              = "actor"
	actorMissingReasonConstant          = "actor must not be empty"
	operationNameConstant               = "revert commit"

	transitionLogMessageConstant       = "revert attempt changed phase"
	abortFailedLogMessageConstant      = "failed to abort in-progress revert"
	dirtyAfterAbortLogMessageConstant  = "working tree still has changes after revert abort"
	statusAfterAbortLogMessageConstant = "failed to inspect working tree after revert abort"
	completedLogMessageConstant        = "reverted commit"
	failedLogMessageConstant           = "revert attempt failed"
	otherBranchLogMessageConstant      = "pushing checked-out branch instead of the configured branch"

	attemptFieldConstant      = "revert_attempt"
	targetHashFieldConstant   = "target_hash"
	commitHashFieldConstant   = "commit_hash"
	actorFieldConstant        = "actor"
	fromPhaseFieldConstant    = "from_phase"
	toPhaseFieldConstant      = "to_phase"
	errorCodeFieldConstant    = "error_code"
	gitDetailFieldConstant    = "git_detail"
	changedPathsFieldConstant = "changed_paths"
	branchFieldConstant       = "branch"
)

// ErrRepositoryNotConfigured indicates the controller was built without a repository gateway.
var ErrRepositoryNotConfigured = errors.New(repositoryMissingMessageConstant)

// ErrAuthenticatorNotConfigured indicates the controller was built without an authenticator.
var ErrAuthenticatorNotConfigured = errors.New(authenticatorMissingMessageConstant)

// ErrGateNotConfigured indicates the controller was built without a mutation gate.
var ErrGateNotConfigured = errors.New(gateMissingMessageConstant)

// ErrBranchRequired indicates the target branch was empty.
var ErrBranchRequired = errors.New(branchMissingMessageConstant)

// Repository is the subset of the gateway the controller drives.
type Repository interface {
	Revert(executionContext context.Context, hash string) (string, error)
	RevertAbort(executionContext context.Context) error
	Status(executionContext context.Context, pathspec ...string) (gitrepo.WorkingTreeStatus, error)
	Push(executionContext context.Context, endpoint gitrepo.RemoteEndpoint, branch string) error
	CurrentBranch(executionContext context.Context) (string, error)
}

// RemoteAuthenticator builds the push target for the revert commit.
type RemoteAuthenticator interface {
	BuildAuthenticatedRemote(executionContext context.Context) (*credentials.AuthenticatedRemote, error)
}

// ExclusiveGate runs an operation while no other mutation or observer is active.
type ExclusiveGate interface {
	RunExclusive(executionContext context.Context, operationName string, operation gate.Operation) error
}

// ControllerDependencies enumerates collaborators required by the Controller.
type ControllerDependencies struct {
	Repository    Repository
	Authenticator RemoteAuthenticator
	Gate          ExclusiveGate
	Logger        *zap.Logger
}

// ControllerConfiguration names the default branch. A revert made on another checked-out
// branch is pushed to that branch and logged.
type ControllerConfiguration struct {
	Branch string
}

// Attempt is the transient record of one revert call.
type Attempt struct {
	ID         string
	TargetHash string
	Actor      string
	Phase      Phase
	CommitHash string
	Branch     string
}

// Result reports the outcome of a revert.
type Result struct {
	AttemptID  string `json:"attempt_id" yaml:"attempt_id"`
	TargetHash string `json:"target_hash" yaml:"target_hash"`
	CommitHash string `json:"commit_hash,omitempty" yaml:"commit_hash,omitempty"`
	Branch     string `json:"branch,omitempty" yaml:"branch,omitempty"`
	Pushed     bool   `json:"pushed" yaml:"pushed"`
	Phase      Phase  `json:"phase" yaml:"phase"`
}

type transition struct {
	next Phase
	err  error
}

// Controller applies reverts one attempt at a time.
type Controller struct {
	repository    Repository
	authenticator RemoteAuthenticator
	gate          ExclusiveGate
	logger        *zap.Logger
	branch        string
}

// NewController validates dependencies and constructs a Controller.
func NewController(dependencies ControllerDependencies, configuration ControllerConfiguration) (*Controller, error) {
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
	return &Controller{
		repository:    dependencies.Repository,
		authenticator: dependencies.Authenticator,
		gate:          dependencies.Gate,
		logger:        logger,
		branch:        branch,
	}, nil
}

// RevertCommit creates a commit undoing hash and pushes it.
// A conflicting revert is aborted before RevertConflict is returned.
func (controller *Controller) RevertCommit(executionContext context.Context, hash string, actor string) (Result, error) {
	trimmedHash := strings.TrimSpace(hash)
	if err := gitrepo.ValidateRevision(trimmedHash); err != nil {
		return Result{}, gitrepo.ToOperationError(vcserrors.OperationRevertCommit, err)
	}
	trimmedActor := strings.TrimSpace(actor)
	if len(trimmedActor) == 0 {
		return Result{}, vcserrors.New(vcserrors.OperationRevertCommit, vcserrors.CodeInvalidArgument,
			vcserrors.ArgumentError{Field: actorFieldNameConstant, Reason: actorMissingReasonConstant})
	}

	attempt := &Attempt{ID: uuid.NewString(), TargetHash: trimmedHash, Actor: trimmedActor, Phase: PhaseIdle}
	gateError := controller.gate.RunExclusive(executionContext, operationNameConstant, func(operationContext context.Context) error {
		return controller.run(operationContext, attempt)
	})

	result := Result{
		AttemptID:  attempt.ID,
		TargetHash: attempt.TargetHash,
		CommitHash: attempt.CommitHash,
		Branch:     attempt.Branch,
		Pushed:     attempt.Phase == PhaseDone,
		Phase:      attempt.Phase,
	}
	if gateError == nil {
		return result, nil
	}
	var operationError vcserrors.OperationError
	if errors.As(gateError, &operationError) {
		return result, operationError
	}
	return result, vcserrors.New(vcserrors.OperationRevertCommit, vcserrors.CodeProcessFailure, gateError)
}

// run advances attempt until it reaches Done or Failed.
func (controller *Controller) run(executionContext context.Context, attempt *Attempt) error {
	current := transition{next: PhaseApplying}
	for {
		controller.logTransition(attempt, current.next)
		attempt.Phase = current.next
		switch attempt.Phase {
		case PhaseApplying:
			current = controller.apply(executionContext, attempt)
		case PhaseAborting:
			current = controller.abort(executionContext, attempt, current.err)
		case PhasePushingAfterRevert:
			current = controller.pushAfterRevert(executionContext, attempt)
		case PhaseDone:
			controller.logger.Info(completedLogMessageConstant, controller.attemptFields(attempt)...)
			return nil
		case PhaseFailed:
			controller.logFailure(attempt, current.err)
			return current.err
		default:
			return current.err
		}
	}
}

// apply runs the revert. Conflicts and empty reverts move to Aborting; git leaves the
// revert in progress in both cases.
func (controller *Controller) apply(executionContext context.Context, attempt *Attempt) transition {
	commitHash, revertError := controller.repository.Revert(executionContext, attempt.TargetHash)
	if revertError == nil {
		attempt.CommitHash = commitHash
		return transition{next: PhasePushingAfterRevert}
	}
	switch gitrepo.KindOf(revertError) {
	case gitrepo.KindConflict, gitrepo.KindDirtyOrMissingChanges:
		return transition{next: PhaseAborting, err: revertError}
	default:
		return transition{next: PhaseFailed, err: gitrepo.ToOperationError(vcserrors.OperationRevertCommit, revertError)}
	}
}

// abort restores the working tree. Abort failures are logged and never replace the apply error.
func (controller *Controller) abort(executionContext context.Context, attempt *Attempt, applyError error) transition {
	fields := controller.attemptFields(attempt)
	if abortError := controller.repository.RevertAbort(executionContext); abortError != nil {
		controller.logger.Warn(abortFailedLogMessageConstant, append(fields, zap.String(gitDetailFieldConstant, gitrepo.DetailOf(abortError)))...)
	}

	status, statusError := controller.repository.Status(executionContext)
	switch {
	case statusError != nil:
		controller.logger.Warn(statusAfterAbortLogMessageConstant, append(fields, zap.String(gitDetailFieldConstant, gitrepo.DetailOf(statusError)))...)
	case !status.IsClean():
		controller.logger.Error(dirtyAfterAbortLogMessageConstant, append(fields, zap.Strings(changedPathsFieldConstant, status.Paths()))...)
	}

	return transition{next: PhaseFailed, err: gitrepo.ToOperationError(vcserrors.OperationRevertCommit, applyError)}
}

// pushAfterRevert publishes the revert commit. A failed push keeps the commit locally.
func (controller *Controller) pushAfterRevert(executionContext context.Context, attempt *Attempt) transition {
	pushError := controller.push(executionContext, attempt)
	if pushError != nil {
		return transition{next: PhaseFailed, err: vcserrors.OperationError{
			Operation:  vcserrors.OperationRevertCommit,
			Code:       vcserrors.CodePushFailed,
			CommitHash: attempt.CommitHash,
			Cause:      pushError,
		}}
	}
	return transition{next: PhaseDone}
}

// push publishes the checked-out branch under its own name, which is where the revert landed.
func (controller *Controller) push(executionContext context.Context, attempt *Attempt) error {
	branch, branchError := controller.repository.CurrentBranch(executionContext)
	if branchError != nil {
		return branchError
	}
	attempt.Branch = branch
	if branch != controller.branch {
		controller.logger.Info(otherBranchLogMessageConstant, controller.attemptFields(attempt)...)
	}
	remote, buildError := controller.authenticator.BuildAuthenticatedRemote(executionContext)
	if buildError != nil {
		return buildError
	}
	defer remote.Clear()
	return controller.repository.Push(executionContext, remote, branch)
}

func (controller *Controller) attemptFields(attempt *Attempt) []zap.Field {
	fields := []zap.Field{
		zap.String(attemptFieldConstant, attempt.ID),
		zap.String(targetHashFieldConstant, attempt.TargetHash),
		zap.String(actorFieldConstant, attempt.Actor),
	}
	if len(attempt.CommitHash) > 0 {
		fields = append(fields, zap.String(commitHashFieldConstant, attempt.CommitHash))
	}
	if len(attempt.Branch) > 0 {
		fields = append(fields, zap.String(branchFieldConstant, attempt.Branch))
	}
	return fields
}

func (controller *Controller) logTransition(attempt *Attempt, next Phase) {
	controller.logger.Debug(transitionLogMessageConstant, append(controller.attemptFields(attempt),
		zap.String(fromPhaseFieldConstant, string(attempt.Phase)),
		zap.String(toPhaseFieldConstant, string(next)),
	)...)
}

func (controller *Controller) logFailure(attempt *Attempt, failure error) {
	controller.logger.Warn(failedLogMessageConstant, append(controller.attemptFields(attempt),
		zap.String(errorCodeFieldConstant, string(vcserrors.CodeOf(failure))),
		zap.String(gitDetailFieldConstant, gitrepo.DetailOf(failure)),
	)...)
}
