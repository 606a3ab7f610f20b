// Package branches lists and switches branches of the content working tree.
//
// Listing is read-only. Switching changes every file the site serves, so it requires the
// admin role, runs inside the mutation gate, and only accepts existing local branches.
package branches

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/temirov/contentaudit/internal/gate"
	"github.com/temirov/contentaudit/internal/gitrepo"
	"github.com/temirov/contentaudit/internal/vcserrors"
)

// Role is the privilege level of the caller.
type Role string

// Known roles.
const (
	RoleAdmin  Role = "admin"
	RoleEditor Role = "editor"
)

const (
	repositoryMissingMessageConstant = "branch repository not configured"
	gateMissingMessageConstant       = "mutation gate not configured"
	operationNameConstant            = "switch checkout"

	insufficientPrivilegeTemplateConstant = "role %q may not switch branches"
	unknownBranchTemplateConstant         = "branch %q does not exist locally"
	workingTreeFieldConstant              = "working_tree"
	uncommittedChangesReasonConstant      = "has uncommitted changes; record or discard them before switching branches"

	switchedLogMessageConstant = "switched checkout"
	alreadyLogMessageConstant  = "branch already checked out"
	deniedLogMessageConstant   = "branch switch denied"
	branchFieldConstant        = "branch"
	actorFieldConstant         = "actor"
	roleFieldConstant          = "role"
	changedPathsFieldConstant  = "changed_paths"
)

// ErrRepositoryNotConfigured indicates the manager was built without a repository gateway.
var ErrRepositoryNotConfigured = errors.New(repositoryMissingMessageConstant)

// ErrGateNotConfigured indicates the manager was built without a mutation gate.
var ErrGateNotConfigured = errors.New(gateMissingMessageConstant)

// Repository is the subset of the gateway the manager drives.
type Repository interface {
	ListBranches(executionContext context.Context) ([]gitrepo.Branch, error)
	Checkout(executionContext context.Context, branch string) error
	Status(executionContext context.Context, pathspec ...string) (gitrepo.WorkingTreeStatus, error)
}

// MutationGate serializes working tree mutations.
type MutationGate interface {
	Run(executionContext context.Context, operationName string, operation gate.Operation) error
}

// Actor identifies who asked for a branch switch.
type Actor struct {
	Identity string
	Role     Role
}

// ManagerDependencies enumerates collaborators required by the Manager.
type ManagerDependencies struct {
	Repository Repository
	Gate       MutationGate
	Logger     *zap.Logger
}

// ManagerConfiguration tunes branch switching.
type ManagerConfiguration struct {
	RequireClean bool
}

// SwitchResult reports the outcome of a branch switch.
type SwitchResult struct {
	Branch   string `json:"branch" yaml:"branch"`
	Switched bool   `json:"switched" yaml:"switched"`
}

// Manager lists and switches branches.
type Manager struct {
	repository   Repository
	gate         MutationGate
	logger       *zap.Logger
	requireClean bool
}

// NewManager validates dependencies and constructs a Manager.
func NewManager(dependencies ManagerDependencies, configuration ManagerConfiguration) (*Manager, error) {
	if dependencies.Repository == nil {
		return nil, ErrRepositoryNotConfigured
	}
	if dependencies.Gate == nil {
		return nil, ErrGateNotConfigured
	}
	logger := dependencies.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		repository:   dependencies.Repository,
		gate:         dependencies.Gate,
		logger:       logger,
		requireClean: configuration.RequireClean,
	}, nil
}

// ListBranches returns local branches with the current one marked.
func (manager *Manager) ListBranches(executionContext context.Context) ([]gitrepo.Branch, error) {
	branches, err := manager.repository.ListBranches(executionContext)
	if err != nil {
		return nil, gitrepo.ToOperationError(vcserrors.OperationListBranches, err)
	}
	return branches, nil
}

// SwitchCheckout checks out an existing local branch on behalf of an admin.
func (manager *Manager) SwitchCheckout(executionContext context.Context, actor Actor, name string) (SwitchResult, error) {
	branchName := strings.TrimSpace(name)
	fields := []zap.Field{
		zap.String(branchFieldConstant, branchName),
		zap.String(actorFieldConstant, actor.Identity),
		zap.String(roleFieldConstant, string(actor.Role)),
	}
	if actor.Role != RoleAdmin {
		manager.logger.Warn(deniedLogMessageConstant, fields...)
		return SwitchResult{}, vcserrors.New(vcserrors.OperationSwitchCheckout, vcserrors.CodeInsufficientPrivilege,
			fmt.Errorf(insufficientPrivilegeTemplateConstant, string(actor.Role)))
	}
	if err := gitrepo.ValidateReference(branchName); err != nil {
		return SwitchResult{}, gitrepo.ToOperationError(vcserrors.OperationSwitchCheckout, err)
	}

	var result SwitchResult
	gateError := manager.gate.Run(executionContext, operationNameConstant, func(operationContext context.Context) error {
		var switchError error
		result, switchError = manager.switchLocked(operationContext, branchName, fields)
		return switchError
	})
	if gateError != nil {
		return SwitchResult{}, gitrepo.ToOperationError(vcserrors.OperationSwitchCheckout, gateError)
	}
	return result, nil
}

func (manager *Manager) switchLocked(executionContext context.Context, branchName string, fields []zap.Field) (SwitchResult, error) {
	branches, listError := manager.repository.ListBranches(executionContext)
	if listError != nil {
		return SwitchResult{}, gitrepo.ToOperationError(vcserrors.OperationSwitchCheckout, listError)
	}

	known := false
	for _, branch := range branches {
		if branch.Name != branchName {
			continue
		}
		known = true
		if branch.IsCurrent {
			manager.logger.Info(alreadyLogMessageConstant, fields...)
			return SwitchResult{Branch: branchName}, nil
		}
	}
	if !known {
		return SwitchResult{}, vcserrors.New(vcserrors.OperationSwitchCheckout, vcserrors.CodeNoSuchBranch,
			fmt.Errorf(unknownBranchTemplateConstant, branchName))
	}

	if manager.requireClean {
		status, statusError := manager.repository.Status(executionContext)
		if statusError != nil {
			return SwitchResult{}, gitrepo.ToOperationError(vcserrors.OperationSwitchCheckout, statusError)
		}
		if !status.IsClean() {
			manager.logger.Warn(deniedLogMessageConstant, append(fields, zap.Strings(changedPathsFieldConstant, status.Paths()))...)
			return SwitchResult{}, vcserrors.New(vcserrors.OperationSwitchCheckout, vcserrors.CodeInvalidArgument,
				vcserrors.ArgumentError{Field: workingTreeFieldConstant, Reason: uncommittedChangesReasonConstant})
		}
	}

	if checkoutError := manager.repository.Checkout(executionContext, branchName); checkoutError != nil {
		return SwitchResult{}, gitrepo.ToOperationError(vcserrors.OperationSwitchCheckout, checkoutError)
	}
	manager.logger.Info(switchedLogMessageConstant, fields...)
	return SwitchResult{Branch: branchName, Switched: true}, nil
}
