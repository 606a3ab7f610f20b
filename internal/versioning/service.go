// Package versioning assembles the content versioning engine behind one Service.
//
// A Service owns the single mutation gate for its working tree. Build exactly one per
// process and share it between request handlers.
package versioning

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/temirov/contentaudit/internal/analysis"
	"github.com/temirov/contentaudit/internal/branches"
	"github.com/temirov/contentaudit/internal/changes"
	"github.com/temirov/contentaudit/internal/connectivity"
	"github.com/temirov/contentaudit/internal/credentials"
	"github.com/temirov/contentaudit/internal/execshell"
	"github.com/temirov/contentaudit/internal/gate"
	"github.com/temirov/contentaudit/internal/gitrepo"
	"github.com/temirov/contentaudit/internal/history"
	"github.com/temirov/contentaudit/internal/revert"
	"github.com/temirov/contentaudit/internal/vcserrors"
)

const (
	executorBuildErrorTemplateConstant   = "unable to build git executor: %w"
	componentBuildErrorTemplateConstant  = "unable to build %s: %w"
	repositoryCheckErrorTemplateConstant = "content repository check failed: %w"

	gatewayComponentConstant         = "repository gateway"
	injectorComponentConstant        = "credential injector"
	coordinatorComponentConstant     = "change coordinator"
	controllerComponentConstant      = "revert controller"
	reporterComponentConstant        = "history reporter"
	managerComponentConstant         = "branch manager"
	probeComponentConstant           = "connectivity probe"
	analyzerComponentConstant        = "change analyzer"
	statusOperationNameConstant      = "status"
	suggestOperationNameConstant     = "suggest change"
	serviceReadyLogMessageConstant   = "versioning service ready"
	suggestSkippedLogMessageConstant = "no pending changes to analyze"
	analyzerFailedLogMessageConstant = "change analyzer failed"

	repositoryPathFieldConstant     = "repository_path"
	remoteFieldConstant             = "remote"
	branchFieldConstant             = "branch"
	changedPathsFieldConstant       = "changed_paths"
	errorFieldConstant              = "error"
	analyzerConfiguredFieldConstant = "analyzer_configured"
)

// RemoteAuthenticator builds the push and probe target.
type RemoteAuthenticator interface {
	BuildAuthenticatedRemote(executionContext context.Context) (*credentials.AuthenticatedRemote, error)
}

// ServiceDependencies enumerates optional collaborators. Nil members get production defaults;
// Analyzer stays nil unless analysis.command is configured.
type ServiceDependencies struct {
	Logger            *zap.Logger
	GitExecutor       gitrepo.GitExecutor
	Authenticator     RemoteAuthenticator
	Analyzer          analysis.Analyzer
	EnvironmentLookup credentials.EnvironmentLookup
}

// StatusReport lists the pending changes of the working tree.
type StatusReport struct {
	Clean        bool     `json:"clean" yaml:"clean"`
	ChangedPaths []string `json:"changed_paths,omitempty" yaml:"changed_paths,omitempty"`
}

// Service exposes the caller-facing versioning operations.
type Service struct {
	logger      *zap.Logger
	gateway     *gitrepo.Gateway
	serializer  *gate.Serializer
	coordinator *changes.Coordinator
	controller  *revert.Controller
	reporter    *history.Reporter
	manager     *branches.Manager
	probe       *connectivity.Probe
	analyzer    analysis.Analyzer
}

// NewService wires every component against configuration and verifies the working tree.
func NewService(executionContext context.Context, dependencies ServiceDependencies, configuration Configuration) (*Service, error) {
	sanitized, sanitizeError := configuration.sanitize()
	if sanitizeError != nil {
		return nil, sanitizeError
	}

	logger := dependencies.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	executor := dependencies.GitExecutor
	if executor == nil {
		shellExecutor, executorError := execshell.NewShellExecutor(logger, execshell.NewOSCommandRunner())
		if executorError != nil {
			return nil, fmt.Errorf(executorBuildErrorTemplateConstant, executorError)
		}
		executor = shellExecutor
	}

	gateway, gatewayError := gitrepo.NewGateway(
		gitrepo.GatewayDependencies{GitExecutor: executor, Logger: logger},
		gitrepo.GatewayConfiguration{
			RepositoryPath: sanitized.Repository.Path,
			CommandTimeout: sanitized.Repository.CommandTimeout,
			NetworkTimeout: sanitized.Repository.PushTimeout,
			AuthorName:     sanitized.Repository.AuthorName,
			AuthorEmail:    sanitized.Repository.AuthorEmail,
		},
	)
	if gatewayError != nil {
		return nil, fmt.Errorf(componentBuildErrorTemplateConstant, gatewayComponentConstant, gatewayError)
	}
	if verifyError := gateway.Verify(executionContext); verifyError != nil {
		return nil, fmt.Errorf(repositoryCheckErrorTemplateConstant, gitrepo.ToOperationError(vcserrors.OperationStatus, verifyError))
	}

	authenticator := dependencies.Authenticator
	if authenticator == nil {
		injector, injectorError := credentials.NewInjector(
			credentials.InjectorDependencies{RemoteResolver: gateway, Logger: logger, EnvironmentLookup: dependencies.EnvironmentLookup},
			credentials.InjectorConfiguration{RemoteName: sanitized.Repository.Remote, Identity: sanitized.Identity()},
		)
		if injectorError != nil {
			return nil, fmt.Errorf(componentBuildErrorTemplateConstant, injectorComponentConstant, injectorError)
		}
		authenticator = injector
	}

	serializer := gate.NewSerializer(logger)

	coordinator, coordinatorError := changes.NewCoordinator(
		changes.CoordinatorDependencies{Repository: gateway, Authenticator: authenticator, Gate: serializer, Logger: logger},
		changes.CoordinatorConfiguration{Branch: sanitized.Repository.Branch},
	)
	if coordinatorError != nil {
		return nil, fmt.Errorf(componentBuildErrorTemplateConstant, coordinatorComponentConstant, coordinatorError)
	}

	controller, controllerError := revert.NewController(
		revert.ControllerDependencies{Repository: gateway, Authenticator: authenticator, Gate: serializer, Logger: logger},
		revert.ControllerConfiguration{Branch: sanitized.Repository.Branch},
	)
	if controllerError != nil {
		return nil, fmt.Errorf(componentBuildErrorTemplateConstant, controllerComponentConstant, controllerError)
	}

	reporter, reporterError := history.NewReporter(
		history.ReporterDependencies{LogReader: gateway, Observer: serializer, Logger: logger},
		history.ReporterConfiguration{DefaultLimit: sanitized.History.DefaultLimit},
	)
	if reporterError != nil {
		return nil, fmt.Errorf(componentBuildErrorTemplateConstant, reporterComponentConstant, reporterError)
	}

	manager, managerError := branches.NewManager(
		branches.ManagerDependencies{Repository: gateway, Gate: serializer, Logger: logger},
		branches.ManagerConfiguration{RequireClean: sanitized.Branches.RequireClean},
	)
	if managerError != nil {
		return nil, fmt.Errorf(componentBuildErrorTemplateConstant, managerComponentConstant, managerError)
	}

	probe, probeError := connectivity.NewProbe(
		connectivity.ProbeDependencies{Authenticator: authenticator, Lister: gateway, Observer: serializer, Logger: logger},
		connectivity.ProbeConfiguration{Branch: sanitized.Repository.Branch, ProbeInterval: sanitized.Connectivity.ProbeInterval},
	)
	if probeError != nil {
		return nil, fmt.Errorf(componentBuildErrorTemplateConstant, probeComponentConstant, probeError)
	}

	analyzer := dependencies.Analyzer
	if analyzer == nil && len(sanitized.Analysis.Command) > 0 {
		analyzerExecutor, executorError := execshell.NewShellExecutor(logger, execshell.NewOSCommandRunner())
		if executorError != nil {
			return nil, fmt.Errorf(executorBuildErrorTemplateConstant, executorError)
		}
		commandAnalyzer, analyzerError := analysis.NewCommandAnalyzer(
			analysis.CommandAnalyzerDependencies{Executor: analyzerExecutor, Logger: logger},
			analysis.CommandAnalyzerConfiguration{Command: sanitized.Analysis.Command, WorkingDirectory: gateway.RepositoryPath(), Timeout: sanitized.Analysis.Timeout},
		)
		if analyzerError != nil {
			return nil, fmt.Errorf(componentBuildErrorTemplateConstant, analyzerComponentConstant, analyzerError)
		}
		analyzer = commandAnalyzer
	}

	logger.Info(serviceReadyLogMessageConstant,
		zap.String(repositoryPathFieldConstant, gateway.RepositoryPath()),
		zap.String(remoteFieldConstant, sanitized.Repository.Remote),
		zap.String(branchFieldConstant, sanitized.Repository.Branch),
		zap.Bool(analyzerConfiguredFieldConstant, analyzer != nil),
	)

	return &Service{
		logger:      logger,
		gateway:     gateway,
		serializer:  serializer,
		coordinator: coordinator,
		controller:  controller,
		reporter:    reporter,
		manager:     manager,
		probe:       probe,
		analyzer:    analyzer,
	}, nil
}

// RecordChange commits and pushes the change described by descriptor.
func (service *Service) RecordChange(executionContext context.Context, descriptor changes.Descriptor) (changes.Result, error) {
	return service.coordinator.RecordChange(executionContext, descriptor)
}

// CommitAllChanges commits and pushes every pending change under a caller-supplied message.
func (service *Service) CommitAllChanges(executionContext context.Context, message string, actor string) (changes.Result, error) {
	return service.coordinator.CommitAllChanges(executionContext, message, actor)
}

// RevertCommit undoes hash with a new commit and pushes it.
func (service *Service) RevertCommit(executionContext context.Context, hash string, actor string) (revert.Result, error) {
	return service.controller.RevertCommit(executionContext, hash, actor)
}

// GetHistory returns at most limit commits, newest first.
func (service *Service) GetHistory(executionContext context.Context, limit int) ([]gitrepo.Commit, error) {
	return service.reporter.GetHistory(executionContext, limit)
}

// ListBranches returns local branches with the current one marked.
func (service *Service) ListBranches(executionContext context.Context) ([]gitrepo.Branch, error) {
	return service.manager.ListBranches(executionContext)
}

// SwitchCheckout checks out name on behalf of actor.
func (service *Service) SwitchCheckout(executionContext context.Context, actor branches.Actor, name string) (branches.SwitchResult, error) {
	return service.manager.SwitchCheckout(executionContext, actor, name)
}

// TestConnection reports whether the remote accepts the configured credentials.
func (service *Service) TestConnection(executionContext context.Context) (connectivity.Result, error) {
	return service.probe.TestConnection(executionContext)
}

// Status lists pending changes without taking the mutation gate.
func (service *Service) Status(executionContext context.Context) (StatusReport, error) {
	var status gitrepo.WorkingTreeStatus
	observeError := service.serializer.Observe(executionContext, statusOperationNameConstant, func(operationContext context.Context) error {
		var statusError error
		status, statusError = service.gateway.Status(operationContext)
		return statusError
	})
	if observeError != nil {
		return StatusReport{}, gitrepo.ToOperationError(vcserrors.OperationStatus, observeError)
	}
	return StatusReport{Clean: status.IsClean(), ChangedPaths: status.Paths()}, nil
}

// SuggestChange hands the pending diff to the configured analyzer and returns its answer unchanged.
// A clean working tree yields an empty Suggestion without consulting the analyzer.
func (service *Service) SuggestChange(executionContext context.Context) (analysis.Suggestion, error) {
	if service.analyzer == nil {
		return analysis.Suggestion{}, analysis.ErrAnalyzerNotConfigured
	}

	var input analysis.Input
	observeError := service.serializer.Observe(executionContext, suggestOperationNameConstant, func(operationContext context.Context) error {
		status, statusError := service.gateway.Status(operationContext)
		if statusError != nil {
			return statusError
		}
		input.ChangedPaths = status.Paths()
		if status.IsClean() {
			return nil
		}
		diff, diffError := service.gateway.Diff(operationContext)
		if diffError != nil {
			return diffError
		}
		input.Diff = diff
		return nil
	})
	if observeError != nil {
		return analysis.Suggestion{}, gitrepo.ToOperationError(vcserrors.OperationSuggestChange, observeError)
	}
	if input.IsEmpty() {
		service.logger.Debug(suggestSkippedLogMessageConstant)
		return analysis.Suggestion{}, nil
	}

	suggestion, suggestError := service.analyzer.Suggest(executionContext, input)
	if suggestError != nil {
		service.logger.Warn(analyzerFailedLogMessageConstant,
			zap.Strings(changedPathsFieldConstant, input.ChangedPaths),
			zap.String(errorFieldConstant, execshell.RedactCredentials(suggestError.Error())),
		)
		return analysis.Suggestion{}, vcserrors.New(vcserrors.OperationSuggestChange, vcserrors.CodeProcessFailure, suggestError)
	}
	return suggestion, nil
}
