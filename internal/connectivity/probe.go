// Package connectivity checks that the configured remote accepts the configured credentials.
//
// Expected failures such as missing credentials, rejected credentials or an unreachable host
// are reported in Result. Only faults of the local installation are returned as errors.
package connectivity

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/temirov/contentaudit/internal/credentials"
	"github.com/temirov/contentaudit/internal/execshell"
	"github.com/temirov/contentaudit/internal/gate"
	"github.com/temirov/contentaudit/internal/gitrepo"
	"github.com/temirov/contentaudit/internal/vcserrors"
)

const (
	authenticatorMissingMessageConstant = "remote authenticator not configured"
	listerMissingMessageConstant        = "remote reference lister not configured"
	observerMissingMessageConstant      = "probe observer not configured"
	operationNameConstant               = "test connection"
	defaultProbeIntervalConstant        = 2 * time.Second
	probeBurstConstant                  = 1

	connectedTemplateConstant              = "Connected to %s; branch %s is present."
	connectedMissingBranchTemplateConstant = "Connected to %s, but branch %s does not exist there yet."
	throttledMessageConstant               = "Connection tests are limited to one every few seconds. Try again shortly."
	unreachableMessageConstant             = "The remote could not be reached. Check the network and the remote URL."
	timedOutMessageConstant                = "The remote did not answer in time."
	unexpectedFailureMessageConstant       = "The remote rejected the connection test. Check the server logs for details."
	probeSucceededLogMessageConstant       = "connection test succeeded"
	probeFailedLogMessageConstant          = "connection test failed"
	probeThrottledLogMessageConstant       = "connection test throttled"
	remoteFieldConstant                    = "remote"
	branchFieldConstant                    = "branch"
	branchPresentFieldConstant             = "branch_present"
	referenceCountFieldConstant            = "reference_count"
	errorCodeFieldConstant                 = "error_code"
	gitFailureKindFieldConstant            = "git_failure_kind"
	gitDetailFieldConstant                 = "git_detail"
	branchReferencePrefixConstant          = "refs/heads/"
	previousResultFieldConstant            = "previous_result"
	previousOKFieldConstant                = "previous_ok"
)

// ErrAuthenticatorNotConfigured indicates the probe was built without an authenticator.
var ErrAuthenticatorNotConfigured = errors.New(authenticatorMissingMessageConstant)

// ErrListerNotConfigured indicates the probe was built without a remote reference lister.
var ErrListerNotConfigured = errors.New(listerMissingMessageConstant)

// ErrObserverNotConfigured indicates the probe was built without a revert barrier.
var ErrObserverNotConfigured = errors.New(observerMissingMessageConstant)

// RemoteAuthenticator builds the remote endpoint to probe.
type RemoteAuthenticator interface {
	BuildAuthenticatedRemote(executionContext context.Context) (*credentials.AuthenticatedRemote, error)
}

// RemoteReferenceLister lists branch heads on a remote without changing anything.
type RemoteReferenceLister interface {
	ListRemoteRefs(executionContext context.Context, endpoint gitrepo.RemoteEndpoint) ([]gitrepo.RemoteRef, error)
}

// Observer runs read-only work outside the mutation gate.
type Observer interface {
	Observe(executionContext context.Context, operationName string, operation gate.Operation) error
}

// ProbeDependencies enumerates collaborators required by the Probe.
type ProbeDependencies struct {
	Authenticator RemoteAuthenticator
	Lister        RemoteReferenceLister
	Observer      Observer
	Logger        *zap.Logger
}

// ProbeConfiguration tunes the probe.
type ProbeConfiguration struct {
	Branch        string
	ProbeInterval time.Duration
}

// Result reports the outcome of a connection test. Throttled marks a repeated answer:
// the remote was not contacted and OK and Message come from the previous test.
type Result struct {
	OK        bool   `json:"ok" yaml:"ok"`
	Message   string `json:"message" yaml:"message"`
	Throttled bool   `json:"throttled,omitempty" yaml:"throttled,omitempty"`
}

// Probe performs throttled, read-only reachability checks against the remote.
type Probe struct {
	authenticator RemoteAuthenticator
	lister        RemoteReferenceLister
	observer      Observer
	logger        *zap.Logger
	limiter       *rate.Limiter
	branch        string

	lastResultMutex sync.Mutex
	lastResult      *Result
}

// NewProbe validates dependencies and constructs a Probe.
func NewProbe(dependencies ProbeDependencies, configuration ProbeConfiguration) (*Probe, error) {
	if dependencies.Authenticator == nil {
		return nil, ErrAuthenticatorNotConfigured
	}
	if dependencies.Lister == nil {
		return nil, ErrListerNotConfigured
	}
	if dependencies.Observer == nil {
		return nil, ErrObserverNotConfigured
	}
	logger := dependencies.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	interval := configuration.ProbeInterval
	if interval <= 0 {
		interval = defaultProbeIntervalConstant
	}
	return &Probe{
		authenticator: dependencies.Authenticator,
		lister:        dependencies.Lister,
		observer:      dependencies.Observer,
		logger:        logger,
		limiter:       rate.NewLimiter(rate.Every(interval), probeBurstConstant),
		branch:        configuration.Branch,
	}, nil
}

// TestConnection builds the authenticated remote and lists its branch heads.
func (probe *Probe) TestConnection(executionContext context.Context) (Result, error) {
	if !probe.limiter.Allow() {
		return probe.throttledResult(), nil
	}

	var result Result
	observeError := probe.observer.Observe(executionContext, operationNameConstant, func(operationContext context.Context) error {
		var probeError error
		result, probeError = probe.probe(operationContext)
		return probeError
	})
	if observeError != nil {
		var operationError vcserrors.OperationError
		if errors.As(observeError, &operationError) {
			return Result{}, operationError
		}
		result = Result{OK: false, Message: timedOutMessageConstant}
	}
	probe.rememberResult(result)
	return result, nil
}

// throttledResult repeats the last completed test. Before any test has completed it
// reports the throttle itself without claiming the remote failed.
func (probe *Probe) throttledResult() Result {
	probe.lastResultMutex.Lock()
	defer probe.lastResultMutex.Unlock()

	if probe.lastResult == nil {
		probe.logger.Info(probeThrottledLogMessageConstant, zap.Bool(previousResultFieldConstant, false))
		return Result{OK: false, Message: throttledMessageConstant, Throttled: true}
	}
	probe.logger.Info(probeThrottledLogMessageConstant, zap.Bool(previousResultFieldConstant, true), zap.Bool(previousOKFieldConstant, probe.lastResult.OK))
	repeated := *probe.lastResult
	repeated.Throttled = true
	return repeated
}

func (probe *Probe) rememberResult(result Result) {
	probe.lastResultMutex.Lock()
	defer probe.lastResultMutex.Unlock()
	probe.lastResult = &result
}

func (probe *Probe) probe(executionContext context.Context) (Result, error) {
	remote, buildError := probe.authenticator.BuildAuthenticatedRemote(executionContext)
	if buildError != nil {
		return probe.classify(buildError)
	}
	defer remote.Clear()

	references, listError := probe.lister.ListRemoteRefs(executionContext, remote)
	if listError != nil {
		return probe.classify(listError)
	}

	branchPresent := false
	for _, reference := range references {
		if reference.Name == branchReferencePrefixConstant+probe.branch || reference.Name == probe.branch {
			branchPresent = true
			break
		}
	}
	probe.logger.Info(probeSucceededLogMessageConstant,
		zap.String(remoteFieldConstant, remote.String()),
		zap.String(branchFieldConstant, probe.branch),
		zap.Bool(branchPresentFieldConstant, branchPresent),
		zap.Int(referenceCountFieldConstant, len(references)),
	)
	template := connectedTemplateConstant
	if !branchPresent {
		template = connectedMissingBranchTemplateConstant
	}
	return Result{OK: true, Message: fmt.Sprintf(template, remote.String(), probe.branch)}, nil
}

// classify turns expected failures into a negative Result and escalates local faults.
func (probe *Probe) classify(failure error) (Result, error) {
	operationError := gitrepo.ToOperationError(vcserrors.OperationTestConnection, failure)
	kind := gitrepo.KindOf(failure)
	probe.logger.Warn(probeFailedLogMessageConstant,
		zap.String(errorCodeFieldConstant, string(operationError.Code)),
		zap.String(gitFailureKindFieldConstant, string(kind)),
		zap.String(gitDetailFieldConstant, gitrepo.DetailOf(failure)),
	)

	if isInfrastructureFault(operationError, failure) {
		return Result{}, operationError
	}

	switch {
	case kind == gitrepo.KindRemoteUnreachable:
		return Result{OK: false, Message: unreachableMessageConstant}, nil
	case kind == gitrepo.KindTimeout:
		return Result{OK: false, Message: timedOutMessageConstant}, nil
	case operationError.Code == vcserrors.CodeProcessFailure:
		return Result{OK: false, Message: unexpectedFailureMessageConstant}, nil
	default:
		return Result{OK: false, Message: operationError.Message()}, nil
	}
}

// isInfrastructureFault reports failures that no change of credentials or network can fix:
// the content path is not a repository, or git could not be started at all.
func isInfrastructureFault(operationError vcserrors.OperationError, failure error) bool {
	if operationError.Code == vcserrors.CodeNotARepository {
		return true
	}
	var executionError execshell.CommandExecutionError
	return errors.As(failure, &executionError) && !errors.Is(failure, context.DeadlineExceeded)
}
