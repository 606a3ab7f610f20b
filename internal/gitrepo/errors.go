package gitrepo

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/temirov/contentaudit/internal/execshell"
	"github.com/temirov/contentaudit/internal/vcserrors"
)

// ErrorKind classifies a failed git invocation.
type ErrorKind string

// Gateway failure kinds.
const (
	KindNotARepository        ErrorKind = "not a repository"
	KindNoSuchRemote          ErrorKind = "no such remote"
	KindAuthenticationFailed  ErrorKind = "authentication failed"
	KindConflict              ErrorKind = "conflict"
	KindDirtyOrMissingChanges ErrorKind = "dirty or missing changes"
	KindNoSuchBranch          ErrorKind = "no such branch"
	KindUnknownRevision       ErrorKind = "unknown revision"
	KindRemoteUnreachable     ErrorKind = "remote unreachable"
	KindInvalidArgument       ErrorKind = "invalid argument"
	KindTimeout               ErrorKind = "timed out"
	KindProcessFailure        ErrorKind = "process failure"
)

const (
	gatewayErrorTemplateConstant = "git %s failed: %s"
	timedOutDetailConstant       = "git did not finish before its deadline"
)

// GatewayError is returned by every Gateway method on failure.
// Error never includes git output; Detail carries redacted git output for server-side logs.
type GatewayError struct {
	Operation string
	Kind      ErrorKind
	detail    string
	cause     error
}

// Error describes the failure without tool output.
func (gatewayError GatewayError) Error() string {
	return fmt.Sprintf(gatewayErrorTemplateConstant, gatewayError.Operation, gatewayError.Kind)
}

// Unwrap exposes the underlying execution failure.
func (gatewayError GatewayError) Unwrap() error {
	return gatewayError.cause
}

// Detail returns redacted diagnostic text for logs. It must not be shown to users.
func (gatewayError GatewayError) Detail() string {
	return gatewayError.detail
}

// IsKind reports whether err is a GatewayError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var gatewayError GatewayError
	return errors.As(err, &gatewayError) && gatewayError.Kind == kind
}

// KindOf returns the kind of a GatewayError, or KindProcessFailure for anything else.
func KindOf(err error) ErrorKind {
	var gatewayError GatewayError
	if errors.As(err, &gatewayError) {
		return gatewayError.Kind
	}
	return KindProcessFailure
}

type classificationRule struct {
	kind      ErrorKind
	fragments []string
}

// Rules are evaluated in order; authentication precedes reachability because
// git reports both through "unable to access".
var classificationRules = []classificationRule{
	{kind: KindNotARepository, fragments: []string{"not a git repository"}},
	{kind: KindNoSuchRemote, fragments: []string{"no such remote", "does not appear to be a git repository"}},
	{kind: KindAuthenticationFailed, fragments: []string{
		"authentication failed",
		"could not read username",
		"could not read password",
		"invalid username or password",
		"the requested url returned error: 401",
		"the requested url returned error: 403",
		"permission denied",
	}},
	{kind: KindRemoteUnreachable, fragments: []string{
		"could not resolve host",
		"failed to connect",
		"connection refused",
		"connection timed out",
		"network is unreachable",
		"unable to access",
		"repository not found",
	}},
	{kind: KindConflict, fragments: []string{"conflict", "could not revert", "after resolving the conflicts"}},
	{kind: KindDirtyOrMissingChanges, fragments: []string{"nothing to commit", "nothing added to commit", "no changes added to commit"}},
	{kind: KindNoSuchBranch, fragments: []string{"did not match any file(s) known to git", "invalid reference", "not a valid branch name"}},
	{kind: KindUnknownRevision, fragments: []string{"bad revision", "bad object", "unknown revision", "does not have any commits yet", "ambiguous argument"}},
}

func classifyOutput(output string) ErrorKind {
	normalized := strings.ToLower(output)
	for _, rule := range classificationRules {
		for _, fragment := range rule.fragments {
			if strings.Contains(normalized, fragment) {
				return rule.kind
			}
		}
	}
	return KindProcessFailure
}

// newGatewayError converts an executor failure into a GatewayError.
func newGatewayError(operation string, executionError error) GatewayError {
	var failedError execshell.CommandFailedError
	if errors.As(executionError, &failedError) {
		combinedOutput := strings.TrimSpace(failedError.Result.StandardError + "\n" + failedError.Result.StandardOutput)
		return GatewayError{
			Operation: operation,
			Kind:      classifyOutput(combinedOutput),
			detail:    execshell.RedactCredentials(combinedOutput),
			cause:     executionError,
		}
	}

	if errors.Is(executionError, context.DeadlineExceeded) {
		return GatewayError{Operation: operation, Kind: KindTimeout, detail: timedOutDetailConstant, cause: executionError}
	}

	return GatewayError{
		Operation: operation,
		Kind:      KindProcessFailure,
		detail:    execshell.RedactCredentials(executionError.Error()),
		cause:     executionError,
	}
}

func newArgumentError(operation string, field string, reason string) GatewayError {
	return GatewayError{
		Operation: operation,
		Kind:      KindInvalidArgument,
		detail:    reason,
		cause:     vcserrors.ArgumentError{Field: field, Reason: reason},
	}
}

var kindCodes = map[ErrorKind]vcserrors.Code{
	KindNotARepository:        vcserrors.CodeNotARepository,
	KindNoSuchRemote:          vcserrors.CodeNoSuchRemote,
	KindAuthenticationFailed:  vcserrors.CodeAuthenticationFailed,
	KindConflict:              vcserrors.CodeRevertConflict,
	KindDirtyOrMissingChanges: vcserrors.CodeCommitFailed,
	KindNoSuchBranch:          vcserrors.CodeNoSuchBranch,
	KindUnknownRevision:       vcserrors.CodeUnknownRevision,
	KindInvalidArgument:       vcserrors.CodeInvalidArgument,
	KindRemoteUnreachable:     vcserrors.CodeProcessFailure,
	KindTimeout:               vcserrors.CodeProcessFailure,
	KindProcessFailure:        vcserrors.CodeProcessFailure,
}

// ToOperationError maps err onto the caller-facing taxonomy.
// Errors that already are OperationError values keep their code.
func ToOperationError(operation vcserrors.OperationName, err error) vcserrors.OperationError {
	var operationError vcserrors.OperationError
	if errors.As(err, &operationError) {
		return operationError
	}
	code, known := kindCodes[KindOf(err)]
	if !known {
		code = vcserrors.CodeProcessFailure
	}
	return vcserrors.OperationError{Operation: operation, Code: code, Cause: err}
}

// DetailOf returns the redacted diagnostic text carried by a GatewayError in err's chain.
func DetailOf(err error) string {
	var gatewayError GatewayError
	if errors.As(err, &gatewayError) {
		return gatewayError.Detail()
	}
	if err == nil {
		return ""
	}
	return execshell.RedactCredentials(err.Error())
}
