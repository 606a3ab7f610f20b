// Package vcserrors defines the caller-facing failure taxonomy of the versioning engine.
//
// OperationError.Error is safe for server logs. OperationError.Message is safe to show
// to an administrator: it never contains process output, filesystem paths, or credentials.
package vcserrors

import (
	"errors"
	"fmt"
)

// Code classifies an operation failure.
type Code string

// OperationName identifies the caller-facing operation that failed.
type OperationName string

const (
	CodeAuthenticationFailed  Code = "AuthenticationFailed"
	CodeMissingCredentials    Code = "MissingCredentials"
	CodeNoSuchRemote          Code = "NoSuchRemote"
	CodeNoSuchBranch          Code = "NoSuchBranch"
	CodeNotARepository        Code = "NotARepository"
	CodeCommitFailed          Code = "CommitFailed"
	CodePushFailed            Code = "PushFailed"
	CodeRevertConflict        Code = "RevertConflict"
	CodeUnknownRevision       Code = "UnknownRevision"
	CodeInvalidArgument       Code = "InvalidArgument"
	CodeInsufficientPrivilege Code = "InsufficientPrivilege"
	CodeProcessFailure        Code = "ProcessFailure"
)

const (
	OperationRecordChange     OperationName = "record change"
	OperationCommitAllChanges OperationName = "commit all changes"
	OperationRevertCommit     OperationName = "revert commit"
	OperationGetHistory       OperationName = "get history"
	OperationListBranches     OperationName = "list branches"
	OperationSwitchCheckout   OperationName = "switch checkout"
	OperationTestConnection   OperationName = "test connection"
	OperationBuildRemote      OperationName = "build authenticated remote"
	OperationSuggestChange    OperationName = "suggest change"
	OperationStatus           OperationName = "status"
)

const (
	operationErrorTemplateConstant           = "%s failed: %s"
	operationErrorWithCauseTemplateConstant  = "%s failed: %s: %v"
	operationErrorWithCommitTemplateConstant = "%s failed: %s (local commit %s): %v"

	authenticationFailedMessageConstant    = "The remote rejected the configured credentials. Check the username and access token."
	missingCredentialsMessageConstant      = "Remote credentials are not configured. Set a username and an access token."
	noSuchRemoteMessageConstant            = "The configured remote does not exist in the content repository."
	noSuchBranchMessageConstant            = "The requested branch does not exist."
	notARepositoryMessageConstant          = "The configured content directory is not a version-controlled repository."
	commitFailedMessageConstant            = "The change could not be recorded. Details were written to the server log."
	pushFailedTemplateConstant             = "The change was saved locally as commit %s but could not be sent to the remote."
	pushFailedWithoutCommitMessageConstant = "The change could not be sent to the remote."
	revertConflictMessageConstant          = "The commit could not be reverted cleanly. The working tree was restored."
	unknownRevisionMessageConstant         = "The requested commit does not exist."
	invalidArgumentTemplateConstant        = "Invalid request: %s."
	invalidArgumentMessageConstant         = "Invalid request."
	insufficientPrivilegeMessageConstant   = "This operation requires administrator privileges."
	processFailureMessageConstant          = "The version control operation failed. Details were written to the server log."
)

// OperationError is the single error type returned by caller-facing operations.
type OperationError struct {
	Operation  OperationName
	Code       Code
	CommitHash string
	Cause      error
}

// Error describes the failure for logs.
func (operationError OperationError) Error() string {
	if len(operationError.CommitHash) > 0 {
		return fmt.Sprintf(operationErrorWithCommitTemplateConstant, operationError.Operation, operationError.Code, operationError.CommitHash, operationError.Cause)
	}
	if operationError.Cause == nil {
		return fmt.Sprintf(operationErrorTemplateConstant, operationError.Operation, operationError.Code)
	}
	return fmt.Sprintf(operationErrorWithCauseTemplateConstant, operationError.Operation, operationError.Code, operationError.Cause)
}

// Unwrap exposes the underlying cause.
func (operationError OperationError) Unwrap() error {
	return operationError.Cause
}

// Message returns text suitable for an administrator.
func (operationError OperationError) Message() string {
	switch operationError.Code {
	case CodeAuthenticationFailed:
		return authenticationFailedMessageConstant
	case CodeMissingCredentials:
		return missingCredentialsMessageConstant
	case CodeNoSuchRemote:
		return noSuchRemoteMessageConstant
	case CodeNoSuchBranch:
		return noSuchBranchMessageConstant
	case CodeNotARepository:
		return notARepositoryMessageConstant
	case CodeCommitFailed:
		return commitFailedMessageConstant
	case CodePushFailed:
		if len(operationError.CommitHash) > 0 {
			return fmt.Sprintf(pushFailedTemplateConstant, operationError.CommitHash)
		}
		return pushFailedWithoutCommitMessageConstant
	case CodeRevertConflict:
		return revertConflictMessageConstant
	case CodeUnknownRevision:
		return unknownRevisionMessageConstant
	case CodeInvalidArgument:
		var argumentError ArgumentError
		if errors.As(operationError.Cause, &argumentError) {
			return fmt.Sprintf(invalidArgumentTemplateConstant, argumentError.Reason)
		}
		return invalidArgumentMessageConstant
	case CodeInsufficientPrivilege:
		return insufficientPrivilegeMessageConstant
	default:
		return processFailureMessageConstant
	}
}

// ArgumentError describes caller input rejected before any git process runs.
// Reason must not contain secrets; it is shown to administrators.
type ArgumentError struct {
	Field  string
	Reason string
}

// Error describes the rejected input.
func (argumentError ArgumentError) Error() string {
	return fmt.Sprintf("%s: %s", argumentError.Field, argumentError.Reason)
}

// New constructs an OperationError.
func New(operation OperationName, code Code, cause error) OperationError {
	return OperationError{Operation: operation, Code: code, Cause: cause}
}

// CodeOf extracts the classification of err, reporting ProcessFailure for foreign errors.
func CodeOf(err error) Code {
	var operationError OperationError
	if errors.As(err, &operationError) {
		return operationError.Code
	}
	return CodeProcessFailure
}

// HasCode reports whether err is an OperationError with the given code.
func HasCode(err error, code Code) bool {
	var operationError OperationError
	return errors.As(err, &operationError) && operationError.Code == code
}
