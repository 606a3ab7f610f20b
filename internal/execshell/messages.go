package execshell

import (
	"fmt"
	"regexp"
	"strings"
)

type messageStage int

const (
	messageStageStart messageStage = iota
	messageStageSuccess
	messageStageFailure
	messageStageExecutionFailure
)

const (
	genericStartTemplateConstant            = "Running %s"
	genericSuccessTemplateConstant          = "Completed %s"
	genericFailureTemplateConstant          = "%s failed with exit code %d%s"
	genericExecutionFailureTemplateConstant = "%s failed: %s"
	commandLabelTemplateConstant            = "%s%s"
	workingDirectorySuffixTemplateConstant  = " (in %s)"
	commandArgumentsJoinSeparatorConstant   = " "
	standardErrorSuffixTemplateConstant     = ": %s"
	unknownFailureMessageConstant           = "unknown error"
	emptyStringConstant                     = ""
	defaultWorkingDirectoryLabelConstant    = "current directory"
	fallbackUnknownValueLabelConstant       = "unknown"
	redactedCredentialReplacementConstant   = "${scheme}***@"
)

const (
	gitStatusSubcommandNameConstant    = "status"
	gitLogSubcommandNameConstant       = "log"
	gitAddSubcommandNameConstant       = "add"
	gitCommitSubcommandNameConstant    = "commit"
	gitPushSubcommandNameConstant      = "push"
	gitRevertSubcommandNameConstant    = "revert"
	gitRemoteSubcommandNameConstant    = "remote"
	gitBranchSubcommandNameConstant    = "branch"
	gitCheckoutSubcommandNameConstant  = "checkout"
	gitLSRemoteSubcommandNameConstant  = "ls-remote"
	gitRevParseSubcommandNameConstant  = "rev-parse"
	gitDiffSubcommandNameConstant      = "diff"
	gitAbortFlagConstant               = "--abort"
	gitMessageFlagConstant             = "-m"
	gitRemoteGetURLSubcommandConstant  = "get-url"
	gitWorkTreeFlagConstant            = "--is-inside-work-tree"
	gitFlagPrefixConstant              = "-"
	gitLogCountFlagPrefixConstant      = "-n"
	gitAllRevisionsLabelConstant       = "all changes"
	gitRevertInProgressLabelConstant   = "in-progress revert"
	gitRemoteListLabelConstant         = "remotes"
	gitLocalBranchesLabelConstant      = "local branches"
	gitPendingChangesDiffLabelConstant = "pending changes"
)

const (
	gitStatusStartTemplateConstant          = "Reviewing working tree status in %s"
	gitStatusSuccessTemplateConstant        = "Collected working tree status for %s"
	gitLogStartTemplateConstant             = "Reading %s commits of history in %s"
	gitLogSuccessTemplateConstant           = "Read %s commits of history in %s"
	gitAddStartTemplateConstant             = "Staging %s in %s"
	gitAddSuccessTemplateConstant           = "Staged %s in %s"
	gitCommitStartTemplateConstant          = "Creating commit in %s with message %q"
	gitCommitSuccessTemplateConstant        = "Created commit in %s with message %q"
	gitPushStartTemplateConstant            = "Pushing %s to %s from %s"
	gitPushSuccessTemplateConstant          = "Pushed %s to %s from %s"
	gitRevertStartTemplateConstant          = "Reverting %s in %s"
	gitRevertSuccessTemplateConstant        = "Reverted %s in %s"
	gitRevertAbortStartTemplateConstant     = "Aborting %s in %s"
	gitRevertAbortSuccessTemplateConstant   = "Aborted %s in %s"
	gitRemoteLookupStartTemplateConstant    = "Checking %s remote for %s"
	gitRemoteLookupSuccessTemplateConstant  = "%s remote for %s points to %s"
	gitRemoteListStartTemplateConstant      = "Listing %s of %s"
	gitRemoteListSuccessTemplateConstant    = "Listed %s of %s"
	gitBranchListStartTemplateConstant      = "Listing %s in %s"
	gitBranchListSuccessTemplateConstant    = "Listed %s in %s"
	gitCheckoutStartTemplateConstant        = "Switching %s to branch %s"
	gitCheckoutSuccessTemplateConstant      = "%s now on branch %s"
	gitLSRemoteStartTemplateConstant        = "Listing branches on %s from %s"
	gitLSRemoteSuccessTemplateConstant      = "Listed branches on %s from %s"
	gitRevParseStartTemplateConstant        = "Resolving %s in %s"
	gitRevParseSuccessTemplateConstant      = "%s in %s resolved to %s"
	gitWorkTreeStartTemplateConstant        = "Analyzing repository at %s"
	gitWorkTreeSuccessTemplateConstant      = "%s is a Git repository"
	gitDiffStartTemplateConstant            = "Collecting diff of %s in %s"
	gitDiffSuccessTemplateConstant          = "Collected diff of %s in %s"
	gitTargetedFailureTemplateConstant      = "%s (exit code %d%s)"
)

const gitTargetedExecutionFailureTemplateConstant = "%s: %s"

var credentialInURLPattern = regexp.MustCompile(`(?P<scheme>[A-Za-z][A-Za-z0-9+.\-]*://)[^/@\s]+@`)

// RedactCredentials removes user information from every URL embedded in text.
func RedactCredentials(text string) string {
	return credentialInURLPattern.ReplaceAllString(text, redactedCredentialReplacementConstant)
}

// RedactArguments returns a copy of arguments with embedded URL credentials removed.
func RedactArguments(arguments []string) []string {
	redacted := make([]string, len(arguments))
	for argumentIndex, argument := range arguments {
		redacted[argumentIndex] = RedactCredentials(argument)
	}
	return redacted
}

// CommandMessageFormatter builds human-readable messages for command lifecycle events.
type CommandMessageFormatter struct{}

// BuildStartedMessage formats the message describing a command about to run.
func (formatter CommandMessageFormatter) BuildStartedMessage(command ShellCommand) string {
	return formatter.buildMessage(command, ExecutionResult{}, nil, messageStageStart)
}

// BuildSuccessMessage formats the message describing a completed command with a zero exit code.
func (formatter CommandMessageFormatter) BuildSuccessMessage(command ShellCommand) string {
	return formatter.buildMessage(command, ExecutionResult{}, nil, messageStageSuccess)
}

// BuildFailureMessage formats the message describing a command that returned a non-zero exit code.
func (formatter CommandMessageFormatter) BuildFailureMessage(command ShellCommand, result ExecutionResult) string {
	return formatter.buildMessage(command, result, nil, messageStageFailure)
}

// BuildExecutionFailureMessage formats the message describing an unexpected execution failure.
func (formatter CommandMessageFormatter) BuildExecutionFailureMessage(command ShellCommand, failure error) string {
	return formatter.buildMessage(command, ExecutionResult{}, failure, messageStageExecutionFailure)
}

func (formatter CommandMessageFormatter) buildMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	if command.Name != CommandGit || len(command.Details.Arguments) == 0 {
		return formatter.buildGenericMessage(command, result, failure, stage)
	}

	startMessage, successMessage, described := formatter.describeGitCommand(command, result)
	if !described {
		return formatter.buildGenericMessage(command, result, failure, stage)
	}

	switch stage {
	case messageStageStart:
		return startMessage
	case messageStageSuccess:
		return successMessage
	case messageStageFailure:
		return fmt.Sprintf(gitTargetedFailureTemplateConstant, startMessage, result.ExitCode, formatter.formatStandardErrorSuffix(result.StandardError))
	case messageStageExecutionFailure:
		return fmt.Sprintf(gitTargetedExecutionFailureTemplateConstant, startMessage, formatter.describeFailure(failure))
	default:
		return formatter.buildGenericMessage(command, result, failure, stage)
	}
}

// describeGitCommand returns the start and success descriptions of a recognised git subcommand.
func (formatter CommandMessageFormatter) describeGitCommand(command ShellCommand, result ExecutionResult) (string, string, bool) {
	arguments := command.Details.Arguments
	workingDirectory := formatter.describeWorkingDirectory(command)
	subcommand := strings.TrimSpace(arguments[0])

	switch subcommand {
	case gitStatusSubcommandNameConstant:
		return fmt.Sprintf(gitStatusStartTemplateConstant, workingDirectory), fmt.Sprintf(gitStatusSuccessTemplateConstant, workingDirectory), true
	case gitLogSubcommandNameConstant:
		count := formatter.ensureValue(formatter.extractLogCount(arguments))
		return fmt.Sprintf(gitLogStartTemplateConstant, count, workingDirectory), fmt.Sprintf(gitLogSuccessTemplateConstant, count, workingDirectory), true
	case gitAddSubcommandNameConstant:
		return fmt.Sprintf(gitAddStartTemplateConstant, gitAllRevisionsLabelConstant, workingDirectory), fmt.Sprintf(gitAddSuccessTemplateConstant, gitAllRevisionsLabelConstant, workingDirectory), true
	case gitCommitSubcommandNameConstant:
		commitMessage := findFlagValue(arguments, gitMessageFlagConstant)
		return fmt.Sprintf(gitCommitStartTemplateConstant, workingDirectory, commitMessage), fmt.Sprintf(gitCommitSuccessTemplateConstant, workingDirectory, commitMessage), true
	case gitPushSubcommandNameConstant:
		remote := formatter.ensureValue(RedactCredentials(formatter.argumentAtIndex(formatter.nonFlagArguments(arguments), 1)))
		reference := formatter.ensureValue(formatter.argumentAtIndex(formatter.nonFlagArguments(arguments), 2))
		return fmt.Sprintf(gitPushStartTemplateConstant, reference, remote, workingDirectory), fmt.Sprintf(gitPushSuccessTemplateConstant, reference, remote, workingDirectory), true
	case gitRevertSubcommandNameConstant:
		if containsArgument(arguments, gitAbortFlagConstant) {
			return fmt.Sprintf(gitRevertAbortStartTemplateConstant, gitRevertInProgressLabelConstant, workingDirectory), fmt.Sprintf(gitRevertAbortSuccessTemplateConstant, gitRevertInProgressLabelConstant, workingDirectory), true
		}
		target := formatter.ensureValue(formatter.argumentAtIndex(formatter.nonFlagArguments(arguments), 1))
		return fmt.Sprintf(gitRevertStartTemplateConstant, target, workingDirectory), fmt.Sprintf(gitRevertSuccessTemplateConstant, target, workingDirectory), true
	case gitRemoteSubcommandNameConstant:
		if formatter.argumentAtIndex(arguments, 1) == gitRemoteGetURLSubcommandConstant {
			remoteName := formatter.ensureValue(formatter.argumentAtIndex(arguments, 2))
			remoteURL := formatter.ensureValue(RedactCredentials(strings.TrimSpace(result.StandardOutput)))
			return fmt.Sprintf(gitRemoteLookupStartTemplateConstant, remoteName, workingDirectory), fmt.Sprintf(gitRemoteLookupSuccessTemplateConstant, remoteName, workingDirectory, remoteURL), true
		}
		return fmt.Sprintf(gitRemoteListStartTemplateConstant, gitRemoteListLabelConstant, workingDirectory), fmt.Sprintf(gitRemoteListSuccessTemplateConstant, gitRemoteListLabelConstant, workingDirectory), true
	case gitBranchSubcommandNameConstant:
		return fmt.Sprintf(gitBranchListStartTemplateConstant, gitLocalBranchesLabelConstant, workingDirectory), fmt.Sprintf(gitBranchListSuccessTemplateConstant, gitLocalBranchesLabelConstant, workingDirectory), true
	case gitCheckoutSubcommandNameConstant:
		branchName := formatter.ensureValue(formatter.argumentAtIndex(formatter.nonFlagArguments(arguments), 1))
		return fmt.Sprintf(gitCheckoutStartTemplateConstant, workingDirectory, branchName), fmt.Sprintf(gitCheckoutSuccessTemplateConstant, workingDirectory, branchName), true
	case gitLSRemoteSubcommandNameConstant:
		remote := formatter.ensureValue(RedactCredentials(formatter.argumentAtIndex(formatter.nonFlagArguments(arguments), 1)))
		return fmt.Sprintf(gitLSRemoteStartTemplateConstant, remote, workingDirectory), fmt.Sprintf(gitLSRemoteSuccessTemplateConstant, remote, workingDirectory), true
	case gitRevParseSubcommandNameConstant:
		if containsArgument(arguments, gitWorkTreeFlagConstant) {
			return fmt.Sprintf(gitWorkTreeStartTemplateConstant, workingDirectory), fmt.Sprintf(gitWorkTreeSuccessTemplateConstant, workingDirectory), true
		}
		reference := formatter.ensureValue(formatter.argumentAtIndex(formatter.nonFlagArguments(arguments), 1))
		resolved := formatter.ensureValue(strings.TrimSpace(result.StandardOutput))
		return fmt.Sprintf(gitRevParseStartTemplateConstant, reference, workingDirectory), fmt.Sprintf(gitRevParseSuccessTemplateConstant, reference, workingDirectory, resolved), true
	case gitDiffSubcommandNameConstant:
		return fmt.Sprintf(gitDiffStartTemplateConstant, gitPendingChangesDiffLabelConstant, workingDirectory), fmt.Sprintf(gitDiffSuccessTemplateConstant, gitPendingChangesDiffLabelConstant, workingDirectory), true
	default:
		return emptyStringConstant, emptyStringConstant, false
	}
}

func (formatter CommandMessageFormatter) buildGenericMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	commandLabel := describeCommand(command)
	switch stage {
	case messageStageStart:
		return fmt.Sprintf(genericStartTemplateConstant, commandLabel)
	case messageStageSuccess:
		return fmt.Sprintf(genericSuccessTemplateConstant, commandLabel)
	case messageStageFailure:
		return fmt.Sprintf(genericFailureTemplateConstant, commandLabel, result.ExitCode, formatter.formatStandardErrorSuffix(result.StandardError))
	default:
		return fmt.Sprintf(genericExecutionFailureTemplateConstant, commandLabel, formatter.describeFailure(failure))
	}
}

func describeCommand(command ShellCommand) string {
	commandParts := append([]string{string(command.Name)}, RedactArguments(command.Details.Arguments)...)
	workingDirectorySuffix := emptyStringConstant
	if len(strings.TrimSpace(command.Details.WorkingDirectory)) > 0 {
		workingDirectorySuffix = fmt.Sprintf(workingDirectorySuffixTemplateConstant, command.Details.WorkingDirectory)
	}
	return fmt.Sprintf(commandLabelTemplateConstant, strings.Join(commandParts, commandArgumentsJoinSeparatorConstant), workingDirectorySuffix)
}

func (formatter CommandMessageFormatter) formatStandardErrorSuffix(standardError string) string {
	trimmed := strings.TrimSpace(standardError)
	if len(trimmed) == 0 {
		return emptyStringConstant
	}
	return fmt.Sprintf(standardErrorSuffixTemplateConstant, RedactCredentials(trimmed))
}

func (formatter CommandMessageFormatter) describeWorkingDirectory(command ShellCommand) string {
	trimmed := strings.TrimSpace(command.Details.WorkingDirectory)
	if len(trimmed) == 0 {
		return defaultWorkingDirectoryLabelConstant
	}
	return trimmed
}

func (formatter CommandMessageFormatter) describeFailure(failure error) string {
	if failure == nil {
		return unknownFailureMessageConstant
	}
	return RedactCredentials(failure.Error())
}

func (formatter CommandMessageFormatter) argumentAtIndex(arguments []string, index int) string {
	if index < 0 || index >= len(arguments) {
		return emptyStringConstant
	}
	return strings.TrimSpace(arguments[index])
}

func (formatter CommandMessageFormatter) ensureValue(value string) string {
	if len(strings.TrimSpace(value)) == 0 {
		return fallbackUnknownValueLabelConstant
	}
	return value
}

func (formatter CommandMessageFormatter) nonFlagArguments(arguments []string) []string {
	filtered := make([]string, 0, len(arguments))
	for _, argument := range arguments {
		if strings.HasPrefix(argument, gitFlagPrefixConstant) {
			continue
		}
		filtered = append(filtered, argument)
	}
	return filtered
}

func (formatter CommandMessageFormatter) extractLogCount(arguments []string) string {
	for _, argument := range arguments {
		if strings.HasPrefix(argument, gitLogCountFlagPrefixConstant) {
			return strings.TrimPrefix(argument, gitLogCountFlagPrefixConstant)
		}
	}
	return emptyStringConstant
}

func containsArgument(arguments []string, value string) bool {
	for _, argument := range arguments {
		if strings.TrimSpace(argument) == value {
			return true
		}
	}
	return false
}

func findFlagValue(arguments []string, flag string) string {
	for argumentIndex := 0; argumentIndex < len(arguments)-1; argumentIndex++ {
		if arguments[argumentIndex] == flag {
			return arguments[argumentIndex+1]
		}
	}
	return emptyStringConstant
}
