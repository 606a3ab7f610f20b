package gitrepo

import (
	"context"
	"errors"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"go.uber.org/zap"

	"github.com/temirov/contentaudit/internal/execshell"
)

const (
	gitExecutorMissingMessageConstant    = "git executor not configured"
	repositoryPathMissingMessageConstant = "repository path must be provided"

	gitTerminalPromptEnvironmentNameConstant = "GIT_TERMINAL_PROMPT"
	gitTerminalPromptDisabledValueConstant   = "0"
	gitLocaleEnvironmentNameConstant         = "LC_ALL"
	gitLocaleValueConstant                   = "C"
	gitAuthorNameEnvironmentNameConstant     = "GIT_AUTHOR_NAME"
	gitAuthorEmailEnvironmentNameConstant    = "GIT_AUTHOR_EMAIL"
	gitCommitterNameEnvironmentNameConstant  = "GIT_COMMITTER_NAME"
	gitCommitterEmailEnvironmentNameConstant = "GIT_COMMITTER_EMAIL"

	defaultCommandTimeoutConstant = 30 * time.Second
	defaultNetworkTimeoutConstant = 60 * time.Second

	logFieldSeparatorConstant    = "\x1f"
	logRecordSeparatorConstant   = "\x1e"
	logFormatArgumentConstant    = "--format=%H%x1f%an%x1f%ae%x1f%aI%x1f%B%x1e"
	logFieldCountConstant        = 5
	branchFormatArgumentConstant = "--format=%(HEAD)%1f%(refname:short)"
	branchCurrentMarkerConstant  = "*"
	remoteFetchSuffixConstant    = "(fetch)"
	endOfOptionsConstant         = "--"
	parentTraversalConstant      = ".."
	lockSuffixConstant           = ".lock"
	gitFlagPrefixConstant        = "-"
	pathspecMagicPrefixConstant  = ":"

	operationVerifyConstant         = "rev-parse --is-inside-work-tree"
	operationStatusConstant         = "status"
	operationLogConstant            = "log"
	operationAddConstant            = "add"
	operationCommitConstant         = "commit"
	operationPushConstant           = "push"
	operationRevertConstant         = "revert"
	operationRevertAbortConstant    = "revert --abort"
	operationListRemotesConstant    = "remote"
	operationRemoteURLConstant      = "remote get-url"
	operationListBranchesConstant   = "branch"
	operationCheckoutConstant       = "checkout"
	operationListRemoteRefsConstant = "ls-remote"
	operationHeadHashConstant       = "rev-parse HEAD"
	operationCurrentBranchConstant  = "symbolic-ref HEAD"
	operationDiffConstant           = "diff"

	repositoryPathFieldConstant = "repository_path"
	commitHashFieldConstant     = "commit_hash"
	branchFieldConstant         = "branch"
	gatewayDetailFieldConstant  = "git_detail"
	gatewayKindFieldConstant    = "git_failure_kind"

	unsupportedLogLimitReasonConstant     = "history limit must be positive"
	invalidRevisionReasonConstant         = "commit hash must be 4 to 64 hexadecimal characters"
	invalidReferenceReasonConstant        = "name contains characters that are not allowed"
	emptyCommitMessageReasonConstant      = "commit message must not be empty"
	missingEndpointReasonConstant         = "remote endpoint must be provided"
	revisionFieldConstant                 = "hash"
	limitFieldConstant                    = "limit"
	pathFieldConstant                     = "path"
	invalidPathReasonConstant             = "paths must be relative to the content repository"
	referenceFieldConstant                = "name"
	messageFieldConstant                  = "message"
	endpointFieldConstant                 = "remote"
	gatewayFailureLogMessageConstant      = "git operation failed"
	checkedOutBranchLogMessageConstant    = "checked out branch"
	createdCommitLogMessageConstant       = "created commit"
	emptyRepositoryHistoryMessageConstant = "repository has no commits yet"
	detachedHeadDetailConstant            = "HEAD is not on a branch"
)

// ErrGitExecutorNotConfigured indicates the gateway was built without an executor.
var ErrGitExecutorNotConfigured = errors.New(gitExecutorMissingMessageConstant)

// ErrRepositoryPathRequired indicates the working tree path was empty.
var ErrRepositoryPathRequired = errors.New(repositoryPathMissingMessageConstant)

var (
	revisionPattern  = regexp.MustCompile(`^[0-9a-fA-F]{4,64}$`)
	referencePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._/\-]*$`)
)

// GitExecutor runs git commands.
type GitExecutor interface {
	ExecuteGit(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error)
}

// RemoteEndpoint is a push or ls-remote target whose textual form may hold credentials.
type RemoteEndpoint interface {
	Reveal() string
}

// LocalEndpoint is a credential-free endpoint such as a filesystem path or remote name.
type LocalEndpoint string

// Reveal returns the endpoint verbatim.
func (endpoint LocalEndpoint) Reveal() string {
	return string(endpoint)
}

// GatewayDependencies enumerates collaborators required by the Gateway.
type GatewayDependencies struct {
	GitExecutor GitExecutor
	Logger      *zap.Logger
}

// GatewayConfiguration binds the gateway to one working tree.
type GatewayConfiguration struct {
	RepositoryPath string
	CommandTimeout time.Duration
	NetworkTimeout time.Duration
	AuthorName     string
	AuthorEmail    string
}

// Gateway is the only component that spawns git against the working tree.
type Gateway struct {
	executor       GitExecutor
	logger         *zap.Logger
	repositoryPath string
	commandTimeout time.Duration
	networkTimeout time.Duration
	environment    map[string]string
}

// NewGateway validates dependencies and binds a Gateway to configuration.RepositoryPath.
func NewGateway(dependencies GatewayDependencies, configuration GatewayConfiguration) (*Gateway, error) {
	if dependencies.GitExecutor == nil {
		return nil, ErrGitExecutorNotConfigured
	}
	repositoryPath := strings.TrimSpace(configuration.RepositoryPath)
	if len(repositoryPath) == 0 {
		return nil, ErrRepositoryPathRequired
	}

	logger := dependencies.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	commandTimeout := configuration.CommandTimeout
	if commandTimeout <= 0 {
		commandTimeout = defaultCommandTimeoutConstant
	}
	networkTimeout := configuration.NetworkTimeout
	if networkTimeout <= 0 {
		networkTimeout = defaultNetworkTimeoutConstant
	}

	environment := map[string]string{
		gitTerminalPromptEnvironmentNameConstant: gitTerminalPromptDisabledValueConstant,
		gitLocaleEnvironmentNameConstant:         gitLocaleValueConstant,
	}
	if authorName := strings.TrimSpace(configuration.AuthorName); len(authorName) > 0 {
		environment[gitAuthorNameEnvironmentNameConstant] = authorName
		environment[gitCommitterNameEnvironmentNameConstant] = authorName
	}
	if authorEmail := strings.TrimSpace(configuration.AuthorEmail); len(authorEmail) > 0 {
		environment[gitAuthorEmailEnvironmentNameConstant] = authorEmail
		environment[gitCommitterEmailEnvironmentNameConstant] = authorEmail
	}

	return &Gateway{
		executor:       dependencies.GitExecutor,
		logger:         logger,
		repositoryPath: repositoryPath,
		commandTimeout: commandTimeout,
		networkTimeout: networkTimeout,
		environment:    environment,
	}, nil
}

// RepositoryPath returns the working tree the gateway is bound to.
func (gateway *Gateway) RepositoryPath() string {
	return gateway.repositoryPath
}

// Verify confirms the bound path is inside a git working tree.
func (gateway *Gateway) Verify(executionContext context.Context) error {
	_, err := gateway.run(executionContext, operationVerifyConstant, gateway.commandTimeout, "rev-parse", "--is-inside-work-tree")
	return err
}

// Status returns every changed path, untracked files included.
// A non-empty pathspec restricts the report to those working tree paths.
func (gateway *Gateway) Status(executionContext context.Context, pathspec ...string) (WorkingTreeStatus, error) {
	if err := validatePathspec(operationStatusConstant, pathspec); err != nil {
		return WorkingTreeStatus{}, err
	}
	arguments := withPathspec([]string{"status", "--porcelain=v1", "-z", "--untracked-files=all"}, pathspec)
	output, err := gateway.run(executionContext, operationStatusConstant, gateway.commandTimeout, arguments...)
	if err != nil {
		return WorkingTreeStatus{}, err
	}
	return parsePorcelainStatus(output), nil
}

// Log returns at most limit commits, newest first. A repository without commits yields an empty slice.
func (gateway *Gateway) Log(executionContext context.Context, limit int) ([]Commit, error) {
	if limit <= 0 {
		return nil, newArgumentError(operationLogConstant, limitFieldConstant, unsupportedLogLimitReasonConstant)
	}
	output, err := gateway.run(executionContext, operationLogConstant, gateway.commandTimeout, "log", "-n"+strconv.Itoa(limit), logFormatArgumentConstant)
	if err != nil {
		if IsKind(err, KindUnknownRevision) {
			gateway.logger.Debug(emptyRepositoryHistoryMessageConstant, zap.String(repositoryPathFieldConstant, gateway.repositoryPath))
			return []Commit{}, nil
		}
		return nil, err
	}
	return parseLog(output), nil
}

// AddAll stages every change in the working tree, or only those under pathspec when given.
func (gateway *Gateway) AddAll(executionContext context.Context, pathspec ...string) error {
	if err := validatePathspec(operationAddConstant, pathspec); err != nil {
		return err
	}
	_, err := gateway.run(executionContext, operationAddConstant, gateway.commandTimeout, withPathspec([]string{"add", "--all"}, pathspec)...)
	return err
}

// Commit records the staged changes and returns the new HEAD hash. A non-empty pathspec
// commits only those paths and leaves other staged changes in the index.
// Committing with nothing staged fails with KindDirtyOrMissingChanges.
func (gateway *Gateway) Commit(executionContext context.Context, message string, pathspec ...string) (string, error) {
	if len(strings.TrimSpace(message)) == 0 {
		return "", newArgumentError(operationCommitConstant, messageFieldConstant, emptyCommitMessageReasonConstant)
	}
	if err := validatePathspec(operationCommitConstant, pathspec); err != nil {
		return "", err
	}
	if _, err := gateway.run(executionContext, operationCommitConstant, gateway.commandTimeout, withPathspec([]string{"commit", "-m", message}, pathspec)...); err != nil {
		return "", err
	}
	commitHash, err := gateway.HeadHash(executionContext)
	if err != nil {
		return "", err
	}
	gateway.logger.Debug(createdCommitLogMessageConstant, zap.String(commitHashFieldConstant, commitHash), zap.String(repositoryPathFieldConstant, gateway.repositoryPath))
	return commitHash, nil
}

// Push sends branch to endpoint using the network timeout.
func (gateway *Gateway) Push(executionContext context.Context, endpoint RemoteEndpoint, branch string) error {
	if endpoint == nil || len(strings.TrimSpace(endpoint.Reveal())) == 0 {
		return newArgumentError(operationPushConstant, endpointFieldConstant, missingEndpointReasonConstant)
	}
	if err := validateReference(operationPushConstant, branch); err != nil {
		return err
	}
	_, err := gateway.run(executionContext, operationPushConstant, gateway.networkTimeout, "push", endpoint.Reveal(), branch)
	return err
}

// Revert creates a commit undoing hash and returns the new HEAD hash.
func (gateway *Gateway) Revert(executionContext context.Context, hash string) (string, error) {
	if err := validateRevision(operationRevertConstant, hash); err != nil {
		return "", err
	}
	if _, err := gateway.run(executionContext, operationRevertConstant, gateway.commandTimeout, "revert", "--no-edit", hash); err != nil {
		return "", err
	}
	return gateway.HeadHash(executionContext)
}

// RevertAbort discards an in-progress revert.
func (gateway *Gateway) RevertAbort(executionContext context.Context) error {
	_, err := gateway.run(executionContext, operationRevertAbortConstant, gateway.commandTimeout, "revert", "--abort")
	return err
}

// ListRemotes returns configured remotes with their fetch URLs.
func (gateway *Gateway) ListRemotes(executionContext context.Context) ([]Remote, error) {
	output, err := gateway.run(executionContext, operationListRemotesConstant, gateway.commandTimeout, "remote", "-v")
	if err != nil {
		return nil, err
	}
	remotes := make([]Remote, 0)
	for _, line := range strings.Split(output, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 3 || fields[2] != remoteFetchSuffixConstant {
			continue
		}
		remotes = append(remotes, Remote{Name: fields[0], URL: fields[1]})
	}
	return remotes, nil
}

// RemoteURL returns the URL configured for remoteName.
func (gateway *Gateway) RemoteURL(executionContext context.Context, remoteName string) (string, error) {
	if err := validateReference(operationRemoteURLConstant, remoteName); err != nil {
		return "", err
	}
	output, err := gateway.run(executionContext, operationRemoteURLConstant, gateway.commandTimeout, "remote", "get-url", remoteName)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(output), nil
}

// ListBranches returns local branches and marks the checked-out one.
func (gateway *Gateway) ListBranches(executionContext context.Context) ([]Branch, error) {
	output, err := gateway.run(executionContext, operationListBranchesConstant, gateway.commandTimeout, "branch", "--list", branchFormatArgumentConstant)
	if err != nil {
		return nil, err
	}
	branches := make([]Branch, 0)
	for _, line := range strings.Split(output, "\n") {
		marker, name, found := strings.Cut(line, logFieldSeparatorConstant)
		name = strings.TrimSpace(name)
		if !found || len(name) == 0 {
			continue
		}
		branches = append(branches, Branch{Name: name, IsCurrent: strings.TrimSpace(marker) == branchCurrentMarkerConstant})
	}
	return branches, nil
}

// Checkout switches the working tree to branch.
func (gateway *Gateway) Checkout(executionContext context.Context, branch string) error {
	if err := validateReference(operationCheckoutConstant, branch); err != nil {
		return err
	}
	_, err := gateway.run(executionContext, operationCheckoutConstant, gateway.commandTimeout, "checkout", branch, endOfOptionsConstant)
	if err == nil {
		gateway.logger.Info(checkedOutBranchLogMessageConstant, zap.String(branchFieldConstant, branch), zap.String(repositoryPathFieldConstant, gateway.repositoryPath))
	}
	return err
}

// ListRemoteRefs lists branch heads advertised by endpoint without changing anything locally.
func (gateway *Gateway) ListRemoteRefs(executionContext context.Context, endpoint RemoteEndpoint) ([]RemoteRef, error) {
	if endpoint == nil || len(strings.TrimSpace(endpoint.Reveal())) == 0 {
		return nil, newArgumentError(operationListRemoteRefsConstant, endpointFieldConstant, missingEndpointReasonConstant)
	}
	output, err := gateway.run(executionContext, operationListRemoteRefsConstant, gateway.networkTimeout, "ls-remote", "--heads", endpoint.Reveal())
	if err != nil {
		return nil, err
	}
	references := make([]RemoteRef, 0)
	for _, line := range strings.Split(output, "\n") {
		fields := strings.Fields(line)
		if len(fields) != 2 {
			continue
		}
		references = append(references, RemoteRef{Hash: fields[0], Name: fields[1]})
	}
	return references, nil
}

// HeadHash returns the full hash of HEAD.
func (gateway *Gateway) HeadHash(executionContext context.Context) (string, error) {
	output, err := gateway.run(executionContext, operationHeadHashConstant, gateway.commandTimeout, "rev-parse", "HEAD")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(output), nil
}

// CurrentBranch returns the short name of the checked-out branch. A detached HEAD is
// reported as KindNoSuchBranch.
func (gateway *Gateway) CurrentBranch(executionContext context.Context) (string, error) {
	output, err := gateway.run(executionContext, operationCurrentBranchConstant, gateway.commandTimeout, "symbolic-ref", "--quiet", "--short", "HEAD")
	if err != nil {
		var failedError execshell.CommandFailedError
		if errors.As(err, &failedError) {
			return "", GatewayError{Operation: operationCurrentBranchConstant, Kind: KindNoSuchBranch, detail: detachedHeadDetailConstant, cause: err}
		}
		return "", err
	}
	return strings.TrimSpace(output), nil
}

// Diff returns the patch of every tracked change relative to HEAD.
func (gateway *Gateway) Diff(executionContext context.Context) (string, error) {
	return gateway.run(executionContext, operationDiffConstant, gateway.commandTimeout, "diff", "HEAD")
}

func (gateway *Gateway) run(executionContext context.Context, operation string, timeout time.Duration, arguments ...string) (string, error) {
	boundedContext, cancel := context.WithTimeout(executionContext, timeout)
	defer cancel()

	executionResult, executionError := gateway.executor.ExecuteGit(boundedContext, execshell.CommandDetails{
		Arguments:            arguments,
		WorkingDirectory:     gateway.repositoryPath,
		EnvironmentVariables: gateway.environment,
	})
	if executionError != nil {
		gatewayError := newGatewayError(operation, executionError)
		gateway.logger.Debug(gatewayFailureLogMessageConstant,
			zap.String(repositoryPathFieldConstant, gateway.repositoryPath),
			zap.String(gatewayKindFieldConstant, string(gatewayError.Kind)),
			zap.String(gatewayDetailFieldConstant, gatewayError.Detail()),
		)
		return "", gatewayError
	}
	return executionResult.StandardOutput, nil
}

func parseLog(output string) []Commit {
	records := strings.Split(output, logRecordSeparatorConstant)
	commits := make([]Commit, 0, len(records))
	for _, record := range records {
		record = strings.TrimLeft(record, "\n")
		if len(strings.TrimSpace(record)) == 0 {
			continue
		}
		fields := strings.SplitN(record, logFieldSeparatorConstant, logFieldCountConstant)
		if len(fields) != logFieldCountConstant {
			continue
		}
		commit := Commit{
			Hash:        fields[0],
			AuthorName:  fields[1],
			AuthorEmail: fields[2],
			ISODate:     fields[3],
			Message:     strings.TrimSpace(fields[4]),
		}
		if timestamp, parseError := time.Parse(time.RFC3339, fields[3]); parseError == nil {
			commit.TimestampUTC = timestamp.UTC()
		}
		commits = append(commits, commit)
	}
	return commits
}

func validateRevision(operation string, hash string) error {
	if !revisionPattern.MatchString(hash) {
		return newArgumentError(operation, revisionFieldConstant, invalidRevisionReasonConstant)
	}
	return nil
}

func validateReference(operation string, name string) error {
	if !referencePattern.MatchString(name) || strings.Contains(name, parentTraversalConstant) || strings.HasSuffix(name, pathSeparatorConstant) || strings.HasSuffix(name, lockSuffixConstant) {
		return newArgumentError(operation, referenceFieldConstant, invalidReferenceReasonConstant)
	}
	return nil
}

// validatePathspec accepts only relative paths that stay inside the working tree.
func validatePathspec(operation string, pathspec []string) error {
	for _, path := range pathspec {
		cleaned := filepath.ToSlash(filepath.Clean(path))
		if len(strings.TrimSpace(path)) == 0 ||
			filepath.IsAbs(path) ||
			strings.HasPrefix(path, gitFlagPrefixConstant) ||
			strings.HasPrefix(path, pathspecMagicPrefixConstant) ||
			cleaned == parentTraversalConstant ||
			strings.HasPrefix(cleaned, parentTraversalConstant+pathSeparatorConstant) ||
			strings.ContainsFunc(path, unicode.IsControl) {
			return newArgumentError(operation, pathFieldConstant, invalidPathReasonConstant)
		}
	}
	return nil
}

func withPathspec(arguments []string, pathspec []string) []string {
	if len(pathspec) == 0 {
		return arguments
	}
	return append(append(arguments, endOfOptionsConstant), pathspec...)
}

// ValidateRevision reports whether hash is an acceptable commit identifier.
func ValidateRevision(hash string) error {
	return validateRevision(operationRevertConstant, hash)
}

// ValidateReference reports whether name is an acceptable branch or remote name.
func ValidateReference(name string) error {
	return validateReference(operationCheckoutConstant, name)
}
