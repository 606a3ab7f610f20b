// Package testsupport provides real-git fixtures shared by package tests.
package testsupport

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/temirov/contentaudit/internal/execshell"
	"github.com/temirov/contentaudit/internal/gitrepo"
)

const (
	gitExecutableNameConstant           = "git"
	sandboxBranchConstant               = "main"
	sandboxRemoteNameConstant           = "origin"
	sandboxAuthorNameConstant           = "Sandbox Author"
	sandboxAuthorEmailConstant          = "sandbox@example.com"
	sandboxInitialFileConstant          = "README.md"
	sandboxInitialContentConstant       = "# content\n"
	sandboxInitialMessageConstant       = "initial content"
	sandboxRemoteDirectoryConstant      = "remote.git"
	sandboxWorkingDirectoryConstant     = "site"
	sandboxFilePermissionsConstant      = 0o644
	sandboxDirectoryPermissionsConstant = 0o755
	sandboxCommandTimeoutConstant       = 20 * time.Second
	missingGitSkipMessageConstant       = "git executable not available"
)

// GitSandbox is a working tree with one commit and a bare origin on the local filesystem.
type GitSandbox struct {
	testingInstance testing.TB
	WorkingTreePath string
	RemotePath      string
	Branch          string
	RemoteName      string
}

// NewGitSandbox creates the sandbox or skips the test when git is not installed.
func NewGitSandbox(testingInstance testing.TB) *GitSandbox {
	testingInstance.Helper()
	if _, lookupError := exec.LookPath(gitExecutableNameConstant); lookupError != nil {
		testingInstance.Skip(missingGitSkipMessageConstant)
	}

	rootDirectory := testingInstance.TempDir()
	sandbox := &GitSandbox{
		testingInstance: testingInstance,
		WorkingTreePath: filepath.Join(rootDirectory, sandboxWorkingDirectoryConstant),
		RemotePath:      filepath.Join(rootDirectory, sandboxRemoteDirectoryConstant),
		Branch:          sandboxBranchConstant,
		RemoteName:      sandboxRemoteNameConstant,
	}

	require.NoError(testingInstance, os.MkdirAll(sandbox.WorkingTreePath, sandboxDirectoryPermissionsConstant))
	sandbox.runIn(rootDirectory, "init", "--bare", sandbox.RemotePath)
	sandbox.runIn(sandbox.RemotePath, "symbolic-ref", "HEAD", "refs/heads/"+sandboxBranchConstant)

	sandbox.Run("init")
	sandbox.Run("symbolic-ref", "HEAD", "refs/heads/"+sandboxBranchConstant)
	sandbox.Run("config", "user.name", sandboxAuthorNameConstant)
	sandbox.Run("config", "user.email", sandboxAuthorEmailConstant)
	sandbox.Run("config", "commit.gpgsign", "false")
	sandbox.Run("remote", "add", sandboxRemoteNameConstant, sandbox.RemotePath)

	sandbox.WriteFile(sandboxInitialFileConstant, sandboxInitialContentConstant)
	sandbox.Run("add", "--all")
	sandbox.Run("commit", "-m", sandboxInitialMessageConstant)
	sandbox.Run("push", sandboxRemoteNameConstant, sandboxBranchConstant)
	return sandbox
}

// WriteFile writes content to a path relative to the working tree, creating parent directories.
func (sandbox *GitSandbox) WriteFile(relativePath string, content string) {
	sandbox.testingInstance.Helper()
	absolutePath := filepath.Join(sandbox.WorkingTreePath, relativePath)
	require.NoError(sandbox.testingInstance, os.MkdirAll(filepath.Dir(absolutePath), sandboxDirectoryPermissionsConstant))
	require.NoError(sandbox.testingInstance, os.WriteFile(absolutePath, []byte(content), sandboxFilePermissionsConstant))
}

// RemoveFile deletes a path relative to the working tree.
func (sandbox *GitSandbox) RemoveFile(relativePath string) {
	sandbox.testingInstance.Helper()
	require.NoError(sandbox.testingInstance, os.Remove(filepath.Join(sandbox.WorkingTreePath, relativePath)))
}

// Run executes git in the working tree and returns trimmed standard output.
func (sandbox *GitSandbox) Run(arguments ...string) string {
	sandbox.testingInstance.Helper()
	return sandbox.runIn(sandbox.WorkingTreePath, arguments...)
}

// RunRemote executes git inside the bare remote.
func (sandbox *GitSandbox) RunRemote(arguments ...string) string {
	sandbox.testingInstance.Helper()
	return sandbox.runIn(sandbox.RemotePath, arguments...)
}

// Commit stages everything and commits with message, returning the new hash.
func (sandbox *GitSandbox) Commit(message string) string {
	sandbox.testingInstance.Helper()
	sandbox.Run("add", "--all")
	sandbox.Run("commit", "-m", message)
	return sandbox.Run("rev-parse", "HEAD")
}

// CommitCount returns the number of commits reachable from HEAD.
func (sandbox *GitSandbox) CommitCount() int {
	sandbox.testingInstance.Helper()
	return len(strings.Split(sandbox.Run("rev-list", "HEAD"), "\n"))
}

// RemoteHead returns the hash of the sandbox branch on the bare remote.
func (sandbox *GitSandbox) RemoteHead() string {
	sandbox.testingInstance.Helper()
	return sandbox.RunRemote("rev-parse", sandboxBranchConstant)
}

// ChangedFiles returns the paths touched by commit.
func (sandbox *GitSandbox) ChangedFiles(commitHash string) []string {
	sandbox.testingInstance.Helper()
	output := sandbox.Run("diff-tree", "--no-commit-id", "--name-only", "-r", commitHash)
	if len(output) == 0 {
		return nil
	}
	return strings.Split(output, "\n")
}

// Endpoint returns the bare remote as a credential-free push target.
func (sandbox *GitSandbox) Endpoint() gitrepo.LocalEndpoint {
	return gitrepo.LocalEndpoint(sandbox.RemotePath)
}

// Gateway builds a Gateway over the sandbox working tree backed by the real git binary.
func (sandbox *GitSandbox) Gateway(logger *zap.Logger) *gitrepo.Gateway {
	sandbox.testingInstance.Helper()
	if logger == nil {
		logger = zap.NewNop()
	}
	executor, executorError := execshell.NewShellExecutor(logger, execshell.NewOSCommandRunner())
	require.NoError(sandbox.testingInstance, executorError)
	gateway, gatewayError := gitrepo.NewGateway(
		gitrepo.GatewayDependencies{GitExecutor: executor, Logger: logger},
		gitrepo.GatewayConfiguration{
			RepositoryPath: sandbox.WorkingTreePath,
			CommandTimeout: sandboxCommandTimeoutConstant,
			NetworkTimeout: sandboxCommandTimeoutConstant,
		},
	)
	require.NoError(sandbox.testingInstance, gatewayError)
	return gateway
}

func (sandbox *GitSandbox) runIn(directory string, arguments ...string) string {
	sandbox.testingInstance.Helper()
	executionContext, cancel := context.WithTimeout(context.Background(), sandboxCommandTimeoutConstant)
	defer cancel()

	command := exec.CommandContext(executionContext, gitExecutableNameConstant, arguments...)
	command.Dir = directory
	command.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0", "LC_ALL=C", "GIT_CONFIG_NOSYSTEM=1")
	var standardOutput bytes.Buffer
	var standardError bytes.Buffer
	command.Stdout = &standardOutput
	command.Stderr = &standardError
	runError := command.Run()
	require.NoError(sandbox.testingInstance, runError, standardError.String())
	return strings.TrimSpace(standardOutput.String())
}
