package gitrepo_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/contentaudit/internal/gitrepo"
	"github.com/temirov/contentaudit/internal/testsupport"
)

func TestGatewayAgainstRealRepository(t *testing.T) {
	sandbox := testsupport.NewGitSandbox(t)
	gateway := sandbox.Gateway(nil)
	executionContext := context.Background()

	require.NoError(t, gateway.Verify(executionContext))

	status, err := gateway.Status(executionContext)
	require.NoError(t, err)
	require.True(t, status.IsClean())

	_, err = gateway.Commit(executionContext, "empty")
	require.True(t, gitrepo.IsKind(err, gitrepo.KindDirtyOrMissingChanges))

	sandbox.WriteFile("posts/first-post.md", "hello\n")
	status, err = gateway.Status(executionContext)
	require.NoError(t, err)
	require.Equal(t, []string{"posts/first-post.md"}, status.Paths())

	require.NoError(t, gateway.AddAll(executionContext))
	hash, err := gateway.Commit(executionContext, "blog: 'first-post' oluşturuldu by admin@example.com. [ci skip]")
	require.NoError(t, err)
	require.Len(t, hash, 40)

	require.NoError(t, gateway.Push(executionContext, sandbox.Endpoint(), sandbox.Branch))
	require.Equal(t, hash, sandbox.RemoteHead())

	commits, err := gateway.Log(executionContext, 5)
	require.NoError(t, err)
	require.Len(t, commits, 2)
	require.Equal(t, hash, commits[0].Hash)
	require.Equal(t, "blog: 'first-post' oluşturuldu by admin@example.com. [ci skip]", commits[0].Message)

	references, err := gateway.ListRemoteRefs(executionContext, sandbox.Endpoint())
	require.NoError(t, err)
	require.Equal(t, []gitrepo.RemoteRef{{Hash: hash, Name: "refs/heads/main"}}, references)

	remoteURL, err := gateway.RemoteURL(executionContext, "origin")
	require.NoError(t, err)
	require.Equal(t, sandbox.RemotePath, remoteURL)

	_, err = gateway.RemoteURL(executionContext, "upstream")
	require.True(t, gitrepo.IsKind(err, gitrepo.KindNoSuchRemote))
}

func TestGatewayBranchOperationsAgainstRealRepository(t *testing.T) {
	sandbox := testsupport.NewGitSandbox(t)
	sandbox.Run("branch", "draft")
	gateway := sandbox.Gateway(nil)
	executionContext := context.Background()

	branches, err := gateway.ListBranches(executionContext)
	require.NoError(t, err)
	require.Equal(t, []gitrepo.Branch{{Name: "draft"}, {Name: "main", IsCurrent: true}}, branches)

	current, err := gateway.CurrentBranch(executionContext)
	require.NoError(t, err)
	require.Equal(t, "main", current)

	require.NoError(t, gateway.Checkout(executionContext, "draft"))
	branches, err = gateway.ListBranches(executionContext)
	require.NoError(t, err)
	require.True(t, branches[0].IsCurrent)
	current, err = gateway.CurrentBranch(executionContext)
	require.NoError(t, err)
	require.Equal(t, "draft", current)

	sandbox.Run("checkout", "--detach")
	_, err = gateway.CurrentBranch(executionContext)
	require.True(t, gitrepo.IsKind(err, gitrepo.KindNoSuchBranch))
	sandbox.Run("checkout", "draft")

	err = gateway.Checkout(executionContext, "ghost")
	require.True(t, gitrepo.IsKind(err, gitrepo.KindNoSuchBranch))
}

func TestGatewayRevertConflictAndAbort(t *testing.T) {
	sandbox := testsupport.NewGitSandbox(t)
	sandbox.WriteFile("posts/a.md", "one\n")
	target := sandbox.Commit("first")
	sandbox.WriteFile("posts/a.md", "two\n")
	sandbox.Commit("second")
	gateway := sandbox.Gateway(nil)
	executionContext := context.Background()

	_, err := gateway.Revert(executionContext, target)
	require.True(t, gitrepo.IsKind(err, gitrepo.KindConflict))

	require.NoError(t, gateway.RevertAbort(executionContext))
	status, err := gateway.Status(executionContext)
	require.NoError(t, err)
	require.True(t, status.IsClean())

	_, err = gateway.Revert(executionContext, "deadbeef")
	require.True(t, gitrepo.IsKind(err, gitrepo.KindUnknownRevision))
}
