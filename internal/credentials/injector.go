// Package credentials composes short-lived authenticated remote URLs.
//
// The username and token are combined with the configured remote's host and path at
// call time only; nothing is written to git configuration and the result is never logged.
package credentials

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/temirov/contentaudit/internal/gitrepo"
	"github.com/temirov/contentaudit/internal/vcserrors"
)

const (
	remoteResolverMissingMessageConstant = "remote url resolver not configured"
	remoteNameMissingMessageConstant     = "remote name must be provided"
	httpsSchemeConstant                  = "https"
	pathSeparatorConstant                = "/"
	unsupportedRemoteReasonConstant      = "configured remote is not an http or ssh address"
	remoteFieldConstant                  = "remote"
	remoteNameFieldConstant              = "remote_name"
	credentialsMissingLogMessageConstant = "remote credentials are incomplete"
	remoteComposedLogMessageConstant     = "composed authenticated remote"
	usernamePresentFieldConstant         = "username_present"
	tokenPresentFieldConstant            = "token_present"
)

// ErrRemoteResolverNotConfigured indicates the injector was built without a resolver.
var ErrRemoteResolverNotConfigured = errors.New(remoteResolverMissingMessageConstant)

// ErrRemoteNameRequired indicates the remote name was empty.
var ErrRemoteNameRequired = errors.New(remoteNameMissingMessageConstant)

// RemoteURLResolver reads the URL configured for a named remote.
type RemoteURLResolver interface {
	RemoteURL(executionContext context.Context, remoteName string) (string, error)
}

// InjectorDependencies enumerates collaborators required by the Injector.
type InjectorDependencies struct {
	RemoteResolver    RemoteURLResolver
	Logger            *zap.Logger
	EnvironmentLookup EnvironmentLookup
}

// InjectorConfiguration names the remote to authenticate and the configured identity.
type InjectorConfiguration struct {
	RemoteName string
	Identity   Identity
}

// Injector builds authenticated remotes on demand.
type Injector struct {
	resolver   RemoteURLResolver
	logger     *zap.Logger
	lookup     EnvironmentLookup
	remoteName string
	configured Identity
}

// NewInjector validates dependencies and constructs an Injector.
func NewInjector(dependencies InjectorDependencies, configuration InjectorConfiguration) (*Injector, error) {
	if dependencies.RemoteResolver == nil {
		return nil, ErrRemoteResolverNotConfigured
	}
	remoteName := strings.TrimSpace(configuration.RemoteName)
	if len(remoteName) == 0 {
		return nil, ErrRemoteNameRequired
	}
	logger := dependencies.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Injector{
		resolver:   dependencies.RemoteResolver,
		logger:     logger,
		lookup:     dependencies.EnvironmentLookup,
		remoteName: remoteName,
		configured: configuration.Identity,
	}, nil
}

// BuildAuthenticatedRemote composes https://{username}:{token}@{host}/{path} for the configured remote.
func (injector *Injector) BuildAuthenticatedRemote(executionContext context.Context) (*AuthenticatedRemote, error) {
	identity := ResolveIdentity(injector.configured, injector.lookup)
	if !identity.IsComplete() {
		injector.logger.Warn(credentialsMissingLogMessageConstant,
			zap.Bool(usernamePresentFieldConstant, len(identity.Username) > 0),
			zap.Bool(tokenPresentFieldConstant, len(identity.Token) > 0),
		)
		return nil, vcserrors.New(vcserrors.OperationBuildRemote, vcserrors.CodeMissingCredentials, nil)
	}

	configuredURL, resolveError := injector.resolver.RemoteURL(executionContext, injector.remoteName)
	if resolveError != nil {
		return nil, gitrepo.ToOperationError(vcserrors.OperationBuildRemote, resolveError)
	}

	remote, parseError := gitrepo.ParseRemoteURL(configuredURL)
	if parseError != nil {
		return nil, vcserrors.New(vcserrors.OperationBuildRemote, vcserrors.CodeInvalidArgument, vcserrors.ArgumentError{Field: remoteFieldConstant, Reason: unsupportedRemoteReasonConstant})
	}

	authenticated := ComposeAuthenticatedURL(identity, remote)
	injector.logger.Debug(remoteComposedLogMessageConstant,
		zap.String(remoteNameFieldConstant, injector.remoteName),
		zap.String(remoteFieldConstant, displayRemote(remote)),
	)
	return authenticated, nil
}

// displayRemote renders the configured remote in its own protocol without user information.
func displayRemote(remote gitrepo.RemoteURL) string {
	formatted, formatError := gitrepo.FormatRemoteURL(remote)
	if formatError != nil {
		return remote.Host
	}
	return formatted
}

// ComposeAuthenticatedURL renders remote as an https URL carrying identity as user information.
func ComposeAuthenticatedURL(identity Identity, remote gitrepo.RemoteURL) *AuthenticatedRemote {
	composed := url.URL{
		Scheme: httpsSchemeConstant,
		User:   url.UserPassword(identity.Username, identity.Token),
		Host:   remote.Host,
		Path:   pathSeparatorConstant + strings.TrimPrefix(remote.Path, pathSeparatorConstant),
	}
	return NewAuthenticatedRemote(composed.String())
}
