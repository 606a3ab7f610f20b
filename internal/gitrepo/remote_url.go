package gitrepo

import (
	"fmt"
	"strings"
)

const (
	sshProtocolPrefixConstant           = "ssh://"
	httpsProtocolPrefixConstant         = "https://"
	httpProtocolPrefixConstant          = "http://"
	userInfoDelimiterConstant           = "@"
	scpPathDelimiterConstant            = ":"
	pathSeparatorConstant               = "/"
	portDelimiterConstant               = ":"
	remoteURLParseErrorTemplateConstant = "%s: %s"
	invalidRemoteURLMessageConstant     = "invalid remote url"
	requiredValueMessageConstant        = "value required"
	unknownProtocolMessageConstant      = "unsupported remote protocol"
)

// RemoteProtocol enumerates supported git remote protocols.
type RemoteProtocol string

// Supported remote protocols.
const (
	RemoteProtocolSSH   RemoteProtocol = RemoteProtocol("ssh")
	RemoteProtocolHTTPS RemoteProtocol = RemoteProtocol("https")
	RemoteProtocolHTTP  RemoteProtocol = RemoteProtocol("http")
)

// RemoteURL is a remote location reduced to the parts needed to re-address it over HTTPS.
// User information present in the original string is discarded.
type RemoteURL struct {
	Protocol RemoteProtocol
	Host     string
	Path     string
}

// RemoteURLParseError indicates a remote string could not be parsed.
type RemoteURLParseError struct {
	Input   string
	Message string
}

// Error describes the parse failure without echoing user information.
func (parseError RemoteURLParseError) Error() string {
	return fmt.Sprintf(remoteURLParseErrorTemplateConstant, stripUserInformation(parseError.Input), parseError.Message)
}

// UnsupportedProtocolError indicates the provided protocol cannot be formatted.
type UnsupportedProtocolError struct {
	Protocol RemoteProtocol
}

// Error describes the unsupported protocol.
func (protocolError UnsupportedProtocolError) Error() string {
	return fmt.Sprintf(remoteURLParseErrorTemplateConstant, protocolError.Protocol, unknownProtocolMessageConstant)
}

// ParseRemoteURL converts https, http, ssh and scp-style remotes into a RemoteURL.
func ParseRemoteURL(remote string) (RemoteURL, error) {
	trimmedRemote := strings.TrimSpace(remote)
	if len(trimmedRemote) == 0 {
		return RemoteURL{}, RemoteURLParseError{Input: remote, Message: requiredValueMessageConstant}
	}

	switch {
	case strings.HasPrefix(trimmedRemote, sshProtocolPrefixConstant):
		return parseHierarchicalRemote(RemoteProtocolSSH, trimmedRemote, strings.TrimPrefix(trimmedRemote, sshProtocolPrefixConstant), true)
	case strings.HasPrefix(trimmedRemote, httpsProtocolPrefixConstant):
		return parseHierarchicalRemote(RemoteProtocolHTTPS, trimmedRemote, strings.TrimPrefix(trimmedRemote, httpsProtocolPrefixConstant), false)
	case strings.HasPrefix(trimmedRemote, httpProtocolPrefixConstant):
		return parseHierarchicalRemote(RemoteProtocolHTTP, trimmedRemote, strings.TrimPrefix(trimmedRemote, httpProtocolPrefixConstant), false)
	case strings.Contains(trimmedRemote, userInfoDelimiterConstant) && strings.Contains(trimmedRemote, scpPathDelimiterConstant):
		return parseSCPRemote(trimmedRemote)
	default:
		return RemoteURL{}, RemoteURLParseError{Input: remote, Message: invalidRemoteURLMessageConstant}
	}
}

// parseHierarchicalRemote handles scheme://[userinfo@]host[:port]/path.
// Ports are dropped for ssh remotes because the https endpoint never shares them.
func parseHierarchicalRemote(protocol RemoteProtocol, original string, remainder string, dropPort bool) (RemoteURL, error) {
	if userSplitIndex := strings.LastIndex(remainder, userInfoDelimiterConstant); userSplitIndex != -1 {
		slashIndex := strings.Index(remainder, pathSeparatorConstant)
		if slashIndex == -1 || userSplitIndex < slashIndex {
			remainder = remainder[userSplitIndex+1:]
		}
	}

	slashIndex := strings.Index(remainder, pathSeparatorConstant)
	if slashIndex <= 0 {
		return RemoteURL{}, RemoteURLParseError{Input: original, Message: invalidRemoteURLMessageConstant}
	}
	host := remainder[:slashIndex]
	if dropPort {
		if portIndex := strings.Index(host, portDelimiterConstant); portIndex != -1 {
			host = host[:portIndex]
		}
	}
	path := strings.Trim(remainder[slashIndex+1:], pathSeparatorConstant)
	if len(host) == 0 || len(path) == 0 {
		return RemoteURL{}, RemoteURLParseError{Input: original, Message: invalidRemoteURLMessageConstant}
	}
	return RemoteURL{Protocol: protocol, Host: host, Path: path}, nil
}

func parseSCPRemote(remote string) (RemoteURL, error) {
	userSplitIndex := strings.Index(remote, userInfoDelimiterConstant)
	hostAndPath := remote[userSplitIndex+1:]
	pathSplitIndex := strings.Index(hostAndPath, scpPathDelimiterConstant)
	if pathSplitIndex <= 0 {
		return RemoteURL{}, RemoteURLParseError{Input: remote, Message: invalidRemoteURLMessageConstant}
	}
	host := hostAndPath[:pathSplitIndex]
	path := strings.Trim(hostAndPath[pathSplitIndex+1:], pathSeparatorConstant)
	if len(path) == 0 {
		return RemoteURL{}, RemoteURLParseError{Input: remote, Message: invalidRemoteURLMessageConstant}
	}
	return RemoteURL{Protocol: RemoteProtocolSSH, Host: host, Path: path}, nil
}

// FormatRemoteURL renders a RemoteURL without user information.
func FormatRemoteURL(remote RemoteURL) (string, error) {
	if len(strings.TrimSpace(remote.Host)) == 0 {
		return "", RemoteURLParseError{Input: remote.Host, Message: requiredValueMessageConstant}
	}
	if len(strings.TrimSpace(remote.Path)) == 0 {
		return "", RemoteURLParseError{Input: remote.Path, Message: requiredValueMessageConstant}
	}

	switch remote.Protocol {
	case RemoteProtocolSSH:
		return fmt.Sprintf("git@%s:%s", remote.Host, remote.Path), nil
	case RemoteProtocolHTTPS:
		return httpsProtocolPrefixConstant + remote.Host + pathSeparatorConstant + remote.Path, nil
	case RemoteProtocolHTTP:
		return httpProtocolPrefixConstant + remote.Host + pathSeparatorConstant + remote.Path, nil
	default:
		return "", UnsupportedProtocolError{Protocol: remote.Protocol}
	}
}

func stripUserInformation(input string) string {
	for _, prefix := range []string{httpsProtocolPrefixConstant, httpProtocolPrefixConstant, sshProtocolPrefixConstant} {
		if !strings.HasPrefix(input, prefix) {
			continue
		}
		remainder := strings.TrimPrefix(input, prefix)
		userSplitIndex := strings.LastIndex(remainder, userInfoDelimiterConstant)
		slashIndex := strings.Index(remainder, pathSeparatorConstant)
		if userSplitIndex != -1 && (slashIndex == -1 || userSplitIndex < slashIndex) {
			return prefix + remainder[userSplitIndex+1:]
		}
	}
	return input
}
