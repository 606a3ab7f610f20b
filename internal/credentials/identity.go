package credentials

import (
	"os"
	"strings"
)

// Environment variable names consulted when configuration omits identity material.
const (
	EnvGitUsername    = "GIT_USERNAME"
	EnvGitHubCLIToken = "GH_TOKEN"
	EnvGitHubToken    = "GITHUB_TOKEN"
	EnvGitHubAPIToken = "GITHUB_API_TOKEN"
)

var tokenPreference = []string{
	EnvGitHubCLIToken,
	EnvGitHubToken,
	EnvGitHubAPIToken,
}

// Identity is the remote username and access token. It is never logged or written to git config.
type Identity struct {
	Username string
	Token    string
}

// String hides the token.
func (identity Identity) String() string {
	if len(identity.Token) == 0 {
		return identity.Username
	}
	return identity.Username + ":" + redactedPlaceholderConstant
}

// IsComplete reports whether both username and token are present.
func (identity Identity) IsComplete() bool {
	return len(identity.Username) > 0 && len(identity.Token) > 0
}

// EnvironmentLookup resolves a variable name to its value.
type EnvironmentLookup func(key string) (string, bool)

// ResolveIdentity fills gaps in configured with values from lookup, falling back to the
// process environment when lookup is nil. Configured values always win.
func ResolveIdentity(configured Identity, lookup EnvironmentLookup) Identity {
	if lookup == nil {
		lookup = os.LookupEnv
	}

	resolved := Identity{
		Username: strings.TrimSpace(configured.Username),
		Token:    strings.TrimSpace(configured.Token),
	}
	if len(resolved.Username) == 0 {
		if value, ok := lookupNonEmpty(lookup, EnvGitUsername); ok {
			resolved.Username = value
		}
	}
	if len(resolved.Token) == 0 {
		for _, key := range tokenPreference {
			if value, ok := lookupNonEmpty(lookup, key); ok {
				resolved.Token = value
				break
			}
		}
	}
	return resolved
}

func lookupNonEmpty(lookup EnvironmentLookup, key string) (string, bool) {
	value, exists := lookup(key)
	if !exists {
		return "", false
	}
	value = strings.TrimSpace(value)
	if len(value) == 0 {
		return "", false
	}
	return value, true
}
