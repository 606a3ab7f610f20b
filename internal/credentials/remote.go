package credentials

import "github.com/temirov/contentaudit/internal/execshell"

const redactedPlaceholderConstant = "***"

// AuthenticatedRemote holds an https URL with embedded credentials.
//
// Formatting the value with %v or %s yields a redacted form. The plaintext is only
// reachable through Reveal, and Clear overwrites the backing bytes. Callers clear
// the value as soon as the push or ls-remote that needed it returns.
type AuthenticatedRemote struct {
	secret   []byte
	redacted string
}

// NewAuthenticatedRemote wraps endpoint. Any user information it carries is hidden from String.
func NewAuthenticatedRemote(endpoint string) *AuthenticatedRemote {
	return &AuthenticatedRemote{secret: []byte(endpoint), redacted: execshell.RedactCredentials(endpoint)}
}

// Reveal returns the credential-bearing URL.
func (remote *AuthenticatedRemote) Reveal() string {
	if remote == nil {
		return ""
	}
	return string(remote.secret)
}

// String returns the URL with user information replaced.
func (remote *AuthenticatedRemote) String() string {
	if remote == nil {
		return ""
	}
	return remote.redacted
}

// GoString keeps %#v from printing the secret.
func (remote *AuthenticatedRemote) GoString() string {
	return remote.String()
}

// Clear zeroes the secret. Reveal returns an empty string afterwards.
func (remote *AuthenticatedRemote) Clear() {
	if remote == nil {
		return
	}
	for index := range remote.secret {
		remote.secret[index] = 0
	}
	remote.secret = nil
}
