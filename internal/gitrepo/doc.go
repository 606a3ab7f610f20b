// Package gitrepo is the typed boundary between the versioning engine and the git binary.
//
// Gateway binds to one working tree at construction and exposes the handful of
// operations the engine needs: status, log, add, commit, push, revert, branch and
// remote listing, checkout, ls-remote and diff. Failures are reported as
// GatewayError values whose Kind is derived from git's output; the output itself
// is only reachable through Detail for server-side logging.
package gitrepo
