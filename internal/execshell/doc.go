// Package execshell provides structured helpers for invoking git and other external programs.
//
// ShellExecutor wraps a CommandRunner with zap lifecycle logging and converts
// non-zero exits into CommandFailedError. OSCommandRunner is the os/exec backed
// runner used in production. Every logged argument, error, and standard error
// stream passes through RedactCredentials so authenticated remote URLs never
// reach the logs.
package execshell
