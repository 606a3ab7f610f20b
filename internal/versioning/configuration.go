package versioning

import (
	"errors"
	"strings"
	"time"

	"github.com/temirov/contentaudit/internal/credentials"
	"github.com/temirov/contentaudit/internal/history"
)

const (
	defaultRemoteNameConstant      = "origin"
	defaultBranchNameConstant      = "main"
	defaultPushTimeoutConstant     = 60 * time.Second
	defaultCommandTimeoutConstant  = 30 * time.Second
	defaultProbeIntervalConstant   = 2 * time.Second
	defaultAnalysisTimeoutConstant = 60 * time.Second

	repositoryPathMissingMessageConstant = "repository.path must be configured"
)

// ErrRepositoryPathNotConfigured indicates the content working tree was not configured.
var ErrRepositoryPathNotConfigured = errors.New(repositoryPathMissingMessageConstant)

// Configuration is read once at startup and never mutated afterwards.
type Configuration struct {
	Repository   RepositoryConfiguration   `mapstructure:"repository"`
	Credentials  CredentialsConfiguration  `mapstructure:"credentials"`
	Connectivity ConnectivityConfiguration `mapstructure:"connectivity"`
	History      HistoryConfiguration      `mapstructure:"history"`
	Branches     BranchesConfiguration     `mapstructure:"branches"`
	Analysis     AnalysisConfiguration     `mapstructure:"analysis"`
}

// RepositoryConfiguration binds the engine to one working tree and one remote.
type RepositoryConfiguration struct {
	Path           string        `mapstructure:"path"`
	Remote         string        `mapstructure:"remote"`
	Branch         string        `mapstructure:"branch"`
	PushTimeout    time.Duration `mapstructure:"push_timeout"`
	CommandTimeout time.Duration `mapstructure:"command_timeout"`
	AuthorName     string        `mapstructure:"author_name"`
	AuthorEmail    string        `mapstructure:"author_email"`
}

// CredentialsConfiguration holds the remote identity. Empty values fall back to the environment.
type CredentialsConfiguration struct {
	Username string `mapstructure:"username"`
	Token    string `mapstructure:"token"`
}

// ConnectivityConfiguration tunes connection tests.
type ConnectivityConfiguration struct {
	ProbeInterval time.Duration `mapstructure:"probe_interval"`
}

// HistoryConfiguration tunes history queries.
type HistoryConfiguration struct {
	DefaultLimit int `mapstructure:"default_limit"`
}

// BranchesConfiguration tunes branch switching.
type BranchesConfiguration struct {
	RequireClean bool `mapstructure:"require_clean"`
}

// AnalysisConfiguration names an optional external change analyzer.
type AnalysisConfiguration struct {
	Command []string      `mapstructure:"command"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// DefaultConfigurationValues returns viper defaults keyed under prefix. Every key is listed so
// that environment overrides are recognized.
func DefaultConfigurationValues(prefix string) map[string]any {
	qualify := func(key string) string {
		if len(prefix) == 0 {
			return key
		}
		return prefix + "." + key
	}
	return map[string]any{
		qualify("repository.path"):             "",
		qualify("repository.remote"):           defaultRemoteNameConstant,
		qualify("repository.branch"):           defaultBranchNameConstant,
		qualify("repository.push_timeout"):     defaultPushTimeoutConstant,
		qualify("repository.command_timeout"):  defaultCommandTimeoutConstant,
		qualify("repository.author_name"):      "",
		qualify("repository.author_email"):     "",
		qualify("credentials.username"):        "",
		qualify("credentials.token"):           "",
		qualify("connectivity.probe_interval"): defaultProbeIntervalConstant,
		qualify("history.default_limit"):       history.MaximumLimit,
		qualify("branches.require_clean"):      true,
		qualify("analysis.command"):            []string{},
		qualify("analysis.timeout"):            defaultAnalysisTimeoutConstant,
	}
}

// Identity returns the configured credentials as a credentials.Identity.
func (configuration Configuration) Identity() credentials.Identity {
	return credentials.Identity{
		Username: configuration.Credentials.Username,
		Token:    configuration.Credentials.Token,
	}
}

// sanitize trims values and fills omitted settings with defaults.
func (configuration Configuration) sanitize() (Configuration, error) {
	sanitized := configuration
	sanitized.Repository.Path = strings.TrimSpace(configuration.Repository.Path)
	if len(sanitized.Repository.Path) == 0 {
		return Configuration{}, ErrRepositoryPathNotConfigured
	}
	sanitized.Repository.Remote = valueOrDefault(configuration.Repository.Remote, defaultRemoteNameConstant)
	sanitized.Repository.Branch = valueOrDefault(configuration.Repository.Branch, defaultBranchNameConstant)
	if sanitized.Repository.PushTimeout <= 0 {
		sanitized.Repository.PushTimeout = defaultPushTimeoutConstant
	}
	if sanitized.Repository.CommandTimeout <= 0 {
		sanitized.Repository.CommandTimeout = defaultCommandTimeoutConstant
	}
	if sanitized.Connectivity.ProbeInterval <= 0 {
		sanitized.Connectivity.ProbeInterval = defaultProbeIntervalConstant
	}
	sanitized.History.DefaultLimit = history.EffectiveLimit(configuration.History.DefaultLimit, history.MaximumLimit)
	return sanitized, nil
}

func valueOrDefault(value string, fallback string) string {
	trimmed := strings.TrimSpace(value)
	if len(trimmed) == 0 {
		return fallback
	}
	return trimmed
}
