package utils

import (
	"context"
	"strings"
)

const (
	configurationFilePathContextKeyConstant = commandContextKey("configurationFilePath")
	actorContextKeyConstant                 = commandContextKey("actor")
)

type commandContextKey string

// CommandActor identifies who invoked a command and with which role.
type CommandActor struct {
	Identity string
	Role     string
}

// CommandContextAccessor manages values stored in command execution contexts.
type CommandContextAccessor struct{}

// NewCommandContextAccessor constructs a CommandContextAccessor instance.
func NewCommandContextAccessor() CommandContextAccessor {
	return CommandContextAccessor{}
}

// WithConfigurationFilePath attaches the configuration file path to the provided context.
func (accessor CommandContextAccessor) WithConfigurationFilePath(parentContext context.Context, configurationFilePath string) context.Context {
	if parentContext == nil {
		parentContext = context.Background()
	}
	return context.WithValue(parentContext, configurationFilePathContextKeyConstant, configurationFilePath)
}

// ConfigurationFilePath extracts the configuration file path from the provided context.
func (accessor CommandContextAccessor) ConfigurationFilePath(executionContext context.Context) (string, bool) {
	if executionContext == nil {
		return "", false
	}
	configurationFilePath, configurationFilePathAvailable := executionContext.Value(configurationFilePathContextKeyConstant).(string)
	if !configurationFilePathAvailable {
		return "", false
	}
	return configurationFilePath, true
}

// WithActor attaches the invoking actor to the provided context.
func (accessor CommandContextAccessor) WithActor(parentContext context.Context, actor CommandActor) context.Context {
	if parentContext == nil {
		parentContext = context.Background()
	}
	actor.Identity = strings.TrimSpace(actor.Identity)
	actor.Role = strings.ToLower(strings.TrimSpace(actor.Role))
	return context.WithValue(parentContext, actorContextKeyConstant, actor)
}

// Actor extracts the invoking actor. Contexts without an identity report false.
func (accessor CommandContextAccessor) Actor(executionContext context.Context) (CommandActor, bool) {
	if executionContext == nil {
		return CommandActor{}, false
	}
	actor, actorAvailable := executionContext.Value(actorContextKeyConstant).(CommandActor)
	if !actorAvailable || len(actor.Identity) == 0 {
		return CommandActor{}, false
	}
	return actor, true
}
