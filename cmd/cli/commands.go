package cli

import (
	"context"
	"errors"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/contentaudit/internal/branches"
	"github.com/temirov/contentaudit/internal/changes"
	"github.com/temirov/contentaudit/internal/utils"
	flagutils "github.com/temirov/contentaudit/internal/utils/flags"
)

const (
	recordCommandUseConstant             = "record"
	recordCommandShortConstant           = "Commit and push a content change under a standard message"
	recordCommandLongConstant            = "record stages the pending change for one content item, commits it with the standard audit message, and pushes the branch."
	commitCommandUseConstant             = "commit <message>"
	commitCommandShortConstant           = "Commit and push every pending change with a free-form message"
	revertCommandUseConstant             = "revert <hash>"
	revertCommandShortConstant           = "Undo a past commit with a new inverse commit and push it"
	historyCommandUseConstant            = "history"
	historyCommandShortConstant          = "List recent commits on the current branch, newest first"
	branchesCommandUseConstant           = "branches"
	branchesCommandShortConstant         = "List local branches"
	checkoutCommandUseConstant           = "checkout <branch>"
	checkoutCommandShortConstant         = "Switch the working tree to another branch (administrators only)"
	testConnectionCommandUseConstant     = "test-connection"
	testConnectionCommandShortConstant   = "Verify the remote accepts the configured credentials"
	statusCommandUseConstant             = "status"
	statusCommandShortConstant           = "Report whether the working tree has pending changes"
	suggestCommandUseConstant            = "suggest"
	suggestCommandShortConstant          = "Ask the configured analyzer to describe pending changes"
	actionFlagNameConstant               = "action"
	actionFlagUsageConstant              = "Kind of change being recorded."
	contentTypeFlagNameConstant          = "type"
	contentTypeFlagUsageConstant         = "Content type of the changed item (for example blog)."
	slugFlagNameConstant                 = "slug"
	slugFlagUsageConstant                = "Identifier of the changed item."
	pathFlagNameConstant                 = "path"
	pathFlagUsageConstant                = "Limit the commit to these paths (repeatable). Defaults to every pending change."
	limitFlagNameConstant                = "limit"
	limitFlagUsageConstant               = "Maximum number of commits to list (capped at 50)."
	defaultHistoryLimitConstant          = 0
	commandStartedMessageConstant        = "engine command started"
	commandFieldConstant                 = "command"
	actorFieldConstant                   = "actor"
	connectionUnavailableMessageConstant = "remote connection check failed"
)

var recordActionChoices = []string{string(changes.ActionCreate), string(changes.ActionUpdate), string(changes.ActionDelete)}

// ErrConnectionUnavailable is returned by test-connection when the probe reports a failure.
var ErrConnectionUnavailable = errors.New(connectionUnavailableMessageConstant)

// LoggerProvider supplies a zap logger instance.
type LoggerProvider func() *zap.Logger

// ServiceProvider resolves the engine once configuration has been loaded.
type ServiceProvider func(executionContext context.Context) (EngineService, error)

// OutputFormatProvider reports the requested output format.
type OutputFormatProvider func() string

// EngineCommandBuilder assembles the Cobra commands that drive the versioning engine.
type EngineCommandBuilder struct {
	LoggerProvider       LoggerProvider
	ServiceProvider      ServiceProvider
	OutputFormatProvider OutputFormatProvider
	ContextAccessor      utils.CommandContextAccessor
}

// Build constructs every engine command.
func (builder *EngineCommandBuilder) Build() []*cobra.Command {
	return []*cobra.Command{
		builder.buildRecordCommand(),
		builder.buildCommitCommand(),
		builder.buildRevertCommand(),
		builder.buildHistoryCommand(),
		builder.buildBranchesCommand(),
		builder.buildCheckoutCommand(),
		builder.buildTestConnectionCommand(),
		builder.buildStatusCommand(),
		builder.buildSuggestCommand(),
	}
}

func (builder *EngineCommandBuilder) buildRecordCommand() *cobra.Command {
	var action string
	var contentType string
	var slug string
	var paths []string

	command := &cobra.Command{
		Use:   recordCommandUseConstant,
		Short: recordCommandShortConstant,
		Long:  recordCommandLongConstant,
		Args:  cobra.NoArgs,
		RunE: func(command *cobra.Command, arguments []string) error {
			service, actor, prepareError := builder.prepare(command)
			if prepareError != nil {
				return prepareError
			}
			result, recordError := service.RecordChange(command.Context(), changes.Descriptor{
				Action:        changes.Action(action),
				ContentType:   strings.TrimSpace(contentType),
				Slug:          strings.TrimSpace(slug),
				ActorIdentity: actor.Identity,
				Paths:         paths,
			})
			if recordError != nil {
				return recordError
			}
			return builder.render(command, result, renderChangeResult(result))
		},
	}

	flagutils.AddChoiceFlag(command.Flags(), &action, actionFlagNameConstant, string(changes.ActionUpdate), recordActionChoices, actionFlagUsageConstant)
	command.Flags().StringVar(&contentType, contentTypeFlagNameConstant, "", contentTypeFlagUsageConstant)
	command.Flags().StringVar(&slug, slugFlagNameConstant, "", slugFlagUsageConstant)
	command.Flags().StringSliceVar(&paths, pathFlagNameConstant, nil, pathFlagUsageConstant)

	return command
}

func (builder *EngineCommandBuilder) buildCommitCommand() *cobra.Command {
	return &cobra.Command{
		Use:   commitCommandUseConstant,
		Short: commitCommandShortConstant,
		Args:  cobra.ExactArgs(1),
		RunE: func(command *cobra.Command, arguments []string) error {
			service, actor, prepareError := builder.prepare(command)
			if prepareError != nil {
				return prepareError
			}
			result, commitError := service.CommitAllChanges(command.Context(), arguments[0], actor.Identity)
			if commitError != nil {
				return commitError
			}
			return builder.render(command, result, renderChangeResult(result))
		},
	}
}

func (builder *EngineCommandBuilder) buildRevertCommand() *cobra.Command {
	return &cobra.Command{
		Use:   revertCommandUseConstant,
		Short: revertCommandShortConstant,
		Args:  cobra.ExactArgs(1),
		RunE: func(command *cobra.Command, arguments []string) error {
			service, actor, prepareError := builder.prepare(command)
			if prepareError != nil {
				return prepareError
			}
			result, revertError := service.RevertCommit(command.Context(), strings.TrimSpace(arguments[0]), actor.Identity)
			if revertError != nil {
				return revertError
			}
			return builder.render(command, result, renderRevertResult(result))
		},
	}
}

func (builder *EngineCommandBuilder) buildHistoryCommand() *cobra.Command {
	var limit int

	command := &cobra.Command{
		Use:   historyCommandUseConstant,
		Short: historyCommandShortConstant,
		Args:  cobra.NoArgs,
		RunE: func(command *cobra.Command, arguments []string) error {
			service, _, prepareError := builder.prepare(command)
			if prepareError != nil {
				return prepareError
			}
			commits, historyError := service.GetHistory(command.Context(), limit)
			if historyError != nil {
				return historyError
			}
			return builder.render(command, commits, renderHistory(commits))
		},
	}
	command.Flags().IntVar(&limit, limitFlagNameConstant, defaultHistoryLimitConstant, limitFlagUsageConstant)

	return command
}

func (builder *EngineCommandBuilder) buildBranchesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   branchesCommandUseConstant,
		Short: branchesCommandShortConstant,
		Args:  cobra.NoArgs,
		RunE: func(command *cobra.Command, arguments []string) error {
			service, _, prepareError := builder.prepare(command)
			if prepareError != nil {
				return prepareError
			}
			branchList, listError := service.ListBranches(command.Context())
			if listError != nil {
				return listError
			}
			return builder.render(command, branchList, renderBranches(branchList))
		},
	}
}

func (builder *EngineCommandBuilder) buildCheckoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   checkoutCommandUseConstant,
		Short: checkoutCommandShortConstant,
		Args:  cobra.ExactArgs(1),
		RunE: func(command *cobra.Command, arguments []string) error {
			service, actor, prepareError := builder.prepare(command)
			if prepareError != nil {
				return prepareError
			}
			result, switchError := service.SwitchCheckout(
				command.Context(),
				branches.Actor{Identity: actor.Identity, Role: branches.Role(actor.Role)},
				strings.TrimSpace(arguments[0]),
			)
			if switchError != nil {
				return switchError
			}
			return builder.render(command, result, renderSwitchResult(result))
		},
	}
}

func (builder *EngineCommandBuilder) buildTestConnectionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   testConnectionCommandUseConstant,
		Short: testConnectionCommandShortConstant,
		Args:  cobra.NoArgs,
		RunE: func(command *cobra.Command, arguments []string) error {
			service, _, prepareError := builder.prepare(command)
			if prepareError != nil {
				return prepareError
			}
			result, probeError := service.TestConnection(command.Context())
			if probeError != nil {
				return probeError
			}
			if renderError := builder.render(command, result, renderConnection(result)); renderError != nil {
				return renderError
			}
			if !result.OK {
				return ErrConnectionUnavailable
			}
			return nil
		},
	}
}

func (builder *EngineCommandBuilder) buildStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   statusCommandUseConstant,
		Short: statusCommandShortConstant,
		Args:  cobra.NoArgs,
		RunE: func(command *cobra.Command, arguments []string) error {
			service, _, prepareError := builder.prepare(command)
			if prepareError != nil {
				return prepareError
			}
			report, statusError := service.Status(command.Context())
			if statusError != nil {
				return statusError
			}
			return builder.render(command, report, renderStatus(report))
		},
	}
}

func (builder *EngineCommandBuilder) buildSuggestCommand() *cobra.Command {
	return &cobra.Command{
		Use:   suggestCommandUseConstant,
		Short: suggestCommandShortConstant,
		Args:  cobra.NoArgs,
		RunE: func(command *cobra.Command, arguments []string) error {
			service, _, prepareError := builder.prepare(command)
			if prepareError != nil {
				return prepareError
			}
			suggestion, suggestError := service.SuggestChange(command.Context())
			if suggestError != nil {
				return suggestError
			}
			return builder.render(command, suggestion, renderSuggestion(suggestion))
		},
	}
}

func (builder *EngineCommandBuilder) prepare(command *cobra.Command) (EngineService, utils.CommandActor, error) {
	executionContext := command.Context()
	if executionContext == nil {
		executionContext = context.Background()
		command.SetContext(executionContext)
	}
	actor, _ := builder.ContextAccessor.Actor(executionContext)

	builder.resolveLogger().Debug(commandStartedMessageConstant,
		zap.String(commandFieldConstant, command.Name()),
		zap.String(actorFieldConstant, actor.Identity),
	)

	service, serviceError := builder.ServiceProvider(executionContext)
	if serviceError != nil {
		return nil, utils.CommandActor{}, serviceError
	}
	return service, actor, nil
}

func (builder *EngineCommandBuilder) render(command *cobra.Command, value any, renderText textRenderer) error {
	format := outputFormatTextConstant
	if builder.OutputFormatProvider != nil {
		format = builder.OutputFormatProvider()
	}
	return renderOutput(command.OutOrStdout(), format, value, renderText)
}

func (builder *EngineCommandBuilder) resolveLogger() *zap.Logger {
	if builder.LoggerProvider == nil {
		return zap.NewNop()
	}
	logger := builder.LoggerProvider()
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}
