package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/temirov/contentaudit/internal/branches"
	"github.com/temirov/contentaudit/internal/utils"
	flagutils "github.com/temirov/contentaudit/internal/utils/flags"
	pathutils "github.com/temirov/contentaudit/internal/utils/path"
	"github.com/temirov/contentaudit/internal/versioning"
)

const (
	applicationNameConstant                 = "contentaudit"
	applicationShortDescriptionConstant     = "Versioned, auditable content changes backed by git"
	applicationLongDescriptionConstant      = "contentaudit records content changes as git commits with standard audit messages, pushes them to a remote, and reverts or inspects them on request."
	configFileFlagNameConstant              = "config"
	configFileFlagUsageConstant             = "Optional path to a configuration file (YAML or JSON)."
	logLevelFlagNameConstant                = "log-level"
	logLevelFlagUsageConstant               = "Override the configured log level."
	logFormatFlagNameConstant               = "log-format"
	logFormatFlagUsageConstant              = "Override the configured log format (structured or console)."
	repositoryFlagNameConstant              = "repository"
	repositoryFlagUsageConstant             = "Path to the content repository working tree."
	actorFlagNameConstant                   = "actor"
	actorFlagUsageConstant                  = "Identity recorded in audit messages (for example an email address)."
	roleFlagNameConstant                    = "role"
	roleFlagUsageConstant                   = "Role of the actor."
	outputFlagNameConstant                  = "output"
	outputFlagUsageConstant                 = "Output format."
	colorFlagNameConstant                   = "color"
	colorFlagUsageConstant                  = "Colorize text output."
	commonConfigurationKeyConstant          = "common"
	commonLogLevelConfigKeyConstant         = commonConfigurationKeyConstant + ".log_level"
	commonLogFormatConfigKeyConstant        = commonConfigurationKeyConstant + ".log_format"
	commonActorConfigKeyConstant            = commonConfigurationKeyConstant + ".actor"
	commonRoleConfigKeyConstant             = commonConfigurationKeyConstant + ".role"
	environmentPrefixConstant               = "CONTENTAUDIT"
	environmentFileConstant                 = ".env"
	configurationNameConstant               = "config"
	configurationTypeConstant               = "yaml"
	configurationInitializedMessageConstant = "configuration initialized"
	configurationLogLevelFieldConstant      = "log_level"
	configurationLogFormatFieldConstant     = "log_format"
	configurationFileFieldConstant          = "config_file"
	environmentFilesFieldConstant           = "environment_files"
	repositoryPathFieldConstant             = "repository_path"
	configurationLoadErrorTemplateConstant  = "unable to load configuration: %w"
	loggerCreationErrorTemplateConstant     = "unable to create logger: %w"
	loggerSyncErrorTemplateConstant         = "unable to flush logger: %w"
	repositoryPathErrorTemplateConstant     = "unable to resolve repository path: %w"
	defaultConfigurationSearchPathConstant  = "."
)

var roleChoices = []string{string(branches.RoleAdmin), string(branches.RoleEditor)}

// ApplicationConfiguration describes the persisted configuration for the CLI entrypoint.
type ApplicationConfiguration struct {
	Common ApplicationCommonConfiguration `mapstructure:"common"`
	Engine versioning.Configuration       `mapstructure:",squash"`
}

// ApplicationCommonConfiguration stores logging and caller settings shared across commands.
type ApplicationCommonConfiguration struct {
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`
	Actor     string `mapstructure:"actor"`
	Role      string `mapstructure:"role"`
}

// Application wires the Cobra root command, configuration loader, structured logger, and engine.
type Application struct {
	rootCommand            *cobra.Command
	configurationLoader    *utils.ConfigurationLoader
	loggerFactory          *utils.LoggerFactory
	logger                 *zap.Logger
	configuration          ApplicationConfiguration
	configurationMetadata  utils.LoadedConfiguration
	configurationFilePath  string
	logLevelFlagValue      string
	logFormatFlagValue     string
	repositoryFlagValue    string
	actorFlagValue         string
	roleFlagValue          string
	outputFlagValue        string
	colorFlagValue         bool
	commandContextAccessor utils.CommandContextAccessor
	homeExpander           *pathutils.HomeExpander
	serviceFactory         ServiceFactory
	serviceMutex           sync.Mutex
	service                EngineService
}

// NewApplication assembles a fully wired CLI application instance.
func NewApplication() *Application {
	return NewApplicationWithServiceFactory(NewVersioningService)
}

// NewApplicationWithServiceFactory assembles the CLI with a custom engine constructor.
func NewApplicationWithServiceFactory(serviceFactory ServiceFactory) *Application {
	configurationLoader := utils.NewConfigurationLoader(
		configurationNameConstant,
		configurationTypeConstant,
		environmentPrefixConstant,
		[]string{defaultConfigurationSearchPathConstant},
	)
	configurationLoader.SetEmbeddedConfiguration(EmbeddedDefaultConfiguration())
	configurationLoader.SetEnvironmentFiles(environmentFileConstant)

	if serviceFactory == nil {
		serviceFactory = NewVersioningService
	}

	application := &Application{
		configurationLoader:    configurationLoader,
		loggerFactory:          utils.NewLoggerFactory(),
		logger:                 zap.NewNop(),
		commandContextAccessor: utils.NewCommandContextAccessor(),
		homeExpander:           pathutils.NewHomeExpander(),
		serviceFactory:         serviceFactory,
	}

	cobraCommand := &cobra.Command{
		Use:           applicationNameConstant,
		Short:         applicationShortDescriptionConstant,
		Long:          applicationLongDescriptionConstant,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(command *cobra.Command, arguments []string) error {
			return application.initializeConfiguration(command)
		},
		RunE: func(command *cobra.Command, arguments []string) error {
			return command.Help()
		},
	}

	cobraCommand.SetContext(context.Background())
	persistentFlags := cobraCommand.PersistentFlags()
	persistentFlags.StringVar(&application.configurationFilePath, configFileFlagNameConstant, "", configFileFlagUsageConstant)
	persistentFlags.StringVar(&application.logLevelFlagValue, logLevelFlagNameConstant, "", logLevelFlagUsageConstant)
	persistentFlags.StringVar(&application.logFormatFlagValue, logFormatFlagNameConstant, "", logFormatFlagUsageConstant)
	persistentFlags.StringVar(&application.repositoryFlagValue, repositoryFlagNameConstant, "", repositoryFlagUsageConstant)
	persistentFlags.StringVar(&application.actorFlagValue, actorFlagNameConstant, "", actorFlagUsageConstant)
	flagutils.AddChoiceFlag(persistentFlags, &application.roleFlagValue, roleFlagNameConstant, string(branches.RoleEditor), roleChoices, roleFlagUsageConstant)
	flagutils.AddChoiceFlag(persistentFlags, &application.outputFlagValue, outputFlagNameConstant, outputFormatTextConstant, outputFormatChoices, outputFlagUsageConstant)
	flagutils.AddToggleFlag(persistentFlags, &application.colorFlagValue, colorFlagNameConstant, true, colorFlagUsageConstant)

	engineBuilder := EngineCommandBuilder{
		LoggerProvider: func() *zap.Logger {
			return application.logger
		},
		ServiceProvider: application.resolveService,
		OutputFormatProvider: func() string {
			return application.outputFlagValue
		},
		ContextAccessor: application.commandContextAccessor,
	}
	cobraCommand.AddCommand(engineBuilder.Build()...)

	application.rootCommand = cobraCommand

	return application
}

// Execute runs the configured Cobra command hierarchy and ensures logger flushing.
func (application *Application) Execute() error {
	executionError := application.rootCommand.Execute()
	if syncError := application.flushLogger(); syncError != nil && executionError == nil {
		return fmt.Errorf(loggerSyncErrorTemplateConstant, syncError)
	}
	return executionError
}

// Execute builds a fresh application instance and executes the root command hierarchy.
func Execute() error {
	return NewApplication().Execute()
}

func (application *Application) initializeConfiguration(command *cobra.Command) error {
	defaultValues := map[string]any{
		commonLogLevelConfigKeyConstant:  string(utils.LogLevelInfo),
		commonLogFormatConfigKeyConstant: string(utils.LogFormatStructured),
		commonActorConfigKeyConstant:     "",
		commonRoleConfigKeyConstant:      string(branches.RoleEditor),
	}
	for configurationKey, configurationValue := range versioning.DefaultConfigurationValues("") {
		defaultValues[configurationKey] = configurationValue
	}

	loadedConfiguration, loadError := application.configurationLoader.LoadConfiguration(application.configurationFilePath, defaultValues, &application.configuration)
	if loadError != nil {
		return fmt.Errorf(configurationLoadErrorTemplateConstant, loadError)
	}

	application.configurationMetadata = loadedConfiguration

	if application.persistentFlagChanged(command, logLevelFlagNameConstant) {
		application.configuration.Common.LogLevel = application.logLevelFlagValue
	}
	if application.persistentFlagChanged(command, logFormatFlagNameConstant) {
		application.configuration.Common.LogFormat = application.logFormatFlagValue
	}
	if application.persistentFlagChanged(command, repositoryFlagNameConstant) {
		application.configuration.Engine.Repository.Path = application.repositoryFlagValue
	}
	if application.persistentFlagChanged(command, actorFlagNameConstant) {
		application.configuration.Common.Actor = application.actorFlagValue
	}
	if application.persistentFlagChanged(command, roleFlagNameConstant) {
		application.configuration.Common.Role = application.roleFlagValue
	}
	if application.persistentFlagChanged(command, colorFlagNameConstant) {
		color.NoColor = !application.colorFlagValue
	}

	if repositoryPath := strings.TrimSpace(application.configuration.Engine.Repository.Path); len(repositoryPath) > 0 {
		resolvedPath, resolveError := application.homeExpander.Resolve(repositoryPath)
		if resolveError != nil {
			return fmt.Errorf(repositoryPathErrorTemplateConstant, resolveError)
		}
		application.configuration.Engine.Repository.Path = resolvedPath
	}

	logger, loggerCreationError := application.loggerFactory.CreateLogger(
		utils.LogLevel(application.configuration.Common.LogLevel),
		utils.LogFormat(application.configuration.Common.LogFormat),
	)
	if loggerCreationError != nil {
		return fmt.Errorf(loggerCreationErrorTemplateConstant, loggerCreationError)
	}

	application.logger = logger

	application.logger.Info(
		configurationInitializedMessageConstant,
		zap.String(configurationLogLevelFieldConstant, application.configuration.Common.LogLevel),
		zap.String(configurationLogFormatFieldConstant, application.configuration.Common.LogFormat),
		zap.String(configurationFileFieldConstant, application.configurationMetadata.ConfigFileUsed),
		zap.Strings(environmentFilesFieldConstant, application.configurationMetadata.EnvironmentFilesUsed),
		zap.String(repositoryPathFieldConstant, application.configuration.Engine.Repository.Path),
	)

	if command != nil {
		updatedContext := application.commandContextAccessor.WithConfigurationFilePath(
			command.Context(),
			application.configurationMetadata.ConfigFileUsed,
		)
		updatedContext = application.commandContextAccessor.WithActor(updatedContext, utils.CommandActor{
			Identity: application.configuration.Common.Actor,
			Role:     application.configuration.Common.Role,
		})
		command.SetContext(updatedContext)
		if rootCommand := command.Root(); rootCommand != nil {
			rootCommand.SetContext(updatedContext)
		}
	}

	return nil
}

func (application *Application) resolveService(executionContext context.Context) (EngineService, error) {
	application.serviceMutex.Lock()
	defer application.serviceMutex.Unlock()

	if application.service != nil {
		return application.service, nil
	}
	service, serviceError := application.serviceFactory(executionContext, application.logger, application.configuration.Engine)
	if serviceError != nil {
		return nil, serviceError
	}
	application.service = service
	return service, nil
}

func (application *Application) flushLogger() error {
	if application.logger == nil {
		return nil
	}

	syncError := application.logger.Sync()
	switch {
	case syncError == nil:
		return nil
	case errors.Is(syncError, syscall.ENOTSUP):
		return nil
	case errors.Is(syncError, syscall.EINVAL):
		return nil
	default:
		return syncError
	}
}

func (application *Application) persistentFlagChanged(command *cobra.Command, flagName string) bool {
	if command == nil {
		return false
	}

	flagSetsToInspect := []*pflag.FlagSet{
		command.PersistentFlags(),
		command.InheritedFlags(),
	}

	rootCommand := command.Root()
	if rootCommand != nil {
		flagSetsToInspect = append(flagSetsToInspect, rootCommand.PersistentFlags())
	}

	for _, flagSet := range flagSetsToInspect {
		if flagSet == nil {
			continue
		}

		if flagSet.Changed(flagName) {
			return true
		}
	}

	return false
}
