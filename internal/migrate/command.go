package migrate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/repomigrate/internal/codecommit"
	"github.com/temirov/repomigrate/internal/credentials"
	"github.com/temirov/repomigrate/internal/domain"
	"github.com/temirov/repomigrate/internal/githubapi"
	"github.com/temirov/repomigrate/internal/retry"
	flagutils "github.com/temirov/repomigrate/internal/utils/flags"
	pathutils "github.com/temirov/repomigrate/internal/utils/path"
)

const (
	commandUseConstant                     = "repomigrate"
	commandShortDescriptionConstant        = "Migrate every CodeCommit repository to GitHub"
	commandLongDescriptionConstant         = "repomigrate lists the CodeCommit repositories visible to the AWS credential chain, creates a matching GitHub repository for each, and replays every branch onto it. A summary report is written when the run completes."
	flattenHistoryFlagNameConstant         = "flatten-history"
	flattenHistoryFlagUsageConstant        = "Migrate each branch tip as a single parentless commit instead of replaying full history"
	repositoryWorkersFlagNameConstant      = "repository-workers"
	repositoryWorkersFlagUsageConstant     = "Number of repositories migrated concurrently"
	reportFormatFlagNameConstant           = "report-format"
	reportFormatFlagUsageConstant          = "Summary report format"
	credentialErrorTemplateConstant        = "destination credential unavailable: %w"
	sourceClientErrorTemplateConstant      = "unable to construct CodeCommit client: %w"
	destinationClientErrorTemplateConstant = "unable to construct GitHub client: %w"
	reportFileErrorTemplateConstant        = "unable to open report file: %w"
	repositoriesFailedTemplateConstant     = "%d of %d repositories failed"
	migrationStartedMessageConstant        = "Migration started"
	credentialMissingMessageConstant       = "Destination credential unavailable"
	logFieldAllowListConstant              = "repository_allow_list"
	logFieldFlattenHistoryConstant         = "flatten_history"
	logFieldRepositoryWorkersConstant      = "repository_workers"
	reportFilePermissionsConstant          = 0o644
	sourceLoggerNameConstant               = "codecommit"
	destinationLoggerNameConstant          = "github"
)

// LoggerProvider supplies a zap logger instance.
type LoggerProvider func() *zap.Logger

// TokenResolver resolves the destination credential from a token source reference.
type TokenResolver interface {
	ResolveToken(tokenSourceValue string) (string, error)
}

// SourceProviderFactory constructs the source provider for validated settings.
type SourceProviderFactory func(executionContext context.Context, settings Settings, policy *retry.Policy, logger *zap.Logger) (domain.SourceProvider, error)

// DestinationProviderFactory constructs the destination provider for validated settings and a resolved token.
type DestinationProviderFactory func(settings Settings, token string, policy *retry.Policy, logger *zap.Logger) (domain.DestinationProvider, error)

// CommandBuilder assembles the repomigrate Cobra command.
type CommandBuilder struct {
	LoggerProvider             LoggerProvider
	ConfigurationProvider      func() Configuration
	TokenResolver              TokenResolver
	SourceProviderFactory      SourceProviderFactory
	DestinationProviderFactory DestinationProviderFactory
	HomeExpander               *pathutils.HomeExpander
}

// Build constructs the repomigrate command.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:           commandUseConstant,
		Short:         commandShortDescriptionConstant,
		Long:          commandLongDescriptionConstant,
		SilenceErrors: true,
		SilenceUsage:  true,
		Args:          cobra.NoArgs,
		RunE:          builder.run,
	}

	defaults := DefaultConfiguration()
	command.Flags().Bool(flattenHistoryFlagNameConstant, defaults.FlattenHistory, flattenHistoryFlagUsageConstant)
	command.Flags().Int(repositoryWorkersFlagNameConstant, defaults.RepositoryWorkers, repositoryWorkersFlagUsageConstant)
	reportFormatUsage := flagutils.FormatChoiceUsage(defaults.Report.Format, []string{string(ReportFormatCSV), string(ReportFormatYAML)}, reportFormatFlagUsageConstant)
	command.Flags().String(reportFormatFlagNameConstant, defaults.Report.Format, reportFormatUsage)

	return command, nil
}

func (builder *CommandBuilder) run(command *cobra.Command, arguments []string) error {
	executionContext := command.Context()
	if executionContext == nil {
		executionContext = context.Background()
	}

	configuration, flagError := builder.applyFlags(command, builder.resolveConfiguration())
	if flagError != nil {
		return flagError
	}

	settings, validationError := configuration.Validate()
	if validationError != nil {
		return validationError
	}

	logger := builder.resolveLogger()

	token, tokenError := builder.resolveTokenResolver().ResolveToken(settings.Configuration.Destination.TokenSource)
	if tokenError != nil {
		logger.Error(credentialMissingMessageConstant, zap.Error(tokenError))
		return fmt.Errorf(credentialErrorTemplateConstant, tokenError)
	}

	retryConfiguration := settings.Configuration.Retry
	sourcePolicy := retry.NewPolicy(logger.Named(sourceLoggerNameConstant), retryConfiguration, settings.Configuration.Source.RequestsPerSecond, codecommit.IsPermanentError)
	destinationPolicy := retry.NewPolicy(logger.Named(destinationLoggerNameConstant), retryConfiguration, settings.Configuration.Destination.RequestsPerSecond, githubapi.IsPermanentError)

	source, sourceError := builder.resolveSourceFactory()(executionContext, settings, sourcePolicy, logger)
	if sourceError != nil {
		return fmt.Errorf(sourceClientErrorTemplateConstant, sourceError)
	}

	destination, destinationError := builder.resolveDestinationFactory()(settings, token, destinationPolicy, logger)
	if destinationError != nil {
		return fmt.Errorf(destinationClientErrorTemplateConstant, destinationError)
	}

	driver, driverError := NewDriverFromSettings(settings, source, destination, logger)
	if driverError != nil {
		return driverError
	}

	logger.Info(
		migrationStartedMessageConstant,
		zap.Strings(logFieldAllowListConstant, settings.Configuration.Repositories),
		zap.Bool(logFieldFlattenHistoryConstant, settings.Configuration.FlattenHistory),
		zap.Int(logFieldRepositoryWorkersConstant, settings.Configuration.RepositoryWorkers),
	)

	summary, runError := driver.Run(executionContext)
	if runError != nil && len(summary.Repositories) == 0 {
		return runError
	}

	if reportError := builder.writeReport(command.OutOrStdout(), settings, summary); reportError != nil {
		return errors.Join(runError, reportError)
	}

	if runError != nil {
		return runError
	}

	failedCount := summary.CountByStatus(RepositoryStatusFailed)
	if failedCount > 0 {
		return fmt.Errorf(repositoriesFailedTemplateConstant, failedCount, len(summary.Repositories))
	}
	return nil
}

// NewDriverFromSettings wires the migration services around the provided providers.
func NewDriverFromSettings(settings Settings, source domain.SourceProvider, destination domain.DestinationProvider, logger *zap.Logger) (*Driver, error) {
	lister, listerError := NewLister(source, settings.Repositories, logger)
	if listerError != nil {
		return nil, listerError
	}

	extractor, extractorError := NewExtractor(source, logger)
	if extractorError != nil {
		return nil, extractorError
	}

	provisioner, provisionerError := NewProvisioner(destination, ProvisionerOptions{
		Owner:      settings.Configuration.Destination.Owner,
		OwnerType:  settings.OwnerType,
		Visibility: settings.Visibility,
		Initialize: settings.Configuration.Destination.InitializeRepository,
	}, logger)
	if provisionerError != nil {
		return nil, provisionerError
	}

	transfer, transferError := NewContentTransfer(source, destination, settings.TreeTransferMode, logger)
	if transferError != nil {
		return nil, transferError
	}

	planner, plannerError := NewHistoryPlanner(source)
	if plannerError != nil {
		return nil, plannerError
	}

	replicator, replicatorError := NewReplicator(destination, transfer, planner, ReplicatorOptions{
		FlattenHistory: settings.Configuration.FlattenHistory,
		BranchWorkers:  settings.Configuration.BranchWorkers,
	}, logger)
	if replicatorError != nil {
		return nil, replicatorError
	}

	aligner, alignerError := NewDefaultBranchAligner(source, destination, logger)
	if alignerError != nil {
		return nil, alignerError
	}

	return NewDriver(DriverDependencies{
		Lister:      lister,
		Extractor:   extractor,
		Provisioner: provisioner,
		Replicator:  replicator,
		Aligner:     aligner,
		Logger:      logger,
	}, DriverOptions{
		RepositoryWorkers: settings.Configuration.RepositoryWorkers,
		RepositoryTimeout: settings.Configuration.RepositoryTimeout,
	})
}

func (builder *CommandBuilder) applyFlags(command *cobra.Command, configuration Configuration) (Configuration, error) {
	flags := command.Flags()
	if flags.Changed(flattenHistoryFlagNameConstant) {
		flattenHistory, flagError := flags.GetBool(flattenHistoryFlagNameConstant)
		if flagError != nil {
			return Configuration{}, flagError
		}
		configuration.FlattenHistory = flattenHistory
	}
	if flags.Changed(repositoryWorkersFlagNameConstant) {
		repositoryWorkers, flagError := flags.GetInt(repositoryWorkersFlagNameConstant)
		if flagError != nil {
			return Configuration{}, flagError
		}
		configuration.RepositoryWorkers = repositoryWorkers
	}
	if flags.Changed(reportFormatFlagNameConstant) {
		reportFormat, flagError := flags.GetString(reportFormatFlagNameConstant)
		if flagError != nil {
			return Configuration{}, flagError
		}
		configuration.Report.Format = strings.TrimSpace(reportFormat)
	}
	return configuration, nil
}

func (builder *CommandBuilder) writeReport(standardOutput io.Writer, settings Settings, summary RunSummary) error {
	reportPath := builder.resolveHomeExpander().Expand(settings.Configuration.Report.Path)
	if len(reportPath) == 0 {
		return WriteReport(standardOutput, summary, settings.ReportFormat)
	}

	reportFile, openError := os.OpenFile(reportPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, reportFilePermissionsConstant)
	if openError != nil {
		return fmt.Errorf(reportFileErrorTemplateConstant, openError)
	}

	writeError := WriteReport(reportFile, summary, settings.ReportFormat)
	closeError := reportFile.Close()
	return errors.Join(writeError, closeError)
}

func (builder *CommandBuilder) resolveHomeExpander() *pathutils.HomeExpander {
	if builder.HomeExpander != nil {
		return builder.HomeExpander
	}
	return pathutils.NewHomeExpander()
}

func (builder *CommandBuilder) resolveLogger() *zap.Logger {
	var logger *zap.Logger
	if builder.LoggerProvider != nil {
		logger = builder.LoggerProvider()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return logger
}

func (builder *CommandBuilder) resolveConfiguration() Configuration {
	if builder.ConfigurationProvider == nil {
		return DefaultConfiguration()
	}
	return builder.ConfigurationProvider().Sanitize()
}

func (builder *CommandBuilder) resolveTokenResolver() TokenResolver {
	if builder.TokenResolver != nil {
		return builder.TokenResolver
	}
	return credentials.NewResolver(nil, nil)
}

func (builder *CommandBuilder) resolveSourceFactory() SourceProviderFactory {
	if builder.SourceProviderFactory != nil {
		return builder.SourceProviderFactory
	}
	return newCodeCommitSource
}

func (builder *CommandBuilder) resolveDestinationFactory() DestinationProviderFactory {
	if builder.DestinationProviderFactory != nil {
		return builder.DestinationProviderFactory
	}
	return newGitHubDestination
}

func newCodeCommitSource(executionContext context.Context, settings Settings, policy *retry.Policy, logger *zap.Logger) (domain.SourceProvider, error) {
	api, apiError := codecommit.NewAPI(executionContext, settings.Configuration.Source.Region)
	if apiError != nil {
		return nil, apiError
	}
	client, clientError := codecommit.NewClient(api, policy, logger)
	if clientError != nil {
		return nil, clientError
	}
	return client, nil
}

func newGitHubDestination(settings Settings, token string, policy *retry.Policy, logger *zap.Logger) (domain.DestinationProvider, error) {
	client, clientError := githubapi.NewClient(githubapi.ClientOptions{
		BaseURL: settings.Configuration.Destination.BaseURL,
		Token:   token,
	}, policy, logger)
	if clientError != nil {
		return nil, clientError
	}
	return client, nil
}
