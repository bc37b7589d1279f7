package migrate

import (
	"fmt"
	"strings"
	"time"

	"github.com/temirov/repomigrate/internal/domain"
	"github.com/temirov/repomigrate/internal/retry"
)

const (
	ownerTypeUserConstant               = "user"
	ownerTypeOrganizationConstant       = "org"
	treeTransferCopyConstant            = "transfer"
	treeTransferReuseVerifiedConstant   = "reuse-verified"
	reportFormatCSVConstant             = "csv"
	reportFormatYAMLConstant            = "yaml"
	defaultRepositoryWorkersConstant    = 1
	defaultBranchWorkersConstant        = 1
	defaultRepositoryTimeoutConstant    = 30 * time.Minute
	defaultSourceRequestRateConstant    = 5.0
	defaultDestinationRequestRate       = 10.0
	ownerTypeInvalidTemplateConstant    = "owner type %q is not supported"
	treeTransferInvalidTemplateConstant = "tree transfer mode %q is not supported"
	reportFormatInvalidTemplateConstant = "report format %q is not supported"
	organizationOwnerRequiredConstant   = "an organization owner must be named explicitly"
	ownerTypeFieldNameConstant          = "migration.destination.owner_type"
	ownerFieldNameConstant              = "migration.destination.owner"
	visibilityFieldNameConstant         = "migration.destination.visibility"
	treeTransferFieldNameConstant       = "migration.tree_transfer"
	reportFormatFieldNameConstant       = "migration.report.format"
	repositoryWorkersFieldNameConstant  = "migration.repository_workers"
	branchWorkersFieldNameConstant      = "migration.branch_workers"
	repositoryTimeoutFieldNameConstant  = "migration.repository_timeout"
	positiveValueRequiredConstant       = "must be at least 1"
	nonNegativeValueRequiredConstant    = "must not be negative"
)

// OwnerType selects whether destination repositories belong to a user or an organization.
type OwnerType string

// Owner types.
const (
	OwnerTypeUser         OwnerType = OwnerType(ownerTypeUserConstant)
	OwnerTypeOrganization OwnerType = OwnerType(ownerTypeOrganizationConstant)
)

// ParseOwnerType normalizes textual owner type values. Blank values mean a user owner.
func ParseOwnerType(ownerTypeValue string) (OwnerType, error) {
	switch OwnerType(strings.ToLower(strings.TrimSpace(ownerTypeValue))) {
	case "", OwnerTypeUser:
		return OwnerTypeUser, nil
	case OwnerTypeOrganization:
		return OwnerTypeOrganization, nil
	default:
		return "", fmt.Errorf(ownerTypeInvalidTemplateConstant, ownerTypeValue)
	}
}

// TreeTransferMode selects how destination trees are obtained.
type TreeTransferMode string

// Tree transfer modes.
const (
	TreeTransferCopy          TreeTransferMode = TreeTransferMode(treeTransferCopyConstant)
	TreeTransferReuseVerified TreeTransferMode = TreeTransferMode(treeTransferReuseVerifiedConstant)
)

// ParseTreeTransferMode normalizes textual tree transfer modes. Blank values mean a full transfer.
func ParseTreeTransferMode(modeValue string) (TreeTransferMode, error) {
	switch TreeTransferMode(strings.ToLower(strings.TrimSpace(modeValue))) {
	case "", TreeTransferCopy:
		return TreeTransferCopy, nil
	case TreeTransferReuseVerified:
		return TreeTransferReuseVerified, nil
	default:
		return "", fmt.Errorf(treeTransferInvalidTemplateConstant, modeValue)
	}
}

// ReportFormat selects the summary report encoding.
type ReportFormat string

// Report formats.
const (
	ReportFormatCSV  ReportFormat = ReportFormat(reportFormatCSVConstant)
	ReportFormatYAML ReportFormat = ReportFormat(reportFormatYAMLConstant)
)

// ParseReportFormat normalizes textual report formats. Blank values mean CSV.
func ParseReportFormat(formatValue string) (ReportFormat, error) {
	switch ReportFormat(strings.ToLower(strings.TrimSpace(formatValue))) {
	case "", ReportFormatCSV:
		return ReportFormatCSV, nil
	case ReportFormatYAML:
		return ReportFormatYAML, nil
	default:
		return "", fmt.Errorf(reportFormatInvalidTemplateConstant, formatValue)
	}
}

// SourceConfiguration describes the CodeCommit side.
type SourceConfiguration struct {
	Region            string  `mapstructure:"region"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
}

// DestinationConfiguration describes the GitHub side.
type DestinationConfiguration struct {
	BaseURL              string  `mapstructure:"base_url"`
	Owner                string  `mapstructure:"owner"`
	OwnerType            string  `mapstructure:"owner_type"`
	Visibility           string  `mapstructure:"visibility"`
	InitializeRepository bool    `mapstructure:"initialize_repository"`
	TokenSource          string  `mapstructure:"token_source"`
	RequestsPerSecond    float64 `mapstructure:"requests_per_second"`
}

// ReportConfiguration describes where the run summary is written.
type ReportConfiguration struct {
	Format string `mapstructure:"format"`
	Path   string `mapstructure:"path"`
}

// Configuration captures persisted migration settings.
type Configuration struct {
	Source            SourceConfiguration      `mapstructure:"source"`
	Destination       DestinationConfiguration `mapstructure:"destination"`
	FlattenHistory    bool                     `mapstructure:"flatten_history"`
	TreeTransfer      string                   `mapstructure:"tree_transfer"`
	RepositoryWorkers int                      `mapstructure:"repository_workers"`
	BranchWorkers     int                      `mapstructure:"branch_workers"`
	RepositoryTimeout time.Duration            `mapstructure:"repository_timeout"`
	Repositories      []string                 `mapstructure:"repositories"`
	Retry             retry.Configuration      `mapstructure:"retry"`
	Report            ReportConfiguration      `mapstructure:"report"`
}

// DefaultConfiguration returns baseline migration settings.
func DefaultConfiguration() Configuration {
	return Configuration{
		Source: SourceConfiguration{RequestsPerSecond: defaultSourceRequestRateConstant},
		Destination: DestinationConfiguration{
			OwnerType:            ownerTypeUserConstant,
			Visibility:           string(domain.VisibilityPrivate),
			InitializeRepository: true,
			RequestsPerSecond:    defaultDestinationRequestRate,
		},
		FlattenHistory:    true,
		TreeTransfer:      treeTransferCopyConstant,
		RepositoryWorkers: defaultRepositoryWorkersConstant,
		BranchWorkers:     defaultBranchWorkersConstant,
		RepositoryTimeout: defaultRepositoryTimeoutConstant,
		Retry:             retry.DefaultConfiguration(),
		Report:            ReportConfiguration{Format: reportFormatCSVConstant},
	}
}

// DefaultConfigurationValues exposes defaults keyed for the configuration loader.
func DefaultConfigurationValues(prefix string) map[string]any {
	defaults := DefaultConfiguration()
	key := func(suffix string) string {
		return prefix + "." + suffix
	}
	return map[string]any{
		key("source.region"):                     defaults.Source.Region,
		key("source.requests_per_second"):        defaults.Source.RequestsPerSecond,
		key("destination.base_url"):              defaults.Destination.BaseURL,
		key("destination.owner"):                 defaults.Destination.Owner,
		key("destination.token_source"):          defaults.Destination.TokenSource,
		key("destination.owner_type"):            defaults.Destination.OwnerType,
		key("destination.visibility"):            defaults.Destination.Visibility,
		key("destination.initialize_repository"): defaults.Destination.InitializeRepository,
		key("destination.requests_per_second"):   defaults.Destination.RequestsPerSecond,
		key("flatten_history"):                   defaults.FlattenHistory,
		key("tree_transfer"):                     defaults.TreeTransfer,
		key("repository_workers"):                defaults.RepositoryWorkers,
		key("branch_workers"):                    defaults.BranchWorkers,
		key("repository_timeout"):                defaults.RepositoryTimeout,
		key("retry.max_attempts"):                defaults.Retry.MaxAttempts,
		key("retry.initial_interval"):            defaults.Retry.InitialInterval,
		key("retry.max_interval"):                defaults.Retry.MaxInterval,
		key("repositories"):                      []string{},
		key("report.format"):                     defaults.Report.Format,
		key("report.path"):                       defaults.Report.Path,
	}
}

// Sanitize trims configured values and removes empty entries.
func (configuration Configuration) Sanitize() Configuration {
	sanitized := configuration
	sanitized.Source.Region = strings.TrimSpace(configuration.Source.Region)
	sanitized.Destination.BaseURL = strings.TrimSpace(configuration.Destination.BaseURL)
	sanitized.Destination.Owner = strings.TrimSpace(configuration.Destination.Owner)
	sanitized.Destination.OwnerType = strings.TrimSpace(configuration.Destination.OwnerType)
	sanitized.Destination.Visibility = strings.TrimSpace(configuration.Destination.Visibility)
	sanitized.Destination.TokenSource = strings.TrimSpace(configuration.Destination.TokenSource)
	sanitized.TreeTransfer = strings.TrimSpace(configuration.TreeTransfer)
	sanitized.Report.Format = strings.TrimSpace(configuration.Report.Format)
	sanitized.Report.Path = strings.TrimSpace(configuration.Report.Path)
	sanitized.Retry = configuration.Retry.Sanitize()

	sanitized.Repositories = nil
	for _, repositoryName := range configuration.Repositories {
		if trimmedName := strings.TrimSpace(repositoryName); len(trimmedName) > 0 {
			sanitized.Repositories = append(sanitized.Repositories, trimmedName)
		}
	}
	return sanitized
}

// Settings is the validated, typed form of Configuration.
type Settings struct {
	Configuration    Configuration
	OwnerType        OwnerType
	Visibility       domain.Visibility
	TreeTransferMode TreeTransferMode
	ReportFormat     ReportFormat
	Repositories     []domain.RepositoryName
}

// Validate parses enumerated values and checks numeric bounds.
func (configuration Configuration) Validate() (Settings, error) {
	sanitized := configuration.Sanitize()

	ownerType, ownerTypeError := ParseOwnerType(sanitized.Destination.OwnerType)
	if ownerTypeError != nil {
		return Settings{}, InvalidInputError{FieldName: ownerTypeFieldNameConstant, Message: ownerTypeError.Error()}
	}
	if ownerType == OwnerTypeOrganization && len(sanitized.Destination.Owner) == 0 {
		return Settings{}, InvalidInputError{FieldName: ownerFieldNameConstant, Message: organizationOwnerRequiredConstant}
	}

	visibility, visibilityError := domain.ParseVisibility(sanitized.Destination.Visibility)
	if visibilityError != nil {
		return Settings{}, InvalidInputError{FieldName: visibilityFieldNameConstant, Message: visibilityError.Error()}
	}

	treeTransferMode, treeTransferError := ParseTreeTransferMode(sanitized.TreeTransfer)
	if treeTransferError != nil {
		return Settings{}, InvalidInputError{FieldName: treeTransferFieldNameConstant, Message: treeTransferError.Error()}
	}

	reportFormat, reportFormatError := ParseReportFormat(sanitized.Report.Format)
	if reportFormatError != nil {
		return Settings{}, InvalidInputError{FieldName: reportFormatFieldNameConstant, Message: reportFormatError.Error()}
	}

	if sanitized.RepositoryWorkers < 1 {
		return Settings{}, InvalidInputError{FieldName: repositoryWorkersFieldNameConstant, Message: positiveValueRequiredConstant}
	}
	if sanitized.BranchWorkers < 1 {
		return Settings{}, InvalidInputError{FieldName: branchWorkersFieldNameConstant, Message: positiveValueRequiredConstant}
	}
	if sanitized.RepositoryTimeout < 0 {
		return Settings{}, InvalidInputError{FieldName: repositoryTimeoutFieldNameConstant, Message: nonNegativeValueRequiredConstant}
	}

	repositories := make([]domain.RepositoryName, 0, len(sanitized.Repositories))
	for _, repositoryName := range sanitized.Repositories {
		repositories = append(repositories, domain.RepositoryName(repositoryName))
	}

	return Settings{
		Configuration:    sanitized,
		OwnerType:        ownerType,
		Visibility:       visibility,
		TreeTransferMode: treeTransferMode,
		ReportFormat:     reportFormat,
		Repositories:     repositories,
	}, nil
}
