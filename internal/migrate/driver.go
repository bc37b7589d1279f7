package migrate

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/temirov/repomigrate/internal/domain"
)

const (
	repositoryStatusSucceededConstant = "succeeded"
	repositoryStatusPartialConstant   = "partial"
	repositoryStatusFailedConstant    = "failed"
	repositoryStatusSkippedConstant   = "skipped"
	repositoryMigratedMessageConstant = "Repository migrated"
	repositoryPartialMessageConstant  = "Repository partially migrated"
	repositoryFailedMessageConstant   = "Repository migration failed"
	repositoryStartedMessageConstant  = "Repository migration started"
	runCompletedMessageConstant       = "Migration run completed"
	listingFailedMessageConstant      = "Repository listing failed"
	logFieldRepositoryConstant        = "repository"
	logFieldDestinationConstant       = "destination"
	logFieldBranchConstant            = "branch"
	logFieldOperationConstant         = "operation"
	logFieldStatusConstant            = "status"
	logFieldCommitConstant            = "commit_id"
	logFieldFailedBranchCountConstant = "failed_branches"
	logFieldSucceededCountConstant    = "succeeded"
	logFieldPartialCountConstant      = "partial"
	logFieldFailedCountConstant       = "failed"
	minimumRepositoryWorkersConstant  = 1
)

// RepositoryStatus classifies the outcome of one repository.
type RepositoryStatus string

// Repository outcomes.
const (
	RepositoryStatusSucceeded RepositoryStatus = RepositoryStatus(repositoryStatusSucceededConstant)
	RepositoryStatusPartial   RepositoryStatus = RepositoryStatus(repositoryStatusPartialConstant)
	RepositoryStatusFailed    RepositoryStatus = RepositoryStatus(repositoryStatusFailedConstant)
	RepositoryStatusSkipped   RepositoryStatus = RepositoryStatus(repositoryStatusSkippedConstant)
)

// RepositoryResult records the outcome of one repository.
type RepositoryResult struct {
	Repository  domain.RepositoryName
	Destination string
	Status      RepositoryStatus
	Operation   OperationName
	Error       error
	Branches    []BranchResult
}

// RunSummary lists every repository outcome in listing order.
type RunSummary struct {
	Repositories []RepositoryResult
}

// CountByStatus returns how many repositories ended with the status.
func (summary RunSummary) CountByStatus(status RepositoryStatus) int {
	count := 0
	for _, repositoryResult := range summary.Repositories {
		if repositoryResult.Status == status {
			count++
		}
	}
	return count
}

// HasFailures reports whether any repository failed entirely.
func (summary RunSummary) HasFailures() bool {
	return summary.CountByStatus(RepositoryStatusFailed) > 0
}

// RepositoryLister enumerates source repositories.
type RepositoryLister interface {
	ListRepositories(executionContext context.Context) ([]domain.RepositoryName, error)
}

// HistoryExtractor builds the CommitMap of one repository.
type HistoryExtractor interface {
	Extract(executionContext context.Context, repository domain.RepositoryName) (domain.CommitMap, error)
}

// RepositoryProvisioner creates destination repositories.
type RepositoryProvisioner interface {
	Provision(executionContext context.Context, repository domain.RepositoryName) (domain.RepositoryDescriptor, error)
}

// HistoryReplicator recreates branches in the destination.
type HistoryReplicator interface {
	Replicate(executionContext context.Context, repository domain.RepositoryName, target domain.RepositoryTarget, commitMap domain.CommitMap) ReplicationResult
}

// DefaultBranchSelector reconciles the destination default branch with the migrated branches.
type DefaultBranchSelector interface {
	Align(executionContext context.Context, repository domain.RepositoryName, descriptor domain.RepositoryDescriptor, commitMap domain.CommitMap, branches []BranchResult) error
}

// DriverDependencies enumerates collaborators required by the driver. Aligner is optional.
type DriverDependencies struct {
	Lister      RepositoryLister
	Extractor   HistoryExtractor
	Provisioner RepositoryProvisioner
	Replicator  HistoryReplicator
	Aligner     DefaultBranchSelector
	Logger      *zap.Logger
}

// DriverOptions tunes the run.
type DriverOptions struct {
	RepositoryWorkers int
	RepositoryTimeout time.Duration
}

var (
	// ErrListerNotConfigured indicates a missing lister.
	ErrListerNotConfigured = errors.New("repository lister not configured")
	// ErrExtractorNotConfigured indicates a missing extractor.
	ErrExtractorNotConfigured = errors.New("history extractor not configured")
	// ErrProvisionerNotConfigured indicates a missing provisioner.
	ErrProvisionerNotConfigured = errors.New("repository provisioner not configured")
	// ErrReplicatorNotConfigured indicates a missing replicator.
	ErrReplicatorNotConfigured = errors.New("history replicator not configured")
)

// Driver runs extract, provision, and replicate for every listed repository.
type Driver struct {
	lister            RepositoryLister
	extractor         HistoryExtractor
	provisioner       RepositoryProvisioner
	replicator        HistoryReplicator
	aligner           DefaultBranchSelector
	repositoryWorkers int
	repositoryTimeout time.Duration
	locks             *nameLocks
	logger            *zap.Logger
}

// NewDriver validates dependencies and constructs a Driver.
func NewDriver(dependencies DriverDependencies, options DriverOptions) (*Driver, error) {
	if dependencies.Lister == nil {
		return nil, ErrListerNotConfigured
	}
	if dependencies.Extractor == nil {
		return nil, ErrExtractorNotConfigured
	}
	if dependencies.Provisioner == nil {
		return nil, ErrProvisionerNotConfigured
	}
	if dependencies.Replicator == nil {
		return nil, ErrReplicatorNotConfigured
	}

	logger := dependencies.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	repositoryWorkers := options.RepositoryWorkers
	if repositoryWorkers < minimumRepositoryWorkersConstant {
		repositoryWorkers = minimumRepositoryWorkersConstant
	}

	return &Driver{
		lister:            dependencies.Lister,
		extractor:         dependencies.Extractor,
		provisioner:       dependencies.Provisioner,
		replicator:        dependencies.Replicator,
		aligner:           dependencies.Aligner,
		repositoryWorkers: repositoryWorkers,
		repositoryTimeout: options.RepositoryTimeout,
		locks:             newNameLocks(),
		logger:            logger,
	}, nil
}

// Run migrates every listed repository. A listing failure is returned as an error and nothing
// is migrated. Repository and branch failures are recorded in the summary and never stop other
// repositories. Cancellation stops scheduling further repositories, which are reported as skipped,
// and the context error is returned alongside the summary.
func (driver *Driver) Run(executionContext context.Context) (RunSummary, error) {
	repositories, listError := driver.lister.ListRepositories(executionContext)
	if listError != nil {
		driver.logger.Error(listingFailedMessageConstant, zap.Error(listError))
		return RunSummary{}, listError
	}

	results := make([]RepositoryResult, len(repositories))
	for repositoryIndex, repository := range repositories {
		results[repositoryIndex] = RepositoryResult{Repository: repository, Status: RepositoryStatusSkipped}
	}

	var group errgroup.Group
	group.SetLimit(driver.repositoryWorkers)
	for repositoryIndex, repository := range repositories {
		if executionContext.Err() != nil {
			break
		}
		group.Go(func() error {
			if executionContext.Err() != nil {
				return nil
			}
			results[repositoryIndex] = driver.migrateRepository(executionContext, repository)
			return nil
		})
	}
	_ = group.Wait()

	summary := RunSummary{Repositories: results}
	driver.logger.Info(
		runCompletedMessageConstant,
		zap.Int(logFieldSucceededCountConstant, summary.CountByStatus(RepositoryStatusSucceeded)),
		zap.Int(logFieldPartialCountConstant, summary.CountByStatus(RepositoryStatusPartial)),
		zap.Int(logFieldFailedCountConstant, summary.CountByStatus(RepositoryStatusFailed)),
	)

	return summary, executionContext.Err()
}

func (driver *Driver) migrateRepository(executionContext context.Context, repository domain.RepositoryName) RepositoryResult {
	unlock := driver.locks.Lock(string(repository))
	defer unlock()

	repositoryContext := executionContext
	if driver.repositoryTimeout > 0 {
		var cancel context.CancelFunc
		repositoryContext, cancel = context.WithTimeout(executionContext, driver.repositoryTimeout)
		defer cancel()
	}

	driver.logger.Debug(repositoryStartedMessageConstant, zap.String(logFieldRepositoryConstant, string(repository)))

	commitMap, extractionError := driver.extractor.Extract(repositoryContext, repository)
	var lookupFailures []BranchLookupError
	if extractionError != nil {
		var partialExtraction ExtractionError
		if commitMap == nil || !errors.As(extractionError, &partialExtraction) {
			return driver.failRepository(repository, "", failedOperation(OperationListBranches, extractionError), extractionError)
		}
		lookupFailures = partialExtraction.Failures
	}

	descriptor, provisioningError := driver.provisioner.Provision(repositoryContext, repository)
	if provisioningError != nil {
		return driver.failRepository(repository, "", failedOperation(OperationProvision, provisioningError), provisioningError)
	}

	replication := driver.replicator.Replicate(repositoryContext, repository, descriptor.Target(), commitMap)

	branches := make([]BranchResult, 0, len(replication.Branches)+len(lookupFailures))
	branches = append(branches, replication.Branches...)
	if driver.aligner != nil {
		if alignError := driver.aligner.Align(repositoryContext, repository, descriptor, commitMap, replication.Branches); alignError != nil {
			branches = append(branches, BranchResult{
				Branch:    domain.BranchName(descriptor.DefaultBranch),
				Status:    BranchStatusFailed,
				Operation: OperationAlignDefaultBranch,
				Error:     alignError,
			})
		}
	}
	for _, lookupFailure := range lookupFailures {
		branches = append(branches, BranchResult{
			Branch:    domain.BranchName(lookupFailure.Branch),
			Status:    BranchStatusFailed,
			Operation: lookupFailure.Operation,
			Error:     lookupFailure.Cause,
		})
	}

	result := RepositoryResult{
		Repository:  repository,
		Destination: descriptor.FullName,
		Status:      classifyBranches(branches),
		Branches:    branches,
	}
	driver.logRepository(result)
	return result
}

// failedOperation attributes deadline and cancellation failures to the repository as a whole.
func failedOperation(step OperationName, failure error) OperationName {
	if errors.Is(failure, context.DeadlineExceeded) || errors.Is(failure, context.Canceled) {
		return OperationMigrateRepository
	}
	return step
}

func classifyBranches(branches []BranchResult) RepositoryStatus {
	failed := 0
	for _, branchResult := range branches {
		if branchResult.Status == BranchStatusFailed {
			failed++
		}
	}
	switch {
	case failed == 0:
		return RepositoryStatusSucceeded
	case failed == len(branches):
		return RepositoryStatusFailed
	default:
		return RepositoryStatusPartial
	}
}

func (driver *Driver) failRepository(repository domain.RepositoryName, destination string, operation OperationName, failure error) RepositoryResult {
	result := RepositoryResult{
		Repository:  repository,
		Destination: destination,
		Status:      RepositoryStatusFailed,
		Operation:   operation,
		Error:       failure,
	}
	driver.logRepository(result)
	return result
}

func (driver *Driver) logRepository(result RepositoryResult) {
	fields := []zap.Field{
		zap.String(logFieldRepositoryConstant, string(result.Repository)),
		zap.String(logFieldDestinationConstant, result.Destination),
		zap.String(logFieldStatusConstant, string(result.Status)),
	}

	switch result.Status {
	case RepositoryStatusSucceeded:
		driver.logger.Info(repositoryMigratedMessageConstant, fields...)
	case RepositoryStatusPartial:
		failedBranches := make([]string, 0, len(result.Branches))
		for _, branchResult := range result.Branches {
			if branchResult.Status == BranchStatusFailed {
				failedBranches = append(failedBranches, string(branchResult.Branch))
			}
		}
		driver.logger.Warn(repositoryPartialMessageConstant, append(fields, zap.Strings(logFieldFailedBranchCountConstant, failedBranches))...)
	default:
		if len(result.Operation) > 0 {
			fields = append(fields, zap.String(logFieldOperationConstant, string(result.Operation)))
		}
		if result.Error != nil {
			fields = append(fields, zap.Error(result.Error))
		}
		driver.logger.Warn(repositoryFailedMessageConstant, fields...)
	}
}
