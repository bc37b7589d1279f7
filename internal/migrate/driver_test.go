package migrate_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/temirov/repomigrate/internal/domain"
	githubtest "github.com/temirov/repomigrate/internal/githubapi/testsupport"
	"github.com/temirov/repomigrate/internal/migrate"
	sourcetest "github.com/temirov/repomigrate/internal/migrate/testsupport"
	"github.com/temirov/repomigrate/internal/retry"
)

const (
	driverBrokenBranchConstant           = "broken"
	driverConcurrentWorkersConstant      = 3
	driverConcurrentRepositoriesConstant = 6
	driverConcurrentHoldConstant         = 20 * time.Millisecond
	driverRepositoryTimeoutConstant      = 50 * time.Millisecond
)

func testSettings(testInstance *testing.T, mutate func(configuration *migrate.Configuration)) migrate.Settings {
	testInstance.Helper()
	configuration := migrate.DefaultConfiguration()
	configuration.Retry = retry.Configuration{MaxAttempts: testMaximumAttemptsConstant, InitialInterval: time.Millisecond, MaxInterval: time.Millisecond}
	if mutate != nil {
		mutate(&configuration)
	}
	settings, validationError := configuration.Validate()
	require.NoError(testInstance, validationError)
	return settings
}

func newTestDriver(testInstance *testing.T, settings migrate.Settings, source domain.SourceProvider, destination domain.DestinationProvider, logger *zap.Logger) *migrate.Driver {
	testInstance.Helper()
	driver, driverError := migrate.NewDriverFromSettings(settings, source, destination, logger)
	require.NoError(testInstance, driverError)
	return driver
}

func resultsByRepository(summary migrate.RunSummary) map[domain.RepositoryName]migrate.RepositoryResult {
	results := make(map[domain.RepositoryName]migrate.RepositoryResult, len(summary.Repositories))
	for _, repositoryResult := range summary.Repositories {
		results[repositoryResult.Repository] = repositoryResult
	}
	return results
}

func TestRunSkipsReplicationWhenProvisioningFails(testInstance *testing.T) {
	server := newGitHubServer(testInstance)
	server.SeedRepository(testLoginConstant, testRepositoryAlphaConstant, true)
	destination := newDestination(testInstance, server)

	source := sourcetest.NewSourceStub()
	seedTwoBranchRepository(source, testRepositoryAlphaConstant)
	seedTwoBranchRepository(source, testRepositoryBetaConstant)

	driver := newTestDriver(testInstance, testSettings(testInstance, nil), source, destination, zap.NewNop())
	summary, runError := driver.Run(context.Background())
	require.NoError(testInstance, runError)
	require.True(testInstance, summary.HasFailures())

	results := resultsByRepository(summary)
	alphaResult := results[testRepositoryAlphaConstant]
	require.Equal(testInstance, migrate.RepositoryStatusFailed, alphaResult.Status)
	require.Equal(testInstance, migrate.OperationProvision, alphaResult.Operation)
	require.ErrorIs(testInstance, alphaResult.Error, domain.ErrAlreadyExists)
	var provisioningError migrate.ProvisioningError
	require.ErrorAs(testInstance, alphaResult.Error, &provisioningError)
	require.Empty(testInstance, alphaResult.Branches)

	alphaFullName := fullName(testRepositoryAlphaConstant)
	for _, route := range []string{githubtest.RouteCreateBlob, githubtest.RouteCreateTree, githubtest.RouteCreateCommit, githubtest.RouteGetReference, githubtest.RouteCreateReference, githubtest.RouteUpdateReference} {
		require.Zero(testInstance, server.RequestCount(route, alphaFullName), route)
	}
	require.Equal(testInstance, 2, server.RequestCount(githubtest.RouteCreateRepository, ""))

	betaResult := results[testRepositoryBetaConstant]
	require.Equal(testInstance, migrate.RepositoryStatusSucceeded, betaResult.Status)
	require.Equal(testInstance, fullName(testRepositoryBetaConstant), betaResult.Destination)
	require.Len(testInstance, betaResult.Branches, 2)
	require.True(testInstance, server.RepositoryPrivate(fullName(testRepositoryBetaConstant)))
}

func TestRunClassifiesPartialRepositories(testInstance *testing.T) {
	core, observedLogs := observer.New(zapcore.InfoLevel)
	server := newGitHubServer(testInstance)
	server.AddFailure(githubtest.FailureRule{Route: githubtest.RouteCreateCommit, BodyFragment: testDevMessageConstant, StatusCode: http.StatusInternalServerError})
	destination := newDestination(testInstance, server)

	source := sourcetest.NewSourceStub()
	seedTwoBranchRepository(source, testRepositoryAlphaConstant)

	driver := newTestDriver(testInstance, testSettings(testInstance, nil), source, destination, zap.New(core))
	summary, runError := driver.Run(context.Background())
	require.NoError(testInstance, runError)
	require.False(testInstance, summary.HasFailures())
	require.Len(testInstance, summary.Repositories, 1)

	alphaResult := summary.Repositories[0]
	require.Equal(testInstance, migrate.RepositoryStatusPartial, alphaResult.Status)
	require.Len(testInstance, alphaResult.Branches, 2)
	require.Equal(testInstance, migrate.BranchStatusFailed, alphaResult.Branches[0].Status)
	require.Equal(testInstance, domain.BranchName(testBranchDevConstant), alphaResult.Branches[0].Branch)
	require.Equal(testInstance, migrate.BranchStatusSucceeded, alphaResult.Branches[1].Status)

	partialLogs := observedLogs.FilterMessage("Repository partially migrated").All()
	require.Len(testInstance, partialLogs, 1)
	require.Equal(testInstance, string(migrate.RepositoryStatusPartial), partialLogs[0].ContextMap()["status"])
}

func TestRunRecordsBranchLookupFailures(testInstance *testing.T) {
	server := newGitHubServer(testInstance)
	destination := newDestination(testInstance, server)

	source := sourcetest.NewSourceStub()
	repository := domain.RepositoryName(testRepositoryAlphaConstant)
	mainCommitID, _ := seedTwoBranchRepository(source, testRepositoryAlphaConstant)
	source.SetBranch(repository, driverBrokenBranchConstant, mainCommitID)
	source.FailBranchTip(repository, driverBrokenBranchConstant, domain.ErrNotFound)

	driver := newTestDriver(testInstance, testSettings(testInstance, nil), source, destination, zap.NewNop())
	summary, runError := driver.Run(context.Background())
	require.NoError(testInstance, runError)

	alphaResult := summary.Repositories[0]
	require.Equal(testInstance, migrate.RepositoryStatusPartial, alphaResult.Status)
	require.Len(testInstance, alphaResult.Branches, 3)

	brokenResult := alphaResult.Branches[2]
	require.Equal(testInstance, domain.BranchName(driverBrokenBranchConstant), brokenResult.Branch)
	require.Equal(testInstance, migrate.BranchStatusFailed, brokenResult.Status)
	require.Equal(testInstance, migrate.OperationResolveBranch, brokenResult.Operation)
	require.ErrorIs(testInstance, brokenResult.Error, domain.ErrNotFound)

	_, brokenExists := server.BranchTarget(fullName(testRepositoryAlphaConstant), driverBrokenBranchConstant)
	require.False(testInstance, brokenExists)
}

func TestRunFailsRepositoryWhenBranchListingFails(testInstance *testing.T) {
	server := newGitHubServer(testInstance)
	destination := newDestination(testInstance, server)

	source := sourcetest.NewSourceStub()
	seedTwoBranchRepository(source, testRepositoryAlphaConstant)
	seedTwoBranchRepository(source, testRepositoryBetaConstant)
	source.FailBranchListing(testRepositoryAlphaConstant, errors.New("access denied"))

	driver := newTestDriver(testInstance, testSettings(testInstance, nil), source, destination, zap.NewNop())
	summary, runError := driver.Run(context.Background())
	require.NoError(testInstance, runError)

	results := resultsByRepository(summary)
	require.Equal(testInstance, migrate.RepositoryStatusFailed, results[testRepositoryAlphaConstant].Status)
	require.Equal(testInstance, migrate.OperationListBranches, results[testRepositoryAlphaConstant].Operation)
	require.False(testInstance, server.RepositoryExists(fullName(testRepositoryAlphaConstant)))
	require.Equal(testInstance, migrate.RepositoryStatusSucceeded, results[testRepositoryBetaConstant].Status)
}

func TestRunStopsWhenListingFails(testInstance *testing.T) {
	listingFailure := errors.New("codecommit unavailable")
	server := newGitHubServer(testInstance)
	destination := newDestination(testInstance, server)

	source := sourcetest.NewSourceStub()
	seedTwoBranchRepository(source, testRepositoryAlphaConstant)
	source.RepositoryListingError = listingFailure

	driver := newTestDriver(testInstance, testSettings(testInstance, nil), source, destination, zap.NewNop())
	summary, runError := driver.Run(context.Background())
	require.ErrorIs(testInstance, runError, listingFailure)
	require.Empty(testInstance, summary.Repositories)
	require.Zero(testInstance, source.CallCount(sourcetest.MethodListBranches))
	require.Empty(testInstance, server.Requests())
}

func TestRunTreatsEmptyRepositoriesAsSucceeded(testInstance *testing.T) {
	server := newGitHubServer(testInstance)
	destination := newDestination(testInstance, server)

	source := sourcetest.NewSourceStub()
	source.AddRepository(testRepositoryGammaConstant)

	driver := newTestDriver(testInstance, testSettings(testInstance, nil), source, destination, zap.NewNop())
	summary, runError := driver.Run(context.Background())
	require.NoError(testInstance, runError)
	require.Equal(testInstance, migrate.RepositoryStatusSucceeded, summary.Repositories[0].Status)
	require.True(testInstance, server.RepositoryExists(fullName(testRepositoryGammaConstant)))
}

func TestRunBoundsRepositoryConcurrency(testInstance *testing.T) {
	repositoryNames := make([]domain.RepositoryName, 0, driverConcurrentRepositoriesConstant)
	for repositoryIndex := 0; repositoryIndex < driverConcurrentRepositoriesConstant; repositoryIndex++ {
		repositoryNames = append(repositoryNames, domain.RepositoryName(string(rune('a'+repositoryIndex))))
	}

	extractor := &concurrencyTrackingExtractor{holdDuration: driverConcurrentHoldConstant}
	driver, driverError := migrate.NewDriver(migrate.DriverDependencies{
		Lister:      listerStub{names: repositoryNames},
		Extractor:   extractor,
		Provisioner: provisionerStub{},
		Replicator:  replicatorStub{},
	}, migrate.DriverOptions{RepositoryWorkers: driverConcurrentWorkersConstant})
	require.NoError(testInstance, driverError)

	summary, runError := driver.Run(context.Background())
	require.NoError(testInstance, runError)
	require.Len(testInstance, summary.Repositories, driverConcurrentRepositoriesConstant)
	require.Equal(testInstance, driverConcurrentRepositoriesConstant, summary.CountByStatus(migrate.RepositoryStatusSucceeded))
	require.LessOrEqual(testInstance, extractor.maximumActive.Load(), int64(driverConcurrentWorkersConstant))
	require.Greater(testInstance, extractor.maximumActive.Load(), int64(1))

	for repositoryIndex, repositoryResult := range summary.Repositories {
		require.Equal(testInstance, repositoryNames[repositoryIndex], repositoryResult.Repository)
	}
}

func TestRunStopsSchedulingAfterCancellation(testInstance *testing.T) {
	executionContext, cancel := context.WithCancel(context.Background())
	defer cancel()

	extractor := &cancellingExtractor{cancel: cancel}
	driver, driverError := migrate.NewDriver(migrate.DriverDependencies{
		Lister:      listerStub{names: []domain.RepositoryName{testRepositoryAlphaConstant, testRepositoryBetaConstant, testRepositoryGammaConstant}},
		Extractor:   extractor,
		Provisioner: provisionerStub{},
		Replicator:  replicatorStub{},
	}, migrate.DriverOptions{RepositoryWorkers: 1})
	require.NoError(testInstance, driverError)

	summary, runError := driver.Run(executionContext)
	require.ErrorIs(testInstance, runError, context.Canceled)
	require.Equal(testInstance, int64(1), extractor.calls.Load())
	require.Equal(testInstance, 2, summary.CountByStatus(migrate.RepositoryStatusSkipped))
}

func TestRunFailsRepositoryThatExceedsTimeout(testInstance *testing.T) {
	core, observedLogs := observer.New(zapcore.WarnLevel)
	extractor := &stallingExtractor{stalled: testRepositoryBetaConstant}
	driver, driverError := migrate.NewDriver(migrate.DriverDependencies{
		Lister:      listerStub{names: []domain.RepositoryName{testRepositoryAlphaConstant, testRepositoryBetaConstant, testRepositoryGammaConstant}},
		Extractor:   extractor,
		Provisioner: provisionerStub{},
		Replicator:  replicatorStub{},
		Logger:      zap.New(core),
	}, migrate.DriverOptions{RepositoryWorkers: 2, RepositoryTimeout: driverRepositoryTimeoutConstant})
	require.NoError(testInstance, driverError)

	summary, runError := driver.Run(context.Background())
	require.NoError(testInstance, runError)
	require.True(testInstance, summary.HasFailures())
	require.Equal(testInstance, 2, summary.CountByStatus(migrate.RepositoryStatusSucceeded))

	results := resultsByRepository(summary)
	betaResult := results[testRepositoryBetaConstant]
	require.Equal(testInstance, migrate.RepositoryStatusFailed, betaResult.Status)
	require.Equal(testInstance, migrate.OperationMigrateRepository, betaResult.Operation)
	require.ErrorIs(testInstance, betaResult.Error, context.DeadlineExceeded)
	require.Equal(testInstance, migrate.RepositoryStatusSucceeded, results[testRepositoryAlphaConstant].Status)
	require.Equal(testInstance, migrate.RepositoryStatusSucceeded, results[testRepositoryGammaConstant].Status)

	failureLogs := observedLogs.FilterMessage("Repository migration failed").All()
	require.Len(testInstance, failureLogs, 1)
	require.Equal(testInstance, string(migrate.OperationMigrateRepository), failureLogs[0].ContextMap()["operation"])
}

func TestRunAttributesProvisioningDeadlineToRepository(testInstance *testing.T) {
	driver, driverError := migrate.NewDriver(migrate.DriverDependencies{
		Lister:      listerStub{names: []domain.RepositoryName{testRepositoryAlphaConstant}},
		Extractor:   &cancellingExtractor{},
		Provisioner: stallingProvisioner{},
		Replicator:  replicatorStub{},
	}, migrate.DriverOptions{RepositoryTimeout: driverRepositoryTimeoutConstant})
	require.NoError(testInstance, driverError)

	summary, runError := driver.Run(context.Background())
	require.NoError(testInstance, runError)

	alphaResult := summary.Repositories[0]
	require.Equal(testInstance, migrate.RepositoryStatusFailed, alphaResult.Status)
	require.Equal(testInstance, migrate.OperationMigrateRepository, alphaResult.Operation)
	require.ErrorIs(testInstance, alphaResult.Error, context.DeadlineExceeded)
	var provisioningError migrate.ProvisioningError
	require.ErrorAs(testInstance, alphaResult.Error, &provisioningError)
}

func TestNewDriverValidatesDependencies(testInstance *testing.T) {
	testCases := []struct {
		name          string
		dependencies  migrate.DriverDependencies
		expectedError error
	}{
		{name: "missing_lister", dependencies: migrate.DriverDependencies{Extractor: &cancellingExtractor{}, Provisioner: provisionerStub{}, Replicator: replicatorStub{}}, expectedError: migrate.ErrListerNotConfigured},
		{name: "missing_extractor", dependencies: migrate.DriverDependencies{Lister: listerStub{}, Provisioner: provisionerStub{}, Replicator: replicatorStub{}}, expectedError: migrate.ErrExtractorNotConfigured},
		{name: "missing_provisioner", dependencies: migrate.DriverDependencies{Lister: listerStub{}, Extractor: &cancellingExtractor{}, Replicator: replicatorStub{}}, expectedError: migrate.ErrProvisionerNotConfigured},
		{name: "missing_replicator", dependencies: migrate.DriverDependencies{Lister: listerStub{}, Extractor: &cancellingExtractor{}, Provisioner: provisionerStub{}}, expectedError: migrate.ErrReplicatorNotConfigured},
	}

	for testCaseIndex, testCase := range testCases {
		testInstance.Run(fmt.Sprintf(testSubtestTemplateConstant, testCaseIndex, testCase.name), func(subtest *testing.T) {
			_, driverError := migrate.NewDriver(testCase.dependencies, migrate.DriverOptions{})
			require.ErrorIs(subtest, driverError, testCase.expectedError)
		})
	}
}

type listerStub struct {
	names []domain.RepositoryName
}

func (stub listerStub) ListRepositories(context.Context) ([]domain.RepositoryName, error) {
	return append([]domain.RepositoryName(nil), stub.names...), nil
}

type concurrencyTrackingExtractor struct {
	holdDuration  time.Duration
	active        atomic.Int64
	maximumActive atomic.Int64
	mutex         sync.Mutex
}

func (extractor *concurrencyTrackingExtractor) Extract(context.Context, domain.RepositoryName) (domain.CommitMap, error) {
	current := extractor.active.Add(1)
	extractor.mutex.Lock()
	if current > extractor.maximumActive.Load() {
		extractor.maximumActive.Store(current)
	}
	extractor.mutex.Unlock()
	time.Sleep(extractor.holdDuration)
	extractor.active.Add(-1)
	return domain.CommitMap{}, nil
}

type cancellingExtractor struct {
	cancel context.CancelFunc
	calls  atomic.Int64
}

func (extractor *cancellingExtractor) Extract(context.Context, domain.RepositoryName) (domain.CommitMap, error) {
	extractor.calls.Add(1)
	if extractor.cancel != nil {
		extractor.cancel()
	}
	return domain.CommitMap{}, nil
}

// stallingExtractor blocks the stalled repository until its context ends.
type stallingExtractor struct {
	stalled domain.RepositoryName
}

func (extractor *stallingExtractor) Extract(executionContext context.Context, repository domain.RepositoryName) (domain.CommitMap, error) {
	if repository != extractor.stalled {
		return domain.CommitMap{}, nil
	}
	<-executionContext.Done()
	return nil, executionContext.Err()
}

type stallingProvisioner struct{}

func (stallingProvisioner) Provision(executionContext context.Context, repository domain.RepositoryName) (domain.RepositoryDescriptor, error) {
	<-executionContext.Done()
	return domain.RepositoryDescriptor{}, migrate.ProvisioningError{Repository: string(repository), Cause: executionContext.Err()}
}

type provisionerStub struct{}

func (provisionerStub) Provision(_ context.Context, repository domain.RepositoryName) (domain.RepositoryDescriptor, error) {
	return domain.RepositoryDescriptor{Owner: testLoginConstant, Name: repository, FullName: fullName(string(repository))}, nil
}

type replicatorStub struct{}

func (replicatorStub) Replicate(context.Context, domain.RepositoryName, domain.RepositoryTarget, domain.CommitMap) migrate.ReplicationResult {
	return migrate.ReplicationResult{}
}
