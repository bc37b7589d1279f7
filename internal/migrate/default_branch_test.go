package migrate_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/temirov/repomigrate/internal/domain"
	githubtest "github.com/temirov/repomigrate/internal/githubapi/testsupport"
	"github.com/temirov/repomigrate/internal/migrate"
	sourcetest "github.com/temirov/repomigrate/internal/migrate/testsupport"
)

const (
	alignMasterBranchConstant         = "master"
	alignTrunkBranchConstant          = "trunk"
	alignDevelopBranchConstant        = "develop"
	alignPlaceholderCaseConstant      = "placeholder_is_source_branch"
	alignNothingMigratedCaseConstant  = "no_branch_migrated"
	alignSourceDefaultCaseConstant    = "source_default_preferred"
	alignDefaultFailedCaseConstant    = "source_default_failed_falls_back"
	alignLookupFailedCaseConstant     = "source_default_unknown_falls_back"
	alignEmptyPlaceholderCaseConstant = "destination_reports_no_default"
)

func seedSingleBranchRepository(source *sourcetest.SourceStub, repository string, branch domain.BranchName) domain.CommitID {
	repositoryName := domain.RepositoryName(repository)
	commitID := source.AddCommit(repositoryName, sourcetest.CommitFixture{
		Message:     testInitMessageConstant,
		AuthorName:  testAuthorNameConstant,
		AuthorEmail: testAuthorEmailConstant,
		AuthorDate:  testAuthorDateConstant,
		Files:       []sourcetest.SourceFileFixture{{Path: testReadmePathConstant, Content: testReadmeContentConstant}},
	})
	source.SetBranch(repositoryName, branch, commitID)
	return commitID
}

func TestRunReplacesPlaceholderDefaultBranch(testInstance *testing.T) {
	server := newGitHubServer(testInstance)
	destination := newDestination(testInstance, server)

	source := sourcetest.NewSourceStub()
	seedSingleBranchRepository(source, testRepositoryAlphaConstant, alignMasterBranchConstant)

	driver := newTestDriver(testInstance, testSettings(testInstance, nil), source, destination, zap.NewNop())
	summary, runError := driver.Run(context.Background())
	require.NoError(testInstance, runError)

	alphaResult := summary.Repositories[0]
	require.Equal(testInstance, migrate.RepositoryStatusSucceeded, alphaResult.Status)
	require.Len(testInstance, alphaResult.Branches, 1)
	require.Equal(testInstance, domain.BranchName(alignMasterBranchConstant), alphaResult.Branches[0].Branch)

	alphaFullName := fullName(testRepositoryAlphaConstant)
	require.Equal(testInstance, alignMasterBranchConstant, server.DefaultBranch(alphaFullName))
	_, placeholderExists := server.BranchTarget(alphaFullName, testBranchMainConstant)
	require.False(testInstance, placeholderExists)
	masterSHA, masterExists := server.BranchTarget(alphaFullName, alignMasterBranchConstant)
	require.True(testInstance, masterExists)
	require.Equal(testInstance, alphaResult.Branches[0].CommitID, domain.CommitID(masterSHA))
	require.Equal(testInstance, 1, server.RequestCount(githubtest.RouteDeleteReference, alphaFullName))
}

func TestRunKeepsDefaultBranchPresentInSource(testInstance *testing.T) {
	server := newGitHubServer(testInstance)
	destination := newDestination(testInstance, server)

	source := sourcetest.NewSourceStub()
	seedTwoBranchRepository(source, testRepositoryAlphaConstant)

	driver := newTestDriver(testInstance, testSettings(testInstance, nil), source, destination, zap.NewNop())
	_, runError := driver.Run(context.Background())
	require.NoError(testInstance, runError)

	alphaFullName := fullName(testRepositoryAlphaConstant)
	require.Equal(testInstance, testBranchMainConstant, server.DefaultBranch(alphaFullName))
	require.Zero(testInstance, server.RequestCount(githubtest.RouteEditRepository, alphaFullName))
	require.Zero(testInstance, server.RequestCount(githubtest.RouteDeleteReference, alphaFullName))
	require.Zero(testInstance, source.CallCount(sourcetest.MethodGetDefaultBranch))
}

func TestRunReportsDefaultBranchFailureAsPartial(testInstance *testing.T) {
	server := newGitHubServer(testInstance)
	server.AddFailure(githubtest.FailureRule{Route: githubtest.RouteEditRepository, StatusCode: http.StatusInternalServerError})
	destination := newDestination(testInstance, server)

	source := sourcetest.NewSourceStub()
	seedSingleBranchRepository(source, testRepositoryAlphaConstant, alignMasterBranchConstant)

	driver := newTestDriver(testInstance, testSettings(testInstance, nil), source, destination, zap.NewNop())
	summary, runError := driver.Run(context.Background())
	require.NoError(testInstance, runError)

	alphaResult := summary.Repositories[0]
	require.Equal(testInstance, migrate.RepositoryStatusPartial, alphaResult.Status)
	require.Len(testInstance, alphaResult.Branches, 2)
	require.Equal(testInstance, migrate.BranchStatusSucceeded, alphaResult.Branches[0].Status)

	alignmentResult := alphaResult.Branches[1]
	require.Equal(testInstance, domain.BranchName(testBranchMainConstant), alignmentResult.Branch)
	require.Equal(testInstance, migrate.BranchStatusFailed, alignmentResult.Status)
	require.Equal(testInstance, migrate.OperationAlignDefaultBranch, alignmentResult.Operation)

	alphaFullName := fullName(testRepositoryAlphaConstant)
	require.Equal(testInstance, testMaximumAttemptsConstant, server.RequestCount(githubtest.RouteEditRepository, alphaFullName))
	require.Zero(testInstance, server.RequestCount(githubtest.RouteDeleteReference, alphaFullName))
	_, placeholderExists := server.BranchTarget(alphaFullName, testBranchMainConstant)
	require.True(testInstance, placeholderExists)
}

func TestDefaultBranchAlignerSelection(testInstance *testing.T) {
	succeeded := func(branches ...domain.BranchName) []migrate.BranchResult {
		results := make([]migrate.BranchResult, 0, len(branches))
		for _, branch := range branches {
			results = append(results, migrate.BranchResult{Branch: branch, Status: migrate.BranchStatusSucceeded})
		}
		return results
	}

	testCases := []struct {
		name                string
		placeholder         string
		sourceBranches      []domain.BranchName
		sourceDefault       domain.BranchName
		sourceDefaultError  error
		branches            []migrate.BranchResult
		expectedDefaults    []domain.BranchName
		expectedDeletions   []domain.BranchName
		expectedSourceCalls int
	}{
		{
			name:           alignPlaceholderCaseConstant,
			placeholder:    testBranchMainConstant,
			sourceBranches: []domain.BranchName{testBranchMainConstant, testBranchDevConstant},
			branches:       succeeded(testBranchDevConstant, testBranchMainConstant),
		},
		{
			name:           alignEmptyPlaceholderCaseConstant,
			sourceBranches: []domain.BranchName{alignMasterBranchConstant},
			branches:       succeeded(alignMasterBranchConstant),
		},
		{
			name:           alignNothingMigratedCaseConstant,
			placeholder:    testBranchMainConstant,
			sourceBranches: []domain.BranchName{alignMasterBranchConstant},
			branches:       []migrate.BranchResult{{Branch: alignMasterBranchConstant, Status: migrate.BranchStatusFailed}},
		},
		{
			name:                alignSourceDefaultCaseConstant,
			placeholder:         testBranchMainConstant,
			sourceBranches:      []domain.BranchName{alignDevelopBranchConstant, alignTrunkBranchConstant},
			sourceDefault:       alignTrunkBranchConstant,
			branches:            succeeded(alignDevelopBranchConstant, alignTrunkBranchConstant),
			expectedDefaults:    []domain.BranchName{alignTrunkBranchConstant},
			expectedDeletions:   []domain.BranchName{testBranchMainConstant},
			expectedSourceCalls: 1,
		},
		{
			name:           alignDefaultFailedCaseConstant,
			placeholder:    testBranchMainConstant,
			sourceBranches: []domain.BranchName{alignTrunkBranchConstant, alignDevelopBranchConstant},
			sourceDefault:  alignTrunkBranchConstant,
			branches: []migrate.BranchResult{
				{Branch: alignDevelopBranchConstant, Status: migrate.BranchStatusSucceeded},
				{Branch: alignTrunkBranchConstant, Status: migrate.BranchStatusFailed},
			},
			expectedDefaults:    []domain.BranchName{alignDevelopBranchConstant},
			expectedDeletions:   []domain.BranchName{testBranchMainConstant},
			expectedSourceCalls: 1,
		},
		{
			name:                alignLookupFailedCaseConstant,
			placeholder:         testBranchMainConstant,
			sourceBranches:      []domain.BranchName{alignTrunkBranchConstant, alignDevelopBranchConstant},
			sourceDefaultError:  errors.New("access denied"),
			branches:            succeeded(alignTrunkBranchConstant, alignDevelopBranchConstant),
			expectedDefaults:    []domain.BranchName{alignDevelopBranchConstant},
			expectedDeletions:   []domain.BranchName{testBranchMainConstant},
			expectedSourceCalls: 1,
		},
	}

	for testCaseIndex, testCase := range testCases {
		testInstance.Run(fmt.Sprintf(testSubtestTemplateConstant, testCaseIndex, testCase.name), func(subtest *testing.T) {
			source := sourcetest.NewSourceStub()
			commitMap := make(domain.CommitMap)
			for _, branch := range testCase.sourceBranches {
				commitID := seedSingleBranchRepository(source, testRepositoryAlphaConstant, branch)
				commitMap[branch] = domain.CommitRecord{ID: commitID}
			}
			if len(testCase.sourceDefault) > 0 {
				source.SetDefaultBranch(testRepositoryAlphaConstant, testCase.sourceDefault)
			}
			if testCase.sourceDefaultError != nil {
				source.FailDefaultBranch(testRepositoryAlphaConstant, testCase.sourceDefaultError)
			}

			destination := &destinationStub{}
			aligner, alignerError := migrate.NewDefaultBranchAligner(source, destination, zap.NewNop())
			require.NoError(subtest, alignerError)

			descriptor := domain.RepositoryDescriptor{Owner: testLoginConstant, Name: testRepositoryAlphaConstant, DefaultBranch: testCase.placeholder}
			require.NoError(subtest, aligner.Align(context.Background(), testRepositoryAlphaConstant, descriptor, commitMap, testCase.branches))

			require.Equal(subtest, testCase.expectedDefaults, destination.defaultBranches)
			require.Equal(subtest, testCase.expectedDeletions, destination.deletedBranches)
			require.Equal(subtest, testCase.expectedSourceCalls, source.CallCount(sourcetest.MethodGetDefaultBranch))
		})
	}
}

func TestDefaultBranchAlignerWrapsDestinationFailure(testInstance *testing.T) {
	source := sourcetest.NewSourceStub()
	commitID := seedSingleBranchRepository(source, testRepositoryAlphaConstant, alignMasterBranchConstant)

	editFailure := errors.New("edit rejected")
	destination := &destinationStub{defaultBranchError: editFailure}
	aligner, alignerError := migrate.NewDefaultBranchAligner(source, destination, nil)
	require.NoError(testInstance, alignerError)

	descriptor := domain.RepositoryDescriptor{Owner: testLoginConstant, Name: testRepositoryAlphaConstant, DefaultBranch: testBranchMainConstant}
	alignError := aligner.Align(
		context.Background(),
		testRepositoryAlphaConstant,
		descriptor,
		domain.CommitMap{alignMasterBranchConstant: {ID: commitID}},
		[]migrate.BranchResult{{Branch: alignMasterBranchConstant, Status: migrate.BranchStatusSucceeded}},
	)
	require.ErrorIs(testInstance, alignError, editFailure)
	var operationError migrate.OperationError
	require.ErrorAs(testInstance, alignError, &operationError)
	require.Equal(testInstance, migrate.OperationAlignDefaultBranch, operationError.Operation)
	require.Empty(testInstance, destination.deletedBranches)
}

func TestNewDefaultBranchAlignerRequiresProviders(testInstance *testing.T) {
	_, sourceError := migrate.NewDefaultBranchAligner(nil, &destinationStub{}, nil)
	require.ErrorIs(testInstance, sourceError, migrate.ErrSourceProviderNotConfigured)

	_, destinationError := migrate.NewDefaultBranchAligner(sourcetest.NewSourceStub(), nil, nil)
	require.ErrorIs(testInstance, destinationError, migrate.ErrDestinationProviderNotConfigured)
}
