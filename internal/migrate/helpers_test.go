package migrate_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/temirov/repomigrate/internal/domain"
	"github.com/temirov/repomigrate/internal/githubapi"
	githubtest "github.com/temirov/repomigrate/internal/githubapi/testsupport"
	"github.com/temirov/repomigrate/internal/migrate"
	sourcetest "github.com/temirov/repomigrate/internal/migrate/testsupport"
	"github.com/temirov/repomigrate/internal/retry"
)

const (
	testLoginConstant           = "octo-migrator"
	testTokenConstant           = "ghp_migration_token"
	testRepositoryAlphaConstant = "alpha"
	testRepositoryBetaConstant  = "beta"
	testRepositoryGammaConstant = "gamma"
	testBranchMainConstant      = "main"
	testBranchDevConstant       = "dev"
	testAuthorNameConstant      = "A"
	testAuthorEmailConstant     = "a@x.com"
	testAuthorDateConstant      = "1700000000 +0000"
	testInitMessageConstant     = "init"
	testDevMessageConstant      = "dev work"
	testReadmePathConstant      = "README.md"
	testReadmeContentConstant   = "hello world\n"
	testScriptPathConstant      = "bin/run.sh"
	testScriptContentConstant   = "#!/bin/sh\necho run\n"
	testSubtestTemplateConstant = "%d_%s"
	testMaximumAttemptsConstant = 3
)

func newGitHubServer(testInstance *testing.T) *githubtest.Server {
	testInstance.Helper()
	server := githubtest.NewServer(testLoginConstant, testTokenConstant)
	testInstance.Cleanup(server.Close)
	return server
}

func newDestination(testInstance *testing.T, server *githubtest.Server) *githubapi.Client {
	testInstance.Helper()
	policy := retry.NewPolicy(zap.NewNop(), retry.Configuration{
		MaxAttempts:     testMaximumAttemptsConstant,
		InitialInterval: time.Millisecond,
		MaxInterval:     time.Millisecond,
	}, 0, githubapi.IsPermanentError)
	client, clientError := githubapi.NewClient(githubapi.ClientOptions{BaseURL: server.URL(), Token: testTokenConstant}, policy, zap.NewNop())
	require.NoError(testInstance, clientError)
	return client
}

func testTarget(repository string) domain.RepositoryTarget {
	return domain.RepositoryTarget{Owner: testLoginConstant, Name: domain.RepositoryName(repository)}
}

func fullName(repository string) string {
	return testTarget(repository).FullName()
}

// seedTwoBranchRepository stores main -> "init" and dev -> "dev work" on top of it.
func seedTwoBranchRepository(source *sourcetest.SourceStub, repository string) (domain.CommitID, domain.CommitID) {
	repositoryName := domain.RepositoryName(repository)
	mainCommitID := source.AddCommit(repositoryName, sourcetest.CommitFixture{
		Message:     testInitMessageConstant,
		AuthorName:  testAuthorNameConstant,
		AuthorEmail: testAuthorEmailConstant,
		AuthorDate:  testAuthorDateConstant,
		Files:       []sourcetest.SourceFileFixture{{Path: testReadmePathConstant, Content: testReadmeContentConstant}},
	})
	devCommitID := source.AddCommit(repositoryName, sourcetest.CommitFixture{
		Message:     testDevMessageConstant,
		AuthorName:  testAuthorNameConstant,
		AuthorEmail: testAuthorEmailConstant,
		AuthorDate:  testAuthorDateConstant,
		Parents:     []domain.CommitID{mainCommitID},
		Files: []sourcetest.SourceFileFixture{
			{Path: testReadmePathConstant, Content: testReadmeContentConstant},
			{Path: testScriptPathConstant, Content: testScriptContentConstant, Kind: domain.SourceFileKindExecutable},
		},
	})
	source.SetBranch(repositoryName, testBranchMainConstant, mainCommitID)
	source.SetBranch(repositoryName, testBranchDevConstant, devCommitID)
	return mainCommitID, devCommitID
}

func newReplicator(testInstance *testing.T, source domain.SourceProvider, destination domain.DestinationProvider, mode migrate.TreeTransferMode, options migrate.ReplicatorOptions) *migrate.Replicator {
	testInstance.Helper()
	transfer, transferError := migrate.NewContentTransfer(source, destination, mode, zap.NewNop())
	require.NoError(testInstance, transferError)
	planner, plannerError := migrate.NewHistoryPlanner(source)
	require.NoError(testInstance, plannerError)
	replicator, replicatorError := migrate.NewReplicator(destination, transfer, planner, options, zap.NewNop())
	require.NoError(testInstance, replicatorError)
	return replicator
}
