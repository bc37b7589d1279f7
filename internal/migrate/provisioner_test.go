package migrate_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/temirov/repomigrate/internal/domain"
	"github.com/temirov/repomigrate/internal/migrate"
)

const (
	provisionerOrganizationConstant  = "acme"
	provisionerUserCaseConstant      = "user_owner_resolved_from_credential"
	provisionerOrgCaseConstant       = "organization_public"
	provisionerNamedUserCaseConstant = "named_user_owner"
)

func TestProvisionCreatesRepositories(testInstance *testing.T) {
	testCases := []struct {
		name            string
		options         migrate.ProvisionerOptions
		expectedOwner   string
		expectedPrivate bool
	}{
		{
			name:            provisionerUserCaseConstant,
			options:         migrate.ProvisionerOptions{OwnerType: migrate.OwnerTypeUser, Visibility: domain.VisibilityPrivate, Initialize: true},
			expectedOwner:   testLoginConstant,
			expectedPrivate: true,
		},
		{
			name:            provisionerOrgCaseConstant,
			options:         migrate.ProvisionerOptions{Owner: provisionerOrganizationConstant, OwnerType: migrate.OwnerTypeOrganization, Visibility: domain.VisibilityPublic, Initialize: true},
			expectedOwner:   provisionerOrganizationConstant,
			expectedPrivate: false,
		},
		{
			name:            provisionerNamedUserCaseConstant,
			options:         migrate.ProvisionerOptions{Owner: testLoginConstant, Initialize: true},
			expectedOwner:   testLoginConstant,
			expectedPrivate: true,
		},
	}

	for testCaseIndex, testCase := range testCases {
		testInstance.Run(fmt.Sprintf(testSubtestTemplateConstant, testCaseIndex, testCase.name), func(subtest *testing.T) {
			server := newGitHubServer(subtest)
			provisioner, provisionerError := migrate.NewProvisioner(newDestination(subtest, server), testCase.options, zap.NewNop())
			require.NoError(subtest, provisionerError)

			for _, repository := range []string{testRepositoryAlphaConstant, testRepositoryBetaConstant} {
				descriptor, provisionError := provisioner.Provision(context.Background(), domain.RepositoryName(repository))
				require.NoError(subtest, provisionError)
				require.Equal(subtest, testCase.expectedOwner, descriptor.Owner)
				require.Equal(subtest, domain.RepositoryName(repository), descriptor.Name)
				require.Equal(subtest, testCase.expectedPrivate, descriptor.Private)

				expectedFullName := testCase.expectedOwner + "/" + repository
				require.True(subtest, server.RepositoryExists(expectedFullName))
				_, initialized := server.BranchTarget(expectedFullName, testBranchMainConstant)
				require.True(subtest, initialized)
			}
		})
	}
}

func TestProvisionResolvesOwnerOnce(testInstance *testing.T) {
	destination := &destinationStub{owner: testLoginConstant}
	provisioner, provisionerError := migrate.NewProvisioner(destination, migrate.ProvisionerOptions{}, nil)
	require.NoError(testInstance, provisionerError)

	for _, repository := range []string{testRepositoryAlphaConstant, testRepositoryBetaConstant, testRepositoryGammaConstant} {
		_, provisionError := provisioner.Provision(context.Background(), domain.RepositoryName(repository))
		require.NoError(testInstance, provisionError)
	}

	require.Equal(testInstance, 1, destination.ownerCalls)
	require.Equal(testInstance, []string{testLoginConstant, testLoginConstant, testLoginConstant}, destination.createdOwners)
}

func TestProvisionWrapsFailures(testInstance *testing.T) {
	ownerFailure := errors.New("bad credentials")
	ownerDestination := &destinationStub{ownerError: ownerFailure}
	ownerProvisioner, ownerProvisionerError := migrate.NewProvisioner(ownerDestination, migrate.ProvisionerOptions{}, nil)
	require.NoError(testInstance, ownerProvisionerError)

	_, ownerError := ownerProvisioner.Provision(context.Background(), testRepositoryAlphaConstant)
	var provisioningError migrate.ProvisioningError
	require.ErrorAs(testInstance, ownerError, &provisioningError)
	require.ErrorIs(testInstance, ownerError, ownerFailure)
	require.Zero(testInstance, ownerDestination.createCalls)

	createDestination := &destinationStub{owner: testLoginConstant, createError: domain.ErrAlreadyExists}
	createProvisioner, createProvisionerError := migrate.NewProvisioner(createDestination, migrate.ProvisionerOptions{}, nil)
	require.NoError(testInstance, createProvisionerError)

	_, createError := createProvisioner.Provision(context.Background(), testRepositoryAlphaConstant)
	require.ErrorAs(testInstance, createError, &provisioningError)
	require.Equal(testInstance, testRepositoryAlphaConstant, provisioningError.Repository)
	require.ErrorIs(testInstance, createError, domain.ErrAlreadyExists)
}

func TestNewProvisionerValidatesOptions(testInstance *testing.T) {
	_, missingDestinationError := migrate.NewProvisioner(nil, migrate.ProvisionerOptions{}, nil)
	require.ErrorIs(testInstance, missingDestinationError, migrate.ErrDestinationProviderNotConfigured)

	_, missingOwnerError := migrate.NewProvisioner(&destinationStub{}, migrate.ProvisionerOptions{OwnerType: migrate.OwnerTypeOrganization}, nil)
	var inputError migrate.InvalidInputError
	require.ErrorAs(testInstance, missingOwnerError, &inputError)
}
