package migrate

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/temirov/repomigrate/internal/domain"
)

const (
	ownerResolvedMessageConstant = "Destination owner resolved from credential"
	logFieldOwnerConstant        = "owner"
)

// ProvisionerOptions describes how destination repositories are created.
type ProvisionerOptions struct {
	Owner      string
	OwnerType  OwnerType
	Visibility domain.Visibility
	Initialize bool
}

// Provisioner creates destination repositories.
type Provisioner struct {
	destination domain.DestinationProvider
	options     ProvisionerOptions
	logger      *zap.Logger

	ownerMutex    sync.Mutex
	resolvedOwner string
}

// NewProvisioner constructs a Provisioner. A blank user owner is resolved from the credential on first use.
func NewProvisioner(destination domain.DestinationProvider, options ProvisionerOptions, logger *zap.Logger) (*Provisioner, error) {
	if destination == nil {
		return nil, ErrDestinationProviderNotConfigured
	}
	if options.OwnerType == OwnerTypeOrganization && len(options.Owner) == 0 {
		return nil, InvalidInputError{FieldName: ownerFieldNameConstant, Message: organizationOwnerRequiredConstant}
	}
	if len(options.OwnerType) == 0 {
		options.OwnerType = OwnerTypeUser
	}
	if len(options.Visibility) == 0 {
		options.Visibility = domain.VisibilityPrivate
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Provisioner{destination: destination, options: options, logger: logger, resolvedOwner: options.Owner}, nil
}

// Provision creates the destination repository named after the source repository. Any failure
// is returned as a ProvisioningError.
func (provisioner *Provisioner) Provision(executionContext context.Context, repository domain.RepositoryName) (domain.RepositoryDescriptor, error) {
	owner, ownerError := provisioner.owner(executionContext)
	if ownerError != nil {
		return domain.RepositoryDescriptor{}, ProvisioningError{Repository: string(repository), Cause: ownerError}
	}

	descriptor, createError := provisioner.destination.CreateRepository(executionContext, domain.RepositoryCreateRequest{
		Owner:               owner,
		OwnerIsOrganization: provisioner.options.OwnerType == OwnerTypeOrganization,
		Name:                repository,
		Visibility:          provisioner.options.Visibility,
		Initialize:          provisioner.options.Initialize,
	})
	if createError != nil {
		return domain.RepositoryDescriptor{}, ProvisioningError{Repository: string(repository), Cause: createError}
	}

	return descriptor, nil
}

func (provisioner *Provisioner) owner(executionContext context.Context) (string, error) {
	provisioner.ownerMutex.Lock()
	defer provisioner.ownerMutex.Unlock()

	if len(provisioner.resolvedOwner) > 0 {
		return provisioner.resolvedOwner, nil
	}

	owner, resolveError := provisioner.destination.ResolveOwner(executionContext)
	if resolveError != nil {
		return "", resolveError
	}

	provisioner.resolvedOwner = owner
	provisioner.logger.Info(ownerResolvedMessageConstant, zap.String(logFieldOwnerConstant, owner))
	return owner, nil
}
