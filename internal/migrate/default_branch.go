package migrate

import (
	"context"

	"go.uber.org/zap"

	"github.com/temirov/repomigrate/internal/domain"
)

const (
	defaultBranchAlignedMessageConstant = "Destination default branch aligned with source"
	sourceDefaultUnknownMessageConstant = "Source default branch lookup failed; using the first migrated branch"
	logFieldPlaceholderConstant         = "placeholder_branch"
)

// DefaultBranchAligner moves the destination default branch off a placeholder branch the
// provider created on initialization when the source never had a branch of that name.
type DefaultBranchAligner struct {
	source      domain.SourceProvider
	destination domain.DestinationProvider
	logger      *zap.Logger
}

// NewDefaultBranchAligner constructs a DefaultBranchAligner.
func NewDefaultBranchAligner(source domain.SourceProvider, destination domain.DestinationProvider, logger *zap.Logger) (*DefaultBranchAligner, error) {
	if source == nil {
		return nil, ErrSourceProviderNotConfigured
	}
	if destination == nil {
		return nil, ErrDestinationProviderNotConfigured
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DefaultBranchAligner{source: source, destination: destination, logger: logger}, nil
}

// Align points the destination default branch at a migrated branch and deletes the placeholder.
// The source default branch is preferred when it migrated, otherwise the first migrated branch in
// name order. Nothing happens when the destination default is itself a source branch or when no
// branch migrated.
func (aligner *DefaultBranchAligner) Align(executionContext context.Context, repository domain.RepositoryName, descriptor domain.RepositoryDescriptor, commitMap domain.CommitMap, branches []BranchResult) error {
	placeholder := domain.BranchName(descriptor.DefaultBranch)
	if len(placeholder) == 0 {
		return nil
	}
	if _, sourceBranch := commitMap[placeholder]; sourceBranch {
		return nil
	}

	migrated := make(map[domain.BranchName]struct{}, len(branches))
	var firstMigrated domain.BranchName
	for _, branchResult := range branches {
		if branchResult.Status != BranchStatusSucceeded {
			continue
		}
		migrated[branchResult.Branch] = struct{}{}
		if len(firstMigrated) == 0 || branchResult.Branch < firstMigrated {
			firstMigrated = branchResult.Branch
		}
	}
	if len(firstMigrated) == 0 {
		return nil
	}

	selected := firstMigrated
	sourceDefault, lookupError := aligner.source.GetDefaultBranch(executionContext, repository)
	switch {
	case lookupError != nil:
		aligner.logger.Warn(sourceDefaultUnknownMessageConstant, zap.String(logFieldRepositoryConstant, string(repository)), zap.Error(lookupError))
	default:
		if _, sourceDefaultMigrated := migrated[sourceDefault]; sourceDefaultMigrated {
			selected = sourceDefault
		}
	}

	target := descriptor.Target()
	if defaultError := aligner.destination.SetDefaultBranch(executionContext, target, selected); defaultError != nil {
		return OperationError{Operation: OperationAlignDefaultBranch, Cause: defaultError}
	}
	if deleteError := aligner.destination.DeleteBranchReference(executionContext, target, placeholder); deleteError != nil {
		return OperationError{Operation: OperationAlignDefaultBranch, Cause: deleteError}
	}

	aligner.logger.Info(
		defaultBranchAlignedMessageConstant,
		zap.String(logFieldRepositoryConstant, string(repository)),
		zap.String(logFieldBranchConstant, string(selected)),
		zap.String(logFieldPlaceholderConstant, string(placeholder)),
	)
	return nil
}
