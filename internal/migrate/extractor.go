package migrate

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/temirov/repomigrate/internal/domain"
)

const (
	branchLookupFailedMessageConstant = "Branch lookup failed"
	branchesExtractedMessageConstant  = "Branches extracted"
	missingAuthorMessageConstant      = "commit has no author"
	logFieldBranchCountConstant       = "branch_count"
)

// MissingAuthorError reports a commit that carries neither an author name nor an email.
type MissingAuthorError struct {
	CommitID string
}

// Error describes the missing author.
func (authorError MissingAuthorError) Error() string {
	return authorError.CommitID + ": " + missingAuthorMessageConstant
}

// Extractor builds the CommitMap of a source repository.
type Extractor struct {
	source domain.SourceProvider
	logger *zap.Logger
}

// NewExtractor constructs an Extractor.
func NewExtractor(source domain.SourceProvider, logger *zap.Logger) (*Extractor, error) {
	if source == nil {
		return nil, ErrSourceProviderNotConfigured
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{source: source, logger: logger}, nil
}

// Extract lists every branch of the repository and resolves each tip to its commit record.
// A listing failure returns no map. Branches whose lookup fails are left out of the returned
// map and reported together in an ExtractionError; the other branches are still returned.
func (extractor *Extractor) Extract(executionContext context.Context, repository domain.RepositoryName) (domain.CommitMap, error) {
	branchNames, listError := collectPages(executionContext, OperationListBranches, func(pageContext context.Context, pageToken string) ([]domain.BranchName, string, error) {
		page, pageError := extractor.source.ListBranchesPage(pageContext, repository, pageToken)
		return page.Names, page.NextPageToken, pageError
	})
	if listError != nil {
		return nil, listError
	}

	seenBranches := make(map[domain.BranchName]struct{}, len(branchNames))
	for _, branchName := range branchNames {
		if _, seen := seenBranches[branchName]; seen {
			return nil, OperationError{Operation: OperationListBranches, Cause: DuplicateBranchError{Branch: string(branchName)}}
		}
		seenBranches[branchName] = struct{}{}
	}

	commitMap := make(domain.CommitMap, len(branchNames))
	var lookupFailures []BranchLookupError

	for _, branchName := range branchNames {
		record, lookupError := extractor.resolveBranch(executionContext, repository, branchName)
		if lookupError != nil {
			if contextError := executionContext.Err(); contextError != nil {
				return nil, contextError
			}
			extractor.logger.Warn(
				branchLookupFailedMessageConstant,
				zap.String(logFieldRepositoryConstant, string(repository)),
				zap.String(logFieldBranchConstant, string(branchName)),
				zap.String(logFieldOperationConstant, string(lookupError.Operation)),
				zap.Error(lookupError.Cause),
			)
			lookupFailures = append(lookupFailures, *lookupError)
			continue
		}
		commitMap[branchName] = record
	}

	extractor.logger.Debug(
		branchesExtractedMessageConstant,
		zap.String(logFieldRepositoryConstant, string(repository)),
		zap.Int(logFieldBranchCountConstant, len(commitMap)),
	)

	if len(lookupFailures) > 0 {
		return commitMap, ExtractionError{Repository: string(repository), Failures: lookupFailures}
	}
	return commitMap, nil
}

func (extractor *Extractor) resolveBranch(executionContext context.Context, repository domain.RepositoryName, branchName domain.BranchName) (domain.CommitRecord, *BranchLookupError) {
	tipCommitID, tipError := extractor.source.ResolveBranchTip(executionContext, repository, branchName)
	if tipError != nil {
		return domain.CommitRecord{}, &BranchLookupError{Branch: string(branchName), Operation: OperationResolveBranch, Cause: tipError}
	}

	record, commitError := extractor.source.GetCommit(executionContext, repository, tipCommitID)
	if commitError != nil {
		return domain.CommitRecord{}, &BranchLookupError{Branch: string(branchName), Operation: OperationGetCommit, Cause: commitError}
	}

	if len(strings.TrimSpace(record.Author.Name)) == 0 && len(strings.TrimSpace(record.Author.Email)) == 0 {
		return domain.CommitRecord{}, &BranchLookupError{Branch: string(branchName), Operation: OperationGetCommit, Cause: MissingAuthorError{CommitID: string(tipCommitID)}}
	}

	return record, nil
}
