package migrate

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/temirov/repomigrate/internal/domain"
)

const (
	repositoriesListedMessageConstant    = "Source repositories listed"
	repositoryNotInSourceMessageConstant = "Requested repository not found in source"
	logFieldRepositoryCountConstant      = "repository_count"
	logFieldDuplicateCountConstant       = "duplicates_removed"
)

// ErrSourceProviderNotConfigured indicates a component was created without a source provider.
var ErrSourceProviderNotConfigured = errors.New("source provider not configured")

// Lister enumerates source repositories.
type Lister struct {
	source    domain.SourceProvider
	allowList map[domain.RepositoryName]struct{}
	logger    *zap.Logger
}

// NewLister constructs a Lister. A non-empty allow list restricts the result to the named repositories.
func NewLister(source domain.SourceProvider, allowList []domain.RepositoryName, logger *zap.Logger) (*Lister, error) {
	if source == nil {
		return nil, ErrSourceProviderNotConfigured
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	var allowed map[domain.RepositoryName]struct{}
	if len(allowList) > 0 {
		allowed = make(map[domain.RepositoryName]struct{}, len(allowList))
		for _, repositoryName := range allowList {
			allowed[repositoryName] = struct{}{}
		}
	}

	return &Lister{source: source, allowList: allowed, logger: logger}, nil
}

// ListRepositories returns every repository name exactly once, in first-seen order.
func (lister *Lister) ListRepositories(executionContext context.Context) ([]domain.RepositoryName, error) {
	listedNames, listError := collectPages(executionContext, OperationListRepositories, func(pageContext context.Context, pageToken string) ([]domain.RepositoryName, string, error) {
		page, pageError := lister.source.ListRepositoriesPage(pageContext, pageToken)
		return page.Names, page.NextPageToken, pageError
	})
	if listError != nil {
		return nil, listError
	}

	seenNames := make(map[domain.RepositoryName]struct{}, len(listedNames))
	repositoryNames := make([]domain.RepositoryName, 0, len(listedNames))
	for _, repositoryName := range listedNames {
		if _, seen := seenNames[repositoryName]; seen {
			continue
		}
		seenNames[repositoryName] = struct{}{}
		if lister.allowList != nil {
			if _, allowed := lister.allowList[repositoryName]; !allowed {
				continue
			}
		}
		repositoryNames = append(repositoryNames, repositoryName)
	}

	for allowedName := range lister.allowList {
		if _, seen := seenNames[allowedName]; !seen {
			lister.logger.Warn(repositoryNotInSourceMessageConstant, zap.String(logFieldRepositoryConstant, string(allowedName)))
		}
	}

	lister.logger.Info(
		repositoriesListedMessageConstant,
		zap.Int(logFieldRepositoryCountConstant, len(repositoryNames)),
		zap.Int(logFieldDuplicateCountConstant, len(listedNames)-len(seenNames)),
	)
	return repositoryNames, nil
}
