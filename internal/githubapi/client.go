package githubapi

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/go-github/v32/github"
	"go.uber.org/zap"

	"github.com/temirov/repomigrate/internal/domain"
	"github.com/temirov/repomigrate/internal/retry"
)

const (
	blobEncodingBase64Constant       = "base64"
	baseURLTrailingSlashConstant     = "/"
	baseURLFieldNameConstant         = "base_url"
	tokenFieldNameConstant           = "token"
	ownerFieldNameConstant           = "owner"
	treeEntriesFieldNameConstant     = "tree_entries"
	baseURLInvalidTemplateConstant   = "invalid url %q: %v"
	tokenMissingMessageConstant      = "destination token must be provided"
	ownerUnresolvedMessageConstant   = "authenticated user has no login"
	treeEntriesEmptyMessageConstant  = "at least one entry is required"
	responseMissingTemplateConstant  = "github %s returned an empty payload"
	authorDateIgnoredMessageConstant = "Author date could not be parsed; GitHub will assign the commit time"
	referenceCreatedMessageConstant  = "Created branch reference"
	referenceUpdatedMessageConstant  = "Moved branch reference"
	repositoryCreatedMessageConstant = "Created destination repository"
	defaultBranchSetMessageConstant  = "Changed default branch"
	referenceDeletedMessageConstant  = "Deleted branch reference"
	branchFieldNameConstant          = "branch"
	branchEmptyMessageConstant       = "branch name must be provided"
	logFieldRepositoryConstant       = "repository"
	logFieldBranchConstant           = "branch"
	logFieldCommitConstant           = "commit_id"
	logFieldAuthorDateConstant       = "author_date"
	forceReferenceUpdateConstant     = true
	nonRecursiveTreeLookupConstant   = false
	noBaseTreeConstant               = ""
	authenticatedUserLookupConstant  = ""
)

// ClientOptions configures the GitHub client.
type ClientOptions struct {
	BaseURL   string
	Token     string
	Transport http.RoundTripper
}

// Client implements domain.DestinationProvider on top of the GitHub REST API.
type Client struct {
	client *github.Client
	policy *retry.Policy
	logger *zap.Logger
}

// NewClient constructs an authenticated Client. A nil policy performs single attempts.
func NewClient(options ClientOptions, policy *retry.Policy, logger *zap.Logger) (*Client, error) {
	token := strings.TrimSpace(options.Token)
	if len(token) == 0 {
		return nil, InvalidInputError{FieldName: tokenFieldNameConstant, Message: tokenMissingMessageConstant}
	}

	githubClient := github.NewClient(newAuthorizedHTTPClient(token, options.Transport))

	trimmedBaseURL := strings.TrimSpace(options.BaseURL)
	if len(trimmedBaseURL) > 0 {
		if !strings.HasSuffix(trimmedBaseURL, baseURLTrailingSlashConstant) {
			trimmedBaseURL += baseURLTrailingSlashConstant
		}
		parsedBaseURL, parseError := url.Parse(trimmedBaseURL)
		if parseError != nil {
			return nil, InvalidInputError{FieldName: baseURLFieldNameConstant, Message: fmt.Sprintf(baseURLInvalidTemplateConstant, options.BaseURL, parseError)}
		}
		githubClient.BaseURL = parsedBaseURL
	}

	if logger == nil {
		logger = zap.NewNop()
	}
	if policy == nil {
		policy = retry.NewPolicy(logger, retry.Configuration{MaxAttempts: 1}, 0, IsPermanentError)
	}

	return &Client{client: githubClient, policy: policy, logger: logger}, nil
}

// ResolveOwner returns the login of the authenticated user.
func (client *Client) ResolveOwner(executionContext context.Context) (string, error) {
	var user *github.User
	callError := client.call(executionContext, OperationResolveOwner, func(callContext context.Context) (*github.Response, error) {
		var response *github.Response
		var apiError error
		user, response, apiError = client.client.Users.Get(callContext, authenticatedUserLookupConstant)
		return response, apiError
	})
	if callError != nil {
		return "", callError
	}

	if len(user.GetLogin()) == 0 {
		return "", InvalidInputError{FieldName: ownerFieldNameConstant, Message: ownerUnresolvedMessageConstant}
	}

	return user.GetLogin(), nil
}

// CreateRepository provisions a repository under a user or organization.
func (client *Client) CreateRepository(executionContext context.Context, request domain.RepositoryCreateRequest) (domain.RepositoryDescriptor, error) {
	organization := ""
	if request.OwnerIsOrganization {
		organization = request.Owner
	}

	repositoryPayload := &github.Repository{
		Name:     github.String(string(request.Name)),
		Private:  github.Bool(request.Visibility.IsPrivate()),
		AutoInit: github.Bool(request.Initialize),
	}

	var repository *github.Repository
	callError := client.call(executionContext, OperationCreateRepository, func(callContext context.Context) (*github.Response, error) {
		var response *github.Response
		var apiError error
		repository, response, apiError = client.client.Repositories.Create(callContext, organization, repositoryPayload)
		return response, apiError
	})
	if callError != nil {
		return domain.RepositoryDescriptor{}, callError
	}
	if repository == nil {
		return domain.RepositoryDescriptor{}, fmt.Errorf(responseMissingTemplateConstant, OperationCreateRepository)
	}

	descriptor := domain.RepositoryDescriptor{
		Owner:         repository.GetOwner().GetLogin(),
		Name:          domain.RepositoryName(repository.GetName()),
		FullName:      repository.GetFullName(),
		HTMLURL:       repository.GetHTMLURL(),
		DefaultBranch: repository.GetDefaultBranch(),
		Private:       repository.GetPrivate(),
	}
	if len(descriptor.Owner) == 0 {
		descriptor.Owner = request.Owner
	}
	if len(descriptor.Name) == 0 {
		descriptor.Name = request.Name
	}
	if len(descriptor.FullName) == 0 {
		descriptor.FullName = descriptor.Target().FullName()
	}

	client.logger.Info(repositoryCreatedMessageConstant, zap.String(logFieldRepositoryConstant, descriptor.FullName))
	return descriptor, nil
}

// CreateBlob uploads content and returns the blob SHA minted by GitHub.
func (client *Client) CreateBlob(executionContext context.Context, target domain.RepositoryTarget, content []byte) (string, error) {
	blobPayload := &github.Blob{
		Content:  github.String(base64.StdEncoding.EncodeToString(content)),
		Encoding: github.String(blobEncodingBase64Constant),
	}

	var blob *github.Blob
	callError := client.call(executionContext, OperationCreateBlob, func(callContext context.Context) (*github.Response, error) {
		var response *github.Response
		var apiError error
		blob, response, apiError = client.client.Git.CreateBlob(callContext, target.Owner, string(target.Name), blobPayload)
		return response, apiError
	})
	if callError != nil {
		return "", callError
	}

	return blob.GetSHA(), nil
}

// CreateTree creates a tree from explicit entries without a base tree.
func (client *Client) CreateTree(executionContext context.Context, target domain.RepositoryTarget, entries []domain.TreeEntry) (domain.TreeID, error) {
	if len(entries) == 0 {
		return "", InvalidInputError{FieldName: treeEntriesFieldNameConstant, Message: treeEntriesEmptyMessageConstant}
	}

	treeEntries := make([]*github.TreeEntry, 0, len(entries))
	for _, entry := range entries {
		treeEntries = append(treeEntries, &github.TreeEntry{
			Path: github.String(entry.Path),
			Mode: github.String(string(entry.Mode)),
			Type: github.String(string(entry.Type)),
			SHA:  github.String(entry.SHA),
		})
	}

	var tree *github.Tree
	callError := client.call(executionContext, OperationCreateTree, func(callContext context.Context) (*github.Response, error) {
		var response *github.Response
		var apiError error
		tree, response, apiError = client.client.Git.CreateTree(callContext, target.Owner, string(target.Name), noBaseTreeConstant, treeEntries)
		return response, apiError
	})
	if callError != nil {
		return "", callError
	}

	return domain.TreeID(tree.GetSHA()), nil
}

// TreeExists reports whether the destination already stores the tree.
func (client *Client) TreeExists(executionContext context.Context, target domain.RepositoryTarget, treeID domain.TreeID) (bool, error) {
	callError := client.call(executionContext, OperationGetTree, func(callContext context.Context) (*github.Response, error) {
		_, response, apiError := client.client.Git.GetTree(callContext, target.Owner, string(target.Name), string(treeID), nonRecursiveTreeLookupConstant)
		return response, apiError
	})
	if callError == nil {
		return true, nil
	}

	var apiError APIError
	if errors.Is(callError, domain.ErrNotFound) || (errors.As(callError, &apiError) && apiError.StatusCode == http.StatusUnprocessableEntity) {
		return false, nil
	}

	return false, callError
}

// CreateCommit creates a commit object pointing at an existing tree.
func (client *Client) CreateCommit(executionContext context.Context, target domain.RepositoryTarget, request domain.CommitCreateRequest) (domain.CommitID, error) {
	commitAuthor := &github.CommitAuthor{
		Name:  github.String(request.Author.Name),
		Email: github.String(request.Author.Email),
	}
	if request.PreserveAuthorDate && len(request.Author.Date) > 0 {
		authorDate, parseError := ParseAuthorDate(request.Author.Date)
		if parseError != nil {
			client.logger.Warn(
				authorDateIgnoredMessageConstant,
				zap.String(logFieldRepositoryConstant, target.FullName()),
				zap.String(logFieldAuthorDateConstant, request.Author.Date),
				zap.Error(parseError),
			)
		} else {
			commitAuthor.Date = &authorDate
		}
	}

	parents := make([]*github.Commit, 0, len(request.ParentIDs))
	for _, parentID := range request.ParentIDs {
		parents = append(parents, &github.Commit{SHA: github.String(string(parentID))})
	}

	commitPayload := &github.Commit{
		Message: github.String(request.Message),
		Author:  commitAuthor,
		Tree:    &github.Tree{SHA: github.String(string(request.TreeID))},
		Parents: parents,
	}

	var commit *github.Commit
	callError := client.call(executionContext, OperationCreateCommit, func(callContext context.Context) (*github.Response, error) {
		var response *github.Response
		var apiError error
		commit, response, apiError = client.client.Git.CreateCommit(callContext, target.Owner, string(target.Name), commitPayload)
		return response, apiError
	})
	if callError != nil {
		return "", callError
	}

	return domain.CommitID(commit.GetSHA()), nil
}

// SetBranchReference points refs/heads/<branch> at commitID, creating the reference when absent
// and forcing the update otherwise.
func (client *Client) SetBranchReference(executionContext context.Context, target domain.RepositoryTarget, branch domain.BranchName, commitID domain.CommitID) error {
	referenceName := branch.ReferenceName()
	reference := &github.Reference{
		Ref:    github.String(referenceName),
		Object: &github.GitObject{SHA: github.String(string(commitID))},
	}

	lookupError := client.call(executionContext, OperationGetReference, func(callContext context.Context) (*github.Response, error) {
		_, response, apiError := client.client.Git.GetRef(callContext, target.Owner, string(target.Name), referenceName)
		return response, apiError
	})

	switch {
	case lookupError == nil:
		updateError := client.call(executionContext, OperationUpdateReference, func(callContext context.Context) (*github.Response, error) {
			_, response, apiError := client.client.Git.UpdateRef(callContext, target.Owner, string(target.Name), reference, forceReferenceUpdateConstant)
			return response, apiError
		})
		if updateError != nil {
			return updateError
		}
		client.logger.Debug(referenceUpdatedMessageConstant, zap.String(logFieldRepositoryConstant, target.FullName()), zap.String(logFieldBranchConstant, string(branch)), zap.String(logFieldCommitConstant, string(commitID)))
		return nil
	case errors.Is(lookupError, domain.ErrNotFound):
		createError := client.call(executionContext, OperationCreateReference, func(callContext context.Context) (*github.Response, error) {
			_, response, apiError := client.client.Git.CreateRef(callContext, target.Owner, string(target.Name), reference)
			return response, apiError
		})
		if createError != nil {
			return createError
		}
		client.logger.Debug(referenceCreatedMessageConstant, zap.String(logFieldRepositoryConstant, target.FullName()), zap.String(logFieldBranchConstant, string(branch)), zap.String(logFieldCommitConstant, string(commitID)))
		return nil
	default:
		return lookupError
	}
}

// SetDefaultBranch makes branch the repository default. The branch must already exist.
func (client *Client) SetDefaultBranch(executionContext context.Context, target domain.RepositoryTarget, branch domain.BranchName) error {
	if len(branch) == 0 {
		return InvalidInputError{FieldName: branchFieldNameConstant, Message: branchEmptyMessageConstant}
	}

	repositoryPayload := &github.Repository{DefaultBranch: github.String(string(branch))}
	callError := client.call(executionContext, OperationEditRepository, func(callContext context.Context) (*github.Response, error) {
		_, response, apiError := client.client.Repositories.Edit(callContext, target.Owner, string(target.Name), repositoryPayload)
		return response, apiError
	})
	if callError != nil {
		return callError
	}

	client.logger.Info(defaultBranchSetMessageConstant, zap.String(logFieldRepositoryConstant, target.FullName()), zap.String(logFieldBranchConstant, string(branch)))
	return nil
}

// DeleteBranchReference removes refs/heads/<branch>. A reference that is already gone is not an error.
func (client *Client) DeleteBranchReference(executionContext context.Context, target domain.RepositoryTarget, branch domain.BranchName) error {
	if len(branch) == 0 {
		return InvalidInputError{FieldName: branchFieldNameConstant, Message: branchEmptyMessageConstant}
	}

	callError := client.call(executionContext, OperationDeleteReference, func(callContext context.Context) (*github.Response, error) {
		return client.client.Git.DeleteRef(callContext, target.Owner, string(target.Name), branch.ReferenceName())
	})
	if callError != nil && !errors.Is(callError, domain.ErrNotFound) {
		return callError
	}

	client.logger.Debug(referenceDeletedMessageConstant, zap.String(logFieldRepositoryConstant, target.FullName()), zap.String(logFieldBranchConstant, string(branch)))
	return nil
}

func (client *Client) call(executionContext context.Context, operation OperationName, action func(callContext context.Context) (*github.Response, error)) error {
	return client.policy.Do(executionContext, string(operation), func(callContext context.Context) error {
		response, apiError := action(callContext)
		return wrapAPIError(operation, response, apiError)
	})
}
