package codecommit

import (
	"context"
	"errors"
	"fmt"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/codecommit"
	"github.com/aws/aws-sdk-go-v2/service/codecommit/types"
	"go.uber.org/zap"

	"github.com/temirov/repomigrate/internal/domain"
	"github.com/temirov/repomigrate/internal/retry"
)

const (
	rootFolderPathConstant           = "/"
	awsConfigurationTemplateConstant = "unable to load AWS configuration: %w"
	branchWithoutTipTemplateConstant = "branch %s has no tip commit: %w"
	commitMissingTemplateConstant    = "commit %s returned no data: %w"
	pageFetchedMessageConstant       = "Fetched CodeCommit page"
	logFieldOperationConstant        = "operation"
	logFieldRepositoryConstant       = "repository"
	logFieldItemCountConstant        = "items"
)

// ErrAPIClientNotConfigured indicates the client was created without an API implementation.
var ErrAPIClientNotConfigured = errors.New("codecommit api client not configured")

// API is the subset of the AWS CodeCommit client used by the adapter.
type API interface {
	ListRepositories(executionContext context.Context, input *codecommit.ListRepositoriesInput, optionFunctions ...func(*codecommit.Options)) (*codecommit.ListRepositoriesOutput, error)
	ListBranches(executionContext context.Context, input *codecommit.ListBranchesInput, optionFunctions ...func(*codecommit.Options)) (*codecommit.ListBranchesOutput, error)
	GetBranch(executionContext context.Context, input *codecommit.GetBranchInput, optionFunctions ...func(*codecommit.Options)) (*codecommit.GetBranchOutput, error)
	GetCommit(executionContext context.Context, input *codecommit.GetCommitInput, optionFunctions ...func(*codecommit.Options)) (*codecommit.GetCommitOutput, error)
	GetFolder(executionContext context.Context, input *codecommit.GetFolderInput, optionFunctions ...func(*codecommit.Options)) (*codecommit.GetFolderOutput, error)
	GetBlob(executionContext context.Context, input *codecommit.GetBlobInput, optionFunctions ...func(*codecommit.Options)) (*codecommit.GetBlobOutput, error)
	GetRepository(executionContext context.Context, input *codecommit.GetRepositoryInput, optionFunctions ...func(*codecommit.Options)) (*codecommit.GetRepositoryOutput, error)
}

// NewAPI builds an SDK client from the default AWS credential chain.
func NewAPI(executionContext context.Context, region string) (API, error) {
	loadOptions := make([]func(*awsconfig.LoadOptions) error, 0, 1)
	if len(region) > 0 {
		loadOptions = append(loadOptions, awsconfig.WithRegion(region))
	}

	awsConfiguration, loadError := awsconfig.LoadDefaultConfig(executionContext, loadOptions...)
	if loadError != nil {
		return nil, fmt.Errorf(awsConfigurationTemplateConstant, loadError)
	}

	return codecommit.NewFromConfig(awsConfiguration), nil
}

// Client implements domain.SourceProvider on top of CodeCommit.
type Client struct {
	api    API
	policy *retry.Policy
	logger *zap.Logger
}

// NewClient constructs a Client. A nil policy performs single attempts.
func NewClient(api API, policy *retry.Policy, logger *zap.Logger) (*Client, error) {
	if api == nil {
		return nil, ErrAPIClientNotConfigured
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if policy == nil {
		policy = retry.NewPolicy(logger, retry.Configuration{MaxAttempts: 1}, 0, IsPermanentError)
	}
	return &Client{api: api, policy: policy, logger: logger}, nil
}

// ListRepositoriesPage returns one page of repository names.
func (client *Client) ListRepositoriesPage(executionContext context.Context, pageToken string) (domain.RepositoryPage, error) {
	var output *codecommit.ListRepositoriesOutput
	callError := client.call(executionContext, OperationListRepositories, func(callContext context.Context) error {
		var apiError error
		output, apiError = client.api.ListRepositories(callContext, &codecommit.ListRepositoriesInput{NextToken: optionalString(pageToken)})
		return apiError
	})
	if callError != nil {
		return domain.RepositoryPage{}, callError
	}

	page := domain.RepositoryPage{NextPageToken: aws.ToString(output.NextToken)}
	for _, repository := range output.Repositories {
		page.Names = append(page.Names, domain.RepositoryName(aws.ToString(repository.RepositoryName)))
	}

	client.logger.Debug(pageFetchedMessageConstant, zap.String(logFieldOperationConstant, string(OperationListRepositories)), zap.Int(logFieldItemCountConstant, len(page.Names)))
	return page, nil
}

// ListBranchesPage returns one page of branch names.
func (client *Client) ListBranchesPage(executionContext context.Context, repository domain.RepositoryName, pageToken string) (domain.BranchPage, error) {
	var output *codecommit.ListBranchesOutput
	callError := client.call(executionContext, OperationListBranches, func(callContext context.Context) error {
		var apiError error
		output, apiError = client.api.ListBranches(callContext, &codecommit.ListBranchesInput{
			RepositoryName: aws.String(string(repository)),
			NextToken:      optionalString(pageToken),
		})
		return apiError
	})
	if callError != nil {
		return domain.BranchPage{}, callError
	}

	page := domain.BranchPage{NextPageToken: aws.ToString(output.NextToken)}
	for _, branchName := range output.Branches {
		page.Names = append(page.Names, domain.BranchName(branchName))
	}

	client.logger.Debug(
		pageFetchedMessageConstant,
		zap.String(logFieldOperationConstant, string(OperationListBranches)),
		zap.String(logFieldRepositoryConstant, string(repository)),
		zap.Int(logFieldItemCountConstant, len(page.Names)),
	)
	return page, nil
}

// ResolveBranchTip returns the commit referenced by the branch.
func (client *Client) ResolveBranchTip(executionContext context.Context, repository domain.RepositoryName, branch domain.BranchName) (domain.CommitID, error) {
	var output *codecommit.GetBranchOutput
	callError := client.call(executionContext, OperationGetBranch, func(callContext context.Context) error {
		var apiError error
		output, apiError = client.api.GetBranch(callContext, &codecommit.GetBranchInput{
			RepositoryName: aws.String(string(repository)),
			BranchName:     aws.String(string(branch)),
		})
		return apiError
	})
	if callError != nil {
		return "", callError
	}

	if output.Branch == nil || len(aws.ToString(output.Branch.CommitId)) == 0 {
		return "", fmt.Errorf(branchWithoutTipTemplateConstant, branch, domain.ErrNotFound)
	}

	return domain.CommitID(aws.ToString(output.Branch.CommitId)), nil
}

// GetCommit fetches commit metadata.
func (client *Client) GetCommit(executionContext context.Context, repository domain.RepositoryName, commitID domain.CommitID) (domain.CommitRecord, error) {
	var output *codecommit.GetCommitOutput
	callError := client.call(executionContext, OperationGetCommit, func(callContext context.Context) error {
		var apiError error
		output, apiError = client.api.GetCommit(callContext, &codecommit.GetCommitInput{
			RepositoryName: aws.String(string(repository)),
			CommitId:       aws.String(string(commitID)),
		})
		return apiError
	})
	if callError != nil {
		return domain.CommitRecord{}, callError
	}

	if output.Commit == nil {
		return domain.CommitRecord{}, fmt.Errorf(commitMissingTemplateConstant, commitID, domain.ErrNotFound)
	}

	return convertCommit(commitID, output.Commit), nil
}

// ReadFolder lists a single folder of the tree at commitID.
func (client *Client) ReadFolder(executionContext context.Context, repository domain.RepositoryName, commitID domain.CommitID, folderPath string) (domain.SourceFolder, error) {
	if len(folderPath) == 0 {
		folderPath = rootFolderPathConstant
	}

	var output *codecommit.GetFolderOutput
	callError := client.call(executionContext, OperationGetFolder, func(callContext context.Context) error {
		var apiError error
		output, apiError = client.api.GetFolder(callContext, &codecommit.GetFolderInput{
			RepositoryName:  aws.String(string(repository)),
			CommitSpecifier: aws.String(string(commitID)),
			FolderPath:      aws.String(folderPath),
		})
		return apiError
	})
	if callError != nil {
		return domain.SourceFolder{}, callError
	}

	return convertFolder(output), nil
}

// ReadBlob downloads blob content.
func (client *Client) ReadBlob(executionContext context.Context, repository domain.RepositoryName, blobID domain.BlobID) ([]byte, error) {
	var output *codecommit.GetBlobOutput
	callError := client.call(executionContext, OperationGetBlob, func(callContext context.Context) error {
		var apiError error
		output, apiError = client.api.GetBlob(callContext, &codecommit.GetBlobInput{
			RepositoryName: aws.String(string(repository)),
			BlobId:         aws.String(string(blobID)),
		})
		return apiError
	})
	if callError != nil {
		return nil, callError
	}

	return output.Content, nil
}

// GetDefaultBranch returns the repository default branch. Repositories without branches report an empty name.
func (client *Client) GetDefaultBranch(executionContext context.Context, repository domain.RepositoryName) (domain.BranchName, error) {
	var output *codecommit.GetRepositoryOutput
	callError := client.call(executionContext, OperationGetRepository, func(callContext context.Context) error {
		var apiError error
		output, apiError = client.api.GetRepository(callContext, &codecommit.GetRepositoryInput{
			RepositoryName: aws.String(string(repository)),
		})
		return apiError
	})
	if callError != nil {
		return "", callError
	}

	if output.RepositoryMetadata == nil {
		return "", nil
	}
	return domain.BranchName(aws.ToString(output.RepositoryMetadata.DefaultBranch)), nil
}

func (client *Client) call(executionContext context.Context, operation OperationName, action func(callContext context.Context) error) error {
	return client.policy.Do(executionContext, string(operation), func(callContext context.Context) error {
		return wrapAPIError(operation, action(callContext))
	})
}

func convertCommit(requestedCommitID domain.CommitID, commit *types.Commit) domain.CommitRecord {
	record := domain.CommitRecord{
		ID:      domain.CommitID(aws.ToString(commit.CommitId)),
		Message: aws.ToString(commit.Message),
		TreeID:  domain.TreeID(aws.ToString(commit.TreeId)),
	}
	if len(record.ID) == 0 {
		record.ID = requestedCommitID
	}
	if commit.Author != nil {
		record.Author = domain.Author{
			Name:  aws.ToString(commit.Author.Name),
			Email: aws.ToString(commit.Author.Email),
			Date:  aws.ToString(commit.Author.Date),
		}
	}
	for _, parentID := range commit.Parents {
		record.ParentIDs = append(record.ParentIDs, domain.CommitID(parentID))
	}
	return record
}

func convertFolder(output *codecommit.GetFolderOutput) domain.SourceFolder {
	folder := domain.SourceFolder{TreeID: domain.TreeID(aws.ToString(output.TreeId))}
	seenFileNames := make(map[string]struct{})

	for _, file := range output.Files {
		fileName := entryName(file.RelativePath, file.AbsolutePath)
		seenFileNames[fileName] = struct{}{}
		folder.Files = append(folder.Files, domain.SourceFile{
			Name:   fileName,
			BlobID: domain.BlobID(aws.ToString(file.BlobId)),
			Kind:   fileKind(file.FileMode),
		})
	}

	for _, symbolicLink := range output.SymbolicLinks {
		linkName := entryName(symbolicLink.RelativePath, symbolicLink.AbsolutePath)
		if _, seen := seenFileNames[linkName]; seen {
			continue
		}
		folder.Files = append(folder.Files, domain.SourceFile{
			Name:   linkName,
			BlobID: domain.BlobID(aws.ToString(symbolicLink.BlobId)),
			Kind:   domain.SourceFileKindSymbolicLink,
		})
	}

	for _, subFolder := range output.SubFolders {
		folder.SubFolders = append(folder.SubFolders, domain.SourceSubFolder{
			Name:         entryName(subFolder.RelativePath, subFolder.AbsolutePath),
			AbsolutePath: aws.ToString(subFolder.AbsolutePath),
			TreeID:       domain.TreeID(aws.ToString(subFolder.TreeId)),
		})
	}

	for _, subModule := range output.SubModules {
		folder.SubModules = append(folder.SubModules, domain.SourceSubModule{
			Name:     entryName(subModule.RelativePath, subModule.AbsolutePath),
			CommitID: domain.CommitID(aws.ToString(subModule.CommitId)),
		})
	}

	return folder
}

func fileKind(fileMode types.FileModeTypeEnum) domain.SourceFileKind {
	switch fileMode {
	case types.FileModeTypeEnumExecutable:
		return domain.SourceFileKindExecutable
	case types.FileModeTypeEnumSymlink:
		return domain.SourceFileKindSymbolicLink
	default:
		return domain.SourceFileKindRegular
	}
}

func entryName(relativePath *string, absolutePath *string) string {
	if name := aws.ToString(relativePath); len(name) > 0 {
		return name
	}
	return path.Base(aws.ToString(absolutePath))
}

func optionalString(value string) *string {
	if len(value) == 0 {
		return nil
	}
	return aws.String(value)
}
