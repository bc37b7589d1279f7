package domain

import "context"

// SourceProvider is the read-only port consumed from the provider repositories are migrated from.
type SourceProvider interface {
	ListRepositoriesPage(executionContext context.Context, pageToken string) (RepositoryPage, error)
	ListBranchesPage(executionContext context.Context, repository RepositoryName, pageToken string) (BranchPage, error)
	ResolveBranchTip(executionContext context.Context, repository RepositoryName, branch BranchName) (CommitID, error)
	GetCommit(executionContext context.Context, repository RepositoryName, commitID CommitID) (CommitRecord, error)
	ReadFolder(executionContext context.Context, repository RepositoryName, commitID CommitID, folderPath string) (SourceFolder, error)
	ReadBlob(executionContext context.Context, repository RepositoryName, blobID BlobID) ([]byte, error)
	GetDefaultBranch(executionContext context.Context, repository RepositoryName) (BranchName, error)
}

// DestinationProvider is the write port consumed from the provider repositories are migrated to.
type DestinationProvider interface {
	ResolveOwner(executionContext context.Context) (string, error)
	CreateRepository(executionContext context.Context, request RepositoryCreateRequest) (RepositoryDescriptor, error)
	CreateBlob(executionContext context.Context, target RepositoryTarget, content []byte) (string, error)
	CreateTree(executionContext context.Context, target RepositoryTarget, entries []TreeEntry) (TreeID, error)
	TreeExists(executionContext context.Context, target RepositoryTarget, treeID TreeID) (bool, error)
	CreateCommit(executionContext context.Context, target RepositoryTarget, request CommitCreateRequest) (CommitID, error)
	SetBranchReference(executionContext context.Context, target RepositoryTarget, branch BranchName, commitID CommitID) error
	SetDefaultBranch(executionContext context.Context, target RepositoryTarget, branch BranchName) error
	DeleteBranchReference(executionContext context.Context, target RepositoryTarget, branch BranchName) error
}
