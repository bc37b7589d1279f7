// Package testsupport provides an in-memory source provider for exercising the migration workflow.
package testsupport

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/go-git/go-git/v5/plumbing"

	"github.com/temirov/repomigrate/internal/domain"
)

const (
	branchPageTokenTemplateConstant     = "branch-page-%d"
	folderEntryTemplateConstant         = "%s %s %s\n"
	commitSerializationTemplateConstant = "tree %s\nparents %s\nauthor %s <%s> %s\n\n%s"
	folderModeConstant                  = "40000"
	subModuleModeConstant               = "160000"
	pathSeparatorConstant               = "/"
)

// Method names recorded in SourceCall.Method.
const (
	MethodListRepositories = "ListRepositoriesPage"
	MethodListBranches     = "ListBranchesPage"
	MethodResolveBranchTip = "ResolveBranchTip"
	MethodGetCommit        = "GetCommit"
	MethodReadFolder       = "ReadFolder"
	MethodReadBlob         = "ReadBlob"
	MethodGetDefaultBranch = "GetDefaultBranch"
)

// SourceFileFixture describes one file of a commit snapshot.
type SourceFileFixture struct {
	Path    string
	Content string
	Kind    domain.SourceFileKind
}

// CommitFixture describes a commit added to a stub repository. A blank ID is derived from the content.
type CommitFixture struct {
	ID          domain.CommitID
	Message     string
	AuthorName  string
	AuthorEmail string
	AuthorDate  string
	Parents     []domain.CommitID
	Files       []SourceFileFixture
	SubModules  map[string]domain.CommitID
}

// SourceCall records one provider invocation.
type SourceCall struct {
	Method     string
	Repository domain.RepositoryName
	Argument   string
}

type stubRepository struct {
	defaultBranch      domain.BranchName
	defaultBranchError error
	branchOrder        []domain.BranchName
	branches           map[domain.BranchName]domain.CommitID
	branchPages        map[string]domain.BranchPage
	listingError       error
	tipErrors          map[domain.BranchName]error
	commitErrors       map[domain.CommitID]error
	commits            map[domain.CommitID]domain.CommitRecord
	folders            map[domain.CommitID]map[string]domain.SourceFolder
	blobs              map[domain.BlobID][]byte
}

// SourceStub implements domain.SourceProvider from fixtures and records every call.
type SourceStub struct {
	// RepositoryPages maps the requested page token to the page returned for it.
	RepositoryPages map[string]domain.RepositoryPage
	// RepositoryListingError fails every repository listing request when set.
	RepositoryListingError error
	// BranchPageSize splits branch listings into pages of this size. Zero returns one page.
	BranchPageSize int

	mutex        sync.Mutex
	repositories map[domain.RepositoryName]*stubRepository
	calls        []SourceCall
}

// NewSourceStub constructs an empty SourceStub.
func NewSourceStub() *SourceStub {
	return &SourceStub{
		RepositoryPages: make(map[string]domain.RepositoryPage),
		repositories:    make(map[domain.RepositoryName]*stubRepository),
	}
}

// AddRepository registers a repository and lists it on a single page unless RepositoryPages
// already describes the listing.
func (stub *SourceStub) AddRepository(repository domain.RepositoryName) {
	stub.mutex.Lock()
	defer stub.mutex.Unlock()
	stub.repositoryLocked(repository)
}

// AddCommit stores the commit and its snapshot and returns its identifier.
func (stub *SourceStub) AddCommit(repository domain.RepositoryName, fixture CommitFixture) domain.CommitID {
	stub.mutex.Lock()
	defer stub.mutex.Unlock()

	stored := stub.repositoryLocked(repository)
	folders := make(map[string]domain.SourceFolder)
	rootTreeID := buildFolder(stored, folders, "", fixture.Files, fixture.SubModules)

	commitID := fixture.ID
	if len(commitID) == 0 {
		parentIDs := make([]string, 0, len(fixture.Parents))
		for _, parentID := range fixture.Parents {
			parentIDs = append(parentIDs, string(parentID))
		}
		serialized := fmt.Sprintf(commitSerializationTemplateConstant, rootTreeID, strings.Join(parentIDs, " "), fixture.AuthorName, fixture.AuthorEmail, fixture.AuthorDate, fixture.Message)
		commitID = domain.CommitID(plumbing.ComputeHash(plumbing.CommitObject, []byte(serialized)).String())
	}

	stored.commits[commitID] = domain.CommitRecord{
		ID:        commitID,
		Message:   fixture.Message,
		Author:    domain.Author{Name: fixture.AuthorName, Email: fixture.AuthorEmail, Date: fixture.AuthorDate},
		TreeID:    rootTreeID,
		ParentIDs: append([]domain.CommitID(nil), fixture.Parents...),
	}
	stored.folders[commitID] = folders
	return commitID
}

// SetBranch points the branch at the commit, listing new branches in insertion order.
func (stub *SourceStub) SetBranch(repository domain.RepositoryName, branch domain.BranchName, commitID domain.CommitID) {
	stub.mutex.Lock()
	defer stub.mutex.Unlock()
	stored := stub.repositoryLocked(repository)
	if _, exists := stored.branches[branch]; !exists {
		stored.branchOrder = append(stored.branchOrder, branch)
	}
	stored.branches[branch] = commitID
}

// SetDefaultBranch overrides the default branch, which otherwise is the first branch set.
func (stub *SourceStub) SetDefaultBranch(repository domain.RepositoryName, branch domain.BranchName) {
	stub.mutex.Lock()
	defer stub.mutex.Unlock()
	stub.repositoryLocked(repository).defaultBranch = branch
}

// FailDefaultBranch fails default branch lookups for the repository.
func (stub *SourceStub) FailDefaultBranch(repository domain.RepositoryName, failure error) {
	stub.mutex.Lock()
	defer stub.mutex.Unlock()
	stub.repositoryLocked(repository).defaultBranchError = failure
}

// SetBranchPages replaces the generated branch listing with pages keyed by request token.
func (stub *SourceStub) SetBranchPages(repository domain.RepositoryName, pages map[string]domain.BranchPage) {
	stub.mutex.Lock()
	defer stub.mutex.Unlock()
	stub.repositoryLocked(repository).branchPages = pages
}

// FailBranchListing fails branch listing for the repository.
func (stub *SourceStub) FailBranchListing(repository domain.RepositoryName, failure error) {
	stub.mutex.Lock()
	defer stub.mutex.Unlock()
	stub.repositoryLocked(repository).listingError = failure
}

// FailBranchTip fails tip resolution for the branch.
func (stub *SourceStub) FailBranchTip(repository domain.RepositoryName, branch domain.BranchName, failure error) {
	stub.mutex.Lock()
	defer stub.mutex.Unlock()
	stub.repositoryLocked(repository).tipErrors[branch] = failure
}

// FailCommit fails commit lookups for the identifier.
func (stub *SourceStub) FailCommit(repository domain.RepositoryName, commitID domain.CommitID, failure error) {
	stub.mutex.Lock()
	defer stub.mutex.Unlock()
	stub.repositoryLocked(repository).commitErrors[commitID] = failure
}

// ReplaceBlob serves content for the blob identifier regardless of its hash.
func (stub *SourceStub) ReplaceBlob(repository domain.RepositoryName, blobID domain.BlobID, content []byte) {
	stub.mutex.Lock()
	defer stub.mutex.Unlock()
	stub.repositoryLocked(repository).blobs[blobID] = content
}

// Commit returns the stored commit record.
func (stub *SourceStub) Commit(repository domain.RepositoryName, commitID domain.CommitID) (domain.CommitRecord, bool) {
	stub.mutex.Lock()
	defer stub.mutex.Unlock()
	stored, exists := stub.repositories[repository]
	if !exists {
		return domain.CommitRecord{}, false
	}
	record, found := stored.commits[commitID]
	return record, found
}

// Calls returns the recorded calls in order.
func (stub *SourceStub) Calls() []SourceCall {
	stub.mutex.Lock()
	defer stub.mutex.Unlock()
	return append([]SourceCall(nil), stub.calls...)
}

// CallCount counts recorded calls of the method.
func (stub *SourceStub) CallCount(method string) int {
	count := 0
	for _, call := range stub.Calls() {
		if call.Method == method {
			count++
		}
	}
	return count
}

// ListRepositoriesPage serves RepositoryPages, or every registered repository on one page.
func (stub *SourceStub) ListRepositoriesPage(executionContext context.Context, pageToken string) (domain.RepositoryPage, error) {
	stub.mutex.Lock()
	defer stub.mutex.Unlock()
	stub.calls = append(stub.calls, SourceCall{Method: MethodListRepositories, Argument: pageToken})

	if stub.RepositoryListingError != nil {
		return domain.RepositoryPage{}, stub.RepositoryListingError
	}
	if len(stub.RepositoryPages) > 0 {
		page, exists := stub.RepositoryPages[pageToken]
		if !exists {
			return domain.RepositoryPage{}, domain.ErrNotFound
		}
		return page, nil
	}

	names := make([]domain.RepositoryName, 0, len(stub.repositories))
	for repositoryName := range stub.repositories {
		names = append(names, repositoryName)
	}
	sort.Slice(names, func(leftIndex int, rightIndex int) bool {
		return names[leftIndex] < names[rightIndex]
	})
	return domain.RepositoryPage{Names: names}, nil
}

// ListBranchesPage serves branches in insertion order, split by BranchPageSize.
func (stub *SourceStub) ListBranchesPage(executionContext context.Context, repository domain.RepositoryName, pageToken string) (domain.BranchPage, error) {
	stub.mutex.Lock()
	defer stub.mutex.Unlock()
	stub.calls = append(stub.calls, SourceCall{Method: MethodListBranches, Repository: repository, Argument: pageToken})

	stored, exists := stub.repositories[repository]
	if !exists {
		return domain.BranchPage{}, domain.ErrNotFound
	}
	if stored.listingError != nil {
		return domain.BranchPage{}, stored.listingError
	}
	if stored.branchPages != nil {
		page, found := stored.branchPages[pageToken]
		if !found {
			return domain.BranchPage{}, domain.ErrNotFound
		}
		return page, nil
	}

	if stub.BranchPageSize <= 0 {
		return domain.BranchPage{Names: append([]domain.BranchName(nil), stored.branchOrder...)}, nil
	}

	pageIndex := 0
	if len(pageToken) > 0 {
		if _, scanError := fmt.Sscanf(pageToken, branchPageTokenTemplateConstant, &pageIndex); scanError != nil {
			return domain.BranchPage{}, scanError
		}
	}
	start := pageIndex * stub.BranchPageSize
	if start > len(stored.branchOrder) {
		start = len(stored.branchOrder)
	}
	end := start + stub.BranchPageSize
	page := domain.BranchPage{}
	if end < len(stored.branchOrder) {
		page.NextPageToken = fmt.Sprintf(branchPageTokenTemplateConstant, pageIndex+1)
	} else {
		end = len(stored.branchOrder)
	}
	page.Names = append([]domain.BranchName(nil), stored.branchOrder[start:end]...)
	return page, nil
}

// ResolveBranchTip returns the commit the branch points at.
func (stub *SourceStub) ResolveBranchTip(executionContext context.Context, repository domain.RepositoryName, branch domain.BranchName) (domain.CommitID, error) {
	stub.mutex.Lock()
	defer stub.mutex.Unlock()
	stub.calls = append(stub.calls, SourceCall{Method: MethodResolveBranchTip, Repository: repository, Argument: string(branch)})

	stored, exists := stub.repositories[repository]
	if !exists {
		return "", domain.ErrNotFound
	}
	if tipError := stored.tipErrors[branch]; tipError != nil {
		return "", tipError
	}
	commitID, found := stored.branches[branch]
	if !found {
		return "", domain.ErrNotFound
	}
	return commitID, nil
}

// GetCommit returns the stored commit record.
func (stub *SourceStub) GetCommit(executionContext context.Context, repository domain.RepositoryName, commitID domain.CommitID) (domain.CommitRecord, error) {
	stub.mutex.Lock()
	defer stub.mutex.Unlock()
	stub.calls = append(stub.calls, SourceCall{Method: MethodGetCommit, Repository: repository, Argument: string(commitID)})

	stored, exists := stub.repositories[repository]
	if !exists {
		return domain.CommitRecord{}, domain.ErrNotFound
	}
	if commitError := stored.commitErrors[commitID]; commitError != nil {
		return domain.CommitRecord{}, commitError
	}
	record, found := stored.commits[commitID]
	if !found {
		return domain.CommitRecord{}, domain.ErrNotFound
	}
	record.ParentIDs = append([]domain.CommitID(nil), record.ParentIDs...)
	return record, nil
}

// ReadFolder returns one level of the commit snapshot.
func (stub *SourceStub) ReadFolder(executionContext context.Context, repository domain.RepositoryName, commitID domain.CommitID, folderPath string) (domain.SourceFolder, error) {
	stub.mutex.Lock()
	defer stub.mutex.Unlock()
	stub.calls = append(stub.calls, SourceCall{Method: MethodReadFolder, Repository: repository, Argument: folderPath})

	stored, exists := stub.repositories[repository]
	if !exists {
		return domain.SourceFolder{}, domain.ErrNotFound
	}
	folder, found := stored.folders[commitID][strings.Trim(folderPath, pathSeparatorConstant)]
	if !found {
		return domain.SourceFolder{}, domain.ErrNotFound
	}
	return folder, nil
}

// ReadBlob returns the blob content.
func (stub *SourceStub) ReadBlob(executionContext context.Context, repository domain.RepositoryName, blobID domain.BlobID) ([]byte, error) {
	stub.mutex.Lock()
	defer stub.mutex.Unlock()
	stub.calls = append(stub.calls, SourceCall{Method: MethodReadBlob, Repository: repository, Argument: string(blobID)})

	stored, exists := stub.repositories[repository]
	if !exists {
		return nil, domain.ErrNotFound
	}
	content, found := stored.blobs[blobID]
	if !found {
		return nil, domain.ErrNotFound
	}
	return append([]byte(nil), content...), nil
}

// GetDefaultBranch returns the configured default branch or the first branch set.
func (stub *SourceStub) GetDefaultBranch(executionContext context.Context, repository domain.RepositoryName) (domain.BranchName, error) {
	stub.mutex.Lock()
	defer stub.mutex.Unlock()
	stub.calls = append(stub.calls, SourceCall{Method: MethodGetDefaultBranch, Repository: repository})

	stored, exists := stub.repositories[repository]
	if !exists {
		return "", domain.ErrNotFound
	}
	if stored.defaultBranchError != nil {
		return "", stored.defaultBranchError
	}
	if len(stored.defaultBranch) > 0 {
		return stored.defaultBranch, nil
	}
	if len(stored.branchOrder) > 0 {
		return stored.branchOrder[0], nil
	}
	return "", nil
}

func (stub *SourceStub) repositoryLocked(repository domain.RepositoryName) *stubRepository {
	stored, exists := stub.repositories[repository]
	if !exists {
		stored = &stubRepository{
			branches:     make(map[domain.BranchName]domain.CommitID),
			tipErrors:    make(map[domain.BranchName]error),
			commitErrors: make(map[domain.CommitID]error),
			commits:      make(map[domain.CommitID]domain.CommitRecord),
			folders:      make(map[domain.CommitID]map[string]domain.SourceFolder),
			blobs:        make(map[domain.BlobID][]byte),
		}
		stub.repositories[repository] = stored
	}
	return stored
}

// buildFolder records the folder at folderPath and everything below it, returning its tree identifier.
func buildFolder(stored *stubRepository, folders map[string]domain.SourceFolder, folderPath string, files []SourceFileFixture, subModules map[string]domain.CommitID) domain.TreeID {
	folder := domain.SourceFolder{}
	nestedFiles := make(map[string][]SourceFileFixture)
	nestedSubModules := make(map[string]map[string]domain.CommitID)
	var serialized bytes.Buffer

	for _, file := range files {
		relativePath := strings.Trim(file.Path, pathSeparatorConstant)
		if head, rest, nested := strings.Cut(relativePath, pathSeparatorConstant); nested {
			nestedFiles[head] = append(nestedFiles[head], SourceFileFixture{Path: rest, Content: file.Content, Kind: file.Kind})
			continue
		}
		content := []byte(file.Content)
		blobID := domain.BlobID(plumbing.ComputeHash(plumbing.BlobObject, content).String())
		stored.blobs[blobID] = content
		kind := file.Kind
		if len(kind) == 0 {
			kind = domain.SourceFileKindRegular
		}
		folder.Files = append(folder.Files, domain.SourceFile{Name: relativePath, BlobID: blobID, Kind: kind})
		fmt.Fprintf(&serialized, folderEntryTemplateConstant, kind, blobID, relativePath)
	}

	for subModulePath, commitID := range subModules {
		relativePath := strings.Trim(subModulePath, pathSeparatorConstant)
		if head, rest, nested := strings.Cut(relativePath, pathSeparatorConstant); nested {
			if nestedSubModules[head] == nil {
				nestedSubModules[head] = make(map[string]domain.CommitID)
			}
			nestedSubModules[head][rest] = commitID
			continue
		}
		folder.SubModules = append(folder.SubModules, domain.SourceSubModule{Name: relativePath, CommitID: commitID})
	}
	sort.Slice(folder.SubModules, func(leftIndex int, rightIndex int) bool {
		return folder.SubModules[leftIndex].Name < folder.SubModules[rightIndex].Name
	})
	for _, subModule := range folder.SubModules {
		fmt.Fprintf(&serialized, folderEntryTemplateConstant, subModuleModeConstant, subModule.CommitID, subModule.Name)
	}

	subFolderNames := make([]string, 0, len(nestedFiles)+len(nestedSubModules))
	for name := range nestedFiles {
		subFolderNames = append(subFolderNames, name)
	}
	for name := range nestedSubModules {
		if _, counted := nestedFiles[name]; !counted {
			subFolderNames = append(subFolderNames, name)
		}
	}
	sort.Strings(subFolderNames)

	for _, name := range subFolderNames {
		absolutePath := path.Join(folderPath, name)
		subTreeID := buildFolder(stored, folders, absolutePath, nestedFiles[name], nestedSubModules[name])
		folder.SubFolders = append(folder.SubFolders, domain.SourceSubFolder{Name: name, AbsolutePath: absolutePath, TreeID: subTreeID})
		fmt.Fprintf(&serialized, folderEntryTemplateConstant, folderModeConstant, subTreeID, name)
	}

	folder.TreeID = domain.TreeID(plumbing.ComputeHash(plumbing.TreeObject, serialized.Bytes()).String())
	folders[folderPath] = folder
	return folder.TreeID
}
