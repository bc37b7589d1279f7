package domain

import (
	"fmt"
	"sort"
	"strings"
)

const (
	visibilityPrivateConstant         = "private"
	visibilityPublicConstant          = "public"
	visibilityInvalidTemplateConstant = "visibility %q is not supported"
	fullNameTemplateConstant          = "%s/%s"
	branchReferencePrefixConstant     = "refs/heads/"
	treeEntryTypeBlobConstant         = "blob"
	treeEntryTypeTreeConstant         = "tree"
	treeEntryTypeCommitConstant       = "commit"
	treeEntryModeRegularConstant      = "100644"
	treeEntryModeExecutableConstant   = "100755"
	treeEntryModeSymbolicLinkConstant = "120000"
	treeEntryModeSubmoduleConstant    = "160000"
	treeEntryModeDirectoryConstant    = "040000"
)

// RepositoryName identifies a repository within one provider namespace.
type RepositoryName string

// BranchName identifies a branch within a repository.
type BranchName string

// CommitID is an opaque commit identifier minted by a provider.
type CommitID string

// TreeID is an opaque content tree identifier minted by a provider.
type TreeID string

// BlobID is an opaque file content identifier minted by a provider.
type BlobID string

// ReferenceName returns the fully qualified reference for the branch.
func (branchName BranchName) ReferenceName() string {
	return branchReferencePrefixConstant + string(branchName)
}

// Author captures commit authorship. Date is kept in the provider's textual form.
type Author struct {
	Name  string
	Email string
	Date  string
}

// CommitRecord is the metadata extracted for a single source commit.
type CommitRecord struct {
	ID        CommitID
	Message   string
	Author    Author
	TreeID    TreeID
	ParentIDs []CommitID
}

// Branch pairs a branch name with the commit it currently references.
type Branch struct {
	Name        BranchName
	TipCommitID CommitID
}

// CommitMap associates each source branch with the commit at its tip.
type CommitMap map[BranchName]CommitRecord

// BranchNames returns the map keys in lexical order.
func (commitMap CommitMap) BranchNames() []BranchName {
	branchNames := make([]BranchName, 0, len(commitMap))
	for branchName := range commitMap {
		branchNames = append(branchNames, branchName)
	}
	sort.Slice(branchNames, func(leftIndex int, rightIndex int) bool {
		return branchNames[leftIndex] < branchNames[rightIndex]
	})
	return branchNames
}

// RepositoryPage is one page of repository names returned by a source provider.
type RepositoryPage struct {
	Names         []RepositoryName
	NextPageToken string
}

// BranchPage is one page of branch names returned by a source provider.
type BranchPage struct {
	Names         []BranchName
	NextPageToken string
}

// SourceFileKind classifies file entries found in a source folder.
type SourceFileKind string

// Source file kinds.
const (
	SourceFileKindRegular      SourceFileKind = SourceFileKind("regular")
	SourceFileKindExecutable   SourceFileKind = SourceFileKind("executable")
	SourceFileKindSymbolicLink SourceFileKind = SourceFileKind("symlink")
)

// SourceFile describes a blob stored directly within a source folder.
type SourceFile struct {
	Name   string
	BlobID BlobID
	Kind   SourceFileKind
}

// SourceSubFolder describes a nested folder.
type SourceSubFolder struct {
	Name         string
	AbsolutePath string
	TreeID       TreeID
}

// SourceSubModule describes a submodule pointer stored within a source folder.
type SourceSubModule struct {
	Name     string
	CommitID CommitID
}

// SourceFolder is a single level of a source content tree.
type SourceFolder struct {
	TreeID     TreeID
	Files      []SourceFile
	SubFolders []SourceSubFolder
	SubModules []SourceSubModule
}

// Visibility controls whether a destination repository is private or public.
type Visibility string

// Visibility values.
const (
	VisibilityPrivate Visibility = Visibility(visibilityPrivateConstant)
	VisibilityPublic  Visibility = Visibility(visibilityPublicConstant)
)

// ParseVisibility normalizes textual visibility values.
func ParseVisibility(visibilityValue string) (Visibility, error) {
	switch Visibility(strings.ToLower(strings.TrimSpace(visibilityValue))) {
	case VisibilityPrivate:
		return VisibilityPrivate, nil
	case VisibilityPublic:
		return VisibilityPublic, nil
	default:
		return "", fmt.Errorf(visibilityInvalidTemplateConstant, visibilityValue)
	}
}

// IsPrivate reports whether the visibility hides the repository.
func (visibility Visibility) IsPrivate() bool {
	return visibility != VisibilityPublic
}

// RepositoryTarget addresses a repository in the destination provider.
type RepositoryTarget struct {
	Owner string
	Name  RepositoryName
}

// FullName renders the owner/name form.
func (target RepositoryTarget) FullName() string {
	return fmt.Sprintf(fullNameTemplateConstant, target.Owner, target.Name)
}

// RepositoryCreateRequest describes a destination repository to provision.
type RepositoryCreateRequest struct {
	Owner               string
	OwnerIsOrganization bool
	Name                RepositoryName
	Visibility          Visibility
	Initialize          bool
}

// RepositoryDescriptor is the canonical description returned after provisioning.
type RepositoryDescriptor struct {
	Owner         string
	Name          RepositoryName
	FullName      string
	HTMLURL       string
	DefaultBranch string
	Private       bool
}

// Target returns the address of the described repository.
func (descriptor RepositoryDescriptor) Target() RepositoryTarget {
	return RepositoryTarget{Owner: descriptor.Owner, Name: descriptor.Name}
}

// TreeEntryType enumerates the object kinds a destination tree entry can point to.
type TreeEntryType string

// Tree entry types.
const (
	TreeEntryTypeBlob   TreeEntryType = TreeEntryType(treeEntryTypeBlobConstant)
	TreeEntryTypeTree   TreeEntryType = TreeEntryType(treeEntryTypeTreeConstant)
	TreeEntryTypeCommit TreeEntryType = TreeEntryType(treeEntryTypeCommitConstant)
)

// TreeEntryMode is the git file mode written into destination trees.
type TreeEntryMode string

// Tree entry modes.
const (
	TreeEntryModeRegular      TreeEntryMode = TreeEntryMode(treeEntryModeRegularConstant)
	TreeEntryModeExecutable   TreeEntryMode = TreeEntryMode(treeEntryModeExecutableConstant)
	TreeEntryModeSymbolicLink TreeEntryMode = TreeEntryMode(treeEntryModeSymbolicLinkConstant)
	TreeEntryModeSubmodule    TreeEntryMode = TreeEntryMode(treeEntryModeSubmoduleConstant)
	TreeEntryModeDirectory    TreeEntryMode = TreeEntryMode(treeEntryModeDirectoryConstant)
)

// TreeEntry is a single entry submitted when creating a destination tree.
type TreeEntry struct {
	Path string
	Mode TreeEntryMode
	Type TreeEntryType
	SHA  string
}

// CommitCreateRequest describes a destination commit.
type CommitCreateRequest struct {
	Message            string
	Author             Author
	ParentIDs          []CommitID
	TreeID             TreeID
	PreserveAuthorDate bool
}
