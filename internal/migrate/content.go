package migrate

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/go-git/go-git/v5/plumbing"
	"go.uber.org/zap"

	"github.com/temirov/repomigrate/internal/domain"
)

const (
	integritySideSourceConstant      = "source"
	integritySideDestinationConstant = "destination"
	rootFolderPathConstant           = "/"
	treeReusedMessageConstant        = "Reusing destination tree with source identifier"
	treeTransferredMessageConstant   = "Content tree transferred"
	logFieldTreeConstant             = "tree_id"
	logFieldBlobCountConstant        = "blobs_uploaded"
)

// ErrDestinationProviderNotConfigured indicates a component was created without a destination provider.
var ErrDestinationProviderNotConfigured = errors.New("destination provider not configured")

// ContentTransfer copies source content trees into the destination object store.
type ContentTransfer struct {
	source      domain.SourceProvider
	destination domain.DestinationProvider
	mode        TreeTransferMode
	logger      *zap.Logger
}

// NewContentTransfer constructs a ContentTransfer.
func NewContentTransfer(source domain.SourceProvider, destination domain.DestinationProvider, mode TreeTransferMode, logger *zap.Logger) (*ContentTransfer, error) {
	if source == nil {
		return nil, ErrSourceProviderNotConfigured
	}
	if destination == nil {
		return nil, ErrDestinationProviderNotConfigured
	}
	if len(mode) == 0 {
		mode = TreeTransferCopy
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ContentTransfer{source: source, destination: destination, mode: mode, logger: logger}, nil
}

// NewSession starts a transfer scope for one repository. Sessions cache source to destination
// object identifiers so shared subtrees and repeated blobs are uploaded once.
func (transfer *ContentTransfer) NewSession(repository domain.RepositoryName, target domain.RepositoryTarget) *TransferSession {
	return &TransferSession{
		transfer:      transfer,
		repository:    repository,
		target:        target,
		blobCache:     make(map[domain.BlobID]string),
		treeCache:     make(map[domain.TreeID]domain.TreeID),
		reusableTrees: make(map[domain.TreeID]bool),
	}
}

// TransferSession holds the per-repository object caches. It is safe for concurrent use.
type TransferSession struct {
	transfer   *ContentTransfer
	repository domain.RepositoryName
	target     domain.RepositoryTarget

	mutex         sync.Mutex
	blobCache     map[domain.BlobID]string
	treeCache     map[domain.TreeID]domain.TreeID
	reusableTrees map[domain.TreeID]bool
	blobsUploaded int
}

// BlobsUploaded reports how many blobs were written to the destination.
func (session *TransferSession) BlobsUploaded() int {
	session.mutex.Lock()
	defer session.mutex.Unlock()
	return session.blobsUploaded
}

// TransferTree returns a destination tree holding the content of the commit's source tree.
func (session *TransferSession) TransferTree(executionContext context.Context, commit domain.CommitRecord) (domain.TreeID, error) {
	if cachedTreeID, cached := session.cachedTree(commit.TreeID); cached {
		return cachedTreeID, nil
	}

	if session.transfer.mode == TreeTransferReuseVerified && len(commit.TreeID) > 0 {
		reusable, probeError := session.probeReusableTree(executionContext, commit.TreeID)
		if probeError != nil {
			return "", probeError
		}
		if reusable {
			session.transfer.logger.Debug(
				treeReusedMessageConstant,
				zap.String(logFieldRepositoryConstant, string(session.repository)),
				zap.String(logFieldTreeConstant, string(commit.TreeID)),
			)
			session.storeTree(commit.TreeID, commit.TreeID)
			return commit.TreeID, nil
		}
	}

	destinationTreeID, hasEntries, transferError := session.transferFolder(executionContext, commit.ID, rootFolderPathConstant, commit.TreeID)
	if transferError != nil {
		return "", transferError
	}
	if !hasEntries {
		return "", domain.ErrEmptyTree
	}

	session.transfer.logger.Debug(
		treeTransferredMessageConstant,
		zap.String(logFieldRepositoryConstant, string(session.repository)),
		zap.String(logFieldTreeConstant, string(destinationTreeID)),
		zap.Int(logFieldBlobCountConstant, session.BlobsUploaded()),
	)
	return destinationTreeID, nil
}

func (session *TransferSession) probeReusableTree(executionContext context.Context, treeID domain.TreeID) (bool, error) {
	session.mutex.Lock()
	reusable, probed := session.reusableTrees[treeID]
	session.mutex.Unlock()
	if probed {
		return reusable, nil
	}

	exists, probeError := session.transfer.destination.TreeExists(executionContext, session.target, treeID)
	if probeError != nil {
		return false, probeError
	}

	session.mutex.Lock()
	session.reusableTrees[treeID] = exists
	session.mutex.Unlock()
	return exists, nil
}

// transferFolder uploads one folder and everything below it. Folders without any entries are
// reported through hasEntries because git trees cannot be empty.
func (session *TransferSession) transferFolder(executionContext context.Context, commitID domain.CommitID, folderPath string, knownTreeID domain.TreeID) (domain.TreeID, bool, error) {
	if cachedTreeID, cached := session.cachedTree(knownTreeID); cached {
		return cachedTreeID, true, nil
	}

	folder, folderError := session.transfer.source.ReadFolder(executionContext, session.repository, commitID, folderPath)
	if folderError != nil {
		return "", false, folderError
	}

	entries := make([]domain.TreeEntry, 0, len(folder.Files)+len(folder.SubFolders)+len(folder.SubModules))

	for _, file := range folder.Files {
		blobSHA, blobError := session.transferBlob(executionContext, file.BlobID)
		if blobError != nil {
			return "", false, blobError
		}
		entries = append(entries, domain.TreeEntry{Path: file.Name, Mode: treeEntryModeForKind(file.Kind), Type: domain.TreeEntryTypeBlob, SHA: blobSHA})
	}

	for _, subModule := range folder.SubModules {
		entries = append(entries, domain.TreeEntry{Path: subModule.Name, Mode: domain.TreeEntryModeSubmodule, Type: domain.TreeEntryTypeCommit, SHA: string(subModule.CommitID)})
	}

	for _, subFolder := range folder.SubFolders {
		subTreeID, hasEntries, subFolderError := session.transferFolder(executionContext, commitID, subFolder.AbsolutePath, subFolder.TreeID)
		if subFolderError != nil {
			return "", false, subFolderError
		}
		if !hasEntries {
			continue
		}
		entries = append(entries, domain.TreeEntry{Path: subFolder.Name, Mode: domain.TreeEntryModeDirectory, Type: domain.TreeEntryTypeTree, SHA: string(subTreeID)})
	}

	if len(entries) == 0 {
		return "", false, nil
	}

	sort.Slice(entries, func(leftIndex int, rightIndex int) bool {
		return entries[leftIndex].Path < entries[rightIndex].Path
	})

	destinationTreeID, treeError := session.transfer.destination.CreateTree(executionContext, session.target, entries)
	if treeError != nil {
		return "", false, treeError
	}

	sourceTreeID := folder.TreeID
	if len(sourceTreeID) == 0 {
		sourceTreeID = knownTreeID
	}
	session.storeTree(sourceTreeID, destinationTreeID)
	return destinationTreeID, true, nil
}

// transferBlob downloads a source blob, checks that its git hash matches the source identifier,
// uploads it, and checks that the destination minted the same hash.
func (session *TransferSession) transferBlob(executionContext context.Context, blobID domain.BlobID) (string, error) {
	session.mutex.Lock()
	cachedSHA, cached := session.blobCache[blobID]
	session.mutex.Unlock()
	if cached {
		return cachedSHA, nil
	}

	content, readError := session.transfer.source.ReadBlob(executionContext, session.repository, blobID)
	if readError != nil {
		return "", readError
	}

	contentHash := plumbing.ComputeHash(plumbing.BlobObject, content).String()
	if contentHash != string(blobID) {
		return "", ContentIntegrityError{BlobID: string(blobID), Side: integritySideSourceConstant, ComputedHash: contentHash}
	}

	destinationSHA, uploadError := session.transfer.destination.CreateBlob(executionContext, session.target, content)
	if uploadError != nil {
		return "", uploadError
	}
	if destinationSHA != contentHash {
		return "", ContentIntegrityError{BlobID: string(blobID), Side: integritySideDestinationConstant, ComputedHash: destinationSHA}
	}

	session.mutex.Lock()
	session.blobCache[blobID] = destinationSHA
	session.blobsUploaded++
	session.mutex.Unlock()
	return destinationSHA, nil
}

func (session *TransferSession) cachedTree(sourceTreeID domain.TreeID) (domain.TreeID, bool) {
	if len(sourceTreeID) == 0 {
		return "", false
	}
	session.mutex.Lock()
	defer session.mutex.Unlock()
	destinationTreeID, cached := session.treeCache[sourceTreeID]
	return destinationTreeID, cached
}

func (session *TransferSession) storeTree(sourceTreeID domain.TreeID, destinationTreeID domain.TreeID) {
	if len(sourceTreeID) == 0 {
		return
	}
	session.mutex.Lock()
	session.treeCache[sourceTreeID] = destinationTreeID
	session.mutex.Unlock()
}

func treeEntryModeForKind(kind domain.SourceFileKind) domain.TreeEntryMode {
	switch kind {
	case domain.SourceFileKindExecutable:
		return domain.TreeEntryModeExecutable
	case domain.SourceFileKindSymbolicLink:
		return domain.TreeEntryModeSymbolicLink
	default:
		return domain.TreeEntryModeRegular
	}
}
