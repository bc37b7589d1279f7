package migrate

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/temirov/repomigrate/internal/domain"
)

const (
	branchReplicatedMessageConstant = "Branch replicated"
	branchFailedMessageConstant     = "Branch replication failed"
	historyPlannedMessageConstant   = "Branch history planned"
	logFieldCommitCountConstant     = "commit_count"
	branchStatusSucceededConstant   = "succeeded"
	branchStatusFailedConstant      = "failed"
	minimumBranchWorkersConstant    = 1
)

// ErrHistoryPlannerNotConfigured indicates history replay was requested without a planner.
var ErrHistoryPlannerNotConfigured = errors.New("history planner not configured")

// ErrContentTransferNotConfigured indicates the replicator was created without a content transfer.
var ErrContentTransferNotConfigured = errors.New("content transfer not configured")

// BranchStatus is the outcome of replicating one branch.
type BranchStatus string

// Branch outcomes.
const (
	BranchStatusSucceeded BranchStatus = BranchStatus(branchStatusSucceededConstant)
	BranchStatusFailed    BranchStatus = BranchStatus(branchStatusFailedConstant)
)

// BranchResult records the outcome for one branch. CommitID is the destination commit created
// for the branch tip, which is orphaned when the reference update failed.
type BranchResult struct {
	Branch    domain.BranchName
	Status    BranchStatus
	Operation OperationName
	CommitID  domain.CommitID
	Error     error
}

// ReplicationResult collects branch outcomes in branch name order.
type ReplicationResult struct {
	Branches []BranchResult
}

// FailedCount returns the number of failed branches.
func (result ReplicationResult) FailedCount() int {
	failed := 0
	for _, branchResult := range result.Branches {
		if branchResult.Status == BranchStatusFailed {
			failed++
		}
	}
	return failed
}

// ReplicatorOptions tunes replication.
type ReplicatorOptions struct {
	FlattenHistory bool
	BranchWorkers  int
}

// Replicator recreates branches in the destination.
type Replicator struct {
	destination    domain.DestinationProvider
	transfer       *ContentTransfer
	planner        *HistoryPlanner
	flattenHistory bool
	branchWorkers  int
	logger         *zap.Logger
}

// NewReplicator constructs a Replicator. The planner is only required when history is not flattened.
func NewReplicator(destination domain.DestinationProvider, transfer *ContentTransfer, planner *HistoryPlanner, options ReplicatorOptions, logger *zap.Logger) (*Replicator, error) {
	if destination == nil {
		return nil, ErrDestinationProviderNotConfigured
	}
	if transfer == nil {
		return nil, ErrContentTransferNotConfigured
	}
	if !options.FlattenHistory && planner == nil {
		return nil, ErrHistoryPlannerNotConfigured
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	branchWorkers := options.BranchWorkers
	if branchWorkers < minimumBranchWorkersConstant {
		branchWorkers = minimumBranchWorkersConstant
	}

	return &Replicator{
		destination:    destination,
		transfer:       transfer,
		planner:        planner,
		flattenHistory: options.FlattenHistory,
		branchWorkers:  branchWorkers,
		logger:         logger,
	}, nil
}

// Replicate recreates every branch of commitMap in target. A failing branch never stops the others.
// With flattened history branches may run concurrently; full history replays branches one at a
// time because they share the commit mapping.
func (replicator *Replicator) Replicate(executionContext context.Context, repository domain.RepositoryName, target domain.RepositoryTarget, commitMap domain.CommitMap) ReplicationResult {
	branchNames := commitMap.BranchNames()
	results := make([]BranchResult, len(branchNames))
	session := replicator.transfer.NewSession(repository, target)

	if !replicator.flattenHistory {
		commitMapping := make(map[domain.CommitID]domain.CommitID)
		for branchIndex, branchName := range branchNames {
			results[branchIndex] = replicator.replicateHistory(executionContext, session, repository, target, branchName, commitMap[branchName], commitMapping)
		}
		return ReplicationResult{Branches: results}
	}

	var group errgroup.Group
	group.SetLimit(replicator.branchWorkers)
	for branchIndex, branchName := range branchNames {
		group.Go(func() error {
			results[branchIndex] = replicator.replicateSnapshot(executionContext, session, target, branchName, commitMap[branchName])
			return nil
		})
	}
	_ = group.Wait()

	return ReplicationResult{Branches: results}
}

func (replicator *Replicator) replicateSnapshot(executionContext context.Context, session *TransferSession, target domain.RepositoryTarget, branchName domain.BranchName, tip domain.CommitRecord) BranchResult {
	treeID, transferError := session.TransferTree(executionContext, tip)
	if transferError != nil {
		return replicator.failBranch(target, branchName, OperationTransferContent, "", transferError)
	}

	commitID, commitError := replicator.destination.CreateCommit(executionContext, target, domain.CommitCreateRequest{
		Message: tip.Message,
		Author:  tip.Author,
		TreeID:  treeID,
	})
	if commitError != nil {
		return replicator.failBranch(target, branchName, OperationCreateCommit, "", commitError)
	}

	return replicator.pointBranch(executionContext, target, branchName, commitID)
}

func (replicator *Replicator) replicateHistory(executionContext context.Context, session *TransferSession, repository domain.RepositoryName, target domain.RepositoryTarget, branchName domain.BranchName, tip domain.CommitRecord, commitMapping map[domain.CommitID]domain.CommitID) BranchResult {
	plannedCommits, planError := replicator.planner.Plan(executionContext, repository, tip, func(commitID domain.CommitID) bool {
		_, replicated := commitMapping[commitID]
		return replicated
	})
	if planError != nil {
		return replicator.failBranch(target, branchName, OperationPlanHistory, "", planError)
	}

	replicator.logger.Debug(
		historyPlannedMessageConstant,
		zap.String(logFieldRepositoryConstant, target.FullName()),
		zap.String(logFieldBranchConstant, string(branchName)),
		zap.Int(logFieldCommitCountConstant, len(plannedCommits)),
	)

	for _, sourceCommit := range plannedCommits {
		treeID, transferError := session.TransferTree(executionContext, sourceCommit)
		if transferError != nil {
			return replicator.failBranch(target, branchName, OperationTransferContent, "", transferError)
		}

		parentIDs := make([]domain.CommitID, 0, len(sourceCommit.ParentIDs))
		for _, sourceParentID := range sourceCommit.ParentIDs {
			parentIDs = append(parentIDs, commitMapping[sourceParentID])
		}

		destinationCommitID, commitError := replicator.destination.CreateCommit(executionContext, target, domain.CommitCreateRequest{
			Message:            sourceCommit.Message,
			Author:             sourceCommit.Author,
			ParentIDs:          parentIDs,
			TreeID:             treeID,
			PreserveAuthorDate: true,
		})
		if commitError != nil {
			return replicator.failBranch(target, branchName, OperationCreateCommit, "", commitError)
		}
		commitMapping[sourceCommit.ID] = destinationCommitID
	}

	return replicator.pointBranch(executionContext, target, branchName, commitMapping[tip.ID])
}

func (replicator *Replicator) pointBranch(executionContext context.Context, target domain.RepositoryTarget, branchName domain.BranchName, commitID domain.CommitID) BranchResult {
	if referenceError := replicator.destination.SetBranchReference(executionContext, target, branchName, commitID); referenceError != nil {
		return replicator.failBranch(target, branchName, OperationUpdateReference, commitID, referenceError)
	}

	replicator.logger.Info(
		branchReplicatedMessageConstant,
		zap.String(logFieldRepositoryConstant, target.FullName()),
		zap.String(logFieldBranchConstant, string(branchName)),
		zap.String(logFieldCommitConstant, string(commitID)),
	)
	return BranchResult{Branch: branchName, Status: BranchStatusSucceeded, CommitID: commitID}
}

func (replicator *Replicator) failBranch(target domain.RepositoryTarget, branchName domain.BranchName, operation OperationName, commitID domain.CommitID, failure error) BranchResult {
	replicator.logger.Warn(
		branchFailedMessageConstant,
		zap.String(logFieldRepositoryConstant, target.FullName()),
		zap.String(logFieldBranchConstant, string(branchName)),
		zap.String(logFieldOperationConstant, string(operation)),
		zap.String(logFieldCommitConstant, string(commitID)),
		zap.Error(failure),
	)
	return BranchResult{Branch: branchName, Status: BranchStatusFailed, Operation: operation, CommitID: commitID, Error: failure}
}
