package migrate

import (
	"context"
	"fmt"

	"github.com/temirov/repomigrate/internal/domain"
)

const historyCycleTemplateConstant = "commit %s is its own ancestor"

// HistoryPlanner orders the ancestry of a branch tip for replay.
type HistoryPlanner struct {
	source domain.SourceProvider
}

// NewHistoryPlanner constructs a HistoryPlanner.
func NewHistoryPlanner(source domain.SourceProvider) (*HistoryPlanner, error) {
	if source == nil {
		return nil, ErrSourceProviderNotConfigured
	}
	return &HistoryPlanner{source: source}, nil
}

type historyFrame struct {
	record          domain.CommitRecord
	nextParentIndex int
}

type visitState int

const (
	visitStateUnvisited visitState = iota
	visitStateOpen
	visitStateClosed
)

// Plan walks from tip to its roots and returns every commit not yet replicated with parents
// ahead of children. The walk uses an explicit stack so history depth is unbounded. Commits for
// which replicated reports true are treated as already present and are neither returned nor
// walked past.
func (planner *HistoryPlanner) Plan(executionContext context.Context, repository domain.RepositoryName, tip domain.CommitRecord, replicated func(domain.CommitID) bool) ([]domain.CommitRecord, error) {
	if replicated(tip.ID) {
		return nil, nil
	}

	states := map[domain.CommitID]visitState{tip.ID: visitStateOpen}
	stack := []historyFrame{{record: tip}}
	var ordered []domain.CommitRecord

	for len(stack) > 0 {
		if contextError := executionContext.Err(); contextError != nil {
			return nil, contextError
		}

		top := &stack[len(stack)-1]
		if top.nextParentIndex < len(top.record.ParentIDs) {
			parentID := top.record.ParentIDs[top.nextParentIndex]
			top.nextParentIndex++

			switch states[parentID] {
			case visitStateClosed:
				continue
			case visitStateOpen:
				return nil, fmt.Errorf(historyCycleTemplateConstant, parentID)
			}
			if replicated(parentID) {
				states[parentID] = visitStateClosed
				continue
			}

			parentRecord, commitError := planner.source.GetCommit(executionContext, repository, parentID)
			if commitError != nil {
				return nil, commitError
			}
			states[parentID] = visitStateOpen
			stack = append(stack, historyFrame{record: parentRecord})
			continue
		}

		states[top.record.ID] = visitStateClosed
		ordered = append(ordered, top.record)
		stack = stack[:len(stack)-1]
	}

	return ordered, nil
}
