package migrate

import "context"

type pageFetcher[Item any] func(executionContext context.Context, pageToken string) ([]Item, string, error)

// collectPages follows page tokens until the provider stops returning one. Nothing is returned
// when any page fails, and a token seen twice is reported as a loop.
func collectPages[Item any](executionContext context.Context, operation OperationName, fetch pageFetcher[Item]) ([]Item, error) {
	var collected []Item
	seenTokens := make(map[string]struct{})
	pageToken := ""

	for {
		if contextError := executionContext.Err(); contextError != nil {
			return nil, contextError
		}

		items, nextPageToken, fetchError := fetch(executionContext, pageToken)
		if fetchError != nil {
			return nil, OperationError{Operation: operation, Cause: fetchError}
		}
		collected = append(collected, items...)

		if len(nextPageToken) == 0 {
			return collected, nil
		}
		if _, seen := seenTokens[nextPageToken]; seen {
			return nil, PagingLoopError{Operation: operation, PageToken: nextPageToken}
		}
		seenTokens[nextPageToken] = struct{}{}
		pageToken = nextPageToken
	}
}
