package domain

import "errors"

// Sentinel errors returned by provider adapters. Callers match them with errors.Is.
var (
	// ErrNotFound indicates the requested repository, branch, commit, tree, or reference does not exist.
	ErrNotFound = errors.New("resource not found")
	// ErrAlreadyExists indicates the destination refused to create a resource because the name is taken.
	ErrAlreadyExists = errors.New("resource already exists")
	// ErrUnauthorized indicates the provider rejected the configured credential.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrEmptyTree indicates a source tree contained no entries that could be replicated.
	ErrEmptyTree = errors.New("tree has no entries")
)
