// Package githubapi adapts the GitHub REST API (repositories and the Git data API)
// to the destination provider port.
package githubapi
