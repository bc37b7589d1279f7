// Package credentials resolves the destination provider token from configured
// token sources, well-known GitHub environment variables, and local .env files.
package credentials
