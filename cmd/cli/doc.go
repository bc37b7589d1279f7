// Package cli constructs the repomigrate command-line interface. It loads
// layered configuration, builds the zap logger, and runs the migration
// command as the root of the Cobra hierarchy.
package cli
