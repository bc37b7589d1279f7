// Package domain defines the provider-neutral repository model shared by the
// migration workflow and the source and destination provider adapters.
//
// The package owns the SourceProvider and DestinationProvider ports. Adapters
// translate provider payloads into these types so the migration services never
// depend on AWS or GitHub SDK types directly.
package domain
