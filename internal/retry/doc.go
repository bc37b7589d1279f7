// Package retry wraps provider calls in a bounded exponential backoff policy
// combined with a client-side request rate limit.
package retry
