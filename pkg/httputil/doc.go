// Package httputil provides HTTP helpers shared by the Maven Central client:
// a file-based response cache keyed by SHA-256 hashes and a retry helper
// with exponential backoff for transient failures.
//
// Retries are opt-in. Only errors wrapped in [RetryableError] are retried,
// and the caller chooses the attempt count; a count of one means a single
// try with no retry at all.
package httputil
