// Package replay gives action codes their single-use semantics.
//
// It wraps a cachestore.Store scoped to one flow kind and records, per code,
// either the terminal HTTP outcome of a code that has already been resolved
// (the literal strings "404", "409", "410") or the subject id a freshly
// issued code maps to (a fast path that skips signature verification on hot
// codes). The same store also carries send-throttle markers keyed by
// recipient identity.
package replay
