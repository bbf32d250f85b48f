// Package repolock implements the repo lock: a per-path advisory
// lock guarding concurrent plan/apply passes over the same checkout,
// with an on-disk (POSIX advisory flock) implementation for real
// checkouts and an in-memory (per-path mutex) implementation for tests
// and single-process embeddings.
//
// The on-disk implementation (TryLock/Unlock via non-blocking
// syscall.FcntlFlock) is adapted from a single process-wide file lock
// into a per-path keyed lock store.
package repolock

import (
	"context"

	"github.com/autoschematic-sh/autoschematic/internal/taxonomy"
)

// Lock is a held repo lock. Unlock is idempotent: calling it more than
// once (including after the original holder has already released it
// via a deferred call) is a no-op, never an error and never a double
// release of the underlying OS resource.
type Lock interface {
	Unlock() error
}

// Locker acquires per-path locks. TryLock returns a taxonomy.IO error
// immediately if path is already locked by someone else; it never
// blocks.
type Locker interface {
	TryLock(ctx context.Context, path string) (Lock, error)
}

func errContended(path string) error {
	return taxonomy.New(taxonomy.IO, "path %q is already locked", path)
}
