// Package hostlock serializes benchmark runs that share a lock file, so
// concurrent invocations on one machine do not perturb each other's timings.
package hostlock

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

// DefaultRetry is how often a held lock is polled.
const DefaultRetry = 100 * time.Millisecond

// Lock is an acquired host lock.
type Lock struct {
	f *flock.Flock
}

// Acquire blocks until the lock file at path is held or ctx is done. The
// parent directory is created if needed.
func Acquire(ctx context.Context, path string, retry time.Duration) (*Lock, error) {
	if retry <= 0 {
		retry = DefaultRetry
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("lock directory: %w", err)
		}
	}
	f := flock.New(path)
	ok, err := f.TryLockContext(ctx, retry)
	if err != nil {
		return nil, fmt.Errorf("acquire lock %s: %w", path, err)
	}
	if !ok {
		return nil, fmt.Errorf("acquire lock %s: not acquired", path)
	}
	return &Lock{f: f}, nil
}

// Path returns the lock file path.
func (l *Lock) Path() string {
	return l.f.Path()
}

// Release unlocks. It is safe to call on a nil Lock.
func (l *Lock) Release() error {
	if l == nil || l.f == nil {
		return nil
	}
	return l.f.Unlock()
}
