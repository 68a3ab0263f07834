package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Locker is implemented by stores that several processes share. The
// engine holds the lock across reload, mutate and save.
type Locker interface {
	Lock(ctx context.Context) (unlock func(), err error)
}

// lockRetry is how often a contended lock is tried again.
const lockRetry = 20 * time.Millisecond

// lockFile takes an exclusive advisory lock on path, creating it when
// missing, and waits until the lock is free or ctx ends.
func lockFile(ctx context.Context, path string) (func(), error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create lock dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open lock file: %w", err)
	}
	for {
		ok, err := tryLock(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("lock %s: %w", path, err)
		}
		if ok {
			return func() {
				unlockFile(f)
				f.Close()
			}, nil
		}
		select {
		case <-ctx.Done():
			f.Close()
			return nil, fmt.Errorf("lock %s: %w", path, ctx.Err())
		case <-time.After(lockRetry):
		}
	}
}

// Lock guards the state file with a sibling .lock file.
func (f *FileStore) Lock(ctx context.Context) (func(), error) {
	return lockFile(ctx, f.Path+".lock")
}

// Lock guards the database with a sibling .lock file. SQLite's own
// locking covers single statements only.
func (s *SQLiteStore) Lock(ctx context.Context) (func(), error) {
	return lockFile(ctx, s.path+".lock")
}
