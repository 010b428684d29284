package platform

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

/**
 * @brief An exclusive advisory lock over a cooked output directory. Builds
 * that target the same output root must not run concurrently, so every run
 * takes this lock before touching the directory.
 */
type BuildLock struct {
	fl *flock.Flock
}

const lockRetryDelay = 250 * time.Millisecond

/**
 * @brief Acquires the build lock for the given output root, waiting until
 * the current holder releases it or the context is cancelled. The lock file
 * lives inside the output root itself.
 * @param ctx The context governing the wait.
 * @param outputRoot The cooked output directory to lock.
 * @returns The held lock, or an error.
 */
func AcquireBuildLock(ctx context.Context, outputRoot string) (*BuildLock, error) {
	if err := os.MkdirAll(outputRoot, 0o755); err != nil {
		return nil, err
	}
	fl := flock.New(filepath.Join(outputRoot, ".kiln.lock"))
	locked, err := fl.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return nil, fmt.Errorf("acquire build lock for %s: %w", outputRoot, err)
	}
	if !locked {
		return nil, fmt.Errorf("acquire build lock for %s: lock not granted", outputRoot)
	}
	return &BuildLock{fl: fl}, nil
}

/**
 * @brief Releases the lock.
 */
func (b *BuildLock) Release() error {
	return b.fl.Unlock()
}
