/*
Package cooker drives a cook run: imported assets are grouped by mount
point and, per mount, cooked into the resource tables, descriptor files
and container index under the output root. Cooking is incremental by
construction: a prior container is merged with, never rebuilt, so table
slots bound by descriptors from earlier runs stay valid.

A failure cooks no further assets for that mount but leaves other mounts
untouched; the index of a failed mount is never rewritten.
*/
package cooker

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/spaghettifunk/kiln/pipeline/core"
	"github.com/spaghettifunk/kiln/pipeline/metadata"
	"github.com/spaghettifunk/kiln/pipeline/platform"
)

var (
	// ErrNoMountPoint reports an asset whose virtual path has no leading
	// directory to cook into.
	ErrNoMountPoint = errors.New("asset virtual path has no mount point")
	// ErrCorruptContainer reports prior cooked files that do not match
	// what their index records.
	ErrCorruptContainer = errors.New("cooked container state is corrupt")
	// ErrContentVersionMismatch reports a prior container cooked with a
	// different content version. Such a mount needs a clean rebuild.
	ErrContentVersionMismatch = errors.New("prior container content version differs")
)

/**
 * @brief Cooks batches of imported assets into per mount point containers.
 */
type Cooker struct {
	fs             platform.FileSystem
	outputRoot     string
	contentVersion uint16
}

/**
 * @brief Creates a cooker writing containers under outputRoot, stamping
 * every index it writes with contentVersion.
 */
func New(fs platform.FileSystem, outputRoot string, contentVersion uint16) *Cooker {
	return &Cooker{
		fs:             fs,
		outputRoot:     outputRoot,
		contentVersion: contentVersion,
	}
}

/**
 * @brief Cooks one batch of imported assets. Assets are grouped by mount
 * point and each mount is cooked independently; an error in one mount
 * does not stop the others, and the returned error joins every per mount
 * failure. Cancellation is honoured between assets and between mounts.
 */
func (c *Cooker) Cook(ctx context.Context, assets []*metadata.ImportedAsset) error {
	batches := map[string][]*metadata.ImportedAsset{}
	var errs []error
	for _, asset := range assets {
		mount := mountPoint(asset.VirtualPath)
		if mount == "" {
			errs = append(errs, fmt.Errorf("asset %q: %w", asset.VirtualPath, ErrNoMountPoint))
			continue
		}
		batches[mount] = append(batches[mount], asset)
	}

	mounts := make([]string, 0, len(batches))
	for mount := range batches {
		mounts = append(mounts, mount)
	}
	sort.Strings(mounts)

	for _, mount := range mounts {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if err := c.cookMount(ctx, mount, prepareBatch(batches[mount])); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				errs = append(errs, err)
				break
			}
			core.LogError("cook of mount %s failed: %v", mount, err)
			errs = append(errs, fmt.Errorf("mount %s: %w", mount, err))
		}
	}
	return errors.Join(errs...)
}

// mountPoint returns the first path component of a virtual path, or ""
// when the path has no directory component to serve as one.
func mountPoint(virtualPath string) string {
	mount, rest, found := strings.Cut(virtualPath, "/")
	if !found || mount == "" || rest == "" {
		return ""
	}
	return mount
}

// prepareBatch deduplicates a mount's assets by key, the last occurrence
// winning, and sorts them by virtual path so cook order and with it every
// table slot assignment is independent of import order.
func prepareBatch(batch []*metadata.ImportedAsset) []*metadata.ImportedAsset {
	byKey := make(map[metadata.AssetKey]int, len(batch))
	deduped := make([]*metadata.ImportedAsset, 0, len(batch))
	for _, asset := range batch {
		if at, seen := byKey[asset.Key]; seen {
			deduped[at] = asset
			continue
		}
		byKey[asset.Key] = len(deduped)
		deduped = append(deduped, asset)
	}
	sort.Slice(deduped, func(i, j int) bool {
		return deduped[i].VirtualPath < deduped[j].VirtualPath
	})
	return deduped
}
