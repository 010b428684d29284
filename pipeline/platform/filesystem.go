/*
Package platform is the seam between the pipeline and the host OS. The
cooker performs all file access through the FileSystem interface so that
every I/O suspension point is explicit and the orchestration above it stays
testable against temporary directories.
*/
package platform

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

/**
 * @brief Metadata for a single file, obtained without reading its contents.
 */
type FileMetadata struct {
	/** @brief The file size in bytes. */
	Size int64
	/** @brief The last modification time. */
	ModTime time.Time
	/** @brief Indicates if the path names a directory. */
	IsDir bool
}

/**
 * @brief Path-addressed file access. Implementations must return an error
 * satisfying IsNotFound for missing paths, and must make WriteAllBytes
 * all-or-nothing: a reader never observes a partially written file.
 */
type FileSystem interface {
	ReadAllBytes(ctx context.Context, path string) ([]byte, error)
	WriteAllBytes(ctx context.Context, path string, data []byte) error
	GetMetadata(ctx context.Context, path string) (FileMetadata, error)
}

// IsNotFound reports whether err indicates a missing file, which callers
// treat as empty state on first build rather than as a failure.
func IsNotFound(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}

type osFileSystem struct{}

// New returns the host filesystem.
func New() FileSystem {
	return &osFileSystem{}
}

func (*osFileSystem) ReadAllBytes(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return os.ReadFile(path)
}

// WriteAllBytes writes through a temporary file in the destination directory
// and renames it into place, so a crash mid-write never leaves a truncated
// file at the destination. Parent directories are created as needed.
func (*osFileSystem) WriteAllBytes(ctx context.Context, path string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".kiln-tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}

func (*osFileSystem) GetMetadata(ctx context.Context, path string) (FileMetadata, error) {
	if err := ctx.Err(); err != nil {
		return FileMetadata{}, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return FileMetadata{}, err
	}
	return FileMetadata{
		Size:    info.Size(),
		ModTime: info.ModTime(),
		IsDir:   info.IsDir(),
	}, nil
}
