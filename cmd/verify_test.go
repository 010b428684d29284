package cmd

import (
	"crypto/sha256"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckRecordedFile(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	content := []byte("cooked resource table bytes")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "buffers.table"), content, 0o644))
	hash := sha256.Sum256(content)

	assert.Empty(t, checkRecordedFile(dir, "buffers.table", uint64(len(content)), hash))
}

func TestCheckRecordedFileMissing(t *testing.T) {
	t.Parallel()
	hash := sha256.Sum256([]byte("anything"))
	assert.Equal(t, "missing", checkRecordedFile(t.TempDir(), "buffers.table", 8, hash))
}

func TestCheckRecordedFileSizeMismatch(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	content := []byte("short")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "buffers.data"), content, 0o644))
	hash := sha256.Sum256(content)

	detail := checkRecordedFile(dir, "buffers.data", uint64(len(content))+10, hash)
	assert.Contains(t, detail, "size")
	assert.Contains(t, detail, "recorded")
}

func TestCheckRecordedFileTampered(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	content := []byte("original descriptor bytes")
	hash := sha256.Sum256(content)

	tampered := append([]byte(nil), content...)
	tampered[0] ^= 0xFF
	require.NoError(t, os.WriteFile(filepath.Join(dir, "rock.omat"), tampered, 0o644))

	detail := checkRecordedFile(dir, "rock.omat", uint64(len(content)), hash)
	assert.Contains(t, detail, "does not match")
}
