package sandbox

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func realTempDir(t *testing.T) string {
	t.Helper()
	dir, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	return dir
}

func TestValidatePathWithinRoot(t *testing.T) {
	root := realTempDir(t)

	got, err := ValidatePath(root, "assets/index.html")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "assets", "index.html"), got)
}

func TestValidatePathRootItself(t *testing.T) {
	root := realTempDir(t)

	got, err := ValidatePath(root, ".")
	require.NoError(t, err)
	assert.Equal(t, root, got)
}

func TestValidatePathRejectsDotDot(t *testing.T) {
	root := realTempDir(t)

	_, err := ValidatePath(root, "../escape.html")
	assert.ErrorContains(t, err, "outside")

	_, err = ValidatePath(root, "a/b/../../../escape.html")
	assert.ErrorContains(t, err, "outside")
}

func TestValidatePathRejectsSymlinkEscape(t *testing.T) {
	root := realTempDir(t)
	outside := realTempDir(t)
	require.NoError(t, os.Symlink(outside, filepath.Join(root, "link")))

	_, err := ValidatePath(root, "link/report.txt")
	assert.ErrorContains(t, err, "outside")
}

func TestValidatePathAllowsInternalSymlink(t *testing.T) {
	root := realTempDir(t)
	require.NoError(t, os.MkdirAll(filepath.Join(root, "real"), 0755))
	require.NoError(t, os.Symlink(filepath.Join(root, "real"), filepath.Join(root, "alias")))

	got, err := ValidatePath(root, "alias/file.txt")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "real", "file.txt"), got)
}

func TestValidatePathInvalidRoot(t *testing.T) {
	_, err := ValidatePath("/nonexistent/root/for/sure", "file")
	assert.Error(t, err)
}

func TestSafeWriteCreatesNestedFile(t *testing.T) {
	root := realTempDir(t)

	require.NoError(t, SafeWrite(root, "reports/deep/report.txt", []byte("ok"), 0644))

	data, err := os.ReadFile(filepath.Join(root, "reports", "deep", "report.txt"))
	require.NoError(t, err)
	assert.Equal(t, "ok", string(data))
}

func TestSafeWriteOverwrites(t *testing.T) {
	root := realTempDir(t)

	require.NoError(t, SafeWrite(root, "index.html", []byte("one"), 0644))
	require.NoError(t, SafeWrite(root, "index.html", []byte("two"), 0644))

	data, err := os.ReadFile(filepath.Join(root, "index.html"))
	require.NoError(t, err)
	assert.Equal(t, "two", string(data))
}

func TestSafeWriteRejectsEscape(t *testing.T) {
	root := realTempDir(t)
	assert.Error(t, SafeWrite(root, "../escape.html", []byte("x"), 0644))
}

func TestCleanDirRemovesContents(t *testing.T) {
	root := realTempDir(t)
	dist := filepath.Join(root, "dist")
	require.NoError(t, os.MkdirAll(filepath.Join(dist, "assets"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dist, "old.js"), []byte("x"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dist, "assets", "logo.png"), []byte("x"), 0644))

	require.NoError(t, CleanDir(dist, filepath.Join(root, "src", "index.js")))

	entries, err := os.ReadDir(dist)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestCleanDirMissingIsNoop(t *testing.T) {
	root := realTempDir(t)
	assert.NoError(t, CleanDir(filepath.Join(root, "never-built")))
}

func TestCleanDirRefusesProtected(t *testing.T) {
	root := realTempDir(t)
	entry := filepath.Join(root, "src", "index.js")
	require.NoError(t, os.MkdirAll(filepath.Dir(entry), 0755))
	require.NoError(t, os.WriteFile(entry, []byte("x"), 0644))

	err := CleanDir(root, entry)
	assert.ErrorContains(t, err, "refusing to clean")

	_, statErr := os.Stat(entry)
	assert.NoError(t, statErr, "protected file must survive")
}

func TestCleanDirRefusesFilesystemRoot(t *testing.T) {
	err := CleanDir(string(filepath.Separator))
	assert.ErrorContains(t, err, "filesystem root")
}
