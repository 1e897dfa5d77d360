package util

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, n := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, n), []byte("x"), 0o600))
	}
}

func TestLoadDirectoryImageFiles(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "frame-10.jpg", "frame-2.png", "notes.txt", "b.webp", "a.JPEG", "frame-x.jpg")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested.jpg"), 0o755))

	files, err := LoadDirectoryImageFiles(dir)
	require.NoError(t, err)

	var names []string
	for _, f := range files {
		names = append(names, filepath.Base(f.Path))
	}
	assert.Equal(t, []string{"frame-2.png", "frame-10.jpg", "a.JPEG", "b.webp", "frame-x.jpg"}, names)
	assert.Equal(t, 2, files[0].Frame)
	assert.Equal(t, -1, files[4].Frame)
}

func TestExpandImagePaths(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "clip")
	require.NoError(t, os.Mkdir(sub, 0o755))
	touch(t, dir, "single.png", "readme.md")
	touch(t, sub, "frame-1.jpg", "frame-0.jpg")

	files, err := ExpandImagePaths([]string{filepath.Join(dir, "single.png"), sub})
	require.NoError(t, err)
	require.Len(t, files, 3)
	assert.Equal(t, "single.png", filepath.Base(files[0].Path))
	assert.Equal(t, 0, files[1].Frame)
	assert.Equal(t, 1, files[2].Frame)

	_, err = ExpandImagePaths([]string{filepath.Join(dir, "readme.md")})
	assert.Error(t, err)

	_, err = ExpandImagePaths([]string{filepath.Join(dir, "missing.jpg")})
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestIsSupportedImage(t *testing.T) {
	assert.True(t, IsSupportedImage("a/b/photo.JPG"))
	assert.True(t, IsSupportedImage("capture.webp"))
	assert.False(t, IsSupportedImage("model.onnx"))
	assert.False(t, IsSupportedImage("noext"))
}
