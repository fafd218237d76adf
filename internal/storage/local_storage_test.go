package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorage_PutDelete(t *testing.T) {
	dir := t.TempDir()
	s := NewLocalStorage(dir, "/uploads/")
	ctx := context.Background()

	key := NewObjectKey("reviews/12", "Photo.JPG")
	assert.True(t, strings.HasPrefix(key, "reviews/12/"))
	assert.True(t, strings.HasSuffix(key, ".jpg"))

	require.NoError(t, s.Put(ctx, key, strings.NewReader("data"), 4, "image/jpeg"))
	content, err := os.ReadFile(filepath.Join(dir, key))
	require.NoError(t, err)
	assert.Equal(t, "data", string(content))
	assert.Equal(t, "/uploads/"+key, s.URL(key))

	require.NoError(t, s.Delete(ctx, key))
	require.NoError(t, s.Delete(ctx, key), "deleting a missing file is not an error")
}

func TestLocalStorage_KeyCannotEscapeDir(t *testing.T) {
	dir := t.TempDir()
	s := NewLocalStorage(dir, "/uploads")

	require.NoError(t, s.Put(context.Background(), "../../escape.txt", strings.NewReader("x"), 1, "text/plain"))
	_, err := os.Stat(filepath.Join(dir, "escape.txt"))
	assert.NoError(t, err)
}

func TestValidateFileSize(t *testing.T) {
	assert.NoError(t, ValidateFileSize(10, 10))
	assert.Error(t, ValidateFileSize(11, 10))
	assert.NoError(t, ValidateFileSize(11, 0))
}
