package services

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/collagesync/server/internal/models"
)

func newTestStorage(t *testing.T) *PhotoStorageService {
	t.Helper()
	svc, err := NewPhotoStorageService(t.TempDir(), nil, 50)
	require.NoError(t, err)
	return svc
}

func storeBytes(t *testing.T, svc *PhotoStorageService, name string, taken time.Time) string {
	t.Helper()
	content := []byte("fake image content")
	path, err := svc.Store(bytes.NewReader(content), name, taken, int64(len(content)))
	require.NoError(t, err)
	return path
}

func TestPhotoStorageService_Store(t *testing.T) {
	t.Run("stores file under Year/Month", func(t *testing.T) {
		svc := newTestStorage(t)

		taken := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
		path := storeBytes(t, svc, "beach.jpg", taken)

		assert.True(t, strings.HasPrefix(path, "2026/03/"))
		assert.True(t, strings.HasSuffix(path, ".jpg"))
		assert.True(t, svc.Exists(path))
	})

	t.Run("keeps duplicate filenames distinct", func(t *testing.T) {
		svc := newTestStorage(t)

		taken := time.Date(2026, 6, 20, 0, 0, 0, 0, time.UTC)
		path1 := storeBytes(t, svc, "duplicate.jpg", taken)
		path2 := storeBytes(t, svc, "duplicate.jpg", taken)

		assert.NotEqual(t, path1, path2)
		assert.True(t, svc.Exists(path1))
		assert.True(t, svc.Exists(path2))
	})

	t.Run("rejects oversized file", func(t *testing.T) {
		svc, err := NewPhotoStorageService(t.TempDir(), nil, 1)
		require.NoError(t, err)

		_, err = svc.Store(bytes.NewReader([]byte("x")), "big.jpg", time.Now(), 2*1024*1024)
		assert.ErrorIs(t, err, models.ErrFileTooLarge)
	})

	t.Run("rejects disallowed extensions", func(t *testing.T) {
		svc := newTestStorage(t)

		for _, ext := range []string{".exe", ".bat", ".sh", ".php"} {
			_, err := svc.Store(bytes.NewReader([]byte("content")), "file"+ext, time.Now(), 7)
			assert.ErrorIs(t, err, models.ErrInvalidExtension, "extension %s", ext)
		}
	})

	t.Run("sanitizes path traversal attempts", func(t *testing.T) {
		svc := newTestStorage(t)

		for _, name := range []string{
			"../../../etc/passwd.jpg",
			"..\\..\\windows\\system32.jpg",
			"/etc/passwd.jpg",
		} {
			path := storeBytes(t, svc, name, time.Now())
			assert.NotContains(t, path, "..")
			assert.NotContains(t, path, "/etc/")
			assert.NotContains(t, path, "\\windows\\")
		}
	})
}

func TestPhotoStorageService_Delete(t *testing.T) {
	t.Run("deletes existing file", func(t *testing.T) {
		svc := newTestStorage(t)

		path := storeBytes(t, svc, "delete_me.jpg", time.Now())
		require.True(t, svc.Exists(path))

		assert.True(t, svc.Delete(path))
		assert.False(t, svc.Exists(path))
	})

	t.Run("returns false for missing file", func(t *testing.T) {
		svc := newTestStorage(t)
		assert.False(t, svc.Delete("2026/01/nonexistent.jpg"))
	})
}

func TestPhotoStorageService_GetFullPath(t *testing.T) {
	t.Run("rejects path traversal", func(t *testing.T) {
		svc := newTestStorage(t)

		_, err := svc.GetFullPath("../../../etc/passwd")
		assert.Error(t, err)
	})

	t.Run("rejects empty path", func(t *testing.T) {
		svc := newTestStorage(t)

		_, err := svc.GetFullPath("  ")
		assert.Error(t, err)
	})
}
