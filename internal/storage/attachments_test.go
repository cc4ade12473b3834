package storage

import (
	"bytes"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildFileHeader erzeugt einen Multipart-FileHeader mit dem übergebenen Inhalt
func buildFileHeader(t *testing.T, filename string, content []byte) *multipart.FileHeader {
	t.Helper()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	reader := multipart.NewReader(&body, writer.Boundary())
	form, err := reader.ReadForm(1 << 20)
	require.NoError(t, err)
	t.Cleanup(func() { form.RemoveAll() })

	require.NotEmpty(t, form.File["file"])
	return form.File["file"][0]
}

func TestSaveReturnsStableReference(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	header := buildFileHeader(t, "snapshot.jpg", []byte("image-bytes"))
	name, err := store.Save(header, "plate")
	require.NoError(t, err)

	assert.True(t, strings.Contains(name, "plate_"))
	assert.True(t, strings.HasSuffix(name, ".jpg"))

	content, err := os.ReadFile(filepath.Join(store.BaseDir(), name))
	require.NoError(t, err)
	assert.Equal(t, "image-bytes", string(content))
}

func TestSaveDefaultsExtension(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	header := buildFileHeader(t, "upload", []byte("x"))
	name, err := store.Save(header, "scene")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(name, ".jpg"))
}

func TestSaveNeverCollides(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	header := buildFileHeader(t, "a.jpg", []byte("one"))
	first, err := store.Save(header, "plate")
	require.NoError(t, err)

	header = buildFileHeader(t, "a.jpg", []byte("two"))
	second, err := store.Save(header, "plate")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestRemoveMissingFileIsNoop(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	assert.NoError(t, store.Remove("20240101/plate_missing.jpg"))
	assert.NoError(t, store.Remove(""))
}
