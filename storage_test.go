package main

import (
	"bytes"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeFileHeader(t *testing.T, filename, contentType string, content []byte) *multipart.FileHeader {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="files"; filename="%s"`, filename))
	h.Set("Content-Type", contentType)
	part, err := w.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	form, err := multipart.NewReader(&buf, w.Boundary()).ReadForm(32 << 20)
	require.NoError(t, err)
	t.Cleanup(func() { form.RemoveAll() })

	headers := form.File["files"]
	require.Len(t, headers, 1)
	return headers[0]
}

func TestStorageSaveAndList(t *testing.T) {
	storage := NewStorage(filepath.Join(t.TempDir(), "uploads"))

	first, err := storage.Save(makeFileHeader(t, "report.txt", "text/plain", []byte("hello")))
	require.NoError(t, err)
	second, err := storage.Save(makeFileHeader(t, "report.txt", "text/plain", []byte("world")))
	require.NoError(t, err)

	assert.Equal(t, "report.txt", first.OriginalName)
	assert.Equal(t, "report.txt", second.OriginalName)
	assert.NotEqual(t, first.Filename, second.Filename, "same original name must map to distinct storage names")
	assert.Equal(t, int64(5), first.Size)

	files, err := storage.List()
	require.NoError(t, err)
	require.Len(t, files, 2)
	for _, f := range files {
		assert.Equal(t, "report.txt", f.OriginalName)
		assert.Equal(t, int64(5), f.Size)
	}
}

func TestStorageListMissingRoot(t *testing.T) {
	storage := NewStorage(filepath.Join(t.TempDir(), "never-created"))

	files, err := storage.List()
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestStorageResolve(t *testing.T) {
	storage := NewStorage(t.TempDir())

	stored, err := storage.Save(makeFileHeader(t, "pic.png", "image/png", []byte("png-bytes")))
	require.NoError(t, err)

	path, err := storage.Resolve(stored.Filename)
	require.NoError(t, err)
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte("png-bytes"), content)

	_, err = storage.Resolve("no-such-file.png")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = storage.Resolve("../../etc/passwd")
	assert.ErrorIs(t, err, ErrAccessDenied)
}

func TestStorageRemoveIsIdempotentAtTheAPI(t *testing.T) {
	storage := NewStorage(t.TempDir())

	stored, err := storage.Save(makeFileHeader(t, "gone.txt", "text/plain", []byte("bye")))
	require.NoError(t, err)

	require.NoError(t, storage.Remove(stored.Filename))
	assert.ErrorIs(t, storage.Remove(stored.Filename), ErrNotFound)
}

func TestOriginalNameOf(t *testing.T) {
	name := storageName("my-summer-photo.jpg")
	assert.Equal(t, "my-summer-photo.jpg", originalNameOf(name))

	// Names without the expected prefix come back untouched.
	assert.Equal(t, "plain.txt", originalNameOf("plain.txt"))
}

func TestFileTypeAllowed(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		declared string
		want     bool
	}{
		{"jpeg image", "photo.jpg", "image/jpeg", true},
		{"uppercase extension", "PHOTO.JPG", "image/jpeg", true},
		{"pdf", "doc.pdf", "application/pdf", true},
		{"txt", "note.txt", "text/plain", true},
		{"octet-stream fallback", "archive.zip", "application/octet-stream", true},
		{"no declared type", "song.mp3", "", true},
		{"charset parameter", "note.txt", "text/plain; charset=utf-8", true},
		{"executable", "malware.exe", "application/octet-stream", false},
		{"shell script", "run.sh", "text/x-shellscript", false},
		{"mismatched declaration", "photo.jpg", "text/html", false},
		{"no extension", "README", "text/plain", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, fileTypeAllowed(tt.filename, tt.declared))
		})
	}
}

func TestValidateUpload(t *testing.T) {
	okHeader := func(name string) *multipart.FileHeader {
		return &multipart.FileHeader{
			Filename: name,
			Size:     64,
			Header:   textproto.MIMEHeader{"Content-Type": []string{"text/plain"}},
		}
	}

	t.Run("empty batch", func(t *testing.T) {
		status, _ := validateUpload(nil)
		assert.Equal(t, http.StatusBadRequest, status)
	})

	t.Run("six files rejected", func(t *testing.T) {
		var batch []*multipart.FileHeader
		for i := 0; i < 6; i++ {
			batch = append(batch, okHeader(fmt.Sprintf("f%d.txt", i)))
		}
		status, _ := validateUpload(batch)
		assert.Equal(t, http.StatusBadRequest, status)
	})

	t.Run("five files accepted", func(t *testing.T) {
		var batch []*multipart.FileHeader
		for i := 0; i < 5; i++ {
			batch = append(batch, okHeader(fmt.Sprintf("f%d.txt", i)))
		}
		status, _ := validateUpload(batch)
		assert.Zero(t, status)
	})

	t.Run("oversize file rejected with 413", func(t *testing.T) {
		big := okHeader("big.txt")
		big.Size = maxUploadFileSize + 1
		status, _ := validateUpload([]*multipart.FileHeader{big})
		assert.Equal(t, http.StatusRequestEntityTooLarge, status)
	})

	t.Run("one bad file rejects the batch", func(t *testing.T) {
		bad := okHeader("bad.exe")
		status, _ := validateUpload([]*multipart.FileHeader{okHeader("good.txt"), bad})
		assert.Equal(t, http.StatusBadRequest, status)
	})
}
