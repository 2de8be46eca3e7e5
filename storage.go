package main

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("not found")

// StoredFile describes one uploaded blob. Filename is the on-disk storage
// name; OriginalName is whatever the client called it and may collide across
// uploads, Filename never does.
type StoredFile struct {
	ID           string    `json:"id"`
	OriginalName string    `json:"originalName"`
	Filename     string    `json:"filename"`
	Size         int64     `json:"size"`
	Mimetype     string    `json:"mimetype,omitempty"`
	UploadDate   time.Time `json:"uploadDate"`
}

// Storage owns the uploads root. Nothing else writes into it.
type Storage struct {
	basePath string
}

func NewStorage(basePath string) *Storage {
	return &Storage{basePath: basePath}
}

// storageName decouples the on-disk name from the client-supplied one:
// an upload timestamp and a random id are prefixed, so repeated uploads of
// the same original name never collide.
func storageName(originalName string) string {
	return fmt.Sprintf("%d-%s-%s", time.Now().UnixMilli(), uuid.New().String(), originalName)
}

// originalNameOf strips the timestamp and uuid prefix from a storage name.
// The prefix always occupies the first six dash-separated fields.
func originalNameOf(filename string) string {
	parts := strings.SplitN(filename, "-", 7)
	if len(parts) < 7 {
		return filename
	}
	return parts[6]
}

// Save streams one multipart file into the uploads root under a fresh
// storage name. The file is written to a temp file first and renamed into
// place so a failed upload never leaves a partial blob behind.
func (s *Storage) Save(header *multipart.FileHeader) (StoredFile, error) {
	src, err := header.Open()
	if err != nil {
		return StoredFile{}, err
	}
	defer src.Close()

	if err := os.MkdirAll(s.basePath, 0755); err != nil {
		return StoredFile{}, err
	}

	tempFile, err := os.CreateTemp(s.basePath, "upload-*")
	if err != nil {
		return StoredFile{}, err
	}
	defer os.Remove(tempFile.Name())

	size, err := io.Copy(tempFile, src)
	if err != nil {
		tempFile.Close()
		return StoredFile{}, err
	}
	tempFile.Close()

	original := filepath.Base(header.Filename)
	name := storageName(original)
	if err := os.Rename(tempFile.Name(), filepath.Join(s.basePath, name)); err != nil {
		return StoredFile{}, err
	}

	return StoredFile{
		ID:           uuid.New().String(),
		OriginalName: original,
		Filename:     name,
		Size:         size,
		Mimetype:     header.Header.Get("Content-Type"),
		UploadDate:   time.Now(),
	}, nil
}

// List enumerates the uploads root. A missing root means nothing has been
// uploaded yet and yields an empty slice, not an error. Order is directory
// order; callers wanting chronological order sort by UploadDate.
func (s *Storage) List() ([]StoredFile, error) {
	entries, err := os.ReadDir(s.basePath)
	if err != nil {
		if os.IsNotExist(err) {
			return []StoredFile{}, nil
		}
		return nil, err
	}

	files := make([]StoredFile, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, StoredFile{
			Filename:     entry.Name(),
			OriginalName: originalNameOf(entry.Name()),
			Size:         info.Size(),
			UploadDate:   info.ModTime(),
		})
	}
	return files, nil
}

// Resolve maps a client-supplied storage name to an absolute path inside the
// uploads root. Escaping names fail with ErrAccessDenied before any
// filesystem access; missing files fail with ErrNotFound.
func (s *Storage) Resolve(filename string) (string, error) {
	path, err := secureJoin(s.basePath, filename)
	if err != nil {
		return "", err
	}

	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return "", ErrNotFound
	}
	return path, nil
}

// Remove physically deletes a stored blob. Irreversible; a second call for
// the same name reports ErrNotFound.
func (s *Storage) Remove(filename string) error {
	path, err := s.Resolve(filename)
	if err != nil {
		return err
	}
	return os.Remove(path)
}
