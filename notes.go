package main

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
)

const (
	maxNoteTitleLen   = 100
	maxNoteContentLen = 10000
)

var (
	// Note ids are restricted to this set before any filesystem access; the
	// set has no separators or dots, so a valid id cannot address anything
	// outside the notes root.
	noteIDRegex       = regexp.MustCompile(`^[a-zA-Z0-9_\-\s]+$`)
	noteSanitizeRegex = regexp.MustCompile(`[^a-zA-Z0-9_\-\s]`)

	ErrInvalidID = errors.New("invalid identifier")
)

// Note is a plain-text document keyed by its sanitized title: saving a title
// that sanitizes to an existing id overwrites that note.
type Note struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Content      string    `json:"content"`
	LastModified time.Time `json:"lastModified"`
	Size         int64     `json:"size"`
}

// NoteStore keeps each note as <id>.txt under its own root.
type NoteStore struct {
	basePath string
}

func NewNoteStore(basePath string) *NoteStore {
	return &NoteStore{basePath: basePath}
}

// SanitizeTitle reduces a title to the allow-listed character set and trims
// surrounding whitespace. The result is the note's stable identifier; an
// empty result means the title is unusable.
func SanitizeTitle(title string) string {
	return strings.TrimSpace(noteSanitizeRegex.ReplaceAllString(title, ""))
}

func (n *NoteStore) path(id string) string {
	return filepath.Join(n.basePath, id+".txt")
}

// List returns every note sorted by last modification, newest first. A
// missing notes root yields an empty slice.
func (n *NoteStore) List() ([]Note, error) {
	entries, err := os.ReadDir(n.basePath)
	if err != nil {
		if os.IsNotExist(err) {
			return []Note{}, nil
		}
		return nil, err
	}

	notes := make([]Note, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".txt") {
			continue
		}
		id := strings.TrimSuffix(entry.Name(), ".txt")
		note, err := n.read(id)
		if err != nil {
			continue
		}
		notes = append(notes, note)
	}

	sort.Slice(notes, func(i, j int) bool {
		return notes[i].LastModified.After(notes[j].LastModified)
	})
	return notes, nil
}

// Get fetches one note. Ids outside the allow-listed character set fail with
// ErrInvalidID before storage is touched; that is a 400, not a 404.
func (n *NoteStore) Get(id string) (Note, error) {
	if !noteIDRegex.MatchString(id) {
		return Note{}, ErrInvalidID
	}
	return n.read(id)
}

func (n *NoteStore) read(id string) (Note, error) {
	path := n.path(id)
	content, err := os.ReadFile(path)
	if err != nil {
		return Note{}, ErrNotFound
	}
	info, err := os.Stat(path)
	if err != nil {
		return Note{}, ErrNotFound
	}

	return Note{
		ID:           id,
		Title:        id,
		Content:      string(content),
		LastModified: info.ModTime(),
		Size:         info.Size(),
	}, nil
}

// Upsert writes content under the sanitized title, creating or overwriting.
// Concurrent saves of the same title race benignly: last writer wins.
func (n *NoteStore) Upsert(title, content string) (Note, error) {
	id := SanitizeTitle(title)
	if id == "" {
		return Note{}, ErrInvalidID
	}

	if err := os.MkdirAll(n.basePath, 0755); err != nil {
		return Note{}, err
	}
	if err := os.WriteFile(n.path(id), []byte(content), 0644); err != nil {
		return Note{}, err
	}
	return n.read(id)
}

// Delete removes a note; a second delete of the same id reports ErrNotFound.
func (n *NoteStore) Delete(id string) error {
	if !noteIDRegex.MatchString(id) {
		return ErrInvalidID
	}
	path := n.path(id)
	if _, err := os.Stat(path); err != nil {
		return ErrNotFound
	}
	return os.Remove(path)
}

type noteRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

func validateNote(req *noteRequest) []string {
	var details []string
	req.Title = strings.TrimSpace(req.Title)
	if l := utf8.RuneCountInString(req.Title); l < 1 || l > maxNoteTitleLen {
		details = append(details, "Title must be between 1 and 100 characters")
	}
	if utf8.RuneCountInString(req.Content) > maxNoteContentLen {
		details = append(details, "Content must not exceed 10000 characters")
	}
	return details
}

func (a *API) listNotes(c *gin.Context) {
	notes, err := a.notes.List()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list notes"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"results": len(notes),
		"data":    gin.H{"notes": notes},
	})
}

func (a *API) getNote(c *gin.Context) {
	note, err := a.notes.Get(c.Param("id"))
	if err != nil {
		respondNoteError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "success",
		"data":   gin.H{"note": note},
	})
}

func (a *API) saveNote(c *gin.Context) {
	var req noteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	if details := validateNote(&req); len(details) > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Validation failed", "details": details})
		return
	}

	note, err := a.notes.Upsert(req.Title, req.Content)
	if err != nil {
		if errors.Is(err, ErrInvalidID) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid title"})
			return
		}
		respondNoteError(c, err)
		return
	}

	RecordEvent("note_saved", note.ID)
	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"message": "Note saved successfully",
		"data":    gin.H{"note": note},
	})
}

func (a *API) deleteNote(c *gin.Context) {
	id := c.Param("id")

	if err := a.notes.Delete(id); err != nil {
		respondNoteError(c, err)
		return
	}

	RecordEvent("note_deleted", id)
	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"message": "Note deleted successfully",
	})
}

func respondNoteError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrInvalidID):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid note ID"})
	case errors.Is(err, ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Note not found"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Storage failure"})
	}
}
