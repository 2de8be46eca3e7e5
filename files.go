package main

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	maxUploadFiles    = 5
	maxUploadFileSize = 50 << 20 // 50MB per file
)

// Allowed upload formats and the declared content types accepted for each.
// An empty or generic octet-stream declaration passes as long as the
// extension itself is allow-listed.
var allowedUploadTypes = map[string][]string{
	"jpg":  {"image/jpeg"},
	"jpeg": {"image/jpeg"},
	"png":  {"image/png"},
	"gif":  {"image/gif"},
	"pdf":  {"application/pdf"},
	"doc":  {"application/msword"},
	"docx": {"application/vnd.openxmlformats-officedocument.wordprocessingml.document"},
	"txt":  {"text/plain"},
	"zip":  {"application/zip", "application/x-zip-compressed"},
	"rar":  {"application/x-rar-compressed", "application/vnd.rar"},
	"mp3":  {"audio/mpeg"},
	"mp4":  {"video/mp4"},
	"avi":  {"video/x-msvideo"},
}

func fileTypeAllowed(name, declared string) bool {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
	accepted, ok := allowedUploadTypes[ext]
	if !ok {
		return false
	}

	declared = strings.ToLower(strings.TrimSpace(declared))
	if declared == "" || declared == "application/octet-stream" {
		return true
	}
	if i := strings.Index(declared, ";"); i >= 0 {
		declared = strings.TrimSpace(declared[:i])
	}
	for _, mimeType := range accepted {
		if declared == mimeType {
			return true
		}
	}
	return false
}

// validateUpload checks the whole batch against the count, size and type
// limits. A zero status means the batch is acceptable; any violation rejects
// every file in it.
func validateUpload(files []*multipart.FileHeader) (int, string) {
	if len(files) == 0 {
		return http.StatusBadRequest, "No files uploaded"
	}
	if len(files) > maxUploadFiles {
		return http.StatusBadRequest, fmt.Sprintf("Too many files: maximum is %d per upload", maxUploadFiles)
	}
	for _, header := range files {
		if header.Size > maxUploadFileSize {
			return http.StatusRequestEntityTooLarge,
				fmt.Sprintf("File too large: %s exceeds the 50MB limit", filepath.Base(header.Filename))
		}
		if !fileTypeAllowed(header.Filename, header.Header.Get("Content-Type")) {
			return http.StatusBadRequest,
				fmt.Sprintf("File type not allowed: %s", filepath.Base(header.Filename))
		}
	}
	return 0, ""
}

// uploadFiles accepts up to maxUploadFiles multipart files under the "files"
// field. The whole batch is validated before a single byte hits the uploads
// root: any violation rejects every file in the request.
func (a *API) uploadFiles(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No files uploaded"})
		return
	}

	files := form.File["files"]
	if status, msg := validateUpload(files); status != 0 {
		c.JSON(status, gin.H{"error": msg})
		return
	}

	uploaded := make([]StoredFile, 0, len(files))
	for _, header := range files {
		stored, err := a.storage.Save(header)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store file"})
			return
		}
		RecordEvent("upload", stored.Filename)
		uploaded = append(uploaded, stored)
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"message": fmt.Sprintf("%d file(s) uploaded successfully", len(uploaded)),
		"data":    gin.H{"files": uploaded},
	})
}

func (a *API) listFiles(c *gin.Context) {
	files, err := a.storage.List()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list files"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"results": len(files),
		"data":    gin.H{"files": files},
	})
}

func (a *API) downloadFile(c *gin.Context) {
	filename := c.Param("filename")

	path, err := a.storage.Resolve(filename)
	if err != nil {
		respondFileError(c, err)
		return
	}

	RecordEvent("download", filename)
	c.FileAttachment(path, originalNameOf(filename))
}

func (a *API) deleteFile(c *gin.Context) {
	filename := c.Param("filename")

	if err := a.storage.Remove(filename); err != nil {
		respondFileError(c, err)
		return
	}

	RecordEvent("delete", filename)
	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"message": "File deleted successfully",
	})
}

// respondFileError maps storage errors onto the HTTP surface: escaping paths
// are 403, missing files 404, anything else a generic 500.
func respondFileError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrAccessDenied):
		c.JSON(http.StatusForbidden, gin.H{"error": "Access denied"})
	case errors.Is(err, ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "File not found"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Storage failure"})
	}
}
