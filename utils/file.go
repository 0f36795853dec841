package utils

import (
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"analyst-ai/chat"
)

// documentMimeTypes covers the staged document types; anything else falls
// back to the system mime table
var documentMimeTypes = map[string]string{
	".pdf":  "application/pdf",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".txt":  "text/plain",
	".html": "text/html",
	".htm":  "text/html",
	".md":   "text/markdown",
	".json": "application/json",
	".csv":  "text/csv",
}

// GetMimeType returns the MIME type based on file extension
func GetMimeType(filePath string) string {
	ext := strings.ToLower(filepath.Ext(filePath))
	if m, ok := documentMimeTypes[ext]; ok {
		return m
	}
	if m := mime.TypeByExtension(ext); m != "" {
		// Remove charset if present
		if idx := strings.Index(m, ";"); idx > 0 {
			m = m[:idx]
		}
		return m
	}
	return "application/octet-stream"
}

// LoadStagedFile describes a file on disk for staging. Content is read when
// the message is sent.
func LoadStagedFile(filePath string) (chat.StagedFile, error) {
	filePath = expandPath(filePath)

	info, err := os.Stat(filePath)
	if err != nil {
		return chat.StagedFile{}, fmt.Errorf("file not found: %w", err)
	}
	if info.IsDir() {
		return chat.StagedFile{}, fmt.Errorf("%s is a directory", filePath)
	}

	return chat.StagedFile{
		Name:     filepath.Base(filePath),
		Size:     info.Size(),
		MimeType: GetMimeType(filePath),
		Open: func() (io.ReadCloser, error) {
			return os.Open(filePath)
		},
	}, nil
}

// FormatFileSize formats file size in human-readable format
func FormatFileSize(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

// FormatSizeMB formats a size the way the attachment list shows it
func FormatSizeMB(bytes int64) string {
	return fmt.Sprintf("%.1fMB", float64(bytes)/(1024*1024))
}
