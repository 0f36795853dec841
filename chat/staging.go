package chat

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

// DefaultMaxFileSize is the per-file upload limit
const DefaultMaxFileSize int64 = 20 * 1024 * 1024

// DefaultAllowedExtensions lists the document types accepted for staging
var DefaultAllowedExtensions = []string{".pdf", ".docx", ".txt", ".html"}

// StagedFile is an attachment waiting for the next send. Its content is read
// through Open only when the message is composed.
type StagedFile struct {
	Name     string
	Size     int64
	MimeType string
	Open     func() (io.ReadCloser, error)
}

// NewStagedFile creates a staged file from in-memory content
func NewStagedFile(name, mimeType string, data []byte) StagedFile {
	return StagedFile{
		Name:     name,
		Size:     int64(len(data)),
		MimeType: mimeType,
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		},
	}
}

func (f StagedFile) sameAs(other StagedFile) bool {
	return f.Name == other.Name && f.Size == other.Size
}

// StagingArea is the ordered set of pending attachments, unique by name and size
type StagingArea struct {
	files       []StagedFile
	extensions  []string
	allowed     map[string]bool
	maxFileSize int64
}

// NewStagingArea creates a staging area. Empty arguments fall back to the defaults.
func NewStagingArea(allowedExtensions []string, maxFileSize int64) *StagingArea {
	if len(allowedExtensions) == 0 {
		allowedExtensions = DefaultAllowedExtensions
	}
	if maxFileSize <= 0 {
		maxFileSize = DefaultMaxFileSize
	}

	s := &StagingArea{allowed: make(map[string]bool), maxFileSize: maxFileSize}
	for _, ext := range allowedExtensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		if !s.allowed[ext] {
			s.allowed[ext] = true
			s.extensions = append(s.extensions, ext)
		}
	}
	return s
}

// Add stages a file. Unsupported types and oversized files are rejected with
// a ValidationError; a file already staged with the same name and size is ignored.
func (s *StagingArea) Add(f StagedFile) error {
	ext := strings.ToLower(filepath.Ext(f.Name))
	if !s.allowed[ext] {
		return &ValidationError{Field: "file", Reason: fmt.Sprintf("%s: please upload %s files only", f.Name, s.describeAllowed())}
	}
	if f.Size > s.maxFileSize {
		return &ValidationError{Field: "file", Reason: fmt.Sprintf("%s is too large: %d bytes (max %d bytes)", f.Name, f.Size, s.maxFileSize)}
	}
	if f.Open == nil {
		return &ValidationError{Field: "file", Reason: fmt.Sprintf("%s has no readable content", f.Name)}
	}

	for _, existing := range s.files {
		if existing.sameAs(f) {
			return nil
		}
	}
	s.files = append(s.files, f)
	return nil
}

// Remove drops the file at index; out-of-range indexes are ignored
func (s *StagingArea) Remove(index int) {
	if index < 0 || index >= len(s.files) {
		return
	}
	s.files = append(s.files[:index], s.files[index+1:]...)
}

// Clear removes every staged file
func (s *StagingArea) Clear() {
	s.files = nil
}

// Len returns the number of staged files
func (s *StagingArea) Len() int {
	return len(s.files)
}

// Files returns a copy of the staged files in insertion order
func (s *StagingArea) Files() []StagedFile {
	out := make([]StagedFile, len(s.files))
	copy(out, s.files)
	return out
}

// removeSent drops the files that were part of a completed send
func (s *StagingArea) removeSent(sent []StagedFile) {
	kept := s.files[:0]
	for _, f := range s.files {
		transmitted := false
		for _, done := range sent {
			if f.sameAs(done) {
				transmitted = true
				break
			}
		}
		if !transmitted {
			kept = append(kept, f)
		}
	}
	s.files = kept
}

func (s *StagingArea) describeAllowed() string {
	names := make([]string, len(s.extensions))
	for i, ext := range s.extensions {
		names[i] = strings.ToUpper(strings.TrimPrefix(ext, "."))
	}
	return strings.Join(names, ", ")
}
