package utils

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"analyst-ai/chat"
)

// ExportFormat represents the export format
type ExportFormat string

const (
	FormatJSON     ExportFormat = "json"
	FormatYAML     ExportFormat = "yaml"
	FormatMarkdown ExportFormat = "markdown"
)

// PrefixExport is the file layout for exported prompt prefixes
type PrefixExport struct {
	Metadata map[string]string `json:"metadata" yaml:"metadata"`
	Prefixes []PrefixEntry     `json:"prefixes" yaml:"prefixes"`
}

// PrefixEntry is one exported prefix. IDs are not carried over on import.
type PrefixEntry struct {
	Name    string `json:"name" yaml:"name"`
	Content string `json:"content" yaml:"content"`
}

// FormatForPath picks the export format from a file extension
func FormatForPath(path string) ExportFormat {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	case ".md", ".markdown":
		return FormatMarkdown
	default:
		return FormatJSON
	}
}

// ExportPrefixes writes prefixes to path as JSON or YAML
func ExportPrefixes(prefixes []chat.Prefix, path string) error {
	export := PrefixExport{
		Metadata: map[string]string{
			"export_version": "1.0",
			"export_date":    time.Now().Format(time.RFC3339),
			"app_name":       "Analyst AI",
		},
		Prefixes: make([]PrefixEntry, 0, len(prefixes)),
	}
	for _, p := range prefixes {
		export.Prefixes = append(export.Prefixes, PrefixEntry{Name: p.Name, Content: p.Content})
	}

	var data []byte
	var err error
	switch FormatForPath(path) {
	case FormatYAML:
		data, err = yaml.Marshal(export)
	case FormatJSON:
		data, err = json.MarshalIndent(export, "", "  ")
	default:
		return fmt.Errorf("unsupported prefix export format for %s", path)
	}
	if err != nil {
		return fmt.Errorf("failed to marshal prefixes: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	return nil
}

// ReadPrefixes reads a prefix export file. Entries without a name or content
// are skipped.
func ReadPrefixes(path string) ([]PrefixEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var export PrefixExport
	switch FormatForPath(path) {
	case FormatYAML:
		err = yaml.Unmarshal(data, &export)
	case FormatJSON:
		err = json.Unmarshal(data, &export)
	default:
		return nil, fmt.Errorf("unsupported prefix import format for %s", path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse prefixes: %w", err)
	}

	entries := make([]PrefixEntry, 0, len(export.Prefixes))
	for _, e := range export.Prefixes {
		if strings.TrimSpace(e.Name) == "" || strings.TrimSpace(e.Content) == "" {
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// PrefixSaver is the part of chat.App used to import prefixes
type PrefixSaver interface {
	SavePrefix(editingID, name, content string, autoApply bool) (chat.Prefix, error)
}

// ImportPrefixes creates a new prefix for every entry in the file and returns
// how many were created
func ImportPrefixes(saver PrefixSaver, path string) (int, error) {
	entries, err := ReadPrefixes(path)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, e := range entries {
		if _, err := saver.SavePrefix("", e.Name, e.Content, false); err != nil {
			return count, fmt.Errorf("failed to import prefix %q: %w", e.Name, err)
		}
		count++
	}
	return count, nil
}

// TranscriptToMarkdown renders the visible conversation as Markdown
func TranscriptToMarkdown(messages []chat.Message) string {
	var sb strings.Builder

	sb.WriteString("# Analyst AI conversation\n\n")
	for i, msg := range messages {
		roleName := "You"
		if msg.Role == chat.RoleModel {
			roleName = "Analyst AI"
		}
		sb.WriteString(fmt.Sprintf("## %s\n\n", roleName))
		sb.WriteString(msg.Text)
		sb.WriteString("\n\n")

		if i < len(messages)-1 {
			sb.WriteString("---\n\n")
		}
	}

	sb.WriteString("\n---\n\n")
	sb.WriteString(fmt.Sprintf("*Exported: %s*\n", time.Now().Format("2006-01-02 15:04:05")))
	return sb.String()
}

// ExportTranscript writes the conversation to path as Markdown or JSON
func ExportTranscript(messages []chat.Message, path string) error {
	var data []byte
	switch FormatForPath(path) {
	case FormatMarkdown:
		data = []byte(TranscriptToMarkdown(messages))
	case FormatYAML:
		var err error
		data, err = yaml.Marshal(messages)
		if err != nil {
			return fmt.Errorf("failed to marshal YAML: %w", err)
		}
	default:
		var err error
		data, err = json.MarshalIndent(messages, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	return nil
}

// GenerateExportFilename generates a filename for export
func GenerateExportFilename(title string, format ExportFormat) string {
	// Sanitize title for filename
	sanitized := strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' || r == ':' || r == '*' || r == '?' || r == '"' || r == '<' || r == '>' || r == '|' || r == ' ' {
			return '_'
		}
		return r
	}, title)

	if len(sanitized) > 50 {
		sanitized = sanitized[:50]
	}

	timestamp := time.Now().Format("20060102_150405")
	ext := string(format)
	if format == FormatMarkdown {
		ext = "md"
	}

	return fmt.Sprintf("%s_%s.%s", sanitized, timestamp, ext)
}
