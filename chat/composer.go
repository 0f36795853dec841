package chat

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"analyst-ai/llm"
)

// Composition is what a send shows in the transcript and what it transmits
type Composition struct {
	Display string
	Parts   []llm.Part
}

// AnalyzeFilesPrompt is the message used when files are sent without text
func AnalyzeFilesPrompt(files []StagedFile) string {
	names := make([]string, len(files))
	for i, f := range files {
		names[i] = f.Name
	}
	return fmt.Sprintf("Please analyze these %d files: %s.", len(files), strings.Join(names, ", "))
}

// Compose builds the display text and payload for a send. The prefix is
// only ever part of the transmitted text. Every file is read and encoded
// before anything is returned, so a FileReadError means nothing was built.
func Compose(userText, prefix string, files []StagedFile) (Composition, error) {
	if userText == "" && len(files) == 0 {
		return Composition{}, ErrNothingToSend
	}

	display := userText
	if display == "" {
		display = AnalyzeFilesPrompt(files)
	}

	text := display
	if prefix != "" {
		text = prefix + "\n\n" + display
	}

	parts := make([]llm.Part, 0, len(files)+1)
	parts = append(parts, llm.TextPart(text))

	for _, f := range files {
		data, err := encodeFile(f)
		if err != nil {
			return Composition{}, &FileReadError{Name: f.Name, Err: err}
		}
		parts = append(parts, llm.InlinePart(f.Name, f.MimeType, data))
	}

	return Composition{Display: display, Parts: parts}, nil
}

// encodeFile reads the whole file and returns it base64 encoded
func encodeFile(f StagedFile) (string, error) {
	if f.Open == nil {
		return "", errors.New("file has no content source")
	}
	r, err := f.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open: %w", err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("failed to read: %w", err)
	}
	if len(data) == 0 {
		return "", errors.New("file is empty")
	}
	return base64.StdEncoding.EncodeToString(data), nil
}
