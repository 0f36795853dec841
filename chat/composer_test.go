package chat

import (
	"encoding/base64"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComposeTextOnly(t *testing.T) {
	c, err := Compose("Summarize page 3", "", nil)
	require.NoError(t, err)

	assert.Equal(t, "Summarize page 3", c.Display)
	require.Len(t, c.Parts, 1)
	assert.Equal(t, "Summarize page 3", c.Parts[0].Text)
	assert.False(t, c.Parts[0].IsInline())
}

func TestComposeWithPrefix(t *testing.T) {
	c, err := Compose("Summarize", "Answer in English.", nil)
	require.NoError(t, err)

	assert.Equal(t, "Summarize", c.Display)
	assert.Equal(t, "Answer in English.\n\nSummarize", c.Parts[0].Text)
}

func TestComposeFilesOnly(t *testing.T) {
	files := []StagedFile{
		NewStagedFile("report.pdf", "application/pdf", make([]byte, 1024*1024)),
		NewStagedFile("notes.txt", "text/plain", []byte(strings.Repeat("n", 2048))),
	}

	c, err := Compose("", "", files)
	require.NoError(t, err)

	want := "Please analyze these 2 files: report.pdf, notes.txt."
	assert.Equal(t, want, c.Display)
	require.Len(t, c.Parts, 3)
	assert.Equal(t, want, c.Parts[0].Text)

	assert.Equal(t, "report.pdf", c.Parts[1].Name)
	assert.Equal(t, "application/pdf", c.Parts[1].MimeType)
	assert.Equal(t, "notes.txt", c.Parts[2].Name)

	decoded, err := base64.StdEncoding.DecodeString(c.Parts[2].Data)
	require.NoError(t, err)
	assert.Len(t, decoded, 2048)
}

func TestComposeFilesOnlyWithPrefix(t *testing.T) {
	files := []StagedFile{NewStagedFile("a.pdf", "application/pdf", []byte("x"))}

	c, err := Compose("", "Be brief.", files)
	require.NoError(t, err)

	assert.Equal(t, "Please analyze these 1 files: a.pdf.", c.Display)
	assert.Equal(t, "Be brief.\n\nPlease analyze these 1 files: a.pdf.", c.Parts[0].Text)
}

func TestComposeNothing(t *testing.T) {
	_, err := Compose("", "Prefix only", nil)
	assert.ErrorIs(t, err, ErrNothingToSend)
}

func TestComposeFileReadError(t *testing.T) {
	files := []StagedFile{
		NewStagedFile("ok.txt", "text/plain", []byte("fine")),
		failingFile("broken.pdf"),
	}

	_, err := Compose("look", "", files)

	var fileErr *FileReadError
	require.ErrorAs(t, err, &fileErr)
	assert.Equal(t, "broken.pdf", fileErr.Name)
	assert.Contains(t, err.Error(), "broken.pdf")
}

func TestComposeEmptyFile(t *testing.T) {
	_, err := Compose("look", "", []StagedFile{NewStagedFile("empty.txt", "text/plain", nil)})

	var fileErr *FileReadError
	require.ErrorAs(t, err, &fileErr)
	assert.True(t, errors.Unwrap(err) != nil)
}
