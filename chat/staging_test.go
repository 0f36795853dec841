package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStagingAddRejectsExtension(t *testing.T) {
	s := NewStagingArea(nil, 0)

	err := s.Add(NewStagedFile("photo.jpg", "image/jpeg", []byte("x")))

	var validation *ValidationError
	require.ErrorAs(t, err, &validation)
	assert.Equal(t, "file", validation.Field)
	assert.Contains(t, err.Error(), "PDF, DOCX, TXT, HTML")
	assert.Equal(t, 0, s.Len())
}

func TestStagingAddCaseInsensitive(t *testing.T) {
	s := NewStagingArea(nil, 0)
	for _, name := range []string{"A.PDF", "b.Docx", "c.TXT", "d.html"} {
		require.NoError(t, s.Add(NewStagedFile(name, "application/octet-stream", []byte("x"))), name)
	}
	assert.Equal(t, 4, s.Len())
}

func TestStagingAddIsIdempotent(t *testing.T) {
	s := NewStagingArea(nil, 0)
	f := NewStagedFile("report.pdf", "application/pdf", []byte("abc"))

	require.NoError(t, s.Add(f))
	require.NoError(t, s.Add(f))
	assert.Equal(t, 1, s.Len())

	// Same name, different size is a different file
	require.NoError(t, s.Add(NewStagedFile("report.pdf", "application/pdf", []byte("abcd"))))
	assert.Equal(t, 2, s.Len())
}

func TestStagingAddRejectsOversize(t *testing.T) {
	s := NewStagingArea(nil, 4)

	var validation *ValidationError
	assert.ErrorAs(t, s.Add(NewStagedFile("big.txt", "text/plain", []byte("12345"))), &validation)
	assert.NoError(t, s.Add(NewStagedFile("small.txt", "text/plain", []byte("1234"))))
}

func TestStagingAddRequiresContent(t *testing.T) {
	s := NewStagingArea(nil, 0)
	var validation *ValidationError
	assert.ErrorAs(t, s.Add(StagedFile{Name: "a.pdf", Size: 1}), &validation)
}

func TestStagingRemove(t *testing.T) {
	s := NewStagingArea(nil, 0)
	for _, name := range []string{"a.txt", "b.txt", "c.txt"} {
		require.NoError(t, s.Add(NewStagedFile(name, "text/plain", []byte(name))))
	}

	s.Remove(-1)
	s.Remove(3)
	assert.Equal(t, 3, s.Len())

	s.Remove(1)
	files := s.Files()
	require.Len(t, files, 2)
	assert.Equal(t, "a.txt", files[0].Name)
	assert.Equal(t, "c.txt", files[1].Name)

	s.Clear()
	assert.Equal(t, 0, s.Len())
	s.Clear()
	assert.Equal(t, 0, s.Len())
}

func TestStagingRemoveSentKeepsLateAdditions(t *testing.T) {
	s := NewStagingArea(nil, 0)
	require.NoError(t, s.Add(NewStagedFile("a.txt", "text/plain", []byte("a"))))
	sent := s.Files()
	require.NoError(t, s.Add(NewStagedFile("b.txt", "text/plain", []byte("b"))))

	s.removeSent(sent)

	files := s.Files()
	require.Len(t, files, 1)
	assert.Equal(t, "b.txt", files[0].Name)
}

func TestStagingCustomExtensions(t *testing.T) {
	s := NewStagingArea([]string{"md", ".CSV"}, 0)
	assert.NoError(t, s.Add(NewStagedFile("notes.md", "text/markdown", []byte("x"))))
	assert.NoError(t, s.Add(NewStagedFile("data.csv", "text/csv", []byte("x"))))
	assert.Error(t, s.Add(NewStagedFile("report.pdf", "application/pdf", []byte("x"))))
}
