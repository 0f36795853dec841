package chat

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"analyst-ai/llm"
)

// fakeService replies with a fixed list of chunks, or with one of the
// configured failures
type fakeService struct {
	mu        sync.Mutex
	chunks    []string
	createErr error
	sendErr   error
	streamErr error
	stream    chan llm.StreamResponse // returned as is when set

	created     int
	credentials []string
	sent        [][]llm.Part
}

func (f *fakeService) Name() string { return "Fake" }

func (f *fakeService) CreateSession(ctx context.Context, credential string, config llm.SessionConfig) (llm.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.created++
	f.credentials = append(f.credentials, credential)
	return &fakeSession{service: f}, nil
}

func (f *fakeService) createdCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.created
}

func (f *fakeService) lastSent() []llm.Part {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sent) == 0 {
		return nil
	}
	return f.sent[len(f.sent)-1]
}

type fakeSession struct {
	service *fakeService
}

func (s *fakeSession) SendStream(ctx context.Context, parts []llm.Part) (<-chan llm.StreamResponse, error) {
	f := s.service
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, parts)
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	if f.stream != nil {
		return f.stream, nil
	}

	ch := make(chan llm.StreamResponse, len(f.chunks)+1)
	for _, c := range f.chunks {
		ch <- llm.StreamResponse{Content: c}
	}
	if f.streamErr != nil {
		ch <- llm.StreamResponse{Error: f.streamErr}
	} else {
		ch <- llm.StreamResponse{Done: true}
	}
	close(ch)
	return ch, nil
}

func newTestApp(t *testing.T, service *fakeService, withKey bool) (*App, *MemoryStore) {
	t.Helper()
	store := NewMemoryStore()
	if withKey {
		require.NoError(t, store.SetSetting(KeyAPIKey, "test-key"))
	}
	app, err := New(Options{Store: store, Service: service})
	require.NoError(t, err)
	return app, store
}

func failingFile(name string) StagedFile {
	return StagedFile{
		Name:     name,
		Size:     10,
		MimeType: "application/pdf",
		Open: func() (io.ReadCloser, error) {
			return nil, errors.New("permission denied")
		},
	}
}

func TestNewRequiresStoreAndService(t *testing.T) {
	_, err := New(Options{Service: &fakeService{}})
	assert.Error(t, err)

	_, err = New(Options{Store: NewMemoryStore()})
	assert.Error(t, err)
}

func TestNewGreets(t *testing.T) {
	app, _ := newTestApp(t, &fakeService{}, false)
	msgs := app.Transcript()
	require.Len(t, msgs, 1)
	assert.Equal(t, RoleModel, msgs[0].Role)
	assert.Contains(t, msgs[0].Text, "Important Setup Required")

	app, _ = newTestApp(t, &fakeService{}, true)
	msgs = app.Transcript()
	require.Len(t, msgs, 1)
	assert.Equal(t, welcomeMessage, msgs[0].Text)
}

func TestSendMessageStreamsChunks(t *testing.T) {
	service := &fakeService{chunks: []string{"Hel", "lo"}}
	app, _ := newTestApp(t, service, true)

	var modelTexts []string
	app.Subscribe(func(c Change) {
		if c.Kind != ChangeTranscript {
			return
		}
		msgs := app.Transcript()
		last := msgs[len(msgs)-1]
		if last.Role == RoleModel {
			modelTexts = append(modelTexts, last.Text)
		}
	})

	require.NoError(t, app.SendMessage(context.Background(), "Say hello"))

	assert.Equal(t, []string{"", "Hel", "Hello"}, modelTexts)

	msgs := app.Transcript()
	require.Len(t, msgs, 3)
	assert.Equal(t, RoleUser, msgs[1].Role)
	assert.Equal(t, "Say hello", msgs[1].Text)
	assert.Equal(t, "Hello", msgs[2].Text)
	assert.Equal(t, StateActive, app.State())
	assert.Equal(t, []string{"test-key"}, service.credentials)
}

func TestSendMessageWithoutCredential(t *testing.T) {
	service := &fakeService{chunks: []string{"unused"}}
	app, _ := newTestApp(t, service, false)

	err := app.SendMessage(context.Background(), "hello")
	assert.ErrorIs(t, err, ErrCredentialRequired)

	assert.Len(t, app.Transcript(), 1)
	assert.Equal(t, StateAbsent, app.State())
	assert.Equal(t, 0, service.createdCount())
	assert.Nil(t, service.lastSent())
}

func TestSendMessageNothingToSend(t *testing.T) {
	app, _ := newTestApp(t, &fakeService{}, true)
	assert.ErrorIs(t, app.SendMessage(context.Background(), "   "), ErrNothingToSend)
	assert.Len(t, app.Transcript(), 1)
}

func TestSendMessageFileReadErrorKeepsState(t *testing.T) {
	service := &fakeService{chunks: []string{"ok"}}
	app, _ := newTestApp(t, service, true)
	require.NoError(t, app.AddFile(failingFile("report.pdf")))

	err := app.SendMessage(context.Background(), "analyze")

	var fileErr *FileReadError
	require.ErrorAs(t, err, &fileErr)
	assert.Equal(t, "report.pdf", fileErr.Name)
	assert.Len(t, app.Files(), 1)
	assert.Len(t, app.Transcript(), 1)
	assert.False(t, app.Busy())
	assert.Nil(t, service.lastSent())
}

func TestSendMessageClearsSentFiles(t *testing.T) {
	service := &fakeService{chunks: []string{"Done."}}
	app, _ := newTestApp(t, service, true)
	require.NoError(t, app.AddFile(NewStagedFile("report.pdf", "application/pdf", []byte("pdf-bytes"))))

	require.NoError(t, app.SendMessage(context.Background(), ""))

	assert.Empty(t, app.Files())

	parts := service.lastSent()
	require.Len(t, parts, 2)
	assert.Equal(t, "Please analyze these 1 files: report.pdf.", parts[0].Text)
	assert.Equal(t, "application/pdf", parts[1].MimeType)
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("pdf-bytes")), parts[1].Data)

	msgs := app.Transcript()
	assert.Equal(t, "Please analyze these 1 files: report.pdf.", msgs[1].Text)
}

func TestSendMessageAppliesActivePrefix(t *testing.T) {
	service := &fakeService{chunks: []string{"ok"}}
	app, _ := newTestApp(t, service, true)

	p, err := app.SavePrefix("", "English", "Answer in English.", true)
	require.NoError(t, err)
	assert.Equal(t, p.ID, mustActive(t, app).ID)

	require.NoError(t, app.SendMessage(context.Background(), "Summarize"))

	parts := service.lastSent()
	require.Len(t, parts, 1)
	assert.Equal(t, "Answer in English.\n\nSummarize", parts[0].Text)
	assert.Equal(t, "Summarize", app.Transcript()[1].Text)
}

func mustActive(t *testing.T, app *App) Prefix {
	t.Helper()
	p, ok := app.ActivePrefix()
	require.True(t, ok)
	return p
}

func TestSendMessageInvalidCredential(t *testing.T) {
	service := &fakeService{sendErr: fmt.Errorf("%w: API key not valid", llm.ErrInvalidCredential)}
	app, store := newTestApp(t, service, true)
	require.NoError(t, app.AddFile(NewStagedFile("notes.txt", "text/plain", []byte("notes"))))

	err := app.SendMessage(context.Background(), "hello")

	var serviceErr *ServiceError
	require.ErrorAs(t, err, &serviceErr)
	assert.True(t, serviceErr.InvalidCredential)
	assert.ErrorIs(t, err, llm.ErrInvalidCredential)

	assert.False(t, app.HasCredential())
	_, ok, _ := store.GetSetting(KeyAPIKey)
	assert.False(t, ok)
	assert.Equal(t, StateAbsent, app.State())

	msgs := app.Transcript()
	assert.Equal(t, invalidCredentialMessage, msgs[len(msgs)-1].Text)
	assert.Len(t, app.Files(), 1)
}

func TestSendMessageStreamError(t *testing.T) {
	service := &fakeService{chunks: []string{"partial"}, streamErr: errors.New("connection reset")}
	app, _ := newTestApp(t, service, true)
	require.NoError(t, app.AddFile(NewStagedFile("notes.txt", "text/plain", []byte("notes"))))

	err := app.SendMessage(context.Background(), "hello")
	var serviceErr *ServiceError
	require.ErrorAs(t, err, &serviceErr)
	assert.False(t, serviceErr.InvalidCredential)

	msgs := app.Transcript()
	assert.Equal(t, "Error: connection reset", msgs[len(msgs)-1].Text)
	assert.True(t, app.HasCredential())
	assert.Equal(t, StateActive, app.State())
	assert.Len(t, app.Files(), 1)
}

func TestSendMessageSessionCreateError(t *testing.T) {
	service := &fakeService{createErr: errors.New("dns failure")}
	app, _ := newTestApp(t, service, true)

	err := app.SendMessage(context.Background(), "hello")
	var serviceErr *ServiceError
	require.ErrorAs(t, err, &serviceErr)

	msgs := app.Transcript()
	require.Len(t, msgs, 3)
	assert.Contains(t, msgs[2].Text, "dns failure")
	assert.Equal(t, StateAbsent, app.State())
	assert.False(t, app.Busy())
}

func TestSendMessageReusesSession(t *testing.T) {
	service := &fakeService{chunks: []string{"ok"}}
	app, _ := newTestApp(t, service, true)

	require.NoError(t, app.SendMessage(context.Background(), "one"))
	require.NoError(t, app.SendMessage(context.Background(), "two"))
	assert.Equal(t, 1, service.createdCount())

	require.NoError(t, app.SetCredential("new-key"))
	assert.Equal(t, StateAbsent, app.State())

	require.NoError(t, app.SendMessage(context.Background(), "three"))
	assert.Equal(t, 2, service.createdCount())
	assert.Equal(t, []string{"test-key", "new-key"}, service.credentials)
}

func TestSendMessageUsesKeyChangedWhileComposing(t *testing.T) {
	service := &fakeService{chunks: []string{"ok"}}
	app, _ := newTestApp(t, service, true)

	opened := make(chan struct{})
	release := make(chan struct{})
	require.NoError(t, app.AddFile(StagedFile{
		Name:     "slow.pdf",
		Size:     4,
		MimeType: "application/pdf",
		Open: func() (io.ReadCloser, error) {
			close(opened)
			<-release
			return io.NopCloser(strings.NewReader("slow")), nil
		},
	}))

	done := make(chan error, 1)
	go func() {
		done <- app.SendMessage(context.Background(), "first")
	}()
	<-opened
	require.NoError(t, app.SetCredential("new-key"))
	close(release)
	require.NoError(t, <-done)

	require.NoError(t, app.SendMessage(context.Background(), "second"))
	assert.Equal(t, []string{"new-key"}, service.credentials)
	assert.Equal(t, 1, service.createdCount())
}

func TestSendMessageNotifiesEveryChunk(t *testing.T) {
	service := &fakeService{chunks: []string{"Hel", "", "lo"}}
	app, _ := newTestApp(t, service, true)

	var modelTexts []string
	app.Subscribe(func(c Change) {
		if c.Kind != ChangeTranscript {
			return
		}
		msgs := app.Transcript()
		if last := msgs[len(msgs)-1]; last.Role == RoleModel {
			modelTexts = append(modelTexts, last.Text)
		}
	})

	require.NoError(t, app.SendMessage(context.Background(), "Say hello"))
	assert.Equal(t, []string{"", "Hel", "Hel", "Hello"}, modelTexts)
}

func TestSendMessageBusy(t *testing.T) {
	stream := make(chan llm.StreamResponse)
	service := &fakeService{stream: stream}
	app, _ := newTestApp(t, service, true)

	done := make(chan error, 1)
	go func() {
		done <- app.SendMessage(context.Background(), "first")
	}()

	require.Eventually(t, func() bool { return service.lastSent() != nil }, time.Second, 5*time.Millisecond)
	assert.Equal(t, StateBusy, app.State())
	assert.ErrorIs(t, app.SendMessage(context.Background(), "second"), ErrBusy)

	stream <- llm.StreamResponse{Content: "reply"}
	stream <- llm.StreamResponse{Done: true}
	close(stream)

	require.NoError(t, <-done)
	assert.False(t, app.Busy())
	msgs := app.Transcript()
	assert.Equal(t, "reply", msgs[len(msgs)-1].Text)
}

func TestResetDuringSendKeepsNewCredential(t *testing.T) {
	stream := make(chan llm.StreamResponse)
	service := &fakeService{stream: stream}
	app, _ := newTestApp(t, service, true)

	done := make(chan error, 1)
	go func() {
		done <- app.SendMessage(context.Background(), "first")
	}()
	require.Eventually(t, func() bool { return service.lastSent() != nil }, time.Second, 5*time.Millisecond)

	require.NoError(t, app.SetCredential("replacement-key"))

	stream <- llm.StreamResponse{Error: llm.ErrInvalidCredential}
	close(stream)

	err := <-done
	assert.ErrorIs(t, err, llm.ErrInvalidCredential)
	assert.True(t, app.HasCredential())
}

// A canceled context only happens when the process shuts down mid-reply
func TestSendMessageStopsOnShutdown(t *testing.T) {
	stream := make(chan llm.StreamResponse)
	service := &fakeService{stream: stream}
	app, _ := newTestApp(t, service, true)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- app.SendMessage(ctx, "first")
	}()
	require.Eventually(t, func() bool { return service.lastSent() != nil }, time.Second, 5*time.Millisecond)

	cancel()
	close(stream)

	err := <-done
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, app.Busy())
}

func TestFilesOperations(t *testing.T) {
	app, _ := newTestApp(t, &fakeService{}, true)

	var fileChanges int
	app.Subscribe(func(c Change) {
		if c.Kind == ChangeFiles {
			fileChanges++
		}
	})

	a := NewStagedFile("a.pdf", "application/pdf", []byte("a"))
	require.NoError(t, app.AddFile(a))
	require.NoError(t, app.AddFile(a))
	assert.Len(t, app.Files(), 1)
	assert.Equal(t, 1, fileChanges)

	var validation *ValidationError
	assert.ErrorAs(t, app.AddFile(NewStagedFile("image.png", "image/png", []byte("p"))), &validation)

	require.NoError(t, app.AddFile(NewStagedFile("b.txt", "text/plain", []byte("b"))))
	app.RemoveFile(5)
	assert.Len(t, app.Files(), 2)
	app.RemoveFile(0)
	require.Len(t, app.Files(), 1)
	assert.Equal(t, "b.txt", app.Files()[0].Name)

	app.ClearFiles()
	assert.Empty(t, app.Files())
}

func TestDeleteActivePrefix(t *testing.T) {
	app, _ := newTestApp(t, &fakeService{}, true)

	prefixes := app.Prefixes()
	require.Len(t, prefixes, 3)
	require.NoError(t, app.SelectPrefix(prefixes[1].ID))
	assert.Equal(t, prefixes[1].Content, app.ActivePrefixContent())

	require.NoError(t, app.DeletePrefix(prefixes[1].ID))

	_, ok := app.ActivePrefix()
	assert.False(t, ok)
	assert.Empty(t, app.ActivePrefixContent())
	assert.Len(t, app.Prefixes(), 2)

	var notFound *NotFoundError
	assert.ErrorAs(t, app.DeletePrefix(prefixes[1].ID), &notFound)
}

func TestPrefixesSurviveRestart(t *testing.T) {
	service := &fakeService{}
	app, store := newTestApp(t, service, true)

	p, err := app.SavePrefix("", "Tables", "Use tables.", true)
	require.NoError(t, err)

	restarted, err := New(Options{Store: store, Service: service})
	require.NoError(t, err)

	active, ok := restarted.ActivePrefix()
	require.True(t, ok)
	assert.Equal(t, p.ID, active.ID)
	assert.Len(t, restarted.Prefixes(), 4)
}

func TestSetAndClearCredential(t *testing.T) {
	app, _ := newTestApp(t, &fakeService{}, false)

	var validation *ValidationError
	assert.ErrorAs(t, app.SetCredential("  "), &validation)
	assert.False(t, app.HasCredential())

	require.NoError(t, app.SetCredential("  abc  "))
	assert.True(t, app.HasCredential())
	msgs := app.Transcript()
	assert.Equal(t, credentialUpdatedMessage, msgs[len(msgs)-1].Text)

	require.NoError(t, app.ClearCredential())
	assert.False(t, app.HasCredential())
}

func TestResetSession(t *testing.T) {
	service := &fakeService{chunks: []string{"ok"}}
	app, _ := newTestApp(t, service, true)
	require.NoError(t, app.SendMessage(context.Background(), "hello"))
	require.NoError(t, app.AddFile(NewStagedFile("a.pdf", "application/pdf", []byte("a"))))

	app.ResetSession()

	msgs := app.Transcript()
	require.Len(t, msgs, 1)
	assert.Equal(t, welcomeMessage, msgs[0].Text)
	assert.Empty(t, app.Files())
	assert.Equal(t, StateAbsent, app.State())
}
