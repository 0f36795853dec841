package chat

import (
	"context"
	"errors"
	"strings"
	"sync"

	"analyst-ai/llm"
)

// ChangeKind says which part of the application state changed
type ChangeKind int

const (
	ChangeTranscript ChangeKind = iota
	ChangePrefixes
	ChangeFiles
	ChangeSession
)

// Change is delivered to subscribers after every state mutation
type Change struct {
	Kind ChangeKind
}

// Logger is the logging surface App needs
type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
	Debug(format string, v ...interface{})
}

type nopLogger struct{}

func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Debug(string, ...interface{}) {}

// Options configures App
type Options struct {
	Store             SettingsStore
	Service           llm.Service
	Session           llm.SessionConfig
	AllowedExtensions []string
	MaxFileSize       int64
	Logger            Logger
}

// App is the single owner of the chat state. The UI shell calls its methods
// and re-renders on change notifications.
type App struct {
	mu           sync.Mutex
	credentials  *CredentialStore
	prefixes     *Registry
	staging      *StagingArea
	transcript   *Transcript
	conversation *Conversation
	sending      bool

	listenersMu sync.RWMutex
	listeners   []func(Change)

	logger Logger
}

// New loads persisted settings and starts a transcript with the welcome message
func New(opts Options) (*App, error) {
	if opts.Store == nil {
		return nil, errors.New("settings store is required")
	}
	if opts.Service == nil {
		return nil, errors.New("model service is required")
	}
	if opts.Logger == nil {
		opts.Logger = nopLogger{}
	}

	registry, err := LoadRegistry(opts.Store)
	if err != nil {
		return nil, err
	}

	a := &App{
		credentials:  NewCredentialStore(opts.Store),
		prefixes:     registry,
		staging:      NewStagingArea(opts.AllowedExtensions, opts.MaxFileSize),
		transcript:   NewTranscript(),
		conversation: NewConversation(opts.Service, opts.Session),
		logger:       opts.Logger,
	}
	a.greet()

	return a, nil
}

// Subscribe registers fn to be called after every change. fn runs on the
// goroutine that made the change and may call back into App.
func (a *App) Subscribe(fn func(Change)) {
	a.listenersMu.Lock()
	defer a.listenersMu.Unlock()
	a.listeners = append(a.listeners, fn)
}

func (a *App) notify(kinds ...ChangeKind) {
	a.listenersMu.RLock()
	listeners := make([]func(Change), len(a.listeners))
	copy(listeners, a.listeners)
	a.listenersMu.RUnlock()

	for _, kind := range kinds {
		for _, fn := range listeners {
			fn(Change{Kind: kind})
		}
	}
}

// SendMessage composes the user text, the active prefix and the staged files,
// sends them and streams the reply into the transcript. Only one send may be
// in flight; others fail with ErrBusy.
func (a *App) SendMessage(ctx context.Context, userText string) error {
	text := strings.TrimSpace(userText)

	a.mu.Lock()
	if a.sending {
		a.mu.Unlock()
		return ErrBusy
	}
	files := a.staging.Files()
	if text == "" && len(files) == 0 {
		a.mu.Unlock()
		return ErrNothingToSend
	}
	credential, err := a.credentials.Get()
	if err != nil {
		a.mu.Unlock()
		return err
	}
	if credential == "" {
		a.mu.Unlock()
		a.logger.Warn("Send blocked: no API key stored")
		return ErrCredentialRequired
	}
	prefix := a.prefixes.ActiveContent()
	a.sending = true
	a.mu.Unlock()
	a.notify(ChangeSession)

	composition, err := Compose(text, prefix, files)
	if err != nil {
		a.logger.Error("Failed to compose message: %v", err)
		a.finishSend()
		return err
	}

	a.mu.Lock()
	a.transcript.Append(RoleUser, composition.Display)
	a.mu.Unlock()
	a.notify(ChangeTranscript)

	// The key may have changed while the files were read
	a.mu.Lock()
	created := a.conversation.State() == StateAbsent
	credential, err = a.credentials.Get()
	var session llm.Session
	if err == nil {
		session, err = a.conversation.Ensure(ctx, credential)
	}
	generation := a.conversation.Generation()
	placeholder := a.transcript.Append(RoleModel, "")
	a.mu.Unlock()
	a.notify(ChangeTranscript)

	if err != nil {
		return a.failSend(placeholder.ID, generation, err)
	}
	if created {
		a.logger.Info("Created %s session", a.ServiceName())
	}

	a.logger.Info("Sending message: %d parts, %d files, prefix=%t", len(composition.Parts), len(files), prefix != "")

	stream, err := session.SendStream(ctx, composition.Parts)
	if err != nil {
		return a.failSend(placeholder.ID, generation, err)
	}

	if err := a.consume(ctx, placeholder.ID, stream); err != nil {
		return a.failSend(placeholder.ID, generation, err)
	}

	a.mu.Lock()
	a.staging.removeSent(files)
	a.sending = false
	a.mu.Unlock()
	a.logger.Info("Reply complete")
	a.notify(ChangeFiles, ChangeSession)

	return nil
}

// consume applies each chunk to the placeholder, one mutation and one
// notification per chunk
func (a *App) consume(ctx context.Context, id int64, stream <-chan llm.StreamResponse) error {
	for resp := range stream {
		if resp.Error != nil {
			drain(stream)
			return resp.Error
		}
		if !resp.Done || resp.Content != "" {
			a.mu.Lock()
			a.transcript.AppendText(id, resp.Content)
			a.mu.Unlock()
			a.notify(ChangeTranscript)
		}
		if resp.Done {
			drain(stream)
			return nil
		}
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	return errors.New("response stream ended unexpectedly")
}

func drain(stream <-chan llm.StreamResponse) {
	for range stream {
	}
}

func (a *App) finishSend() {
	a.mu.Lock()
	a.sending = false
	a.mu.Unlock()
	a.notify(ChangeSession)
}

// failSend replaces the placeholder with a readable error. A rejected API key
// is also cleared together with the session, unless a reset already replaced them.
func (a *App) failSend(placeholderID int64, generation uint64, cause error) error {
	invalid := errors.Is(cause, llm.ErrInvalidCredential)

	a.mu.Lock()
	a.transcript.SetText(placeholderID, errorText(cause, invalid))
	if invalid && a.conversation.Generation() == generation {
		if err := a.credentials.Clear(); err != nil {
			a.logger.Error("Failed to clear API key: %v", err)
		}
		a.conversation.Reset()
	}
	a.sending = false
	a.mu.Unlock()

	if invalid {
		a.logger.Warn("API key rejected by model service; cleared stored key")
	} else {
		a.logger.Error("Error sending message: %v", cause)
	}
	a.notify(ChangeTranscript, ChangeSession)

	return &ServiceError{Err: cause, InvalidCredential: invalid}
}

func errorText(err error, invalidCredential bool) string {
	if invalidCredential {
		return invalidCredentialMessage
	}
	if err == nil || err.Error() == "" {
		return genericErrorMessage
	}
	return "Error: " + err.Error()
}

// AddFile stages a file for the next send
func (a *App) AddFile(f StagedFile) error {
	a.mu.Lock()
	before := a.staging.Len()
	err := a.staging.Add(f)
	added := a.staging.Len() != before
	a.mu.Unlock()

	if err != nil {
		return err
	}
	if added {
		a.logger.Debug("Staged file %s (%d bytes)", f.Name, f.Size)
		a.notify(ChangeFiles)
	}
	return nil
}

// RemoveFile unstages the file at index; out-of-range indexes are ignored
func (a *App) RemoveFile(index int) {
	a.mu.Lock()
	before := a.staging.Len()
	a.staging.Remove(index)
	removed := a.staging.Len() != before
	a.mu.Unlock()

	if removed {
		a.notify(ChangeFiles)
	}
}

// ClearFiles unstages every file
func (a *App) ClearFiles() {
	a.mu.Lock()
	a.staging.Clear()
	a.mu.Unlock()
	a.notify(ChangeFiles)
}

// Files returns the staged files in order
func (a *App) Files() []StagedFile {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.staging.Files()
}

// SelectPrefix makes id the active prefix; "" clears it
func (a *App) SelectPrefix(id string) error {
	a.mu.Lock()
	err := a.prefixes.SetActive(id)
	a.mu.Unlock()

	if err != nil {
		return err
	}
	a.notify(ChangePrefixes)
	return nil
}

// SavePrefix creates a prefix, or updates editingID when it is set. With
// autoApply the saved prefix becomes active.
func (a *App) SavePrefix(editingID, name, content string, autoApply bool) (Prefix, error) {
	a.mu.Lock()
	var (
		p   Prefix
		err error
	)
	if editingID == "" {
		p, err = a.prefixes.Create(name, content)
	} else {
		p, err = a.prefixes.Update(editingID, name, content)
	}
	if err == nil && autoApply {
		err = a.prefixes.SetActive(p.ID)
	}
	a.mu.Unlock()

	if err != nil {
		return Prefix{}, err
	}
	a.logger.Info("Saved prefix %q", p.Name)
	a.notify(ChangePrefixes)
	return p, nil
}

// DeletePrefix removes a prefix, clearing the active reference if needed
func (a *App) DeletePrefix(id string) error {
	a.mu.Lock()
	err := a.prefixes.Delete(id)
	a.mu.Unlock()

	if err != nil {
		return err
	}
	a.notify(ChangePrefixes)
	return nil
}

// Prefixes returns the saved prefixes in order
func (a *App) Prefixes() []Prefix {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.prefixes.List()
}

// ActivePrefix returns the active prefix; false when none is set or it dangles
func (a *App) ActivePrefix() (Prefix, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.prefixes.Active()
}

// ActivePrefixContent returns the content that will be prepended to the next send
func (a *App) ActivePrefixContent() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.prefixes.ActiveContent()
}

// SetCredential stores a new API key and drops the session created with the old one
func (a *App) SetCredential(value string) error {
	a.mu.Lock()
	if err := a.credentials.Set(value); err != nil {
		a.mu.Unlock()
		return err
	}
	a.conversation.Reset()
	a.transcript.Append(RoleModel, credentialUpdatedMessage)
	a.mu.Unlock()

	a.logger.Info("API key updated; session reset")
	a.notify(ChangeSession, ChangeTranscript)
	return nil
}

// ClearCredential removes the stored API key and the session
func (a *App) ClearCredential() error {
	a.mu.Lock()
	err := a.credentials.Clear()
	if err == nil {
		a.conversation.Reset()
	}
	a.mu.Unlock()

	if err != nil {
		return err
	}
	a.logger.Info("API key cleared")
	a.notify(ChangeSession)
	return nil
}

// HasCredential reports whether an API key is stored
func (a *App) HasCredential() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	v, err := a.credentials.Get()
	return err == nil && v != ""
}

// ResetSession clears the transcript, the session and the staged files, then
// greets again
func (a *App) ResetSession() {
	a.mu.Lock()
	a.transcript.Reset()
	a.conversation.Reset()
	a.staging.Clear()
	a.mu.Unlock()

	a.logger.Info("Session reset")
	a.greet()
	a.notify(ChangeSession, ChangeFiles)
}

// Transcript returns a snapshot of the messages
func (a *App) Transcript() []Message {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.transcript.Messages()
}

// State returns the session state, Busy while a send is in flight
func (a *App) State() SessionState {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.sending {
		return StateBusy
	}
	return a.conversation.State()
}

// Busy reports whether a send is in flight
func (a *App) Busy() bool {
	return a.State() == StateBusy
}

// ServiceName returns the name of the model service
func (a *App) ServiceName() string {
	return a.conversation.service.Name()
}

func (a *App) greet() {
	a.mu.Lock()
	v, err := a.credentials.Get()
	if err != nil {
		a.logger.Error("Failed to read API key: %v", err)
	}
	a.transcript.Append(RoleModel, greeting(err == nil && v != ""))
	a.mu.Unlock()
	a.notify(ChangeTranscript)
}
