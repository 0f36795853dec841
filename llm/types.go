package llm

import (
	"context"
	"errors"
)

// ErrInvalidCredential is wrapped by services when the API key is rejected
var ErrInvalidCredential = errors.New("invalid API key")

// Part is one element of an outgoing message: either text or an inline file
type Part struct {
	Text     string `json:"text,omitempty"`
	Name     string `json:"name,omitempty"`      // file name for inline data
	MimeType string `json:"mime_type,omitempty"` // "application/pdf", "text/plain", etc.
	Data     string `json:"data,omitempty"`      // base64 encoded file content
}

// TextPart creates a text part
func TextPart(text string) Part {
	return Part{Text: text}
}

// InlinePart creates a file part from base64 encoded data
func InlinePart(name, mimeType, data string) Part {
	return Part{Name: name, MimeType: mimeType, Data: data}
}

// IsInline reports whether the part carries file data
func (p Part) IsInline() bool {
	return p.Data != ""
}

// StreamResponse represents a chunk of streaming response
type StreamResponse struct {
	Content string
	Done    bool
	Error   error
}

// SafetySetting is a harm category paired with a blocking threshold
type SafetySetting struct {
	Category  string `json:"category"`
	Threshold string `json:"threshold"`
}

// SessionConfig describes how a conversation session is created
type SessionConfig struct {
	Model             string
	Temperature       float64
	MaxTokens         int
	SafetySettings    []SafetySetting
	SystemInstruction string
}

// Service creates conversation sessions with a hosted model
type Service interface {
	// CreateSession starts a dialogue with empty history
	CreateSession(ctx context.Context, credential string, config SessionConfig) (Session, error)

	// Name returns the service name
	Name() string
}

// Session is an ongoing dialogue that keeps whatever history the service needs
type Session interface {
	// SendStream sends parts as the next user turn and streams the reply.
	// The channel is closed after a Done or Error response.
	SendStream(ctx context.Context, parts []Part) (<-chan StreamResponse, error)
}

// Config represents service configuration
type Config struct {
	ProviderName string
	BaseURL      string
	Timeout      int // seconds, connection setup only
}

// DefaultSafetySettings blocks medium and above for the four standard categories
func DefaultSafetySettings() []SafetySetting {
	categories := []string{
		"HARM_CATEGORY_HARASSMENT",
		"HARM_CATEGORY_HATE_SPEECH",
		"HARM_CATEGORY_SEXUALLY_EXPLICIT",
		"HARM_CATEGORY_DANGEROUS_CONTENT",
	}

	settings := make([]SafetySetting, len(categories))
	for i, category := range categories {
		settings[i] = SafetySetting{
			Category:  category,
			Threshold: "BLOCK_MEDIUM_AND_ABOVE",
		}
	}

	return settings
}
