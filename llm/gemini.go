package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"
)

const maxSSELineSize = 16 * 1024 * 1024

// GeminiService implements Service for Google Gemini
type GeminiService struct {
	baseURL string
	config  Config
	client  *http.Client
}

// GeminiContent represents content in Gemini's format
type GeminiContent struct {
	Parts []GeminiPart `json:"parts"`
	Role  string       `json:"role,omitempty"`
}

// GeminiPart represents a part of content
type GeminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *GeminiInlineData `json:"inlineData,omitempty"`
}

// GeminiInlineData represents inline file data
type GeminiInlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"` // base64 encoded
}

// GeminiRequest represents a request to Gemini API
type GeminiRequest struct {
	Contents          []GeminiContent         `json:"contents"`
	SystemInstruction *GeminiContent          `json:"systemInstruction,omitempty"`
	GenerationConfig  *GeminiGenerationConfig `json:"generationConfig,omitempty"`
	SafetySettings    []SafetySetting         `json:"safetySettings,omitempty"`
}

// GeminiGenerationConfig represents generation configuration
type GeminiGenerationConfig struct {
	Temperature     float64 `json:"temperature,omitempty"`
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
}

// GeminiResponse represents one streamed chunk from Gemini API
type GeminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []GeminiPart `json:"parts"`
			Role  string       `json:"role"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback,omitempty"`
	Error *GeminiError `json:"error,omitempty"`
}

// GeminiError is the error object returned by Gemini API
type GeminiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
	Details []struct {
		Reason string `json:"reason"`
	} `json:"details"`
}

func (e *GeminiError) invalidKey() bool {
	if strings.Contains(e.Message, "API key not valid") {
		return true
	}
	for _, d := range e.Details {
		if d.Reason == "API_KEY_INVALID" {
			return true
		}
	}
	return e.Code == http.StatusUnauthorized
}

// NewGeminiService creates a new Gemini service
func NewGeminiService(config Config) *GeminiService {
	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com/v1beta"
	}
	if config.ProviderName == "" {
		config.ProviderName = "Gemini"
	}
	if config.Timeout == 0 {
		config.Timeout = 30
	}

	// No overall timeout: replies stream for as long as the model writes
	client := &http.Client{
		Transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   time.Duration(config.Timeout) * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			TLSHandshakeTimeout: 10 * time.Second,
		},
	}

	return &GeminiService{
		baseURL: strings.TrimRight(baseURL, "/"),
		config:  config,
		client:  client,
	}
}

// Name returns the service name
func (s *GeminiService) Name() string {
	return s.config.ProviderName
}

// CreateSession starts a Gemini chat with empty history
func (s *GeminiService) CreateSession(ctx context.Context, credential string, config SessionConfig) (Session, error) {
	if credential == "" {
		return nil, fmt.Errorf("failed to create session: %w", ErrInvalidCredential)
	}
	if config.Model == "" {
		config.Model = "gemini-2.5-flash"
	}
	return &geminiSession{service: s, apiKey: credential, config: config}, nil
}

type geminiSession struct {
	service *GeminiService
	apiKey  string
	config  SessionConfig

	mu      sync.Mutex
	history []GeminiContent
}

// SendStream implements streaming chat
func (gs *geminiSession) SendStream(ctx context.Context, parts []Part) (<-chan StreamResponse, error) {
	if len(parts) == 0 {
		return nil, errors.New("message has no parts")
	}

	user := GeminiContent{Role: "user", Parts: convertParts(parts)}

	gs.mu.Lock()
	contents := make([]GeminiContent, 0, len(gs.history)+1)
	contents = append(contents, gs.history...)
	gs.mu.Unlock()
	contents = append(contents, user)

	req := GeminiRequest{
		Contents:       contents,
		SafetySettings: gs.config.SafetySettings,
		GenerationConfig: &GeminiGenerationConfig{
			Temperature:     gs.config.Temperature,
			MaxOutputTokens: gs.config.MaxTokens,
		},
	}
	if gs.config.SystemInstruction != "" {
		req.SystemInstruction = &GeminiContent{Parts: []GeminiPart{{Text: gs.config.SystemInstruction}}}
	}

	resp, err := gs.open(ctx, req)
	if err != nil {
		return nil, err
	}

	responseChan := make(chan StreamResponse)
	go func() {
		defer close(responseChan)
		defer resp.Body.Close()

		reply, err := readGeminiStream(ctx, resp.Body, responseChan)
		if err != nil {
			send(ctx, responseChan, StreamResponse{Error: err})
			return
		}

		gs.mu.Lock()
		gs.history = append(gs.history, user, GeminiContent{Role: "model", Parts: []GeminiPart{{Text: reply}}})
		gs.mu.Unlock()

		send(ctx, responseChan, StreamResponse{Done: true})
	}()

	return responseChan, nil
}

// open sends the request and checks the status before streaming starts
func (gs *geminiSession) open(ctx context.Context, req GeminiRequest) (*http.Response, error) {
	reqBody, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:streamGenerateContent?alt=sse", gs.service.baseURL, gs.config.Model)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", gs.apiKey)

	resp, err := gs.service.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		return nil, parseGeminiError(resp.StatusCode, body)
	}

	return resp, nil
}

// readGeminiStream forwards text chunks and returns the accumulated reply
func readGeminiStream(ctx context.Context, body io.Reader, responseChan chan<- StreamResponse) (string, error) {
	var reply strings.Builder

	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), maxSSELineSize)
	for scanner.Scan() {
		line := scanner.Text()

		// SSE format: "data: {...}"
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "" || data == "[DONE]" {
			continue
		}

		var chunk GeminiResponse
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			// Skip malformed events
			continue
		}

		if chunk.Error != nil {
			return "", geminiAPIError(chunk.Error)
		}
		if chunk.PromptFeedback != nil && chunk.PromptFeedback.BlockReason != "" {
			return "", fmt.Errorf("prompt blocked: %s", chunk.PromptFeedback.BlockReason)
		}
		if len(chunk.Candidates) == 0 {
			continue
		}

		candidate := chunk.Candidates[0]
		var text strings.Builder
		for _, part := range candidate.Content.Parts {
			text.WriteString(part.Text)
		}
		if text.Len() > 0 {
			reply.WriteString(text.String())
			if !send(ctx, responseChan, StreamResponse{Content: text.String()}) {
				return "", ctx.Err()
			}
		}

		if candidate.FinishReason == "SAFETY" {
			return "", errors.New("response blocked by safety filters")
		}
	}

	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("stream read error: %w", err)
	}

	return reply.String(), nil
}

func parseGeminiError(status int, body []byte) error {
	var payload struct {
		Error *GeminiError `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Error != nil {
		if payload.Error.Code == 0 {
			payload.Error.Code = status
		}
		return geminiAPIError(payload.Error)
	}
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		return fmt.Errorf("API error (status %d): %w", status, ErrInvalidCredential)
	}
	return fmt.Errorf("API error (status %d): %s", status, strings.TrimSpace(string(body)))
}

func geminiAPIError(e *GeminiError) error {
	if e.invalidKey() {
		return fmt.Errorf("API error (status %d): %s: %w", e.Code, e.Message, ErrInvalidCredential)
	}
	return fmt.Errorf("API error (status %d): %s", e.Code, e.Message)
}

// convertParts converts our Part format to Gemini's format
func convertParts(parts []Part) []GeminiPart {
	out := make([]GeminiPart, 0, len(parts))
	for _, p := range parts {
		if p.IsInline() {
			out = append(out, GeminiPart{InlineData: &GeminiInlineData{MimeType: p.MimeType, Data: p.Data}})
			continue
		}
		out = append(out, GeminiPart{Text: p.Text})
	}
	return out
}

// send delivers r unless ctx is cancelled first
func send(ctx context.Context, ch chan<- StreamResponse, r StreamResponse) bool {
	select {
	case ch <- r:
		return true
	case <-ctx.Done():
		return false
	}
}
