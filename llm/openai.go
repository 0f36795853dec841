package llm

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/sashabaranov/go-openai"
)

// OpenAIService implements Service for OpenAI compatible endpoints
type OpenAIService struct {
	config Config
}

// NewOpenAIService creates a new OpenAI compatible service
func NewOpenAIService(config Config) *OpenAIService {
	if config.ProviderName == "" {
		config.ProviderName = "OpenAI Compatible"
	}
	return &OpenAIService{config: config}
}

// Name returns the service name
func (s *OpenAIService) Name() string {
	return s.config.ProviderName
}

// CreateSession starts a chat; the system instruction becomes the first history message
func (s *OpenAIService) CreateSession(ctx context.Context, credential string, config SessionConfig) (Session, error) {
	if credential == "" {
		return nil, fmt.Errorf("failed to create session: %w", ErrInvalidCredential)
	}

	clientConfig := openai.DefaultConfig(credential)
	if s.config.BaseURL != "" {
		clientConfig.BaseURL = s.config.BaseURL
	}
	if config.Model == "" {
		config.Model = openai.GPT4TurboPreview
	}

	session := &openaiSession{
		client: openai.NewClientWithConfig(clientConfig),
		config: config,
	}
	if config.SystemInstruction != "" {
		session.history = append(session.history, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: config.SystemInstruction,
		})
	}
	return session, nil
}

type openaiSession struct {
	client *openai.Client
	config SessionConfig

	mu      sync.Mutex
	history []openai.ChatCompletionMessage
}

// SendStream implements streaming chat
func (s *openaiSession) SendStream(ctx context.Context, parts []Part) (<-chan StreamResponse, error) {
	user, err := convertOpenAIParts(parts)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	messages := make([]openai.ChatCompletionMessage, 0, len(s.history)+1)
	messages = append(messages, s.history...)
	s.mu.Unlock()
	messages = append(messages, user)

	req := openai.ChatCompletionRequest{
		Model:       s.config.Model,
		Messages:    messages,
		MaxTokens:   s.config.MaxTokens,
		Temperature: float32(s.config.Temperature),
		Stream:      true,
	}

	stream, err := s.client.CreateChatCompletionStream(ctx, req)
	if err != nil {
		return nil, classifyOpenAIError(fmt.Errorf("failed to create stream: %w", err))
	}

	responseChan := make(chan StreamResponse)
	go func() {
		defer close(responseChan)
		defer stream.Close()

		var reply strings.Builder
		for {
			response, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				send(ctx, responseChan, StreamResponse{Error: classifyOpenAIError(fmt.Errorf("stream error: %w", err))})
				return
			}

			if len(response.Choices) > 0 {
				content := response.Choices[0].Delta.Content
				if content != "" {
					reply.WriteString(content)
					if !send(ctx, responseChan, StreamResponse{Content: content}) {
						return
					}
				}
			}
		}

		s.mu.Lock()
		s.history = append(s.history, user, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleAssistant,
			Content: reply.String(),
		})
		s.mu.Unlock()

		send(ctx, responseChan, StreamResponse{Done: true})
	}()

	return responseChan, nil
}

// convertOpenAIParts builds a user message. Text files are inlined as text;
// other documents cannot be carried by the chat completions API.
func convertOpenAIParts(parts []Part) (openai.ChatCompletionMessage, error) {
	if len(parts) == 0 {
		return openai.ChatCompletionMessage{}, errors.New("message has no parts")
	}

	multiContent := make([]openai.ChatMessagePart, 0, len(parts))
	for _, p := range parts {
		if !p.IsInline() {
			multiContent = append(multiContent, openai.ChatMessagePart{
				Type: openai.ChatMessagePartTypeText,
				Text: p.Text,
			})
			continue
		}

		if !strings.HasPrefix(p.MimeType, "text/") {
			return openai.ChatCompletionMessage{}, fmt.Errorf("attachment %s: file type %s is not supported by this service", p.Name, p.MimeType)
		}
		data, err := base64.StdEncoding.DecodeString(p.Data)
		if err != nil {
			return openai.ChatCompletionMessage{}, fmt.Errorf("attachment %s: failed to decode base64: %w", p.Name, err)
		}
		multiContent = append(multiContent, openai.ChatMessagePart{
			Type: openai.ChatMessagePartTypeText,
			Text: fmt.Sprintf("File: %s\n\n%s", p.Name, string(data)),
		})
	}

	if len(multiContent) == 1 {
		return openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleUser,
			Content: multiContent[0].Text,
		}, nil
	}

	return openai.ChatCompletionMessage{
		Role:         openai.ChatMessageRoleUser,
		MultiContent: multiContent,
	}, nil
}

// classifyOpenAIError marks authentication failures as invalid credentials
func classifyOpenAIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode == http.StatusUnauthorized {
		return fmt.Errorf("%w: %w", ErrInvalidCredential, err)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode == http.StatusUnauthorized {
		return fmt.Errorf("%w: %w", ErrInvalidCredential, err)
	}
	return err
}
