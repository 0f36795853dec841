package llm

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openaiChunk(content string) string {
	return fmt.Sprintf("data: {\"id\":\"1\",\"object\":\"chat.completion.chunk\",\"choices\":[{\"index\":0,\"delta\":{\"content\":%q}}]}\n\n", content)
}

func TestOpenAIStreamsChunks(t *testing.T) {
	var got openai.ChatCompletionRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		_ = json.NewDecoder(r.Body).Decode(&got)

		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, openaiChunk("Hel"))
		fmt.Fprint(w, openaiChunk("lo"))
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer server.Close()

	service := NewOpenAIService(Config{BaseURL: server.URL + "/v1"})
	session, err := service.CreateSession(context.Background(), "sk-test", SessionConfig{
		Model:             "gpt-test",
		SystemInstruction: "You are an analyst.",
	})
	require.NoError(t, err)

	ch, err := session.SendStream(context.Background(), []Part{TextPart("hello")})
	require.NoError(t, err)

	text, done, err := collect(t, ch)
	require.NoError(t, err)
	assert.True(t, done)
	assert.Equal(t, "Hello", text)

	assert.Equal(t, "gpt-test", got.Model)
	assert.True(t, got.Stream)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, openai.ChatMessageRoleSystem, got.Messages[0].Role)
	assert.Equal(t, "You are an analyst.", got.Messages[0].Content)
	assert.Equal(t, "hello", got.Messages[1].Content)
}

func TestOpenAIUnauthorized(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":{"message":"Incorrect API key provided","type":"invalid_request_error","code":"invalid_api_key"}}`)
	}))
	defer server.Close()

	session, err := NewOpenAIService(Config{BaseURL: server.URL + "/v1"}).CreateSession(context.Background(), "sk-bad", SessionConfig{})
	require.NoError(t, err)

	_, err = session.SendStream(context.Background(), []Part{TextPart("hello")})
	assert.ErrorIs(t, err, ErrInvalidCredential)
}

func TestConvertOpenAIParts(t *testing.T) {
	data := base64.StdEncoding.EncodeToString([]byte("line one"))

	msg, err := convertOpenAIParts([]Part{TextPart("read this"), InlinePart("notes.txt", "text/plain", data)})
	require.NoError(t, err)
	assert.Equal(t, openai.ChatMessageRoleUser, msg.Role)
	require.Len(t, msg.MultiContent, 2)
	assert.Equal(t, "read this", msg.MultiContent[0].Text)
	assert.Equal(t, "File: notes.txt\n\nline one", msg.MultiContent[1].Text)

	_, err = convertOpenAIParts([]Part{TextPart("x"), InlinePart("report.pdf", "application/pdf", data)})
	assert.Error(t, err)

	_, err = convertOpenAIParts(nil)
	assert.Error(t, err)
}

func TestClassifyOpenAIError(t *testing.T) {
	unauthorized := &openai.APIError{HTTPStatusCode: http.StatusUnauthorized, Message: "bad key"}
	assert.ErrorIs(t, classifyOpenAIError(unauthorized), ErrInvalidCredential)

	rateLimited := &openai.APIError{HTTPStatusCode: http.StatusTooManyRequests, Message: "slow down"}
	assert.NotErrorIs(t, classifyOpenAIError(rateLimited), ErrInvalidCredential)
}
