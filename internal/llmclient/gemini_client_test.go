// internal/llmclient/gemini_client_test.go
package llmclient

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bmstoss13/HoleNOne/api/schemas"
	"github.com/bmstoss13/HoleNOne/internal/config"
)

type geminiServer struct {
	*httptest.Server
	calls    atomic.Int32
	lastBody atomic.Value
}

// newGeminiServer replies with the given status/body pairs in order, repeating the last.
func newGeminiServer(t *testing.T, replies ...[2]string) *geminiServer {
	t.Helper()
	s := &geminiServer{}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := int(s.calls.Add(1)) - 1
		if !strings.Contains(r.URL.Path, ":generateContent") {
			http.NotFound(w, r)
			return
		}
		body, _ := io.ReadAll(r.Body)
		s.lastBody.Store(string(body))

		reply := replies[min(n, len(replies)-1)]
		w.Header().Set("Content-Type", "application/json")
		if reply[0] == "503" {
			w.WriteHeader(http.StatusServiceUnavailable)
		} else if reply[0] == "400" {
			w.WriteHeader(http.StatusBadRequest)
		}
		_, _ = io.WriteString(w, reply[1])
	}))
	t.Cleanup(s.Close)
	return s
}

const (
	geminiFunctionCall = `{"candidates":[{"content":{"role":"model","parts":[{"functionCall":{"name":"clickElement","args":{"selector":"button#search"}}}]},"finishReason":"STOP"}],"usageMetadata":{"promptTokenCount":12,"totalTokenCount":20}}`
	geminiText         = `{"candidates":[{"content":{"role":"model","parts":[{"text":"no_action_needed"}]},"finishReason":"STOP"}]}`
	geminiUnavailable  = `{"error":{"code":503,"message":"model overloaded","status":"UNAVAILABLE"}}`
	geminiBadRequest   = `{"error":{"code":400,"message":"bad schema","status":"INVALID_ARGUMENT"}}`
)

func newTestGemini(t *testing.T, url string, maxElapsed time.Duration) *GeminiClient {
	t.Helper()
	logger, _ := setupTestLogger(t)
	c, err := NewGeminiClient(context.Background(), validModelConfig(config.ProviderGemini, url), maxElapsed, logger)
	require.NoError(t, err)
	return c
}

func TestNewGeminiClient_RequiresKey(t *testing.T) {
	logger, _ := setupTestLogger(t)
	cfg := validModelConfig(config.ProviderGemini, "")
	cfg.APIKey = ""
	_, err := NewGeminiClient(context.Background(), cfg, time.Second, logger)
	assert.ErrorContains(t, err, "API key is required")
}

func TestGeminiClient_FunctionCall(t *testing.T) {
	server := newGeminiServer(t, [2]string{"200", geminiFunctionCall})
	client := newTestGemini(t, server.URL, time.Second)

	resp, err := client.Generate(context.Background(), schemas.GenerationRequest{
		SystemPrompt: "You drive a browser.",
		UserPrompt:   "Find tee times.",
		Tools:        discoveryTools(),
	})
	require.NoError(t, err)
	require.Len(t, resp.ToolCalls, 1)
	assert.Equal(t, "clickElement", resp.ToolCalls[0].Name)
	assert.Equal(t, "button#search", resp.ToolCalls[0].Args["selector"])
	assert.Empty(t, resp.Text)

	sent := server.lastBody.Load().(string)
	assert.Contains(t, sent, `"functionDeclarations"`)
	assert.Contains(t, sent, `"clickElement"`)
	assert.Contains(t, sent, "Find tee times.")
}

func TestGeminiClient_TextReply(t *testing.T) {
	server := newGeminiServer(t, [2]string{"200", geminiText})
	client := newTestGemini(t, server.URL, time.Second)

	resp, err := client.Generate(context.Background(), schemas.GenerationRequest{UserPrompt: "hi"})
	require.NoError(t, err)
	assert.Empty(t, resp.ToolCalls)
	assert.Equal(t, "no_action_needed", resp.Text)
}

func TestGeminiClient_RetriesTransientErrors(t *testing.T) {
	server := newGeminiServer(t, [2]string{"503", geminiUnavailable}, [2]string{"200", geminiText})
	client := newTestGemini(t, server.URL, 10*time.Second)

	resp, err := client.Generate(context.Background(), schemas.GenerationRequest{UserPrompt: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "no_action_needed", resp.Text)
	assert.GreaterOrEqual(t, server.calls.Load(), int32(2))
}

func TestGeminiClient_OracleRequestsAreNotRetried(t *testing.T) {
	server := newGeminiServer(t, [2]string{"503", geminiUnavailable}, [2]string{"200", geminiFunctionCall})
	client := newTestGemini(t, server.URL, 10*time.Second)

	_, err := client.Generate(context.Background(), schemas.GenerationRequest{
		Role:       schemas.RoleOracle,
		UserPrompt: "Find tee times.",
		Tools:      discoveryTools(),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
	assert.Equal(t, int32(1), server.calls.Load())
}

func TestGeminiClient_PermanentError(t *testing.T) {
	server := newGeminiServer(t, [2]string{"400", geminiBadRequest})
	client := newTestGemini(t, server.URL, 10*time.Second)

	_, err := client.Generate(context.Background(), schemas.GenerationRequest{UserPrompt: "hi"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")
	assert.Equal(t, int32(1), server.calls.Load())
}

func TestGeminiSchema(t *testing.T) {
	s := geminiSchema([]schemas.ToolParameter{
		{Name: "selector", Type: schemas.ParamString, Required: true},
		{Name: "numPlayers", Type: schemas.ParamInteger},
		{Name: "userDetails", Type: schemas.ParamObject, Required: true, Properties: []schemas.ToolParameter{
			{Name: "email", Type: schemas.ParamString, Required: true},
		}},
	})
	assert.Equal(t, []string{"selector", "userDetails"}, s.Required)
	assert.Len(t, s.Properties, 3)
	assert.Equal(t, []string{"email"}, s.Properties["userDetails"].Required)
}
