package llmclient

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/bmstoss13/HoleNOne/api/schemas"
	"github.com/bmstoss13/HoleNOne/internal/config"
)

// MockLLMClient is a mock implementation of the LLMClient interface for testing.
type MockLLMClient struct {
	mock.Mock
	Name string
}

func (m *MockLLMClient) Generate(ctx context.Context, req schemas.GenerationRequest) (*schemas.GenerationResponse, error) {
	args := m.Called(ctx, req)
	resp, _ := args.Get(0).(*schemas.GenerationResponse)
	return resp, args.Error(1)
}

func setupTestLogger(t *testing.T) (*zap.Logger, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zap.DebugLevel)
	return zap.New(core), logs
}

func validModelConfig(provider config.LLMProvider, endpoint string) config.LLMModelConfig {
	return config.LLMModelConfig{
		Provider:    provider,
		APIKey:      "test-api-key",
		Model:       "test-model",
		Endpoint:    endpoint,
		APITimeout:  5 * time.Second,
		Temperature: 0.2,
	}
}

func discoveryTools() []schemas.ToolDefinition {
	return []schemas.ToolDefinition{{
		Name:        "clickElement",
		Description: "Click an element",
		Parameters: []schemas.ToolParameter{
			{Name: "selector", Type: schemas.ParamString, Description: "CSS selector", Required: true},
		},
	}}
}
