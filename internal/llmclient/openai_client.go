// internal/llmclient/openai_client.go
package llmclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	json "github.com/json-iterator/go"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
	"go.uber.org/zap"

	"github.com/bmstoss13/HoleNOne/api/schemas"
	"github.com/bmstoss13/HoleNOne/internal/config"
)

// OpenAIClient implements schemas.LLMClient against the Chat Completions API.
// Any OpenAI-compatible endpoint works through cfg.Endpoint.
type OpenAIClient struct {
	client     openai.Client
	cfg        config.LLMModelConfig
	maxElapsed time.Duration
	logger     *zap.Logger
}

// NewOpenAIClient initializes the client. Retries are handled here, not by the SDK.
func NewOpenAIClient(cfg config.LLMModelConfig, maxElapsed time.Duration, logger *zap.Logger) (*OpenAIClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
		option.WithHTTPClient(&http.Client{Timeout: cfg.APITimeout}),
	}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithBaseURL(cfg.Endpoint))
	}
	return &OpenAIClient{
		client:     openai.NewClient(opts...),
		cfg:        cfg,
		maxElapsed: maxElapsed,
		logger:     logger.Named("llm_client.openai"),
	}, nil
}

// Generate sends the prompt and returns the text reply or the proposed tool calls.
func (c *OpenAIClient) Generate(ctx context.Context, req schemas.GenerationRequest) (*schemas.GenerationResponse, error) {
	params := c.buildParams(req)

	var out *schemas.GenerationResponse
	operation := func() error {
		start := time.Now()
		resp, err := c.client.Chat.Completions.New(ctx, params)
		if err != nil {
			return c.classifyError(err)
		}
		if len(resp.Choices) == 0 {
			return backoff.Permanent(fmt.Errorf("openai API returned no choices"))
		}

		msg := resp.Choices[0].Message
		out = &schemas.GenerationResponse{Text: msg.Content}
		for _, call := range msg.ToolCalls {
			args := map[string]any{}
			if call.Function.Arguments != "" {
				if err := json.Unmarshal([]byte(call.Function.Arguments), &args); err != nil {
					return backoff.Permanent(fmt.Errorf("failed to decode arguments for %s: %w", call.Function.Name, err))
				}
			}
			out.ToolCalls = append(out.ToolCalls, schemas.ToolCall{Name: call.Function.Name, Args: args})
		}

		c.logger.Debug("LLM generation complete (OpenAI).",
			zap.Duration("duration", time.Since(start)),
			zap.Int64("prompt_tokens", resp.Usage.PromptTokens),
			zap.Int64("completion_tokens", resp.Usage.CompletionTokens),
			zap.Int("tool_calls", len(out.ToolCalls)),
		)
		return nil
	}

	if err := runForRole(ctx, c.logger, req.Role, c.maxElapsed, operation); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *OpenAIClient) buildParams(req schemas.GenerationRequest) openai.ChatCompletionNewParams {
	temp := c.cfg.Temperature
	if req.Options.Temperature != nil {
		temp = *req.Options.Temperature
	}

	messages := make([]openai.ChatCompletionMessageParamUnion, 0, 2)
	if req.SystemPrompt != "" {
		messages = append(messages, openai.SystemMessage(req.SystemPrompt))
	}
	messages = append(messages, openai.UserMessage(req.UserPrompt))

	params := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(c.cfg.Model),
		Messages:    messages,
		Temperature: openai.Float(float64(temp)),
	}
	if c.cfg.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(c.cfg.MaxTokens))
	}
	if req.Options.ForceJSONFormat && len(req.Tools) == 0 {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		}
	}
	for _, tool := range req.Tools {
		params.Tools = append(params.Tools, openai.ChatCompletionToolParam{
			Function: shared.FunctionDefinitionParam{
				Name:        tool.Name,
				Description: openai.String(tool.Description),
				Parameters:  openAISchema(tool.Parameters),
			},
		})
	}
	return params
}

func openAISchema(params []schemas.ToolParameter) shared.FunctionParameters {
	props := make(map[string]any, len(params))
	required := []string{}
	for _, p := range params {
		var prop map[string]any
		if p.Type == schemas.ParamObject {
			prop = openAISchema(p.Properties)
		} else {
			prop = map[string]any{"type": string(p.Type)}
		}
		if p.Description != "" {
			prop["description"] = p.Description
		}
		props[p.Name] = prop
		if p.Required {
			required = append(required, p.Name)
		}
	}
	return shared.FunctionParameters{
		"type":       "object",
		"properties": props,
		"required":   required,
	}
}

func (c *OpenAIClient) classifyError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		c.logger.Warn("OpenAI API returned error status.", zap.Int("status", apiErr.StatusCode))
		wrapped := fmt.Errorf("openai API error: status %d: %w", apiErr.StatusCode, err)
		if isTransientStatus(apiErr.StatusCode) {
			return wrapped
		}
		return backoff.Permanent(wrapped)
	}
	return fmt.Errorf("openai request failed: %w", err)
}
