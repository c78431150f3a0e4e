// internal/llmclient/gemini_client.go
package llmclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/bmstoss13/HoleNOne/api/schemas"
	"github.com/bmstoss13/HoleNOne/internal/config"
)

// GeminiClient implements schemas.LLMClient on the Gemini API with native function calling.
type GeminiClient struct {
	client     *genai.Client
	model      string
	cfg        config.LLMModelConfig
	maxElapsed time.Duration
	logger     *zap.Logger
}

// NewGeminiClient initializes the client. cfg.Endpoint overrides the API base URL.
func NewGeminiClient(ctx context.Context, cfg config.LLMModelConfig, maxElapsed time.Duration, logger *zap.Logger) (*GeminiClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("Gemini API key is required")
	}

	clientCfg := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: &http.Client{Timeout: cfg.APITimeout},
	}
	if cfg.Endpoint != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.Endpoint}
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("creating Gemini client: %w", err)
	}

	return &GeminiClient{
		client:     client,
		model:      cfg.Model,
		cfg:        cfg,
		maxElapsed: maxElapsed,
		logger:     logger.Named("llm_client.gemini"),
	}, nil
}

// Generate sends the prompt, with any tools declared, and returns the model's reply.
func (c *GeminiClient) Generate(ctx context.Context, req schemas.GenerationRequest) (*schemas.GenerationResponse, error) {
	genCfg := c.buildConfig(req)
	contents := genai.Text(req.UserPrompt)

	var out *schemas.GenerationResponse
	operation := func() error {
		start := time.Now()
		resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, genCfg)
		if err != nil {
			return c.classifyError(err)
		}
		if len(resp.Candidates) == 0 {
			return backoff.Permanent(fmt.Errorf("gemini API returned no candidates"))
		}

		out = &schemas.GenerationResponse{}
		for _, call := range resp.FunctionCalls() {
			out.ToolCalls = append(out.ToolCalls, schemas.ToolCall{Name: call.Name, Args: call.Args})
		}
		if len(out.ToolCalls) == 0 {
			out.Text = resp.Text()
		}

		fields := []zap.Field{zap.Duration("duration", time.Since(start)), zap.Int("tool_calls", len(out.ToolCalls))}
		if u := resp.UsageMetadata; u != nil {
			fields = append(fields,
				zap.Int32("prompt_tokens", u.PromptTokenCount),
				zap.Int32("total_tokens", u.TotalTokenCount),
			)
		}
		c.logger.Debug("LLM generation complete (Gemini).", fields...)
		return nil
	}

	if err := runForRole(ctx, c.logger, req.Role, c.maxElapsed, operation); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *GeminiClient) buildConfig(req schemas.GenerationRequest) *genai.GenerateContentConfig {
	temp := c.cfg.Temperature
	if req.Options.Temperature != nil {
		temp = *req.Options.Temperature
	}
	genCfg := &genai.GenerateContentConfig{
		Temperature: &temp,
	}
	if c.cfg.MaxTokens > 0 {
		genCfg.MaxOutputTokens = int32(c.cfg.MaxTokens)
	}
	if req.SystemPrompt != "" {
		genCfg.SystemInstruction = genai.NewContentFromText(req.SystemPrompt, genai.RoleUser)
	}
	if req.Options.ForceJSONFormat && len(req.Tools) == 0 {
		genCfg.ResponseMIMEType = "application/json"
	}

	if len(req.Tools) > 0 {
		decls := make([]*genai.FunctionDeclaration, 0, len(req.Tools))
		for _, tool := range req.Tools {
			decls = append(decls, &genai.FunctionDeclaration{
				Name:        tool.Name,
				Description: tool.Description,
				Parameters:  geminiSchema(tool.Parameters),
			})
		}
		genCfg.Tools = []*genai.Tool{{FunctionDeclarations: decls}}
		genCfg.ToolConfig = &genai.ToolConfig{
			FunctionCallingConfig: &genai.FunctionCallingConfig{Mode: genai.FunctionCallingConfigModeAuto},
		}
	}
	return genCfg
}

func geminiSchema(params []schemas.ToolParameter) *genai.Schema {
	s := &genai.Schema{Type: genai.TypeObject, Properties: make(map[string]*genai.Schema, len(params))}
	for _, p := range params {
		var prop *genai.Schema
		switch p.Type {
		case schemas.ParamInteger:
			prop = &genai.Schema{Type: genai.TypeInteger}
		case schemas.ParamObject:
			prop = geminiSchema(p.Properties)
		default:
			prop = &genai.Schema{Type: genai.TypeString}
		}
		prop.Description = p.Description
		s.Properties[p.Name] = prop
		if p.Required {
			s.Required = append(s.Required, p.Name)
		}
	}
	return s
}

func (c *GeminiClient) classifyError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		c.logger.Warn("Gemini API returned error status.", zap.Int("status", apiErr.Code), zap.String("message", apiErr.Message))
		wrapped := fmt.Errorf("gemini API error: status %d: %s", apiErr.Code, apiErr.Message)
		if isTransientStatus(apiErr.Code) {
			return wrapped
		}
		return backoff.Permanent(wrapped)
	}
	// Transport failures are retried.
	return fmt.Errorf("gemini request failed: %w", err)
}
