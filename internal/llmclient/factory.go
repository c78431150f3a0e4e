// internal/llmclient/factory.go
package llmclient

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/bmstoss13/HoleNOne/api/schemas"
	"github.com/bmstoss13/HoleNOne/internal/config"
)

// NewClient is a factory function that creates an LLMClient for one configured model.
func NewClient(ctx context.Context, cfg config.LLMModelConfig, maxElapsed time.Duration, logger *zap.Logger) (schemas.LLMClient, error) {
	switch cfg.Provider {
	case config.ProviderGemini:
		return NewGeminiClient(ctx, cfg, maxElapsed, logger)
	case config.ProviderOpenAI:
		return NewOpenAIClient(cfg, maxElapsed, logger)
	default:
		return nil, fmt.Errorf("unknown or unsupported LLM provider configured: '%s'. Supported: [%s, %s]",
			cfg.Provider, config.ProviderGemini, config.ProviderOpenAI)
	}
}

// NewRouterFromConfig builds one client per distinct model referenced by the
// oracle, ranking and chat roles and wires them into a router.
func NewRouterFromConfig(ctx context.Context, cfg config.LLMConfig, logger *zap.Logger) (*LLMRouter, error) {
	roles := map[schemas.ModelRole]string{
		schemas.RoleOracle:  cfg.OracleModel,
		schemas.RoleRanking: cfg.RankingModel,
		schemas.RoleChat:    cfg.ChatModel,
	}

	built := make(map[string]schemas.LLMClient)
	clients := make(map[schemas.ModelRole]schemas.LLMClient, len(roles))
	for role, name := range roles {
		if name == "" {
			continue
		}
		if c, ok := built[name]; ok {
			clients[role] = c
			continue
		}
		modelCfg, ok := cfg.Model(name)
		if !ok {
			return nil, fmt.Errorf("llm model %q referenced by %s role is not configured", name, role)
		}
		c, err := NewClient(ctx, modelCfg, cfg.MaxRetryElapsed, logger)
		if err != nil {
			return nil, fmt.Errorf("creating %s client (%s): %w", role, name, err)
		}
		built[name] = c
		clients[role] = c
	}
	return NewLLMRouter(logger, clients, cfg.RequestsPerSecond)
}
