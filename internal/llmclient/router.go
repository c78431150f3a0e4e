package llmclient

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/bmstoss13/HoleNOne/api/schemas"
)

// LLMRouter implements the LLMClient interface and routes requests by role.
// Every request passes through a shared rate limiter first.
type LLMRouter struct {
	logger  *zap.Logger
	clients map[schemas.ModelRole]schemas.LLMClient
	limiter *rate.Limiter
}

// NewLLMRouter creates a router. The oracle role is mandatory; ranking and chat
// fall back to it when absent. A non-positive rps disables rate limiting.
func NewLLMRouter(logger *zap.Logger, clients map[schemas.ModelRole]schemas.LLMClient, rps float64) (*LLMRouter, error) {
	if clients[schemas.RoleOracle] == nil {
		return nil, fmt.Errorf("an oracle model client must be provided")
	}
	limit := rate.Inf
	burst := 1
	if rps > 0 {
		limit = rate.Limit(rps)
		burst = max(1, int(rps))
	}
	routed := make(map[schemas.ModelRole]schemas.LLMClient, len(clients))
	for role, c := range clients {
		if c != nil {
			routed[role] = c
		}
	}
	return &LLMRouter{
		logger:  logger.Named("llm_router"),
		clients: routed,
		limiter: rate.NewLimiter(limit, burst),
	}, nil
}

// Generate selects the client for the request's role and forwards the request.
func (r *LLMRouter) Generate(ctx context.Context, req schemas.GenerationRequest) (*schemas.GenerationResponse, error) {
	role := req.Role
	if role == "" {
		role = schemas.RoleOracle
		req.Role = role
	}
	client, ok := r.clients[role]
	if !ok {
		r.logger.Debug("No client for role, using oracle model.", zap.String("role", string(role)))
		client = r.clients[schemas.RoleOracle]
	}

	if err := r.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("waiting for LLM rate limiter: %w", err)
	}
	r.logger.Debug("Routing LLM request.", zap.String("role", string(role)), zap.Int("tools", len(req.Tools)))
	return client.Generate(ctx, req)
}
