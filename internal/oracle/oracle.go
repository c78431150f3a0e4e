// Package oracle adapts the language model into a constrained decision function:
// given an observation and a closed action catalogue it returns one validated
// Action, a terminal text reply, or an explicit no-viable-action signal.
package oracle

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/bmstoss13/HoleNOne/api/schemas"
	"github.com/bmstoss13/HoleNOne/internal/config"
	"github.com/bmstoss13/HoleNOne/internal/observability"
)

// ErrOracleUnavailable wraps transport and provider failures. It is fatal for the
// current invocation but leaves the browser session intact.
var ErrOracleUnavailable = errors.New("decision oracle unavailable")

const fallbackText = "No specific action or tee times found. Please check manually."

// DecisionKind classifies an oracle reply.
type DecisionKind int

const (
	// DecisionAction carries one validated action to execute.
	DecisionAction DecisionKind = iota
	// DecisionText is a terminal free-text reply with no action chosen.
	DecisionText
	// DecisionNoViableAction means the oracle signalled it cannot proceed, or
	// proposed something outside the catalogue.
	DecisionNoViableAction
)

func (k DecisionKind) String() string {
	switch k {
	case DecisionAction:
		return "action"
	case DecisionText:
		return "text"
	case DecisionNoViableAction:
		return "no_viable_action"
	}
	return "unknown"
}

// Decision is the parsed oracle reply.
type Decision struct {
	Kind    DecisionKind
	Action  *schemas.Action
	Text    string
	Thought string
}

// Decider is the interface the control loop consumes.
type Decider interface {
	Decide(ctx context.Context, task Task, obs *schemas.PageObservation) (*Decision, error)
}

// Adapter implements Decider on top of an LLM client.
type Adapter struct {
	client      schemas.LLMClient
	provider    string
	stopPhrases []string
	textLimit   int
	logger      *zap.Logger
}

// New creates an Adapter using the oracle model settings from cfg.
func New(client schemas.LLMClient, cfg config.Interface, logger *zap.Logger) *Adapter {
	phrases := make([]string, 0, len(cfg.Agent().StopPhrases))
	for _, p := range cfg.Agent().StopPhrases {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			phrases = append(phrases, p)
		}
	}
	return &Adapter{
		client:      client,
		provider:    cfg.LLM().OracleModel,
		stopPhrases: phrases,
		textLimit:   cfg.Agent().TextLimit,
		logger:      logger.Named("oracle"),
	}
}

// Decide issues exactly one oracle round trip. It does not retry.
func (a *Adapter) Decide(ctx context.Context, task Task, obs *schemas.PageObservation) (*Decision, error) {
	if obs == nil {
		return nil, fmt.Errorf("oracle requires an observation")
	}
	userPrompt, err := buildUserPrompt(task, obs, a.textLimit)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	resp, err := a.client.Generate(ctx, schemas.GenerationRequest{
		Role:         schemas.RoleOracle,
		SystemPrompt: task.systemPrompt(),
		UserPrompt:   userPrompt,
		Tools:        task.Catalogue.Tools,
	})
	observability.OracleDuration.WithLabelValues(a.provider).Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOracleUnavailable, err)
	}
	if resp == nil {
		return nil, fmt.Errorf("%w: empty reply", ErrOracleUnavailable)
	}

	d := a.interpret(task, obs, resp)
	a.logger.Debug("Oracle decided.",
		zap.String("flow", string(task.Catalogue.Flow)),
		zap.Stringer("kind", d.Kind),
		zap.String("thought", d.Thought),
	)
	return d, nil
}

func (a *Adapter) interpret(task Task, obs *schemas.PageObservation, resp *schemas.GenerationResponse) *Decision {
	text := strings.TrimSpace(resp.Text)

	if len(resp.ToolCalls) > 0 {
		call := resp.ToolCalls[0]
		if len(resp.ToolCalls) > 1 {
			a.logger.Debug("Oracle proposed several calls, using the first.", zap.Int("count", len(resp.ToolCalls)))
		}
		thought := fmt.Sprintf("LLM decided to call function: %s", call.Name)
		action, err := toAction(call, task.Catalogue, obs.URL)
		if err != nil {
			a.logger.Warn("Rejected oracle action.", zap.String("action", call.Name), zap.Error(err))
			return &Decision{
				Kind:    DecisionNoViableAction,
				Text:    fmt.Sprintf("The assistant proposed an action that cannot be executed (%v).", err),
				Thought: thought,
			}
		}
		action.Thought = text
		return &Decision{Kind: DecisionAction, Action: &action, Text: text, Thought: thought}
	}

	thought := "LLM provided a textual response without function calls."
	if text == "" {
		return &Decision{Kind: DecisionText, Text: fallbackText, Thought: thought}
	}
	if a.isStopPhrase(text) {
		return &Decision{Kind: DecisionNoViableAction, Text: text, Thought: thought}
	}
	return &Decision{Kind: DecisionText, Text: text, Thought: thought}
}

func (a *Adapter) isStopPhrase(text string) bool {
	lower := strings.ToLower(text)
	for _, p := range a.stopPhrases {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}
