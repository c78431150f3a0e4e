package schemas

import "context"

// -- LLM Schemas --

// ModelRole selects which configured model serves a request.
type ModelRole string

const (
	RoleOracle  ModelRole = "oracle"
	RoleRanking ModelRole = "ranking"
	RoleChat    ModelRole = "chat"
)

// ParamType is the JSON schema type of a tool parameter.
type ParamType string

const (
	ParamString  ParamType = "string"
	ParamInteger ParamType = "integer"
	ParamObject  ParamType = "object"
)

// ToolParameter describes one argument of a callable tool.
type ToolParameter struct {
	Name        string
	Type        ParamType
	Description string
	Required    bool
	// Properties is used only when Type is ParamObject.
	Properties []ToolParameter
}

// ToolDefinition is a function the model may call instead of replying with text.
type ToolDefinition struct {
	Name        string
	Description string
	Parameters  []ToolParameter
}

// ToolCall is a function invocation proposed by the model. Args holds the raw
// decoded arguments; numbers arrive as float64.
type ToolCall struct {
	Name string
	Args map[string]any
}

// GenerationOptions tunes a single request.
type GenerationOptions struct {
	// Temperature overrides the model's configured temperature when set.
	Temperature     *float32
	ForceJSONFormat bool
}

// GenerationRequest is a provider-neutral prompt.
type GenerationRequest struct {
	Role         ModelRole
	SystemPrompt string
	UserPrompt   string
	Tools        []ToolDefinition
	Options      GenerationOptions
}

// GenerationResponse holds either tool calls, text, or both.
type GenerationResponse struct {
	Text      string
	ToolCalls []ToolCall
}

// LLMClient is implemented by every provider and by the router.
type LLMClient interface {
	Generate(ctx context.Context, req GenerationRequest) (*GenerationResponse, error)
}
