// internal/agent/executors.go
package agent

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/bmstoss13/HoleNOne/api/schemas"
	"github.com/bmstoss13/HoleNOne/internal/browser"
)

// ExecutionResult is the outcome of dispatching one action to the browser.
type ExecutionResult struct {
	Status string `json:"status"` // "success" or "failed"
	// Observation is the page state after the action; nil when the action failed.
	Observation  *schemas.PageObservation `json:"observation,omitempty"`
	ErrorCode    ErrorCode                `json:"error_code,omitempty"`
	ErrorDetails map[string]interface{}   `json:"error_details,omitempty"`
}

// Succeeded reports whether the action completed.
func (r *ExecutionResult) Succeeded() bool { return r != nil && r.Status == "success" }

// ActionHandler executes one DOM action. current is the observation the oracle
// decided on; handlers use it to pick the right primitive for a control.
type ActionHandler func(ctx context.Context, session BrowserSession, action schemas.Action, current *schemas.PageObservation) (*schemas.PageObservation, error)

// -- Executor Registry --

// ExecutorRegistry dispatches page-mutating actions to browser primitives.
// Extraction and booking completion are terminal steps handled by the loop itself.
type ExecutorRegistry struct {
	logger   *zap.Logger
	handlers map[schemas.ActionType]ActionHandler
	required map[schemas.ActionType][]string
}

// NewExecutorRegistry creates the registry with the full DOM action vocabulary.
func NewExecutorRegistry(logger *zap.Logger) *ExecutorRegistry {
	r := &ExecutorRegistry{
		logger:   logger.Named("executor_registry"),
		handlers: make(map[schemas.ActionType]ActionHandler),
		required: make(map[schemas.ActionType][]string),
	}
	r.register(schemas.ActionNavigate, handleNavigate, "url")
	r.register(schemas.ActionClick, handleClick, "selector")
	r.register(schemas.ActionSubmitSearch, handleClick, "selector")
	r.register(schemas.ActionFillInput, handleFill, "selector", "value")
	r.register(schemas.ActionSelectOption, handleSelect, "selector", "value")
	r.register(schemas.ActionSelectDate, handleSelectDate, "selector", "date")
	r.register(schemas.ActionSetPlayerCount, handleSetPlayers, "selector", "numPlayers")
	r.register(schemas.ActionSelectTime, handleSelectTime, "selector", "time")
	return r
}

func (r *ExecutorRegistry) register(t schemas.ActionType, h ActionHandler, required ...string) {
	r.handlers[t] = h
	r.required[t] = required
}

// Execute runs the action. Failures are reported in the result rather than as an
// error so the loop can record them and carry on.
func (r *ExecutorRegistry) Execute(ctx context.Context, session BrowserSession, action schemas.Action, current *schemas.PageObservation) (result *ExecutionResult) {
	handler, ok := r.handlers[action.Type]
	if !ok {
		return failed(ErrCodeUnknownAction, action, fmt.Errorf("no executor registered for action type: %s", action.Type))
	}
	if missing := missingParams(action, r.required[action.Type]); missing != "" {
		return failed(ErrCodeInvalidParameters, action, fmt.Errorf("%s requires '%s'", action.Type, missing))
	}

	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("Executor panicked.", zap.String("action", string(action.Type)), zap.Any("panic", p))
			result = failed(ErrCodeExecutorPanic, action, fmt.Errorf("executor panic: %v", p))
		}
	}()

	obs, err := handler(ctx, session, action, current)
	if err != nil {
		code, details := ParseBrowserError(err, action)
		r.logger.Warn("Browser action execution failed",
			zap.String("action", string(action.Type)),
			zap.String("error_code", string(code)),
			zap.Error(err))
		return &ExecutionResult{Status: "failed", ErrorCode: code, ErrorDetails: details}
	}
	return &ExecutionResult{Status: "success", Observation: obs}
}

func failed(code ErrorCode, action schemas.Action, err error) *ExecutionResult {
	return &ExecutionResult{
		Status:       "failed",
		ErrorCode:    code,
		ErrorDetails: map[string]interface{}{"message": err.Error(), "action": action.Type},
	}
}

func missingParams(action schemas.Action, required []string) string {
	for _, name := range required {
		var empty bool
		switch name {
		case "url":
			empty = action.URL == ""
		case "selector":
			empty = action.Selector == ""
		case "value":
			empty = action.Value == ""
		case "date":
			empty = action.Date == ""
		case "time":
			empty = action.Time == ""
		case "numPlayers":
			empty = action.Players <= 0
		}
		if empty {
			return name
		}
	}
	return ""
}

// ParseBrowserError classifies a controller failure into an ErrorCode.
func ParseBrowserError(err error, action schemas.Action) (ErrorCode, map[string]interface{}) {
	details := map[string]interface{}{
		"message": err.Error(),
		"action":  action.Type,
	}
	switch {
	case errors.Is(err, browser.ErrElementNotFound):
		details["selector"] = action.Selector
		return ErrCodeElementNotFound, details
	case errors.Is(err, browser.ErrActionTimeout), errors.Is(err, context.DeadlineExceeded):
		return ErrCodeTimeoutError, details
	case errors.Is(err, browser.ErrNavigation):
		if action.URL != "" {
			details["url"] = action.URL
		}
		return ErrCodeNavigationError, details
	case errors.Is(err, browser.ErrSessionClosed):
		return ErrCodeSessionClosed, details
	}
	return ErrCodeExecutionFailure, details
}

// -- Action Handlers --

func handleNavigate(ctx context.Context, s BrowserSession, a schemas.Action, _ *schemas.PageObservation) (*schemas.PageObservation, error) {
	return s.Navigate(ctx, a.URL)
}

func handleClick(ctx context.Context, s BrowserSession, a schemas.Action, _ *schemas.PageObservation) (*schemas.PageObservation, error) {
	return s.Click(ctx, a.Selector)
}

func handleFill(ctx context.Context, s BrowserSession, a schemas.Action, _ *schemas.PageObservation) (*schemas.PageObservation, error) {
	return s.Fill(ctx, a.Selector, a.Value)
}

func handleSelect(ctx context.Context, s BrowserSession, a schemas.Action, _ *schemas.PageObservation) (*schemas.PageObservation, error) {
	return s.SelectOption(ctx, a.Selector, a.Value)
}

// setValue picks select or fill based on the observed control kind. Unknown
// selectors go through Fill, which reports ElementNotFound when nothing matches.
func setValue(ctx context.Context, s BrowserSession, selector, value string, current *schemas.PageObservation) (*schemas.PageObservation, error) {
	if el, ok := current.Element(selector); ok && el.Kind == schemas.ElementSelect {
		return s.SelectOption(ctx, selector, value)
	}
	return s.Fill(ctx, selector, value)
}

func handleSelectDate(ctx context.Context, s BrowserSession, a schemas.Action, current *schemas.PageObservation) (*schemas.PageObservation, error) {
	return setValue(ctx, s, a.Selector, a.Date, current)
}

func handleSetPlayers(ctx context.Context, s BrowserSession, a schemas.Action, current *schemas.PageObservation) (*schemas.PageObservation, error) {
	return setValue(ctx, s, a.Selector, strconv.Itoa(a.Players), current)
}

// handleSelectTime clicks slot buttons and links, and sets pickers.
func handleSelectTime(ctx context.Context, s BrowserSession, a schemas.Action, current *schemas.PageObservation) (*schemas.PageObservation, error) {
	if el, ok := current.Element(a.Selector); ok && (el.Kind == schemas.ElementButton || el.Kind == schemas.ElementLink) {
		return s.Click(ctx, a.Selector)
	}
	return setValue(ctx, s, a.Selector, a.Time, current)
}
