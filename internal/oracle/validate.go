package oracle

import (
	"errors"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/bmstoss13/HoleNOne/api/schemas"
)

var (
	errUnknownAction    = errors.New("action is not in the allowed catalogue")
	errInvalidArguments = errors.New("action arguments are invalid")
)

// toAction validates a proposed tool call against the catalogue and converts it
// into a typed Action. Relative navigation targets resolve against currentURL.
func toAction(call schemas.ToolCall, catalogue Catalogue, currentURL string) (schemas.Action, error) {
	tool, ok := catalogue.Lookup(call.Name)
	if !ok {
		return schemas.Action{}, fmt.Errorf("%w: %q", errUnknownAction, call.Name)
	}

	args := call.Args
	if args == nil {
		args = map[string]any{}
	}
	for _, p := range tool.Parameters {
		if !p.Required {
			continue
		}
		if _, present := args[p.Name]; !present {
			return schemas.Action{}, fmt.Errorf("%w: %s is missing %q", errInvalidArguments, call.Name, p.Name)
		}
	}

	action := schemas.Action{Type: schemas.ActionType(call.Name), Timestamp: time.Now().UTC()}
	var err error
	for _, p := range tool.Parameters {
		raw, present := args[p.Name]
		if !present {
			continue
		}
		switch p.Name {
		case "url":
			action.URL, err = urlArg(raw, currentURL)
		case "selector":
			action.Selector, err = stringArg(p.Name, raw)
		case "value":
			action.Value, err = stringArg(p.Name, raw)
		case "date":
			action.Date, err = stringArg(p.Name, raw)
		case "time":
			action.Time, err = stringArg(p.Name, raw)
		case "numPlayers":
			action.Players, err = playersArg(raw)
		}
		if err != nil {
			return schemas.Action{}, fmt.Errorf("%w: %s: %v", errInvalidArguments, call.Name, err)
		}
	}
	return action, nil
}

func stringArg(name string, raw any) (string, error) {
	s, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("%s must be a string, got %T", name, raw)
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("%s must not be empty", name)
	}
	return s, nil
}

func playersArg(raw any) (int, error) {
	var n float64
	switch v := raw.(type) {
	case float64:
		n = v
	case int:
		n = float64(v)
	case int64:
		n = float64(v)
	case string:
		parsed, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, fmt.Errorf("numPlayers must be a number, got %q", v)
		}
		n = float64(parsed)
	default:
		return 0, fmt.Errorf("numPlayers must be a number, got %T", raw)
	}
	if n != math.Trunc(n) || n < 1 {
		return 0, fmt.Errorf("numPlayers must be a positive integer, got %v", n)
	}
	return int(n), nil
}

func urlArg(raw any, currentURL string) (string, error) {
	s, err := stringArg("url", raw)
	if err != nil {
		return "", err
	}
	target, err := url.Parse(s)
	if err != nil {
		return "", fmt.Errorf("url %q is malformed", s)
	}
	if !target.IsAbs() {
		base, err := url.Parse(currentURL)
		if err != nil || !base.IsAbs() {
			return "", fmt.Errorf("url %q is relative and there is no page to resolve it against", s)
		}
		target = base.ResolveReference(target)
	}
	if target.Scheme != "http" && target.Scheme != "https" {
		return "", fmt.Errorf("url scheme %q is not allowed", target.Scheme)
	}
	return target.String(), nil
}
