// internal/llmutil/parser.go
package llmutil

import (
	"fmt"
	"regexp"
	"strings"

	json "github.com/json-iterator/go"
)

// Backticks are written as \x60 because Go raw strings cannot contain them.
var codeBlockRegex = regexp.MustCompile("(?s)\x60\x60\x60(?:json|JSON)?\\s*(.*?)\\s*\x60\x60\x60")

// ExtractJSON isolates the JSON payload in a model reply. It unwraps a markdown
// code fence if present, otherwise it takes the span from the first opening
// bracket to the matching last closing bracket.
func ExtractJSON(response string) string {
	response = strings.TrimSpace(response)
	if m := codeBlockRegex.FindStringSubmatch(response); len(m) > 1 {
		return strings.TrimSpace(m[1])
	}
	if strings.HasPrefix(response, "{") || strings.HasPrefix(response, "[") {
		return response
	}

	objStart, objEnd := strings.Index(response, "{"), strings.LastIndex(response, "}")
	arrStart, arrEnd := strings.Index(response, "["), strings.LastIndex(response, "]")
	switch {
	case objStart != -1 && objEnd > objStart && (arrStart == -1 || objStart < arrStart):
		return response[objStart : objEnd+1]
	case arrStart != -1 && arrEnd > arrStart:
		return response[arrStart : arrEnd+1]
	}
	return response
}

// ParseJSONResponse attempts to parse an LLM response string into a target Go type.
func ParseJSONResponse[T any](response string) (*T, error) {
	payload := ExtractJSON(response)
	var result T
	if err := json.UnmarshalFromString(payload, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal LLM JSON response: %w. Extracted JSON (truncated): %s", err, truncateString(payload, 500))
	}
	return &result, nil
}

func truncateString(s string, maxLen int) string {
	if maxLen <= 0 {
		return ""
	}
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
