// Package extract turns raw page state into agent-facing observations and
// heuristically extracted tee-time records. It has no browser dependency so the
// heuristics can be exercised against static HTML.
package extract

import (
	"fmt"
	"strings"

	"github.com/bmstoss13/HoleNOne/api/schemas"
)

// RawElement is what the in-page discovery script reports for one candidate node.
type RawElement struct {
	Tag         string   `json:"tag"`
	ID          string   `json:"id"`
	Classes     []string `json:"classes"`
	InputType   string   `json:"inputType"`
	Text        string   `json:"text"`
	Value       string   `json:"value"`
	Placeholder string   `json:"placeholder"`
	AriaLabel   string   `json:"ariaLabel"`
	LabelText   string   `json:"labelText"`
	Options     []string `json:"options"`
	Disabled    bool     `json:"disabled"`
	Hidden      bool     `json:"hidden"`
	// Path is a structural selector that resolves to exactly this node.
	Path string `json:"path"`
	// FirstMatch is set by the page when the tag/id/class selector's first match is this node.
	FirstMatch bool `json:"firstMatch"`
}

const maxElementText = 120

// Classify maps a raw node onto its element kind and copies only the fields valid
// for that kind. Hidden and disabled nodes, hidden inputs and unknown tags are rejected.
func Classify(raw RawElement) (schemas.InteractiveElement, bool) {
	if raw.Hidden || raw.Disabled {
		return schemas.InteractiveElement{}, false
	}

	tag := strings.ToLower(raw.Tag)
	el := schemas.InteractiveElement{
		Selector:  BuildSelector(tag, raw.ID, raw.Classes),
		AriaLabel: clip(CollapseSpace(raw.AriaLabel), maxElementText),
	}

	switch tag {
	case "button":
		el.Kind = schemas.ElementButton
		el.Text = clip(CollapseSpace(raw.Text), maxElementText)
	case "a":
		el.Kind = schemas.ElementLink
		el.Text = clip(CollapseSpace(raw.Text), maxElementText)
	case "input":
		inputType := strings.ToLower(raw.InputType)
		if inputType == "" {
			inputType = "text"
		}
		switch inputType {
		case "hidden":
			return schemas.InteractiveElement{}, false
		case "submit", "button", "reset":
			// Rendered as buttons; the caption lives in value.
			el.Kind = schemas.ElementButton
			el.Text = clip(CollapseSpace(raw.Value), maxElementText)
			return el, true
		}
		el.Kind = schemas.ElementInput
		el.InputType = inputType
		el.Value = clip(raw.Value, maxElementText)
		el.Placeholder = clip(CollapseSpace(raw.Placeholder), maxElementText)
	case "textarea":
		el.Kind = schemas.ElementTextarea
		el.Value = clip(raw.Value, maxElementText)
		el.Placeholder = clip(CollapseSpace(raw.Placeholder), maxElementText)
	case "select":
		el.Kind = schemas.ElementSelect
		el.Value = clip(raw.Value, maxElementText)
		el.Options = raw.Options
	default:
		return schemas.InteractiveElement{}, false
	}

	if el.AriaLabel == "" && raw.LabelText != "" {
		el.AriaLabel = clip(CollapseSpace(raw.LabelText), maxElementText)
	}
	return el, true
}

// BuildSelector composes tag, #id and .class parts into a CSS selector. Identifiers
// are escaped so that framework-generated ids and utility classes stay valid.
func BuildSelector(tag, id string, classes []string) string {
	var sb strings.Builder
	sb.WriteString(strings.ToLower(tag))
	if id = strings.TrimSpace(id); id != "" {
		sb.WriteByte('#')
		sb.WriteString(EscapeIdent(id))
	}
	for _, cls := range classes {
		if cls = strings.TrimSpace(cls); cls != "" {
			sb.WriteByte('.')
			sb.WriteString(EscapeIdent(cls))
		}
	}
	return sb.String()
}

// EscapeIdent escapes a CSS identifier following CSSOM serialize-an-identifier.
func EscapeIdent(s string) string {
	var sb strings.Builder
	for i, r := range s {
		switch {
		case r == 0:
			sb.WriteRune('\uFFFD')
		case r >= '0' && r <= '9':
			// A leading digit, or a digit after a leading hyphen, must be code-point escaped.
			if i == 0 || (i == 1 && s[0] == '-') {
				sb.WriteString(`\3`)
				sb.WriteRune(r)
				sb.WriteByte(' ')
			} else {
				sb.WriteRune(r)
			}
		case r == '-' && i == 0 && len(s) == 1:
			sb.WriteString(`\-`)
		case r >= 0x80, r == '-', r == '_',
			r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
			sb.WriteRune(r)
		case r < 0x20 || r == 0x7f:
			fmt.Fprintf(&sb, `\%x `, r)
		default:
			sb.WriteByte('\\')
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

// Inventory classifies raw nodes in document order and guarantees that every
// selector is distinct and resolves to the node it was built from. Nodes whose
// tag/id/class selector would hit another element fall back to their structural path.
func Inventory(raws []RawElement) []schemas.InteractiveElement {
	out := make([]schemas.InteractiveElement, 0, len(raws))
	seen := make(map[string]struct{}, len(raws))
	for _, raw := range raws {
		el, ok := Classify(raw)
		if !ok {
			continue
		}
		if _, dup := seen[el.Selector]; dup || !raw.FirstMatch {
			if raw.Path == "" {
				continue
			}
			el.Selector = raw.Path
		}
		if _, dup := seen[el.Selector]; dup {
			continue
		}
		seen[el.Selector] = struct{}{}
		out = append(out, el)
	}
	return out
}

func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return Truncate(s, n)
}
