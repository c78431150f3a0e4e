package schemas

import "time"

// -- Page Observation Schemas --

// ElementKind is the closed set of control kinds the observer reports.
type ElementKind string

const (
	ElementButton   ElementKind = "button"
	ElementLink     ElementKind = "link"
	ElementInput    ElementKind = "input"
	ElementTextarea ElementKind = "textarea"
	ElementSelect   ElementKind = "select"
)

// InteractiveElement describes one actionable DOM node. Which auxiliary fields are
// populated depends on Kind: Text for buttons and links, Value/Placeholder/InputType
// for inputs and textareas, Value/Options for selects.
type InteractiveElement struct {
	Selector    string      `json:"selector"`
	Kind        ElementKind `json:"type"`
	Text        string      `json:"text,omitempty"`
	Value       string      `json:"value,omitempty"`
	Placeholder string      `json:"placeholder,omitempty"`
	InputType   string      `json:"inputType,omitempty"`
	Options     []string    `json:"options,omitempty"`
	AriaLabel   string      `json:"ariaLabel,omitempty"`
}

// PageObservation is an immutable snapshot of what the agent can see on the page.
// It is also the resumption token handed back to callers between requests.
type PageObservation struct {
	URL                 string               `json:"url"`
	Title               string               `json:"title"`
	TextContent         string               `json:"textContent"`
	InteractiveElements []InteractiveElement `json:"interactiveElements"`
	CapturedAt          time.Time            `json:"capturedAt"`
}

// Element returns the element with the given selector, if the observation has one.
func (o *PageObservation) Element(selector string) (InteractiveElement, bool) {
	if o == nil {
		return InteractiveElement{}, false
	}
	for _, el := range o.InteractiveElements {
		if el.Selector == selector {
			return el, true
		}
	}
	return InteractiveElement{}, false
}

// TeeTimeRecord is one heuristically extracted availability slot.
type TeeTimeRecord struct {
	Time           string `json:"time"`
	Price          string `json:"price,omitempty"`
	AvailableSpots *int   `json:"availableSpots,omitempty"`
	BookingURL     string `json:"bookingUrl,omitempty"`
}
