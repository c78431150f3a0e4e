package schemas

import (
	"fmt"
	"time"
)

// ActionType enumerates the closed action vocabulary. Values are the tool names
// presented to the oracle.
type ActionType string

const (
	// -- Generic page interaction --
	ActionNavigate        ActionType = "navigateTo"
	ActionClick           ActionType = "clickElement"
	ActionFillInput       ActionType = "fillInput"
	ActionSelectOption    ActionType = "selectOption"
	ActionExtractTeeTimes ActionType = "findTeeTimesOnPage"

	// -- Booking search form steps --
	ActionSelectDate     ActionType = "selectBookingDate"
	ActionSetPlayerCount ActionType = "setNumPlayers"
	ActionSelectTime     ActionType = "selectBookingTime"
	ActionSubmitSearch   ActionType = "clickSubmitBookingSearch"

	// -- Booking completion --
	ActionCompleteBookingForm ActionType = "completeBookingForm"
)

// Action is a validated oracle decision. Only the fields its Type needs are set.
type Action struct {
	Type     ActionType `json:"type"`
	URL      string     `json:"url,omitempty"`
	Selector string     `json:"selector,omitempty"`
	Value    string     `json:"value,omitempty"`
	Date     string     `json:"date,omitempty"`
	Time     string     `json:"time,omitempty"`
	Players  int        `json:"numPlayers,omitempty"`
	// Thought is the oracle's accompanying reasoning, if any.
	Thought   string    `json:"thought,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Mutates reports whether the action changes page state.
func (a Action) Mutates() bool {
	return a.Type != ActionExtractTeeTimes
}

func (a Action) String() string {
	switch a.Type {
	case ActionNavigate:
		return fmt.Sprintf("%s(%s)", a.Type, a.URL)
	case ActionFillInput, ActionSelectOption:
		return fmt.Sprintf("%s(%s, %q)", a.Type, a.Selector, a.Value)
	case ActionSelectDate:
		return fmt.Sprintf("%s(%s, %s)", a.Type, a.Selector, a.Date)
	case ActionSetPlayerCount:
		return fmt.Sprintf("%s(%s, %d)", a.Type, a.Selector, a.Players)
	case ActionSelectTime:
		return fmt.Sprintf("%s(%s, %s)", a.Type, a.Selector, a.Time)
	case ActionClick, ActionSubmitSearch:
		return fmt.Sprintf("%s(%s)", a.Type, a.Selector)
	default:
		return string(a.Type) + "()"
	}
}
