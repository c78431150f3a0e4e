package oracle

import (
	"fmt"
	"strings"

	json "github.com/json-iterator/go"

	"github.com/bmstoss13/HoleNOne/api/schemas"
	"github.com/bmstoss13/HoleNOne/internal/browser/extract"
)

// Task is the user intent the oracle works towards, plus what has happened so far
// in the current invocation.
type Task struct {
	Catalogue   Catalogue
	CourseName  string
	Date        string
	Players     int
	UserMessage string

	// Booking only.
	TeeTime *schemas.TeeTimeRecord
	User    *schemas.UserDetails

	History []schemas.StepRecord
}

func (t Task) systemPrompt() string {
	if t.Catalogue.Flow == FlowBooking {
		return `You are an AI assistant tasked with completing a golf tee time booking on a course website.
You control a real browser through the provided tools. Call exactly one tool per turn.
Only use selectors that appear in the interactive element list.`
	}
	return `You are an AI assistant tasked with finding golf tee times on a website.
You control a real browser through the provided tools. Call exactly one tool per turn.
Only use selectors that appear in the interactive element list.`
}

func (t Task) intent() string {
	if t.Catalogue.Flow == FlowBooking {
		var teeTime, name, email, phone string
		if t.TeeTime != nil {
			teeTime = t.TeeTime.Time
		}
		if t.User != nil {
			name, email, phone = t.User.Name, t.User.Email, t.User.Phone
		}
		return fmt.Sprintf("The user wants to book the tee time: %s for %s, email: %s, phone: %s.", teeTime, name, email, phone)
	}
	course := t.CourseName
	if course == "" {
		course = "the course"
	}
	return fmt.Sprintf("The user wants to book a tee time for %d players on %s at %s.", t.Players, t.Date, course)
}

func (t Task) instructions() string {
	if t.Catalogue.Flow == FlowBooking {
		return `Your goal is to fill in the provided user details (name, email, phone) into the appropriate form fields and then click the final booking confirmation button.
Use 'fillInput' for text fields, 'selectOption' for dropdowns.
Once you believe all necessary user details are entered and you've identified the final booking/confirmation button (e.g., "Confirm Booking", "Complete Reservation", "Book Now"), use the 'completeBookingForm' tool.
If you need to click something to get to the booking form (e.g. "Select this time"), use 'clickElement'.
If no further action is obvious or possible, respond with 'no_action_needed'.`
	}
	return `Based on the current page and the user's request, decide the next best action to find tee times.
Look for elements related to date selection, number of players, and search/find buttons.
If you have successfully navigated to a tee time listing page, use the 'findTeeTimesOnPage' tool.
If no further automated action is possible or required to find tee times, respond with 'no_action_needed'.
Be concise in your textual responses and focus on guiding the web browsing process.`
}

// historyPrompt lists earlier steps so failed selectors are not retried blindly.
func (t Task) historyPrompt() string {
	if len(t.History) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("\nPrevious steps in this session:\n")
	for _, step := range t.History {
		action := "none"
		if step.Action != nil {
			action = step.Action.String()
		}
		fmt.Fprintf(&b, "%d. %s -> %s", step.Iteration, action, step.Result)
		if step.ErrorCode != "" {
			fmt.Fprintf(&b, " (%s: %s)", step.ErrorCode, step.Error)
		}
		b.WriteString("\n")
	}
	b.WriteString(`If a step failed with ELEMENT_NOT_FOUND, the selector does not exist; choose a different element.
If it failed with TIMEOUT_ERROR or NAVIGATION_ERROR, the page may still be loading or the link is broken; try another route.
`)
	return b.String()
}

// buildUserPrompt renders the observation and task. Only the first textLimit
// characters of the page text are included.
func buildUserPrompt(t Task, obs *schemas.PageObservation, textLimit int) (string, error) {
	elements := obs.InteractiveElements
	if elements == nil {
		elements = []schemas.InteractiveElement{}
	}
	elementsJSON, err := json.MarshalIndent(elements, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal interactive elements: %w", err)
	}

	var b strings.Builder
	b.WriteString(t.intent())
	b.WriteString("\n")
	if t.UserMessage != "" {
		fmt.Fprintf(&b, "The user also said: %s\n", t.UserMessage)
	}
	fmt.Fprintf(&b, "The current URL is: %s\n", obs.URL)
	fmt.Fprintf(&b, "Page Title: %s\n", obs.Title)
	fmt.Fprintf(&b, "Page Text Content (truncated to first %d chars):\n%s...\n\n", textLimit, extract.Truncate(obs.TextContent, textLimit))
	fmt.Fprintf(&b, "Interactive Elements (selector, type, text/value/placeholder, ariaLabel):\n%s\n", elementsJSON)
	b.WriteString(t.historyPrompt())
	b.WriteString("\n")
	b.WriteString(t.instructions())
	return b.String(), nil
}
