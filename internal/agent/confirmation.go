package agent

import (
	"context"
	"sort"
	"strings"

	"github.com/antchfx/htmlquery"
	"go.uber.org/zap"

	"github.com/bmstoss13/HoleNOne/api/schemas"
	"github.com/bmstoss13/HoleNOne/internal/browser/extract"
)

// confirmKeywords rank candidate submit controls; earlier entries win.
var confirmKeywords = []string{
	"confirm", "complete", "book now", "reserve", "finish", "place order", "submit", "pay", "checkout", "book",
}

var confirmationPhrases = []string{
	"booking confirmed", "reservation confirmed", "booking is confirmed", "confirmation number",
	"thank you for your booking", "thank you for your reservation", "your tee time is booked",
}

// visibleOnly drops nodes that are hidden themselves or sit under a hidden
// ancestor or an inert container such as a template.
const visibleOnly = `[not(ancestor-or-self::*[@hidden or @aria-hidden='true'` +
	` or contains(` + normalizedStyle + `, 'display:none')` +
	` or contains(` + normalizedStyle + `, 'visibility:hidden')])` +
	` and not(ancestor::template or ancestor::script or ancestor::noscript)]`

// normalizedStyle lowercases the inline style and strips its spaces.
const normalizedStyle = `translate(@style, 'ABCDEFGHIJKLMNOPQRSTUVWXYZ ', 'abcdefghijklmnopqrstuvwxyz')`

// errorXPaths locate the visible error text a booking site shows after a
// rejected submit. The dedicated error-message class is checked before generic alerts.
var errorXPaths = []string{
	`//*[contains(concat(' ', normalize-space(@class), ' '), ' error-message ')]` + visibleOnly,
	`//*[@role='alert']` + visibleOnly,
	`//*[contains(concat(' ', normalize-space(@class), ' '), ' alert-danger ')]` + visibleOnly,
	`//*[contains(concat(' ', normalize-space(@class), ' '), ' error ')]` + visibleOnly,
}

const noConfirmationReason = "No booking confirmation was detected on the resulting page."

// confirmationControl picks the element most likely to finalize the booking.
func confirmationControl(obs *schemas.PageObservation) (schemas.InteractiveElement, bool) {
	if obs == nil {
		return schemas.InteractiveElement{}, false
	}
	type scored struct {
		el    schemas.InteractiveElement
		score int
		order int
	}
	var candidates []scored
	for i, el := range obs.InteractiveElements {
		if el.Kind != schemas.ElementButton && el.Kind != schemas.ElementLink {
			continue
		}
		label := strings.ToLower(strings.Join([]string{el.Text, el.AriaLabel, el.Value}, " "))
		for rank, kw := range confirmKeywords {
			if strings.Contains(label, kw) {
				score := len(confirmKeywords) - rank
				if el.Kind == schemas.ElementButton {
					score++
				}
				candidates = append(candidates, scored{el: el, score: score, order: i})
				break
			}
		}
	}
	if len(candidates) == 0 {
		return schemas.InteractiveElement{}, false
	}
	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].score > candidates[j].score })
	return candidates[0].el, true
}

// isConfirmed reports whether the page shows a completed booking.
func isConfirmed(obs *schemas.PageObservation) bool {
	if obs == nil {
		return false
	}
	if strings.Contains(strings.ToLower(obs.URL), "confirmation") {
		return true
	}
	text := strings.ToLower(obs.TextContent)
	for _, phrase := range confirmationPhrases {
		if strings.Contains(text, phrase) {
			return true
		}
	}
	return false
}

// errorMessage returns the first non-empty error text in an HTML snapshot.
func errorMessage(html string) string {
	doc, err := htmlquery.Parse(strings.NewReader(html))
	if err != nil {
		return ""
	}
	for _, expr := range errorXPaths {
		nodes, err := htmlquery.QueryAll(doc, expr)
		if err != nil {
			continue
		}
		for _, n := range nodes {
			if text := extract.CollapseSpace(htmlquery.InnerText(n)); text != "" {
				return text
			}
		}
	}
	return ""
}

// confirmBooking clicks the best confirmation control, then classifies the page
// it lands on. A page with no confirmation marker is always a failure.
func (s *Service) confirmBooking(ctx context.Context, session BrowserSession, obs *schemas.PageObservation, logger *zap.Logger) (*schemas.AgentOutcome, *schemas.PageObservation) {
	after := obs
	if control, ok := confirmationControl(obs); ok {
		logger.Info("Submitting booking.", zap.String("selector", control.Selector))
		clicked, err := session.Click(ctx, control.Selector)
		if err != nil {
			logger.Warn("Confirmation click failed.", zap.Error(err))
		} else {
			after = clicked
		}
	} else {
		logger.Warn("No confirmation control found, classifying current page.")
	}
	if after == obs {
		if fresh, err := session.Observe(ctx); err == nil {
			after = fresh
		}
	}

	if isConfirmed(after) {
		return &schemas.AgentOutcome{
			Kind:            schemas.OutcomeBookingConfirmed,
			ConfirmationURL: after.URL,
		}, after
	}

	reason := noConfirmationReason
	if html, err := session.Snapshot(ctx); err == nil {
		if msg := errorMessage(html); msg != "" {
			reason = msg
		}
	} else {
		logger.Debug("Could not snapshot page for error message.", zap.Error(err))
	}
	return &schemas.AgentOutcome{Kind: schemas.OutcomeBookingFailed, Reason: reason}, after
}
