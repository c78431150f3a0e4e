// internal/browser/errors.go
package browser

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Failure classes reported by Session primitives. Callers match with errors.Is.
var (
	ErrLaunch          = errors.New("browser launch failed")
	ErrNavigation      = errors.New("navigation failed")
	ErrElementNotFound = errors.New("element not found")
	ErrActionTimeout   = errors.New("page did not settle in time")
	ErrSessionClosed   = errors.New("browser session is closed")
)

// classifyNavigation wraps a raw navigation failure so it matches ErrNavigation.
// Deadline expiry is a navigation timeout, not an action timeout.
func classifyNavigation(url string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrSessionClosed) {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	return fmt.Errorf("%w: %s: %v", ErrNavigation, url, err)
}

// classifyAction maps a chromedp failure from a DOM primitive onto the taxonomy.
func classifyAction(op, selector string, err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, ErrElementNotFound), errors.Is(err, ErrActionTimeout),
		errors.Is(err, ErrNavigation), errors.Is(err, ErrSessionClosed):
		return fmt.Errorf("%s %s: %w", op, selector, err)
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%s %s: %w", op, selector, ErrActionTimeout)
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "could not find node"), strings.Contains(msg, "no element found"),
		strings.Contains(msg, "not a valid selector"):
		return fmt.Errorf("%s %s: %w: %v", op, selector, ErrElementNotFound, err)
	case strings.Contains(msg, "net::err"):
		return fmt.Errorf("%s %s: %w: %v", op, selector, ErrNavigation, err)
	}
	return fmt.Errorf("%s %s: %w", op, selector, err)
}
