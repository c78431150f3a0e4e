package courses

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bmstoss13/HoleNOne/api/schemas"
)

// ErrRuleViolation is returned when a request breaks a course's booking rules.
var ErrRuleViolation = errors.New("booking rules violated")

const dateLayout = "2006-01-02"

// Rules returns the booking rules for a course. Every course shares the same
// limits; catalogue courses marked private are not bookable.
func (s *Service) Rules(ctx context.Context, courseID string) (*schemas.BookingRules, error) {
	if courseID == "" {
		return nil, fmt.Errorf("%w: courseId is required", ErrInvalidInput)
	}
	rules := &schemas.BookingRules{
		CourseID:       courseID,
		MaxAdvanceDays: 14,
		MinPlayers:     1,
		MaxPlayers:     4,
		IsPublic:       true,
	}
	if c, ok := mockCourse(courseID); ok && c.Type == "private" {
		rules.IsPublic = false
	}
	return rules, nil
}

// CheckRequest validates a date and party size against rules.
func (s *Service) CheckRequest(rules *schemas.BookingRules, date string, players int) error {
	if !rules.IsPublic {
		return fmt.Errorf("%w: course %s does not accept public bookings", ErrRuleViolation, rules.CourseID)
	}
	if players < rules.MinPlayers || players > rules.MaxPlayers {
		return fmt.Errorf("%w: party size must be between %d and %d", ErrRuleViolation, rules.MinPlayers, rules.MaxPlayers)
	}
	day, err := time.ParseInLocation(dateLayout, date, time.Local)
	if err != nil {
		return fmt.Errorf("%w: date must be YYYY-MM-DD", ErrInvalidInput)
	}
	now := s.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.Local)
	if day.Before(today) {
		return fmt.Errorf("%w: date %s is in the past", ErrRuleViolation, date)
	}
	if day.After(today.AddDate(0, 0, rules.MaxAdvanceDays)) {
		return fmt.Errorf("%w: bookings open at most %d days ahead", ErrRuleViolation, rules.MaxAdvanceDays)
	}
	return nil
}
