package agent

import (
	"context"

	"github.com/bmstoss13/HoleNOne/api/schemas"
)

// BrowserSession is the controller surface the control loop drives.
// *browser.Session implements it.
type BrowserSession interface {
	Navigate(ctx context.Context, url string) (*schemas.PageObservation, error)
	Click(ctx context.Context, selector string) (*schemas.PageObservation, error)
	Fill(ctx context.Context, selector, value string) (*schemas.PageObservation, error)
	SelectOption(ctx context.Context, selector, value string) (*schemas.PageObservation, error)
	Observe(ctx context.Context) (*schemas.PageObservation, error)
	CurrentURL(ctx context.Context) (string, error)
	Snapshot(ctx context.Context) (string, error)
	ExtractTeeTimes(ctx context.Context, date string, players int) ([]schemas.TeeTimeRecord, error)
}

// SessionProvider hands out the browser session bound to a session identifier.
// The returned release func must be called once the invocation is finished.
type SessionProvider interface {
	Acquire(ctx context.Context, sessionID string) (BrowserSession, func(), error)
}

// SessionProviderFunc adapts a function to SessionProvider.
type SessionProviderFunc func(ctx context.Context, sessionID string) (BrowserSession, func(), error)

func (f SessionProviderFunc) Acquire(ctx context.Context, sessionID string) (BrowserSession, func(), error) {
	return f(ctx, sessionID)
}

// CourseResolver maps a course identifier to its details, including the website.
type CourseResolver interface {
	Lookup(ctx context.Context, courseID string) (*schemas.Course, error)
}

// RunRecorder persists a summary of every finished run.
type RunRecorder interface {
	RecordRun(ctx context.Context, run schemas.RunRecord) error
}
