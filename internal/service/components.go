// File: internal/service/components.go
package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/bmstoss13/HoleNOne/internal/api"
	"github.com/bmstoss13/HoleNOne/internal/observability"
)

// Components holds the initialized services behind the API and CLI commands
// and owns their shutdown order.
type Components struct {
	Agent    api.Agent
	Courses  api.Courses
	Sessions api.Sessions
	// Runs is nil when no database is configured.
	Runs api.RunLister

	shutdownSteps []shutdownStep
}

type shutdownStep struct {
	name string
	fn   func(ctx context.Context) error
}

// onShutdown registers a release step. Steps run in reverse registration
// order, so a component is released before the ones it was built on.
func (c *Components) onShutdown(name string, fn func(ctx context.Context) error) {
	c.shutdownSteps = append(c.shutdownSteps, shutdownStep{name: name, fn: fn})
}

// APIDeps exposes the components to the HTTP handlers.
func (c *Components) APIDeps() api.Deps {
	return api.Deps{Agent: c.Agent, Courses: c.Courses, Sessions: c.Sessions, Runs: c.Runs}
}

// Shutdown releases everything: sessions before the browser that hosts them,
// the audit queue before the database it writes to. A failing step is logged
// and does not stop the rest.
func (c *Components) Shutdown(ctx context.Context) {
	logger := observability.GetLogger()
	logger.Debug("Beginning components shutdown sequence.")
	for i := len(c.shutdownSteps) - 1; i >= 0; i-- {
		step := c.shutdownSteps[i]
		if err := step.fn(ctx); err != nil {
			logger.Warn("Shutdown step failed.", zap.String("step", step.name), zap.Error(err))
			continue
		}
		logger.Debug("Shutdown step done.", zap.String("step", step.name))
	}
	c.shutdownSteps = nil
	logger.Info("All components shut down.")
}
