// File: internal/service/factory.go
package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/bmstoss13/HoleNOne/api/schemas"
	"github.com/bmstoss13/HoleNOne/internal/agent"
	"github.com/bmstoss13/HoleNOne/internal/browser"
	"github.com/bmstoss13/HoleNOne/internal/cache"
	"github.com/bmstoss13/HoleNOne/internal/config"
	"github.com/bmstoss13/HoleNOne/internal/courses"
	"github.com/bmstoss13/HoleNOne/internal/llmclient"
	"github.com/bmstoss13/HoleNOne/internal/oracle"
	"github.com/bmstoss13/HoleNOne/internal/session"
	"github.com/bmstoss13/HoleNOne/internal/store"
)

const (
	runQueueBuffer      = 256
	runQueueDrainWindow = 10 * time.Second
)

// ComponentFactory creates the components a command needs. Commands take the
// interface so tests can substitute fakes.
type ComponentFactory interface {
	// Create wires the full agent stack.
	Create(ctx context.Context, cfg config.Interface, logger *zap.Logger) (*Components, error)
	// CreateCourses wires only the course collaborators. The model client is
	// optional there; ranking and chat fail without it.
	CreateCourses(ctx context.Context, cfg config.Interface, logger *zap.Logger) (*Components, error)
}

// concreteFactory is the production implementation of the ComponentFactory.
type concreteFactory struct{}

// NewComponentFactory creates a new production-ready component factory.
func NewComponentFactory() ComponentFactory {
	return &concreteFactory{}
}

// Create handles the full dependency injection of the agent stack.
func (f *concreteFactory) Create(ctx context.Context, cfg config.Interface, logger *zap.Logger) (*Components, error) {
	components := &Components{}

	var initializationErr error
	defer func() {
		if initializationErr != nil {
			logger.Warn("Initialization failed, shutting down partially created components.", zap.Error(initializationErr))
			components.Shutdown(context.WithoutCancel(ctx))
		}
	}()

	// 1. Model clients. The oracle cannot work without one.
	router, err := llmclient.NewRouterFromConfig(ctx, cfg.LLM(), logger)
	if err != nil {
		initializationErr = fmt.Errorf("failed to initialize LLM clients: %w", err)
		return nil, initializationErr
	}
	logger.Debug("LLM router initialized.")

	// 2. Cache and course collaborators.
	coursesSvc, err := f.initCourses(ctx, cfg, router, components, logger)
	if err != nil {
		initializationErr = err
		return nil, initializationErr
	}

	// 3. Optional audit store.
	var recorder agent.RunRecorder
	if cfg.Database().URL == "" {
		logger.Warn("Database URL (HOLENONE_DATABASE_URL) is not set. Agent runs will not be recorded.")
	} else {
		runStore, err := store.Connect(ctx, cfg.Database().URL, logger)
		if err != nil {
			initializationErr = fmt.Errorf("failed to initialize run store: %w", err)
			return nil, initializationErr
		}
		components.onShutdown("store", func(context.Context) error {
			runStore.Close()
			return nil
		})
		queue := StartRunQueue(context.WithoutCancel(ctx), runStore, runQueueBuffer, logger)
		components.onShutdown("run_queue", func(context.Context) error {
			if !queue.Close(runQueueDrainWindow) {
				return fmt.Errorf("run queue did not drain within %s", runQueueDrainWindow)
			}
			return nil
		})
		components.Runs = runStore
		recorder = queue
		logger.Debug("Run store initialized.")
	}

	// 4. Browser and session lifecycle. The browser process is launched lazily.
	browserManager, err := browser.NewManager(context.WithoutCancel(ctx), cfg, logger)
	if err != nil {
		initializationErr = fmt.Errorf("failed to initialize browser manager: %w", err)
		return nil, initializationErr
	}
	sessions, err := session.NewManager(session.BrowserFactory(browserManager), session.Options{
		IdleTimeout: cfg.Agent().SessionIdleTimeout,
		MaxSessions: cfg.Agent().MaxSessions,
	}, logger)
	if err != nil {
		_ = browserManager.Shutdown(context.WithoutCancel(ctx))
		initializationErr = fmt.Errorf("failed to initialize session manager: %w", err)
		return nil, initializationErr
	}
	components.onShutdown("browser", browserManager.Shutdown)
	components.onShutdown("sessions", func(ctx context.Context) error {
		sessions.Shutdown(ctx)
		return nil
	})
	components.Sessions = sessions
	logger.Debug("Browser and session managers initialized.")

	// 5. Oracle and agent.
	decider := oracle.New(router, cfg, logger)
	opts := []agent.Option{agent.WithCourseResolver(coursesSvc)}
	if recorder != nil {
		opts = append(opts, agent.WithRunRecorder(recorder))
	}
	components.Agent = agent.NewService(cfg, session.ForAgent(sessions), decider, logger, opts...)

	logger.Info("All agent components initialized successfully.")
	return components, nil
}

// CreateCourses wires the cache and course collaborators only.
func (f *concreteFactory) CreateCourses(ctx context.Context, cfg config.Interface, logger *zap.Logger) (*Components, error) {
	components := &Components{}
	var llm schemas.LLMClient
	router, err := llmclient.NewRouterFromConfig(ctx, cfg.LLM(), logger)
	if err != nil {
		logger.Warn("LLM clients unavailable; ranking and chat are disabled.", zap.Error(err))
	} else {
		llm = router
	}
	if _, err := f.initCourses(ctx, cfg, llm, components, logger); err != nil {
		components.Shutdown(context.WithoutCancel(ctx))
		return nil, err
	}
	return components, nil
}

func (f *concreteFactory) initCourses(ctx context.Context, cfg config.Interface, llm schemas.LLMClient, components *Components, logger *zap.Logger) (*courses.Service, error) {
	kv, err := cache.New(ctx, cfg.Cache(), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cache: %w", err)
	}
	components.onShutdown("cache", func(context.Context) error { return kv.Close() })

	svc, err := courses.NewService(cfg, kv, llm, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize course collaborators: %w", err)
	}
	components.Courses = svc
	return svc, nil
}
