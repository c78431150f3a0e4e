// internal/browser/manager.go
package browser

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/bmstoss13/HoleNOne/internal/config"
)

const shutdownGracePeriod = 15 * time.Second

// Manager owns the Chrome process and hands out isolated Sessions. The process is
// launched lazily on the first NewSession call; browser.concurrency caps how many
// sessions may be open at once.
type Manager struct {
	cfg    config.Interface
	logger *zap.Logger

	parentCtx     context.Context
	allocCtx      context.Context
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
	controllerCtx context.Context

	contextCreationLock sync.Mutex
	sem                 *semaphore.Weighted

	mu       sync.Mutex
	sessions map[string]*Session
	wg       sync.WaitGroup
	closed   bool

	// launchMu guards the process contexts, which are replaced on relaunch.
	launchMu sync.Mutex
}

// NewManager creates a browser manager. The Chrome process inherits parentCtx's lifetime.
func NewManager(parentCtx context.Context, cfg config.Interface, logger *zap.Logger) (*Manager, error) {
	if cfg.Browser().Concurrency <= 0 {
		return nil, fmt.Errorf("browser concurrency must be positive")
	}
	m := &Manager{
		cfg:       cfg,
		logger:    logger.Named("browser_manager"),
		parentCtx: parentCtx,
		sem:       semaphore.NewWeighted(int64(cfg.Browser().Concurrency)),
		sessions:  make(map[string]*Session),
	}
	m.logger.Info("Browser manager created (launch deferred).", zap.Int("concurrency", cfg.Browser().Concurrency))
	return m, nil
}

// start launches Chrome, or relaunches it when the previous process has gone
// away. It returns the browser-level and controller contexts for new sessions.
func (m *Manager) start() (context.Context, context.Context, error) {
	m.launchMu.Lock()
	defer m.launchMu.Unlock()
	if m.browserCtx != nil {
		if m.browserCtx.Err() == nil {
			return m.browserCtx, m.controllerCtx, nil
		}
		m.logger.Warn("Browser process is gone, relaunching.", zap.Error(m.browserCtx.Err()))
		m.browserCancel()
		m.allocCancel()
		m.browserCtx, m.controllerCtx = nil, nil
	}
	if err := m.parentCtx.Err(); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrLaunch, err)
	}

	m.logger.Info("Launching browser.")
	allocCtx, allocCancel := chromedp.NewExecAllocator(m.parentCtx, DefaultAllocatorOptions(m.cfg.Browser())...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(m.logger.Sugar().Debugf),
		chromedp.WithErrorf(m.logger.Sugar().Debugf),
	)
	// Running with no actions starts the process and opens the initial tab.
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, nil, fmt.Errorf("%w: %v", ErrLaunch, err)
	}
	c := chromedp.FromContext(browserCtx)
	m.allocCtx, m.allocCancel = allocCtx, allocCancel
	m.browserCtx, m.browserCancel = browserCtx, browserCancel
	m.controllerCtx = cdp.WithExecutor(browserCtx, c.Browser)
	m.logger.Info("Browser launched.")
	return m.browserCtx, m.controllerCtx, nil
}

// NewSession opens a new isolated browser session. It blocks while the
// concurrency cap is reached, until ctx is done.
func (m *Manager) NewSession(ctx context.Context, id string) (*Session, error) {
	m.mu.Lock()
	closed := m.closed
	m.mu.Unlock()
	if closed {
		return nil, fmt.Errorf("%w: browser manager is shut down", ErrLaunch)
	}

	browserCtx, controllerCtx, err := m.start()
	if err != nil {
		return nil, err
	}
	if err := m.sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("%w: waiting for a browser slot: %v", ErrLaunch, err)
	}

	s := newSession(id, browserCtx, controllerCtx, &m.contextCreationLock, m.cfg, m.logger)
	m.wg.Add(1)
	s.onClose = func() {
		m.mu.Lock()
		delete(m.sessions, id)
		m.mu.Unlock()
		m.sem.Release(1)
		m.wg.Done()
	}

	if err := s.Open(ctx); err != nil {
		// Open failed before the session was registered; Close releases the slot.
		s.Close(context.Background())
		return nil, err
	}

	m.mu.Lock()
	m.sessions[id] = s
	m.mu.Unlock()
	return s, nil
}

// Shutdown closes all sessions and terminates the browser process.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	open := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		open = append(open, s)
	}
	m.mu.Unlock()

	m.logger.Info("Shutting down browser manager.", zap.Int("open_sessions", len(open)))
	for _, s := range open {
		s.Close(ctx)
	}

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		m.logger.Warn("Shutdown context ended before all sessions closed.")
	case <-time.After(shutdownGracePeriod):
		m.logger.Warn("Timed out waiting for sessions to close.")
	}

	m.launchMu.Lock()
	defer m.launchMu.Unlock()
	if m.browserCancel != nil {
		if err := chromedp.Cancel(m.browserCtx); err != nil && ctx.Err() == nil {
			m.logger.Debug("Browser cancel reported an error.", zap.Error(err))
		}
		m.browserCancel()
	}
	if m.allocCancel != nil {
		m.allocCancel()
	}
	m.logger.Info("Browser manager shut down.")
	return nil
}
