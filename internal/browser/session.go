// internal/browser/session.go
package browser

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/bmstoss13/HoleNOne/api/schemas"
	"github.com/bmstoss13/HoleNOne/internal/browser/extract"
	"github.com/bmstoss13/HoleNOne/internal/browser/stealth"
	"github.com/bmstoss13/HoleNOne/internal/config"
)

const (
	closeTimeout        = 10 * time.Second
	snapshotTimeout     = 15 * time.Second
	clickVisibleTimeout = 3 * time.Second
	// maxObservedText bounds the text kept on an observation; prompts truncate further.
	maxObservedText = 8000
	observeAttempts = 3
)

// Session is one isolated browser context with a single page. All mutating
// primitives re-synchronize on DOM readiness and return a fresh observation.
type Session struct {
	id        string
	cfg       config.Interface
	logger    *zap.Logger
	createdAt time.Time

	// browserCtx is the manager's browser-level chromedp context; controllerCtx
	// carries the browser executor for Target domain commands.
	browserCtx          context.Context
	controllerCtx       context.Context
	contextCreationLock *sync.Mutex

	mu               sync.Mutex
	pageCtx          context.Context
	pageCancel       context.CancelFunc
	browserContextID cdp.BrowserContextID
	isOpen           bool
	isClosed         bool
	onClose          func()
}

func newSession(id string, browserCtx, controllerCtx context.Context, lock *sync.Mutex, cfg config.Interface, logger *zap.Logger) *Session {
	return &Session{
		id:                  id,
		cfg:                 cfg,
		logger:              logger.With(zap.String("session_id", id)),
		createdAt:           time.Now(),
		browserCtx:          browserCtx,
		controllerCtx:       controllerCtx,
		contextCreationLock: lock,
	}
}

func (s *Session) ID() string           { return s.id }
func (s *Session) CreatedAt() time.Time { return s.createdAt }

// Closed reports whether the session was closed or its page died underneath it,
// for example after a renderer crash or the browser process exiting.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isClosed {
		return true
	}
	return s.isOpen && s.pageCtx != nil && s.pageCtx.Err() != nil
}

// Open creates the isolated browser context and its page. Calling Open on an
// already open session is a no-op.
func (s *Session) Open(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isClosed {
		return ErrSessionClosed
	}
	if s.isOpen {
		return nil
	}

	s.contextCreationLock.Lock()
	defer s.contextCreationLock.Unlock()

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: context cancelled before creating browser context: %v", ErrLaunch, err)
	}

	browserContextID, err := target.CreateBrowserContext().WithDisposeOnDetach(true).Do(s.controllerCtx)
	if err != nil {
		return fmt.Errorf("%w: failed to create browser context: %v", ErrLaunch, err)
	}

	targetID, err := target.CreateTarget("about:blank").
		WithBrowserContextID(browserContextID).
		Do(s.controllerCtx)
	if err != nil {
		s.disposeBrowserContext(browserContextID)
		return fmt.Errorf("%w: failed to create target: %v", ErrLaunch, err)
	}

	pageCtx, pageCancel := chromedp.NewContext(s.browserCtx, chromedp.WithTargetID(targetID))
	// The first Run attaches to the target.
	if err := chromedp.Run(pageCtx); err != nil {
		pageCancel()
		s.disposeBrowserContext(browserContextID)
		return fmt.Errorf("%w: failed to attach to page: %v", ErrLaunch, err)
	}
	if browserCfg := s.cfg.Browser(); browserCfg.Stealth {
		if err := chromedp.Run(pageCtx, stealth.Apply(stealth.PersonaFromConfig(browserCfg), s.logger)); err != nil {
			s.logger.Warn("Failed to apply browser persona, continuing without it.", zap.Error(err))
		}
	}

	s.pageCtx = pageCtx
	s.pageCancel = pageCancel
	s.browserContextID = browserContextID
	s.isOpen = true
	s.logger.Info("Browser session opened.")
	return nil
}

func (s *Session) disposeBrowserContext(id cdp.BrowserContextID) {
	if id == "" || s.controllerCtx.Err() != nil {
		return
	}
	cleanupCtx, cancel := context.WithTimeout(s.controllerCtx, 5*time.Second)
	defer cancel()
	if err := target.DisposeBrowserContext(id).Do(cleanupCtx); err != nil {
		s.logger.Debug("Failed to dispose browser context.", zap.String("browserContextID", string(id)), zap.Error(err))
	}
}

// page returns the live page context, or an error if the session is not usable.
func (s *Session) page() (context.Context, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isClosed {
		return nil, ErrSessionClosed
	}
	if !s.isOpen || s.pageCtx == nil {
		return nil, fmt.Errorf("browser session %s is not open", s.id)
	}
	if err := s.pageCtx.Err(); err != nil {
		return nil, fmt.Errorf("%w: page context ended: %v", ErrSessionClosed, err)
	}
	return s.pageCtx, nil
}

// run executes actions on the page bounded by both the caller's context and timeout.
func (s *Session) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	pageCtx, err := s.page()
	if err != nil {
		return err
	}
	runCtx, cancel := context.WithTimeout(pageCtx, timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()
	return chromedp.Run(runCtx, actions...)
}

// Navigate loads url and waits for the DOM to be parsed.
func (s *Session) Navigate(ctx context.Context, url string) (*schemas.PageObservation, error) {
	s.logger.Debug("Navigating.", zap.String("url", url))
	navTimeout := s.cfg.Network().NavigationTimeout

	err := s.run(ctx, navTimeout, chromedp.Navigate(url))
	if err != nil && errors.Is(err, context.DeadlineExceeded) {
		// A page that never fires load is still usable once the DOM is parsed.
		if readyErr := s.waitDOMReady(ctx, s.cfg.Browser().ActionTimeout); readyErr == nil {
			s.logger.Debug("Load event timed out but DOM is ready.", zap.String("url", url))
			err = nil
		}
	}
	if err != nil {
		return nil, classifyNavigation(url, err)
	}
	if wait := s.cfg.Network().PostLoadWait; wait > 0 {
		if err := sleepCtx(ctx, wait); err != nil {
			return nil, classifyNavigation(url, err)
		}
	}
	obs, err := s.Observe(ctx)
	if err != nil {
		return nil, classifyNavigation(url, err)
	}
	return obs, nil
}

// Click dispatches a click on the first element matching selector.
func (s *Session) Click(ctx context.Context, selector string) (*schemas.PageObservation, error) {
	if err := s.requireElement(ctx, selector); err != nil {
		return nil, classifyAction("click", selector, err)
	}

	err := s.run(ctx, clickVisibleTimeout,
		chromedp.ScrollIntoView(selector, chromedp.ByQuery),
		chromedp.Click(selector, chromedp.ByQuery, chromedp.NodeVisible),
	)
	if err != nil {
		// Off-screen or overlaid controls still respond to a synthetic click.
		s.logger.Debug("Mouse click failed, falling back to DOM click.", zap.String("selector", selector), zap.Error(err))
		if err := s.evalStatus(ctx, clickScript(selector)); err != nil {
			return nil, classifyAction("click", selector, err)
		}
	}
	return s.settleAndObserve(ctx, "click", selector)
}

// Fill sets an input or textarea value and fires input/change.
func (s *Session) Fill(ctx context.Context, selector, value string) (*schemas.PageObservation, error) {
	if err := s.evalStatus(ctx, fillScript(selector, value)); err != nil {
		return nil, classifyAction("fill", selector, err)
	}
	return s.settleAndObserve(ctx, "fill", selector)
}

// SelectOption sets a select-like control to the option matching value.
func (s *Session) SelectOption(ctx context.Context, selector, value string) (*schemas.PageObservation, error) {
	if err := s.evalStatus(ctx, selectScript(selector, value)); err != nil {
		return nil, classifyAction("select", selector, err)
	}
	return s.settleAndObserve(ctx, "select", selector)
}

func (s *Session) requireElement(ctx context.Context, selector string) error {
	var exists bool
	if err := s.run(ctx, s.cfg.Browser().ActionTimeout, chromedp.Evaluate(existsScript(selector), &exists)); err != nil {
		return err
	}
	if !exists {
		return ErrElementNotFound
	}
	return nil
}

// evalStatus runs one of the status-returning action scripts and maps its result.
func (s *Session) evalStatus(ctx context.Context, script string) error {
	var status string
	if err := s.run(ctx, s.cfg.Browser().ActionTimeout, chromedp.Evaluate(script, &status)); err != nil {
		return err
	}
	switch status {
	case "ok":
		return nil
	case "missing":
		return ErrElementNotFound
	case "nooption":
		return fmt.Errorf("%w: no matching option", ErrElementNotFound)
	default:
		return fmt.Errorf("element does not accept a value (%s)", status)
	}
}

func (s *Session) settleAndObserve(ctx context.Context, op, selector string) (*schemas.PageObservation, error) {
	if delay := s.cfg.Browser().SettleDelay; delay > 0 {
		if err := sleepCtx(ctx, delay); err != nil {
			return nil, classifyAction(op, selector, err)
		}
	}
	if err := s.waitDOMReady(ctx, s.cfg.Browser().ActionTimeout); err != nil {
		return nil, classifyAction(op, selector, fmt.Errorf("%w: %v", ErrActionTimeout, err))
	}
	obs, err := s.Observe(ctx)
	if err != nil {
		return nil, classifyAction(op, selector, err)
	}
	return obs, nil
}

func (s *Session) waitDOMReady(ctx context.Context, timeout time.Duration) error {
	var ready bool
	return s.run(ctx, timeout, chromedp.Poll(domReadyScript, &ready, chromedp.WithPollingInterval(100*time.Millisecond)))
}

type rawObservation struct {
	URL      string               `json:"url"`
	Title    string               `json:"title"`
	Text     string               `json:"text"`
	Elements []extract.RawElement `json:"elements"`
}

// Observe captures the current page state. A navigation racing the capture
// destroys the execution context, so the capture is retried a few times.
func (s *Session) Observe(ctx context.Context) (*schemas.PageObservation, error) {
	var raw rawObservation
	var err error
	for attempt := 1; attempt <= observeAttempts; attempt++ {
		err = s.run(ctx, s.cfg.Browser().ActionTimeout, chromedp.Evaluate(observeScript, &raw))
		if err == nil || errors.Is(err, ErrSessionClosed) || ctx.Err() != nil {
			break
		}
		s.logger.Debug("Observation attempt failed.", zap.Int("attempt", attempt), zap.Error(err))
		_ = s.waitDOMReady(ctx, s.cfg.Browser().ActionTimeout)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to observe page: %w", err)
	}

	return &schemas.PageObservation{
		URL:                 raw.URL,
		Title:               extract.CollapseSpace(raw.Title),
		TextContent:         extract.VisibleText(raw.Text, maxObservedText),
		InteractiveElements: extract.Inventory(raw.Elements),
		CapturedAt:          time.Now().UTC(),
	}, nil
}

// Snapshot returns the serialized DOM of the current page.
func (s *Session) Snapshot(ctx context.Context) (string, error) {
	var html string
	if err := s.run(ctx, snapshotTimeout, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("failed to capture DOM snapshot: %w", err)
	}
	return html, nil
}

// CurrentURL returns the page's location.
func (s *Session) CurrentURL(ctx context.Context) (string, error) {
	var url string
	if err := s.run(ctx, s.cfg.Browser().ActionTimeout, chromedp.Location(&url)); err != nil {
		return "", fmt.Errorf("failed to read page location: %w", err)
	}
	return url, nil
}

// ExtractTeeTimes runs the tee-time heuristics over the current DOM. The page is not modified.
func (s *Session) ExtractTeeTimes(ctx context.Context, date string, players int) ([]schemas.TeeTimeRecord, error) {
	html, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	url, err := s.CurrentURL(ctx)
	if err != nil {
		return nil, err
	}
	records, err := extract.TeeTimes(html, url, extract.Criteria{Date: date, Players: players})
	if err != nil {
		return nil, err
	}
	s.logger.Debug("Extracted tee times.", zap.Int("count", len(records)), zap.String("url", url))
	return records, nil
}

// Close tears down the page and its browser context. It is safe to call more than once.
func (s *Session) Close(ctx context.Context) {
	s.mu.Lock()
	if s.isClosed {
		s.mu.Unlock()
		return
	}
	s.isClosed = true
	pageCtx, pageCancel := s.pageCtx, s.pageCancel
	browserContextID := s.browserContextID
	onClose := s.onClose
	s.mu.Unlock()

	if pageCancel != nil {
		pageCancel()
		select {
		case <-pageCtx.Done():
		case <-ctx.Done():
		case <-time.After(closeTimeout):
			s.logger.Warn("Timeout waiting for page context to close.")
		}
	}
	s.disposeBrowserContext(browserContextID)

	if onClose != nil {
		onClose()
	}
	s.logger.Info("Browser session closed.")
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
