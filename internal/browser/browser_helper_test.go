// internal/browser/browser_helper_test.go
package browser

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os/exec"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"golang.org/x/sync/semaphore"

	"github.com/bmstoss13/HoleNOne/internal/config"
)

var (
	globalProcessSemaphore *semaphore.Weighted
	semaphoreOnce          sync.Once
)

// Chrome is heavy; tests in this package share a small number of instances.
func getGlobalProcessSemaphore() *semaphore.Weighted {
	semaphoreOnce.Do(func() {
		globalProcessSemaphore = semaphore.NewWeighted(2)
	})
	return globalProcessSemaphore
}

func chromeAvailable() bool {
	for _, name := range []string{"google-chrome", "google-chrome-stable", "chromium", "chromium-browser", "headless_shell"} {
		if _, err := exec.LookPath(name); err == nil {
			return true
		}
	}
	return false
}

type testFixture struct {
	Manager *Manager
	Session *Session
	Config  *config.Config
	Ctx     context.Context
}

func newTestFixture(t *testing.T) *testFixture {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping browser integration test in short mode")
	}
	if !chromeAvailable() {
		t.Skip("no Chrome or Chromium binary on PATH")
	}

	deadline, ok := t.Deadline()
	if !ok {
		deadline = time.Now().Add(2 * time.Minute)
	}
	ctx, cancel := context.WithDeadline(context.Background(), deadline.Add(-5*time.Second))
	t.Cleanup(cancel)

	sem := getGlobalProcessSemaphore()
	require.NoError(t, sem.Acquire(ctx, 1))
	t.Cleanup(func() { sem.Release(1) })

	cfg := config.NewDefaultConfig()
	cfg.SetBrowserHeadless(true)
	cfg.SetBrowserConcurrency(2)
	cfg.SetNetworkPostLoadWait(0)
	cfg.SetNetworkNavigationTimeout(20 * time.Second)
	cfg.BrowserCfg.SettleDelay = 50 * time.Millisecond
	cfg.BrowserCfg.ActionTimeout = 10 * time.Second
	cfg.BrowserCfg.Args = []string{"--user-data-dir=" + t.TempDir()}

	logger := zaptest.NewLogger(t)
	m, err := NewManager(ctx, cfg, logger)
	require.NoError(t, err)
	t.Cleanup(func() {
		shutdownCtx, c := context.WithTimeout(context.Background(), 20*time.Second)
		defer c()
		_ = m.Shutdown(shutdownCtx)
	})

	s, err := m.NewSession(ctx, t.Name())
	require.NoError(t, err)

	return &testFixture{Manager: m, Session: s, Config: cfg, Ctx: ctx}
}

func createStaticTestServer(t *testing.T, pages map[string]string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	for path, body := range pages {
		body := body
		mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			_, _ = w.Write([]byte(body))
		})
	}
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}
