package courses

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/bmstoss13/HoleNOne/api/schemas"
	"github.com/bmstoss13/HoleNOne/internal/cache"
	"github.com/bmstoss13/HoleNOne/internal/config"
)

const testKey = "test-key"

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// fakeGoogle serves the places and maps endpoints and counts calls per path.
type fakeGoogle struct {
	*httptest.Server
	mu    sync.Mutex
	calls map[string]int
}

func newFakeGoogle(t *testing.T, mux *http.ServeMux) *fakeGoogle {
	t.Helper()
	f := &fakeGoogle{calls: make(map[string]int)}
	f.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.calls[r.URL.Path]++
		f.mu.Unlock()
		mux.ServeHTTP(w, r)
	}))
	t.Cleanup(f.Close)
	return f
}

func (f *fakeGoogle) count(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[path]
}

func (f *fakeGoogle) placesBase() string { return f.URL + "/v1" }
func (f *fakeGoogle) mapsBase() string   { return f.URL + "/maps/api" }

func newTestPlacesClient(t *testing.T, f *fakeGoogle) *PlacesClient {
	t.Helper()
	c, err := NewPlacesClient(PlacesOptions{
		APIKey:          testKey,
		PlacesBaseURL:   f.placesBase(),
		MapsBaseURL:     f.mapsBase(),
		Timeout:         2 * time.Second,
		MaxRetryElapsed: 2 * time.Second,
	}, zaptest.NewLogger(t))
	require.NoError(t, err)
	return c
}

func testConfig(f *fakeGoogle) *config.Config {
	cfg := config.NewDefaultConfig()
	if f == nil {
		cfg.PlacesCfg.UseMock = true
		return cfg
	}
	cfg.PlacesCfg.APIKey = testKey
	cfg.PlacesCfg.PlacesBaseURL = f.placesBase()
	cfg.PlacesCfg.MapsBaseURL = f.mapsBase()
	cfg.PlacesCfg.Timeout = 2 * time.Second
	return cfg
}

func newTestService(t *testing.T, f *fakeGoogle, llm schemas.LLMClient) *Service {
	t.Helper()
	s, err := NewService(testConfig(f), cache.NewMemoryStore(), llm, zaptest.NewLogger(t))
	require.NoError(t, err)
	return s
}

// fakeLLM returns canned replies and records requests.
type fakeLLM struct {
	mu       sync.Mutex
	requests []schemas.GenerationRequest
	reply    string
	err      error
	calls    atomic.Int32
}

func (f *fakeLLM) Generate(ctx context.Context, req schemas.GenerationRequest) (*schemas.GenerationResponse, error) {
	f.calls.Add(1)
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return &schemas.GenerationResponse{Text: f.reply}, nil
}

func component(long, short string, types ...string) map[string]any {
	return map[string]any{"long_name": long, "short_name": short, "types": types}
}
