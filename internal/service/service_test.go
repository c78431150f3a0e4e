package service

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/bmstoss13/HoleNOne/api/schemas"
	"github.com/bmstoss13/HoleNOne/internal/config"
	"github.com/bmstoss13/HoleNOne/internal/courses"
	"github.com/bmstoss13/HoleNOne/internal/observability"
)

func TestMain(m *testing.M) {
	cfg := config.NewDefaultConfig()
	observability.InitializeLogger(cfg.Logger())

	exitCode := m.Run()

	observability.Sync()
	os.Exit(exitCode)
}

// MockPersister is a mock implementation of RunPersister.
type MockPersister struct {
	mock.Mock
}

func (m *MockPersister) RecordRun(ctx context.Context, run schemas.RunRecord) error {
	args := m.Called(ctx, run)
	return args.Error(0)
}

func runWithID(id string) schemas.RunRecord {
	return schemas.RunRecord{ID: id, SessionID: "s-1", Flow: "discovery", Outcome: schemas.OutcomeStalled}
}

func nearbyAround(lat, lng float64) courses.NearbyQuery {
	return courses.NearbyQuery{Center: schemas.LatLng{Lat: lat, Lng: lng}}
}

func TestTimedWait(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		wg := &sync.WaitGroup{}
		wg.Add(1)
		go func() {
			time.Sleep(10 * time.Millisecond)
			wg.Done()
		}()
		assert.True(t, timedWait(wg, time.Second), "timedWait should return true when wait completes")
	})

	t.Run("Timeout", func(t *testing.T) {
		wg := &sync.WaitGroup{}
		wg.Add(1)
		assert.False(t, timedWait(wg, 10*time.Millisecond), "timedWait should return false on timeout")
		wg.Done()
	})
}

func TestRunQueue(t *testing.T) {
	logger := zap.NewNop()

	t.Run("GracefulShutdownFlushesBuffered", func(t *testing.T) {
		persister := new(MockPersister)
		persister.On("RecordRun", mock.Anything, mock.Anything).Return(nil)

		q := StartRunQueue(context.Background(), persister, 10, logger)
		require.NoError(t, q.RecordRun(context.Background(), runWithID("r-1")))
		require.NoError(t, q.RecordRun(context.Background(), runWithID("r-2")))

		assert.True(t, q.Close(time.Second))
		persister.AssertNumberOfCalls(t, "RecordRun", 2)
		persister.AssertCalled(t, "RecordRun", mock.Anything, runWithID("r-1"))
		persister.AssertCalled(t, "RecordRun", mock.Anything, runWithID("r-2"))
	})

	t.Run("RejectsAfterClose", func(t *testing.T) {
		persister := new(MockPersister)
		q := StartRunQueue(context.Background(), persister, 1, logger)
		assert.True(t, q.Close(time.Second))
		assert.True(t, q.Close(time.Second), "second Close must not panic")

		err := q.RecordRun(context.Background(), runWithID("late"))
		assert.ErrorIs(t, err, ErrQueueClosed)
		persister.AssertNotCalled(t, "RecordRun", mock.Anything, mock.Anything)
	})

	t.Run("FullQueueDoesNotBlock", func(t *testing.T) {
		persister := new(MockPersister)
		block := make(chan struct{})
		persister.On("RecordRun", mock.Anything, mock.Anything).
			Run(func(mock.Arguments) { <-block }).
			Return(nil)

		q := StartRunQueue(context.Background(), persister, 1, logger)
		// Enough records to fill a batch so the consumer blocks in the persister.
		var full bool
		for i := 0; i < runBatchSize+5; i++ {
			if err := q.RecordRun(context.Background(), runWithID("r")); errors.Is(err, ErrQueueFull) {
				full = true
				break
			}
			time.Sleep(time.Millisecond)
		}
		assert.True(t, full, "a saturated queue should report ErrQueueFull")

		close(block)
		assert.True(t, q.Close(2*time.Second))
	})

	t.Run("ContextCancelDrains", func(t *testing.T) {
		persister := new(MockPersister)
		persister.On("RecordRun", mock.Anything, mock.Anything).Return(nil)

		ctx, cancel := context.WithCancel(context.Background())
		q := StartRunQueue(ctx, persister, 10, logger)
		require.NoError(t, q.RecordRun(context.Background(), runWithID("r-1")))
		cancel()

		assert.True(t, timedWait(&q.wg, time.Second))
		persister.AssertCalled(t, "RecordRun", mock.Anything, runWithID("r-1"))
	})

	t.Run("PersistErrorsAreLogged", func(t *testing.T) {
		core, logs := observer.New(zapcore.ErrorLevel)
		persister := new(MockPersister)
		persister.On("RecordRun", mock.Anything, mock.Anything).Return(errors.New("db down"))

		q := StartRunQueue(context.Background(), persister, 10, zap.New(core))
		require.NoError(t, q.RecordRun(context.Background(), runWithID("r-err")))
		assert.True(t, q.Close(time.Second))

		entries := logs.FilterMessage("Failed to persist run record.").All()
		require.Len(t, entries, 1)
		assert.Equal(t, "r-err", entries[0].ContextMap()["run_id"])
	})
}

func TestComponents_Shutdown(t *testing.T) {
	var order []string
	c := &Components{}
	c.onShutdown("cache", func(context.Context) error { order = append(order, "cache"); return nil })
	c.onShutdown("store", func(context.Context) error { order = append(order, "store"); return errors.New("boom") })
	c.onShutdown("browser", func(context.Context) error { order = append(order, "browser"); return nil })
	c.onShutdown("sessions", func(context.Context) error { order = append(order, "sessions"); return nil })

	c.Shutdown(context.Background())
	assert.Equal(t, []string{"sessions", "browser", "store", "cache"}, order, "a failing step must not stop the rest")

	c.Shutdown(context.Background())
	assert.Len(t, order, 4, "steps run once")
}

func TestFactory_CreateCourses(t *testing.T) {
	factory := NewComponentFactory()
	ctx := context.Background()

	t.Run("MockCatalogue", func(t *testing.T) {
		cfg := config.NewDefaultConfig()
		cfg.PlacesCfg.UseMock = true

		components, err := factory.CreateCourses(ctx, cfg, zap.NewNop())
		require.NoError(t, err)
		defer components.Shutdown(ctx)

		require.NotNil(t, components.Courses)
		assert.Nil(t, components.Agent)

		page, err := components.Courses.Nearby(ctx, nearbyAround(35.19, -79.47))
		require.NoError(t, err)
		assert.NotEmpty(t, page.Courses)
	})

	t.Run("UnknownCacheBackend", func(t *testing.T) {
		cfg := config.NewDefaultConfig()
		cfg.CacheCfg.Backend = "memcached"

		_, err := factory.CreateCourses(ctx, cfg, zap.NewNop())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to initialize cache")
	})
}

func TestFactory_Create_ValidationErrors(t *testing.T) {
	factory := NewComponentFactory()

	t.Run("UnconfiguredOracleModel", func(t *testing.T) {
		cfg := config.NewDefaultConfig()
		cfg.LLMCfg.OracleModel = "missing"

		_, err := factory.Create(context.Background(), cfg, zap.NewNop())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to initialize LLM clients")
	})
}
