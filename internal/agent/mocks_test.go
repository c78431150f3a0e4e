package agent

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/bmstoss13/HoleNOne/api/schemas"
	"github.com/bmstoss13/HoleNOne/internal/oracle"
)

// -- Browser Session Mock --

type MockBrowserSession struct {
	mock.Mock
}

func obsResult(args mock.Arguments) (*schemas.PageObservation, error) {
	obs, _ := args.Get(0).(*schemas.PageObservation)
	return obs, args.Error(1)
}

func (m *MockBrowserSession) Navigate(ctx context.Context, url string) (*schemas.PageObservation, error) {
	return obsResult(m.Called(ctx, url))
}

func (m *MockBrowserSession) Click(ctx context.Context, selector string) (*schemas.PageObservation, error) {
	return obsResult(m.Called(ctx, selector))
}

func (m *MockBrowserSession) Fill(ctx context.Context, selector, value string) (*schemas.PageObservation, error) {
	return obsResult(m.Called(ctx, selector, value))
}

func (m *MockBrowserSession) SelectOption(ctx context.Context, selector, value string) (*schemas.PageObservation, error) {
	return obsResult(m.Called(ctx, selector, value))
}

func (m *MockBrowserSession) Observe(ctx context.Context) (*schemas.PageObservation, error) {
	return obsResult(m.Called(ctx))
}

func (m *MockBrowserSession) CurrentURL(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *MockBrowserSession) Snapshot(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *MockBrowserSession) ExtractTeeTimes(ctx context.Context, date string, players int) ([]schemas.TeeTimeRecord, error) {
	args := m.Called(ctx, date, players)
	records, _ := args.Get(0).([]schemas.TeeTimeRecord)
	return records, args.Error(1)
}

// -- Oracle Mock --

type MockDecider struct {
	mock.Mock
	mu    sync.Mutex
	tasks []oracle.Task
}

func (m *MockDecider) Decide(ctx context.Context, task oracle.Task, obs *schemas.PageObservation) (*oracle.Decision, error) {
	m.mu.Lock()
	m.tasks = append(m.tasks, task)
	m.mu.Unlock()
	args := m.Called(ctx, task.Catalogue.Flow, obs)
	d, _ := args.Get(0).(*oracle.Decision)
	return d, args.Error(1)
}

// -- Collaborator Mocks --

type MockRunRecorder struct {
	mock.Mock
}

func (m *MockRunRecorder) RecordRun(ctx context.Context, run schemas.RunRecord) error {
	return m.Called(ctx, run).Error(0)
}

type MockCourseResolver struct {
	mock.Mock
}

func (m *MockCourseResolver) Lookup(ctx context.Context, courseID string) (*schemas.Course, error) {
	args := m.Called(ctx, courseID)
	c, _ := args.Get(0).(*schemas.Course)
	return c, args.Error(1)
}
