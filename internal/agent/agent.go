// Package agent runs the observe/decide/act control loop that drives a browser
// session through an unknown booking site under oracle guidance.
package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bmstoss13/HoleNOne/api/schemas"
	"github.com/bmstoss13/HoleNOne/internal/browser"
	"github.com/bmstoss13/HoleNOne/internal/config"
	"github.com/bmstoss13/HoleNOne/internal/observability"
	"github.com/bmstoss13/HoleNOne/internal/oracle"
)

const (
	initialThought         = "Starting to analyze the page."
	initialStatus          = "Analyzing page..."
	teeTimesFoundStatus    = "Tee times extracted successfully!"
	bookingCompleteMessage = "Booking process completed by AI. Please confirm details on the next page."
	bookingFailedPrefix    = "Booking attempt failed: "
	manualContinuation     = " You may need to complete the booking manually at: "
	noTeeTimesResult       = "no list-style tee times found; the page may need form interaction"
	discoveryGiveUpStatus  = "AI could not determine how to find tee times."
	bookingGiveUpStatus    = "AI could not determine how to proceed with booking."
)

// Service is the entry point for discovery and booking invocations.
type Service struct {
	cfg       config.Interface
	sessions  SessionProvider
	oracle    oracle.Decider
	executors *ExecutorRegistry
	courses   CourseResolver
	recorder  RunRecorder
	logger    *zap.Logger
	now       func() time.Time
}

// Option configures optional Service collaborators.
type Option func(*Service)

// WithCourseResolver lets discovery requests name a course instead of a URL.
func WithCourseResolver(r CourseResolver) Option { return func(s *Service) { s.courses = r } }

// WithRunRecorder enables the audit log of finished runs.
func WithRunRecorder(r RunRecorder) Option { return func(s *Service) { s.recorder = r } }

// NewService wires the control loop to its collaborators.
func NewService(cfg config.Interface, sessions SessionProvider, decider oracle.Decider, logger *zap.Logger, opts ...Option) *Service {
	s := &Service{
		cfg:      cfg,
		sessions: sessions,
		oracle:   decider,
		logger:   logger.Named("agent"),
		now:      time.Now,
	}
	s.executors = NewExecutorRegistry(s.logger)
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Discover runs the discovery loop for one invocation.
func (s *Service) Discover(ctx context.Context, req schemas.DiscoveryRequest) (*schemas.DiscoveryResponse, error) {
	if req.Date == "" || req.NumPlayers <= 0 {
		return nil, fmt.Errorf("%w: date and numPlayers are required", ErrInvalidRequest)
	}
	if req.SessionID == "" {
		req.SessionID = uuid.NewString()
	}

	target, courseName, err := s.resolveTarget(ctx, req)
	if err != nil {
		return nil, err
	}

	task := oracle.Task{
		Catalogue:   oracle.DiscoveryCatalogue(req.Date, req.NumPlayers),
		CourseName:  courseName,
		Date:        req.Date,
		Players:     req.NumPlayers,
		UserMessage: req.UserMessage,
	}
	run := &loopRun{
		flow:       oracle.FlowDiscovery,
		sessionID:  req.SessionID,
		task:       task,
		target:     target,
		resumeFrom: req.LastObservation,
		giveUp:     discoveryGiveUpStatus,
	}
	outcome, err := s.invoke(ctx, run)
	if err != nil {
		return nil, err
	}

	teeTimes := outcome.TeeTimes
	if teeTimes == nil {
		teeTimes = []schemas.TeeTimeRecord{}
	}
	return &schemas.DiscoveryResponse{
		SessionID:   req.SessionID,
		TeeTimes:    teeTimes,
		Observation: outcome.Observation,
		Status:      outcome.Status,
		Thought:     outcome.Thought,
		Message:     outcome.Status,
		RedirectURL: outcome.RedirectURL,
	}, nil
}

// Book runs the booking loop for one invocation.
func (s *Service) Book(ctx context.Context, req schemas.BookingRequest) (*schemas.BookingResponse, error) {
	if req.TeeTime.Time == "" {
		return nil, fmt.Errorf("%w: teeTime is required", ErrInvalidRequest)
	}
	if req.User.Name == "" || req.User.Email == "" || req.User.Phone == "" {
		return nil, fmt.Errorf("%w: userDetails name, email and phone are required", ErrInvalidRequest)
	}
	if req.LastObservation == nil && req.TeeTime.BookingURL == "" {
		return nil, fmt.Errorf("%w: lastObservation or teeTime.bookingUrl is required", ErrInvalidRequest)
	}
	if req.SessionID == "" {
		req.SessionID = uuid.NewString()
	}

	teeTime, user := req.TeeTime, req.User
	run := &loopRun{
		flow:      oracle.FlowBooking,
		sessionID: req.SessionID,
		task: oracle.Task{
			Catalogue: oracle.BookingCatalogue(),
			Date:      req.Date,
			Players:   req.NumPlayers,
			TeeTime:   &teeTime,
			User:      &user,
		},
		target:     req.TeeTime.BookingURL,
		resumeFrom: req.LastObservation,
		giveUp:     bookingGiveUpStatus,
	}
	outcome, err := s.invoke(ctx, run)
	if err != nil {
		return nil, err
	}

	resp := &schemas.BookingResponse{
		SessionID:   req.SessionID,
		Observation: outcome.Observation,
		Thought:     outcome.Thought,
	}
	switch outcome.Kind {
	case schemas.OutcomeBookingConfirmed:
		resp.Success = true
		resp.ConfirmationURL = outcome.ConfirmationURL
		resp.Message = bookingCompleteMessage
	case schemas.OutcomeBookingFailed:
		resp.Message = bookingFailedPrefix + outcome.Reason
	default:
		resp.Message = outcome.Status
	}
	return resp, nil
}

func (s *Service) resolveTarget(ctx context.Context, req schemas.DiscoveryRequest) (string, string, error) {
	if req.TargetURL != "" {
		return req.TargetURL, req.CourseName, nil
	}
	if req.CourseID == "" {
		return "", "", fmt.Errorf("%w: courseId or targetUrl is required", ErrInvalidRequest)
	}
	if s.courses == nil {
		return "", "", fmt.Errorf("%w: no course resolver configured", ErrCourseNotFound)
	}
	course, err := s.courses.Lookup(ctx, req.CourseID)
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrCourseNotFound, err)
	}
	if course == nil || course.Website == "" {
		return "", "", ErrCourseNotFound
	}
	name := req.CourseName
	if name == "" {
		name = course.Name
	}
	return course.Website, name, nil
}

// invoke acquires the session, runs the loop and records the outcome.
func (s *Service) invoke(ctx context.Context, run *loopRun) (*schemas.AgentOutcome, error) {
	logger := s.logger.With(zap.String("session_id", run.sessionID), zap.String("flow", string(run.flow)))
	started := s.now()

	session, release, err := s.sessions.Acquire(ctx, run.sessionID)
	if err != nil {
		observability.AgentRuns.WithLabelValues(string(run.flow), "error").Inc()
		return nil, fmt.Errorf("acquiring browser session: %w", err)
	}
	defer release()

	outcome, err := s.runLoop(ctx, session, run, logger)
	if err != nil {
		observability.AgentRuns.WithLabelValues(string(run.flow), "error").Inc()
		s.record(ctx, run, nil, err, started, logger)
		return nil, err
	}

	observability.AgentRuns.WithLabelValues(string(run.flow), string(outcome.Kind)).Inc()
	observability.AgentIterations.WithLabelValues(string(run.flow)).Observe(float64(outcome.Iterations))
	logger.Info("Agent run finished.",
		zap.String("outcome", string(outcome.Kind)),
		zap.Int("iterations", outcome.Iterations),
		zap.Int("tee_times", len(outcome.TeeTimes)))
	s.record(ctx, run, outcome, nil, started, logger)
	return outcome, nil
}

func (s *Service) record(ctx context.Context, run *loopRun, outcome *schemas.AgentOutcome, runErr error, started time.Time, logger *zap.Logger) {
	if s.recorder == nil {
		return
	}
	rec := schemas.RunRecord{
		ID:         uuid.NewString(),
		SessionID:  run.sessionID,
		Flow:       string(run.flow),
		StartedAt:  started.UTC(),
		FinishedAt: s.now().UTC(),
		Steps:      run.trace,
	}
	if outcome != nil {
		rec.Outcome = outcome.Kind
		rec.Iterations = outcome.Iterations
		rec.Status = outcome.Status
		rec.TeeTimes = len(outcome.TeeTimes)
		if outcome.Observation != nil {
			rec.FinalURL = outcome.Observation.URL
		}
	}
	if runErr != nil {
		rec.Error = runErr.Error()
	}
	// The audit log is best effort; a slow database must not hold the response.
	recCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.recorder.RecordRun(recCtx, rec); err != nil {
		logger.Warn("Failed to record agent run.", zap.Error(err))
	}
}

// loopRun holds the state of one invocation of the control loop.
type loopRun struct {
	flow       oracle.Flow
	sessionID  string
	task       oracle.Task
	target     string
	resumeFrom *schemas.PageObservation
	giveUp     string

	thought     strings.Builder
	status      string
	lastGoodURL string
	// lastObs is the most recent successful observation, kept apart from the
	// loop's working observation so a failed action never loses it.
	lastObs *schemas.PageObservation
	trace   []schemas.StepRecord
}

// observed remembers obs as the last good page state.
func (r *loopRun) observed(obs *schemas.PageObservation) {
	r.lastObs = obs
	r.lastGoodURL = obs.URL
}

// outcome builds the terminal result. A nil obs falls back to the last good
// observation, then to the caller's resume point.
func (r *loopRun) outcome(kind schemas.OutcomeKind, obs *schemas.PageObservation, iterations int) *schemas.AgentOutcome {
	if obs == nil {
		obs = r.lastObs
	}
	if obs == nil {
		obs = r.resumeFrom
	}
	return &schemas.AgentOutcome{
		Kind:        kind,
		Status:      r.status,
		Thought:     r.thought.String(),
		Trace:       r.trace,
		Iterations:  iterations,
		Observation: obs,
	}
}

// stalled ends the run with a manual continuation link to the last page the
// agent successfully observed.
func (r *loopRun) stalled(obs *schemas.PageObservation, iterations int) *schemas.AgentOutcome {
	out := r.outcome(schemas.OutcomeStalled, obs, iterations)
	if r.lastGoodURL != "" {
		out.RedirectURL = r.lastGoodURL
		out.Status += manualContinuation + r.lastGoodURL
	}
	return out
}

// runLoop is the Init -> Observing -> Deciding -> Acting state machine. Action
// failures are recorded and consume an iteration; only oracle transport failures
// and context cancellation are returned as errors.
func (s *Service) runLoop(ctx context.Context, session BrowserSession, run *loopRun, logger *zap.Logger) (*schemas.AgentOutcome, error) {
	run.thought.WriteString(initialThought)
	run.status = initialStatus
	maxIterations := s.cfg.Agent().MaxIterations

	obs, err := s.initialObservation(ctx, session, run, logger)
	if err != nil && (errors.Is(err, browser.ErrSessionClosed) || errors.Is(err, browser.ErrLaunch)) {
		logger.Error("Browser session is unusable.", zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrSessionUnavailable, err)
	}
	if err != nil {
		run.status = fmt.Sprintf("Failed to load the booking page: %v", err)
		run.trace = append(run.trace, schemas.StepRecord{Iteration: 0, Result: "failed", ErrorCode: string(ErrCodeNavigationError), Error: err.Error(), URL: run.target})
		return run.stalled(nil, 0), nil
	}

	for i := 1; i <= maxIterations; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		iterLogger := logger.With(zap.Int("iteration", i))

		// Observing
		if obs == nil {
			obs, err = session.Observe(ctx)
			if err != nil {
				iterLogger.Warn("Observation failed.", zap.Error(err))
				run.status = fmt.Sprintf("Could not read the page: %v", err)
				run.trace = append(run.trace, schemas.StepRecord{Iteration: i, Result: "failed", ErrorCode: string(ErrCodeExecutionFailure), Error: err.Error()})
				return run.stalled(nil, i), nil
			}
		}
		run.observed(obs)

		// Deciding
		run.task.History = run.trace
		decision, err := s.oracle.Decide(ctx, run.task, obs)
		if err != nil {
			iterLogger.Error("Oracle unavailable.", zap.Error(err))
			return nil, err
		}
		run.thought.WriteString("\nLLM Thought: " + decision.Thought)
		run.status = decision.Text
		if run.status == "" {
			run.status = decision.Thought
		}

		switch decision.Kind {
		case oracle.DecisionNoViableAction:
			if decision.Text == "" {
				run.status = run.giveUp
			}
			run.trace = append(run.trace, schemas.StepRecord{Iteration: i, Result: "no viable action", URL: obs.URL})
			return run.stalled(obs, i), nil
		case oracle.DecisionText:
			run.trace = append(run.trace, schemas.StepRecord{Iteration: i, Result: "text reply", URL: obs.URL})
			return run.outcome(schemas.OutcomeStalled, obs, i), nil
		}

		// Acting
		action := decision.Action
		iterLogger.Info("Executing action.", zap.String("action", action.String()))
		step := schemas.StepRecord{Iteration: i, Action: action}

		switch action.Type {
		case schemas.ActionExtractTeeTimes:
			records, err := session.ExtractTeeTimes(ctx, run.task.Date, run.task.Players)
			if err != nil {
				code, _ := ParseBrowserError(err, *action)
				s.recordStep(run, step, "failed", code, err, obs.URL)
				obs = nil
				continue
			}
			observability.ActionTotal.WithLabelValues(string(action.Type), "success").Inc()
			if len(records) == 0 {
				step.Result, step.URL = noTeeTimesResult, obs.URL
				run.trace = append(run.trace, step)
				continue
			}
			step.Result, step.URL = fmt.Sprintf("extracted %d tee times", len(records)), obs.URL
			run.trace = append(run.trace, step)
			run.status = teeTimesFoundStatus
			out := run.outcome(schemas.OutcomeTeeTimesFound, obs, i)
			out.TeeTimes = records
			return out, nil

		case schemas.ActionCompleteBookingForm:
			observability.ActionTotal.WithLabelValues(string(action.Type), "success").Inc()
			out, after := s.confirmBooking(ctx, session, obs, iterLogger)
			step.Result = string(out.Kind)
			if after != nil {
				step.URL = after.URL
			}
			run.trace = append(run.trace, step)
			if out.Kind == schemas.OutcomeBookingConfirmed {
				run.status = bookingCompleteMessage
			} else {
				run.status = bookingFailedPrefix + out.Reason
			}
			full := run.outcome(out.Kind, after, i)
			full.ConfirmationURL, full.Reason = out.ConfirmationURL, out.Reason
			return full, nil
		}

		result := s.executors.Execute(ctx, session, *action, obs)
		if !result.Succeeded() {
			msg, _ := result.ErrorDetails["message"].(string)
			s.recordStep(run, step, "failed", result.ErrorCode, errors.New(msg), obs.URL)
			obs = nil
			continue
		}
		observability.ActionTotal.WithLabelValues(string(action.Type), "success").Inc()
		step.Result, step.URL = "success", result.Observation.URL
		run.trace = append(run.trace, step)
		obs = result.Observation
	}

	// Iteration budget exhausted.
	if obs == nil {
		if fresh, err := session.Observe(ctx); err == nil {
			obs = fresh
			run.observed(fresh)
		}
	}
	logger.Warn("Iteration budget exhausted.", zap.Int("max_iterations", maxIterations))
	run.status = fmt.Sprintf("Stopped after %d steps without finishing. %s", maxIterations, run.status)
	return run.stalled(obs, maxIterations), nil
}

func (s *Service) recordStep(run *loopRun, step schemas.StepRecord, result string, code ErrorCode, err error, url string) {
	observability.ActionTotal.WithLabelValues(string(step.Action.Type), string(code)).Inc()
	step.Result, step.ErrorCode, step.URL = result, string(code), url
	if err != nil {
		step.Error = err.Error()
	}
	run.trace = append(run.trace, step)
}

// initialObservation implements the Init state. A resumed run navigates back to
// the page the caller last saw if the live page has moved on; a fresh run
// navigates to the target.
func (s *Service) initialObservation(ctx context.Context, session BrowserSession, run *loopRun, logger *zap.Logger) (*schemas.PageObservation, error) {
	want := run.target
	if run.resumeFrom != nil && run.resumeFrom.URL != "" {
		want = run.resumeFrom.URL
	}
	if want == "" {
		return nil, fmt.Errorf("no page to start from")
	}

	if run.resumeFrom != nil {
		if current, err := session.CurrentURL(ctx); err == nil && current == want {
			logger.Debug("Resuming on the live page.", zap.String("url", current))
			obs, err := session.Observe(ctx)
			if err == nil {
				run.observed(obs)
			}
			return obs, err
		}
		logger.Info("Live page differs from the last observation, navigating back.", zap.String("url", want))
	} else {
		logger.Info("Navigating to course website.", zap.String("url", want))
	}

	obs, err := session.Navigate(ctx, want)
	if err != nil {
		return nil, err
	}
	run.observed(obs)
	return obs, nil
}
