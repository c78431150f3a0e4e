package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/bmstoss13/HoleNOne/api/schemas"
	"github.com/bmstoss13/HoleNOne/internal/agent"
	"github.com/bmstoss13/HoleNOne/internal/courses"
	"github.com/bmstoss13/HoleNOne/internal/observability"
	"github.com/bmstoss13/HoleNOne/internal/oracle"
	"github.com/bmstoss13/HoleNOne/internal/session"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const maxBodyBytes = 1 << 20

// Handlers manages HTTP request handling for the API server.
type Handlers struct {
	log  *zap.Logger
	deps Deps
}

// NewHandlers creates a new Handlers instance. Agent, Courses and Sessions are
// required; Runs may be nil.
func NewHandlers(logger *zap.Logger, deps Deps) *Handlers {
	return &Handlers{
		log:  logger.Named("api_handlers"),
		deps: deps,
	}
}

// RegisterRoutes sets up the routing for the API server.
func (h *Handlers) RegisterRoutes(r chi.Router) {
	r.Get("/healthz", h.HandleHealthCheck)
	r.Handle("/metrics", observability.MetricsHandler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/tee-times", h.HandleDiscover)
		r.Post("/book", h.HandleBook)

		r.Get("/courses", h.HandleNearby)
		r.Get("/courses/{id}", h.HandleCourse)
		r.Post("/search", h.HandleSearch)
		r.Get("/geocode", h.HandleGeocode)
		r.Get("/reverse-geocode", h.HandleReverseGeocode)
		r.Get("/rules/{courseId}", h.HandleRules)
		r.Post("/chat", h.HandleChat)

		r.Delete("/sessions/{id}", h.HandleCloseSession)
		r.Get("/sessions/{id}/runs", h.HandleSessionRuns)
	})
}

// HandleHealthCheck is a simple handler to confirm the server is responsive.
func (h *Handlers) HandleHealthCheck(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

// HandleDiscover runs one discovery invocation. When a course id is given the
// course's booking rules are checked before any browser work starts.
func (h *Handlers) HandleDiscover(w http.ResponseWriter, r *http.Request) {
	var req schemas.DiscoveryRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.CourseID != "" {
		if err := h.checkRules(r.Context(), req.CourseID, req.Date, req.NumPlayers); err != nil {
			h.respondWithErr(w, err)
			return
		}
	}

	resp, err := h.deps.Agent.Discover(r.Context(), req)
	if err != nil {
		h.log.Error("Discovery invocation failed", zap.String("session_id", req.SessionID), zap.Error(err))
		h.respondWithErr(w, err)
		return
	}
	h.respondWithSuccess(w, http.StatusOK, resp)
}

// HandleBook runs one booking invocation.
func (h *Handlers) HandleBook(w http.ResponseWriter, r *http.Request) {
	var req schemas.BookingRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.CourseID != "" && req.Date != "" && req.NumPlayers > 0 {
		if err := h.checkRules(r.Context(), req.CourseID, req.Date, req.NumPlayers); err != nil {
			h.respondWithErr(w, err)
			return
		}
	}

	resp, err := h.deps.Agent.Book(r.Context(), req)
	if err != nil {
		h.log.Error("Booking invocation failed", zap.String("session_id", req.SessionID), zap.Error(err))
		h.respondWithErr(w, err)
		return
	}
	h.respondWithSuccess(w, http.StatusOK, resp)
}

func (h *Handlers) checkRules(ctx context.Context, courseID, date string, players int) error {
	rules, err := h.deps.Courses.Rules(ctx, courseID)
	if err != nil {
		return err
	}
	return h.deps.Courses.CheckRequest(rules, date, players)
}

// HandleNearby lists one page of courses around lat/lng.
func (h *Handlers) HandleNearby(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	center, err := parseLatLng(q.Get("lat"), q.Get("lng"))
	if err != nil {
		h.respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	query := courses.NearbyQuery{Center: center, PageToken: q.Get("pageToken")}
	if v := q.Get("radius"); v != "" {
		if query.RadiusMiles, err = strconv.ParseFloat(v, 64); err != nil || query.RadiusMiles <= 0 {
			h.respondWithError(w, http.StatusBadRequest, "radius must be a positive number")
			return
		}
	}
	if v := q.Get("offset"); v != "" {
		if query.Offset, err = strconv.Atoi(v); err != nil || query.Offset < 0 {
			h.respondWithError(w, http.StatusBadRequest, "offset must be a non-negative integer")
			return
		}
	}

	page, err := h.deps.Courses.Nearby(r.Context(), query)
	if err != nil {
		h.respondWithErr(w, err)
		return
	}
	h.respondWithSuccess(w, http.StatusOK, page)
}

// HandleCourse resolves one course id.
func (h *Handlers) HandleCourse(w http.ResponseWriter, r *http.Request) {
	c, err := h.deps.Courses.Lookup(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondWithErr(w, err)
		return
	}
	h.respondWithSuccess(w, http.StatusOK, c)
}

// HandleSearch ranks nearby courses for a free-text query.
func (h *Handlers) HandleSearch(w http.ResponseWriter, r *http.Request) {
	var req schemas.SearchRequest
	if !h.decode(w, r, &req) {
		return
	}
	res, err := h.deps.Courses.Rank(r.Context(), req)
	if err != nil {
		h.respondWithErr(w, err)
		return
	}
	h.respondWithSuccess(w, http.StatusOK, res)
}

// HandleGeocode resolves ?address= to coordinates.
func (h *Handlers) HandleGeocode(w http.ResponseWriter, r *http.Request) {
	loc, err := h.deps.Courses.Geocode(r.Context(), strings.TrimSpace(r.URL.Query().Get("address")))
	if err != nil {
		h.respondWithErr(w, err)
		return
	}
	h.respondWithSuccess(w, http.StatusOK, loc)
}

// HandleReverseGeocode names the place at ?lat=&lng=.
func (h *Handlers) HandleReverseGeocode(w http.ResponseWriter, r *http.Request) {
	at, err := parseLatLng(r.URL.Query().Get("lat"), r.URL.Query().Get("lng"))
	if err != nil {
		h.respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	name, err := h.deps.Courses.ReverseGeocode(r.Context(), at)
	if err != nil {
		h.respondWithErr(w, err)
		return
	}
	h.respondWithSuccess(w, http.StatusOK, map[string]string{"location": name})
}

// HandleRules returns a course's booking rules.
func (h *Handlers) HandleRules(w http.ResponseWriter, r *http.Request) {
	rules, err := h.deps.Courses.Rules(r.Context(), chi.URLParam(r, "courseId"))
	if err != nil {
		h.respondWithErr(w, err)
		return
	}
	h.respondWithSuccess(w, http.StatusOK, rules)
}

// HandleChat answers one assistant turn.
func (h *Handlers) HandleChat(w http.ResponseWriter, r *http.Request) {
	var req schemas.ChatRequest
	if !h.decode(w, r, &req) {
		return
	}
	resp, err := h.deps.Courses.Chat(r.Context(), req)
	if err != nil {
		h.respondWithErr(w, err)
		return
	}
	h.respondWithSuccess(w, http.StatusOK, resp)
}

// HandleCloseSession tears down a browser session ahead of its idle timeout.
func (h *Handlers) HandleCloseSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	closed, err := h.deps.Sessions.Close(r.Context(), id)
	if err != nil {
		h.respondWithErr(w, err)
		return
	}
	if !closed {
		h.respondWithError(w, http.StatusNotFound, fmt.Sprintf("session %s not found", id))
		return
	}
	h.respondWithSuccess(w, http.StatusOK, map[string]string{"sessionId": id})
}

// HandleSessionRuns lists the recorded runs of a session.
func (h *Handlers) HandleSessionRuns(w http.ResponseWriter, r *http.Request) {
	if h.deps.Runs == nil {
		h.respondWithError(w, http.StatusServiceUnavailable, "Run history is unavailable (database not configured).")
		return
	}
	runs, err := h.deps.Runs.RunsBySession(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.log.Error("Failed to list runs", zap.Error(err))
		h.respondWithError(w, http.StatusInternalServerError, "Internal error retrieving runs.")
		return
	}
	h.respondWithSuccess(w, http.StatusOK, map[string]interface{}{
		"count": len(runs),
		"runs":  runs,
	})
}

func parseLatLng(lat, lng string) (schemas.LatLng, error) {
	if lat == "" || lng == "" {
		return schemas.LatLng{}, errors.New("lat and lng are required")
	}
	la, err := strconv.ParseFloat(lat, 64)
	if err != nil {
		return schemas.LatLng{}, fmt.Errorf("invalid lat: %q", lat)
	}
	ln, err := strconv.ParseFloat(lng, 64)
	if err != nil {
		return schemas.LatLng{}, fmt.Errorf("invalid lng: %q", lng)
	}
	return schemas.LatLng{Lat: la, Lng: ln}, nil
}

func (h *Handlers) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		h.respondWithError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return false
	}
	return true
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, agent.ErrInvalidRequest), errors.Is(err, courses.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, agent.ErrCourseNotFound), errors.Is(err, courses.ErrNotFound), errors.Is(err, courses.ErrNoResults):
		return http.StatusNotFound
	case errors.Is(err, courses.ErrRuleViolation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, oracle.ErrOracleUnavailable):
		return http.StatusBadGateway
	case errors.Is(err, session.ErrTooManySessions), errors.Is(err, session.ErrManagerClosed), errors.Is(err, agent.ErrSessionUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handlers) respondWithErr(w http.ResponseWriter, err error) {
	h.respondWithError(w, statusFor(err), err.Error())
}

// respondWithError sends a standardized JSON error response.
func (h *Handlers) respondWithError(w http.ResponseWriter, statusCode int, message string) {
	h.respond(w, statusCode, Response{Status: "error", Error: message})
}

// respondWithSuccess sends a standardized JSON success response.
func (h *Handlers) respondWithSuccess(w http.ResponseWriter, statusCode int, data interface{}) {
	h.respond(w, statusCode, Response{Status: "success", Data: data})
}

func (h *Handlers) respond(w http.ResponseWriter, statusCode int, resp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.log.Error("Failed to encode response", zap.Error(err))
	}
}
