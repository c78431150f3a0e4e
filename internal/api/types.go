package api

import (
	"context"

	"github.com/bmstoss13/HoleNOne/api/schemas"
	"github.com/bmstoss13/HoleNOne/internal/courses"
)

// Response is the JSON envelope for every API reply.
type Response struct {
	Status string      `json:"status"` // "success" or "error"
	Data   interface{} `json:"data,omitempty"`
	Error  string      `json:"error,omitempty"`
}

// Agent runs discovery and booking invocations.
type Agent interface {
	Discover(ctx context.Context, req schemas.DiscoveryRequest) (*schemas.DiscoveryResponse, error)
	Book(ctx context.Context, req schemas.BookingRequest) (*schemas.BookingResponse, error)
}

// Courses is the course collaborator surface served over HTTP.
type Courses interface {
	Nearby(ctx context.Context, q courses.NearbyQuery) (*schemas.CoursePage, error)
	Rank(ctx context.Context, req schemas.SearchRequest) (*schemas.RankingResult, error)
	Geocode(ctx context.Context, address string) (schemas.LatLng, error)
	ReverseGeocode(ctx context.Context, at schemas.LatLng) (string, error)
	Lookup(ctx context.Context, id string) (*schemas.Course, error)
	Rules(ctx context.Context, courseID string) (*schemas.BookingRules, error)
	CheckRequest(rules *schemas.BookingRules, date string, players int) error
	Chat(ctx context.Context, req schemas.ChatRequest) (*schemas.ChatResponse, error)
}

// Sessions closes browser sessions on request.
type Sessions interface {
	Close(ctx context.Context, id string) (bool, error)
}

// RunLister reads the audit log. Optional.
type RunLister interface {
	RunsBySession(ctx context.Context, sessionID string) ([]schemas.RunRecord, error)
}

// Deps are the collaborators the handlers serve.
type Deps struct {
	Agent    Agent
	Courses  Courses
	Sessions Sessions
	Runs     RunLister
}
