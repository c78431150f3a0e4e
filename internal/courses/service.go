// Package courses implements the course collaborators around the agent: nearby
// search, course lookup, geocoding, ranking, booking rules and the assistant chat.
package courses

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/bmstoss13/HoleNOne/api/schemas"
	"github.com/bmstoss13/HoleNOne/internal/cache"
	"github.com/bmstoss13/HoleNOne/internal/config"
	"github.com/bmstoss13/HoleNOne/internal/observability"
)

const (
	detailsConcurrency = 8
	notAvailable       = "N/A"
)

var (
	// ErrNotFound is returned by Lookup for unknown course ids.
	ErrNotFound = errors.New("course not found")
	// ErrInvalidInput marks caller mistakes.
	ErrInvalidInput = errors.New("invalid input")
)

// NearbyQuery selects one page of nearby courses. Offset pages the mock
// catalogue; PageToken pages the places API.
type NearbyQuery struct {
	Center      schemas.LatLng
	RadiusMiles float64
	Offset      int
	Limit       int
	PageToken   string
}

// Service bundles the collaborators. A nil places client means the mock
// catalogue serves all lookups.
type Service struct {
	places        *PlacesClient
	cache         cache.Store
	ttl           time.Duration
	llm           schemas.LLMClient
	defaultRadius float64
	logger        *zap.Logger
	now           func() time.Time
}

// NewService creates the collaborators. store and llm may be nil; ranking and
// chat then report an error.
func NewService(cfg config.Interface, store cache.Store, llm schemas.LLMClient, logger *zap.Logger) (*Service, error) {
	logger = logger.Named("courses")
	s := &Service{
		cache:         store,
		ttl:           cfg.Cache().TTL,
		llm:           llm,
		defaultRadius: cfg.Places().DefaultRadiusMile,
		logger:        logger,
		now:           time.Now,
	}
	if s.defaultRadius <= 0 {
		s.defaultRadius = defaultRadiusMile
	}
	pc := cfg.Places()
	if pc.UseMock || pc.APIKey == "" {
		logger.Info("Using mock course catalogue.")
		return s, nil
	}
	places, err := NewPlacesClient(PlacesOptions{
		APIKey:        pc.APIKey,
		PlacesBaseURL: pc.PlacesBaseURL,
		MapsBaseURL:   pc.MapsBaseURL,
		Timeout:       pc.Timeout,
	}, logger)
	if err != nil {
		return nil, err
	}
	s.places = places
	return s, nil
}

func observe(collaborator string, start time.Time) {
	observability.CollaboratorDuration.WithLabelValues(collaborator).Observe(time.Since(start).Seconds())
}

// Nearby returns one page of courses around the query center.
func (s *Service) Nearby(ctx context.Context, q NearbyQuery) (*schemas.CoursePage, error) {
	if q.Center.Lat < -90 || q.Center.Lat > 90 || q.Center.Lng < -180 || q.Center.Lng > 180 {
		return nil, fmt.Errorf("%w: valid latitude and longitude are required", ErrInvalidInput)
	}
	if q.RadiusMiles <= 0 {
		q.RadiusMiles = s.defaultRadius
	}
	if s.places == nil {
		return mockNearby(q.Center, q.RadiusMiles, q.Offset, q.Limit), nil
	}

	key := fmt.Sprintf("nearby:%.4f:%.4f:%.1f:%s", q.Center.Lat, q.Center.Lng, q.RadiusMiles, q.PageToken)
	var cached schemas.CoursePage
	if s.cacheGet(ctx, key, &cached) {
		return &cached, nil
	}

	defer observe("places_nearby", time.Now())
	page, err := s.places.SearchNearby(ctx, q.Center, q.RadiusMiles, q.PageToken)
	if err != nil {
		return nil, fmt.Errorf("searching nearby courses: %w", err)
	}
	s.fillLocality(ctx, page.Courses)
	s.cacheSet(ctx, key, page)
	return page, nil
}

// fillLocality looks up city and state for every course in parallel. A failed
// lookup leaves N/A in place rather than failing the page.
func (s *Service) fillLocality(ctx context.Context, list []schemas.Course) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(detailsConcurrency)
	for i := range list {
		c := &list[i]
		c.City, c.State = notAvailable, notAvailable
		if c.ID == "" {
			continue
		}
		g.Go(func() error {
			d, err := s.details(gctx, c.ID)
			if err != nil {
				s.logger.Warn("Could not fetch place details.", zap.String("course", c.Name), zap.String("id", c.ID), zap.Error(err))
				return nil
			}
			if d.City != "" {
				c.City = d.City
			}
			if d.State != "" {
				c.State = d.State
			}
			return nil
		})
	}
	_ = g.Wait()
}

func (s *Service) details(ctx context.Context, id string) (*PlaceDetails, error) {
	key := "details:" + id
	var cached PlaceDetails
	if s.cacheGet(ctx, key, &cached) {
		return &cached, nil
	}
	defer observe("places_details", time.Now())
	d, err := s.places.Details(ctx, id)
	if err != nil {
		return nil, err
	}
	s.cacheSet(ctx, key, d)
	return d, nil
}

// Lookup resolves a course id to its name, website and location. It
// implements the agent's CourseResolver.
func (s *Service) Lookup(ctx context.Context, id string) (*schemas.Course, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: course id is required", ErrInvalidInput)
	}
	if s.places != nil {
		d, err := s.details(ctx, id)
		if err == nil {
			return &schemas.Course{ID: id, Name: d.Name, Website: d.Website, Location: d.Location, City: d.City, State: d.State, Type: "public"}, nil
		}
		s.logger.Warn("Course details lookup failed, trying mock catalogue.", zap.String("id", id), zap.Error(err))
	}
	if c, ok := mockCourse(id); ok {
		return &c, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
}

// Geocode resolves an address to coordinates.
func (s *Service) Geocode(ctx context.Context, address string) (schemas.LatLng, error) {
	if address == "" {
		return schemas.LatLng{}, fmt.Errorf("%w: address is required", ErrInvalidInput)
	}
	if s.places == nil {
		return schemas.LatLng{}, fmt.Errorf("geocoding requires a places API key")
	}
	defer observe("geocode", time.Now())
	return s.places.Geocode(ctx, address)
}

// ReverseGeocode describes a coordinate as a short place name.
func (s *Service) ReverseGeocode(ctx context.Context, at schemas.LatLng) (string, error) {
	if s.places == nil {
		return unknownLocation, nil
	}
	defer observe("reverse_geocode", time.Now())
	return s.places.ReverseGeocode(ctx, at)
}

func (s *Service) cacheGet(ctx context.Context, key string, out any) bool {
	if s.cache == nil {
		return false
	}
	ok, err := cache.GetJSON(ctx, s.cache, key, out)
	if err != nil {
		s.logger.Debug("Cache read failed.", zap.String("key", key), zap.Error(err))
		return false
	}
	return ok
}

func (s *Service) cacheSet(ctx context.Context, key string, v any) {
	if s.cache == nil {
		return
	}
	if err := cache.SetJSON(ctx, s.cache, key, v, s.ttl); err != nil {
		s.logger.Debug("Cache write failed.", zap.String("key", key), zap.Error(err))
	}
}
