package courses

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bmstoss13/HoleNOne/api/schemas"
)

func TestNearby_MockCatalogue(t *testing.T) {
	s := newTestService(t, nil, nil)
	ctx := context.Background()

	page, err := s.Nearby(ctx, NearbyQuery{Center: fairfax, RadiusMiles: 25})
	require.NoError(t, err)
	require.Len(t, page.Courses, 4)
	assert.Equal(t, "mantua-local-links", page.Courses[0].ID)
	assert.True(t, page.HasMore)
	assert.Equal(t, 4, page.NextOffset)
	assert.Equal(t, 5, page.Total)
	for i := 1; i < len(page.Courses); i++ {
		assert.LessOrEqual(t, page.Courses[i-1].Distance, page.Courses[i].Distance)
	}

	next, err := s.Nearby(ctx, NearbyQuery{Center: fairfax, RadiusMiles: 25, Offset: page.NextOffset})
	require.NoError(t, err)
	require.Len(t, next.Courses, 1)
	assert.False(t, next.HasMore)

	// Nothing within range falls back to the head of the catalogue.
	far, err := s.Nearby(ctx, NearbyQuery{Center: schemas.LatLng{Lat: 0, Lng: 0}, RadiusMiles: 25})
	require.NoError(t, err)
	require.Len(t, far.Courses, 4)
	assert.Equal(t, mockCatalogue[0].ID, far.Courses[0].ID)
	assert.Greater(t, far.Courses[0].Distance, 1000.0)

	_, err = s.Nearby(ctx, NearbyQuery{Center: schemas.LatLng{Lat: 91}})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestNearby_PlacesWithDetailsAndCache(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/places:searchNearby", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"places": []map[string]any{
			{"id": "good", "displayName": map[string]any{"text": "Good Course"}, "location": map[string]any{"latitude": 38.87, "longitude": -77.27}},
			{"id": "broken", "displayName": map[string]any{"text": "Broken Course"}, "location": map[string]any{"latitude": 38.88, "longitude": -77.28}},
		}})
	})
	mux.HandleFunc("/maps/api/place/details/json", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("place_id") == "broken" {
			writeJSON(w, http.StatusBadRequest, map[string]any{"status": "INVALID_REQUEST"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"status": "OK", "result": map[string]any{
			"address_components": []any{
				component("Vienna", "Vienna", "locality"),
				component("Virginia", "VA", "administrative_area_level_1"),
			},
		}})
	})
	f := newFakeGoogle(t, mux)
	s := newTestService(t, f, nil)
	ctx := context.Background()

	page, err := s.Nearby(ctx, NearbyQuery{Center: fairfax})
	require.NoError(t, err)
	require.Len(t, page.Courses, 2)
	assert.Equal(t, "Vienna", page.Courses[0].City)
	assert.Equal(t, "VA", page.Courses[0].State)
	assert.Equal(t, notAvailable, page.Courses[1].City)
	assert.Equal(t, notAvailable, page.Courses[1].State)

	again, err := s.Nearby(ctx, NearbyQuery{Center: fairfax})
	require.NoError(t, err)
	assert.Equal(t, page, again)
	assert.Equal(t, 1, f.count("/v1/places:searchNearby"), "second page load must come from cache")
}

func TestLookup(t *testing.T) {
	ctx := context.Background()

	t.Run("Mock catalogue", func(t *testing.T) {
		s := newTestService(t, nil, nil)
		c, err := s.Lookup(ctx, "mock-course-3")
		require.NoError(t, err)
		assert.Equal(t, "Pinehurst Resort", c.Name)
		assert.Equal(t, "https://www.pinehurst.com", c.Website)

		_, err = s.Lookup(ctx, "nope")
		assert.ErrorIs(t, err, ErrNotFound)
		_, err = s.Lookup(ctx, "")
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("Place details", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("/maps/api/place/details/json", func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Query().Get("place_id") != "ChIJ123" {
				writeJSON(w, http.StatusOK, map[string]any{"status": "NOT_FOUND"})
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"status": "OK", "result": map[string]any{
				"name": "Real Course", "website": "https://real.example",
				"geometry": map[string]any{"location": map[string]any{"lat": 38.9, "lng": -77.1}},
			}})
		})
		s := newTestService(t, newFakeGoogle(t, mux), nil)

		c, err := s.Lookup(ctx, "ChIJ123")
		require.NoError(t, err)
		assert.Equal(t, "Real Course", c.Name)
		assert.Equal(t, "https://real.example", c.Website)

		// Unknown to the API but present in the catalogue.
		c, err = s.Lookup(ctx, "fairfax-park")
		require.NoError(t, err)
		assert.Equal(t, "Fairfax Park Golf", c.Name)
	})
}

func TestRank(t *testing.T) {
	ctx := context.Background()
	req := schemas.SearchRequest{Query: "cheap and close", Date: "2025-06-14", Players: 2, Lat: fairfax.Lat, Lng: fairfax.Lng}

	t.Run("Maps names back to courses", func(t *testing.T) {
		llm := &fakeLLM{reply: "```json\n" + `{"ranked":["MANTUA GREEN GOLF COURSE","Imaginary Links","Fairfax Park Golf"],"topPick":"Mantua Green Golf Course","explanation":"Closest and cheapest."}` + "\n```"}
		s := newTestService(t, nil, llm)

		res, err := s.Rank(ctx, req)
		require.NoError(t, err)
		require.Len(t, res.Ranked, 2)
		assert.Equal(t, "mantua-local-links", res.Ranked[0].ID)
		assert.Equal(t, "fairfax-park", res.Ranked[1].ID)
		assert.Equal(t, "Mantua Green Golf Course", res.TopPick)
		assert.Equal(t, "Closest and cheapest.", res.Explanation)

		require.Len(t, llm.requests, 1)
		sent := llm.requests[0]
		assert.Equal(t, schemas.RoleRanking, sent.Role)
		assert.True(t, sent.Options.ForceJSONFormat)
		require.NotNil(t, sent.Options.Temperature)
		assert.Equal(t, float32(0.3), *sent.Options.Temperature)
		assert.Contains(t, sent.UserPrompt, `User query: "cheap and close"`)
		assert.Contains(t, sent.UserPrompt, "Players: 2")
		assert.Contains(t, sent.UserPrompt, "Mantua Green Golf Course (")
	})

	t.Run("Caps at four", func(t *testing.T) {
		llm := &fakeLLM{reply: `{"ranked":["Mantua Green Golf Course","Fairfax Park Golf","Oakton Country Club","Potomac Ridge Golf Course","Gainesville Golf Center"],"topPick":"x","explanation":"y"}`}
		s := newTestService(t, nil, llm)
		all := append([]schemas.Course(nil), mockCatalogue[:5]...)
		res, err := s.RankCourses(ctx, req, all)
		require.NoError(t, err)
		assert.Len(t, res.Ranked, 4)
	})

	t.Run("No candidates skips the model", func(t *testing.T) {
		llm := &fakeLLM{}
		s := newTestService(t, nil, llm)
		res, err := s.RankCourses(ctx, req, nil)
		require.NoError(t, err)
		assert.Equal(t, noCoursesTopPick, res.TopPick)
		assert.Empty(t, res.Ranked)
		assert.Zero(t, llm.calls.Load())
	})

	t.Run("Model failure", func(t *testing.T) {
		s := newTestService(t, nil, &fakeLLM{err: errors.New("429 exhausted")})
		_, err := s.Rank(ctx, req)
		assert.ErrorContains(t, err, "ranking courses")
	})

	t.Run("Unparseable reply", func(t *testing.T) {
		s := newTestService(t, nil, &fakeLLM{reply: "I like Mantua."})
		_, err := s.Rank(ctx, req)
		assert.ErrorContains(t, err, "parsing ranking reply")
	})

	t.Run("Missing fields", func(t *testing.T) {
		s := newTestService(t, nil, &fakeLLM{})
		_, err := s.Rank(ctx, schemas.SearchRequest{Lat: 1, Lng: 1})
		assert.ErrorIs(t, err, ErrInvalidInput)
	})
}

func TestChat(t *testing.T) {
	ctx := context.Background()
	llm := &fakeLLM{reply: "  Try the search bar!  "}
	s := newTestService(t, nil, llm)

	prior := []schemas.ChatMessage{{Role: "user", Content: "hi"}, {Role: "assistant", Content: "Hello golfer."}}
	resp, err := s.Chat(ctx, schemas.ChatRequest{Message: "find me a course", History: prior})
	require.NoError(t, err)
	assert.Equal(t, "Try the search bar!", resp.Response)
	require.Len(t, resp.History, 4)
	assert.Equal(t, schemas.ChatMessage{Role: "user", Content: "find me a course"}, resp.History[2])
	assert.Equal(t, schemas.ChatMessage{Role: "assistant", Content: "Try the search bar!"}, resp.History[3])

	sent := llm.requests[0]
	assert.Equal(t, schemas.RoleChat, sent.Role)
	assert.Contains(t, sent.SystemPrompt, "Birdie AI")
	assert.Contains(t, sent.UserPrompt, "assistant: Hello golfer.")
	assert.Contains(t, sent.UserPrompt, "user: find me a course")

	_, err = s.Chat(ctx, schemas.ChatRequest{Message: "   "})
	assert.ErrorIs(t, err, ErrInvalidInput)

	empty := newTestService(t, nil, &fakeLLM{reply: ""})
	_, err = empty.Chat(ctx, schemas.ChatRequest{Message: "hello"})
	assert.Error(t, err)
}

func TestRules(t *testing.T) {
	ctx := context.Background()
	s := newTestService(t, nil, nil)
	s.now = func() time.Time { return time.Date(2025, 6, 1, 15, 0, 0, 0, time.Local) }

	rules, err := s.Rules(ctx, "fairfax-park")
	require.NoError(t, err)
	assert.Equal(t, schemas.BookingRules{CourseID: "fairfax-park", MaxAdvanceDays: 14, MinPlayers: 1, MaxPlayers: 4, IsPublic: true}, *rules)

	tests := []struct {
		name    string
		date    string
		players int
		want    error
	}{
		{"today", "2025-06-01", 4, nil},
		{"last bookable day", "2025-06-15", 1, nil},
		{"too far ahead", "2025-06-16", 2, ErrRuleViolation},
		{"in the past", "2025-05-31", 2, ErrRuleViolation},
		{"too many players", "2025-06-02", 5, ErrRuleViolation},
		{"no players", "2025-06-02", 0, ErrRuleViolation},
		{"bad date", "06/02/2025", 2, ErrInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.CheckRequest(rules, tt.date, tt.players)
			if tt.want == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.want)
			}
		})
	}

	private, err := s.Rules(ctx, "oakton-country-club")
	require.NoError(t, err)
	assert.False(t, private.IsPublic)
	assert.ErrorIs(t, s.CheckRequest(private, "2025-06-02", 2), ErrRuleViolation)

	_, err = s.Rules(ctx, "")
	assert.ErrorIs(t, err, ErrInvalidInput)
}
