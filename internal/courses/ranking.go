package courses

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/bmstoss13/HoleNOne/api/schemas"
	"github.com/bmstoss13/HoleNOne/internal/llmutil"
)

const (
	maxRanked          = 4
	rankingTemperature = float32(0.3)
	noCoursesTopPick   = "No courses found"
	noCoursesReason    = "No golf courses were found matching your criteria."
)

type rankingReply struct {
	Ranked      []string `json:"ranked"`
	TopPick     string   `json:"topPick"`
	Explanation string   `json:"explanation"`
}

// Rank orders the nearby courses for the user's query with the ranking model.
func (s *Service) Rank(ctx context.Context, req schemas.SearchRequest) (*schemas.RankingResult, error) {
	if req.Query == "" || req.Date == "" || req.Players <= 0 {
		return nil, fmt.Errorf("%w: query, date and players are required", ErrInvalidInput)
	}
	page, err := s.Nearby(ctx, NearbyQuery{Center: schemas.LatLng{Lat: req.Lat, Lng: req.Lng}, RadiusMiles: req.RadiusMiles})
	if err != nil {
		return nil, err
	}
	return s.RankCourses(ctx, req, page.Courses)
}

// RankCourses ranks an explicit candidate list. An empty list short-circuits
// without calling the model.
func (s *Service) RankCourses(ctx context.Context, req schemas.SearchRequest, candidates []schemas.Course) (*schemas.RankingResult, error) {
	if len(candidates) == 0 {
		return &schemas.RankingResult{Ranked: []schemas.Course{}, TopPick: noCoursesTopPick, Explanation: noCoursesReason}, nil
	}
	if s.llm == nil {
		return nil, fmt.Errorf("ranking model is not configured")
	}

	temp := rankingTemperature
	start := time.Now()
	resp, err := s.llm.Generate(ctx, schemas.GenerationRequest{
		Role:       schemas.RoleRanking,
		UserPrompt: rankingPrompt(req, candidates),
		Options:    schemas.GenerationOptions{Temperature: &temp, ForceJSONFormat: true},
	})
	observe("ranking", start)
	if err != nil {
		return nil, fmt.Errorf("ranking courses: %w", err)
	}

	reply, err := llmutil.ParseJSONResponse[rankingReply](resp.Text)
	if err != nil {
		return nil, fmt.Errorf("parsing ranking reply: %w", err)
	}

	ranked := make([]schemas.Course, 0, maxRanked)
	seen := make(map[string]bool)
	for _, name := range reply.Ranked {
		if len(ranked) == maxRanked {
			break
		}
		for _, c := range candidates {
			if strings.EqualFold(c.Name, strings.TrimSpace(name)) && !seen[c.ID] {
				seen[c.ID] = true
				ranked = append(ranked, c)
				break
			}
		}
	}
	if len(ranked) < len(reply.Ranked) {
		s.logger.Debug("Ranking named courses outside the candidate list.", zap.Strings("ranked", reply.Ranked))
	}
	return &schemas.RankingResult{Ranked: ranked, TopPick: reply.TopPick, Explanation: reply.Explanation}, nil
}

func rankingPrompt(req schemas.SearchRequest, candidates []schemas.Course) string {
	var b strings.Builder
	b.WriteString("Rank these golf courses based on the user's needs:\n")
	fmt.Fprintf(&b, "- User query: %q\n- Date: %s\n- Players: %d\n\n", req.Query, req.Date, req.Players)
	b.WriteString("Courses (name, distance in miles, rating, price level 0-4):\n")
	for _, c := range candidates {
		fmt.Fprintf(&b, "- %s (%.1fmi, %.1f stars, %s)\n", c.Name, c.Distance, c.Rating, "$"+strings.Repeat("$", c.PriceLevel))
	}
	b.WriteString(`
Respond with JSON containing:
1. "ranked": Top 4 course names in order
2. "topPick": Best overall choice
3. "explanation": Brief justification mentioning distance, rating, and price
`)
	return b.String()
}
