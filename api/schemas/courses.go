package schemas

// -- Course collaborator schemas --

// LatLng is a WGS84 coordinate.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Course is a golf course as returned by the places collaborator.
type Course struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Location   LatLng  `json:"location"`
	Type       string  `json:"type"`
	City       string  `json:"city,omitempty"`
	State      string  `json:"state,omitempty"`
	Website    string  `json:"website,omitempty"`
	Distance   float64 `json:"distance,omitempty"`
	Rating     float64 `json:"rating,omitempty"`
	PriceLevel int     `json:"priceLevel,omitempty"`
	Photo      string  `json:"photo,omitempty"`
}

// CoursePage is one page of a nearby search.
type CoursePage struct {
	Courses       []Course `json:"courses"`
	NextPageToken string   `json:"nextPageToken,omitempty"`
	NextOffset    int      `json:"nextOffset,omitempty"`
	HasMore       bool     `json:"hasMore"`
	Total         int      `json:"total,omitempty"`
}

// RankingResult is the ranking model's answer.
type RankingResult struct {
	Ranked      []Course `json:"ranked"`
	TopPick     string   `json:"topPick"`
	Explanation string   `json:"explanation"`
}

// BookingRules are a course's constraints on booking requests.
type BookingRules struct {
	CourseID       string `json:"courseId"`
	MaxAdvanceDays int    `json:"maxAdvanceDays"`
	MinPlayers     int    `json:"minPlayers"`
	MaxPlayers     int    `json:"maxPlayers"`
	IsPublic       bool   `json:"isPublic"`
}

// ChatMessage is one turn of the assistant conversation.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// SearchRequest asks the ranking model to order nearby courses for a query.
type SearchRequest struct {
	Query       string  `json:"query"`
	Date        string  `json:"date"`
	Players     int     `json:"players"`
	Lat         float64 `json:"lat"`
	Lng         float64 `json:"lng"`
	RadiusMiles float64 `json:"radius,omitempty"`
}

// ChatRequest is one user turn plus the prior conversation.
type ChatRequest struct {
	Message string        `json:"message"`
	History []ChatMessage `json:"history"`
}

// ChatResponse carries the assistant reply and the extended history.
type ChatResponse struct {
	Response string        `json:"response"`
	History  []ChatMessage `json:"history"`
}
