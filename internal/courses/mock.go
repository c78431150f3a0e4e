package courses

import (
	"sort"

	"github.com/bmstoss13/HoleNOne/api/schemas"
)

// mockCatalogue stands in for the places API in development and when no key
// is configured.
var mockCatalogue = []schemas.Course{
	{ID: "mantua-local-links", Name: "Mantua Green Golf Course", Location: schemas.LatLng{Lat: 38.8700, Lng: -77.2700}, Type: "public", City: "Fairfax", State: "VA", PriceLevel: 1, Photo: "https://placehold.co/400x200/007bff/ffffff?text=Mantua+Golf"},
	{ID: "fairfax-park", Name: "Fairfax Park Golf", Location: schemas.LatLng{Lat: 38.8472, Lng: -77.3069}, Type: "public", City: "Fairfax", State: "VA", PriceLevel: 1, Photo: "https://placehold.co/400x200/28a745/ffffff?text=Fairfax+Golf"},
	{ID: "oakton-country-club", Name: "Oakton Country Club", Location: schemas.LatLng{Lat: 38.9050, Lng: -77.3050}, Type: "private", City: "Oakton", State: "VA", PriceLevel: 2, Photo: "https://placehold.co/400x200/ffc107/000000?text=Oakton+CC"},
	{ID: "potomac-ridge", Name: "Potomac Ridge Golf Course", Location: schemas.LatLng{Lat: 38.9200, Lng: -77.4000}, Type: "public", City: "Reston", State: "VA", PriceLevel: 2, Photo: "https://placehold.co/400x200/17a2b8/ffffff?text=Potomac+Ridge"},
	{ID: "gaineville-links", Name: "Gainesville Golf Center", Location: schemas.LatLng{Lat: 38.8150, Lng: -77.5300}, Type: "public", City: "Gainesville", State: "VA", PriceLevel: 1, Photo: "https://placehold.co/400x200/6f42c1/ffffff?text=Gainesville+Golf"},
	{ID: "mock-course-1", Name: "Pebble Beach Golf Links", Location: schemas.LatLng{Lat: 36.5681, Lng: -121.9486}, Type: "public", City: "Pebble Beach", State: "CA", PriceLevel: 4, Website: "https://www.pebblebeach.com", Photo: "https://placehold.co/400x200/dc3545/ffffff?text=Pebble+Beach"},
	{ID: "mock-course-2", Name: "Augusta National Golf Club", Location: schemas.LatLng{Lat: 33.5030, Lng: -82.0199}, Type: "private", City: "Augusta", State: "GA", PriceLevel: 4, Photo: "https://placehold.co/400x200/fd7e14/ffffff?text=Augusta+National"},
	{ID: "mock-course-3", Name: "Pinehurst Resort", Location: schemas.LatLng{Lat: 35.1972, Lng: -79.4792}, Type: "public", City: "Pinehurst", State: "NC", PriceLevel: 3, Website: "https://www.pinehurst.com", Photo: "https://placehold.co/400x200/4CAF50/ffffff?text=Pinehurst"},
	{ID: "mock-course-4", Name: "Bandon Dunes Golf Resort", Location: schemas.LatLng{Lat: 43.1972, Lng: -124.3892}, Type: "public", City: "Bandon", State: "OR", PriceLevel: 4, Website: "https://www.bandondunesgolf.com", Photo: "https://placehold.co/400x200/FF5722/ffffff?text=Bandon+Dunes"},
	{ID: "mock-course-5", Name: "Whistling Straits", Location: schemas.LatLng{Lat: 43.7650, Lng: -87.7750}, Type: "public", City: "Sheboygan", State: "WI", PriceLevel: 4, Photo: "https://placehold.co/400x200/607D8B/ffffff?text=Whistling+Straits"},
	{ID: "mock-course-6", Name: "Erin Hills Golf Course", Location: schemas.LatLng{Lat: 43.2750, Lng: -88.3750}, Type: "public", City: "Erin", State: "WI", PriceLevel: 3, Photo: "https://placehold.co/400x200/795548/ffffff?text=Erin+Hills"},
}

func mockCourse(id string) (schemas.Course, bool) {
	for _, c := range mockCatalogue {
		if c.ID == id {
			return c, true
		}
	}
	return schemas.Course{}, false
}

// mockNearby pages through catalogue courses within radius of center, nearest
// first. An empty first page falls back to the first courses of the catalogue
// so development screens are never blank.
func mockNearby(center schemas.LatLng, radiusMiles float64, offset, limit int) *schemas.CoursePage {
	if limit <= 0 {
		limit = defaultPageLimit
	}
	if offset < 0 {
		offset = 0
	}

	var within []schemas.Course
	for _, c := range mockCatalogue {
		c.Distance = distanceMiles(center, c.Location)
		if c.Distance <= radiusMiles {
			within = append(within, c)
		}
	}
	sort.SliceStable(within, func(i, j int) bool { return within[i].Distance < within[j].Distance })

	if len(within) == 0 && offset == 0 {
		n := min(limit, len(mockCatalogue))
		fallback := make([]schemas.Course, 0, n)
		for _, c := range mockCatalogue[:n] {
			c.Distance = distanceMiles(center, c.Location)
			fallback = append(fallback, c)
		}
		page := &schemas.CoursePage{Courses: fallback, Total: len(mockCatalogue)}
		if n < len(mockCatalogue) {
			page.HasMore, page.NextOffset = true, n
		}
		return page
	}

	page := &schemas.CoursePage{Courses: []schemas.Course{}, Total: len(within)}
	if offset < len(within) {
		end := min(offset+limit, len(within))
		page.Courses = within[offset:end]
		if end < len(within) {
			page.HasMore, page.NextOffset = true, end
		}
	}
	return page
}
