package courses

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/bmstoss13/HoleNOne/api/schemas"
)

const nearbyFieldMask = "places.id,places.displayName,places.location,places.rating,places.priceLevel,places.websiteUri,places.types,places.photos"

// ErrNoResults is returned when a geocoding or details lookup matches nothing.
var ErrNoResults = errors.New("no results")

// PlacesClient talks to the places search, place details and geocoding APIs.
type PlacesClient struct {
	apiKey     string
	placesBase string
	maps       *resty.Client
	places     *resty.Client
	maxElapsed time.Duration
	logger     *zap.Logger
}

// PlacesOptions configures a PlacesClient.
type PlacesOptions struct {
	APIKey        string
	PlacesBaseURL string
	MapsBaseURL   string
	Timeout       time.Duration
	// MaxRetryElapsed bounds retries of rate limited or unavailable responses.
	MaxRetryElapsed time.Duration
}

// NewPlacesClient creates a client. The API key is required.
func NewPlacesClient(opts PlacesOptions, logger *zap.Logger) (*PlacesClient, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("places API key is required")
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.MaxRetryElapsed <= 0 {
		opts.MaxRetryElapsed = 20 * time.Second
	}
	placesBase := strings.TrimRight(opts.PlacesBaseURL, "/")
	return &PlacesClient{
		apiKey:     opts.APIKey,
		placesBase: placesBase,
		places: resty.New().
			SetBaseURL(placesBase).
			SetTimeout(opts.Timeout).
			SetHeader("Content-Type", "application/json").
			SetHeader("X-Goog-Api-Key", opts.APIKey),
		maps: resty.New().
			SetBaseURL(strings.TrimRight(opts.MapsBaseURL, "/")).
			SetTimeout(opts.Timeout).
			SetQueryParam("key", opts.APIKey),
		maxElapsed: opts.MaxRetryElapsed,
		logger:     logger.Named("places"),
	}, nil
}

// -- Wire types --

type nearbyRequest struct {
	LocationRestriction struct {
		Circle struct {
			Center struct {
				Latitude  float64 `json:"latitude"`
				Longitude float64 `json:"longitude"`
			} `json:"center"`
			Radius float64 `json:"radius"`
		} `json:"circle"`
	} `json:"locationRestriction"`
	IncludedTypes  []string `json:"includedTypes"`
	RankPreference string   `json:"rankPreference"`
	PageToken      string   `json:"pageToken,omitempty"`
}

type nearbyPlace struct {
	ID          string `json:"id"`
	DisplayName struct {
		Text string `json:"text"`
	} `json:"displayName"`
	Location struct {
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
	} `json:"location"`
	Rating     float64  `json:"rating"`
	PriceLevel string   `json:"priceLevel"`
	WebsiteURI string   `json:"websiteUri"`
	Types      []string `json:"types"`
	Photos     []struct {
		Name string `json:"name"`
	} `json:"photos"`
}

type nearbyResponse struct {
	Places        []nearbyPlace `json:"places"`
	NextPageToken string        `json:"nextPageToken"`
}

type addressComponent struct {
	LongName  string   `json:"long_name"`
	ShortName string   `json:"short_name"`
	Types     []string `json:"types"`
}

type geometry struct {
	Location schemas.LatLng `json:"location"`
}

type detailsResponse struct {
	Status string `json:"status"`
	Result struct {
		Name              string             `json:"name"`
		Website           string             `json:"website"`
		Geometry          geometry           `json:"geometry"`
		AddressComponents []addressComponent `json:"address_components"`
	} `json:"result"`
}

type geocodeResponse struct {
	Status  string `json:"status"`
	Results []struct {
		FormattedAddress  string             `json:"formatted_address"`
		Geometry          geometry           `json:"geometry"`
		AddressComponents []addressComponent `json:"address_components"`
	} `json:"results"`
}

// PlaceDetails is the subset of place details the service uses.
type PlaceDetails struct {
	Name     string
	Website  string
	Location schemas.LatLng
	City     string
	State    string
}

// -- Calls --

// SearchNearby returns one page of golf courses around center. City and state
// are left empty; the caller fills them from place details.
func (p *PlacesClient) SearchNearby(ctx context.Context, center schemas.LatLng, radiusMiles float64, pageToken string) (*schemas.CoursePage, error) {
	var body nearbyRequest
	body.LocationRestriction.Circle.Center.Latitude = center.Lat
	body.LocationRestriction.Circle.Center.Longitude = center.Lng
	body.LocationRestriction.Circle.Radius = searchRadiusMeters(radiusMiles)
	body.IncludedTypes = []string{"golf_course"}
	body.RankPreference = "DISTANCE"
	body.PageToken = pageToken

	var out nearbyResponse
	err := p.do(ctx, "searchNearby", func() (*resty.Response, error) {
		return p.places.R().
			SetContext(ctx).
			SetHeader("X-Goog-FieldMask", nearbyFieldMask).
			SetBody(body).
			SetResult(&out).
			Post("/places:searchNearby")
	})
	if err != nil {
		return nil, err
	}

	page := &schemas.CoursePage{Courses: make([]schemas.Course, 0, len(out.Places)), NextPageToken: out.NextPageToken}
	page.HasMore = out.NextPageToken != ""
	for _, pl := range out.Places {
		loc := schemas.LatLng{Lat: pl.Location.Latitude, Lng: pl.Location.Longitude}
		c := schemas.Course{
			ID:         pl.ID,
			Name:       pl.DisplayName.Text,
			Location:   loc,
			Type:       "public",
			Website:    pl.WebsiteURI,
			Rating:     pl.Rating,
			PriceLevel: priceLevel(pl.PriceLevel),
			Distance:   distanceMiles(center, loc),
		}
		if len(pl.Photos) > 0 && pl.Photos[0].Name != "" {
			c.Photo = fmt.Sprintf("%s/%s/media?key=%s&maxWidthPx=400", p.placesBase, pl.Photos[0].Name, p.apiKey)
		}
		page.Courses = append(page.Courses, c)
	}
	return page, nil
}

// Details fetches a place's name, website, location and city/state.
func (p *PlacesClient) Details(ctx context.Context, placeID string) (*PlaceDetails, error) {
	var out detailsResponse
	err := p.do(ctx, "details", func() (*resty.Response, error) {
		return p.maps.R().
			SetContext(ctx).
			SetQueryParam("place_id", placeID).
			SetQueryParam("fields", "name,website,geometry,address_components").
			SetResult(&out).
			Get("/place/details/json")
	})
	if err != nil {
		return nil, err
	}
	if out.Status != "" && out.Status != "OK" {
		return nil, fmt.Errorf("place details for %s: %w (%s)", placeID, ErrNoResults, out.Status)
	}
	city, state := cityState(out.Result.AddressComponents)
	return &PlaceDetails{
		Name:     out.Result.Name,
		Website:  out.Result.Website,
		Location: out.Result.Geometry.Location,
		City:     city,
		State:    state,
	}, nil
}

// Geocode resolves a free-form address to coordinates.
func (p *PlacesClient) Geocode(ctx context.Context, address string) (schemas.LatLng, error) {
	var out geocodeResponse
	err := p.do(ctx, "geocode", func() (*resty.Response, error) {
		return p.maps.R().
			SetContext(ctx).
			SetQueryParam("address", address).
			SetResult(&out).
			Get("/geocode/json")
	})
	if err != nil {
		return schemas.LatLng{}, err
	}
	if out.Status != "OK" || len(out.Results) == 0 {
		return schemas.LatLng{}, fmt.Errorf("could not geocode address: %w (%s)", ErrNoResults, out.Status)
	}
	return out.Results[0].Geometry.Location, nil
}

// ReverseGeocode describes a coordinate as "City, ST", falling back to the
// formatted address.
func (p *PlacesClient) ReverseGeocode(ctx context.Context, at schemas.LatLng) (string, error) {
	var out geocodeResponse
	err := p.do(ctx, "reverse_geocode", func() (*resty.Response, error) {
		return p.maps.R().
			SetContext(ctx).
			SetQueryParam("latlng", strconv.FormatFloat(at.Lat, 'f', -1, 64)+","+strconv.FormatFloat(at.Lng, 'f', -1, 64)).
			SetResult(&out).
			Get("/geocode/json")
	})
	if err != nil {
		return "", err
	}
	if out.Status != "OK" || len(out.Results) == 0 {
		return unknownLocation, nil
	}
	first := out.Results[0]
	if city, state := cityState(first.AddressComponents); city != "" && state != "" {
		return city + ", " + state, nil
	}
	if first.FormattedAddress != "" {
		return first.FormattedAddress, nil
	}
	return unknownLocation, nil
}

const unknownLocation = "Unknown Location"

// httpStatusError carries a non-2xx response.
type httpStatusError struct {
	op     string
	status int
	body   string
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("%s returned status %d: %s", e.op, e.status, e.body)
}

// do runs a request with exponential backoff on 429 and 5xx responses.
func (p *PlacesClient) do(ctx context.Context, op string, send func() (*resty.Response, error)) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 250 * time.Millisecond
	b.MaxInterval = 5 * time.Second
	b.MaxElapsedTime = p.maxElapsed

	attempt := func() error {
		resp, err := send()
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			return fmt.Errorf("%s request: %w", op, err)
		}
		if resp.IsSuccess() {
			return nil
		}
		statusErr := &httpStatusError{op: op, status: resp.StatusCode(), body: truncate(resp.String(), 200)}
		if resp.StatusCode() == http.StatusTooManyRequests || resp.StatusCode() >= http.StatusInternalServerError {
			return statusErr
		}
		return backoff.Permanent(statusErr)
	}
	notify := func(err error, wait time.Duration) {
		p.logger.Warn("Places request failed, retrying.", zap.String("op", op), zap.Error(err), zap.Duration("backoff", wait))
	}
	return backoff.RetryNotify(attempt, backoff.WithContext(b, ctx), notify)
}

// -- Helpers --

func cityState(components []addressComponent) (string, string) {
	find := func(kind string) (addressComponent, bool) {
		for _, c := range components {
			for _, t := range c.Types {
				if t == kind {
					return c, true
				}
			}
		}
		return addressComponent{}, false
	}
	var city, state string
	if c, ok := find("locality"); ok {
		city = c.LongName
	} else if c, ok := find("administrative_area_level_2"); ok {
		city = c.LongName
	}
	if c, ok := find("administrative_area_level_1"); ok {
		state = c.ShortName
	}
	return city, state
}

// priceLevel maps the places enum to the 0-4 scale.
func priceLevel(level string) int {
	switch level {
	case "PRICE_LEVEL_INEXPENSIVE":
		return 1
	case "PRICE_LEVEL_MODERATE":
		return 2
	case "PRICE_LEVEL_EXPENSIVE":
		return 3
	case "PRICE_LEVEL_VERY_EXPENSIVE":
		return 4
	}
	return 0
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
