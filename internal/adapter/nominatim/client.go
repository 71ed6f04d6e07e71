package nominatim

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/logistics-locator/internal/domain"
)

const (
	// DefaultBaseURL is the public OpenStreetMap Nominatim instance.
	DefaultBaseURL = "https://nominatim.openstreetmap.org"
	providerName   = "nominatim"
)

// Client implements domain.Geocoder using the Nominatim search and reverse APIs.
type Client struct {
	baseURL      string
	userAgent    string
	countryCodes string
	httpClient   *http.Client
	logger       *slog.Logger
}

// NewClient creates a Nominatim client. Nominatim's usage policy requires an
// identifying User-Agent. countryCodes restricts forward lookups and
// suggestions (e.g. "in"); empty searches worldwide.
func NewClient(baseURL, userAgent, countryCodes string, timeout time.Duration, logger *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		userAgent:    userAgent,
		countryCodes: countryCodes,
		httpClient:   &http.Client{Timeout: timeout},
		logger:       logger,
	}
}

// ForwardGeocode returns the top match for a free-text address.
func (c *Client) ForwardGeocode(ctx context.Context, address string) (domain.GeocodingResult, error) {
	var places []place
	if err := c.get(ctx, "search", c.searchParams(address, 1), &places); err != nil {
		return domain.GeocodingResult{}, err
	}
	if len(places) == 0 {
		return domain.GeocodingResult{}, domain.ErrNotFound
	}
	return places[0].toResult(domain.SourceForward)
}

// ReverseGeocode returns the address at lat/lon, at building-level zoom.
func (c *Client) ReverseGeocode(ctx context.Context, lat, lon float64) (domain.GeocodingResult, error) {
	params := url.Values{
		"format":         {"json"},
		"lat":            {strconv.FormatFloat(lat, 'f', -1, 64)},
		"lon":            {strconv.FormatFloat(lon, 'f', -1, 64)},
		"zoom":           {"18"},
		"addressdetails": {"1"},
	}
	var p place
	if err := c.get(ctx, "reverse", params, &p); err != nil {
		return domain.GeocodingResult{}, err
	}
	// Nominatim answers 200 with {"error": "Unable to geocode"} for open sea and the like.
	if p.Error != "" || p.DisplayName == "" {
		return domain.GeocodingResult{}, domain.ErrNotFound
	}
	res, err := p.toResult(domain.SourceReverse)
	if err != nil {
		return domain.GeocodingResult{}, err
	}
	// Some reverse hits omit lat/lon; keep the query point then.
	if p.Lat == "" || p.Lon == "" {
		res.Coordinate = domain.Coordinate{Lat: lat, Lon: lon}
	}
	return res, nil
}

// Suggest returns up to limit candidates for partial address text.
func (c *Client) Suggest(ctx context.Context, text string, limit int) ([]domain.Suggestion, error) {
	var places []place
	if err := c.get(ctx, "search", c.searchParams(text, limit), &places); err != nil {
		return nil, err
	}
	out := make([]domain.Suggestion, 0, len(places))
	for _, p := range places {
		coord, err := p.coordinate()
		if err != nil {
			c.logger.Debug("skipping suggestion with bad coordinates", "display_name", p.DisplayName, "error", err)
			continue
		}
		out = append(out, domain.Suggestion{
			DisplayName: p.DisplayName,
			Coordinate:  coord,
			Relevance:   clampUnit(p.Importance),
		})
	}
	return out, nil
}

func (c *Client) searchParams(q string, limit int) url.Values {
	params := url.Values{
		"format":         {"json"},
		"q":              {q},
		"limit":          {strconv.Itoa(limit)},
		"addressdetails": {"1"},
	}
	if c.countryCodes != "" {
		params.Set("countrycodes", c.countryCodes)
	}
	return params
}

func (c *Client) get(ctx context.Context, op string, params url.Values, out any) error {
	fullURL := c.baseURL + "/" + op + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &domain.ProviderError{Provider: providerName, Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &domain.ProviderError{
			Provider:   providerName,
			Op:         op,
			StatusCode: resp.StatusCode,
			Err:        errors.New(strings.TrimSpace(string(body))),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &domain.ProviderError{Provider: providerName, Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

// Nominatim API response types. Coordinates and importance arrive as strings
// and numbers respectively.

type place struct {
	Lat         string            `json:"lat"`
	Lon         string            `json:"lon"`
	DisplayName string            `json:"display_name"`
	Name        string            `json:"name"`
	Importance  float64           `json:"importance"`
	Address     map[string]string `json:"address"`
	Error       string            `json:"error"`
}

func (p place) coordinate() (domain.Coordinate, error) {
	lat, err := strconv.ParseFloat(p.Lat, 64)
	if err != nil {
		return domain.Coordinate{}, fmt.Errorf("lat %q: %w", p.Lat, err)
	}
	lon, err := strconv.ParseFloat(p.Lon, 64)
	if err != nil {
		return domain.Coordinate{}, fmt.Errorf("lon %q: %w", p.Lon, err)
	}
	c := domain.Coordinate{Lat: lat, Lon: lon}
	return c, domain.ValidateRange(c)
}

func (p place) toResult(source string) (domain.GeocodingResult, error) {
	res := domain.GeocodingResult{
		FormattedAddress: p.DisplayName,
		PlaceName:        p.placeName(),
		Locality:         locality(p.Address),
		Components:       p.Address,
		Confidence:       clampUnit(p.Importance),
		Source:           source,
	}
	if p.Lat == "" && p.Lon == "" && source == domain.SourceReverse {
		return res, nil
	}
	coord, err := p.coordinate()
	if err != nil {
		return domain.GeocodingResult{}, &domain.ProviderError{Provider: providerName, Op: source, Err: err}
	}
	res.Coordinate = coord
	return res, nil
}

func (p place) placeName() string {
	if p.Name != "" {
		return p.Name
	}
	name, _, _ := strings.Cut(p.DisplayName, ",")
	return strings.TrimSpace(name)
}

// localityKeys are tried in order; Indian addresses often carry a city only
// at the state_district level.
var localityKeys = []string{"city", "town", "village", "suburb", "city_district", "state_district", "county", "state"}

func locality(addr map[string]string) string {
	for _, k := range localityKeys {
		if v := strings.TrimSpace(addr[k]); v != "" {
			return v
		}
	}
	return ""
}

func clampUnit(v float64) float64 {
	return min(max(v, 0), 1)
}
