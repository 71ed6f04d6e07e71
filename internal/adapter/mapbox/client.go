package mapbox

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

// DefaultBaseURL is the Mapbox Geocoding v5 places endpoint.
const DefaultBaseURL = "https://api.mapbox.com/geocoding/v5/mapbox.places"

const providerName = "mapbox"

// Client implements domain.Geocoder using the Mapbox Geocoding API.
type Client struct {
	token      string
	country    string
	httpClient *http.Client
	baseURL    string
	logger     *slog.Logger
}

// NewClient creates a Mapbox geocoding client. country is a comma-separated
// list of ISO 3166-1 alpha-2 codes; empty searches worldwide.
func NewClient(token, country string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		token:   token,
		country: country,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: DefaultBaseURL,
		logger:  logger,
	}
}

// WithBaseURL points the client at another endpoint, such as a proxy.
func (c *Client) WithBaseURL(baseURL string) *Client {
	if baseURL != "" {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
	return c
}

// ForwardGeocode converts a free-text address to its top match.
func (c *Client) ForwardGeocode(ctx context.Context, address string) (domain.GeocodingResult, error) {
	resp, err := c.doRequest(ctx, "forward", address, c.forwardParams(1, false))
	if err != nil {
		return domain.GeocodingResult{}, err
	}
	if len(resp.Features) == 0 {
		return domain.GeocodingResult{}, domain.ErrNotFound
	}
	return resp.Features[0].toResult(domain.SourceForward)
}

// ReverseGeocode converts coordinates to place details.
func (c *Client) ReverseGeocode(ctx context.Context, lat, lon float64) (domain.GeocodingResult, error) {
	// Mapbox uses lon,lat order.
	coord := fmt.Sprintf("%.6f,%.6f", lon, lat)
	params := url.Values{
		"access_token": {c.token},
		"limit":        {"1"},
	}

	resp, err := c.doRequest(ctx, "reverse", coord, params)
	if err != nil {
		return domain.GeocodingResult{}, err
	}
	if len(resp.Features) == 0 {
		return domain.GeocodingResult{}, domain.ErrNotFound
	}
	return resp.Features[0].toResult(domain.SourceReverse)
}

// Suggest runs an autocomplete search for partial address text.
func (c *Client) Suggest(ctx context.Context, text string, limit int) ([]domain.Suggestion, error) {
	resp, err := c.doRequest(ctx, "suggest", text, c.forwardParams(limit, true))
	if err != nil {
		return nil, err
	}
	out := make([]domain.Suggestion, 0, len(resp.Features))
	for _, f := range resp.Features {
		if len(f.Center) != 2 {
			continue
		}
		out = append(out, domain.Suggestion{
			DisplayName: f.PlaceName,
			Coordinate:  domain.Coordinate{Lat: f.Center[1], Lon: f.Center[0]},
			Relevance:   f.Relevance,
		})
	}
	return out, nil
}

func (c *Client) forwardParams(limit int, autocomplete bool) url.Values {
	params := url.Values{
		"access_token": {c.token},
		"limit":        {strconv.Itoa(limit)},
		"autocomplete": {strconv.FormatBool(autocomplete)},
	}
	if c.country != "" {
		params.Set("country", c.country)
	}
	return params
}

func (c *Client) doRequest(ctx context.Context, op, query string, params url.Values) (response, error) {
	fullURL := fmt.Sprintf("%s/%s.json?%s", c.baseURL, url.PathEscape(query), params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return response{}, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return response{}, &domain.ProviderError{Provider: providerName, Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.logger.Warn("mapbox API error", "op", op, "status", resp.StatusCode)
		return response{}, &domain.ProviderError{
			Provider:   providerName,
			Op:         op,
			StatusCode: resp.StatusCode,
			Err:        errors.New(strings.TrimSpace(string(body))),
		}
	}

	var mapboxResp response
	if err := json.NewDecoder(resp.Body).Decode(&mapboxResp); err != nil {
		return response{}, &domain.ProviderError{Provider: providerName, Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	return mapboxResp, nil
}

// Mapbox API response types.

type response struct {
	Features []feature `json:"features"`
}

type feature struct {
	Center    []float64      `json:"center"` // [lon, lat]
	PlaceName string         `json:"place_name"`
	Text      string         `json:"text"`
	Relevance float64        `json:"relevance"`
	Context   []contextEntry `json:"context"`
}

// contextEntry is one enclosing feature, e.g. {"id": "place.8520", "text": "New Delhi"}.
type contextEntry struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

func (f feature) toResult(source string) (domain.GeocodingResult, error) {
	if len(f.Center) != 2 {
		return domain.GeocodingResult{}, &domain.ProviderError{
			Provider: providerName,
			Op:       source,
			Err:      fmt.Errorf("feature %q has no center", f.PlaceName),
		}
	}
	coord := domain.Coordinate{Lat: f.Center[1], Lon: f.Center[0]}
	if err := domain.ValidateRange(coord); err != nil {
		return domain.GeocodingResult{}, &domain.ProviderError{Provider: providerName, Op: source, Err: err}
	}
	result := domain.GeocodingResult{
		Coordinate:       coord,
		FormattedAddress: f.PlaceName,
		PlaceName:        f.Text,
		Confidence:       f.Relevance,
		Source:           source,
	}
	if len(f.Context) > 0 {
		result.Components = make(map[string]string, len(f.Context))
		for _, ce := range f.Context {
			kind, _, _ := strings.Cut(ce.ID, ".")
			result.Components[kind] = ce.Text
		}
		for _, kind := range []string{"place", "locality", "district", "region"} {
			if v := result.Components[kind]; v != "" {
				result.Locality = v
				break
			}
		}
	}
	return result, nil
}
