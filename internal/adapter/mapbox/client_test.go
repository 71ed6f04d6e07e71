package mapbox

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/logistics-locator/internal/domain"
)

const (
	testToken         = "test-token"
	contentTypeJSON   = "application/json"
	headerContentType = "Content-Type"
)

func testClient(baseURL string) *Client {
	return &Client{
		token:      testToken,
		country:    "in",
		httpClient: &http.Client{Timeout: 5 * time.Second},
		baseURL:    baseURL,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

var connaughtFeature = feature{
	Center:    []float64{77.2167, 28.6315},
	PlaceName: "Connaught Place, New Delhi, Delhi 110001, India",
	Text:      "Connaught Place",
	Relevance: 0.95,
	Context: []contextEntry{
		{ID: "postcode.123", Text: "110001"},
		{ID: "place.8520", Text: "New Delhi"},
		{ID: "region.99", Text: "Delhi"},
		{ID: "country.1", Text: "India"},
	},
}

func TestClient_ForwardGeocode_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "Connaught Place")
		assert.Equal(t, "1", r.URL.Query().Get("limit"))
		assert.Equal(t, "in", r.URL.Query().Get("country"))
		assert.Equal(t, "false", r.URL.Query().Get("autocomplete"))
		assert.Equal(t, testToken, r.URL.Query().Get("access_token"))

		w.Header().Set(headerContentType, contentTypeJSON)
		require.NoError(t, json.NewEncoder(w).Encode(response{Features: []feature{connaughtFeature}}))
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	result, err := c.ForwardGeocode(context.Background(), "Connaught Place, New Delhi")
	require.NoError(t, err)

	assert.Equal(t, 28.6315, result.Lat)
	assert.Equal(t, 77.2167, result.Lon)
	assert.Equal(t, "Connaught Place, New Delhi, Delhi 110001, India", result.FormattedAddress)
	assert.Equal(t, "Connaught Place", result.PlaceName)
	assert.Equal(t, "New Delhi", result.Locality)
	assert.Equal(t, "110001", result.Components["postcode"])
	assert.Equal(t, 0.95, result.Confidence)
	assert.Equal(t, domain.SourceForward, result.Source)
}

func TestClient_ReverseGeocode_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "77.216700,28.631500", "lon,lat order")
		w.Header().Set(headerContentType, contentTypeJSON)
		require.NoError(t, json.NewEncoder(w).Encode(response{Features: []feature{connaughtFeature}}))
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	result, err := c.ReverseGeocode(context.Background(), 28.6315, 77.2167)
	require.NoError(t, err)

	assert.Equal(t, "Connaught Place", result.PlaceName)
	assert.Equal(t, domain.SourceReverse, result.Source)
}

func TestClient_Suggest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "true", r.URL.Query().Get("autocomplete"))
		assert.Equal(t, "3", r.URL.Query().Get("limit"))
		w.Header().Set(headerContentType, contentTypeJSON)
		require.NoError(t, json.NewEncoder(w).Encode(response{Features: []feature{
			connaughtFeature,
			{PlaceName: "no center"},
		}}))
	}))
	defer srv.Close()

	got, err := testClient(srv.URL).Suggest(context.Background(), "connau", 3)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, domain.Coordinate{Lat: 28.6315, Lon: 77.2167}, got[0].Coordinate)
	assert.Equal(t, 0.95, got[0].Relevance)
}

func TestClient_ForwardGeocode_NoResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set(headerContentType, contentTypeJSON)
		require.NoError(t, json.NewEncoder(w).Encode(response{Features: []feature{}}))
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	_, err := c.ForwardGeocode(context.Background(), "NONEXISTENT")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestClient_ForwardGeocode_MissingCenter(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"no center", `{"features":[{"place_name":"Somewhere, India","text":"Somewhere","relevance":0.9}]}`},
		{"short center", `{"features":[{"center":[77.2],"place_name":"Somewhere, India"}]}`},
		{"out of range", `{"features":[{"center":[77.2,128.6],"place_name":"Somewhere, India"}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set(headerContentType, contentTypeJSON)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := testClient(srv.URL).ForwardGeocode(context.Background(), "somewhere")
			var pe *domain.ProviderError
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, domain.SourceForward, pe.Op)
		})
	}
}

func TestClient_ForwardGeocode_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"Not Authorized"}`))
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	c.token = "bad-token"

	_, err := c.ForwardGeocode(context.Background(), "Connaught Place")
	var pe *domain.ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, http.StatusUnauthorized, pe.StatusCode)
	assert.Contains(t, err.Error(), "401")
}

func TestClient_ForwardGeocode_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	c.httpClient.Timeout = 50 * time.Millisecond

	_, err := c.ForwardGeocode(context.Background(), "Connaught Place")
	var pe *domain.ProviderError
	require.ErrorAs(t, err, &pe)
}

func TestNewClient_WithBaseURL(t *testing.T) {
	c := NewClient(testToken, "in", time.Second, slog.Default())
	assert.Equal(t, DefaultBaseURL, c.baseURL)
	assert.Equal(t, "http://proxy.local", c.WithBaseURL("http://proxy.local/").baseURL)
	assert.Equal(t, "http://proxy.local", c.WithBaseURL("").baseURL)
}
