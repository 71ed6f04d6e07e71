package nominatim

import (
	"context"
	"errors"
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
	testUserAgent     = "logistics-locator-test/1.0"
	contentTypeJSON   = "application/json"
	headerContentType = "Content-Type"
)

func testClient(baseURL string) *Client {
	return &Client{
		baseURL:      baseURL,
		userAgent:    testUserAgent,
		countryCodes: "in",
		httpClient:   &http.Client{Timeout: 5 * time.Second},
		logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func serveJSON(t *testing.T, body string, check func(r *http.Request)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			check(r)
		}
		w.Header().Set(headerContentType, contentTypeJSON)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

const connaughtSearch = `[{
	"place_id": 123,
	"lat": "28.6314022",
	"lon": "77.2193791",
	"display_name": "Connaught Place, Chanakya Puri Tehsil, New Delhi, Delhi, 110001, India",
	"name": "Connaught Place",
	"importance": 0.6216,
	"address": {
		"suburb": "Connaught Place",
		"city": "New Delhi",
		"state": "Delhi",
		"postcode": "110001",
		"country": "India",
		"country_code": "in"
	}
}]`

func TestClient_ForwardGeocode_Success(t *testing.T) {
	srv := serveJSON(t, connaughtSearch, func(r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "Connaught Place, New Delhi", q.Get("q"))
		assert.Equal(t, "json", q.Get("format"))
		assert.Equal(t, "1", q.Get("limit"))
		assert.Equal(t, "in", q.Get("countrycodes"))
		assert.Equal(t, "1", q.Get("addressdetails"))
		assert.Equal(t, testUserAgent, r.Header.Get("User-Agent"))
	})

	result, err := testClient(srv.URL).ForwardGeocode(context.Background(), "Connaught Place, New Delhi")
	require.NoError(t, err)

	assert.Equal(t, 28.6314022, result.Lat)
	assert.Equal(t, 77.2193791, result.Lon)
	assert.Equal(t, "Connaught Place, Chanakya Puri Tehsil, New Delhi, Delhi, 110001, India", result.FormattedAddress)
	assert.Equal(t, "Connaught Place", result.PlaceName)
	assert.Equal(t, "New Delhi", result.Locality)
	assert.Equal(t, "110001", result.Components["postcode"])
	assert.InDelta(t, 0.6216, result.Confidence, 1e-9)
	assert.Equal(t, domain.SourceForward, result.Source)
}

func TestClient_ForwardGeocode_NoCountryFilter(t *testing.T) {
	srv := serveJSON(t, connaughtSearch, func(r *http.Request) {
		assert.False(t, r.URL.Query().Has("countrycodes"))
	})
	c := testClient(srv.URL)
	c.countryCodes = ""

	_, err := c.ForwardGeocode(context.Background(), "Connaught Place")
	require.NoError(t, err)
}

func TestClient_ForwardGeocode_NoResults(t *testing.T) {
	srv := serveJSON(t, `[]`, nil)

	_, err := testClient(srv.URL).ForwardGeocode(context.Background(), "XYZNONEXISTENT99")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestClient_ForwardGeocode_BadCoordinates(t *testing.T) {
	srv := serveJSON(t, `[{"lat":"north","lon":"77.2","display_name":"X"}]`, nil)

	_, err := testClient(srv.URL).ForwardGeocode(context.Background(), "X")
	var pe *domain.ProviderError
	assert.ErrorAs(t, err, &pe)
}

func TestClient_ReverseGeocode_Success(t *testing.T) {
	body := `{
		"lat": "28.6315",
		"lon": "77.2167",
		"display_name": "Block A, Connaught Place, New Delhi, Delhi, 110001, India",
		"importance": 0.2,
		"address": {"road": "Block A", "suburb": "Connaught Place", "city": "New Delhi", "state": "Delhi"}
	}`
	srv := serveJSON(t, body, func(r *http.Request) {
		assert.Equal(t, "/reverse", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "28.6315", q.Get("lat"))
		assert.Equal(t, "77.2167", q.Get("lon"))
		assert.Equal(t, "18", q.Get("zoom"))
		assert.Equal(t, "1", q.Get("addressdetails"))
		assert.Equal(t, testUserAgent, r.Header.Get("User-Agent"))
	})

	result, err := testClient(srv.URL).ReverseGeocode(context.Background(), 28.6315, 77.2167)
	require.NoError(t, err)

	assert.Contains(t, result.FormattedAddress, "Connaught Place")
	assert.Equal(t, "Block A", result.PlaceName)
	assert.Equal(t, "New Delhi", result.Locality)
	assert.Equal(t, domain.SourceReverse, result.Source)
	assert.Equal(t, domain.Coordinate{Lat: 28.6315, Lon: 77.2167}, result.Coordinate)
}

func TestClient_ReverseGeocode_UnableToGeocode(t *testing.T) {
	srv := serveJSON(t, `{"error":"Unable to geocode"}`, nil)

	_, err := testClient(srv.URL).ReverseGeocode(context.Background(), 10.0, 65.0)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestClient_ReverseGeocode_MissingCoordinatesKeepsQueryPoint(t *testing.T) {
	srv := serveJSON(t, `{"display_name":"Somewhere, India","address":{"state_district":"Pune"}}`, nil)

	result, err := testClient(srv.URL).ReverseGeocode(context.Background(), 18.52, 73.85)
	require.NoError(t, err)
	assert.Equal(t, domain.Coordinate{Lat: 18.52, Lon: 73.85}, result.Coordinate)
	assert.Equal(t, "Pune", result.Locality)
}

func TestClient_Suggest(t *testing.T) {
	body := `[
		{"lat":"28.6314","lon":"77.2193","display_name":"Connaught Place, New Delhi","importance":0.62},
		{"lat":"bad","lon":"77.2","display_name":"Broken"},
		{"lat":"28.6328","lon":"77.2197","display_name":"Rajiv Chowk Metro, New Delhi","importance":1.7}
	]`
	srv := serveJSON(t, body, func(r *http.Request) {
		assert.Equal(t, "5", r.URL.Query().Get("limit"))
		assert.Equal(t, "connaught", r.URL.Query().Get("q"))
	})

	got, err := testClient(srv.URL).Suggest(context.Background(), "connaught", 5)
	require.NoError(t, err)
	require.Len(t, got, 2, "unparseable candidate skipped")
	assert.Equal(t, "Connaught Place, New Delhi", got[0].DisplayName)
	assert.InDelta(t, 0.62, got[0].Relevance, 1e-9)
	assert.InDelta(t, 1.0, got[1].Relevance, 1e-9, "importance clamped to 1")
}

func TestClient_Suggest_Empty(t *testing.T) {
	srv := serveJSON(t, `[]`, nil)

	got, err := testClient(srv.URL).Suggest(context.Background(), "zzzz", 5)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestClient_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).ForwardGeocode(context.Background(), "Connaught Place")
	var pe *domain.ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, http.StatusTooManyRequests, pe.StatusCode)
	assert.Equal(t, "search", pe.Op)
	assert.Contains(t, err.Error(), "rate limited")
}

func TestClient_MalformedJSON(t *testing.T) {
	srv := serveJSON(t, `{not json`, nil)

	_, err := testClient(srv.URL).ReverseGeocode(context.Background(), 28.6, 77.2)
	var pe *domain.ProviderError
	assert.ErrorAs(t, err, &pe)
}

func TestClient_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	c.httpClient.Timeout = 20 * time.Millisecond

	_, err := c.ForwardGeocode(context.Background(), "Connaught Place")
	var pe *domain.ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Zero(t, pe.StatusCode)
}

func TestClient_ContextCanceled(t *testing.T) {
	srv := serveJSON(t, connaughtSearch, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := testClient(srv.URL).ForwardGeocode(ctx, "Connaught Place")
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestNewClient_Defaults(t *testing.T) {
	c := NewClient("", "ua", "in", time.Second, slog.Default())
	assert.Equal(t, DefaultBaseURL, c.baseURL)

	c = NewClient("http://localhost:8088/", "ua", "", time.Second, slog.Default())
	assert.Equal(t, "http://localhost:8088", c.baseURL)
}
