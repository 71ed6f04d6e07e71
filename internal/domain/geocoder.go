package domain

import (
	"context"
	"fmt"
	"maps"
	"math"
	"strings"
)

// Geocoding result sources.
const (
	SourceForward = "forward"
	SourceReverse = "reverse"
	SourceInput   = "input"
)

// GeocodingResult is a resolved location returned by a geocoding provider.
type GeocodingResult struct {
	Coordinate
	FormattedAddress string            `json:"address"`
	PlaceName        string            `json:"place_name,omitempty"`
	Locality         string            `json:"locality,omitempty"`
	Components       map[string]string `json:"components,omitempty"`
	Confidence       float64           `json:"confidence"` // provider importance/relevance, 0.0–1.0
	Source           string            `json:"source"`
}

// Clone returns a copy that shares no map storage with r.
func (r GeocodingResult) Clone() GeocodingResult {
	r.Components = maps.Clone(r.Components)
	return r
}

// Suggestion is one autocomplete candidate.
type Suggestion struct {
	DisplayName string     `json:"display_name"`
	Coordinate  Coordinate `json:"coordinate"`
	Relevance   float64    `json:"relevance"`
}

// Geocoder resolves addresses and coordinates through an external provider.
// Implementations return ErrNotFound when the provider has no match and a
// *ProviderError for transport or provider failures.
type Geocoder interface {
	// ForwardGeocode converts free-text address to the provider's top match.
	ForwardGeocode(ctx context.Context, address string) (GeocodingResult, error)

	// ReverseGeocode converts coordinates to a display address.
	ReverseGeocode(ctx context.Context, lat, lon float64) (GeocodingResult, error)

	// Suggest returns up to limit candidates for partial address text.
	Suggest(ctx context.Context, text string, limit int) ([]Suggestion, error)
}

// GeocodeQuery is a normalized cache key for a geocoding request.
type GeocodeQuery string

// NormalizeAddress trims, collapses internal whitespace and lower-cases s.
func NormalizeAddress(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// ForwardQuery keys a forward lookup by normalized address text.
func ForwardQuery(address string) GeocodeQuery {
	return GeocodeQuery("fwd:" + NormalizeAddress(address))
}

// ReverseQuery keys a reverse lookup by the coordinate rounded to 4 decimal
// places (~11 m), so floating-point noise does not fragment the cache.
func ReverseQuery(lat, lon float64) GeocodeQuery {
	return GeocodeQuery(fmt.Sprintf("rev:%.4f,%.4f", round4(lat), round4(lon)))
}

// round4 rounds to 4 decimal places and folds -0 into 0.
func round4(v float64) float64 {
	r := math.Round(v*1e4) / 1e4
	if r == 0 {
		return 0
	}
	return r
}

// SuggestQuery keys an autocomplete lookup.
func SuggestQuery(text string, limit int) GeocodeQuery {
	return GeocodeQuery(fmt.Sprintf("sug:%d:%s", limit, NormalizeAddress(text)))
}
