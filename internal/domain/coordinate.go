package domain

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Coordinate is a WGS-84 latitude/longitude pair in decimal degrees.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// String renders the coordinate in the "lat, lon" form accepted by ParseCoordinates.
func (c Coordinate) String() string {
	return strconv.FormatFloat(c.Lat, 'f', -1, 64) + ", " + strconv.FormatFloat(c.Lon, 'f', -1, 64)
}

// BBox is an inclusive latitude/longitude rectangle used as a coarse region filter.
type BBox struct {
	MinLat float64 `json:"min_lat"`
	MinLon float64 `json:"min_lon"`
	MaxLat float64 `json:"max_lat"`
	MaxLon float64 `json:"max_lon"`
}

// IndiaBounds approximates the deployment's home country.
var IndiaBounds = BBox{MinLat: 6.0, MinLon: 68.0, MaxLat: 37.0, MaxLon: 97.0}

// Contains reports whether c lies inside the box, edges included.
func (b BBox) Contains(c Coordinate) bool {
	return c.Lat >= b.MinLat && c.Lat <= b.MaxLat &&
		c.Lon >= b.MinLon && c.Lon <= b.MaxLon
}

// String renders the box as "minLat,minLon,maxLat,maxLon", the format read by ParseBBox.
func (b BBox) String() string {
	return fmt.Sprintf("%g,%g,%g,%g", b.MinLat, b.MinLon, b.MaxLat, b.MaxLon)
}

// ParseBBox parses "minLat,minLon,maxLat,maxLon".
func ParseBBox(text string) (BBox, error) {
	parts := strings.Split(text, ",")
	if len(parts) != 4 {
		return BBox{}, &FormatError{Input: text, Reason: "expected minLat,minLon,maxLat,maxLon"}
	}
	var v [4]float64
	for i, p := range parts {
		f, err := parseFinite(p)
		if err != nil {
			return BBox{}, &FormatError{Input: text, Reason: err.Error()}
		}
		v[i] = f
	}
	b := BBox{MinLat: v[0], MinLon: v[1], MaxLat: v[2], MaxLon: v[3]}
	if b.MinLat > b.MaxLat || b.MinLon > b.MaxLon {
		return BBox{}, &FormatError{Input: text, Reason: "minimum exceeds maximum"}
	}
	if err := ValidateRange(Coordinate{Lat: b.MinLat, Lon: b.MinLon}); err != nil {
		return BBox{}, err
	}
	if err := ValidateRange(Coordinate{Lat: b.MaxLat, Lon: b.MaxLon}); err != nil {
		return BBox{}, err
	}
	return b, nil
}

// ParseCoordinates parses "lat,lon" or "lat, lon" (any surrounding whitespace)
// and checks the global range. Region checks are left to ValidateRegion.
func ParseCoordinates(text string) (Coordinate, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return Coordinate{}, &FormatError{Input: text, Reason: "empty input"}
	}

	parts := strings.Split(trimmed, ",")
	if len(parts) != 2 {
		return Coordinate{}, &FormatError{Input: text, Reason: "expected exactly two comma-separated values"}
	}

	lat, err := parseFinite(parts[0])
	if err != nil {
		return Coordinate{}, &FormatError{Input: text, Reason: "latitude " + err.Error()}
	}
	lon, err := parseFinite(parts[1])
	if err != nil {
		return Coordinate{}, &FormatError{Input: text, Reason: "longitude " + err.Error()}
	}

	c := Coordinate{Lat: lat, Lon: lon}
	if err := ValidateRange(c); err != nil {
		return Coordinate{}, err
	}
	return c, nil
}

// ValidateRange checks latitude ∈ [-90, 90] and longitude ∈ [-180, 180].
func ValidateRange(c Coordinate) error {
	if math.IsNaN(c.Lat) || c.Lat < -90 || c.Lat > 90 {
		return &RangeError{Field: "latitude", Value: c.Lat, Min: -90, Max: 90}
	}
	if math.IsNaN(c.Lon) || c.Lon < -180 || c.Lon > 180 {
		return &RangeError{Field: "longitude", Value: c.Lon, Min: -180, Max: 180}
	}
	return nil
}

// ValidateRegion checks that c lies inside region. A nil region accepts everything.
func ValidateRegion(c Coordinate, region *BBox) error {
	if region == nil || region.Contains(c) {
		return nil
	}
	return &RegionError{Coordinate: c, Region: *region}
}

// Validate runs the range check followed by the region check.
func Validate(c Coordinate, region *BBox) error {
	if err := ValidateRange(c); err != nil {
		return err
	}
	return ValidateRegion(c, region)
}

func parseFinite(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("is empty")
	}
	if strings.TrimLeft(s, "+-0123456789.eE") != "" {
		return 0, fmt.Errorf("%q is not a decimal number", s)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%q is not a number", s)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%q is not finite", s)
	}
	return v, nil
}
