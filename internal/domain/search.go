package domain

import (
	"cmp"
	"math"
	"slices"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// SearchRequest asks for directory entries within RadiusKm of Center,
// optionally narrowed by a free-text Query.
type SearchRequest struct {
	Center   Coordinate `json:"center"`
	RadiusKm float64    `json:"radius_km"`
	Query    string     `json:"query,omitempty"`
}

// Validate checks the center against range and region, and the radius
// against (0, maxRadiusKm]. A maxRadiusKm of zero disables the upper bound.
func (r SearchRequest) Validate(region *BBox, maxRadiusKm float64) error {
	if err := Validate(r.Center, region); err != nil {
		return err
	}
	if math.IsNaN(r.RadiusKm) || r.RadiusKm <= 0 {
		return &ValidationError{Field: "radius_km", Message: "radius must be greater than zero"}
	}
	if maxRadiusKm > 0 && r.RadiusKm > maxRadiusKm {
		return &ValidationError{Field: "radius_km", Message: "radius exceeds maximum"}
	}
	return nil
}

// Match pairs an entry with its distance from the search center.
type Match struct {
	Entry      DirectoryEntry `json:"entry"`
	DistanceKm float64        `json:"distance_km"`
}

// SearchResult is a distance-ordered list of matches.
type SearchResult struct {
	Center   Coordinate `json:"center"`
	RadiusKm float64    `json:"radius_km"`
	Matches  []Match    `json:"matches"`
}

// Nearby returns the entries within radiusKm of center (boundary inclusive),
// nearest first. Entries without a complete, in-range coordinate pair are
// skipped rather than failing the query.
func Nearby(entries []DirectoryEntry, center Coordinate, radiusKm float64) []Match {
	matches := make([]Match, 0)
	for _, e := range entries {
		c, ok := e.Coordinate()
		if !ok {
			continue
		}
		d := DistanceKm(center, c)
		if d <= radiusKm {
			matches = append(matches, Match{Entry: e, DistanceKm: d})
		}
	}
	SortMatches(matches)
	return matches
}

// SortMatches orders matches by ascending distance, then by entry ID.
func SortMatches(matches []Match) {
	slices.SortFunc(matches, func(a, b Match) int {
		if c := cmp.Compare(a.DistanceKm, b.DistanceKm); c != 0 {
			return c
		}
		return strings.Compare(a.Entry.ID, b.Entry.ID)
	})
}

// FilterMatches keeps the matches whose entry satisfies MatchesTerm.
func FilterMatches(matches []Match, term string) []Match {
	if strings.TrimSpace(term) == "" {
		return matches
	}
	folded := foldText(strings.TrimSpace(term))
	out := make([]Match, 0, len(matches))
	for _, m := range matches {
		if entryContains(m.Entry, folded) {
			out = append(out, m)
		}
	}
	return out
}

// TextSearch returns the entries whose name, category or address contains
// term, ignoring case and diacritics. Input order is preserved. A blank term
// matches every entry.
func TextSearch(entries []DirectoryEntry, term string) []DirectoryEntry {
	term = strings.TrimSpace(term)
	if term == "" {
		return slices.Clone(entries)
	}
	folded := foldText(term)
	out := make([]DirectoryEntry, 0)
	for _, e := range entries {
		if entryContains(e, folded) {
			out = append(out, e)
		}
	}
	return out
}

// MatchesTerm reports whether e would be returned by TextSearch for term.
func MatchesTerm(e DirectoryEntry, term string) bool {
	term = strings.TrimSpace(term)
	if term == "" {
		return true
	}
	return entryContains(e, foldText(term))
}

func entryContains(e DirectoryEntry, foldedTerm string) bool {
	for _, field := range []string{e.Name, e.Category, e.Address} {
		if field != "" && strings.Contains(foldText(field), foldedTerm) {
			return true
		}
	}
	return false
}

// foldText strips combining marks and case-folds s so "Café" matches "cafe".
// Transformers and casers carry state, so each call builds its own.
func foldText(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, s)
	if err != nil {
		stripped = s
	}
	return cases.Fold().String(stripped)
}
