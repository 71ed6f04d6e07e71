// Package spatial provides an S2 cell index over directory entries for
// radius queries that agree exactly with domain.Nearby.
package spatial

import (
	"cmp"
	"slices"

	"github.com/golang/geo/s1"
	"github.com/golang/geo/s2"

	"github.com/couchcryptid/logistics-locator/internal/domain"
)

// coverMaxCells bounds the covering size per query. Larger coverings fit the
// cap more tightly but cost more binary searches.
const coverMaxCells = 16

type item struct {
	cell  s2.CellID
	coord domain.Coordinate
	entry domain.DirectoryEntry
}

// Index is an immutable set of located entries sorted by leaf cell id.
// It is safe for concurrent use.
type Index struct {
	items []item
}

// New indexes the entries that have a valid coordinate pair; others are
// dropped, as domain.Nearby would skip them.
func New(entries []domain.DirectoryEntry) *Index {
	items := make([]item, 0, len(entries))
	for _, e := range entries {
		c, ok := e.Coordinate()
		if !ok {
			continue
		}
		items = append(items, item{
			cell:  s2.CellIDFromLatLng(s2.LatLngFromDegrees(c.Lat, c.Lon)),
			coord: c,
			entry: e.Clone(),
		})
	}
	slices.SortFunc(items, func(a, b item) int { return cmp.Compare(a.cell, b.cell) })
	return &Index{items: items}
}

// Len returns the number of indexed entries.
func (ix *Index) Len() int { return len(ix.items) }

// Nearby returns the indexed entries within radiusKm of center, nearest
// first with ties broken by id. The result is never nil.
func (ix *Index) Nearby(center domain.Coordinate, radiusKm float64) []domain.Match {
	matches := make([]domain.Match, 0)
	if radiusKm < 0 || len(ix.items) == 0 {
		return matches
	}

	for _, cell := range covering(center, radiusKm) {
		lo, hi := cell.RangeMin(), cell.RangeMax()
		start, _ := slices.BinarySearchFunc(ix.items, lo, func(it item, target s2.CellID) int {
			return cmp.Compare(it.cell, target)
		})
		for i := start; i < len(ix.items) && ix.items[i].cell <= hi; i++ {
			it := ix.items[i]
			// The covering over-approximates the cap; the haversine check is authoritative.
			if d := domain.DistanceKm(center, it.coord); d <= radiusKm {
				matches = append(matches, domain.Match{Entry: it.entry.Clone(), DistanceKm: d})
			}
		}
	}
	domain.SortMatches(matches)
	return matches
}

func covering(center domain.Coordinate, radiusKm float64) s2.CellUnion {
	// Pad the angle slightly so points exactly on the boundary are never lost
	// to rounding between the S2 and haversine computations.
	angle := s1.Angle(radiusKm/domain.EarthRadiusKm) + 1e-9
	capRegion := s2.CapFromCenterAngle(s2.PointFromLatLng(s2.LatLngFromDegrees(center.Lat, center.Lon)), angle)
	rc := &s2.RegionCoverer{MaxLevel: s2.MaxLevel, MaxCells: coverMaxCells}
	return rc.Covering(capRegion)
}
