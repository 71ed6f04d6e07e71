// Package domain models the logistics directory and the geospatial rules used
// to locate providers on the map.
//
// # Coordinates
//
// Coordinates are WGS-84 decimal degrees. User input arrives as text:
//
//	"28.6139, 77.2090"   → lat 28.6139, lon 77.2090
//	"28.6139,77.2090"    → same; whitespace around either value is ignored
//	"28.6139"            → FormatError (need exactly two values)
//	"200, 10"            → RangeError (latitude outside [-90, 90])
//
// Every coordinate is checked against the global range and, where a region is
// configured, against an inclusive bounding box. The default box approximates
// India (lat 6–37, lon 68–97).
//
// # Distance
//
// Distances use the haversine formula on a sphere of radius 6371 km, within
// ~0.5% of the ellipsoidal distance. Delhi to Mumbai comes out at roughly 1148 km.
//
// # Directory entries
//
// An entry's latitude and longitude are both present or both absent. Entries
// with only one half, or with an out-of-range pair, are silently left out of
// proximity search; they are reported by cmd/auditdir instead.
//
// Status is one of active, inactive or maintenance. Category is one of the
// service types offered by the submission form (see [Categories]).
//
// # Geocoding keys
//
// Cache keys are normalized so equivalent requests share one entry:
//
//	forward:  "fwd:" + trimmed, whitespace-collapsed, lower-cased address
//	reverse:  "rev:" + lat/lon rounded to 4 decimal places (~11 m)
//	suggest:  "sug:" + limit + normalized text
//
// # Errors
//
// [FormatError], [RangeError], [RegionError] and [ValidationError] are input
// problems the user can fix. [ErrNotFound] means the provider answered with no
// match. [ProviderError] means the provider could not be reached or failed, and
// is never reported as an empty result.
package domain
