// Package locator is the facade over coordinate parsing, geocoding, proximity
// search and the directory store that the HTTP layer and commands call.
package locator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/logistics-locator/internal/domain"
	"github.com/couchcryptid/logistics-locator/internal/observability"
)

// DefaultCenter is used when Options leaves the center unset (New Delhi).
var DefaultCenter = domain.Coordinate{Lat: 28.6139, Lon: 77.2090}

// Options configures a Service. Zero values fall back to the documented defaults.
type Options struct {
	Store    domain.DirectoryStore
	Geocoder domain.Geocoder
	// Notifier is optional; nil disables submission notifications.
	Notifier domain.SubmissionNotifier
	// Region bounds accepted coordinates; nil accepts the whole globe.
	Region *domain.BBox

	DefaultCenter   domain.Coordinate
	DefaultRadiusKm float64 // default 50
	MaxRadiusKm     float64 // 0 disables the cap

	SuggestMinLength int // default 3
	SuggestLimit     int // default 5
	SuggestMaxLimit  int // default 10

	// SnapshotTTL > 0 keeps an indexed copy of the directory for that long.
	SnapshotTTL time.Duration
	Clock       clockwork.Clock
}

// ReadinessChecker is implemented by stores that can verify their backend.
type ReadinessChecker interface {
	CheckReadiness(ctx context.Context) error
}

// Service implements the locator operations. It is safe for concurrent use.
type Service struct {
	store    domain.DirectoryStore
	geocoder domain.Geocoder
	notifier domain.SubmissionNotifier
	region   *domain.BBox

	center          domain.Coordinate
	defaultRadiusKm float64
	maxRadiusKm     float64

	suggestMinLength int
	suggestLimit     int
	suggestMaxLimit  int

	directory *directory
	metrics   *observability.Metrics
	logger    *slog.Logger
}

// New creates a Service.
func New(opts Options, metrics *observability.Metrics, logger *slog.Logger) *Service {
	if opts.DefaultCenter == (domain.Coordinate{}) {
		opts.DefaultCenter = DefaultCenter
	}
	if opts.DefaultRadiusKm <= 0 {
		opts.DefaultRadiusKm = 50
	}
	if opts.SuggestMinLength <= 0 {
		opts.SuggestMinLength = 3
	}
	if opts.SuggestMaxLimit <= 0 {
		opts.SuggestMaxLimit = 10
	}
	if opts.SuggestLimit <= 0 {
		opts.SuggestLimit = min(5, opts.SuggestMaxLimit)
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	return &Service{
		store:            opts.Store,
		geocoder:         opts.Geocoder,
		notifier:         opts.Notifier,
		region:           opts.Region,
		center:           opts.DefaultCenter,
		defaultRadiusKm:  opts.DefaultRadiusKm,
		maxRadiusKm:      opts.MaxRadiusKm,
		suggestMinLength: opts.SuggestMinLength,
		suggestLimit:     opts.SuggestLimit,
		suggestMaxLimit:  opts.SuggestMaxLimit,
		directory:        newDirectory(opts.Store, opts.SnapshotTTL, opts.Clock, metrics),
		metrics:          metrics,
		logger:           logger,
	}
}

// DefaultCenter returns the map's initial search center.
func (s *Service) DefaultCenter() domain.Coordinate { return s.center }

// DefaultRadiusKm returns the radius used when a query gives none.
func (s *Service) DefaultRadiusKm() float64 { return s.defaultRadiusKm }

// DistanceKm returns the great-circle distance between a and b.
func (s *Service) DistanceKm(a, b domain.Coordinate) float64 {
	return domain.DistanceKm(a, b)
}

// Categories lists the service types accepted on submissions.
func (s *Service) Categories() []string {
	return slices.Clone(domain.Categories)
}

// ResolveAddress forward geocodes free text and checks the match against the region.
func (s *Service) ResolveAddress(ctx context.Context, text string) (domain.GeocodingResult, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return domain.GeocodingResult{}, &domain.FormatError{Input: text, Reason: "empty address"}
	}
	res, err := s.geocoder.ForwardGeocode(ctx, text)
	if err != nil {
		return domain.GeocodingResult{}, err
	}
	if err := domain.Validate(res.Coordinate, s.region); err != nil {
		return domain.GeocodingResult{}, err
	}
	return res, nil
}

// ResolveCoordinates parses and validates coordinate text, then reverse
// geocodes it for a display address. When the lookup fails the coordinate is
// still returned, labelled with its own "lat, lon" text.
func (s *Service) ResolveCoordinates(ctx context.Context, text string) (domain.GeocodingResult, error) {
	c, err := domain.ParseCoordinates(text)
	if err != nil {
		return domain.GeocodingResult{}, err
	}
	if err := domain.ValidateRegion(c, s.region); err != nil {
		return domain.GeocodingResult{}, err
	}

	res, err := s.geocoder.ReverseGeocode(ctx, c.Lat, c.Lon)
	if err != nil {
		s.logger.Warn("reverse geocoding failed, using raw coordinates", "coordinates", c.String(), "error", err)
		return domain.GeocodingResult{
			Coordinate:       c,
			FormattedAddress: c.String(),
			Source:           domain.SourceInput,
		}, nil
	}
	res.Coordinate = c
	return res, nil
}

// Resolve accepts either a coordinate pair or an address. Text shaped like
// two comma-separated numbers is always treated as coordinates, so "200, 10"
// fails with a RangeError instead of being sent to the geocoder.
func (s *Service) Resolve(ctx context.Context, text string) (domain.GeocodingResult, error) {
	if looksLikeCoordinates(text) {
		return s.ResolveCoordinates(ctx, text)
	}
	return s.ResolveAddress(ctx, text)
}

func looksLikeCoordinates(text string) bool {
	_, err := domain.ParseCoordinates(text)
	var fe *domain.FormatError
	return !errors.As(err, &fe)
}

// Nearby returns directory entries within req.RadiusKm of req.Center, nearest
// first, optionally narrowed by req.Query. The radius must be positive; callers
// fill in DefaultRadiusKm when the user gave none.
func (s *Service) Nearby(ctx context.Context, req domain.SearchRequest) (domain.SearchResult, error) {
	if err := req.Validate(s.region, s.maxRadiusKm); err != nil {
		return domain.SearchResult{}, err
	}

	snap, err := s.directory.load(ctx)
	if err != nil {
		return domain.SearchResult{}, err
	}

	var matches []domain.Match
	if snap.index != nil {
		s.metrics.NearbyQueries.WithLabelValues("index").Inc()
		matches = snap.index.Nearby(req.Center, req.RadiusKm)
	} else {
		s.metrics.NearbyQueries.WithLabelValues("scan").Inc()
		matches = domain.Nearby(snap.entries, req.Center, req.RadiusKm)
	}
	matches = domain.FilterMatches(matches, req.Query)
	s.metrics.NearbyResults.Observe(float64(len(matches)))

	return domain.SearchResult{Center: req.Center, RadiusKm: req.RadiusKm, Matches: matches}, nil
}

// NearbyLocation resolves location (address or coordinates; empty means the
// default center) and runs Nearby around it.
func (s *Service) NearbyLocation(ctx context.Context, location string, radiusKm float64, query string) (domain.SearchResult, error) {
	center := s.center
	if strings.TrimSpace(location) != "" {
		res, err := s.Resolve(ctx, location)
		if err != nil {
			return domain.SearchResult{}, err
		}
		center = res.Coordinate
	}
	return s.Nearby(ctx, domain.SearchRequest{Center: center, RadiusKm: radiusKm, Query: query})
}

// ListEntries returns every directory entry ordered by name.
func (s *Service) ListEntries(ctx context.Context) ([]domain.DirectoryEntry, error) {
	entries, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list directory: %w", err)
	}
	return entries, nil
}

// SearchEntries runs a text search over name, category and address.
func (s *Service) SearchEntries(ctx context.Context, term string) ([]domain.DirectoryEntry, error) {
	entries, err := s.ListEntries(ctx)
	if err != nil {
		return nil, err
	}
	return domain.TextSearch(entries, term), nil
}

func (s *Service) GetEntry(ctx context.Context, id string) (domain.DirectoryEntry, error) {
	return s.store.Get(ctx, id)
}

// CreateEntry validates a submission, stores it and notifies admins. A failed
// notification is logged and does not fail the submission.
func (s *Service) CreateEntry(ctx context.Context, in domain.EntryInput) (domain.DirectoryEntry, error) {
	e, err := domain.NewEntry(in, s.region)
	if err != nil {
		return domain.DirectoryEntry{}, err
	}
	created, err := s.store.Create(ctx, e)
	if err != nil {
		return domain.DirectoryEntry{}, fmt.Errorf("create entry: %w", err)
	}
	s.directory.invalidate()
	s.logger.Info("directory entry created", "entry_id", created.ID, "name", created.Name)

	if s.notifier != nil {
		if err := s.notifier.NotifySubmission(ctx, created); err != nil {
			s.logger.Warn("submission notification failed", "entry_id", created.ID, "error", err)
		}
	}
	return created, nil
}

// UpdateEntry applies patch to the stored entry. Last write wins.
func (s *Service) UpdateEntry(ctx context.Context, id string, patch domain.EntryPatch) (domain.DirectoryEntry, error) {
	current, err := s.store.Get(ctx, id)
	if err != nil {
		return domain.DirectoryEntry{}, err
	}
	updated, err := patch.Apply(current, s.region)
	if err != nil {
		return domain.DirectoryEntry{}, err
	}
	if err := s.store.Update(ctx, updated); err != nil {
		return domain.DirectoryEntry{}, err
	}
	s.directory.invalidate()
	return updated, nil
}

func (s *Service) DeleteEntry(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.directory.invalidate()
	return nil
}

// CheckReadiness reports whether the directory store is reachable.
func (s *Service) CheckReadiness(ctx context.Context) error {
	if rc, ok := s.store.(ReadinessChecker); ok {
		return rc.CheckReadiness(ctx)
	}
	return nil
}
