package domain

import (
	"context"
	"errors"
	"log/slog"
	"strings"
)

// Outcome labels the result of geocoding a single directory entry.
type Outcome string

const (
	OutcomeGeocoded     Outcome = "geocoded"
	OutcomeSkipped      Outcome = "skipped"
	OutcomeNotFound     Outcome = "not_found"
	OutcomeOutOfRegion  Outcome = "out_of_region"
	OutcomeFailed       Outcome = "failed"
	OutcomeInvalidInput Outcome = "invalid"
)

// NeedsGeocoding reports whether e has a usable address but no coordinate pair.
func NeedsGeocoding(e DirectoryEntry) bool {
	if _, ok := e.Coordinate(); ok {
		return false
	}
	addr := strings.TrimSpace(e.Address)
	return addr != "" && addr != AddressNotProvided
}

// EnrichWithGeocoding fills in a missing coordinate pair by forward geocoding
// the entry's address. Entries that already have coordinates, or have no
// address, come back unchanged with OutcomeSkipped. A provider failure is
// returned as the error alongside OutcomeFailed so the caller can decide
// whether to retry; other outcomes never carry an error.
func EnrichWithGeocoding(ctx context.Context, e DirectoryEntry, geocoder Geocoder, region *BBox, logger *slog.Logger) (DirectoryEntry, Outcome, error) {
	if geocoder == nil || !NeedsGeocoding(e) {
		return e, OutcomeSkipped, nil
	}

	result, err := geocoder.ForwardGeocode(ctx, e.Address)
	switch {
	case errors.Is(err, ErrNotFound):
		logger.Info("address not found", "entry_id", e.ID, "address", e.Address)
		return e, OutcomeNotFound, nil
	case IsInputError(err):
		logger.Warn("address rejected", "entry_id", e.ID, "address", e.Address, "error", err)
		return e, OutcomeInvalidInput, nil
	case err != nil:
		logger.Warn("forward geocoding failed",
			"entry_id", e.ID,
			"address", e.Address,
			"error", err,
		)
		return e, OutcomeFailed, err
	}

	if err := Validate(result.Coordinate, region); err != nil {
		logger.Warn("geocoded location outside region",
			"entry_id", e.ID,
			"lat", result.Lat,
			"lon", result.Lon,
			"error", err,
		)
		return e, OutcomeOutOfRegion, nil
	}

	out := e.Clone()
	out.SetCoordinate(result.Coordinate)
	out.UpdatedAt = clock.Now().UTC()
	return out, OutcomeGeocoded, nil
}
