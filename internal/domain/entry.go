package domain

import (
	"context"
	"slices"
	"strings"
	"time"
)

// Status is the operational state of a directory entry.
type Status string

const (
	StatusActive      Status = "active"
	StatusInactive    Status = "inactive"
	StatusMaintenance Status = "maintenance"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusInactive, StatusMaintenance:
		return true
	default:
		return false
	}
}

// AddressNotProvided is stored when a submission leaves the address blank.
const AddressNotProvided = "Address not provided"

// Categories lists the service types offered by the submission form.
var Categories = []string{
	"Truck Service",
	"Delivery Service",
	"Transport Company",
	"Fleet Management",
	"Logistics Provider",
	"Shipping Service",
	"Cargo Service",
	"Freight Service",
	"Transport Hub",
	"Vehicle Service",
}

// KnownCategory reports whether c matches a form category, ignoring case.
func KnownCategory(c string) bool {
	return slices.ContainsFunc(Categories, func(k string) bool {
		return strings.EqualFold(k, strings.TrimSpace(c))
	})
}

// DirectoryEntry is a logistics provider listed on the map.
// Latitude and Longitude are either both set or both nil.
type DirectoryEntry struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Category  string    `json:"category"`
	Address   string    `json:"address"`
	Latitude  *float64  `json:"latitude,omitempty"`
	Longitude *float64  `json:"longitude,omitempty"`
	Contact   string    `json:"contact,omitempty"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Coordinate returns the entry's location. ok is false when either half of
// the pair is missing or the pair is out of range.
func (e DirectoryEntry) Coordinate() (Coordinate, bool) {
	if e.Latitude == nil || e.Longitude == nil {
		return Coordinate{}, false
	}
	c := Coordinate{Lat: *e.Latitude, Lon: *e.Longitude}
	if ValidateRange(c) != nil {
		return Coordinate{}, false
	}
	return c, true
}

// HasPartialCoordinate reports the invalid state where exactly one of
// latitude/longitude is set.
func (e DirectoryEntry) HasPartialCoordinate() bool {
	return (e.Latitude == nil) != (e.Longitude == nil)
}

// SetCoordinate stores c as the entry's latitude/longitude pair.
func (e *DirectoryEntry) SetCoordinate(c Coordinate) {
	lat, lon := c.Lat, c.Lon
	e.Latitude = &lat
	e.Longitude = &lon
}

// Clone returns a deep copy, so callers never share coordinate pointers.
func (e DirectoryEntry) Clone() DirectoryEntry {
	if e.Latitude != nil {
		lat := *e.Latitude
		e.Latitude = &lat
	}
	if e.Longitude != nil {
		lon := *e.Longitude
		e.Longitude = &lon
	}
	return e
}

// EntryInput is a new-entry submission, shaped like the public form.
type EntryInput struct {
	Name        string `json:"name"`
	Category    string `json:"category"`
	Address     string `json:"address"`
	Coordinates string `json:"coordinates"`
	Contact     string `json:"contact"`
	Status      Status `json:"status"`
}

// NewEntry validates a submission and builds the entry to store. The store
// assigns the ID.
func NewEntry(in EntryInput, region *BBox) (DirectoryEntry, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return DirectoryEntry{}, &ValidationError{Field: "name", Message: "name is required"}
	}
	category := strings.TrimSpace(in.Category)
	if category == "" {
		return DirectoryEntry{}, &ValidationError{Field: "category", Message: "category is required"}
	}
	if !KnownCategory(category) {
		return DirectoryEntry{}, &ValidationError{Field: "category", Message: "unknown category " + category}
	}
	if strings.TrimSpace(in.Coordinates) == "" {
		return DirectoryEntry{}, &ValidationError{Field: "coordinates", Message: "coordinates are required"}
	}
	coord, err := ParseCoordinates(in.Coordinates)
	if err != nil {
		return DirectoryEntry{}, err
	}
	if err := ValidateRegion(coord, region); err != nil {
		return DirectoryEntry{}, err
	}

	status := in.Status
	if status == "" {
		status = StatusActive
	}
	if !status.Valid() {
		return DirectoryEntry{}, &ValidationError{Field: "status", Message: "unknown status " + string(status)}
	}

	address := strings.TrimSpace(in.Address)
	if address == "" {
		address = AddressNotProvided
	}

	now := clock.Now().UTC()
	e := DirectoryEntry{
		Name:      name,
		Category:  category,
		Address:   address,
		Contact:   strings.TrimSpace(in.Contact),
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
	}
	e.SetCoordinate(coord)
	return e, nil
}

// EntryPatch is a partial update; nil fields are left unchanged.
// ClearCoordinate removes the pair and wins over Coordinates.
type EntryPatch struct {
	Name            *string `json:"name,omitempty"`
	Category        *string `json:"category,omitempty"`
	Address         *string `json:"address,omitempty"`
	Coordinates     *string `json:"coordinates,omitempty"`
	ClearCoordinate bool    `json:"clear_coordinates,omitempty"`
	Contact         *string `json:"contact,omitempty"`
	Status          *Status `json:"status,omitempty"`
}

// Apply validates the patch and returns the updated copy of e.
func (p EntryPatch) Apply(e DirectoryEntry, region *BBox) (DirectoryEntry, error) {
	out := e.Clone()
	if p.Name != nil {
		name := strings.TrimSpace(*p.Name)
		if name == "" {
			return e, &ValidationError{Field: "name", Message: "name is required"}
		}
		out.Name = name
	}
	if p.Category != nil {
		category := strings.TrimSpace(*p.Category)
		if !KnownCategory(category) {
			return e, &ValidationError{Field: "category", Message: "unknown category " + category}
		}
		out.Category = category
	}
	if p.Address != nil {
		out.Address = strings.TrimSpace(*p.Address)
		if out.Address == "" {
			out.Address = AddressNotProvided
		}
	}
	if p.Contact != nil {
		out.Contact = strings.TrimSpace(*p.Contact)
	}
	if p.Status != nil {
		if !p.Status.Valid() {
			return e, &ValidationError{Field: "status", Message: "unknown status " + string(*p.Status)}
		}
		out.Status = *p.Status
	}
	switch {
	case p.ClearCoordinate:
		out.Latitude, out.Longitude = nil, nil
	case p.Coordinates != nil:
		coord, err := ParseCoordinates(*p.Coordinates)
		if err != nil {
			return e, err
		}
		if err := ValidateRegion(coord, region); err != nil {
			return e, err
		}
		out.SetCoordinate(coord)
	}
	out.UpdatedAt = clock.Now().UTC()
	return out, nil
}

// DirectoryStore is the document store that owns directory entries.
// Last write wins; no concurrent-write conflict detection is assumed.
type DirectoryStore interface {
	// List returns every entry ordered by name (then id).
	List(ctx context.Context) ([]DirectoryEntry, error)
	// Get returns ErrEntryNotFound for unknown ids.
	Get(ctx context.Context, id string) (DirectoryEntry, error)
	// Create stores e and returns it with its assigned ID.
	Create(ctx context.Context, e DirectoryEntry) (DirectoryEntry, error)
	// Update replaces the stored entry with the same ID.
	Update(ctx context.Context, e DirectoryEntry) error
	Delete(ctx context.Context, id string) error
}

// SubmissionNotifier announces newly created entries to the admins.
type SubmissionNotifier interface {
	NotifySubmission(ctx context.Context, e DirectoryEntry) error
}
