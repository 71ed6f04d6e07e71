package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/couchcryptid/logistics-locator/internal/domain"
)

const maxBodyBytes = 64 << 10

type defaultsResponse struct {
	Center   domain.Coordinate `json:"center"`
	RadiusKm float64           `json:"radius_km"`
}

type distanceResponse struct {
	From       domain.Coordinate `json:"from"`
	To         domain.Coordinate `json:"to"`
	DistanceKm float64           `json:"distance_km"`
}

type entriesResponse struct {
	Entries []domain.DirectoryEntry `json:"entries"`
	Count   int                     `json:"count"`
}

func (s *Server) handleDefaults(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, defaultsResponse{Center: s.svc.DefaultCenter(), RadiusKm: s.svc.DefaultRadiusKm()})
}

func (s *Server) handleCategories(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"categories": s.svc.Categories()})
}

func (s *Server) handleForward(w http.ResponseWriter, r *http.Request) {
	res, err := s.svc.ResolveAddress(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleReverse(w http.ResponseWriter, r *http.Request) {
	res, err := s.svc.ResolveCoordinates(r.Context(), r.URL.Query().Get("coords"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleSuggest(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, err := intParam(q.Get("limit"), "limit")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	suggestions, err := s.svc.Suggest(r.Context(), q.Get("q"), limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]domain.Suggestion{"suggestions": suggestions})
}

func (s *Server) handleDistance(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from, err := domain.ParseCoordinates(q.Get("from"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	to, err := domain.ParseCoordinates(q.Get("to"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, distanceResponse{From: from, To: to, DistanceKm: s.svc.DistanceKm(from, to)})
}

// handleNearby searches around ?center= (coordinates), ?address= (geocoded),
// or the default center when neither is given.
func (s *Server) handleNearby(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	radius := s.svc.DefaultRadiusKm()
	if q.Has("radius_km") {
		var err error
		if radius, err = floatParam(q.Get("radius_km"), "radius_km"); err != nil {
			s.writeError(w, r, err)
			return
		}
	}

	var (
		res domain.SearchResult
		err error
	)
	if center := q.Get("center"); strings.TrimSpace(center) != "" {
		c, perr := domain.ParseCoordinates(center)
		if perr != nil {
			s.writeError(w, r, perr)
			return
		}
		res, err = s.svc.Nearby(r.Context(), domain.SearchRequest{Center: c, RadiusKm: radius, Query: q.Get("q")})
	} else {
		res, err = s.svc.NearbyLocation(r.Context(), q.Get("address"), radius, q.Get("q"))
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleListEntries(w http.ResponseWriter, r *http.Request) {
	var (
		entries []domain.DirectoryEntry
		err     error
	)
	if term := r.URL.Query().Get("q"); term != "" {
		entries, err = s.svc.SearchEntries(r.Context(), term)
	} else {
		entries, err = s.svc.ListEntries(r.Context())
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if entries == nil {
		entries = []domain.DirectoryEntry{}
	}
	writeJSON(w, http.StatusOK, entriesResponse{Entries: entries, Count: len(entries)})
}

func (s *Server) handleCreateEntry(w http.ResponseWriter, r *http.Request) {
	var in domain.EntryInput
	if err := decodeBody(w, r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	created, err := s.svc.CreateEntry(r.Context(), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Location", "/api/v1/entries/"+created.ID)
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleGetEntry(w http.ResponseWriter, r *http.Request) {
	e, err := s.svc.GetEntry(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) handleUpdateEntry(w http.ResponseWriter, r *http.Request) {
	var patch domain.EntryPatch
	if err := decodeBody(w, r, &patch); err != nil {
		s.writeError(w, r, err)
		return
	}
	updated, err := s.svc.UpdateEntry(r.Context(), r.PathValue("id"), patch)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteEntry(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DeleteEntry(r.Context(), r.PathValue("id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return &domain.ValidationError{Field: "body", Message: "invalid JSON: " + err.Error()}
	}
	return nil
}

// intParam parses an optional integer query parameter; empty means zero.
func intParam(raw, name string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &domain.ValidationError{Field: name, Message: "must be an integer"}
	}
	return n, nil
}

func floatParam(raw, name string) (float64, error) {
	if raw == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, &domain.ValidationError{Field: name, Message: "must be a number"}
	}
	return f, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // client may have gone away
}

// errorResponse is the body of every non-2xx API response.
type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, body := classify(err)
	switch {
	case status >= http.StatusInternalServerError:
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	case status == http.StatusBadGateway:
		s.logger.Warn("geocoding provider failed", "path", r.URL.Path, "error", err)
	}
	writeJSON(w, status, body)
}

func classify(err error) (int, errorResponse) {
	var (
		fe *domain.FormatError
		re *domain.RangeError
		ge *domain.RegionError
		ve *domain.ValidationError
		pe *domain.ProviderError
	)
	switch {
	case errors.As(err, &fe):
		return http.StatusBadRequest, errorResponse{Error: "invalid_format", Message: err.Error()}
	case errors.As(err, &re):
		return http.StatusBadRequest, errorResponse{Error: "out_of_range", Message: err.Error(), Field: re.Field}
	case errors.As(err, &ge):
		return http.StatusBadRequest, errorResponse{Error: "out_of_region", Message: err.Error()}
	case errors.As(err, &ve):
		return http.StatusBadRequest, errorResponse{Error: "invalid_request", Message: ve.Message, Field: ve.Field}
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, errorResponse{Error: "location_not_found", Message: "no location matched the query"}
	case errors.Is(err, domain.ErrEntryNotFound):
		return http.StatusNotFound, errorResponse{Error: "entry_not_found", Message: err.Error()}
	case errors.As(err, &pe):
		return http.StatusBadGateway, errorResponse{Error: "provider_unavailable", Message: "geocoding service unavailable, please try again"}
	default:
		return http.StatusInternalServerError, errorResponse{Error: "internal_error", Message: "internal server error"}
	}
}
