package locator

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/couchcryptid/logistics-locator/internal/domain"
)

// Suggest returns address candidates for partial input, most relevant first.
// Input shorter than the configured minimum returns nothing without touching
// the geocoder; callers are expected to debounce keystrokes themselves.
func (s *Service) Suggest(ctx context.Context, partial string, limit int) ([]domain.Suggestion, error) {
	text := strings.TrimSpace(partial)
	if utf8.RuneCountInString(text) < s.suggestMinLength {
		return []domain.Suggestion{}, nil
	}
	limit = s.clampLimit(limit)

	got, err := s.geocoder.Suggest(ctx, text, limit)
	if err != nil {
		return nil, err
	}

	out := slices.Clone(got)
	slices.SortStableFunc(out, func(a, b domain.Suggestion) int {
		return cmp.Compare(b.Relevance, a.Relevance)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	if out == nil {
		out = []domain.Suggestion{}
	}
	return out, nil
}

func (s *Service) clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return s.suggestLimit
	case limit > s.suggestMaxLimit:
		return s.suggestMaxLimit
	default:
		return limit
	}
}
