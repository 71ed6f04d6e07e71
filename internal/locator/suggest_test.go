package locator

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/logistics-locator/internal/domain"
)

func connaughtSuggestions() []domain.Suggestion {
	return []domain.Suggestion{
		{DisplayName: "Connaught Place Metro Station", Relevance: 0.41},
		{DisplayName: "Connaught Place, New Delhi", Relevance: 0.62},
		{DisplayName: "Connaught Lane, Delhi Cantonment", Relevance: 0.2},
		{DisplayName: "Connaught Circus, New Delhi", Relevance: 0.55},
	}
}

func TestSuggest_ShortInputSkipsProvider(t *testing.T) {
	f := newFixture(t, nil)
	f.geo.suggestions = connaughtSuggestions()

	for _, in := range []string{"", "a", " ab ", "क"} {
		got, err := f.svc.Suggest(context.Background(), in, 5)
		require.NoError(t, err)
		assert.NotNil(t, got)
		assert.Empty(t, got)
	}
	assert.Equal(t, int32(0), f.geo.suggestCalls.Load())
}

func TestSuggest_OrderedByRelevance(t *testing.T) {
	f := newFixture(t, nil)
	f.geo.suggestions = connaughtSuggestions()

	got, err := f.svc.Suggest(context.Background(), "Connaught Place", 5)
	require.NoError(t, err)
	require.Len(t, got, 4)
	for i := 1; i < len(got); i++ {
		assert.GreaterOrEqual(t, got[i-1].Relevance, got[i].Relevance)
	}
	assert.Equal(t, "Connaught Place, New Delhi", got[0].DisplayName)
}

func TestSuggest_LimitClamping(t *testing.T) {
	f := newFixture(t, func(o *Options) { o.SuggestMaxLimit = 3 })
	f.geo.suggestions = connaughtSuggestions()

	got, err := f.svc.Suggest(context.Background(), "Connaught", 2)
	require.NoError(t, err)
	assert.Len(t, got, 2)

	got, err = f.svc.Suggest(context.Background(), "Connaught", 50)
	require.NoError(t, err)
	assert.Len(t, got, 3, "capped at max")

	got, err = f.svc.Suggest(context.Background(), "Connaught", 0)
	require.NoError(t, err)
	assert.Len(t, got, 3, "default limit bounded by max")
}

func TestSuggest_ProviderFailureSurfaces(t *testing.T) {
	f := newFixture(t, nil)
	f.geo.suggestErr = &domain.ProviderError{Provider: "nominatim", Op: "search", Err: errors.New("timeout")}

	got, err := f.svc.Suggest(context.Background(), "Connaught", 5)
	assert.Nil(t, got)
	var pe *domain.ProviderError
	assert.ErrorAs(t, err, &pe)
}

func TestSuggest_DoesNotReorderProviderSlice(t *testing.T) {
	f := newFixture(t, nil)
	f.geo.suggestions = connaughtSuggestions()

	_, err := f.svc.Suggest(context.Background(), "Connaught", 5)
	require.NoError(t, err)
	assert.Equal(t, "Connaught Place Metro Station", f.geo.suggestions[0].DisplayName)
}
