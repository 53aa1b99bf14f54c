package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"supplement-scout/internal/common/errors"
	"supplement-scout/internal/store"
)

type fakeEssentialIndex struct {
	query   string
	limit   int
	minSim  float64
	results []store.Ingredient
	err     error
}

func (f *fakeEssentialIndex) SearchEssentials(ctx context.Context, query string, limit int, minSimilarity float64) ([]store.Ingredient, error) {
	f.query = query
	f.limit = limit
	f.minSim = minSimilarity
	return f.results, f.err
}

func TestApp_SearchEssentials(t *testing.T) {
	t.Run("delegates to the catalog index", func(t *testing.T) {
		idx := &fakeEssentialIndex{results: []store.Ingredient{
			{ID: 3, Name: "vitamin c", HumanName: "Vitamin C"},
		}}
		app := &App{Essentials: idx}

		got, err := app.SearchEssentials(context.Background(), "vitamn c", 5)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "vitamin c", got[0].Name)

		assert.Equal(t, "vitamn c", idx.query)
		assert.Equal(t, 5, idx.limit)
		assert.Zero(t, idx.minSim) // index applies its own similarity floor
	})

	t.Run("blank query is rejected before hitting the index", func(t *testing.T) {
		idx := &fakeEssentialIndex{}
		app := &App{Essentials: idx}

		for _, q := range []string{"", "   "} {
			_, err := app.SearchEssentials(context.Background(), q, 5)
			require.Error(t, err)
			assert.True(t, errors.IsType(err, errors.ErrTypeValidation))
		}
		assert.Empty(t, idx.query)
	})
}

func TestApp_SubmitLookupValidation(t *testing.T) {
	app := &App{}

	t.Run("session id is required", func(t *testing.T) {
		err := app.SubmitLookup(context.Background(), "", Query{Barcode: "042100005264"})
		require.Error(t, err)
		assert.True(t, errors.IsType(err, errors.ErrTypeValidation))
	})

	t.Run("empty query is rejected", func(t *testing.T) {
		err := app.SubmitLookup(context.Background(), "session-1", Query{})
		require.Error(t, err)
		assert.True(t, errors.IsType(err, errors.ErrTypeValidation))
	})

	t.Run("malformed barcode is rejected before any job is queued", func(t *testing.T) {
		err := app.SubmitLookup(context.Background(), "session-1", Query{Barcode: "12345"})
		require.Error(t, err)
	})
}
