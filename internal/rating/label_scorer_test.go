package rating

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var labelCategoryNames = []string{"Purity", "Potency", "Additives", "Safety", "Evidence", "Brand", "Environmental"}

func TestLabelScorer_ScoreDocument(t *testing.T) {
	scorer := NewLabelScorer()

	t.Run("returns all seven categories in order", func(t *testing.T) {
		cats := scorer.ScoreDocument([]byte(`{}`))
		require.Len(t, cats, 7)
		for i, name := range labelCategoryNames {
			assert.Equal(t, name, cats[i].Name)
		}
	})

	t.Run("rewards contacts and exclusion statements", func(t *testing.T) {
		doc := []byte(`{
			"brandName": "Acme Health",
			"contacts": [{"contactDetails": {"webAddress": "https://acme.example"}}],
			"statements": [{"notes": "Does not contain gluten or soy."}]
		}`)
		cats := scorer.ScoreDocument(doc)
		byName := categoryMap(cats)

		assert.Equal(t, 8.5, byName["Purity"].Score)
		assert.Equal(t, 8.0, byName["Brand"].Score)
	})

	t.Run("off-market pulls down purity, safety and brand", func(t *testing.T) {
		onMarket := categoryMap(scorer.ScoreDocument([]byte(`{"offMarket": false}`)))
		offMarket := categoryMap(scorer.ScoreDocument([]byte(`{"offMarket": true}`)))

		assert.Less(t, offMarket["Purity"].Score, onMarket["Purity"].Score)
		assert.Less(t, offMarket["Safety"].Score, onMarket["Safety"].Score)
		assert.Less(t, offMarket["Brand"].Score, onMarket["Brand"].Score)
	})

	t.Run("explicit quantities raise potency", func(t *testing.T) {
		doc := []byte(`{
			"ingredientRows": [
				{"name": "Vitamin C", "quantity": [{"quantity": 500}]},
				{"name": "Zinc", "quantity": [{"quantity": 15}]}
			]
		}`)
		cats := categoryMap(scorer.ScoreDocument(doc))
		assert.Equal(t, 7.4, cats["Potency"].Score)
	})

	t.Run("unknown quantities outweighing known lowers potency", func(t *testing.T) {
		doc := []byte(`{
			"ingredientRows": [
				{"name": "Blend", "quantity": [{"quantity": "varies"}, {"quantity": null}]}
			]
		}`)
		cats := categoryMap(scorer.ScoreDocument(doc))
		assert.Equal(t, 4.5, cats["Potency"].Score)
	})

	t.Run("fillers and proprietary blends lower additives", func(t *testing.T) {
		doc := []byte(`{
			"ingredientRows": [{"name": "Proprietary Blend"}],
			"otheringredients": {"ingredients": [
				{"name": "Magnesium Stearate"},
				{"name": "Microcrystalline Cellulose"},
				{"name": "Silicon Dioxide"},
				{"name": "Dicalcium Phosphate"}
			]}
		}`)
		cats := categoryMap(scorer.ScoreDocument(doc))
		// filler deduction caps at three hits
		assert.Equal(t, 1.5, cats["Additives"].Score)
	})

	t.Run("clinical claims raise evidence", func(t *testing.T) {
		doc := []byte(`{
			"statements": [{"notes": "Clinically studied and patent pending."}],
			"ingredientRows": [{"name": "Vitamin D", "quantity": [{"quantity": 25}]}]
		}`)
		cats := categoryMap(scorer.ScoreDocument(doc))
		assert.Equal(t, 8.1, cats["Evidence"].Score)
	})

	t.Run("malformed document degrades to baseline", func(t *testing.T) {
		for _, doc := range [][]byte{
			[]byte(`not json at all`),
			[]byte(`{"fullName": `),
			[]byte(`[1, 2, 3]`),
		} {
			cats := scorer.ScoreDocument(doc)
			require.Len(t, cats, 7, "doc %q", doc)
			for _, cat := range cats {
				assert.Equal(t, 5.0, cat.Score)
				assert.Equal(t, 0.2, cat.Confidence)
			}
		}
	})

	t.Run("scores stay in range for extreme documents", func(t *testing.T) {
		docs := [][]byte{
			[]byte(`{}`),
			[]byte(`{"offMarket": true, "statements": [{"notes": "not for use by pregnant women; keep out of reach of children"}]}`),
			[]byte(fmt.Sprintf(`{"statements": [{"notes": %q}]}`,
				"does not contain, no artificial, clinically, patent, manufactured in canada, no gmo, dairy free")),
			[]byte(`{"ingredientRows": [{"quantity": [{"quantity": 1},{"quantity": 1},{"quantity": 1},{"quantity": 1},{"quantity": 1},{"quantity": 1},{"quantity": 1}]}]}`),
		}
		for _, doc := range docs {
			for _, cat := range scorer.ScoreDocument(doc) {
				assert.GreaterOrEqual(t, cat.Score, 0.0)
				assert.LessOrEqual(t, cat.Score, ScaleMax)
				assert.Equal(t, ScoreToLabel(cat.Score), cat.Label)
				assert.NotEmpty(t, cat.Justification)
			}
		}
	})
}

func categoryMap(cats []CategoryResult) map[string]CategoryResult {
	m := make(map[string]CategoryResult, len(cats))
	for _, c := range cats {
		m[c.Name] = c
	}
	return m
}
