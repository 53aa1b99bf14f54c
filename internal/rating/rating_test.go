package rating

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScoreToLabel(t *testing.T) {
	tests := []struct {
		score    float64
		expected string
	}{
		{10.0, "Great"},
		{8.5, "Great"},
		{8.49, "Good"},
		{6.5, "Good"},
		{6.49, "Okay"},
		{4.0, "Okay"},
		{3.99, "Bad"},
		{0.0, "Bad"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, ScoreToLabel(tt.score), "score %.2f", tt.score)
	}
}

func TestOverallScore(t *testing.T) {
	t.Run("mean of category scores", func(t *testing.T) {
		cats := []CategoryResult{
			{Name: "Purity", Score: 8.0},
			{Name: "Potency", Score: 6.0},
			{Name: "Safety", Score: 7.0},
		}
		assert.Equal(t, 7.0, OverallScore(cats))
	})

	t.Run("rounds to two decimals", func(t *testing.T) {
		cats := []CategoryResult{
			{Score: 7.0},
			{Score: 7.0},
			{Score: 6.0},
		}
		assert.Equal(t, 6.67, OverallScore(cats))
	})

	t.Run("empty scores zero", func(t *testing.T) {
		assert.Equal(t, 0.0, OverallScore(nil))
		assert.Equal(t, 0.0, OverallScore([]CategoryResult{}))
	})

	t.Run("order does not matter", func(t *testing.T) {
		a := []CategoryResult{{Score: 9.1}, {Score: 2.3}, {Score: 5.5}}
		b := []CategoryResult{{Score: 5.5}, {Score: 9.1}, {Score: 2.3}}
		assert.Equal(t, OverallScore(a), OverallScore(b))
	})
}
