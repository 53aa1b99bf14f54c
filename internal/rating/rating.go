// Package rating computes heuristic category scores for catalog items from
// heterogeneous source documents. Two independent scorers exist: one for
// catalog label documents and one for nutrition-fact documents. Both use a
// 0-10 scale and share the label thresholds; neither ever returns an error.
// Missing or malformed data degrades to baseline scores with low confidence.
package rating

import "math"

// ScaleMax is the upper bound of the scoring scale
const ScaleMax = 10.0

// CategoryResult is one scored category
type CategoryResult struct {
	Name          string  `json:"name"`
	Score         float64 `json:"score"`
	Label         string  `json:"label"`
	Confidence    float64 `json:"confidence"`
	Justification string  `json:"justification"`
}

// Scorer is the capability shared by the document scorers. Implementations
// are strategies over different document schemas and must not be merged.
type Scorer interface {
	ScoreDocument(doc []byte) []CategoryResult
}

// ScoreToLabel maps a 0-10 score to the descriptive label used in the UI
func ScoreToLabel(score float64) string {
	if score >= 8.5 {
		return "Great"
	}
	if score >= 6.5 {
		return "Good"
	}
	if score >= 4.0 {
		return "Okay"
	}
	return "Bad"
}

// OverallScore is the unweighted mean of category scores rounded to two
// decimal places. An empty category list scores zero.
func OverallScore(categories []CategoryResult) float64 {
	if len(categories) == 0 {
		return 0.0
	}
	total := 0.0
	for _, cat := range categories {
		total += cat.Score
	}
	return round2(total / float64(len(categories)))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func clamp(v float64) float64 {
	return math.Max(0, math.Min(ScaleMax, v))
}
