package rating

import (
	"encoding/json"
	"fmt"
	"strings"
)

// NutritionScorer scores nutrition-fact documents across eight categories.
// It is an independent strategy from LabelScorer: the document schema is
// different and each category carries its own confidence.
type NutritionScorer struct{}

// NewNutritionScorer creates a nutrition document scorer
func NewNutritionScorer() *NutritionScorer {
	return &NutritionScorer{}
}

// nutritionCategories is the fixed category order for this scorer
var nutritionCategories = []string{
	"purity",
	"potency",
	"additives",
	"safety",
	"evidence",
	"brand",
	"environmental",
	"value",
}

// recognizedBrands is the allow-list granting a brand-score bonus
var recognizedBrands = map[string]bool{
	"optimum nutrition": true,
	"now foods":         true,
	"thorne":            true,
	"gnc":               true,
}

// nutritionDocument is the subset of a nutrition-fact document the
// heuristics read
type nutritionDocument struct {
	Product struct {
		ProductName     string             `json:"product_name"`
		GenericName     string             `json:"generic_name"`
		Categories      string             `json:"categories"`
		IngredientsText string             `json:"ingredients_text"`
		Labels          string             `json:"labels"`
		LabelsTags      []string           `json:"labels_tags"`
		AdditivesTags   []string           `json:"additives_tags"`
		Brands          string             `json:"brands"`
		Nutriments      map[string]float64 `json:"nutriments"`
	} `json:"product"`
}

// ScoreDocument computes the eight category scores for a nutrition document.
// Categories that find no usable signal keep a low confidence and explain why.
func (s *NutritionScorer) ScoreDocument(doc []byte) []CategoryResult {
	var parsed nutritionDocument
	// Nutriment maps occasionally carry strings; a partial parse still
	// leaves the text fields usable
	_ = json.Unmarshal(doc, &parsed)
	product := parsed.Product

	textParts := []string{
		product.ProductName,
		product.GenericName,
		product.Categories,
		product.IngredientsText,
		product.Labels,
		strings.Join(product.LabelsTags, " "),
	}
	text := strings.ToLower(strings.Join(textParts, " "))

	nutriment := func(key string) (float64, bool) {
		v, ok := product.Nutriments[key]
		return v, ok
	}

	results := make([]CategoryResult, 0, len(nutritionCategories))
	for _, cat := range nutritionCategories {
		score := 0.0
		confidence := 0.3
		explanation := "Insufficient data available."

		switch cat {
		case "purity":
			if strings.Contains(text, "organic") || strings.Contains(text, "non-gmo") {
				score = 8
				confidence += 0.3
				explanation = "Labeled as organic / non-GMO."
			} else if strings.Contains(text, "artificial") || strings.Contains(text, "synthetic") {
				score = 3
				explanation = "Contains artificial or synthetic ingredients."
			} else {
				score = 5
				explanation = "No clear purity claims found."
			}

		case "potency":
			prot, hasProt := nutriment("proteins_value")
			caffeine, hasCaffeine := nutriment("caffeine_value")
			if hasProt && prot > 20 {
				score = 9
				confidence += 0.3
				explanation = fmt.Sprintf("High protein content (%gg).", prot)
			} else if hasCaffeine && caffeine > 200 {
				score = 8
				confidence += 0.3
				explanation = fmt.Sprintf("Strong stimulant content (%gmg caffeine).", caffeine)
			} else {
				score = 4
				explanation = "No strong evidence of potency."
			}

		case "additives":
			tags := product.AdditivesTags
			if len(tags) == 0 {
				score = 10
				confidence += 0.4
				explanation = "No additives detected."
			} else if containsSubstring(tags, "titanium-dioxide") {
				score = 2
				explanation = "Contains titanium dioxide, a potentially harmful additive."
			} else {
				score = float64(10 - len(tags)*2)
				if score < 1 {
					score = 1
				}
				explanation = fmt.Sprintf("Contains %d additives.", len(tags))
			}

		case "safety":
			caffeine, _ := nutriment("caffeine_value")
			if caffeine > 400 {
				score = 2
				explanation = fmt.Sprintf("Very high caffeine content (%gmg).", caffeine)
			} else {
				score = 8
				explanation = "No major safety concerns detected."
			}

		case "evidence":
			if strings.Contains(text, "clinically studied") ||
				strings.Contains(text, "third party tested") ||
				strings.Contains(text, "usp certified") {
				score = 9
				confidence += 0.4
				explanation = "Includes third-party testing or clinical evidence."
			} else {
				score = 3
				explanation = "No scientific support or testing claims found."
			}

		case "brand":
			brand := product.Brands
			if brand != "" {
				score = 7
				explanation = fmt.Sprintf("Brand listed: %s.", brand)
				if recognizedBrands[strings.ToLower(brand)] {
					score = 9
					explanation = fmt.Sprintf("Recognized supplement brand: %s.", brand)
				}
			} else {
				score = 2
				explanation = "No brand information available."
			}

		case "environmental":
			if strings.Contains(text, "vegan") || strings.Contains(text, "plant-based") {
				score = 8
				explanation = "Labeled as vegan/plant-based."
			} else if strings.Contains(text, "organic") {
				score = 7
				explanation = "Certified organic."
			} else {
				score = 4
				explanation = "No environmental or ethical claims detected."
			}

		case "value":
			protein, _ := nutriment("proteins_value")
			energy, _ := nutriment("energy-kcal_value")
			if protein > 0 && energy > 0 {
				ratio := protein / energy
				switch {
				case ratio > 0.25:
					score = 8
					explanation = fmt.Sprintf("High protein-to-calorie ratio (%.2f).", ratio)
				case ratio > 0.1:
					score = 6
					explanation = fmt.Sprintf("Moderate protein-to-calorie ratio (%.2f).", ratio)
				default:
					score = 3
					explanation = "Low protein density."
				}
			} else {
				score = 5
				explanation = "Insufficient nutrition data for value."
			}
		}

		score = clamp(score)
		if confidence > 1.0 {
			confidence = 1.0
		}
		results = append(results, CategoryResult{
			Name:          cat,
			Score:         score,
			Label:         ScoreToLabel(score),
			Confidence:    round2(confidence),
			Justification: explanation,
		})
	}

	return results
}

func containsSubstring(tags []string, substr string) bool {
	for _, t := range tags {
		if strings.Contains(t, substr) {
			return true
		}
	}
	return false
}
