package store

import "time"

// Ingredient is a catalog ingredient. Name is the canonical (normalized)
// matching form; HumanName is display-only.
type Ingredient struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	HumanName string `json:"human_name"`
}

// IngredientFrequency counts how many labels reference an ingredient. A low
// count means a rare, highly selective ingredient.
type IngredientFrequency struct {
	IngredientID int `json:"ingredient_id"`
	LabelCount   int `json:"label_count"`
}

// LabelScore is a catalog item paired with its precomputed overall score
type LabelScore struct {
	LabelID int     `json:"label_id"`
	Score   float64 `json:"score"`
}

// EssentialBreakdown splits a label's ingredients into active essentials
// and filler non-essentials
type EssentialBreakdown struct {
	Essentials    []string `json:"essentials"`
	NonEssentials []string `json:"non_essentials"`
}

// CategoryScore is one scored rating category with its justification
type CategoryScore struct {
	Name          string   `json:"name"`
	Score         *float64 `json:"score"`
	Label         *string  `json:"label"`
	Justification string   `json:"justification"`
}

// Rating is the stored rating row for a label
type Rating struct {
	LabelID      int             `json:"id"`
	OverallScore *float64        `json:"overall_score"`
	OverallLabel *string         `json:"overall_label"`
	Categories   []CategoryScore `json:"categories"`
	UpdatedAt    *time.Time      `json:"updated_at"`
}
