package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"supplement-scout/internal/rating"
)

// categoryColumns maps display category names onto the ratings table's
// per-category column suffixes.
var categoryColumns = []struct {
	Name   string
	Suffix string
}{
	{"Purity", "purity"},
	{"Potency", "potency"},
	{"Additives", "additives"},
	{"Safety", "safety"},
	{"Evidence", "evidence"},
	{"Brand", "brand"},
	{"Environmental", "env"},
}

// RatingForLabel returns the stored rating row for a label with its
// per-category justification texts, or nil when no rating exists.
func (s *Store) RatingForLabel(ctx context.Context, labelID int) (*Rating, error) {
	selectFields := []string{"r.id", "r.overall_score", "r.updated_at"}
	joinClauses := make([]string, 0, len(categoryColumns))
	for _, cat := range categoryColumns {
		selectFields = append(selectFields,
			fmt.Sprintf("r.%s_score", cat.Suffix),
			fmt.Sprintf("jt_%s.text", cat.Suffix),
		)
		joinClauses = append(joinClauses, fmt.Sprintf(
			"LEFT JOIN justification_texts jt_%s ON r.%s_just_id = jt_%s.id",
			cat.Suffix, cat.Suffix, cat.Suffix,
		))
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM ratings r
		%s
		WHERE r.id = $1
		LIMIT 1
	`, strings.Join(selectFields, ", "), strings.Join(joinClauses, " "))

	result := &Rating{}
	var updatedAt *time.Time
	scanTargets := []interface{}{&result.LabelID, &result.OverallScore, &updatedAt}

	catScores := make([]*float64, len(categoryColumns))
	catTexts := make([]*string, len(categoryColumns))
	for i := range categoryColumns {
		scanTargets = append(scanTargets, &catScores[i], &catTexts[i])
	}

	err := s.pool.QueryRow(ctx, query, labelID).Scan(scanTargets...)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query rating: %w", err)
	}

	result.UpdatedAt = updatedAt
	if result.OverallScore != nil {
		label := rating.ScoreToLabel(*result.OverallScore)
		result.OverallLabel = &label
	}

	result.Categories = make([]CategoryScore, 0, len(categoryColumns))
	for i, cat := range categoryColumns {
		cs := CategoryScore{Name: cat.Name, Score: catScores[i]}
		if catScores[i] != nil {
			label := rating.ScoreToLabel(*catScores[i])
			cs.Label = &label
		}
		if catTexts[i] != nil {
			cs.Justification = *catTexts[i]
		}
		result.Categories = append(result.Categories, cs)
	}

	return result, nil
}
