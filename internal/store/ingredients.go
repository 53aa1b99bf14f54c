package store

import (
	"context"
	"fmt"

	"supplement-scout/internal/ingredient"
)

// LookupIngredientIDs resolves canonical ingredient names to IDs. Names with
// no match are omitted; callers that need all-must-resolve semantics compare
// result and input lengths.
func (s *Store) LookupIngredientIDs(ctx context.Context, names []string) ([]int, error) {
	if len(names) == 0 {
		return nil, nil
	}

	rows, err := s.pool.Query(ctx, `
		SELECT ingredient_id
		FROM ingredients
		WHERE name = ANY($1)
	`, names)
	if err != nil {
		return nil, fmt.Errorf("failed to look up ingredient ids: %w", err)
	}
	defer rows.Close()

	var ids []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan ingredient id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// IngredientFrequencies returns label counts for the given ingredient IDs.
// IDs with no frequency row are omitted.
func (s *Store) IngredientFrequencies(ctx context.Context, ids []int) ([]IngredientFrequency, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	rows, err := s.pool.Query(ctx, `
		SELECT ingredient_id, label_count
		FROM ingredient_frequency
		WHERE ingredient_id = ANY($1)
	`, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch ingredient frequencies: %w", err)
	}
	defer rows.Close()

	var freqs []IngredientFrequency
	for rows.Next() {
		var f IngredientFrequency
		if err := rows.Scan(&f.IngredientID, &f.LabelCount); err != nil {
			return nil, fmt.Errorf("failed to scan ingredient frequency: %w", err)
		}
		freqs = append(freqs, f)
	}
	return freqs, rows.Err()
}

// SearchEssentials fuzzy-matches ingredients by name using pg_trgm
// similarity over both the canonical and human-readable names.
func (s *Store) SearchEssentials(ctx context.Context, query string, limit int, minSimilarity float64) ([]Ingredient, error) {
	if query == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = 10
	}
	if minSimilarity <= 0 {
		minSimilarity = 0.3
	}

	normQuery := ingredient.Normalize(query)

	rows, err := s.pool.Query(ctx, `
		SELECT ingredient_id, name, human_name
		FROM ingredients
		WHERE similarity(name, $1) > $3
		   OR similarity(human_name, $2) > $3
		ORDER BY GREATEST(similarity(name, $1), similarity(human_name, $2)) DESC
		LIMIT $4
	`, normQuery, query, minSimilarity, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search essentials: %w", err)
	}
	defer rows.Close()

	var results []Ingredient
	for rows.Next() {
		var ing Ingredient
		if err := rows.Scan(&ing.ID, &ing.Name, &ing.HumanName); err != nil {
			return nil, fmt.Errorf("failed to scan ingredient: %w", err)
		}
		results = append(results, ing)
	}
	return results, rows.Err()
}
