package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"supplement-scout/internal/common/errors"
	"supplement-scout/internal/common/logging"
)

// TopLabelsByIngredients runs a single match iteration: labels whose
// ingredient_ids contain every id in ids, joined against ratings, best
// first. The first id is expected to be the rarest; it drives the candidate
// pre-filter so the containment check scans the smallest possible set.
// Score ties break on label id ascending for determinism.
func (s *Store) TopLabelsByIngredients(ctx context.Context, ids []int, n int) ([]LabelScore, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	if n <= 0 {
		n = 10
	}

	rows, err := s.pool.Query(ctx, `
		WITH candidate_labels AS (
			SELECT id, ingredient_ids
			FROM labels
			WHERE ingredient_ids @> ARRAY[$1]::int[]
		)
		SELECT c.id, r.overall_score
		FROM candidate_labels c
		JOIN ratings r ON c.id = r.id
		WHERE c.ingredient_ids @> $2::int[]
		ORDER BY r.overall_score DESC, c.id ASC
		LIMIT $3
	`, ids[0], ids, n)
	if err != nil {
		return nil, fmt.Errorf("failed to query top labels: %w", err)
	}
	defer rows.Close()

	var results []LabelScore
	for rows.Next() {
		var ls LabelScore
		if err := rows.Scan(&ls.LabelID, &ls.Score); err != nil {
			return nil, fmt.Errorf("failed to scan label score: %w", err)
		}
		results = append(results, ls)
	}
	return results, rows.Err()
}

// IngredientsForLabel returns the essential / non-essential ingredient split
// for a label. Essentials come from the ingredients referenced by the
// label's ingredient_ids; non-essentials from its raw excipient document.
func (s *Store) IngredientsForLabel(ctx context.Context, labelID int) (*EssentialBreakdown, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT i.name
		FROM ingredients i
		JOIN labels l ON i.ingredient_id = ANY(l.ingredient_ids)
		WHERE l.id = $1
	`, labelID)
	if err != nil {
		return nil, fmt.Errorf("failed to query label ingredients: %w", err)
	}
	defer rows.Close()

	breakdown := &EssentialBreakdown{
		Essentials:    []string{},
		NonEssentials: []string{},
	}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan ingredient name: %w", err)
		}
		breakdown.Essentials = append(breakdown.Essentials, name)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var nonEssentialsRaw []byte
	err = s.pool.QueryRow(ctx, `
		SELECT non_essentials_raw
		FROM labels
		WHERE id = $1
	`, labelID).Scan(&nonEssentialsRaw)
	if err == pgx.ErrNoRows {
		return nil, errors.NotFoundError(fmt.Sprintf("label %d", labelID))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query non-essentials: %w", err)
	}

	if len(nonEssentialsRaw) > 0 {
		if err := json.Unmarshal(nonEssentialsRaw, &breakdown.NonEssentials); err != nil {
			return nil, errors.DataShapeError(
				fmt.Sprintf("non_essentials_raw for label %d is not a JSON string array", labelID), err)
		}
	}

	return breakdown, nil
}

// RawLabelsByIDs returns raw label documents keyed by label id. IDs with no
// row are omitted.
func (s *Store) RawLabelsByIDs(ctx context.Context, ids []int) (map[int]json.RawMessage, error) {
	if len(ids) == 0 {
		return map[int]json.RawMessage{}, nil
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, raw_json
		FROM labels
		WHERE id = ANY($1)
	`, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to query raw labels: %w", err)
	}
	defer rows.Close()

	docs := make(map[int]json.RawMessage, len(ids))
	for rows.Next() {
		var id int
		var raw []byte
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, fmt.Errorf("failed to scan raw label: %w", err)
		}
		docs[id] = json.RawMessage(raw)
	}
	return docs, rows.Err()
}

// LabelByUPC fetches a raw label document by barcode, serving repeat
// lookups from the cache.
func (s *Store) LabelByUPC(ctx context.Context, upc string) (json.RawMessage, error) {
	upc = strings.TrimSpace(upc)
	if upc == "" {
		return nil, errors.ValidationError("upc is required")
	}

	cacheKey := "label:upc:" + upc

	if s.labelCache != nil {
		if cached, found := s.labelCache.Get(ctx, cacheKey); found {
			s.logger.Info("label fetched",
				logging.Field{Key: "upc", Value: upc},
				logging.Field{Key: "source", Value: "cache"},
			)
			return json.RawMessage(cached), nil
		}
	}

	var raw []byte
	err := s.pool.QueryRow(ctx, `
		SELECT raw_json
		FROM labels
		WHERE upc = $1
	`, upc).Scan(&raw)
	if err == pgx.ErrNoRows {
		return nil, errors.NotFoundError(fmt.Sprintf("label with upc %s", upc))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query label by upc: %w", err)
	}

	if s.labelCache != nil {
		if err := s.labelCache.Set(ctx, cacheKey, raw, s.cacheTTL); err != nil {
			s.logger.Warn("failed to cache label",
				logging.Field{Key: "upc", Value: upc},
				logging.Field{Key: "error", Value: err.Error()},
			)
		}
	}

	s.logger.Info("label fetched",
		logging.Field{Key: "upc", Value: upc},
		logging.Field{Key: "source", Value: "database"},
	)
	return json.RawMessage(raw), nil
}
