// Package search implements the rarity-driven, iteratively broadening
// catalog search. Starting from the rarest requested ingredient keeps each
// candidate scan small; dropping the rarest remaining ingredient when too
// few labels match trades match precision for result count.
package search

import (
	"context"
	"encoding/json"
	"sort"
	"strconv"

	"supplement-scout/internal/common/logging"
	"supplement-scout/internal/ingredient"
	"supplement-scout/internal/store"
)

// FrequencyIndex resolves ingredient names to ids and ids to label counts
type FrequencyIndex interface {
	LookupIngredientIDs(ctx context.Context, names []string) ([]int, error)
	IngredientFrequencies(ctx context.Context, ids []int) ([]store.IngredientFrequency, error)
}

// LabelMatcher finds top-rated labels containing all given ingredient ids
type LabelMatcher interface {
	TopLabelsByIngredients(ctx context.Context, ids []int, n int) ([]store.LabelScore, error)
	RawLabelsByIDs(ctx context.Context, ids []int) (map[int]json.RawMessage, error)
}

// Engine runs the broadening search. The Store satisfies both dependency
// interfaces; tests substitute fakes.
type Engine struct {
	index   FrequencyIndex
	matcher LabelMatcher
	logger  logging.Logger
}

// NewEngine creates a search engine
func NewEngine(index FrequencyIndex, matcher LabelMatcher, logger logging.Logger) *Engine {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	return &Engine{
		index:   index,
		matcher: matcher,
		logger:  logger.WithFields(logging.Field{Key: "component", Value: "search"}),
	}
}

// FindTopMatches returns the top n labels containing all of the requested
// ingredient ids, broadening the match set until enough results exist.
// Returns empty when no requested ingredient has frequency data. Every
// returned label contains all ids remaining in the final match set.
func (e *Engine) FindTopMatches(ctx context.Context, ingredientIDs []int, n int) ([]store.LabelScore, error) {
	if len(ingredientIDs) == 0 {
		return nil, nil
	}
	if n <= 0 {
		n = 10
	}

	freqs, err := e.index.IngredientFrequencies(ctx, ingredientIDs)
	if err != nil {
		return nil, err
	}
	if len(freqs) == 0 {
		return nil, nil
	}

	// Rarest first; ties break on id for a stable iteration order
	sort.Slice(freqs, func(i, j int) bool {
		if freqs[i].LabelCount != freqs[j].LabelCount {
			return freqs[i].LabelCount < freqs[j].LabelCount
		}
		return freqs[i].IngredientID < freqs[j].IngredientID
	})

	current := make([]int, len(freqs))
	for i, f := range freqs {
		current[i] = f.IngredientID
	}

	var results []store.LabelScore
	for {
		results, err = e.matcher.TopLabelsByIngredients(ctx, current, n)
		if err != nil {
			return nil, err
		}

		if len(results) >= n || len(current) == 1 {
			break
		}

		e.logger.Info("broadening search",
			logging.Field{Key: "results", Value: len(results)},
			logging.Field{Key: "dropped_ingredient", Value: current[0]},
			logging.Field{Key: "remaining", Value: len(current) - 1},
		)
		current = current[1:]
	}

	return results, nil
}

// FindTopMatchesByName normalizes and resolves ingredient names, then runs
// the broadening search. When any name fails to resolve the result is empty:
// a silently relaxed query would misrepresent what was matched.
func (e *Engine) FindTopMatchesByName(ctx context.Context, names []string, n int) ([]store.LabelScore, error) {
	if len(names) == 0 {
		return nil, nil
	}

	normalized := ingredient.NormalizeAll(names)
	ids, err := e.index.LookupIngredientIDs(ctx, normalized)
	if err != nil {
		return nil, err
	}

	if len(ids) < len(names) {
		e.logger.Warn("some ingredients did not resolve, returning empty result",
			logging.Field{Key: "requested", Value: len(names)},
			logging.Field{Key: "resolved", Value: len(ids)},
		)
		return nil, nil
	}

	return e.FindTopMatches(ctx, ids, n)
}

// Product is a display-ready recommendation entry
type Product struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Brand       string  `json:"brand"`
	Image       string  `json:"image,omitempty"`
	NetContents string  `json:"netContents,omitempty"`
	Score       float64 `json:"score"`
}

// labelSummary is the display subset of a raw label document
type labelSummary struct {
	FullName    string `json:"fullName"`
	BrandName   string `json:"brandName"`
	Thumbnail   string `json:"thumbnail"`
	NetContents string `json:"netContents"`
}

// RecommendByEssentials runs the broadening search over essential names and
// hydrates the matches into deduplicated display entries, preserving rank
// order.
func (e *Engine) RecommendByEssentials(ctx context.Context, essentials []string, n int) ([]Product, error) {
	matches, err := e.FindTopMatchesByName(ctx, essentials, n)
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return []Product{}, nil
	}

	ids := make([]int, len(matches))
	for i, m := range matches {
		ids[i] = m.LabelID
	}

	docs, err := e.matcher.RawLabelsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	products := make([]Product, 0, len(matches))
	for _, m := range matches {
		raw, ok := docs[m.LabelID]
		if !ok {
			continue
		}
		var summary labelSummary
		if err := json.Unmarshal(raw, &summary); err != nil {
			e.logger.Warn("skipping label with malformed document",
				logging.Field{Key: "label_id", Value: m.LabelID},
			)
			continue
		}
		products = append(products, Product{
			ID:          strconv.Itoa(m.LabelID),
			Name:        summary.FullName,
			Brand:       summary.BrandName,
			Image:       summary.Thumbnail,
			NetContents: summary.NetContents,
			Score:       m.Score,
		})
	}

	return Dedupe(products, e.logger), nil
}

// Dedupe drops entries sharing a (name, brand) pair, keeping the first
// occurrence in rank order. Entries missing either field are logged and
// excluded rather than silently passed through.
func Dedupe(products []Product, logger logging.Logger) []Product {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}

	seen := make(map[string]bool, len(products))
	out := make([]Product, 0, len(products))
	for _, p := range products {
		if p.Name == "" || p.Brand == "" {
			logger.Warn("excluding entry without dedup key",
				logging.Field{Key: "id", Value: p.ID},
				logging.Field{Key: "name", Value: p.Name},
				logging.Field{Key: "brand", Value: p.Brand},
			)
			continue
		}
		key := p.Name + "\x00" + p.Brand
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, p)
	}
	return out
}
