package app

import (
	"context"
	"encoding/json"
	"strings"

	"supplement-scout/internal/barcode"
	"supplement-scout/internal/common/errors"
	"supplement-scout/internal/common/logging"
	"supplement-scout/internal/dispatch"
	"supplement-scout/internal/events"
	"supplement-scout/internal/store"
)

// EssentialIndex is the fuzzy essential-search surface. The Store
// implements it; tests substitute a fake.
type EssentialIndex interface {
	SearchEssentials(ctx context.Context, query string, limit int, minSimilarity float64) ([]store.Ingredient, error)
}

// Query describes a lookup request: exactly one of Barcode or
// IngredientNames is set.
type Query struct {
	Barcode         string
	IngredientNames []string
}

// SubmitLookup validates a query and enqueues the jobs serving it. Results
// arrive asynchronously on the session's room; the returned error covers
// only submission failures (bad query, queue full, shutdown).
func (app *App) SubmitLookup(ctx context.Context, sessionID string, query Query) error {
	if sessionID == "" {
		return errors.ValidationError("session id is required")
	}

	switch {
	case query.Barcode != "":
		return app.submitBarcodeLookup(ctx, sessionID, query.Barcode)
	case len(query.IngredientNames) > 0:
		_, err := app.Dispatcher.Enqueue(dispatch.KindRecommendByRanked, dispatch.Args{
			"user_id":    sessionID,
			"essentials": query.IngredientNames,
			"n":          10,
		})
		return err
	default:
		return errors.ValidationError("query must carry a barcode or ingredient names")
	}
}

func (app *App) submitBarcodeLookup(ctx context.Context, sessionID string, rawBarcode string) error {
	formatted, err := barcode.Format(rawBarcode)
	if err != nil {
		return err
	}

	// Nutrition data comes from a third-party source keyed by the raw UPC
	// and does not depend on the catalog resolving the barcode
	if _, err := app.Dispatcher.Enqueue(dispatch.KindFetchNutritionData, dispatch.Args{
		"user_id": sessionID,
		"upc":     rawBarcode,
	}); err != nil {
		return err
	}

	raw, err := app.Store.LabelByUPC(ctx, formatted)
	if err != nil {
		app.Logger.Warn("barcode did not resolve to a label",
			logging.Field{Key: "upc", Value: formatted},
			logging.Field{Key: "error", Value: err.Error()},
		)
		app.Publisher.Publish(events.EventLookupUpdateError, map[string]interface{}{
			"upc":   rawBarcode,
			"error": err.Error(),
		}, events.RoomID(sessionID))
		return err
	}

	var label struct {
		ID json.Number `json:"id"`
	}
	if err := json.Unmarshal(raw, &label); err != nil || label.ID.String() == "" {
		return errors.DataShapeError("label document has no id field", err)
	}

	_, err = app.Dispatcher.Enqueue(dispatch.KindFetchLabelDetails, dispatch.Args{
		"user_id":         sessionID,
		"product_id":      label.ID.String(),
		"recommend_after": true,
	})
	return err
}

// SearchEssentials fuzzy-matches catalog essentials against a typed query,
// serving typeahead while a user assembles an ingredient lookup. Blank
// queries are rejected rather than matched against the whole catalog.
func (app *App) SearchEssentials(ctx context.Context, query string, limit int) ([]store.Ingredient, error) {
	if strings.TrimSpace(query) == "" {
		return nil, errors.ValidationError("search query is required")
	}
	return app.Essentials.SearchEssentials(ctx, query, limit, 0)
}

// Subscribe joins the given session's room, returning the subscription the
// caller reads delivered events from
func (app *App) Subscribe(sessionID string) *events.Subscription {
	return app.Hub.Join(events.RoomID(sessionID))
}
