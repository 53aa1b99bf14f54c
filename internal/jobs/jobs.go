// Package jobs implements the background pipelines behind a lookup request.
// Every job follows the same contract: errors are caught at the job
// boundary and converted into an *_error event for the requesting session's
// room; nothing propagates past the worker. Completed jobs may enqueue
// downstream jobs, forming a small acyclic chain (scoring triggers the
// ranked recommendation job).
package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"supplement-scout/internal/common/logging"
	"supplement-scout/internal/dispatch"
	"supplement-scout/internal/events"
	"supplement-scout/internal/fetch"
	"supplement-scout/internal/rating"
	"supplement-scout/internal/search"
	"supplement-scout/internal/store"
)

// Fetcher is the outbound HTTP surface jobs use
type Fetcher interface {
	Get(ctx context.Context, rawURL string, params map[string]string, opts *fetch.Options) (*fetch.Response, error)
}

// Catalog is the relational read surface jobs use
type Catalog interface {
	IngredientsForLabel(ctx context.Context, labelID int) (*store.EssentialBreakdown, error)
	RatingForLabel(ctx context.Context, labelID int) (*store.Rating, error)
}

// Recommender runs the broadening search and hydrates display entries
type Recommender interface {
	RecommendByEssentials(ctx context.Context, essentials []string, n int) ([]search.Product, error)
}

// Publisher delivers events to subscriber rooms
type Publisher interface {
	Publish(event string, payload interface{}, room string)
}

// Enqueuer lets a completed job trigger its downstream job
type Enqueuer interface {
	Enqueue(kind dispatch.JobKind, args dispatch.Args) (*dispatch.JobHandle, error)
}

// Deps holds the shared dependencies for all jobs. It is constructed once,
// fully, before the worker pool starts; jobs never bootstrap anything
// lazily.
type Deps struct {
	Fetch           Fetcher
	Catalog         Catalog
	Recommender     Recommender
	LabelScorer     rating.Scorer
	NutritionScorer rating.Scorer
	Publisher       Publisher
	Dispatcher      Enqueuer

	CatalogBaseURL   string
	NutritionBaseURL string

	Logger logging.Logger
}

// Register binds every job kind to its handler
func Register(d *dispatch.Dispatcher, deps *Deps) {
	if deps.Logger == nil {
		deps.Logger = logging.GetGlobalLogger()
	}
	deps.Logger = deps.Logger.WithFields(logging.Field{Key: "component", Value: "jobs"})

	d.Register(dispatch.KindFetchLabelDetails, deps.fetchLabelDetails)
	d.Register(dispatch.KindRecommendByRanked, deps.recommendByEssentialsRanked)
	d.Register(dispatch.KindRecommendByText, deps.recommendByTextSearch)
	d.Register(dispatch.KindFetchNutritionData, deps.fetchNutritionData)
	d.Register(dispatch.KindProductsForEssential, deps.productsForEssential)
}

// labelSummary is the display subset of a label document
type labelSummary struct {
	FullName  string `json:"fullName"`
	BrandName string `json:"brandName"`
	Thumbnail string `json:"thumbnail"`
}

// fetchLabelDetails fetches a label document, computes its essentials
// breakdown and rating, and emits lookup_update to the session room. On
// completion it may chain the ranked recommendation job.
func (deps *Deps) fetchLabelDetails(ctx context.Context, job *dispatch.Job) error {
	userID := job.Args.String("user_id")
	productID := job.Args.String("product_id")
	recommendAfter := job.Args.Bool("recommend_after")
	room := events.RoomID(userID)

	deps.Logger.Info("fetching label details",
		logging.Field{Key: "product_id", Value: productID},
		logging.Field{Key: "room", Value: room},
	)

	resp, err := deps.Fetch.Get(ctx, fmt.Sprintf("%s/label/%s", deps.CatalogBaseURL, productID), nil, nil)
	if err == nil && !resp.IsSuccess() {
		err = fmt.Errorf("label fetch returned status %d", resp.StatusCode)
	}
	if err != nil {
		deps.Logger.Warn("failed to fetch label",
			logging.Field{Key: "product_id", Value: productID},
			logging.Field{Key: "error", Value: err.Error()},
		)
		deps.Publisher.Publish(events.EventLookupUpdateError, map[string]interface{}{
			"product_id": productID,
			"error":      err.Error(),
		}, room)
		return err
	}

	var rawLabel map[string]interface{}
	if jsonErr := json.Unmarshal(resp.Body, &rawLabel); jsonErr != nil {
		deps.Publisher.Publish(events.EventLookupUpdateError, map[string]interface{}{
			"product_id": productID,
			"error":      "label document is not valid JSON",
		}, room)
		return jsonErr
	}

	// Essentials breakdown is independent of scoring: a failure here
	// produces its own error event and the lookup continues
	var essentials []string
	labelID, idErr := strconv.Atoi(productID)
	if idErr != nil {
		deps.Publisher.Publish(events.EventEssentialsError, map[string]interface{}{
			"product_id": productID,
			"error":      "product id is not numeric",
		}, room)
	} else {
		breakdown, bErr := deps.Catalog.IngredientsForLabel(ctx, labelID)
		if bErr != nil {
			deps.Logger.Warn("failed to compute essentials",
				logging.Field{Key: "product_id", Value: productID},
				logging.Field{Key: "error", Value: bErr.Error()},
			)
			deps.Publisher.Publish(events.EventEssentialsError, map[string]interface{}{
				"product_id": productID,
				"error":      bErr.Error(),
			}, room)
		} else {
			essentials = breakdown.Essentials
			deps.Publisher.Publish(events.EventEssentials, breakdown, room)
		}
	}

	// Prefer the stored rating; fall back to scoring the fetched document
	// when no precomputed row exists
	var overall interface{}
	var categories interface{}
	if idErr == nil {
		if stored, rErr := deps.Catalog.RatingForLabel(ctx, labelID); rErr == nil && stored != nil {
			overall = stored.OverallScore
			categories = stored.Categories
		}
	}
	if categories == nil {
		computed := deps.LabelScorer.ScoreDocument(resp.Body)
		overall = rating.OverallScore(computed)
		categories = computed
	}

	var summary labelSummary
	_ = json.Unmarshal(resp.Body, &summary)
	name := summary.FullName
	if name == "" {
		name = summary.BrandName
	}

	deps.Publisher.Publish(events.EventLookupUpdate, map[string]interface{}{
		"product_id": productID,
		"rating":     overall,
		"categories": categories,
		"name":       name,
		"brand":      summary.BrandName,
		"image":      summary.Thumbnail,
		"raw_label":  rawLabel,
	}, room)

	if recommendAfter && len(essentials) > 0 {
		if _, err := deps.Dispatcher.Enqueue(dispatch.KindRecommendByRanked, dispatch.Args{
			"user_id":    userID,
			"essentials": essentials,
			"n":          10,
		}); err != nil {
			deps.Logger.Warn("failed to chain recommendation job",
				logging.Field{Key: "error", Value: err.Error()},
			)
		}
	}
	return nil
}

// recommendByEssentialsRanked recommends products sharing the given
// essentials using the store-backed broadening search
func (deps *Deps) recommendByEssentialsRanked(ctx context.Context, job *dispatch.Job) error {
	userID := job.Args.String("user_id")
	essentials := job.Args.Strings("essentials")
	n := job.Args.Int("n", 10)
	room := events.RoomID(userID)

	deps.Logger.Info("recommending by essentials",
		logging.Field{Key: "essentials", Value: len(essentials)},
		logging.Field{Key: "room", Value: room},
	)

	recommendations, err := deps.Recommender.RecommendByEssentials(ctx, essentials, n)
	if err != nil {
		deps.Logger.Warn("ranked recommendation failed",
			logging.Field{Key: "error", Value: err.Error()},
		)
		deps.Publisher.Publish(events.EventRecommendationsError, map[string]interface{}{
			"error": err.Error(),
		}, room)
		return err
	}

	deps.Publisher.Publish(events.EventRecommendations, map[string]interface{}{
		"recommendations": recommendations,
	}, room)
	return nil
}

// searchFilterResponse is the catalog search endpoint's hit envelope
type searchFilterResponse struct {
	Hits []struct {
		ID     string `json:"_id"`
		Source struct {
			FullName    string `json:"fullName"`
			BrandName   string `json:"brandName"`
			Thumbnail   string `json:"thumbnail"`
			NetContents string `json:"netContents"`
		} `json:"_source"`
	} `json:"hits"`
}

// recommendByTextSearch recommends products by full-text search against
// the catalog endpoint instead of the relational store
func (deps *Deps) recommendByTextSearch(ctx context.Context, job *dispatch.Job) error {
	userID := job.Args.String("user_id")
	essentials := job.Args.Strings("essentials")
	room := events.RoomID(userID)

	emitError := func(err error) {
		deps.Publisher.Publish(events.EventRecommendationsError, map[string]interface{}{
			"error": err.Error(),
		}, room)
	}

	resp, err := deps.Fetch.Get(ctx, deps.CatalogBaseURL+"/search-filter/",
		map[string]string{"q": strings.Join(essentials, " ")}, nil)
	if err == nil && !resp.IsSuccess() {
		err = fmt.Errorf("search returned status %d", resp.StatusCode)
	}
	if err != nil {
		emitError(err)
		return err
	}

	var parsed searchFilterResponse
	if err := json.Unmarshal(resp.Body, &parsed); err != nil {
		emitError(fmt.Errorf("search response is not valid JSON"))
		return err
	}
	if parsed.Hits == nil {
		err := fmt.Errorf("no hits in response")
		emitError(err)
		return err
	}

	products := make([]search.Product, 0, 10)
	for i, hit := range parsed.Hits {
		if i == 10 {
			break
		}
		products = append(products, search.Product{
			ID:          hit.ID,
			Name:        hit.Source.FullName,
			Brand:       hit.Source.BrandName,
			Image:       hit.Source.Thumbnail,
			NetContents: hit.Source.NetContents,
		})
	}

	deps.Publisher.Publish(events.EventRecommendations, map[string]interface{}{
		"recommendations": search.Dedupe(products, deps.Logger),
	}, room)
	return nil
}

// fetchNutritionData fetches third-party nutrition facts for a barcode and
// scores them with the nutrition scorer
func (deps *Deps) fetchNutritionData(ctx context.Context, job *dispatch.Job) error {
	userID := job.Args.String("user_id")
	upc := job.Args.String("upc")
	room := events.RoomID(userID)

	emitError := func(msg string) {
		deps.Publisher.Publish(events.EventNutritionFactsError, map[string]interface{}{
			"upc":   upc,
			"error": msg,
		}, room)
	}

	resp, err := deps.Fetch.Get(ctx,
		fmt.Sprintf("%s/api/v2/product/%s.json", deps.NutritionBaseURL, upc), nil, nil)
	if err != nil {
		deps.Logger.Warn("failed to fetch nutrition data",
			logging.Field{Key: "upc", Value: upc},
			logging.Field{Key: "error", Value: err.Error()},
		)
		emitError(err.Error())
		return err
	}

	var status struct {
		Status int `json:"status"`
	}
	if !resp.IsSuccess() || json.Unmarshal(resp.Body, &status) != nil || status.Status == 0 {
		err := fmt.Errorf("product %s not found", upc)
		emitError("Not found")
		return err
	}

	categories := deps.NutritionScorer.ScoreDocument(resp.Body)

	deps.Publisher.Publish(events.EventNutritionFacts, map[string]interface{}{
		"upc":        upc,
		"categories": categories,
		"rating":     rating.OverallScore(categories),
	}, room)
	return nil
}

// productsForEssential finds top products containing a single essential and
// emits them to the essential-scoped room for that session
func (deps *Deps) productsForEssential(ctx context.Context, job *dispatch.Job) error {
	userID := job.Args.String("user_id")
	essentialName := job.Args.String("essential_name")
	room := events.EssentialRoomID(userID, essentialName)

	deps.Logger.Info("fetching products for essential",
		logging.Field{Key: "essential", Value: essentialName},
		logging.Field{Key: "room", Value: room},
	)

	products, err := deps.Recommender.RecommendByEssentials(ctx, []string{essentialName}, 10)
	if err != nil {
		deps.Publisher.Publish(events.EventEssentialProductsError, map[string]interface{}{
			"essential": essentialName,
			"error":     err.Error(),
		}, room)
		return err
	}

	deps.Publisher.Publish(events.EventEssentialProducts, map[string]interface{}{
		"essential": essentialName,
		"products":  products,
	}, room)
	return nil
}
