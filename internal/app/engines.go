package app

import (
	"net/url"

	"supplement-scout/internal/common/logging"
	"supplement-scout/internal/dispatch"
	"supplement-scout/internal/events"
	"supplement-scout/internal/fetch"
	"supplement-scout/internal/jobs"
	"supplement-scout/internal/rating"
	"supplement-scout/internal/search"
)

func (app *App) initializeFetch() error {
	fetchConfig := fetch.DefaultConfig()
	fetchConfig.Timeout = app.Config.FetchTimeout
	fetchConfig.MaxRetries = app.Config.FetchMaxRetries
	fetchConfig.RateLimit = app.Config.RateLimitDefault
	fetchConfig.RateWindow = app.Config.RateLimitWindow
	fetchConfig.CatalogAPIKey = app.Config.CatalogAPIKey
	if u, err := url.Parse(app.Config.CatalogAPIURL); err == nil {
		fetchConfig.CatalogHost = u.Host
	}

	client, err := fetch.NewClient(fetchConfig, app.ResponseCache, logging.GetGlobalLogger())
	if err != nil {
		return err
	}

	app.Fetch = client
	app.Logger.Info("Fetch: Configured",
		logging.Field{Key: "rate_limit", Value: fetchConfig.RateLimit},
		logging.Field{Key: "window", Value: fetchConfig.RateWindow.String()},
	)
	return nil
}

func (app *App) initializeEngines() {
	app.Essentials = app.Store
	app.Search = search.NewEngine(app.Store, app.Store, logging.GetGlobalLogger())
	app.LabelScorer = rating.NewLabelScorer()
	app.NutritionScorer = rating.NewNutritionScorer()
}

func (app *App) initializeEvents() {
	app.Hub = events.NewHub(logging.GetGlobalLogger())
	app.Publisher = events.NewPublisher(app.Hub,
		app.Config.DeliveryMaxAttempts,
		app.Config.DeliveryRetryDelay,
		logging.GetGlobalLogger(),
	)
}

func (app *App) initializeDispatch() {
	app.Dispatcher = dispatch.New(app.Config.WorkerCount, app.Config.JobQueueSize, logging.GetGlobalLogger())

	jobs.Register(app.Dispatcher, &jobs.Deps{
		Fetch:            app.Fetch,
		Catalog:          app.Store,
		Recommender:      app.Search,
		LabelScorer:      app.LabelScorer,
		NutritionScorer:  app.NutritionScorer,
		Publisher:        app.Publisher,
		Dispatcher:       app.Dispatcher,
		CatalogBaseURL:   app.Config.CatalogAPIURL,
		NutritionBaseURL: app.Config.NutritionAPIURL,
		Logger:           logging.GetGlobalLogger(),
	})
}
