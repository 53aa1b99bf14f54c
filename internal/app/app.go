package app

import (
	"supplement-scout/internal/cache"
	"supplement-scout/internal/common/logging"
	"supplement-scout/internal/config"
	"supplement-scout/internal/dispatch"
	"supplement-scout/internal/events"
	"supplement-scout/internal/fetch"
	"supplement-scout/internal/rating"
	"supplement-scout/internal/redis"
	"supplement-scout/internal/search"
	"supplement-scout/internal/store"
)

// App holds all the application dependencies
type App struct {
	Config          *config.Config
	RedisClient     *redis.Client
	ResponseCache   cache.Cache
	LabelCache      cache.Cache
	Fetch           *fetch.Client
	Store           *store.Store
	Essentials      EssentialIndex
	Search          *search.Engine
	LabelScorer     rating.Scorer
	NutritionScorer rating.Scorer
	Hub             *events.Hub
	Publisher       *events.Publisher
	Dispatcher      *dispatch.Dispatcher
	Logger          logging.Logger
}

// New creates a new application instance with all dependencies. Components
// are built in dependency order and every job dependency exists before the
// worker pool starts.
func New(cfg *config.Config) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: logging.GetGlobalLogger().WithFields(logging.Field{Key: "component", Value: "app"}),
	}

	if err := app.initializeRedis(); err != nil {
		// Redis is optional, degrade to local-only caching
		app.Logger.Warn("Redis initialization failed, continuing with local caches only",
			logging.Field{Key: "error", Value: err.Error()})
	}
	app.initializeCaches()

	if err := app.initializeFetch(); err != nil {
		return nil, err
	}

	if err := app.initializeStore(); err != nil {
		return nil, err
	}

	app.initializeEngines()
	app.initializeEvents()
	app.initializeDispatch()

	return app, nil
}

// Cleanup releases all resources
func (app *App) Cleanup() {
	if app.Publisher != nil {
		app.Publisher.Close()
	}
	if app.Fetch != nil {
		app.Fetch.Close()
	}
	if app.Store != nil {
		app.Store.Close()
	}
	if app.RedisClient != nil {
		app.RedisClient.Close()
	}
}
