package app

import (
	"time"

	"supplement-scout/internal/cache"
	"supplement-scout/internal/common/logging"
	"supplement-scout/internal/redis"
)

func (app *App) initializeRedis() error {
	if app.Config.RedisAddress == "" {
		app.Logger.Info("Redis: Not configured (response and label caches run locally)")
		return nil
	}

	redisClient, err := redis.NewClient(&redis.Config{
		Address:  app.Config.RedisAddress,
		Password: app.Config.RedisPassword,
		DB:       app.Config.RedisDB,
		PoolSize: app.Config.RedisPoolSize,
	})
	if err != nil {
		return err
	}

	app.RedisClient = redisClient
	app.Logger.Info("Redis: Connected", logging.Field{Key: "address", Value: app.Config.RedisAddress})
	return nil
}

// initializeCaches builds the response and label caches. With Redis
// available they are two-tier (local front, Redis behind); without it they
// fall back to process-local caches with the same TTL semantics.
func (app *App) initializeCaches() {
	const cleanupInterval = 10 * time.Minute

	if app.RedisClient != nil {
		app.ResponseCache = cache.NewTwoTierCache(5*time.Minute, cleanupInterval, app.RedisClient, "fetch")
		app.LabelCache = cache.NewTwoTierCache(5*time.Minute, cleanupInterval, app.RedisClient, "label")
		return
	}
	app.ResponseCache = cache.NewLocalCache(30*24*time.Hour, cleanupInterval)
	app.LabelCache = cache.NewLocalCache(30*24*time.Hour, cleanupInterval)
}
