package app

import (
	"context"
	"time"

	"supplement-scout/internal/common/logging"
	"supplement-scout/internal/store"
)

func (app *App) initializeStore() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	st, err := store.New(ctx, &store.Config{
		DatabaseURL: app.Config.DatabaseURL,
		CacheTTL:    30 * 24 * time.Hour,
	}, app.LabelCache, logging.GetGlobalLogger())
	if err != nil {
		return err
	}

	app.Store = st
	app.Logger.Info("Store: Connected")
	return nil
}
