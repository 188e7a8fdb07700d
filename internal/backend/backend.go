// Package backend selects the store implementation named in settings.
package backend

import (
	"context"
	"fmt"

	"todo/internal/backend/firestore"
	"todo/internal/backend/googletasks"
	"todo/internal/backend/mysql"
	"todo/internal/config"
	"todo/internal/store"
)

// Open creates the store for cfg.Settings.Backend.
func Open(ctx context.Context, cfg *config.Config) (store.Store, error) {
	cfg.Logger.Debug("opening store", "backend", cfg.Settings.Backend)

	var (
		st  store.Store
		err error
	)
	switch cfg.Settings.Backend {
	case config.BackendFirestore:
		st, err = firestore.New(ctx, cfg)
	case config.BackendGoogleTasks:
		st, err = googletasks.New(ctx, cfg)
	case config.BackendMySQL:
		st, err = mysql.New(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown backend: %q", cfg.Settings.Backend)
	}
	if err != nil {
		return nil, err
	}
	return st, nil
}
