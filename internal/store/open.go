package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/CanAISolutions/canai-intent-build-sub000/internal/config"
	"github.com/CanAISolutions/canai-intent-build-sub000/internal/reqclient"
)

// Open returns the Recorder selected by cfg.Driver. client is only used by
// the supabase driver.
func Open(ctx context.Context, cfg config.StoreConfig, client *reqclient.Client) (Recorder, error) {
	switch cfg.Driver {
	case config.DriverNone, "":
		return NoopStore{}, nil
	case config.DriverPostgres:
		s, err := NewPostgres(ctx, cfg.DatabaseURL, nil)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.DriverSQLite:
		s, err := NewSQLite(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.DriverSupabase:
		s, err := NewSupabase(cfg.SupabaseURL, cfg.SupabaseKey, client)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, eris.Errorf("store: unknown driver %q", cfg.Driver)
	}
}
