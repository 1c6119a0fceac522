package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/CanAISolutions/canai-intent-build-sub000/internal/store"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the log tables in the configured SQL store",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("migrate"); err != nil {
			return err
		}

		ctx := cmd.Context()
		rec, err := store.Open(ctx, cfg.Store, nil)
		if err != nil {
			return eris.Wrap(err, "open store")
		}
		defer func() { _ = rec.Close() }()

		m, ok := rec.(store.Migrator)
		if !ok {
			return eris.Errorf("store driver %q does not support migrations", cfg.Store.Driver)
		}
		if err := m.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		zap.L().Info("migrations applied", zap.String("driver", cfg.Store.Driver))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
