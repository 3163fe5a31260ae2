package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"kairo-backend/internal/config"
	"kairo-backend/internal/db"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending Postgres migrations and create Mongo indexes",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			pool, err := db.ConnectPostgres(ctx, cfg.DatabaseURL)
			if err != nil {
				return fmt.Errorf("postgres: %w", err)
			}
			defer pool.Close()

			applied, err := db.Migrate(ctx, pool)
			if err != nil {
				return err
			}
			for _, name := range applied {
				fmt.Fprintf(cmd.OutOrStdout(), "applied %s\n", name)
			}
			if len(applied) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "postgres schema up to date")
			}

			client, cols, err := db.Connect(ctx, cfg.MongoURI, cfg.MongoDB)
			if err != nil {
				return fmt.Errorf("mongo: %w", err)
			}
			defer client.Disconnect(context.Background())

			if err := db.EnsureIndexes(ctx, cols); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "mongo indexes ensured")
			return nil
		},
	}
}
