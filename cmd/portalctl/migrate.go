package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

func migrateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create tables (postgres) or indexes (mongo)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.with(cmd, func(ctx context.Context, rt *runtime, out io.Writer) error {
				if err := rt.stores.Migrate(ctx); err != nil {
					return fmt.Errorf("migrate %s: %w", rt.stores.Driver, err)
				}
				if a.jsonOut {
					return writeJSON(out, map[string]string{"driver": rt.stores.Driver, "status": "migrated"})
				}
				fmt.Fprintf(out, "%s schema is up to date\n", rt.stores.Driver)
				return nil
			})
		},
	}
}
