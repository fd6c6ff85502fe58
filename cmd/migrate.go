package cmd

import (
	"context"

	"rental/internal/db"
	"rental/internal/utils"

	"github.com/spf13/cobra"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			a, err := bootstrap(ctx, false)
			if err != nil {
				return err
			}
			defer a.Close(context.Background())

			if err := db.Migrate(ctx, a.db); err != nil {
				return err
			}
			utils.LogEvent("", "migrate", "up", "schema up to date")
			return nil
		},
	}
}
