package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"shelfscan/internal/app"
)

func newMigrateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:       "migrate [up|down|status]",
		Short:     "Apply or inspect library schema migrations",
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"up", "down", "status"},
		RunE: func(cmd *cobra.Command, args []string) error {
			command := "up"
			if len(args) == 1 {
				command = args[0]
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.logger(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			if err := app.Migrate(cmd.Context(), cfg.Library, command, logger); err != nil {
				return err
			}
			if command != "status" {
				fmt.Fprintf(cmd.OutOrStdout(), "Migrations %s complete (%s)\n", command, cfg.Library.Backend)
			}
			return nil
		},
	}
}
