package main

import (
	"github.com/spf13/cobra"

	"shelfscan/internal/app"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd.Context(), cmd.ErrOrStderr(), func(a *app.App) error {
				if addr == "" {
					addr = a.Config.Server.Addr
				}
				return a.Serve(cmd.Context(), addr)
			})
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (defaults to server.addr)")
	return cmd
}
