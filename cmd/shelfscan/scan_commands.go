package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"shelfscan/internal/app"
	"shelfscan/internal/book"
	"shelfscan/internal/catalog"
	"shelfscan/internal/scan"
)

func newScanCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "scan <isbn>",
		Short: "Resolve a barcode and add the book to the library",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd.Context(), cmd.ErrOrStderr(), func(a *app.App) error {
				record, err := a.Scans.Scan(cmd.Context(), args[0])
				if err != nil {
					return describeScanError(args[0], err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Added %s\n", describeRecord(record))
				return nil
			})
		},
	}
}

func newLookupCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "lookup <isbn>",
		Short: "Resolve a barcode without saving it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd.Context(), cmd.ErrOrStderr(), func(a *app.App) error {
				record, err := a.Scans.Lookup(cmd.Context(), args[0])
				if err != nil {
					return describeScanError(args[0], err)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "ISBN:   %s\n", record.Identifier())
				fmt.Fprintf(out, "Title:  %s\n", record.Title())
				fmt.Fprintf(out, "Author: %s\n", record.Contributor())
				if cover, ok := record.CoverImageURL(); ok {
					fmt.Fprintf(out, "Cover:  %s\n", cover)
				}
				return nil
			})
		},
	}
}

func describeRecord(record book.Record) string {
	return fmt.Sprintf("%q by %s (%s)", record.Title(), record.Contributor(), record.Identifier())
}

func describeScanError(code string, err error) error {
	switch {
	case errors.Is(err, scan.ErrEmptyIdentifier):
		return errors.New("no barcode given")
	case errors.Is(err, catalog.ErrNotFound):
		return fmt.Errorf("no catalog entry for %s", code)
	case errors.Is(err, catalog.ErrTimedOut):
		return fmt.Errorf("lookup for %s took too long; check your network connection", code)
	default:
		return err
	}
}
