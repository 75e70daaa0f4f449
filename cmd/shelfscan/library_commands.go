package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"shelfscan/internal/app"
	"shelfscan/internal/book"
	"shelfscan/internal/library"
	"shelfscan/internal/scan"
)

func newListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Show the library, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd.Context(), cmd.ErrOrStderr(), func(a *app.App) error {
				records, err := a.Scans.Library(cmd.Context())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(records) == 0 {
					fmt.Fprintln(out, "Library is empty")
					return nil
				}
				fmt.Fprintln(out, renderLibrary(records, shouldColorize(out)))
				fmt.Fprintln(out, scan.CountLabel(len(records)))
				return nil
			})
		},
	}
}

func renderLibrary(records []book.Record, colorize bool) string {
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		_, hasCover := r.CoverImageURL()
		rows = append(rows, []string{
			r.RegisteredAt().Local().Format("2006-01-02 15:04"),
			r.Identifier(),
			r.Title(),
			r.Contributor(),
			yesNo(hasCover),
		})
	}
	return renderTable(
		[]string{"Added", "ISBN", "Title", "Author", "Cover"},
		rows,
		[]columnAlignment{alignLeft, alignRight, alignLeft, alignLeft, alignLeft},
		colorize,
	)
}

func newDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <isbn>",
		Short: "Remove a book from the library",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd.Context(), cmd.ErrOrStderr(), func(a *app.App) error {
				record, err := a.Scans.Delete(cmd.Context(), args[0])
				if errors.Is(err, library.ErrNotFound) {
					return fmt.Errorf("%s is not in the library", args[0])
				}
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %q\n", record.Title())
				return nil
			})
		},
	}
}

func newClearCommand(ctx *commandContext) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove every book from the library",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errors.New("refusing to clear the library without --yes")
			}
			return ctx.withApp(cmd.Context(), cmd.ErrOrStderr(), func(a *app.App) error {
				removed, err := a.Scans.Clear(cmd.Context())
				if errors.Is(err, scan.ErrLibraryEmpty) {
					fmt.Fprintln(cmd.OutOrStdout(), "Library is already empty")
					return nil
				}
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", scan.CountLabel(removed))
				return nil
			})
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Confirm removal of every book")
	return cmd
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
