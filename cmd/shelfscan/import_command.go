package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"shelfscan/internal/app"
	"shelfscan/internal/ingest"
)

func newImportCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Scan every ISBN listed in a file (one per line, - for stdin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			codes, err := readCodesFrom(args[0], cmd.InOrStdin())
			if err != nil {
				return err
			}
			return ctx.withApp(cmd.Context(), cmd.ErrOrStderr(), func(a *app.App) error {
				run, err := a.Imports.Run(cmd.Context(), codes)
				if run != nil {
					printRun(cmd.OutOrStdout(), run)
				}
				if err != nil {
					return err
				}
				if run.Processed() > 0 && run.Added == 0 {
					return fmt.Errorf("none of the %d codes could be added", run.Processed())
				}
				return nil
			})
		},
	}
}

func readCodesFrom(path string, stdin io.Reader) ([]string, error) {
	if path == "-" {
		return ingest.ReadCodes(stdin)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open import file: %w", err)
	}
	defer f.Close()
	return ingest.ReadCodes(f)
}

func printRun(out io.Writer, run *ingest.Run) {
	fmt.Fprintf(out, "Import %s: %s\n", run.ID, run.Status)
	fmt.Fprintf(out, "Added %d, not found %d, timed out %d, failed %d, skipped %d\n",
		run.Added, run.NotFound, run.TimedOut, run.Failed, run.Skipped)
	if len(run.Failures) == 0 {
		return
	}
	rows := make([][]string, 0, len(run.Failures))
	for _, f := range run.Failures {
		rows = append(rows, []string{f.ISBN, f.Reason})
	}
	fmt.Fprintln(out, renderTable([]string{"ISBN", "Reason"}, rows, nil, shouldColorize(out)))
}
