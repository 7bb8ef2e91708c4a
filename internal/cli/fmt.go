package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/starford/hypo/internal/format"
)

func fmtCommand() *cli.Command {
	return &cli.Command{
		Name:      "fmt",
		Usage:     "Report or repair canonical note formatting",
		ArgsUsage: "[id...]",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "dry-run", Usage: "report only, never write"},
			&cli.BoolFlag{Name: "confirm", Usage: "write repaired notes back (atomic)"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			app, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			ids := cmd.Args().Slice()
			if len(ids) == 0 {
				if ids, err = app.Vault.IDs(); err != nil {
					return err
				}
			}

			write := cmd.Bool("confirm") && !cmd.Bool("dry-run")
			quiet := cmd.Bool("quiet")
			w := stdout(cmd)

			var results []format.Result
			failed := false
			for _, id := range ids {
				raw, err := app.Vault.Raw(id)
				if err != nil {
					return asNotFound(err, id)
				}
				res, err := format.FormatNote(id, raw)
				if err != nil {
					failed = true
					fmt.Fprintf(errOut(cmd), "Error: %s: %v\n", id, err)
					continue
				}
				results = append(results, res)
			}

			written := 0
			if write {
				svc, err := app.Service()
				if err != nil {
					return err
				}
				for _, res := range results {
					if !res.Changed {
						continue
					}
					if err := svc.Update(ctx, res.NoteID, res.Output); err != nil {
						return err
					}
					written++
				}
			}

			changed := 0
			for _, res := range results {
				if !res.Changed {
					continue
				}
				changed++
				if !quiet {
					fmt.Fprintf(w, "%s: %s\n", res.NoteID, strings.Join(res.Changes, ", "))
				}
			}
			if !quiet {
				switch {
				case write:
					fmt.Fprintf(w, "Formatted %d notes\n", written)
				case changed > 0:
					fmt.Fprintln(w, "Run with --confirm to write changes")
				}
			}

			if failed {
				return &ExitError{Code: 1}
			}
			return nil
		},
	}
}
