package cli

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/starford/hypo/internal/assets"
	"github.com/starford/hypo/internal/style"
)

func verifyAssetsCommand() *cli.Command {
	return &cli.Command{
		Name:  "verify-assets",
		Usage: "Check that every referenced asset file exists",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "hashes", Usage: "compute SHA-256 for each existing asset"},
			&cli.BoolFlag{Name: "write-sidecars", Usage: "write <file>.sha256 sidecars"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			app, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			rep, err := assets.Verify(app.Vault, assets.Options{
				Hashes:        cmd.Bool("hashes") || cmd.Bool("write-sidecars"),
				WriteSidecars: cmd.Bool("write-sidecars"),
			})
			if err != nil {
				return err
			}

			w := stdout(cmd)
			if cmd.Bool("json") {
				if err := writeJSON(w, rep); err != nil {
					return err
				}
			} else if !cmd.Bool("quiet") {
				fmt.Fprintf(w, "Refs: %d\n", rep.TotalRefs)
				for _, m := range rep.Missing {
					fmt.Fprintf(w, "%s %s: %s\n", style.Error("✗"), m.NoteID, m.AssetPath)
				}
				if len(rep.Dangling) > 0 {
					fmt.Fprintln(w, "Dangling files:")
					for _, f := range rep.Dangling {
						fmt.Fprintln(w, "  "+f)
					}
				}
				if len(rep.Missing) == 0 && len(rep.Dangling) == 0 {
					fmt.Fprintf(w, "%s All assets present\n", style.Success("✓"))
				}
			}

			if len(rep.Missing) > 0 {
				return &ExitError{Code: 1}
			}
			return nil
		},
	}
}
