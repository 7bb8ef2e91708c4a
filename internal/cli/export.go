package cli

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/starford/hypo/internal/export"
)

func exportCommand() *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Export the vault to a static site format",
		Commands: []*cli.Command{
			exportQuartzCommand(),
		},
	}
}

func exportQuartzCommand() *cli.Command {
	return &cli.Command{
		Name:      "quartz",
		Usage:     "Write Quartz pages, graph.json, and assets",
		ArgsUsage: "[outdir]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "assets-dir", Usage: "vault-relative directory of referenced assets to copy"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			app, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			outdir := cmd.Args().First()
			if outdir == "" {
				outdir = app.Config.Export.Quartz.Out
			}
			if outdir == "" {
				return fmt.Errorf("missing required argument <outdir>")
			}

			_, err = export.Quartz(app.Vault, export.Options{
				OutDir:    outdir,
				AssetsDir: cmd.String("assets-dir"),
				KatexAuto: app.Config.Export.Quartz.Katex.Auto,
			})
			if err != nil {
				return err
			}
			if !cmd.Bool("quiet") {
				fmt.Fprintln(stdout(cmd), "Exported to "+outdir)
			}
			return nil
		},
	}
}
