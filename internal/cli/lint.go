package cli

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/starford/hypo/internal/lint"
	"github.com/starford/hypo/internal/style"
)

func lintCommand() *cli.Command {
	return &cli.Command{
		Name:  "lint",
		Usage: "Check links, anchors, aliases, and frontmatter",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			app, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			findings, err := lint.Run(app.Vault)
			if err != nil {
				return err
			}

			if cmd.Bool("json") {
				if err := writeJSON(stdout(cmd), findings); err != nil {
					return err
				}
			} else if !cmd.Bool("quiet") {
				w := stdout(cmd)
				current := ""
				for _, f := range findings {
					if f.NoteID != current {
						fmt.Fprintf(w, "%s:\n", f.NoteID)
						current = f.NoteID
					}
					fmt.Fprintf(w, "  [%s] %s\n", styledSeverity(f.Severity), f.Message)
				}
			}

			if lint.HasErrors(findings) {
				return &ExitError{Code: 1}
			}
			return nil
		},
	}
}

func styledSeverity(sev string) string {
	switch sev {
	case lint.SeverityError:
		return style.Error(sev)
	case lint.SeverityWarn:
		return style.Warning(sev)
	default:
		return style.Dim(sev)
	}
}
