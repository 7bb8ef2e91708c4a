package cli

import (
	"bufio"
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/starford/hypo/internal/note"
	"github.com/starford/hypo/internal/noteservice"
	"github.com/starford/hypo/internal/vault"
)

func idCommand() *cli.Command {
	return &cli.Command{
		Name:  "id",
		Usage: "Print a fresh random note id",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			app, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			id, err := app.IDGen.Generate()
			if err != nil {
				return err
			}
			fmt.Fprintln(stdout(cmd), id)
			return nil
		},
	}
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:  "new",
		Usage: "Create a note and print its id",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "title", Usage: "note title"},
			&cli.StringSliceFlag{Name: "meta", Usage: "frontmatter key=value, repeatable"},
			&cli.BoolFlag{Name: "edit", Usage: "open the new note in the editor"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			app, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			meta := make(map[string]any)
			for _, kv := range cmd.StringSlice("meta") {
				key, val, ok := strings.Cut(kv, "=")
				if !ok {
					return &ExitError{Code: 1, Msg: fmt.Sprintf("Invalid format: %s. Expected key=value", kv)}
				}
				meta[strings.TrimSpace(key)] = noteservice.ParseMetaValue(strings.TrimSpace(val))
			}

			svc, err := app.Service()
			if err != nil {
				return err
			}
			id, err := svc.Create(ctx, cmd.String("title"), meta)
			if err != nil {
				return err
			}
			if !cmd.Bool("quiet") {
				fmt.Fprintln(stdout(cmd), id)
			}
			if cmd.Bool("edit") {
				return editNote(ctx, app, id)
			}
			return nil
		},
	}
}

func openCommand() *cli.Command {
	return &cli.Command{
		Name:      "open",
		Usage:     "Print the raw markdown of a note",
		ArgsUsage: "<id>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			id := cmd.Args().First()
			if id == "" {
				return fmt.Errorf("missing required argument <id>")
			}
			app, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			raw, err := app.Vault.Raw(id)
			if err != nil {
				return asNotFound(err, id)
			}
			_, err = stdout(cmd).Write(raw)
			return err
		},
	}
}

func editCommand() *cli.Command {
	return &cli.Command{
		Name:      "edit",
		Usage:     "Edit a note in $VISUAL or $EDITOR",
		ArgsUsage: "<id>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			id := cmd.Args().First()
			if id == "" {
				return fmt.Errorf("missing required argument <id>")
			}
			app, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			ok, err := app.Vault.Exists(id)
			if err != nil {
				return err
			}
			if !ok {
				return notFound(id)
			}
			return editNote(ctx, app, id)
		},
	}
}

func rmCommand() *cli.Command {
	return &cli.Command{
		Name:      "rm",
		Usage:     "Delete a note and its index rows",
		ArgsUsage: "<id>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "yes", Usage: "skip confirmation"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			id := cmd.Args().First()
			if id == "" {
				return fmt.Errorf("missing required argument <id>")
			}
			app, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			ok, err := app.Vault.Exists(id)
			if err != nil {
				return err
			}
			if !ok {
				return notFound(id)
			}

			if !cmd.Bool("yes") {
				fmt.Fprintf(stdout(cmd), "Delete note %s? [y/N] ", id)
				line, _ := bufio.NewReader(stdinReader).ReadString('\n')
				switch strings.ToLower(strings.TrimSpace(line)) {
				case "y", "yes":
				default:
					fmt.Fprintln(stdout(cmd), "Aborted")
					return nil
				}
			}

			svc, err := app.Service()
			if err != nil {
				return err
			}
			if err := svc.Delete(ctx, id); err != nil {
				return asNotFound(err, id)
			}
			if !cmd.Bool("quiet") {
				fmt.Fprintln(stdout(cmd), "Deleted "+id)
			}
			return nil
		},
	}
}

func yankCommand() *cli.Command {
	return &cli.Command{
		Name:      "yank",
		Usage:     "Print a note or an anchored slice of it",
		ArgsUsage: "<id>[#heading-slug|#^label]",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "plain", Usage: "strip the outer fence lines from a fenced block"},
			&cli.IntFlag{Name: "context", Usage: "include N lines before and after", Value: 0},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			ref := cmd.Args().First()
			if ref == "" {
				return fmt.Errorf("missing required argument <ref>")
			}
			app, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			id, anchor := note.ParseRef(ref)
			n, err := app.Vault.Get(id)
			if err != nil {
				return asNotFound(err, id)
			}
			r, ok := n.Slice(anchor)
			if !ok {
				return &ExitError{Code: 1, Msg: fmt.Sprintf("Anchor %s not found in note %s", anchor.String(), id)}
			}

			text := n.Body[r.Start:r.End]
			if c := int(cmd.Int("context")); c > 0 {
				text = note.ContextLines(n.Body, r.Start, r.End, c)
			} else if cmd.Bool("plain") {
				text = stripFence(text)
			}
			fmt.Fprint(stdout(cmd), text)
			return nil
		},
	}
}

func locateCommand() *cli.Command {
	return &cli.Command{
		Name:      "locate",
		Usage:     "Print the file, byte range, and lines of a note or anchor",
		ArgsUsage: "<id>[#heading-slug|#^label]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "format", Usage: "output format: json or tsv", Value: "json"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			ref := cmd.Args().First()
			if ref == "" {
				return fmt.Errorf("missing required argument <ref>")
			}
			format := cmd.String("format")
			if cmd.Bool("json") {
				format = "json"
			}
			if format != "json" && format != "tsv" {
				return fmt.Errorf("unsupported format %q", format)
			}

			app, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			id, anchor := note.ParseRef(ref)
			n, err := app.Vault.Get(id)
			if err != nil {
				return asNotFound(err, id)
			}
			r, ok := n.Slice(anchor)
			if !ok {
				return &ExitError{Code: 1, Msg: fmt.Sprintf("Anchor %s not found in note %s", anchor.String(), id)}
			}

			path, err := filepath.Abs(filepath.Join(app.Vault.Root(), vault.FileName(id)))
			if err != nil {
				return err
			}
			startLine := note.LineNumber(n.Body, r.Start)
			endLine := note.LineNumber(n.Body, r.End)

			if format == "tsv" {
				_, err := fmt.Fprintf(stdout(cmd), "%s\t%s\t%d\t%d\t%d\t%d\n",
					id, path, r.Start, r.End, startLine, endLine)
				return err
			}

			loc := struct {
				ID    string     `json:"id"`
				Range note.Range `json:"range"`
				Lines struct {
					Start int `json:"start"`
					End   int `json:"end"`
				} `json:"lines"`
				Anchor *note.Anchor `json:"anchor,omitempty"`
				Path   string       `json:"path"`
			}{ID: id, Range: r, Anchor: anchor, Path: path}
			loc.Lines.Start = startLine
			loc.Lines.End = endLine
			return writeJSON(stdout(cmd), loc)
		},
	}
}

// stripFence removes the outermost fence lines from a fenced slice; text
// that is not a fenced block passes through unchanged.
func stripFence(s string) string {
	if !strings.HasPrefix(strings.TrimSpace(s), "```") {
		return s
	}
	lines := strings.SplitAfter(s, "\n")
	if n := len(lines); n > 0 && lines[n-1] == "" {
		lines = lines[:n-1]
	}
	for i := len(lines) - 1; i > 0; i-- {
		if strings.TrimSpace(lines[i]) == "```" {
			return strings.Join(lines[1:i], "")
		}
	}
	return s
}
