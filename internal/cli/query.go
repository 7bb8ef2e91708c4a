package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/starford/hypo/internal/index"
	"github.com/starford/hypo/internal/note"
)

func lsCommand() *cli.Command {
	return &cli.Command{
		Name:  "ls",
		Usage: "List note ids, optionally filtered",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "grep", Usage: "keep notes whose body contains this substring"},
			&cli.BoolFlag{Name: "orphans", Usage: "keep notes with no links in or out"},
			&cli.BoolFlag{Name: "with-titles", Usage: "print id and title, tab-separated"},
			&cli.StringFlag{Name: "format", Usage: "output format: json"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			format := cmd.String("format")
			if format != "" && format != "json" {
				return fmt.Errorf("unsupported format %q", format)
			}
			jsonOut := cmd.Bool("json") || format == "json"
			grep := cmd.String("grep")
			orphans := cmd.Bool("orphans")
			withTitles := cmd.Bool("with-titles")

			app, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			ids, err := app.Vault.IDs()
			if err != nil {
				return err
			}

			// The flat listing never touches the index; every filter
			// and title lookup does.
			var titles map[string]string
			if grep != "" || orphans || withTitles || jsonOut {
				db, err := freshIndex(app)
				if err != nil {
					return err
				}
				if grep != "" {
					hits, err := db.Grep(grep)
					if err != nil {
						return err
					}
					ids = intersect(ids, hits)
				}
				if orphans {
					hits, err := db.Orphans()
					if err != nil {
						return err
					}
					ids = intersect(ids, hits)
				}
				if withTitles || jsonOut {
					titles, err = db.Titles()
					if err != nil {
						return err
					}
				}
			}

			w := stdout(cmd)
			if jsonOut {
				type entry struct {
					ID    string `json:"id"`
					Title string `json:"title"`
				}
				out := make([]entry, 0, len(ids))
				for _, id := range ids {
					out = append(out, entry{ID: id, Title: titles[id]})
				}
				return writeJSON(w, out)
			}
			for _, id := range ids {
				if withTitles {
					fmt.Fprintf(w, "%s\t%s\n", id, titles[id])
					continue
				}
				fmt.Fprintln(w, id)
			}
			return nil
		},
	}
}

// intersect keeps base entries present in hits, preserving base order.
func intersect(base, hits []string) []string {
	set := make(map[string]struct{}, len(hits))
	for _, id := range hits {
		set[id] = struct{}{}
	}
	out := make([]string, 0, len(base))
	for _, id := range base {
		if _, ok := set[id]; ok {
			out = append(out, id)
		}
	}
	return out
}

func findCommand() *cli.Command {
	return &cli.Command{
		Name:      "find",
		Usage:     "Full-text search over note bodies and titles",
		ArgsUsage: "<query>",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "limit", Usage: "maximum results", Value: 50},
			&cli.BoolFlag{Name: "snippets", Usage: "print a matching snippet per hit"},
			&cli.BoolFlag{Name: "aliases", Usage: "also match alias substrings"},
			&cli.StringFlag{Name: "fields", Usage: "comma-separated columns for text output (id,title)"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			query := cmd.Args().First()
			if query == "" {
				return fmt.Errorf("missing required argument <query>")
			}
			app, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			db, err := freshIndex(app)
			if err != nil {
				return err
			}
			results, err := db.Search(query, int(cmd.Int("limit")))
			if err != nil {
				return err
			}

			if cmd.Bool("aliases") {
				hits, err := db.AliasMatches(query)
				if err != nil {
					return err
				}
				seen := make(map[string]struct{}, len(results))
				for _, r := range results {
					seen[r.ID] = struct{}{}
				}
				var titles map[string]string
				for _, id := range hits {
					if _, ok := seen[id]; ok {
						continue
					}
					if titles == nil {
						if titles, err = db.Titles(); err != nil {
							return err
						}
					}
					results = append(results, index.SearchResult{ID: id, Title: titles[id]})
				}
			}

			w := stdout(cmd)
			if cmd.Bool("json") {
				return writeJSON(w, results)
			}
			if fields := cmd.String("fields"); fields != "" {
				cols := strings.Split(fields, ",")
				for _, r := range results {
					row := make([]string, 0, len(cols))
					for _, col := range cols {
						switch strings.TrimSpace(col) {
						case "id":
							row = append(row, r.ID)
						case "title":
							row = append(row, r.Title)
						default:
							row = append(row, "")
						}
					}
					fmt.Fprintln(w, strings.Join(row, "\t"))
				}
				return nil
			}
			for _, r := range results {
				if cmd.Bool("snippets") && r.Snippet != "" {
					fmt.Fprintf(w, "%s\t%s\n", r.ID, r.Snippet)
					continue
				}
				fmt.Fprintln(w, r.ID)
			}
			return nil
		},
	}
}

func resolveCommand() *cli.Command {
	return &cli.Command{
		Name:      "resolve",
		Usage:     "Resolve an alias or title to a note id",
		ArgsUsage: "<text>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			text := cmd.Args().First()
			if text == "" {
				return fmt.Errorf("missing required argument <text>")
			}
			app, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			db, err := freshIndex(app)
			if err != nil {
				return err
			}
			res, err := db.Resolve(text)
			if err != nil {
				return err
			}

			if cmd.Bool("json") {
				if err := writeJSON(stdout(cmd), res); err != nil {
					return err
				}
				if res.Status != index.StatusResolved {
					return &ExitError{Code: 2}
				}
				return nil
			}

			switch res.Status {
			case index.StatusResolved:
				fmt.Fprintln(stdout(cmd), res.ID)
				return nil
			case index.StatusAmbiguous:
				if !cmd.Bool("quiet") {
					via := "title"
					if res.Via == "alias" {
						via = "aliases"
					}
					w := errOut(cmd)
					fmt.Fprintf(w, "Ambiguous: '%s' matches multiple notes via %s:\n", text, via)
					for _, c := range res.Candidates {
						printCandidate(w, c)
					}
				}
				return &ExitError{Code: 2}
			default:
				if !cmd.Bool("quiet") {
					w := errOut(cmd)
					fmt.Fprintf(w, "No exact match for '%s'. Candidates:\n", text)
					for _, c := range res.Candidates {
						printCandidate(w, c)
					}
				}
				return &ExitError{Code: 2}
			}
		},
	}
}

func printCandidate(w io.Writer, c index.Candidate) {
	if c.Alias != "" {
		fmt.Fprintf(w, "  %s\t%s (alias)\n", c.ID, c.Alias)
		return
	}
	fmt.Fprintf(w, "  %s\t%s\n", c.ID, c.Title)
}

func backrefsCommand() *cli.Command {
	return &cli.Command{
		Name:      "backrefs",
		Usage:     "Show notes linking to a note, with context",
		ArgsUsage: "<id>",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "context", Usage: "context lines around each link", Value: 2},
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

			db, err := freshIndex(app)
			if err != nil {
				return err
			}
			links, err := db.LinksIn(id)
			if err != nil {
				return err
			}
			ctxLines := int(cmd.Int("context"))

			type backref struct {
				Source  string `json:"source"`
				Start   int    `json:"start"`
				End     int    `json:"end"`
				Context string `json:"context"`
			}
			out := make([]backref, 0, len(links))
			for _, l := range links {
				n, err := app.Vault.Get(l.Src)
				if err != nil {
					continue
				}
				out = append(out, backref{
					Source:  l.Src,
					Start:   l.Start,
					End:     l.End,
					Context: note.ContextLines(n.Body, l.Start, l.End, ctxLines),
				})
			}

			w := stdout(cmd)
			if cmd.Bool("json") {
				return writeJSON(w, out)
			}
			for _, b := range out {
				if !cmd.Bool("quiet") {
					fmt.Fprintf(w, "\n%s:\n", b.Source)
				}
				for _, line := range strings.Split(strings.TrimRight(b.Context, "\n"), "\n") {
					fmt.Fprintln(w, "  "+line)
				}
			}
			return nil
		},
	}
}

func graphCommand() *cli.Command {
	return &cli.Command{
		Name:  "graph",
		Usage: "Print the link graph as JSON or DOT",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "dot", Usage: "emit a Graphviz digraph"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			app, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			db, err := freshIndex(app)
			if err != nil {
				return err
			}
			g, err := db.Graph()
			if err != nil {
				return err
			}

			w := stdout(cmd)
			if !cmd.Bool("dot") {
				return writeJSON(w, g)
			}
			fmt.Fprintln(w, "digraph vault {")
			fmt.Fprintln(w, "  rankdir=LR;")
			fmt.Fprintln(w, "  node [shape=box];")
			for _, n := range g.Nodes {
				label := n.Title
				if label == "" {
					label = n.ID
				}
				fmt.Fprintf(w, "  %q [label=%q];\n", n.ID, label)
			}
			for _, e := range g.Edges {
				fmt.Fprintf(w, "  %q -> %q;\n", e.Source, e.Target)
			}
			fmt.Fprintln(w, "}")
			return nil
		},
	}
}
