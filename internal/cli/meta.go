package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"

	"github.com/starford/hypo/internal/noteservice"
)

func metaCommand() *cli.Command {
	return &cli.Command{
		Name:  "meta",
		Usage: "Read and write note frontmatter",
		Commands: []*cli.Command{
			metaGetCommand(),
			metaSetCommand(),
			metaUnsetCommand(),
			metaShowCommand(),
		},
	}
}

func metaGetCommand() *cli.Command {
	return &cli.Command{
		Name:      "get",
		Usage:     "Print metadata values",
		ArgsUsage: "<id> [key...]",
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

			n, err := app.Vault.Get(id)
			if err != nil {
				return asNotFound(err, id)
			}
			w := stdout(cmd)
			jsonOut := cmd.Bool("json")

			keys := cmd.Args().Tail()
			if len(keys) == 0 {
				if jsonOut {
					data, err := json.Marshal(n.Meta)
					if err != nil {
						return err
					}
					fmt.Fprintln(w, string(data))
					return nil
				}
				sorted := make([]string, 0, len(n.Meta))
				for k := range n.Meta {
					sorted = append(sorted, k)
				}
				sort.Strings(sorted)
				for _, k := range sorted {
					fmt.Fprintf(w, "%s=%v\n", k, n.Meta[k])
				}
				return nil
			}

			for _, k := range keys {
				v, ok := n.Meta[k]
				if !ok {
					if !cmd.Bool("quiet") {
						fmt.Fprintf(errOut(cmd), "Key '%s' not found\n", k)
					}
					continue
				}
				if jsonOut {
					data, err := json.Marshal(map[string]any{k: v})
					if err != nil {
						return err
					}
					fmt.Fprintln(w, string(data))
					continue
				}
				fmt.Fprintf(w, "%s=%v\n", k, v)
			}
			return nil
		},
	}
}

func metaSetCommand() *cli.Command {
	return &cli.Command{
		Name:      "set",
		Usage:     "Set metadata keys (values coerce from JSON, bool, number)",
		ArgsUsage: "<id> <key=value>...",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			id := cmd.Args().First()
			pairs := cmd.Args().Tail()
			if id == "" || len(pairs) == 0 {
				return fmt.Errorf("missing required arguments <id> <key=value>...")
			}
			app, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			values := make(map[string]any, len(pairs))
			for _, kv := range pairs {
				key, val, ok := strings.Cut(kv, "=")
				if !ok {
					return &ExitError{Code: 1, Msg: fmt.Sprintf("Invalid format: %s. Expected key=value", kv)}
				}
				values[strings.TrimSpace(key)] = noteservice.ParseMetaValue(strings.TrimSpace(val))
			}

			svc, err := app.Service()
			if err != nil {
				return err
			}
			if err := svc.SetMeta(ctx, id, values); err != nil {
				return asNotFound(err, id)
			}
			if !cmd.Bool("quiet") {
				fmt.Fprintln(stdout(cmd), "Updated metadata for "+id)
			}
			return nil
		},
	}
}

func metaUnsetCommand() *cli.Command {
	return &cli.Command{
		Name:      "unset",
		Usage:     "Remove metadata keys",
		ArgsUsage: "<id> <key>...",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			id := cmd.Args().First()
			keys := cmd.Args().Tail()
			if id == "" || len(keys) == 0 {
				return fmt.Errorf("missing required arguments <id> <key>...")
			}
			app, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			svc, err := app.Service()
			if err != nil {
				return err
			}
			removed, err := svc.UnsetMeta(ctx, id, keys)
			if err != nil {
				return asNotFound(err, id)
			}
			if cmd.Bool("quiet") {
				return nil
			}
			if len(removed) == 0 {
				fmt.Fprintln(stdout(cmd), "No keys removed")
				return nil
			}
			fmt.Fprintln(stdout(cmd), "Removed keys: "+strings.Join(removed, ", "))
			return nil
		},
	}
}

func metaShowCommand() *cli.Command {
	return &cli.Command{
		Name:      "show",
		Usage:     "Pretty-print a note's frontmatter as YAML",
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

			n, err := app.Vault.Get(id)
			if err != nil {
				return asNotFound(err, id)
			}
			if len(n.Meta) == 0 {
				fmt.Fprintln(stdout(cmd), "# No metadata")
				return nil
			}
			out, err := yaml.Marshal(n.Meta)
			if err != nil {
				return err
			}
			fmt.Fprint(stdout(cmd), string(out))
			return nil
		},
	}
}
