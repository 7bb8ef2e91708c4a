// Package cli assembles the hypo command tree over the app runtime.
// Commands print primary output to the root writer and return *ExitError
// for controlled exit codes; main maps everything else to "Error: ..."
// on stderr.
package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/starford/hypo/internal"
	"github.com/starford/hypo/internal/apperr"
	"github.com/starford/hypo/internal/index"
	"github.com/starford/hypo/internal/style"
)

// New builds the hypo root command.
func New() *cli.Command {
	return &cli.Command{
		Name:  "hypo",
		Usage: "plain-markdown zettelkasten with wiki links and a SQLite index",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Usage:   "path to config file (default: ./hypo.toml, <vault>/hypo.toml)",
				Sources: cli.EnvVars("HYPO_CONFIG"),
			},
			&cli.StringFlag{
				Name:    "vault",
				Usage:   "vault directory (overrides config)",
				Sources: cli.EnvVars("HYPO_VAULT"),
			},
			&cli.StringFlag{
				Name:  "db",
				Usage: "SQLite index path (overrides config)",
			},
			&cli.BoolFlag{
				Name:    "quiet",
				Aliases: []string{"q"},
				Usage:   "minimize output",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "machine-readable output",
			},
		},
		Commands: []*cli.Command{
			idCommand(),
			newCommand(),
			openCommand(),
			editCommand(),
			rmCommand(),
			lsCommand(),
			findCommand(),
			resolveCommand(),
			backrefsCommand(),
			graphCommand(),
			yankCommand(),
			locateCommand(),
			metaCommand(),
			lintCommand(),
			fmtCommand(),
			reindexCommand(),
			watchCommand(),
			doctorCommand(),
			exportCommand(),
			verifyAssetsCommand(),
		},
	}
}

// ExitError carries a process exit code and an optional message for
// stderr. Commands return it instead of calling os.Exit so tests can
// assert on codes.
type ExitError struct {
	Code int
	Msg  string
}

func (e *ExitError) Error() string { return e.Msg }

func notFound(id string) *ExitError {
	return &ExitError{Code: 1, Msg: fmt.Sprintf("Note %s not found", id)}
}

// asNotFound maps vault-level not-found errors onto the CLI message.
func asNotFound(err error, id string) error {
	if errors.Is(err, apperr.ErrNotFound) {
		return notFound(id)
	}
	return err
}

// stdinReader feeds interactive prompts; tests swap it out.
var stdinReader io.Reader = os.Stdin

// openApp assembles the runtime from the global flags of cmd's lineage.
func openApp(cmd *cli.Command) (*internal.App, error) {
	opts := []internal.Option{internal.WithQuiet(cmd.Bool("quiet"))}
	if path := cmd.String("config"); path != "" {
		opts = append(opts, internal.WithConfigPath(path))
	}
	if dir := cmd.String("vault"); dir != "" {
		opts = append(opts, internal.WithVaultDir(dir))
	}
	if path := cmd.String("db"); path != "" {
		opts = append(opts, internal.WithDBPath(path))
	}
	app, err := internal.Open(opts...)
	if err != nil {
		return nil, err
	}
	style.Enable(app.Config.UI.Colors && !cmd.Bool("json") && !cmd.Bool("quiet"))
	return app, nil
}

func stdout(cmd *cli.Command) io.Writer {
	if w := cmd.Root().Writer; w != nil {
		return w
	}
	return os.Stdout
}

func errOut(cmd *cli.Command) io.Writer {
	if w := cmd.Root().ErrWriter; w != nil {
		return w
	}
	return os.Stderr
}

// writeJSON pretty-prints v the way every --json surface does.
func writeJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// freshIndex opens the index and catches it up with edits made behind
// hypo's back, so queries never see stale rows.
func freshIndex(app *internal.App) (*index.DB, error) {
	db, err := app.Index()
	if err != nil {
		return nil, err
	}
	if _, err := index.Sync(db, app.Vault.Store(), index.SyncOptions{}, app.Logger); err != nil {
		return nil, err
	}
	return db, nil
}
