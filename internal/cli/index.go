package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/starford/hypo/internal"
	"github.com/starford/hypo/internal/index"
	"github.com/starford/hypo/internal/style"
)

func reindexCommand() *cli.Command {
	return &cli.Command{
		Name:  "reindex",
		Usage: "Build or repair the SQLite index",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "full", Usage: "drop and rebuild every row"},
			&cli.BoolFlag{Name: "hash", Usage: "verify content by SHA-256 instead of mtime and size"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			app, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			full := cmd.Bool("full")
			hash := cmd.Bool("hash")
			quiet := cmd.Bool("quiet")
			jsonOut := cmd.Bool("json")
			w := stdout(cmd)

			if !quiet && !jsonOut {
				fmt.Fprintf(w, "Reindexing vault... (full=%v, hash=%v)\n", full, hash)
			}

			db, err := app.Index()
			if err != nil {
				return err
			}
			res, err := index.Sync(db, app.Vault.Store(), index.SyncOptions{Full: full, Hash: hash}, app.Logger)
			if err != nil {
				return err
			}

			if jsonOut {
				return writeJSON(w, res)
			}
			if !quiet {
				fmt.Fprintf(w, "Scanned: %d\n", res.Scanned)
				fmt.Fprintf(w, "Dirty: %d\n", res.Dirty)
				fmt.Fprintf(w, "Inserted: %d\n", res.Inserted)
				fmt.Fprintf(w, "Updated: %d\n", res.Updated)
				fmt.Fprintf(w, "Removed: %d\n", res.Removed)
				if res.Failed > 0 {
					fmt.Fprintf(w, "Failed: %d\n", res.Failed)
				}
			}
			return nil
		},
	}
}

func watchCommand() *cli.Command {
	return &cli.Command{
		Name:  "watch",
		Usage: "Watch the vault and reindex changed notes in batches",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "debounce-ms", Usage: "quiet period before a batch flush", Value: 150},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			app, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			db, err := app.Index()
			if err != nil {
				return err
			}

			// Catch up before watching; a brand-new index gets a full build.
			known, err := db.AllIDs()
			if err != nil {
				return err
			}
			opts := index.SyncOptions{Full: len(known) == 0}
			if _, err := index.Sync(db, app.Vault.Store(), opts, app.Logger); err != nil {
				return err
			}

			w := stdout(cmd)
			quiet := cmd.Bool("quiet")
			jsonOut := cmd.Bool("json")
			onBatch := func(b index.BatchResult) {
				if jsonOut {
					data, err := json.Marshal(struct {
						Inserted int   `json:"inserted"`
						Updated  int   `json:"updated"`
						Removed  int   `json:"removed"`
						TookMs   int64 `json:"took_ms"`
					}{b.Inserted, b.Updated, b.Removed, b.Took.Milliseconds()})
					if err == nil {
						fmt.Fprintln(w, string(data))
					}
					return
				}
				if !quiet {
					fmt.Fprintf(w, "Indexed: +%d ~%d -%d (%dms)\n",
						b.Inserted, b.Updated, b.Removed, b.Took.Milliseconds())
				}
			}

			debounce := time.Duration(cmd.Int("debounce-ms")) * time.Millisecond
			return index.Watch(ctx, db, app.Vault.Store(), index.WatchOptions{Debounce: debounce}, app.Logger, onBatch)
		},
	}
}

type doctorCheck struct {
	Name   string `json:"name"`
	OK     bool   `json:"ok"`
	Detail string `json:"detail"`
}

type doctorReport struct {
	Checks          []doctorCheck     `json:"checks"`
	Counts          *index.StatCounts `json:"counts,omitempty"`
	Recommendations []string          `json:"recommendations,omitempty"`
}

func doctorCommand() *cli.Command {
	return &cli.Command{
		Name:  "doctor",
		Usage: "Diagnose the vault and index",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			app, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			w := stdout(cmd)
			jsonOut := cmd.Bool("json")
			var rep doctorReport
			issues := make(map[string]bool)

			pass := func(name, line string) {
				rep.Checks = append(rep.Checks, doctorCheck{Name: name, OK: true, Detail: line})
				if !jsonOut {
					fmt.Fprintf(w, "%s %s\n", style.Success("✓"), line)
				}
			}
			fail := func(name, issue, line string) {
				rep.Checks = append(rep.Checks, doctorCheck{Name: name, OK: false, Detail: line})
				issues[issue] = true
				if !jsonOut {
					fmt.Fprintf(w, "%s %s\n", style.Error("✗"), line)
				}
			}
			warn := func(name, line string) {
				rep.Checks = append(rep.Checks, doctorCheck{Name: name, OK: true, Detail: line})
				if !jsonOut {
					fmt.Fprintf(w, "%s %s\n", style.Warning("⚠"), line)
				}
			}

			checkVault(app, pass, fail)
			dbOK := checkDatabase(app, pass, fail)
			checkParseSample(app, pass, fail, warn)

			if dbOK {
				db, err := app.Index()
				if err == nil {
					if counts, err := db.Stats(); err == nil {
						rep.Counts = &counts
						if !jsonOut {
							fmt.Fprintln(w, "\nCounts:")
							fmt.Fprintf(w, "  Notes: %d\n", counts.Notes)
							fmt.Fprintf(w, "  Links: %d\n", counts.Links)
							fmt.Fprintf(w, "  Orphans: %d\n", counts.Orphans)
						}
					}
				}
			}

			if issues["db_missing"] || issues["schema_check_failed"] || issues["schema_version_missing"] {
				rep.Recommendations = append(rep.Recommendations, "Run: hypo reindex --full")
			}
			if issues["parse_errors"] {
				rep.Recommendations = append(rep.Recommendations, "Check notes for syntax errors")
			}

			if jsonOut {
				if err := writeJSON(w, rep); err != nil {
					return err
				}
			} else if len(issues) > 0 {
				fmt.Fprintln(w, "\nRecommendations:")
				for _, r := range rep.Recommendations {
					fmt.Fprintln(w, "  "+r)
				}
			} else {
				fmt.Fprintf(w, "\n%s All checks passed\n", style.Success("✓"))
			}

			if len(issues) > 0 {
				return &ExitError{Code: 1}
			}
			return nil
		},
	}
}

func checkVault(app *internal.App, pass func(string, string), fail func(string, string, string)) {
	root := app.Vault.Root()
	info, err := os.Stat(root)
	switch {
	case err != nil:
		fail("vault", "vault_missing", "Vault does not exist: "+root)
		return
	case !info.IsDir():
		fail("vault", "vault_not_dir", "Vault is not a directory: "+root)
		return
	}
	pass("vault", "Vault exists: "+root)

	probe := filepath.Join(root, ".hypo_test_write")
	f, err := os.Create(probe)
	if err != nil {
		fail("vault_writable", "vault_not_writable", "Vault is not writable: "+err.Error())
		return
	}
	f.Close()
	os.Remove(probe)
	pass("vault_writable", "Vault is writable")
}

func checkDatabase(app *internal.App, pass func(string, string), fail func(string, string, string)) bool {
	path := app.Config.Vault.DBPath()
	if _, err := os.Stat(path); err != nil {
		fail("database", "db_missing", "Database does not exist: "+path)
		return false
	}
	pass("database", "Database exists: "+path)

	db, err := app.Index()
	if err != nil {
		fail("schema", "schema_check_failed", "Failed to check schema: "+err.Error())
		return false
	}
	version, err := db.SchemaVersion()
	if err != nil {
		fail("schema", "schema_version_missing", "Schema version not found")
		return true
	}
	pass("schema", fmt.Sprintf("Schema version: %d", version))
	return true
}

func checkParseSample(app *internal.App, pass func(string, string), fail func(string, string, string), warn func(string, string)) {
	ids, err := app.Vault.IDs()
	if err != nil {
		fail("parse_sample", "parse_errors", "Failed to list vault: "+err.Error())
		return
	}
	if len(ids) == 0 {
		warn("parse_sample", "No notes found in vault")
		return
	}

	sample := make([]string, len(ids))
	copy(sample, ids)
	rand.Shuffle(len(sample), func(i, j int) { sample[i], sample[j] = sample[j], sample[i] })
	if len(sample) > 10 {
		sample = sample[:10]
	}

	failures := 0
	for _, id := range sample {
		if _, err := app.Vault.Get(id); err != nil {
			failures++
		}
	}
	if failures == 0 {
		pass("parse_sample", fmt.Sprintf("Sampled %d notes, all parsed successfully", len(sample)))
		return
	}
	fail("parse_sample", "parse_errors", fmt.Sprintf("Failed to parse %d/%d sampled notes", failures, len(sample)))
}
