// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/starford/hypo/internal/idgen"
	"github.com/starford/hypo/internal/index"
	"github.com/starford/hypo/internal/noteservice"
	"github.com/starford/hypo/internal/storage"
	"github.com/starford/hypo/internal/vault"
	"github.com/starford/hypo/pkg/config"
)

// App wires the vault, id generator, and index together for one command
// invocation.
type App struct {
	Config *Config
	Logger *slog.Logger
	Vault  *vault.Vault
	IDGen  *idgen.Generator

	db *index.DB
}

// Open assembles the application. Configuration resolves in order:
// explicit path, ./hypo.toml, <vault>/hypo.toml, built-in defaults; flag
// options override file values. The index database opens lazily on first
// use so commands that only read files never touch it.
func Open(opts ...Option) (*App, error) {
	st := &settings{cfg: NewDefaultConfig()}
	for _, opt := range opts {
		opt(st)
	}

	if st.configPath != "" {
		// An explicitly named config file must exist.
		if err := config.Load(st.configPath, st.cfg); err != nil {
			return nil, err
		}
	} else {
		root := st.cfg.Vault.Root
		if st.vaultDir != "" {
			root = st.vaultDir
		}
		paths := []string{"hypo.toml", filepath.Join(root, "hypo.toml")}
		if _, err := config.LoadFirst(paths, st.cfg); err != nil {
			return nil, err
		}
	}

	if st.vaultDir != "" {
		st.cfg.Vault.Root = st.vaultDir
	}
	if st.dbPath != "" {
		st.cfg.Vault.DB = st.dbPath
	}
	if err := st.cfg.Validate(); err != nil {
		return nil, err
	}

	logger := st.logger
	if logger == nil {
		level := st.cfg.App.LogLevel
		if st.quiet {
			level = slog.LevelError
		}
		// Diagnostics go to stderr as JSON; stdout belongs to command
		// output.
		logger = slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	}
	slog.SetDefault(logger)

	if err := os.MkdirAll(st.cfg.Vault.Root, 0o755); err != nil {
		return nil, fmt.Errorf("create vault dir: %w", err)
	}
	store, err := storage.NewFS(st.cfg.Vault.Root)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}
	v := vault.New(store)

	return &App{
		Config: st.cfg,
		Logger: logger,
		Vault:  v,
		IDGen:  idgen.New(st.cfg.ID.Bytes, v.Exists),
	}, nil
}

// Index returns the index database, opening it on first use.
func (a *App) Index() (*index.DB, error) {
	if a.db != nil {
		return a.db, nil
	}
	path := a.Config.Vault.DBPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create index dir: %w", err)
	}
	db, err := index.Open(path)
	if err != nil {
		return nil, fmt.Errorf("init index: %w", err)
	}
	a.db = db
	return db, nil
}

// Service returns the mutation facade over the vault and index.
func (a *App) Service() (*noteservice.Service, error) {
	db, err := a.Index()
	if err != nil {
		return nil, err
	}
	return noteservice.New(a.Vault, db, a.IDGen, a.Logger), nil
}

// Close releases the index database if it was opened.
func (a *App) Close() error {
	if a.db == nil {
		return nil
	}
	err := a.db.Close()
	a.db = nil
	return err
}
