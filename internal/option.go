package internal

import "log/slog"

// Option is a functional option for configuring the application.
type Option func(*settings)

type settings struct {
	cfg        *Config
	configPath string
	vaultDir   string
	dbPath     string
	quiet      bool
	logger     *slog.Logger
}

// WithConfigPath names an explicit config file; loading fails when it
// does not exist, unlike the implicit resolution chain.
func WithConfigPath(path string) Option {
	return func(s *settings) {
		s.configPath = path
	}
}

// WithVaultDir overrides the vault root directory.
func WithVaultDir(dir string) Option {
	return func(s *settings) {
		s.vaultDir = dir
	}
}

// WithDBPath overrides the index database path.
func WithDBPath(path string) Option {
	return func(s *settings) {
		s.dbPath = path
	}
}

// WithQuiet lowers logging to errors only.
func WithQuiet(quiet bool) Option {
	return func(s *settings) {
		s.quiet = quiet
	}
}

// WithLogger replaces the default stderr JSON logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *settings) {
		s.logger = logger
	}
}
