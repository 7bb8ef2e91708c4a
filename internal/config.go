package internal

import (
	"log/slog"
	"path/filepath"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Config represents the application configuration, merged from defaults,
// hypo.toml, and CLI flags (flags win).
type Config struct {
	App    AppConfig    `toml:"app"`
	Vault  VaultConfig  `toml:"vault"`
	ID     IDConfig     `toml:"id"`
	Export ExportConfig `toml:"export"`
	UI     UIConfig     `toml:"ui"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.Vault.Validate(); err != nil {
		return err
	}
	if err := c.ID.Validate(); err != nil {
		return err
	}
	return c.Export.Quartz.Validate()
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	LogLevel slog.Level `toml:"log_level"`
}

// VaultConfig locates the vault directory and its index database.
type VaultConfig struct {
	Root string `toml:"root"`
	DB   string `toml:"db"`
}

// Validate validates the vault configuration.
func (c *VaultConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Root, validation.Required),
	)
}

// DBPath returns the index database path. When unset it lives in a hidden
// state directory under the vault root.
func (c *VaultConfig) DBPath() string {
	if c.DB != "" {
		return c.DB
	}
	return filepath.Join(c.Root, ".hypo", "index.sqlite")
}

// IDConfig controls note id generation: ids are hex strings of Bytes
// random bytes.
type IDConfig struct {
	Bytes int `toml:"bytes"`
}

// Validate validates the id configuration.
func (c *IDConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Bytes, validation.Required, validation.Min(1), validation.Max(32)),
	)
}

// ExportConfig holds per-target export configuration.
type ExportConfig struct {
	Quartz QuartzConfig `toml:"quartz"`
}

// QuartzConfig configures the Quartz site export.
type QuartzConfig struct {
	Out   string      `toml:"out"`
	Katex KatexConfig `toml:"katex"`
}

// Validate validates the quartz export configuration.
func (c *QuartzConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Out, validation.Required),
	)
}

// KatexConfig controls math rendering detection on export.
type KatexConfig struct {
	Auto bool `toml:"auto"`
}

// UIConfig holds terminal output configuration.
type UIConfig struct {
	Colors bool `toml:"colors"`
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App:   AppConfig{LogLevel: slog.LevelWarn},
		Vault: VaultConfig{Root: "./vault"},
		ID:    IDConfig{Bytes: 6},
		Export: ExportConfig{
			Quartz: QuartzConfig{
				Out:   "site",
				Katex: KatexConfig{Auto: true},
			},
		},
		UI: UIConfig{Colors: true},
	}
}
