// Package config loads environment-driven configuration for the
// TeamSnap integration, consumed once at startup.
package config

import (
	"fmt"
	"log"
	"os"
	"runtime"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/alexjbarnes/teamsnap-mcp/internal/auth"
)

// Config holds all environment-based configuration.
type Config struct {
	// AccessToken, when set, overrides the persisted token store: the
	// tool server uses it directly and never touches the OAuth flow.
	AccessToken string `env:"TEAMSNAP_ACCESS_TOKEN"`

	// ReadOnly controls the write gate on the tool client. Defaults to
	// true: writes must be opted into.
	ReadOnly bool `env:"TEAMSNAP_READONLY" envDefault:"true"`

	// CredentialsFile is the path to the YAML file holding client
	// credentials and the persisted token. Defaults to
	// ~/.teamsnap/credentials.yml.
	CredentialsFile string `env:"TEAMSNAP_CREDENTIALS_FILE"`

	// Scope is the OAuth scope requested during authorization.
	Scope string `env:"TEAMSNAP_SCOPE" envDefault:"read write"`

	// WatchCredentials enables the fsnotify watcher that reloads the
	// credentials file when the auth CLI rewrites it.
	WatchCredentials bool `env:"TEAMSNAP_WATCH_CREDENTIALS" envDefault:"true"`

	// SnapshotPath is the bbolt database the API monitor stores
	// snapshots in. Defaults to ~/.teamsnap/snapshots.db.
	SnapshotPath string `env:"TEAMSNAP_SNAPSHOT_DB"`

	// Environment controls log format.
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
}

// warnInsecureEnvFile checks whether the .env file (if present) has
// overly permissive permissions. On Unix systems, group or world
// readable files risk exposing credentials to other users.
func warnInsecureEnvFile() {
	if runtime.GOOS == "windows" {
		return
	}

	info, err := os.Stat(".env")
	if err != nil {
		return // file does not exist, nothing to check
	}

	mode := info.Mode().Perm()
	if mode&0o077 != 0 {
		log.Printf("WARNING: .env file has insecure permissions %04o; recommended 0600", mode)
	}
}

// Load reads configuration from environment variables. It first
// attempts to load a .env file if present, then parses env vars.
func Load() (*Config, error) {
	_ = godotenv.Load()

	warnInsecureEnvFile()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if cfg.CredentialsFile == "" {
		path, err := auth.DefaultCredentialsPath()
		if err != nil {
			return nil, fmt.Errorf("resolving credentials path: %w", err)
		}

		cfg.CredentialsFile = path
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Scope == "" {
		return fmt.Errorf("TEAMSNAP_SCOPE must not be empty")
	}

	return nil
}

// IsProduction returns true when the environment is set to production.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
