package config

import "time"

// Config holds runtime settings for the client.
//
// Fields:
//   - DatabasePath: path (or DSN) of the local SQLite database.
//   - ServerURL: base URL of the sync server.
//   - SyncInterval: how often a periodic sync cycle runs.
//   - SyncDebounce: quiet period after a local write before syncing.
//   - MaxRejects: server rejections per record before giving up on it.
type Config struct {
	DatabasePath string
	ServerURL    string
	SyncInterval time.Duration
	SyncDebounce time.Duration
	MaxRejects   int
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.DatabasePath = "arcana.db"
	c.ServerURL = "http://127.0.0.1:8080"
	c.SyncInterval = 5 * time.Minute
	c.SyncDebounce = 2 * time.Second
	c.MaxRejects = 5
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
