package config

import (
	"encoding/json"
	"os"
	"time"

	"arcana/internal/flagx"
	"arcana/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. It relies on
// timex.Duration so JSON can specify intervals either as strings like "5m" or
// as integer nanoseconds.
type JsonConfig struct {
	DatabasePath string         `json:"database_path"`
	ServerURL    string         `json:"server_url"`
	SyncInterval timex.Duration `json:"sync_interval"`
	SyncDebounce timex.Duration `json:"sync_debounce"`
	MaxRejects   int            `json:"max_rejects"`
}

// parseJson overlays Config with values loaded from a JSON file selected via
// the -c or -config flags. Zero fields in the file keep their current value.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	if jc.DatabasePath != "" {
		cfg.DatabasePath = jc.DatabasePath
	}
	if jc.ServerURL != "" {
		cfg.ServerURL = jc.ServerURL
	}
	if jc.SyncInterval.Duration > 0 {
		cfg.SyncInterval = time.Duration(jc.SyncInterval.Duration)
	}
	if jc.SyncDebounce.Duration > 0 {
		cfg.SyncDebounce = time.Duration(jc.SyncDebounce.Duration)
	}
	if jc.MaxRejects > 0 {
		cfg.MaxRejects = jc.MaxRejects
	}
}
