package main

import (
	"path/filepath"
	"testing"

	"github.com/sells-group/lead-dedup/internal/config"
)

// useTestConfig installs a config with a throwaway SQLite ledger for the
// duration of the test.
func useTestConfig(t *testing.T) *config.Config {
	t.Helper()
	prev := cfg
	cfg = &config.Config{
		Dedup: config.DedupConfig{
			Exact:      true,
			Fuzzy:      true,
			Threshold:  80,
			BatchSize:  5000,
			MaxWorkers: 2,
		},
		Validation: config.ValidationConfig{ValidMode: "both"},
		Cache:      config.CacheConfig{TTLMinutes: 60, MaxItems: 100},
		Store: config.StoreConfig{
			Driver:      "sqlite",
			DatabaseURL: filepath.Join(t.TempDir(), "ledger.db"),
		},
		Server: config.ServerConfig{Port: 8080, RateLimit: 100, RateBurst: 100, MaxBodyMB: 1},
		Log:    config.LogConfig{Level: "info", Format: "json"},
	}
	t.Cleanup(func() { cfg = prev })
	return cfg
}

const scenarioCSV = "business_name,phone,email,location\n" +
	"Café Sol,+52 55 1234 5678,a@sol.com,\n" +
	"Cafe Sol,5255 12345678,a@sol.com,\n" +
	"Ferretería Norte,+57 300 123 4567,ventas@norte.co,Bogotá\n"

const scenarioJSON = `{"records":[
	{"business_name":"Café Sol","phone":"+52 55 1234 5678","email":"a@sol.com"},
	{"business_name":"Cafe Sol","phone":"5255 12345678","email":"a@sol.com"},
	{"business_name":"Ferretería Norte","phone":"+57 300 123 4567","email":"ventas@norte.co","location":"Bogotá"}
]}`
