package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name: "negative parallelism",
			mutate: func(cfg *Config) {
				cfg.Parallelism = -1
			},
			wantErr: "parallelism",
		},
		{
			name: "zero max pages",
			mutate: func(cfg *Config) {
				cfg.MaxPages = 0
			},
			wantErr: "max pages",
		},
		{
			name: "empty base url",
			mutate: func(cfg *Config) {
				cfg.BaseURL = ""
			},
			wantErr: "base URL",
		},
		{
			name: "invalid url format",
			mutate: func(cfg *Config) {
				cfg.BaseURL = "http://"
			},
			wantErr: "base URL",
		},
		{
			name: "negative timeout",
			mutate: func(cfg *Config) {
				cfg.Timeout = -1 * time.Second
			},
			wantErr: "timeout",
		},
		{
			name: "page format without index",
			mutate: func(cfg *Config) {
				cfg.PagePathFormat = "page"
			},
			wantErr: "page path format",
		},
		{
			name: "zero exchange rate",
			mutate: func(cfg *Config) {
				cfg.ExchangeRate = 0
			},
			wantErr: "exchange rate",
		},
		{
			name: "unknown destination",
			mutate: func(cfg *Config) {
				cfg.Destinations = []string{"csv", "s3"}
			},
			wantErr: "unknown destination",
		},
		{
			name: "no destinations",
			mutate: func(cfg *Config) {
				cfg.Destinations = nil
			},
			wantErr: "destination",
		},
		{
			name: "missing database user",
			mutate: func(cfg *Config) {
				cfg.Database.User = ""
			},
			wantErr: "database user",
		},
		{
			name: "table name injection",
			mutate: func(cfg *Config) {
				cfg.Database.Table = "products; DROP TABLE x"
			},
			wantErr: "valid identifier",
		},
		{
			name: "missing spreadsheet id",
			mutate: func(cfg *Config) {
				cfg.Sheets.SpreadsheetID = ""
			},
			wantErr: "spreadsheet id",
		},
		{
			name: "bad output format",
			mutate: func(cfg *Config) {
				cfg.OutputFormat = "xml"
			},
			wantErr: "output format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestValidateSkipsCredentialsOfDisabledSinks(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Destinations = []string{DestinationFile}
	cfg.Database.User = ""
	cfg.Sheets.SpreadsheetID = ""

	if err := cfg.Validate(); err != nil {
		t.Fatalf("file-only config should validate, got %v", err)
	}
}

func TestDefaultConfigNeedsSpreadsheetID(t *testing.T) {
	cfg := DefaultConfig()
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "spreadsheet id") {
		t.Fatalf("default config must require a spreadsheet id, got %v", err)
	}

	cfg.Sheets.SpreadsheetID = "sheet-123"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config with spreadsheet id should validate, got %v", err)
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load(viper.New(), "")
	require.NoError(t, err)

	want := DefaultConfig()
	assert.Equal(t, want.BaseURL, cfg.BaseURL)
	assert.Equal(t, want.MaxPages, cfg.MaxPages)
	assert.Equal(t, want.Delay, cfg.Delay)
	assert.Equal(t, want.ExchangeRate, cfg.ExchangeRate)
	assert.Equal(t, want.Destinations, cfg.Destinations)
	assert.Equal(t, want.Database.Table, cfg.Database.Table)
}

func TestLoadFileAndEnvironment(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	path := filepath.Join(dir, "etl.yaml")
	yaml := `pages: 7
exchange_rate: 15000
retry_delay: 500ms
destinations: [csv, postgres]
database:
  table: products
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	t.Setenv("ETL_MAX_RETRIES", "5")
	t.Setenv("POSTGRES_HOST", "db.internal")
	t.Setenv("POSTGRES_PORT", "6543")

	cfg, err := Load(viper.New(), path)
	require.NoError(t, err)

	assert.Equal(t, 7, cfg.MaxPages)
	assert.Equal(t, 15000.0, cfg.ExchangeRate)
	assert.Equal(t, 500*time.Millisecond, cfg.RetryDelay)
	assert.Equal(t, 5, cfg.MaxRetries)
	assert.Equal(t, []string{"csv", "postgres"}, cfg.Destinations)
	assert.Equal(t, "products", cfg.Database.Table)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, 6543, cfg.Database.Port)
	assert.Equal(t, "postgres", cfg.Database.User)
	require.NoError(t, cfg.Validate())
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	// register restore hooks, then clear so the .env values are applied
	for _, key := range []string{"ETL_DESTINATIONS", "SPREADSHEET_ID"} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("ETL_DESTINATIONS=csv,sheets\nSPREADSHEET_ID=abc123\n"), 0o600))

	cfg, err := Load(viper.New(), "")
	require.NoError(t, err)

	assert.Equal(t, []string{"csv", "sheets"}, cfg.Destinations)
	assert.Equal(t, "abc123", cfg.Sheets.SpreadsheetID)
}

func TestLoadMissingFile(t *testing.T) {
	t.Chdir(t.TempDir())
	_, err := Load(viper.New(), "does-not-exist.yaml")
	require.Error(t, err)
}

func validConfig() *Config {
	cfg := DefaultConfig()
	cfg.Sheets.SpreadsheetID = "sheet-123"
	return cfg
}
