package config

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"
)

// Destination names accepted in Config.Destinations.
const (
	DestinationFile     = "csv"
	DestinationPostgres = "postgres"
	DestinationSheets   = "sheets"
)

var knownDestinations = map[string]struct{}{
	DestinationFile:     {},
	DestinationPostgres: {},
	DestinationSheets:   {},
}

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// DatabaseConfig holds the relational sink credentials.
type DatabaseConfig struct {
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`
	User        string `mapstructure:"user"`
	Password    string `mapstructure:"password"` //nolint:gosec // DB connection config
	Name        string `mapstructure:"name"`
	SSLMode     string `mapstructure:"sslmode"`
	Table       string `mapstructure:"table"`
	CreateTable bool   `mapstructure:"create_table"`
	BatchSize   int    `mapstructure:"batch_size"`
}

// SheetsConfig holds the spreadsheet sink settings.
type SheetsConfig struct {
	SpreadsheetID   string `mapstructure:"spreadsheet_id"`
	Range           string `mapstructure:"range"`
	CredentialsFile string `mapstructure:"credentials_file"`
	ClearRange      bool   `mapstructure:"clear_range"`
}

// Config holds the run configuration. It is read once at start-up and treated as immutable.
type Config struct {
	BaseURL          string        `mapstructure:"base_url"`
	MaxPages         int           `mapstructure:"pages"`
	PagePathFormat   string        `mapstructure:"page_path_format"`
	CardSelector     string        `mapstructure:"card_selector"`
	Extractor        string        `mapstructure:"extractor"`
	Parallelism      int           `mapstructure:"parallel"`
	Delay            time.Duration `mapstructure:"delay"`
	Timeout          time.Duration `mapstructure:"timeout"`
	MaxRetries       int           `mapstructure:"max_retries"`
	RetryDelay       time.Duration `mapstructure:"retry_delay"`
	UserAgent        string        `mapstructure:"user_agent"`
	RespectRobotsTxt bool          `mapstructure:"respect_robots"`

	ExchangeRate   float64 `mapstructure:"exchange_rate"`
	PriceDecimals  int     `mapstructure:"price_decimals"`
	PriceCacheSize int     `mapstructure:"price_cache_size"`

	Destinations []string      `mapstructure:"destinations"`
	OutputFile   string        `mapstructure:"output"`
	OutputFormat string        `mapstructure:"format"` // csv, json, or dual
	SinkTimeout  time.Duration `mapstructure:"sink_timeout"`

	Database DatabaseConfig `mapstructure:"database"`
	Sheets   SheetsConfig   `mapstructure:"sheets"`

	MetricsAddr    string `mapstructure:"metrics_addr"`
	PushGatewayURL string `mapstructure:"pushgateway"`
	Verbose        bool   `mapstructure:"verbose"`
}

// DefaultConfig returns the defaults for the fashion catalog target.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:          "https://fashion-studio.dicoding.dev/",
		MaxPages:         50,
		PagePathFormat:   "page%d",
		CardSelector:     "div.collection-card",
		Extractor:        "fashion",
		Parallelism:      4,
		Delay:            2 * time.Second,
		Timeout:          30 * time.Second,
		MaxRetries:       3,
		RetryDelay:       2 * time.Second,
		UserAgent:        "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/96.0.4664.110 Safari/537.36",
		RespectRobotsTxt: false,

		ExchangeRate:   16000,
		PriceDecimals:  1,
		PriceCacheSize: 1024,

		Destinations: []string{DestinationFile, DestinationPostgres, DestinationSheets},
		OutputFile:   "output/fashion_data.csv",
		OutputFormat: "csv",
		SinkTimeout:  2 * time.Minute,

		Database: DatabaseConfig{
			Host:        "localhost",
			Port:        5432,
			User:        "postgres",
			Password:    "postgres",
			Name:        "fashion_db",
			SSLMode:     "disable",
			Table:       "fashion_products",
			CreateTable: true,
			BatchSize:   500,
		},
		Sheets: SheetsConfig{
			Range:           "Sheet1!A1",
			CredentialsFile: "google-sheets-api.json",
			ClearRange:      true,
		},
	}
}

// HasDestination reports whether name is among the configured destinations.
func (c *Config) HasDestination(name string) bool {
	for _, d := range c.Destinations {
		if strings.EqualFold(strings.TrimSpace(d), name) {
			return true
		}
	}
	return false
}

// Validate ensures all configuration values are coherent.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("base URL cannot be empty")
	}

	parsedURL, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid base URL: %w", err)
	}
	if parsedURL.Host == "" {
		return fmt.Errorf("base URL must include a host")
	}

	if c.MaxPages <= 0 {
		return fmt.Errorf("max pages must be positive")
	}
	if !strings.Contains(c.PagePathFormat, "%d") {
		return fmt.Errorf("page path format must contain %%d")
	}
	if strings.TrimSpace(c.CardSelector) == "" {
		return fmt.Errorf("card selector cannot be empty")
	}
	if c.Extractor != "fashion" && c.Extractor != "attributes" {
		return fmt.Errorf("extractor must be fashion or attributes")
	}
	if c.Parallelism <= 0 {
		return fmt.Errorf("parallelism must be positive")
	}
	if c.Delay < 0 {
		return fmt.Errorf("delay cannot be negative")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max retries cannot be negative")
	}
	if c.RetryDelay < 0 {
		return fmt.Errorf("retry delay cannot be negative")
	}
	if c.UserAgent == "" {
		return fmt.Errorf("user agent cannot be empty")
	}

	if c.ExchangeRate <= 0 {
		return fmt.Errorf("exchange rate must be positive")
	}
	if c.PriceDecimals < 0 || c.PriceDecimals > 6 {
		return fmt.Errorf("price decimals must be between 0 and 6")
	}
	if c.PriceCacheSize < 0 {
		return fmt.Errorf("price cache size cannot be negative")
	}

	if len(c.Destinations) == 0 {
		return fmt.Errorf("at least one destination is required")
	}
	for _, d := range c.Destinations {
		if _, ok := knownDestinations[strings.ToLower(strings.TrimSpace(d))]; !ok {
			return fmt.Errorf("unknown destination %q", d)
		}
	}
	if c.SinkTimeout <= 0 {
		return fmt.Errorf("sink timeout must be positive")
	}

	if c.HasDestination(DestinationFile) {
		if c.OutputFile == "" {
			return fmt.Errorf("output file cannot be empty")
		}
		if c.OutputFormat != "csv" && c.OutputFormat != "json" && c.OutputFormat != "dual" {
			return fmt.Errorf("output format must be csv, json, or dual")
		}
	}

	if c.HasDestination(DestinationPostgres) {
		if err := c.Database.validate(); err != nil {
			return err
		}
	}

	if c.HasDestination(DestinationSheets) {
		if c.Sheets.SpreadsheetID == "" {
			return fmt.Errorf("sheets spreadsheet id is required")
		}
		if c.Sheets.CredentialsFile == "" {
			return fmt.Errorf("sheets credentials file is required")
		}
		if c.Sheets.Range == "" {
			return fmt.Errorf("sheets range cannot be empty")
		}
	}

	return nil
}

func (d DatabaseConfig) validate() error {
	if d.Host == "" {
		return fmt.Errorf("database host is required")
	}
	if d.Port <= 0 || d.Port > 65535 {
		return fmt.Errorf("database port %d out of range", d.Port)
	}
	if d.User == "" {
		return fmt.Errorf("database user is required")
	}
	if d.Name == "" {
		return fmt.Errorf("database name is required")
	}
	if !identifierPattern.MatchString(d.Table) {
		return fmt.Errorf("database table %q is not a valid identifier", d.Table)
	}
	if d.BatchSize <= 0 {
		return fmt.Errorf("database batch size must be positive")
	}
	return nil
}
