package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. ETL_PAGES or ETL_DATABASE_HOST.
const EnvPrefix = "ETL"

// envAliases maps config keys to the bare variable names used by the docker-compose setup.
var envAliases = map[string]string{
	"database.host":           "POSTGRES_HOST",
	"database.port":           "POSTGRES_PORT",
	"database.user":           "POSTGRES_USER",
	"database.password":       "POSTGRES_PASSWORD",
	"database.name":           "POSTGRES_DB",
	"sheets.spreadsheet_id":   "SPREADSHEET_ID",
	"sheets.credentials_file": "GOOGLE_APPLICATION_CREDENTIALS",
}

// Load resolves the configuration in increasing priority: defaults, the optional file at
// path, .env files, environment variables and finally any flags already bound to v.
func Load(v *viper.Viper, path string) (*Config, error) {
	if v == nil {
		v = viper.New()
	}
	if err := loadEnvFiles(); err != nil {
		return nil, err
	}

	setDefaults(v, DefaultConfig())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, alias := range envAliases {
		envKey := EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, envKey, alias); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", alias, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.normalize()
	return cfg, nil
}

func (c *Config) normalize() {
	c.OutputFormat = strings.ToLower(strings.TrimSpace(c.OutputFormat))
	c.Extractor = strings.ToLower(strings.TrimSpace(c.Extractor))

	destinations := make([]string, 0, len(c.Destinations))
	for _, d := range c.Destinations {
		for _, part := range strings.Split(d, ",") {
			part = strings.ToLower(strings.TrimSpace(part))
			if part != "" {
				destinations = append(destinations, part)
			}
		}
	}
	c.Destinations = destinations
}

// loadEnvFiles loads ENV_FILE if set, otherwise .env.local and .env. Missing files are ignored.
func loadEnvFiles() error {
	if envFile := os.Getenv("ENV_FILE"); envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load env file %s: %w", envFile, err)
		}
		return nil
	}

	for _, name := range []string{".env.local", ".env"} {
		if err := godotenv.Load(name); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", name, err)
		}
	}
	return nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("base_url", d.BaseURL)
	v.SetDefault("pages", d.MaxPages)
	v.SetDefault("page_path_format", d.PagePathFormat)
	v.SetDefault("card_selector", d.CardSelector)
	v.SetDefault("extractor", d.Extractor)
	v.SetDefault("parallel", d.Parallelism)
	v.SetDefault("delay", d.Delay)
	v.SetDefault("timeout", d.Timeout)
	v.SetDefault("max_retries", d.MaxRetries)
	v.SetDefault("retry_delay", d.RetryDelay)
	v.SetDefault("user_agent", d.UserAgent)
	v.SetDefault("respect_robots", d.RespectRobotsTxt)

	v.SetDefault("exchange_rate", d.ExchangeRate)
	v.SetDefault("price_decimals", d.PriceDecimals)
	v.SetDefault("price_cache_size", d.PriceCacheSize)

	v.SetDefault("destinations", d.Destinations)
	v.SetDefault("output", d.OutputFile)
	v.SetDefault("format", d.OutputFormat)
	v.SetDefault("sink_timeout", d.SinkTimeout)

	v.SetDefault("database.host", d.Database.Host)
	v.SetDefault("database.port", d.Database.Port)
	v.SetDefault("database.user", d.Database.User)
	v.SetDefault("database.password", d.Database.Password)
	v.SetDefault("database.name", d.Database.Name)
	v.SetDefault("database.sslmode", d.Database.SSLMode)
	v.SetDefault("database.table", d.Database.Table)
	v.SetDefault("database.create_table", d.Database.CreateTable)
	v.SetDefault("database.batch_size", d.Database.BatchSize)

	v.SetDefault("sheets.spreadsheet_id", d.Sheets.SpreadsheetID)
	v.SetDefault("sheets.range", d.Sheets.Range)
	v.SetDefault("sheets.credentials_file", d.Sheets.CredentialsFile)
	v.SetDefault("sheets.clear_range", d.Sheets.ClearRange)

	v.SetDefault("metrics_addr", d.MetricsAddr)
	v.SetDefault("pushgateway", d.PushGatewayURL)
	v.SetDefault("verbose", d.Verbose)
}
