package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/push"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/aluiziolira/go-fashion-etl/config"
	"github.com/aluiziolira/go-fashion-etl/logging"
	"github.com/aluiziolira/go-fashion-etl/parser"
	"github.com/aluiziolira/go-fashion-etl/pipeline"
	"github.com/aluiziolira/go-fashion-etl/scraper"
	"github.com/aluiziolira/go-fashion-etl/storage/gsheet"
	"github.com/aluiziolira/go-fashion-etl/storage/postgres"
	"github.com/aluiziolira/go-fashion-etl/transform"
)

const (
	exitFatal             = 1
	exitDestinationFailed = 2
	pushJob               = "fashion_etl"
)

var errDestinationsFailed = errors.New("one or more destinations failed")

// flagKeys maps CLI flags to configuration keys.
var flagKeys = map[string]string{
	"base-url":       "base_url",
	"pages":          "pages",
	"parallel":       "parallel",
	"delay":          "delay",
	"timeout":        "timeout",
	"max-retries":    "max_retries",
	"retry-delay":    "retry_delay",
	"respect-robots": "respect_robots",
	"extractor":      "extractor",
	"exchange-rate":  "exchange_rate",
	"price-decimals": "price_decimals",
	"destinations":   "destinations",
	"output":         "output",
	"format":         "format",
	"sink-timeout":   "sink_timeout",
	"db-table":       "database.table",
	"spreadsheet-id": "sheets.spreadsheet_id",
	"credentials":    "sheets.credentials_file",
	"metrics-addr":   "metrics_addr",
	"pushgateway":    "pushgateway",
	"verbose":        "verbose",
}

func main() {
	os.Exit(execute(context.Background(), os.Args[1:]))
}

func execute(ctx context.Context, args []string) int {
	cmd := newRootCmd()
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(ctx)
	switch {
	case err == nil:
		return 0
	case errors.Is(err, errDestinationsFailed):
		return exitDestinationFailed
	default:
		fmt.Fprintln(os.Stderr, "error:", err)
		return exitFatal
	}
}

func newRootCmd() *cobra.Command {
	v := viper.New()
	var configFile string

	cmd := &cobra.Command{
		Use:           "fashion-etl",
		Short:         "Scrape the fashion catalog, clean it and load it into file, PostgreSQL and Google Sheets.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(v, configFile)
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg)
		},
	}

	d := config.DefaultConfig()
	flags := cmd.Flags()
	flags.StringVar(&configFile, "config", "", "Optional YAML configuration file")
	flags.String("base-url", d.BaseURL, "Catalog base URL (page 1)")
	flags.Int("pages", d.MaxPages, "Number of catalog pages to extract")
	flags.Int("parallel", d.Parallelism, "Maximum concurrent page fetches")
	flags.Duration("delay", d.Delay, "Minimum spacing between requests to the catalog")
	flags.Duration("timeout", d.Timeout, "Per-attempt request timeout")
	flags.Int("max-retries", d.MaxRetries, "Retries per page after the first attempt")
	flags.Duration("retry-delay", d.RetryDelay, "Fixed delay between attempts")
	flags.Bool("respect-robots", d.RespectRobotsTxt, "Respect robots.txt directives")
	flags.String("extractor", d.Extractor, "Card field extractor: fashion or attributes")
	flags.Float64("exchange-rate", d.ExchangeRate, "Source to local currency exchange rate")
	flags.Int("price-decimals", d.PriceDecimals, "Decimal places converted prices are rounded to")
	flags.StringSlice("destinations", d.Destinations, "Destinations to load: csv, postgres, sheets")
	flags.String("output", d.OutputFile, "Output file path")
	flags.String("format", d.OutputFormat, "Output format: csv, json, or dual")
	flags.Duration("sink-timeout", d.SinkTimeout, "Time budget per destination")
	flags.String("db-table", d.Database.Table, "PostgreSQL table name")
	flags.String("spreadsheet-id", d.Sheets.SpreadsheetID, "Target Google spreadsheet id")
	flags.String("credentials", d.Sheets.CredentialsFile, "Google service account credentials file")
	flags.String("metrics-addr", d.MetricsAddr, "Prometheus metrics listen address (e.g. :9090)")
	flags.String("pushgateway", d.PushGatewayURL, "Prometheus Pushgateway URL to push run metrics to")
	flags.BoolP("verbose", "v", d.Verbose, "Enable verbose logging")

	if err := bindFlags(v, flags); err != nil {
		panic(err)
	}
	return cmd
}

func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	for name, key := range flagKeys {
		flag := flags.Lookup(name)
		if flag == nil {
			return fmt.Errorf("flag %q is not defined", name)
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return fmt.Errorf("bind flag %q: %w", name, err)
		}
	}
	return nil
}

func run(ctx context.Context, cfg *config.Config) error {
	zl := logging.Setup(cfg.Verbose)
	defer func() { _ = zl.Sync() }()

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.Any("error", err))
		return fmt.Errorf("invalid configuration: %w", err)
	}

	registry := prometheus.NewRegistry()
	pipelineMetrics := pipeline.NewMetrics(registry)

	fields, err := parser.ForName(cfg.Extractor)
	if err != nil {
		return err
	}
	extractor, err := scraper.NewExtractor(cfg, parser.NewCardParser(fields), scraper.NewMetrics(registry))
	if err != nil {
		return fmt.Errorf("initialise extractor: %w", err)
	}
	transformer, err := transform.New(transform.Options{
		ExchangeRate:   cfg.ExchangeRate,
		PriceDecimals:  cfg.PriceDecimals,
		PriceCacheSize: cfg.PriceCacheSize,
	}, transform.NewMetrics(registry))
	if err != nil {
		return fmt.Errorf("initialise transformer: %w", err)
	}
	sinks, err := buildSinks(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	metricsServer := startMetricsServer(cfg.MetricsAddr, registry)
	defer shutdownMetricsServer(metricsServer)

	slog.Info("starting run",
		slog.String("base_url", cfg.BaseURL),
		slog.Int("pages", cfg.MaxPages),
		slog.Int("workers", cfg.Parallelism),
		slog.Any("destinations", cfg.Destinations),
	)

	p := pipeline.New(extractor, transformer, pipeline.NewLoader(cfg.SinkTimeout, pipelineMetrics, sinks...), pipelineMetrics)
	result, err := p.Run(ctx)
	if err != nil {
		slog.Error("run aborted", slog.Any("error", err))
		return err
	}

	printSummary(os.Stdout, result, cfg)
	pushMetrics(cfg.PushGatewayURL, registry)

	if !result.Report.AllSucceeded() {
		return errDestinationsFailed
	}
	return nil
}

func buildSinks(cfg *config.Config) ([]pipeline.Sink, error) {
	sinks := make([]pipeline.Sink, 0, len(cfg.Destinations))
	for _, name := range cfg.Destinations {
		switch name {
		case config.DestinationFile:
			sink, err := pipeline.NewFileSink(cfg.OutputFile, cfg.OutputFormat)
			if err != nil {
				return nil, err
			}
			sinks = append(sinks, sink)
		case config.DestinationPostgres:
			sinks = append(sinks, postgres.NewSink(cfg.Database))
		case config.DestinationSheets:
			sink, err := gsheet.NewSink(gsheet.Config{
				SpreadsheetID: cfg.Sheets.SpreadsheetID,
				Range:         cfg.Sheets.Range,
				ClearRange:    cfg.Sheets.ClearRange,
			}, gsheet.ServiceAccount(cfg.Sheets.CredentialsFile))
			if err != nil {
				return nil, err
			}
			sinks = append(sinks, sink)
		default:
			return nil, fmt.Errorf("unknown destination %q", name)
		}
	}
	return sinks, nil
}

func startMetricsServer(addr string, registry *prometheus.Registry) *http.Server {
	if addr == "" {
		return nil
	}
	server := &http.Server{
		Addr:              addr,
		Handler:           promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics server failed", slog.Any("error", err))
		}
	}()
	slog.Info("metrics server enabled", slog.String("addr", addr))
	return server
}

func shutdownMetricsServer(server *http.Server) {
	if server == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		slog.Error("metrics server shutdown failed", slog.Any("error", err))
	}
}

func pushMetrics(url string, registry *prometheus.Registry) {
	if url == "" {
		return
	}
	if err := push.New(url, pushJob).Gatherer(registry).Push(); err != nil {
		slog.Error("push metrics failed", slog.String("url", url), slog.Any("error", err))
		return
	}
	slog.Debug("metrics pushed", slog.String("url", url))
}
