// Package postgres appends the clean dataset to a PostgreSQL table.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/aluiziolira/go-fashion-etl/config"
	"github.com/aluiziolira/go-fashion-etl/models"
)

const (
	defaultBatchSize   = 500
	defaultMaxOpenConn = 4
	defaultConnMaxLife = 5 * time.Minute
)

// Options controls how rows are written.
type Options struct {
	Table       string
	CreateTable bool
	BatchSize   int
}

// Sink inserts every record inside a single transaction. A failed attempt
// rolls back and leaves the table unchanged.
type Sink struct {
	opts    Options
	connect func(ctx context.Context) (*sqlx.DB, error)
	ownsDB  bool
}

// NewSink returns a sink that opens its own connection from cfg on every Persist.
func NewSink(cfg config.DatabaseConfig) *Sink {
	return &Sink{
		opts: Options{Table: cfg.Table, CreateTable: cfg.CreateTable, BatchSize: cfg.BatchSize},
		connect: func(ctx context.Context) (*sqlx.DB, error) {
			return Connect(ctx, cfg)
		},
		ownsDB: true,
	}
}

// NewSinkWithDB returns a sink writing through an existing handle. The caller keeps ownership of db.
func NewSinkWithDB(db *sqlx.DB, opts Options) *Sink {
	return &Sink{
		opts:    opts,
		connect: func(context.Context) (*sqlx.DB, error) { return db, nil },
	}
}

// Connect opens and pings a PostgreSQL connection.
func Connect(ctx context.Context, cfg config.DatabaseConfig) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", DSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("connect to %s:%d/%s: %w", cfg.Host, cfg.Port, cfg.Name, err)
	}
	db.SetMaxOpenConns(defaultMaxOpenConn)
	db.SetConnMaxLifetime(defaultConnMaxLife)
	return db, nil
}

// DSN renders the lib/pq connection string.
func DSN(cfg config.DatabaseConfig) string {
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Name, sslMode,
	)
}

// Name implements pipeline.Sink.
func (s *Sink) Name() string { return "postgres" }

// EnsureSchema creates the target table when it does not exist yet.
func (s *Sink) EnsureSchema(ctx context.Context, db *sqlx.DB) error {
	if _, err := db.ExecContext(ctx, createTableQuery(s.opts.Table)); err != nil {
		return fmt.Errorf("create table %s: %w", s.opts.Table, err)
	}
	return nil
}

// Persist implements pipeline.Sink.
func (s *Sink) Persist(ctx context.Context, records []models.CleanRecord) (err error) {
	db, err := s.connect(ctx)
	if err != nil {
		return err
	}
	if s.ownsDB {
		defer db.Close()
	}

	if s.opts.CreateTable {
		if err := s.EnsureSchema(ctx, db); err != nil {
			return err
		}
	}
	if len(records) == 0 {
		return nil
	}

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err == nil {
			return
		}
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, context.Canceled) {
			slog.Error("rollback failed", slog.String("table", s.opts.Table), slog.Any("error", rbErr))
		}
	}()

	query := insertQuery(s.opts.Table)
	batch := s.opts.BatchSize
	if batch <= 0 {
		batch = defaultBatchSize
	}
	for start := 0; start < len(records); start += batch {
		end := min(start+batch, len(records))
		if _, err := sqlx.NamedExecContext(ctx, tx, query, records[start:end]); err != nil {
			return fmt.Errorf("insert rows %d-%d: %w", start, end-1, describe(err))
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func createTableQuery(table string) string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id SERIAL PRIMARY KEY,
	title TEXT NOT NULL,
	price NUMERIC(18, 2) NOT NULL CHECK (price >= 0),
	rating NUMERIC(3, 1) NOT NULL CHECK (rating BETWEEN 0 AND 5),
	colors INTEGER NOT NULL CHECK (colors >= 0),
	size VARCHAR(8) NOT NULL,
	gender VARCHAR(16) NOT NULL,
	timestamp TIMESTAMPTZ NOT NULL
)`, pq.QuoteIdentifier(table))
}

func insertQuery(table string) string {
	return fmt.Sprintf(
		`INSERT INTO %s (title, price, rating, colors, size, gender, timestamp) VALUES (:title, :price, :rating, :colors, :size, :gender, :timestamp)`,
		pq.QuoteIdentifier(table),
	)
}

// describe surfaces the constraint name of a server-side violation.
func describe(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Constraint != "" {
		return fmt.Errorf("constraint %s: %w", pqErr.Constraint, err)
	}
	return err
}
