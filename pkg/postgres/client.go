// Package postgres opens lib/pq connection pools and applies versioned
// schema migrations.
package postgres

import (
	"cmp"
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"slices"
	"time"

	_ "github.com/lib/pq"

	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/resilience"
)

const pingTimeout = 5 * time.Second

// migrationLock is the advisory lock key held while migrating, so replicas
// starting together apply each version once.
const migrationLock int64 = 0x646f6373

const (
	createMigrationsSQL = `CREATE TABLE IF NOT EXISTS schema_migrations (
		version    INTEGER PRIMARY KEY,
		applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`
	lockMigrationsSQL    = `SELECT pg_advisory_xact_lock($1)`
	appliedMigrationsSQL = `SELECT version FROM schema_migrations`
	recordMigrationSQL   = `INSERT INTO schema_migrations (version) VALUES ($1)`
)

// Migration is one schema step. Versions must be unique and positive.
type Migration struct {
	Version int
	SQL     string
}

type Client struct {
	DB     *sql.DB
	cfg    config.PostgresConfig
	logger *slog.Logger
}

// New opens the pool and waits for the server, retrying the first ping
// with backoff.
func New(ctx context.Context, cfg config.PostgresConfig) (*Client, error) {
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("opening postgres connection: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	c := &Client{
		DB:     db,
		cfg:    cfg,
		logger: logger.WithComponent("postgres").With("host", cfg.Host, "database", cfg.Database),
	}
	err = resilience.Retry(ctx, "postgres ping", resilience.RetryConfig{MaxAttempts: 3, InitialDelay: 500 * time.Millisecond}, func(int) error {
		return c.Ping(ctx)
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return c, nil
}

func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := c.DB.PingContext(ctx); err != nil {
		return fmt.Errorf("pinging postgres at %s:%d: %w", c.cfg.Host, c.cfg.Port, err)
	}
	return nil
}

// Migrate applies the migrations not yet recorded in schema_migrations, in
// version order, inside one transaction.
func (c *Client) Migrate(ctx context.Context, migrations []Migration) error {
	if err := checkMigrations(migrations); err != nil {
		return err
	}
	return c.InTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, lockMigrationsSQL, migrationLock); err != nil {
			return fmt.Errorf("locking migrations: %w", err)
		}
		if _, err := tx.ExecContext(ctx, createMigrationsSQL); err != nil {
			return fmt.Errorf("creating schema_migrations: %w", err)
		}
		applied, err := appliedVersions(ctx, tx)
		if err != nil {
			return err
		}
		for _, m := range pending(migrations, applied) {
			if _, err := tx.ExecContext(ctx, m.SQL); err != nil {
				return fmt.Errorf("migration %d: %w", m.Version, err)
			}
			if _, err := tx.ExecContext(ctx, recordMigrationSQL, m.Version); err != nil {
				return fmt.Errorf("recording migration %d: %w", m.Version, err)
			}
			c.logger.Info("migration applied", "version", m.Version)
		}
		return nil
	})
}

func appliedVersions(ctx context.Context, tx *sql.Tx) (map[int]bool, error) {
	rows, err := tx.QueryContext(ctx, appliedMigrationsSQL)
	if err != nil {
		return nil, fmt.Errorf("reading schema_migrations: %w", err)
	}
	defer rows.Close()
	applied := make(map[int]bool)
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		applied[v] = true
	}
	return applied, rows.Err()
}

func checkMigrations(migrations []Migration) error {
	seen := make(map[int]bool, len(migrations))
	for _, m := range migrations {
		if m.Version < 1 {
			return fmt.Errorf("migration version %d must be positive", m.Version)
		}
		if seen[m.Version] {
			return fmt.Errorf("duplicate migration version %d", m.Version)
		}
		seen[m.Version] = true
	}
	return nil
}

func pending(migrations []Migration, applied map[int]bool) []Migration {
	var out []Migration
	for _, m := range migrations {
		if !applied[m.Version] {
			out = append(out, m)
		}
	}
	slices.SortFunc(out, func(a, b Migration) int { return cmp.Compare(a.Version, b.Version) })
	return out
}

// InTx commits when fn returns nil and rolls back otherwise, including
// when fn panics.
func (c *Client) InTx(ctx context.Context, fn func(tx *sql.Tx) error) (err error) {
	tx, err := c.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback: %v)", err, rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

func (c *Client) Close() error {
	return c.DB.Close()
}
