package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Connect opens the shared query pool. The change feed never uses this
// pool; it holds its own dedicated connection.
func Connect(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	cfg.MaxConns = 25
	cfg.MinConns = 2
	cfg.MaxConnLifetime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return pool, nil
}

// RunMigrations creates the alive_logs table and the trigger that announces
// every row change on the data_changes channel.
func RunMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS alive_logs (
			id BIGSERIAL PRIMARY KEY,
			code TEXT NOT NULL,
			title TEXT NOT NULL,
			description TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_alive_logs_code ON alive_logs(code)`,
		`CREATE OR REPLACE FUNCTION notify_data_change() RETURNS trigger AS $fn$
		DECLARE
			rec RECORD;
		BEGIN
			IF TG_OP = 'DELETE' THEN
				rec := OLD;
			ELSE
				rec := NEW;
			END IF;
			PERFORM pg_notify('data_changes', json_build_object(
				'table', TG_TABLE_NAME,
				'action', TG_OP,
				'data', row_to_json(rec),
				'code', rec.code
			)::text);
			RETURN rec;
		END;
		$fn$ LANGUAGE plpgsql`,
		`DROP TRIGGER IF EXISTS alive_logs_notify ON alive_logs`,
		`CREATE TRIGGER alive_logs_notify
			AFTER INSERT OR UPDATE OR DELETE ON alive_logs
			FOR EACH ROW EXECUTE FUNCTION notify_data_change()`,
	}

	for _, migration := range migrations {
		if _, err := pool.Exec(ctx, migration); err != nil {
			return fmt.Errorf("failed to run migration: %w", err)
		}
	}

	slog.Info("Database migrations completed")
	return nil
}
