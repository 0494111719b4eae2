// internal/db/migrations.go
package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type migration struct {
	version int
	name    string
	sql     string
}

// migrations are applied in order, each in its own transaction. Never edit
// an applied entry; append a new one.
var migrations = []migration{
	{
		version: 1,
		name:    "reference tables",
		sql: `
			CREATE TABLE IF NOT EXISTS territories (
				id         BIGSERIAL PRIMARY KEY,
				name       TEXT NOT NULL,
				code       TEXT,
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			);

			CREATE TABLE IF NOT EXISTS sales_reps (
				id           BIGSERIAL PRIMARY KEY,
				name         TEXT NOT NULL,
				email        TEXT NOT NULL UNIQUE,
				territory_id BIGINT REFERENCES territories(id) ON DELETE SET NULL,
				rep_type     TEXT NOT NULL DEFAULT 'sales_rep'
					CHECK (rep_type IN ('sales_rep', 'medical_rep')),
				created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
			);

			CREATE TABLE IF NOT EXISTS hcps (
				id         BIGSERIAL PRIMARY KEY,
				name       TEXT NOT NULL,
				area_tag   TEXT,
				specialty  TEXT,
				phone      TEXT,
				email      TEXT,
				segment    TEXT,
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			);

			CREATE TABLE IF NOT EXISTS pharmacies (
				id         BIGSERIAL PRIMARY KEY,
				name       TEXT NOT NULL,
				city       TEXT,
				area       TEXT,
				phone      TEXT,
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			);

			CREATE TABLE IF NOT EXISTS user_territories (
				user_email   TEXT NOT NULL,
				territory_id BIGINT NOT NULL REFERENCES territories(id) ON DELETE CASCADE,
				PRIMARY KEY (user_email, territory_id)
			);
		`,
	},
	{
		version: 2,
		name:    "visits",
		sql: `
			CREATE TABLE IF NOT EXISTS visits (
				id               BIGSERIAL PRIMARY KEY,
				visit_date       DATE NOT NULL,
				status           TEXT NOT NULL CHECK (status IN ('scheduled', 'completed', 'cancelled')),
				duration_minutes INTEGER NOT NULL CHECK (duration_minutes >= 0),
				rep_id           BIGINT NOT NULL REFERENCES sales_reps(id),
				territory_id     BIGINT NOT NULL REFERENCES territories(id),
				is_deleted       BOOLEAN NOT NULL DEFAULT FALSE,
				account_type     TEXT CHECK (account_type IN ('hcp', 'pharmacy')),
				hcp_id           BIGINT REFERENCES hcps(id),
				pharmacy_id      BIGINT REFERENCES pharmacies(id),
				notes            TEXT,
				commitment_text  TEXT,
				visit_purpose    TEXT,
				visit_channel    TEXT,
				products_json    TEXT,
				next_visit_date  DATE,
				order_value_jod  NUMERIC(12, 2) CHECK (order_value_jod >= 0),
				rating           INTEGER CHECK (rating BETWEEN 1 AND 5),
				start_location   JSONB,
				end_location     JSONB,
				created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				updated_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				CONSTRAINT visits_date_rep_hcp_key UNIQUE (visit_date, rep_id, hcp_id),
				CONSTRAINT visits_single_account CHECK (hcp_id IS NULL OR pharmacy_id IS NULL)
			);

			CREATE INDEX IF NOT EXISTS idx_visits_rep_date ON visits (rep_id, visit_date);
			CREATE INDEX IF NOT EXISTS idx_visits_territory ON visits (territory_id);
			CREATE INDEX IF NOT EXISTS idx_visits_hcp ON visits (hcp_id);
		`,
	},
}

// Migrate applies every migration newer than the recorded schema version.
func Migrate(ctx context.Context, pool *pgxpool.Pool, logger *zap.Logger) error {
	if _, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version    INTEGER PRIMARY KEY,
			name       TEXT NOT NULL,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`); err != nil {
		return fmt.Errorf("failed to create schema_migrations: %w", err)
	}

	var current int
	if err := pool.QueryRow(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&current); err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		if err := applyMigration(ctx, pool, m); err != nil {
			return err
		}
		logger.Info("migration applied", zap.Int("version", m.version), zap.String("name", m.name))
	}
	return nil
}

func applyMigration(ctx context.Context, pool *pgxpool.Pool, m migration) error {
	return pgx.BeginFunc(ctx, pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, m.sql); err != nil {
			return fmt.Errorf("failed to apply migration %d (%s): %w", m.version, m.name, err)
		}
		if _, err := tx.Exec(ctx, `INSERT INTO schema_migrations (version, name) VALUES ($1, $2)`, m.version, m.name); err != nil {
			return fmt.Errorf("failed to record migration %d: %w", m.version, err)
		}
		return nil
	})
}
