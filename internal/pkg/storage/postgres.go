package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/lib/pq"
)

// Connect opens and pings the Postgres database behind the catalogue.
func Connect(dsn string) (*sql.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres DSN is required")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres connection: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)

	slog.Info("storage: postgres connected")
	return db, nil
}

// Migrate creates the schema. Migrations are additive: snapshot column
// additions never rewrite existing rows.
func Migrate(db *sql.DB) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS teams (
			id BIGSERIAL PRIMARY KEY,
			label VARCHAR(500) NOT NULL,
			sport VARCHAR(100) NOT NULL,
			league VARCHAR(500) NOT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT NOW(),
			UNIQUE(label, sport, league)
		)`,

		`CREATE TABLE IF NOT EXISTS matches (
			id BIGSERIAL PRIMARY KEY,
			external_key VARCHAR(200) UNIQUE NOT NULL,
			home_team_id BIGINT NOT NULL REFERENCES teams(id),
			away_team_id BIGINT NOT NULL REFERENCES teams(id),
			sport VARCHAR(100) NOT NULL,
			league VARCHAR(500) NOT NULL,
			home_score INTEGER NOT NULL DEFAULT 0,
			away_score INTEGER NOT NULL DEFAULT 0,
			status VARCHAR(20) NOT NULL,
			minute INTEGER,
			temperature DOUBLE PRECISION,
			humidity DOUBLE PRECISION,
			start_time TIMESTAMP,
			created_at TIMESTAMP NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMP NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_matches_status ON matches(status)`,
		`CREATE INDEX IF NOT EXISTS idx_matches_sport ON matches(sport)`,
		`CREATE INDEX IF NOT EXISTS idx_matches_league ON matches(league)`,
		`CREATE INDEX IF NOT EXISTS idx_matches_updated_at ON matches(updated_at)`,

		`CREATE TABLE IF NOT EXISTS market_snapshots (
			id BIGSERIAL PRIMARY KEY,
			match_id BIGINT NOT NULL REFERENCES matches(id),
			observed_at TIMESTAMP NOT NULL,
			status VARCHAR(20) NOT NULL,
			minute INTEGER,
			home_score INTEGER NOT NULL DEFAULT 0,
			away_score INTEGER NOT NULL DEFAULT 0,
			odds_1 NUMERIC(10, 4),
			odds_x NUMERIC(10, 4),
			odds_2 NUMERIC(10, 4),
			odds_dc_1x NUMERIC(10, 4),
			odds_dc_x2 NUMERIC(10, 4),
			odds_dc_12 NUMERIC(10, 4),
			odds_over_25 NUMERIC(10, 4),
			odds_under_25 NUMERIC(10, 4),
			odds_btts_yes NUMERIC(10, 4),
			odds_btts_no NUMERIC(10, 4),
			odds_even NUMERIC(10, 4),
			odds_odd NUMERIC(10, 4),
			odds_eh_home_m1 NUMERIC(10, 4),
			odds_eh_home_p1 NUMERIC(10, 4),
			odds_eh_away_0 NUMERIC(10, 4),
			other_odds TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_market_snapshots_match_observed ON market_snapshots(match_id, observed_at)`,
	}

	for _, migration := range migrations {
		if _, err := db.Exec(migration); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}

	return nil
}
