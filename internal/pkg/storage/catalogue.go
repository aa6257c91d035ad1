package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/qmercier/livedash/internal/markets"
	"github.com/qmercier/livedash/internal/pkg/models"
)

// Ensure PostgresCatalogue implements Catalogue
var _ Catalogue = (*PostgresCatalogue)(nil)

// PostgresCatalogue is the Postgres-backed catalogue of teams, matches and
// append-only market snapshots.
type PostgresCatalogue struct {
	db *sql.DB
}

func NewPostgresCatalogue(db *sql.DB) *PostgresCatalogue {
	return &PostgresCatalogue{db: db}
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (c *PostgresCatalogue) UpsertTeam(ctx context.Context, label, sport, league string) (int64, error) {
	id, err := upsertTeam(ctx, c.db, label, sport, league)
	if err != nil && isRetryable(err) {
		slog.Debug("storage: team upsert collided, retrying once", "label", label, "error", err)
		return upsertTeam(ctx, c.db, label, sport, league)
	}
	return id, err
}

// upsertTeam converges concurrent callers on a single id per
// (label, sport, league). The no-op DO UPDATE makes RETURNING yield the
// existing id on conflict.
func upsertTeam(ctx context.Context, q querier, label, sport, league string) (int64, error) {
	query := `
	INSERT INTO teams (label, sport, league)
	VALUES ($1, $2, $3)
	ON CONFLICT (label, sport, league) DO UPDATE SET label = EXCLUDED.label
	RETURNING id
	`
	var id int64
	if err := q.QueryRowContext(ctx, query, label, sport, league).Scan(&id); err != nil {
		return 0, fmt.Errorf("upsert team %q: %w", label, err)
	}
	return id, nil
}

func (c *PostgresCatalogue) UpsertMatch(ctx context.Context, nm *models.NormalizedMatch) (int64, error) {
	return upsertMatch(ctx, c.db, nm)
}

func upsertMatch(ctx context.Context, q querier, nm *models.NormalizedMatch) (int64, error) {
	sport := nm.Sport.String()
	homeID, err := upsertTeam(ctx, q, nm.HomeLabel, sport, nm.League)
	if err != nil {
		return 0, err
	}
	awayID, err := upsertTeam(ctx, q, nm.AwayLabel, sport, nm.League)
	if err != nil {
		return 0, err
	}
	if homeID == awayID {
		return 0, fmt.Errorf("match %s vs %s resolves to a single team", nm.HomeLabel, nm.AwayLabel)
	}

	query := `
	INSERT INTO matches (
		external_key, home_team_id, away_team_id, sport, league,
		home_score, away_score, status, minute, temperature, humidity, start_time
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	ON CONFLICT (external_key) DO UPDATE SET
		home_score = EXCLUDED.home_score,
		away_score = EXCLUDED.away_score,
		status = EXCLUDED.status,
		minute = EXCLUDED.minute,
		temperature = COALESCE(EXCLUDED.temperature, matches.temperature),
		humidity = COALESCE(EXCLUDED.humidity, matches.humidity),
		start_time = COALESCE(EXCLUDED.start_time, matches.start_time),
		updated_at = NOW()
	RETURNING id
	`
	var id int64
	err = q.QueryRowContext(ctx, query,
		externalKey(nm, homeID, awayID), homeID, awayID, sport, nm.League,
		nm.HomeScore, nm.AwayScore, nm.Status.String(), nm.Minute, nm.Temperature, nm.Humidity, nm.StartTime,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("upsert match: %w", err)
	}
	return id, nil
}

// externalKey is the stored match identity: the feed identifier when
// present, otherwise the synthetic (home_team_id, away_team_id, status)
// triple.
func externalKey(nm *models.NormalizedMatch, homeID, awayID int64) string {
	if nm.ExternalID != nil {
		return strconv.FormatInt(*nm.ExternalID, 10)
	}
	return fmt.Sprintf("%d:%d:%s", homeID, awayID, nm.Status)
}

func (c *PostgresCatalogue) AppendSnapshot(ctx context.Context, matchID int64, nm *models.NormalizedMatch, records []models.Record, at time.Time) (int64, error) {
	return appendSnapshot(ctx, c.db, matchID, nm, records, at)
}

var insertSnapshotQuery = `
	INSERT INTO market_snapshots (
		match_id, observed_at, status, minute, home_score, away_score,
		` + strings.Join(models.SlotNames, ", ") + `,
		other_odds
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22)
	RETURNING id
	`

func appendSnapshot(ctx context.Context, q querier, matchID int64, nm *models.NormalizedMatch, records []models.Record, at time.Time) (int64, error) {
	slots, other := markets.BuildSlots(records)

	args := []any{matchID, at.UTC(), nm.Status.String(), nm.Minute, nm.HomeScore, nm.AwayScore}
	for _, v := range slots.Values() {
		args = append(args, v)
	}
	args = append(args, other)

	var id int64
	if err := q.QueryRowContext(ctx, insertSnapshotQuery, args...).Scan(&id); err != nil {
		return 0, fmt.Errorf("append snapshot: %w", err)
	}
	return id, nil
}

func (c *PostgresCatalogue) IngestRecord(ctx context.Context, nm *models.NormalizedMatch, records []models.Record, at time.Time) (int64, int64, error) {
	matchID, snapshotID, err := c.ingestOnce(ctx, nm, records, at)
	if err != nil && isRetryable(err) {
		slog.Debug("storage: ingest collided, retrying once", "home", nm.HomeLabel, "away", nm.AwayLabel, "error", err)
		return c.ingestOnce(ctx, nm, records, at)
	}
	return matchID, snapshotID, err
}

// ingestOnce upserts the match and appends its snapshot in one transaction
// so readers never observe a snapshot without its parent match.
func (c *PostgresCatalogue) ingestOnce(ctx context.Context, nm *models.NormalizedMatch, records []models.Record, at time.Time) (int64, int64, error) {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	matchID, err := upsertMatch(ctx, tx, nm)
	if err != nil {
		return 0, 0, err
	}
	snapshotID, err := appendSnapshot(ctx, tx, matchID, nm, records, at)
	if err != nil {
		return 0, 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, 0, fmt.Errorf("commit: %w", err)
	}
	return matchID, snapshotID, nil
}

// isRetryable reports serialization failures and unique-index races worth
// one retry before surfacing the error as a record skip.
func isRetryable(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "40001" || pqErr.Code == "23505"
	}
	return false
}

const matchColumns = `
	m.id, m.external_key, m.home_team_id, m.away_team_id, ht.label, at2.label,
	m.sport, m.league, m.home_score, m.away_score, m.status, m.minute,
	m.temperature, m.humidity, m.start_time, m.created_at, m.updated_at
`

const matchJoin = `
	FROM matches m
	JOIN teams ht ON ht.id = m.home_team_id
	JOIN teams at2 ON at2.id = m.away_team_id
`

func (c *PostgresCatalogue) GetMatch(ctx context.Context, matchID int64) (*models.Match, error) {
	row := c.db.QueryRowContext(ctx, `SELECT `+matchColumns+matchJoin+` WHERE m.id = $1`, matchID)
	m, err := scanMatch(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("match %d: %w", matchID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get match %d: %w", matchID, err)
	}
	return m, nil
}

func (c *PostgresCatalogue) ListMatches(ctx context.Context, filter ListFilter, page PageRequest) (*MatchPage, error) {
	if page.Page < 1 {
		page.Page = 1
	}
	if page.PerPage <= 0 {
		page.PerPage = 20
	}
	if page.PerPage > 100 {
		page.PerPage = 100
	}

	var conds []string
	var args []any
	add := func(cond string, val any) {
		args = append(args, val)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if filter.Sport != "" {
		add("m.sport = $%d", filter.Sport)
	}
	if filter.League != "" {
		add("m.league = $%d", filter.League)
	}
	if filter.Status != "" {
		add("m.status = $%d", filter.Status.String())
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM matches m`+where, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count matches: %w", err)
	}

	// Stable order: most recently updated first, id as tiebreak.
	listArgs := append(args, page.PerPage, (page.Page-1)*page.PerPage)
	query := `SELECT ` + matchColumns + matchJoin + where +
		fmt.Sprintf(` ORDER BY m.updated_at DESC, m.id DESC LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)

	rows, err := c.db.QueryContext(ctx, query, listArgs...)
	if err != nil {
		return nil, fmt.Errorf("list matches: %w", err)
	}
	defer rows.Close()

	result := &MatchPage{Total: total, Page: page.Page, PerPage: page.PerPage}
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, fmt.Errorf("scan match: %w", err)
		}
		result.Matches = append(result.Matches, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list matches: %w", err)
	}
	return result, nil
}

var snapshotColumns = `id, match_id, observed_at, status, minute, home_score, away_score, ` +
	strings.Join(models.SlotNames, ", ") + `, other_odds, created_at`

func (c *PostgresCatalogue) LatestSnapshot(ctx context.Context, matchID int64) (*models.MarketSnapshot, error) {
	row := c.db.QueryRowContext(ctx,
		`SELECT `+snapshotColumns+` FROM market_snapshots WHERE match_id = $1 ORDER BY observed_at DESC, id DESC LIMIT 1`,
		matchID)
	s, err := scanSnapshot(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("snapshot for match %d: %w", matchID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("latest snapshot for match %d: %w", matchID, err)
	}
	return s, nil
}

func (c *PostgresCatalogue) History(ctx context.Context, matchID int64) ([]models.MarketSnapshot, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT `+snapshotColumns+` FROM market_snapshots WHERE match_id = $1 ORDER BY observed_at ASC, id ASC`,
		matchID)
	if err != nil {
		return nil, fmt.Errorf("snapshot history for match %d: %w", matchID, err)
	}
	defer rows.Close()

	var out []models.MarketSnapshot
	for rows.Next() {
		s, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		out = append(out, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("snapshot history for match %d: %w", matchID, err)
	}
	return out, nil
}

func (c *PostgresCatalogue) Close() error {
	return c.db.Close()
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanMatch(row rowScanner) (*models.Match, error) {
	var m models.Match
	var minute sql.NullInt64
	var temperature, humidity sql.NullFloat64
	var startTime sql.NullTime
	var status string

	err := row.Scan(
		&m.ID, &m.ExternalKey, &m.HomeTeamID, &m.AwayTeamID, &m.HomeTeam, &m.AwayTeam,
		&m.Sport, &m.League, &m.HomeScore, &m.AwayScore, &status, &minute,
		&temperature, &humidity, &startTime, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	m.Status = models.MatchStatus(status)
	if minute.Valid {
		v := int(minute.Int64)
		m.Minute = &v
	}
	if temperature.Valid {
		m.Temperature = &temperature.Float64
	}
	if humidity.Valid {
		m.Humidity = &humidity.Float64
	}
	if startTime.Valid {
		t := startTime.Time
		m.StartTime = &t
	}
	return &m, nil
}

func scanSnapshot(row rowScanner) (*models.MarketSnapshot, error) {
	var s models.MarketSnapshot
	var minute sql.NullInt64
	var status string
	slotVals := make([]sql.NullFloat64, len(models.SlotNames))

	dest := []any{&s.ID, &s.MatchID, &s.ObservedAt, &status, &minute, &s.HomeScore, &s.AwayScore}
	for i := range slotVals {
		dest = append(dest, &slotVals[i])
	}
	dest = append(dest, &s.OtherOdds, &s.CreatedAt)

	if err := row.Scan(dest...); err != nil {
		return nil, err
	}

	s.Status = models.MatchStatus(status)
	if minute.Valid {
		v := int(minute.Int64)
		s.Minute = &v
	}
	for i, name := range models.SlotNames {
		if slotVals[i].Valid {
			v := slotVals[i].Float64
			*s.Slots.Slot(name) = &v
		}
	}
	return &s, nil
}
