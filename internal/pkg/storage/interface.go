package storage

import (
	"context"
	"errors"
	"time"

	"github.com/qmercier/livedash/internal/pkg/models"
)

// ErrNotFound is returned by point queries for unknown identifiers.
var ErrNotFound = errors.New("not found")

// ListFilter narrows a match listing; empty fields match everything.
type ListFilter struct {
	Sport  string
	League string
	Status models.MatchStatus
}

// PageRequest is 1-based pagination.
type PageRequest struct {
	Page    int
	PerPage int
}

// MatchPage is one stable-ordered page of matches plus the total count.
type MatchPage struct {
	Matches []models.Match
	Total   int
	Page    int
	PerPage int
}

// Catalogue owns teams, matches and market snapshots. Writers serialise on
// entity identity; snapshots are append-only and never updated in place.
type Catalogue interface {
	// UpsertTeam resolves (label, sport, league) to a stable team id,
	// creating the row on first sighting. Idempotent.
	UpsertTeam(ctx context.Context, label, sport, league string) (int64, error)

	// UpsertMatch inserts or updates the match for the normalized record's
	// identity. created_at is preserved across updates.
	UpsertMatch(ctx context.Context, nm *models.NormalizedMatch) (int64, error)

	// AppendSnapshot writes one immutable snapshot row for the match.
	AppendSnapshot(ctx context.Context, matchID int64, nm *models.NormalizedMatch, records []models.Record, at time.Time) (int64, error)

	// IngestRecord runs UpsertMatch and AppendSnapshot in one transaction,
	// so readers never see a snapshot without its parent match.
	IngestRecord(ctx context.Context, nm *models.NormalizedMatch, records []models.Record, at time.Time) (matchID, snapshotID int64, err error)

	// GetMatch returns one match with team labels resolved.
	GetMatch(ctx context.Context, matchID int64) (*models.Match, error)

	// ListMatches returns a stable-ordered page matching the filter.
	ListMatches(ctx context.Context, filter ListFilter, page PageRequest) (*MatchPage, error)

	// LatestSnapshot returns the newest snapshot for the match, or
	// ErrNotFound when none exists.
	LatestSnapshot(ctx context.Context, matchID int64) (*models.MarketSnapshot, error)

	// History returns all snapshots for the match in ascending
	// observation order.
	History(ctx context.Context, matchID int64) ([]models.MarketSnapshot, error)

	Close() error
}
