package models

import (
	"time"

	"github.com/qmercier/livedash/internal/pkg/enums"
)

// MatchStatus is the lifecycle state of a match.
type MatchStatus string

const (
	StatusUpcoming MatchStatus = "upcoming"
	StatusLive     MatchStatus = "live"
	StatusFinished MatchStatus = "finished"
)

// IsValid checks if the status is one of the known lifecycle states.
func (s MatchStatus) IsValid() bool {
	switch s {
	case StatusUpcoming, StatusLive, StatusFinished:
		return true
	default:
		return false
	}
}

// String returns string representation
func (s MatchStatus) String() string {
	return string(s)
}

// ParseStatus parses string to MatchStatus
func ParseStatus(s string) (MatchStatus, bool) {
	st := MatchStatus(s)
	return st, st.IsValid()
}

// Team is one side of a match. Identity is (label, sport, league); the label
// is immutable once assigned and re-sightings resolve to the same row.
type Team struct {
	ID        int64     `json:"id"`
	Label     string    `json:"label"`
	Sport     string    `json:"sport"`
	League    string    `json:"league"`
	CreatedAt time.Time `json:"created_at"`
}

// Match is one sporting contest between two teams. Team references are by
// internal id; the labels are denormalized by store queries for display.
type Match struct {
	ID          int64       `json:"id"`
	ExternalKey string      `json:"external_key"`
	HomeTeamID  int64       `json:"home_team_id"`
	AwayTeamID  int64       `json:"away_team_id"`
	HomeTeam    string      `json:"home_team"`
	AwayTeam    string      `json:"away_team"`
	Sport       string      `json:"sport"`
	League      string      `json:"league"`
	HomeScore   int         `json:"home_score"`
	AwayScore   int         `json:"away_score"`
	Status      MatchStatus `json:"status"`
	Minute      *int        `json:"minute,omitempty"`
	Temperature *float64    `json:"temperature,omitempty"`
	Humidity    *float64    `json:"humidity,omitempty"`
	StartTime   *time.Time  `json:"start_time,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// NormalizedMatch is the normaliser's per-record output: everything the
// catalogue store needs to upsert teams and the match itself.
type NormalizedMatch struct {
	ExternalID  *int64
	HomeLabel   string
	AwayLabel   string
	League      string
	Sport       enums.Sport
	HomeScore   int
	AwayScore   int
	Minute      *int
	Status      MatchStatus
	Temperature *float64
	Humidity    *float64
	StartTime   *time.Time
}
