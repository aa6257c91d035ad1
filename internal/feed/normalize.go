package feed

import (
	"fmt"
	"strings"
	"time"

	"github.com/qmercier/livedash/internal/pkg/enums"
	"github.com/qmercier/livedash/internal/pkg/models"
)

// missingLabel is the placeholder for an absent opponent name.
const missingLabel = "–"

// Normalize extracts a normalized match from one feed record. A record
// with no identifier and no opponent labels is beyond tolerance and is
// skipped by the caller.
func Normalize(rec *Record) (*models.NormalizedMatch, error) {
	home := strings.TrimSpace(rec.O1)
	away := strings.TrimSpace(rec.O2)
	if rec.I == nil && home == "" && away == "" {
		return nil, fmt.Errorf("record has no identifier and no opponents")
	}
	if home == "" {
		home = missingLabel
	}
	if away == "" {
		away = missingLabel
	}

	league := strings.TrimSpace(rec.LE)

	homeScore := rec.SC.FS.S1
	if homeScore < 0 {
		homeScore = 0
	}
	awayScore := rec.SC.FS.S2
	if awayScore < 0 {
		awayScore = 0
	}

	minute := deriveMinute(rec)
	status := classifyStatus(rec, minute, homeScore, awayScore)

	nm := &models.NormalizedMatch{
		ExternalID: rec.I,
		HomeLabel:  home,
		AwayLabel:  away,
		League:     league,
		Sport:      enums.ClassifyLeague(league),
		HomeScore:  homeScore,
		AwayScore:  awayScore,
		Minute:     minute,
		Status:     status,
	}

	if rec.S > 0 {
		st := time.Unix(rec.S, 0).UTC()
		nm.StartTime = &st
	}

	for _, mis := range rec.MIS {
		v := mis.V.Float()
		switch mis.K {
		case MisKeyTemperature:
			nm.Temperature = &v
		case MisKeyHumidity:
			nm.Humidity = &v
		}
	}

	return nm, nil
}

// deriveMinute prefers the elapsed clock (SC.TS, seconds), then the
// record-level T field; nil when neither is present.
func deriveMinute(rec *Record) *int {
	if rec.SC.TS > 0 {
		m := rec.SC.TS / 60
		return &m
	}
	if rec.T > 0 {
		m := rec.T
		return &m
	}
	return nil
}

// Upstream status codes.
const (
	statusCodeLive     = 1
	statusCodeFinished = 3
)

// classifyStatus derives the lifecycle status, first rule wins:
// finished markers beat live heuristics, which beat the upcoming default.
func classifyStatus(rec *Record, minute *int, homeScore, awayScore int) models.MatchStatus {
	tn := strings.ToLower(rec.TN)
	tns := strings.ToLower(rec.TNS)
	cps := strings.ToLower(rec.CPS)

	if rec.HS == statusCodeFinished ||
		strings.Contains(tn, "terminé") ||
		strings.Contains(tns, "finished") ||
		strings.Contains(cps, "final") {
		return models.StatusFinished
	}

	if rec.HS == statusCodeLive ||
		strings.Contains(cps, "live") ||
		(minute != nil && *minute > 0) ||
		homeScore > 0 || awayScore > 0 {
		return models.StatusLive
	}

	return models.StatusUpcoming
}

// DerivePeriod tags which part of the match a record's markets price.
// The markers live in the textual status fields; first match wins in the
// order full, 1st half, 2nd half, bare "half". Full match is the default.
func DerivePeriod(rec *Record) models.Period {
	text := strings.ToLower(rec.TN + " " + rec.TNS + " " + rec.CPS)
	switch {
	case strings.Contains(text, "full"):
		return models.PeriodFull
	case strings.Contains(text, "1st half") || strings.Contains(text, "first half") || strings.Contains(text, "1 half"):
		return models.PeriodFirstHalf
	case strings.Contains(text, "2nd half") || strings.Contains(text, "second half") || strings.Contains(text, "2 half"):
		return models.PeriodSecondHalf
	case strings.Contains(text, "half"):
		return models.PeriodHalf
	default:
		return models.PeriodFull
	}
}
