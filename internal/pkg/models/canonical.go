package models

import (
	"fmt"
	"strconv"
	"strings"
)

// MarketKind is the canonical bet kind decoded from the feed's (G, T) pairs.
type MarketKind string

const (
	KindMatchResult      MarketKind = "1x2"
	KindDoubleChance     MarketKind = "double_chance"
	KindAsianHandicap    MarketKind = "asian_handicap"
	KindEuropeanHandicap MarketKind = "european_handicap"
	KindHalfTimeFullTime MarketKind = "ht_ft"
	KindCorrectScore     MarketKind = "correct_score"
	KindTotalGoals       MarketKind = "total_goals"
	KindTeamTotal        MarketKind = "team_total"
	KindTotalParity      MarketKind = "total_parity"
	KindTotalCorners     MarketKind = "total_corners"
	KindBothTeamsScore   MarketKind = "btts"
	KindUnknown          MarketKind = "unknown"
)

// Side is the selection within a market (home/draw/away, over/under, ...).
type Side string

const (
	SideHome Side = "home"
	SideDraw Side = "draw"
	SideAway Side = "away"

	Side1X Side = "1x"
	SideX2 Side = "x2"
	Side12 Side = "12"

	SideOver  Side = "over"
	SideUnder Side = "under"

	SideEven Side = "even"
	SideOdd  Side = "odd"

	SideYes Side = "yes"
	SideNo  Side = "no"

	SideHomeOver  Side = "home_over"
	SideHomeUnder Side = "home_under"
	SideAwayOver  Side = "away_over"
	SideAwayUnder Side = "away_under"

	// European handicap carries its fixed line in the side.
	SideHomeMinus1 Side = "home_-1"
	SideHomePlus1  Side = "home_+1"
	SideAwayZero   Side = "away_0"
)

// HT/FT sides, half-time result first.
const (
	SideHTFT11 Side = "1/1"
	SideHTFT1X Side = "1/x"
	SideHTFT12 Side = "1/2"
	SideHTFTX1 Side = "x/1"
	SideHTFTXX Side = "x/x"
	SideHTFTX2 Side = "x/2"
	SideHTFT21 Side = "2/1"
	SideHTFT2X Side = "2/x"
	SideHTFT22 Side = "2/2"
)

// Period tags which part of the match a record prices.
type Period string

const (
	PeriodFull       Period = "full"
	PeriodFirstHalf  Period = "1st_half"
	PeriodSecondHalf Period = "2nd_half"
	PeriodHalf       Period = "half"
)

// Record is one priced market in canonical form. Threshold is the market
// parameter as a normalized string ("2.5", "-1.5", "2:1"); empty when the
// market has none. RawGroup/RawType are kept only for unknown kinds so the
// original encoding stays visible downstream.
type Record struct {
	Kind      MarketKind `json:"kind"`
	Side      Side       `json:"side,omitempty"`
	Threshold string     `json:"threshold,omitempty"`
	Period    Period     `json:"period"`
	Price     float64    `json:"price"`
	RawGroup  int        `json:"raw_group,omitempty"`
	RawType   int        `json:"raw_type,omitempty"`
}

// Key identifies a record within one snapshot; duplicates share the key.
func (r Record) Key() string {
	return strings.Join([]string{string(r.Kind), strconv.Itoa(r.RawGroup), strconv.Itoa(r.RawType), string(r.Side), r.Threshold, string(r.Period)}, "|")
}

// Token is the stable textual name used in the snapshot's other_odds bag.
// Unknown kinds render as "unknown(G,T)" so consumers can still display them.
func (r Record) Token() string {
	var b strings.Builder
	if r.Kind == KindUnknown {
		fmt.Fprintf(&b, "unknown(%d,%d)", r.RawGroup, r.RawType)
	} else {
		b.WriteString(string(r.Kind))
		if r.Side != "" {
			b.WriteString("_")
			b.WriteString(string(r.Side))
		}
	}
	if r.Threshold != "" {
		b.WriteString("@")
		b.WriteString(r.Threshold)
	}
	if r.Period != PeriodFull && r.Period != "" {
		b.WriteString("[")
		b.WriteString(string(r.Period))
		b.WriteString("]")
	}
	return b.String()
}

// FormatThreshold normalizes a numeric market parameter ("2.5", "-1", "0").
func FormatThreshold(p float64) string {
	return strconv.FormatFloat(p, 'f', -1, 64)
}
