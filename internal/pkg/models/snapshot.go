package models

import "time"

// OddsSlots is the fixed set of structured odds columns every snapshot
// carries. Each slot is either unset (nil) or a positive decimal price.
// The layout is deliberately flat so the store can query slots directly.
type OddsSlots struct {
	Odds1 *float64 `json:"odds_1,omitempty"`
	OddsX *float64 `json:"odds_x,omitempty"`
	Odds2 *float64 `json:"odds_2,omitempty"`

	OddsDC1X *float64 `json:"odds_dc_1x,omitempty"`
	OddsDCX2 *float64 `json:"odds_dc_x2,omitempty"`
	OddsDC12 *float64 `json:"odds_dc_12,omitempty"`

	OddsOver25  *float64 `json:"odds_over_25,omitempty"`
	OddsUnder25 *float64 `json:"odds_under_25,omitempty"`

	OddsBTTSYes *float64 `json:"odds_btts_yes,omitempty"`
	OddsBTTSNo  *float64 `json:"odds_btts_no,omitempty"`

	OddsEven *float64 `json:"odds_even,omitempty"`
	OddsOdd  *float64 `json:"odds_odd,omitempty"`

	OddsEHHomeM1 *float64 `json:"odds_eh_home_m1,omitempty"`
	OddsEHHomeP1 *float64 `json:"odds_eh_home_p1,omitempty"`
	OddsEHAway0  *float64 `json:"odds_eh_away_0,omitempty"`
}

// SlotNames lists the structured slots in their stable column order.
var SlotNames = []string{
	"odds_1", "odds_x", "odds_2",
	"odds_dc_1x", "odds_dc_x2", "odds_dc_12",
	"odds_over_25", "odds_under_25",
	"odds_btts_yes", "odds_btts_no",
	"odds_even", "odds_odd",
	"odds_eh_home_m1", "odds_eh_home_p1", "odds_eh_away_0",
}

// Slot returns a pointer to the slot field for the given column name,
// or nil for an unknown name.
func (s *OddsSlots) Slot(name string) **float64 {
	switch name {
	case "odds_1":
		return &s.Odds1
	case "odds_x":
		return &s.OddsX
	case "odds_2":
		return &s.Odds2
	case "odds_dc_1x":
		return &s.OddsDC1X
	case "odds_dc_x2":
		return &s.OddsDCX2
	case "odds_dc_12":
		return &s.OddsDC12
	case "odds_over_25":
		return &s.OddsOver25
	case "odds_under_25":
		return &s.OddsUnder25
	case "odds_btts_yes":
		return &s.OddsBTTSYes
	case "odds_btts_no":
		return &s.OddsBTTSNo
	case "odds_even":
		return &s.OddsEven
	case "odds_odd":
		return &s.OddsOdd
	case "odds_eh_home_m1":
		return &s.OddsEHHomeM1
	case "odds_eh_home_p1":
		return &s.OddsEHHomeP1
	case "odds_eh_away_0":
		return &s.OddsEHAway0
	default:
		return nil
	}
}

// Values returns the slots as an ordered list matching SlotNames.
func (s *OddsSlots) Values() []*float64 {
	out := make([]*float64, 0, len(SlotNames))
	for _, name := range SlotNames {
		out = append(out, *s.Slot(name))
	}
	return out
}

// MarketSnapshot is one immutable observation of all markets for a match.
// Snapshots are append-only and totally ordered by ObservedAt per match.
type MarketSnapshot struct {
	ID         int64       `json:"id"`
	MatchID    int64       `json:"match_id"`
	ObservedAt time.Time   `json:"observed_at"`
	Status     MatchStatus `json:"status"`
	Minute     *int        `json:"minute,omitempty"`
	HomeScore  int         `json:"home_score"`
	AwayScore  int         `json:"away_score"`
	Slots      OddsSlots   `json:"odds"`
	OtherOdds  string      `json:"other_odds,omitempty"`
	CreatedAt  time.Time   `json:"created_at"`
}
