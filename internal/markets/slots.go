package markets

import (
	"strconv"
	"strings"

	"github.com/qmercier/livedash/internal/pkg/models"
)

// minSlotPrice is the exclusive lower bound for a structured slot; a slot
// is either unset or strictly above 1.
const minSlotPrice = 1.0

// BuildSlots distributes canonical records between the structured slots and
// the free-form other_odds bag. Slots take full-period records only, first
// match wins; everything that does not land in a slot is joined into
// other_odds as "<token>:<price>" segments separated by ";".
func BuildSlots(records []models.Record) (models.OddsSlots, string) {
	var slots models.OddsSlots
	var other []string

	for _, r := range records {
		if name := slotName(r); name != "" && r.Price > minSlotPrice {
			slot := slots.Slot(name)
			if *slot == nil {
				price := r.Price
				*slot = &price
				continue
			}
		}
		other = append(other, r.Token()+":"+strconv.FormatFloat(r.Price, 'f', -1, 64))
	}

	return slots, strings.Join(other, ";")
}

// slotName returns the structured slot column a record maps to, or "" when
// it belongs in other_odds. Only full-period records map to slots.
func slotName(r models.Record) string {
	if r.Period != models.PeriodFull {
		return ""
	}
	switch r.Kind {
	case models.KindMatchResult:
		switch r.Side {
		case models.SideHome:
			return "odds_1"
		case models.SideDraw:
			return "odds_x"
		case models.SideAway:
			return "odds_2"
		}
	case models.KindDoubleChance:
		switch r.Side {
		case models.Side1X:
			return "odds_dc_1x"
		case models.SideX2:
			return "odds_dc_x2"
		case models.Side12:
			return "odds_dc_12"
		}
	case models.KindTotalGoals:
		if r.Threshold != "2.5" {
			return ""
		}
		switch r.Side {
		case models.SideOver:
			return "odds_over_25"
		case models.SideUnder:
			return "odds_under_25"
		}
	case models.KindBothTeamsScore:
		switch r.Side {
		case models.SideYes:
			return "odds_btts_yes"
		case models.SideNo:
			return "odds_btts_no"
		}
	case models.KindTotalParity:
		switch r.Side {
		case models.SideEven:
			return "odds_even"
		case models.SideOdd:
			return "odds_odd"
		}
	case models.KindEuropeanHandicap:
		switch r.Side {
		case models.SideHomeMinus1:
			return "odds_eh_home_m1"
		case models.SideHomePlus1:
			return "odds_eh_home_p1"
		case models.SideAwayZero:
			return "odds_eh_away_0"
		}
	}
	return ""
}
