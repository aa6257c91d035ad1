// Package markets decodes the feed's numerically encoded market rows
// (G, T, P, C) into canonical betting records and maps them onto the
// snapshot's structured odds slots.
package markets

import (
	"math"

	"github.com/qmercier/livedash/internal/feed"
	"github.com/qmercier/livedash/internal/pkg/models"
)

// maxPrice is the sanity cap on a coefficient; anything above is a data
// error upstream and the row is dropped.
const maxPrice = 1000.0

// Decode converts both market containers of one feed record into canonical
// records. The flat E list is walked first, then each AE group's ME list;
// the first occurrence of a (kind, side, threshold, period) tuple wins and
// later duplicates are discarded.
func Decode(rec *feed.Record) []models.Record {
	period := feed.DerivePeriod(rec)

	seen := make(map[string]bool)
	var out []models.Record

	appendRows := func(group int, rows []feed.MarketRow, groupFromRow bool) {
		for _, row := range rows {
			g := group
			if groupFromRow {
				g = row.G
			}
			r, ok := decodeRow(g, row.T, row.P.Float(), row.C.Float(), period)
			if !ok {
				continue
			}
			key := r.Key()
			if seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, r)
		}
	}

	appendRows(0, rec.E, true)
	for _, ae := range rec.AE {
		appendRows(ae.G, ae.ME, false)
	}
	return out
}

// htftSides maps T=1..9 to the nine half-time/full-time outcomes.
var htftSides = [...]models.Side{
	models.SideHTFT11, models.SideHTFT1X, models.SideHTFT12,
	models.SideHTFTX1, models.SideHTFTXX, models.SideHTFTX2,
	models.SideHTFT21, models.SideHTFT2X, models.SideHTFT22,
}

// decodeRow maps a single (G, T, P, C) quadruple to its canonical record.
// Rows with a missing or non-positive price are dropped, as are prices
// beyond the sanity cap. Pairs outside the mapping table are preserved
// verbatim as unknown(G,T).
func decodeRow(g, t int, p, c float64, period models.Period) (models.Record, bool) {
	if c <= 0 || c > maxPrice {
		return models.Record{}, false
	}

	r := models.Record{Period: period, Price: c}

	switch {
	case g == 1 && t >= 1 && t <= 3:
		r.Kind = models.KindMatchResult
		r.Side = [...]models.Side{models.SideHome, models.SideDraw, models.SideAway}[t-1]

	case g == 2 && (t == 7 || t == 8):
		r.Kind = models.KindAsianHandicap
		if t == 7 {
			r.Side = models.SideHome
		} else {
			r.Side = models.SideAway
		}
		r.Threshold = models.FormatThreshold(p)

	case g == 3 && t >= 1 && t <= 3:
		r.Kind = models.KindDoubleChance
		r.Side = [...]models.Side{models.Side1X, models.SideX2, models.Side12}[t-1]

	case g == 4 && t >= 1 && t <= 9:
		r.Kind = models.KindHalfTimeFullTime
		r.Side = htftSides[t-1]

	case g == 8 && t >= 4 && t <= 6:
		r.Kind = models.KindEuropeanHandicap
		r.Side = [...]models.Side{models.SideHomeMinus1, models.SideHomePlus1, models.SideAwayZero}[t-4]

	case g == 15:
		r.Kind = models.KindCorrectScore
		r.Threshold = models.FormatThreshold(p)

	case (g == 17 || g == 5 || g == 12) && (t == 9 || t == 10):
		r.Kind = models.KindTotalGoals
		if t == 9 {
			r.Side = models.SideOver
		} else {
			r.Side = models.SideUnder
		}
		r.Threshold = models.FormatThreshold(math.Abs(p))

	case g == 19 && (t == 180 || t == 181):
		r.Kind = models.KindTotalParity
		if t == 180 {
			r.Side = models.SideEven
		} else {
			r.Side = models.SideOdd
		}

	case g == 62 && (t == 13 || t == 14):
		r.Kind = models.KindTotalCorners
		if t == 14 {
			r.Side = models.SideOver
		} else {
			r.Side = models.SideUnder
		}
		r.Threshold = models.FormatThreshold(math.Abs(p))

	case g >= 20 && g <= 22 && (t == 1 || t == 2):
		r.Kind = models.KindTeamTotal
		if t == 1 {
			r.Side = models.SideHomeOver
		} else {
			r.Side = models.SideHomeUnder
		}
		r.Threshold = models.FormatThreshold(math.Abs(p))

	case g >= 23 && g <= 25 && (t == 1 || t == 2):
		r.Kind = models.KindTeamTotal
		if t == 1 {
			r.Side = models.SideAwayOver
		} else {
			r.Side = models.SideAwayUnder
		}
		r.Threshold = models.FormatThreshold(math.Abs(p))

	default:
		r.Kind = models.KindUnknown
		r.RawGroup = g
		r.RawType = t
		if p != 0 {
			r.Threshold = models.FormatThreshold(p)
		}
	}

	return r, true
}
