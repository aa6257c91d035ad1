package markets

import (
	"testing"

	"github.com/qmercier/livedash/internal/feed"
	"github.com/qmercier/livedash/internal/pkg/models"
)

func TestDecodeRowMapping(t *testing.T) {
	tests := []struct {
		name      string
		g, t      int
		p, c      float64
		wantKind  models.MarketKind
		wantSide  models.Side
		wantParam string
	}{
		{"1x2 home", 1, 1, 0, 1.85, models.KindMatchResult, models.SideHome, ""},
		{"1x2 draw", 1, 2, 0, 3.4, models.KindMatchResult, models.SideDraw, ""},
		{"1x2 away", 1, 3, 0, 4.2, models.KindMatchResult, models.SideAway, ""},
		{"asian handicap home keeps sign", 2, 7, -1.5, 2.1, models.KindAsianHandicap, models.SideHome, "-1.5"},
		{"asian handicap away", 2, 8, 1.5, 1.75, models.KindAsianHandicap, models.SideAway, "1.5"},
		{"double chance 1x", 3, 1, 0, 1.3, models.KindDoubleChance, models.Side1X, ""},
		{"double chance x2", 3, 2, 0, 1.6, models.KindDoubleChance, models.SideX2, ""},
		{"double chance 12", 3, 3, 0, 1.25, models.KindDoubleChance, models.Side12, ""},
		{"htft first", 4, 1, 0, 3.0, models.KindHalfTimeFullTime, models.SideHTFT11, ""},
		{"htft last", 4, 9, 0, 6.5, models.KindHalfTimeFullTime, models.SideHTFT22, ""},
		{"european handicap -1", 8, 4, 0, 2.8, models.KindEuropeanHandicap, models.SideHomeMinus1, ""},
		{"european handicap +1", 8, 5, 0, 1.5, models.KindEuropeanHandicap, models.SideHomePlus1, ""},
		{"european handicap away 0", 8, 6, 0, 3.1, models.KindEuropeanHandicap, models.SideAwayZero, ""},
		{"correct score", 15, 1, 21, 8.5, models.KindCorrectScore, "", "21"},
		{"total over", 17, 9, 2.5, 1.9, models.KindTotalGoals, models.SideOver, "2.5"},
		{"total under negative param", 17, 10, -2.5, 1.95, models.KindTotalGoals, models.SideUnder, "2.5"},
		{"total alt group 5", 5, 9, 3.5, 2.4, models.KindTotalGoals, models.SideOver, "3.5"},
		{"total alt group 12", 12, 10, 1.5, 1.4, models.KindTotalGoals, models.SideUnder, "1.5"},
		{"parity even", 19, 180, 0, 1.9, models.KindTotalParity, models.SideEven, ""},
		{"parity odd", 19, 181, 0, 1.9, models.KindTotalParity, models.SideOdd, ""},
		{"corners over", 62, 14, 9.5, 1.8, models.KindTotalCorners, models.SideOver, "9.5"},
		{"corners under", 62, 13, 9.5, 1.9, models.KindTotalCorners, models.SideUnder, "9.5"},
		{"home team total over", 20, 1, 1.5, 1.7, models.KindTeamTotal, models.SideHomeOver, "1.5"},
		{"home team total under", 21, 2, 1.5, 2.0, models.KindTeamTotal, models.SideHomeUnder, "1.5"},
		{"away team total over", 23, 1, 0.5, 1.3, models.KindTeamTotal, models.SideAwayOver, "0.5"},
		{"away team total under", 25, 2, 0.5, 3.2, models.KindTeamTotal, models.SideAwayUnder, "0.5"},
	}
	for _, tt := range tests {
		r, ok := decodeRow(tt.g, tt.t, tt.p, tt.c, models.PeriodFull)
		if !ok {
			t.Fatalf("%s: decodeRow dropped the row", tt.name)
		}
		if r.Kind != tt.wantKind || r.Side != tt.wantSide || r.Threshold != tt.wantParam {
			t.Errorf("%s: got (%q,%q,%q), want (%q,%q,%q)",
				tt.name, r.Kind, r.Side, r.Threshold, tt.wantKind, tt.wantSide, tt.wantParam)
		}
		if r.Price != tt.c {
			t.Errorf("%s: price = %v, want %v", tt.name, r.Price, tt.c)
		}
	}
}

func TestDecodeRowUnknown(t *testing.T) {
	r, ok := decodeRow(999, 7, 0, 2.5, models.PeriodFull)
	if !ok {
		t.Fatal("unknown pair must be preserved, not dropped")
	}
	if r.Kind != models.KindUnknown || r.RawGroup != 999 || r.RawType != 7 {
		t.Errorf("got %+v, want unknown(999,7)", r)
	}
	if r.Token() != "unknown(999,7)" {
		t.Errorf("Token() = %q, want unknown(999,7)", r.Token())
	}

	// Parameter zero means no threshold suffix; non-zero keeps it.
	r2, _ := decodeRow(999, 7, 1.5, 2.5, models.PeriodFull)
	if r2.Token() != "unknown(999,7)@1.5" {
		t.Errorf("Token() = %q, want unknown(999,7)@1.5", r2.Token())
	}
}

func TestDecodeRowPriceBounds(t *testing.T) {
	tests := []struct {
		name string
		c    float64
	}{
		{"zero price", 0},
		{"negative price", -1.5},
		{"beyond sanity cap", 1000.01},
	}
	for _, tt := range tests {
		if _, ok := decodeRow(1, 1, 0, tt.c, models.PeriodFull); ok {
			t.Errorf("%s: row with price %v should be dropped", tt.name, tt.c)
		}
	}
	// The cap itself is still acceptable.
	if _, ok := decodeRow(1, 1, 0, 1000, models.PeriodFull); !ok {
		t.Error("price exactly at the cap should be kept")
	}
}

func TestDecodeDedupFirstWins(t *testing.T) {
	rec := &feed.Record{
		E: []feed.MarketRow{
			{G: 1, T: 1, C: 1.85},
			{G: 1, T: 1, C: 1.90}, // duplicate within E, dropped
		},
		AE: []feed.MarketGroup{
			{G: 1, ME: []feed.MarketRow{
				{T: 1, C: 2.00}, // duplicate of E row, dropped
				{T: 2, C: 3.40},
			}},
		},
	}
	out := Decode(rec)
	if len(out) != 2 {
		t.Fatalf("Decode() returned %d records, want 2: %+v", len(out), out)
	}
	if out[0].Side != "home" || out[0].Price != 1.85 {
		t.Errorf("first record = %+v, want home @ 1.85 (E wins over AE)", out[0])
	}
	if out[1].Side != "draw" || out[1].Price != 3.40 {
		t.Errorf("second record = %+v, want draw @ 3.40", out[1])
	}
}

func TestDecodeCrossGroupTotalsDedup(t *testing.T) {
	// Groups 17, 5 and 12 all decode to total_goals; the same
	// (side, threshold) from a later group is a duplicate.
	rec := &feed.Record{
		E: []feed.MarketRow{
			{G: 17, T: 9, P: 2.5, C: 1.90},
			{G: 5, T: 9, P: 2.5, C: 1.93},
			{G: 12, T: 9, P: 3.5, C: 2.60}, // different threshold, kept
		},
	}
	out := Decode(rec)
	if len(out) != 2 {
		t.Fatalf("Decode() returned %d records, want 2: %+v", len(out), out)
	}
	if out[0].Price != 1.90 || out[0].Threshold != "2.5" {
		t.Errorf("first total = %+v, want over 2.5 @ 1.90", out[0])
	}
	if out[1].Threshold != "3.5" {
		t.Errorf("second total = %+v, want over 3.5", out[1])
	}
}

func TestDecodeDistinctUnknownPairsKept(t *testing.T) {
	rec := &feed.Record{
		E: []feed.MarketRow{
			{G: 999, T: 7, C: 2.0},
			{G: 999, T: 8, C: 2.1},
			{G: 999, T: 7, C: 2.2}, // same raw pair, dropped
		},
	}
	out := Decode(rec)
	if len(out) != 2 {
		t.Fatalf("Decode() returned %d records, want 2: %+v", len(out), out)
	}
}

func TestDecodeHalfPeriodTagging(t *testing.T) {
	rec := &feed.Record{
		TN: "1st Half",
		E:  []feed.MarketRow{{G: 1, T: 1, C: 2.4}},
	}
	out := Decode(rec)
	if len(out) != 1 {
		t.Fatalf("Decode() returned %d records, want 1", len(out))
	}
	if out[0].Period != models.PeriodFirstHalf {
		t.Errorf("period = %q, want 1st_half", out[0].Period)
	}
	if out[0].Token() != "1x2_home[1st_half]" {
		t.Errorf("Token() = %q, want 1x2_home[1st_half]", out[0].Token())
	}
}
