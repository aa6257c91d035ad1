package evolution

import (
	"context"
	"testing"
	"time"

	"github.com/qmercier/livedash/internal/pkg/models"
	"github.com/qmercier/livedash/internal/pkg/storage"
)

// historyStore stubs the catalogue with a canned snapshot series.
type historyStore struct {
	storage.Catalogue
	history []models.MarketSnapshot
}

func (s *historyStore) History(ctx context.Context, matchID int64) ([]models.MarketSnapshot, error) {
	return s.history, nil
}

func fp(v float64) *float64 { return &v }

func snapshotAt(minuteOffset int, odds1, oddsX *float64) models.MarketSnapshot {
	return models.MarketSnapshot{
		ObservedAt: time.Date(2026, 3, 1, 15, 0, 0, 0, time.UTC).Add(time.Duration(minuteOffset) * time.Minute),
		Slots:      models.OddsSlots{Odds1: odds1, OddsX: oddsX},
	}
}

func TestCompareSnapshots(t *testing.T) {
	a := snapshotAt(0, fp(2.0), fp(3.4))
	b := snapshotAt(2, fp(2.5), nil)

	deltas := CompareSnapshots(&a, &b)
	if len(deltas) != 1 {
		t.Fatalf("got %d deltas, want 1 (odds_x unset on one side is skipped): %+v", len(deltas), deltas)
	}
	d := deltas[0]
	if d.Slot != "odds_1" {
		t.Errorf("slot = %q, want odds_1", d.Slot)
	}
	if d.From != 2.0 || d.To != 2.5 {
		t.Errorf("from/to = %v/%v, want 2.0/2.5", d.From, d.To)
	}
	if d.Abs != 0.5 {
		t.Errorf("abs = %v, want 0.5", d.Abs)
	}
	if d.RelPercent != 25 {
		t.Errorf("rel = %v, want 25", d.RelPercent)
	}
}

func TestCompareSnapshotsNoOverlap(t *testing.T) {
	a := snapshotAt(0, fp(2.0), nil)
	b := snapshotAt(2, nil, fp(3.1))
	if deltas := CompareSnapshots(&a, &b); len(deltas) != 0 {
		t.Errorf("got %d deltas, want 0", len(deltas))
	}
}

func TestTrackerCompareOutOfRange(t *testing.T) {
	store := &historyStore{history: []models.MarketSnapshot{
		snapshotAt(0, fp(2.0), nil),
		snapshotAt(2, fp(2.2), nil),
	}}
	tracker := NewTracker(store)

	tests := []struct{ a, b int }{
		{-1, 0},
		{0, 2},
		{5, 6},
	}
	for _, tt := range tests {
		deltas, err := tracker.Compare(context.Background(), 1, tt.a, tt.b)
		if err != nil {
			t.Fatalf("Compare(%d,%d) error = %v", tt.a, tt.b, err)
		}
		if len(deltas) != 0 {
			t.Errorf("Compare(%d,%d) = %d deltas, want none", tt.a, tt.b, len(deltas))
		}
	}
}

func TestTrackerCompareInRange(t *testing.T) {
	store := &historyStore{history: []models.MarketSnapshot{
		snapshotAt(0, fp(2.0), nil),
		snapshotAt(2, fp(1.75), nil),
	}}
	tracker := NewTracker(store)

	deltas, err := tracker.Compare(context.Background(), 1, 0, 1)
	if err != nil {
		t.Fatalf("Compare() error = %v", err)
	}
	if len(deltas) != 1 || deltas[0].Abs != -0.25 {
		t.Fatalf("deltas = %+v, want one with abs -0.25", deltas)
	}
}
