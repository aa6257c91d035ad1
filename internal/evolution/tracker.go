// Package evolution answers odds-history queries: the ordered snapshot
// sequence for a match and per-slot deltas between two observations.
package evolution

import (
	"context"

	"github.com/qmercier/livedash/internal/pkg/models"
	"github.com/qmercier/livedash/internal/pkg/storage"
)

// SlotDelta is the movement of one structured slot between two snapshots.
type SlotDelta struct {
	Slot       string  `json:"slot"`
	From       float64 `json:"from"`
	To         float64 `json:"to"`
	Abs        float64 `json:"abs"`
	RelPercent float64 `json:"rel_percent"`
}

// Tracker reads snapshot series from the catalogue.
type Tracker struct {
	store storage.Catalogue
}

func NewTracker(store storage.Catalogue) *Tracker {
	return &Tracker{store: store}
}

// History returns all snapshots for the match, ascending by timestamp.
func (t *Tracker) History(ctx context.Context, matchID int64) ([]models.MarketSnapshot, error) {
	return t.store.History(ctx, matchID)
}

// Compare returns per-slot deltas between the snapshots at the two history
// indexes. Out-of-range indexes yield an empty result, not an error.
func (t *Tracker) Compare(ctx context.Context, matchID int64, indexA, indexB int) ([]SlotDelta, error) {
	history, err := t.store.History(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if indexA < 0 || indexB < 0 || indexA >= len(history) || indexB >= len(history) {
		return nil, nil
	}
	return CompareSnapshots(&history[indexA], &history[indexB]), nil
}

// CompareSnapshots diffs the structured slots of two snapshots. Slots unset
// on either side are skipped.
func CompareSnapshots(a, b *models.MarketSnapshot) []SlotDelta {
	var out []SlotDelta
	for _, name := range models.SlotNames {
		from := *a.Slots.Slot(name)
		to := *b.Slots.Slot(name)
		if from == nil || to == nil {
			continue
		}
		abs := *to - *from
		out = append(out, SlotDelta{
			Slot:       name,
			From:       *from,
			To:         *to,
			Abs:        abs,
			RelPercent: abs / *from * 100,
		})
	}
	return out
}
