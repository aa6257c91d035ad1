package ingest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/qmercier/livedash/internal/feed"
	"github.com/qmercier/livedash/internal/pkg/metrics"
	"github.com/qmercier/livedash/internal/pkg/models"
	"github.com/qmercier/livedash/internal/pkg/storage"
)

type stubFetcher struct {
	doc *feed.Document
	err error
}

func (f *stubFetcher) Fetch(ctx context.Context) (*feed.Document, error) {
	return f.doc, f.err
}

// recordingStore captures IngestRecord calls and optionally fails for a
// given home label.
type recordingStore struct {
	storage.Catalogue
	ingested []string
	failFor  string
}

func (s *recordingStore) IngestRecord(ctx context.Context, nm *models.NormalizedMatch, records []models.Record, at time.Time) (int64, int64, error) {
	if s.failFor != "" && nm.HomeLabel == s.failFor {
		return 0, 0, errors.New("boom")
	}
	s.ingested = append(s.ingested, nm.HomeLabel)
	return int64(len(s.ingested)), int64(len(s.ingested)) * 10, nil
}

type captureBroadcaster struct {
	events []SnapshotEvent
}

func (b *captureBroadcaster) BroadcastSnapshot(ev SnapshotEvent) {
	b.events = append(b.events, ev)
}

func docWith(records ...feed.Record) *feed.Document {
	return &feed.Document{Success: true, Value: &records}
}

func newTestScheduler(f Fetcher, s storage.Catalogue) *Scheduler {
	return NewScheduler(f, s, metrics.NewIngestMetrics(), time.Minute, 10*time.Minute)
}

func TestTickIngestsAllRecords(t *testing.T) {
	store := &recordingStore{}
	broadcaster := &captureBroadcaster{}
	sched := newTestScheduler(&stubFetcher{doc: docWith(
		feed.Record{O1: "Lyon", O2: "Metz", E: []feed.MarketRow{{G: 1, T: 1, C: 1.8}}},
		feed.Record{O1: "PSG", O2: "Nice"},
	)}, store)
	sched.SetBroadcaster(broadcaster)

	sched.tick(context.Background())

	if len(store.ingested) != 2 {
		t.Fatalf("ingested %d records, want 2: %v", len(store.ingested), store.ingested)
	}
	if len(broadcaster.events) != 2 {
		t.Fatalf("broadcast %d events, want 2", len(broadcaster.events))
	}
	if broadcaster.events[0].MatchID != 1 || broadcaster.events[0].SnapshotID != 10 {
		t.Errorf("first event = %+v, want match 1 snapshot 10", broadcaster.events[0])
	}
}

func TestTickFeedErrorAborts(t *testing.T) {
	store := &recordingStore{}
	sched := newTestScheduler(&stubFetcher{err: errors.New("connection refused")}, store)

	sched.tick(context.Background())

	if len(store.ingested) != 0 {
		t.Fatalf("ingested %d records after feed error, want 0", len(store.ingested))
	}
}

func TestTickRecordFailureIsIsolated(t *testing.T) {
	store := &recordingStore{failFor: "PSG"}
	sched := newTestScheduler(&stubFetcher{doc: docWith(
		feed.Record{O1: "Lyon", O2: "Metz"},
		feed.Record{O1: "PSG", O2: "Nice"},
		feed.Record{O1: "Lens", O2: "Brest"},
	)}, store)

	sched.tick(context.Background())

	if len(store.ingested) != 2 {
		t.Fatalf("ingested %d records, want 2 (failure must not stop the tick): %v", len(store.ingested), store.ingested)
	}
}

func TestTickSkipsUnusableRecords(t *testing.T) {
	store := &recordingStore{}
	sched := newTestScheduler(&stubFetcher{doc: docWith(
		feed.Record{}, // no id, no opponents
		feed.Record{O1: "Lyon", O2: "Metz"},
	)}, store)

	sched.tick(context.Background())

	if len(store.ingested) != 1 || store.ingested[0] != "Lyon" {
		t.Fatalf("ingested = %v, want only Lyon", store.ingested)
	}
}

func TestRunTickOverlapSkipped(t *testing.T) {
	store := &recordingStore{}
	sched := newTestScheduler(&stubFetcher{doc: docWith()}, store)

	sched.tickMu.Lock()
	done := make(chan struct{})
	go func() {
		sched.runTick(context.Background())
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("runTick blocked instead of skipping while a tick was running")
	}
	sched.tickMu.Unlock()
}
