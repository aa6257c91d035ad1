// Package ingest runs the periodic feed → normalise → decode → store loop.
package ingest

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/qmercier/livedash/internal/feed"
	"github.com/qmercier/livedash/internal/markets"
	"github.com/qmercier/livedash/internal/pkg/metrics"
	"github.com/qmercier/livedash/internal/pkg/models"
	"github.com/qmercier/livedash/internal/pkg/storage"
)

// Fetcher is the feed client surface the scheduler needs.
type Fetcher interface {
	Fetch(ctx context.Context) (*feed.Document, error)
}

// SnapshotEvent describes one appended snapshot for live push consumers.
type SnapshotEvent struct {
	MatchID    int64              `json:"match_id"`
	SnapshotID int64              `json:"snapshot_id"`
	Status     models.MatchStatus `json:"status"`
	HomeScore  int                `json:"home_score"`
	AwayScore  int                `json:"away_score"`
	ObservedAt time.Time          `json:"observed_at"`
}

// Broadcaster pushes snapshot events to connected dashboard clients.
type Broadcaster interface {
	BroadcastSnapshot(ev SnapshotEvent)
}

// Scheduler drives ingestion ticks on a fixed cadence plus a slower
// secondary hook for batch jobs. Ticks never overlap: a tick still running
// when the next one fires causes the new one to be skipped.
type Scheduler struct {
	client  Fetcher
	store   storage.Catalogue
	metrics *metrics.IngestMetrics

	interval      time.Duration
	batchInterval time.Duration

	broadcaster Broadcaster               // optional
	batchHook   func(ctx context.Context) // optional, runs every batchInterval

	tickMu sync.Mutex
}

func NewScheduler(client Fetcher, store storage.Catalogue, m *metrics.IngestMetrics, interval, batchInterval time.Duration) *Scheduler {
	return &Scheduler{
		client:        client,
		store:         store,
		metrics:       m,
		interval:      interval,
		batchInterval: batchInterval,
	}
}

// SetBroadcaster wires the live push hub. Must be called before Run.
func (s *Scheduler) SetBroadcaster(b Broadcaster) {
	s.broadcaster = b
}

// SetBatchHook wires the secondary cadence job. Must be called before Run.
func (s *Scheduler) SetBatchHook(hook func(ctx context.Context)) {
	s.batchHook = hook
}

// Run blocks until the context is cancelled. The first tick fires
// immediately so the dashboard has data right after startup.
func (s *Scheduler) Run(ctx context.Context) {
	slog.Info("ingest: scheduler started", "interval", s.interval, "batch_interval", s.batchInterval)

	s.runTick(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	batchTicker := time.NewTicker(s.batchInterval)
	defer batchTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("ingest: scheduler stopped")
			return
		case <-ticker.C:
			go s.runTick(ctx)
		case <-batchTicker.C:
			if s.batchHook != nil {
				go s.batchHook(ctx)
			}
		}
	}
}

// runTick executes one tick unless the previous one is still running.
func (s *Scheduler) runTick(ctx context.Context) {
	if !s.tickMu.TryLock() {
		slog.Warn("ingest: previous tick still running, skipping")
		s.metrics.TicksTotal.WithLabelValues("skipped").Inc()
		return
	}
	defer s.tickMu.Unlock()
	s.tick(ctx)
}

// tick performs one full ingestion pass. A feed failure aborts the tick;
// failures on individual records are logged and the tick continues.
func (s *Scheduler) tick(ctx context.Context) {
	start := time.Now()

	fetchStart := time.Now()
	doc, err := s.client.Fetch(ctx)
	s.metrics.FetchDuration.Observe(time.Since(fetchStart).Seconds())
	if err != nil {
		if errors.Is(err, feed.ErrShape) {
			slog.Error("ingest: feed payload has unexpected shape, aborting tick", "error", err)
		} else {
			slog.Error("ingest: feed fetch failed, aborting tick", "error", err)
		}
		s.metrics.TicksTotal.WithLabelValues("feed_error").Inc()
		return
	}

	records := doc.Records()
	s.metrics.MatchesInFeed.Set(float64(len(records)))

	at := time.Now().UTC()
	var stored, skipped int
	for i := range records {
		select {
		case <-ctx.Done():
			slog.Warn("ingest: tick interrupted", "processed", stored+skipped, "total", len(records))
			return
		default:
		}

		if err := s.processRecord(ctx, &records[i], at); err != nil {
			skipped++
			s.metrics.RecordsTotal.WithLabelValues("skipped").Inc()
			slog.Warn("ingest: record skipped", "index", i, "home", records[i].O1, "away", records[i].O2, "error", err)
			continue
		}
		stored++
		s.metrics.RecordsTotal.WithLabelValues("ok").Inc()
	}

	s.metrics.TicksTotal.WithLabelValues("ok").Inc()
	s.metrics.TickDuration.Observe(time.Since(start).Seconds())
	slog.Info("ingest: tick complete", "matches", stored, "skipped", skipped, "duration", time.Since(start))
}

// processRecord normalises and decodes one feed record and writes the
// match plus its snapshot in a single transaction.
func (s *Scheduler) processRecord(ctx context.Context, rec *feed.Record, at time.Time) error {
	nm, err := feed.Normalize(rec)
	if err != nil {
		return err
	}

	decoded := markets.Decode(rec)

	matchID, snapshotID, err := s.store.IngestRecord(ctx, nm, decoded, at)
	if err != nil {
		return err
	}
	s.metrics.SnapshotsWritten.Inc()

	if s.broadcaster != nil {
		s.broadcaster.BroadcastSnapshot(SnapshotEvent{
			MatchID:    matchID,
			SnapshotID: snapshotID,
			Status:     nm.Status,
			HomeScore:  nm.HomeScore,
			AwayScore:  nm.AwayScore,
			ObservedAt: at,
		})
	}
	return nil
}
