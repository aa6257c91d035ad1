package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qmercier/livedash/internal/evolution"
	"github.com/qmercier/livedash/internal/pkg/config"
	"github.com/qmercier/livedash/internal/pkg/enums"
	"github.com/qmercier/livedash/internal/pkg/models"
	"github.com/qmercier/livedash/internal/pkg/storage"
)

func fp(v float64) *float64 { return &v }

// fakeCatalogue serves a single match with a two-snapshot history.
type fakeCatalogue struct {
	storage.Catalogue
	match    models.Match
	history  []models.MarketSnapshot
	lastList storage.ListFilter
}

func (f *fakeCatalogue) GetMatch(ctx context.Context, matchID int64) (*models.Match, error) {
	if matchID != f.match.ID {
		return nil, storage.ErrNotFound
	}
	m := f.match
	return &m, nil
}

func (f *fakeCatalogue) ListMatches(ctx context.Context, filter storage.ListFilter, page storage.PageRequest) (*storage.MatchPage, error) {
	f.lastList = filter
	return &storage.MatchPage{
		Matches: []models.Match{f.match},
		Total:   1,
		Page:    1,
		PerPage: 20,
	}, nil
}

func (f *fakeCatalogue) LatestSnapshot(ctx context.Context, matchID int64) (*models.MarketSnapshot, error) {
	if matchID != f.match.ID || len(f.history) == 0 {
		return nil, storage.ErrNotFound
	}
	s := f.history[len(f.history)-1]
	return &s, nil
}

func (f *fakeCatalogue) History(ctx context.Context, matchID int64) ([]models.MarketSnapshot, error) {
	if matchID != f.match.ID {
		return nil, nil
	}
	return f.history, nil
}

func newTestServer(t *testing.T) (*Server, *fakeCatalogue) {
	t.Helper()
	observed := time.Date(2026, 3, 1, 15, 0, 0, 0, time.UTC)
	store := &fakeCatalogue{
		match: models.Match{
			ID:       7,
			HomeTeam: "Lyon",
			AwayTeam: "Metz",
			Sport:    "football",
			League:   "Ligue 1",
			Status:   models.StatusLive,
		},
		history: []models.MarketSnapshot{
			{
				ID: 1, MatchID: 7, ObservedAt: observed,
				Status: models.StatusLive,
				Slots:  models.OddsSlots{Odds1: fp(2.0), OddsX: fp(3.4)},
			},
			{
				ID: 2, MatchID: 7, ObservedAt: observed.Add(2 * time.Minute),
				Status:    models.StatusLive,
				Slots:     models.OddsSlots{Odds1: fp(1.85), OddsX: fp(3.4), Odds2: fp(4.5)},
				OtherOdds: "asian_handicap_home@-1.5:2.1",
			},
		},
	}
	cfg := &config.ServerConfig{Port: 0, ReadHeaderTimeout: time.Second}
	return NewServer(cfg, store, evolution.NewTracker(store), NewHub(), nil), store
}

func TestHandleIndex(t *testing.T) {
	server, store := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/?status=live&sport=football", nil)
	rec := httptest.NewRecorder()

	server.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Lyon")
	assert.Contains(t, body, "Metz")
	assert.Contains(t, body, "1.85")
	// Lowest price wins the favourite hint
	assert.Contains(t, body, ">Lyon<")
	assert.Equal(t, models.StatusLive, store.lastList.Status)
	assert.Equal(t, "football", store.lastList.Sport)
}

func TestHandleIndexSportFilterOptions(t *testing.T) {
	server, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/?sport=tennis", nil)
	rec := httptest.NewRecorder()

	server.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	for _, sport := range enums.GetAllSports() {
		assert.Contains(t, body, ">"+sport.GetSportInfo().Name+"<")
	}
	assert.Contains(t, body, `value="tennis" selected`)
}

func TestHandleIndexIgnoresBogusStatus(t *testing.T) {
	server, store := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/?status=cancelled", nil)
	rec := httptest.NewRecorder()

	server.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, string(store.lastList.Status))
}

func TestHandleMatchPage(t *testing.T) {
	server, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/match/7", nil)
	rec := httptest.NewRecorder()

	server.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Lyon")
	assert.Contains(t, body, "asian_handicap_home@-1.5:2.1")
	assert.Contains(t, body, "Favourite: Lyon")
}

func TestHandleMatchPageNotFound(t *testing.T) {
	server, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/match/999", nil)
	rec := httptest.NewRecorder()

	server.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleAPIMatches(t *testing.T) {
	server, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/matches", nil)
	rec := httptest.NewRecorder()

	server.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Matches []matchRow `json:"matches"`
		Total   int        `json:"total"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Matches, 1)
	assert.Equal(t, 1, resp.Total)
	row := resp.Matches[0]
	assert.Equal(t, "Lyon", row.Match.HomeTeam)
	require.NotNil(t, row.Odds1)
	assert.Equal(t, 1.85, *row.Odds1)
	assert.Equal(t, "Lyon", row.PredictionHint)
}

func TestHandleOddsEvolution(t *testing.T) {
	server, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/odds_evolution/7", nil)
	rec := httptest.NewRecorder()

	server.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		MatchID    int64       `json:"match_id"`
		Timestamps []time.Time `json:"timestamps"`
		Odds1      []*float64  `json:"odds_1"`
		Odds2      []*float64  `json:"odds_2"`
		OtherOdds  []string    `json:"other_odds"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, int64(7), resp.MatchID)
	require.Len(t, resp.Timestamps, 2)
	require.Len(t, resp.Odds1, 2)
	assert.Equal(t, 2.0, *resp.Odds1[0])
	assert.Equal(t, 1.85, *resp.Odds1[1])
	// odds_2 was unset in the first snapshot: null, not zero
	assert.Nil(t, resp.Odds2[0])
	require.NotNil(t, resp.Odds2[1])
	assert.Equal(t, "asian_handicap_home@-1.5:2.1", resp.OtherOdds[1])
}

func TestHandleOddsEvolutionNotFound(t *testing.T) {
	server, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/odds_evolution/999", nil)
	rec := httptest.NewRecorder()

	server.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandlePing(t *testing.T) {
	server, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	rec := httptest.NewRecorder()

	server.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "pong", rec.Body.String())
}

func TestHandleHealth(t *testing.T) {
	server, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()

	server.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp["status"])
}
