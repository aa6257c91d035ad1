package web

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/qmercier/livedash/internal/pkg/enums"
	"github.com/qmercier/livedash/internal/pkg/models"
	"github.com/qmercier/livedash/internal/pkg/storage"
)

// matchRow is one dashboard list entry: the match plus its latest 1X2
// prices and the derived favourite.
type matchRow struct {
	Match          models.Match `json:"match"`
	Odds1          *float64     `json:"odds_1,omitempty"`
	OddsX          *float64     `json:"odds_x,omitempty"`
	Odds2          *float64     `json:"odds_2,omitempty"`
	PredictionHint string       `json:"prediction_hint,omitempty"`
	ObservedAt     *time.Time   `json:"observed_at,omitempty"`
}

func (s *Server) handlePing(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("pong"))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"time":   time.Now().Unix(),
	})
}

// handleIndex renders the match list with sport, league, status and page
// filters taken from the query string.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	filter, page := listParams(r)

	matches, err := s.store.ListMatches(r.Context(), filter, page)
	if err != nil {
		slog.Error("web: failed to list matches", "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	rows := s.buildRows(r, matches.Matches)
	data := indexData{
		Rows:       rows,
		Sports:     enums.GetAllSports(),
		Sport:      filter.Sport,
		League:     filter.League,
		Status:     string(filter.Status),
		Page:       matches.Page,
		PerPage:    matches.PerPage,
		Total:      matches.Total,
		TotalPages: (matches.Total + matches.PerPage - 1) / matches.PerPage,
	}
	s.renderTemplate(w, "index.html", data)
}

// handleMatchPage renders one match with its latest snapshot and full
// odds history.
func (s *Server) handleMatchPage(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		http.Error(w, "invalid match id", http.StatusBadRequest)
		return
	}

	match, err := s.store.GetMatch(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		slog.Error("web: failed to load match", "match_id", id, "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	history, err := s.tracker.History(r.Context(), id)
	if err != nil {
		slog.Error("web: failed to load history", "match_id", id, "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	data := matchData{Match: match, History: history}
	if len(history) > 0 {
		latest := &history[len(history)-1]
		data.Latest = latest
		data.OtherOdds = splitOtherOdds(latest.OtherOdds)
		data.PredictionHint = predictionHint(&latest.Slots, match.HomeTeam, match.AwayTeam)
	}
	s.renderTemplate(w, "match.html", data)
}

// handleAPIMatches is the JSON twin of the index page.
func (s *Server) handleAPIMatches(w http.ResponseWriter, r *http.Request) {
	filter, page := listParams(r)

	matches, err := s.store.ListMatches(r.Context(), filter, page)
	if err != nil {
		slog.Error("web: failed to list matches", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"matches":  s.buildRows(r, matches.Matches),
		"total":    matches.Total,
		"page":     matches.Page,
		"per_page": matches.PerPage,
	})
}

// handleOddsEvolution returns the full snapshot series for one match.
// Unknown match ids get 404 rather than an empty series.
func (s *Server) handleOddsEvolution(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["match_id"], 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid match id"})
		return
	}

	if _, err := s.store.GetMatch(r.Context(), id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "match not found"})
			return
		}
		slog.Error("web: failed to load match", "match_id", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	history, err := s.tracker.History(r.Context(), id)
	if err != nil {
		slog.Error("web: failed to load history", "match_id", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	// Parallel arrays on a shared timestamp axis: one top-level array per
	// structured slot, null where the slot was unset in that snapshot.
	timestamps := make([]time.Time, 0, len(history))
	statuses := make([]models.MatchStatus, 0, len(history))
	minutes := make([]*int, 0, len(history))
	homeScores := make([]int, 0, len(history))
	awayScores := make([]int, 0, len(history))
	otherOdds := make([]string, 0, len(history))
	series := make(map[string][]*float64, len(models.SlotNames))
	for _, name := range models.SlotNames {
		series[name] = make([]*float64, 0, len(history))
	}
	for i := range history {
		snap := &history[i]
		timestamps = append(timestamps, snap.ObservedAt)
		statuses = append(statuses, snap.Status)
		minutes = append(minutes, snap.Minute)
		homeScores = append(homeScores, snap.HomeScore)
		awayScores = append(awayScores, snap.AwayScore)
		otherOdds = append(otherOdds, snap.OtherOdds)
		for _, name := range models.SlotNames {
			series[name] = append(series[name], *snap.Slots.Slot(name))
		}
	}

	resp := map[string]any{
		"match_id":    id,
		"timestamps":  timestamps,
		"statuses":    statuses,
		"minutes":     minutes,
		"home_scores": homeScores,
		"away_scores": awayScores,
		"other_odds":  otherOdds,
	}
	for name, values := range series {
		resp[name] = values
	}

	writeJSON(w, http.StatusOK, resp)
}

// buildRows attaches the latest 1X2 prices and favourite hint to each match.
func (s *Server) buildRows(r *http.Request, matches []models.Match) []matchRow {
	rows := make([]matchRow, 0, len(matches))
	for i := range matches {
		row := matchRow{Match: matches[i]}
		snap, err := s.store.LatestSnapshot(r.Context(), matches[i].ID)
		if err == nil {
			row.Odds1 = snap.Slots.Odds1
			row.OddsX = snap.Slots.OddsX
			row.Odds2 = snap.Slots.Odds2
			row.PredictionHint = predictionHint(&snap.Slots, matches[i].HomeTeam, matches[i].AwayTeam)
			t := snap.ObservedAt
			row.ObservedAt = &t
		} else if !errors.Is(err, storage.ErrNotFound) {
			slog.Warn("web: failed to load latest snapshot", "match_id", matches[i].ID, "error", err)
		}
		rows = append(rows, row)
	}
	return rows
}

// predictionHint names the 1X2 outcome with the highest implied
// probability, i.e. the lowest price. Empty when no 1X2 prices are set.
func predictionHint(slots *models.OddsSlots, home, away string) string {
	best := ""
	var bestPrice float64
	consider := func(price *float64, label string) {
		if price == nil {
			return
		}
		if best == "" || *price < bestPrice {
			best, bestPrice = label, *price
		}
	}
	consider(slots.Odds1, home)
	consider(slots.OddsX, "Draw")
	consider(slots.Odds2, away)
	return best
}

func listParams(r *http.Request) (storage.ListFilter, storage.PageRequest) {
	q := r.URL.Query()
	filter := storage.ListFilter{
		Sport:  q.Get("sport"),
		League: q.Get("league"),
	}
	if st, ok := models.ParseStatus(q.Get("status")); ok {
		filter.Status = st
	}

	page, _ := strconv.Atoi(q.Get("page"))
	perPage, _ := strconv.Atoi(q.Get("per_page"))
	return filter, storage.PageRequest{Page: page, PerPage: perPage}
}

func splitOtherOdds(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ";")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("web: failed to encode response", "error", err)
	}
}
