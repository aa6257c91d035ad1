package web

import (
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/qmercier/livedash/internal/pkg/enums"
	"github.com/qmercier/livedash/internal/pkg/models"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.New("").Funcs(template.FuncMap{
	"price":  formatPrice,
	"minute": formatMinute,
	"when":   formatWhen,
	"whenp":  formatWhenPtr,
	"deref": func(p *float64) float64 {
		if p == nil {
			return 0
		}
		return *p
	},
	"add": func(a, b int) int { return a + b },
	"sub": func(a, b int) int { return a - b },
}).ParseFS(templateFS, "templates/*.html"))

// indexData feeds the match list page.
type indexData struct {
	Rows       []matchRow
	Sports     []enums.Sport
	Sport      string
	League     string
	Status     string
	Page       int
	PerPage    int
	Total      int
	TotalPages int
}

// matchData feeds the match detail page.
type matchData struct {
	Match          *models.Match
	Latest         *models.MarketSnapshot
	History        []models.MarketSnapshot
	OtherOdds      []string
	PredictionHint string
}

// SlotNames exposes the stable column order to the detail template.
func (matchData) SlotNames() []string { return models.SlotNames }

// SlotValue lets the template index a snapshot's slots by column name.
func (matchData) SlotValue(snap *models.MarketSnapshot, name string) *float64 {
	p := snap.Slots.Slot(name)
	if p == nil {
		return nil
	}
	return *p
}

func (s *Server) renderTemplate(w http.ResponseWriter, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := templates.ExecuteTemplate(w, name, data); err != nil {
		slog.Error("web: template render failed", "template", name, "error", err)
	}
}

func formatPrice(p *float64) string {
	if p == nil {
		return "–"
	}
	return fmt.Sprintf("%.2f", *p)
}

func formatMinute(m *int) string {
	if m == nil {
		return ""
	}
	return fmt.Sprintf("%d'", *m)
}

func formatWhen(t time.Time) string {
	return t.UTC().Format("2006-01-02 15:04")
}

func formatWhenPtr(t *time.Time) string {
	if t == nil {
		return "–"
	}
	return formatWhen(*t)
}
