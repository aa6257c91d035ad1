package enums

import "strings"

// Sport represents supported sports types
type Sport string

const (
	Football        Sport = "football"
	Basketball      Sport = "basketball"
	Tennis          Sport = "tennis"
	Hockey          Sport = "hockey"
	TableBasketball Sport = "table_basketball"
	Cricket         Sport = "cricket"
)

// SportInfo contains additional information about a sport
type SportInfo struct {
	Name  string
	Alias string
}

// GetSportInfo returns sport information
func (s Sport) GetSportInfo() SportInfo {
	switch s {
	case Football:
		return SportInfo{Name: "Football", Alias: "football"}
	case Basketball:
		return SportInfo{Name: "Basketball", Alias: "basketball"}
	case Tennis:
		return SportInfo{Name: "Tennis", Alias: "tennis"}
	case Hockey:
		return SportInfo{Name: "Hockey", Alias: "hockey"}
	case TableBasketball:
		return SportInfo{Name: "Table Basketball", Alias: "table_basketball"}
	case Cricket:
		return SportInfo{Name: "Cricket", Alias: "cricket"}
	default:
		return SportInfo{Name: "Unknown", Alias: "unknown"}
	}
}

// IsValid checks if sport is supported
func (s Sport) IsValid() bool {
	switch s {
	case Football, Basketball, Tennis, Hockey, TableBasketball, Cricket:
		return true
	default:
		return false
	}
}

// String returns string representation
func (s Sport) String() string {
	return string(s)
}

// GetAllSports returns all supported sports
func GetAllSports() []Sport {
	return []Sport{Football, Basketball, Tennis, Hockey, TableBasketball, Cricket}
}

// ParseSport parses string to Sport enum
func ParseSport(s string) (Sport, bool) {
	sport := Sport(strings.ToLower(strings.TrimSpace(s)))
	return sport, sport.IsValid()
}

// sportKeywords maps league-label substrings to sports, checked in order.
// The upstream feed carries no sport field, only the league label.
var sportKeywords = []struct {
	keywords []string
	sport    Sport
}{
	{[]string{"wta", "atp", "tennis"}, Tennis},
	{[]string{"basket", "nba", "nbl", "ipbl"}, Basketball},
	{[]string{"hockey"}, Hockey},
	{[]string{"tbl", "table"}, TableBasketball},
	{[]string{"cricket"}, Cricket},
}

// ClassifyLeague derives the sport from a league label.
// Case-insensitive substring match, first match wins; football is the default.
func ClassifyLeague(league string) Sport {
	l := strings.ToLower(league)
	for _, group := range sportKeywords {
		for _, kw := range group.keywords {
			if strings.Contains(l, kw) {
				return group.sport
			}
		}
	}
	return Football
}
