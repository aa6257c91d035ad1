package feed

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Models for the upstream bookmaker feed. Field names follow the wire
// format: single-letter keys, heavily optional.

// Document is the top-level feed response.
type Document struct {
	Error     string    `json:"Error"`
	ErrorCode int       `json:"ErrorCode"`
	Success   bool      `json:"Success"`
	Value     *[]Record `json:"Value"` // pointer so a missing array is distinguishable from an empty one
}

// Records returns the Value array, or nil when the document has none.
func (d *Document) Records() []Record {
	if d.Value == nil {
		return nil
	}
	return *d.Value
}

// HasValue reports whether the document carried a Value array at all.
func (d *Document) HasValue() bool {
	return d.Value != nil
}

// Record is a single match record in the feed.
type Record struct {
	I   *int64        `json:"I"`   // Match ID, may be absent
	O1  string        `json:"O1"`  // Home team name
	O2  string        `json:"O2"`  // Away team name
	LE  string        `json:"LE"`  // League name
	SC  ScoreBlock    `json:"SC"`  // Score/clock block
	E   []MarketRow   `json:"E"`   // Primary markets
	AE  []MarketGroup `json:"AE"`  // Extended market groups
	HS  int           `json:"HS"`  // Status code (1=live, 3=finished)
	TN  string        `json:"TN"`  // Textual status
	TNS string        `json:"TNS"` // Textual status (secondary)
	CPS string        `json:"CPS"` // State descriptor
	T   int           `json:"T"`   // Elapsed minute fallback
	S   int64         `json:"S"`   // Start time (Unix timestamp)
	MIS []MisEntry    `json:"MIS"` // Misc k/v pairs (weather etc.)
}

// MarketRow is one priced market: Group, Type, Parameter, Coefficient.
type MarketRow struct {
	G int       `json:"G"`
	T int       `json:"T"`
	P FlexFloat `json:"P"`
	C FlexFloat `json:"C"`
}

// MarketGroup is one AE grouping with its own market list.
type MarketGroup struct {
	G  int         `json:"G"`
	ME []MarketRow `json:"ME"`
}

// ScoreBlock carries the current score and the elapsed clock in seconds.
type ScoreBlock struct {
	FS Score `json:"FS"`
	TS int   `json:"TS"` // Elapsed seconds
}

// Score is the full-time score pair. The feed serializes it either as an
// object {"S1":1,"S2":0} or as a two-element array [1,0], so it gets a
// custom unmarshaller.
type Score struct {
	S1 int
	S2 int
}

func (s *Score) UnmarshalJSON(data []byte) error {
	data = []byte(strings.TrimSpace(string(data)))
	if len(data) == 0 || string(data) == "null" {
		return nil
	}
	if data[0] == '[' {
		var list []FlexFloat
		if err := json.Unmarshal(data, &list); err != nil {
			return err
		}
		if len(list) > 0 {
			s.S1 = int(list[0])
		}
		if len(list) > 1 {
			s.S2 = int(list[1])
		}
		return nil
	}
	var obj struct {
		S1 FlexFloat `json:"S1"`
		S2 FlexFloat `json:"S2"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	s.S1 = int(obj.S1)
	s.S2 = int(obj.S2)
	return nil
}

// MisEntry is one MIS key/value pair. Known keys: 9 = temperature (°C),
// 27 = humidity (%).
type MisEntry struct {
	K int       `json:"K"`
	V FlexFloat `json:"V"`
}

const (
	MisKeyTemperature = 9
	MisKeyHumidity    = 27
)

// FlexFloat decodes a JSON number that the feed sometimes quotes.
type FlexFloat float64

func (f *FlexFloat) UnmarshalJSON(data []byte) error {
	s := strings.Trim(strings.TrimSpace(string(data)), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return err
	}
	*f = FlexFloat(v)
	return nil
}

func (f FlexFloat) Float() float64 {
	return float64(f)
}
