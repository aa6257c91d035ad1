package feed

import (
	"encoding/json"
	"testing"
)

func TestScoreUnmarshal(t *testing.T) {
	tests := []struct {
		name   string
		data   string
		wantS1 int
		wantS2 int
	}{
		{"object form", `{"S1":2,"S2":1}`, 2, 1},
		{"array form", `[3,0]`, 3, 0},
		{"short array", `[1]`, 1, 0},
		{"null", `null`, 0, 0},
		{"quoted numbers", `{"S1":"4","S2":"2"}`, 4, 2},
	}
	for _, tt := range tests {
		var s Score
		if err := json.Unmarshal([]byte(tt.data), &s); err != nil {
			t.Fatalf("%s: unmarshal error = %v", tt.name, err)
		}
		if s.S1 != tt.wantS1 || s.S2 != tt.wantS2 {
			t.Errorf("%s: score = %d:%d, want %d:%d", tt.name, s.S1, s.S2, tt.wantS1, tt.wantS2)
		}
	}
}

func TestFlexFloatUnmarshal(t *testing.T) {
	tests := []struct {
		data string
		want float64
	}{
		{`1.85`, 1.85},
		{`"2.5"`, 2.5},
		{`"-3"`, -3},
		{`null`, 0},
	}
	for _, tt := range tests {
		var f FlexFloat
		if err := json.Unmarshal([]byte(tt.data), &f); err != nil {
			t.Fatalf("unmarshal %s: error = %v", tt.data, err)
		}
		if f.Float() != tt.want {
			t.Errorf("FlexFloat(%s) = %v, want %v", tt.data, f.Float(), tt.want)
		}
	}
}

func TestDocumentValuePresence(t *testing.T) {
	var missing Document
	if err := json.Unmarshal([]byte(`{"Success":true}`), &missing); err != nil {
		t.Fatal(err)
	}
	if missing.HasValue() {
		t.Error("document without Value should report HasValue() == false")
	}

	var empty Document
	if err := json.Unmarshal([]byte(`{"Success":true,"Value":[]}`), &empty); err != nil {
		t.Fatal(err)
	}
	if !empty.HasValue() {
		t.Error("document with empty Value array should report HasValue() == true")
	}
	if len(empty.Records()) != 0 {
		t.Errorf("Records() = %d entries, want 0", len(empty.Records()))
	}
}

func TestRecordUnmarshalFull(t *testing.T) {
	data := `{
		"I": 9001,
		"O1": "PSG", "O2": "Nantes",
		"LE": "Ligue 1",
		"SC": {"FS": {"S1": 1, "S2": 0}, "TS": 1800},
		"E": [{"G": 1, "T": 1, "C": 1.5}],
		"AE": [{"G": 17, "ME": [{"G": 17, "T": 9, "P": 2.5, "C": 1.9}]}],
		"HS": 1,
		"S": 1735689600,
		"MIS": [{"K": 9, "V": 18.5}]
	}`
	var rec Record
	if err := json.Unmarshal([]byte(data), &rec); err != nil {
		t.Fatalf("unmarshal error = %v", err)
	}
	if rec.I == nil || *rec.I != 9001 {
		t.Errorf("I = %v, want 9001", rec.I)
	}
	if rec.SC.TS != 1800 || rec.SC.FS.S1 != 1 {
		t.Errorf("score block = %+v", rec.SC)
	}
	if len(rec.E) != 1 || rec.E[0].C.Float() != 1.5 {
		t.Errorf("E = %+v", rec.E)
	}
	if len(rec.AE) != 1 || len(rec.AE[0].ME) != 1 || rec.AE[0].ME[0].P.Float() != 2.5 {
		t.Errorf("AE = %+v", rec.AE)
	}
}
