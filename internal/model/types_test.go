package model

import (
	"encoding/json"
	"testing"
	"time"
)

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{"pair", ModePair, false},
		{"debate", ModeDebate, false},
		{"teaching", ModeTeaching, false},
		{"consensus", ModeConsensus, false},
		{"competition", ModeCompetition, false},
		{"", 0, true},
		{"Pair", 0, true},
		{"karaoke", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseMode(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseMode(%q): expected error, got %v", tt.in, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseMode(%q): %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseMode(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestModeRoundTrip(t *testing.T) {
	for _, m := range Modes() {
		got, err := ParseMode(m.String())
		if err != nil {
			t.Fatalf("ParseMode(%q): %v", m.String(), err)
		}
		if got != m {
			t.Errorf("round trip %v -> %q -> %v", m, m.String(), got)
		}
	}
}

func TestModeJSON(t *testing.T) {
	type wrapper struct {
		M Mode `json:"m"`
	}
	data, err := json.Marshal(wrapper{M: ModeDebate})
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `{"m":"debate"}` {
		t.Errorf("marshal = %s", data)
	}
	var w wrapper
	if err := json.Unmarshal([]byte(`{"m":"teaching"}`), &w); err != nil {
		t.Fatal(err)
	}
	if w.M != ModeTeaching {
		t.Errorf("unmarshal = %v, want teaching", w.M)
	}
	if err := json.Unmarshal([]byte(`{"m":"nope"}`), &w); err == nil {
		t.Error("expected error for unknown mode")
	}
}

func TestStateIsLive(t *testing.T) {
	for _, s := range []State{StateCreated, StateActive, StateSnapshotted} {
		if !s.IsLive() {
			t.Errorf("%s should be live", s)
		}
	}
	if StateTerminated.IsLive() {
		t.Error("terminated should not be live")
	}
}

func TestSessionExpired(t *testing.T) {
	now := time.Now()
	s := &Session{CreatedAt: now.Add(-2 * time.Hour), Duration: time.Hour}
	if !s.Expired(now) {
		t.Error("expected expired")
	}
	s.Duration = 0
	if s.Expired(now) {
		t.Error("zero duration should never expire")
	}
	s.Duration = 3 * time.Hour
	if s.Expired(now) {
		t.Error("not yet expired")
	}
}

func TestSessionClone(t *testing.T) {
	orig := &Session{
		Name:        "kawaii_test",
		Mode:        ModePair,
		AgentCount:  2,
		State:       StateActive,
		Layout:      Split(SplitHorizontal, Leaf("driver"), Leaf("navigator")),
		SnapshotIDs: []string{"kawaii_test-1"},
	}
	c := orig.Clone()
	c.Layout.Children[0].PaneID = "%9"
	c.SnapshotIDs[0] = "mutated"
	if orig.Layout.Children[0].PaneID != "" {
		t.Error("clone shares layout with original")
	}
	if orig.SnapshotIDs[0] != "kawaii_test-1" {
		t.Error("clone shares snapshot refs with original")
	}
}

func TestGenerateName(t *testing.T) {
	ts := time.Date(2026, 8, 26, 14, 5, 9, 0, time.UTC)
	if got := GenerateName(ts); got != "kawaii_20260826_140509" {
		t.Errorf("GenerateName = %q", got)
	}
}
