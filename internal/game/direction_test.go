package game

import (
	"encoding/json"
	"testing"
)

func TestDirectionOpposite(t *testing.T) {
	pairs := map[Direction]Direction{
		DirUp:    DirDown,
		DirDown:  DirUp,
		DirLeft:  DirRight,
		DirRight: DirLeft,
	}
	for d, want := range pairs {
		if got := d.Opposite(); got != want {
			t.Errorf("%s.Opposite() = %s, want %s", d, got, want)
		}
	}
}

func TestDirectionDelta(t *testing.T) {
	tests := []struct {
		dir    Direction
		dx, dy int
	}{
		{DirUp, 0, -1},
		{DirDown, 0, 1},
		{DirLeft, -1, 0},
		{DirRight, 1, 0},
	}
	for _, tt := range tests {
		dx, dy := tt.dir.Delta()
		if dx != tt.dx || dy != tt.dy {
			t.Errorf("%s.Delta() = (%d,%d), want (%d,%d)", tt.dir, dx, dy, tt.dx, tt.dy)
		}
	}
}

func TestParseDirection(t *testing.T) {
	tests := []struct {
		in   string
		want Direction
		ok   bool
	}{
		{"up", DirUp, true},
		{"down", DirDown, true},
		{"left", DirLeft, true},
		{"right", DirRight, true},
		{"UP", 0, false},
		{"north", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		got, ok := ParseDirection(tt.in)
		if ok != tt.ok {
			t.Errorf("ParseDirection(%q) ok = %v, want %v", tt.in, ok, tt.ok)
			continue
		}
		if ok && got != tt.want {
			t.Errorf("ParseDirection(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestDirectionJSON(t *testing.T) {
	b, err := json.Marshal(DirLeft)
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != `"left"` {
		t.Errorf(`expected "left", got %s`, b)
	}

	var d Direction
	if err := json.Unmarshal([]byte(`"up"`), &d); err != nil {
		t.Fatal(err)
	}
	if d != DirUp {
		t.Errorf("expected up, got %s", d)
	}

	if err := json.Unmarshal([]byte(`"sideways"`), &d); err == nil {
		t.Error("expected error for unknown direction")
	}
	if err := json.Unmarshal([]byte(`42`), &d); err == nil {
		t.Error("expected error for non-string direction")
	}
}
