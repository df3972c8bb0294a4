package game

import "testing"

func TestInputLatestWins(t *testing.T) {
	b := NewInputBuffer()

	b.Offer("A", DirUp)
	b.Offer("A", DirLeft)
	b.Offer("A", DirDown)

	got := b.Drain(nil)
	if len(got) != 1 {
		t.Fatalf("expected 1 pending intent, got %d", len(got))
	}
	if got["A"] != DirDown {
		t.Errorf("expected latest intent down, got %s", got["A"])
	}
	if b.Accepted() != 3 {
		t.Errorf("expected 3 accepted inputs, got %d", b.Accepted())
	}
}

func TestInputDrainClears(t *testing.T) {
	b := NewInputBuffer()
	b.Offer("A", DirUp)
	b.Offer("B", DirLeft)

	first := b.Drain(nil)
	if len(first) != 2 {
		t.Fatalf("expected 2 intents, got %d", len(first))
	}

	second := b.Drain(first)
	if len(second) != 0 {
		t.Errorf("second drain should be empty, got %d intents", len(second))
	}
}

func TestInputDrainReusesScratchMap(t *testing.T) {
	b := NewInputBuffer()
	scratch := map[string]Direction{"stale": DirUp}

	b.Offer("A", DirRight)
	got := b.Drain(scratch)

	if _, ok := got["stale"]; ok {
		t.Error("scratch map was not cleared")
	}
	if got["A"] != DirRight {
		t.Errorf("expected right, got %s", got["A"])
	}
}

func TestInputForget(t *testing.T) {
	b := NewInputBuffer()
	b.Offer("A", DirUp)
	b.Offer("B", DirDown)
	b.Forget("A")

	got := b.Drain(nil)
	if _, ok := got["A"]; ok {
		t.Error("forgotten player's intent survived")
	}
	if got["B"] != DirDown {
		t.Errorf("expected down for B, got %s", got["B"])
	}
}
