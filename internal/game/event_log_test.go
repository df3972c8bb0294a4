package game

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestEventLogInertBeforeStart(t *testing.T) {
	el := NewEventLog()
	if el.EmitSimple(EventTypeJoin, 1, "A", JoinPayload{PlayerID: "A"}) {
		t.Error("emit before start should be dropped")
	}
}

func TestEventLogWritesJSONL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")

	el := NewEventLog()
	if err := el.Start(path); err != nil {
		t.Fatalf("start: %v", err)
	}

	if !el.EmitSimple(EventTypeJoin, 1, "A", JoinPayload{PlayerID: "A", SpawnX: 3, SpawnY: 4, Direction: "right"}) {
		t.Fatal("emit rejected")
	}
	if !el.EmitSimple(EventTypeDeath, 5, "A", DeathPayload{PlayerID: "A", Cause: "wall", X: 0, Y: 4, Score: 4}) {
		t.Fatal("emit rejected")
	}

	el.Stop() // flushes pending batch

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open log: %v", err)
	}
	defer f.Close()

	var events []Event
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var ev Event
		if err := json.Unmarshal(sc.Bytes(), &ev); err != nil {
			t.Fatalf("bad JSONL line %q: %v", sc.Text(), err)
		}
		events = append(events, ev)
	}
	if err := sc.Err(); err != nil {
		t.Fatal(err)
	}

	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].Type != EventTypeJoin || events[0].Tick != 1 {
		t.Errorf("unexpected first event: %+v", events[0])
	}
	if events[1].Type != EventTypeDeath || events[1].PlayerID != "A" {
		t.Errorf("unexpected second event: %+v", events[1])
	}
	if events[0].Sequence >= events[1].Sequence {
		t.Error("event sequence must be monotonic")
	}
}

func TestEventLogStopIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")

	el := NewEventLog()
	if err := el.Start(path); err != nil {
		t.Fatalf("start: %v", err)
	}
	el.EmitSimple(EventTypeTick, 1, "", TickPayload{PlayerCount: 0, AliveCount: 0})

	el.Stop()
	el.Stop()

	if el.Emit(NewEvent(EventTypeTick, 2, "", nil)) {
		t.Error("emit after stop should be dropped")
	}
}
