package status

import (
	"encoding/json"
	"testing"
	"time"
)

func TestTrackerSnapshotIsACopy(t *testing.T) {
	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	tr := NewTracker(start, Config{LogIntervalSec: 10, ViewIntervalSec: 3})

	tr.SetReading(start, []ChannelValue{{ID: "a", Name: "Flow", Temp: 20.5, Valid: true}})
	snap := tr.Snapshot()

	snap.LastReading[0].Temp = 99

	if tr.Snapshot().LastReading[0].Temp != 20.5 {
		t.Error("mutating a snapshot leaked into the tracker")
	}
}

func TestTrackerStateTransitions(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})
	if got := tr.Snapshot().State; got != "idle" {
		t.Errorf("initial state: got %q, want idle", got)
	}
	tr.SetState("running")
	if got := tr.Snapshot().State; got != "running" {
		t.Errorf("state: got %q", got)
	}
}

func TestFormatJSONAbsentValueOmitsTemp(t *testing.T) {
	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	tr := NewTracker(start, Config{HTTPAddr: ":8080"})
	tr.SetSensors(2)
	tr.SetReading(start.Add(time.Minute), []ChannelValue{
		{ID: "a", Name: "Flow", Temp: 20.5, Valid: true},
		{ID: "b", Name: "Return", Valid: false},
	})

	var parsed StatusJSON
	if err := json.Unmarshal(FormatJSON(tr.Snapshot()), &parsed); err != nil {
		t.Fatalf("status JSON invalid: %v", err)
	}

	if parsed.Status.Sensors != 2 {
		t.Errorf("sensors: got %d", parsed.Status.Sensors)
	}
	if len(parsed.Status.Reading) != 2 {
		t.Fatalf("expected 2 reading entries, got %d", len(parsed.Status.Reading))
	}
	if parsed.Status.Reading[0].Temp == nil || *parsed.Status.Reading[0].Temp != 20.5 {
		t.Errorf("present value: got %v", parsed.Status.Reading[0].Temp)
	}
	if parsed.Status.Reading[1].Temp != nil {
		t.Errorf("absent value must not appear as a number, got %v", *parsed.Status.Reading[1].Temp)
	}
}

func TestFormatJSONSession(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})
	tr.SetSession(&SessionInfo{Name: "run", Counter: 3, Token: "ab12cd", Rows: 42})

	var parsed StatusJSON
	if err := json.Unmarshal(FormatJSON(tr.Snapshot()), &parsed); err != nil {
		t.Fatal(err)
	}
	s := parsed.Status.Session
	if s == nil || s.Counter != 3 || s.Token != "ab12cd" || s.Rows != 42 {
		t.Errorf("session JSON: %+v", s)
	}

	tr.SetSession(nil)
	var cleared StatusJSON
	if err := json.Unmarshal(FormatJSON(tr.Snapshot()), &cleared); err != nil {
		t.Fatal(err)
	}
	if cleared.Status.Session != nil {
		t.Error("cleared session should be omitted from the JSON")
	}
}
