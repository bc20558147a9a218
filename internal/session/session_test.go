package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sweeney/temp-logger/internal/logic"
)

func testManager(t *testing.T) *Manager {
	t.Helper()
	dir := t.TempDir()
	return NewManager(filepath.Join(dir, "TestResults"), filepath.Join(dir, "config", "counter.json"))
}

func TestNextCounterMissingFileStartsAtOne(t *testing.T) {
	path := filepath.Join(t.TempDir(), "counter.json")

	n, err := NextCounter(path)
	if err != nil {
		t.Fatalf("NextCounter: %v", err)
	}
	if n != 1 {
		t.Errorf("first counter value: got %d, want 1", n)
	}

	n, err = NextCounter(path)
	if err != nil {
		t.Fatalf("NextCounter: %v", err)
	}
	if n != 2 {
		t.Errorf("second counter value: got %d, want 2", n)
	}
}

func TestNextCounterCorruptFileResets(t *testing.T) {
	path := filepath.Join(t.TempDir(), "counter.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	n, err := NextCounter(path)
	if err != nil {
		t.Fatalf("NextCounter: %v", err)
	}
	if n != 1 {
		t.Errorf("corrupt file should reset to 1, got %d", n)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var cf counterFile
	if err := json.Unmarshal(raw, &cf); err != nil {
		t.Fatalf("rewritten counter file is not valid JSON: %v", err)
	}
	if cf.SessionCounter != 1 {
		t.Errorf("persisted counter: got %d, want 1", cf.SessionCounter)
	}
}

func TestStartCreatesFolderAndJournal(t *testing.T) {
	m := testManager(t)
	m.now = func() time.Time { return time.Date(2026, 3, 1, 10, 30, 0, 0, time.UTC) }
	m.newToken = func() string { return "ab12cd" }

	snap, err := m.Start("My Test! Run", []Column{{ID: "a", Name: "Sensor_1"}})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	wantFolder := "My Test Run[AT:001][2026-03-01_10-30-00][UUID:ab12cd]"
	if filepath.Base(snap.Folder) != wantFolder {
		t.Errorf("folder name: got %q, want %q", filepath.Base(snap.Folder), wantFolder)
	}
	if fi, err := os.Stat(snap.Folder); err != nil || !fi.IsDir() {
		t.Errorf("session folder was not created: %v", err)
	}

	entries, _ := os.ReadDir(snap.Folder)
	if len(entries) != 1 || !strings.HasPrefix(entries[0].Name(), "temp_log[AT:001]") {
		t.Errorf("expected one journal file, got %v", entries)
	}
}

func TestStartIdentityUniqueness(t *testing.T) {
	m := testManager(t)

	first, err := m.Start("run", nil)
	if err != nil {
		t.Fatal(err)
	}
	m.Finish()
	m.Reset()

	second, err := m.Start("run", nil)
	if err != nil {
		t.Fatal(err)
	}

	if second.Counter <= first.Counter {
		t.Errorf("counter must strictly increase: %d then %d", first.Counter, second.Counter)
	}
	if first.Counter == second.Counter && first.Token == second.Token {
		t.Error("two sessions produced the same (counter, token) pair")
	}
}

func TestAppendWritesAndFlushesJournal(t *testing.T) {
	m := testManager(t)
	m.newToken = func() string { return "t0k3n0" }

	_, err := m.Start("run", []Column{{ID: "a", Name: "Flow"}, {ID: "b", Name: "Return"}})
	if err != nil {
		t.Fatal(err)
	}

	ts := time.Date(2026, 3, 1, 10, 30, 5, 0, time.UTC)
	err = m.Append("LOG", logic.Reading{
		Timestamp: ts,
		Seconds:   5,
		Values: map[string]logic.Value{
			"a": {Temp: 20.6875, Valid: true},
			"b": {}, // absent
		},
	})
	if err != nil {
		t.Fatalf("Append: %v", err)
	}

	snap, _ := m.Current()
	if len(snap.Rows) != 1 {
		t.Fatalf("expected 1 buffered row, got %d", len(snap.Rows))
	}

	entries, _ := os.ReadDir(snap.Folder)
	raw, err := os.ReadFile(filepath.Join(snap.Folder, entries[0].Name()))
	if err != nil {
		t.Fatal(err)
	}
	want := "LOG,5.0," + ts.Format(time.RFC3339) + ",20.688,ERROR\n"
	if string(raw) != want {
		t.Errorf("journal content:\n got %q\nwant %q", string(raw), want)
	}
}

func TestAppendFreezesColumnOrder(t *testing.T) {
	m := testManager(t)
	if _, err := m.Start("run", []Column{{ID: "b", Name: "B"}, {ID: "a", Name: "A"}}); err != nil {
		t.Fatal(err)
	}

	m.Append("LOG", logic.Reading{
		Timestamp: time.Now(),
		Values: map[string]logic.Value{
			"a": {Temp: 1, Valid: true},
			"b": {Temp: 2, Valid: true},
		},
	})

	snap, _ := m.Current()
	if snap.Rows[0].Values[0].Temp != 2 || snap.Rows[0].Values[1].Temp != 1 {
		t.Errorf("row values must follow frozen column order, got %v", snap.Rows[0].Values)
	}
}

func TestFinishRenamesOnceAndIsIdempotent(t *testing.T) {
	m := testManager(t)
	end := time.Date(2026, 3, 1, 11, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return end }
	m.newToken = func() string { return "zzzzzz" }

	if _, err := m.Start("run", nil); err != nil {
		t.Fatal(err)
	}

	first, err := m.Finish()
	if err != nil {
		t.Fatalf("Finish: %v", err)
	}
	if !strings.HasSuffix(first.Folder, "[END:2026-03-01_11-00-00]") {
		t.Errorf("finalized folder should embed end time, got %q", first.Folder)
	}
	if _, err := os.Stat(first.Folder); err != nil {
		t.Errorf("renamed folder missing: %v", err)
	}

	second, err := m.Finish()
	if err != nil {
		t.Fatalf("second Finish: %v", err)
	}
	if second.Folder != first.Folder {
		t.Errorf("second Finish changed the folder: %q vs %q", second.Folder, first.Folder)
	}
	if strings.Count(filepath.Base(second.Folder), "[END:") != 1 {
		t.Errorf("end marker duplicated: %q", second.Folder)
	}

	// The original (pre-rename) folder must be gone — rename, not copy.
	parent := filepath.Dir(first.Folder)
	entries, _ := os.ReadDir(parent)
	if len(entries) != 1 {
		t.Errorf("expected exactly one session folder after finalize, got %d", len(entries))
	}
}

func TestAppendAfterFinishIsRejected(t *testing.T) {
	m := testManager(t)
	if _, err := m.Start("run", nil); err != nil {
		t.Fatal(err)
	}
	m.Finish()

	err := m.Append("LOG", logic.Reading{Timestamp: time.Now()})
	if err == nil {
		t.Error("append after finish should fail")
	}
}

func TestResetClearsIdentityAndBuffer(t *testing.T) {
	m := testManager(t)
	if _, err := m.Start("run", []Column{{ID: "a", Name: "A"}}); err != nil {
		t.Fatal(err)
	}
	m.Append("LOG", logic.Reading{Timestamp: time.Now(), Values: map[string]logic.Value{"a": {Temp: 1, Valid: true}}})
	m.Finish()
	m.Reset()

	if _, ok := m.Current(); ok {
		t.Error("manager should have no session after Reset")
	}

	snap, err := m.Start("next", nil)
	if err != nil {
		t.Fatalf("Start after Reset: %v", err)
	}
	if len(snap.Rows) != 0 {
		t.Errorf("new session must start with an empty buffer, got %d rows", len(snap.Rows))
	}
}

func TestJournalLineFormats(t *testing.T) {
	ts := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	row := Row{
		Kind:      "LOG",
		Seconds:   12.5,
		Timestamp: ts,
		Values:    []logic.Value{{Temp: -0.0625, Valid: true}, {}},
	}
	got := JournalLine(row)
	want := fmt.Sprintf("LOG,12.5,%s,-0.063,ERROR", ts.Format(time.RFC3339))
	if got != want {
		t.Errorf("JournalLine:\n got %q\nwant %q", got, want)
	}
}
