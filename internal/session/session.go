// Package session owns measurement session identity, the in-memory sample
// buffer, and the on-disk session folder with its append-only journal.
package session

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sweeney/temp-logger/internal/logic"
)

// FolderTimeLayout formats the timestamps embedded in folder and file names.
const FolderTimeLayout = "2006-01-02_15-04-05"

// AbsentMarker is written to the journal for a disabled or failed channel.
const AbsentMarker = "ERROR"

// DefaultName is used when the user-provided measurement name sanitizes to
// nothing.
const DefaultName = "temptestlog"

// Column pins one channel's id and display name. The mapping is frozen at
// session start; renaming a sensor mid-session affects only the next
// session's exports.
type Column struct {
	ID   string
	Name string
}

// Row is one buffered sample in frozen column order.
type Row struct {
	Kind      string // "LOG"
	Seconds   float64
	Timestamp time.Time
	Values    []logic.Value
}

// Snapshot is an immutable copy of a session handed to the export pipeline
// and status surfaces.
type Snapshot struct {
	Name      string
	Counter   int
	Token     string
	StartTime time.Time
	EndTime   time.Time // zero while running
	Folder    string
	Columns   []Column
	Rows      []Row
	Finished  bool
}

// Manager owns at most one session at a time. All mutation happens under one
// exclusive lock shared by the scheduler's control path and its cadence
// workers.
type Manager struct {
	resultsRoot string
	counterPath string

	now      func() time.Time
	newToken func() string

	mu       sync.Mutex
	active   bool
	finished bool
	snap     Snapshot
	journal  *os.File
}

// NewManager creates a Manager that places session folders under resultsRoot
// and persists the counter at counterPath.
func NewManager(resultsRoot, counterPath string) *Manager {
	return &Manager{
		resultsRoot: resultsRoot,
		counterPath: counterPath,
		now:         time.Now,
		newToken:    ShortToken,
	}
}

// ShortToken returns a 6-character random disambiguator.
func ShortToken() string {
	return uuid.New().String()[:6]
}

// Start creates a fresh session: next counter value, new token, start time,
// durable session folder and an open journal inside it, with the column
// mapping frozen from the given channels. Any previous buffer is discarded.
//
// A failure to create the folder or open the journal fails the start attempt
// cleanly: no session exists afterwards and nothing is left half-created.
func (m *Manager) Start(name string, columns []Column) (Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active && !m.finished {
		return Snapshot{}, fmt.Errorf("session already in progress")
	}

	counter, err := NextCounter(m.counterPath)
	if err != nil {
		// The counter file is best-effort; losing it must not block a
		// measurement. Fall back to 1 and keep going.
		log.Printf("session: counter error, using 1: %v", err)
		counter = 1
	}

	base := logic.SanitizeName(name)
	if base == "" {
		base = DefaultName
	}
	start := m.now()
	token := m.newToken()

	folderName := fmt.Sprintf("%s[AT:%03d][%s][UUID:%s]",
		base, counter, start.Format(FolderTimeLayout), token)
	folder := filepath.Join(m.resultsRoot, folderName)
	if err := os.MkdirAll(folder, 0o755); err != nil {
		return Snapshot{}, fmt.Errorf("create session folder: %w", err)
	}

	journalName := fmt.Sprintf("temp_log[AT:%03d][%s][UUID:%s].txt",
		counter, start.Format(FolderTimeLayout), token)
	journal, err := os.OpenFile(filepath.Join(folder, journalName),
		os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		os.Remove(folder)
		return Snapshot{}, fmt.Errorf("open journal: %w", err)
	}

	cols := make([]Column, len(columns))
	copy(cols, columns)

	m.active = true
	m.finished = false
	m.journal = journal
	m.snap = Snapshot{
		Name:      base,
		Counter:   counter,
		Token:     token,
		StartTime: start,
		Folder:    folder,
		Columns:   cols,
	}
	return m.snapshotLocked(), nil
}

// Append buffers one reading in frozen column order and, for LOG rows,
// writes and flushes the journal line so a crash loses at most one
// unwritten sample.
func (m *Manager) Append(kind string, r logic.Reading) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.active || m.finished {
		return fmt.Errorf("no session running")
	}

	row := Row{
		Kind:      kind,
		Seconds:   r.Seconds,
		Timestamp: r.Timestamp,
		Values:    make([]logic.Value, len(m.snap.Columns)),
	}
	for i, col := range m.snap.Columns {
		row.Values[i] = r.Values[col.ID]
	}
	m.snap.Rows = append(m.snap.Rows, row)

	if kind == "LOG" && m.journal != nil {
		if _, err := m.journal.WriteString(JournalLine(row) + "\n"); err != nil {
			return fmt.Errorf("write journal: %w", err)
		}
		if err := m.journal.Sync(); err != nil {
			return fmt.Errorf("flush journal: %w", err)
		}
	}
	return nil
}

// JournalLine renders one row in the journal format:
// LOG,<elapsed_seconds>,<RFC3339 timestamp>,<value or ERROR per column>.
func JournalLine(row Row) string {
	parts := make([]string, 0, 3+len(row.Values))
	parts = append(parts,
		row.Kind,
		strconv.FormatFloat(row.Seconds, 'f', 1, 64),
		row.Timestamp.Format(time.RFC3339),
	)
	for _, v := range row.Values {
		if v.Valid {
			parts = append(parts, strconv.FormatFloat(v.Temp, 'f', 3, 64))
		} else {
			parts = append(parts, AbsentMarker)
		}
	}
	return strings.Join(parts, ",")
}

// Finish seals the session: sets the end time, closes the journal, and
// renames the folder exactly once to embed the end timestamp. Calling Finish
// again is a no-op returning the sealed snapshot.
func (m *Manager) Finish() (Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.active {
		return Snapshot{}, fmt.Errorf("no session to finish")
	}
	if m.finished {
		return m.snapshotLocked(), nil
	}

	m.snap.EndTime = m.now()
	m.finished = true
	m.snap.Finished = true

	if m.journal != nil {
		if err := m.journal.Close(); err != nil {
			log.Printf("session: close journal: %v", err)
		}
		m.journal = nil
	}

	sealed := m.snap.Folder + fmt.Sprintf("[END:%s]", m.snap.EndTime.Format(FolderTimeLayout))
	if err := os.Rename(m.snap.Folder, sealed); err != nil {
		log.Printf("session: finalize rename: %v", err)
	} else {
		m.snap.Folder = sealed
	}
	return m.snapshotLocked(), nil
}

// Reset discards the buffer and session identity, ready for the next Start.
func (m *Manager) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.journal != nil {
		m.journal.Close()
		m.journal = nil
	}
	m.active = false
	m.finished = false
	m.snap = Snapshot{}
}

// Current returns a copy of the session state, and whether one exists.
func (m *Manager) Current() (Snapshot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.active {
		return Snapshot{}, false
	}
	return m.snapshotLocked(), true
}

func (m *Manager) snapshotLocked() Snapshot {
	s := m.snap
	s.Columns = make([]Column, len(m.snap.Columns))
	copy(s.Columns, m.snap.Columns)
	s.Rows = make([]Row, len(m.snap.Rows))
	copy(s.Rows, m.snap.Rows)
	return s
}
