// Package export materializes a finished session buffer into durable
// artifacts: CSV, XLSX, JSON and a rendered time-series PDF plot.
package export

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/sweeney/temp-logger/internal/metrics"
	"github.com/sweeney/temp-logger/internal/session"
)

// Format is one export artifact kind.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
	FormatJSON Format = "json"
	FormatPlot Format = "plot"
)

// AllFormats lists every supported format in export order.
var AllFormats = []Format{FormatCSV, FormatXLSX, FormatJSON, FormatPlot}

// ConfirmFunc is asked before re-exporting a format already written for the
// same session. Returning false skips the format; returning true overwrites
// the existing file (filenames are deterministic per session, so exactly one
// file remains).
type ConfirmFunc func(format Format) bool

// Exporter writes session artifacts and guards against silent re-export.
// Safe for concurrent use, though the scheduler runs one export at a time.
type Exporter struct {
	confirm ConfirmFunc

	mu   sync.Mutex
	done map[string]map[Format]bool // session key -> formats written
}

// NewExporter creates an Exporter. A nil confirm denies every overwrite.
func NewExporter(confirm ConfirmFunc) *Exporter {
	if confirm == nil {
		confirm = func(Format) bool { return false }
	}
	return &Exporter{
		confirm: confirm,
		done:    map[string]map[Format]bool{},
	}
}

// Export writes the requested formats for a finished session. An empty
// buffer is reported and skipped, not an error. A failure in one format is
// collected and does not abort the remaining formats.
func (e *Exporter) Export(snap session.Snapshot, formats []Format) error {
	if len(snap.Rows) == 0 {
		log.Printf("export: no data collected, nothing to export")
		return nil
	}

	var errs []error
	for _, f := range formats {
		if !e.shouldWrite(snap, f) {
			log.Printf("export: %s already exported for this session, skipping", f)
			continue
		}
		if err := e.writeFormat(snap, f); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", f, err))
			continue
		}
		e.markDone(snap, f)
		metrics.ExportsTotal.WithLabelValues(string(f)).Inc()
		log.Printf("export: wrote %s for session %s[AT:%03d]", f, snap.Name, snap.Counter)
	}
	return errors.Join(errs...)
}

func sessionKey(snap session.Snapshot) string {
	return fmt.Sprintf("%d/%s", snap.Counter, snap.Token)
}

// shouldWrite applies the export-once guard: a second export of the same
// format for the same session needs explicit confirmation.
func (e *Exporter) shouldWrite(snap session.Snapshot, f Format) bool {
	e.mu.Lock()
	already := e.done[sessionKey(snap)][f]
	e.mu.Unlock()
	if !already {
		return true
	}
	return e.confirm(f)
}

func (e *Exporter) markDone(snap session.Snapshot, f Format) {
	e.mu.Lock()
	defer e.mu.Unlock()
	key := sessionKey(snap)
	if e.done[key] == nil {
		e.done[key] = map[Format]bool{}
	}
	e.done[key][f] = true
}

func (e *Exporter) writeFormat(snap session.Snapshot, f Format) error {
	switch f {
	case FormatCSV:
		return writeCSV(snap, artifactPath(snap, "temp_data", "csv"))
	case FormatXLSX:
		return writeXLSX(snap, artifactPath(snap, "temp_data", "xlsx"))
	case FormatJSON:
		return writeJSON(snap, artifactPath(snap, "temp_data", "json"))
	case FormatPlot:
		return writePlotPDF(snap, artifactPath(snap, "temp_plot", "pdf"))
	default:
		return fmt.Errorf("unknown format %q", string(f))
	}
}

// artifactPath derives a deterministic filename from the session identity so
// a confirmed re-export replaces the file instead of piling up copies.
func artifactPath(snap session.Snapshot, base, ext string) string {
	name := fmt.Sprintf("%s[AT:%03d][%s][UUID:%s].%s",
		base, snap.Counter, snap.StartTime.Format(session.FolderTimeLayout), snap.Token, ext)
	return filepath.Join(snap.Folder, name)
}

// columns returns the tabular header: Type, Seconds, Timestamp, then the
// per-channel display names frozen at session start.
func columns(snap session.Snapshot) []string {
	cols := []string{"Type", "Seconds", "Timestamp"}
	for _, c := range snap.Columns {
		cols = append(cols, c.Name)
	}
	return cols
}

func writeAtomically(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
