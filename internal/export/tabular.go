package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/sweeney/temp-logger/internal/session"
)

const timestampLayout = "2006-01-02 15:04:05"

func writeCSV(snap session.Snapshot, path string) error {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(columns(snap)); err != nil {
		return err
	}
	for _, row := range snap.Rows {
		record := []string{
			row.Kind,
			strconv.FormatFloat(row.Seconds, 'f', 1, 64),
			row.Timestamp.Format(timestampLayout),
		}
		for _, v := range row.Values {
			if v.Valid {
				record = append(record, strconv.FormatFloat(v.Temp, 'f', 3, 64))
			} else {
				record = append(record, "") // absent, not zero
			}
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return writeAtomically(path, buf.Bytes())
}

func writeXLSX(snap session.Snapshot, path string) error {
	f := excelize.NewFile()
	sheet := "data"
	f.SetSheetName("Sheet1", sheet)

	for i, name := range columns(snap) {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		_ = f.SetCellValue(sheet, cell, name)
	}

	for r, row := range snap.Rows {
		line := r + 2
		_ = f.SetCellValue(sheet, fmt.Sprintf("A%d", line), row.Kind)
		_ = f.SetCellValue(sheet, fmt.Sprintf("B%d", line), row.Seconds)
		_ = f.SetCellValue(sheet, fmt.Sprintf("C%d", line), row.Timestamp.Format(timestampLayout))
		for i, v := range row.Values {
			if !v.Valid {
				continue // absent cells stay empty
			}
			cell, err := excelize.CoordinatesToCellName(i+4, line)
			if err != nil {
				return err
			}
			_ = f.SetCellValue(sheet, cell, v.Temp)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return err
	}
	return writeAtomically(path, buf.Bytes())
}

func writeJSON(snap session.Snapshot, path string) error {
	cols := columns(snap)
	out := make([]map[string]interface{}, 0, len(snap.Rows))
	for _, row := range snap.Rows {
		obj := map[string]interface{}{
			cols[0]: row.Kind,
			cols[1]: row.Seconds,
			cols[2]: row.Timestamp.Format(timestampLayout),
		}
		for i, v := range row.Values {
			if v.Valid {
				obj[cols[i+3]] = v.Temp
			} else {
				obj[cols[i+3]] = nil
			}
		}
		out = append(out, obj)
	}

	raw, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}
	return writeAtomically(path, append(raw, '\n'))
}

// sessionDuration is used for the plot subtitle.
func sessionDuration(snap session.Snapshot) time.Duration {
	if snap.EndTime.IsZero() {
		return 0
	}
	return snap.EndTime.Sub(snap.StartTime)
}
