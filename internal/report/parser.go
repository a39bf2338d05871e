package report

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"
)

// FormatError indicates the payload does not match the expected report
// schema. It is never retried: a schema mismatch will not fix itself.
type FormatError struct {
	Reason string
	Row    int // 0 for header-level problems
}

func (e *FormatError) Error() string {
	if e.Row > 0 {
		return fmt.Sprintf("report format error at row %d: %s", e.Row, e.Reason)
	}
	return fmt.Sprintf("report format error: %s", e.Reason)
}

// Column names the portal CSV export must carry, after normalization.
var requiredColumns = []string{"property", "room", "room type", "guest", "adults", "children", "infants", "time"}

// Parse converts a raw CSV export into an ordered sequence of records.
// It is a pure function: no side effects, deterministic for a given
// payload. An empty slice is returned only when the payload encodes
// zero data rows; any malformed payload yields a *FormatError so that
// "no arrivals today" stays distinguishable from a broken export.
func Parse(payload []byte, movement Movement) ([]Record, error) {
	if len(bytes.TrimSpace(payload)) == 0 {
		return nil, &FormatError{Reason: "empty payload"}
	}

	reader := csv.NewReader(bytes.NewReader(payload))
	reader.TrimLeadingSpace = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, &FormatError{Reason: fmt.Sprintf("invalid csv: %v", err)}
	}
	if len(rows) == 0 {
		return nil, &FormatError{Reason: "payload has no header row"}
	}

	index, err := columnIndex(rows[0])
	if err != nil {
		return nil, err
	}

	records := make([]Record, 0, len(rows)-1)
	for i, row := range rows[1:] {
		rowNum := i + 2 // 1-based, counting the header

		rec := Record{
			Movement:  movement,
			Property:  field(row, index["property"]),
			Room:      field(row, index["room"]),
			RoomType:  field(row, index["room type"]),
			GuestName: field(row, index["guest"]),
			Time:      field(row, index["time"]),
		}

		if rec.Room == "" {
			return nil, &FormatError{Reason: "missing room identifier", Row: rowNum}
		}

		rec.Adults, err = count(row, index["adults"], "adults", rowNum)
		if err != nil {
			return nil, err
		}
		rec.Children, err = count(row, index["children"], "children", rowNum)
		if err != nil {
			return nil, err
		}
		rec.Infants, err = count(row, index["infants"], "infants", rowNum)
		if err != nil {
			return nil, err
		}

		records = append(records, rec)
	}

	return records, nil
}

// columnIndex maps required column names to their positions, rejecting
// exports with missing columns.
func columnIndex(header []string) (map[string]int, error) {
	index := make(map[string]int, len(header))
	for i, col := range header {
		index[normalize(col)] = i
	}

	var missing []string
	for _, col := range requiredColumns {
		if _, ok := index[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, &FormatError{Reason: fmt.Sprintf("missing columns: %s", strings.Join(missing, ", "))}
	}

	return index, nil
}

func normalize(col string) string {
	col = strings.ToLower(strings.TrimSpace(col))
	return strings.Join(strings.Fields(col), " ")
}

func field(row []string, idx int) string {
	if idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func count(row []string, idx int, name string, rowNum int) (int, error) {
	raw := field(row, idx)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &FormatError{Reason: fmt.Sprintf("non-numeric %s count %q", name, raw), Row: rowNum}
	}
	if n < 0 {
		return 0, &FormatError{Reason: fmt.Sprintf("negative %s count %d", name, n), Row: rowNum}
	}
	return n, nil
}
