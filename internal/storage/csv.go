package storage

import (
	"bytes"
	"encoding/csv"
	"fmt"

	"iptu/pkg/records"
)

// EncodeCSV renders a table as comma-delimited CSV with a header row.
// Invalid-record audits keep their raw per-year schemas, so this works off
// the table's own column order rather than the canonical one.
func EncodeCSV(t *records.Table) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(t.Columns); err != nil {
		return nil, fmt.Errorf("storage: write csv header: %w", err)
	}

	row := make([]string, len(t.Columns))
	for _, r := range t.Rows {
		for i, col := range t.Columns {
			row[i] = records.AsString(r[col])
		}
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("storage: write csv row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("storage: flush csv: %w", err)
	}
	return buf.Bytes(), nil
}
