// Package records defines the tabular data model shared by every pipeline
// stage: a Record is one row keyed by column name, a Table is an ordered
// sequence of records together with the column order the source presented.
//
// Cell values are deliberately loose (string, number, nil, time.Time,
// json.Number); coercion rules live in the stages, not here.
package records

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Record is a single row: column name -> cell value.
type Record map[string]any

// Clone returns a shallow-value, independent copy of the record.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Table is an ordered set of records. Columns preserves the column order of
// the source (CSV header order, JSON field order); Rows may omit keys for
// cells that were absent in the source.
type Table struct {
	Columns []string
	Rows    []Record
}

// New constructs an empty table with the given column order.
func New(columns ...string) *Table {
	return &Table{Columns: append([]string(nil), columns...)}
}

// Len returns the number of rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Empty reports whether the table has no rows.
func (t *Table) Empty() bool { return t.Len() == 0 }

// Append adds a row to the table.
func (t *Table) Append(r Record) { t.Rows = append(t.Rows, r) }

// HasColumn reports whether name is part of the declared column order.
func (t *Table) HasColumn(name string) bool {
	for _, c := range t.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// AddColumn appends name to the column order if not already present.
func (t *Table) AddColumn(name string) {
	if !t.HasColumn(name) {
		t.Columns = append(t.Columns, name)
	}
}

// SetColumn assigns the same value to column name in every row, declaring
// the column if needed.
func (t *Table) SetColumn(name string, value any) {
	t.AddColumn(name)
	for _, r := range t.Rows {
		r[name] = value
	}
}

// Clone returns a deep copy of the table. Stages clone their input before
// mutating so a caller never observes a partially transformed table.
func (t *Table) Clone() *Table {
	if t == nil {
		return nil
	}
	out := &Table{
		Columns: append([]string(nil), t.Columns...),
		Rows:    make([]Record, 0, len(t.Rows)),
	}
	for _, r := range t.Rows {
		out.Rows = append(out.Rows, r.Clone())
	}
	return out
}

// AsString converts common cell types to their string form without fmt
// overhead on the hot path. nil converts to "".
func AsString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case int:
		return strconv.Itoa(t)
	case int32:
		return strconv.FormatInt(int64(t), 10)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64)
	case bool:
		if t {
			return "true"
		}
		return "false"
	case time.Time:
		return t.Format(time.RFC3339)
	default:
		return fmt.Sprint(t)
	}
}

// AsFloat converts numeric cell types (including numeric strings) to a
// float64. The second result is false when the value is nil or not numeric.
func AsFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case nil:
		return 0, false
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int32:
		return float64(t), true
	case int64:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(t, 64)
		return f, err == nil
	default:
		return 0, false
	}
}
