package ingest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"iptu/internal/diag"
	"iptu/pkg/records"
)

// dataKeys are the wrapper keys publishers have used to hold the record list.
var dataKeys = []string{"data", "dados", "registros", "records", "items", "imoveis"}

// JSONIngestor reads one JSON table out of a ZIP archive.
//
// Three shapes are understood, mirroring what the publisher has shipped over
// the years:
//
//  1. a top-level array of objects;
//  2. {"fields": [{"id": …}, …], "records": [[…], …]} (API export format),
//     where records are positional arrays aligned to the field ids;
//  3. an object wrapping the record array under a known data key.
//
// Anything else is a structural error: it aborts the year instead of being
// silently absorbed.
type JSONIngestor struct {
	log diag.Logger
}

// NewJSON builds a JSONIngestor reporting through log.
func NewJSON(log diag.Logger) *JSONIngestor {
	if log == nil {
		log = diag.Nop()
	}
	return &JSONIngestor{log: log}
}

// Load extracts the first JSON entry and parses it into a raw table.
// Numbers are kept as json.Number so no precision is lost before coercion.
func (j *JSONIngestor) Load(archive []byte, nameHint string) (*records.Table, error) {
	entry, names, err := zipEntry(archive, ".json", nameHint)
	if err != nil {
		return nil, err
	}
	j.log.Infof("reading %s from zip (entries: %v)", entry.Name, names)

	raw, err := readEntry(entry)
	if err != nil {
		return nil, err
	}

	var root any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&root); err != nil {
		return nil, fmt.Errorf("ingest: decode %s: %w", entry.Name, err)
	}

	table, err := j.parseStructure(root)
	if err != nil {
		return nil, fmt.Errorf("ingest: %s: %w", entry.Name, err)
	}
	j.log.Infof("json loaded: %d records, %d columns", table.Len(), len(table.Columns))
	return table, nil
}

// parseStructure turns a decoded JSON document into a table, switching on
// the shapes documented on JSONIngestor.
func (j *JSONIngestor) parseStructure(root any) (*records.Table, error) {
	switch v := root.(type) {
	case []any:
		return j.fromObjectList(v)

	case map[string]any:
		if fields, okF := v["fields"].([]any); okF {
			if recs, okR := v["records"].([]any); okR {
				j.log.Infof("structure detected: fields + records")
				return j.fromFieldsRecords(fields, recs)
			}
		}
		for _, key := range dataKeys {
			if list, ok := v[key].([]any); ok {
				j.log.Infof("records found under key %q", key)
				return j.fromObjectList(list)
			}
		}
		return nil, fmt.Errorf("unsupported json object shape (keys: %v)", mapKeys(v))

	default:
		return nil, fmt.Errorf("unsupported json root type %T", root)
	}
}

// fromObjectList builds a table from an array of objects. JSON objects carry
// no key order, so the column order is the sorted union of keys — stable
// across runs, which matters more here than source fidelity.
func (j *JSONIngestor) fromObjectList(list []any) (*records.Table, error) {
	seen := map[string]struct{}{}
	var columns []string
	rows := make([]records.Record, 0, len(list))

	for i, elem := range list {
		obj, ok := elem.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("record %d is %T, want object", i, elem)
		}
		rec := make(records.Record, len(obj))
		for k, v := range obj {
			if _, dup := seen[k]; !dup {
				seen[k] = struct{}{}
				columns = append(columns, k)
			}
			rec[k] = v
		}
		rows = append(rows, rec)
	}

	sort.Strings(columns)
	t := records.New(columns...)
	t.Rows = rows
	return t, nil
}

// fromFieldsRecords builds a table from the fields+records API format.
// Field ids may be numbers in some exports; they are coerced to strings,
// which is where the "integer column labels" edge case is absorbed.
func (j *JSONIngestor) fromFieldsRecords(fields, recs []any) (*records.Table, error) {
	columns := make([]string, 0, len(fields))
	for i, f := range fields {
		obj, ok := f.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("field %d is %T, want object", i, f)
		}
		id, ok := obj["id"]
		if !ok {
			return nil, fmt.Errorf("field %d has no id", i)
		}
		columns = append(columns, records.AsString(id))
	}

	t := records.New(columns...)
	for i, r := range recs {
		values, ok := r.([]any)
		if !ok {
			return nil, fmt.Errorf("record %d is %T, want array", i, r)
		}
		rec := make(records.Record, len(columns))
		for c, col := range columns {
			if c < len(values) {
				rec[col] = values[c]
			} else {
				rec[col] = nil
			}
		}
		t.Append(rec)
	}
	return t, nil
}

func mapKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
