package storage

import (
	"iptu/internal/schema"
	"iptu/pkg/records"
)

// ColumnKind is the runtime shape a harmonized column loads as. It differs
// from the declared schema type where harmonization deliberately widens:
// year-like columns survive as floats because sources ship them as "2023.0".
type ColumnKind int

const (
	KindText ColumnKind = iota
	KindFloat
	KindInt
	KindTimestamp
)

// WarehouseColumn pairs a load column with its runtime kind.
type WarehouseColumn struct {
	Name string
	Kind ColumnKind
}

// floatKindOverrides are canonical Int columns whose harmonized values are
// floats. Must stay in sync with the harmonizer's float column list.
var floatKindOverrides = map[string]struct{}{
	"ano_exercicio":  {},
	"ano_construcao": {},
	"qtd_pavimentos": {},
}

// WarehouseSchema returns the load schema: the canonical columns plus the
// `ano` partition column, in load order.
func WarehouseSchema() []WarehouseColumn {
	cols := schema.Canonical()
	out := make([]WarehouseColumn, 0, len(cols)+1)
	for _, c := range cols {
		kind := KindText
		switch c.Type {
		case schema.Float:
			kind = KindFloat
		case schema.Int:
			kind = KindInt
		case schema.Timestamp:
			kind = KindTimestamp
		}
		if _, ok := floatKindOverrides[c.Name]; ok {
			kind = KindFloat
		}
		out = append(out, WarehouseColumn{Name: c.Name, Kind: kind})
	}
	return append(out, WarehouseColumn{Name: "ano", Kind: KindInt})
}

// WarehouseColumns returns just the load column names, in load order.
func WarehouseColumns() []string {
	sch := WarehouseSchema()
	out := make([]string, len(sch))
	for i, c := range sch {
		out[i] = c.Name
	}
	return out
}

// WarehouseValues flattens one harmonized record into load order. Values are
// typed pointers so drivers encode nil cells as SQL NULL.
func WarehouseValues(r records.Record) []any {
	sch := WarehouseSchema()
	out := make([]any, len(sch))
	for i, c := range sch {
		switch c.Kind {
		case KindFloat:
			out[i] = optFloat(r[c.Name])
		case KindInt:
			out[i] = optInt(r[c.Name])
		case KindTimestamp:
			out[i] = optTime(r[c.Name])
		default:
			out[i] = optString(r[c.Name])
		}
	}
	return out
}
