// Package mapper reshapes validated raw tables onto the canonical IPTU
// schema: source columns are renamed through the static rename table,
// missing canonical columns are added as nulls, and the output always
// carries exactly the canonical columns in their declared order.
package mapper

import (
	"iptu/internal/diag"
	"iptu/internal/schema"
	"iptu/pkg/records"
)

// Mapper maps heterogeneous source schemas onto the canonical schema.
type Mapper struct {
	log diag.Logger
}

// New builds a Mapper reporting through log.
func New(log diag.Logger) *Mapper {
	if log == nil {
		log = diag.Nop()
	}
	return &Mapper{log: log}
}

// MapColumns returns a new table with exactly the canonical column set.
//
// An empty input is returned as-is, not reshaped; that mirrors the upstream
// contract where an empty year produces an empty artifact rather than a
// canonical table with zero rows.
//
// Unknown source columns are kept under their normalized name during the
// rename phase and then cut by the final canonical selection, so their only
// observable effect is the warning.
func (m *Mapper) MapColumns(t *records.Table) *records.Table {
	if t.Empty() {
		m.log.Warnf("empty table received")
		return t
	}

	m.log.Infof("mapping %d records with %d columns", t.Len(), len(t.Columns))

	// One step per surviving source column, in source order. Dropped
	// columns are simply absent.
	type renameStep struct {
		raw  string
		work string
	}
	var steps []renameStep
	for _, raw := range t.Columns {
		normalized := schema.NormalizeName(raw)
		target, known := schema.Rename(normalized)
		switch {
		case known && target == schema.Drop:
			continue
		case known:
			steps = append(steps, renameStep{raw: raw, work: target})
		default:
			m.log.Warnf("column %q not in rename table, keeping normalized name %q", raw, normalized)
			steps = append(steps, renameStep{raw: raw, work: normalized})
		}
	}

	out := records.New(schema.CanonicalNames()...)
	for _, row := range t.Rows {
		mapped := make(records.Record, len(out.Columns))
		for _, st := range steps {
			if v, ok := row[st.raw]; ok {
				mapped[st.work] = v
			} else {
				mapped[st.work] = nil
			}
		}
		// Fill canonical columns the source never had, then cut everything
		// that is not canonical.
		final := make(records.Record, len(out.Columns))
		for _, col := range out.Columns {
			if v, ok := mapped[col]; ok {
				final[col] = v
			} else {
				final[col] = nil
			}
		}
		out.Append(final)
	}

	m.log.Infof("mapping done: %d records, %d canonical columns", out.Len(), len(out.Columns))
	return out
}
