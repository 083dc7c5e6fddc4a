// Package quality validates raw IPTU tables before any normalization.
//
// The checker partitions records into valid and invalid sets by applying
// completeness and range rules to the business-critical fields, resolving
// each field's raw column through the alias tables in internal/schema.
// Data problems never surface as errors: a failed rule only earns the record
// a diagnostic tag and a place in the invalid partition.
package quality

import (
	"math"
	"strconv"
	"strings"

	"iptu/internal/diag"
	"iptu/internal/schema"
	"iptu/pkg/records"
)

// DiagnosticColumn is the extra column carried by the invalid partition,
// holding the semicolon-joined rule-violation tags.
const DiagnosticColumn = "validation_errors"

// Validation rule bounds for the raw data.
const (
	yearMin  = 2000
	yearMax  = 2025
	valueMin = 0
	valueMax = 100_000_000
)

// monetaryFields are the business fields subject to the monetary range rule.
var monetaryFields = []string{"valor_total", "valor_iptu"}

// Checker applies the completeness and consistency rules. It holds only
// static configuration and is safe to reuse across years.
type Checker struct {
	fields []schema.FieldAliases
	log    diag.Logger
}

// NewChecker builds a Checker reporting through log.
func NewChecker(log diag.Logger) *Checker {
	if log == nil {
		log = diag.Nop()
	}
	return &Checker{fields: schema.BusinessFields(), log: log}
}

// resolvedField pairs a business field key with the raw column it resolved to.
type resolvedField struct {
	key string
	col string
}

// detectColumns resolves every business field against the table's columns.
// Fields that resolve to nothing are skipped entirely; the warning is the
// only observable effect.
func (c *Checker) detectColumns(t *records.Table) []resolvedField {
	resolved := make([]resolvedField, 0, len(c.fields))
	for _, f := range c.fields {
		col, ok := schema.FindColumn(t.Columns, f.Patterns)
		if !ok {
			c.log.Warnf("field %q not found in table", f.Key)
			continue
		}
		resolved = append(resolved, resolvedField{key: f.Key, col: col})
	}
	return resolved
}

// Validate partitions t into valid and invalid tables. The invalid table
// carries the original raw columns plus DiagnosticColumn. The input is never
// mutated; both outputs hold independent row copies.
//
// A record is valid iff it violates none of the rules that were evaluable.
// When no rule is evaluable (empty table, nothing resolved) every record is
// valid.
func (c *Checker) Validate(t *records.Table) (valid, invalid *records.Table) {
	valid = records.New(t.Columns...)
	invalid = records.New(t.Columns...)
	invalid.AddColumn(DiagnosticColumn)

	if t.Empty() {
		c.log.Warnf("empty table received for validation")
		return valid, invalid
	}

	c.log.Infof("validating %d records", t.Len())
	resolved := c.detectColumns(t)

	for _, row := range t.Rows {
		tags := c.checkRecord(row, resolved)
		if len(tags) == 0 {
			valid.Append(row.Clone())
			continue
		}
		bad := row.Clone()
		bad[DiagnosticColumn] = strings.Join(tags, ";") + ";"
		invalid.Append(bad)
	}

	c.log.Infof("validation done: %d valid, %d invalid", valid.Len(), invalid.Len())
	return valid, invalid
}

// checkRecord evaluates all rules for one record and returns the violated
// tags in rule order: completeness per field, then year, then monetary.
func (c *Checker) checkRecord(row records.Record, resolved []resolvedField) []string {
	var tags []string

	for _, rf := range resolved {
		if cellEmpty(row[rf.col]) {
			tags = append(tags, rf.key+"_missing")
		}
	}

	for _, rf := range resolved {
		if rf.key != "ano" {
			continue
		}
		if f, ok := toNumber(records.AsString(row[rf.col])); !ok || f < yearMin || f > yearMax {
			tags = append(tags, "ano_invalido")
		}
	}

	for _, field := range monetaryFields {
		for _, rf := range resolved {
			if rf.key != field {
				continue
			}
			cleaned := CleanCurrency(records.AsString(row[rf.col]))
			if f, ok := toNumber(cleaned); !ok || f < valueMin || f > valueMax {
				tags = append(tags, field+"_invalido")
			}
		}
	}

	return tags
}

// cellEmpty implements the completeness rule: nil, or empty after string
// coercion and trimming.
func cellEmpty(v any) bool {
	if v == nil {
		return true
	}
	return strings.TrimSpace(records.AsString(v)) == ""
}

// CleanCurrency deletes the characters the source uses around money values:
// the literal R and $ of the currency sign, commas, and whitespace. The
// comma is removed unconditionally (thousands or decimal alike) to stay
// byte-compatible with values already persisted by earlier runs.
func CleanCurrency(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r == 'R' || r == '$' || r == ',':
		case r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '\v' || r == '\f':
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// toNumber parses s as a float, rejecting NaN and infinities so that
// unparseable junk coerced to "nan" still fails range rules.
func toNumber(s string) (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
