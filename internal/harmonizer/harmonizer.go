// Package harmonizer normalizes field representations after the table is
// already on the canonical schema: postal codes, monetary strings, dates,
// categorical codes and free text, followed by a last-pass type enforcement
// that guarantees a storage-safe row shape for columnar persistence.
//
// Every transform is tolerant: a cell that cannot be coerced becomes null,
// never an error, and transforms skip columns the table does not carry.
// Each transform is a fixed point of itself, so running the harmonizer on
// its own output changes nothing.
package harmonizer

import (
	"encoding/json"
	"math"
	"strings"
	"time"

	"iptu/internal/diag"
	"iptu/internal/quality"
	"iptu/pkg/records"
)

// Field groups operated on. The lists intentionally include names that only
// exist in some table shapes (e.g. valor_total, ano); absent columns are
// skipped, which keeps one harmonizer valid for both the mapped per-year
// tables and the consolidated one.
var (
	monetaryColumns = []string{"valor_m2_terreno", "valor_m2_construcao", "valor_total"}
	dateColumns     = []string{"data_cadastramento"}
	textColumns     = []string{"logradouro", "bairro", "cidade", "complemento"}

	stringColumns = []string{
		"numero_contribuinte", "tipo_contribuinte", "cpf_cnpj",
		"logradouro", "numero", "complemento", "bairro", "cidade",
		"tipo_uso_imovel", "tipo_padrao_construcao", "tipo_construcao",
		"regime_tributacao_iptu", "regime_tributacao_trsd", "cep",
	}
	floatColumns = []string{
		"ano_exercicio", "fracao_ideal", "area_terreno", "area_construida",
		"valor_m2_terreno", "valor_m2_construcao", "ano_construcao",
		"fator_obsolescencia", "valor_total",
	}
	intColumns = []string{"ano"}
)

// categorical remaps applied by value, after string coercion.
var tipoContribuinte = map[string]string{
	"1":   "Pessoa Física",
	"1.0": "Pessoa Física",
	"2":   "Pessoa Jurídica",
	"2.0": "Pessoa Jurídica",
}

// dateLayouts are tried in order when parsing mixed-format date cells.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"02/01/2006",
	"2006/01/02",
	"02-01-2006",
	"02.01.2006",
	"20060102",
}

// Harmonizer applies the per-field transforms in a fixed order.
type Harmonizer struct {
	log diag.Logger
}

// New builds a Harmonizer reporting through log.
func New(log diag.Logger) *Harmonizer {
	if log == nil {
		log = diag.Nop()
	}
	return &Harmonizer{log: log}
}

// Run returns a harmonized copy of t. The input is not mutated.
func (h *Harmonizer) Run(t *records.Table) *records.Table {
	h.log.Infof("harmonizing %d records", t.Len())

	out := t.Clone()
	h.harmonizeCEP(out)
	h.harmonizeMonetary(out)
	h.harmonizeDates(out)
	h.harmonizeCategorical(out)
	h.normalizeText(out)
	h.ensureTypes(out)

	h.log.Infof("harmonization done: %d records", out.Len())
	return out
}

// harmonizeCEP strips formatting from postal codes and restores the single
// leading zero a numeric parse can drop. Anything that is not 8 digits (or
// 7, pre-pad) becomes null; the value stays a string so zeros survive.
func (h *Harmonizer) harmonizeCEP(t *records.Table) {
	if !t.HasColumn("cep") {
		return
	}
	for _, row := range t.Rows {
		v := row["cep"]
		if v == nil {
			continue
		}
		digits := keepDigits(records.AsString(v))
		switch len(digits) {
		case 8:
			row["cep"] = digits
		case 7:
			row["cep"] = "0" + digits
		default:
			row["cep"] = nil
		}
	}
}

// harmonizeMonetary strips currency formatting and coerces to float64.
func (h *Harmonizer) harmonizeMonetary(t *records.Table) {
	for _, col := range monetaryColumns {
		if !t.HasColumn(col) {
			continue
		}
		for _, row := range t.Rows {
			row[col] = coerceMoney(row[col])
		}
	}
}

// harmonizeDates parses date cells with mixed-format recognition.
func (h *Harmonizer) harmonizeDates(t *records.Table) {
	for _, col := range dateColumns {
		if !t.HasColumn(col) {
			continue
		}
		for _, row := range t.Rows {
			row[col] = coerceDate(row[col])
		}
	}
}

// harmonizeCategorical remaps tipo_contribuinte codes onto their labels.
// Unknown values pass through after string coercion.
func (h *Harmonizer) harmonizeCategorical(t *records.Table) {
	if !t.HasColumn("tipo_contribuinte") {
		return
	}
	for _, row := range t.Rows {
		v := row["tipo_contribuinte"]
		if v == nil {
			continue
		}
		s := records.AsString(v)
		if label, ok := tipoContribuinte[s]; ok {
			row["tipo_contribuinte"] = label
		} else {
			row["tipo_contribuinte"] = s
		}
	}
}

// normalizeText uppercases and tidies free-text address fields. The literal
// "NAN" (a null that went through string coercion upstream) empties the cell.
func (h *Harmonizer) normalizeText(t *records.Table) {
	for _, col := range textColumns {
		if !t.HasColumn(col) {
			continue
		}
		for _, row := range t.Rows {
			s := strings.ToUpper(strings.TrimSpace(records.AsString(row[col])))
			s = strings.Join(strings.Fields(s), " ")
			if s == "NAN" {
				s = ""
			}
			row[col] = s
		}
	}
}

// ensureTypes is the last-pass safety net: it forces every enforced column
// to its storage type even if an earlier step left the value in string form.
func (h *Harmonizer) ensureTypes(t *records.Table) {
	for _, col := range stringColumns {
		if !t.HasColumn(col) {
			continue
		}
		for _, row := range t.Rows {
			s := records.AsString(row[col])
			s = strings.TrimSuffix(s, ".0")
			if s == "nan" {
				s = ""
			}
			row[col] = s
		}
	}

	for _, col := range floatColumns {
		if !t.HasColumn(col) {
			continue
		}
		for _, row := range t.Rows {
			row[col] = coerceFloat(row[col])
		}
	}

	for _, col := range intColumns {
		if !t.HasColumn(col) {
			continue
		}
		for _, row := range t.Rows {
			row[col] = coerceInt(row[col])
		}
	}

	for _, col := range dateColumns {
		if !t.HasColumn(col) {
			continue
		}
		for _, row := range t.Rows {
			row[col] = coerceDate(row[col])
		}
	}
}

func keepDigits(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// coerceMoney turns a monetary cell into float64 or nil. Already-numeric
// cells pass through; strings are cleaned of currency characters first.
func coerceMoney(v any) any {
	switch t := v.(type) {
	case nil:
		return nil
	case float64:
		return finite(t)
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return nil
		}
		return finite(f)
	default:
		cleaned := quality.CleanCurrency(records.AsString(t))
		if f, ok := records.AsFloat(cleaned); ok {
			return finite(f)
		}
		return nil
	}
}

// coerceFloat is the plain numeric coercion of the final type enforcement:
// no currency cleaning, so formatted strings that survived this far fail to
// nil instead of misparsing.
func coerceFloat(v any) any {
	switch t := v.(type) {
	case nil:
		return nil
	case float64:
		return finite(t)
	default:
		if f, ok := records.AsFloat(strings.TrimSpace(records.AsString(t))); ok {
			return finite(f)
		}
		return nil
	}
}

// coerceInt coerces to a nullable int64; non-integral values become nil.
func coerceInt(v any) any {
	switch t := v.(type) {
	case nil:
		return nil
	case int64:
		return t
	case int:
		return int64(t)
	default:
		f, ok := records.AsFloat(strings.TrimSpace(records.AsString(t)))
		if !ok || math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
			return nil
		}
		return int64(f)
	}
}

// coerceDate coerces to a time.Time or nil, trying the known layouts.
func coerceDate(v any) any {
	switch t := v.(type) {
	case nil:
		return nil
	case time.Time:
		return t
	default:
		s := strings.TrimSpace(records.AsString(t))
		if s == "" {
			return nil
		}
		for _, layout := range dateLayouts {
			if ts, err := time.Parse(layout, s); err == nil {
				return ts
			}
		}
		return nil
	}
}

// finite nulls NaN and infinities so the columnar writer only ever sees
// representable numbers.
func finite(f float64) any {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return f
}
