package ingest

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"

	"iptu/internal/diag"
	"iptu/pkg/records"
)

// utf8BOM is stripped from the first header cell if present.
const utf8BOM = "\uFEFF"

// naTokens are cell values the sources use to mean "no value".
var naTokens = map[string]struct{}{
	"":     {},
	"NULL": {},
	"null": {},
	"NA":   {},
	"N/A":  {},
}

// headerMojibake undoes the classic UTF-8-read-as-latin-1 damage seen in
// older IPTU headers. Two-byte sequences come first so the bare 'Ã' rule
// cannot shadow them.
var headerMojibake = strings.NewReplacer(
	"Ã§", "ç",
	"Ã©", "é",
	"Ã³", "ó",
	"Ã­", "í",
	"Ãº", "ú",
	"Ã¡", "á",
	"Ã£", "ã",
	"Ãª", "ê",
	"Ã", "ã",
)

// controlStripper removes control and other category-C runes that leak into
// headers through encoding round-trips.
var controlStripper = runes.Remove(runes.In(unicode.C))

// CSVIngestor reads one semicolon-delimited CSV table out of a ZIP archive.
type CSVIngestor struct {
	log diag.Logger
}

// NewCSV builds a CSVIngestor reporting through log.
func NewCSV(log diag.Logger) *CSVIngestor {
	if log == nil {
		log = diag.Nop()
	}
	return &CSVIngestor{log: log}
}

// Load extracts the CSV entry matching nameHint and parses it into a raw
// table. Files are decoded as UTF-8 when valid and as Latin-1 otherwise;
// header cells get BOM stripping, mojibake repair and control-rune removal.
func (c *CSVIngestor) Load(archive []byte, nameHint string) (*records.Table, error) {
	entry, names, err := zipEntry(archive, ".csv", nameHint)
	if err != nil {
		return nil, err
	}
	c.log.Infof("reading %s from zip (entries: %v)", entry.Name, names)

	raw, err := readEntry(entry)
	if err != nil {
		return nil, err
	}

	if !utf8.Valid(raw) {
		c.log.Warnf("%s is not valid UTF-8, decoding as Latin-1", entry.Name)
		raw, _, err = transform.Bytes(charmap.ISO8859_1.NewDecoder(), raw)
		if err != nil {
			return nil, fmt.Errorf("ingest: decode %s as latin-1: %w", entry.Name, err)
		}
	}

	r := csv.NewReader(bytes.NewReader(raw))
	r.Comma = ';'
	r.LazyQuotes = true
	r.TrimLeadingSpace = true
	r.FieldsPerRecord = -1
	r.ReuseRecord = true

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("ingest: read csv header of %s: %w", entry.Name, err)
	}
	columns := fixHeader(header)
	table := records.New(columns...)

	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ingest: read csv row of %s: %w", entry.Name, err)
		}

		rec := make(records.Record, len(columns))
		for i, col := range columns {
			if i >= len(row) {
				rec[col] = nil
				continue
			}
			if _, na := naTokens[row[i]]; na {
				rec[col] = nil
			} else {
				rec[col] = row[i]
			}
		}
		table.Append(rec)
	}

	c.log.Infof("csv loaded: %d records, %d columns", table.Len(), len(columns))
	return table, nil
}

// fixHeader repairs column names: BOM on the first cell, mojibake sequences,
// category-C runes, and surrounding whitespace.
func fixHeader(header []string) []string {
	out := make([]string, len(header))
	for i, h := range header {
		if i == 0 {
			h = strings.TrimPrefix(h, utf8BOM)
		}
		h = headerMojibake.Replace(h)
		if cleaned, _, err := transform.String(controlStripper, h); err == nil {
			h = cleaned
		}
		out[i] = strings.TrimSpace(h)
	}
	return out
}
