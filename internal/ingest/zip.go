// Package ingest loads raw yearly tables out of in-memory ZIP archives.
// Ingestors only read bytes into a records.Table; no validation or
// normalization happens here beyond the encoding repair the sources force
// on us.
package ingest

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"strings"
)

// zipEntry finds the first archive entry with the given extension. When
// nameHint is non-empty, entries whose name contains the hint
// (case-insensitive) win; entries matching only the extension are the
// fallback. A missing entry is a structural error for the year.
func zipEntry(archive []byte, ext, nameHint string) (*zip.File, []string, error) {
	zr, err := zip.NewReader(bytes.NewReader(archive), int64(len(archive)))
	if err != nil {
		return nil, nil, fmt.Errorf("ingest: open zip: %w", err)
	}

	names := make([]string, 0, len(zr.File))
	var fallback *zip.File
	hint := strings.ToLower(nameHint)

	for _, f := range zr.File {
		names = append(names, f.Name)
		lower := strings.ToLower(f.Name)
		if !strings.HasSuffix(lower, ext) {
			continue
		}
		if hint != "" && strings.Contains(lower, hint) {
			return f, names, nil
		}
		if fallback == nil {
			fallback = f
		}
	}

	if fallback != nil {
		return fallback, names, nil
	}
	return nil, names, fmt.Errorf("ingest: no %s entry (hint %q) in zip; entries: %v", ext, nameHint, names)
}

// readEntry extracts one entry fully into memory.
func readEntry(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("ingest: open entry %q: %w", f.Name, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("ingest: read entry %q: %w", f.Name, err)
	}
	return data, nil
}
