package zip

import (
	"archive/zip"
	"bytes"
	"fmt"
)

// Entry is one file to pack into an archive.
type Entry struct {
	Name string
	Data []byte
}

// Archive packs the entries into an in-memory zip. Entries without data are
// skipped so optional files can be passed unconditionally.
func Archive(entries []Entry) ([]byte, error) {
	buf := &bytes.Buffer{}
	zw := zip.NewWriter(buf)
	for _, entry := range entries {
		if len(entry.Data) == 0 {
			continue
		}
		w, err := zw.Create(entry.Name)
		if err != nil {
			return nil, fmt.Errorf("create %s: %w", entry.Name, err)
		}
		if _, err := w.Write(entry.Data); err != nil {
			return nil, fmt.Errorf("write %s: %w", entry.Name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
