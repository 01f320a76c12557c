package snap

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// LoadSnapshot reads and validates a snapshot document. A malformed or
// version-mismatched document is rejected before anything consumes it.
func LoadSnapshot(path string) (*Snapshot, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading snapshot %s: %w", path, err)
	}
	var s Snapshot
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, fmt.Errorf("parsing snapshot %s: %w", path, err)
	}
	if s.Version != FormatVersion {
		return nil, fmt.Errorf("unsupported snapshot version %d in %s", s.Version, path)
	}
	if s.Entries == nil {
		s.Entries = make(map[string]*Entry)
	}
	return &s, nil
}

// SaveSnapshot writes a snapshot atomically: the document goes to a temp
// sibling first and is renamed into place, so readers never observe a
// partial file. Map keys serialize sorted, which makes the output
// canonical for a given tree.
func SaveSnapshot(path string, s *Snapshot) error {
	b, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}
	return writeFileAtomic(path, append(b, '\n'))
}

// LoadDiff reads and validates a diff document.
func LoadDiff(path string) (*Diff, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading diff %s: %w", path, err)
	}
	var d Diff
	if err := json.Unmarshal(b, &d); err != nil {
		return nil, fmt.Errorf("parsing diff %s: %w", path, err)
	}
	for _, c := range d.Changes {
		// Equal kinds are only legal for a file content change, which must
		// carry both entries.
		if c.From == c.To && (c.From != KindFile || c.Before == nil || c.After == nil) {
			return nil, fmt.Errorf("malformed diff %s: change at %q has equal kinds", path, c.Path)
		}
	}
	return &d, nil
}

// SaveDiff writes a diff document atomically.
func SaveDiff(path string, d *Diff) error {
	b, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding diff: %w", err)
	}
	return writeFileAtomic(path, append(b, '\n'))
}

// EncodeDiff streams a diff document to w, for writing to stdout.
func EncodeDiff(w io.Writer, d *Diff) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(d); err != nil {
		return fmt.Errorf("encoding diff: %w", err)
	}
	return nil
}

func writeFileAtomic(path string, b []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".tmp-"+filepath.Base(path)+"-")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("syncing %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming into %s: %w", path, err)
	}
	return nil
}
