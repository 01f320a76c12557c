package snap

import (
	"fmt"
	"io/fs"
	"path/filepath"

	"golang.org/x/exp/slices"
)

// CompareResult classifies a live tree against a snapshot by file name and
// size only. No content is hashed, so this is fast and approximate: a file
// rewritten in place with identical size goes undetected.
type CompareResult struct {
	// Extra lists files on disk that the snapshot does not know about.
	Extra []string
	// Missing lists snapshot files absent from disk.
	Missing []string
	// Different lists files whose on-disk size diverges from the snapshot.
	Different []string
}

// QuickCompare scans root and classifies its regular files against the
// snapshot's file entries. All three result lists are sorted.
func QuickCompare(root string, snapshot *Snapshot) (*CompareResult, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving root: %w", err)
	}

	sizes := make(map[string]int64)
	err = filepath.WalkDir(absRoot, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(absRoot, p)
		if err != nil {
			return fmt.Errorf("relativizing %s: %w", p, err)
		}
		info, err := d.Info()
		if err != nil {
			return fmt.Errorf("stat %s: %w", p, err)
		}
		sizes[filepath.ToSlash(rel)] = info.Size()
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", absRoot, err)
	}

	result := &CompareResult{}
	for p := range sizes {
		if e, ok := snapshot.Entries[p]; !ok || e.Kind != KindFile {
			result.Extra = append(result.Extra, p)
		}
	}
	for p, e := range snapshot.Entries {
		if e.Kind != KindFile {
			continue
		}
		size, ok := sizes[p]
		if !ok {
			result.Missing = append(result.Missing, p)
			continue
		}
		if size != e.Size {
			result.Different = append(result.Different, p)
		}
	}
	slices.Sort(result.Extra)
	slices.Sort(result.Missing)
	slices.Sort(result.Different)
	return result, nil
}
