package snap

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// ProgressSink receives hashing progress while a snapshot build runs.
// Reporting is advisory: it never alters the resulting snapshot.
type ProgressSink interface {
	// Start announces the total number of bytes that will be hashed.
	Start(totalBytes int64)
	// Add reports bytes hashed since the last call.
	Add(bytes int64)
	// Finish marks the build complete.
	Finish()
}

// BuildOptions configures a snapshot build.
type BuildOptions struct {
	// Prior enables fingerprint reuse: a file whose (size, mtime) match the
	// prior entry at the same path adopts that entry's hash without being
	// re-read.
	Prior *Snapshot

	// Progress, when non-nil, receives byte-level hashing progress.
	Progress ProgressSink

	// MTimeOverride replaces every emitted file mtime with a constant so
	// test fixtures can be bit-exact.
	MTimeOverride *int64

	Logger Logger
}

// pendingFile is a regular file that needs its content hashed.
type pendingFile struct {
	abs   string
	rel   string
	size  int64
	mtime int64
}

// Build walks root depth-first and produces a snapshot of every directory
// and regular file below it. Irregular entries (symlinks, sockets, devices)
// are skipped consistently. Any unreadable file or directory fails the
// build; partial snapshots are never returned.
func Build(root string, opts BuildOptions) (*Snapshot, error) {
	logger := opts.Logger
	if logger == nil {
		logger = NewNopLogger()
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving root: %w", err)
	}
	info, err := os.Stat(absRoot)
	if err != nil {
		return nil, fmt.Errorf("stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("root is not a directory: %s", absRoot)
	}

	snapshot := NewSnapshot(absRoot)
	var pending []pendingFile

	err = filepath.WalkDir(absRoot, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if p == absRoot {
			return nil
		}
		rel, err := filepath.Rel(absRoot, p)
		if err != nil {
			return fmt.Errorf("relativizing %s: %w", p, err)
		}
		rel = filepath.ToSlash(rel)

		switch {
		case d.IsDir():
			snapshot.Entries[rel] = &Entry{Kind: KindDir}
		case d.Type().IsRegular():
			fi, err := d.Info()
			if err != nil {
				return fmt.Errorf("stat %s: %w", p, err)
			}
			size := fi.Size()
			mtime := fi.ModTime().Unix()
			if prior := opts.Prior; prior != nil {
				if pe, ok := prior.Entries[rel]; ok && pe.Kind == KindFile && pe.Size == size && pe.MTime == mtime {
					snapshot.Entries[rel] = &Entry{Kind: KindFile, Size: size, MTime: pe.MTime, Hash: pe.Hash}
					return nil
				}
			}
			pending = append(pending, pendingFile{abs: p, rel: rel, size: size, mtime: mtime})
		default:
			logger.Warn("skipping irregular entry", "path", p, "mode", d.Type().String())
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", absRoot, err)
	}

	if opts.Progress != nil {
		var total int64
		for _, pf := range pending {
			total += pf.size
		}
		opts.Progress.Start(total)
		defer opts.Progress.Finish()
	}

	for _, pf := range pending {
		hash, _, err := FingerprintFile(pf.abs)
		if err != nil {
			return nil, err
		}
		snapshot.Entries[pf.rel] = &Entry{Kind: KindFile, Size: pf.size, MTime: pf.mtime, Hash: hash}
		if opts.Progress != nil {
			opts.Progress.Add(pf.size)
		}
	}

	if o := opts.MTimeOverride; o != nil {
		for _, e := range snapshot.Entries {
			if e.Kind == KindFile {
				e.MTime = *o
			}
		}
	}

	logger.Debug("snapshot built", "root", absRoot, "entries", len(snapshot.Entries), "hashed", len(pending))
	return snapshot, nil
}
