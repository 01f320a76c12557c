package snap

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"golang.org/x/exp/slices"
)

// Applier mutates a destination tree to realize a diff, reading file bytes
// from a content source addressed by after-side path. It owns exclusive
// write access to the destination for the duration of the patch.
//
// Every destructive operation is lifted to a total one by the rename-aside
// policy: an obstructing entry that does not match the expected state is
// moved to a .bak sibling instead of being overwritten, so no bytes are
// lost silently and the patch can replay on trees that have diverged.
type Applier struct {
	Source Source
	Logger Logger

	// VerifySource hashes bytes in flight as they are copied from the
	// source and fails the patch if the digest diverges from the
	// after-entry fingerprint.
	VerifySource bool
}

// Apply realizes diff on the destination root dst. One audit line per
// change is written to audit (when non-nil) in application order, which
// follows the phase schedule: kind-flips, then removals deepest-first, then
// directory additions shallowest-first, then file additions, then content
// modifications. The returned records mirror the audit lines.
//
// Conflicts are reported in-band through record statuses and do not stop
// the patch. IO failures do: the destination is left partially patched with
// whatever audit lines were already emitted.
func (a *Applier) Apply(diff *Diff, dst string, audit io.Writer) ([]Record, error) {
	logger := a.Logger
	if logger == nil {
		logger = NewNopLogger()
	}

	info, err := os.Stat(dst)
	if err != nil {
		return nil, fmt.Errorf("stat destination: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("destination is not a directory: %s", dst)
	}

	ordered := orderChanges(diff.Changes)
	records := make([]Record, 0, len(ordered))
	for _, c := range ordered {
		rec, err := a.applyChange(c, dst)
		if err != nil {
			return records, err
		}
		records = append(records, rec)
		if audit != nil {
			if _, err := fmt.Fprintln(audit, rec.String()); err != nil {
				return records, fmt.Errorf("writing audit log: %w", err)
			}
		}
		logger.Debug("change applied", "path", c.Path, "status", rec.Status)
	}
	return records, nil
}

// orderChanges reorders changes into the four-phase schedule. Kind-flips on
// existing paths run first so descendant additions and removals see the
// correct parent kind. Removals run reverse-lexicographically, which puts
// every descendant before its enclosing directory. Additions create
// directories shallowest-first, then files. Content modifications close.
func orderChanges(changes []Change) []Change {
	var flips, removals, dirAdds, fileAdds, mods []Change
	for _, c := range changes {
		switch {
		case c.From == KindFile && c.To == KindDir, c.From == KindDir && c.To == KindFile:
			flips = append(flips, c)
		case c.To == KindAbsent:
			removals = append(removals, c)
		case c.From == KindAbsent && c.To == KindDir:
			dirAdds = append(dirAdds, c)
		case c.From == KindAbsent && c.To == KindFile:
			fileAdds = append(fileAdds, c)
		default:
			mods = append(mods, c)
		}
	}
	byPath := func(x, y Change) int { return strings.Compare(x.Path, y.Path) }
	slices.SortFunc(flips, byPath)
	slices.SortFunc(removals, func(x, y Change) int { return strings.Compare(y.Path, x.Path) })
	slices.SortFunc(dirAdds, byPath)
	slices.SortFunc(fileAdds, byPath)
	slices.SortFunc(mods, byPath)

	out := make([]Change, 0, len(changes))
	out = append(out, flips...)
	out = append(out, removals...)
	out = append(out, dirAdds...)
	out = append(out, fileAdds...)
	out = append(out, mods...)
	return out
}

func (a *Applier) applyChange(c Change, dst string) (Record, error) {
	rec := Record{From: c.From, To: c.To, Path: c.Path}
	abs := filepath.Join(dst, filepath.FromSlash(c.Path))

	var err error
	switch {
	case c.From == KindAbsent && c.To == KindFile:
		err = a.addFile(c, abs, &rec)
	case c.From == KindAbsent && c.To == KindDir:
		err = a.addDir(c, abs, &rec)
	case c.From == KindFile && c.To == KindAbsent:
		err = a.removeFile(c, abs, &rec)
	case c.From == KindDir && c.To == KindAbsent:
		err = a.removeDir(c, abs, &rec)
	case c.From == KindFile && c.To == KindFile:
		err = a.modifyFile(c, abs, &rec)
	case c.From == KindFile && c.To == KindDir:
		err = a.flipToDir(c, abs, &rec)
	case c.From == KindDir && c.To == KindFile:
		err = a.flipToFile(c, abs, &rec)
	default:
		err = fmt.Errorf("malformed change at %s: %s -> %s", c.Path, c.From, c.To)
	}
	return rec, err
}

// addFile handles absent -> file.
func (a *Applier) addFile(c Change, abs string, rec *Record) error {
	kind, err := statKind(abs)
	if err != nil {
		return err
	}
	switch kind {
	case KindAbsent:
		rec.Status = StatusOK
	case KindFile:
		same, err := digestMatches(abs, c.After.Hash)
		if err != nil {
			return err
		}
		if same {
			rec.Status = StatusOKUnchanged
			return nil
		}
		if err := a.renameAside(c, abs, rec); err != nil {
			return err
		}
		rec.Status = StatusContentConflict
	case KindDir:
		if err := a.renameAside(c, abs, rec); err != nil {
			return err
		}
		rec.Status = StatusTypeConflict
	}
	return a.installFile(c.Path, abs, c.After)
}

// addDir handles absent -> dir.
func (a *Applier) addDir(c Change, abs string, rec *Record) error {
	kind, err := statKind(abs)
	if err != nil {
		return err
	}
	switch kind {
	case KindAbsent:
		if err := os.MkdirAll(abs, 0755); err != nil {
			return fmt.Errorf("creating directory %s: %w", c.Path, err)
		}
		rec.Status = StatusOK
	case KindDir:
		rec.Status = StatusOKExists
	case KindFile:
		if err := a.renameAside(c, abs, rec); err != nil {
			return err
		}
		if err := os.Mkdir(abs, 0755); err != nil {
			return fmt.Errorf("creating directory %s: %w", c.Path, err)
		}
		rec.Status = StatusTypeConflict
	}
	return nil
}

// removeFile handles file -> absent.
func (a *Applier) removeFile(c Change, abs string, rec *Record) error {
	kind, err := statKind(abs)
	if err != nil {
		return err
	}
	switch kind {
	case KindAbsent:
		rec.Status = StatusOK
	case KindFile:
		same, err := digestMatches(abs, c.Before.Hash)
		if err != nil {
			return err
		}
		if !same {
			if err := a.renameAside(c, abs, rec); err != nil {
				return err
			}
			rec.Status = StatusContentConflict
			return nil
		}
		if err := os.Remove(abs); err != nil {
			return fmt.Errorf("removing %s: %w", c.Path, err)
		}
		rec.Status = StatusOK
	case KindDir:
		if err := a.renameAside(c, abs, rec); err != nil {
			return err
		}
		rec.Status = StatusTypeConflict
	}
	return nil
}

// removeDir handles dir -> absent. By the time this runs every descendant
// change has been processed, so any remaining content is either a
// pre-existing extra or an entry renamed aside into the directory; both
// make the removal a nonempty conflict.
func (a *Applier) removeDir(c Change, abs string, rec *Record) error {
	kind, err := statKind(abs)
	if err != nil {
		return err
	}
	switch kind {
	case KindAbsent:
		rec.Status = StatusOK
	case KindDir:
		entries, err := os.ReadDir(abs)
		if err != nil {
			return fmt.Errorf("reading directory %s: %w", c.Path, err)
		}
		if len(entries) > 0 {
			if err := a.renameAside(c, abs, rec); err != nil {
				return err
			}
			rec.Status = StatusNonemptyConflict
			return nil
		}
		if err := os.Remove(abs); err != nil {
			return fmt.Errorf("removing directory %s: %w", c.Path, err)
		}
		rec.Status = StatusOK
	case KindFile:
		if err := a.renameAside(c, abs, rec); err != nil {
			return err
		}
		rec.Status = StatusTypeConflict
	}
	return nil
}

// modifyFile handles file -> file with a different fingerprint.
func (a *Applier) modifyFile(c Change, abs string, rec *Record) error {
	kind, err := statKind(abs)
	if err != nil {
		return err
	}
	switch kind {
	case KindAbsent:
		rec.Status = StatusOKAdded
	case KindFile:
		current, _, err := FingerprintFile(abs)
		if err != nil {
			return err
		}
		switch current {
		case c.After.Hash:
			rec.Status = StatusOKUnchanged
			return nil
		case c.Before.Hash:
			rec.Status = StatusOKChanged
		default:
			if err := a.renameAside(c, abs, rec); err != nil {
				return err
			}
			rec.Status = StatusContentConflict
		}
	case KindDir:
		if err := a.renameAside(c, abs, rec); err != nil {
			return err
		}
		rec.Status = StatusTypeConflict
	}
	return a.installFile(c.Path, abs, c.After)
}

// flipToDir handles file -> dir.
func (a *Applier) flipToDir(c Change, abs string, rec *Record) error {
	kind, err := statKind(abs)
	if err != nil {
		return err
	}
	switch kind {
	case KindDir:
		rec.Status = StatusOKExists
		return nil
	case KindFile:
		if err := os.Remove(abs); err != nil {
			return fmt.Errorf("removing %s: %w", c.Path, err)
		}
		rec.Status = StatusOK
	case KindAbsent:
		rec.Status = StatusOK
	}
	if err := os.MkdirAll(abs, 0755); err != nil {
		return fmt.Errorf("creating directory %s: %w", c.Path, err)
	}
	return nil
}

// flipToFile handles dir -> file. The old subtree is replaced wholesale;
// the descendant removal changes that follow in the removal phase then
// observe their paths as already gone.
func (a *Applier) flipToFile(c Change, abs string, rec *Record) error {
	kind, err := statKind(abs)
	if err != nil {
		return err
	}
	switch kind {
	case KindFile:
		rec.Status = StatusOKExists
		return nil
	case KindDir:
		if err := os.RemoveAll(abs); err != nil {
			return fmt.Errorf("removing directory %s: %w", c.Path, err)
		}
		rec.Status = StatusOK
	case KindAbsent:
		rec.Status = StatusOK
	}
	return a.installFile(c.Path, abs, c.After)
}

// renameAside moves the entry at abs to the first available .bak sibling
// and records the destination on rec. The entry keeps its kind.
func (a *Applier) renameAside(c Change, abs string, rec *Record) error {
	dir := filepath.Dir(abs)
	name := filepath.Base(abs)
	for i := 1; ; i++ {
		suffix := ".bak"
		if i > 1 {
			suffix = fmt.Sprintf(".bak%d", i)
		}
		candidate := ShortenName(name, suffix)
		target := filepath.Join(dir, candidate)
		if _, err := os.Lstat(target); err == nil {
			continue
		} else if !os.IsNotExist(err) {
			return fmt.Errorf("stat %s: %w", target, err)
		}
		if err := os.Rename(abs, target); err != nil {
			return fmt.Errorf("renaming %s aside: %w", c.Path, err)
		}
		rec.AltPath = sibling(c.Path, candidate)
		return nil
	}
}

// installFile copies the content at relPath from the source into place at
// abs. Bytes are staged in a temp sibling and renamed in, so a crash
// mid-copy never leaves a half-written destination file. When VerifySource
// is set the copied bytes are hashed in flight and checked against the
// after-entry fingerprint.
func (a *Applier) installFile(relPath, abs string, after *Entry) error {
	r, err := a.Source.Open(relPath)
	if err != nil {
		return fmt.Errorf("opening source %s: %w", relPath, err)
	}
	defer r.Close()

	dir := filepath.Dir(abs)
	tmp, err := os.CreateTemp(dir, ".fsnap-*")
	if err != nil {
		return fmt.Errorf("creating temp file in %s: %w", dir, err)
	}
	tmpPath := tmp.Name()
	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	var w io.Writer = tmp
	var hasher hash.Hash
	if a.VerifySource {
		hasher = sha256.New()
		w = io.MultiWriter(tmp, hasher)
	}
	if _, err := io.Copy(w, r); err != nil {
		tmp.Close()
		return fmt.Errorf("copying source %s: %w", relPath, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}

	if hasher != nil && after != nil {
		got := hex.EncodeToString(hasher.Sum(nil))
		if got != after.Hash {
			return fmt.Errorf("source digest mismatch for %s: got %s, want %s", relPath, got, after.Hash)
		}
	}

	if err := os.Chmod(tmpPath, 0644); err != nil {
		return fmt.Errorf("setting mode on %s: %w", relPath, err)
	}
	if err := os.Rename(tmpPath, abs); err != nil {
		return fmt.Errorf("installing %s: %w", relPath, err)
	}
	success = true
	return nil
}

// statKind classifies what currently occupies abs in the live tree.
// Anything that is neither absent nor a directory counts as a file
// obstacle. A path below a non-directory (for instance a descendant of a
// directory already flipped to a file) counts as absent.
func statKind(abs string) (Kind, error) {
	info, err := os.Lstat(abs)
	if err != nil {
		if os.IsNotExist(err) || errors.Is(err, syscall.ENOTDIR) {
			return KindAbsent, nil
		}
		return KindAbsent, fmt.Errorf("stat %s: %w", abs, err)
	}
	if info.IsDir() {
		return KindDir, nil
	}
	return KindFile, nil
}

// digestMatches reports whether the file at abs has the given content
// fingerprint.
func digestMatches(abs, want string) (bool, error) {
	got, _, err := FingerprintFile(abs)
	if err != nil {
		return false, err
	}
	return got == want, nil
}
