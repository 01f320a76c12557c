// Package app is the application layer between the CLI and the snapshot
// engine. It constructs dependencies from config, exposes high-level
// operations that accept raw string paths, and manages the catalog and log
// lifecycle on Close.
package app

import (
	"fmt"
	"io"
	"os"
	"time"

	"fsnap/internal/catalog"
	"fsnap/internal/config"
	"fsnap/internal/progress"
	"fsnap/internal/snap"
	"fsnap/internal/source"
)

// App wires the engine together for one CLI operation.
type App struct {
	cfg     *config.Config
	logger  snap.Logger
	logFile *os.File
	catalog *catalog.Catalog
}

// New creates a fully wired App from the given config. operation identifies
// the CLI command being run (e.g. "TakeSnapshot", "ApplyPatch") and stamps
// every log line of the run. The caller must call Close when done.
func New(cfg *config.Config, operation string) (*App, error) {
	opID := time.Now().UTC().Format("20060102T150405Z") + "-" + operation
	logger, logFile, err := newLogger(cfg.LogDir, opID)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}

	cat, err := catalog.Open(cfg.CatalogPath, catalog.RealClock{}, catalog.UUIDGenerator{})
	if err != nil {
		logFile.Close()
		return nil, fmt.Errorf("opening catalog: %w", err)
	}

	return &App{
		cfg:     cfg,
		logger:  &slogAdapter{l: logger},
		logFile: logFile,
		catalog: cat,
	}, nil
}

// Close releases the catalog and the log file.
func (a *App) Close() {
	if err := a.catalog.Close(); err != nil {
		a.logger.Error("closing catalog", "error", err)
	}
	a.logFile.Close()
}

// TakeSnapshot builds a snapshot of dir and writes it to outPath. When
// priorPath is nonempty the prior snapshot enables fingerprint reuse.
// mtimeOverride, when non-nil, pins every emitted mtime for deterministic
// fixtures.
func (a *App) TakeSnapshot(dir, outPath, priorPath string, showProgress bool, mtimeOverride *int64) (*snap.Snapshot, error) {
	var prior *snap.Snapshot
	if priorPath != "" {
		var err error
		prior, err = snap.LoadSnapshot(priorPath)
		if err != nil {
			return nil, err
		}
	}

	var sink snap.ProgressSink
	if showProgress && a.cfg.Progress.Enabled && progress.Enabled() {
		sink = progress.New("hashing")
	}

	s, err := snap.Build(dir, snap.BuildOptions{
		Prior:         prior,
		Progress:      sink,
		MTimeOverride: mtimeOverride,
		Logger:        a.logger,
	})
	if err != nil {
		return nil, err
	}

	if err := snap.SaveSnapshot(outPath, s); err != nil {
		return nil, err
	}

	if _, err := a.catalog.RecordSnapshot(s.Root, len(s.Entries), s.FileBytes()); err != nil {
		a.logger.Warn("catalog record failed", "error", err)
	}

	a.logger.Info("snapshot written", "root", s.Root, "out", outPath, "entries", len(s.Entries))
	return s, nil
}

// DiffSnapshots computes the structural diff of two snapshot files and
// streams the diff document to w.
func (a *App) DiffSnapshots(beforePath, afterPath string, w io.Writer) (*snap.Diff, error) {
	before, err := snap.LoadSnapshot(beforePath)
	if err != nil {
		return nil, err
	}
	after, err := snap.LoadSnapshot(afterPath)
	if err != nil {
		return nil, err
	}

	diff := snap.ComputeDiff(before, after)
	if err := snap.EncodeDiff(w, diff); err != nil {
		return nil, err
	}

	a.logger.Info("diff computed", "changes", len(diff.Changes))
	return diff, nil
}

// ApplyPatch applies the diff document at diffPath onto dstDir, reading
// content from srcDir. Audit lines stream to w in application order.
func (a *App) ApplyPatch(diffPath, dstDir, srcDir string, w io.Writer) ([]snap.Record, error) {
	diff, err := snap.LoadDiff(diffPath)
	if err != nil {
		return nil, err
	}
	src, err := source.NewFilesystemSource(srcDir)
	if err != nil {
		return nil, err
	}

	applier := &snap.Applier{
		Source:       src,
		Logger:       a.logger,
		VerifySource: a.cfg.Apply.VerifySource,
	}
	records, err := applier.Apply(diff, dstDir, w)
	if err != nil {
		return records, err
	}

	conflicts := 0
	for _, r := range records {
		if r.Conflict() {
			conflicts++
		}
	}
	if _, err := a.catalog.RecordPatch(dstDir, len(records), conflicts); err != nil {
		a.logger.Warn("catalog record failed", "error", err)
	}

	a.logger.Info("patch applied", "destination", dstDir, "changes", len(records), "conflicts", conflicts)
	return records, nil
}

// Status quick-compares a live tree against a snapshot file by name and
// size only.
func (a *App) Status(dir, snapshotPath string) (*snap.CompareResult, error) {
	s, err := snap.LoadSnapshot(snapshotPath)
	if err != nil {
		return nil, err
	}
	return snap.QuickCompare(dir, s)
}

// History returns recorded snapshot builds and patch applications, newest
// first.
func (a *App) History() ([]*catalog.SnapshotRun, []*catalog.PatchRun, error) {
	snaps, err := a.catalog.ListSnapshots()
	if err != nil {
		return nil, nil, err
	}
	patches, err := a.catalog.ListPatches()
	if err != nil {
		return nil, nil, err
	}
	return snaps, patches, nil
}
