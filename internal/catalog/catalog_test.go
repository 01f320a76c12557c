package catalog_test

import (
	"path/filepath"
	"testing"
	"time"

	"fsnap/internal/catalog"
	"fsnap/internal/testutil"
)

func openTestCatalog(t *testing.T) (*catalog.Catalog, *testutil.StubClock, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "catalog.db")
	clock := testutil.FixedClock()
	c, err := catalog.Open(path, clock, testutil.NewStubIDGenerator())
	if err != nil {
		t.Fatalf("open catalog: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c, clock, path
}

func TestCatalog_RecordAndListSnapshots(t *testing.T) {
	t.Parallel()
	c, clock, _ := openTestCatalog(t)

	first, err := c.RecordSnapshot("/data/projects", 12, 4096)
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	clock.Advance(time.Minute)
	second, err := c.RecordSnapshot("/data/projects", 13, 5000)
	if err != nil {
		t.Fatalf("record: %v", err)
	}

	runs, err := c.ListSnapshots()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("len = %d", len(runs))
	}
	// Newest first.
	if runs[0].ID != second.ID || runs[1].ID != first.ID {
		t.Errorf("order = [%s %s], want [%s %s]", runs[0].ID, runs[1].ID, second.ID, first.ID)
	}
	if runs[0].EntryCount != 13 || runs[0].FileBytes != 5000 {
		t.Errorf("row = %+v", runs[0])
	}
}

func TestCatalog_RecordAndListPatches(t *testing.T) {
	t.Parallel()
	c, _, _ := openTestCatalog(t)

	run, err := c.RecordPatch("/restore/here", 9, 2)
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if run.ID == "" {
		t.Error("missing run ID")
	}

	runs, err := c.ListPatches()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("len = %d", len(runs))
	}
	if runs[0].Destination != "/restore/here" || runs[0].ChangeCount != 9 || runs[0].ConflictCount != 2 {
		t.Errorf("row = %+v", runs[0])
	}
}

func TestCatalog_ReopenKeepsHistory(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "catalog.db")
	clock := testutil.FixedClock()

	c, err := catalog.Open(path, clock, testutil.NewStubIDGenerator())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := c.RecordSnapshot("/data", 1, 2); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	// Reopening runs migrations again; an up-to-date schema is a no-op.
	c2, err := catalog.Open(path, clock, testutil.NewStubIDGenerator())
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer c2.Close()

	runs, err := c2.ListSnapshots()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(runs) != 1 {
		t.Errorf("history lost across reopen: %v", runs)
	}
}
