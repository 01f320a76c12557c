package snap_test

import (
	"reflect"
	"testing"

	"fsnap/internal/snap"
	"fsnap/internal/testutil"
)

func snapshotOf(entries map[string]*snap.Entry) *snap.Snapshot {
	s := snap.NewSnapshot("/captured")
	for p, e := range entries {
		s.Entries[p] = e
	}
	return s
}

func TestComputeDiff_Identity(t *testing.T) {
	t.Parallel()
	s := snapshotOf(map[string]*snap.Entry{
		"a.txt": fileEntry("a\n"),
		"sub":   dirEntry(),
	})
	if d := snap.ComputeDiff(s, s); !d.Empty() {
		t.Errorf("diff(S, S) = %v, want empty", d.Changes)
	}
}

func TestComputeDiff_MetadataIsNotIdentity(t *testing.T) {
	t.Parallel()
	before := snapshotOf(map[string]*snap.Entry{
		"a.txt": {Kind: snap.KindFile, Size: 2, MTime: 100, Hash: testutil.SHA256Hex([]byte("a\n"))},
	})
	after := snapshotOf(map[string]*snap.Entry{
		"a.txt": {Kind: snap.KindFile, Size: 2, MTime: 999, Hash: testutil.SHA256Hex([]byte("a\n"))},
	})
	if d := snap.ComputeDiff(before, after); !d.Empty() {
		t.Errorf("mtime drift produced changes: %v", d.Changes)
	}
}

func TestComputeDiff_Transitions(t *testing.T) {
	t.Parallel()
	before := snapshotOf(map[string]*snap.Entry{
		"removed.txt":  fileEntry("r\n"),
		"kept":         dirEntry(),
		"modified.txt": fileEntry("old\n"),
		"flip":         fileEntry("f\n"),
	})
	after := snapshotOf(map[string]*snap.Entry{
		"added.txt":    fileEntry("a\n"),
		"kept":         dirEntry(),
		"modified.txt": fileEntry("new\n"),
		"flip":         dirEntry(),
	})

	d := snap.ComputeDiff(before, after)

	want := []snap.Change{
		{Path: "added.txt", From: snap.KindAbsent, To: snap.KindFile, After: after.Entries["added.txt"]},
		{Path: "flip", From: snap.KindFile, To: snap.KindDir, Before: before.Entries["flip"], After: after.Entries["flip"]},
		{Path: "modified.txt", From: snap.KindFile, To: snap.KindFile, Before: before.Entries["modified.txt"], After: after.Entries["modified.txt"]},
		{Path: "removed.txt", From: snap.KindFile, To: snap.KindAbsent, Before: before.Entries["removed.txt"]},
	}
	if !reflect.DeepEqual(d.Changes, want) {
		t.Errorf("changes = %+v, want %+v", d.Changes, want)
	}
}

func TestComputeDiff_SubtreeReplacement(t *testing.T) {
	t.Parallel()
	before := snapshotOf(map[string]*snap.Entry{
		"p":       dirEntry(),
		"p/c.txt": fileEntry("c\n"),
	})
	after := snapshotOf(map[string]*snap.Entry{
		"p": fileEntry("now a file\n"),
	})

	d := snap.ComputeDiff(before, after)

	want := []snap.Change{
		{Path: "p", From: snap.KindDir, To: snap.KindFile, Before: before.Entries["p"], After: after.Entries["p"]},
		{Path: "p/c.txt", From: snap.KindFile, To: snap.KindAbsent, Before: before.Entries["p/c.txt"]},
	}
	if !reflect.DeepEqual(d.Changes, want) {
		t.Errorf("changes = %+v, want %+v", d.Changes, want)
	}
}
