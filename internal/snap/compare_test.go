package snap_test

import (
	"reflect"
	"testing"

	"fsnap/internal/snap"
	"fsnap/internal/testutil"
)

func TestQuickCompare(t *testing.T) {
	t.Parallel()
	snapshotDir := t.TempDir()
	testutil.WriteTree(t, snapshotDir, map[string]string{
		"same.txt":     "same\n",
		"missing.txt":  "m\n",
		"resized.txt":  "short\n",
		"sub/":         "",
		"sub/deep.txt": "d\n",
	})
	s, err := snap.Build(snapshotDir, snap.BuildOptions{})
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	liveDir := t.TempDir()
	testutil.WriteTree(t, liveDir, map[string]string{
		"same.txt":     "same\n",
		"resized.txt":  "much longer now\n",
		"extra.txt":    "e\n",
		"sub/":         "",
		"sub/deep.txt": "d\n",
	})

	result, err := snap.QuickCompare(liveDir, s)
	if err != nil {
		t.Fatalf("compare: %v", err)
	}

	if want := []string{"extra.txt"}; !reflect.DeepEqual(result.Extra, want) {
		t.Errorf("extra = %v, want %v", result.Extra, want)
	}
	if want := []string{"missing.txt"}; !reflect.DeepEqual(result.Missing, want) {
		t.Errorf("missing = %v, want %v", result.Missing, want)
	}
	if want := []string{"resized.txt"}; !reflect.DeepEqual(result.Different, want) {
		t.Errorf("different = %v, want %v", result.Different, want)
	}
}

func TestQuickCompare_IdenticalTree(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	testutil.WriteTree(t, dir, map[string]string{"a.txt": "a\n", "sub/": "", "sub/b.txt": "b\n"})
	s, err := snap.Build(dir, snap.BuildOptions{})
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	result, err := snap.QuickCompare(dir, s)
	if err != nil {
		t.Fatalf("compare: %v", err)
	}
	if len(result.Extra)+len(result.Missing)+len(result.Different) != 0 {
		t.Errorf("identical tree classified as changed: %+v", result)
	}
}
