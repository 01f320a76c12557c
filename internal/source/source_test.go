package source

import (
	"io"
	"strings"
	"testing"

	"fsnap/internal/testutil"
)

func TestFilesystemSource(t *testing.T) {
	t.Run("serves content by relative path", func(t *testing.T) {
		t.Parallel()
		root := t.TempDir()
		testutil.WriteTree(t, root, map[string]string{"sub/": "", "sub/a.txt": "a\n"})

		src, err := NewFilesystemSource(root)
		if err != nil {
			t.Fatalf("new: %v", err)
		}
		r, err := src.Open("sub/a.txt")
		if err != nil {
			t.Fatalf("open: %v", err)
		}
		defer r.Close()
		b, err := io.ReadAll(r)
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		if string(b) != "a\n" {
			t.Errorf("content = %q", b)
		}
	})

	t.Run("missing content violates the contract", func(t *testing.T) {
		t.Parallel()
		src, err := NewFilesystemSource(t.TempDir())
		if err != nil {
			t.Fatalf("new: %v", err)
		}
		_, err = src.Open("nope.txt")
		if err == nil || !strings.Contains(err.Error(), "no content for") {
			t.Fatalf("err = %v", err)
		}
	})

	t.Run("rejects non-directory root", func(t *testing.T) {
		t.Parallel()
		root := t.TempDir()
		testutil.WriteTree(t, root, map[string]string{"f": "x"})
		if _, err := NewFilesystemSource(root + "/f"); err == nil {
			t.Fatal("expected error")
		}
	})
}

func TestMemorySource(t *testing.T) {
	t.Parallel()
	src := NewMemorySource()
	src.Put("a.txt", []byte("a\n"))

	r, err := src.Open("a.txt")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer r.Close()
	b, _ := io.ReadAll(r)
	if string(b) != "a\n" {
		t.Errorf("content = %q", b)
	}

	if _, err := src.Open("missing"); err == nil {
		t.Fatal("expected error for missing content")
	}
}
