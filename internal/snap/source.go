package snap

import "io"

// Source supplies file bytes for additions and content changes during patch
// application. Paths are relative, "/"-separated, and match the after-side
// snapshot's paths.
type Source interface {
	// Open returns a reader over the content stored at relPath.
	Open(relPath string) (io.ReadCloser, error)
}
