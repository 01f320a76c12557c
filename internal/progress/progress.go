// Package progress renders a byte-based progress indicator to stderr while
// a snapshot build hashes file content.
package progress

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"golang.org/x/term"

	"fsnap/internal/snap"
)

// Enabled reports whether stderr is an interactive terminal. Progress output
// is suppressed when it is not, so piped runs stay clean.
func Enabled() bool {
	return term.IsTerminal(int(os.Stderr.Fd()))
}

// Tracker renders hashing progress as bytes done over bytes total.
type Tracker struct {
	message   string
	out       io.Writer
	mu        sync.Mutex
	total     int64
	done      int64
	startTime time.Time
	quit      chan struct{}
	finished  sync.Once
}

// New creates a tracker that renders to stderr once Start is called.
func New(message string) *Tracker {
	return &Tracker{
		message: message,
		out:     os.Stderr,
		quit:    make(chan struct{}),
	}
}

// Start announces the total byte count and begins rendering.
func (t *Tracker) Start(totalBytes int64) {
	t.mu.Lock()
	t.total = totalBytes
	t.startTime = time.Now()
	t.mu.Unlock()
	go t.render()
}

// Add reports bytes hashed since the last call.
func (t *Tracker) Add(bytes int64) {
	t.mu.Lock()
	t.done += bytes
	t.mu.Unlock()
}

// Finish stops rendering and prints a closing summary line.
func (t *Tracker) Finish() {
	t.finished.Do(func() {
		close(t.quit)
		time.Sleep(1 * time.Millisecond)
	})
}

func (t *Tracker) render() {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	spinner := []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}
	frame := 0

	for {
		select {
		case <-t.quit:
			t.mu.Lock()
			elapsed := time.Since(t.startTime)
			fmt.Fprintf(t.out, "\r✓ %s (%s, %s)          \n",
				t.message, humanBytes(t.done), elapsed.Round(time.Millisecond))
			t.mu.Unlock()
			return

		case <-ticker.C:
			t.mu.Lock()
			if t.total > 0 {
				percent := float64(t.done) / float64(t.total) * 100
				fmt.Fprintf(t.out, "\r%s %s [%s/%s] %.0f%%  ",
					spinner[frame%len(spinner)],
					t.message,
					humanBytes(t.done),
					humanBytes(t.total),
					percent)
			} else {
				fmt.Fprintf(t.out, "\r%s %s [%s]  ",
					spinner[frame%len(spinner)],
					t.message,
					humanBytes(t.done))
			}
			t.mu.Unlock()
			frame++
		}
	}
}

func humanBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

var _ snap.ProgressSink = (*Tracker)(nil)
