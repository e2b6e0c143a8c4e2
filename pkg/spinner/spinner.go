// Package spinner shows progress on a terminal while a request is in flight.
package spinner

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"
)

// Interval between frames.
const Interval = 80 * time.Millisecond

var frames = []string{
	"⣀⣀ ", "⣄⣀ ", "⣤⣀ ", "⣦⣄ ", "⣶⣤ ", "⣿⣦ ", "⣿⣷ ", "⣿⣿ ",
	"⣿⣿ ", "⣷⣿ ", "⣦⣿ ", "⣤⣷ ", "⣄⣦ ", "⣀⣤ ", "⣀⣄ ", "⣀⣀ ",
}

// Spinner struct holds the spinner state
type Spinner struct {
	w       io.Writer
	message string
	index   int
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New creates a spinner that draws message to w.
func New(w io.Writer, message string) *Spinner {
	return &Spinner{w: w, message: message}
}

// Start draws frames until Stop is called or ctx is done.
func (s *Spinner) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	// Hide cursor
	fmt.Fprint(s.w, "\033[?25l")
	s.wg.Go(func() {
		ticker := time.NewTicker(Interval)
		defer ticker.Stop()
		for {
			s.update()
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	})
}

// update prints the current frame and advances to the next one.
func (s *Spinner) update() {
	fmt.Fprintf(s.w, "\r%s%s", frames[s.index], s.message)
	s.index = (s.index + 1) % len(frames)
}

// Stop clears the spinner line and shows the cursor again.
func (s *Spinner) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	s.wg.Wait()
	s.cancel = nil
	fmt.Fprint(s.w, "\r\033[K")
	fmt.Fprint(s.w, "\033[?25h")
}
