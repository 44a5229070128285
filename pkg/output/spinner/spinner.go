// Package spinner draws a braille activity indicator while a direct-mode
// step waits. It is cosmetic and never affects results.
package spinner

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

// Frames are drawn in order, one per interval.
var Frames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// DefaultInterval is the frame period used when Start is given zero.
const DefaultInterval = 80 * time.Millisecond

// Spinner is a running indicator. Stop it exactly once.
type Spinner struct {
	w       io.Writer
	message string
	cancel  context.CancelFunc
	done    chan struct{}
	once    sync.Once
	frames  int
}

// Start draws message with a rotating frame on w until ctx is done or Stop
// is called. Each frame rewrites the current line with a carriage return.
func Start(ctx context.Context, w io.Writer, message string, interval time.Duration) *Spinner {
	if interval <= 0 {
		interval = DefaultInterval
	}

	ctx, cancel := context.WithCancel(ctx)
	s := &Spinner{
		w:       w,
		message: message,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	go s.run(ctx, interval)
	return s
}

func (s *Spinner) run(ctx context.Context, interval time.Duration) {
	defer close(s.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.draw()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.draw()
		}
	}
}

func (s *Spinner) draw() {
	frame := Frames[s.frames%len(Frames)]
	s.frames++
	fmt.Fprintf(s.w, "\r%s %s", frame, s.message)
}

// Stop halts the spinner, waits for its goroutine and clears the line.
// It returns the number of frames drawn.
func (s *Spinner) Stop() int {
	s.once.Do(func() {
		s.cancel()
		<-s.done
		fmt.Fprintf(s.w, "\r%s\r", strings.Repeat(" ", len([]rune(s.message))+2))
	})
	return s.frames
}
