package output

import (
	"fmt"
	"strings"
	"sync/atomic"

	ffErrors "github.com/vnykmshr/fanflow/pkg/common/errors"
)

// Mode selects how a Sink publishes to the Console.
type Mode int

const (
	// ModeDirect writes each unit immediately under the console lock.
	ModeDirect Mode = iota
	// ModeBuffered accumulates privately and publishes once on Close.
	ModeBuffered
)

func (m Mode) String() string {
	switch m {
	case ModeDirect:
		return "direct"
	case ModeBuffered:
		return "buffered"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// ParseMode parses "direct" or "buffered".
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "direct":
		return ModeDirect, nil
	case "buffered":
		return ModeBuffered, nil
	default:
		return 0, ffErrors.NewValidationError("output", "mode", s, "unknown output mode").
			WithHint("use direct or buffered")
	}
}

// Sink is one task's view of the console.
type Sink interface {
	// Emit writes text, which may span several lines, as one unit.
	Emit(text string) error

	// Line writes a single line.
	Line(text string) error

	// Close publishes anything pending. Writes after Close fail with
	// errors.ErrClosed.
	Close() error
}

// NewSink creates a sink of the given mode over c.
func (c *Console) NewSink(mode Mode) Sink {
	if mode == ModeBuffered {
		return NewBuffered(c)
	}
	return NewDirect(c)
}

// Direct writes through to the console. Each call holds the console lock
// only for its own unit, so units from concurrent direct sinks may
// alternate. Direct is safe for concurrent use.
type Direct struct {
	console *Console
	closed  atomic.Bool
}

// NewDirect creates a direct sink over c.
func NewDirect(c *Console) *Direct {
	return &Direct{console: c}
}

func (d *Direct) Emit(text string) error {
	if d.closed.Load() {
		return ffErrors.ErrClosed
	}
	lines := splitLines(text)
	if err := d.console.WriteBlock(lines); err != nil {
		return err
	}
	d.console.observeLines(ModeDirect, lines)
	return nil
}

func (d *Direct) Line(text string) error {
	if d.closed.Load() {
		return ffErrors.ErrClosed
	}
	if err := d.console.WriteLine(text); err != nil {
		return err
	}
	d.console.observeLines(ModeDirect, []string{text})
	return nil
}

func (d *Direct) Close() error {
	d.closed.Store(true)
	return nil
}

// Buffered keeps lines in a private buffer and writes them to the console
// as one block when closed. A Buffered sink belongs to a single task and is
// not safe for concurrent use.
type Buffered struct {
	console *Console
	lines   []string
	closed  bool
}

// NewBuffered creates a buffered sink over c.
func NewBuffered(c *Console) *Buffered {
	return &Buffered{console: c}
}

func (b *Buffered) Emit(text string) error {
	if b.closed {
		return ffErrors.ErrClosed
	}
	b.lines = append(b.lines, splitLines(text)...)
	return nil
}

func (b *Buffered) Line(text string) error {
	if b.closed {
		return ffErrors.ErrClosed
	}
	b.lines = append(b.lines, text)
	return nil
}

// Len returns the number of pending lines.
func (b *Buffered) Len() int {
	return len(b.lines)
}

// Close flushes every pending line in append order under one console lock
// and discards the buffer. Closing twice is a no-op.
func (b *Buffered) Close() error {
	if b.closed {
		return nil
	}
	b.closed = true

	lines := b.lines
	b.lines = nil
	if err := b.console.WriteBlock(lines); err != nil {
		return err
	}
	b.console.observeLines(ModeBuffered, lines)
	b.console.observeFlush(ModeBuffered)
	return nil
}

func splitLines(text string) []string {
	return strings.Split(strings.TrimSuffix(text, "\n"), "\n")
}

func (c *Console) observeLines(mode Mode, lines []string) {
	m := c.config.Metrics
	if m == nil || len(lines) == 0 {
		return
	}
	var n int
	for _, l := range lines {
		n += len(l) + 1
	}
	m.SinkLines.WithLabelValues(mode.String()).Add(float64(len(lines)))
	m.SinkBytes.WithLabelValues(mode.String()).Add(float64(n))
}

func (c *Console) observeFlush(mode Mode) {
	if m := c.config.Metrics; m != nil {
		m.SinkFlushes.WithLabelValues(mode.String()).Inc()
	}
}
