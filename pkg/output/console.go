package output

import (
	"io"
	"sync"
	"time"

	"github.com/vnykmshr/fanflow/pkg/metrics"
)

// Stats holds counters about what a Console has written.
type Stats struct {
	// Lines is the number of lines written.
	Lines int64

	// Blocks is the number of multi-line units written under one lock.
	Blocks int64

	// Bytes is the number of bytes accepted by the destination.
	Bytes int64

	// Errors is the number of writes that failed after retries.
	Errors int64

	// LastWrite is the time of the most recent write.
	LastWrite time.Time
}

// Config holds configuration options for a Console.
type Config struct {
	// MaxRetries is how many times a failed write is retried.
	// Default: 2
	MaxRetries int

	// RetryDelay is the pause between retries.
	// Default: 5ms
	RetryDelay time.Duration

	// OnError is called when a write fails after all retries.
	OnError func(error)

	// Metrics enables sink counters labelled by mode.
	Metrics *metrics.Registry
}

// DefaultConfig returns the default Console configuration.
func DefaultConfig() Config {
	return Config{
		MaxRetries: 2,
		RetryDelay: 5 * time.Millisecond,
	}
}

// Console is the shared output destination. Every write holds the console
// lock, so a line or block is never split by another writer.
type Console struct {
	mu     sync.Mutex
	w      io.Writer
	config Config

	statsMu sync.Mutex
	stats   Stats
}

// NewConsole wraps w with the default configuration.
func NewConsole(w io.Writer) *Console {
	return NewConsoleWithConfig(w, DefaultConfig())
}

// NewConsoleWithConfig wraps w with config.
func NewConsoleWithConfig(w io.Writer, config Config) *Console {
	if config.MaxRetries < 0 {
		config.MaxRetries = 0
	}
	return &Console{w: w, config: config}
}

// WriteLine writes one line, appending a newline.
func (c *Console) WriteLine(line string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	n, err := c.writeWithRetries([]byte(line + "\n"))
	c.record(1, 0, n, err)
	return err
}

// WriteBlock writes lines in order under a single acquisition of the
// console lock. Writing stops at the first failed line.
func (c *Console) WriteBlock(lines []string) error {
	if len(lines) == 0 {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	var written, total int
	var err error
	for _, line := range lines {
		var n int
		n, err = c.writeWithRetries([]byte(line + "\n"))
		total += n
		if err != nil {
			break
		}
		written++
	}
	c.record(written, 1, total, err)
	return err
}

// Hold runs fn with exclusive access to the destination, for callers that
// render a multi-line block themselves.
func (c *Console) Hold(fn func(w io.Writer) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	cw := &countingWriter{w: c.w}
	err := fn(cw)
	c.record(cw.lines, 1, cw.n, err)
	return err
}

// Stats returns a snapshot of the console counters.
func (c *Console) Stats() Stats {
	c.statsMu.Lock()
	defer c.statsMu.Unlock()
	return c.stats
}

// writeWithRetries writes data, retrying short or failed writes.
// Must be called with c.mu held.
func (c *Console) writeWithRetries(data []byte) (int, error) {
	var total int
	var lastErr error

	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 && c.config.RetryDelay > 0 {
			time.Sleep(c.config.RetryDelay)
		}

		n, err := c.w.Write(data[total:])
		total += n
		if err != nil {
			lastErr = err
			continue
		}
		if total >= len(data) {
			return total, nil
		}
		lastErr = io.ErrShortWrite
	}
	return total, lastErr
}

func (c *Console) record(lines, blocks, n int, err error) {
	c.statsMu.Lock()
	c.stats.Lines += int64(lines)
	c.stats.Blocks += int64(blocks)
	c.stats.Bytes += int64(n)
	c.stats.LastWrite = time.Now()
	if err != nil {
		c.stats.Errors++
	}
	c.statsMu.Unlock()

	if err != nil && c.config.OnError != nil {
		c.config.OnError(err)
	}
}

type countingWriter struct {
	w     io.Writer
	n     int
	lines int
}

func (cw *countingWriter) Write(p []byte) (int, error) {
	n, err := cw.w.Write(p)
	cw.n += n
	for _, b := range p[:n] {
		if b == '\n' {
			cw.lines++
		}
	}
	return n, err
}

// Writer returns an io.Writer whose every Write holds the console lock.
// It suits cosmetic writers such as a spinner that redraw a single line.
func (c *Console) Writer() io.Writer {
	return lockedWriter{c: c}
}

type lockedWriter struct {
	c *Console
}

func (lw lockedWriter) Write(p []byte) (int, error) {
	lw.c.mu.Lock()
	defer lw.c.mu.Unlock()

	n, err := lw.c.w.Write(p)
	lw.c.record(0, 0, n, err)
	return n, err
}
