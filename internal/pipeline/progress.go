package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"
)

// ProgressCallback receives progress while a batch of images is scanned.
type ProgressCallback interface {
	OnStart(total int)
	OnProgress(current, total int)
	OnComplete()
	OnError(current int, err error)
}

// NoOpProgressCallback implements ProgressCallback but does nothing.
type NoOpProgressCallback struct{}

func (NoOpProgressCallback) OnStart(int)         {}
func (NoOpProgressCallback) OnProgress(int, int) {}
func (NoOpProgressCallback) OnComplete()         {}
func (NoOpProgressCallback) OnError(int, error)  {}

// ConsoleProgressCallback draws a single-line progress bar.
type ConsoleProgressCallback struct {
	mu             sync.Mutex
	writer         io.Writer
	prefix         string
	width          int
	updateInterval time.Duration
	lastUpdate     time.Time
	startTime      time.Time
}

// NewConsoleProgressCallback creates a console progress reporter writing to
// w, or stderr when w is nil.
func NewConsoleProgressCallback(w io.Writer, prefix string) *ConsoleProgressCallback {
	if w == nil {
		w = os.Stderr
	}
	return &ConsoleProgressCallback{
		writer:         w,
		prefix:         prefix,
		width:          40,
		updateInterval: 100 * time.Millisecond,
	}
}

// WithWidth sets the bar width in characters.
func (c *ConsoleProgressCallback) WithWidth(width int) *ConsoleProgressCallback {
	if width > 0 {
		c.width = width
	}
	return c
}

// WithUpdateInterval sets how often the bar is redrawn.
func (c *ConsoleProgressCallback) WithUpdateInterval(interval time.Duration) *ConsoleProgressCallback {
	c.updateInterval = interval
	return c
}

func (c *ConsoleProgressCallback) OnStart(total int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.startTime = time.Now()
	c.lastUpdate = time.Time{}
	_, _ = fmt.Fprintf(c.writer, "%sscanning %d images\n", c.prefix, total)
}

func (c *ConsoleProgressCallback) OnProgress(current, total int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := time.Now()
	if current < total && now.Sub(c.lastUpdate) < c.updateInterval {
		return
	}
	c.lastUpdate = now
	if total <= 0 {
		return
	}

	filled := c.width * current / total
	bar := strings.Repeat("#", filled) + strings.Repeat(".", c.width-filled)
	line := fmt.Sprintf("\r%s[%s] %d/%d", c.prefix, bar, current, total)
	if elapsed := now.Sub(c.startTime); elapsed > 0 && current > 0 {
		line += fmt.Sprintf(" %.1f img/s", float64(current)/elapsed.Seconds())
	}
	_, _ = fmt.Fprint(c.writer, line)
}

func (c *ConsoleProgressCallback) OnComplete() {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, _ = fmt.Fprintf(c.writer, "\n%sdone in %v\n", c.prefix, time.Since(c.startTime).Round(time.Millisecond))
}

func (c *ConsoleProgressCallback) OnError(current int, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, _ = fmt.Fprintf(c.writer, "\n%simage %d failed: %v\n", c.prefix, current, err)
}

// LogProgressCallback reports progress through slog every interval items.
type LogProgressCallback struct {
	logger    *slog.Logger
	level     slog.Level
	interval  int
	lastLog   int
	startTime time.Time
}

// NewLogProgressCallback creates a log-based progress reporter.
func NewLogProgressCallback(logger *slog.Logger, level slog.Level) *LogProgressCallback {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogProgressCallback{logger: logger, level: level, interval: 10}
}

// WithInterval sets how many items pass between log lines.
func (l *LogProgressCallback) WithInterval(interval int) *LogProgressCallback {
	if interval > 0 {
		l.interval = interval
	}
	return l
}

func (l *LogProgressCallback) OnStart(total int) {
	l.startTime = time.Now()
	l.lastLog = 0
	l.logger.Log(context.Background(), l.level, "Batch scan started", "total", total)
}

func (l *LogProgressCallback) OnProgress(current, total int) {
	if current-l.lastLog < l.interval && current != total {
		return
	}
	l.lastLog = current
	l.logger.Log(context.Background(), l.level, "Batch scan progress",
		"current", current,
		"total", total,
		"elapsed", time.Since(l.startTime).Round(time.Millisecond))
}

func (l *LogProgressCallback) OnComplete() {
	l.logger.Log(context.Background(), l.level, "Batch scan completed",
		"elapsed", time.Since(l.startTime).Round(time.Millisecond))
}

func (l *LogProgressCallback) OnError(current int, err error) {
	l.logger.Log(context.Background(), slog.LevelError, "Batch scan error", "current", current, "error", err)
}

// MultiProgressCallback fans progress out to several callbacks.
type MultiProgressCallback []ProgressCallback

func (m MultiProgressCallback) OnStart(total int) {
	for _, cb := range m {
		cb.OnStart(total)
	}
}

func (m MultiProgressCallback) OnProgress(current, total int) {
	for _, cb := range m {
		cb.OnProgress(current, total)
	}
}

func (m MultiProgressCallback) OnComplete() {
	for _, cb := range m {
		cb.OnComplete()
	}
}

func (m MultiProgressCallback) OnError(current int, err error) {
	for _, cb := range m {
		cb.OnError(current, err)
	}
}

// syncProgress serialises calls so callbacks need not be goroutine-safe.
type syncProgress struct {
	mu sync.Mutex
	cb ProgressCallback
}

func newSyncProgress(cb ProgressCallback) *syncProgress {
	if cb == nil {
		cb = NoOpProgressCallback{}
	}
	return &syncProgress{cb: cb}
}

func (s *syncProgress) OnStart(total int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cb.OnStart(total)
}

func (s *syncProgress) OnProgress(current, total int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cb.OnProgress(current, total)
}

func (s *syncProgress) OnComplete() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cb.OnComplete()
}

func (s *syncProgress) OnError(current int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cb.OnError(current, err)
}
