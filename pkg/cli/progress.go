package cli

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// Progress reports row-level progress for long dataset loads. It renders
// a single in-place line and is safe for concurrent Update calls.
type Progress struct {
	mu      sync.Mutex
	label   string
	total   int64
	current int64
	started time.Time
	writer  io.Writer
}

// NewProgress creates a progress reporter writing to w, or os.Stderr when
// w is nil. total may be zero when the item count is unknown up front.
func NewProgress(label string, total int64, w io.Writer) *Progress {
	if w == nil {
		w = os.Stderr
	}
	return &Progress{
		label:   label,
		total:   total,
		started: time.Now(),
		writer:  w,
	}
}

// Update sets the current position and redraws the line.
func (p *Progress) Update(current int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.current = current
	p.render()
}

// Add advances the current position by n and redraws the line.
func (p *Progress) Add(n int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.current += n
	p.render()
}

// Finish draws the final state and terminates the line.
func (p *Progress) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.total > 0 {
		p.current = p.total
	}
	p.render()
	fmt.Fprintln(p.writer)
}

func (p *Progress) render() {
	elapsed := time.Since(p.started).Round(time.Second)
	if p.total > 0 {
		percent := float64(p.current) / float64(p.total) * 100
		fmt.Fprintf(p.writer, "\r%s: %d/%d (%.0f%%) %s", p.label, p.current, p.total, percent, elapsed)
		return
	}
	fmt.Fprintf(p.writer, "\r%s: %d %s", p.label, p.current, elapsed)
}
