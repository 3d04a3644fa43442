package monitoring

import (
	"fmt"
	"io"
	"strings"
)

// ProgressBar renders a single-line terminal progress bar, redrawn in place
// with a carriage return. Updates that do not change the displayed
// percentage are skipped so the bar can safely be driven once per grid cell
// scanned without flooding the terminal.
type ProgressBar struct {
	w         io.Writer
	prefix    string
	barLength int
	lastPct   int
}

// NewProgressBar returns a bar writing to w. A barLength of 0 uses the
// default width.
func NewProgressBar(w io.Writer, prefix string, barLength int) *ProgressBar {
	if barLength <= 0 {
		barLength = 50
	}
	return &ProgressBar{w: w, prefix: prefix, barLength: barLength, lastPct: -1}
}

// Update redraws the bar for done of total steps. The final update appends a
// newline so subsequent log output starts on a fresh line.
func (p *ProgressBar) Update(done, total int) {
	if total <= 0 {
		return
	}
	pct := done * 100 / total
	if pct == p.lastPct && done != total {
		return
	}
	p.lastPct = pct

	filled := p.barLength * done / total
	bar := strings.Repeat("#", filled) + strings.Repeat("-", p.barLength-filled)
	fmt.Fprintf(p.w, "\r%s|%s| %d%% (%d of %d)", p.prefix, bar, pct, done, total)
	if done == total {
		fmt.Fprintln(p.w)
	}
}

// Reset prepares the bar for a new trial without reallocating it.
func (p *ProgressBar) Reset() {
	p.lastPct = -1
}
