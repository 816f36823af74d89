package cli

import (
	"fmt"
	"io"
	"strings"
	"time"
)

// ─── Progress Bar ───────────────────────────────────────────────────────────
// A terminal progress bar for benchmark sweeps.
// Shows: [=========>..........] 42% | 168/400 searches | 5120 searches/s | ETA 2s

const barWidth = 30 // Characters for the progress bar

type progressBar struct {
	out     io.Writer
	started time.Time
	total   int
	lastPct int
}

func newProgressBar(out io.Writer, total int) *progressBar {
	return &progressBar{
		out:     out,
		started: time.Now(),
		total:   total,
		lastPct: -1,
	}
}

// update redraws the bar when the completed percentage changes.
func (p *progressBar) update(done int) {
	if p.total <= 0 {
		return
	}
	pct := done * 100 / p.total
	if pct == p.lastPct {
		return
	}
	p.lastPct = pct
	p.renderBar(done, float64(pct), time.Now())
}

// finish terminates the bar line.
func (p *progressBar) finish() {
	if p.total <= 0 {
		return
	}
	p.clearLine()
	fmt.Fprintf(p.out, "[done] %d searches in %s\n", p.total, time.Since(p.started).Round(time.Millisecond))
}

func (p *progressBar) renderBar(done int, pct float64, now time.Time) {
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}

	// Build the bar: [=======>............]
	filled := int(pct / 100 * float64(barWidth))
	if filled > barWidth {
		filled = barWidth
	}
	empty := barWidth - filled

	var bar string
	if filled == barWidth {
		bar = strings.Repeat("=", filled)
	} else if filled > 0 {
		bar = strings.Repeat("=", filled-1) + ">" + strings.Repeat(".", empty)
	} else {
		bar = strings.Repeat(".", barWidth)
	}

	p.clearLine()
	fmt.Fprintf(p.out, "  [%s] %3.0f%% | %d/%d searches | %s | %s",
		bar, pct, done, p.total, p.calculateRate(done, now), p.calculateETA(pct, now))
}

func (p *progressBar) calculateRate(done int, now time.Time) string {
	elapsed := now.Sub(p.started).Seconds()
	if elapsed < 0.05 {
		return "-- searches/s"
	}
	return fmt.Sprintf("%.0f searches/s", float64(done)/elapsed)
}

func (p *progressBar) calculateETA(pct float64, now time.Time) string {
	if pct <= 0 || pct >= 100 {
		return "ETA --"
	}

	elapsed := now.Sub(p.started).Seconds()
	if elapsed < 1 {
		return "ETA --"
	}

	totalEstimated := elapsed / (pct / 100)
	remaining := totalEstimated - elapsed

	if remaining < 0 {
		remaining = 0
	}

	if remaining < 60 {
		return fmt.Sprintf("ETA %ds", int(remaining))
	}
	if remaining < 3600 {
		return fmt.Sprintf("ETA %dm%ds", int(remaining)/60, int(remaining)%60)
	}
	return fmt.Sprintf("ETA %dh%dm", int(remaining)/3600, (int(remaining)%3600)/60)
}

func (p *progressBar) clearLine() {
	fmt.Fprintf(p.out, "\r\033[K")
}
