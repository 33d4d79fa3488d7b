package cmd

import (
	"fmt"
	"io"
	"sync"
	"time"

	auditapp "github.com/khanhnv2901/seca-webaudit/internal/application/audit"
	"github.com/khanhnv2901/seca-webaudit/internal/domain/audit"
)

// progressPrinter prints one line per finished probe and keeps a tally.
type progressPrinter struct {
	out      io.Writer
	total    int
	name     string
	mu       sync.Mutex
	ok       int
	fail     int
	duration time.Duration
}

func newProgressPrinter(out io.Writer, total int, name string) *progressPrinter {
	if total <= 0 {
		total = 1
	}
	return &progressPrinter{out: out, total: total, name: name}
}

// Observe is an audit observer callback.
func (p *progressPrinter) Observe(ev auditapp.ProbeEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if ev.Status == audit.StatusOK {
		p.ok++
	} else {
		p.fail++
	}
	p.duration += ev.Duration

	completed := p.ok + p.fail
	if completed > p.total {
		p.total = completed
	}

	line := fmt.Sprintf("[%s] %d/%d %-14s %s %6dms",
		p.name, completed, p.total, ev.Kind, formatStatusWithColor(string(ev.Status)), ev.Duration.Milliseconds())
	if ev.Error != "" {
		line += "  " + colorWarn(ev.Error)
	}
	fmt.Fprintln(p.out, line)
}

// Summary prints the totals.
func (p *progressPrinter) Summary() {
	p.mu.Lock()
	defer p.mu.Unlock()

	fmt.Fprintf(p.out, "[%s] Probes: %d/%d OK:%d Fallback:%d Total:%.2fs\n",
		p.name, p.ok+p.fail, p.total, p.ok, p.fail, p.duration.Seconds())
}
