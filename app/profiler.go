package app

import (
	"fmt"
	"slices"
	"sort"
	"strings"
	"time"
)

// Profiler accumulates the time spent in named frame phases over a
// reporting window, plus a few counters for the stats log. Reset starts a
// new window.
type Profiler struct {
	Counts map[string]int
	Order  []string

	totals map[string]time.Duration
	calls  map[string]int
	starts map[string]time.Time
	now    func() time.Time
}

func NewProfiler() *Profiler {
	return &Profiler{
		Counts: make(map[string]int),
		totals: make(map[string]time.Duration),
		calls:  make(map[string]int),
		starts: make(map[string]time.Time),
		now:    time.Now,
	}
}

func (p *Profiler) BeginScope(name string) {
	p.starts[name] = p.now()
	if !slices.Contains(p.Order, name) {
		p.Order = append(p.Order, name)
	}
}

func (p *Profiler) EndScope(name string) {
	start, ok := p.starts[name]
	if !ok {
		return
	}
	delete(p.starts, name)
	p.totals[name] += p.now().Sub(start)
	p.calls[name]++
}

// Measure runs fn inside a scope and returns its error.
func (p *Profiler) Measure(name string, fn func() error) error {
	p.BeginScope(name)
	defer p.EndScope(name)
	return fn()
}

// Average is the mean duration of a phase in the current window.
func (p *Profiler) Average(name string) time.Duration {
	n := p.calls[name]
	if n == 0 {
		return 0
	}
	return p.totals[name] / time.Duration(n)
}

// Calls is how many times a phase ran in the current window.
func (p *Profiler) Calls(name string) int {
	return p.calls[name]
}

func (p *Profiler) SetCount(name string, count int) {
	p.Counts[name] = count
}

// Reset drops the timings of the current window. Counters and the phase
// order survive.
func (p *Profiler) Reset() {
	clear(p.totals)
	clear(p.calls)
}

func (p *Profiler) GetStatsString() string {
	var sb strings.Builder

	sb.WriteString("Timings (CPU, mean per call):\n")
	for _, name := range p.Order {
		ms := float64(p.Average(name).Microseconds()) / 1000.0
		fmt.Fprintf(&sb, "  %-15s: %.2f ms x%d\n", name, ms, p.calls[name])
	}

	sb.WriteString("\nStats:\n")
	keys := make([]string, 0, len(p.Counts))
	for k := range p.Counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&sb, "  %-15s: %d\n", k, p.Counts[k])
	}
	return sb.String()
}
