package util

import (
	"fmt"
	"runtime"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// Counter names shared by the addon, the pipeline and the proxy
const (
	CounterStreamRequests = "stream_requests"
	CounterStreamsServed  = "streams_served"
	CounterCacheHits      = "cache_hits"
	CounterHosterFailures = "hoster_failures"
	CounterProxyHLS       = "proxy_hls"
	CounterProxyMP4       = "proxy_mp4"
	CounterLogins         = "logins"
)

// Timing is the accumulated duration of one named operation
type Timing struct {
	Name  string
	Last  time.Duration
	Count int64
	Total time.Duration
}

// Average returns the mean duration or zero
func (t Timing) Average() time.Duration {
	if t.Count == 0 {
		return 0
	}
	return t.Total / time.Duration(t.Count)
}

// Stats tracks process activity for the health endpoint and the periodic
// status line. The zero value is not usable; call NewStats.
type Stats struct {
	mu       sync.RWMutex
	timings  map[string]*Timing
	counters map[string]*int64
	started  time.Time
	lastUsed atomic.Int64
}

var (
	globalStats     *Stats
	globalStatsOnce sync.Once
)

// NewStats creates an empty tracker starting now
func NewStats() *Stats {
	return &Stats{
		timings:  make(map[string]*Timing),
		counters: make(map[string]*int64),
		started:  time.Now(),
	}
}

// GetStats returns the process-wide tracker
func GetStats() *Stats {
	globalStatsOnce.Do(func() {
		globalStats = NewStats()
	})
	return globalStats
}

// Timer measures one operation
type Timer struct {
	name  string
	start time.Time
	stats *Stats
}

// StartTimer starts timing name against s
func (s *Stats) StartTimer(name string) *Timer {
	return &Timer{name: name, start: time.Now(), stats: s}
}

// Stop records the elapsed time
func (t *Timer) Stop() time.Duration {
	if t == nil {
		return 0
	}
	d := time.Since(t.start)
	t.stats.Record(t.name, d)
	return d
}

// StopAndLog records and logs the elapsed time at debug level
func (t *Timer) StopAndLog() time.Duration {
	d := t.Stop()
	if t != nil {
		Debug("timing", "operation", t.name, "took", d.Round(time.Millisecond))
	}
	return d
}

// Record adds a duration sample for name
func (s *Stats) Record(name string, d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.timings[name]
	if !ok {
		t = &Timing{Name: name}
		s.timings[name] = t
	}
	t.Count++
	t.Total += d
	t.Last = d
}

// Inc increments a named counter
func (s *Stats) Inc(name string) {
	s.Add(name, 1)
}

// Add adds delta to a named counter
func (s *Stats) Add(name string, delta int64) {
	s.mu.Lock()
	c, ok := s.counters[name]
	if !ok {
		var v int64
		c = &v
		s.counters[name] = c
	}
	s.mu.Unlock()

	atomic.AddInt64(c, delta)
}

// Counter returns the current value of a counter
func (s *Stats) Counter(name string) int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.counters[name]
	if !ok {
		return 0
	}
	return atomic.LoadInt64(c)
}

// Counters returns a copy of every counter
func (s *Stats) Counters() map[string]int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]int64, len(s.counters))
	for k, c := range s.counters {
		out[k] = atomic.LoadInt64(c)
	}
	return out
}

// Timings returns a copy of every timing, slowest total first
func (s *Stats) Timings() []Timing {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Timing, 0, len(s.timings))
	for _, t := range s.timings {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Total > out[j].Total })
	return out
}

// Touch marks the tracker as used now
func (s *Stats) Touch() {
	s.lastUsed.Store(time.Now().UnixNano())
}

// LastUsed returns the last Touch time, zero when never touched
func (s *Stats) LastUsed() time.Time {
	n := s.lastUsed.Load()
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n)
}

// Uptime returns the time since the tracker was created
func (s *Stats) Uptime() time.Duration {
	return time.Since(s.started)
}

// HeapMB returns the current heap allocation in megabytes
func HeapMB() uint64 {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return m.HeapAlloc / 1024 / 1024
}

var (
	reportTitleStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#D7141A")).
				Bold(true)

	reportKeyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#4ECDC4"))

	reportValueStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#FFE66D"))
)

// StatusLine renders a one-line summary for the periodic status log
func (s *Stats) StatusLine() string {
	var b strings.Builder
	b.WriteString(reportTitleStyle.Render("status"))

	kv := func(k, v string) {
		b.WriteString(" ")
		b.WriteString(reportKeyStyle.Render(k + "="))
		b.WriteString(reportValueStyle.Render(v))
	}
	kv("uptime", s.Uptime().Round(time.Second).String())
	kv("requests", fmt.Sprintf("%d", s.Counter(CounterStreamRequests)))
	kv("served", fmt.Sprintf("%d", s.Counter(CounterStreamsServed)))
	kv("cache_hits", fmt.Sprintf("%d", s.Counter(CounterCacheHits)))
	kv("heap", fmt.Sprintf("%dMB", HeapMB()))
	if last := s.LastUsed(); !last.IsZero() {
		kv("idle", time.Since(last).Round(time.Second).String())
	}
	return b.String()
}
