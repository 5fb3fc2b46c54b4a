package proxy

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/alvarorichard/svetserialu/internal/httpx"
	"github.com/alvarorichard/svetserialu/internal/util"
	"github.com/alvarorichard/svetserialu/internal/version"
)

// DefaultHeapLimitMB is the heap size above which /health degrades
const DefaultHeapLimitMB = 400

// Browser states
const (
	BrowserRunning = "running"
	BrowserStopped = "stopped"
)

// Health states
const (
	StatusOK      = "OK"
	StatusWarning = "WARNING"
)

// HealthReport is the /health body
type HealthReport struct {
	Status    string         `json:"status"`
	Timestamp time.Time      `json:"timestamp"`
	Mode      string         `json:"mode"`
	Version   string         `json:"version"`
	Browser   string         `json:"browser"`
	Uptime    UptimeReport   `json:"uptime"`
	Ports     PortsReport    `json:"ports"`
	Memory    MemoryReport   `json:"memory"`
	Activity  ActivityReport `json:"activity"`
	Runtime   RuntimeReport  `json:"environment"`
}

type UptimeReport struct {
	Seconds   int64     `json:"seconds"`
	Formatted string    `json:"formatted"`
	Since     time.Time `json:"since"`
}

type PortsReport struct {
	Addon int `json:"addon"`
	Proxy int `json:"proxy"`
}

type MemoryReport struct {
	HeapAllocMB uint64 `json:"heap_used_mb"`
	HeapSysMB   uint64 `json:"heap_total_mb"`
	SysMB       uint64 `json:"sys_mb"`
	NumGC       uint32 `json:"num_gc"`
	Goroutines  int    `json:"goroutines"`
	UsagePct    int    `json:"usage_percentage"`
}

type ActivityReport struct {
	TotalRequests  int64            `json:"total_requests"`
	LastRequest    *time.Time       `json:"last_request,omitempty"`
	LastRequestAgo string           `json:"last_request_ago,omitempty"`
	CacheEntries   int              `json:"cache_entries"`
	Counters       map[string]int64 `json:"counters"`
}

type RuntimeReport struct {
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
	Arch      string `json:"arch"`
}

// Health assembles the current report
func (s *Server) Health() HealthReport {
	var m runtime.MemStats
	s.readMem(&m)
	heap := m.HeapAlloc / 1024 / 1024

	st := s.opts.Stats
	uptime := st.Uptime()
	rep := HealthReport{
		Status:    StatusOK,
		Timestamp: time.Now().UTC(),
		Mode:      "STEALTH",
		Version:   version.Version,
		Browser:   BrowserStopped,
		Uptime: UptimeReport{
			Seconds:   int64(uptime.Seconds()),
			Formatted: formatUptime(uptime),
			Since:     time.Now().Add(-uptime).UTC(),
		},
		Ports: PortsReport{Addon: s.opts.AddonPort, Proxy: s.opts.ProxyPort},
		Memory: MemoryReport{
			HeapAllocMB: heap,
			HeapSysMB:   m.HeapSys / 1024 / 1024,
			SysMB:       m.Sys / 1024 / 1024,
			NumGC:       m.NumGC,
			Goroutines:  runtime.NumGoroutine(),
		},
		Activity: ActivityReport{
			TotalRequests: st.Counter(util.CounterStreamRequests),
			CacheEntries:  s.opts.CacheLen(),
			Counters:      st.Counters(),
		},
		Runtime: RuntimeReport{
			GoVersion: runtime.Version(),
			Platform:  runtime.GOOS,
			Arch:      runtime.GOARCH,
		},
	}
	if s.opts.BrowserRunning() {
		rep.Browser = BrowserRunning
	}
	if m.HeapSys > 0 {
		rep.Memory.UsagePct = int(m.HeapAlloc * 100 / m.HeapSys)
	}
	if last := st.LastUsed(); !last.IsZero() {
		rep.Activity.LastRequest = &last
		rep.Activity.LastRequestAgo = formatAgo(time.Since(last))
	}
	if heap >= s.opts.HeapLimitMB {
		rep.Status = StatusWarning
	}
	return rep
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	rep := s.Health()
	code := http.StatusOK
	if rep.Status != StatusOK {
		code = http.StatusServiceUnavailable
	}
	w.Header().Set("Cache-Control", "no-cache")
	httpx.WriteJSON(w, code, rep)
}

func formatUptime(d time.Duration) string {
	secs := int64(d.Seconds())
	return fmt.Sprintf("%dh %dm %ds", secs/3600, (secs%3600)/60, secs%60)
}

func formatAgo(d time.Duration) string {
	secs := int64(d.Seconds())
	switch {
	case secs < 60:
		return fmt.Sprintf("%ds ago", secs)
	case secs < 3600:
		return fmt.Sprintf("%dm ago", secs/60)
	default:
		return fmt.Sprintf("%dh ago", secs/3600)
	}
}
