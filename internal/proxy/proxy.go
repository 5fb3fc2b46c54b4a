// Package proxy relays media from hosters to the player and reports health
package proxy

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"runtime"
	"time"

	"github.com/pkg/errors"

	"github.com/alvarorichard/svetserialu/internal/httpx"
	"github.com/alvarorichard/svetserialu/internal/metrics"
	"github.com/alvarorichard/svetserialu/internal/util"
)

// Endpoint paths
const (
	PathHealth  = "/health"
	PathHLS     = "/hls-proxy"
	PathMP4     = "/mp4-proxy"
	PathMetrics = "/metrics"
)

const (
	defaultPlaylistType = "application/vnd.apple.mpegurl"
	maxPlaylistBytes    = 8 << 20
	playlistTimeout     = 20 * time.Second
)

// hop-by-hop headers are never relayed
var hopHeaders = map[string]bool{
	"Connection":          true,
	"Keep-Alive":          true,
	"Proxy-Authenticate":  true,
	"Proxy-Authorization": true,
	"Te":                  true,
	"Trailer":             true,
	"Transfer-Encoding":   true,
	"Upgrade":             true,
}

// Options configures the proxy server
type Options struct {
	AddonPort int
	ProxyPort int
	// CacheLen reports the number of cached episodes for /health
	CacheLen func() int
	// BrowserRunning reports whether the stealth browser is up
	BrowserRunning func() bool
	Stats    *util.Stats
	Metrics  *metrics.Metrics
	// PlaylistClient fetches manifests; StreamClient relays progressive bodies
	PlaylistClient *http.Client
	StreamClient   *http.Client
	HeapLimitMB    uint64
}

// Server serves the proxy endpoints
type Server struct {
	opts    Options
	readMem func(*runtime.MemStats)
}

// New creates a proxy server, filling unset options with defaults
func New(opts Options) *Server {
	if opts.Stats == nil {
		opts.Stats = util.NewStats()
	}
	if opts.CacheLen == nil {
		opts.CacheLen = func() int { return 0 }
	}
	if opts.BrowserRunning == nil {
		opts.BrowserRunning = func() bool { return false }
	}
	if opts.PlaylistClient == nil {
		opts.PlaylistClient = util.GetSharedClient()
	}
	if opts.StreamClient == nil {
		opts.StreamClient = util.GetStreamClient()
	}
	if opts.HeapLimitMB == 0 {
		opts.HeapLimitMB = DefaultHeapLimitMB
	}
	return &Server{opts: opts, readMem: runtime.ReadMemStats}
}

// Router returns the proxy routes
func (s *Server) Router() http.Handler {
	r := httpx.NewRouter()
	r.Get(PathHealth, s.handleHealth)
	r.Get(PathHLS, s.handleHLS)
	r.Get(PathMP4, s.handleMP4)
	r.Head(PathMP4, s.handleMP4)
	if s.opts.Metrics != nil {
		r.Method(http.MethodGet, PathMetrics, s.opts.Metrics.Handler())
	}
	r.NotFound(s.handleNotFound)
	return r
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	endpoints := []string{PathHealth, PathHLS + "?url=<encoded_url>", PathMP4 + "?url=<encoded_url>"}
	if s.opts.Metrics != nil {
		endpoints = append(endpoints, PathMetrics)
	}
	httpx.WriteJSON(w, http.StatusNotFound, map[string]interface{}{
		"error":               "Not Found",
		"available_endpoints": endpoints,
	})
}

func targetURL(w http.ResponseWriter, r *http.Request) (string, bool) {
	target := r.URL.Query().Get("url")
	if target == "" {
		http.Error(w, "Missing URL parameter", http.StatusBadRequest)
		return "", false
	}
	return target, true
}

func (s *Server) handleHLS(w http.ResponseWriter, r *http.Request) {
	target, ok := targetURL(w, r)
	if !ok {
		return
	}
	s.opts.Stats.Inc(util.CounterProxyHLS)

	status, err := s.relayPlaylist(w, r, target)
	s.observe("hls", status)
	if err != nil {
		util.Error("HLS proxy error", "url", util.Truncate(target, 80), "error", err)
		http.Error(w, "HLS Proxy Error", http.StatusInternalServerError)
	}
}

// relayPlaylist writes the response itself unless it returns an error
func (s *Server) relayPlaylist(w http.ResponseWriter, r *http.Request, target string) (int, error) {
	ctx, cancel := context.WithTimeout(r.Context(), playlistTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return 0, errors.Wrap(err, "bad upstream url")
	}
	req.Header.Set("User-Agent", util.UserAgent)

	resp, err := s.opts.PlaylistClient.Do(req)
	if err != nil {
		return 0, errors.Wrap(err, "upstream fetch failed")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		w.WriteHeader(resp.StatusCode)
		return resp.StatusCode, nil
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxPlaylistBytes))
	if err != nil {
		return resp.StatusCode, errors.Wrap(err, "reading playlist failed")
	}
	body := string(raw)
	if IsMaster(body) {
		body = RewriteMaster(body)
		util.Debug("Master playlist rewritten for Czech priority", "url", util.Truncate(target, 80))
	}

	ct := resp.Header.Get("Content-Type")
	if ct == "" {
		ct = defaultPlaylistType
	}
	w.Header().Set("Content-Type", ct)
	w.Header().Set("Content-Length", fmt.Sprint(len(body)))
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, body)
	return resp.StatusCode, nil
}

func (s *Server) handleMP4(w http.ResponseWriter, r *http.Request) {
	target, ok := targetURL(w, r)
	if !ok {
		return
	}
	s.opts.Stats.Inc(util.CounterProxyMP4)

	req, err := http.NewRequestWithContext(r.Context(), r.Method, target, nil)
	if err != nil {
		s.observe("mp4", 0)
		http.Error(w, "MP4 Proxy Error", http.StatusInternalServerError)
		return
	}
	req.Header.Set("User-Agent", util.UserAgent)
	if rng := r.Header.Get("Range"); rng != "" {
		req.Header.Set("Range", rng)
	}

	resp, err := s.opts.StreamClient.Do(req)
	if err != nil {
		s.observe("mp4", 0)
		util.Error("MP4 proxy error", "url", util.Truncate(target, 80), "error", err)
		http.Error(w, "MP4 Proxy Error", http.StatusInternalServerError)
		return
	}
	defer func() { _ = resp.Body.Close() }()
	s.observe("mp4", resp.StatusCode)

	h := w.Header()
	for k, vv := range resp.Header {
		if hopHeaders[k] || k == "Access-Control-Allow-Origin" || k == "Access-Control-Allow-Headers" {
			continue
		}
		for _, v := range vv {
			h.Add(k, v)
		}
	}
	w.WriteHeader(resp.StatusCode)

	if r.Method == http.MethodHead {
		return
	}
	if _, err := io.Copy(w, resp.Body); err != nil {
		util.Debug("MP4 relay ended early", "error", err)
	}
}

func (s *Server) observe(endpoint string, status int) {
	if s.opts.Metrics != nil {
		s.opts.Metrics.ProxyRequests.WithLabelValues(endpoint, metrics.StatusClass(status)).Inc()
	}
}
