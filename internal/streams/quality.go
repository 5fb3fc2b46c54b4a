package streams

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/grafov/m3u8"
	"github.com/pkg/errors"

	"github.com/alvarorichard/svetserialu/internal/models"
	"github.com/alvarorichard/svetserialu/internal/util"
)

// Resolution labels
const (
	Res1080 = "1080p"
	Res720  = "720p"
	Res480  = "480p"
	Res360  = "360p"
)

// QualityProber estimates the best resolution of a source
type QualityProber struct {
	client  *http.Client
	timeout time.Duration
}

// NewQualityProber creates a prober using client for manifest fetches
func NewQualityProber(client *http.Client) *QualityProber {
	return &QualityProber{client: client, timeout: 5 * time.Second}
}

// Probe returns a resolution label or "" when it cannot be told
func (q *QualityProber) Probe(ctx context.Context, src models.MediaSource) string {
	if src.Type != models.SourceHLS {
		return ResolutionFromName(src.URL)
	}
	res, err := q.probeHLS(ctx, src.URL)
	if err != nil {
		util.Debug("resolution probe failed", "url", util.Truncate(src.URL, 80), "error", err)
		return ""
	}
	return res
}

func (q *QualityProber) probeHLS(ctx context.Context, manifestURL string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, q.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, manifestURL, nil)
	if err != nil {
		return "", errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("User-Agent", util.UserAgent)

	resp, err := q.client.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "manifest fetch failed")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", errors.Errorf("manifest returned %s", resp.Status)
	}

	p, listType, err := m3u8.DecodeFrom(resp.Body, true)
	if err != nil {
		return "", errors.Wrap(err, "decode manifest")
	}
	if listType != m3u8.MASTER {
		return "", nil
	}
	master, ok := p.(*m3u8.MasterPlaylist)
	if !ok {
		return "", nil
	}
	return ResolutionFromMaster(master), nil
}

// ResolutionFromMaster labels the height of the highest bandwidth variant
// that declares a resolution
func ResolutionFromMaster(master *m3u8.MasterPlaylist) string {
	var best string
	var bestBandwidth uint32
	for _, v := range master.Variants {
		if v == nil || v.Resolution == "" {
			continue
		}
		if v.Bandwidth > bestBandwidth {
			bestBandwidth = v.Bandwidth
			best = v.Resolution
		}
	}
	if best == "" {
		return ""
	}
	_, h, ok := strings.Cut(best, "x")
	if !ok {
		return ""
	}
	height, err := strconv.Atoi(strings.TrimSpace(h))
	if err != nil {
		return ""
	}
	return HeightLabel(height)
}

// HeightLabel buckets a pixel height
func HeightLabel(height int) string {
	switch {
	case height >= 1080:
		return Res1080
	case height >= 720:
		return Res720
	case height >= 480:
		return Res480
	default:
		return Res360
	}
}

// ResolutionFromName guesses a progressive file's resolution from its name
func ResolutionFromName(u string) string {
	low := strings.ToLower(u)
	switch {
	case strings.Contains(low, "_h.mp4") || strings.Contains(low, "high") || strings.Contains(low, "1080"):
		return Res1080
	case strings.Contains(low, "_m.mp4") || strings.Contains(low, "med") || strings.Contains(low, "720"):
		return Res720
	case strings.Contains(low, "_l.mp4") || strings.Contains(low, "low") || strings.Contains(low, "480"):
		return Res480
	default:
		return Res720
	}
}
