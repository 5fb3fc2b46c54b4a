package streams

import (
	"net/url"
	"sort"
	"strings"

	"github.com/alvarorichard/svetserialu/internal/models"
)

const (
	minSourceURLLen   = 10
	minOriginalURLLen = 20
)

var placeholderMarkers = []string{"test-videos.co.uk", "example.com", "sample", "demo"}

// SortHosters orders dubbed entries first, then Czech ones, otherwise
// keeping page order
func SortHosters(in []models.HosterDescriptor) []models.HosterDescriptor {
	out := append([]models.HosterDescriptor(nil), in...)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Dub != b.Dub {
			return a.Dub
		}
		return a.Lang == "cs" && b.Lang != "cs"
	})
	return out
}

// Rejected reports placeholder and implausibly short media URLs
func Rejected(u string) bool {
	if len(u) < minSourceURLLen {
		return true
	}
	return hasAny(u, placeholderMarkers)
}

// RecordInput carries everything needed to build one stream record
type RecordInput struct {
	Slug       string
	Hoster     models.HosterDescriptor
	Source     models.MediaSource
	Verdict    Classification
	Resolution string
	Subtitles  []models.SubtitleTrack
	ProxyBase  string
}

// BuildRecord produces the client-facing record, routed through the proxy
func BuildRecord(in RecordInput) models.StreamRecord {
	name := in.Source.Name + " • " + in.Verdict.Label
	if in.Resolution != "" {
		name += " " + in.Resolution
	}

	rec := models.StreamRecord{
		Name:        name,
		Title:       name,
		URL:         ProxyURL(in.ProxyBase, in.Source),
		OriginalURL: in.Source.URL,
		Quality:     in.Verdict.Quality,
		HosterKind:  in.Hoster.Kind,
		StreamLabel: in.Verdict.Label,
		Resolution:  in.Resolution,
		BehaviorHints: models.BehaviorHints{
			BingeGroup:  in.Slug + "-" + in.Verdict.Label,
			NotWebReady: in.Source.Type != models.SourceHLS,
		},
	}
	if in.Verdict.HasSubtitles && len(in.Subtitles) > 0 {
		rec.Subtitles = append([]models.SubtitleTrack(nil), in.Subtitles...)
	}
	return rec
}

// ProxyURL wraps a media URL in the matching proxy endpoint
func ProxyURL(base string, src models.MediaSource) string {
	endpoint := "/mp4-proxy"
	if src.Type == models.SourceHLS {
		endpoint = "/hls-proxy"
	}
	return strings.TrimRight(base, "/") + endpoint + "?url=" + url.QueryEscape(src.URL)
}

// Dedup keeps the first record per (URL without query, quality, label)
func Dedup(in []models.StreamRecord) []models.StreamRecord {
	seen := make(map[string]struct{}, len(in))
	out := make([]models.StreamRecord, 0, len(in))
	for _, r := range in {
		k := r.DedupKey()
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, r)
	}
	return out
}

// Validate drops records whose original URL is missing or too short
func Validate(in []models.StreamRecord) []models.StreamRecord {
	out := make([]models.StreamRecord, 0, len(in))
	for _, r := range in {
		if len(r.OriginalURL) < minOriginalURLLen {
			continue
		}
		out = append(out, r)
	}
	return out
}
