// Package models contains the data structures shared by the stream pipeline
package models

import (
	"fmt"
	"strings"
)

// HosterKind identifies a third-party hoster embedding the episode
type HosterKind string

const (
	// HosterVoe is the primary hoster
	HosterVoe HosterKind = "voe"
	// HosterFileMoon is the secondary hoster
	HosterFileMoon HosterKind = "filemoon"
)

// DisplayName returns the label shown in stream names
func (k HosterKind) DisplayName() string {
	switch k {
	case HosterVoe:
		return "Voe"
	case HosterFileMoon:
		return "FileMoon"
	default:
		return string(k)
	}
}

// ParseHosterKind maps a configuration value onto a known kind
func ParseHosterKind(s string) (HosterKind, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "voe":
		return HosterVoe, true
	case "filemoon":
		return HosterFileMoon, true
	}
	return "", false
}

// HosterDescriptor is a parsed reference to a hoster embed on an episode page
type HosterDescriptor struct {
	Kind HosterKind
	URL  string
	Lang string // "cs", "en" or empty
	Dub  bool   // true when the item came from the dubbed section
}

// Key is the uniqueness key within one parse
func (h HosterDescriptor) Key() string {
	return string(h.Kind) + "|" + h.URL
}

// IsCzechDub reports whether the descriptor comes from the Czech dub section
func (h HosterDescriptor) IsCzechDub() bool {
	return h.Dub && h.Lang == "cs"
}

// SourceType distinguishes adaptive manifests from progressive files
type SourceType string

const (
	SourceHLS  SourceType = "hls"
	SourceFile SourceType = "file"
)

// Label is the short container label used in stream titles
func (t SourceType) Label() string {
	if t == SourceHLS {
		return "HLS"
	}
	return "MP4"
}

// MediaSource is a direct media URL resolved from one hoster
type MediaSource struct {
	URL               string
	Type              SourceType
	Name              string
	Title             string
	OriginalIframeURL string
}

// SubtitleTrack is an external subtitle file found on the episode page
type SubtitleTrack struct {
	URL   string `json:"url"`
	Lang  string `json:"lang"`
	Label string `json:"label"`
}

// BehaviorHints are passed through to the media player
type BehaviorHints struct {
	BingeGroup  string `json:"bingeGroup,omitempty"`
	NotWebReady bool   `json:"notWebReady"`
}

// StreamRecord is one playable stream returned to the client
type StreamRecord struct {
	Name          string          `json:"name"`
	Title         string          `json:"title"`
	URL           string          `json:"url"`
	OriginalURL   string          `json:"originalUrl"`
	Quality       string          `json:"quality"`
	HosterKind    HosterKind      `json:"hosterKind"`
	StreamLabel   string          `json:"streamLabel"`
	Resolution    string          `json:"resolution,omitempty"`
	Subtitles     []SubtitleTrack `json:"subtitles,omitempty"`
	BehaviorHints BehaviorHints   `json:"behaviorHints"`
}

// DedupKey is (original URL without query, quality, language label)
func (s StreamRecord) DedupKey() string {
	base := s.OriginalURL
	if i := strings.Index(base, "?"); i >= 0 {
		base = base[:i]
	}
	return base + "|" + s.Quality + "|" + s.StreamLabel
}

// EpisodeRef addresses one episode of a series by external catalog id
type EpisodeRef struct {
	IMDBID  string
	Season  int
	Episode int
}

// CacheKey is the result cache key for the episode
func (e EpisodeRef) CacheKey() string {
	return fmt.Sprintf("%s-%d-%d", e.IMDBID, e.Season, e.Episode)
}

func (e EpisodeRef) String() string {
	return fmt.Sprintf("%s S%02dE%02d", e.IMDBID, e.Season, e.Episode)
}

// EpisodeData is the parse result of one episode page
type EpisodeData struct {
	Hosters   []HosterDescriptor
	Subtitles []SubtitleTrack
}

// Empty reports whether no hoster was found
func (d EpisodeData) Empty() bool {
	return len(d.Hosters) == 0
}
