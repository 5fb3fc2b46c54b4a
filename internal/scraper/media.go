package scraper

import (
	"encoding/json"
	"html"
	"regexp"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"

	"github.com/alvarorichard/svetserialu/internal/models"
	"github.com/alvarorichard/svetserialu/internal/util"
)

var (
	mediaURL      = regexp.MustCompile(`(?i)\.(m3u8|mp4|avi|mkv|webm)(\?|$)`)
	hlsURL        = regexp.MustCompile(`(?i)\.m3u8(\?|$)`)
	sourcesConfig = regexp.MustCompile(`(?i)sources\s*:\s*(\[[\s\S]*?\])`)
	hlsLiteral    = regexp.MustCompile(`(?i)https?://[^\s"'<>()]+\.m3u8[^\s"'<>()]*`)
	fileLiteral   = regexp.MustCompile(`(?i)https?://[^\s"'<>()]+\.(mp4|avi|mkv|webm)[^\s"'<>()]*`)

	bracketLink  = regexp.MustCompile(`\[(https?://[^\]\s]+)\]`)
	parenLink    = regexp.MustCompile(`\((https?://[^)\s]+)\)`)
	markdownLink = regexp.MustCompile(`\[[^\]]+\]\((https?://[^)]+)\)`)
)

// IsMediaURL reports whether u points at a media file or manifest
func IsMediaURL(u string) bool {
	return mediaURL.MatchString(u)
}

// IsHLS reports whether u points at an HLS manifest
func IsHLS(u string) bool {
	return hlsURL.MatchString(u)
}

// SanitizeURL unescapes HTML entities and unwraps bracketed or markdown links
func SanitizeURL(u string) string {
	s := html.UnescapeString(strings.TrimSpace(u))
	s = markdownLink.ReplaceAllString(s, "$1")
	s = bracketLink.ReplaceAllString(s, "$1")
	s = parenLink.ReplaceAllString(s, "$1")
	return s
}

// CaptureSet collects media URLs in first-seen order. It is fed from
// browser event callbacks and is safe for concurrent use.
type CaptureSet struct {
	mu     sync.Mutex
	seen   map[string]struct{}
	order  []string
	notify chan struct{}
}

// NewCaptureSet creates an empty set
func NewCaptureSet() *CaptureSet {
	return &CaptureSet{
		seen:   make(map[string]struct{}),
		notify: make(chan struct{}, 1),
	}
}

// Add records u when it is a media URL not seen before
func (c *CaptureSet) Add(u string) bool {
	if !IsMediaURL(u) {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.seen[u]; ok {
		return false
	}
	c.seen[u] = struct{}{}
	c.order = append(c.order, u)
	select {
	case c.notify <- struct{}{}:
	default:
	}
	return true
}

// URLs returns a copy of the captured URLs
func (c *CaptureSet) URLs() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.order...)
}

// Len returns the number of captured URLs
func (c *CaptureSet) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.order)
}

// Notify fires after each new capture
func (c *CaptureSet) Notify() <-chan struct{} {
	return c.notify
}

// ExtractFromHTML finds media URLs in video elements, inline player
// configuration and bare URL literals, in that order
func ExtractFromHTML(page string) []string {
	var urls []string
	push := func(u string) {
		u = SanitizeURL(u)
		if u == "" {
			return
		}
		for _, seen := range urls {
			if seen == u {
				return
			}
		}
		urls = append(urls, u)
	}

	if doc, err := goquery.NewDocumentFromReader(strings.NewReader(page)); err == nil {
		doc.Find("video source[src]").Each(func(_ int, s *goquery.Selection) {
			push(s.AttrOr("src", ""))
		})
		doc.Find("video[src]").Each(func(_ int, s *goquery.Selection) {
			push(s.AttrOr("src", ""))
		})
	}

	for _, u := range sourcesFromConfig(page) {
		push(u)
	}
	for _, u := range hlsLiteral.FindAllString(page, -1) {
		push(u)
	}
	for _, u := range fileLiteral.FindAllString(page, -1) {
		push(u)
	}
	return urls
}

func sourcesFromConfig(page string) []string {
	m := sourcesConfig.FindStringSubmatch(page)
	if m == nil {
		return nil
	}
	var entries []map[string]interface{}
	if err := json.Unmarshal([]byte(m[1]), &entries); err != nil {
		util.Debug("player sources block is not JSON", "error", err)
		return nil
	}
	var out []string
	for _, e := range entries {
		if f, ok := e["file"].(string); ok {
			out = append(out, f)
		}
		if s, ok := e["src"].(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// BuildSources merges URL lists, drops duplicates and non-media URLs and
// tags each one as HLS or progressive
func BuildSources(lists ...[]string) []models.MediaSource {
	seen := make(map[string]struct{})
	var out []models.MediaSource
	for _, list := range lists {
		for _, u := range list {
			if _, ok := seen[u]; ok {
				continue
			}
			seen[u] = struct{}{}
			switch {
			case IsHLS(u):
				out = append(out, models.MediaSource{URL: u, Type: models.SourceHLS})
			case IsMediaURL(u):
				out = append(out, models.MediaSource{URL: u, Type: models.SourceFile})
			}
		}
	}
	return out
}

// FirstIframe returns the src of the first iframe in page
func FirstIframe(page string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(doc.Find("iframe").First().AttrOr("src", ""))
}
