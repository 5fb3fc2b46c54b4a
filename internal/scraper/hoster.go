package scraper

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/pkg/errors"

	"github.com/alvarorichard/svetserialu/internal/browser"
	"github.com/alvarorichard/svetserialu/internal/models"
	"github.com/alvarorichard/svetserialu/internal/util"
)

var playControls = []string{
	`button[aria-label*="play" i]`,
	`button[class*="play" i]`,
	".vjs-big-play-button",
	".jw-icon-play",
	".jw-display-icon-display",
	".plyr__control--overlaid",
	`.plyr__control[data-plyr="play"]`,
	".play-btn",
	".play-button",
	"video",
	"[data-play]",
}

const (
	playScript = `() => { document.querySelectorAll('video').forEach(v => { v.muted = true; if (v.play) { v.play().catch(() => {}); } }); }`
	srcScript  = `() => Array.from(document.querySelectorAll('video')).map(v => v.currentSrc || v.src).filter(Boolean)`
)

// HosterResolver drives a hoster embed in the browser until it reveals a
// playable media URL
type HosterResolver struct {
	browser  browser.Browser
	disabled map[models.HosterKind]bool
	stats    *util.Stats

	// MediaWait bounds the wait for the first captured media response
	MediaWait time.Duration
}

// NewHosterResolver creates a resolver; kinds in disabled always resolve to nothing
func NewHosterResolver(b browser.Browser, disabled []models.HosterKind, stats *util.Stats) *HosterResolver {
	off := make(map[models.HosterKind]bool, len(disabled))
	for _, k := range disabled {
		off[k] = true
	}
	if stats == nil {
		stats = util.NewStats()
	}
	return &HosterResolver{
		browser:   b,
		disabled:  off,
		stats:     stats,
		MediaWait: 10 * time.Second,
	}
}

// Resolve returns the media sources behind one hoster descriptor.
// Any failure yields nil.
func (r *HosterResolver) Resolve(ctx context.Context, d models.HosterDescriptor, referer string, cookies []*http.Cookie) []models.MediaSource {
	if r.disabled[d.Kind] {
		util.Debug("hoster kind disabled", "kind", d.Kind)
		return nil
	}

	var sources []models.MediaSource
	err := util.Isolate(func() error {
		var err error
		sources, err = r.resolve(ctx, d, referer, cookies)
		return err
	})
	if err != nil {
		util.Warn("hoster resolution failed", "kind", d.Kind, "url", util.Truncate(d.URL, 100), "error", err)
		return nil
	}
	return sources
}

func (r *HosterResolver) resolve(ctx context.Context, d models.HosterDescriptor, referer string, cookies []*http.Cookie) ([]models.MediaSource, error) {
	timer := r.stats.StartTimer("hoster_" + string(d.Kind))
	defer timer.StopAndLog()

	urls, err := r.capture(ctx, d.URL, referer, cookies)
	if err != nil {
		return nil, err
	}
	sources := BuildSources(urls)

	origin := ""
	if len(sources) > 0 {
		origin = r.originalIframe(ctx, d.URL, referer, cookies)
	}

	name := d.Kind.DisplayName()
	for i := range sources {
		sources[i].Name = name
		sources[i].Title = sources[i].Type.Label() + " • " + name
		sources[i].OriginalIframeURL = origin
	}
	util.Info("hoster resolved", "kind", d.Kind, "sources", len(sources))
	return sources, nil
}

// capture runs the navigation sequence and returns captured network URLs
// followed by URLs found in the final DOM
func (r *HosterResolver) capture(ctx context.Context, sourceURL, referer string, cookies []*http.Cookie) ([]string, error) {
	page, err := r.browser.NewPage(ctx, browser.ScrapeProfile(cookies, referer))
	if err != nil {
		return nil, errors.Wrap(err, "cannot open hoster page")
	}
	defer func() { _ = page.Close() }()

	captured := NewCaptureSet()
	page.OnRequest(func(u string) {
		if captured.Add(u) {
			util.Debug("request captured", "url", util.Truncate(u, 120))
		}
	})
	page.OnResponse(func(u string) {
		if captured.Add(u) {
			util.Debug("response captured", "url", util.Truncate(u, 120))
		}
	})

	util.Debug("loading hoster sources", "url", sourceURL)
	if err := page.Goto(sourceURL, browser.GotoOptions{Referer: referer, Timeout: 15 * time.Second}); err != nil {
		return nil, err
	}
	preferCzech(page)

	html, err := page.Content()
	if err != nil {
		return nil, errors.Wrap(err, "cannot read hoster page")
	}
	if embed := FirstIframe(html); embed != "" {
		embed, err = resolveAgainst(page.URL(), embed)
		if err != nil {
			return nil, err
		}
		embedReferer := referer
		if embedReferer == "" {
			embedReferer = sourceURL
		}
		util.Debug("loading embed", "url", util.Truncate(embed, 120))
		if err := page.Goto(embed, browser.GotoOptions{Referer: embedReferer, Timeout: 15 * time.Second}); err != nil {
			return nil, err
		}
		page.Wait(time.Second)
		preferCzech(page)
		page.Wait(500 * time.Millisecond)
	}

	startPlayback(page)
	page.Wait(time.Second)
	r.waitForMedia(ctx, page, captured)

	html, err = page.Content()
	if err != nil {
		return nil, errors.Wrap(err, "cannot read embed page")
	}
	dom := ExtractFromHTML(html)
	dom = append(dom, evaluateSources(page)...)

	util.Debug("hoster capture finished", "network", captured.Len(), "dom", len(dom))
	return append(captured.URLs(), dom...), nil
}

// waitForMedia returns once a media URL was captured, the wait elapsed or
// ctx was cancelled. Wait is also called so scripted pages can progress.
func (r *HosterResolver) waitForMedia(ctx context.Context, page browser.Page, captured *CaptureSet) {
	if captured.Len() > 0 {
		return
	}
	deadline := time.NewTimer(r.MediaWait)
	defer deadline.Stop()

	poll := time.NewTicker(250 * time.Millisecond)
	defer poll.Stop()

	for captured.Len() == 0 {
		select {
		case <-captured.Notify():
		case <-poll.C:
			page.Wait(0)
		case <-deadline.C:
			util.Debug("no media response within wait", "wait", r.MediaWait)
			return
		case <-ctx.Done():
			return
		}
	}
}

// originalIframe reads the pre-redirect embed address from a fresh context
func (r *HosterResolver) originalIframe(ctx context.Context, sourceURL, referer string, cookies []*http.Cookie) string {
	page, err := r.browser.NewPage(ctx, browser.ScrapeProfile(cookies, referer))
	if err != nil {
		util.Debug("original iframe probe: no page", "error", err)
		return ""
	}
	defer func() { _ = page.Close() }()

	if err := page.Goto(sourceURL, browser.GotoOptions{Referer: referer, Timeout: 15 * time.Second}); err != nil {
		util.Debug("original iframe probe failed", "error", err)
		return ""
	}
	html, err := page.Content()
	if err != nil {
		return ""
	}
	src := FirstIframe(html)
	if src == "" {
		return ""
	}
	if abs, err := resolveAgainst(page.URL(), src); err == nil {
		src = abs
	}
	util.Debug("original iframe", "url", util.Truncate(src, 100))
	return src
}

func preferCzech(page browser.Page) {
	clickCascade(page, czechLoose, time.Second, 500*time.Millisecond)
	clickCascade(page, czechStrict, 1500*time.Millisecond, 700*time.Millisecond)
}

// startPlayback presses every visible play control, then calls play() on
// each video element directly
func startPlayback(page browser.Page) {
	for _, sel := range playControls {
		ok, err := browser.ClickIfPresent(page, sel, time.Second)
		if err != nil || !ok {
			continue
		}
		util.Debug("clicked play control", "selector", sel)
		page.Wait(500 * time.Millisecond)
	}
	if _, err := page.Evaluate(playScript); err != nil {
		util.Debug("direct play failed", "error", err)
	}
}

func evaluateSources(page browser.Page) []string {
	v, err := page.Evaluate(srcScript)
	if err != nil {
		return nil
	}
	list, ok := v.([]interface{})
	if !ok {
		return nil
	}
	var out []string
	for _, item := range list {
		if s, ok := item.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}

func resolveAgainst(base, ref string) (string, error) {
	b, err := url.Parse(base)
	if err != nil {
		return "", errors.Wrap(err, "bad base URL")
	}
	r, err := url.Parse(ref)
	if err != nil {
		return "", errors.Wrapf(err, "bad reference %q", ref)
	}
	return b.ResolveReference(r).String(), nil
}
