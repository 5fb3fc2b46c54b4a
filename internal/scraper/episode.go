package scraper

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/alvarorichard/svetserialu/internal/browser"
	"github.com/alvarorichard/svetserialu/internal/models"
	"github.com/alvarorichard/svetserialu/internal/util"
)

const dubListReady = ".tabshe8 ul.tabs li"

var (
	// czechLoose are tried on every page before parsing; each entry is a
	// selector group clicked as a whole
	czechLoose = []string{
		`img[alt*="CZ" i], img[alt*="Czech" i], img[alt*="Česk" i]`,
		`[class*="flag"][class*="cz" i], [class*="flag"][class*="czech" i]`,
		`[data-lang="cs"], [data-lang="cz"], [data-lang="czech"]`,
		`button:has-text("CZ"), a:has-text("CZ")`,
		`button:has-text("CZSK"), a:has-text("CZSK")`,
		`button:has-text("Czech"), a:has-text("Czech")`,
		`button:has-text("Čeština"), a:has-text("Čeština")`,
		`button:has-text("Česky"), a:has-text("Česky")`,
	}

	czechStrict = []string{
		`li:has(img[alt*="cz" i]) a, li:has(img[alt*="cz" i]) button`,
		`img[alt*="cz" i], img[alt*="Czech" i]`,
		`[data-lang="cz"], [data-lang="cs"]`,
		`a:has-text("CZ"), button:has-text("CZ")`,
		`a:has-text("CZSK"), button:has-text("CZSK")`,
		`a:has-text("Čeština"), button:has-text("Čeština")`,
		`a:has-text("Czech"), button:has-text("Czech")`,
	}

	dubTabs = []string{
		".langCZ",
		"div.LangHeader.langCZ",
		".LangHeader.langCZ",
		`[class*="langCZ"]`,
		".cz-dabing",
		".dabing-cz",
	}

	dubItems = []string{
		".tabshe8 a.source_link",
		".tabshe8 [data-iframe]",
		".tabs a.source_link",
		"a.source_link",
		"[data-iframe]",
	}

	defaultItems = []string{
		"a.source_link",
		"[data-iframe]",
		`a[href*="/sources/"]`,
		"a[data-source]",
		".source-link",
	}

	subtitleLinks = `track, a[href$=".vtt"], a[href$=".srt"]`
)

// Item is one hoster candidate found on the episode page
type Item struct {
	Class string
	Raw   string
	Text  string
}

// EpisodeParser extracts hoster descriptors and subtitles from an episode page
type EpisodeParser struct {
	browser browser.Browser
	stats   *util.Stats
}

// NewEpisodeParser creates a parser using b for page loads
func NewEpisodeParser(b browser.Browser, stats *util.Stats) *EpisodeParser {
	if stats == nil {
		stats = util.NewStats()
	}
	return &EpisodeParser{browser: b, stats: stats}
}

// Parse loads epURL, switches to the Czech dub section when the site offers
// one and collects hoster descriptors. It never fails; problems yield an
// empty result.
func (p *EpisodeParser) Parse(ctx context.Context, epURL string, cookies []*http.Cookie) models.EpisodeData {
	var data models.EpisodeData
	err := util.Isolate(func() error {
		data = p.parse(ctx, epURL, cookies)
		return nil
	})
	if err != nil {
		util.Error("episode parse crashed", "url", epURL, "error", err)
		return models.EpisodeData{}
	}
	return data
}

func (p *EpisodeParser) parse(ctx context.Context, epURL string, cookies []*http.Cookie) models.EpisodeData {
	timer := p.stats.StartTimer("episode_parse")
	defer timer.StopAndLog()

	page, err := p.browser.NewPage(ctx, browser.ScrapeProfile(cookies, epURL))
	if err != nil {
		util.Warn("cannot open episode page", "error", err)
		return models.EpisodeData{}
	}
	defer func() { _ = page.Close() }()

	util.Info("parsing episode", "url", epURL)
	if err := page.Goto(epURL, browser.GotoOptions{Timeout: 20 * time.Second}); err != nil {
		util.Warn("episode page failed to load", "url", epURL, "error", err)
		return models.EpisodeData{}
	}

	clickCascade(page, czechLoose, time.Second, 500*time.Millisecond)
	page.Wait(300 * time.Millisecond)

	var data models.EpisodeData
	if openDubSection(page) {
		html, err := page.Content()
		if err == nil {
			data.Hosters = DubDescriptors(ParseItems(html, dubItems, true), epURL)
		}
		util.Debug("dub section parsed", "hosters", len(data.Hosters))
	}

	if len(data.Hosters) == 0 {
		util.Debug("falling back to default hoster list", "url", epURL)
		html, err := page.Content()
		if err != nil {
			util.Warn("cannot read episode page", "error", err)
			return models.EpisodeData{}
		}
		data.Hosters = DetectedDescriptors(ParseItems(html, defaultItems, false), epURL)
		data.Subtitles = ParseSubtitles(html, epURL)
	}

	data.Hosters = dedupHosters(data.Hosters)
	data.Subtitles = dedupSubtitles(data.Subtitles)
	util.Info("episode parsed", "hosters", len(data.Hosters), "subtitles", len(data.Subtitles))
	return data
}

// openDubSection clicks the first dub tab found and waits for its list
func openDubSection(page browser.Page) bool {
	tab, ok := util.FirstMatchOf(dubTabs, func(sel string) (bool, error) {
		return browser.ClickIfPresent(page, sel, 2*time.Second)
	})
	if !ok {
		util.Debug("no dub tab on page")
		return false
	}
	util.Debug("dub tab clicked", "selector", tab)
	page.Wait(2 * time.Second)
	if err := page.WaitForSelector(dubListReady, 5*time.Second); err != nil {
		util.Debug("dub list did not appear, continuing", "error", err)
	}
	return true
}

// clickCascade clicks the first matching selector group and pauses after it
func clickCascade(page browser.Page, selectors []string, timeout, settle time.Duration) bool {
	sel, ok := util.FirstMatchOf(selectors, func(sel string) (bool, error) {
		return browser.ClickIfPresent(page, sel, timeout)
	})
	if ok {
		util.Debug("clicked czech control", "selector", sel)
		page.Wait(settle)
	}
	return ok
}

// ParseItems scans html with selectors in order. With uniqueRaw set an item
// whose reference was already seen is skipped.
func ParseItems(html string, selectors []string, uniqueRaw bool) []Item {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}

	seen := make(map[string]struct{})
	var items []Item
	for _, sel := range selectors {
		doc.Find(sel).Each(func(_ int, s *goquery.Selection) {
			raw := firstAttr(s, "data-iframe", "data-source", "href")
			if uniqueRaw {
				if raw == "" {
					return
				}
				if _, ok := seen[raw]; ok {
					return
				}
				seen[raw] = struct{}{}
			}

			scope := s.Closest("li")
			if scope.Length() == 0 {
				scope = s.Parent()
			}
			items = append(items, Item{
				Class: strings.ToLower(s.AttrOr("class", "")),
				Raw:   raw,
				Text:  strings.TrimSpace(scope.Text()),
			})
		})
	}
	return items
}

func firstAttr(s *goquery.Selection, names ...string) string {
	for _, n := range names {
		if v, ok := s.Attr(n); ok && v != "" {
			return v
		}
	}
	return ""
}

// DubDescriptors converts dub-section items; the section decides the
// language regardless of what the item says
func DubDescriptors(items []Item, epURL string) []models.HosterDescriptor {
	return descriptors(items, epURL, func(Item, string) (string, bool) {
		return "cs", true
	})
}

// DetectedDescriptors converts default-section items, guessing language and
// dub from the surrounding text
func DetectedDescriptors(items []Item, epURL string) []models.HosterDescriptor {
	return descriptors(items, epURL, func(it Item, abs string) (string, bool) {
		lang, dub := DetectLangAndDub(it.Text, abs)
		if lang == "" {
			lang = "en"
		}
		return lang, dub
	})
}

func descriptors(items []Item, epURL string, label func(Item, string) (string, bool)) []models.HosterDescriptor {
	var out []models.HosterDescriptor
	for _, it := range items {
		kind, ok := KindOf(it.Class, it.Raw)
		if !ok {
			continue
		}
		abs, err := DecodeReference(it.Raw, epURL)
		if err != nil {
			util.Debug("skipping undecodable hoster reference", "error", err)
			continue
		}
		lang, dub := label(it, abs)
		out = append(out, models.HosterDescriptor{Kind: kind, URL: abs, Lang: lang, Dub: dub})
	}
	return out
}

// ParseSubtitles collects subtitle tracks and links, resolved against epURL
func ParseSubtitles(html, epURL string) []models.SubtitleTrack {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}
	var out []models.SubtitleTrack
	doc.Find(subtitleLinks).Each(func(_ int, s *goquery.Selection) {
		ref := firstAttr(s, "src", "href")
		if ref == "" {
			return
		}
		abs, err := resolveAgainst(epURL, ref)
		if err != nil {
			return
		}
		lang, label := SubtitleLanguage(abs)
		out = append(out, models.SubtitleTrack{URL: abs, Lang: lang, Label: label})
	})
	return out
}

func dedupHosters(in []models.HosterDescriptor) []models.HosterDescriptor {
	seen := make(map[string]struct{}, len(in))
	out := in[:0:0]
	for _, h := range in {
		if _, ok := seen[h.Key()]; ok {
			continue
		}
		seen[h.Key()] = struct{}{}
		out = append(out, h)
	}
	return out
}

func dedupSubtitles(in []models.SubtitleTrack) []models.SubtitleTrack {
	seen := make(map[string]struct{}, len(in))
	out := in[:0:0]
	for _, s := range in {
		if _, ok := seen[s.URL]; ok {
			continue
		}
		seen[s.URL] = struct{}{}
		out = append(out, s)
	}
	return out
}
