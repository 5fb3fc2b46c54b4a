// Package catalog maps catalog ids to titles and titles to site slugs
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/pkg/errors"

	"github.com/alvarorichard/svetserialu/internal/util"
)

var (
	ErrTitleNotFound = errors.New("title not found")
	ErrSlugNotFound  = errors.New("slug not found")
)

// contentLinks matches anchors pointing at series pages
const contentLinks = `a[href*="/serial/"], a[href*="/content/"]`

var (
	slugPattern     = regexp.MustCompile(`(?i)/(?:serial|content)/([^/?#]+)`)
	titleYearSuffix = regexp.MustCompile(`\s*\(\d{4}\)\s*-.*$`)
	titleSiteSuffix = regexp.MustCompile(`\s*-\s*IMDb\s*$`)
)

// Resolver looks titles up on the metadata site and slugs on the content site
type Resolver struct {
	client       *http.Client
	siteBase     string
	metadataBase string
}

// NewResolver creates a resolver. client carries the site session cookies.
func NewResolver(client *http.Client, siteBase, metadataBase string) *Resolver {
	return &Resolver{
		client:       client,
		siteBase:     strings.TrimRight(siteBase, "/"),
		metadataBase: strings.TrimRight(metadataBase, "/"),
	}
}

// ResolveTitle returns the canonical title for an IMDb id
func (r *Resolver) ResolveTitle(ctx context.Context, imdbID string) (string, error) {
	doc, err := r.get(ctx, fmt.Sprintf("%s/title/%s/", r.metadataBase, imdbID), r.metadataBase+"/")
	if err != nil {
		return "", err
	}
	if title := TitleFromDocument(doc); title != "" {
		return title, nil
	}
	return "", errors.Wrap(ErrTitleNotFound, imdbID)
}

// TitleFromDocument prefers the structured data name over the page title
func TitleFromDocument(doc *goquery.Document) string {
	var name string
	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		var ld struct {
			Name string `json:"name"`
		}
		if err := json.Unmarshal([]byte(s.Text()), &ld); err != nil {
			util.Debug("skipping unparsable ld+json block", "error", err)
			return true
		}
		name = strings.TrimSpace(ld.Name)
		return name == ""
	})
	if name != "" {
		return name
	}

	title := strings.TrimSpace(doc.Find("title").First().Text())
	title = titleYearSuffix.ReplaceAllString(title, "")
	title = titleSiteSuffix.ReplaceAllString(title, "")
	return strings.TrimSpace(title)
}

// SearchResult is one content link from the site search
type SearchResult struct {
	Slug string
	Text string
}

// ResolveSlug searches the site and picks the best matching slug
func (r *Resolver) ResolveSlug(ctx context.Context, title string) (string, error) {
	searchURL := fmt.Sprintf("%s/?searchfor=%s", r.siteBase, url.QueryEscape(title))
	doc, err := r.get(ctx, searchURL, r.siteBase)
	if err != nil {
		return "", err
	}
	slug, ok := PickSlug(title, SearchResults(doc))
	if !ok {
		return "", errors.Wrap(ErrSlugNotFound, title)
	}
	return slug, nil
}

// SearchResults extracts content links in document order
func SearchResults(doc *goquery.Document) []SearchResult {
	var out []SearchResult
	doc.Find(contentLinks).Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		m := slugPattern.FindStringSubmatch(href)
		if m == nil {
			return
		}
		out = append(out, SearchResult{Slug: m[1], Text: strings.TrimSpace(a.Text())})
	})
	return out
}

// PickSlug prefers an exact case-insensitive text match, then the first
// substring match in either direction, then the first result
func PickSlug(title string, results []SearchResult) (string, bool) {
	if len(results) == 0 {
		return "", false
	}
	want := strings.ToLower(strings.TrimSpace(title))

	partial := ""
	for _, res := range results {
		got := strings.ToLower(res.Text)
		if got == "" {
			continue
		}
		if got == want {
			return res.Slug, true
		}
		if partial == "" && want != "" && (strings.Contains(got, want) || strings.Contains(want, got)) {
			partial = res.Slug
		}
	}
	if partial != "" {
		return partial, true
	}
	return results[0].Slug, true
}

// EpisodeURL builds the episode page address
func (r *Resolver) EpisodeURL(slug string, season, episode int) string {
	return EpisodeURL(r.siteBase, slug, season, episode)
}

// EpisodeURL builds {base}/serial/{slug}/sXXeYY
func EpisodeURL(base, slug string, season, episode int) string {
	return fmt.Sprintf("%s/serial/%s/s%02de%02d", strings.TrimRight(base, "/"), slug, season, episode)
}

func (r *Resolver) get(ctx context.Context, target, referer string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create request")
	}
	util.DecorateRequest(req, referer)

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "GET %s failed", target)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, errors.Errorf("GET %s returned %s", target, resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse HTML")
	}
	return doc, nil
}
