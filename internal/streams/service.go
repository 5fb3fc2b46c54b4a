package streams

import (
	"context"
	"net/http"
	"regexp"
	"strconv"
	"time"

	"github.com/pkg/errors"

	"github.com/alvarorichard/svetserialu/internal/metrics"
	"github.com/alvarorichard/svetserialu/internal/models"
	"github.com/alvarorichard/svetserialu/internal/util"
)

// SeriesType is the only content type the addon serves
const SeriesType = "series"

var episodeIDPattern = regexp.MustCompile(`^(tt\d+):(\d+):(\d+)$`)

// ErrBadID is returned by ParseEpisodeID for malformed ids
var ErrBadID = errors.New("malformed episode id")

// ParseEpisodeID splits "tt123:1:2" into an episode reference
func ParseEpisodeID(id string) (models.EpisodeRef, error) {
	m := episodeIDPattern.FindStringSubmatch(id)
	if m == nil {
		return models.EpisodeRef{}, errors.Wrap(ErrBadID, id)
	}
	season, err := strconv.Atoi(m[2])
	if err != nil {
		return models.EpisodeRef{}, errors.Wrap(ErrBadID, id)
	}
	episode, err := strconv.Atoi(m[3])
	if err != nil {
		return models.EpisodeRef{}, errors.Wrap(ErrBadID, id)
	}
	return models.EpisodeRef{IMDBID: m[1], Season: season, Episode: episode}, nil
}

// Catalog maps ids to titles, titles to slugs and slugs to episode pages
type Catalog interface {
	ResolveTitle(ctx context.Context, imdbID string) (string, error)
	ResolveSlug(ctx context.Context, title string) (string, error)
	EpisodeURL(slug string, season, episode int) string
}

// Session establishes the site login and exports its cookies
type Session interface {
	Login(ctx context.Context) bool
}

// CookieSource hands out session cookies in browser form
type CookieSource interface {
	BrowserCookies(rawURL string) []*http.Cookie
}

// EpisodeParser extracts hosters and subtitles from an episode page
type EpisodeParser interface {
	Parse(ctx context.Context, epURL string, cookies []*http.Cookie) models.EpisodeData
}

// HosterResolver turns one hoster embed into media sources
type HosterResolver interface {
	Resolve(ctx context.Context, d models.HosterDescriptor, referer string, cookies []*http.Cookie) []models.MediaSource
}

// Prober estimates a source resolution
type Prober interface {
	Probe(ctx context.Context, src models.MediaSource) string
}

// ResultCache stores finished stream lists per episode
type ResultCache interface {
	Get(key string) ([]models.StreamRecord, bool)
	Set(key string, records []models.StreamRecord) bool
}

// Deps are the collaborators of a Service
type Deps struct {
	Catalog   Catalog
	Session   Session
	Cookies   CookieSource
	Parser    EpisodeParser
	Hosters   HosterResolver
	Prober    Prober
	Cache     ResultCache
	Metrics   *metrics.Metrics
	Stats     *util.Stats
	SiteBase  string
	ProxyBase string
	// LoginSettle is the pause after login before the first site request
	LoginSettle time.Duration
}

// Service answers stream requests for one episode at a time
type Service struct {
	d Deps
}

// NewService wires the pipeline. Metrics may be nil.
func NewService(d Deps) *Service {
	if d.Stats == nil {
		d.Stats = util.NewStats()
	}
	return &Service{d: d}
}

// Streams returns the playable streams for a catalog id. Any failure
// yields an empty list; nothing is returned as an error.
func (s *Service) Streams(ctx context.Context, typ, id string) []models.StreamRecord {
	s.d.Stats.Inc(util.CounterStreamRequests)

	if typ != SeriesType {
		util.Debug("ignoring non-series request", "type", typ, "id", id)
		s.outcome(metrics.OutcomeInvalid)
		return []models.StreamRecord{}
	}
	ref, err := ParseEpisodeID(id)
	if err != nil {
		util.Warn("Bad id format", "id", id)
		s.outcome(metrics.OutcomeInvalid)
		return []models.StreamRecord{}
	}

	key := ref.CacheKey()
	if cached, ok := s.d.Cache.Get(key); ok {
		util.Info("Returning cached streams", "episode", ref, "count", len(cached))
		s.d.Stats.Inc(util.CounterCacheHits)
		s.outcome(metrics.OutcomeCached)
		s.served(len(cached))
		return cached
	}

	util.Info("Processing episode", "episode", ref)
	timer := s.d.Stats.StartTimer("resolve_episode")
	started := time.Now()

	records := s.resolve(ctx, ref)

	timer.StopAndLog()
	if s.d.Metrics != nil {
		s.d.Metrics.ResolveDuration.Observe(time.Since(started).Seconds())
	}

	if len(records) == 0 {
		s.outcome(metrics.OutcomeEmpty)
		return []models.StreamRecord{}
	}
	s.d.Cache.Set(key, records)
	s.outcome(metrics.OutcomeResolved)
	s.served(len(records))
	util.Info("Returning streams", "episode", ref, "count", len(records))
	return records
}

func (s *Service) resolve(ctx context.Context, ref models.EpisodeRef) []models.StreamRecord {
	if !s.d.Session.Login(ctx) {
		util.Warn("Continuing without a confirmed login")
	}
	util.Sleep(ctx, s.d.LoginSettle)
	if ctx.Err() != nil {
		return nil
	}

	title, err := s.d.Catalog.ResolveTitle(ctx, ref.IMDBID)
	if err != nil {
		util.Warn("Title not found", "imdb", ref.IMDBID, "error", err)
		return nil
	}
	slug, err := s.d.Catalog.ResolveSlug(ctx, title)
	if err != nil {
		util.Warn("Slug not found", "title", title, "error", err)
		return nil
	}

	epURL := s.d.Catalog.EpisodeURL(slug, ref.Season, ref.Episode)
	util.Info("Getting streams", "slug", slug, "season", ref.Season, "episode", ref.Episode)
	cookies := s.d.Cookies.BrowserCookies(s.d.SiteBase)

	data := s.d.Parser.Parse(ctx, epURL, cookies)
	if data.Empty() {
		util.Warn("No hosters on episode page", "url", epURL)
		return nil
	}
	hosters := SortHosters(data.Hosters)
	util.Info("Found hosters", "count", len(hosters), "subtitles", len(data.Subtitles))

	var records []models.StreamRecord
	for _, h := range hosters {
		if ctx.Err() != nil {
			break
		}
		if h.Kind == models.HosterFileMoon && !h.IsCzechDub() {
			util.Debug("Skipping FileMoon outside the Czech dub section", "url", h.URL)
			continue
		}

		err := util.Isolate(func() error {
			got := s.hoster(ctx, slug, epURL, h, data.Subtitles, cookies)
			records = append(records, got...)
			return nil
		})
		if err != nil {
			s.d.Stats.Inc(util.CounterHosterFailures)
			s.hosterResult(h.Kind, "error")
			util.Error("Hoster processing failed", "kind", h.Kind, "error", err)
		}
	}

	unique := Dedup(records)
	valid := Validate(unique)
	util.Debug("Aggregated streams", "raw", len(records), "unique", len(unique), "valid", len(valid))
	return valid
}

func (s *Service) hoster(ctx context.Context, slug, epURL string, h models.HosterDescriptor, subs []models.SubtitleTrack, cookies []*http.Cookie) []models.StreamRecord {
	util.Info("Processing hoster", "kind", h.Kind, "dub", h.Dub, "lang", h.Lang)

	sources := s.d.Hosters.Resolve(ctx, h, epURL, cookies)
	if len(sources) == 0 {
		s.hosterResult(h.Kind, "empty")
		return nil
	}
	s.hosterResult(h.Kind, "ok")

	var out []models.StreamRecord
	for _, src := range sources {
		if Rejected(src.URL) {
			util.Debug("Skipping placeholder source", "url", util.Truncate(src.URL, 50))
			continue
		}
		verdict := Classify(h, src)
		rec := BuildRecord(RecordInput{
			Slug:       slug,
			Hoster:     h,
			Source:     src,
			Verdict:    verdict,
			Resolution: s.d.Prober.Probe(ctx, src),
			Subtitles:  subs,
			ProxyBase:  s.d.ProxyBase,
		})
		util.Debug("Added stream", "name", rec.Name, "quality", rec.Quality)
		out = append(out, rec)
	}
	return out
}

func (s *Service) outcome(o string) {
	if s.d.Metrics != nil {
		s.d.Metrics.StreamRequests.WithLabelValues(o).Inc()
	}
}

func (s *Service) served(n int) {
	s.d.Stats.Add(util.CounterStreamsServed, int64(n))
	if s.d.Metrics != nil {
		s.d.Metrics.StreamsReturned.Add(float64(n))
	}
}

func (s *Service) hosterResult(kind models.HosterKind, result string) {
	if s.d.Metrics != nil {
		s.d.Metrics.HosterResults.WithLabelValues(string(kind), result).Inc()
	}
}
