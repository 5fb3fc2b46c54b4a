package scraper

import (
	"context"
	"encoding/base64"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alvarorichard/svetserialu/internal/browser/browsertest"
	"github.com/alvarorichard/svetserialu/internal/models"
)

const epURL = "https://svetserialu.io/serial/dark/s01e01"

func encodeRef(path string) string {
	return base64.StdEncoding.EncodeToString([]byte(path))
}

func TestEpisodeParserPrefersDubSection(t *testing.T) {
	t.Parallel()

	dubList := `<div class="tabshe8"><ul class="tabs">
		<li>English <a class="source_link voe" data-iframe="` + encodeRef("/sources/voe/cz") + `">Voe</a></li>
		<li><a class="source_link filemoon" data-iframe="` + encodeRef("/sources/filemoon/cz") + `">FileMoon</a></li>
		<li><a class="source_link voe" data-iframe="` + encodeRef("/sources/voe/cz") + `">Voe again</a></li>
	</ul></div>`

	fake := browsertest.New(map[string]*browsertest.PageScript{
		epURL: {
			HTML: `<div class="LangHeader langCZ">CZ</div><ul><li>EN <a class="source_link voe" href="https://voe.sx/e/en">Voe</a></li></ul>`,
			OnClick: map[string]browsertest.Action{
				".langCZ": {HTML: dubList},
			},
		},
	})

	data := NewEpisodeParser(fake, nil).Parse(context.Background(), epURL, nil)
	require.Len(t, data.Hosters, 2)
	assert.Equal(t, models.HosterDescriptor{Kind: models.HosterVoe, URL: "https://svetserialu.io/sources/voe/cz", Lang: "cs", Dub: true}, data.Hosters[0])
	assert.Equal(t, models.HosterFileMoon, data.Hosters[1].Kind)
	assert.True(t, data.Hosters[1].IsCzechDub())
	assert.Empty(t, data.Subtitles)

	page := fake.Opened()[0]
	assert.Contains(t, page.Clicked, ".langCZ")
	assert.True(t, fake.AllClosed())
}

func TestEpisodeParserFallsBackWithoutDubTab(t *testing.T) {
	t.Parallel()

	fake := browsertest.New(map[string]*browsertest.PageScript{
		epURL: {
			HTML: `<ul>
				<li>English original <a class="source_link voe" href="https://voe.sx/e/en">Voe</a></li>
				<li>CZ titulky <a class="source_link voe" data-iframe="` + encodeRef("/sources/voe/cs") + `">Voe</a></li>
				<li>Nothing <a class="source_link" href="https://other.example/e/1">Other</a></li>
			</ul>
			<video><track src="/subs/dark-s01e01.vtt"><track src="/subs/dark-s01e01.vtt"></video>
			<a href="/subs/dark-s01e01.en.srt">EN</a>`,
		},
	})

	data := NewEpisodeParser(fake, nil).Parse(context.Background(), epURL, nil)
	require.Len(t, data.Hosters, 2)
	assert.Equal(t, models.HosterDescriptor{Kind: models.HosterVoe, URL: "https://voe.sx/e/en", Lang: "en"}, data.Hosters[0])
	assert.Equal(t, models.HosterDescriptor{Kind: models.HosterVoe, URL: "https://svetserialu.io/sources/voe/cs", Lang: "cs"}, data.Hosters[1])

	require.Len(t, data.Subtitles, 2)
	assert.Equal(t, "cs", data.Subtitles[0].Lang)
	assert.Equal(t, "en", data.Subtitles[1].Lang)
}

func TestEpisodeParserDubTabWithoutItemsFallsBack(t *testing.T) {
	t.Parallel()

	fake := browsertest.New(map[string]*browsertest.PageScript{
		epURL: {
			HTML: `<div class="cz-dabing">CZ</div><ul><li>EN <a href="/sources/voe/en">Voe</a></li></ul>`,
		},
	})

	data := NewEpisodeParser(fake, nil).Parse(context.Background(), epURL, nil)
	require.Len(t, data.Hosters, 1)
	assert.Equal(t, models.HosterDescriptor{Kind: models.HosterVoe, URL: "https://svetserialu.io/sources/voe/en", Lang: "en"}, data.Hosters[0])
}

func TestEpisodeParserNavigationFailure(t *testing.T) {
	t.Parallel()

	fake := browsertest.New(map[string]*browsertest.PageScript{
		epURL: {GotoErr: errors.New("timeout")},
	})

	data := NewEpisodeParser(fake, nil).Parse(context.Background(), epURL, nil)
	assert.True(t, data.Empty())
	assert.True(t, fake.AllClosed())

	fake.NewErr = errors.New("browser gone")
	assert.True(t, NewEpisodeParser(fake, nil).Parse(context.Background(), epURL, nil).Empty())
}

func hosterSite() *browsertest.Browser {
	return browsertest.New(map[string]*browsertest.PageScript{
		"https://svetserialu.io/sources/voe/1": {
			HTML: `<iframe src="https://voe.sx/e/abc"></iframe>`,
		},
		"https://voe.sx/e/abc": {
			HTML:      `<video></video><button class="vjs-big-play-button">Play</button>`,
			Responses: []string{"https://voe.sx/static/player.js"},
			OnClick: map[string]browsertest.Action{
				".vjs-big-play-button": {Requests: []string{
					"https://cdn.voe.test/hls/master.m3u8?t=1",
					"https://cdn.voe.test/thumb.jpg",
				}},
			},
			Evaluate: func(string) (interface{}, error) {
				return []interface{}{"https://cdn.voe.test/file_h.mp4", "https://cdn.voe.test/hls/master.m3u8?t=1"}, nil
			},
		},
	})
}

func TestHosterResolverCapturesMedia(t *testing.T) {
	t.Parallel()

	fake := hosterSite()
	r := NewHosterResolver(fake, nil, nil)
	r.MediaWait = 50 * time.Millisecond

	d := models.HosterDescriptor{Kind: models.HosterVoe, URL: "https://svetserialu.io/sources/voe/1", Lang: "cs", Dub: true}
	sources := r.Resolve(context.Background(), d, epURL, nil)

	require.Len(t, sources, 2)
	assert.Equal(t, models.MediaSource{
		URL:               "https://cdn.voe.test/hls/master.m3u8?t=1",
		Type:              models.SourceHLS,
		Name:              "Voe",
		Title:             "HLS • Voe",
		OriginalIframeURL: "https://voe.sx/e/abc",
	}, sources[0])
	assert.Equal(t, "https://cdn.voe.test/file_h.mp4", sources[1].URL)
	assert.Equal(t, models.SourceFile, sources[1].Type)
	assert.Equal(t, "MP4 • Voe", sources[1].Title)

	pages := fake.Opened()
	require.Len(t, pages, 2)
	assert.Equal(t, []string{"https://svetserialu.io/sources/voe/1", "https://voe.sx/e/abc"}, pages[0].Visited)
	assert.Equal(t, epURL, pages[0].Referers[0])
	assert.True(t, fake.AllClosed())
}

func TestHosterResolverDelayedResponse(t *testing.T) {
	t.Parallel()

	fake := browsertest.New(map[string]*browsertest.PageScript{
		"https://svetserialu.io/sources/voe/2": {
			HTML:    `<p>direct player</p>`,
			Delayed: []string{"https://cdn.voe.test/late/index.m3u8"},
		},
	})
	r := NewHosterResolver(fake, nil, nil)
	r.MediaWait = time.Second

	sources := r.Resolve(context.Background(), models.HosterDescriptor{Kind: models.HosterVoe, URL: "https://svetserialu.io/sources/voe/2"}, epURL, nil)
	require.Len(t, sources, 1)
	assert.Equal(t, "https://cdn.voe.test/late/index.m3u8", sources[0].URL)
	assert.Empty(t, sources[0].OriginalIframeURL)
}

func TestHosterResolverDisabledKind(t *testing.T) {
	t.Parallel()

	fake := hosterSite()
	r := NewHosterResolver(fake, []models.HosterKind{models.HosterFileMoon}, nil)

	assert.Nil(t, r.Resolve(context.Background(), models.HosterDescriptor{Kind: models.HosterFileMoon, URL: "https://filemoon.sx/e/1"}, epURL, nil))
	assert.Empty(t, fake.Opened())
}

func TestHosterResolverNothingFound(t *testing.T) {
	t.Parallel()

	fake := browsertest.New(map[string]*browsertest.PageScript{
		"https://svetserialu.io/sources/voe/3": {HTML: `<p>removed</p>`},
	})
	r := NewHosterResolver(fake, nil, nil)
	r.MediaWait = 20 * time.Millisecond

	assert.Empty(t, r.Resolve(context.Background(), models.HosterDescriptor{Kind: models.HosterVoe, URL: "https://svetserialu.io/sources/voe/3"}, epURL, nil))
	assert.Len(t, fake.Opened(), 1)
	assert.True(t, fake.AllClosed())
}

func TestHosterResolverNavigationError(t *testing.T) {
	t.Parallel()

	fake := browsertest.New(map[string]*browsertest.PageScript{
		"https://svetserialu.io/sources/voe/4": {GotoErr: errors.New("net::ERR_ABORTED")},
	})
	r := NewHosterResolver(fake, nil, nil)

	assert.Nil(t, r.Resolve(context.Background(), models.HosterDescriptor{Kind: models.HosterVoe, URL: "https://svetserialu.io/sources/voe/4"}, epURL, nil))
	assert.True(t, fake.AllClosed())
}
