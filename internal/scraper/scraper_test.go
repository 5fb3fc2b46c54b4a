package scraper

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alvarorichard/svetserialu/internal/models"
)

func TestNormalizeText(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "cesky dabing", NormalizeText("Český Dabing"))
	assert.Equal(t, "cestina", NormalizeText("ČEŠTINA"))
}

func TestDetectLangAndDub(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		text string
		url  string
		lang string
		dub  bool
	}{
		{"czech dub text", "Voe – Český dabing", "https://x.io/a", "cs", true},
		{"czsk word", "CZSK titulky", "https://x.io/a", "cs", false},
		{"english text", "English original", "https://x.io/a", "en", false},
		{"anglicky with diacritics", "Anglický zvuk", "https://x.io/a", "en", false},
		{"url hints czech", "Voe", "https://x.io/cz/1", "cs", false},
		{"url hints dub", "Voe", "https://x.io/dabing/1", "", true},
		{"nothing", "Voe", "https://x.io/a", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lang, dub := DetectLangAndDub(tt.text, tt.url)
			assert.Equal(t, tt.lang, lang)
			assert.Equal(t, tt.dub, dub)
		})
	}
}

func TestSubtitleLanguage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		url, lang, label string
	}{
		{"https://x.io/subs/ep1.en.vtt", "en", "English"},
		{"https://x.io/subs/ep1-en-full.srt", "en", "English"},
		{"https://x.io/en/ep1.vtt", "en", "English"},
		{"https://x.io/subs/ep1.vtt", "cs", "Čeština"},
		{"https://x.io/subs/ep1.vtt?lang=en", "cs", "Čeština"},
	}
	for _, tt := range tests {
		lang, label := SubtitleLanguage(tt.url)
		assert.Equal(t, tt.lang, lang, tt.url)
		assert.Equal(t, tt.label, label, tt.url)
	}
}

func TestKindOf(t *testing.T) {
	t.Parallel()

	k, ok := KindOf("source_link filemoon", "")
	require.True(t, ok)
	assert.Equal(t, models.HosterFileMoon, k)

	k, ok = KindOf("source_link voe", "abc")
	require.True(t, ok)
	assert.Equal(t, models.HosterVoe, k)

	k, ok = KindOf("", "https://voe.sx/e/123")
	require.True(t, ok)
	assert.Equal(t, models.HosterVoe, k)

	_, ok = KindOf("source_link voeplus", "https://streamtape.com/x")
	assert.False(t, ok)
}

func TestDecodeReference(t *testing.T) {
	t.Parallel()

	ep := "https://svetserialu.io/serial/dark/s01e01"
	encoded := base64.StdEncoding.EncodeToString([]byte("/sources/voe/123"))

	got, err := DecodeReference(encoded, ep)
	require.NoError(t, err)
	assert.Equal(t, "https://svetserialu.io/sources/voe/123", got)

	got, err = DecodeReference("https://voe.sx/e/abc", ep)
	require.NoError(t, err)
	assert.Equal(t, "https://voe.sx/e/abc", got)

	got, err = DecodeReference("/sources/voe/9", ep)
	require.NoError(t, err)
	assert.Equal(t, "https://svetserialu.io/sources/voe/9", got)

	_, err = DecodeReference("%%%not-base64%%%", ep)
	assert.Error(t, err)

	_, err = DecodeReference("", ep)
	assert.Error(t, err)
}

func TestExtractFromHTML(t *testing.T) {
	t.Parallel()

	page := `
	<video src="https://cdn.test/direct.mp4"><source src="https://cdn.test/master.m3u8?t=1&amp;e=2"></video>
	<script>
		player.setup({sources: [{"file":"https://cdn.test/config.m3u8"},{"src":"https://cdn.test/alt.webm"}]});
		var backup = 'https://cdn.test/backup.mkv?x=1';
	</script>`

	urls := ExtractFromHTML(page)
	assert.Equal(t, []string{
		"https://cdn.test/master.m3u8?t=1&e=2",
		"https://cdn.test/direct.mp4",
		"https://cdn.test/config.m3u8",
		"https://cdn.test/alt.webm",
		"https://cdn.test/backup.mkv?x=1",
	}, urls)
}

func TestSanitizeURL(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "https://a.test/x.m3u8", SanitizeURL(" [https://a.test/x.m3u8] "))
	assert.Equal(t, "https://a.test/x.mp4", SanitizeURL("[video](https://a.test/x.mp4)"))
	assert.Equal(t, "https://a.test/?a=1&b=2", SanitizeURL("https://a.test/?a=1&amp;b=2"))
}

func TestCaptureSetKeepsFirstSeenOrder(t *testing.T) {
	t.Parallel()

	c := NewCaptureSet()
	assert.True(t, c.Add("https://cdn.test/b.m3u8"))
	assert.False(t, c.Add("https://cdn.test/page.html"))
	assert.True(t, c.Add("https://cdn.test/a.mp4?sig=1"))
	assert.False(t, c.Add("https://cdn.test/b.m3u8"))

	assert.Equal(t, []string{"https://cdn.test/b.m3u8", "https://cdn.test/a.mp4?sig=1"}, c.URLs())
	select {
	case <-c.Notify():
	default:
		t.Fatal("expected a capture notification")
	}
}

func TestBuildSources(t *testing.T) {
	t.Parallel()

	got := BuildSources(
		[]string{"https://cdn.test/a.m3u8", "https://cdn.test/b.mp4"},
		[]string{"https://cdn.test/a.m3u8", "blob:https://x", "https://cdn.test/c.WEBM"},
	)
	assert.Equal(t, []models.MediaSource{
		{URL: "https://cdn.test/a.m3u8", Type: models.SourceHLS},
		{URL: "https://cdn.test/b.mp4", Type: models.SourceFile},
		{URL: "https://cdn.test/c.WEBM", Type: models.SourceFile},
	}, got)
}

func TestParseItemsAndDescriptors(t *testing.T) {
	t.Parallel()

	ep := "https://svetserialu.io/serial/dark/s01e01"
	voeRef := base64.StdEncoding.EncodeToString([]byte("/sources/voe/1"))
	html := `
	<ul>
		<li>English original <a class="source_link voe" data-iframe="` + voeRef + `">Voe</a></li>
		<li>CZ dabing <a class="source_link filemoon" href="https://filemoon.sx/e/2">FileMoon</a></li>
		<li>Other <a class="source_link" href="https://streamtape.com/e/3">Tape</a></li>
	</ul>`

	items := ParseItems(html, defaultItems, false)
	require.Len(t, items, 4)
	assert.Equal(t, voeRef, items[0].Raw)
	assert.Contains(t, items[0].Text, "English original")

	detected := dedupHosters(DetectedDescriptors(items, ep))
	require.Len(t, detected, 2)
	assert.Equal(t, models.HosterDescriptor{Kind: models.HosterVoe, URL: "https://svetserialu.io/sources/voe/1", Lang: "en"}, detected[0])
	assert.Equal(t, models.HosterDescriptor{Kind: models.HosterFileMoon, URL: "https://filemoon.sx/e/2", Lang: "cs", Dub: true}, detected[1])

	forced := DubDescriptors(items, ep)
	require.Len(t, forced, 3)
	for _, d := range forced {
		assert.True(t, d.IsCzechDub())
	}
}

func TestParseItemsUniqueRaw(t *testing.T) {
	t.Parallel()

	html := `<div class="tabshe8"><ul class="tabs"><li><a class="source_link voe" href="https://voe.sx/e/1">Voe</a></li></ul></div>`
	items := ParseItems(html, dubItems, true)
	assert.Len(t, items, 1)
	assert.Len(t, ParseItems(html, dubItems, false), 3)
}

func TestParseSubtitles(t *testing.T) {
	t.Parallel()

	html := `<video><track src="/subs/ep1.en.vtt"></video><a href="https://svetserialu.io/subs/ep1.srt">CZ</a>`
	subs := ParseSubtitles(html, "https://svetserialu.io/serial/dark/s01e01")
	assert.Equal(t, []models.SubtitleTrack{
		{URL: "https://svetserialu.io/subs/ep1.en.vtt", Lang: "en", Label: "English"},
		{URL: "https://svetserialu.io/subs/ep1.srt", Lang: "cs", Label: "Čeština"},
	}, subs)
}

func TestFirstIframe(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "https://voe.sx/e/1", FirstIframe(`<iframe src=" https://voe.sx/e/1 "></iframe><iframe src="x"></iframe>`))
	assert.Empty(t, FirstIframe(`<p>none</p>`))
}
