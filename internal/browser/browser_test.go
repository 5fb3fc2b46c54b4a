package browser

import (
	"net/http"
	"testing"
	"time"

	"github.com/playwright-community/playwright-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToPlaywrightCookiesScopesByDomainOrURL(t *testing.T) {
	t.Parallel()

	expires := time.Unix(1900000000, 0)
	in := []*http.Cookie{
		{Name: "PHPSESSID", Value: "abc", Domain: ".svetserialu.io", HttpOnly: true, Expires: expires},
		{Name: "lang", Value: "cs"},
		{Name: ""},
		nil,
	}

	out := toPlaywrightCookies(in, "https://svetserialu.io/")
	require.Len(t, out, 2)

	assert.Equal(t, "PHPSESSID", out[0].Name)
	require.NotNil(t, out[0].Domain)
	assert.Equal(t, ".svetserialu.io", *out[0].Domain)
	assert.Equal(t, "/", *out[0].Path)
	assert.Nil(t, out[0].URL)
	assert.Equal(t, float64(expires.Unix()), *out[0].Expires)

	assert.Equal(t, "lang", out[1].Name)
	require.NotNil(t, out[1].URL)
	assert.Equal(t, "https://svetserialu.io/", *out[1].URL)
	assert.Nil(t, out[1].Expires)
}

func TestToPlaywrightCookiesDropsUnscopedWithoutURL(t *testing.T) {
	t.Parallel()

	out := toPlaywrightCookies([]*http.Cookie{{Name: "a", Value: "b"}}, "")
	assert.Empty(t, out)
}

func TestFromPlaywrightCookies(t *testing.T) {
	t.Parallel()

	out := fromPlaywrightCookies([]playwright.Cookie{
		{Name: "sid", Value: "1", Domain: "svetserialu.io", Path: "/", Expires: 1900000000, Secure: true},
		{Name: "session", Value: "2", Domain: "svetserialu.io", Path: "/", Expires: -1},
	})
	require.Len(t, out, 2)
	assert.Equal(t, "sid", out[0].Name)
	assert.True(t, out[0].Secure)
	assert.Equal(t, int64(1900000000), out[0].Expires.Unix())
	assert.True(t, out[1].Expires.IsZero())
}

func TestProfiles(t *testing.T) {
	t.Parallel()

	s := StealthProfile()
	assert.True(t, s.Stealth)
	assert.Equal(t, StealthUserAgent, s.UserAgent)
	assert.Equal(t, Viewport{Width: 1366, Height: 768}, s.Viewport)
	assert.Equal(t, "cs-CZ,cs;q=0.9,en;q=0.8", s.ExtraHeaders["Accept-Language"])

	c := []*http.Cookie{{Name: "x", Value: "y"}}
	p := ScrapeProfile(c, "https://svetserialu.io")
	assert.Equal(t, Viewport{Width: 1280, Height: 800}, p.Viewport)
	assert.Equal(t, c, p.Cookies)
	assert.Equal(t, "https://svetserialu.io", p.CookieURL)
}

func TestManagerCloseIsIdempotent(t *testing.T) {
	t.Parallel()

	m := NewManager(Options{Headless: true})
	assert.False(t, m.Running())
	require.NoError(t, m.Close())
	require.NoError(t, m.Close())

	_, err := m.Acquire(t.Context())
	assert.ErrorIs(t, err, ErrClosed)
}
