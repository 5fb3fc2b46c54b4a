package session

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alvarorichard/svetserialu/internal/browser/browsertest"
)

var testCreds = Credentials{Identity: "user@example.org", Secret: "s3cret"}

func newStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore()
	require.NoError(t, err)
	return s
}

func TestFillFormDetectsFields(t *testing.T) {
	t.Parallel()

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(`
		<form action="/user/login">
			<input type="hidden" name="_token" value="abc">
			<input type="text" name="username_or_mail">
			<input type="password" name="heslo">
			<input type="checkbox" name="remember" value="1">
			<input type="submit" value="Login">
		</form>`))
	require.NoError(t, err)

	values := FillForm(doc.Find("form"), testCreds)
	assert.Equal(t, "abc", values.Get("_token"))
	assert.Equal(t, testCreds.Identity, values.Get("username_or_mail"))
	assert.Equal(t, testCreds.Secret, values.Get("heslo"))
	assert.Equal(t, "1", values.Get("remember"))
	assert.Empty(t, values.Get("email"))
	assert.Empty(t, values.Get("password"))
}

func TestFillFormAddsMissingFields(t *testing.T) {
	t.Parallel()

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(`<form><input name="csrf" value="x"></form>`))
	require.NoError(t, err)

	values := FillForm(doc.Find("form"), testCreds)
	assert.Equal(t, "x", values.Get("csrf"))
	assert.Equal(t, testCreds.Identity, values.Get("email"))
	assert.Equal(t, testCreds.Secret, values.Get("password"))
}

func TestFieldHeuristics(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name, typ        string
		identity, secret bool
	}{
		{"email", "text", true, false},
		{"Login", "text", true, false},
		{"user_name", "text", true, false},
		{"login_name", "text", true, false},
		{"LoginId", "text", true, false},
		{"pass", "text", false, true},
		{"pwd", "password", false, true},
		{"remember", "checkbox", false, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.identity, IsIdentityField(tt.name), tt.name)
		assert.Equal(t, tt.secret, IsSecretField(tt.name, tt.typ), tt.name)
	}
}

func loginServer(t *testing.T, status int, loggedInHome bool, posted *url.Values) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/user/login", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			http.SetCookie(w, &http.Cookie{Name: "PHPSESSID", Value: "pre", Path: "/"})
			_, _ = io.WriteString(w, `<form action="/user/login/submit"><input name="email"><input type="password" name="password"></form>`)
			return
		}
		t.Errorf("unexpected %s on /user/login", r.Method)
	})
	mux.HandleFunc("/user/login/submit", func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		*posted = r.PostForm
		if c, err := r.Cookie("PHPSESSID"); err != nil || c.Value != "pre" {
			t.Errorf("session cookie not sent with login post")
		}
		http.SetCookie(w, &http.Cookie{Name: "auth", Value: "ok", Path: "/"})
		if status == http.StatusFound {
			http.Redirect(w, r, "/", http.StatusFound)
			return
		}
		w.WriteHeader(status)
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if loggedInHome {
			_, _ = io.WriteString(w, `<div class="user_actions"><a href="/odhlasit">Odhlásit</a></div>`)
			return
		}
		_, _ = io.WriteString(w, `<a href="/user/login">Přihlásit</a>`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestFormLoginAcceptsRedirect(t *testing.T) {
	t.Parallel()

	var posted url.Values
	srv := loginServer(t, http.StatusFound, true, &posted)
	store := newStore(t)

	ok := NewFormLogin(srv.URL, testCreds, store).Login(context.Background())
	require.True(t, ok)
	assert.Equal(t, testCreds.Identity, posted.Get("email"))
	assert.Equal(t, testCreds.Secret, posted.Get("password"))

	var names []string
	for _, c := range store.Cookies(srv.URL) {
		names = append(names, c.Name)
	}
	assert.Contains(t, names, "auth")
}

func TestFormLoginUnverifiedStillSucceeds(t *testing.T) {
	t.Parallel()

	var posted url.Values
	srv := loginServer(t, http.StatusOK, false, &posted)
	assert.True(t, NewFormLogin(srv.URL, testCreds, newStore(t)).Login(context.Background()))
}

func TestFormLoginRejectsUnexpectedStatus(t *testing.T) {
	t.Parallel()

	var posted url.Values
	srv := loginServer(t, http.StatusForbidden, true, &posted)
	assert.False(t, NewFormLogin(srv.URL, testCreds, newStore(t)).Login(context.Background()))
}

func TestFormLoginWithoutForm(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `<p>maintenance</p>`)
	}))
	defer srv.Close()

	assert.False(t, NewFormLogin(srv.URL, testCreds, newStore(t)).Login(context.Background()))
}

func TestStoreImportAndExport(t *testing.T) {
	t.Parallel()

	store := newStore(t)
	n := store.Import("https://svetserialu.io", []*http.Cookie{
		{Name: "sid", Value: "1"},
		{Name: ""},
		nil,
	})
	assert.Equal(t, 1, n)

	out := store.BrowserCookies("https://svetserialu.io/serial/x")
	require.Len(t, out, 1)
	assert.Equal(t, "sid", out[0].Name)
	assert.Equal(t, "svetserialu.io", out[0].Domain)
	assert.True(t, out[0].Secure)
}

func noPause(context.Context, time.Duration, time.Duration) {}

func TestBrowserLoginCopiesCookies(t *testing.T) {
	t.Parallel()

	base := "https://svetserialu.test"
	fake := browsertest.New(map[string]*browsertest.PageScript{
		base: {HTML: `<a href="/user/login">Přihlásit</a>`},
		base + "/user/login": {
			HTML: `<form><input type="email" name="email"><input type="password" name="password"><button type="submit">Přihlásit</button></form>`,
			OnClick: map[string]browsertest.Action{
				`button[type="submit"]`: {NavigateTo: base + "/profil"},
			},
		},
		base + "/profil": {
			HTML:    `<div class="user-actions"><a href="/logout">Odhlásit</a></div>`,
			Cookies: []*http.Cookie{{Name: "auth", Value: "ok", Domain: "svetserialu.test", Path: "/"}},
		},
	})

	store := newStore(t)
	l := NewBrowserLogin(base, testCreds, store, fake)
	l.Pause = noPause
	l.Keystroke = func() time.Duration { return 0 }

	require.True(t, l.Login(context.Background()))

	pages := fake.Opened()
	require.Len(t, pages, 1)
	page := pages[0]
	assert.Equal(t, []string{base, base + "/user/login", base + "/profil"}, page.Visited)
	assert.Equal(t, testCreds.Identity, page.Typed(`input[type="email"]`))
	assert.Equal(t, testCreds.Secret, page.Typed(`input[type="password"]`))
	assert.True(t, fake.AllClosed())

	cookies := store.Cookies(base)
	require.Len(t, cookies, 1)
	assert.Equal(t, "auth", cookies[0].Name)
}

func TestBrowserLoginEnterFallbackAndFailure(t *testing.T) {
	t.Parallel()

	base := "https://svetserialu.test"
	fake := browsertest.New(map[string]*browsertest.PageScript{
		base: {HTML: `<p>home</p>`},
		base + "/user/login": {
			HTML:    `<input name="login"><input name="pass">`,
			OnEnter: &browsertest.Action{HTML: `<p>Špatné heslo</p>`},
		},
	})

	l := NewBrowserLogin(base, testCreds, newStore(t), fake)
	l.Pause = noPause

	assert.False(t, l.Login(context.Background()))
	page := fake.Opened()[0]
	assert.Equal(t, []string{"Enter"}, page.Pressed)
	assert.True(t, fake.AllClosed())
}

type countingAuth struct {
	calls  atomic.Int32
	result bool
}

func (c *countingAuth) Login(context.Context) bool {
	c.calls.Add(1)
	return c.result
}

func TestBootstrapperWithoutCredentialsIsNoop(t *testing.T) {
	t.Parallel()

	auth := &countingAuth{result: true}
	b := NewBootstrapper(auth, false, time.Minute, nil)
	assert.False(t, b.Login(context.Background()))
	assert.Zero(t, auth.calls.Load())
}

func TestBootstrapperReusesFreshSession(t *testing.T) {
	t.Parallel()

	auth := &countingAuth{result: true}
	b := NewBootstrapper(auth, true, time.Hour, nil)
	assert.True(t, b.Login(context.Background()))
	assert.True(t, b.Login(context.Background()))
	assert.True(t, b.Login(context.Background()))
	assert.Equal(t, int32(1), auth.calls.Load())
}

func TestBootstrapperRetriesAfterFailure(t *testing.T) {
	t.Parallel()

	auth := &countingAuth{result: false}
	b := NewBootstrapper(auth, true, time.Hour, nil)
	assert.False(t, b.Login(context.Background()))
	assert.False(t, b.Login(context.Background()))
	assert.Equal(t, int32(2), auth.calls.Load())
}
