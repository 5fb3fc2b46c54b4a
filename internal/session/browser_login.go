package session

import (
	"context"
	"strings"
	"time"

	"github.com/alvarorichard/svetserialu/internal/browser"
	"github.com/alvarorichard/svetserialu/internal/util"
)

var (
	identitySelectors = []string{
		`input[type="email"]`,
		`input[name*="mail" i]`,
		`input[name*="user" i]`,
		`input[name="login"]`,
		`input[id*="mail" i]`,
		`input[type="text"]`,
	}
	secretSelectors = []string{
		`input[type="password"]`,
		`input[name*="pass" i]`,
		`input[id*="pass" i]`,
	}
	submitSelectors = []string{
		`button[type="submit"]`,
		`input[type="submit"]`,
		`button:has-text("Přihlásit")`,
		`button:has-text("Login")`,
		`button:has-text("Sign in")`,
		`form button`,
	}
)

// BrowserLogin signs in through a stealth browser page and copies the
// resulting session cookies into the store
type BrowserLogin struct {
	baseURL string
	creds   Credentials
	store   *Store
	browser browser.Browser

	// Pause controls human-like pacing; tests replace it with a no-op
	Pause func(ctx context.Context, min, max time.Duration)
	// Keystroke returns the delay between typed characters
	Keystroke func() time.Duration
}

// NewBrowserLogin creates a browser-driven authenticator
func NewBrowserLogin(baseURL string, creds Credentials, store *Store, b browser.Browser) *BrowserLogin {
	return &BrowserLogin{
		baseURL: strings.TrimRight(baseURL, "/"),
		creds:   creds,
		store:   store,
		browser: b,
		Pause:   util.HumanDelay,
		Keystroke: func() time.Duration {
			return util.RandomDuration(50*time.Millisecond, 150*time.Millisecond)
		},
	}
}

// Login implements Authenticator
func (l *BrowserLogin) Login(ctx context.Context) bool {
	var ok bool
	err := util.Isolate(func() error {
		ok = l.login(ctx)
		return nil
	})
	if err != nil {
		util.Error("browser login crashed", "error", err)
		return false
	}
	return ok
}

func (l *BrowserLogin) login(ctx context.Context) bool {
	page, err := l.browser.NewPage(ctx, browser.StealthProfile())
	if err != nil {
		util.Warn("browser login: cannot open page", "error", err)
		return false
	}
	defer func() { _ = page.Close() }()

	if err := page.Goto(l.baseURL, browser.GotoOptions{Timeout: 30 * time.Second}); err != nil {
		util.Warn("browser login: home page failed", "error", err)
		return false
	}
	l.Pause(ctx, time.Second, 3*time.Second)

	loginURL := l.baseURL + "/user/login"
	if err := page.Goto(loginURL, browser.GotoOptions{Referer: l.baseURL, Timeout: 30 * time.Second}); err != nil {
		util.Warn("browser login: login page failed", "error", err)
		return false
	}
	l.Pause(ctx, 500*time.Millisecond, 1500*time.Millisecond)

	identity, found := util.FirstMatchOf(identitySelectors, page.Exists)
	if !found {
		util.Warn("browser login: identity field not found")
		return false
	}
	secret, found := util.FirstMatchOf(secretSelectors, page.Exists)
	if !found {
		util.Warn("browser login: password field not found")
		return false
	}

	if err := page.TypeText(identity, l.creds.Identity, l.Keystroke); err != nil {
		util.Warn("browser login: typing identity failed", "error", err)
		return false
	}
	l.Pause(ctx, 300*time.Millisecond, 800*time.Millisecond)
	if err := page.TypeText(secret, l.creds.Secret, l.Keystroke); err != nil {
		util.Warn("browser login: typing password failed", "error", err)
		return false
	}
	l.Pause(ctx, 300*time.Millisecond, 800*time.Millisecond)

	clicked := util.FirstMatch(probes(page, submitSelectors)...)
	if clicked < 0 {
		util.Debug("browser login: no submit control, pressing Enter")
		if err := page.Press("Enter"); err != nil {
			util.Warn("browser login: submit failed", "error", err)
			return false
		}
	}
	if err := page.WaitForNavigation(15 * time.Second); err != nil {
		util.Debug("browser login: navigation wait", "error", err)
	}

	if strings.Contains(page.URL(), "/login") {
		util.Warn("browser login: still on login page", "url", page.URL())
		return false
	}
	html, err := page.Content()
	if err != nil || !HasAuthMarkers(html) {
		util.Warn("browser login: no account markers after submit")
		return false
	}

	cookies, err := page.Cookies(l.baseURL)
	if err != nil {
		util.Warn("browser login: cannot read cookies", "error", err)
		return false
	}
	n := l.store.Import(l.baseURL, cookies)
	util.Info("login verified", "strategy", "browser", "cookies", n)
	return true
}

func probes(page browser.Page, selectors []string) []util.Probe {
	out := make([]util.Probe, len(selectors))
	for i, sel := range selectors {
		sel := sel
		out[i] = func() (bool, error) { return browser.ClickIfPresent(page, sel, 3*time.Second) }
	}
	return out
}
