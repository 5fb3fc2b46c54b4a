// Package browser owns the shared headless chromium instance and hands out
// isolated, fingerprint-patched pages.
package browser

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/playwright-community/playwright-go"

	"github.com/alvarorichard/svetserialu/internal/util"
)

// Options configures the chromium launch
type Options struct {
	Headless       bool
	ExecutablePath string
}

// Manager lazily launches one chromium process and reuses it for the
// lifetime of the process. Close must run before exit.
type Manager struct {
	opts Options

	mu      sync.Mutex
	pw      *playwright.Playwright
	browser playwright.Browser
	closed  bool
}

// NewManager creates a manager; nothing is launched until first use
func NewManager(opts Options) *Manager {
	return &Manager{opts: opts}
}

// Acquire returns the shared browser, starting it on first call.
// A launch failure is fatal for the pipeline and is returned as is.
func (m *Manager) Acquire(ctx context.Context) (playwright.Browser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, ErrClosed
	}
	if m.browser != nil && m.browser.IsConnected() {
		return m.browser, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if m.pw == nil {
		util.Info("Starting playwright driver")
		pw, err := playwright.Run()
		if err != nil {
			return nil, errors.Wrap(err, "failed to start playwright")
		}
		m.pw = pw
	}

	launch := playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(m.opts.Headless),
		Args:     launchArgs,
	}
	if m.opts.ExecutablePath != "" {
		launch.ExecutablePath = playwright.String(m.opts.ExecutablePath)
	}

	util.Info("Launching stealth browser", "headless", m.opts.Headless, "executable", m.opts.ExecutablePath)
	b, err := m.pw.Chromium.Launch(launch)
	if err != nil {
		return nil, errors.Wrap(err, "failed to launch chromium")
	}
	m.browser = b
	util.Info("Stealth browser ready")
	return b, nil
}

// NewPage opens a fresh browsing context configured from profile
func (m *Manager) NewPage(ctx context.Context, profile Profile) (Page, error) {
	b, err := m.Acquire(ctx)
	if err != nil {
		return nil, err
	}

	opts := playwright.BrowserNewContextOptions{
		UserAgent:      playwright.String(profile.UserAgent),
		Viewport:       &playwright.Size{Width: profile.Viewport.Width, Height: profile.Viewport.Height},
		ServiceWorkers: playwright.ServiceWorkerPolicyBlock,
	}
	if profile.Locale != "" {
		opts.Locale = playwright.String(profile.Locale)
	}
	if len(profile.ExtraHeaders) > 0 {
		opts.ExtraHttpHeaders = profile.ExtraHeaders
	}

	bctx, err := b.NewContext(opts)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create browser context")
	}

	if profile.Stealth {
		if err := bctx.AddInitScript(playwright.Script{Content: playwright.String(stealthScript)}); err != nil {
			_ = bctx.Close()
			return nil, errors.Wrap(err, "failed to install stealth script")
		}
	}
	if err := bctx.AddInitScript(playwright.Script{Content: playwright.String(muteScript)}); err != nil {
		util.Debug("mute script not installed", "error", err)
	}

	if cookies := toPlaywrightCookies(profile.Cookies, profile.CookieURL); len(cookies) > 0 {
		if err := bctx.AddCookies(cookies); err != nil {
			util.Debug("seeding cookies failed", "error", err)
		}
	}

	page, err := bctx.NewPage()
	if err != nil {
		_ = bctx.Close()
		return nil, errors.Wrap(err, "failed to open page")
	}

	return &pwPage{ctx: bctx, page: page}, nil
}

// Close releases the browser and the driver. It is safe to call twice.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}
	m.closed = true

	var firstErr error
	if m.browser != nil {
		if err := m.browser.Close(); err != nil {
			firstErr = errors.Wrap(err, "failed to close browser")
		}
		m.browser = nil
	}
	if m.pw != nil {
		if err := m.pw.Stop(); err != nil && firstErr == nil {
			firstErr = errors.Wrap(err, "failed to stop playwright")
		}
		m.pw = nil
	}
	util.Info("Stealth browser closed")
	return firstErr
}

// Running reports whether chromium has been started and is connected
func (m *Manager) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.browser != nil && m.browser.IsConnected()
}

func toPlaywrightCookies(cookies []*http.Cookie, fallbackURL string) []playwright.OptionalCookie {
	out := make([]playwright.OptionalCookie, 0, len(cookies))
	for _, c := range cookies {
		if c == nil || c.Name == "" {
			continue
		}
		oc := playwright.OptionalCookie{
			Name:     c.Name,
			Value:    c.Value,
			HttpOnly: playwright.Bool(c.HttpOnly),
			Secure:   playwright.Bool(c.Secure),
		}
		if c.Domain != "" {
			oc.Domain = playwright.String(c.Domain)
			path := c.Path
			if path == "" {
				path = "/"
			}
			oc.Path = playwright.String(path)
		} else if fallbackURL != "" {
			oc.URL = playwright.String(fallbackURL)
		} else {
			continue
		}
		if !c.Expires.IsZero() {
			oc.Expires = playwright.Float(float64(c.Expires.Unix()))
		}
		out = append(out, oc)
	}
	return out
}

func fromPlaywrightCookies(cookies []playwright.Cookie) []*http.Cookie {
	out := make([]*http.Cookie, 0, len(cookies))
	for _, c := range cookies {
		hc := &http.Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			HttpOnly: c.HttpOnly,
			Secure:   c.Secure,
		}
		if c.Expires > 0 {
			hc.Expires = time.Unix(int64(c.Expires), 0)
		}
		out = append(out, hc)
	}
	return out
}
