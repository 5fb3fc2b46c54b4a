package browser

import (
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/playwright-community/playwright-go"
)

// pwPage adapts a playwright page and its private context to Page
type pwPage struct {
	ctx  playwright.BrowserContext
	page playwright.Page
}

func ms(d time.Duration) *float64 {
	return playwright.Float(float64(d.Milliseconds()))
}

func (p *pwPage) Goto(url string, opts GotoOptions) error {
	o := playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
	}
	if opts.Timeout > 0 {
		o.Timeout = ms(opts.Timeout)
	}
	if opts.Referer != "" {
		o.Referer = playwright.String(opts.Referer)
	}
	if _, err := p.page.Goto(url, o); err != nil {
		return errors.Wrapf(err, "navigation to %s failed", url)
	}
	return nil
}

func (p *pwPage) Exists(selector string) (bool, error) {
	n, err := p.page.Locator(selector).Count()
	if err != nil {
		return false, errors.Wrapf(err, "invalid selector %q", selector)
	}
	return n > 0, nil
}

func (p *pwPage) Click(selector string, timeout time.Duration) error {
	loc := p.page.Locator(selector).First()
	n, err := loc.Count()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return loc.Click(playwright.LocatorClickOptions{Timeout: ms(timeout)})
}

func (p *pwPage) WaitForSelector(selector string, timeout time.Duration) error {
	_, err := p.page.WaitForSelector(selector, playwright.PageWaitForSelectorOptions{Timeout: ms(timeout)})
	return err
}

func (p *pwPage) Wait(d time.Duration) {
	if d > 0 {
		p.page.WaitForTimeout(float64(d.Milliseconds()))
	}
}

func (p *pwPage) Content() (string, error) {
	return p.page.Content()
}

func (p *pwPage) Evaluate(expression string) (interface{}, error) {
	return p.page.Evaluate(expression)
}

func (p *pwPage) URL() string {
	return p.page.URL()
}

func (p *pwPage) TypeText(selector, text string, delay func() time.Duration) error {
	loc := p.page.Locator(selector).First()
	if err := loc.Click(playwright.LocatorClickOptions{Timeout: ms(3 * time.Second)}); err != nil {
		return errors.Wrapf(err, "cannot focus %q", selector)
	}
	if err := loc.Fill(""); err != nil {
		return errors.Wrapf(err, "cannot clear %q", selector)
	}
	kb := p.page.Keyboard()
	for _, r := range text {
		if err := kb.Type(string(r)); err != nil {
			return errors.Wrap(err, "typing failed")
		}
		if delay != nil {
			time.Sleep(delay())
		}
	}
	return nil
}

func (p *pwPage) Press(key string) error {
	return p.page.Keyboard().Press(key)
}

func (p *pwPage) WaitForNavigation(timeout time.Duration) error {
	return p.page.WaitForLoadState(playwright.PageWaitForLoadStateOptions{
		State:   playwright.LoadStateDomcontentloaded,
		Timeout: ms(timeout),
	})
}

func (p *pwPage) OnRequest(fn func(url string)) {
	p.page.OnRequest(func(r playwright.Request) { fn(r.URL()) })
}

func (p *pwPage) OnResponse(fn func(url string)) {
	p.page.OnResponse(func(r playwright.Response) { fn(r.URL()) })
}

func (p *pwPage) Cookies(urls ...string) ([]*http.Cookie, error) {
	cookies, err := p.ctx.Cookies(urls...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read context cookies")
	}
	return fromPlaywrightCookies(cookies), nil
}

// Close tears down the whole context so no state leaks between hosters
func (p *pwPage) Close() error {
	return p.ctx.Close()
}
