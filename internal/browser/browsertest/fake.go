// Package browsertest provides a scripted in-memory browser for tests.
// Pages are plain HTML; selectors are matched with goquery.
package browsertest

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/alvarorichard/svetserialu/internal/browser"
)

// Action is what happens when a selector is clicked
type Action struct {
	// HTML replaces the current document when set
	HTML string
	// NavigateTo loads another scripted page when set
	NavigateTo string
	// Requests are emitted to listeners after the click
	Requests []string
}

// PageScript describes one URL of the fake site
type PageScript struct {
	HTML      string
	Requests  []string
	Responses []string
	// Delayed responses are emitted on the first Wait call
	Delayed  []string
	OnClick  map[string]Action
	OnEnter  *Action
	Evaluate func(expr string) (interface{}, error)
	Cookies  []*http.Cookie
	GotoErr  error
}

// Browser is a fake browser.Browser backed by a map of scripted pages
type Browser struct {
	mu       sync.Mutex
	Pages    map[string]*PageScript
	NewErr   error
	Profiles []browser.Profile
	opened   []*Page
}

// New creates a fake browser serving the given pages
func New(pages map[string]*PageScript) *Browser {
	return &Browser{Pages: pages}
}

// NewPage implements browser.Browser
func (b *Browser) NewPage(ctx context.Context, profile browser.Profile) (browser.Page, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.NewErr != nil {
		return nil, b.NewErr
	}
	b.Profiles = append(b.Profiles, profile)
	p := &Page{site: b, typed: map[string]string{}}
	b.opened = append(b.opened, p)
	return p, nil
}

// Opened returns every page handed out so far
func (b *Browser) Opened() []*Page {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]*Page(nil), b.opened...)
}

// AllClosed reports whether every opened page was closed
func (b *Browser) AllClosed() bool {
	for _, p := range b.Opened() {
		if !p.Closed() {
			return false
		}
	}
	return true
}

func (b *Browser) script(url string) (*PageScript, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	s, ok := b.Pages[url]
	return s, ok
}

// Page is a fake browser.Page
type Page struct {
	site *Browser

	mu         sync.Mutex
	url        string
	html       string
	script     *PageScript
	delayed    []string
	onRequest  []func(string)
	onResponse []func(string)
	closed     bool

	Visited  []string
	Referers []string
	Clicked  []string
	Pressed  []string
	typed    map[string]string
}

// Typed returns the text typed into selector
func (p *Page) Typed(selector string) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.typed[selector]
}

// Closed reports whether Close was called
func (p *Page) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

func (p *Page) load(url string) error {
	s, ok := p.site.script(url)
	if !ok {
		return fmt.Errorf("browsertest: no page scripted for %s", url)
	}
	if s.GotoErr != nil {
		return s.GotoErr
	}
	p.mu.Lock()
	p.url = url
	p.html = s.HTML
	p.script = s
	p.delayed = append([]string(nil), s.Delayed...)
	p.Visited = append(p.Visited, url)
	p.mu.Unlock()

	p.emit(s.Requests, s.Responses)
	return nil
}

func (p *Page) emit(requests, responses []string) {
	p.mu.Lock()
	reqFns := append([]func(string){}, p.onRequest...)
	respFns := append([]func(string){}, p.onResponse...)
	p.mu.Unlock()

	for _, u := range requests {
		for _, fn := range reqFns {
			fn(u)
		}
	}
	for _, u := range responses {
		for _, fn := range respFns {
			fn(u)
		}
	}
}

func (p *Page) doc() (*goquery.Document, error) {
	p.mu.Lock()
	html := p.html
	p.mu.Unlock()
	return goquery.NewDocumentFromReader(strings.NewReader(html))
}

func (p *Page) Goto(url string, opts browser.GotoOptions) error {
	p.mu.Lock()
	p.Referers = append(p.Referers, opts.Referer)
	p.mu.Unlock()
	return p.load(url)
}

func (p *Page) Exists(selector string) (bool, error) {
	d, err := p.doc()
	if err != nil {
		return false, err
	}
	return d.Find(selector).Length() > 0, nil
}

func (p *Page) Click(selector string, timeout time.Duration) error {
	ok, err := p.Exists(selector)
	if err != nil {
		return err
	}
	if !ok {
		return browser.ErrNotFound
	}
	p.mu.Lock()
	p.Clicked = append(p.Clicked, selector)
	var action *Action
	if p.script != nil {
		if a, found := p.script.OnClick[selector]; found {
			action = &a
		}
	}
	p.mu.Unlock()

	if action != nil {
		return p.apply(*action)
	}
	return nil
}

func (p *Page) apply(a Action) error {
	if a.HTML != "" {
		p.mu.Lock()
		p.html = a.HTML
		p.mu.Unlock()
	}
	if len(a.Requests) > 0 {
		p.emit(a.Requests, a.Requests)
	}
	if a.NavigateTo != "" {
		return p.load(a.NavigateTo)
	}
	return nil
}

func (p *Page) WaitForSelector(selector string, timeout time.Duration) error {
	ok, err := p.Exists(selector)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("browsertest: timeout waiting for %s", selector)
	}
	return nil
}

// Wait does not sleep; it flushes delayed responses instead
func (p *Page) Wait(d time.Duration) {
	p.mu.Lock()
	delayed := p.delayed
	p.delayed = nil
	p.mu.Unlock()
	if len(delayed) > 0 {
		p.emit(nil, delayed)
	}
}

func (p *Page) Content() (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.html, nil
}

func (p *Page) Evaluate(expression string) (interface{}, error) {
	p.mu.Lock()
	s := p.script
	p.mu.Unlock()
	if s == nil || s.Evaluate == nil {
		return nil, nil
	}
	return s.Evaluate(expression)
}

func (p *Page) URL() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.url
}

func (p *Page) TypeText(selector, text string, delay func() time.Duration) error {
	ok, err := p.Exists(selector)
	if err != nil {
		return err
	}
	if !ok {
		return browser.ErrNotFound
	}
	p.mu.Lock()
	p.typed[selector] = text
	p.mu.Unlock()
	return nil
}

func (p *Page) Press(key string) error {
	p.mu.Lock()
	p.Pressed = append(p.Pressed, key)
	var action *Action
	if key == "Enter" && p.script != nil && p.script.OnEnter != nil {
		a := *p.script.OnEnter
		action = &a
	}
	p.mu.Unlock()
	if action != nil {
		return p.apply(*action)
	}
	return nil
}

func (p *Page) WaitForNavigation(timeout time.Duration) error {
	return nil
}

func (p *Page) OnRequest(fn func(url string)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onRequest = append(p.onRequest, fn)
}

func (p *Page) OnResponse(fn func(url string)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onResponse = append(p.onResponse, fn)
}

func (p *Page) Cookies(urls ...string) ([]*http.Cookie, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.script == nil {
		return nil, nil
	}
	return p.script.Cookies, nil
}

func (p *Page) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}
