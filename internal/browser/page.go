package browser

import (
	"context"
	"net/http"
	"time"

	"github.com/pkg/errors"
)

var (
	// ErrNotFound is returned when a selector matches nothing
	ErrNotFound = errors.New("element not found")
	// ErrClosed is returned after the manager has been shut down
	ErrClosed = errors.New("browser is closed")
)

// GotoOptions tunes a navigation
type GotoOptions struct {
	Referer string
	Timeout time.Duration
}

// Page is the subset of a browser tab the pipeline drives. Every page
// owns its own browsing context; Close tears both down.
type Page interface {
	Goto(url string, opts GotoOptions) error
	Exists(selector string) (bool, error)
	Click(selector string, timeout time.Duration) error
	WaitForSelector(selector string, timeout time.Duration) error
	Wait(d time.Duration)
	Content() (string, error)
	Evaluate(expression string) (interface{}, error)
	URL() string
	TypeText(selector, text string, delay func() time.Duration) error
	Press(key string) error
	WaitForNavigation(timeout time.Duration) error
	OnRequest(fn func(url string))
	OnResponse(fn func(url string))
	Cookies(urls ...string) ([]*http.Cookie, error)
	Close() error
}

// Browser hands out isolated pages
type Browser interface {
	NewPage(ctx context.Context, profile Profile) (Page, error)
}

// ClickIfPresent clicks the first element matching selector when one exists.
// It is the probe used by every selector cascade.
func ClickIfPresent(p Page, selector string, timeout time.Duration) (bool, error) {
	ok, err := p.Exists(selector)
	if err != nil || !ok {
		return false, err
	}
	if err := p.Click(selector, timeout); err != nil {
		return false, err
	}
	return true, nil
}
