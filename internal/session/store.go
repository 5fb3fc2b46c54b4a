// Package session keeps the authenticated site session shared by plain HTTP
// fetches and browser contexts, and implements the login strategies.
package session

import (
	"net/http"
	"net/http/cookiejar"
	"net/url"

	"github.com/pkg/errors"
	"golang.org/x/net/publicsuffix"

	"github.com/alvarorichard/svetserialu/internal/util"
)

// Store is the process-wide cookie store. It is safe for concurrent use.
type Store struct {
	jar        *cookiejar.Jar
	client     *http.Client
	noRedirect *http.Client
}

// NewStore creates an empty cookie store
func NewStore() (*Store, error) {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create cookie jar")
	}
	return &Store{
		jar:        jar,
		client:     util.NewClientWithJar(jar, false),
		noRedirect: util.NewClientWithJar(jar, true),
	}, nil
}

// Client returns an HTTP client that reads and writes the store
func (s *Store) Client() *http.Client {
	return s.client
}

// NoRedirectClient is like Client but returns redirects as responses
func (s *Store) NoRedirectClient() *http.Client {
	return s.noRedirect
}

// Cookies returns the cookies the store would send to rawURL
func (s *Store) Cookies(rawURL string) []*http.Cookie {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil
	}
	return s.jar.Cookies(u)
}

// BrowserCookies exports the cookies for rawURL in a form a browser context
// can seed from. The jar does not expose domains, so every cookie is scoped
// to the URL host.
func (s *Store) BrowserCookies(rawURL string) []*http.Cookie {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil
	}
	in := s.jar.Cookies(u)
	out := make([]*http.Cookie, 0, len(in))
	for _, c := range in {
		out = append(out, &http.Cookie{
			Name:   c.Name,
			Value:  c.Value,
			Domain: u.Hostname(),
			Path:   "/",
			Secure: u.Scheme == "https",
		})
	}
	return out
}

// Import copies cookies read from a browser context into the store
func (s *Store) Import(rawURL string, cookies []*http.Cookie) int {
	u, err := url.Parse(rawURL)
	if err != nil {
		return 0
	}
	valid := make([]*http.Cookie, 0, len(cookies))
	for _, c := range cookies {
		if c == nil || c.Name == "" {
			continue
		}
		cp := *c
		if cp.Path == "" {
			cp.Path = "/"
		}
		valid = append(valid, &cp)
	}
	s.jar.SetCookies(u, valid)
	return len(valid)
}
