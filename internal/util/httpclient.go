// Package util provides the shared logger, HTTP clients and pacing helpers
package util

import (
	"crypto/tls"
	"net"
	"net/http"
	"sync"
	"time"
)

const (
	// UserAgent is sent by every plain HTTP request the addon makes
	UserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124 Safari/537.36"

	// AcceptLanguage prefers Czech content with English as fallback
	AcceptLanguage = "cs,en;q=0.9"
)

var (
	sharedClient     *http.Client
	sharedClientOnce sync.Once

	// streamClient has no overall timeout so long progressive downloads survive
	streamClient     *http.Client
	streamClientOnce sync.Once
)

// httpClientConfig holds configuration for creating HTTP clients
type httpClientConfig struct {
	timeout             time.Duration
	maxIdleConns        int
	maxIdleConnsPerHost int
	maxConnsPerHost     int
	idleConnTimeout     time.Duration
	tlsHandshakeTimeout time.Duration
	expectContinue      time.Duration
	keepAlive           time.Duration
	dialTimeout         time.Duration
}

// defaultConfig is used for page fetches: login, metadata, search, manifests
func defaultConfig() httpClientConfig {
	return httpClientConfig{
		timeout:             20 * time.Second,
		maxIdleConns:        50,
		maxIdleConnsPerHost: 10,
		maxConnsPerHost:     20,
		idleConnTimeout:     90 * time.Second,
		tlsHandshakeTimeout: 5 * time.Second,
		expectContinue:      1 * time.Second,
		keepAlive:           30 * time.Second,
		dialTimeout:         5 * time.Second,
	}
}

// streamConfig is used by the progressive pass-through proxy
func streamConfig() httpClientConfig {
	return httpClientConfig{
		timeout:             0,
		maxIdleConns:        100,
		maxIdleConnsPerHost: 20,
		maxConnsPerHost:     0,
		idleConnTimeout:     120 * time.Second,
		tlsHandshakeTimeout: 10 * time.Second,
		expectContinue:      1 * time.Second,
		keepAlive:           30 * time.Second,
		dialTimeout:         10 * time.Second,
	}
}

// createTransport creates an HTTP transport with the given config
func createTransport(cfg httpClientConfig) *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   cfg.dialTimeout,
			KeepAlive: cfg.keepAlive,
		}).DialContext,
		MaxIdleConns:          cfg.maxIdleConns,
		MaxIdleConnsPerHost:   cfg.maxIdleConnsPerHost,
		MaxConnsPerHost:       cfg.maxConnsPerHost,
		IdleConnTimeout:       cfg.idleConnTimeout,
		TLSHandshakeTimeout:   cfg.tlsHandshakeTimeout,
		ExpectContinueTimeout: cfg.expectContinue,
		ForceAttemptHTTP2:     true,
		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
		},
	}
}

// GetSharedClient returns the shared HTTP client with connection pooling.
// It carries no cookie jar; authenticated calls go through session.Store.
func GetSharedClient() *http.Client {
	sharedClientOnce.Do(func() {
		cfg := defaultConfig()
		sharedClient = &http.Client{
			Transport: createTransport(cfg),
			Timeout:   cfg.timeout,
		}
	})
	return sharedClient
}

// GetStreamClient returns the client used to relay media bodies
func GetStreamClient() *http.Client {
	streamClientOnce.Do(func() {
		cfg := streamConfig()
		streamClient = &http.Client{
			Transport: createTransport(cfg),
			Timeout:   cfg.timeout,
		}
	})
	return streamClient
}

// NewClientWithJar builds a pooled client bound to a cookie jar.
// Redirects are not followed when noRedirect is set, so a login POST
// can observe its 302/303 status.
func NewClientWithJar(jar http.CookieJar, noRedirect bool) *http.Client {
	cfg := defaultConfig()
	client := &http.Client{
		Transport: createTransport(cfg),
		Timeout:   cfg.timeout,
		Jar:       jar,
	}
	if noRedirect {
		client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		}
	}
	return client
}

// DecorateRequest sets the browser-like headers used for page fetches
func DecorateRequest(req *http.Request, referer string) {
	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("Accept", "text/html,*/*")
	req.Header.Set("Accept-Language", AcceptLanguage)
	req.Header.Set("Cache-Control", "no-cache")
	if referer != "" {
		req.Header.Set("Referer", referer)
	}
}
