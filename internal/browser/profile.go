package browser

import (
	"net/http"
)

const (
	// StealthUserAgent is presented by stealth contexts
	StealthUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	// ScrapeUserAgent is presented by the lighter scraping contexts
	ScrapeUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124 Safari/537.36"
)

// Viewport is the window size of a context
type Viewport struct {
	Width  int
	Height int
}

// Profile describes the fingerprint and session seed of one context
type Profile struct {
	UserAgent    string
	Locale       string
	Viewport     Viewport
	ExtraHeaders map[string]string
	Cookies      []*http.Cookie
	// CookieURL scopes cookies that carry no domain of their own
	CookieURL string
	Stealth   bool
}

// StealthProfile mimics a Czech desktop Chrome user
func StealthProfile() Profile {
	return Profile{
		UserAgent: StealthUserAgent,
		Locale:    "cs-CZ",
		Viewport:  Viewport{Width: 1366, Height: 768},
		ExtraHeaders: map[string]string{
			"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8",
			"Accept-Language":           "cs-CZ,cs;q=0.9,en;q=0.8",
			"DNT":                       "1",
			"Upgrade-Insecure-Requests": "1",
			"Sec-Fetch-Dest":            "document",
			"Sec-Fetch-Mode":            "navigate",
			"Sec-Fetch-Site":            "none",
		},
		Stealth: true,
	}
}

// ScrapeProfile is used for episode and hoster pages
func ScrapeProfile(cookies []*http.Cookie, cookieURL string) Profile {
	return Profile{
		UserAgent: ScrapeUserAgent,
		Locale:    "cs-CZ",
		Viewport:  Viewport{Width: 1280, Height: 800},
		ExtraHeaders: map[string]string{
			"Accept":          "text/html,*/*",
			"Accept-Language": "cs,en;q=0.9",
		},
		Cookies:   cookies,
		CookieURL: cookieURL,
		Stealth:   true,
	}
}

// stealthScript runs before any page script and hides automation markers
const stealthScript = `(() => {
  try { delete Object.getPrototypeOf(navigator).webdriver; } catch (e) {}
  try { Object.defineProperty(navigator, 'webdriver', { get: () => undefined }); } catch (e) {}
  try { Object.defineProperty(navigator, 'plugins', { get: () => [1, 2, 3, 4, 5] }); } catch (e) {}
  try { Object.defineProperty(navigator, 'languages', { get: () => ['cs-CZ', 'cs', 'en-US', 'en'] }); } catch (e) {}
  try { window.chrome = window.chrome || { runtime: {} }; } catch (e) {}
})();`

// muteScript keeps autoplay allowed by muting every video element
const muteScript = `(() => {
  const mute = () => document.querySelectorAll('video').forEach(v => {
    v.setAttribute('playsinline', '');
    v.setAttribute('muted', '');
    v.muted = true;
  });
  try { mute(); } catch (e) {}
  document.addEventListener('DOMContentLoaded', () => { try { mute(); } catch (e) {} });
})();`

// launchArgs are passed to chromium
var launchArgs = []string{
	"--no-sandbox",
	"--disable-setuid-sandbox",
	"--disable-dev-shm-usage",
	"--disable-gpu",
	"--disable-accelerated-2d-canvas",
	"--disable-blink-features=AutomationControlled",
	"--disable-web-security",
	"--disable-features=VizDisplayCompositor",
	"--window-size=1366,768",
	"--no-zygote",
}
