package session

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/pkg/errors"

	"github.com/alvarorichard/svetserialu/internal/util"
)

// AuthMarkers match elements only rendered for a signed-in user
const AuthMarkers = `.user_actions, .user-actions, a[href*="logout"], a[href*="odhl"]`

// Credentials identify the site account
type Credentials struct {
	Identity string
	Secret   string
}

// Authenticator performs one login attempt. It never returns an error;
// false means the caller should continue without a session.
type Authenticator interface {
	Login(ctx context.Context) bool
}

// FormLogin posts the site's login form over plain HTTP
type FormLogin struct {
	baseURL string
	creds   Credentials
	store   *Store
}

// NewFormLogin creates a form-post authenticator against baseURL
func NewFormLogin(baseURL string, creds Credentials, store *Store) *FormLogin {
	return &FormLogin{
		baseURL: strings.TrimRight(baseURL, "/"),
		creds:   creds,
		store:   store,
	}
}

// Login implements Authenticator
func (f *FormLogin) Login(ctx context.Context) bool {
	ok, err := f.login(ctx)
	if err != nil {
		util.Warn("form login failed", "error", err)
		return false
	}
	return ok
}

func (f *FormLogin) login(ctx context.Context) (bool, error) {
	fragURL := f.baseURL + "/user/login"
	html, err := f.fetch(ctx, fragURL, f.baseURL)
	if err != nil {
		return false, err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return false, errors.Wrap(err, "failed to parse login fragment")
	}
	form := doc.Find("form").First()
	if form.Length() == 0 {
		return false, errors.New("login fragment has no form")
	}

	action, _ := form.Attr("action")
	if action == "" {
		action = "/user/login"
	}
	actionURL, err := resolve(f.baseURL, action)
	if err != nil {
		return false, errors.Wrapf(err, "bad form action %q", action)
	}

	values := FillForm(form, f.creds)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, actionURL, strings.NewReader(values.Encode()))
	if err != nil {
		return false, errors.Wrap(err, "failed to create login request")
	}
	util.DecorateRequest(req, fragURL)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := f.store.NoRedirectClient().Do(req)
	if err != nil {
		return false, errors.Wrap(err, "login request failed")
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusFound, http.StatusSeeOther:
	default:
		util.Warn("login returned unexpected status", "status", resp.StatusCode)
		return false, nil
	}

	// Verification is informational only.
	verified := false
	if after, err := f.fetch(ctx, f.baseURL, f.baseURL); err == nil {
		verified = HasAuthMarkers(after)
	}
	if verified {
		util.Info("login verified", "strategy", "form")
	} else {
		util.Warn("login uncertain, no account markers after submit", "strategy", "form")
	}
	return true, nil
}

func (f *FormLogin) fetch(ctx context.Context, target, referer string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return "", errors.Wrap(err, "failed to create request")
	}
	util.DecorateRequest(req, referer)

	resp, err := f.store.Client().Do(req)
	if err != nil {
		return "", errors.Wrapf(err, "GET %s failed", target)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", errors.Errorf("GET %s returned %s", target, resp.Status)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", errors.Wrap(err, "failed to read body")
	}
	return string(body), nil
}

// FillForm copies every named input of form and substitutes the credentials
// into the first identity-like and secret-like fields. Missing fields are
// added as email/password.
func FillForm(form *goquery.Selection, creds Credentials) url.Values {
	values := url.Values{}
	identityKey, secretKey := "", ""

	form.Find("input").Each(func(_ int, in *goquery.Selection) {
		name, _ := in.Attr("name")
		if name == "" {
			return
		}
		typ, _ := in.Attr("type")
		val, _ := in.Attr("value")

		switch {
		case identityKey == "" && IsIdentityField(name):
			identityKey = name
			val = creds.Identity
		case secretKey == "" && IsSecretField(name, typ):
			secretKey = name
			val = creds.Secret
		}
		values.Set(name, val)
	})

	if identityKey == "" {
		values.Set("email", creds.Identity)
	}
	if secretKey == "" {
		values.Set("password", creds.Secret)
	}
	return values
}

// IsIdentityField reports whether an input name looks like a login field
func IsIdentityField(name string) bool {
	n := strings.ToLower(name)
	return strings.Contains(n, "mail") || strings.Contains(n, "user") || strings.Contains(n, "login")
}

// IsSecretField reports whether an input looks like a password field
func IsSecretField(name, typ string) bool {
	return strings.Contains(strings.ToLower(name), "pass") || strings.EqualFold(typ, "password")
}

// HasAuthMarkers reports whether html renders account-only elements
func HasAuthMarkers(html string) bool {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return false
	}
	return doc.Find(AuthMarkers).Length() > 0
}

func resolve(base, ref string) (string, error) {
	b, err := url.Parse(base + "/")
	if err != nil {
		return "", err
	}
	r, err := url.Parse(ref)
	if err != nil {
		return "", err
	}
	return b.ResolveReference(r).String(), nil
}
