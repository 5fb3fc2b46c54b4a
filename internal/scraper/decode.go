package scraper

import (
	"encoding/base64"
	"net/url"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/pkg/errors"

	"github.com/alvarorichard/svetserialu/internal/models"
)

var (
	absoluteURL = regexp.MustCompile(`(?i)^https?://`)
	voeWord     = regexp.MustCompile(`(?i)\bvoe\b`)

	errUndecodable = errors.New("reference is neither a URL nor base64")
)

// KindOf classifies a hoster item by its class attribute and raw reference
func KindOf(class, raw string) (models.HosterKind, bool) {
	lowClass := strings.ToLower(class)
	lowRaw := strings.ToLower(raw)

	switch {
	case strings.Contains(lowClass, "filemoon") || strings.Contains(lowRaw, "filemoon"):
		return models.HosterFileMoon, true
	case voeWord.MatchString(lowClass) || strings.Contains(lowRaw, "voe"):
		return models.HosterVoe, true
	}
	return "", false
}

// DecodeReference turns an item reference into an absolute URL. Absolute
// http(s) references are kept; anything else is treated as a base64 encoded
// path and resolved against base.
func DecodeReference(raw, base string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", errors.New("empty reference")
	}

	path := raw
	if !absoluteURL.MatchString(raw) {
		decoded, ok := decodeBase64(raw)
		switch {
		case ok:
			path = decoded
		case strings.HasPrefix(raw, "/"):
			// plain site-relative link
		default:
			return "", errors.Wrapf(errUndecodable, "%q", raw)
		}
	}

	b, err := url.Parse(base)
	if err != nil {
		return "", errors.Wrap(err, "bad base URL")
	}
	ref, err := url.Parse(strings.TrimSpace(path))
	if err != nil {
		return "", errors.Wrapf(err, "bad reference %q", path)
	}
	return b.ResolveReference(ref).String(), nil
}

func decodeBase64(s string) (string, bool) {
	encodings := []*base64.Encoding{
		base64.StdEncoding,
		base64.RawStdEncoding,
		base64.URLEncoding,
		base64.RawURLEncoding,
	}
	for _, enc := range encodings {
		b, err := enc.DecodeString(s)
		if err != nil || len(b) == 0 {
			continue
		}
		if printable(b) {
			return string(b), true
		}
	}
	return "", false
}

func printable(b []byte) bool {
	if !utf8.Valid(b) {
		return false
	}
	for _, r := range string(b) {
		if !unicode.IsPrint(r) {
			return false
		}
	}
	return true
}
