// Package scraper parses episode pages and resolves hoster embeds to
// direct media URLs through the browser.
package scraper

import (
	"net/url"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	czechText   = regexp.MustCompile(`\bczsk\b|\bcz\b|\bcs\b|czech|cesk`)
	englishText = regexp.MustCompile(`\ben\b|english|anglick`)
	dubText     = regexp.MustCompile(`dab|dabing|\bcz\s*dab|czech\s*dub|cesk.*dub`)
)

// NormalizeText folds diacritics and case: "Český Dabing" -> "cesky dabing"
func NormalizeText(s string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)))
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(out)
}

// DetectLangAndDub guesses the audio language and dub flag of a hoster item
// from the text around it and its URL. lang is empty when nothing matched.
func DetectLangAndDub(text, rawURL string) (lang string, dub bool) {
	low := NormalizeText(text)
	lowURL := strings.ToLower(rawURL)

	switch {
	case czechText.MatchString(low) || strings.Contains(lowURL, "cz"):
		lang = "cs"
	case englishText.MatchString(low) || strings.Contains(lowURL, "en"):
		lang = "en"
	}

	dub = dubText.MatchString(low) ||
		strings.Contains(lowURL, "dabing") ||
		strings.Contains(lowURL, "czsk")
	return lang, dub
}

// SubtitleLanguage maps a subtitle URL to its language code and label
func SubtitleLanguage(rawURL string) (lang, label string) {
	low := strings.ToLower(rawURL)
	if u, err := url.Parse(low); err == nil && u.Path != "" {
		low = u.Path
	}
	if strings.Contains(low, "-en-") ||
		strings.HasSuffix(low, ".en.vtt") ||
		strings.HasSuffix(low, ".en.srt") ||
		strings.Contains(low, "/en/") {
		return "en", "English"
	}
	return "cs", "Čeština"
}
