// Package streams turns resolved media sources into the labelled,
// deduplicated stream list served to the player
package streams

import (
	"strings"

	"github.com/alvarorichard/svetserialu/internal/models"
)

// Language of the audio track as far as it can be told
type Language string

const (
	Czech   Language = "cz"
	English Language = "en"
)

// Presentation labels
const (
	LabelCzech   = "CZ"
	LabelEnglish = "ENG"

	QualityCzechDub  = "CZ DABING"
	QualityCzechSubs = "CZ TITULKY"
	QualityEnglish   = "EN ORIGINAL"
)

var subtitleMarkers = []string{"subtitles[]", "subtitles%5B%5D", "overrideSubtitles=true"}

const (
	forcedTrackMarker  = "Forced;fcd"
	czechTrackMarker   = "CZSK;cs"
	englishTrackMarker = "English;en"
)

// Classification is the language verdict for one source
type Classification struct {
	Language     Language
	HasSubtitles bool
	Label        string
	Quality      string
}

// Classify decides language and subtitle presence from the hoster's
// section and the markers in the source's original iframe URL, or in the
// media URL when no iframe URL is known
func Classify(h models.HosterDescriptor, src models.MediaSource) Classification {
	signal := src.OriginalIframeURL
	if signal == "" {
		signal = src.URL
	}
	czechSection := h.IsCzechDub()

	c := Classification{Language: English}
	if hasAny(signal, subtitleMarkers) {
		c.HasSubtitles = true
		if czechSection {
			switch {
			case strings.Contains(signal, forcedTrackMarker):
				c.Language = Czech
				c.HasSubtitles = false
			case strings.Contains(signal, czechTrackMarker) && strings.Contains(signal, englishTrackMarker):
				c.Language = English
			default:
				c.Language = Czech
			}
		} else if strings.Contains(signal, czechTrackMarker) {
			c.Language = Czech
		}
	} else if czechSection {
		c.Language = Czech
	}

	c.Label, c.Quality = Present(c.Language, c.HasSubtitles)
	return c
}

// Present maps a verdict to its short label and quality text
func Present(lang Language, hasSubtitles bool) (label, quality string) {
	switch {
	case lang == Czech && !hasSubtitles:
		return LabelCzech, QualityCzechDub
	case lang == Czech:
		return LabelCzech, QualityCzechSubs
	default:
		return LabelEnglish, QualityEnglish
	}
}

func hasAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
