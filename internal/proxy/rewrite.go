package proxy

import (
	"regexp"
	"strings"
)

const (
	mediaTag     = "#EXT-X-MEDIA:"
	streamInfTag = "#EXT-X-STREAM-INF"
)

var (
	languageAttr   = regexp.MustCompile(`(?i)LANGUAGE="([^"]*)"`)
	defaultAttr    = regexp.MustCompile(`(?i)DEFAULT=(?:YES|NO)`)
	autoselectAttr = regexp.MustCompile(`(?i)AUTOSELECT=(?:YES|NO)`)
	defaultYes     = regexp.MustCompile(`(?i)DEFAULT=YES`)
	autoselectYes  = regexp.MustCompile(`(?i)AUTOSELECT=YES`)
	repeatedCommas = regexp.MustCompile(`,{2,}`)
)

// IsMaster reports whether a playlist body is a master playlist
func IsMaster(body string) bool {
	return strings.Contains(body, streamInfTag) || strings.Contains(body, mediaTag)
}

// RewriteMaster makes Czech renditions the default selection. Every
// #EXT-X-MEDIA line tagged LANGUAGE="cs" gets DEFAULT=YES,AUTOSELECT=YES;
// renditions in other languages are demoted or marked NO. Other lines are kept
// byte for byte.
func RewriteMaster(body string) string {
	lines := strings.Split(body, "\n")
	for i, line := range lines {
		if !strings.HasPrefix(line, mediaTag) {
			continue
		}
		cr := strings.HasSuffix(line, "\r")
		attrs := strings.TrimSuffix(strings.TrimPrefix(line, mediaTag), "\r")

		m := languageAttr.FindStringSubmatch(attrs)
		if m == nil {
			continue
		}
		if strings.EqualFold(m[1], "cs") {
			attrs = defaultAttr.ReplaceAllString(attrs, "")
			attrs = autoselectAttr.ReplaceAllString(attrs, "")
			attrs = strings.Trim(repeatedCommas.ReplaceAllString(attrs, ","), ",")
			attrs += ",DEFAULT=YES,AUTOSELECT=YES"
		} else {
			attrs = defaultYes.ReplaceAllString(attrs, "DEFAULT=NO")
			attrs = autoselectYes.ReplaceAllString(attrs, "AUTOSELECT=NO")
			if !defaultAttr.MatchString(attrs) {
				attrs += ",DEFAULT=NO"
			}
			if !autoselectAttr.MatchString(attrs) {
				attrs += ",AUTOSELECT=NO"
			}
		}

		line = mediaTag + attrs
		if cr {
			line += "\r"
		}
		lines[i] = line
	}
	return strings.Join(lines, "\n")
}
