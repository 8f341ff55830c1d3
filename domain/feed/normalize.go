package feed

import (
	"regexp"
	"strings"
)

// Boilerplate stripped before content fingerprinting. Scraped news items reach
// the feed through several aggregators that each prepend their own attribution,
// so the same story arrives under multiple ids with cosmetically different
// text. Order matters: prefixes are stripped repeatedly until none match.
var dedupStripPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^(?i)source\s*:\s*\S+\s*`),
	regexp.MustCompile(`^(?i)via\s+@?\w+\s*[:\-]\s*`),
	regexp.MustCompile(`^(?i)breaking\s*:\s*`),
	regexp.MustCompile(`^(?i)(just\s+in|update)\s*:\s*`),
	regexp.MustCompile(`^[\x{1F4F0}\x{1F4E2}\x{1F6A8}\x{26A0}\x{FE0F}\s]+`),
	regexp.MustCompile(`^[#>\-\*\s]+`),
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// NormalizeForDedup reduces post content to the fingerprint used for
// near-duplicate detection during feed assembly: lower-cased, trimmed, with
// source attributions and boilerplate prefixes removed and whitespace
// collapsed. Pure; safe to golden-test in isolation.
func NormalizeForDedup(text string) string {
	s := strings.ToLower(strings.TrimSpace(text))

	for {
		stripped := s
		for _, pat := range dedupStripPatterns {
			stripped = strings.TrimSpace(pat.ReplaceAllString(stripped, ""))
		}
		if stripped == s {
			break
		}
		s = stripped
	}

	return whitespaceRun.ReplaceAllString(s, " ")
}
