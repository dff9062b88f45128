package models

import (
	"strings"
	"sync"
	"unicode"

	"github.com/microcosm-cc/bluemonday"
)

var (
	textPolicy     = bluemonday.StripTagsPolicy()
	htmlPolicy     = bluemonday.UGCPolicy()
	htmlPolicyOnce sync.Once
)

// SanitiseHTML strips any HTML not on the cleanse whitelist, leaving a safe
// set of HTML intact that is not going to pose an XSS risk
func SanitiseHTML(src []byte) []byte {
	htmlPolicyOnce.Do(func() {
		htmlPolicy.RequireNoFollowOnLinks(false)
		htmlPolicy.RequireNoFollowOnFullyQualifiedLinks(true)
		htmlPolicy.AddTargetBlankToFullyQualifiedLinks(true)
	})

	return htmlPolicy.SanitizeBytes(src)
}

// SanitiseText strips all HTML tags from text
func SanitiseText(s string) string {
	return textPolicy.Sanitize(s)
}

// StripControlChars removes non-printing chars other than new lines and tabs
func StripControlChars(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
}
