package models

import (
	"sort"
	"strings"
	"unicode"

	"github.com/cloudflare/ahocorasick"
)

// Severity of a compliance issue
const (
	// ComplianceViolation blocks sending
	ComplianceViolation string = "violation"

	// ComplianceWarning is shown to the agent but does not block
	ComplianceWarning string = "warning"
)

type compliancePhrase struct {
	phrase     string
	severity   string
	suggestion string
}

// Phrases that state or imply a preference based on a protected class
var compliancePhrases = []compliancePhrase{
	{"adults only", ComplianceViolation, "Describe the property, not who should live there"},
	{"no children", ComplianceViolation, "Remove any restriction on familial status"},
	{"no kids", ComplianceViolation, "Remove any restriction on familial status"},
	{"perfect for singles", ComplianceViolation, "Describe the property, not who should live there"},
	{"ideal for young professionals", ComplianceViolation, "Describe the property, not who should live there"},
	{"mature couple", ComplianceViolation, "Describe the property, not who should live there"},
	{"no section 8", ComplianceViolation, "Source of income restrictions may be unlawful"},
	{"christian home", ComplianceViolation, "Remove references to religion"},
	{"near churches", ComplianceWarning, "List specific places of worship only when describing the area neutrally"},
	{"english speaking", ComplianceViolation, "Remove references to national origin or language"},
	{"no wheelchairs", ComplianceViolation, "Remove any restriction on disability"},
	{"able-bodied", ComplianceViolation, "Remove any restriction on disability"},
	{"exclusive neighborhood", ComplianceWarning, "Exclusive can imply exclusion; describe the amenities instead"},
	{"integrated neighborhood", ComplianceViolation, "Remove references to the make up of the neighborhood"},
	{"master bedroom", ComplianceWarning, "Consider primary bedroom"},
	{"bachelor pad", ComplianceWarning, "Describe the property, not who should live there"},
	{"walking distance", ComplianceWarning, "Consider within a short distance of"},
}

var complianceMatcher = func() *ahocorasick.Matcher {
	phrases := make([]string, len(compliancePhrases))
	for i, p := range compliancePhrases {
		phrases[i] = p.phrase
	}
	return ahocorasick.NewStringMatcher(phrases)
}()

// ComplianceIssueType is a phrase found in marketing copy
type ComplianceIssueType struct {
	Phrase     string `json:"phrase"`
	Severity   string `json:"severity"`
	Suggestion string `json:"suggestion"`
}

// ComplianceResultType is the outcome of a fair housing scan
type ComplianceResultType struct {
	Violations []ComplianceIssueType `json:"violations"`
	Warnings   []ComplianceIssueType `json:"warnings"`
}

// Passed is true when nothing blocks the copy from being published
func (m ComplianceResultType) Passed() bool {
	return len(m.Violations) == 0
}

// CheckCompliance scans copy for fair housing phrases. Matching is case
// insensitive, only on whole words, and any run of whitespace matches the
// single space between the words of a phrase.
func CheckCompliance(texts ...string) ComplianceResultType {
	m := ComplianceResultType{
		Violations: []ComplianceIssueType{},
		Warnings:   []ComplianceIssueType{},
	}

	normalised := make([]string, 0, len(texts))
	for _, t := range texts {
		normalised = append(normalised, collapseSpace(strings.ToLower(t)))
	}
	// A NUL between texts stops a phrase matching across two of them
	lower := strings.Join(normalised, "\x00")
	hits := complianceMatcher.Match([]byte(lower))
	sort.Ints(hits)

	for _, i := range hits {
		p := compliancePhrases[i]
		if !containsWord(lower, p.phrase) {
			continue
		}

		issue := ComplianceIssueType{
			Phrase:     p.phrase,
			Severity:   p.severity,
			Suggestion: p.suggestion,
		}
		if p.severity == ComplianceViolation {
			m.Violations = append(m.Violations, issue)
		} else {
			m.Warnings = append(m.Warnings, issue)
		}
	}

	return m
}

// collapseSpace turns every run of whitespace into a single space
func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// containsWord reports whether phrase occurs in s bounded by non-letters
func containsWord(s string, phrase string) bool {
	s = collapseSpace(s)
	for start := 0; ; {
		i := strings.Index(s[start:], phrase)
		if i < 0 {
			return false
		}
		i += start
		end := i + len(phrase)

		before := i == 0 || !isWordByte(s[i-1])
		after := end == len(s) || !isWordByte(s[end])
		if before && after {
			return true
		}
		start = i + 1
	}
}

func isWordByte(b byte) bool {
	return b < 0x80 && (unicode.IsLetter(rune(b)) || unicode.IsDigit(rune(b)))
}
