package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheckComplianceClean(t *testing.T) {
	m := CheckCompliance(
		"Sunny three bedroom home",
		"Close to parks, schools and the train station.",
	)

	assert.True(t, m.Passed())
	assert.Empty(t, m.Violations)
	assert.Empty(t, m.Warnings)
}

func TestCheckComplianceViolation(t *testing.T) {
	m := CheckCompliance("Lovely flat. NO KIDS please.")

	assert.False(t, m.Passed())
	if assert.Len(t, m.Violations, 1) {
		assert.Equal(t, "no kids", m.Violations[0].Phrase)
		assert.Equal(t, ComplianceViolation, m.Violations[0].Severity)
		assert.NotEmpty(t, m.Violations[0].Suggestion)
	}
}

func TestCheckComplianceWarningsDoNotBlock(t *testing.T) {
	m := CheckCompliance("Huge master bedroom", "Walking distance to the beach")

	assert.True(t, m.Passed())
	assert.Len(t, m.Warnings, 2)
}

func TestCheckComplianceWholeWords(t *testing.T) {
	// "no kidsroom" is not the phrase "no kids"
	m := CheckCompliance("There is no kidsroom but a large study")
	assert.True(t, m.Passed())

	m = CheckCompliance("no kids")
	assert.False(t, m.Passed())
}

func TestCheckComplianceIgnoresSpacing(t *testing.T) {
	for _, text := range []string{
		"no  kids",
		"no\nkids",
		"Quiet street, no \t\r\n kids allowed",
		"no\u00a0kids",
	} {
		m := CheckCompliance(text)
		if assert.Len(t, m.Violations, 1, "%q", text) {
			assert.Equal(t, "no kids", m.Violations[0].Phrase)
		}
	}

	m := CheckCompliance("Huge master\n\nbedroom")
	assert.Len(t, m.Warnings, 1)
}

func TestCheckComplianceAcrossTexts(t *testing.T) {
	m := CheckCompliance("Adults", "only in the hot tub")
	assert.True(t, m.Passed(), "phrases must not span separate texts")
}

func TestContainsWord(t *testing.T) {
	assert.True(t, containsWord("a master bedroom.", "master bedroom"))
	assert.True(t, containsWord("master bedroom", "master bedroom"))
	assert.False(t, containsWord("remaster bedroom", "master bedroom"))
	assert.True(t, containsWord("remaster bedroom, master bedroom", "master bedroom"))
	assert.True(t, containsWord("the master   bedroom", "master bedroom"))
	assert.True(t, containsWord("master\tbedroom", "master bedroom"))
}
