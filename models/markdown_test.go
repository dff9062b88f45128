package models

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProcessMarkdown(t *testing.T) {
	out := ProcessMarkdown("A **sunny** home\n\n<script>alert('x')</script>\n\nSee www.example.com")

	assert.Contains(t, out, "<strong>sunny</strong>")
	assert.NotContains(t, out, "<script")
	assert.NotContains(t, out, "alert(")
	assert.Contains(t, out, `href="http://www.example.com"`)
	assert.NotContains(t, out, "<html>")
}

func TestProcessMarkdownBreaksLongWords(t *testing.T) {
	mls := strings.Repeat("A", 45)

	out := ProcessMarkdown("MLS " + mls)
	assert.Contains(t, out, strings.Repeat("A", 40)+"\u00ad")
}
