package models

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSVCell(t *testing.T) {
	tests := map[string]string{
		"":               "",
		"Jane":           "Jane",
		"=SUM(A1:A9)":    "'=SUM(A1:A9)",
		"+61 400 000":    "'+61 400 000",
		"-1":             "'-1",
		"@import":        "'@import",
		"\tindented":     "'\tindented",
		"jane@home.test": "jane@home.test",
	}

	for in, want := range tests {
		assert.Equal(t, want, csvCell(in), "csvCell(%q)", in)
	}
}

func TestWriteLeadsCSV(t *testing.T) {
	created := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)

	lead := LeadType{
		ID:        7,
		Name:      "=HYPERLINK(\"x\")",
		Email:     "buyer@example.test",
		Phone:     "0400 000 000",
		Source:    LeadSourceWebsite,
		Status:    LeadStatusNew,
		ListingID: 42,
		Message:   "Hi, is it still available?\nThanks",
	}
	lead.Meta.Created = created

	var buf bytes.Buffer
	require.NoError(t, WriteLeadsCSV(&buf, []LeadType{lead, {ID: 8, Name: "Bob"}}))

	lines := strings.Split(buf.String(), "\r\n")
	assert.Equal(t, "id,name,email,phone,source,status,listing,message,created", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], `7,"'=HYPERLINK(""x"")",buyer@example.test,`))
	assert.Contains(t, buf.String(), ",42,")
	assert.Contains(t, buf.String(), created.Format(time.RFC3339))

	// A lead without a listing leaves the column empty
	assert.Contains(t, buf.String(), "8,Bob,,,,,,,")
}

func TestWriteLeadsCSVEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteLeadsCSV(&buf, nil))
	assert.Equal(t, "id,name,email,phone,source,status,listing,message,created\r\n", buf.String())
}
