package models

import (
	"bytes"
	"regexp"

	"github.com/russross/blackfriday"
	"golang.org/x/net/html"
)

const (
	htmlCruftPrefix = `<html><head></head><body>`
	htmlCruftSuffix = `</body></html>`
)

var (
	longWords      = regexp.MustCompile(`([^\s]{40})`)
	breakLongWords = "${1}\u00AD"
	unlinkedURLs   = regexp.MustCompile(`(?i)(^|[^\/>\]\w])(www\.[^\s<\[]+)`)
	linkURLs       = []byte(`${1}http://${2}`)
)

// ProcessMarkdown turns user supplied markdown (listing descriptions, agent
// bios, campaign bodies) into safe HTML
func ProcessMarkdown(markdown string) string {
	src := []byte(StripControlChars(markdown))

	// Autolinkify
	src = unlinkedURLs.ReplaceAll(src, linkURLs)

	src = MarkdownToHTML(src)

	// The tree walk leaves behind a stub root node
	src = bytes.TrimPrefix(src, []byte(htmlCruftPrefix))
	src = bytes.TrimSuffix(src, []byte(htmlCruftSuffix))

	// NOTE: This *MUST* always be the last thing
	return string(SanitiseHTML(src))
}

// MarkdownToHTML wraps Black Friday with our default settings
func MarkdownToHTML(src []byte) []byte {
	extensions := 0
	extensions |= blackfriday.EXTENSION_AUTOLINK
	extensions |= blackfriday.EXTENSION_HARD_LINE_BREAK
	extensions |= blackfriday.EXTENSION_NO_INTRA_EMPHASIS
	extensions |= blackfriday.EXTENSION_SPACE_HEADERS
	extensions |= blackfriday.EXTENSION_STRIKETHROUGH
	extensions |= blackfriday.EXTENSION_TABLES
	extensions |= blackfriday.EXTENSION_NO_EMPTY_LINE_BEFORE_BLOCK

	htmlFlags := 0
	htmlFlags |= blackfriday.HTML_USE_XHTML
	htmlFlags |= blackfriday.HTML_SKIP_STYLE

	renderer := blackfriday.HtmlRenderer(htmlFlags, "", "")
	htmlBytes := blackfriday.Markdown(src, renderer, extensions)

	// Insert &shy; every 40 chars within long words so that long URLs and
	// MLS numbers wrap on small screens
	htmlRoot, err := html.Parse(bytes.NewReader(htmlBytes))
	if err != nil {
		return []byte{}
	}

	var replaceLongStrings func(*html.Node)
	replaceLongStrings = func(n *html.Node) {
		if n.Type == html.TextNode {
			n.Data = longWords.ReplaceAllString(n.Data, breakLongWords)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			replaceLongStrings(c)
		}
	}
	replaceLongStrings(htmlRoot)

	b := new(bytes.Buffer)
	if html.Render(b, htmlRoot) != nil {
		return []byte{}
	}
	return b.Bytes()
}
