package ingest

import (
	"html"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var (
	lineBreakTag = regexp.MustCompile(`(?i)<br\s*/?>`)
	anyTag       = regexp.MustCompile(`<[^>]+>`)
)

// memberOnlyPhrases are shown instead of the body when the session lacks access.
var memberOnlyPhrases = []string{"マイガール登録", "Member Only"}

// CleanText converts line-break tags to newlines and strips all other markup.
func CleanText(raw string) string {
	text := lineBreakTag.ReplaceAllString(raw, "\n")
	text = anyTag.ReplaceAllString(text, "")
	return html.UnescapeString(text)
}

func IsMemberOnly(raw string) bool {
	for _, phrase := range memberOnlyPhrases {
		if strings.Contains(raw, phrase) {
			return true
		}
	}
	return false
}

// MediaSources returns every src attribute in document order whose URL
// contains one of hosts. Protocol-relative URLs are resolved to https.
func MediaSources(body string, hosts []string) ([]string, error) {
	if strings.TrimSpace(body) == "" {
		return nil, nil
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil, err
	}

	var out []string
	doc.Find("[src]").Each(func(_ int, sel *goquery.Selection) {
		src := strings.TrimSpace(sel.AttrOr("src", ""))
		if src == "" || !matchesHost(src, hosts) {
			return
		}
		if strings.HasPrefix(src, "//") {
			src = "https:" + src
		}
		out = append(out, src)
	})
	return out, nil
}

func matchesHost(src string, hosts []string) bool {
	for _, h := range hosts {
		if strings.Contains(src, h) {
			return true
		}
	}
	return false
}
