package filter

import "regexp"

var (
	itemTypePattern = regexp.MustCompile(` itemscope itemtype="https?://schema\.org[^ \r\n>]*`)
	itemPropPattern = regexp.MustCompile(` itemprop=["']\w*["']`)
)

// StripMarkup removes schema.org itemscope/itemtype and itemprop attributes so
// the exported document no longer reveals its label. Removing one attribute
// can join its neighbors into a new match, so it runs until nothing changes.
func StripMarkup(html string) string {
	for {
		out := itemTypePattern.ReplaceAllString(itemPropPattern.ReplaceAllString(html, ""), "")
		if out == html {
			return out
		}
		html = out
	}
}
