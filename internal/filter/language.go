package filter

import (
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/abadojack/whatlanggo"
)

// maxDetectRunes bounds how much visible text is handed to the classifier.
const maxDetectRunes = 4096

// LanguageDetector returns the ISO 639-1 code of the dominant language of a
// document, or "" when it cannot tell.
type LanguageDetector interface {
	Detect(html string) string
}

// TrigramDetector classifies the visible text of an HTML document with
// whatlanggo's trigram model.
type TrigramDetector struct{}

// NewTrigramDetector returns the default language detector.
func NewTrigramDetector() *TrigramDetector {
	return &TrigramDetector{}
}

// Detect implements LanguageDetector.
func (TrigramDetector) Detect(html string) string {
	text := visibleText(html)
	if text == "" {
		return ""
	}
	info := whatlanggo.Detect(text)
	return info.Lang.Iso6391()
}

// visibleText strips scripts and styles and collapses whitespace.
func visibleText(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return truncateRunes(html, maxDetectRunes)
	}
	doc.Find("script, style, noscript, template").Remove()
	text := strings.Join(strings.Fields(doc.Text()), " ")
	return truncateRunes(text, maxDetectRunes)
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
