package papersources

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// blockElements are separated by a space when flattened so that adjacent
// paragraphs do not run their words together.
var blockElements = map[string]bool{
	"p": true, "div": true, "br": true, "li": true, "sec": true, "title": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"jats:p": true, "jats:sec": true, "jats:title": true,
}

// PlainText flattens a markup fragment (HTML, JATS, or PubMed inline XML) to
// its text content with entities decoded and whitespace collapsed. A leading
// "Abstract" heading is dropped.
func PlainText(fragment string) string {
	if !strings.ContainsAny(fragment, "<&") {
		return CollapseSpace(fragment)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return CollapseSpace(fragment)
	}

	headingSeen := false
	doc.Find("*").Each(func(_ int, s *goquery.Selection) {
		name := goquery.NodeName(s)
		if !blockElements[name] {
			return
		}
		if !headingSeen && (name == "jats:title" || name == "title") {
			headingSeen = true
			if strings.EqualFold(strings.TrimSpace(s.Text()), "abstract") {
				s.SetText("")
				return
			}
		}
		s.PrependHtml(" ").AppendHtml(" ")
	})

	return CollapseSpace(doc.Text())
}

// CollapseSpace trims s and replaces every run of whitespace with one space.
func CollapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
