package scraper

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const (
	noiseSelector = "script, style, noscript, nav, footer, header, form, iframe, svg, aside"
	blockSelector = "h1, h2, h3, h4, h5, h6, p, li, td, th, dt, dd, pre, blockquote"
)

// contentRoots are tried in order; the first present one holds the page text.
var contentRoots = []string{"main", "article", "#content", ".content", "body"}

// Page is the readable content of an HTML document.
type Page struct {
	Title string
	Text  string
}

// ExtractText returns the title and the readable text of doc, one block per line.
// Navigation, scripts and other chrome are dropped.
func ExtractText(doc *goquery.Document) Page {
	title := collapse(doc.Find("title").First().Text())
	doc.Find(noiseSelector).Remove()

	root := doc.Selection
	for _, sel := range contentRoots {
		if s := doc.Find(sel).First(); s.Length() > 0 {
			root = s
			break
		}
	}

	var lines []string
	root.Find(blockSelector).Each(func(_ int, s *goquery.Selection) {
		// Leaf blocks only; a parent block would repeat its children's text.
		if s.Find(blockSelector).Length() > 0 {
			return
		}
		if line := collapse(s.Text()); line != "" {
			lines = append(lines, line)
		}
	})
	if len(lines) == 0 {
		if text := collapse(root.Text()); text != "" {
			lines = append(lines, text)
		}
	}
	return Page{Title: title, Text: strings.Join(lines, "\n")}
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
