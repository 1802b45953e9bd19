// Package job locates a job title and description inside an arbitrary page.
// Extraction is a best-effort heuristic: a page without recognizable content
// yields empty strings, never an error.
package job

import (
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// MinTitleLength is the rune count a title candidate must exceed.
const MinTitleLength = 3

// Posting is the job information found on a page.
type Posting struct {
	Title string `json:"title"`
	Text  string `json:"text"`
	URL   string `json:"url"`
}

// TitleSelectors go from the most to the least specific.
var TitleSelectors = []Selector{
	"h1",
	"[data-job-title]",
	".job-title",
	".posting-headline",
	"h2",
}

// DescriptionSelectors match containers conventionally used for job content.
var DescriptionSelectors = []Selector{
	`[class*="jobDescription"]`,
	`[class*="description"]`,
	`[class*="job-content"]`,
	"article",
	"section",
	`[itemprop="description"]`,
}

const paragraphSelector Selector = "p"

// ExtractHTML parses the page and extracts the posting.
func ExtractHTML(r io.Reader, url string) (Posting, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return Posting{URL: url}, fmt.Errorf("failed to parse HTML: %w", err)
	}

	return Extract(doc, url), nil
}

// Extract reads the document without modifying it.
func Extract(doc *goquery.Document, url string) Posting {
	return Posting{
		Title: Title(doc),
		Text:  Description(doc),
		URL:   url,
	}
}

// Title returns the first heading-like text longer than MinTitleLength,
// falling back to the document title.
func Title(doc *goquery.Document) string {
	chain := make([]Strategy, 0, len(TitleSelectors))
	for _, s := range TitleSelectors {
		chain = append(chain, First(s))
	}

	if title := Run(doc, &FirstQualifying{MinLength: MinTitleLength}, chain...); title != "" {
		return title
	}

	return strings.TrimSpace(doc.Find("title").First().Text())
}

// Description returns the longest description container text, falling back
// to the longest paragraph.
func Description(doc *goquery.Document) string {
	chain := make([]Strategy, 0, len(DescriptionSelectors))
	for _, s := range DescriptionSelectors {
		chain = append(chain, s)
	}

	if text := Run(doc, &Longest{}, chain...); text != "" {
		return text
	}

	return Run(doc, &Longest{}, paragraphSelector)
}

var skippedElements = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"template": true,
	"head":     true,
}

var blockElements = map[string]bool{
	"address": true, "article": true, "aside": true, "blockquote": true,
	"br": true, "dd": true, "div": true, "dl": true, "dt": true,
	"fieldset": true, "figcaption": true, "figure": true, "footer": true,
	"form": true, "h1": true, "h2": true, "h3": true, "h4": true, "h5": true,
	"h6": true, "header": true, "hr": true, "li": true, "main": true,
	"nav": true, "ol": true, "p": true, "pre": true, "section": true,
	"table": true, "tr": true, "ul": true,
}

// innerText approximates the rendered text of a selection: invisible
// elements are skipped and block elements start new lines.
func innerText(sel *goquery.Selection) string {
	var b strings.Builder
	for _, n := range sel.Nodes {
		collectText(n, &b)
	}
	return cleanWhitespace(b.String())
}

func collectText(n *html.Node, b *strings.Builder) {
	switch n.Type {
	case html.TextNode:
		b.WriteString(n.Data)
		return
	case html.ElementNode:
		if skippedElements[n.Data] {
			return
		}
	}

	block := n.Type == html.ElementNode && blockElements[n.Data]
	if block {
		b.WriteString("\n")
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, b)
	}

	if block {
		b.WriteString("\n")
	}
}

// cleanWhitespace collapses runs of spaces within lines and drops empty lines.
func cleanWhitespace(text string) string {
	lines := strings.Split(text, "\n")
	cleaned := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			cleaned = append(cleaned, line)
		}
	}
	return strings.Join(cleaned, "\n")
}
