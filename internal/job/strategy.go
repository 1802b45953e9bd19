package job

import (
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
)

// Strategy yields candidate texts from a document, in document order.
type Strategy interface {
	Candidates(doc *goquery.Document) []string
}

// Reducer picks one text out of the candidates produced by a strategy chain.
type Reducer interface {
	// Offer reports a candidate. It returns true when no further candidate can
	// change the outcome.
	Offer(candidate string) bool
	Result() string
}

// Selector matches every element of a CSS selector.
type Selector string

func (s Selector) Candidates(doc *goquery.Document) []string {
	var out []string
	doc.Find(string(s)).Each(func(_ int, sel *goquery.Selection) {
		out = append(out, innerText(sel))
	})
	return out
}

// First matches only the first element of a CSS selector.
type First string

func (s First) Candidates(doc *goquery.Document) []string {
	sel := doc.Find(string(s)).First()
	if sel.Length() == 0 {
		return nil
	}
	return []string{innerText(sel)}
}

// Run feeds the candidates of each strategy, in order, to the reducer.
func Run(doc *goquery.Document, reducer Reducer, chain ...Strategy) string {
	for _, strategy := range chain {
		for _, candidate := range strategy.Candidates(doc) {
			if reducer.Offer(candidate) {
				return reducer.Result()
			}
		}
	}
	return reducer.Result()
}

// FirstQualifying keeps the first candidate longer than MinLength runes.
type FirstQualifying struct {
	MinLength int
	found     string
}

func (r *FirstQualifying) Offer(candidate string) bool {
	candidate = strings.TrimSpace(candidate)
	if utf8.RuneCountInString(candidate) > r.MinLength {
		r.found = candidate
		return true
	}
	return false
}

func (r *FirstQualifying) Result() string {
	return r.found
}

// Longest keeps the longest candidate; ties keep the earlier one.
type Longest struct {
	best    string
	bestLen int
}

func (r *Longest) Offer(candidate string) bool {
	candidate = strings.TrimSpace(candidate)
	if n := utf8.RuneCountInString(candidate); n > r.bestLen {
		r.best = candidate
		r.bestLen = n
	}
	return false
}

func (r *Longest) Result() string {
	return r.best
}
