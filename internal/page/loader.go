// Package page loads the document the page context extracts from.
package page

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Page is a loaded document and the location it was loaded from.
type Page struct {
	URL      string
	Document *goquery.Document
}

// Loader produces the document shown at a location.
type Loader interface {
	Load(ctx context.Context, location string) (*Page, error)
}

// Error describes a failed load.
type Error struct {
	Location string
	Message  string
	Cause    error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("load %s: %s: %v", e.Location, e.Message, e.Cause)
	}
	return fmt.Sprintf("load %s: %s", e.Location, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func parse(location, html string) (*Page, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, &Error{Location: location, Message: "failed to parse HTML", Cause: err}
	}

	return &Page{URL: location, Document: doc}, nil
}
