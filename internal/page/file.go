package page

import (
	"context"
	"os"
	"path/filepath"
)

// FileLoader reads a saved HTML page. The posting is reported under URL when
// set, otherwise under a file:// location.
type FileLoader struct {
	URL string
}

func (l FileLoader) Load(_ context.Context, path string) (*Page, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &Error{Location: path, Message: "failed to read file", Cause: err}
	}

	location := l.URL
	if location == "" {
		abs, err := filepath.Abs(path)
		if err != nil {
			abs = path
		}
		location = "file://" + filepath.ToSlash(abs)
	}

	return parse(location, string(data))
}
