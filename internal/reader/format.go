package reader

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Format defines a container format that yields plain text lines.
type Format interface {
	Name() string
	Extensions() []string
	ExtractLines(filename string) ([]string, error)
}

var registry []Format

// Register adds a format reader to the registry.
func Register(f Format) {
	registry = append(registry, f)
}

func formatFor(filename string) Format {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, f := range registry {
		for _, e := range f.Extensions() {
			if ext == e {
				return f
			}
		}
	}
	return nil
}

// Open reads filename and builds its Document. Registered formats are
// extracted by extension; anything else is decoded as plain text of
// unknown encoding.
func Open(filename string) (*Document, error) {
	title := Title(filename)

	f := formatFor(filename)
	if f == nil {
		data, err := os.ReadFile(filename)
		if err != nil {
			return nil, err
		}
		return NewDocument(data, title), nil
	}

	source := strings.ToLower(f.Name())
	if ce, ok := f.(ChapterExtractor); ok {
		lines, chapters, err := ce.ExtractChapters(filename)
		if err != nil {
			return nil, fmt.Errorf("extract %s: %w", f.Name(), err)
		}
		return FromLines(lines, title, source, chapters), nil
	}

	lines, err := f.ExtractLines(filename)
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", f.Name(), err)
	}
	return FromLines(lines, title, source, nil), nil
}

// Title derives a document title from its file name.
func Title(filename string) string {
	base := filepath.Base(filename)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// SupportedFormats returns registered format names with their extensions.
func SupportedFormats() []string {
	var out []string
	for _, f := range registry {
		out = append(out, f.Name()+" ("+strings.Join(f.Extensions(), ", ")+")")
	}
	return out
}
