package reader

import (
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"
)

// HTMLFormat implements Format for HTML files.
type HTMLFormat struct{}

func init() {
	Register(&HTMLFormat{})
}

func (f *HTMLFormat) Name() string         { return "HTML" }
func (f *HTMLFormat) Extensions() []string { return []string{".html", ".htm", ".xhtml"} }

func (f *HTMLFormat) ExtractLines(filename string) ([]string, error) {
	lines, _, err := f.ExtractChapters(filename)
	return lines, err
}

// ExtractChapters turns block elements into lines and h1-h3 into chapters.
func (f *HTMLFormat) ExtractChapters(filename string) ([]string, []Chapter, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, nil, err
	}
	defer file.Close()

	blocks, err := parseHTMLBlocks(file, "text/html")
	if err != nil {
		return nil, nil, err
	}

	var lines []string
	var chapters []Chapter
	for _, b := range blocks {
		if b.heading {
			chapters = append(chapters, Chapter{Title: b.text, StartLine: len(lines)})
		}
		lines = append(lines, b.text)
	}
	return lines, chapters, nil
}

// htmlBlock is the text of one block-level element.
type htmlBlock struct {
	text    string
	heading bool
}

// parseHTMLBlocks decodes r using the declared or sniffed charset and
// returns the text of each block element in document order.
func parseHTMLBlocks(r io.Reader, contentType string) ([]htmlBlock, error) {
	utf8Reader, err := charset.NewReader(r, contentType)
	if err != nil {
		return nil, fmt.Errorf("detect charset: %w", err)
	}
	doc, err := html.Parse(utf8Reader)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	var blocks []htmlBlock
	var current strings.Builder
	currentHeading := false

	flush := func() {
		t := strings.Join(strings.Fields(current.String()), " ")
		if t != "" {
			blocks = append(blocks, htmlBlock{text: t, heading: currentHeading})
		}
		current.Reset()
		currentHeading = false
	}

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			current.WriteString(n.Data)
			current.WriteString(" ")
			return
		case html.ElementNode:
			switch n.Data {
			case "script", "style", "head", "nav":
				return
			case "br":
				flush()
				return
			}
		}

		block := isBlockElement(n)
		if block {
			flush()
			currentHeading = isHeadingElement(n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if block {
			flush()
		}
	}
	walk(doc)
	flush()

	return blocks, nil
}

func isBlockElement(n *html.Node) bool {
	if n.Type != html.ElementNode {
		return false
	}
	switch n.Data {
	case "p", "div", "li", "blockquote", "pre", "section", "article",
		"h1", "h2", "h3", "h4", "h5", "h6", "tr", "dt", "dd", "figcaption":
		return true
	}
	return false
}

func isHeadingElement(n *html.Node) bool {
	switch n.Data {
	case "h1", "h2", "h3":
		return true
	}
	return false
}
