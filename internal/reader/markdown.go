package reader

import (
	"os"
	"sort"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// maxMarkdownChapterLevel is the deepest heading level that starts a chapter.
const maxMarkdownChapterLevel = 2

// MarkdownFormat implements Format for Markdown files. Lines are the raw
// source lines; chapters come from the parsed heading structure so that
// '#' inside code blocks is ignored.
type MarkdownFormat struct{}

func init() {
	Register(&MarkdownFormat{})
}

func (f *MarkdownFormat) Name() string         { return "Markdown" }
func (f *MarkdownFormat) Extensions() []string { return []string{".md", ".markdown"} }

func (f *MarkdownFormat) ExtractLines(filename string) ([]string, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	return SplitLines(Decode(data).Text), nil
}

// ExtractChapters extracts source lines with chapters at h1/h2 headings.
func (f *MarkdownFormat) ExtractChapters(filename string) ([]string, []Chapter, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, nil, err
	}
	src := []byte(Decode(data).Text)
	return SplitLines(string(src)), markdownChapters(src), nil
}

func markdownChapters(src []byte) []Chapter {
	starts := lineStarts(src)
	doc := goldmark.New().Parser().Parse(text.NewReader(src))

	var chapters []Chapter
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		heading, ok := n.(*ast.Heading)
		if !ok || heading.Level > maxMarkdownChapterLevel {
			continue
		}
		lines := heading.Lines()
		if lines.Len() == 0 {
			continue
		}
		title := strings.TrimSpace(string(heading.Text(src)))
		if title == "" {
			continue
		}
		chapters = append(chapters, Chapter{
			Title:     title,
			StartLine: lineOfOffset(starts, lines.At(0).Start),
		})
	}
	return chapters
}

// lineStarts returns the byte offset of each line, using the same
// separators as SplitLines.
func lineStarts(src []byte) []int {
	starts := []int{0}
	for i := 0; i < len(src); i++ {
		switch src[i] {
		case '\n':
			starts = append(starts, i+1)
		case '\r':
			if i+1 < len(src) && src[i+1] == '\n' {
				i++
			}
			starts = append(starts, i+1)
		}
	}
	return starts
}

func lineOfOffset(starts []int, offset int) int {
	return sort.Search(len(starts), func(i int) bool {
		return starts[i] > offset
	}) - 1
}
