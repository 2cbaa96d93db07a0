package reader

import (
	"regexp"
	"strings"

	"golang.org/x/text/width"
)

// headingFamily is one line shape recognized as a chapter boundary.
type headingFamily struct {
	name    string
	pattern *regexp.Regexp
}

// headingCatalog is matched in order against the trimmed, width-folded line.
var headingCatalog = []headingFamily{
	{"numbered", regexp.MustCompile(`(?i)^第[零一二三四五六七八九十百千万0-9]+[章节回卷部集篇]`)},
	{"chapter", regexp.MustCompile(`(?i)^chapter\s*\d+`)},
	{"bracketed", regexp.MustCompile(`(?i)^【\s*\d+\s*】`)},
	{"main-text", regexp.MustCompile(`(?i)^正文\s*第`)},
	{"preface", regexp.MustCompile(`(?i)^序[章言幕]?`)},
	{"prologue", regexp.MustCompile(`(?i)^楔子`)},
	{"epilogue", regexp.MustCompile(`(?i)^尾声`)},
	{"extra", regexp.MustCompile(`(?i)^番外`)},
}

// HeadingFamily returns the name of the first catalog family matching line,
// or "" if line is not a chapter heading.
func HeadingFamily(line string) string {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return ""
	}
	// Full-width digits and letters fold to ASCII so "第１２章" and
	// "ＣＨＡＰＴＥＲ　３" match. Ideographs are unaffected.
	folded := width.Fold.String(trimmed)
	for _, f := range headingCatalog {
		if f.pattern.MatchString(folded) {
			return f.name
		}
	}
	return ""
}

// IsHeading reports whether line is a chapter heading.
func IsHeading(line string) bool {
	return HeadingFamily(line) != ""
}

// Segment builds the chapter index for lines in a single forward pass.
// A document without headings gets one chapter titled fallbackTitle.
func Segment(lines []string, fallbackTitle string) ChapterIndex {
	var chapters []Chapter
	for i, line := range lines {
		if !IsHeading(line) {
			continue
		}
		chapters = append(chapters, Chapter{
			Title:     strings.TrimSpace(line),
			StartLine: i,
			Index:     len(chapters),
		})
	}

	if len(chapters) == 0 {
		chapters = append(chapters, Chapter{
			Title:     fallbackTitle,
			StartLine: 0,
			Index:     0,
		})
	}

	return ChapterIndex{chapters: chapters}
}
