package reader

import (
	"sort"
	"strings"
)

// Chapter is one entry of a document's chapter index.
type Chapter struct {
	Title     string
	StartLine int
	Index     int
}

// ChapterIndex is an ordered, non-empty chapter list with strictly
// increasing start lines. The zero value behaves as a single untitled
// chapter starting at line 0.
type ChapterIndex struct {
	chapters []Chapter
}

// NewChapterIndex normalizes chapters supplied by a structured format:
// entries outside [0, lineCount) are dropped, the rest are sorted by start
// line, duplicates keep the first title, and indices are renumbered. An
// empty result falls back to a single chapter titled fallbackTitle.
func NewChapterIndex(chapters []Chapter, lineCount int, fallbackTitle string) ChapterIndex {
	kept := make([]Chapter, 0, len(chapters))
	for _, ch := range chapters {
		if ch.StartLine < 0 || ch.StartLine >= lineCount {
			continue
		}
		kept = append(kept, ch)
	}
	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].StartLine < kept[j].StartLine
	})

	out := kept[:0]
	for _, ch := range kept {
		if len(out) > 0 && out[len(out)-1].StartLine == ch.StartLine {
			continue
		}
		ch.Index = len(out)
		out = append(out, ch)
	}

	if len(out) == 0 {
		out = append(out, Chapter{Title: fallbackTitle})
	}
	return ChapterIndex{chapters: out}
}

// Len returns the number of chapters.
func (x ChapterIndex) Len() int {
	if len(x.chapters) == 0 {
		return 1
	}
	return len(x.chapters)
}

// At returns chapter k, clamped to the valid range.
func (x ChapterIndex) At(k int) Chapter {
	if len(x.chapters) == 0 {
		return Chapter{}
	}
	return x.chapters[x.clamp(k)]
}

// Chapters returns a copy of the chapter list.
func (x ChapterIndex) Chapters() []Chapter {
	if len(x.chapters) == 0 {
		return []Chapter{{}}
	}
	out := make([]Chapter, len(x.chapters))
	copy(out, x.chapters)
	return out
}

// ChapterAt returns the ordinal of the chapter with the greatest start line
// not after line. Lines before the first chapter belong to chapter 0.
func (x ChapterIndex) ChapterAt(line int) int {
	// first chapter starting after line, minus one
	k := sort.Search(len(x.chapters), func(i int) bool {
		return x.chapters[i].StartLine > line
	}) - 1
	if k < 0 {
		return 0
	}
	return k
}

// StartLineOf returns the first line of chapter k, clamped to the valid range.
func (x ChapterIndex) StartLineOf(k int) int {
	return x.At(k).StartLine
}

// Title returns the title of chapter k, clamped to the valid range.
func (x ChapterIndex) Title(k int) string {
	return x.At(k).Title
}

// Filter returns the chapters whose titles contain query, ignoring case.
// An empty or blank query returns every chapter.
func (x ChapterIndex) Filter(query string) []Chapter {
	query = strings.TrimSpace(query)
	if query == "" {
		return x.Chapters()
	}
	q := strings.ToLower(query)
	var out []Chapter
	for _, ch := range x.chapters {
		if strings.Contains(strings.ToLower(ch.Title), q) {
			out = append(out, ch)
		}
	}
	return out
}

func (x ChapterIndex) clamp(k int) int {
	if k < 0 {
		return 0
	}
	if k >= len(x.chapters) {
		return len(x.chapters) - 1
	}
	return k
}

// ChapterExtractor is an optional interface for formats that carry their
// own chapter structure. Chapters index into the returned lines.
type ChapterExtractor interface {
	ExtractChapters(filename string) (lines []string, chapters []Chapter, err error)
}
