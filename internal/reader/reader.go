// Package reader turns documents into line-indexed text with a chapter index.
package reader

// Document is an opened document: its lines and chapter index. It is built
// once and never modified.
type Document struct {
	Title    string
	Encoding string
	Lines    []string
	Chapters ChapterIndex
}

// NewDocument decodes raw bytes, splits them into lines and segments the
// lines into chapters. Documents without headings get a single chapter
// named title.
func NewDocument(raw []byte, title string) *Document {
	dec := Decode(raw)
	lines := SplitLines(dec.Text)
	return &Document{
		Title:    title,
		Encoding: dec.Encoding,
		Lines:    lines,
		Chapters: Segment(lines, title),
	}
}

// FromLines builds a document from already extracted lines. Chapters
// supplied by the source format are used when at least one falls inside
// the document; otherwise the lines are segmented.
func FromLines(lines []string, title, source string, chapters []Chapter) *Document {
	if len(lines) == 0 {
		lines = []string{""}
	}
	doc := &Document{
		Title:    title,
		Encoding: source,
		Lines:    lines,
	}
	if anyInRange(chapters, len(lines)) {
		doc.Chapters = NewChapterIndex(chapters, len(lines), title)
	} else {
		doc.Chapters = Segment(lines, title)
	}
	return doc
}

func anyInRange(chapters []Chapter, lineCount int) bool {
	for _, ch := range chapters {
		if ch.StartLine >= 0 && ch.StartLine < lineCount {
			return true
		}
	}
	return false
}

// LineCount returns the number of lines. It is always at least 1.
func (d *Document) LineCount() int {
	return len(d.Lines)
}

// ChapterAt returns the chapter ordinal containing line.
func (d *Document) ChapterAt(line int) int {
	return d.Chapters.ChapterAt(line)
}

// Progress returns the 1-based line number and the total line count.
func (d *Document) Progress(line int) (current, total int) {
	return line + 1, len(d.Lines)
}

// Percent returns how far through the document line is, from 0 to 100.
func (d *Document) Percent(line int) int {
	if len(d.Lines) <= 1 {
		return 100
	}
	p := line * 100 / (len(d.Lines) - 1)
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}
