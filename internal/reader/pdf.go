package reader

import (
	"fmt"
	"strings"

	pdflib "github.com/ledongthuc/pdf"
)

// PDFFormat implements Format for PDF files. Each page starts a chapter
// titled "Page N" unless the text itself contains recognizable headings.
type PDFFormat struct{}

func init() {
	Register(&PDFFormat{})
}

func (f *PDFFormat) Name() string         { return "PDF" }
func (f *PDFFormat) Extensions() []string { return []string{".pdf"} }

func (f *PDFFormat) ExtractLines(filename string) ([]string, error) {
	pages, err := pdfPages(filename)
	if err != nil {
		return nil, err
	}
	var lines []string
	for _, p := range pages {
		lines = append(lines, p...)
	}
	return lines, nil
}

func (f *PDFFormat) ExtractChapters(filename string) ([]string, []Chapter, error) {
	pages, err := pdfPages(filename)
	if err != nil {
		return nil, nil, err
	}

	var lines []string
	var pageChapters []Chapter
	for i, p := range pages {
		if len(p) == 0 {
			continue
		}
		pageChapters = append(pageChapters, Chapter{
			Title:     fmt.Sprintf("Page %d", i+1),
			StartLine: len(lines),
		})
		lines = append(lines, p...)
	}

	for _, line := range lines {
		if IsHeading(line) {
			// Let the heading catalog segment the text.
			return lines, nil, nil
		}
	}
	return lines, pageChapters, nil
}

// pdfPages returns the text lines of every page. Pages that fail to
// extract are returned empty.
func pdfPages(filename string) ([][]string, error) {
	file, r, err := pdflib.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer file.Close()

	numPages := r.NumPage()
	pages := make([][]string, numPages)
	for i := 1; i <= numPages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		text = strings.Trim(text, "\r\n")
		if strings.TrimSpace(text) == "" {
			continue
		}
		pages[i-1] = SplitLines(text)
	}
	return pages, nil
}
