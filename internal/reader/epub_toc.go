package reader

import (
	"encoding/xml"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/taylorskalyo/goreader/epub"
)

const ncxMediaType = "application/x-dtbncx+xml"

// ncxDoc is the part of an EPUB 2 toc.ncx that names documents.
type ncxDoc struct {
	Points []ncxPoint `xml:"navMap>navPoint"`
}

type ncxPoint struct {
	Label    string     `xml:"navLabel>text"`
	Content  ncxContent `xml:"content"`
	Children []ncxPoint `xml:"navPoint"`
}

type ncxContent struct {
	Src string `xml:"src,attr"`
}

// ExtractChapters starts one chapter per non-empty spine document. The
// title is the NCX label for the document, else its first heading, else
// "Section N".
func (f *EPUBFormat) ExtractChapters(filename string) ([]string, []Chapter, error) {
	rc, err := epub.OpenReader(filename)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open epub: %w", err)
	}
	defer rc.Close()

	if len(rc.Rootfiles) == 0 {
		return nil, nil, fmt.Errorf("no rootfiles found in epub")
	}
	book := rc.Rootfiles[0]
	titles := ncxTitles(book)

	var lines []string
	var chapters []Chapter
	for i, item := range spineBlocks(book) {
		if len(item.blocks) == 0 {
			continue
		}
		chapters = append(chapters, Chapter{
			Title:     spineTitle(item, titles, i),
			StartLine: len(lines),
		})
		for _, b := range item.blocks {
			lines = append(lines, b.text)
		}
	}
	return lines, chapters, nil
}

func spineTitle(item spineItem, titles map[string]string, i int) string {
	if t := titles[hrefKey(item.href)]; t != "" {
		return t
	}
	for _, b := range item.blocks {
		if b.heading {
			return b.text
		}
	}
	return fmt.Sprintf("Section %d", i+1)
}

// hrefKey reduces an href to the document file name, so NCX sources
// relative to the NCX match spine hrefs relative to the package.
func hrefKey(href string) string {
	if i := strings.IndexByte(href, '#'); i >= 0 {
		href = href[:i]
	}
	return path.Base(href)
}

// ncxTitles maps document keys to the first NCX label pointing into them.
// A missing or malformed NCX yields an empty map.
func ncxTitles(book *epub.Rootfile) map[string]string {
	titles := make(map[string]string)
	data, err := readNCX(book)
	if err != nil {
		return titles
	}
	var doc ncxDoc
	if err := xml.Unmarshal(data, &doc); err != nil {
		return titles
	}

	var walk func([]ncxPoint)
	walk = func(points []ncxPoint) {
		for _, p := range points {
			key := hrefKey(p.Content.Src)
			label := strings.Join(strings.Fields(p.Label), " ")
			if _, seen := titles[key]; !seen && label != "" {
				titles[key] = label
			}
			walk(p.Children)
		}
	}
	walk(doc.Points)
	return titles
}

func readNCX(book *epub.Rootfile) ([]byte, error) {
	for i := range book.Manifest.Items {
		item := &book.Manifest.Items[i]
		if item.MediaType != ncxMediaType && !strings.HasSuffix(strings.ToLower(item.HREF), ".ncx") {
			continue
		}
		r, err := item.Open()
		if err != nil {
			return nil, err
		}
		defer r.Close()
		return io.ReadAll(r)
	}
	return nil, fmt.Errorf("no NCX in manifest")
}
