package reader

import (
	"bytes"
	"fmt"
	"io"

	"github.com/taylorskalyo/goreader/epub"
)

// EPUBFormat implements Format for EPUB files.
type EPUBFormat struct{}

func init() {
	Register(&EPUBFormat{})
}

func (f *EPUBFormat) Name() string         { return "EPUB" }
func (f *EPUBFormat) Extensions() []string { return []string{".epub"} }
func (f *EPUBFormat) ExtractLines(filename string) ([]string, error) {
	rc, err := epub.OpenReader(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open epub: %w", err)
	}
	defer rc.Close()

	if len(rc.Rootfiles) == 0 {
		return nil, fmt.Errorf("no rootfiles found in epub")
	}

	var lines []string
	for _, item := range spineBlocks(rc.Rootfiles[0]) {
		for _, b := range item.blocks {
			lines = append(lines, b.text)
		}
	}
	return lines, nil
}

// spineItem holds the text blocks of one spine document.
type spineItem struct {
	href   string
	blocks []htmlBlock
}

// spineBlocks reads every readable spine document in order. Unreadable
// items are skipped.
func spineBlocks(book *epub.Rootfile) []spineItem {
	var items []spineItem
	for _, ref := range book.Spine.Itemrefs {
		if ref.Item == nil {
			continue
		}
		r, err := ref.Item.Open()
		if err != nil {
			continue
		}
		data, err := io.ReadAll(r)
		r.Close()
		if err != nil {
			continue
		}
		blocks, err := parseHTMLBlocks(bytes.NewReader(data), ref.Item.MediaType)
		if err != nil {
			continue
		}
		items = append(items, spineItem{href: ref.Item.HREF, blocks: blocks})
	}
	return items
}
