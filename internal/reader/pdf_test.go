package reader

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// writeTestPDF writes a PDF with one page per entry, each line drawn in
// its own text object. A page with no lines has an empty content stream.
func writeTestPDF(t *testing.T, pages [][]string) string {
	t.Helper()
	var buf bytes.Buffer
	var offsets []int
	obj := func(body string) {
		offsets = append(offsets, buf.Len())
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", len(offsets), body)
	}

	buf.WriteString("%PDF-1.4\n")
	kids := make([]string, len(pages))
	for i := range pages {
		kids[i] = fmt.Sprintf("%d 0 R", 4+2*i)
	}
	obj("<< /Type /Catalog /Pages 2 0 R >>")
	obj(fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(pages)))
	obj("<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>")
	for i, lines := range pages {
		obj(fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] "+
			"/Resources << /Font << /F1 3 0 R >> >> /Contents %d 0 R >>", 5+2*i))
		var content strings.Builder
		for j, line := range lines {
			fmt.Fprintf(&content, "BT /F1 12 Tf 72 %d Td (%s) Tj ET\n", 720-14*j, line)
		}
		obj(fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", content.Len(), content.String()))
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(offsets)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(offsets)+1, xref)

	path := filepath.Join(t.TempDir(), "doc.pdf")
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		t.Fatalf("write pdf: %v", err)
	}
	return path
}

func TestPDFPageChapters(t *testing.T) {
	path := writeTestPDF(t, [][]string{
		{"Introduction", "Some text"},
		{},
		{"More text"},
	})

	lines, chapters, err := (&PDFFormat{}).ExtractChapters(path)
	if err != nil {
		t.Fatalf("ExtractChapters failed: %v", err)
	}
	wantLines := []string{"Introduction", "Some text", "More text"}
	if strings.Join(lines, "|") != strings.Join(wantLines, "|") {
		t.Fatalf("lines = %q, want %q", lines, wantLines)
	}

	want := []Chapter{
		{Title: "Page 1", StartLine: 0},
		{Title: "Page 3", StartLine: 2},
	}
	if len(chapters) != len(want) {
		t.Fatalf("chapters = %+v, want %+v", chapters, want)
	}
	for i := range want {
		if chapters[i].Title != want[i].Title || chapters[i].StartLine != want[i].StartLine {
			t.Errorf("chapter %d = %+v, want %+v", i, chapters[i], want[i])
		}
	}
}

func TestPDFHeadingsReplacePages(t *testing.T) {
	path := writeTestPDF(t, [][]string{
		{"Chapter 1", "It begins."},
		{"Chapter 2", "It goes on.", "Still page two."},
	})

	_, chapters, err := (&PDFFormat{}).ExtractChapters(path)
	if err != nil {
		t.Fatalf("ExtractChapters failed: %v", err)
	}
	if chapters != nil {
		t.Errorf("chapters = %+v, want none so headings are segmented", chapters)
	}

	doc, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if doc.Chapters.Len() != 2 {
		t.Fatalf("Chapters = %+v, want 2", doc.Chapters.Chapters())
	}
	if doc.Chapters.Title(1) != "Chapter 2" || doc.Chapters.StartLineOf(1) != 2 {
		t.Errorf("second chapter = %+v", doc.Chapters.At(1))
	}
	if doc.Encoding != "pdf" {
		t.Errorf("Encoding = %q, want pdf", doc.Encoding)
	}
}

func TestPDFInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.pdf")
	os.WriteFile(path, []byte("not a pdf"), 0644)
	if _, _, err := (&PDFFormat{}).ExtractChapters(path); err == nil {
		t.Error("expected error for a non-PDF file")
	}
}
