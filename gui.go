//go:build gui

package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"github.com/metcalfc/tread/internal/config"
	"github.com/metcalfc/tread/internal/position"
	"github.com/metcalfc/tread/internal/reader"
	"github.com/metcalfc/tread/internal/state"
)

const pollInterval = 100 * time.Millisecond

// listViewport is the reconciler's view of the text list. Rows are
// scrolled so the requested line sits at the top.
type listViewport struct {
	mu        sync.Mutex
	list      *widget.List
	layout    layout
	rowHeight float32
	ready     bool
}

func (v *listViewport) JumpToLine(line int) position.JumpResult {
	v.mu.Lock()
	ready := v.ready
	offset := float32(v.layout.RowOf(line)) * v.rowHeight
	v.mu.Unlock()
	if !ready {
		return position.NotReady
	}
	fyne.Do(func() { v.list.ScrollToOffset(offset) })
	return position.Accepted
}

func (v *listViewport) LineCount() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.layout.firstRow)
}

// topLine returns the source line at the top of the list for a scroll
// offset.
func (v *listViewport) topLine(offset float32) int {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.rowHeight <= 0 {
		return 0
	}
	return v.layout.LineAt(int(offset/v.rowHeight + 0.5))
}

func (v *listViewport) setLayout(l layout) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.layout = l
	v.ready = true
}

func (v *listViewport) rows() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.layout.Rows()
}

func (v *listViewport) row(i int) string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.layout.Row(i)
}

type gui struct {
	opts   readOptions
	lib    *state.Library
	logger *slog.Logger

	app    fyne.App
	window fyne.Window

	sess    *session
	rec     *position.Reconciler
	vp      *listViewport
	spacing float64

	status     *widget.Label
	lines      *widget.List
	tocPanel   *fyne.Container
	tocList    *widget.List
	tocFilter  *widget.Entry
	tocMatches []reader.Chapter

	done      chan struct{}
	closeOnce sync.Once
}

func runReader(opts readOptions) error {
	logger, closeLog, err := newLogger(opts.settings)
	if err != nil {
		return err
	}
	defer closeLog()

	lib := openLibrary(opts.settings, logger)
	filename, fromStdin, err := resolveInput(opts.filename, os.Stdin, lib)
	if err != nil {
		return err
	}
	var input io.Reader
	if fromStdin {
		input = os.Stdin
	}

	g := &gui{
		opts:    opts,
		lib:     lib,
		logger:  logger,
		spacing: opts.settings.ParagraphSpacing,
		done:    make(chan struct{}),
	}
	g.app = app.New()
	g.window = g.app.NewWindow("tread")
	g.window.SetContent(widget.NewLabel("Loading…"))
	g.window.Resize(fyne.NewSize(800, 600))

	var loadErr error
	go func() {
		sess, err := openSession(filename, input, lib, opts.fresh, logger)
		fyne.Do(func() {
			if err != nil {
				loadErr = err
				d := dialog.NewError(err, g.window)
				d.SetOnClosed(g.app.Quit)
				d.Show()
				return
			}
			g.start(sess)
		})
	}()

	g.window.SetOnClosed(g.close)
	g.window.ShowAndRun()
	g.close()
	return loadErr
}

// start builds the reading view for a loaded session. It runs on the
// main goroutine.
func (g *gui) start(sess *session) {
	g.sess = sess
	g.window.SetTitle("tread - " + sess.doc.Title)

	g.vp = &listViewport{rowHeight: widget.NewLabel("M").MinSize().Height + theme.Padding()}
	g.lines = widget.NewList(
		func() int { return g.vp.rows() },
		func() fyne.CanvasObject {
			l := widget.NewLabel("")
			l.Truncation = fyne.TextTruncateEllipsis
			return l
		},
		func(id widget.ListItemID, obj fyne.CanvasObject) {
			obj.(*widget.Label).SetText(g.vp.row(id))
		},
	)
	g.lines.OnSelected = func(widget.ListItemID) { g.lines.UnselectAll() }
	g.vp.list = g.lines

	cfg := sess.reconcilerConfig(g.opts.settings, g.lib, g.vp, g.logger)
	cfg.OnChange = func(position.Position) { fyne.Do(g.updateStatus) }
	g.rec = position.New(cfg)

	g.status = widget.NewLabel("")
	g.status.Alignment = fyne.TextAlignCenter
	controls := widget.NewLabel("N/P: chapter  T: contents  +/-: spacing  R: restart  F: fullscreen  Q: quit")
	controls.Alignment = fyne.TextAlignCenter

	g.buildTOC()
	reading := container.NewBorder(g.status, controls, nil, nil, g.lines)
	split := container.NewHSplit(g.tocPanel, reading)
	split.Offset = 0.3
	g.tocPanel.Hide()

	g.window.SetContent(split)
	g.window.Canvas().SetOnTypedKey(g.typedKey)
	g.window.Canvas().SetOnTypedRune(g.typedRune)

	g.rec.Open(sess.saved)
	g.updateStatus()
	go g.poll()
}

func (g *gui) buildTOC() {
	g.tocMatches = g.sess.doc.Chapters.Chapters()
	g.tocList = widget.NewList(
		func() int { return len(g.tocMatches) },
		func() fyne.CanvasObject { return widget.NewLabel("Title") },
		func(id widget.ListItemID, obj fyne.CanvasObject) {
			if id < len(g.tocMatches) {
				obj.(*widget.Label).SetText(g.tocMatches[id].Title)
			}
		},
	)
	g.tocList.OnSelected = func(id widget.ListItemID) {
		if id < len(g.tocMatches) {
			g.rec.SelectTOC(g.tocMatches[id].Index)
		}
		g.tocList.UnselectAll()
		g.tocPanel.Hide()
		g.window.Canvas().Unfocus()
	}

	g.tocFilter = widget.NewEntry()
	g.tocFilter.SetPlaceHolder("Filter chapters")
	g.tocFilter.OnChanged = func(q string) {
		g.tocMatches = g.sess.doc.Chapters.Filter(q)
		g.tocList.Refresh()
	}

	g.tocPanel = container.NewBorder(
		container.NewVBox(widget.NewLabel("Table of Contents"), g.tocFilter),
		widget.NewLabel("Click to jump • T to close"),
		nil, nil,
		g.tocList,
	)
}

func (g *gui) toggleTOC() {
	if g.tocPanel.Visible() {
		g.tocPanel.Hide()
		g.window.Canvas().Unfocus()
		return
	}
	g.tocFilter.SetText("")
	g.tocPanel.Show()
	current := g.rec.Position().Chapter
	g.tocList.ScrollTo(current)
}

func (g *gui) typedKey(key *fyne.KeyEvent) {
	switch key.Name {
	case fyne.KeyRight:
		g.rec.NextChapter()
	case fyne.KeyLeft:
		g.rec.PrevChapter()
	case fyne.KeyDown:
		g.scrollBy(g.vp.rowHeight)
	case fyne.KeyUp:
		g.scrollBy(-g.vp.rowHeight)
	case fyne.KeyPageDown, fyne.KeySpace:
		g.scrollBy(g.lines.Size().Height - g.vp.rowHeight)
	case fyne.KeyPageUp:
		g.scrollBy(-(g.lines.Size().Height - g.vp.rowHeight))
	case fyne.KeyEscape:
		if g.tocPanel.Visible() {
			g.toggleTOC()
		}
	case fyne.KeyF:
		g.window.SetFullScreen(!g.window.FullScreen())
	case fyne.KeyQ:
		g.window.Close()
	}
}

func (g *gui) typedRune(r rune) {
	switch r {
	case 'n', 'N':
		g.rec.NextChapter()
	case 'p', 'P':
		g.rec.PrevChapter()
	case 't', 'T':
		g.toggleTOC()
	case 'r', 'R':
		g.rec.Restart()
	case '+', '=':
		g.setSpacing(g.spacing + 1)
	case '-':
		g.setSpacing(g.spacing - 1)
	}
}

func (g *gui) scrollBy(delta float32) {
	offset := g.lines.GetScrollOffset() + delta
	if offset < 0 {
		offset = 0
	}
	g.lines.ScrollToOffset(offset)
}

func (g *gui) setSpacing(spacing float64) {
	spacing = max(0, min(spacing, config.MaxParagraphSpacing))
	if spacing == g.spacing {
		return
	}
	g.spacing = spacing
	g.relayout(g.lines.Size().Width)
	g.rec.Reanchor()
	g.updateStatus()
}

// relayout rewraps the document for width and refreshes the list.
func (g *gui) relayout(width float32) {
	charWidth := fyne.MeasureText("M", theme.TextSize(), fyne.TextStyle{}).Width
	cols := 0
	if charWidth > 0 {
		cols = int((width - 4*theme.Padding()) / charWidth)
	}
	if cols < 10 {
		cols = 10
	}
	g.vp.setLayout(newLayout(g.sess.doc.Lines, cols, g.spacing))
	g.lines.Refresh()
}

func (g *gui) updateStatus() {
	doc := g.sess.doc
	pos := g.rec.Position()
	current, total := doc.Progress(pos.Line)
	text := fmt.Sprintf("%s | %s | Line %d/%d (%d%%)",
		doc.Title, doc.Chapters.Title(pos.Chapter), current, total, doc.Percent(pos.Line))
	if g.spacing >= 0.5 {
		text += fmt.Sprintf(" | Spacing %d", reader.BlankLines(g.spacing))
	}
	g.status.SetText(text)
}

// poll watches the list for resizes and scrolling. The list has no
// scroll callback, so the offset is sampled.
func (g *gui) poll() {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	var lastWidth float32
	var reporter lineReporter
	for {
		select {
		case <-g.done:
			return
		case <-ticker.C:
		}

		var width, offset float32
		fyne.DoAndWait(func() {
			width = g.lines.Size().Width
			offset = g.lines.GetScrollOffset()
		})
		if width <= 0 {
			continue
		}

		if width != lastWidth {
			lastWidth = width
			fyne.DoAndWait(func() { g.relayout(width) })
			g.rec.Reanchor()
			continue
		}
		reporter.observe(g.vp.topLine(offset), g.rec.ReportVisibleLine)
	}
}

func (g *gui) close() {
	g.closeOnce.Do(func() {
		close(g.done)
		if g.rec != nil {
			g.rec.Close()
		}
	})
}
