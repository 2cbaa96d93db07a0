//go:build !gui

package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/metcalfc/tread/internal/config"
	"github.com/metcalfc/tread/internal/position"
	"github.com/metcalfc/tread/internal/reader"
	"github.com/metcalfc/tread/internal/state"
)

type (
	loadedMsg struct {
		sess *session
		err  error
	}
	jumpMsg   struct {
		line int
		seq  uint64
	}
	reportMsg struct{}
)

// viewportBridge is the reconciler's view of the terminal viewport. Jumps
// are delivered to the program as messages so the reconciler never waits
// on Update. Messages may arrive out of order; each carries a sequence
// number and only the newest is applied.
type viewportBridge struct {
	mu        sync.Mutex
	ready     bool
	lines     int
	send      func(tea.Msg)
	seq       uint64
	delivered uint64
}

func (b *viewportBridge) JumpToLine(line int) position.JumpResult {
	b.mu.Lock()
	ready, send := b.ready, b.send
	if !ready || send == nil {
		b.mu.Unlock()
		return position.NotReady
	}
	b.seq++
	msg := jumpMsg{line: line, seq: b.seq}
	b.mu.Unlock()

	go send(msg)
	return position.Accepted
}

// deliver reports whether msg is newer than every jump applied so far.
func (b *viewportBridge) deliver(msg jumpMsg) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if msg.seq <= b.delivered {
		return false
	}
	b.delivered = msg.seq
	return true
}

func (b *viewportBridge) LineCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lines
}

func (b *viewportBridge) setReady(ready bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.ready = ready
}

func (b *viewportBridge) setLineCount(n int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lines = n
}

func (b *viewportBridge) setSend(send func(tea.Msg)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.send = send
}

// tocItem is one chapter in the contents list.
type tocItem struct {
	ch reader.Chapter
}

func (i tocItem) Title() string       { return i.ch.Title }
func (i tocItem) Description() string { return fmt.Sprintf("line %d", i.ch.StartLine+1) }
func (i tocItem) FilterValue() string { return i.ch.Title }

func newTOCList(chapters reader.ChapterIndex, width, height int) list.Model {
	all := chapters.Chapters()
	items := make([]list.Item, len(all))
	for i, ch := range all {
		items[i] = tocItem{ch: ch}
	}

	l := list.New(items, list.NewDefaultDelegate(), width, height)
	l.Title = "Contents"
	l.SetFilteringEnabled(true)
	l.DisableQuitKeybindings()
	// Same matching as `tread toc --grep`.
	l.Filter = func(term string, _ []string) []list.Rank {
		matches := chapters.Filter(term)
		ranks := make([]list.Rank, len(matches))
		for i, ch := range matches {
			ranks[i] = list.Rank{Index: ch.Index}
		}
		return ranks
	}
	return l
}

type model struct {
	opts     readOptions
	filename string
	input    io.Reader
	lib      *state.Library
	logger   *slog.Logger
	clock    position.Clock

	keys keyMap
	help help.Model

	sess   *session
	rec    *position.Reconciler
	bridge *viewportBridge

	vp        viewport.Model
	vpReady   bool
	layout    layout
	toc       list.Model
	showTOC   bool
	spacing   float64
	reporting bool

	width    int
	height   int
	err      error
	quitting bool
}

func newModel(opts readOptions, filename string, input io.Reader, lib *state.Library, logger *slog.Logger) model {
	return model{
		opts:     opts,
		filename: filename,
		input:    input,
		lib:      lib,
		logger:   logger,
		keys:     defaultKeyMap(),
		help:     help.New(),
		bridge:   &viewportBridge{},
		spacing:  opts.settings.ParagraphSpacing,
	}
}

func (m model) Init() tea.Cmd {
	filename, input, lib, fresh, logger := m.filename, m.input, m.lib, m.opts.fresh, m.logger
	return func() tea.Msg {
		sess, err := openSession(filename, input, lib, fresh, logger)
		return loadedMsg{sess: sess, err: err}
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case loadedMsg:
		if msg.err != nil {
			m.err = msg.err
			m.quitting = true
			return m, tea.Quit
		}
		m.sess = msg.sess
		m.bridge.setLineCount(m.sess.doc.LineCount())
		cfg := m.sess.reconcilerConfig(m.opts.settings, m.lib, m.bridge, m.logger)
		cfg.Clock = m.clock
		m.rec = position.New(cfg)
		m.toc = newTOCList(m.sess.doc.Chapters, m.width, m.height)
		m.relayout()
		m.rec.Open(m.sess.saved)
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.relayout()
		if m.rec != nil {
			m.rec.Reanchor()
		}
		return m, nil

	case jumpMsg:
		if !m.bridge.deliver(msg) {
			m.logger.Debug("stale jump dropped", "line", msg.line, "seq", msg.seq)
			return m, nil
		}
		if m.vpReady {
			m.vp.SetYOffset(m.layout.RowOf(msg.line))
		}
		return m, nil

	case reportMsg:
		m.reporting = false
		if m.rec == nil {
			return m, nil
		}
		if _, idle := m.rec.State().(position.Idle); idle {
			return m, nil
		}
		cmd := m.reportScroll()
		return m, cmd

	case tea.KeyMsg:
		if m.showTOC {
			return m.updateTOC(msg)
		}
		return m.updateReading(msg)

	case tea.MouseMsg:
		if !m.vpReady || m.showTOC {
			return m, nil
		}
		return m.scroll(msg)
	}

	return m, nil
}

func (m model) updateReading(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Quit) {
		m.quitting = true
		if m.rec != nil {
			m.rec.Close()
		}
		return m, tea.Quit
	}
	if m.rec == nil || !m.vpReady {
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.NextChapter):
		m.rec.NextChapter()
	case key.Matches(msg, m.keys.PrevChapter):
		m.rec.PrevChapter()
	case key.Matches(msg, m.keys.TOC):
		m.toc.ResetFilter()
		m.toc.Select(m.rec.Position().Chapter)
		m.showTOC = true
	case key.Matches(msg, m.keys.MoreSpacing):
		m.setSpacing(m.spacing + 1)
	case key.Matches(msg, m.keys.LessSpacing):
		m.setSpacing(m.spacing - 1)
	case key.Matches(msg, m.keys.Restart):
		m.rec.Restart()
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		m.relayout()
	case key.Matches(msg, m.keys.Home):
		m.vp.GotoTop()
		cmd := m.reportScroll()
		return m, cmd
	case key.Matches(msg, m.keys.End):
		m.vp.GotoBottom()
		cmd := m.reportScroll()
		return m, cmd
	default:
		return m.scroll(msg)
	}
	return m, nil
}

func (m model) updateTOC(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	filtering := m.toc.FilterState() == list.Filtering
	switch {
	case msg.String() == "ctrl+c":
		m.quitting = true
		m.rec.Close()
		return m, tea.Quit
	case key.Matches(msg, m.keys.Select) && !filtering:
		if item, ok := m.toc.SelectedItem().(tocItem); ok {
			m.rec.SelectTOC(item.ch.Index)
		}
		m.showTOC = false
		return m, nil
	case key.Matches(msg, m.keys.Back) && m.toc.FilterState() == list.Unfiltered,
		key.Matches(msg, m.keys.TOC) && !filtering:
		m.showTOC = false
		return m, nil
	}

	var cmd tea.Cmd
	m.toc, cmd = m.toc.Update(msg)
	return m, cmd
}

// scroll passes msg to the viewport and reports the new top line if it
// moved.
func (m model) scroll(msg tea.Msg) (tea.Model, tea.Cmd) {
	before := m.vp.YOffset
	var cmd tea.Cmd
	m.vp, cmd = m.vp.Update(msg)
	if m.vp.YOffset == before {
		return m, cmd
	}
	report := m.reportScroll()
	return m, tea.Batch(cmd, report)
}

// reportScroll reports the top visible line. A report dropped by the
// debounce is retried once the window has passed so the final resting
// line is not lost.
func (m *model) reportScroll() tea.Cmd {
	if m.rec == nil {
		return nil
	}
	if m.rec.ReportVisibleLine(m.layout.LineAt(m.vp.YOffset)) || m.reporting {
		return nil
	}
	m.reporting = true
	return tea.Tick(m.opts.settings.Debounce, func(time.Time) tea.Msg {
		return reportMsg{}
	})
}

func (m *model) setSpacing(spacing float64) {
	spacing = max(0, min(spacing, config.MaxParagraphSpacing))
	if spacing == m.spacing {
		return
	}
	m.spacing = spacing
	m.relayout()
	m.rec.Reanchor()
}

// relayout sizes the viewport and rewraps the document. The viewport
// accepts jumps once both a size and a document are known.
func (m *model) relayout() {
	if m.sess == nil || m.width <= 0 || m.height <= 0 {
		return
	}
	vpHeight := m.height - 1 - lipgloss.Height(m.help.View(m.keys))
	if vpHeight < 1 {
		vpHeight = 1
	}
	if !m.vpReady {
		m.vp = viewport.New(m.width, vpHeight)
		m.vpReady = true
	} else {
		m.vp.Width = m.width
		m.vp.Height = vpHeight
	}
	m.layout = newLayout(m.sess.doc.Lines, m.width, m.spacing)
	m.vp.SetContent(m.layout.Content())
	m.toc.SetSize(m.width-4, m.height-2)
	m.bridge.setReady(true)
}

func (m model) View() string {
	if m.quitting {
		return ""
	}
	if m.err != nil {
		return errorStyle.Render(fmt.Sprintf("Error: %v", m.err))
	}
	if m.sess == nil || !m.vpReady {
		return loadingStyle.Render("Loading…")
	}
	if m.showTOC {
		return tocStyle.Render(m.toc.View())
	}

	var sb strings.Builder
	sb.WriteString(m.statusLine())
	sb.WriteString("\n")
	sb.WriteString(m.vp.View())
	sb.WriteString("\n")
	sb.WriteString(helpStyle.Render(m.help.View(m.keys)))
	return sb.String()
}

func (m model) statusLine() string {
	doc := m.sess.doc
	pos := m.rec.Position()
	current, total := doc.Progress(pos.Line)

	status := fmt.Sprintf("%d/%d  %d%%", current, total, doc.Percent(pos.Line))
	if m.spacing >= 0.5 {
		status += fmt.Sprintf("  spacing %d", reader.BlankLines(m.spacing))
	}

	left := titleStyle.Render(doc.Title) + chapterStyle.Render(doc.Chapters.Title(pos.Chapter))
	right := statusStyle.Render(status)

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		room := m.width - lipgloss.Width(right) - 1
		if room < 0 {
			room = 0
		}
		left = ansi.Truncate(left, room, "…")
		gap = 1
	}
	return left + strings.Repeat(" ", gap) + right
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
	progOpts := []tea.ProgramOption{tea.WithAltScreen(), tea.WithMouseCellMotion()}
	if fromStdin {
		input = os.Stdin
		progOpts = append(progOpts, tea.WithInputTTY())
	}

	m := newModel(opts, filename, input, lib, logger)
	p := tea.NewProgram(m, progOpts...)
	m.bridge.setSend(p.Send)

	final, err := p.Run()
	if err != nil {
		return err
	}
	fm, ok := final.(model)
	if !ok {
		return nil
	}
	if fm.rec != nil {
		fm.rec.Close()
	}
	return fm.err
}
