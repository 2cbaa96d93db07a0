// Package position keeps one authoritative reading position for an open
// document, reconciling the saved position, chapter navigation and viewport
// scroll feedback.
package position

import (
	"io"
	"log/slog"
	"sync"
	"time"
)

// Default timings.
const (
	DefaultRetryDelay    = 100 * time.Millisecond
	DefaultRetryAttempts = 10
	DefaultDebounce      = 500 * time.Millisecond
	DefaultSettleDelay   = 16 * time.Millisecond
)

// JumpResult is the viewport's answer to a jump request.
type JumpResult int

const (
	NotReady JumpResult = iota
	Accepted
)

func (r JumpResult) String() string {
	if r == Accepted {
		return "accepted"
	}
	return "not-ready"
}

// Viewport is the display surface showing the document.
type Viewport interface {
	// JumpToLine scrolls so that line is visible. It must not block on
	// the reconciler.
	JumpToLine(line int) JumpResult
	LineCount() int
}

// Chapters answers line and chapter lookups. reader.ChapterIndex
// implements it.
type Chapters interface {
	Len() int
	ChapterAt(line int) int
	StartLineOf(k int) int
}

// ProgressSink persists the reading line for a book.
type ProgressSink interface {
	UpdateProgress(bookID string, line int) error
}

// Position is a line and the chapter containing it.
type Position struct {
	Line    int
	Chapter int
}

// Config wires a Reconciler to its collaborators. Zero timings take the
// defaults.
type Config struct {
	BookID    string
	LineCount int
	Chapters  Chapters
	Viewport  Viewport
	Progress  ProgressSink
	Clock     Clock
	Logger    *slog.Logger

	RetryDelay    time.Duration
	RetryAttempts int
	Debounce      time.Duration
	SettleDelay   time.Duration

	// OnChange is called with every new position, outside the lock.
	OnChange func(Position)
}

// Reconciler is the position state machine for one open document. It is
// safe for concurrent use. Collaborators are always called without mu
// held.
type Reconciler struct {
	cfg Config
	log *slog.Logger

	// commitMu is held from a position change until it has been written to
	// Progress, so saves happen in the order positions were committed.
	commitMu sync.Mutex

	mu      sync.Mutex
	state   State
	pos     Position
	gen     uint64
	pending Timer
}

// New returns an idle Reconciler. A nil Viewport is never ready.
func New(cfg Config) *Reconciler {
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = DefaultRetryDelay
	}
	if cfg.RetryAttempts <= 0 {
		cfg.RetryAttempts = DefaultRetryAttempts
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	if cfg.SettleDelay <= 0 {
		cfg.SettleDelay = DefaultSettleDelay
	}
	if cfg.LineCount < 1 && cfg.Viewport != nil {
		cfg.LineCount = cfg.Viewport.LineCount()
	}
	if cfg.LineCount < 1 {
		cfg.LineCount = 1
	}
	if cfg.Clock == nil {
		cfg.Clock = RealClock()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Reconciler{
		cfg:   cfg,
		log:   logger.With("book", cfg.BookID),
		state: Idle{},
	}
}

// Open starts a session at the saved line. Lines outside the document
// restart at 0.
func (r *Reconciler) Open(savedLine int) {
	r.move(false, func() (int, bool) {
		if savedLine < 0 || savedLine >= r.cfg.LineCount {
			if savedLine != 0 {
				r.log.Debug("saved line out of range", "line", savedLine, "lines", r.cfg.LineCount)
			}
			return 0, true
		}
		return savedLine, true
	})
}

// ReportVisibleLine feeds a scroll observation. It reports whether the
// observation was accepted; during a pending jump or within the debounce
// window it is dropped.
func (r *Reconciler) ReportVisibleLine(line int) bool {
	r.commitMu.Lock()
	r.mu.Lock()
	tr, ok := r.state.(Tracking)
	now := r.cfg.Clock.Now()
	if !ok || !tr.LastAcceptedAt.IsZero() && now.Sub(tr.LastAcceptedAt) < r.cfg.Debounce {
		r.mu.Unlock()
		r.commitMu.Unlock()
		return false
	}
	line = r.clampLine(line)
	r.state = Tracking{LastAcceptedAt: now}
	r.pos = Position{Line: line, Chapter: r.chapterAt(line)}
	pos := r.pos
	r.mu.Unlock()

	r.persist(pos.Line)
	r.commitMu.Unlock()
	r.notify(pos)
	return true
}

// PrevChapter moves to the start of the previous chapter.
func (r *Reconciler) PrevChapter() bool {
	return r.navigate(func(cur, _ int) (int, bool) {
		return cur - 1, cur > 0
	})
}

// NextChapter moves to the start of the next chapter.
func (r *Reconciler) NextChapter() bool {
	return r.navigate(func(cur, n int) (int, bool) {
		return cur + 1, cur+1 < n
	})
}

// GoToChapter moves to the start of chapter k.
func (r *Reconciler) GoToChapter(k int) bool {
	return r.navigate(func(_, n int) (int, bool) {
		return k, k >= 0 && k < n
	})
}

// SelectTOC moves to the chapter chosen in the table of contents.
func (r *Reconciler) SelectTOC(k int) bool {
	return r.GoToChapter(k)
}

// Restart moves to line 0.
func (r *Reconciler) Restart() bool {
	return r.move(true, func() (int, bool) {
		return 0, !r.idleLocked()
	})
}

// Reanchor jumps back to the current line, for when the display was
// rebuilt underneath it. Nothing is persisted.
func (r *Reconciler) Reanchor() bool {
	return r.move(false, func() (int, bool) {
		return r.pos.Line, !r.idleLocked()
	})
}

// Close persists the current line and returns to Idle. Pending callbacks
// become no-ops.
func (r *Reconciler) Close() {
	r.commitMu.Lock()
	defer r.commitMu.Unlock()

	r.mu.Lock()
	if r.idleLocked() {
		r.mu.Unlock()
		return
	}
	r.bumpLocked()
	r.state = Idle{}
	line := r.pos.Line
	r.mu.Unlock()

	r.persist(line)
}

// Position returns the current position.
func (r *Reconciler) Position() Position {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pos
}

// State returns the current state.
func (r *Reconciler) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

func (r *Reconciler) idleLocked() bool {
	_, idle := r.state.(Idle)
	return idle
}

func (r *Reconciler) navigate(pick func(current, count int) (int, bool)) bool {
	return r.move(true, func() (int, bool) {
		if r.idleLocked() {
			return 0, false
		}
		k, ok := pick(r.pos.Chapter, r.chapterCount())
		if !ok {
			return 0, false
		}
		return r.clampLine(r.startLineOf(k)), true
	})
}

// move sets the position to the line chosen by target and enters
// InitializingScroll with a fresh generation. target runs with mu held;
// returning false leaves everything unchanged.
func (r *Reconciler) move(persist bool, target func() (int, bool)) bool {
	r.commitMu.Lock()
	r.mu.Lock()
	line, ok := target()
	if !ok {
		r.mu.Unlock()
		r.commitMu.Unlock()
		return false
	}
	gen := r.bumpLocked()
	r.pos = Position{Line: line, Chapter: r.chapterAt(line)}
	r.state = InitializingScroll{Target: line, RetriesLeft: r.cfg.RetryAttempts}
	pos := r.pos
	r.mu.Unlock()

	if persist {
		r.persist(pos.Line)
	}
	r.commitMu.Unlock()
	r.notify(pos)
	r.attempt(gen)
	return true
}

// attempt issues one jump for generation gen.
func (r *Reconciler) attempt(gen uint64) {
	r.mu.Lock()
	st, ok := r.state.(InitializingScroll)
	if !ok || gen != r.gen {
		r.mu.Unlock()
		r.log.Debug("stale jump attempt", "gen", gen)
		return
	}
	r.mu.Unlock()

	res := NotReady
	if r.cfg.Viewport != nil {
		res = r.cfg.Viewport.JumpToLine(st.Target)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if gen != r.gen {
		return
	}
	if res == Accepted {
		r.pending = r.cfg.Clock.AfterFunc(r.cfg.SettleDelay, func() { r.settle(gen) })
		return
	}

	st.RetriesLeft--
	if st.RetriesLeft <= 0 {
		r.log.Debug("viewport never ready, giving up", "target", st.Target)
		r.state = Tracking{}
		return
	}
	r.state = st
	r.pending = r.cfg.Clock.AfterFunc(r.cfg.RetryDelay, func() { r.attempt(gen) })
}

func (r *Reconciler) settle(gen uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if gen != r.gen {
		return
	}
	if _, ok := r.state.(InitializingScroll); ok {
		r.state = Tracking{}
	}
}

// bumpLocked invalidates every scheduled callback and returns the new
// generation.
func (r *Reconciler) bumpLocked() uint64 {
	if r.pending != nil {
		r.pending.Stop()
		r.pending = nil
	}
	r.gen++
	return r.gen
}

func (r *Reconciler) persist(line int) {
	if r.cfg.Progress == nil || r.cfg.BookID == "" {
		return
	}
	if err := r.cfg.Progress.UpdateProgress(r.cfg.BookID, line); err != nil {
		r.log.Warn("save progress", "line", line, "err", err)
	}
}

func (r *Reconciler) notify(pos Position) {
	if r.cfg.OnChange != nil {
		r.cfg.OnChange(pos)
	}
}

func (r *Reconciler) chapterAt(line int) int {
	if r.cfg.Chapters == nil {
		return 0
	}
	return r.cfg.Chapters.ChapterAt(line)
}

func (r *Reconciler) startLineOf(k int) int {
	if r.cfg.Chapters == nil {
		return 0
	}
	return r.cfg.Chapters.StartLineOf(k)
}

func (r *Reconciler) chapterCount() int {
	if r.cfg.Chapters == nil {
		return 1
	}
	return r.cfg.Chapters.Len()
}

func (r *Reconciler) clampLine(line int) int {
	if line < 0 {
		return 0
	}
	if line >= r.cfg.LineCount {
		return r.cfg.LineCount - 1
	}
	return line
}
