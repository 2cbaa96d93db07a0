package position

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/metcalfc/tread/internal/reader"
)

type jump struct {
	line int
	at   time.Time
}

type fakeViewport struct {
	mu    sync.Mutex
	clock Clock
	ready bool
	lines int
	jumps []jump
}

func (v *fakeViewport) JumpToLine(line int) JumpResult {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.jumps = append(v.jumps, jump{line: line, at: v.clock.Now()})
	if v.ready {
		return Accepted
	}
	return NotReady
}

func (v *fakeViewport) LineCount() int { return v.lines }

func (v *fakeViewport) setReady(ready bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.ready = ready
}

func (v *fakeViewport) jumpLines() []int {
	v.mu.Lock()
	defer v.mu.Unlock()
	var out []int
	for _, j := range v.jumps {
		out = append(out, j.line)
	}
	return out
}

type fakeProgress struct {
	mu    sync.Mutex
	saved []int
	err   error
}

func (p *fakeProgress) UpdateProgress(bookID string, line int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.saved = append(p.saved, line)
	return p.err
}

func (p *fakeProgress) lines() []int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]int(nil), p.saved...)
}

type fixture struct {
	clock    *ManualClock
	viewport *fakeViewport
	progress *fakeProgress
	r        *Reconciler
}

// newFixture builds a reconciler over a 50-line document with chapters
// starting at lines 0, 2 and 10.
func newFixture(t *testing.T, ready bool) *fixture {
	t.Helper()
	clock := NewManualClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	vp := &fakeViewport{clock: clock, ready: ready, lines: 50}
	progress := &fakeProgress{}
	chapters := reader.NewChapterIndex([]reader.Chapter{
		{Title: "One", StartLine: 0},
		{Title: "Two", StartLine: 2},
		{Title: "Three", StartLine: 10},
	}, 50, "book")
	r := New(Config{
		BookID:    "book",
		LineCount: 50,
		Chapters:  chapters,
		Viewport:  vp,
		Progress:  progress,
		Clock:     clock,
	})
	return &fixture{clock: clock, viewport: vp, progress: progress, r: r}
}

// open opens at line and advances past the settle tick.
func (f *fixture) open(t *testing.T, line int) {
	t.Helper()
	f.r.Open(line)
	f.clock.Advance(DefaultSettleDelay)
	if _, ok := f.r.State().(Tracking); !ok {
		t.Fatalf("state = %v, want tracking", f.r.State())
	}
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestOpenNeverReadyGivesUpAfterTenAttempts(t *testing.T) {
	f := newFixture(t, false)
	f.r.Open(12)

	if st, ok := f.r.State().(InitializingScroll); !ok || st.Target != 12 || st.RetriesLeft != 9 {
		t.Fatalf("state after first attempt = %v", f.r.State())
	}

	f.clock.Advance(99 * time.Millisecond)
	if n := len(f.viewport.jumps); n != 1 {
		t.Fatalf("attempts before first retry = %d, want 1", n)
	}

	f.clock.Advance(10 * time.Second)

	jumps := f.viewport.jumps
	if len(jumps) != DefaultRetryAttempts {
		t.Fatalf("attempts = %d, want %d", len(jumps), DefaultRetryAttempts)
	}
	for i := 1; i < len(jumps); i++ {
		if gap := jumps[i].at.Sub(jumps[i-1].at); gap != DefaultRetryDelay {
			t.Errorf("gap %d = %v, want %v", i, gap, DefaultRetryDelay)
		}
		if jumps[i].line != 12 {
			t.Errorf("attempt %d line = %d, want 12", i, jumps[i].line)
		}
	}
	if _, ok := f.r.State().(Tracking); !ok {
		t.Errorf("state = %v, want tracking", f.r.State())
	}
	if f.clock.Pending() != 0 {
		t.Errorf("pending callbacks = %d, want 0", f.clock.Pending())
	}
	if got := f.r.Position(); got != (Position{Line: 12, Chapter: 2}) {
		t.Errorf("Position = %+v", got)
	}
	if saved := f.progress.lines(); len(saved) != 0 {
		t.Errorf("restore persisted %v", saved)
	}
}

func TestOpenBecomesReadyMidRetry(t *testing.T) {
	f := newFixture(t, false)
	f.r.Open(5)
	f.clock.Advance(250 * time.Millisecond)
	f.viewport.setReady(true)
	f.clock.Advance(50 * time.Millisecond)

	if n := len(f.viewport.jumps); n != 4 {
		t.Fatalf("attempts = %d, want 4", n)
	}
	if _, ok := f.r.State().(InitializingScroll); !ok {
		t.Fatalf("state before settle = %v", f.r.State())
	}
	f.clock.Advance(DefaultSettleDelay)
	if _, ok := f.r.State().(Tracking); !ok {
		t.Fatalf("state after settle = %v", f.r.State())
	}
	f.clock.Advance(time.Second)
	if n := len(f.viewport.jumps); n != 4 {
		t.Errorf("attempts after accept = %d, want 4", n)
	}
}

func TestOpenClampsSavedLine(t *testing.T) {
	tests := []struct {
		name  string
		saved int
		want  int
	}{
		{"in range", 49, 49},
		{"past end", 9999, 0},
		{"at count", 50, 0},
		{"negative", -3, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, true)
			f.r.Open(tt.saved)
			if got := f.viewport.jumpLines(); !equalInts(got, []int{tt.want}) {
				t.Errorf("jumps = %v, want [%d]", got, tt.want)
			}
			if got := f.r.Position().Line; got != tt.want {
				t.Errorf("Position().Line = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestScrollDiscardedWhileInitializing(t *testing.T) {
	f := newFixture(t, true)
	f.r.Open(3)

	if f.r.ReportVisibleLine(30) {
		t.Error("scroll accepted before settle")
	}
	if got := f.r.Position().Line; got != 3 {
		t.Errorf("Position().Line = %d, want 3", got)
	}

	f.clock.Advance(DefaultSettleDelay)
	if !f.r.ReportVisibleLine(30) {
		t.Error("first scroll after settle dropped")
	}
}

func TestDebounce(t *testing.T) {
	f := newFixture(t, true)
	f.open(t, 0)

	if !f.r.ReportVisibleLine(20) {
		t.Fatal("first report dropped")
	}
	f.clock.Advance(100 * time.Millisecond)
	if f.r.ReportVisibleLine(25) {
		t.Error("report at +100ms accepted")
	}
	f.clock.Advance(399 * time.Millisecond)
	if f.r.ReportVisibleLine(26) {
		t.Error("report at +499ms accepted")
	}
	f.clock.Advance(time.Millisecond)
	if !f.r.ReportVisibleLine(30) {
		t.Error("report at +500ms dropped")
	}

	if got := f.progress.lines(); !equalInts(got, []int{20, 30}) {
		t.Errorf("persisted = %v, want [20 30]", got)
	}
	if got := f.r.Position(); got != (Position{Line: 30, Chapter: 2}) {
		t.Errorf("Position = %+v", got)
	}
}

func TestReportClampsLine(t *testing.T) {
	f := newFixture(t, true)
	f.open(t, 0)

	f.r.ReportVisibleLine(500)
	if got := f.r.Position(); got != (Position{Line: 49, Chapter: 2}) {
		t.Errorf("Position = %+v", got)
	}
}

func TestReportWhileIdle(t *testing.T) {
	f := newFixture(t, true)
	if f.r.ReportVisibleLine(4) {
		t.Error("report accepted while idle")
	}
	if len(f.progress.lines()) != 0 {
		t.Error("idle report persisted")
	}
}

func TestNavigation(t *testing.T) {
	tests := []struct {
		name    string
		start   int
		nav     func(r *Reconciler) bool
		ok      bool
		wantPos Position
	}{
		{"next from preface", 1, (*Reconciler).NextChapter, true, Position{Line: 2, Chapter: 1}},
		{"next at last", 12, (*Reconciler).NextChapter, false, Position{Line: 12, Chapter: 2}},
		{"prev", 12, (*Reconciler).PrevChapter, true, Position{Line: 2, Chapter: 1}},
		{"prev at first", 1, (*Reconciler).PrevChapter, false, Position{Line: 1, Chapter: 0}},
		{"go to", 0, func(r *Reconciler) bool { return r.GoToChapter(2) }, true, Position{Line: 10, Chapter: 2}},
		{"go to negative", 5, func(r *Reconciler) bool { return r.GoToChapter(-1) }, false, Position{Line: 5, Chapter: 1}},
		{"go to past end", 5, func(r *Reconciler) bool { return r.GoToChapter(3) }, false, Position{Line: 5, Chapter: 1}},
		{"toc", 30, func(r *Reconciler) bool { return r.SelectTOC(0) }, true, Position{Line: 0, Chapter: 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, true)
			f.open(t, tt.start)
			jumpsBefore := len(f.viewport.jumps)

			if got := tt.nav(f.r); got != tt.ok {
				t.Fatalf("navigation returned %v, want %v", got, tt.ok)
			}
			if got := f.r.Position(); got != tt.wantPos {
				t.Errorf("Position = %+v, want %+v", got, tt.wantPos)
			}

			saved := f.progress.lines()
			if tt.ok {
				if !equalInts(saved, []int{tt.wantPos.Line}) {
					t.Errorf("persisted = %v, want [%d]", saved, tt.wantPos.Line)
				}
				if len(f.viewport.jumps) != jumpsBefore+1 {
					t.Errorf("navigation issued %d jumps, want 1", len(f.viewport.jumps)-jumpsBefore)
				}
				if _, ok := f.r.State().(InitializingScroll); !ok {
					t.Errorf("state = %v, want initializing", f.r.State())
				}
			} else {
				if len(saved) != 0 {
					t.Errorf("no-op persisted %v", saved)
				}
				if len(f.viewport.jumps) != jumpsBefore {
					t.Error("no-op issued a jump")
				}
			}
		})
	}
}

func TestNavigationWhileIdle(t *testing.T) {
	f := newFixture(t, true)
	if f.r.NextChapter() || f.r.GoToChapter(1) || f.r.Restart() || f.r.Reanchor() {
		t.Error("navigation accepted while idle")
	}
	if len(f.viewport.jumps) != 0 {
		t.Error("idle navigation issued a jump")
	}
}

func TestNavigationCancelsPendingRetry(t *testing.T) {
	f := newFixture(t, false)
	f.r.Open(5)
	f.clock.Advance(300 * time.Millisecond)

	if !f.r.NextChapter() {
		t.Fatal("NextChapter rejected during restore")
	}
	if got := f.progress.lines(); !equalInts(got, []int{10}) {
		t.Errorf("persisted = %v, want [10]", got)
	}

	f.clock.Advance(100 * time.Millisecond)
	want := []int{5, 5, 5, 5, 10, 10}
	if got := f.viewport.jumpLines(); !equalInts(got, want) {
		t.Errorf("jumps = %v, want %v", got, want)
	}

	st, ok := f.r.State().(InitializingScroll)
	if !ok || st.Target != 10 || st.RetriesLeft != DefaultRetryAttempts-2 {
		t.Errorf("state = %v", f.r.State())
	}
}

func TestNavigationAfterAcceptSupersedesSettle(t *testing.T) {
	f := newFixture(t, true)
	f.r.Open(5)
	f.viewport.setReady(false)
	f.r.GoToChapter(2)

	f.clock.Advance(DefaultSettleDelay)
	if _, ok := f.r.State().(InitializingScroll); !ok {
		t.Errorf("stale settle moved state to %v", f.r.State())
	}
}

func TestClose(t *testing.T) {
	f := newFixture(t, true)
	f.open(t, 0)
	f.r.ReportVisibleLine(17)

	f.r.Close()
	if _, ok := f.r.State().(Idle); !ok {
		t.Fatalf("state = %v, want idle", f.r.State())
	}
	if got := f.progress.lines(); !equalInts(got, []int{17, 17}) {
		t.Errorf("persisted = %v, want [17 17]", got)
	}

	f.r.Close()
	if got := len(f.progress.lines()); got != 2 {
		t.Errorf("second Close persisted again")
	}
}

func TestCloseCancelsRestore(t *testing.T) {
	f := newFixture(t, false)
	f.r.Open(8)
	f.r.Close()
	f.clock.Advance(5 * time.Second)

	if n := len(f.viewport.jumps); n != 1 {
		t.Errorf("attempts after close = %d, want 1", n)
	}
	if _, ok := f.r.State().(Idle); !ok {
		t.Errorf("state = %v, want idle", f.r.State())
	}
}

func TestRestartAndReanchor(t *testing.T) {
	f := newFixture(t, true)
	f.open(t, 30)

	if !f.r.Reanchor() {
		t.Fatal("Reanchor rejected")
	}
	if got := f.viewport.jumpLines(); !equalInts(got, []int{30, 30}) {
		t.Errorf("jumps = %v, want [30 30]", got)
	}
	if len(f.progress.lines()) != 0 {
		t.Error("Reanchor persisted")
	}

	if !f.r.Restart() {
		t.Fatal("Restart rejected")
	}
	if got := f.r.Position(); got != (Position{}) {
		t.Errorf("Position = %+v, want zero", got)
	}
	if got := f.progress.lines(); !equalInts(got, []int{0}) {
		t.Errorf("persisted = %v, want [0]", got)
	}
}

func TestOnChange(t *testing.T) {
	f := newFixture(t, true)
	var seen []Position
	f.r.cfg.OnChange = func(p Position) {
		// Calling back into the reconciler must not deadlock.
		_ = f.r.Position()
		seen = append(seen, p)
	}

	f.open(t, 3)
	f.r.ReportVisibleLine(11)
	f.r.PrevChapter()

	want := []Position{{3, 1}, {11, 2}, {2, 1}}
	if len(seen) != len(want) {
		t.Fatalf("changes = %+v, want %+v", seen, want)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Errorf("change %d = %+v, want %+v", i, seen[i], want[i])
		}
	}
}

func TestPersistErrorIsNotFatal(t *testing.T) {
	f := newFixture(t, true)
	f.progress.err = errors.New("disk full")
	f.open(t, 0)

	if !f.r.ReportVisibleLine(4) {
		t.Fatal("report dropped")
	}
	if got := f.r.Position().Line; got != 4 {
		t.Errorf("Position().Line = %d, want 4", got)
	}
}

func TestLineCountFromViewport(t *testing.T) {
	clock := NewManualClock(time.Unix(0, 0))
	vp := &fakeViewport{clock: clock, ready: true, lines: 7}
	r := New(Config{Viewport: vp, Clock: clock})
	r.Open(6)
	if got := vp.jumpLines(); !equalInts(got, []int{6}) {
		t.Errorf("jumps = %v, want [6]", got)
	}
	r.Open(7)
	if got := r.Position().Line; got != 0 {
		t.Errorf("Position().Line = %d, want 0", got)
	}
}

func TestManualClockStop(t *testing.T) {
	clock := NewManualClock(time.Unix(0, 0))
	fired := 0
	timer := clock.AfterFunc(time.Second, func() { fired++ })
	clock.AfterFunc(2*time.Second, func() { fired++ })

	if !timer.Stop() {
		t.Error("Stop on pending timer returned false")
	}
	if timer.Stop() {
		t.Error("second Stop returned true")
	}
	clock.Advance(3 * time.Second)
	if fired != 1 {
		t.Errorf("fired = %d, want 1", fired)
	}
	if got := clock.Now(); !got.Equal(time.Unix(3, 0)) {
		t.Errorf("Now = %v", got)
	}
}

// blockingProgress holds the save of one line until released.
type blockingProgress struct {
	fakeProgress
	blockOn int
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func (p *blockingProgress) UpdateProgress(bookID string, line int) error {
	if line == p.blockOn {
		p.once.Do(func() { close(p.entered) })
		<-p.release
	}
	return p.fakeProgress.UpdateProgress(bookID, line)
}

func TestSavesFollowCommitOrder(t *testing.T) {
	clock := NewManualClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	progress := &blockingProgress{
		blockOn: 20,
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	r := New(Config{
		BookID:    "book",
		LineCount: 50,
		Chapters: reader.NewChapterIndex([]reader.Chapter{
			{Title: "One", StartLine: 0},
			{Title: "Two", StartLine: 2},
			{Title: "Three", StartLine: 10},
		}, 50, "book"),
		Viewport: &fakeViewport{clock: clock, ready: true, lines: 50},
		Progress: progress,
		Clock:    clock,
	})
	r.Open(12)
	clock.Advance(DefaultSettleDelay)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		r.ReportVisibleLine(20)
	}()
	<-progress.entered
	go func() {
		defer wg.Done()
		r.PrevChapter()
	}()
	time.Sleep(20 * time.Millisecond)
	close(progress.release)
	wg.Wait()

	if got := r.Position(); got != (Position{Line: 2, Chapter: 1}) {
		t.Fatalf("Position = %+v, want line 2 in chapter 1", got)
	}
	if saved := progress.lines(); !equalInts(saved, []int{20, 2}) {
		t.Errorf("saved = %v, want [20 2]", saved)
	}
}

func TestNilViewportNeverReady(t *testing.T) {
	clock := NewManualClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	r := New(Config{LineCount: 50, Clock: clock})

	r.Open(5)
	if _, ok := r.State().(InitializingScroll); !ok {
		t.Fatalf("state = %v, want initializing", r.State())
	}
	clock.Advance(time.Duration(DefaultRetryAttempts) * DefaultRetryDelay)
	if _, ok := r.State().(Tracking); !ok {
		t.Errorf("state = %v, want tracking after retries", r.State())
	}
	if got := r.Position().Line; got != 5 {
		t.Errorf("Position().Line = %d, want 5", got)
	}
}
