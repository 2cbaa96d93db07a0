package position

import (
	"fmt"
	"time"
)

// State is the reconciler's current phase: Idle, InitializingScroll or
// Tracking.
type State interface {
	isState()
	String() string
}

// Idle means no document is open.
type Idle struct{}

// InitializingScroll means the viewport has not yet confirmed a jump to
// Target. Scroll feedback is ignored until it does or retries run out.
type InitializingScroll struct {
	Target      int
	RetriesLeft int
}

// Tracking means scroll feedback drives the position. LastAcceptedAt is
// zero until the first report is accepted.
type Tracking struct {
	LastAcceptedAt time.Time
}

func (Idle) isState()               {}
func (InitializingScroll) isState() {}
func (Tracking) isState()           {}

func (Idle) String() string { return "idle" }

func (s InitializingScroll) String() string {
	return fmt.Sprintf("initializing(target=%d, retries=%d)", s.Target, s.RetriesLeft)
}

func (Tracking) String() string { return "tracking" }
