package main

// lineReporter passes top-line changes from a polled view to the
// reconciler. A changed line stays pending until a report of it is
// accepted, so a line dropped inside the debounce window is offered again
// on a later poll.
type lineReporter struct {
	seen    int
	pending bool
}

// observe records the line now at the top of the view and reports it if it
// has not been accepted yet. It returns true when a report was accepted.
func (r *lineReporter) observe(line int, report func(int) bool) bool {
	if line != r.seen {
		r.seen = line
		r.pending = true
	}
	if !r.pending || !report(line) {
		return false
	}
	r.pending = false
	return true
}
