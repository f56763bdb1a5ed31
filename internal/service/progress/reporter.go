package progress

import (
	"sync"

	"github.com/oshokin/game-launcher/internal/domain/install"
)

// Sink receives progress events. Implementations must not block the caller.
type Sink interface {
	Report(p install.Progress)
}

// SinkFunc adapts a plain function to the Sink interface.
type SinkFunc func(p install.Progress)

// Report calls f(p).
func (f SinkFunc) Report(p install.Progress) {
	f(p)
}

// Discard drops every event.
//
//nolint:gochecknoglobals // Stateless sink shared by callers without an observer.
var Discard Sink = SinkFunc(func(install.Progress) {})

// Reporter is a bounded, non-blocking channel of progress events.
// When the buffer is full the newest event is parked and delivered
// on the next opportunity or at Close; older parked events are replaced.
type Reporter struct {
	events chan install.Progress

	mu      sync.Mutex
	pending *install.Progress
	closed  bool
}

// NewReporter creates a reporter with the given buffer capacity (at least one).
func NewReporter(capacity int) *Reporter {
	if capacity < 1 {
		capacity = 1
	}

	return &Reporter{
		events: make(chan install.Progress, capacity),
	}
}

// Report enqueues p without blocking. It is a no-op after Close.
func (r *Reporter) Report(p install.Progress) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return
	}

	if r.pending != nil {
		select {
		case r.events <- *r.pending:
			r.pending = nil
		default:
		}
	}

	if r.pending == nil {
		select {
		case r.events <- p:
			return
		default:
		}
	}

	r.pending = &p
}

// Events returns the receive side of the channel. It is closed by Close.
func (r *Reporter) Events() <-chan install.Progress {
	return r.events
}

// Close flushes the parked event and closes the channel.
// The flush blocks until the observer has room, so an observer must be draining.
func (r *Reporter) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return
	}

	r.closed = true

	if r.pending != nil {
		r.events <- *r.pending
		r.pending = nil
	}

	close(r.events)
}

// Observe calls fn for every event until the reporter is closed.
func Observe(r *Reporter, fn func(install.Progress)) {
	for p := range r.Events() {
		fn(p)
	}
}

var _ Sink = (*Reporter)(nil)
