package l2window

import (
	"errors"

	"github.com/Harrison-Oatman/EventCamProcessing/internal/evcam/l1events"
)

// ErrClosed is returned by Push once the accumulator has been closed.
var ErrClosed = errors.New("accumulator closed")

// Accumulate appends chunk to window and drops every event older than
// retentionUs before the newest event. The cutoff is taken from the last
// element after concatenation; no re-sort is performed, so callers must
// supply chunks whose last timestamp is not older than the window's.
//
// An empty window returns chunk unchanged.
func Accumulate(window, chunk []l1events.Event, retentionUs int64) []l1events.Event {
	if len(window) == 0 {
		return chunk
	}
	n := len(window) + len(chunk)
	var last int64
	if len(chunk) > 0 {
		last = chunk[len(chunk)-1].T
	} else {
		last = window[len(window)-1].T
	}
	cutoff := last - retentionUs

	out := make([]l1events.Event, 0, n)
	for _, e := range window {
		if e.T >= cutoff {
			out = append(out, e)
		}
	}
	for _, e := range chunk {
		if e.T >= cutoff {
			out = append(out, e)
		}
	}
	return out
}

// Accumulator owns a rolling window between Push calls.
type Accumulator struct {
	retentionUs int64
	window      []l1events.Event
	closed      bool

	pushes int
}

// NewAccumulator creates an accumulator retaining retentionUs of history.
func NewAccumulator(retentionUs int64) *Accumulator {
	return &Accumulator{retentionUs: retentionUs}
}

// Push folds chunk into the window and returns the updated window. The
// returned slice must be treated as read-only; it is replaced, not
// mutated, by later pushes.
func (a *Accumulator) Push(chunk []l1events.Event) ([]l1events.Event, error) {
	if a.closed {
		opsf("Push after Close dropped %d events", len(chunk))
		return nil, ErrClosed
	}
	a.window = Accumulate(a.window, chunk, a.retentionUs)
	a.pushes++
	tracef("push %d: chunk=%d window=%d", a.pushes, len(chunk), len(a.window))
	return a.window, nil
}

// Window returns the current window without modifying it.
func (a *Accumulator) Window() []l1events.Event { return a.window }

// Retention returns the configured retention in microseconds.
func (a *Accumulator) Retention() int64 { return a.retentionUs }

// Flush returns the final window and resets the accumulator to empty. A
// flushed accumulator may be pushed to again; use Close to end the stream.
func (a *Accumulator) Flush() []l1events.Event {
	w := a.window
	a.window = nil
	if len(w) > 0 {
		diagf("flushed final window: %d events spanning [%d, %d] after %d pushes",
			len(w), w[0].T, w[len(w)-1].T, a.pushes)
	}
	return w
}

// Close flushes and marks the accumulator closed. It returns the final
// window. Closing twice returns nil.
func (a *Accumulator) Close() []l1events.Event {
	if a.closed {
		return nil
	}
	w := a.Flush()
	a.closed = true
	return w
}

// Closed reports whether Close has been called.
func (a *Accumulator) Closed() bool { return a.closed }
