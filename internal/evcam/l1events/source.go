package l1events

import (
	"context"
	"io"
)

// EventSource yields time-ordered event batches. Next returns io.EOF once
// the stream is exhausted; a returned batch may be empty when no events
// fell inside the requested time slice.
type EventSource interface {
	Next(ctx context.Context) ([]Event, error)
}

// SliceSource replays an in-memory, time-ordered recording in chunks of
// DeltaT microseconds, starting at the first event's timestamp.
type SliceSource struct {
	events []Event
	deltaT int64
	pos    int
	start  int64
}

// NewSliceSource creates a source over evs. evs must be sorted by T;
// deltaT must be positive.
func NewSliceSource(evs []Event, deltaT int64) *SliceSource {
	s := &SliceSource{events: evs, deltaT: deltaT}
	if len(evs) > 0 {
		s.start = evs[0].T
	}
	return s
}

// Next returns the events in [start, start+deltaT) and advances start.
func (s *SliceSource) Next(ctx context.Context) ([]Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.pos >= len(s.events) || s.deltaT <= 0 {
		return nil, io.EOF
	}
	end := s.start + s.deltaT
	i := s.pos
	for i < len(s.events) && s.events[i].T < end {
		i++
	}
	chunk := s.events[s.pos:i]
	s.pos = i
	s.start = end
	return chunk, nil
}

// DeltaT returns the chunk duration in microseconds.
func (s *SliceSource) DeltaT() int64 { return s.deltaT }

var _ EventSource = (*SliceSource)(nil)
