package l1events

import (
	"errors"
	"fmt"
	"sort"
)

// Polarity values carried in Event.P.
const (
	PolarityOn  int8 = 1
	PolarityOff int8 = -1
)

// ErrInvalidPolarity is returned by Validate for events whose polarity is
// neither PolarityOn nor PolarityOff.
var ErrInvalidPolarity = errors.New("invalid event polarity")

// Event is a single brightness-change record. T is in microseconds.
type Event struct {
	X int32
	Y int32
	T int64
	P int8
}

// IsOn reports whether the event has ON polarity.
func (e Event) IsOn() bool { return e.P == PolarityOn }

// Pixel returns the event's pixel address.
func (e Event) Pixel() PixelKey { return PixelKey{X: e.X, Y: e.Y} }

// PixelKey addresses one sensor pixel. It is a composite map key, so
// distinct (x, y) pairs never collide regardless of sensor size.
type PixelKey struct {
	X, Y int32
}

// Less orders pixel keys by X then Y.
func (k PixelKey) Less(o PixelKey) bool {
	if k.X != o.X {
		return k.X < o.X
	}
	return k.Y < o.Y
}

// Validate checks every event polarity. It returns the index of the first
// bad event wrapped in the error.
func Validate(evs []Event) error {
	for i, e := range evs {
		if e.P != PolarityOn && e.P != PolarityOff {
			return fmt.Errorf("event %d (x=%d y=%d t=%d): %w", i, e.X, e.Y, e.T, ErrInvalidPolarity)
		}
	}
	return nil
}

// lessByTime orders events by T, breaking ties by X, Y then P.
func lessByTime(a, b Event) bool {
	if a.T != b.T {
		return a.T < b.T
	}
	if a.X != b.X {
		return a.X < b.X
	}
	if a.Y != b.Y {
		return a.Y < b.Y
	}
	return a.P < b.P
}

// SortByTime sorts evs in place by timestamp. Ties are broken by x, y and
// polarity so the result is fully deterministic.
func SortByTime(evs []Event) {
	sort.SliceStable(evs, func(i, j int) bool { return lessByTime(evs[i], evs[j]) })
}

// SortedByTime returns a sorted copy of evs, leaving evs untouched.
func SortedByTime(evs []Event) []Event {
	out := make([]Event, len(evs))
	copy(out, evs)
	SortByTime(out)
	return out
}

// IsTimeOrdered reports whether evs is non-decreasing in T.
func IsTimeOrdered(evs []Event) bool {
	for i := 1; i < len(evs); i++ {
		if evs[i].T < evs[i-1].T {
			return false
		}
	}
	return true
}

// SplitByPolarity partitions evs into ON and OFF events, preserving order.
// Events with any other polarity value are discarded.
func SplitByPolarity(evs []Event) (on, off []Event) {
	for _, e := range evs {
		switch e.P {
		case PolarityOn:
			on = append(on, e)
		case PolarityOff:
			off = append(off, e)
		}
	}
	return on, off
}

// GroupByPixel returns, for every distinct pixel, the indices into evs of
// the events at that pixel in their original order. Keys are returned
// sorted by (x, y).
func GroupByPixel(evs []Event) ([]PixelKey, map[PixelKey][]int) {
	groups := make(map[PixelKey][]int)
	for i, e := range evs {
		k := e.Pixel()
		groups[k] = append(groups[k], i)
	}
	keys := make([]PixelKey, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })
	return keys, groups
}
