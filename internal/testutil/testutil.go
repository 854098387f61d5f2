// Package testutil provides shared test utilities and fixtures.
//
// This package centralises common test helpers to reduce code duplication
// across test files and improve test maintainability.
package testutil

import (
	"testing"

	"github.com/Harrison-Oatman/EventCamProcessing/internal/evcam/l1events"
)

// AssertNoError fails the test if err is not nil.
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil.
func AssertError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

// ArrayEvents builds an event slice from (x, y, t, p) rows.
func ArrayEvents(rows ...[4]int64) []l1events.Event {
	evs := make([]l1events.Event, len(rows))
	for i, r := range rows {
		evs[i] = l1events.Event{X: int32(r[0]), Y: int32(r[1]), T: r[2], P: int8(r[3])}
	}
	return evs
}

// PixelTrain returns n ON-or-OFF events at one pixel spaced step
// microseconds apart, starting at t0.
func PixelTrain(x, y int32, t0, step int64, n int, p int8) []l1events.Event {
	evs := make([]l1events.Event, n)
	for i := range evs {
		evs[i] = l1events.Event{X: x, Y: y, T: t0 + int64(i)*step, P: p}
	}
	return evs
}

// HasPixel reports whether any event in evs lies at (x, y).
func HasPixel(evs []l1events.Event, x, y int32) bool {
	for _, e := range evs {
		if e.X == x && e.Y == y {
			return true
		}
	}
	return false
}

// Square returns ON events covering a size x size square with its top-left
// corner at (x0, y0), all stamped t.
func Square(x0, y0, size int32, t int64) []l1events.Event {
	evs := make([]l1events.Event, 0, size*size)
	for dy := int32(0); dy < size; dy++ {
		for dx := int32(0); dx < size; dx++ {
			evs = append(evs, l1events.Event{X: x0 + dx, Y: y0 + dy, T: t, P: l1events.PolarityOn})
		}
	}
	return evs
}
