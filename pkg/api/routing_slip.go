package api

import (
	"bytes"
	"encoding/gob"
	"slices"
)

// RoutingSlip is an ordered itinerary of step names with a cursor.
//
// The cursor only moves forward and saturates at the itinerary length.
type RoutingSlip struct {
	itinerary []string
	cursor    int
}

// NewRoutingSlip returns a slip positioned at the first step.
func NewRoutingSlip(steps ...string) *RoutingSlip {
	return &RoutingSlip{itinerary: slices.Clone(steps)}
}

// CurrentStep returns the name of the step at the cursor. ok is false once
// the itinerary is exhausted.
func (s *RoutingSlip) CurrentStep() (name string, ok bool) {
	if s.cursor >= len(s.itinerary) {
		return "", false
	}
	return s.itinerary[s.cursor], true
}

// Advance moves the cursor to the next step. It is a no-op when the slip is
// already exhausted.
func (s *RoutingSlip) Advance() {
	if s.cursor < len(s.itinerary) {
		s.cursor++
	}
}

// Cursor returns the current position.
func (s *RoutingSlip) Cursor() int { return s.cursor }

// Itinerary returns a copy of the step names.
func (s *RoutingSlip) Itinerary() []string { return slices.Clone(s.itinerary) }

// Done reports whether every step has been visited.
func (s *RoutingSlip) Done() bool { return s.cursor >= len(s.itinerary) }

type routingSlipWire struct {
	Itinerary []string
	Cursor    int
}

// GobEncode lets a slip travel inside persisted context snapshots.
func (s *RoutingSlip) GobEncode() ([]byte, error) {
	var buf bytes.Buffer
	err := gob.NewEncoder(&buf).Encode(routingSlipWire{Itinerary: s.itinerary, Cursor: s.cursor})
	return buf.Bytes(), err
}

func (s *RoutingSlip) GobDecode(data []byte) error {
	var w routingSlipWire
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&w); err != nil {
		return err
	}
	s.itinerary, s.cursor = w.Itinerary, min(max(w.Cursor, 0), len(w.Itinerary))
	return nil
}
