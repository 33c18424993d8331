// Package port holds the definition of a physical port
package port

import "time"

// EventType indicates the type of change to the line level.
type EventType int

const (
	_ EventType = iota
	// RisingEdge indicates a low to high transition (bus released).
	RisingEdge
	// FallingEdge indicates a high to low transition (bus pulled down).
	FallingEdge
)

// Event is a single edge detected on a line.
type Event struct {
	// Timestamp indicates the time the event was detected.
	Timestamp time.Duration
	// The type of state change event this structure represents.
	Type EventType
}

// String returns the edge name.
func (t EventType) String() string {
	switch t {
	case RisingEdge:
		return "rising"
	case FallingEdge:
		return "falling"
	default:
		return "none"
	}
}
