package cec

import "cecri/pkg/port"

// Bus is the pseudo open drain driver of the shared CEC line.
// The line is either driven low or released, a pull-up supplies the high level.
type Bus interface {
	// DriveLow pulls the bus low (output low).
	DriveLow()
	// Release returns the pin to high impedance (input).
	Release()
	// Read returns the bus level, true is high.
	// Read must work while a waveform generator controls the pin direction.
	Read() bool
}

// Line is a Bus which also reports the edges of the bus.
type Line interface {
	Bus
	// Watch calls handler for every edge of the line.
	// There can only be one watcher on the line at a time.
	Watch(handler func(port.Event)) error
	// Unwatch removes the watch from the line.
	Unwatch()
}
