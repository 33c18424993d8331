package cec

import "time"

// Symbol is a bus symbol, derived from the low time of a pulse.
type Symbol int

const (
	// Zero is a logical 0 data bit.
	Zero Symbol = iota
	// One is a logical 1 data bit.
	One
	// Start is the start bit of a frame.
	Start
	// Invalid is a pulse outside of all windows, it must never be used as data.
	Invalid
)

// Classify maps the measured low time of a pulse to a Symbol.
func Classify(low time.Duration) Symbol {
	switch {
	case low >= rxStartLowMin && low <= rxStartLowMax:
		return Start
	case low >= rxBit0LowMin && low <= rxBit0LowMax:
		return Zero
	case low >= rxBit1LowMin && low <= rxBit1LowMax:
		return One
	default:
		return Invalid
	}
}

func (s Symbol) String() string {
	switch s {
	case Zero:
		return "0"
	case One:
		return "1"
	case Start:
		return "start"
	default:
		return "invalid"
	}
}
