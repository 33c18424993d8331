package cec

import "time"

// CEC bus timing, HDMI CEC 1.4 / 2.0.
// The TX values are the nominal durations generated by the encoder.
const (
	// start bit
	StartLow  = 3700 * time.Microsecond
	StartHigh = 800 * time.Microsecond

	// data bit "0": long low, short high
	Bit0Low  = 1500 * time.Microsecond
	Bit0High = 900 * time.Microsecond

	// data bit "1": short low, long high
	Bit1Low  = 600 * time.Microsecond
	Bit1High = 1800 * time.Microsecond

	// BitTotal is the nominal data bit period.
	BitTotal = 2400 * time.Microsecond
)

// RX classification windows of the measured low time (inclusive).
// They include the margins measured on real hardware.
const (
	rxStartLowMin = 3400 * time.Microsecond
	rxStartLowMax = 4200 * time.Microsecond
	rxBit0LowMin  = 1200 * time.Microsecond
	rxBit0LowMax  = 1900 * time.Microsecond
	rxBit1LowMin  = 450 * time.Microsecond
	rxBit1LowMax  = 950 * time.Microsecond
)

const (
	// IdleTime is the time the bus has to be released before a transmission starts.
	IdleTime = 5000 * time.Microsecond
	// AckHoldTime is the time the receiver holds the bus low to acknowledge a byte.
	AckHoldTime = 700 * time.Microsecond
	// AckSampleDelay is the time between the start of the ACK slot and sampling the bus.
	AckSampleDelay = 1050 * time.Microsecond

	// MaxFrameSize is the maximum count of bytes of a frame (header included).
	MaxFrameSize = 16
	// MaxRetries is the count of additional attempts of Send after a failed first attempt.
	MaxRetries = 5
)
