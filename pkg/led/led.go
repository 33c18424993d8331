// Package led flashes the active low indicator LEDs of the bridge.
package led

import (
	"sync"
	"time"

	"github.com/womat/debug"
)

// Channel is an indicator LED.
type Channel int

const (
	CECRx Channel = iota
	CECTx
	RITx

	channels
)

// FlashTime is the time a LED is lit by Flash.
const FlashTime = 80 * time.Millisecond

// Line is the output line of a LED.
type Line interface {
	Set(high bool) error
}

// Indicator holds the LED lines, a nil Indicator is disabled.
type Indicator struct {
	lines [channels]Line
	il    sync.Mutex
	// timers switch off the LEDs.
	timers [channels]*time.Timer
}

// New returns an indicator with all LEDs off.
// If one of the lines is nil, the indicator is disabled and New returns nil.
func New(rx, tx, ri Line) *Indicator {
	if rx == nil || tx == nil || ri == nil {
		return nil
	}

	i := Indicator{lines: [channels]Line{rx, tx, ri}}
	for _, l := range i.lines {
		off(l)
	}
	return &i
}

// Flash lights the LED for FlashTime, it never blocks.
func (i *Indicator) Flash(ch Channel) {
	if i == nil || ch < 0 || ch >= channels {
		return
	}

	i.il.Lock()
	defer i.il.Unlock()

	l := i.lines[ch]
	on(l)

	if t := i.timers[ch]; t != nil {
		t.Stop()
	}
	i.timers[ch] = time.AfterFunc(FlashTime, func() { off(l) })
}

// Close stops the timers and switches all LEDs off.
func (i *Indicator) Close() error {
	if i == nil {
		return nil
	}

	i.il.Lock()
	defer i.il.Unlock()

	for ch, l := range i.lines {
		if t := i.timers[ch]; t != nil {
			t.Stop()
		}
		off(l)
	}
	return nil
}

// active low: low lights the LED
func on(l Line) {
	if err := l.Set(false); err != nil {
		debug.ErrorLog.Printf("led on: %v", err)
	}
}

func off(l Line) {
	if err := l.Set(true); err != nil {
		debug.ErrorLog.Printf("led off: %v", err)
	}
}
