package cec

import (
	"os"
	"sync"
	"time"

	"cecri/pkg/port"

	"github.com/womat/debug"
)

// fakeBus is an open drain line without hardware.
// While ackSlot is true, Read returns the next scripted ACK level.
type fakeBus struct {
	bl sync.Mutex
	// driven is true while the bus is driven low by us.
	driven bool
	// pulled is true while another device pulls the bus low.
	pulled bool
	// ackSlot is true between Drain and the next Put of the generator.
	ackSlot bool
	// ackHigh holds the bus levels sampled in the ACK slots; the last one is repeated.
	ackHigh []bool

	drives   int
	releases int
	handler  func(port.Event)
}

func (b *fakeBus) DriveLow() {
	b.bl.Lock()
	defer b.bl.Unlock()
	b.driven = true
	b.drives++
}

func (b *fakeBus) Release() {
	b.bl.Lock()
	defer b.bl.Unlock()
	b.driven = false
	b.releases++
}

func (b *fakeBus) Read() bool {
	b.bl.Lock()
	defer b.bl.Unlock()

	if b.ackSlot {
		high := b.ackHigh[0]
		if len(b.ackHigh) > 1 {
			b.ackHigh = b.ackHigh[1:]
		}
		b.ackSlot = false
		return high
	}
	return !b.driven && !b.pulled
}

func (b *fakeBus) Watch(handler func(port.Event)) error {
	b.bl.Lock()
	defer b.bl.Unlock()
	b.handler = handler
	return nil
}

func (b *fakeBus) Unwatch() {
	b.bl.Lock()
	defer b.bl.Unlock()
	b.handler = nil
}

func (b *fakeBus) isDriven() bool {
	b.bl.Lock()
	defer b.bl.Unlock()
	return b.driven
}

func (b *fakeBus) counts() (drives, releases int) {
	b.bl.Lock()
	defer b.bl.Unlock()
	return b.drives, b.releases
}

func (b *fakeBus) setAckSlot(v bool) {
	b.bl.Lock()
	defer b.bl.Unlock()
	b.ackSlot = v
}

// recordingGenerator records the pulses instead of generating them.
type recordingGenerator struct {
	bus    *fakeBus
	pulses []Pulse
	drains int
}

func (g *recordingGenerator) Put(p Pulse) {
	g.bus.setAckSlot(false)
	g.pulses = append(g.pulses, p)
}

func (g *recordingGenerator) Drain() {
	g.drains++
	g.bus.setAckSlot(true)
}

func (g *recordingGenerator) Wait() {
	g.bus.setAckSlot(false)
}

// countingSuspender counts the calls of Suspend and Resume.
type countingSuspender struct {
	suspends, resumes int
}

func (s *countingSuspender) Suspend() { s.suspends++ }
func (s *countingSuspender) Resume()  { s.resumes++ }

// edgeWriter converts pulses to the edges seen by a receiver.
type edgeWriter struct {
	t      time.Duration
	events []port.Event
}

// pulse appends the falling and rising edge of p and advances the time by the full pulse.
func (w *edgeWriter) pulse(p Pulse) {
	w.events = append(w.events,
		port.Event{Type: port.FallingEdge, Timestamp: w.t},
		port.Event{Type: port.RisingEdge, Timestamp: w.t + p.Low})
	w.t += p.Low + p.High
}

// frame appends the edges of a complete frame. If ack is true, the edges of
// the follower's ACK hold are appended after the ACK slot of every byte.
func (w *edgeWriter) frame(f []byte, ack bool) {
	w.pulse(StartPulse)
	for i, b := range f {
		pulses := EncodeByte(b, i == len(f)-1)
		for _, p := range pulses[:9] {
			w.pulse(p)
		}

		slot := pulses[9]
		start := w.t
		w.pulse(slot)
		if ack {
			hold := start + slot.Low + 20*time.Microsecond
			w.events = append(w.events,
				port.Event{Type: port.FallingEdge, Timestamp: hold},
				port.Event{Type: port.RisingEdge, Timestamp: hold + AckHoldTime})
		}
	}
	w.t += 10 * BitTotal
}

func (w *edgeWriter) feed(handler func(port.Event)) {
	for _, evt := range w.events {
		handler(evt)
	}
	w.events = nil
}

func init() {
	debug.SetDebug(os.Stderr, debug.Standard)
}
