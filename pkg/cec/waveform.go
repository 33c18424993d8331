package cec

import (
	"sync"
	"time"

	"cecri/pkg/port"
)

// Pulse is one bus symbol: the bus is driven low for Low and released for High.
type Pulse struct {
	Low  time.Duration
	High time.Duration
}

// StartPulse is the start bit of a frame.
var StartPulse = Pulse{Low: StartLow, High: StartHigh}

// BitPulse returns the pulse of a data bit.
func BitPulse(one bool) Pulse {
	if one {
		return Pulse{Low: Bit1Low, High: Bit1High}
	}
	return Pulse{Low: Bit0Low, High: Bit0High}
}

// EncodeByte returns the 10 pulses of one byte: 8 data bits (MSB first), the EOM bit
// and the ACK slot. The initiator always sends a released "1" in the ACK slot,
// so that a follower can pull the bus low to acknowledge.
func EncodeByte(b byte, eom bool) []Pulse {
	p := make([]Pulse, 0, 10)
	for i := 7; i >= 0; i-- {
		p = append(p, BitPulse(b>>uint(i)&1 == 1))
	}
	return append(p, BitPulse(eom), BitPulse(true))
}

// Generator is a timing generator which owns the bus while pulses are queued.
type Generator interface {
	// Put queues a pulse; it blocks while the queue is full.
	Put(Pulse)
	// Drain blocks until all queued pulses have started.
	Drain()
	// Wait blocks until the last queued pulse has finished.
	Wait()
}

// fifoDepth is the queue size of the SoftGenerator.
const fifoDepth = 4

// SoftGenerator generates pulses on a Bus from a dedicated goroutine.
// The caller can still read the bus while the generator is running.
type SoftGenerator struct {
	bus Bus
	// q is the pulse fifo.
	q chan Pulse

	gl   sync.Mutex
	cond *sync.Cond
	// queued, started and finished count the pulses.
	queued, started, finished uint64

	// quit stops the generator, done signals that run() is terminated.
	quit chan struct{}
	done chan struct{}
}

// NewSoftGenerator starts a generator on bus.
func NewSoftGenerator(bus Bus) *SoftGenerator {
	g := &SoftGenerator{
		bus:  bus,
		q:    make(chan Pulse, fifoDepth),
		quit: make(chan struct{}),
		done: make(chan struct{}),
	}
	g.cond = sync.NewCond(&g.gl)

	go g.run()
	return g
}

// Put queues a pulse.
func (g *SoftGenerator) Put(p Pulse) {
	g.gl.Lock()
	g.queued++
	g.gl.Unlock()

	g.q <- p
}

// Drain blocks until the fifo is empty and the last pulse has started.
func (g *SoftGenerator) Drain() {
	g.gl.Lock()
	defer g.gl.Unlock()

	for g.started < g.queued {
		g.cond.Wait()
	}
}

// Wait blocks until the last pulse has finished.
func (g *SoftGenerator) Wait() {
	g.gl.Lock()
	defer g.gl.Unlock()

	for g.finished < g.queued {
		g.cond.Wait()
	}
}

// Close stops the generator and releases the bus.
func (g *SoftGenerator) Close() error {
	close(g.quit)
	<-g.done
	g.bus.Release()
	return nil
}

// run generates the queued pulses until Close is called.
func (g *SoftGenerator) run() {
	defer close(g.done)

	for {
		select {
		case <-g.quit:
			return
		case p := <-g.q:
			deadline := time.Now()
			g.bus.DriveLow()
			g.step(&g.started)

			deadline = deadline.Add(p.Low)
			port.DelayUntil(deadline)
			g.bus.Release()

			port.DelayUntil(deadline.Add(p.High))
			g.step(&g.finished)
		}
	}
}

// step increments a pulse counter and wakes up the waiting callers.
func (g *SoftGenerator) step(counter *uint64) {
	g.gl.Lock()
	*counter++
	g.gl.Unlock()
	g.cond.Broadcast()
}
