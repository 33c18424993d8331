package cec

import (
	"testing"

	qt "github.com/frankban/quicktest"
)

func newTestEngine(ackHigh ...bool) (*Engine, *fakeBus, *recordingGenerator, *int, *int) {
	bus := &fakeBus{ackHigh: ackHigh}
	gen := &recordingGenerator{bus: bus}
	received, transmitted := new(int), new(int)

	e := New(Config{
		Line:       bus,
		Generator:  gen,
		OnReceive:  func() { *received++ },
		OnTransmit: func() { *transmitted++ },
	})
	return e, bus, gen, received, transmitted
}

func TestEngineReceive(t *testing.T) {
	c := qt.New(t)

	e, bus, _, received, _ := newTestEngine(false)
	c.Assert(e.Start(), qt.IsNil)
	c.Assert(bus.handler, qt.IsNotNil)

	var w edgeWriter
	w.frame([]byte{0x4F, 0x36}, false)
	w.feed(bus.handler)

	f, ok := e.Poll()
	c.Assert(ok, qt.IsTrue)
	c.Assert(f, qt.DeepEquals, Frame{0x4F, 0x36})
	c.Assert(*received, qt.Equals, 1)
	c.Assert(e.Stats().RX.Received, qt.Equals, uint32(1))

	c.Assert(e.Close(), qt.IsNil)
	c.Assert(bus.handler, qt.IsNil)
	c.Assert(bus.isDriven(), qt.IsFalse)
}

func TestEngineNegotiateFree(t *testing.T) {
	c := qt.New(t)

	// nobody pulls the ACK slot low: the poll is not acknowledged
	e, _, gen, _, transmitted := newTestEngine(true)
	c.Assert(e.Start(), qt.IsNil)

	la, claimed := e.Negotiate(AudioSystem)
	c.Assert(claimed, qt.IsTrue)
	c.Assert(la, qt.Equals, AudioSystem)
	c.Assert(e.LogicalAddress(), qt.Equals, AudioSystem)
	c.Assert(e.AckEnabled(), qt.IsTrue)
	c.Assert(gen.pulses, qt.HasLen, 11)
	c.Assert(*transmitted, qt.Equals, 1)
}

func TestEngineNegotiateInUse(t *testing.T) {
	c := qt.New(t)

	e, _, _, _, _ := newTestEngine(false)
	e.EnableAckResponse(true)

	la, claimed := e.Negotiate(AudioSystem)
	c.Assert(claimed, qt.IsFalse)
	c.Assert(la, qt.Equals, Unregistered)
	c.Assert(e.LogicalAddress(), qt.Equals, Unregistered)
	c.Assert(e.AckEnabled(), qt.IsFalse)
}

func TestEngineTransmitSuspendsReceiver(t *testing.T) {
	c := qt.New(t)

	e, bus, _, received, _ := newTestEngine(false)
	c.Assert(e.Start(), qt.IsNil)

	c.Assert(e.SendNow(Frame{0x50, 0x8F}), qt.IsNil)

	// the receiver decodes again after the transmission
	var w edgeWriter
	w.frame([]byte{0x05, 0x90, 0x00}, false)
	w.feed(bus.handler)

	_, ok := e.Poll()
	c.Assert(ok, qt.IsTrue)
	c.Assert(*received, qt.Equals, 1)
	c.Assert(e.Stats().TX.Successes, qt.Equals, uint32(1))
}
