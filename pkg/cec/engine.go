// Package cec is the HDMI-CEC bus engine: bit accurate receiving and transmitting
// of frames on a shared open drain line, acknowledging and logical address claiming.
package cec

import (
	"sync"

	"github.com/womat/debug"
)

// Config defines the collaborators of an Engine.
type Config struct {
	// Line is the CEC bus.
	Line Line
	// Generator generates the TX waveforms. If nil, a SoftGenerator on Line is used.
	Generator Generator
	// Lenient keeps the decode state on invalid symbols (reference behaviour)
	// instead of discarding the partial frame.
	Lenient bool
	// OnReceive is called after a frame was put to the mailbox. It must not block.
	OnReceive func()
	// OnTransmit is called at every transmission attempt. It must not block.
	OnTransmit func()
}

// Engine binds decoder, encoder and mailbox to one bus line.
type Engine struct {
	line    Line
	mailbox *Mailbox
	rx      *Decoder
	tx      *Encoder
	// soft is the generator created by the engine, it's stopped on Close.
	soft *SoftGenerator

	el      sync.Mutex
	started bool
}

// Stats are the counters of an engine.
type Stats struct {
	RX DecoderStats
	TX EncoderStats
}

// New returns an engine; the bus is released and the decoder is not yet watching the line.
func New(c Config) *Engine {
	e := Engine{
		line:    c.Line,
		mailbox: &Mailbox{},
	}

	gen := c.Generator
	if gen == nil {
		e.soft = NewSoftGenerator(c.Line)
		gen = e.soft
	}

	c.Line.Release()
	e.rx = NewDecoder(c.Line, e.mailbox, c.Lenient, c.OnReceive)
	e.tx = NewEncoder(c.Line, gen, e.rx, c.OnTransmit)
	return &e
}

// Start watches the line and starts decoding.
func (e *Engine) Start() error {
	e.el.Lock()
	defer e.el.Unlock()

	if e.started {
		return nil
	}

	if err := e.line.Watch(e.rx.HandleEvent); err != nil {
		return err
	}

	e.started = true
	debug.InfoLog.Print("cec engine started")
	return nil
}

// Close stops watching the line, stops the generator and releases the bus.
func (e *Engine) Close() error {
	e.el.Lock()
	defer e.el.Unlock()

	if e.started {
		e.line.Unwatch()
		e.started = false
	}

	e.rx.Close()
	if e.soft != nil {
		_ = e.soft.Close()
	}

	e.line.Release()
	return nil
}

// Poll returns the next received frame, it never blocks.
func (e *Engine) Poll() (Frame, bool) {
	return e.mailbox.Poll()
}

// Send waits for an idle bus and transmits the frame with retries.
func (e *Engine) Send(f Frame) error {
	return e.tx.Send(f)
}

// SendNow transmits the frame at once without retries.
func (e *Engine) SendNow(f Frame) error {
	return e.tx.SendNow(f)
}

// ConfigureOwnAddress sets the logical address acknowledged by the decoder.
func (e *Engine) ConfigureOwnAddress(a LogicalAddress) {
	e.rx.SetLogicalAddress(a)
}

// EnableAckResponse switches acknowledging of frames addressed to the own address.
func (e *Engine) EnableAckResponse(enable bool) {
	e.rx.EnableAck(enable)
}

// LogicalAddress returns the own logical address.
func (e *Engine) LogicalAddress() LogicalAddress {
	return e.rx.LogicalAddress()
}

// AckEnabled reports whether frames addressed to the own address are acknowledged.
func (e *Engine) AckEnabled() bool {
	return e.rx.AckEnabled()
}

// Stats returns the decoder and encoder counters.
func (e *Engine) Stats() Stats {
	return Stats{RX: e.rx.Stats(), TX: e.tx.Stats()}
}
