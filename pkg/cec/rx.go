package cec

import (
	"sync"
	"sync/atomic"
	"time"

	"cecri/pkg/port"

	"github.com/womat/debug"
)

// Decoder is the edge driven receiver of the CEC bus.
// HandleEvent runs in the context of the line watcher and never blocks.
type Decoder struct {
	// bus is used to drive the ACK slot.
	bus Bus
	// mailbox receives completed frames.
	mailbox *Mailbox
	// notify is called after a frame has been published.
	notify func()
	// lenient keeps the decode state on invalid symbols instead of dropping the frame.
	lenient bool

	// ownAddress and ackEnabled are written by the consumer and read in edge context.
	ownAddress uint32
	ackEnabled int32

	// el serializes edge handling with Suspend and Resume.
	el        sync.Mutex
	suspended bool

	// lastLevel is the bus level after the last edge, lastEdge the time of the last edge.
	lastLevel bool
	lastEdge  time.Duration
	// skipNextRise ignores the rising edge of the own ACK release.
	skipNextRise bool

	// inFrame is true between a start bit and the end of message.
	inFrame bool
	// rxRegister is the buffer of the currently received byte.
	rxRegister byte
	// rxBit is the bit position: 0..7 data (MSB first), 8 EOM, 9 ACK slot.
	rxBit int
	// eom is the end of message flag of the current byte.
	eom bool
	// rxBuffer is the frame received since the last start bit.
	rxBuffer [MaxFrameSize]byte
	rxLen    int
	// firstByte is true until the header is complete.
	firstByte bool
	// addressed is latched from the header: the frame is acknowledged by us.
	addressed bool
	header    byte

	hold ackHold

	received uint32
	dropped  uint32
	invalid  uint32
}

// DecoderStats are the counters of the decoder.
type DecoderStats struct {
	// Received is the count of frames published to the mailbox.
	Received uint32
	// Dropped is the count of complete frames lost because the mailbox was occupied.
	Dropped uint32
	// Invalid is the count of pulses outside of all symbol windows.
	Invalid uint32
}

// NewDecoder returns an idle decoder publishing to mailbox.
// The decoder starts with own address AudioSystem and ACK responding disabled.
func NewDecoder(bus Bus, mailbox *Mailbox, lenient bool, notify func()) *Decoder {
	return &Decoder{
		bus:        bus,
		mailbox:    mailbox,
		notify:     notify,
		lenient:    lenient,
		ownAddress: uint32(AudioSystem),
		lastLevel:  true,
	}
}

// SetLogicalAddress defines the address whose frames are acknowledged.
func (d *Decoder) SetLogicalAddress(a LogicalAddress) {
	atomic.StoreUint32(&d.ownAddress, uint32(a&0x0F))
}

// LogicalAddress returns the own address.
func (d *Decoder) LogicalAddress() LogicalAddress {
	return LogicalAddress(atomic.LoadUint32(&d.ownAddress))
}

// EnableAck switches acknowledging of frames addressed to the own address.
func (d *Decoder) EnableAck(enable bool) {
	var v int32
	if enable {
		v = 1
	}
	atomic.StoreInt32(&d.ackEnabled, v)
}

// AckEnabled reports whether the decoder acknowledges frames.
func (d *Decoder) AckEnabled() bool {
	return atomic.LoadInt32(&d.ackEnabled) == 1
}

// Stats returns a snapshot of the decoder counters.
func (d *Decoder) Stats() DecoderStats {
	return DecoderStats{
		Received: atomic.LoadUint32(&d.received),
		Dropped:  atomic.LoadUint32(&d.dropped),
		Invalid:  atomic.LoadUint32(&d.invalid),
	}
}

// Suspend stops decoding, all edges are ignored until Resume.
// A partially received frame is discarded.
func (d *Decoder) Suspend() {
	d.el.Lock()
	defer d.el.Unlock()

	d.suspended = true
	d.inFrame = false
	d.skipNextRise = false
}

// Resume restarts decoding. A low pulse is measured only after the next falling edge.
func (d *Decoder) Resume() {
	d.el.Lock()
	defer d.el.Unlock()

	d.suspended = false
	d.lastLevel = true
}

// Close cancels a pending ACK hold and releases the bus.
func (d *Decoder) Close() {
	d.hold.stop(d.bus)
}

// HandleEvent measures the low time of the bus at every rising edge and decodes the symbol.
func (d *Decoder) HandleEvent(evt port.Event) {
	d.el.Lock()
	defer d.el.Unlock()

	if d.suspended {
		return
	}

	switch evt.Type {
	case port.FallingEdge:
		d.lastLevel = false
		d.lastEdge = evt.Timestamp

	case port.RisingEdge:
		if d.lastLevel {
			// no falling edge seen, the low time is unknown
			return
		}

		low := evt.Timestamp - d.lastEdge
		d.lastLevel = true
		d.lastEdge = evt.Timestamp

		if d.skipNextRise {
			d.skipNextRise = false
			return
		}

		d.decode(Classify(low))
	}
}

// decode advances the frame state machine by one symbol.
func (d *Decoder) decode(s Symbol) {
	switch {
	case s == Start:
		d.reset()
		d.inFrame = true

	case s == Invalid:
		atomic.AddUint32(&d.invalid, 1)
		if d.inFrame && !d.lenient {
			debug.TraceLog.Printf("invalid symbol at bit %d of byte %d, wait for start bit", d.rxBit, d.rxLen)
			d.inFrame = false
		}

	case !d.inFrame:
		return

	case d.rxBit < 8:
		d.rxRegister <<= 1
		if s == One {
			d.rxRegister |= 1
		}
		d.rxBit++

	case d.rxBit == 8:
		d.eom = s == One
		d.rxBit++

	default:
		d.ackSlot()
	}
}

// reset clears the decode state for a new frame.
func (d *Decoder) reset() {
	d.inFrame = false
	d.rxLen = 0
	d.rxRegister = 0
	d.rxBit = 0
	d.eom = false
	d.firstByte = true
	d.addressed = false
	d.header = 0
	d.skipNextRise = false
}

// ackSlot acknowledges the byte if the frame is addressed to us, stores the byte
// and publishes the frame after the end of message.
func (d *Decoder) ackSlot() {
	ackEnabled := d.AckEnabled()

	var ack bool
	if d.firstByte {
		d.header = d.rxRegister
		d.addressed = ackEnabled && LogicalAddress(d.header&0x0F) == d.LogicalAddress()
		ack = d.addressed
	} else {
		ack = ackEnabled && d.addressed
	}

	if ack {
		d.hold.start(d.bus, AckHoldTime)
		d.skipNextRise = true
	}

	if d.rxLen < len(d.rxBuffer) {
		d.rxBuffer[d.rxLen] = d.rxRegister
		d.rxLen++
	}

	d.firstByte = false
	d.rxRegister = 0
	d.rxBit = 0

	if !d.eom {
		return
	}

	d.inFrame = false
	if !d.mailbox.Publish(d.rxBuffer[:d.rxLen]) {
		atomic.AddUint32(&d.dropped, 1)
		return
	}

	atomic.AddUint32(&d.received, 1)
	if d.notify != nil {
		d.notify()
	}
}

// ackHold holds the bus low for a fixed time and releases it from a timer.
// Only one hold is scheduled at a time.
type ackHold struct {
	hl      sync.Mutex
	timer   *time.Timer
	holding bool
	// generation invalidates a timer which fires after it was replaced.
	generation uint64
}

// start drives the bus low and schedules the release.
// A pending release is cancelled first.
func (h *ackHold) start(bus Bus, d time.Duration) {
	h.hl.Lock()
	defer h.hl.Unlock()

	if h.timer != nil {
		h.timer.Stop()
		h.timer = nil
	}

	h.generation++
	gen := h.generation
	h.holding = true
	bus.DriveLow()

	h.timer = time.AfterFunc(d, func() {
		h.hl.Lock()
		defer h.hl.Unlock()

		if gen != h.generation {
			return
		}

		bus.Release()
		h.holding = false
		h.timer = nil
	})
}

// stop cancels a pending release and releases the bus at once.
func (h *ackHold) stop(bus Bus) {
	h.hl.Lock()
	defer h.hl.Unlock()

	h.generation++
	if h.timer != nil {
		h.timer.Stop()
		h.timer = nil
	}

	if h.holding {
		bus.Release()
		h.holding = false
	}
}

// isHolding reports whether the bus is held low.
func (h *ackHold) isHolding() bool {
	h.hl.Lock()
	defer h.hl.Unlock()
	return h.holding
}
