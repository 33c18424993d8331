package cec

import "sync"

// Mailbox is the single slot handoff of completed frames from the decoder to the consumer.
// A frame published while the slot is still occupied is dropped, the slot is never overwritten.
type Mailbox struct {
	// ml locks the slot for publish and poll.
	ml sync.Mutex
	// ready is true if the slot holds an undrained frame.
	ready bool
	// n is the length of the frame in buf.
	n   int
	buf [MaxFrameSize]byte
}

// Publish stores the frame in the slot.
// It returns false if the slot is occupied; the frame is dropped in this case.
func (m *Mailbox) Publish(f []byte) bool {
	m.ml.Lock()
	defer m.ml.Unlock()

	if m.ready {
		return false
	}

	m.n = copy(m.buf[:], f)
	m.ready = true
	return true
}

// Poll returns a copy of the stored frame and clears the slot.
// ok is false if no frame is ready. Poll never blocks on the decoder.
func (m *Mailbox) Poll() (f Frame, ok bool) {
	m.ml.Lock()
	defer m.ml.Unlock()

	if !m.ready {
		return nil, false
	}

	f = make(Frame, m.n)
	copy(f, m.buf[:m.n])
	m.ready = false
	return f, true
}

// Ready reports whether a frame is waiting in the slot.
func (m *Mailbox) Ready() bool {
	m.ml.Lock()
	defer m.ml.Unlock()
	return m.ready
}
