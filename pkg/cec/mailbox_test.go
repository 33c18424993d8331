package cec

import (
	"testing"

	qt "github.com/frankban/quicktest"
)

func TestMailboxDoesNotOverwrite(t *testing.T) {
	c := qt.New(t)

	var m Mailbox
	a := []byte{0x40, 0x8F}
	b := []byte{0x40, 0x46}

	c.Assert(m.Publish(a), qt.IsTrue)
	c.Assert(m.Publish(b), qt.IsFalse)
	c.Assert(m.Ready(), qt.IsTrue)

	f, ok := m.Poll()
	c.Assert(ok, qt.IsTrue)
	c.Assert(f, qt.DeepEquals, Frame(a))

	_, ok = m.Poll()
	c.Assert(ok, qt.IsFalse)
}

func TestMailboxCopiesFrame(t *testing.T) {
	c := qt.New(t)

	var m Mailbox
	src := []byte{0x40, 0x8F}
	c.Assert(m.Publish(src), qt.IsTrue)
	src[1] = 0x00

	f, ok := m.Poll()
	c.Assert(ok, qt.IsTrue)
	c.Assert(f, qt.DeepEquals, Frame{0x40, 0x8F})

	c.Assert(m.Publish([]byte{0x4F, 0x36}), qt.IsTrue)
	f, _ = m.Poll()
	c.Assert(f, qt.DeepEquals, Frame{0x4F, 0x36})
}
