package led

import (
	"os"
	"sync"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
	"github.com/womat/debug"
)

func init() {
	debug.SetDebug(os.Stderr, debug.Standard)
}

type fakeLine struct {
	ll   sync.Mutex
	high bool
	sets int
}

func (l *fakeLine) Set(high bool) error {
	l.ll.Lock()
	defer l.ll.Unlock()
	l.high = high
	l.sets++
	return nil
}

func (l *fakeLine) isLit() bool {
	l.ll.Lock()
	defer l.ll.Unlock()
	return !l.high
}

func TestFlash(t *testing.T) {
	c := qt.New(t)

	rx, tx, ri := &fakeLine{}, &fakeLine{}, &fakeLine{}
	i := New(rx, tx, ri)
	c.Assert(i, qt.IsNotNil)
	c.Assert(rx.isLit(), qt.IsFalse)

	i.Flash(CECTx)
	c.Assert(tx.isLit(), qt.IsTrue)
	c.Assert(rx.isLit(), qt.IsFalse)

	time.Sleep(3 * FlashTime)
	c.Assert(tx.isLit(), qt.IsFalse)

	c.Assert(i.Close(), qt.IsNil)
}

func TestDisabled(t *testing.T) {
	c := qt.New(t)

	i := New(&fakeLine{}, nil, &fakeLine{})
	c.Assert(i, qt.IsNil)

	// a disabled indicator ignores all calls
	i.Flash(CECRx)
	c.Assert(i.Close(), qt.IsNil)
}

func TestFlashInvalidChannel(t *testing.T) {
	c := qt.New(t)

	rx, tx, ri := &fakeLine{}, &fakeLine{}, &fakeLine{}
	i := New(rx, tx, ri)
	i.Flash(Channel(7))
	c.Assert(rx.sets+tx.sets+ri.sets, qt.Equals, 3)
}
