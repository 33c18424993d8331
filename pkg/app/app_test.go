package app

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"cecri/pkg/app/config"
	"cecri/pkg/cec"
	"cecri/pkg/port"
	"cecri/pkg/ri"

	qt "github.com/frankban/quicktest"
	"github.com/womat/debug"
)

func init() {
	debug.SetDebug(os.Stderr, debug.Standard)
}

// fakeLine is a cec line without other devices, nobody acknowledges our frames.
type fakeLine struct {
	ll      sync.Mutex
	driven  bool
	handler func(port.Event)
}

func (l *fakeLine) DriveLow() {
	l.ll.Lock()
	defer l.ll.Unlock()
	l.driven = true
}

func (l *fakeLine) Release() {
	l.ll.Lock()
	defer l.ll.Unlock()
	l.driven = false
}

func (l *fakeLine) Read() bool {
	l.ll.Lock()
	defer l.ll.Unlock()
	return !l.driven
}

func (l *fakeLine) Watch(handler func(port.Event)) error {
	l.ll.Lock()
	defer l.ll.Unlock()
	l.handler = handler
	return nil
}

func (l *fakeLine) Unwatch() {
	l.ll.Lock()
	defer l.ll.Unlock()
	l.handler = nil
}

type fakeRemote struct {
	rl   sync.Mutex
	sent []ri.Command
}

func (r *fakeRemote) Send(c ri.Command) error {
	r.rl.Lock()
	defer r.rl.Unlock()
	r.sent = append(r.sent, c)
	return nil
}

func (r *fakeRemote) commands() []ri.Command {
	r.rl.Lock()
	defer r.rl.Unlock()
	return append([]ri.Command{}, r.sent...)
}

func newTestApp(c *qt.C) (*App, *fakeRemote) {
	cfg := config.NewConfig()
	cfg.Webserver.Webservices["send"] = true

	a, err := New(cfg)
	c.Assert(err, qt.IsNil)

	remote := &fakeRemote{}
	c.Assert(a.wire(&fakeLine{}, remote), qt.IsNil)
	a.initDefaultRoutes()
	c.Cleanup(func() { _ = a.Close() })
	return a, remote
}

func request(c *qt.C, a *App, method, target, body string) (int, map[string]interface{}) {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	res, err := a.web.Test(req, -1)
	c.Assert(err, qt.IsNil)
	defer func() { _ = res.Body.Close() }()

	b, err := io.ReadAll(res.Body)
	c.Assert(err, qt.IsNil)

	m := map[string]interface{}{}
	c.Assert(json.Unmarshal(b, &m), qt.IsNil, qt.Commentf("body %s", b))
	return res.StatusCode, m
}

func TestDispatchStandby(t *testing.T) {
	c := qt.New(t)
	a, remote := newTestApp(c)

	a.dispatch(cec.Frame{0x0F, byte(cec.OpStandby)})

	c.Assert(remote.commands(), qt.DeepEquals, []ri.Command{ri.PowerOff})
	frames := a.frames.last()
	c.Assert(frames, qt.HasLen, 1)
	c.Assert(frames[0].Direction, qt.Equals, rx)
	c.Assert(frames[0].Frame, qt.Equals, "0F:36")
	c.Assert(frames[0].Opcode, qt.Equals, "Standby")
}

func TestDispatchRecordsReply(t *testing.T) {
	c := qt.New(t)
	a, _ := newTestApp(c)

	a.dispatch(cec.Frame{0x05, byte(cec.OpGivePhysicalAddress)})

	frames := a.frames.last()
	c.Assert(frames, qt.HasLen, 2)
	c.Assert(frames[0].Direction, qt.Equals, rx)
	c.Assert(frames[0].Frame, qt.Equals, "05:83")
	c.Assert(frames[1].Direction, qt.Equals, tx)
	c.Assert(frames[1].Frame, qt.Equals, "5F:84:00:00:05")
	c.Assert(frames[1].Opcode, qt.Equals, "Report Physical Address")
	c.Assert(frames[1].Error, qt.Equals, "")
}

func TestDispatchPolling(t *testing.T) {
	c := qt.New(t)
	a, remote := newTestApp(c)

	a.dispatch(cec.Frame{0x05})

	c.Assert(remote.commands(), qt.HasLen, 0)
	c.Assert(a.frames.last()[0].Opcode, qt.Equals, "Polling")
}

func TestFrameLog(t *testing.T) {
	c := qt.New(t)
	l := newFrameLog(3)
	c.Assert(l.last(), qt.HasLen, 0)

	for i := 0; i < 5; i++ {
		l.add(rx, cec.Frame{0x05, byte(i)}, nil)
	}

	var got []string
	for _, r := range l.last() {
		got = append(got, r.Frame)
	}
	c.Assert(got, qt.DeepEquals, []string{"05:02", "05:03", "05:04"})
}

func TestHeartbeat(t *testing.T) {
	c := qt.New(t)
	a := &App{}

	_, stalled := a.heartbeatAge()
	c.Assert(stalled, qt.IsTrue)

	a.beat()
	age, stalled := a.heartbeatAge()
	c.Assert(stalled, qt.IsFalse)
	c.Assert(age < stallTime, qt.IsTrue)

	a.heartbeat = time.Now().Add(-2 * stallTime).UnixNano()
	_, stalled = a.heartbeatAge()
	c.Assert(stalled, qt.IsTrue)
}

func TestRoutes(t *testing.T) {
	c := qt.New(t)
	a, _ := newTestApp(c)

	c.Run("version", func(c *qt.C) {
		code, m := request(c, a, http.MethodGet, "/version", "")
		c.Assert(code, qt.Equals, http.StatusOK)
		c.Assert(m["description"], qt.Equals, MODULE)
		c.Assert(m["version"], qt.Equals, VERSION)
		c.Assert(m["osdName"], qt.Equals, "OnkyoRI-Bridge")
	})

	c.Run("health stalled", func(c *qt.C) {
		code, m := request(c, a, http.MethodGet, "/health", "")
		c.Assert(code, qt.Equals, http.StatusServiceUnavailable)
		c.Assert(m["Stalled"], qt.Equals, true)
	})

	c.Run("health", func(c *qt.C) {
		a.beat()
		code, m := request(c, a, http.MethodGet, "/health", "")
		c.Assert(code, qt.Equals, http.StatusOK)
		c.Assert(m["Stalled"], qt.Equals, false)
	})

	c.Run("send invalid", func(c *qt.C) {
		code, m := request(c, a, http.MethodPost, "/send", "zz")
		c.Assert(code, qt.Equals, http.StatusBadRequest)
		c.Assert(m["error"], qt.IsNotNil)
	})

	c.Run("send broadcast", func(c *qt.C) {
		code, m := request(c, a, http.MethodPost, "/send", "5F:72:01")
		c.Assert(code, qt.Equals, http.StatusOK)
		c.Assert(m["frame"], qt.Equals, "5F:72:01")
	})

	c.Run("send not acknowledged", func(c *qt.C) {
		code, m := request(c, a, http.MethodPost, "/send", "508F")
		c.Assert(code, qt.Equals, http.StatusBadGateway)
		c.Assert(m["frame"], qt.Equals, "50:8F")
		c.Assert(m["error"], qt.Matches, ".*no acknowledge.*")
	})

	c.Run("data", func(c *qt.C) {
		code, m := request(c, a, http.MethodGet, "/data", "")
		c.Assert(code, qt.Equals, http.StatusOK)
		c.Assert(m["LogicalAddress"], qt.Equals, float64(cec.AudioSystem))

		frames := m["Frames"].([]interface{})
		c.Assert(frames, qt.HasLen, 2)
		last := frames[1].(map[string]interface{})
		c.Assert(last["Direction"], qt.Equals, tx)
		c.Assert(last["Frame"], qt.Equals, "50:8F")

		state := m["State"].(map[string]interface{})
		c.Assert(state["Volume"], qt.Equals, float64(30))
	})
}

func TestSendRouteDisabled(t *testing.T) {
	c := qt.New(t)
	cfg := config.NewConfig()

	a, err := New(cfg)
	c.Assert(err, qt.IsNil)
	c.Assert(a.wire(&fakeLine{}, &fakeRemote{}), qt.IsNil)
	a.initDefaultRoutes()
	defer func() { _ = a.Close() }()

	res, err := a.web.Test(httptest.NewRequest(http.MethodPost, "/send", strings.NewReader("5F:36")), -1)
	c.Assert(err, qt.IsNil)
	c.Assert(res.StatusCode, qt.Equals, http.StatusNotFound)
}

func TestServiceBoot(t *testing.T) {
	c := qt.New(t)
	a, _ := newTestApp(c)
	a.config.CEC.BootDelay = 0

	a.wg.Add(1)
	go a.service()

	// nobody acknowledges the polling message, the address is claimed
	deadline := time.Now().Add(5 * time.Second)
	for !a.engine.AckEnabled() && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	c.Assert(a.engine.AckEnabled(), qt.IsTrue)
	c.Assert(a.engine.LogicalAddress(), qt.Equals, cec.AudioSystem)
	c.Assert(a.bridge.LogicalAddress(), qt.Equals, cec.AudioSystem)

	_, stalled := a.heartbeatAge()
	c.Assert(stalled, qt.IsFalse)
}

func TestServiceStopsDuringBootDelay(t *testing.T) {
	c := qt.New(t)
	a, _ := newTestApp(c)
	a.config.CEC.BootDelay = time.Hour

	a.wg.Add(1)
	go a.service()

	done := make(chan struct{})
	go func() {
		_ = a.Close()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		c.Fatal("service didn't stop during the boot delay")
	}
	c.Assert(a.engine.AckEnabled(), qt.IsFalse)
}
