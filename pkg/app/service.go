package app

import (
	"sync"
	"sync/atomic"
	"time"

	"cecri/pkg/bridge"
	"cecri/pkg/cec"

	"github.com/womat/debug"
)

const (
	// idleSleep is the pause of the consumer loop if the mailbox is empty.
	idleSleep = time.Millisecond
	// stallTime is the heartbeat age which marks the consumer loop as stalled.
	stallTime = 5 * time.Second
	// frameLogSize is the count of frames kept for the data web service.
	frameLogSize = 16
)

// frame directions of the frame log
const (
	rx = "rx"
	tx = "tx"
)

// FrameRecord is a received or sent frame.
type FrameRecord struct {
	Time      time.Time
	Direction string
	Frame     string
	Opcode    string
	Error     string `json:",omitempty"`
}

// frameMessage is the mqtt message of a handled frame.
type frameMessage struct {
	FrameRecord
	Source      cec.LogicalAddress
	Destination cec.LogicalAddress
}

// service boots the bridge and waits in an endless loop for received frames.
// Each frame is dispatched to the bridge, the frame and changes of the device state are sent to the mqtt broker.
func (app *App) service() {
	defer app.wg.Done()

	if !app.boot() {
		return
	}

	for {
		app.beat()

		select {
		case <-app.quit:
			return
		default:
		}

		f, ok := app.engine.Poll()
		if !ok {
			time.Sleep(idleSleep)
			continue
		}

		app.dispatch(f)
	}
}

// boot waits the boot delay, negotiates the logical address and announces the bridge on the bus.
// It returns false if the application is closed during the boot delay.
func (app *App) boot() bool {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	deadline := time.After(app.config.CEC.BootDelay)

	app.beat()
	debug.InfoLog.Printf("wait %v for the bus to settle", app.config.CEC.BootDelay)

	for waiting := true; waiting; {
		select {
		case <-app.quit:
			return false
		case <-ticker.C:
			app.beat()
		case <-deadline:
			waiting = false
		}
	}

	la, _ := app.engine.Negotiate(cec.LogicalAddress(app.config.CEC.LogicalAddress))
	app.bridge.SetLogicalAddress(la)
	app.bridge.Announce()
	app.publishState(app.bridge.State())
	return true
}

// dispatch handles one received frame.
func (app *App) dispatch(f cec.Frame) {
	debug.DebugLog.Printf("<= cec %v", f)

	r := app.frames.add(rx, f, nil)
	before := app.bridge.State()
	app.bridge.Handle(f)

	app.sendMQTT(app.config.MQTT.Topic+"/frame", frameMessage{
		FrameRecord: r,
		Source:      f.Source(),
		Destination: f.Destination(),
	})

	if after := app.bridge.State(); after != before {
		app.publishState(after)
	}
}

// send transmits a frame and records it.
func (app *App) send(f cec.Frame) error {
	err := app.engine.Send(f)
	app.frames.add(tx, f, err)
	return err
}

// transmitter sends the replies of the bridge through the frame log.
type transmitter struct {
	app *App
}

func (t transmitter) Send(f cec.Frame) error {
	return t.app.send(f)
}

func (app *App) publishState(s bridge.State) {
	app.sendMQTT(app.config.MQTT.Topic+"/state", s)
}

// sendMQTT send message struct to the mqtt broker.
func (app *App) sendMQTT(topic string, message interface{}) {
	debug.TraceLog.Printf("prepare mqtt message %v %v", topic, message)
	app.mqtt.Publish(topic, true, message)
}

// beat stamps the heartbeat of the consumer loop.
func (app *App) beat() {
	atomic.StoreInt64(&app.heartbeat, time.Now().UnixNano())
}

// heartbeatAge returns the time since the last heartbeat and whether the consumer loop is stalled.
func (app *App) heartbeatAge() (time.Duration, bool) {
	hb := atomic.LoadInt64(&app.heartbeat)
	if hb == 0 {
		return 0, true
	}

	age := time.Since(time.Unix(0, hb))
	return age, age > stallTime
}

// frameLog is a ring of the last frames.
type frameLog struct {
	fl      sync.Mutex
	records []FrameRecord
	next    int
	full    bool
}

func newFrameLog(size int) *frameLog {
	return &frameLog{records: make([]FrameRecord, size)}
}

// add records a frame and returns the record.
func (l *frameLog) add(direction string, f cec.Frame, err error) FrameRecord {
	r := FrameRecord{
		Time:      time.Now(),
		Direction: direction,
		Frame:     f.String(),
		Opcode:    "Polling",
	}
	if op, ok := f.Opcode(); ok {
		r.Opcode = op.String()
	}
	if err != nil {
		r.Error = err.Error()
	}

	l.fl.Lock()
	defer l.fl.Unlock()

	l.records[l.next] = r
	l.next = (l.next + 1) % len(l.records)
	if l.next == 0 {
		l.full = true
	}
	return r
}

// last returns the recorded frames, oldest first.
func (l *frameLog) last() []FrameRecord {
	l.fl.Lock()
	defer l.fl.Unlock()

	if !l.full {
		return append([]FrameRecord{}, l.records[:l.next]...)
	}
	return append(append([]FrameRecord{}, l.records[l.next:]...), l.records[:l.next]...)
}
