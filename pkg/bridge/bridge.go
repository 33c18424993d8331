// Package bridge handles received CEC frames as an audio system:
// it answers the CEC requests and controls the receiver by RI commands.
package bridge

import (
	"sync"
	"time"

	"cecri/pkg/cec"
	"cecri/pkg/ri"

	"github.com/womat/debug"
)

const (
	// debounceTime suppresses repeated power commands.
	debounceTime = 2 * time.Second
	// inputSelDelay is the delay between RI power on and RI input select.
	inputSelDelay = 200 * time.Millisecond

	// cecVersion14 is the operand of the CEC Version message.
	cecVersion14 = 0x05
	// deviceTypeAudioSystem is the device type of Report Physical Address.
	deviceTypeAudioSystem = 0x05

	maxVolume  = 100
	volumeStep = 2
	muteFlag   = 0x80
)

// user control codes of User Control Pressed
const (
	uiPower         = 0x40
	uiVolumeUp      = 0x41
	uiVolumeDown    = 0x42
	uiMute          = 0x43
	uiMuteFunction  = 0x65
	uiRestoreVolume = 0x66
	uiPowerOn       = 0x6B
	uiPowerOff      = 0x6C
)

// Transmitter sends CEC frames.
type Transmitter interface {
	Send(cec.Frame) error
}

// Remote sends RI commands.
type Remote interface {
	Send(ri.Command) error
}

// Config holds the identity of the bridge on the CEC bus.
type Config struct {
	PhysicalAddress cec.PhysicalAddress
	OSDName         string
	VendorID        uint32
}

// State is the device state of the audio system.
// The volume is virtual, the real receiver volume is not known.
type State struct {
	PowerOn         bool
	SystemAudioMode bool
	Volume          uint8
	Mute            bool
	LastOn          time.Time
	LastOff         time.Time
}

// Bridge is the dispatcher of the received CEC frames.
type Bridge struct {
	cec    Transmitter
	remote Remote
	config Config

	// sl locks state and address.
	sl      sync.Mutex
	state   State
	address cec.LogicalAddress

	// now and sleep are replaced in tests.
	now   func() time.Time
	sleep func(time.Duration)
}

// New returns a bridge with power off and volume 30.
func New(t Transmitter, r Remote, c Config) *Bridge {
	return &Bridge{
		cec:     t,
		remote:  r,
		config:  c,
		address: cec.AudioSystem,
		state:   State{Volume: 30},
		now:     time.Now,
		sleep:   time.Sleep,
	}
}

// SetLogicalAddress defines the source address of the sent frames.
func (b *Bridge) SetLogicalAddress(a cec.LogicalAddress) {
	b.sl.Lock()
	defer b.sl.Unlock()
	b.address = a
}

// LogicalAddress returns the own address.
func (b *Bridge) LogicalAddress() cec.LogicalAddress {
	b.sl.Lock()
	defer b.sl.Unlock()
	return b.address
}

// State returns a copy of the device state.
func (b *Bridge) State() State {
	b.sl.Lock()
	defer b.sl.Unlock()
	return b.state
}

// Announce broadcasts the physical address and the vendor id, it's called after the address negotiation.
func (b *Bridge) Announce() {
	b.logTx("Report Physical Address", b.reportPhysicalAddress())
	b.logTx("Device Vendor ID", b.deviceVendorID())
}

// Handle dispatches a received frame.
// Polling messages and frames for other devices are ignored, directed frames are answered.
// Unsupported directed opcodes are answered with Feature Abort.
func (b *Bridge) Handle(f cec.Frame) {
	op, ok := f.Opcode()
	if !ok {
		debug.DebugLog.Printf("polling %v -> %v", f.Source(), f.Destination())
		return
	}

	src, dst := f.Source(), f.Destination()
	debug.DebugLog.Printf("opcode=0x%02X (%v) src=%d dst=%d", byte(op), op, src, dst)

	if f.IsBroadcast() {
		if op == cec.OpStandby {
			b.powerOff()
		}
		return
	}

	if dst != b.LogicalAddress() {
		debug.TraceLog.Printf("frame %v is not for us", f)
		return
	}

	b.handleDirected(f, op, src)
}

// handleDirected answers a frame addressed to us.
func (b *Bridge) handleDirected(f cec.Frame, op cec.Opcode, src cec.LogicalAddress) {
	operands := f.Operands()

	switch op {
	case cec.OpFeatureAbort:
		if len(operands) >= 2 {
			debug.InfoLog.Printf("remote feature abort: opcode=0x%02X reason=0x%02X", operands[0], operands[1])
		}

	case cec.OpGivePhysicalAddress:
		b.logTx("Report Physical Address", b.reportPhysicalAddress())

	case cec.OpGiveOSDName:
		b.logTx("Set OSD Name", b.setOSDName(src))

	case cec.OpGetCECVersion:
		b.logTx("CEC Version", b.send(src, cec.OpCECVersion, cecVersion14))

	case cec.OpGiveDevicePowerStatus:
		status := byte(0x01)
		if b.State().PowerOn {
			status = 0x00
		}
		b.logTx("Report Power Status", b.send(src, cec.OpReportPowerStatus, status))

	case cec.OpGiveDeviceVendorID:
		b.logTx("Device Vendor ID", b.deviceVendorID())

	case cec.OpSystemAudioModeRequest:
		// with operand (physical address of the source) -> on, without -> off
		on := len(operands) >= 2
		b.sl.Lock()
		b.state.SystemAudioMode = on
		powerOn := b.state.PowerOn
		b.sl.Unlock()

		b.logTx("Set System Audio Mode", b.send(cec.Broadcast, cec.OpSetSystemAudioMode, flag(on)))
		if on && !powerOn {
			b.powerOn()
		}

	case cec.OpSetSystemAudioMode:
		if len(operands) >= 1 {
			on := operands[0] != 0
			b.sl.Lock()
			b.state.SystemAudioMode = on
			b.sl.Unlock()
			b.logTx("System Audio Mode Status", b.send(src, cec.OpSystemAudioModeStatus, flag(on)))
		}

	case cec.OpGiveSystemAudioModeStatus:
		b.logTx("System Audio Mode Status", b.send(src, cec.OpSystemAudioModeStatus, flag(b.State().SystemAudioMode)))

	case cec.OpGiveAudioStatus:
		s := b.State()
		status := s.Volume & 0x7F
		if s.Mute {
			status |= muteFlag
		}
		b.logTx("Report Audio Status", b.send(src, cec.OpReportAudioStatus, status))

	case cec.OpSetAudioVolumeLevel:
		if len(operands) >= 1 {
			b.setVolume(operands[0] & 0x7F)
		}

	case cec.OpUserControlPressed:
		if len(operands) >= 1 {
			b.userControl(operands[0])
		}

	case cec.OpUserControlReleased:

	case cec.OpStandby:
		b.powerOff()

	case cec.OpAbort:
		b.logTx("Feature Abort", b.featureAbort(src, op, cec.AbortRefused))

	default:
		b.logTx("Feature Abort", b.featureAbort(src, op, cec.AbortUnrecognized))
	}
}

// userControl maps the remote control keys to RI commands.
func (b *Bridge) userControl(ui byte) {
	switch ui {
	case uiVolumeUp:
		b.sl.Lock()
		b.state.Volume += volumeStep
		if b.state.Volume > maxVolume {
			b.state.Volume = maxVolume
		}
		b.state.Mute = false
		b.sl.Unlock()
		b.ri(ri.VolUp)

	case uiVolumeDown:
		b.sl.Lock()
		if b.state.Volume >= volumeStep {
			b.state.Volume -= volumeStep
		} else {
			b.state.Volume = 0
		}
		b.state.Mute = false
		b.sl.Unlock()
		b.ri(ri.VolDown)

	case uiMute:
		b.setMute(!b.State().Mute)

	case uiMuteFunction:
		b.setMute(true)

	case uiRestoreVolume:
		b.setMute(false)

	case uiPower, uiPowerOff:
		b.powerOff()

	case uiPowerOn:
		b.powerOn()

	default:
		debug.DebugLog.Printf("ui command 0x%02X: not mapped", ui)
	}
}

func (b *Bridge) setVolume(v uint8) {
	if v > maxVolume {
		v = maxVolume
	}

	b.sl.Lock()
	old := b.state.Volume
	b.state.Volume = v
	b.state.Mute = false
	b.sl.Unlock()

	debug.InfoLog.Printf("set audio volume level: %d -> %d", old, v)
}

func (b *Bridge) setMute(mute bool) {
	b.sl.Lock()
	b.state.Mute = mute
	b.sl.Unlock()

	if mute {
		b.ri(ri.Mute)
		return
	}
	b.ri(ri.Unmute)
}

// powerOn switches the receiver on and selects the input, repeated calls within debounceTime are ignored.
func (b *Bridge) powerOn() {
	b.sl.Lock()
	if !b.state.LastOn.IsZero() && b.now().Sub(b.state.LastOn) <= debounceTime {
		b.sl.Unlock()
		debug.DebugLog.Print("ri power on suppressed (debounce)")
		return
	}
	b.state.LastOn = b.now()
	b.state.PowerOn = true
	b.sl.Unlock()

	b.ri(ri.PowerOn)
	b.sleep(inputSelDelay)
	b.ri(ri.InputSel)
}

// powerOff switches the receiver off, repeated calls within debounceTime are ignored.
func (b *Bridge) powerOff() {
	b.sl.Lock()
	if !b.state.LastOff.IsZero() && b.now().Sub(b.state.LastOff) <= debounceTime {
		b.sl.Unlock()
		debug.InfoLog.Print("ri power off suppressed (debounce)")
		return
	}
	b.state.LastOff = b.now()
	b.state.PowerOn = false
	b.state.SystemAudioMode = false
	b.sl.Unlock()

	b.ri(ri.PowerOff)
}

func (b *Bridge) ri(c ri.Command) {
	debug.InfoLog.Printf("=> ri %v", c)
	if err := b.remote.Send(c); err != nil {
		debug.ErrorLog.Printf("ri %v: %v", c, err)
	}
}

func (b *Bridge) send(dst cec.LogicalAddress, op cec.Opcode, operands ...byte) error {
	return b.cec.Send(cec.NewFrame(b.LogicalAddress(), dst, op, operands...))
}

func (b *Bridge) reportPhysicalAddress() error {
	return b.send(cec.Broadcast, cec.OpReportPhysicalAddress,
		append(b.config.PhysicalAddress.Bytes(), deviceTypeAudioSystem)...)
}

func (b *Bridge) deviceVendorID() error {
	id := b.config.VendorID
	return b.send(cec.Broadcast, cec.OpDeviceVendorID, byte(id>>16), byte(id>>8), byte(id))
}

// setOSDName sends the name, truncated to the frame size.
func (b *Bridge) setOSDName(dst cec.LogicalAddress) error {
	name := []byte(b.config.OSDName)
	if limit := cec.MaxFrameSize - 2; len(name) > limit {
		name = name[:limit]
	}
	return b.send(dst, cec.OpSetOSDName, name...)
}

func (b *Bridge) featureAbort(dst cec.LogicalAddress, op cec.Opcode, reason cec.AbortReason) error {
	return b.send(dst, cec.OpFeatureAbort, byte(op), byte(reason))
}

// logTx logs the result of a transmission; a failed transmission is not fatal.
func (b *Bridge) logTx(msg string, err error) {
	if err != nil {
		debug.ErrorLog.Printf("tx %s: %v", msg, err)
		return
	}
	debug.DebugLog.Printf("tx %s: ok", msg)
}

func flag(on bool) byte {
	if on {
		return 0x01
	}
	return 0x00
}
