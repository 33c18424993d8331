// Package ri is the transmitter of the Onkyo RI remote interface.
// RI is a one way, pulse distance coded line protocol (3.5mm jack, active high).
// https://gist.github.com/i4M1k0SU/28cb2893a50efe4e052c1de504d60032
package ri

import (
	"fmt"
	"sync"
	"time"

	"cecri/pkg/port"

	"github.com/womat/debug"
)

// Command is a 12 bit RI command code.
type Command uint16

const (
	InputSel Command = 0x1A0
	VolUp    Command = 0x1A2
	VolDown  Command = 0x1A3
	Mute     Command = 0x1A4
	Unmute   Command = 0x1A5
	PowerOff Command = 0x1AE
	PowerOn  Command = 0x1AF
)

// RI protocol timing
const (
	headerMark   = 3000 * time.Microsecond
	headerSpace  = 1000 * time.Microsecond
	bitMark      = 1000 * time.Microsecond
	bitOneSpace  = 2000 * time.Microsecond
	bitZeroSpace = 1000 * time.Microsecond
	footerMark   = 1000 * time.Microsecond
	frameGap     = 20 * time.Millisecond

	frameBits = 12
)

var names = map[Command]string{
	InputSel: "Input Sel",
	VolUp:    "Vol Up",
	VolDown:  "Vol Down",
	Mute:     "Mute",
	Unmute:   "Unmute",
	PowerOff: "Power Off",
	PowerOn:  "Power On",
}

func (c Command) String() string {
	if n, ok := names[c]; ok {
		return fmt.Sprintf("%s (0x%03X)", n, uint16(c))
	}
	return fmt.Sprintf("0x%03X", uint16(c))
}

// Line is the output line of the RI jack.
type Line interface {
	Set(high bool) error
}

// Segment is a part of the waveform: the line is set to High for Duration.
type Segment struct {
	High     bool
	Duration time.Duration
}

// Encode returns the waveform of a command:
// header, 12 bits (MSB first, mark followed by a short or long space), footer and frame gap.
func Encode(c Command) []Segment {
	s := make([]Segment, 0, 2+2*frameBits+2)
	s = append(s, Segment{true, headerMark}, Segment{false, headerSpace})

	for i := frameBits - 1; i >= 0; i-- {
		space := bitZeroSpace
		if c>>uint(i)&1 == 1 {
			space = bitOneSpace
		}
		s = append(s, Segment{true, bitMark}, Segment{false, space})
	}

	return append(s, Segment{true, footerMark}, Segment{false, frameGap})
}

// Sender transmits commands on a line.
type Sender struct {
	line Line
	// sl serializes the commands of different callers.
	sl sync.Mutex
	// notify is called before a command is sent.
	notify func()
}

// NewSender returns a sender on line, the line is set low.
func NewSender(line Line, notify func()) (*Sender, error) {
	if err := line.Set(false); err != nil {
		return nil, err
	}
	return &Sender{line: line, notify: notify}, nil
}

// Send transmits the command and returns after the frame gap.
func (s *Sender) Send(c Command) error {
	s.sl.Lock()
	defer s.sl.Unlock()

	debug.DebugLog.Printf("ri tx %v", c)
	if s.notify != nil {
		s.notify()
	}

	deadline := time.Now()
	for _, seg := range Encode(c) {
		if err := s.line.Set(seg.High); err != nil {
			_ = s.line.Set(false)
			return fmt.Errorf("ri tx %v: %w", c, err)
		}

		deadline = deadline.Add(seg.Duration)
		port.DelayUntil(deadline)
	}

	return nil
}
