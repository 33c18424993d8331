package cec

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrFrameSize     = errors.New("invalid frame size")
	ErrFrameEncoding = errors.New("invalid frame encoding")
)

// LogicalAddress is the 4-bit identity of a device on the bus.
type LogicalAddress byte

const (
	TV              LogicalAddress = 0x0
	RecordingDevice LogicalAddress = 0x1
	Tuner           LogicalAddress = 0x3
	PlaybackDevice  LogicalAddress = 0x4
	AudioSystem     LogicalAddress = 0x5
	// Broadcast is the destination of broadcast frames and the source address of unregistered devices.
	Broadcast LogicalAddress = 0xF
	// Unregistered is used as own address if no logical address could be claimed.
	Unregistered = Broadcast
)

// Header packs source and destination address to the first byte of a frame.
func Header(src, dst LogicalAddress) byte {
	return byte(src&0x0F)<<4 | byte(dst&0x0F)
}

// Frame is a CEC message: header byte followed by opcode and operands.
type Frame []byte

// NewFrame assembles a frame from the addresses, the opcode and its operands.
func NewFrame(src, dst LogicalAddress, op Opcode, operands ...byte) Frame {
	f := make(Frame, 0, 2+len(operands))
	f = append(f, Header(src, dst), byte(op))
	return append(f, operands...)
}

// Source is the high nibble of the header.
func (f Frame) Source() LogicalAddress {
	return LogicalAddress(f[0] >> 4)
}

// Destination is the low nibble of the header.
func (f Frame) Destination() LogicalAddress {
	return LogicalAddress(f[0] & 0x0F)
}

// IsBroadcast reports whether the frame is addressed to all devices.
func (f Frame) IsBroadcast() bool {
	return f.Destination() == Broadcast
}

// IsPolling reports whether the frame consists of the header only.
func (f Frame) IsPolling() bool {
	return len(f) == 1
}

// Opcode returns the opcode of the frame, ok is false for polling messages.
func (f Frame) Opcode() (op Opcode, ok bool) {
	if len(f) < 2 {
		return 0, false
	}
	return Opcode(f[1]), true
}

// Operands returns the bytes after the opcode.
func (f Frame) Operands() []byte {
	if len(f) < 2 {
		return nil
	}
	return f[2:]
}

// Validate checks the frame size (1..MaxFrameSize).
func (f Frame) Validate() error {
	if len(f) == 0 || len(f) > MaxFrameSize {
		return fmt.Errorf("%w: %d bytes", ErrFrameSize, len(f))
	}
	return nil
}

// String formats the frame as colon separated hex bytes, e.g. 50:8F.
func (f Frame) String() string {
	s := make([]string, len(f))
	for i, b := range f {
		s[i] = fmt.Sprintf("%02X", b)
	}
	return strings.Join(s, ":")
}

// ParseFrame parses hex bytes, optionally separated by colons or spaces (e.g. "50:8F", "508F").
func ParseFrame(s string) (Frame, error) {
	s = strings.NewReplacer(":", "", " ", "", "\n", "", "\r", "").Replace(strings.TrimSpace(s))

	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFrameEncoding, err)
	}

	f := Frame(b)
	if err = f.Validate(); err != nil {
		return nil, err
	}
	return f, nil
}

// PhysicalAddress is the HDMI topology address a.b.c.d of a device.
type PhysicalAddress uint16

// ParsePhysicalAddress parses the dotted notation, e.g. "1.0.0.0".
func ParsePhysicalAddress(s string) (PhysicalAddress, error) {
	var n [4]uint
	if _, err := fmt.Sscanf(s, "%d.%d.%d.%d", &n[0], &n[1], &n[2], &n[3]); err != nil {
		return 0, fmt.Errorf("%w: physical address %q", ErrFrameEncoding, s)
	}

	var pa PhysicalAddress
	for _, v := range n {
		if v > 0xF {
			return 0, fmt.Errorf("%w: physical address %q", ErrFrameEncoding, s)
		}
		pa = pa<<4 | PhysicalAddress(v)
	}
	return pa, nil
}

// Bytes returns the address as operands (high byte first).
func (pa PhysicalAddress) Bytes() []byte {
	return []byte{byte(pa >> 8), byte(pa)}
}

func (pa PhysicalAddress) String() string {
	return fmt.Sprintf("%d.%d.%d.%d", pa>>12&0xF, pa>>8&0xF, pa>>4&0xF, pa&0xF)
}
