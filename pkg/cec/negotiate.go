package cec

import (
	"errors"

	"github.com/womat/debug"
)

// Prober transmits a frame without idle wait and retries.
type Prober interface {
	SendNow(Frame) error
}

// Addresser is configured with the result of the negotiation.
type Addresser interface {
	ConfigureOwnAddress(LogicalAddress)
	EnableAckResponse(bool)
}

// Negotiate claims the desired logical address by sending a polling message (source = destination = desired).
// If another device acknowledges the poll, the address is in use: the own address falls back to
// Unregistered and ACK responding is disabled. Otherwise the address is claimed and ACK responding enabled.
// It returns the resulting address and whether the desired address was claimed.
func Negotiate(p Prober, a Addresser, desired LogicalAddress) (LogicalAddress, bool) {
	err := p.SendNow(Frame{Header(desired, desired)})

	if err == nil {
		debug.InfoLog.Printf("logical address %d is in use, falling back to unregistered (%d)", desired, Unregistered)
		a.ConfigureOwnAddress(Unregistered)
		a.EnableAckResponse(false)
		return Unregistered, false
	}

	if !errors.Is(err, ErrNack) {
		debug.ErrorLog.Printf("polling logical address %d: %v", desired, err)
	}

	debug.InfoLog.Printf("logical address %d is free, claimed", desired)
	a.ConfigureOwnAddress(desired)
	a.EnableAckResponse(true)
	return desired, true
}

// Negotiate claims the desired logical address on the engine's bus.
func (e *Engine) Negotiate(desired LogicalAddress) (LogicalAddress, bool) {
	return Negotiate(e, e, desired)
}
