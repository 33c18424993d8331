package cec

import (
	"errors"
	"fmt"
	"runtime"
	"sync/atomic"
	"time"

	"cecri/pkg/port"

	"github.com/womat/debug"
)

var (
	// ErrCollision is returned if the bus is driven low by another device when a transmission starts.
	ErrCollision = errors.New("bus not idle")
	// ErrNack is returned if an ACK slot was sampled with the wrong polarity.
	ErrNack = errors.New("no acknowledge")
)

// Suspender is implemented by the receiver, which must not decode the own waveform.
type Suspender interface {
	Suspend()
	Resume()
}

// Encoder transmits frames on the bus.
type Encoder struct {
	bus Bus
	gen Generator
	rx  Suspender
	// notify is called at the start of every transmission attempt.
	notify func()

	// idleTime is the time the bus must be released before Send starts a transmission.
	idleTime time.Duration
	// ackSampleDelay is the delay between the start of the ACK slot and sampling the bus.
	ackSampleDelay time.Duration
	// retries is the count of additional attempts of Send.
	retries int

	// busy serializes the transmissions of different callers, it holds a token while a caller owns the bus.
	busy chan struct{}

	attempts   uint32
	idleWaits  uint32
	successes  uint32
	nacks      uint32
	collisions uint32
}

// EncoderStats are the counters of the encoder.
type EncoderStats struct {
	Attempts   uint32
	IdleWaits  uint32
	Successes  uint32
	Nacks      uint32
	Collisions uint32
}

// NewEncoder returns an encoder generating the waveforms with gen.
// rx is suspended during every transmission attempt.
func NewEncoder(bus Bus, gen Generator, rx Suspender, notify func()) *Encoder {
	return &Encoder{
		bus:            bus,
		gen:            gen,
		rx:             rx,
		notify:         notify,
		idleTime:       IdleTime,
		ackSampleDelay: AckSampleDelay,
		retries:        MaxRetries,
		busy:           make(chan struct{}, 1),
	}
}

// Stats returns a snapshot of the encoder counters.
func (e *Encoder) Stats() EncoderStats {
	return EncoderStats{
		Attempts:   atomic.LoadUint32(&e.attempts),
		IdleWaits:  atomic.LoadUint32(&e.idleWaits),
		Successes:  atomic.LoadUint32(&e.successes),
		Nacks:      atomic.LoadUint32(&e.nacks),
		Collisions: atomic.LoadUint32(&e.collisions),
	}
}

// Send waits for an idle bus and transmits the frame.
// A failed attempt is repeated up to MaxRetries times, each after a new idle wait.
func (e *Encoder) Send(f Frame) error {
	if err := f.Validate(); err != nil {
		return err
	}

	e.busy <- struct{}{}
	defer func() { <-e.busy }()

	var err error
	for attempt := 0; attempt <= e.retries; attempt++ {
		e.waitIdle()

		if err = e.transmit(f); err == nil {
			return nil
		}

		debug.DebugLog.Printf("tx %s attempt %d: %v", f, attempt+1, err)
	}

	return fmt.Errorf("tx %s failed after %d attempts: %w", f, e.retries+1, err)
}

// SendNow transmits the frame without idle wait and without retry.
// It never blocks: it fails at once with ErrCollision if the bus is low
// or another caller is transmitting or waiting for an idle bus.
func (e *Encoder) SendNow(f Frame) error {
	if err := f.Validate(); err != nil {
		return err
	}

	select {
	case e.busy <- struct{}{}:
		defer func() { <-e.busy }()
	default:
		atomic.AddUint32(&e.collisions, 1)
		return fmt.Errorf("%w: transmission in progress", ErrCollision)
	}

	return e.transmit(f)
}

// waitIdle blocks until the bus has been high for idleTime without interruption.
func (e *Encoder) waitIdle() {
	atomic.AddUint32(&e.idleWaits, 1)

	t0 := time.Now()
	for time.Since(t0) < e.idleTime {
		if !e.bus.Read() {
			t0 = time.Now()
		}
		runtime.Gosched()
	}
}

// transmit generates start bit and all bytes and checks the ACK slot of each byte.
// The receiver is suspended for the whole transmission, but not if the bus is busy:
// the frame another device is sending is still received.
func (e *Encoder) transmit(f Frame) error {
	atomic.AddUint32(&e.attempts, 1)
	if e.notify != nil {
		e.notify()
	}

	if !e.bus.Read() {
		atomic.AddUint32(&e.collisions, 1)
		return ErrCollision
	}

	e.rx.Suspend()
	defer e.rx.Resume()

	// a broadcast is acknowledged if no follower pulls the bus low,
	// a directed frame if the addressed follower pulls the bus low.
	broadcast := f.IsBroadcast()

	e.gen.Put(StartPulse)
	for i, b := range f {
		for _, p := range EncodeByte(b, i == len(f)-1) {
			e.gen.Put(p)
		}

		e.gen.Drain()
		port.Delay(e.ackSampleDelay)

		if high := e.bus.Read(); high != broadcast {
			e.gen.Wait()
			atomic.AddUint32(&e.nacks, 1)
			return fmt.Errorf("%w: byte %d", ErrNack, i)
		}
	}

	e.gen.Wait()
	atomic.AddUint32(&e.successes, 1)
	return nil
}
