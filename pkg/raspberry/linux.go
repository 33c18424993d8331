package raspberry

import (
	"fmt"
	"sync"
	"time"

	"cecri/pkg/port"

	"github.com/warthog618/gpio"
)

// OpenDrainPin drives a shared bus line as pseudo open drain:
// output low to pull the line down, input (high impedance) to release it.
// It uses the memory mapped gpio registers, so switching the direction doesn't disarm the edge watch.
type OpenDrainPin struct {
	gpioPin *gpio.Pin
	// epoch is the reference of the event timestamps.
	epoch   time.Time
	handler func(port.Event)
}

var (
	// must be global in package, because the edge handler edge(pin *gpio.Pin) needs the pin infos.
	pins = map[int]*OpenDrainPin{}
	pl   sync.RWMutex
)

// GPIO is the handler to the gpio memory.
type GPIO struct{}

// OpenGPIO maps the GPIO memory range from /dev/gpiomem.
func OpenGPIO() (*GPIO, error) {
	if err := gpio.Open(); err != nil {
		return nil, err
	}
	return &GPIO{}, nil
}

// Close removes the interrupt handlers and unmaps GPIO memory.
func (c *GPIO) Close() error {
	pl.Lock()
	for n, p := range pins {
		p.gpioPin.Unwatch()
		p.gpioPin.Input()
		delete(pins, n)
	}
	pl.Unlock()

	return gpio.Close()
}

// NewOpenDrainPin creates a released open drain pin with internal pull-up.
// The pin number provided is the BCM GPIO number.
func (c *GPIO) NewOpenDrainPin(p int) (*OpenDrainPin, error) {
	pl.Lock()
	defer pl.Unlock()

	if _, ok := pins[p]; ok {
		return nil, fmt.Errorf("pin %v already used", p)
	}

	pin := OpenDrainPin{gpioPin: gpio.NewPin(p), epoch: time.Now()}
	pin.gpioPin.Input()
	pin.gpioPin.PullUp()
	// the output latch stays low, the direction switches between driving low and released
	pin.gpioPin.Low()

	pins[p] = &pin
	return pins[p], nil
}

// DriveLow pulls the line low.
func (p *OpenDrainPin) DriveLow() {
	p.gpioPin.Low()
	p.gpioPin.Output()
}

// Release sets the pin to input, the pull-up lifts the line.
func (p *OpenDrainPin) Release() {
	p.gpioPin.Input()
}

// Read the line level, true is high.
// It reads the level register, which reflects the line also in output mode.
func (p *OpenDrainPin) Read() bool {
	return bool(p.gpioPin.Read())
}

// Watch the pin for edges; handler receives the edge and its timestamp.
// There can only be one watcher on the pin at a time.
func (p *OpenDrainPin) Watch(handler func(port.Event)) error {
	pl.Lock()
	p.handler = handler
	pl.Unlock()

	return p.gpioPin.Watch(gpio.EdgeBoth, edge)
}

// Unwatch removes any watch from the pin.
func (p *OpenDrainPin) Unwatch() {
	p.gpioPin.Unwatch()

	pl.Lock()
	p.handler = nil
	pl.Unlock()
}

// Pin returns the pin number that this Pin represents.
func (p *OpenDrainPin) Pin() int {
	return p.gpioPin.Pin()
}

// edge timestamps the interrupt and derives the edge type from the current level.
func edge(g *gpio.Pin) {
	pl.RLock()
	pin, ok := pins[g.Pin()]
	var handler func(port.Event)
	if ok {
		handler = pin.handler
	}
	pl.RUnlock()

	if handler == nil {
		return
	}

	evt := port.Event{Timestamp: time.Since(pin.epoch), Type: port.RisingEdge}
	if !g.Read() {
		evt.Type = port.FallingEdge
	}

	handler(evt)
}
