// Package raspberry is the access to the gpio ports of the board.
package raspberry

import (
	"fmt"

	"github.com/warthog618/gpiod"
)

var ErrInvalidParam = fmt.Errorf("invalid parameters")

// consumer is the label of the requested lines.
const consumer = "cecri"

// Chip represents a single GPIO chip that controls a set of lines.
type Chip struct {
	gpiodChip *gpiod.Chip
}

// Output is a requested output line.
type Output struct {
	gpiodLine *gpiod.Line
	offset    int
}

// Open opens a GPIO character device, e.g. gpiochip0.
func Open(name string) (*Chip, error) {
	if name == "" {
		return nil, ErrInvalidParam
	}

	c, err := gpiod.NewChip(name, gpiod.WithConsumer(consumer))
	if err != nil {
		return nil, err
	}
	return &Chip{gpiodChip: c}, nil
}

// NewOutput requests control of a single line as output with the initial level.
// If granted, control is maintained until the Output is closed.
func (c *Chip) NewOutput(offset int, high bool) (*Output, error) {
	if offset < 0 {
		return nil, ErrInvalidParam
	}

	l, err := c.gpiodChip.RequestLine(offset, gpiod.AsOutput(level(high)))
	if err != nil {
		return nil, fmt.Errorf("request line %d: %w", offset, err)
	}

	return &Output{gpiodLine: l, offset: offset}, nil
}

// Close releases the Chip.
//
// It does not release any lines which may be requested - they must be closed
// independently.
func (c *Chip) Close() error {
	return c.gpiodChip.Close()
}

// Set the line level.
func (o *Output) Set(high bool) error {
	return o.gpiodLine.SetValue(level(high))
}

// Offset returns the line offset on the chip.
func (o *Output) Offset() int {
	return o.offset
}

// Close releases the line.
func (o *Output) Close() error {
	return o.gpiodLine.Close()
}

func level(high bool) int {
	if high {
		return 1
	}
	return 0
}
