// Copyright 2021-2024 Sebastian Lederer. See the file LICENSE.md for details
package uart

import "fmt"

// Timing constants of the reference device. The bit duration is fixed at
// construction; the baud-divisor register stores whatever is written
// to it but is not consumed by the engines.
const (
	DefaultClockHz  = 50000000
	DefaultBaudRate = 115200

	DefaultDataBits  = 8
	DefaultDataWidth = 32
)

// Config fixes the construction-time geometry of a Peripheral. The zero
// value is usable: every field falls back to the reference device's
// defaults (8N1 framing at 50 MHz / 115200 baud, 32-bit registers).
type Config struct {
	// DataBits is the number of serial data bits per frame (1..32).
	DataBits int

	// DataWidth is the register width in bits (1..32). Values written
	// to any register are truncated to this width.
	DataWidth int

	// TicksPerBit is the bit duration in clock ticks. When zero it is
	// derived as ClockHz / BaudRate. The receiver's mid-bit sample
	// needs at least 2 ticks per bit.
	TicksPerBit int

	// ClockHz and BaudRate are only consulted to derive TicksPerBit.
	ClockHz  int
	BaudRate int
}

func (c Config) withDefaults() Config {
	if c.DataBits == 0 {
		c.DataBits = DefaultDataBits
	}
	if c.DataWidth == 0 {
		c.DataWidth = DefaultDataWidth
	}
	if c.ClockHz == 0 {
		c.ClockHz = DefaultClockHz
	}
	if c.BaudRate == 0 {
		c.BaudRate = DefaultBaudRate
	}
	if c.TicksPerBit == 0 && c.BaudRate > 0 {
		c.TicksPerBit = c.ClockHz / c.BaudRate
	}
	return c
}

func (c Config) validate() error {
	if c.DataBits < 1 || c.DataBits > 32 {
		return fmt.Errorf("uart: data bits %d out of range 1..32", c.DataBits)
	}
	if c.DataWidth < 1 || c.DataWidth > 32 {
		return fmt.Errorf("uart: data width %d out of range 1..32", c.DataWidth)
	}
	if c.DataBits > c.DataWidth {
		return fmt.Errorf("uart: %d data bits do not fit %d-bit registers", c.DataBits, c.DataWidth)
	}
	if c.TicksPerBit < 2 {
		return fmt.Errorf("uart: bit duration of %d ticks is too short (minimum 2)", c.TicksPerBit)
	}
	return nil
}

// FrameTicks is the length of one complete serial frame in ticks:
// start bit + data bits + stop bit, each one bit duration long.
func (c Config) FrameTicks() int {
	c = c.withDefaults()
	return (c.DataBits + 2) * c.TicksPerBit
}
