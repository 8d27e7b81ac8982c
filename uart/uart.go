// Copyright 2021-2024 Sebastian Lederer. See the file LICENSE.md for details

// Package uart is a cycle-accurate model of a memory-mapped UART
// peripheral: a register file behind a three-phase bus handshake, a
// transmit engine serializing bytes onto an output line and a receive
// engine reconstructing bytes from an input line, all advanced in
// lockstep by discrete clock ticks. The caller owns the clock: each
// Tick carries the bus pins and the serial input level for that tick
// and returns the bus reply and the serial output level.
//
// The model is synchronous. Every engine computes its next state from
// the register snapshot taken at the start of the tick, then all
// updates are committed and the engines' flags are folded into the
// status register. Nothing observes a same-tick update, so a status
// read on the very tick a done/ready pulse fires still returns the
// pre-pulse value.
package uart

import (
	"fmt"
)

// Input is the pin bundle the caller presents on one clock tick.
// Select/Enable/Write/Addr/WData drive the bus handshake; Rx is the
// serial input line level for this tick (idle high).
type Input struct {
	Select bool
	Enable bool
	Write  bool
	Addr   Word
	WData  Word
	Rx     bool
}

// Output is the pin bundle the device drives during the same tick.
// Ready, BusErr and RData follow the bus handshake contract; Tx is the
// serial output line level (idle high).
type Output struct {
	Ready  bool
	BusErr bool
	RData  Word
	Tx     bool
}

// Peripheral composes the register file, the bus adapter and the two
// serial engines into one device. It is not safe for concurrent use;
// drive it from a single goroutine.
type Peripheral struct {
	cfg Config

	regs regFile
	bus  busAdapter
	tx   transmitter
	rx   receiver

	tickCount uint64

	// Trace prints one line per bus operation, engine state change
	// and done/ready pulse to standard output.
	Trace bool
}

// New builds a Peripheral in power-on state. Zero Config fields fall
// back to the reference device's defaults.
func New(cfg Config) (*Peripheral, error) {
	cfg = cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	p := &Peripheral{
		cfg:  cfg,
		regs: regFile{mask: widthMask(cfg.DataWidth)},
		tx:   transmitter{bits: cfg.DataBits, ticks: cfg.TicksPerBit},
		rx:   receiver{bits: cfg.DataBits, ticks: cfg.TicksPerBit},
	}
	p.Reset()
	return p, nil
}

// Config returns the effective configuration, with defaults resolved.
func (p *Peripheral) Config() Config {
	return p.cfg
}

// Ticks returns the number of ticks the device has run since creation.
// The counter is not device state and survives Reset.
func (p *Peripheral) Ticks() uint64 {
	return p.tickCount
}

// Reset is the active-low reset pin: every register reads zero, both
// engines return to Idle, the output line goes idle-high and any bus
// handshake in progress is abandoned.
func (p *Peripheral) Reset() {
	p.regs.reset()
	p.bus.reset()
	p.tx.reset()
	p.rx.reset()
}

// Peek returns a register value without a bus access and without side
// effects. It reflects the most recent fold, i.e. the value a bus read
// would return on the next tick.
func (p *Peripheral) Peek(addr Word) (Word, error) {
	if addr >= numRegs {
		return 0, fmt.Errorf("peek @%d: %w", addr, ErrInvalidAddr)
	}
	return p.regs.read(addr), nil
}

// TxState and friends name the current engine states for monitors.
func (p *Peripheral) TxState() string { return p.tx.state.String() }

// RxState names the receive engine's current state.
func (p *Peripheral) RxState() string { return p.rx.state.String() }

// BusState names the bus adapter's current state.
func (p *Peripheral) BusState() string { return p.bus.state.String() }

// Tick advances the whole device by one clock. The order is fixed:
// snapshot the registers, step the bus adapter against the snapshot,
// step the transmitter, step the receiver, then commit the bus write
// (if any) and fold engine flags into status/rx-data. A register
// written on an access tick is therefore observed by the engines on
// the following tick, and bus reads return pre-fold values.
func (p *Peripheral) Tick(in Input) Output {
	ctrl := p.regs.read(AddrControl)
	txdata := p.regs.read(AddrTxData)

	busPrev := p.bus.state
	txPrev := p.tx.state
	rxPrev := p.rx.state

	wr := p.bus.tick(in, &p.regs)
	p.tx.tick(ctrl, txdata)
	p.rx.tick(ctrl, in.Rx)

	if wr.valid {
		p.regs.write(wr.addr, wr.value)
	}
	p.fold()

	if p.Trace {
		p.traceTick(in, busPrev, txPrev, rxPrev)
	}
	p.tickCount++

	return Output{
		Ready:  p.bus.out.ready,
		BusErr: p.bus.out.err,
		RData:  p.bus.out.rdata,
		Tx:     p.tx.out.line,
	}
}

// fold rebuilds the status register from the engines' output flags and
// latches a newly received byte. Runs last in the tick, after the bus
// has read and written, so only the peripheral ever writes status and
// rx-data.
func (p *Peripheral) fold() {
	var st Word
	if p.tx.out.busy {
		st |= StatTxBusy
	}
	if p.tx.out.done {
		st |= StatTxDone
	}
	if p.rx.out.busy {
		st |= StatRxBusy
	}
	if p.rx.out.ready {
		st |= StatRxDone
	}
	if p.rx.out.err {
		st |= StatRxFrameErr
	}
	p.regs.write(AddrStatus, st)

	if p.rx.out.ready {
		p.regs.write(AddrRxData, p.rx.out.data)
	}
}

func (p *Peripheral) traceTick(in Input, busPrev busState, txPrev txState, rxPrev rxState) {
	if busPrev == busAccess {
		dir := "read "
		val := p.bus.out.rdata
		if in.Write {
			dir = "write"
			val = in.WData
		}
		e := ""
		if p.bus.out.err {
			e = "  err"
		}
		fmt.Printf("%8d  bus  %s @%d %08X%s\n", p.tickCount, dir, in.Addr, val, e)
	}
	if p.tx.state != txPrev {
		fmt.Printf("%8d  tx   %s -> %s\n", p.tickCount, txPrev, p.tx.state)
	}
	if p.tx.out.done {
		fmt.Printf("%8d  tx   done\n", p.tickCount)
	}
	if p.rx.state != rxPrev {
		fmt.Printf("%8d  rx   %s -> %s\n", p.tickCount, rxPrev, p.rx.state)
	}
	if p.rx.out.ready {
		fmt.Printf("%8d  rx   recv %02X\n", p.tickCount, p.rx.out.data)
	}
	if p.rx.out.err && rxPrev == rxStop {
		fmt.Printf("%8d  rx   framing error\n", p.tickCount)
	}
}
