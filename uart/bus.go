// Copyright 2021-2024 Sebastian Lederer. See the file LICENSE.md for details
package uart

import "errors"

// ErrInvalidAddr reports a bus access outside the register map, or a
// write to a read-only register, which the device decodes the same way.
// On the wire it is just the one-tick error flag; the harness and Peek
// translate the flag into this error.
var ErrInvalidAddr = errors.New("invalid register address")

type busState uint

const (
	busIdle busState = iota
	busSetup
	busAccess
)

func (s busState) String() string {
	switch s {
	case busIdle:
		return "IDLE"
	case busSetup:
		return "SETUP"
	case busAccess:
		return "ACCESS"
	}
	return "?"
}

// busOut is the adapter's output pin bundle. ready is high for exactly
// one tick per handshake (the access tick); err is only ever high on
// that same tick and reports an invalid address. rdata is meaningful
// only on the ready tick of a read.
type busOut struct {
	ready bool
	err   bool
	rdata Word
}

// regWrite is the single register write a bus access may produce. It is
// committed by the peripheral after every engine has seen the register
// snapshot, so an access-tick write becomes visible on the next tick.
type regWrite struct {
	valid bool
	addr  Word
	value Word
}

// busAdapter runs the three-phase register access handshake: select
// moves Idle to Setup, select+enable moves Setup to Access, and the
// access tick performs the operation and returns to Idle. An invalid
// address flags err but the handshake still completes.
type busAdapter struct {
	state busState
	out   busOut
}

func (b *busAdapter) reset() {
	b.state = busIdle
	b.out = busOut{}
}

// tick advances the handshake. Reads are served from rf as it stood at
// the start of the tick, one fold behind the engines (a status read on
// the same tick as a done/ready pulse returns the pre-pulse value).
func (b *busAdapter) tick(in Input, rf *regFile) regWrite {
	var wr regWrite

	b.out.ready = false
	b.out.err = false

	switch b.state {
	case busIdle:
		if in.Select {
			b.state = busSetup
		}
	case busSetup:
		if in.Enable {
			b.state = busAccess
		}
	case busAccess:
		b.out.ready = true
		if in.Write {
			switch in.Addr {
			case AddrControl, AddrTxData, AddrBaudDiv:
				wr = regWrite{valid: true, addr: in.Addr, value: in.WData}
			default:
				// status and rx-data are read-only, everything
				// past the register map does not exist
				b.out.err = true
			}
		} else {
			switch in.Addr {
			case AddrControl, AddrStatus, AddrTxData, AddrRxData, AddrBaudDiv:
				b.out.rdata = rf.read(in.Addr)
			default:
				b.out.rdata = 0
				b.out.err = true
			}
		}
		b.state = busIdle
	}
	return wr
}
