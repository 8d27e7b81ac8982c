// Copyright 2021-2024 Sebastian Lederer. See the file LICENSE.md for details
package uart

type rxState uint

const (
	rxIdle rxState = iota
	rxStart
	rxData
	rxStop
)

func (s rxState) String() string {
	switch s {
	case rxIdle:
		return "IDLE"
	case rxStart:
		return "START"
	case rxData:
		return "DATA"
	case rxStop:
		return "STOP"
	}
	return "?"
}

// rxOut is the receiver's output pin bundle for the current tick. ready
// is high for exactly the tick on which a good stop bit is sampled; the
// peripheral latches data into rx-data on that same tick. err is sticky:
// it stays up across idle ticks and later frame starts until the next
// successfully completed frame (or a device reset) clears it.
type rxOut struct {
	busy  bool
	ready bool
	err   bool
	data  Word
}

// receiver deserializes frames off the input line with one sample per
// bit: the start bit is confirmed at its midpoint, every later bit is
// sampled one full bit duration after the previous sample, which lands
// mid-bit relative to the line.
type receiver struct {
	bits  int
	ticks int

	state   rxState
	shift   Word
	tickCnt int
	bitCnt  int

	out rxOut
}

func (r *receiver) reset() {
	r.state = rxIdle
	r.shift = 0
	r.tickCnt = 0
	r.bitCnt = 0
	r.out = rxOut{}
}

// tick advances the engine by one clock. ctrl is the register snapshot
// taken at the start of the tick; in is the line level for this tick.
// rx-enable only gates start detection: a frame in flight completes
// even if the bit is cleared mid-frame.
func (r *receiver) tick(ctrl Word, in bool) {
	r.out.ready = false

	switch r.state {
	case rxIdle:
		r.out.busy = false
		if ctrl&CtrlRxEnable != 0 && !in {
			// candidate start bit
			r.tickCnt = 0
			r.out.busy = true
			r.state = rxStart
		}
	case rxStart:
		r.tickCnt++
		if r.tickCnt == r.ticks/2 {
			if !in {
				// start bit confirmed at its midpoint
				r.tickCnt = 0
				r.bitCnt = 0
				r.shift = 0
				r.state = rxData
			} else {
				// line bounced back high: false trigger
				r.state = rxIdle
			}
		}
	case rxData:
		r.tickCnt++
		if r.tickCnt == r.ticks {
			// bits arrive least-significant first: each new sample
			// enters at the top, older bits move down
			r.tickCnt = 0
			r.shift >>= 1
			if in {
				r.shift |= 1 << (r.bits - 1)
			}
			r.bitCnt++
			if r.bitCnt == r.bits {
				r.state = rxStop
			}
		}
	case rxStop:
		r.tickCnt++
		if r.tickCnt == r.ticks {
			if in {
				r.out.data = r.shift
				r.out.ready = true
				r.out.err = false
			} else {
				r.out.err = true
			}
			r.state = rxIdle
		}
	}
}
