// Copyright 2021-2024 Sebastian Lederer. See the file LICENSE.md for details
package uart

type txState uint

const (
	txIdle txState = iota
	txStart
	txData
	txStop
)

func (s txState) String() string {
	switch s {
	case txIdle:
		return "IDLE"
	case txStart:
		return "START"
	case txData:
		return "DATA"
	case txStop:
		return "STOP"
	}
	return "?"
}

// txOut is the transmitter's output pin bundle for the current tick.
// busy and done are folded into the status register; done is high for
// exactly the tick on which the stop bit's duration completes.
type txOut struct {
	line bool
	busy bool
	done bool
}

// transmitter serializes one byte per frame: start bit low, DataBits
// data bits least-significant first, stop bit high, each held for one
// bit duration. The line idles high.
type transmitter struct {
	bits  int
	ticks int

	state   txState
	shift   Word
	tickCnt int
	bitCnt  int

	out txOut
}

func (t *transmitter) reset() {
	t.state = txIdle
	t.shift = 0
	t.tickCnt = 0
	t.bitCnt = 0
	t.out = txOut{line: true}
}

// tick advances the engine by one clock. ctrl and txdata are the
// register snapshot taken at the start of the tick, so a bus write
// committed this tick is observed on the next one. A frame in flight
// runs to completion no matter how ctrl or txdata change; the shift
// buffer is latched once, on the idle tick that observes tx-enable.
func (t *transmitter) tick(ctrl, txdata Word) {
	t.out.done = false

	switch t.state {
	case txIdle:
		t.out.line = true
		t.out.busy = false
		if ctrl&CtrlTxEnable != 0 {
			t.shift = txdata & widthMask(t.bits)
			t.tickCnt = 0
			t.bitCnt = 0
			t.out.busy = true
			t.state = txStart
		}
	case txStart:
		t.out.line = false
		t.tickCnt++
		if t.tickCnt == t.ticks {
			t.tickCnt = 0
			t.state = txData
		}
	case txData:
		t.out.line = t.shift&1 != 0
		t.tickCnt++
		if t.tickCnt == t.ticks {
			t.tickCnt = 0
			t.shift >>= 1
			t.bitCnt++
			if t.bitCnt == t.bits {
				t.state = txStop
			}
		}
	case txStop:
		t.out.line = true
		t.tickCnt++
		if t.tickCnt == t.ticks {
			t.tickCnt = 0
			t.out.done = true
			t.out.busy = false
			t.state = txIdle
		}
	}
}
