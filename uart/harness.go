// Copyright 2021-2024 Sebastian Lederer. See the file LICENSE.md for details
package uart

import (
	"errors"
	"fmt"
)

// ErrBadFrame reports a decoded frame whose stop bit sampled low.
var ErrBadFrame = errors.New("bad stop bit")

// Harness clocks a Peripheral and owns its pin wiring: it merges an
// optional bus request and the serial input level into every Tick,
// records the serial output line, and scripts the serial input from a
// queue of levels (resting idle-high when the queue is empty). With
// Loopback set the input follows the previous tick's output instead.
//
// All ticking goes through the harness, so a multi-tick bus access
// keeps the serial lines moving: frames in flight are not paused by
// register reads and writes.
type Harness struct {
	P *Peripheral

	// Loopback feeds the output level of tick T to the input of
	// tick T+1, replacing the scripted input queue.
	Loopback bool

	// OnTick, when set, observes every tick the harness drives,
	// including the ticks inside Read/Write/SendByte. Monitors that
	// must not miss single-tick pulses hang off this hook.
	OnTick func(in Input, out Output)

	rxq     []bool
	lastTx  bool
	lastRx  bool
	txTrace []bool
}

// NewHarness wires a harness around p. The serial lines start idle-high.
func NewHarness(p *Peripheral) *Harness {
	return &Harness{P: p, lastTx: true, lastRx: true}
}

// Tick advances one clock with no bus request.
func (h *Harness) Tick() Output {
	return h.tickWith(Input{})
}

// TickN advances n clocks with no bus request.
func (h *Harness) TickN(n int) {
	for i := 0; i < n; i++ {
		h.tickWith(Input{})
	}
}

func (h *Harness) tickWith(in Input) Output {
	in.Rx = h.nextRx()
	out := h.P.Tick(in)
	h.lastTx = out.Tx
	h.lastRx = in.Rx
	h.txTrace = append(h.txTrace, out.Tx)
	if h.OnTick != nil {
		h.OnTick(in, out)
	}
	return out
}

func (h *Harness) nextRx() bool {
	if h.Loopback {
		return h.lastTx
	}
	if len(h.rxq) > 0 {
		v := h.rxq[0]
		h.rxq = h.rxq[1:]
		return v
	}
	return true
}

// Write performs one full bus handshake writing value to the register
// at addr: select on the first tick, select+enable held for the next
// two, ready observed on the third. An access-tick error flag comes
// back as ErrInvalidAddr.
func (h *Harness) Write(addr, value Word) error {
	h.tickWith(Input{Select: true})
	h.tickWith(Input{Select: true, Enable: true, Write: true, Addr: addr, WData: value})
	out := h.tickWith(Input{Select: true, Enable: true, Write: true, Addr: addr, WData: value})
	if !out.Ready {
		panic("uart: no ready on bus access tick")
	}
	if out.BusErr {
		return fmt.Errorf("write @%d: %w", addr, ErrInvalidAddr)
	}
	return nil
}

// Read performs one full bus handshake reading the register at addr.
func (h *Harness) Read(addr Word) (Word, error) {
	h.tickWith(Input{Select: true})
	h.tickWith(Input{Select: true, Enable: true, Addr: addr})
	out := h.tickWith(Input{Select: true, Enable: true, Addr: addr})
	if !out.Ready {
		panic("uart: no ready on bus access tick")
	}
	if out.BusErr {
		return 0, fmt.Errorf("read @%d: %w", addr, ErrInvalidAddr)
	}
	return out.RData, nil
}

// SendByte runs the canonical polled transmit sequence over the bus:
// wait for tx-busy to clear, write b to tx-data, raise tx-enable until
// the engine is seen busy (the byte is latched), then drop tx-enable
// again so the byte goes out exactly once. Control bits other than
// tx-enable are preserved.
func (h *Harness) SendByte(b byte) error {
	for {
		st, err := h.Read(AddrStatus)
		if err != nil {
			return err
		}
		if st&StatTxBusy == 0 {
			break
		}
	}
	if err := h.Write(AddrTxData, Word(b)); err != nil {
		return err
	}
	ctrl, err := h.Read(AddrControl)
	if err != nil {
		return err
	}
	if err := h.Write(AddrControl, ctrl|CtrlTxEnable); err != nil {
		return err
	}
	for {
		st, err := h.Read(AddrStatus)
		if err != nil {
			return err
		}
		if st&StatTxBusy != 0 {
			break
		}
	}
	return h.Write(AddrControl, ctrl&^CtrlTxEnable)
}

// QueueFrame scripts one serial frame of b onto the input line.
func (h *Harness) QueueFrame(b byte) {
	h.rxq = append(h.rxq, FrameLevels(Word(b), h.P.Config())...)
}

// QueueLevels scripts raw per-tick levels onto the input line.
func (h *Harness) QueueLevels(levels ...bool) {
	h.rxq = append(h.rxq, levels...)
}

// QueueIdle scripts n ticks of idle-high line.
func (h *Harness) QueueIdle(n int) {
	for i := 0; i < n; i++ {
		h.rxq = append(h.rxq, true)
	}
}

// LineLevels returns the serial line levels as of the last tick.
func (h *Harness) LineLevels() (tx, rx bool) {
	return h.lastTx, h.lastRx
}

// TxTrace returns the recorded output line, one level per tick since
// the last ResetTrace. The slice is owned by the harness; copy it if
// it must survive further ticking.
func (h *Harness) TxTrace() []bool {
	return h.txTrace
}

// ResetTrace discards the recorded output line.
func (h *Harness) ResetTrace() {
	h.txTrace = h.txTrace[:0]
}

// FrameLevels renders one serial frame as per-tick line levels: a low
// start bit, the low cfg.DataBits of v least-significant first, and a
// high stop bit, each held for cfg.TicksPerBit ticks.
func FrameLevels(v Word, cfg Config) []bool {
	cfg = cfg.withDefaults()
	levels := make([]bool, 0, cfg.FrameTicks())
	levels = appendLevels(levels, false, cfg.TicksPerBit)
	v &= widthMask(cfg.DataBits)
	for i := 0; i < cfg.DataBits; i++ {
		levels = appendLevels(levels, v&1 != 0, cfg.TicksPerBit)
		v >>= 1
	}
	return appendLevels(levels, true, cfg.TicksPerBit)
}

// DecodeLevels walks a recorded line trace with the receiver's sampling
// discipline (start confirmed at its midpoint, every later bit sampled
// one bit duration after the previous sample) and returns every byte
// framed on it. A low stop bit returns the frames decoded so far and
// ErrBadFrame. A frame cut off by the end of the trace is ignored.
//
// The codec is deliberately independent of the engines so round-trip
// tests check the engines against a second reading of the framing
// rules, not against themselves.
func DecodeLevels(levels []bool, cfg Config) ([]Word, error) {
	cfg = cfg.withDefaults()
	k := cfg.TicksPerBit

	var frames []Word
	i := 0
	for i < len(levels) {
		if levels[i] {
			i++
			continue
		}
		mid := i + k/2
		if mid >= len(levels) {
			break
		}
		if levels[mid] {
			// false trigger, resume the hunt after the midpoint
			i = mid + 1
			continue
		}
		var v Word
		pos := mid
		truncated := false
		for j := 0; j < cfg.DataBits; j++ {
			pos += k
			if pos >= len(levels) {
				truncated = true
				break
			}
			v >>= 1
			if levels[pos] {
				v |= 1 << (cfg.DataBits - 1)
			}
		}
		pos += k
		if truncated || pos >= len(levels) {
			break
		}
		if !levels[pos] {
			return frames, fmt.Errorf("frame %d: %w", len(frames), ErrBadFrame)
		}
		frames = append(frames, v)
		i = pos + 1
	}
	return frames, nil
}

func appendLevels(dst []bool, level bool, n int) []bool {
	for i := 0; i < n; i++ {
		dst = append(dst, level)
	}
	return dst
}
