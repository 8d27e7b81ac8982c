// Copyright 2021-2024 Sebastian Lederer. See the file LICENSE.md for details

// uartpanel is a register front panel for the simulated UART: all five
// registers with their decoded bits, the engine states and the tick
// counter, updated live. Keys toggle the enable bits, feed bytes from a
// canned message and step the clock by a tick, a bit or a whole frame.
// Every register mutation goes through the bus handshake, so the panel
// exercises the same path a host CPU would.
package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/nsf/termbox-go"

	"uartsim/uart"
)

type panel struct {
	p *uart.Peripheral
	h *uart.Harness

	msg []byte
	idx int

	run           bool
	ticksPerFrame int
	status        string
}

func (pl *panel) printAt(x, y int, s string, fg termbox.Attribute) {
	for _, ch := range s {
		termbox.SetCell(x, y, ch, fg, termbox.ColorDefault)
		x++
	}
}

// bitNames renders the set bits of v as their decoded names.
func bitNames(v uart.Word, names []string) string {
	s := ""
	for i, name := range names {
		if v&(1<<i) == 0 {
			continue
		}
		if s != "" {
			s += " "
		}
		s += name
	}
	return s
}

var ctrlBits = []string{"tx-en", "rx-en", "tx-rst", "rx-rst"}
var statBits = []string{"tx-busy", "tx-done", "rx-busy", "rx-done", "frame-err"}

func (pl *panel) draw() {
	termbox.Clear(termbox.ColorDefault, termbox.ColorDefault)

	mode := "stopped"
	if pl.run {
		mode = "running"
	}
	pl.printAt(2, 1, fmt.Sprintf("UART front panel    tick %-10d %s", pl.p.Ticks(), mode), termbox.ColorWhite|termbox.AttrBold)

	regs := []struct {
		name string
		addr uart.Word
		bits []string
	}{
		{"control ", uart.AddrControl, ctrlBits},
		{"status  ", uart.AddrStatus, statBits},
		{"tx-data ", uart.AddrTxData, nil},
		{"rx-data ", uart.AddrRxData, nil},
		{"baud-div", uart.AddrBaudDiv, nil},
	}
	for i, r := range regs {
		v, _ := pl.p.Peek(r.addr)
		line := fmt.Sprintf("%d  %s  %08X", r.addr, r.name, uint32(v))
		if r.bits != nil {
			line += "  " + bitNames(v, r.bits)
		} else if v != 0 {
			line += fmt.Sprintf("  %q", byte(v))
		}
		pl.printAt(2, 3+i, line, termbox.ColorGreen)
	}

	pl.printAt(2, 9, fmt.Sprintf("bus %-6s  tx %-5s  rx %-5s", pl.p.BusState(), pl.p.TxState(), pl.p.RxState()), termbox.ColorCyan)

	tx, rx := pl.h.LineLevels()
	pl.printAt(2, 10, fmt.Sprintf("line tx=%s rx=%s", level(tx), level(rx)), termbox.ColorCyan)

	pl.printAt(2, 12, fmt.Sprintf("message %q  next %q", pl.msg, pl.msg[pl.idx]), termbox.ColorDefault)
	if pl.status != "" {
		pl.printAt(2, 13, pl.status, termbox.ColorYellow)
	}

	pl.printAt(2, 15, "t/r toggle tx/rx enable   n send next byte   x reset", termbox.ColorDefault)
	pl.printAt(2, 16, "space step tick   b step bit   f step frame   g run/stop   q quit", termbox.ColorDefault)

	termbox.Flush()
}

func level(high bool) string {
	if high {
		return "1"
	}
	return "0"
}

func (pl *panel) toggle(bit uart.Word) {
	ctrl, err := pl.h.Read(uart.AddrControl)
	if err != nil {
		pl.status = err.Error()
		return
	}
	if err := pl.h.Write(uart.AddrControl, ctrl^bit); err != nil {
		pl.status = err.Error()
	}
}

func (pl *panel) sendNext() {
	b := pl.msg[pl.idx]
	pl.idx = (pl.idx + 1) % len(pl.msg)
	if err := pl.h.SendByte(b); err != nil {
		pl.status = err.Error()
		return
	}
	pl.status = fmt.Sprintf("sent %q", b)
}

func (pl *panel) handleKey(ev termbox.Event) bool {
	switch {
	case ev.Key == termbox.KeyEsc || ev.Ch == 'q':
		return false
	case ev.Ch == 't':
		pl.toggle(uart.CtrlTxEnable)
	case ev.Ch == 'r':
		pl.toggle(uart.CtrlRxEnable)
	case ev.Ch == 'n':
		pl.sendNext()
	case ev.Ch == 'x':
		pl.p.Reset()
		pl.status = "device reset"
	case ev.Key == termbox.KeySpace:
		pl.h.Tick()
	case ev.Ch == 'b':
		pl.h.TickN(pl.p.Config().TicksPerBit)
	case ev.Ch == 'f':
		pl.h.TickN(pl.p.Config().FrameTicks())
	case ev.Ch == 'g':
		pl.run = !pl.run
	}
	return true
}

func main() {
	bitPtr := flag.Int("bit", 16, "ticks per serial bit")
	speedPtr := flag.Int("speed", 120, "ticks per display refresh when running")
	textPtr := flag.String("text", "Hello, UART! ", "message bytes for the n key")
	flag.Parse()

	log.SetFlags(0)

	p, err := uart.New(uart.Config{TicksPerBit: *bitPtr})
	if err != nil {
		log.Fatal(err)
	}
	h := uart.NewHarness(p)
	h.Loopback = true

	if err := termbox.Init(); err != nil {
		log.Fatal(err)
	}
	defer termbox.Close()

	pl := &panel{p: p, h: h, msg: []byte(*textPtr), ticksPerFrame: *speedPtr}
	if len(pl.msg) == 0 {
		pl.msg = []byte{'U'}
	}

	events := make(chan termbox.Event)
	go func() {
		for {
			events <- termbox.PollEvent()
		}
	}()

	refresh := time.NewTicker(time.Second / 60)
	defer refresh.Stop()

	pl.draw()
	for {
		select {
		case ev := <-events:
			if ev.Type == termbox.EventKey && !pl.handleKey(ev) {
				return
			}
		case <-refresh.C:
			if pl.run {
				h.TickN(pl.ticksPerFrame)
			}
		}
		pl.draw()
	}
}
