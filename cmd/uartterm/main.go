// Copyright 2021-2024 Sebastian Lederer. See the file LICENSE.md for details

// uartterm is an interactive loopback terminal on the simulated UART.
// Every key is written over the bus, serialized by the transmit engine,
// looped back into the receive engine and echoed only after the
// receiver has reassembled it — what appears on screen has made the
// full serial round trip. Ctrl-C exits.
package main

import (
	"flag"
	"log"
	"time"

	"uartsim/internal/console"
	"uartsim/uart"
)

const ticksPerPoll = 64

// rx-done is a single-tick pulse and a polled status read will usually
// miss it. Watch rx-busy fall on the folded status instead and pick the
// byte out of rx-data, which holds it stable.
type echoWatch struct {
	p       *uart.Peripheral
	wasBusy bool
}

func (w *echoWatch) observe(in uart.Input, out uart.Output) {
	st, _ := w.p.Peek(uart.AddrStatus)
	busy := st&uart.StatRxBusy != 0
	if w.wasBusy && !busy && st&uart.StatRxFrameErr == 0 {
		data, _ := w.p.Peek(uart.AddrRxData)
		ch := byte(data)
		console.Write(ch)
		if ch == '\r' {
			console.Write('\n')
		}
	}
	w.wasBusy = busy
}

func main() {
	bitPtr := flag.Int("bit", 16, "ticks per serial bit")
	tracePtr := flag.Bool("trace", false, "trace device activity")
	flag.Parse()

	log.SetFlags(0)

	p, err := uart.New(uart.Config{TicksPerBit: *bitPtr})
	if err != nil {
		log.Fatal(err)
	}
	p.Trace = *tracePtr

	h := uart.NewHarness(p)
	h.Loopback = true
	h.OnTick = (&echoWatch{p: p}).observe

	if err := h.Write(uart.AddrControl, uart.CtrlRxEnable); err != nil {
		log.Fatal(err)
	}

	oldState, err := console.SetRaw()
	if err != nil {
		log.Fatal(err)
	}
	defer console.Restore(oldState)

	keys := make(chan byte)
	go func() {
		buf := make([]byte, 1)
		for {
			n, err := console.Read(buf)
			if err != nil {
				close(keys)
				return
			}
			if n > 0 {
				keys <- buf[0]
			}
		}
	}()

	for {
		select {
		case ch, ok := <-keys:
			if !ok || ch == 3 { // ^C
				console.Write('\r')
				console.Write('\n')
				return
			}
			if err := h.SendByte(ch); err != nil {
				log.Fatal(err)
			}
		default:
			h.TickN(ticksPerPoll)
			time.Sleep(time.Millisecond)
		}
	}
}
