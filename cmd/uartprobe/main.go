// Copyright 2021-2024 Sebastian Lederer. See the file LICENSE.md for details

// uartprobe dumps the serial frame of every key you press: the byte is
// written over the bus, serialized by the real transmit engine in
// loopback, and the recorded line is printed as a per-bit level diagram
// together with the decoded frame fields. Esc exits.
package main

import (
	"flag"
	"fmt"
	"log"
	"strings"

	"github.com/eiannone/keyboard"

	"uartsim/uart"
)

func main() {
	bitPtr := flag.Int("bit", 8, "ticks per serial bit")
	flag.Parse()

	log.SetFlags(0)

	p, err := uart.New(uart.Config{TicksPerBit: *bitPtr})
	if err != nil {
		log.Fatal(err)
	}
	h := uart.NewHarness(p)
	h.Loopback = true

	if err := keyboard.Open(); err != nil {
		log.Fatal(err)
	}
	defer keyboard.Close()

	fmt.Printf("uartprobe: %d data bits, %d ticks per bit, %d ticks per frame\r\n",
		p.Config().DataBits, p.Config().TicksPerBit, p.Config().FrameTicks())
	fmt.Print("press keys to probe their frames, Esc to exit\r\n\r\n")

	for {
		ch, key, err := keyboard.GetKey()
		if err != nil {
			log.Fatal(err)
		}
		if key == keyboard.KeyEsc {
			return
		}
		b := byte(ch)
		switch key {
		case keyboard.KeySpace:
			b = ' '
		case keyboard.KeyEnter:
			b = '\r'
		case keyboard.KeyTab:
			b = '\t'
		}
		if b == 0 {
			continue
		}
		if err := probe(h, b); err != nil {
			log.Fatal(err)
		}
	}
}

// probe transmits b once and prints the frame recorded off the output
// line.
func probe(h *uart.Harness, b byte) error {
	cfg := h.P.Config()

	h.ResetTrace()
	if err := h.SendByte(b); err != nil {
		return err
	}
	// SendByte returns as soon as the byte is latched; run the frame out
	// plus a little idle so the stop bit is fully recorded.
	h.TickN(cfg.FrameTicks() + cfg.TicksPerBit)

	levels := h.TxTrace()
	start := -1
	for i, lvl := range levels {
		if !lvl {
			start = i
			break
		}
	}
	if start < 0 {
		return fmt.Errorf("probe %q: no start bit on the line", b)
	}

	decoded, err := uart.DecodeLevels(levels, cfg)
	if err != nil {
		return err
	}

	fmt.Printf("%q  0x%02X  start bit after %d ticks\r\n", b, b, start)
	fmt.Printf("  line  %s\r\n", bitDiagram(levels, start, cfg))
	fmt.Printf("  bits  %s\r\n", bitLabels(levels, start, cfg))
	if len(decoded) == 1 {
		fmt.Printf("  byte  0x%02X (lsb first)\r\n", uint32(decoded[0]))
	}
	fmt.Print("\r\n")
	return nil
}

// bitDiagram draws one cell per bit duration, sampled mid-bit the way
// the receiver samples.
func bitDiagram(levels []bool, start int, cfg uart.Config) string {
	var sb strings.Builder
	for i := 0; i < cfg.DataBits+2; i++ {
		pos := start + i*cfg.TicksPerBit + cfg.TicksPerBit/2
		if pos < len(levels) && levels[pos] {
			sb.WriteString("~~~ ")
		} else {
			sb.WriteString("___ ")
		}
	}
	return sb.String()
}

// bitLabels names each cell of the diagram: S for start, the data bit
// values lsb first, P for stop.
func bitLabels(levels []bool, start int, cfg uart.Config) string {
	var sb strings.Builder
	sb.WriteString(" S  ")
	for i := 0; i < cfg.DataBits; i++ {
		pos := start + (i+1)*cfg.TicksPerBit + cfg.TicksPerBit/2
		v := 0
		if pos < len(levels) && levels[pos] {
			v = 1
		}
		fmt.Fprintf(&sb, " %d  ", v)
	}
	sb.WriteString(" P ")
	return sb.String()
}
