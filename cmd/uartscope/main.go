// Copyright 2021-2024 Sebastian Lederer. See the file LICENSE.md for details

// uartscope is a logic-analyzer view of the simulated UART. A message
// is retransmitted forever in loopback while the window sweeps the tx
// and rx lines plus both busy flags, one pixel column per tick. Esc or
// closing the window quits.
package main

import (
	"errors"
	"flag"
	"fmt"
	"image/color"
	"log"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/text"
	"golang.org/x/image/font/basicfont"

	"uartsim/uart"
)

const (
	scopeW = 640
	scopeH = 400

	nchan = 4
	bandH = 88
	bandY = 24
)

var errQuit = errors.New("quit")

var chanName = [nchan]string{"TX", "RX", "TX BUSY", "RX BUSY"}

var traceColor = color.RGBA{0, 255, 70, 255}

func chanTop(c int) int  { return bandY + c*bandH }
func chanHigh(c int) int { return chanTop(c) + 24 }
func chanLow(c int) int  { return chanTop(c) + 64 }

type Game struct {
	p   *uart.Peripheral
	h   *uart.Harness
	img *ebiten.Image

	msg   []byte
	idx   int
	armed bool

	x             int
	ticked        int
	ticksPerFrame int
	prevY         [nchan]int
}

// sample plots one tick into the sweep. It hangs off the harness hook
// so the ticks inside bus accesses are drawn too.
func (g *Game) sample(in uart.Input, out uart.Output) {
	st, _ := g.p.Peek(uart.AddrStatus)
	levels := [nchan]bool{
		out.Tx,
		in.Rx,
		st&uart.StatTxBusy != 0,
		st&uart.StatRxBusy != 0,
	}

	// blank the beam column and a small gap ahead of it
	for dx := 0; dx < 2; dx++ {
		x := (g.x + dx) % scopeW
		for y := 0; y < scopeH; y++ {
			g.img.Set(x, y, color.Black)
		}
	}

	for c := 0; c < nchan; c++ {
		y := chanLow(c)
		if levels[c] {
			y = chanHigh(c)
		}
		g.img.Set(g.x, y, traceColor)
		if g.prevY[c] != 0 && g.prevY[c] != y {
			lo, hi := y, g.prevY[c]
			if lo > hi {
				lo, hi = hi, lo
			}
			for yy := lo; yy <= hi; yy++ {
				g.img.Set(g.x, yy, traceColor)
			}
		}
		g.prevY[c] = y
	}

	g.x = (g.x + 1) % scopeW
	g.ticked++
}

// feed keeps the transmitter busy: write the next message byte and
// pulse tx-enable whenever the engine goes idle, drop the enable as
// soon as the byte is latched so each byte goes out exactly once.
func (g *Game) feed() error {
	st, _ := g.p.Peek(uart.AddrStatus)
	busy := st&uart.StatTxBusy != 0

	switch {
	case busy && g.armed:
		if err := g.h.Write(uart.AddrControl, uart.CtrlRxEnable); err != nil {
			return err
		}
		g.armed = false
	case !busy && !g.armed:
		b := g.msg[g.idx]
		g.idx = (g.idx + 1) % len(g.msg)
		if err := g.h.Write(uart.AddrTxData, uart.Word(b)); err != nil {
			return err
		}
		if err := g.h.Write(uart.AddrControl, uart.CtrlTxEnable|uart.CtrlRxEnable); err != nil {
			return err
		}
		g.armed = true
	default:
		g.h.Tick()
	}
	return nil
}

func (g *Game) Update() error {
	if ebiten.IsKeyPressed(ebiten.KeyEscape) {
		return errQuit
	}
	target := g.ticked + g.ticksPerFrame
	for g.ticked < target {
		if err := g.feed(); err != nil {
			return err
		}
	}
	return nil
}

func (g *Game) Draw(screen *ebiten.Image) {
	screen.DrawImage(g.img, nil)
	for c := 0; c < nchan; c++ {
		text.Draw(screen, chanName[c], basicfont.Face7x13, 8, chanTop(c)+12, color.White)
	}
	caption := fmt.Sprintf("%d ticks/bit   tick %d", g.p.Config().TicksPerBit, g.p.Ticks())
	text.Draw(screen, caption, basicfont.Face7x13, 8, scopeH-8, color.White)
}

func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	return scopeW, scopeH
}

func main() {
	bitPtr := flag.Int("bit", 16, "ticks per serial bit")
	speedPtr := flag.Int("speed", 120, "ticks per video frame")
	textPtr := flag.String("text", "The quick brown fox jumps over the lazy dog. ", "message to transmit")
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

	g := &Game{
		p:             p,
		h:             h,
		img:           ebiten.NewImage(scopeW, scopeH),
		msg:           []byte(*textPtr),
		ticksPerFrame: *speedPtr,
	}
	if len(g.msg) == 0 {
		g.msg = []byte{'U'}
	}
	g.img.Fill(color.Black)
	h.OnTick = g.sample

	ebiten.SetWindowSize(1280, 800)
	ebiten.SetWindowTitle("UART Scope")

	if err := ebiten.RunGame(g); err != nil && err != errQuit {
		log.Panic(err)
	}
}
