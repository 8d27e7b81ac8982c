// Copyright 2021-2024 Sebastian Lederer. See the file LICENSE.md for details
package uart

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestPeripheral(t *testing.T) *Peripheral {
	t.Helper()
	p, err := New(Config{TicksPerBit: 4})
	require.NoError(t, err)
	return p
}

func TestHandshakeShape(t *testing.T) {
	p := newTestPeripheral(t)

	out := p.Tick(Input{Rx: true, Select: true})
	require.False(t, out.Ready, "select tick: no ready")

	out = p.Tick(Input{Rx: true, Select: true, Enable: true, Addr: AddrControl})
	require.False(t, out.Ready, "enable tick: no ready yet")

	out = p.Tick(Input{Rx: true, Select: true, Enable: true, Addr: AddrControl})
	require.True(t, out.Ready, "ready on exactly the third tick")
	require.False(t, out.BusErr)

	out = p.Tick(Input{Rx: true})
	require.False(t, out.Ready)
	require.False(t, out.BusErr)
}

func TestHandshakeWaitsForEnable(t *testing.T) {
	p := newTestPeripheral(t)

	p.Tick(Input{Rx: true, Select: true})
	// the adapter holds in Setup until enable arrives
	for i := 0; i < 3; i++ {
		out := p.Tick(Input{Rx: true, Select: true})
		require.False(t, out.Ready)
		require.Equal(t, "SETUP", p.BusState())
	}
	p.Tick(Input{Rx: true, Select: true, Enable: true, Addr: AddrBaudDiv, Write: true, WData: 7})
	out := p.Tick(Input{Rx: true, Select: true, Enable: true, Addr: AddrBaudDiv, Write: true, WData: 7})
	require.True(t, out.Ready)

	v, err := p.Peek(AddrBaudDiv)
	require.NoError(t, err)
	require.Equal(t, Word(7), v)
}

func TestWriteVisibleToEnginesNextTick(t *testing.T) {
	h := newTestHarness(t, 4)

	require.NoError(t, h.Write(AddrTxData, 0x41))
	require.NoError(t, h.Write(AddrControl, CtrlTxEnable))

	// the write committed on its access tick, after the engines ran:
	// the register shows it but the transmitter has not seen it yet
	ctrl, err := h.P.Peek(AddrControl)
	require.NoError(t, err)
	require.Equal(t, CtrlTxEnable, ctrl)

	st, err := h.P.Peek(AddrStatus)
	require.NoError(t, err)
	require.Zero(t, st&StatTxBusy)

	h.Tick()
	st, err = h.P.Peek(AddrStatus)
	require.NoError(t, err)
	require.NotZero(t, st&StatTxBusy, "engine observes the enable one tick later")
}

func TestReadBackRegisterMap(t *testing.T) {
	h := newTestHarness(t, 4)

	require.NoError(t, h.Write(AddrControl, CtrlRxEnable))
	require.NoError(t, h.Write(AddrTxData, 0x77))
	require.NoError(t, h.Write(AddrBaudDiv, 0x1C2))

	want := map[Word]Word{
		AddrControl: CtrlRxEnable,
		AddrStatus:  0,
		AddrTxData:  0x77,
		AddrRxData:  0,
		AddrBaudDiv: 0x1C2,
	}
	for addr, v := range want {
		got, err := h.Read(addr)
		require.NoError(t, err, "read @%d", addr)
		require.Equal(t, v, got, "read @%d", addr)
	}
}

func TestInvalidAddressWrite(t *testing.T) {
	h := newTestHarness(t, 4)

	require.NoError(t, h.Write(AddrControl, CtrlRxEnable))
	require.NoError(t, h.Write(AddrTxData, 0x12))
	require.NoError(t, h.Write(AddrBaudDiv, 0x34))

	var before [numRegs]Word
	for addr := Word(0); addr < numRegs; addr++ {
		before[addr], _ = h.P.Peek(addr)
	}

	err := h.Write(5, 0xDEAD)
	require.ErrorIs(t, err, ErrInvalidAddr)

	for addr := Word(0); addr < numRegs; addr++ {
		got, _ := h.P.Peek(addr)
		require.Equal(t, before[addr], got, "register %d changed by invalid write", addr)
	}
}

func TestInvalidAddressRead(t *testing.T) {
	h := newTestHarness(t, 4)

	v, err := h.Read(7)
	require.ErrorIs(t, err, ErrInvalidAddr)
	require.Zero(t, v, "invalid read returns zero data")
}

func TestErrorFlagLastsOneTick(t *testing.T) {
	p := newTestPeripheral(t)

	p.Tick(Input{Rx: true, Select: true})
	p.Tick(Input{Rx: true, Select: true, Enable: true, Write: true, Addr: 5, WData: 1})
	out := p.Tick(Input{Rx: true, Select: true, Enable: true, Write: true, Addr: 5, WData: 1})
	require.True(t, out.Ready, "the handshake completes even for a bad address")
	require.True(t, out.BusErr)

	out = p.Tick(Input{Rx: true})
	require.False(t, out.BusErr, "the error flag means nothing outside its access tick")
}

func TestStatusAndRxDataRejectWrites(t *testing.T) {
	h := newTestHarness(t, 4)

	require.ErrorIs(t, h.Write(AddrStatus, 0xFF), ErrInvalidAddr)
	require.ErrorIs(t, h.Write(AddrRxData, 0xFF), ErrInvalidAddr)

	// status keeps folding engine state after the rejected write
	require.NoError(t, h.Write(AddrTxData, 0x01))
	require.NoError(t, h.Write(AddrControl, CtrlTxEnable))
	h.Tick()
	require.ErrorIs(t, h.Write(AddrStatus, 0), ErrInvalidAddr)

	st, err := h.P.Peek(AddrStatus)
	require.NoError(t, err)
	require.NotZero(t, st&StatTxBusy)
}
