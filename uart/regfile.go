// Copyright 2021-2024 Sebastian Lederer. See the file LICENSE.md for details
package uart

// Word is the natural register width of the device. Stored values are
// masked to the configured DataWidth, which defaults to the full 32 bits.
type Word uint32

// Register addresses as seen on the bus (word-addressed).
const (
	AddrControl Word = 0
	AddrStatus  Word = 1
	AddrTxData  Word = 2
	AddrRxData  Word = 3
	AddrBaudDiv Word = 4

	numRegs = 5
)

// Control register bits. Bits 4-31 are stored but drive nothing.
const (
	CtrlTxEnable Word = 1 << 0
	CtrlRxEnable Word = 1 << 1
	CtrlTxReset  Word = 1 << 2
	CtrlRxReset  Word = 1 << 3
)

// Status register bits. The whole register is rebuilt from engine
// outputs on every tick; TxDone and RxDone are single-tick pulses.
const (
	StatTxBusy     Word = 1 << 0
	StatTxDone     Word = 1 << 1
	StatRxBusy     Word = 1 << 2
	StatRxDone     Word = 1 << 3
	StatRxFrameErr Word = 1 << 4
)

// regFile holds the five architected registers. It is a pure state
// holder: the bus adapter reads and writes it, the engines read the
// control/tx-data snapshot, and only the peripheral's fold step writes
// status and rx-data.
type regFile struct {
	regs [numRegs]Word
	mask Word
}

func (rf *regFile) read(addr Word) Word {
	return rf.regs[addr]
}

func (rf *regFile) write(addr Word, value Word) {
	rf.regs[addr] = value & rf.mask
}

func (rf *regFile) reset() {
	for i := range rf.regs {
		rf.regs[i] = 0
	}
}

// widthMask returns a mask covering the low n bits of a Word.
func widthMask(n int) Word {
	if n >= 32 {
		return ^Word(0)
	}
	return Word(1)<<n - 1
}
