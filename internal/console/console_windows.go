//go:build windows

// Copyright 2021-2024 Sebastian Lederer. See the file LICENSE.md for details

package console

import (
	"io"
	"os"

	"golang.org/x/sys/windows"
)

// State remembers the console mode in effect before SetRaw.
type State struct {
	modeStdin uint32
}

// SetRaw puts the stdin console into raw mode and returns the previous
// state.
func SetRaw() (*State, error) {
	var mode uint32

	fd := windows.Handle(os.Stdin.Fd())
	if err := windows.GetConsoleMode(fd, &mode); err != nil {
		return nil, err
	}
	raw := mode &^ (windows.ENABLE_ECHO_INPUT | windows.ENABLE_PROCESSED_INPUT |
		windows.ENABLE_LINE_INPUT | windows.ENABLE_PROCESSED_OUTPUT)
	raw |= windows.ENABLE_VIRTUAL_TERMINAL_INPUT
	if err := windows.SetConsoleMode(fd, raw); err != nil {
		return nil, err
	}
	return &State{modeStdin: mode}, nil
}

// Restore undoes SetRaw.
func Restore(st *State) error {
	fd := windows.Handle(os.Stdin.Fd())
	return windows.SetConsoleMode(fd, st.modeStdin)
}

// Read reads raw bytes from stdin. A ^Z surfaces as EOF on a Windows
// console; map it to the SUB byte so callers see it like any other key.
func Read(buf []byte) (int, error) {
	n, err := os.Stdin.Read(buf)
	if err == io.EOF {
		buf[0] = 26
		return 1, nil
	}
	return n, err
}

// Write puts one byte on stdout.
func Write(ch byte) error {
	_, err := os.Stdout.Write([]byte{ch})
	return err
}
