//go:build !windows

// Copyright 2021-2024 Sebastian Lederer. See the file LICENSE.md for details

// Package console switches the controlling terminal into raw
// byte-at-a-time mode for the interactive front-ends and restores it
// on the way out.
package console

import (
	"os"

	"golang.org/x/term"
)

// State remembers the terminal mode in effect before SetRaw.
type State struct {
	state term.State
}

// SetRaw puts stdin into raw mode and returns the previous state.
func SetRaw() (*State, error) {
	old, err := term.MakeRaw(int(os.Stdin.Fd()))
	if err != nil {
		return nil, err
	}
	return &State{state: *old}, nil
}

// Restore undoes SetRaw.
func Restore(st *State) error {
	return term.Restore(int(os.Stdin.Fd()), &st.state)
}

// Read reads raw bytes from stdin.
func Read(buf []byte) (int, error) {
	return os.Stdin.Read(buf)
}

// Write puts one byte on stdout.
func Write(ch byte) error {
	_, err := os.Stdout.Write([]byte{ch})
	return err
}
